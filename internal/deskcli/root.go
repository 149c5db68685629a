// Package deskcli implements deskctl, the command-line desk for the content
// lists. Every command runs a desk against the API so local snapshots,
// optimistic updates and notifications behave as they do in an editor.
package deskcli

import (
	"context"
	"fmt"
	"io"
	"time"

	"newsdesk/internal/apiclient"
	"newsdesk/internal/cache"
	"newsdesk/internal/config"
	"newsdesk/internal/desk"
	"newsdesk/internal/middleware"
	"newsdesk/internal/models"
	"newsdesk/internal/snapshot"

	"github.com/spf13/cobra"
)

const snapshotTTL = 24 * time.Hour

// env is the state shared by the subcommands once flags are parsed.
type env struct {
	cfg    *config.Config
	client *apiclient.Client
	store  snapshot.Store
	policy desk.Policy
	out    io.Writer
	errOut io.Writer
}

// RootCmd returns the deskctl command tree.
func RootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "deskctl",
		Short:         "Manage newsdesk content lists from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("api", "", "API base URL (API_BASE_URL)")
	flags.String("user", "", "Viewer id for interactions (USER_ID)")
	flags.String("snapshot-dir", "", "Directory for local list snapshots (SNAPSHOT_DIR)")
	flags.String("snapshot-store", "file", "Snapshot store: file or redis")
	flags.String("policy", "", "Reorder failure policy: rollback or sticky (REORDER_FAILURE_POLICY)")
	flags.Duration("timeout", 0, "Request timeout (CLIENT_TIMEOUT)")

	root.AddCommand(
		listCmd(e),
		createCmd(e),
		updateCmd(e),
		deleteCmd(e),
		moveCmd(e),
		toggleCmd(e),
		syncCmd(e),
		watchCmd(e),
		pointsCmd(e),
	)
	return root
}

func (e *env) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("api"); v != "" {
		cfg.APIBaseURL = v
	}
	if v, _ := flags.GetString("user"); v != "" {
		cfg.UserID = v
	}
	if v, _ := flags.GetString("snapshot-dir"); v != "" {
		cfg.SnapshotDir = v
	}
	if v, _ := flags.GetString("policy"); v != "" {
		cfg.ReorderFailurePolicy = v
	}
	if v, _ := flags.GetDuration("timeout"); v > 0 {
		cfg.ClientTimeout = v
	}

	policy, err := desk.ParsePolicy(cfg.ReorderFailurePolicy)
	if err != nil {
		return err
	}

	client, err := apiclient.New(apiclient.Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.ClientTimeout,
		Logger:  middleware.Logger,
	})
	if err != nil {
		return err
	}

	storeKind, _ := flags.GetString("snapshot-store")
	store, err := openStore(storeKind, cfg)
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.client = client
	e.store = store
	e.policy = policy
	e.out = cmd.OutOrStdout()
	e.errOut = cmd.ErrOrStderr()
	return nil
}

func openStore(kind string, cfg *config.Config) (snapshot.Store, error) {
	switch kind {
	case "", "file":
		return snapshot.NewFileStore(cfg.SnapshotDir)
	case "redis":
		rdb, err := cache.NewClient(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("snapshot store: %w", err)
		}
		return snapshot.NewRedisStore(rdb, snapshotTTL), nil
	case "memory":
		return snapshot.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown snapshot store %q (want file, redis or memory)", kind)
	}
}

// notify prints desk notifications on stderr.
func (e *env) notify(_ context.Context, n desk.Notification) {
	line := fmt.Sprintf("[%s] %s", n.Level, n.Op)
	if n.ItemID != "" {
		line += " " + n.ItemID
	}
	fmt.Fprintf(e.errOut, "%s: %s\n", line, n.Message)
}

// open builds a desk for resource and loads it. On a failed load the desk is
// still returned, holding whatever the local snapshot had.
func (e *env) open(ctx context.Context, resource string) (*desk.Desk, error) {
	kind, ok := models.KindForResource(resource)
	if !ok {
		return nil, fmt.Errorf("unknown resource %q (want blocks, bulletins or articles)", resource)
	}
	d, err := desk.New(desk.Options{
		Kind:     kind,
		API:      e.client,
		Store:    e.store,
		Notifier: desk.NotifierFunc(e.notify),
		Policy:   e.policy,
		UserID:   e.cfg.UserID,
		Logger:   middleware.Logger,
	})
	if err != nil {
		return nil, err
	}
	_, err = d.Load(ctx)
	return d, err
}
