package deskcli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"newsdesk/internal/apiclient"
	"newsdesk/internal/listing"
	"newsdesk/internal/models"
	"newsdesk/internal/reconcile"
	"newsdesk/internal/reorder"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func listCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "Show a content list",
		Long: `Load a list from the API, merge it with the local snapshot and print it.
Filters and sort only affect the view; the stored order is untouched.
When the API is unreachable the last snapshot is shown.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			q, _ := flags.GetString("q")
			status, _ := flags.GetString("status")
			category, _ := flags.GetString("category")
			sortRaw, _ := flags.GetString("sort")
			asJSON, _ := flags.GetBool("json")

			key, err := listing.ParseSortKey(sortRaw)
			if err != nil {
				return err
			}

			d, err := e.open(cmd.Context(), args[0])
			if d == nil {
				return err
			}
			if err != nil && len(d.Items()) == 0 {
				return err
			}

			items := d.View(listing.Criteria{SearchTerm: q, Status: status, Category: category}, key)
			if asJSON {
				enc := json.NewEncoder(e.out)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}
			return printItems(e, items, d.Version())
		},
	}
	cmd.Flags().String("q", "", "Search title, content and author")
	cmd.Flags().String("status", listing.All, "Filter by status")
	cmd.Flags().String("category", listing.All, "Filter by category")
	cmd.Flags().String("sort", string(listing.SortManual), "newest, oldest, most-viewed, most-commented or manual")
	cmd.Flags().Bool("json", false, "Print items as JSON")
	return cmd
}

func printItems(e *env, items []models.ContentItem, version int64) error {
	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tID\tTITLE\tSTATUS\tCATEGORY\tLIKES\tBOOKMARKS\tSHARES")
	for _, it := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			it.Order, it.ID, it.Title, it.Status, it.Category, it.Likes, it.Bookmarks, it.Shares)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(e.out, "%d items, version %d\n", len(items), version)
	return err
}

func createCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <resource>",
		Short: "Create a content item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			draft := models.ContentItem{}
			draft.Title, _ = flags.GetString("title")
			draft.Content, _ = flags.GetString("content")
			draft.AuthorName, _ = flags.GetString("author")
			draft.Category, _ = flags.GetString("category")
			draft.AudioURL, _ = flags.GetString("audio-url")
			draft.DurationSeconds, _ = flags.GetInt("duration")
			draft.Featured, _ = flags.GetBool("featured")
			status, _ := flags.GetString("status")
			draft.Status = models.ContentStatus(status)

			d, err := e.open(cmd.Context(), args[0])
			if d == nil {
				return err
			}
			draft.Kind = d.Kind()

			created, err := d.Create(cmd.Context(), draft)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(e.out, "created %s at position %d\n", created.ID, created.Order)
			return err
		},
	}
	cmd.Flags().String("title", "", "Title (required)")
	cmd.Flags().String("content", "", "Body text")
	cmd.Flags().String("author", "", "Author name")
	cmd.Flags().String("category", "", "Category slug")
	cmd.Flags().String("status", string(models.StatusDraft), "draft, scheduled, published or archived")
	cmd.Flags().String("audio-url", "", "Audio URL (bulletins)")
	cmd.Flags().Int("duration", 0, "Audio duration in seconds (bulletins)")
	cmd.Flags().Bool("featured", false, "Mark as featured")
	return cmd
}

func updateCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <resource> <id>",
		Short: "Edit fields of a content item",
		Long:  "Only the flags given are sent. The change shows locally at once and is undone if the API rejects it.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			patch := map[string]any{}
			for flag, field := range map[string]string{
				"title":     "title",
				"content":   "content",
				"author":    "author_name",
				"category":  "category",
				"status":    "status",
				"audio-url": "audio_url",
			} {
				if flags.Changed(flag) {
					v, _ := flags.GetString(flag)
					patch[field] = v
				}
			}
			if flags.Changed("featured") {
				v, _ := flags.GetBool("featured")
				patch["featured"] = v
			}
			if len(patch) == 0 {
				return errors.New("nothing to update")
			}

			d, err := e.open(cmd.Context(), args[0])
			if d == nil {
				return err
			}
			updated, err := d.Update(cmd.Context(), args[1], patch)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(e.out, "updated %s\n", updated.ID)
			return err
		},
	}
	cmd.Flags().String("title", "", "Title")
	cmd.Flags().String("content", "", "Body text")
	cmd.Flags().String("author", "", "Author name")
	cmd.Flags().String("category", "", "Category slug")
	cmd.Flags().String("status", "", "Status")
	cmd.Flags().String("audio-url", "", "Audio URL")
	cmd.Flags().Bool("featured", false, "Featured flag")
	return cmd
}

func deleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete a content item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := e.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := d.Delete(cmd.Context(), args[1]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(e.out, "deleted %s, version %d\n", args[1], d.Version())
			return err
		},
	}
}

func moveCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <resource> <id>",
		Short: "Move an item one step or to a position",
		Long: `Move an item up or down one slot, or to a 1-based position with --to.
The new order is applied locally and sent to the API. A rejected reorder
is rolled back unless the policy is sticky.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			up, _ := flags.GetBool("up")
			down, _ := flags.GetBool("down")
			to, _ := flags.GetInt("to")

			picked := 0
			for _, set := range []bool{up, down, flags.Changed("to")} {
				if set {
					picked++
				}
			}
			if picked != 1 {
				return errors.New("give exactly one of --up, --down or --to")
			}

			d, err := e.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			switch {
			case up:
				err = d.Move(ctx, args[1], reorder.Up)
			case down:
				err = d.Move(ctx, args[1], reorder.Down)
			default:
				err = d.MoveTo(ctx, args[1], to)
			}
			if err != nil {
				return err
			}
			return printItems(e, d.Items(), d.Version())
		},
	}
	cmd.Flags().Bool("up", false, "Move one slot up")
	cmd.Flags().Bool("down", false, "Move one slot down")
	cmd.Flags().Int("to", 0, "Move to this 1-based position")
	return cmd
}

func toggleCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <resource> <id> <field> [on|off]",
		Short: "Flip liked, bookmarked, shared, featured or published",
		Long:  "Without a value the current state is inverted. Engagement toggles are recorded for --user.",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := reconcile.ParseField(args[2])
			if err != nil {
				return err
			}

			d, err := e.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			item, ok := d.Get(args[1])
			if !ok {
				return &apiclient.ValidationError{Field: "id", Message: "unknown item " + args[1]}
			}

			value := !reconcile.Value(item, field)
			if len(args) == 4 {
				if value, err = parseSwitch(args[3]); err != nil {
					return err
				}
			}

			out, err := d.Toggle(cmd.Context(), args[1], field, value)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("%s %s = %t", out.Item.ID, field, reconcile.Value(out.Item, field))
			if out.PointsEarned > 0 {
				msg += fmt.Sprintf(" (+%d points)", out.PointsEarned)
			}
			_, err = fmt.Fprintln(e.out, msg)
			return err
		},
	}
}

func parseSwitch(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid value %q (want on or off)", raw)
	}
	return v, nil
}

func syncCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [resource...]",
		Short: "Merge local snapshots with the API",
		Long:  "Sync every list, or only the ones named. Lists sync concurrently.",
		RunE: func(cmd *cobra.Command, args []string) error {
			resources := args
			if len(resources) == 0 {
				resources = []string{"blocks", "bulletins", "articles"}
			}

			lines := make([]string, len(resources))
			g, ctx := errgroup.WithContext(cmd.Context())
			for i, resource := range resources {
				g.Go(func() error {
					d, err := e.open(ctx, resource)
					if err != nil {
						return fmt.Errorf("%s: %w", resource, err)
					}
					lines[i] = fmt.Sprintf("%s: %d items, version %d", resource, len(d.Items()), d.Version())
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			for _, line := range lines {
				if _, err := fmt.Fprintln(e.out, line); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func watchCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <resource>",
		Short: "Follow live changes to a list",
		Long:  "Keep the local snapshot in sync with changes made by other editors until interrupted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := e.open(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "watching %s (%d items, version %d)\n", args[0], len(d.Items()), d.Version())

			err = d.Watch(ctx)
			if errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		},
	}
}

func pointsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "points [user]",
		Short: "Show a user's engagement points",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := e.cfg.UserID
			if len(args) == 1 {
				user = args[0]
			}
			if user == "" {
				return errors.New("no user given; pass one or set --user")
			}
			points, err := e.client.Points(cmd.Context(), user)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(e.out, "%s: %d points\n", user, points)
			return err
		},
	}
}
