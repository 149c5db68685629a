package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"newsdesk/internal/featureflags"
	"newsdesk/internal/models"
	"newsdesk/internal/observability"
	"newsdesk/internal/repository"

	"gorm.io/gorm"
)

type InteractionService struct {
	interactionRepo repository.InteractionRepository
	flags           *featureflags.Manager
}

// InteractionInput sets one interaction to the desired end state.
type InteractionInput struct {
	UserID   string
	TargetID string
	Type     models.InteractionType
	Active   bool
}

// InteractionOutcome is the canonical state after an interaction plus the
// item it touched.
type InteractionOutcome struct {
	Result  models.InteractionResult
	Item    *models.ContentItem
	Changed bool
}

func NewInteractionService(interactionRepo repository.InteractionRepository, flags *featureflags.Manager) *InteractionService {
	return &InteractionService{
		interactionRepo: interactionRepo,
		flags:           flags,
	}
}

// Interact applies in idempotently. Activating an interaction earns its
// points once per (user, target, type); deactivating never takes them back.
func (s *InteractionService) Interact(ctx context.Context, in InteractionInput) (*InteractionOutcome, error) {
	ctx, span := observability.StartServiceSpan(ctx, "InteractionService", "Interact")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	in.UserID = strings.TrimSpace(in.UserID)
	in.TargetID = strings.TrimSpace(in.TargetID)
	switch {
	case in.UserID == "":
		err = models.NewValidationError("user_id is required")
	case in.TargetID == "":
		err = models.NewValidationError("target_id is required")
	case !in.Type.Valid():
		err = models.NewValidationError("type must be one of like, bookmark, share")
	}
	if err != nil {
		return nil, err
	}

	item, changed, err := s.interactionRepo.Set(ctx, in.UserID, in.TargetID, in.Type, in.Active)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = models.NewNotFoundError("Content", in.TargetID)
		}
		return nil, err
	}
	observability.InteractionsTotal.WithLabelValues(string(in.Type), strconv.FormatBool(in.Active)).Inc()

	var earned int
	if in.Active && s.flags.EnabledOr(featureflags.InteractionPoints, in.UserID, true) {
		points := in.Type.Points()
		awarded, awardErr := s.interactionRepo.Award(ctx, in.UserID, in.TargetID, in.Type, points)
		if awardErr != nil {
			err = awardErr
			return nil, err
		}
		if awarded {
			earned = points
			observability.PointsAwarded.WithLabelValues(string(in.Type)).Add(float64(points))
		}
	}

	total, err := s.interactionRepo.TotalPoints(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	active, err := s.interactionRepo.ActiveTypes(ctx, in.UserID, []string{in.TargetID})
	if err != nil {
		return nil, err
	}
	types := active[in.TargetID]

	item.Liked = types[models.InteractionLike]
	item.Bookmarked = types[models.InteractionBookmark]
	item.Shared = types[models.InteractionShare]

	return &InteractionOutcome{
		Result: models.InteractionResult{
			PointsEarned: earned,
			TotalPoints:  total,
			IsLiked:      item.Liked,
			IsBookmarked: item.Bookmarked,
			IsShared:     item.Shared,
			Likes:        item.Likes,
			Bookmarks:    item.Bookmarks,
			Shares:       item.Shares,
		},
		Item:    item,
		Changed: changed,
	}, nil
}

// UserPoints returns the user's gamification total.
func (s *InteractionService) UserPoints(ctx context.Context, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, models.NewValidationError("user id is required")
	}
	return s.interactionRepo.TotalPoints(ctx, userID)
}
