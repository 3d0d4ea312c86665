package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/anc/internal/platform/middleware"
)

var ErrInvalidFilter = errors.New("invalid activity filter")

var validActions = map[string]bool{"read": true, "create": true, "update": true, "delete": true}

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// RecordActivity stores one entry. It satisfies middleware.ActivityRecorder.
func (s *Service) RecordActivity(ctx context.Context, e middleware.ActivityEntry) error {
	entry := &Entry{
		UserID:     e.UserID,
		UserName:   e.UserName,
		Action:     e.Action,
		Resource:   e.Resource,
		ResourceID: e.ResourceID,
		Method:     e.Method,
		Path:       e.Path,
		StatusCode: e.StatusCode,
		IPAddress:  e.IPAddress,
		RequestID:  e.RequestID,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	if f.Action != "" && !validActions[f.Action] {
		return nil, 0, fmt.Errorf("%w: unknown action %q", ErrInvalidFilter, f.Action)
	}
	return s.repo.List(ctx, f, limit, offset)
}

// Prune removes entries older than retention.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	n, err := s.repo.DeleteBefore(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("removed", n).Dur("retention", retention).Msg("pruned activity log")
	}
	return n, nil
}
