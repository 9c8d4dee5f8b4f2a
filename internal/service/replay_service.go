package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/riteshkumar/ledger-replay/internal/codec"
	"github.com/riteshkumar/ledger-replay/internal/errors"
	"github.com/riteshkumar/ledger-replay/internal/eventlog"
	"github.com/riteshkumar/ledger-replay/internal/models"
	"github.com/riteshkumar/ledger-replay/internal/projection"
	"github.com/riteshkumar/ledger-replay/internal/repository"
)

type ReplayService interface {
	Replay(ctx context.Context, input io.Reader) (*models.ReplayResult, error)
	GetReplay(ctx context.Context, id string) (*models.ReplayResult, error)
}

type ReplayServiceImpl struct {
	replayRepo repository.ReplayRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewReplayService builds the service. replayRepo may be nil, in which case
// results are not persisted.
func NewReplayService(replayRepo repository.ReplayRepository, logger *slog.Logger) *ReplayServiceImpl {
	return &ReplayServiceImpl{
		replayRepo: replayRepo,
		logger:     logger,
		now:        time.Now,
	}
}

// Replay loads every event from the CSV input into a fresh event log and
// projects it into account balances and per-client activity. Rejected events
// are logged and reported in the result; only an unreadable input fails.
func (s *ReplayServiceImpl) Replay(ctx context.Context, input io.Reader) (*models.ReplayResult, error) {
	eventLog := eventlog.New()

	loadFailures, err := eventLog.Load(codec.NewReader(input))
	if err != nil {
		s.logger.Error("failed to load events",
			"loaded", eventLog.Len(),
			"error", err.Error(),
		)
		return nil, err
	}
	s.logFailures(models.StageLoad, loadFailures)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	balances := projection.NewAccountProjector()
	activity := projection.NewActivityProjector()
	replayFailures := eventLog.Replay(balances, activity)
	s.logFailures(models.StageReplay, replayFailures)

	result := &models.ReplayResult{
		ID:        uuid.New().String(),
		Accounts:  balances.Balances(),
		Activity:  activity.Activity(),
		Rejected:  append(rejections(models.StageLoad, loadFailures), rejections(models.StageReplay, replayFailures)...),
		Events:    eventLog.Len(),
		CreatedAt: s.now().UTC(),
	}

	s.logger.Info("replay completed",
		"replay_id", result.ID,
		"events", result.Events,
		"accounts", len(result.Accounts),
		"rejected", len(result.Rejected),
	)

	if s.replayRepo == nil {
		return result, nil
	}
	if err := s.replayRepo.Save(ctx, result); err != nil {
		s.logger.Error("failed to persist replay",
			"replay_id", result.ID,
			"error", err.Error(),
		)
		return nil, fmt.Errorf("persist replay: %w", err)
	}
	return result, nil
}

func (s *ReplayServiceImpl) GetReplay(ctx context.Context, id string) (*models.ReplayResult, error) {
	if s.replayRepo == nil {
		return nil, errors.ErrPersistenceDisabled
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.ErrInvalidReplayID
	}

	result, err := s.replayRepo.GetByID(ctx, id)
	if err != nil {
		if err == errors.ErrReplayNotFound {
			s.logger.Warn("replay not found",
				"replay_id", id,
			)
			return nil, err
		}
		s.logger.Error("failed to get replay",
			"replay_id", id,
			"error", err.Error(),
		)
		return nil, err
	}
	return result, nil
}

func (s *ReplayServiceImpl) logFailures(stage string, failures []*errors.EventError) {
	for _, f := range failures {
		attrs := []any{
			"stage", stage,
			"position", f.Position,
			"error", f.Cause.Error(),
		}
		if f.Event != nil {
			attrs = append(attrs,
				"type", string(f.Event.Kind),
				"client", f.Event.Client,
				"tx", f.Event.Tx,
			)
		}
		s.logger.Warn("event rejected", attrs...)
	}
}

func rejections(stage string, failures []*errors.EventError) []models.Rejection {
	out := make([]models.Rejection, 0, len(failures))
	for _, f := range failures {
		r := models.Rejection{
			Stage:    stage,
			Position: f.Position,
			Reason:   f.Cause.Error(),
		}
		if f.Event != nil {
			client, tx := f.Event.Client, f.Event.Tx
			r.Kind = f.Event.Kind
			r.Client = &client
			r.Tx = &tx
		}
		out = append(out, r)
	}
	return out
}
