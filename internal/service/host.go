package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-match/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-match/internal/entity"
)

type matchRepo interface {
	Save(ctx context.Context, match *entity.Match, events []entity.Event) error
	GetByID(ctx context.Context, id string) (*entity.Match, error)
	EventsAfter(ctx context.Context, id string, seq uint64) ([]entity.Event, error)
	DeleteByID(ctx context.Context, id string) error
}

// Session is a participant attached to the host. Match is the snapshot taken at attach time,
// Events carries everything published after it.
type Session struct {
	ID     uint64
	Player *entity.Player
	Match  *entity.Match
	Events <-chan entity.Event
}

// Host owns the authoritative copy of one match. Mutations are serialized, persisted and then published.
type Host struct {
	logger      *slog.Logger
	repo        matchRepo
	broadcaster *Broadcaster

	mu    sync.Mutex
	match *entity.Match
}

func NewHost(logger *slog.Logger, repo matchRepo, broadcaster *Broadcaster, match *entity.Match) *Host {
	return &Host{
		logger:      logger.With("component", "host", "matchID", match.ID),
		repo:        repo,
		broadcaster: broadcaster,
		match:       match,
	}
}

// RestoreHost resumes the stored match with the given id, or stores a new waiting one.
func RestoreHost(ctx context.Context, logger *slog.Logger, repo matchRepo, broadcaster *Broadcaster, id string) (*Host, error) {
	match, err := repo.GetByID(ctx, id)
	if errors.Is(err, apperror.ErrMatchNotFound) {
		match = entity.NewMatch(id)
		if err = repo.Save(ctx, match, nil); err != nil {
			return nil, fmt.Errorf("failed to store new match: %w", err)
		}

		return NewHost(logger, repo, broadcaster, match), nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get match by id: %w", err)
	}

	return NewHost(logger, repo, broadcaster, match), nil
}

// ResetHost drops the stored match with the given id and its event log, then hosts a new waiting match.
func ResetHost(ctx context.Context, logger *slog.Logger, repo matchRepo, broadcaster *Broadcaster, id string) (*Host, error) {
	if err := repo.DeleteByID(ctx, id); err != nil && !errors.Is(err, apperror.ErrMatchNotFound) {
		return nil, fmt.Errorf("failed to delete match: %w", err)
	}

	return RestoreHost(ctx, logger, repo, broadcaster, id)
}

// Join seats playerID and subscribes it to the event stream. The match starts once both seats are taken.
func (that *Host) Join(ctx context.Context, playerID string) (*Session, error) {
	log := that.logger.With("method", "Join", "playerID", playerID)

	that.mu.Lock()
	defer that.mu.Unlock()

	staged := that.match.Clone()

	player, err := staged.Join(playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to join match: %w", err)
	}

	seated := len(staged.Players) != len(that.match.Players)
	snapshot := staged.Clone()

	var events []entity.Event
	if staged.IsFull() {
		events = staged.Start()
	}

	if seated || len(events) > 0 {
		if err = that.repo.Save(ctx, staged, events); err != nil {
			return nil, fmt.Errorf("failed to save match: %w", err)
		}
	}

	that.match = staged

	id, ch := that.broadcaster.Subscribe()
	that.broadcaster.Publish(events...)

	if len(events) > 0 {
		log.Info("match started")
	}

	log.Info("player attached", "mark", player.Mark, "subscriber", id)

	seat := *player

	return &Session{
		ID:     id,
		Player: &seat,
		Match:  snapshot,
		Events: ch,
	}, nil
}

// Leave detaches the session from the event stream. The seat is kept for a reconnect.
func (that *Host) Leave(session *Session) {
	that.broadcaster.Unsubscribe(session.ID)
	that.logger.Info("player detached", "playerID", session.Player.ID, "subscriber", session.ID)
}

// ApplyMove plays (x, y) with the mark seated for playerID. A rejected move returns false and a nil error.
func (that *Host) ApplyMove(ctx context.Context, playerID string, x, y int) (entity.Report, bool, error) {
	log := that.logger.With("method", "ApplyMove", "playerID", playerID)

	that.mu.Lock()
	defer that.mu.Unlock()

	player := that.match.PlayerByID(playerID)
	if player == nil {
		return entity.Report{}, false, fmt.Errorf("%w: %s", apperror.ErrNotInMatch, playerID)
	}

	staged := that.match.Clone()

	report, ok := staged.ApplyMove(x, y, player.Mark)
	if !ok {
		log.Debug("move rejected", "x", x, "y", y, "mark", player.Mark, "turn", that.match.Turn)
		return entity.Report{}, false, nil
	}

	if err := that.repo.Save(ctx, staged, report.Events); err != nil {
		return entity.Report{}, false, fmt.Errorf("failed to save match: %w", err)
	}

	that.match = staged
	that.broadcaster.Publish(report.Events...)

	log.Info("move applied", "x", x, "y", y, "mark", player.Mark, "outcome", report.Outcome.Kind)

	return report, true, nil
}

// Rematch resets the board for a seated player. Before the match has started it returns apperror.ErrMatchNotStarted.
func (that *Host) Rematch(ctx context.Context, playerID string) (bool, error) {
	log := that.logger.With("method", "Rematch", "playerID", playerID)

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.match.PlayerByID(playerID) == nil {
		return false, fmt.Errorf("%w: %s", apperror.ErrNotInMatch, playerID)
	}

	if that.match.IsWaiting() {
		log.Debug("rematch refused before start")
		return false, fmt.Errorf("%w: match id %s", apperror.ErrMatchNotStarted, that.match.ID)
	}

	staged := that.match.Clone()
	events := staged.Rematch()

	if err := that.repo.Save(ctx, staged, events); err != nil {
		return false, fmt.Errorf("failed to save match: %w", err)
	}

	that.match = staged
	that.broadcaster.Publish(events...)

	log.Info("rematch")

	return true, nil
}

// Snapshot returns a copy of the authoritative state.
func (that *Host) Snapshot() *entity.Match {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.match.Clone()
}

func (that *Host) GetCurrentTurn() entity.PlayerType {
	return that.Snapshot().GetCurrentTurn()
}

func (that *Host) GetScores() (int, int) {
	return that.Snapshot().GetScores()
}

// EventsAfter reads the persisted event log.
func (that *Host) EventsAfter(ctx context.Context, seq uint64) ([]entity.Event, error) {
	events, err := that.repo.EventsAfter(ctx, that.Snapshot().ID, seq)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	return events, nil
}
