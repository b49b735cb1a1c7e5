package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-match/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-match/internal/entity"
	mockedService "github.com/rocketscienceinc/tictactoe-match/mocks/service"
)

var errRedisDown = errors.New("redis down")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHost(t *testing.T) (*Host, *mockedService.MockMatchRepo) {
	t.Helper()

	repo := mockedService.NewMockMatchRepo(t)
	host := NewHost(discardLogger(), repo, NewBroadcaster(discardLogger(), 64), entity.NewMatch("m1"))

	return host, repo
}

// startedHost seats "a" as Cross and "b" as Circle, every save succeeds.
func startedHost(t *testing.T) (*Host, *mockedService.MockMatchRepo, *Session, *Session) {
	t.Helper()

	host, repo := newTestHost(t)
	repo.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	ctx := context.Background()

	first, err := host.Join(ctx, "a")
	require.NoError(t, err)
	second, err := host.Join(ctx, "b")
	require.NoError(t, err)

	drain(first.Events)
	drain(second.Events)

	return host, repo, first, second
}

func drain(ch <-chan entity.Event) []entity.Event {
	var events []entity.Event
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, event)
		default:
			return events
		}
	}
}

func kinds(events []entity.Event) []string {
	result := make([]string, 0, len(events))
	for _, event := range events {
		result = append(result, event.Kind)
	}

	return result
}

func TestHost_Join(t *testing.T) {
	ctx := context.Background()

	t.Run("First session is seated as Cross and the match waits", func(t *testing.T) {
		// Given: a host with an empty match
		host, repo := newTestHost(t)
		repo.On("Save", mock.Anything, mock.MatchedBy(func(m *entity.Match) bool {
			return len(m.Players) == 1 && m.IsWaiting()
		}), mock.Anything).Return(nil).Once()

		// When: the first session joins
		session, err := host.Join(ctx, "a")

		// Then: it gets Cross, a waiting snapshot and no events
		require.NoError(t, err)
		assert.Equal(t, &entity.Player{ID: "a", Mark: entity.PlayerCross}, session.Player)
		assert.True(t, session.Match.IsWaiting())
		assert.Empty(t, drain(session.Events))
	})

	t.Run("Second session starts the match for everyone", func(t *testing.T) {
		// Given: a host with one seated session
		host, repo := newTestHost(t)
		repo.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(nil).Twice()

		first, err := host.Join(ctx, "a")
		require.NoError(t, err)

		// When: the second session joins
		second, err := host.Join(ctx, "b")

		// Then: it gets Circle and a snapshot taken before the start
		require.NoError(t, err)
		assert.Equal(t, entity.PlayerCircle, second.Player.Mark)
		assert.True(t, second.Match.IsWaiting())

		// Then: both sessions receive the start and the first turn
		expected := []string{entity.EventGameStarted, entity.EventTurnChanged}
		assert.Equal(t, expected, kinds(drain(first.Events)))
		assert.Equal(t, expected, kinds(drain(second.Events)))
		assert.Equal(t, entity.PlayerCross, host.GetCurrentTurn())
	})

	t.Run("Reconnecting session keeps its seat without a save", func(t *testing.T) {
		// Given: a started match
		host, repo, _, _ := startedHost(t)
		calls := len(repo.Calls)

		// When: "b" joins again
		session, err := host.Join(ctx, "b")

		// Then: it keeps Circle and the snapshot is the current state
		require.NoError(t, err)
		assert.Equal(t, entity.PlayerCircle, session.Player.Mark)
		assert.True(t, session.Match.IsOngoing())
		assert.Len(t, repo.Calls, calls)
	})

	t.Run("Third session is refused", func(t *testing.T) {
		// Given: a started match
		host, _, _, _ := startedHost(t)

		// When: a third session joins
		session, err := host.Join(ctx, "c")

		// Then: ErrMatchFull is returned
		require.ErrorIs(t, err, apperror.ErrMatchFull)
		assert.Nil(t, session)
	})

	t.Run("Save failure leaves the seat free", func(t *testing.T) {
		// Given: a repository that fails
		host, repo := newTestHost(t)
		repo.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(errRedisDown).Once()

		// When: a session joins
		session, err := host.Join(ctx, "a")

		// Then: the error is returned and nobody is seated
		require.ErrorIs(t, err, errRedisDown)
		assert.Nil(t, session)
		assert.Empty(t, host.Snapshot().Players)
	})
}

func TestHost_ApplyMove(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid move is saved and published", func(t *testing.T) {
		// Given: a started match
		host, _, first, second := startedHost(t)

		// When: Cross plays the center
		report, ok, err := host.ApplyMove(ctx, "a", 1, 1)

		// Then: the move is applied and both sessions see it
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, entity.OutcomeInProgress, report.Outcome.Kind)
		assert.Equal(t, report.Events, drain(first.Events))
		assert.Equal(t, report.Events, drain(second.Events))
		assert.Equal(t, entity.PlayerCircle, host.GetCurrentTurn())
	})

	t.Run("Out of turn move is silently dropped", func(t *testing.T) {
		// Given: a started match where Cross is to move
		host, repo, first, _ := startedHost(t)
		before := host.Snapshot()
		calls := len(repo.Calls)

		// When: Circle tries to move
		_, ok, err := host.ApplyMove(ctx, "b", 1, 1)

		// Then: nothing changes, nothing is saved and nothing is published
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, before, host.Snapshot())
		assert.Len(t, repo.Calls, calls)
		assert.Empty(t, drain(first.Events))
	})

	t.Run("Occupied cell is silently dropped", func(t *testing.T) {
		// Given: a match where Cross took (0, 0)
		host, _, first, _ := startedHost(t)
		_, ok, err := host.ApplyMove(ctx, "a", 0, 0)
		require.NoError(t, err)
		require.True(t, ok)
		drain(first.Events)
		before := host.Snapshot()

		// When: Circle plays the same cell
		_, ok, err = host.ApplyMove(ctx, "b", 0, 0)

		// Then: it is dropped
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, before, host.Snapshot())
		assert.Empty(t, drain(first.Events))
	})

	t.Run("Unknown session is an error", func(t *testing.T) {
		// Given: a started match
		host, _, _, _ := startedHost(t)

		// When: an unseated session moves
		_, ok, err := host.ApplyMove(ctx, "c", 0, 0)

		// Then: ErrNotInMatch is returned
		require.ErrorIs(t, err, apperror.ErrNotInMatch)
		assert.False(t, ok)
	})

	t.Run("Save failure discards the move", func(t *testing.T) {
		// Given: a started match whose next save fails
		host, repo := newTestHost(t)
		repo.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(nil).Twice()

		first, err := host.Join(ctx, "a")
		require.NoError(t, err)
		_, err = host.Join(ctx, "b")
		require.NoError(t, err)
		drain(first.Events)

		repo.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(errRedisDown).Once()
		before := host.Snapshot()

		// When: Cross moves
		_, ok, err := host.ApplyMove(ctx, "a", 0, 0)

		// Then: the error is returned and the state is untouched
		require.ErrorIs(t, err, errRedisDown)
		assert.False(t, ok)
		assert.Equal(t, before, host.Snapshot())
		assert.Empty(t, drain(first.Events))
	})

	t.Run("Win increments the winner's score", func(t *testing.T) {
		// Given: a started match
		host, _, _, _ := startedHost(t)

		// When: Cross completes the first row
		moves := []struct {
			player string
			x, y   int
		}{{"a", 0, 0}, {"b", 1, 1}, {"a", 1, 0}, {"b", 2, 2}, {"a", 2, 0}}

		var report entity.Report
		for _, m := range moves {
			var ok bool
			var err error
			report, ok, err = host.ApplyMove(ctx, m.player, m.x, m.y)
			require.NoError(t, err)
			require.True(t, ok)
		}

		// Then: Cross won on line 0 and nobody is to move
		assert.Equal(t, entity.Outcome{Kind: entity.OutcomeWon, LineIndex: 0, Winner: entity.PlayerCross}, report.Outcome)
		assert.Equal(t, entity.PlayerNone, host.GetCurrentTurn())

		cross, circle := host.GetScores()
		assert.Equal(t, 1, cross)
		assert.Equal(t, 0, circle)
	})
}

func TestHost_Rematch(t *testing.T) {
	ctx := context.Background()

	t.Run("Rematch before start is refused", func(t *testing.T) {
		// Given: a match with one seated session
		host, repo := newTestHost(t)
		repo.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		_, err := host.Join(ctx, "a")
		require.NoError(t, err)

		// When: it asks for a rematch
		ok, err := host.Rematch(ctx, "a")

		// Then: ErrMatchNotStarted is returned and the match keeps waiting
		require.ErrorIs(t, err, apperror.ErrMatchNotStarted)
		assert.False(t, ok)
		assert.True(t, host.Snapshot().IsWaiting())
	})

	t.Run("Rematch resets the board and publishes", func(t *testing.T) {
		// Given: a match with one move
		host, _, first, _ := startedHost(t)
		_, ok, err := host.ApplyMove(ctx, "a", 0, 0)
		require.NoError(t, err)
		require.True(t, ok)
		drain(first.Events)

		// When: Circle asks for a rematch
		ok, err = host.Rematch(ctx, "b")

		// Then: the board is empty and Cross is to move
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, entity.Board{}, host.Snapshot().Board)
		assert.Equal(t, entity.PlayerCross, host.GetCurrentTurn())
		assert.Equal(t, []string{entity.EventRematched, entity.EventTurnChanged}, kinds(drain(first.Events)))
	})

	t.Run("Unknown session is an error", func(t *testing.T) {
		// Given: a started match
		host, _, _, _ := startedHost(t)

		// When: an unseated session asks for a rematch
		_, err := host.Rematch(ctx, "c")

		// Then: ErrNotInMatch is returned
		require.ErrorIs(t, err, apperror.ErrNotInMatch)
	})
}

func TestRestoreHost(t *testing.T) {
	ctx := context.Background()

	t.Run("Stores a new match when none exists", func(t *testing.T) {
		// Given: a repository without the match
		repo := mockedService.NewMockMatchRepo(t)
		repo.On("GetByID", mock.Anything, "m1").Return(nil, apperror.ErrMatchNotFound).Once()
		repo.On("Save", mock.Anything, mock.MatchedBy(func(m *entity.Match) bool {
			return m.ID == "m1" && m.IsWaiting()
		}), mock.Anything).Return(nil).Once()

		// When: restoring the host
		host, err := RestoreHost(ctx, discardLogger(), repo, NewBroadcaster(discardLogger(), 1), "m1")

		// Then: the host runs a new waiting match
		require.NoError(t, err)
		assert.Equal(t, entity.NewMatch("m1"), host.Snapshot())
	})

	t.Run("Resumes a stored match", func(t *testing.T) {
		// Given: a stored match in progress
		stored := entity.NewMatch("m1")
		stored.Start()
		stored.CircleScore = 4

		repo := mockedService.NewMockMatchRepo(t)
		repo.On("GetByID", mock.Anything, "m1").Return(stored, nil).Once()

		// When: restoring the host
		host, err := RestoreHost(ctx, discardLogger(), repo, NewBroadcaster(discardLogger(), 1), "m1")

		// Then: the stored state is resumed
		require.NoError(t, err)
		assert.Equal(t, stored, host.Snapshot())
	})

	t.Run("Repository failure is returned", func(t *testing.T) {
		// Given: a repository that fails
		repo := mockedService.NewMockMatchRepo(t)
		repo.On("GetByID", mock.Anything, "m1").Return(nil, errRedisDown).Once()

		// When: restoring the host
		host, err := RestoreHost(ctx, discardLogger(), repo, NewBroadcaster(discardLogger(), 1), "m1")

		// Then: the error is wrapped
		require.ErrorIs(t, err, errRedisDown)
		assert.Nil(t, host)
	})
}

func TestResetHost(t *testing.T) {
	ctx := context.Background()

	t.Run("Drops the stored match and starts over", func(t *testing.T) {
		// Given: a stored match that gets deleted
		repo := mockedService.NewMockMatchRepo(t)
		repo.On("DeleteByID", mock.Anything, "m1").Return(nil).Once()
		repo.On("GetByID", mock.Anything, "m1").Return(nil, apperror.ErrMatchNotFound).Once()
		repo.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

		// When: resetting the host
		host, err := ResetHost(ctx, discardLogger(), repo, NewBroadcaster(discardLogger(), 1), "m1")

		// Then: a new waiting match is hosted
		require.NoError(t, err)
		assert.Equal(t, entity.NewMatch("m1"), host.Snapshot())
	})

	t.Run("Missing match is not an error", func(t *testing.T) {
		// Given: nothing stored under the id
		repo := mockedService.NewMockMatchRepo(t)
		repo.On("DeleteByID", mock.Anything, "m1").Return(apperror.ErrMatchNotFound).Once()
		repo.On("GetByID", mock.Anything, "m1").Return(nil, apperror.ErrMatchNotFound).Once()
		repo.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

		// When: resetting the host
		_, err := ResetHost(ctx, discardLogger(), repo, NewBroadcaster(discardLogger(), 1), "m1")

		// Then: it succeeds
		require.NoError(t, err)
	})

	t.Run("Delete failure is returned", func(t *testing.T) {
		// Given: a repository that fails to delete
		repo := mockedService.NewMockMatchRepo(t)
		repo.On("DeleteByID", mock.Anything, "m1").Return(errRedisDown).Once()

		// When: resetting the host
		host, err := ResetHost(ctx, discardLogger(), repo, NewBroadcaster(discardLogger(), 1), "m1")

		// Then: the error is wrapped and nothing else is called
		require.ErrorIs(t, err, errRedisDown)
		assert.Nil(t, host)
	})
}

func TestHost_EventsAfter(t *testing.T) {
	// Given: a repository holding one logged event
	host, repo := newTestHost(t)
	logged := []entity.Event{{Seq: 3, Kind: entity.EventMoveApplied, LineIndex: -1}}
	repo.On("EventsAfter", mock.Anything, "m1", uint64(2)).Return(logged, nil).Once()

	// When: reading events after seq 2
	events, err := host.EventsAfter(context.Background(), 2)

	// Then: the logged events are returned
	require.NoError(t, err)
	assert.Equal(t, logged, events)
}

func TestHost_ConcurrentMoves(t *testing.T) {
	// Given: a started match
	host, _, first, _ := startedHost(t)

	// When: both players try every cell at once until the game ends
	var wg sync.WaitGroup
	for _, playerID := range []string{"a", "b"} {
		wg.Add(1)
		go func(playerID string) {
			defer wg.Done()
			for !host.Snapshot().IsFinished() {
				for x := 0; x < entity.BoardSize; x++ {
					for y := 0; y < entity.BoardSize; y++ {
						_, _, err := host.ApplyMove(context.Background(), playerID, x, y)
						assert.NoError(t, err)
					}
				}
			}
		}(playerID)
	}
	wg.Wait()

	// Then: the published events form a gapless sequence a replica can follow
	replica := NewReplica()
	replica.Sync(entity.NewMatch("m1"))
	require.NoError(t, replica.Apply(entity.Event{Seq: 1, Kind: entity.EventGameStarted, LineIndex: -1}))
	require.NoError(t, replica.Apply(entity.Event{Seq: 2, Kind: entity.EventTurnChanged, Turn: entity.PlayerCross, LineIndex: -1}))

	for _, event := range drain(first.Events) {
		require.NoError(t, replica.Apply(event))
	}

	snapshot := host.Snapshot()
	mirror := replica.Snapshot()
	assert.Equal(t, snapshot.Board, mirror.Board)
	assert.Equal(t, snapshot.Turn, mirror.Turn)
	assert.Equal(t, snapshot.Status, mirror.Status)
	assert.Equal(t, snapshot.Seq, mirror.Seq)
	assert.True(t, snapshot.IsFinished())
}
