package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/tictactoe-match/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-match/internal/entity"
)

type MatchRepository interface {
	Save(ctx context.Context, match *entity.Match, events []entity.Event) error
	GetByID(ctx context.Context, id string) (*entity.Match, error)
	EventsAfter(ctx context.Context, id string, seq uint64) ([]entity.Event, error)
	DeleteByID(ctx context.Context, id string) error
}

type dbMatch struct {
	client *redis.Client

	// eventLogSize bounds the per-match event list, zero keeps everything.
	eventLogSize int64
}

func NewMatchRepository(client *redis.Client, eventLogSize int64) MatchRepository {
	return &dbMatch{
		client:       client,
		eventLogSize: eventLogSize,
	}
}

func matchKey(id string) string {
	return "match:" + id
}

func eventsKey(id string) string {
	return "match:" + id + ":events"
}

// Save writes the snapshot and appends its events in one transaction.
func (that *dbMatch) Save(ctx context.Context, match *entity.Match, events []entity.Event) error {
	matchJSON, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("could not marshal match: %w", err)
	}

	values := make([]interface{}, 0, len(events))
	for _, event := range events {
		eventJSON, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("could not marshal event %d: %w", event.Seq, err)
		}

		values = append(values, eventJSON)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, matchKey(match.ID), matchJSON, 0)

		if len(values) > 0 {
			pipe.RPush(ctx, eventsKey(match.ID), values...)

			if that.eventLogSize > 0 {
				pipe.LTrim(ctx, eventsKey(match.ID), -that.eventLogSize, -1)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}

	return nil
}

func (that *dbMatch) GetByID(ctx context.Context, id string) (*entity.Match, error) {
	response, err := that.client.Get(ctx, matchKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrMatchNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get match by id: %w", err)
	}

	var existingMatch entity.Match
	if err = json.Unmarshal([]byte(response), &existingMatch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %w", err)
	}

	return &existingMatch, nil
}

// EventsAfter returns the logged events with a sequence number greater than seq, oldest first.
func (that *dbMatch) EventsAfter(ctx context.Context, id string, seq uint64) ([]entity.Event, error) {
	response, err := that.client.LRange(ctx, eventsKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	events := make([]entity.Event, 0, len(response))
	for _, item := range response {
		var event entity.Event
		if err = json.Unmarshal([]byte(item), &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}

		if event.Seq > seq {
			events = append(events, event)
		}
	}

	return events, nil
}

func (that *dbMatch) DeleteByID(ctx context.Context, id string) error {
	deleted, err := that.client.Del(ctx, matchKey(id), eventsKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete match by id: %w", err)
	}

	if deleted == 0 {
		return apperror.ErrMatchNotFound
	}

	return nil
}
