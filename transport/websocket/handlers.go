package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-match/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-match/internal/entity"
	"github.com/rocketscienceinc/tictactoe-match/internal/pkg"
)

var ErrAlreadyConnected = errors.New("connection already has a seat")

// handleConnect seats the player and answers with its mark and a snapshot. Events published
// after the snapshot follow on the same connection.
func (that *Server) handleConnect(ctx context.Context, p *peer, message *Message) error {
	log := that.logger.With("method", "handleConnect")

	if p.session != nil {
		return that.sendError(ctx, p, ErrAlreadyConnected.Error())
	}

	var payload Payload
	if len(message.Payload) > 0 {
		if err := json.Unmarshal(message.Payload, &payload); err != nil {
			return that.sendError(ctx, p, "invalid payload")
		}
	}

	playerID := ""
	if payload.Player != nil {
		playerID = payload.Player.ID
	}

	if playerID == "" {
		playerID = pkg.GenerateNewSessionID()
	}

	session, err := that.host.Join(ctx, playerID)
	if err != nil {
		if errors.Is(err, apperror.ErrMatchFull) {
			return that.sendError(ctx, p, apperror.ErrMatchFull.Error())
		}

		_ = that.sendError(ctx, p, "internal error")

		return fmt.Errorf("failed to join match: %w", err)
	}

	p.session = session

	if err = p.send(ctx, ActionConnect, Payload{Player: session.Player, Match: session.Match}); err != nil {
		return err
	}

	go that.pump(ctx, p, session)

	log.Debug("player connected", "playerID", session.Player.ID, "mark", session.Player.Mark)

	return nil
}

func (that *Server) handleMove(ctx context.Context, p *peer, message *Message) error {
	if p.session == nil {
		return that.sendError(ctx, p, apperror.ErrNotInMatch.Error())
	}

	var payload Payload
	if err := json.Unmarshal(message.Payload, &payload); err != nil || payload.X == nil || payload.Y == nil {
		return that.sendError(ctx, p, "invalid payload")
	}

	if _, _, err := that.host.ApplyMove(ctx, p.session.Player.ID, *payload.X, *payload.Y); err != nil {
		_ = that.sendError(ctx, p, "internal error")
		return fmt.Errorf("failed to apply move: %w", err)
	}

	return nil
}

func (that *Server) handleRematch(ctx context.Context, p *peer, message *Message) error {
	if p.session == nil {
		return that.sendError(ctx, p, apperror.ErrNotInMatch.Error())
	}

	if _, err := that.host.Rematch(ctx, p.session.Player.ID); err != nil {
		if errors.Is(err, apperror.ErrMatchNotStarted) {
			return that.sendError(ctx, p, apperror.ErrMatchNotStarted.Error())
		}

		_ = that.sendError(ctx, p, "internal error")
		return fmt.Errorf("failed to rematch: %w", err)
	}

	return nil
}

// handleSync answers with the current snapshot. Clients ask for it after they detect a gap.
func (that *Server) handleSync(ctx context.Context, p *peer, message *Message) error {
	if p.session == nil {
		return that.sendError(ctx, p, apperror.ErrNotInMatch.Error())
	}

	return p.send(ctx, ActionSync, Payload{Match: that.host.Snapshot()})
}

// EventFromMessage decodes an event frame sent by the server.
func EventFromMessage(message *Message) (entity.Event, error) {
	var event entity.Event
	if err := json.Unmarshal(message.Payload, &event); err != nil {
		return entity.Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return event, nil
}
