package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/rocketscienceinc/tictactoe-match/internal/entity"
	"github.com/rocketscienceinc/tictactoe-match/internal/service"
)

var ErrConnectRefused = errors.New("connect refused")

// Client is a participant connection feeding a local replica.
type Client struct {
	logger  *slog.Logger
	url     string
	replica *service.Replica

	mu   sync.RWMutex
	conn *websocket.Conn
}

// Dial opens a connection to the match server at url.
func Dial(ctx context.Context, logger *slog.Logger, url string, replica *service.Replica) (*Client, error) {
	conn, err := dial(ctx, url)
	if err != nil {
		return nil, err
	}

	return &Client{
		logger:  logger.With("component", "client"),
		url:     url,
		replica: replica,
		conn:    conn,
	}, nil
}

func dial(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	return conn, nil
}

func (that *Client) current() *websocket.Conn {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.conn
}

// Connect asks for a seat and syncs the replica from the answer. An empty playerID lets the server pick one.
func (that *Client) Connect(ctx context.Context, playerID string) (*entity.Player, error) {
	conn := that.current()

	if err := that.send(ctx, ActionConnect, Payload{Player: &entity.Player{ID: playerID}}); err != nil {
		return nil, err
	}

	var message Message
	if err := wsjson.Read(ctx, conn, &message); err != nil {
		return nil, fmt.Errorf("failed to read connect response: %w", err)
	}

	var payload Payload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal connect response: %w", err)
	}

	if message.Action == ActionError {
		return nil, fmt.Errorf("%w: %s", ErrConnectRefused, payload.Error)
	}

	if message.Action != ActionConnect || payload.Player == nil || payload.Match == nil {
		return nil, fmt.Errorf("%w: unexpected %q response", ErrConnectRefused, message.Action)
	}

	that.replica.Assign(*payload.Player)
	that.replica.Sync(payload.Match)

	return payload.Player, nil
}

func (that *Client) Move(ctx context.Context, x, y int) error {
	return that.send(ctx, ActionMove, Payload{X: &x, Y: &y})
}

func (that *Client) Rematch(ctx context.Context) error {
	return that.send(ctx, ActionRematch, nil)
}

func (that *Client) RequestSync(ctx context.Context) error {
	return that.send(ctx, ActionSync, nil)
}

// Run reads frames until ctx is done or the connection closes, applying events to the replica.
// A gap in the event stream triggers a sync request. When the server drops the connection because
// the replica fell behind, Run dials again and takes its seat back with the same player id.
func (that *Client) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")

	for {
		err := that.read(ctx)
		if websocket.CloseStatus(err) != websocket.StatusTryAgainLater {
			return err
		}

		log.Info("dropped by server, reconnecting", "playerID", that.replica.PlayerID())

		if err = that.reconnect(ctx); err != nil {
			return err
		}
	}
}

func (that *Client) reconnect(ctx context.Context) error {
	conn, err := dial(ctx, that.url)
	if err != nil {
		return err
	}

	that.mu.Lock()
	previous := that.conn
	that.conn = conn
	that.mu.Unlock()

	previous.CloseNow()

	if _, err = that.Connect(ctx, that.replica.PlayerID()); err != nil {
		return fmt.Errorf("failed to reconnect: %w", err)
	}

	return nil
}

func (that *Client) read(ctx context.Context) error {
	log := that.logger.With("method", "read")
	conn := that.current()

	for {
		var message Message
		if err := wsjson.Read(ctx, conn, &message); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("failed to read message: %w", err)
		}

		switch {
		case message.Action == ActionError:
			var payload Payload
			if err := json.Unmarshal(message.Payload, &payload); err != nil {
				log.Warn("malformed error", "error", err)
				continue
			}

			log.Warn("server error", "error", payload.Error)

		case IsEvent(message.Action):
			event, err := EventFromMessage(&message)
			if err != nil {
				log.Warn("malformed event", "error", err)
				continue
			}

			if err = that.replica.Apply(event); errors.Is(err, entity.ErrEventOutOfOrder) {
				log.Debug("event gap, requesting sync", "seq", event.Seq)

				if err = that.RequestSync(ctx); err != nil {
					return err
				}
			} else if err != nil {
				log.Warn("failed to apply event", "seq", event.Seq, "error", err)
			}

		case message.Action == ActionSync:
			var payload Payload
			if err := json.Unmarshal(message.Payload, &payload); err != nil || payload.Match == nil {
				log.Warn("malformed sync", "error", err)
				continue
			}

			that.replica.Sync(payload.Match)

		default:
			log.Debug("unexpected action", "action", message.Action)
		}
	}
}

func (that *Client) Close() error {
	return that.current().Close(websocket.StatusNormalClosure, "")
}

func (that *Client) send(ctx context.Context, action string, payload any) error {
	var message Message
	if payload == nil {
		message = Message{Action: action}
	} else {
		var err error
		if message, err = newMessage(action, payload); err != nil {
			return err
		}
	}

	if err := wsjson.Write(ctx, that.current(), message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}
