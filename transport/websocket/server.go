package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/rocketscienceinc/tictactoe-match/internal/entity"
	"github.com/rocketscienceinc/tictactoe-match/internal/service"
)

const writeTimeout = 10 * time.Second

type matchHost interface {
	Join(ctx context.Context, playerID string) (*service.Session, error)
	Leave(session *service.Session)
	ApplyMove(ctx context.Context, playerID string, x, y int) (entity.Report, bool, error)
	Rematch(ctx context.Context, playerID string) (bool, error)
	Snapshot() *entity.Match
}

type handlerFunc func(ctx context.Context, peer *peer, message *Message) error

type Server struct {
	logger *slog.Logger
	host   matchHost

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, host matchHost) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		host:   host,

		handlers: make(map[string]handlerFunc),
	}

	server.handlers[ActionConnect] = server.handleConnect
	server.handlers[ActionMove] = server.handleMove
	server.handlers[ActionRematch] = server.handleRematch
	server.handlers[ActionSync] = server.handleSync

	return server
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", that)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// peer is one websocket connection. Writes from the handlers and from the event pump are serialized.
type peer struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	session *service.Session
}

func (that *peer) send(ctx context.Context, action string, payload any) error {
	message, err := newMessage(action, payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err = wsjson.Write(ctx, that.conn, message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// ServeHTTP upgrades the request and processes messages until the connection closes.
func (that *Server) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "ServeHTTP", "remote", req.RemoteAddr)

	conn, err := websocket.Accept(writer, req, nil)
	if err != nil {
		log.Error("failed to accept websocket", "error", err)
		return
	}
	defer conn.CloseNow()

	p := &peer{conn: conn}
	defer that.detach(p)

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()

	log.Info("WebSocket connection established")

	if err = that.handleMessages(ctx, p); err != nil {
		log.Error("error handling messages", "error", err)
		return
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

// handleMessages - processes messages from the client.
func (that *Server) handleMessages(ctx context.Context, p *peer) error {
	log := that.logger.With("method", "handleMessages")

	for {
		var message Message
		if err := wsjson.Read(ctx, p.conn, &message); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}

			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("failed to read message: %w", err)
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)

			if err := that.sendError(ctx, p, "unknown action"); err != nil {
				return err
			}

			continue
		}

		if err := handler(ctx, p, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// pump forwards the session's events to the peer. A stream closed by the host means the peer fell behind,
// the connection is closed so the client reconnects with a fresh snapshot.
func (that *Server) pump(ctx context.Context, p *peer, session *service.Session) {
	log := that.logger.With("method", "pump", "playerID", session.Player.ID)

	for event := range session.Events {
		if err := p.send(ctx, event.Kind, event); err != nil {
			log.Error("failed to send event", "seq", event.Seq, "error", err)
			p.conn.CloseNow()
			return
		}
	}

	if ctx.Err() == nil {
		log.Warn("event stream dropped, closing connection")
		p.conn.Close(websocket.StatusTryAgainLater, "event stream dropped")
	}
}

func (that *Server) detach(p *peer) {
	if p.session != nil {
		that.host.Leave(p.session)
	}
}

// sendError answers with an error frame. Errors never share an action with a request or an event.
func (that *Server) sendError(ctx context.Context, p *peer, errorMsg string) error {
	if err := p.send(ctx, ActionError, Payload{Error: errorMsg}); err != nil {
		return fmt.Errorf("failed to send error response: %w", err)
	}

	return nil
}
