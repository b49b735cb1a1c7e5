package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-match/internal/config"
	"github.com/rocketscienceinc/tictactoe-match/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-match/internal/repository"
	"github.com/rocketscienceinc/tictactoe-match/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-match/internal/service"
	"github.com/rocketscienceinc/tictactoe-match/transport/rest"
	"github.com/rocketscienceinc/tictactoe-match/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis host is empty")

// RunApp - runs the match host.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	if conf.Redis.Host == "" {
		return ErrAddrNotFound
	}

	redisAddrString := conf.Redis.GetRedisAddr()

	redisStorage, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	matchID := conf.Match.ID
	if matchID == "" {
		matchID = pkg.GenerateMatchID()
	}

	matchRepo := repository.NewMatchRepository(redisStorage, conf.Match.EventLogSize)
	broadcaster := service.NewBroadcaster(logger, conf.Match.SubscriberBuffer)

	restore := service.RestoreHost
	if conf.Match.Reset {
		log.Info("Dropping stored match", "matchID", matchID)
		restore = service.ResetHost
	}

	host, err := restore(ctx, logger, matchRepo, broadcaster, matchID)
	if err != nil {
		return fmt.Errorf("could not restore match: %w", err)
	}

	log.Info("Hosting match", "matchID", matchID, "status", host.Snapshot().Status)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(ctx, logger, conf.HTTPPort, rest.NewMatchHandler(logger, host)); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, host)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
