package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-match/internal/config"
	"github.com/rocketscienceinc/tictactoe-match/internal/entity"
	"github.com/rocketscienceinc/tictactoe-match/internal/service"
	"github.com/rocketscienceinc/tictactoe-match/internal/view"
	"github.com/rocketscienceinc/tictactoe-match/transport/websocket"
)

// main - connects a terminal participant to the match server. Moves are read from stdin as "x y", "r" asks for a rematch.
func main() {
	conf := config.MustLoadClient()
	logger := initLogger(conf.LogLevel)

	if err := run(logger, conf); err != nil {
		logger.Error("replica stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, conf *config.Client) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	replica := service.NewReplica()
	screen := view.New(os.Stdout)

	render := func(entity.Event) {
		if err := screen.Render(replica.Snapshot(), replica.GetLocalPlayerAssignment()); err != nil {
			logger.Error("failed to render", "error", err)
		}
	}

	replica.On(service.EventSynced, render)
	replica.On(entity.EventGameWon, render)
	replica.On(entity.EventGameTied, render)
	replica.On(entity.EventTurnChanged, func(event entity.Event) {
		if event.Turn != entity.PlayerNone {
			render(event)
		}
	})

	client, err := websocket.Dial(ctx, logger, conf.ServerURL, replica)
	if err != nil {
		return err
	}
	defer client.Close()

	player, err := client.Connect(ctx, conf.PlayerID)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	fmt.Printf("player %s playing %s\n", player.ID, player.Mark)

	errCh := make(chan error, 1)
	go func() {
		errCh <- client.Run(ctx)
		cancel()
	}()

	go readCommands(ctx, logger, client)

	<-ctx.Done()

	select {
	case err = <-errCh:
		return err
	default:
		return nil
	}
}

func readCommands(ctx context.Context, logger *slog.Logger, client *websocket.Client) {
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())

		var err error

		switch {
		case len(fields) == 1 && fields[0] == "r":
			err = client.Rematch(ctx)
		case len(fields) == 2:
			x, xErr := strconv.Atoi(fields[0])
			y, yErr := strconv.Atoi(fields[1])
			if xErr != nil || yErr != nil {
				fmt.Println("usage: x y | r")
				continue
			}

			err = client.Move(ctx, x, y)
		default:
			fmt.Println("usage: x y | r")
			continue
		}

		if err != nil {
			logger.Error("failed to send command", "error", err)
			return
		}
	}
}

// initialize logger.
func initLogger(logLevel string) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelWarn
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
