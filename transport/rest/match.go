package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rocketscienceinc/tictactoe-match/internal/entity"
)

type matchReader interface {
	Snapshot() *entity.Match
	EventsAfter(ctx context.Context, seq uint64) ([]entity.Event, error)
}

// MatchHandler serves read-only views of the hosted match.
type MatchHandler struct {
	logger *slog.Logger
	host   matchReader
}

func NewMatchHandler(logger *slog.Logger, host matchReader) *MatchHandler {
	return &MatchHandler{
		logger: logger.With("component", "rest"),
		host:   host,
	}
}

func (that *MatchHandler) GetMatch(w http.ResponseWriter, _ *http.Request) {
	that.writeJSON(w, that.host.Snapshot())
}

// GetEvents returns the logged events with a sequence number above the "after" query parameter.
func (that *MatchHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "GetEvents")

	var after uint64
	if raw := r.URL.Query().Get("after"); raw != "" {
		var err error
		if after, err = strconv.ParseUint(raw, 10, 64); err != nil {
			http.Error(w, "Invalid after parameter", http.StatusBadRequest)
			return
		}
	}

	events, err := that.host.EventsAfter(r.Context(), after)
	if err != nil {
		log.Error("failed to read events", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if events == nil {
		events = []entity.Event{}
	}

	that.writeJSON(w, events)
}

func (that *MatchHandler) writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}
