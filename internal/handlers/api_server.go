// internal/handlers/api_server.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jason-s-yu/bingo/internal/game"
	"github.com/jason-s-yu/bingo/internal/middleware"
	"github.com/jason-s-yu/bingo/internal/models"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the HTTP API and the hall WebSocket onto one handler.
func NewRouter(logger *logrus.Logger, hall *game.Hall, opts GatewayOptions) http.Handler {
	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(logger)

	mux.HandleFunc("GET /healthz", HealthHandler)
	mux.Handle("GET /hall/state", logged(HallStateHandler(hall)))
	mux.Handle("GET /cards/{id}", logged(CardHandler(hall.Deck())))

	// hall websocket
	mux.Handle("/hall/ws", HallWSHandler(logger, hall, opts))

	return cors.New(cors.Options{
		AllowedOrigins:   originsForCORS(opts.OriginPatterns),
		AllowedMethods:   []string{http.MethodGet},
		AllowCredentials: true,
	}).Handler(mux)
}

// HealthHandler reports liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HallStateHandler returns a snapshot of the current round.
func HallStateHandler(hall *game.Hall) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		st, err := hall.State(ctx)
		if errors.Is(err, game.ErrHallClosed) {
			writeError(w, http.StatusServiceUnavailable, "hall closed")
			return
		}
		if err != nil {
			writeError(w, http.StatusGatewayTimeout, "hall busy")
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// CardHandler serves the layout of one card so clients can render it.
func CardHandler(deck *game.Deck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "card id must be a number")
			return
		}
		card, ok := deck.Card(id)
		if !ok {
			writeError(w, http.StatusNotFound, "card not found")
			return
		}
		writeJSON(w, http.StatusOK, cardResponse(card))
	}
}

type cardView struct {
	ID      int                                   `json:"id"`
	Grid    [models.CardSize][models.CardSize]int `json:"grid"`
	Columns [models.CardSize]string               `json:"columns"`
}

func cardResponse(card models.Card) cardView {
	return cardView{
		ID:      card.ID,
		Grid:    card.Grid,
		Columns: [models.CardSize]string{"B", "I", "N", "G", "O"},
	}
}

// originsForCORS maps websocket origin patterns onto rs/cors origins.
func originsForCORS(patterns []string) []string {
	if len(patterns) == 0 {
		return []string{"*"}
	}
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p == "*" {
			return []string{"*"}
		}
		out = append(out, "https://"+p, "http://"+p)
	}
	return out
}
