package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Generator is the upstream surface the generate handler forwards into.
type Generator interface {
	Run(ctx context.Context, model string, input any) (json.RawMessage, error)
}

// App carries the handler dependencies. The forwarding endpoint is
// stateless; everything here is configuration fixed at startup.
type App struct {
	Generator       Generator
	Logger          zerolog.Logger
	UpstreamCeiling time.Duration
}

func NewApp(gen Generator, logger zerolog.Logger, upstreamCeiling time.Duration) *App {
	if upstreamCeiling <= 0 {
		upstreamCeiling = 300 * time.Second
	}
	return &App{Generator: gen, Logger: logger, UpstreamCeiling: upstreamCeiling}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]string{"error": message})
}
