package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"imageforge/internal/generation"
)

type generateResponse struct {
	// Output is passed through verbatim so heterogeneous upstream shapes
	// (list, string, object) survive to the client unaltered.
	Output    json.RawMessage `json:"output"`
	ModelUsed string          `json:"modelUsed"`
}

// GenerateImage is the forwarding endpoint: validate and clamp the raw
// request, invoke the selected upstream model, and hand the result back. No
// caching, no queueing, no state.
func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req generation.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	norm, err := generation.Normalize(req)
	if err != nil {
		if errors.Is(err, generation.ErrPromptRequired) {
			a.error(w, http.StatusBadRequest, "A prompt is required to generate an image")
			return
		}
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}

	a.Logger.Info().
		Str("prompt", truncate(req.Prompt, 50)).
		Str("model", norm.Model).
		Int("width", norm.Width).
		Int("height", norm.Height).
		Int("steps", norm.Steps).
		Str("scheduler", norm.Scheduler).
		Msg("generating image")

	ctx, cancel := context.WithTimeout(r.Context(), a.UpstreamCeiling)
	defer cancel()

	output, err := a.Generator.Run(ctx, norm.Model, norm.Input)
	if err != nil {
		a.Logger.Error().Err(err).Str("model", norm.Model).Msg("image generation failed")
		a.error(w, http.StatusInternalServerError, err.Error())
		return
	}

	a.json(w, http.StatusOK, generateResponse{Output: output, ModelUsed: norm.Model})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
