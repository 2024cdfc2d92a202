package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"imageforge/internal/generation"
)

type stubGenerator struct {
	calls  int
	model  string
	input  any
	output json.RawMessage
	err    error
}

func (s *stubGenerator) Run(ctx context.Context, model string, input any) (json.RawMessage, error) {
	s.calls++
	s.model = model
	s.input = input
	return s.output, s.err
}

func newTestApp(gen *stubGenerator) *App {
	return NewApp(gen, zerolog.Nop(), time.Second)
}

func postGenerate(t *testing.T, app *App, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/replicate/generate-image", strings.NewReader(body))
	rr := httptest.NewRecorder()
	app.GenerateImage(rr, req)
	return rr
}

func TestGenerateImageRequiresPrompt(t *testing.T) {
	gen := &stubGenerator{}
	rr := postGenerate(t, newTestApp(gen), `{"width":512}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != "A prompt is required to generate an image" {
		t.Fatalf("unexpected error message: %q", resp["error"])
	}
	if gen.calls != 0 {
		t.Fatalf("upstream must not be called without a prompt, got %d calls", gen.calls)
	}
}

func TestGenerateImageRejectsMalformedBody(t *testing.T) {
	gen := &stubGenerator{}
	rr := postGenerate(t, newTestApp(gen), `{not json`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if gen.calls != 0 {
		t.Fatalf("upstream must not be called, got %d calls", gen.calls)
	}
}

func TestGenerateImageClampsAndSelectsIdeogram(t *testing.T) {
	gen := &stubGenerator{output: json.RawMessage(`["https://x/y.png"]`)}
	body := `{"prompt":"a red cube","width":999,"height":999,"scheduler":"bogus","model":"unknown/model"}`
	rr := postGenerate(t, newTestApp(gen), body)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rr.Code, rr.Body.String())
	}
	if gen.model != generation.ModelIdeogram {
		t.Fatalf("unexpected model: %s", gen.model)
	}
	input, ok := gen.input.(generation.IdeogramInput)
	if !ok {
		t.Fatalf("unexpected input type: %T", gen.input)
	}
	if input.ImageDimensions != "512x512" {
		t.Fatalf("unexpected dimensions: %s", input.ImageDimensions)
	}
	if input.NumOutputs != 1 {
		t.Fatalf("unexpected num_outputs: %d", input.NumOutputs)
	}
	if input.Scheduler != generation.DefaultScheduler {
		t.Fatalf("unexpected scheduler: %s", input.Scheduler)
	}
}

func TestGenerateImageSelectsImagen(t *testing.T) {
	gen := &stubGenerator{output: json.RawMessage(`["https://x/y.png"]`)}
	body := `{"prompt":"a blue sphere","width":768,"height":1024,"model":"google/imagen-3"}`
	rr := postGenerate(t, newTestApp(gen), body)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if gen.model != generation.ModelImagen {
		t.Fatalf("unexpected model: %s", gen.model)
	}
	input, ok := gen.input.(generation.ImagenInput)
	if !ok {
		t.Fatalf("unexpected input type: %T", gen.input)
	}
	if input.Width != 768 || input.Height != 1024 {
		t.Fatalf("unexpected dimensions: %dx%d", input.Width, input.Height)
	}
}

func TestGenerateImagePassesOutputThrough(t *testing.T) {
	gen := &stubGenerator{output: json.RawMessage(`{"generated_image":"https://x/y.png"}`)}
	rr := postGenerate(t, newTestApp(gen), `{"prompt":"p"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var resp struct {
		Output    json.RawMessage `json:"output"`
		ModelUsed string          `json:"modelUsed"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if string(resp.Output) != `{"generated_image":"https://x/y.png"}` {
		t.Fatalf("output was not passed through verbatim: %s", resp.Output)
	}
	if resp.ModelUsed != generation.ModelIdeogram {
		t.Fatalf("unexpected modelUsed: %s", resp.ModelUsed)
	}
}

func TestGenerateImageSurfacesUpstreamFailure(t *testing.T) {
	gen := &stubGenerator{err: context.DeadlineExceeded}
	rr := postGenerate(t, newTestApp(gen), `{"prompt":"p"}`)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] == "" {
		t.Fatalf("expected error message in response")
	}
}
