package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"imageforge/internal/gallery"
)

// DefaultTimeout bounds one generation attempt client-side. It sits under
// the forwarding endpoint's own ceiling so the caller sees a clean
// cancellation instead of an upstream hard cutoff.
const DefaultTimeout = 55 * time.Second

// Store is the gallery surface the orchestrator writes to.
type Store interface {
	Append(gallery.Record) error
}

// Options configures an Orchestrator. Endpoint and Store are required.
type Options struct {
	// Endpoint is the full URL of the forwarding endpoint.
	Endpoint   string
	Store      Store
	HTTPClient *http.Client
	Logger     zerolog.Logger
	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration
	// OnProgress receives smoothed progress in [0,100]. The value creeps
	// toward 90 while waiting and only reaches 100 on completion; it is
	// user feedback, not a measurement.
	OnProgress func(float64)
	// OnStatus receives rotating wait messages.
	OnStatus func(string)

	// NewID and Now exist for tests.
	NewID func() string
	Now   func() time.Time
}

// Orchestrator drives one generation attempt end-to-end: post the raw form
// values to the forwarding endpoint, interpret the response into an image
// URL, build a record, and persist it. One attempt, no retry; every failure
// is terminal until the user resubmits.
type Orchestrator struct {
	endpoint   string
	store      Store
	httpClient *http.Client
	logger     zerolog.Logger
	timeout    time.Duration
	onProgress func(float64)
	onStatus   func(string)
	newID      func() string
	now        func() time.Time
}

func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{
		endpoint:   opts.Endpoint,
		store:      opts.Store,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		timeout:    opts.Timeout,
		onProgress: opts.OnProgress,
		onStatus:   opts.OnStatus,
		newID:      opts.NewID,
		now:        opts.Now,
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

type generateResponse struct {
	Output    json.RawMessage `json:"output"`
	ModelUsed string          `json:"modelUsed"`
	Error     string          `json:"error"`
}

// Generate runs a single generation attempt and returns the persisted
// record. A missing prompt fails before any network traffic. The raw form
// values go over the wire unclamped; the forwarding endpoint re-validates.
func (o *Orchestrator) Generate(ctx context.Context, form Request) (gallery.Record, error) {
	norm, err := Normalize(form)
	if err != nil {
		return gallery.Record{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	stop := o.startFeedback(ctx)
	defer stop()

	body, err := json.Marshal(form)
	if err != nil {
		return gallery.Record{}, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return gallery.Record{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return gallery.Record{}, &TimeoutError{After: o.timeout}
		}
		return gallery.Record{}, fmt.Errorf("call forwarding endpoint: %w", err)
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return gallery.Record{}, &UpstreamError{StatusCode: resp.StatusCode}
		}
		return gallery.Record{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return gallery.Record{}, &UpstreamError{StatusCode: resp.StatusCode, Message: out.Error}
	}

	url, err := ImageURL(out.Output)
	if err != nil {
		return gallery.Record{}, err
	}

	// Record what was actually served, which may legitimately differ from
	// what was requested.
	modelVersion := out.ModelUsed
	if modelVersion == "" {
		modelVersion = norm.Model
	}

	rec := gallery.Record{
		ID:             o.newID(),
		URL:            url,
		Prompt:         form.Prompt,
		NegativePrompt: form.NegativePrompt,
		ModelVersion:   modelVersion,
		CreatedAt:      o.now().UTC().Format(time.RFC3339),
		Width:          norm.Width,
		Height:         norm.Height,
		Steps:          norm.Steps,
		GuidanceScale:  norm.GuidanceScale,
		Scheduler:      norm.Scheduler,
	}
	if err := o.store.Append(rec); err != nil {
		return gallery.Record{}, fmt.Errorf("save record: %w", err)
	}

	if o.onProgress != nil {
		o.onProgress(100)
	}
	o.logger.Debug().
		Str("record_id", rec.ID).
		Str("model_requested", norm.Model).
		Str("model_used", modelVersion).
		Msg("generation persisted")
	return rec, nil
}
