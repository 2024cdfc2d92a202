package generation

import (
	"context"
	"sync"
	"time"
)

// Rotating wait messages, surfaced one at a time while the upstream call is
// in flight. The later entries set expectations for slow generations.
var waitStatuses = []string{
	"Initializing AI model...",
	"Interpreting your prompt...",
	"Creating your image...",
	"This may take up to a minute...",
	"If a timeout occurs, try a simpler prompt or fewer steps",
	"Consider 512x512 resolution for faster generation",
}

const (
	progressInterval = 2 * time.Second
	statusInterval   = 7 * time.Second
	progressCeiling  = 90.0
)

// startFeedback runs the progress and status tickers until the returned stop
// function is called or ctx ends. Progress advances asymptotically toward
// progressCeiling and never reaches it here; Generate reports 100 itself.
func (o *Orchestrator) startFeedback(ctx context.Context) func() {
	if o.onProgress == nil && o.onStatus == nil {
		return func() {}
	}

	done := make(chan struct{})
	var once sync.Once
	stop := func() { once.Do(func() { close(done) }) }

	progress := 20.0
	if o.onProgress != nil {
		o.onProgress(progress)
	}

	go func() {
		progressTick := time.NewTicker(progressInterval)
		defer progressTick.Stop()
		statusTick := time.NewTicker(statusInterval)
		defer statusTick.Stop()

		statusIndex := 0

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-progressTick.C:
				if o.onProgress != nil {
					progress += (progressCeiling - progress) / 10
					o.onProgress(progress)
				}
			case <-statusTick.C:
				if o.onStatus != nil && statusIndex < len(waitStatuses) {
					o.onStatus(waitStatuses[statusIndex])
					statusIndex++
				}
			}
		}
	}()

	return stop
}
