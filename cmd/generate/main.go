package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"imageforge/internal/gallery"
	"imageforge/internal/generation"
	"imageforge/internal/infra"
	"imageforge/internal/storage"
)

func main() {
	var (
		promptFlag    string
		negativeFlag  string
		stepsFlag     int
		guidanceFlag  float64
		widthFlag     int
		heightFlag    int
		schedulerFlag string
		modelFlag     string
		endpointFlag  string
		dataDirFlag   string
		listFlag      bool
		pageFlag      int
		clearFlag     bool
	)

	flag.StringVar(&promptFlag, "prompt", "", "text prompt to generate an image from")
	flag.StringVar(&negativeFlag, "negative", "", "negative prompt")
	flag.IntVar(&stepsFlag, "steps", 50, "number of inference steps")
	flag.Float64Var(&guidanceFlag, "guidance", 7.5, "guidance scale")
	flag.IntVar(&widthFlag, "width", 512, "image width (512, 768 or 1024)")
	flag.IntVar(&heightFlag, "height", 512, "image height (512, 768 or 1024)")
	flag.StringVar(&schedulerFlag, "scheduler", generation.DefaultScheduler, "diffusion scheduler")
	flag.StringVar(&modelFlag, "model", generation.ModelIdeogram, "upstream model identifier")
	flag.StringVar(&endpointFlag, "api", "", "base URL of the forwarding API (fallbacks to IMAGEFORGE_API)")
	flag.StringVar(&dataDirFlag, "data", "", "gallery directory (fallbacks to IMAGEFORGE_DATA)")
	flag.BoolVar(&listFlag, "list", false, "list saved generations instead of generating")
	flag.IntVar(&pageFlag, "page", 1, "gallery page to show with -list")
	flag.BoolVar(&clearFlag, "clear", false, "clear all saved generations")
	flag.Parse()

	_ = godotenv.Load()
	logger := infra.NewLogger("cli").With().Str("cmd", "generate").Logger()

	dataDir := strings.TrimSpace(dataDirFlag)
	if dataDir == "" {
		dataDir = strings.TrimSpace(os.Getenv("IMAGEFORGE_DATA"))
	}
	if dataDir == "" {
		dataDir = defaultDataDir()
	}
	kv, err := storage.NewFileStore(dataDir)
	if err != nil {
		exitWithError(err)
	}
	store := gallery.NewStore(kv, gallery.DefaultKey, logger)

	switch {
	case clearFlag:
		if err := store.Clear(); err != nil {
			exitWithError(err)
		}
		fmt.Println("gallery cleared")
	case listFlag:
		listGallery(store, pageFlag)
	default:
		runGeneration(logger, store, generation.Request{
			Prompt:         strings.TrimSpace(promptFlag),
			NegativePrompt: strings.TrimSpace(negativeFlag),
			Steps:          stepsFlag,
			GuidanceScale:  guidanceFlag,
			Width:          widthFlag,
			Height:         heightFlag,
			Scheduler:      schedulerFlag,
			Model:          modelFlag,
		}, endpointFlag)
	}
}

func runGeneration(logger infra.Logger, store *gallery.Store, form generation.Request, endpoint string) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = strings.TrimSpace(os.Getenv("IMAGEFORGE_API"))
	}
	if endpoint == "" {
		endpoint = "http://localhost:8080"
	}
	endpoint = strings.TrimRight(endpoint, "/") + "/api/replicate/generate-image"

	orch := generation.NewOrchestrator(generation.Options{
		Endpoint: endpoint,
		Store:    store,
		Logger:   logger,
		OnProgress: func(p float64) {
			fmt.Printf("\rprogress: %3.0f%%", p)
		},
		OnStatus: func(msg string) {
			fmt.Printf("\r%s\n", msg)
		},
	})

	rec, err := orch.Generate(context.Background(), form)
	fmt.Println()
	if err != nil {
		var timeout *generation.TimeoutError
		if errors.As(err, &timeout) {
			exitWithError(timeout)
		}
		exitWithError(fmt.Errorf("generation failed: %w", err))
	}

	fmt.Printf("image generated with %s\n", rec.ModelVersion)
	fmt.Printf("url: %s\n", rec.URL)
	fmt.Printf("saved as %s (%dx%d, %d steps, %s)\n", rec.ID, rec.Width, rec.Height, rec.Steps, rec.Scheduler)
}

func listGallery(store *gallery.Store, page int) {
	if cleared, err := store.Reconcile(); err != nil {
		exitWithError(err)
	} else if cleared {
		fmt.Fprintln(os.Stderr, "gallery storage was corrupted and has been cleared")
	}

	records := store.List()
	if len(records) == 0 {
		fmt.Println("no images yet: generate some to fill the gallery")
		return
	}

	total := gallery.TotalPages(len(records))
	page = gallery.ClampPage(page, total)
	fmt.Printf("page %d/%d (%d images)\n", page, total, len(records))
	for _, rec := range gallery.Page(records, page) {
		fmt.Printf("%s  %s\n", formatCreatedAt(rec.CreatedAt), rec.ModelVersion)
		fmt.Printf("  prompt: %s\n", rec.Prompt)
		if rec.NegativePrompt != "" {
			fmt.Printf("  negative: %s\n", rec.NegativePrompt)
		}
		fmt.Printf("  %s\n", rec.URL)
	}
}

func formatCreatedAt(createdAt string) string {
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return createdAt
	}
	return ts.Local().Format("Jan 2, 2006 03:04 PM")
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".imageforge"
	}
	return filepath.Join(base, "imageforge")
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
