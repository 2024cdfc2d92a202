package generation

import "fmt"

// Upstream model identifiers served through the forwarding endpoint. Any
// request naming something else is routed to Ideogram, matching the
// endpoint's historical behavior: the fallback is silent, not an error.
const (
	ModelIdeogram = "ideogram-ai/ideogram-v2-turbo"
	ModelImagen   = "google/imagen-3"
)

const (
	DefaultScheduler = "DPMSolverMultistep"

	defaultSteps         = 50
	defaultGuidanceScale = 7.5
	fallbackDimension    = 512
)

var validDimensions = map[int]struct{}{
	512:  {},
	768:  {},
	1024: {},
}

var validSchedulers = map[string]struct{}{
	"DPMSolverMultistep": {},
	"DDIM":               {},
	"K_EULER":            {},
	"K_EULER_ANCESTRAL":  {},
	"PNDM":               {},
}

// Request carries the raw, pre-normalization form values exactly as they
// travel to the forwarding endpoint.
type Request struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Steps          int     `json:"num_inference_steps"`
	GuidanceScale  float64 `json:"guidance_scale"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Scheduler      string  `json:"scheduler"`
	Model          string  `json:"model"`
}

// ImagenInput is the parameter shape the Imagen model accepts.
type ImagenInput struct {
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
}

// IdeogramInput is the parameter shape the Ideogram model accepts. Dimensions
// collapse into a single "{width}x{height}" string and output count is fixed
// at one.
type IdeogramInput struct {
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt"`
	ImageDimensions   string  `json:"image_dimensions"`
	NumOutputs        int     `json:"num_outputs"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	Scheduler         string  `json:"scheduler"`
}

// Normalized is a validated, clamped request payload safe to forward
// upstream, along with the effective parameter values it was built from.
type Normalized struct {
	Model string
	// Input is either an ImagenInput or an IdeogramInput, depending on Model.
	Input any

	Width         int
	Height        int
	Steps         int
	GuidanceScale float64
	Scheduler     string
}

// Normalize validates and clamps raw form values into the model-specific
// upstream payload. A missing prompt is the only hard failure; every other
// out-of-domain value is silently replaced with its fallback.
func Normalize(raw Request) (Normalized, error) {
	if raw.Prompt == "" {
		return Normalized{}, ErrPromptRequired
	}

	norm := Normalized{
		Width:         clampDimension(raw.Width),
		Height:        clampDimension(raw.Height),
		Steps:         raw.Steps,
		GuidanceScale: raw.GuidanceScale,
		Scheduler:     clampScheduler(raw.Scheduler),
	}
	if norm.Steps <= 0 {
		norm.Steps = defaultSteps
	}
	if norm.GuidanceScale <= 0 {
		norm.GuidanceScale = defaultGuidanceScale
	}

	if raw.Model == ModelImagen {
		norm.Model = ModelImagen
		norm.Input = ImagenInput{
			Prompt:            raw.Prompt,
			NegativePrompt:    raw.NegativePrompt,
			Width:             norm.Width,
			Height:            norm.Height,
			NumInferenceSteps: norm.Steps,
			GuidanceScale:     norm.GuidanceScale,
		}
		return norm, nil
	}

	norm.Model = ModelIdeogram
	norm.Input = IdeogramInput{
		Prompt:            raw.Prompt,
		NegativePrompt:    raw.NegativePrompt,
		ImageDimensions:   fmt.Sprintf("%dx%d", norm.Width, norm.Height),
		NumOutputs:        1,
		NumInferenceSteps: norm.Steps,
		GuidanceScale:     norm.GuidanceScale,
		Scheduler:         norm.Scheduler,
	}
	return norm, nil
}

func clampDimension(v int) int {
	if _, ok := validDimensions[v]; ok {
		return v
	}
	return fallbackDimension
}

func clampScheduler(v string) string {
	if _, ok := validSchedulers[v]; ok {
		return v
	}
	return DefaultScheduler
}
