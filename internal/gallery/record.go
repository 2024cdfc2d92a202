package gallery

import "strings"

// Record describes one successful generation. Records are immutable once
// written: they leave the store only through Clear or by failing the URL
// invariant on read.
type Record struct {
	ID             string  `json:"id"`
	URL            string  `json:"url"`
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negativePrompt,omitempty"`
	ModelVersion   string  `json:"modelVersion"`
	CreatedAt      string  `json:"createdAt"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	GuidanceScale  float64 `json:"guidanceScale"`
	Scheduler      string  `json:"scheduler"`
}

// Valid reports whether the record satisfies the persistence invariant: an
// absolute http(s) URL. Both the write path and every read path check this
// independently so a tampered store cannot push bad entries into callers.
func (r Record) Valid() bool {
	return strings.HasPrefix(r.URL, "http://") || strings.HasPrefix(r.URL, "https://")
}
