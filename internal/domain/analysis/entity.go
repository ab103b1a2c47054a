package analysis

import "fmt"

// ContentType is the media bucket an upload is classified into.
type ContentType string

const (
	ContentImage ContentType = "image"
	ContentVideo ContentType = "video"
	ContentAudio ContentType = "audio"
	ContentText  ContentType = "text"
)

// Level enum shared by deepfake_risk and confidence_level.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Result is the canonical report produced for one upload.
// It is held in memory for a single display cycle and never persisted.
type Result struct {
	AIGeneratedProbability int         `json:"ai_generated_probability"`
	ContentType            ContentType `json:"content_type"`
	DeepfakeRisk           Level       `json:"deepfake_risk"`
	ArtifactsDetected      []string    `json:"artifacts_detected"`
	ModelLikelihood        []string    `json:"model_likelihood"`
	ConfidenceLevel        Level       `json:"confidence_level"`
	AnalysisSummary        string      `json:"analysis_summary"`
	Limitations            string      `json:"limitations"`
}

// Upload is one file handed to a chamber.
type Upload struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Size returns the payload length in bytes.
func (u Upload) Size() int { return len(u.Data) }

func (c ContentType) Valid() bool {
	switch c {
	case ContentImage, ContentVideo, ContentAudio, ContentText:
		return true
	}
	return false
}

func (l Level) Valid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh:
		return true
	}
	return false
}

// Validate checks the invariants every synthesizer output must satisfy.
func (r *Result) Validate() error {
	if r == nil {
		return fmt.Errorf("result is nil")
	}
	if r.AIGeneratedProbability < 0 || r.AIGeneratedProbability > 100 {
		return fmt.Errorf("ai_generated_probability out of range: %d", r.AIGeneratedProbability)
	}
	if !r.ContentType.Valid() {
		return fmt.Errorf("invalid content_type: %q", r.ContentType)
	}
	if !r.DeepfakeRisk.Valid() {
		return fmt.Errorf("invalid deepfake_risk: %q", r.DeepfakeRisk)
	}
	if !r.ConfidenceLevel.Valid() {
		return fmt.Errorf("invalid confidence_level: %q", r.ConfidenceLevel)
	}
	return nil
}

// Normalize replaces nil slices so the wire format always carries arrays.
func (r *Result) Normalize() {
	if r.ArtifactsDetected == nil {
		r.ArtifactsDetected = []string{}
	}
	if r.ModelLikelihood == nil {
		r.ModelLikelihood = []string{}
	}
}
