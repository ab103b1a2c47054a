package mock

import (
	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
	"github.com/bryanwahyu/trustlayer/internal/domain/chamber"
)

type slot int

const (
	slotImageAuth slot = iota
	slotVideoDeepfake
	slotAudioAuth
	slotTextAI
	slotURLScanner
	slotModeration
	slotImpersonation
	slotCount
)

var slots = map[chamber.ID]slot{
	chamber.ImageAuth:     slotImageAuth,
	chamber.VideoDeepfake: slotVideoDeepfake,
	chamber.AudioAuth:     slotAudioAuth,
	chamber.TextAI:        slotTextAI,
	chamber.URLScanner:    slotURLScanner,
	chamber.Moderation:    slotModeration,
	chamber.Impersonation: slotImpersonation,
}

// Band is a half-open probability range [Min, Min+Span).
type Band struct {
	Min  int
	Span int
}

// Max returns the exclusive upper bound.
func (b Band) Max() int { return b.Min + b.Span }

type baseline struct {
	band        Band
	risk        analysis.Level
	confidence  analysis.Level
	artifacts   []string
	models      []string
	summary     string
	limitations string
}

var baselines = [slotCount]baseline{
	slotImageAuth: {
		band:        Band{Min: 10, Span: 40},
		confidence:  analysis.LevelHigh,
		artifacts:   []string{"Slight texture inconsistencies", "Normal lighting patterns"},
		models:      []string{"Real image", "Possible minor edits"},
		summary:     "Image shows characteristics consistent with authentic photography. Minor artifacts detected are within normal range for standard image processing.",
		limitations: "Analysis based on visual inspection only. Cannot verify original source or metadata.",
	},
	slotVideoDeepfake: {
		band:        Band{Min: 5, Span: 30},
		risk:        analysis.LevelLow,
		confidence:  analysis.LevelHigh,
		artifacts:   []string{"Temporal consistency normal", "Natural facial movements"},
		models:      []string{"Authentic video", "Standard recording"},
		summary:     "Video displays natural temporal consistency with no signs of deepfake manipulation. Facial movements and lighting appear authentic.",
		limitations: "Analysis limited to visual inspection. Cannot verify source or chain of custody.",
	},
	slotAudioAuth: {
		band:        Band{Min: 5, Span: 25},
		risk:        analysis.LevelLow,
		confidence:  analysis.LevelMedium,
		artifacts:   []string{"Natural prosody", "Consistent background noise"},
		models:      []string{"Authentic audio", "Natural speech patterns"},
		summary:     "Audio analysis indicates natural speech patterns with consistent breathing and prosody. No signs of TTS or voice cloning detected.",
		limitations: "Analysis based on spectrogram analysis. Cannot verify speaker identity without additional verification.",
	},
	slotTextAI: {
		band:        Band{Min: 15, Span: 50},
		confidence:  analysis.LevelMedium,
		artifacts:   []string{"Varied sentence structure", "Natural language patterns"},
		models:      []string{"Human-written", "Possible AI assistance"},
		summary:     "Text analysis shows natural language patterns with good variance in sentence structure. Some characteristics may indicate AI assistance but overall appears human-authored.",
		limitations: "Text analysis cannot definitively determine authorship. Results are probabilistic estimates.",
	},
	slotURLScanner: {
		band:        Band{Min: 5, Span: 20},
		risk:        analysis.LevelLow,
		confidence:  analysis.LevelHigh,
		artifacts:   []string{"Standard URL structure", "No typosquatting detected"},
		models:      []string{"Legitimate website", "Standard domain"},
		summary:     "URL structure appears legitimate with no obvious signs of phishing or typosquatting. Visual elements match expected brand patterns.",
		limitations: "Analysis based on URL structure and visual assessment only. Cannot verify SSL certificates or backend security.",
	},
	slotModeration: {
		band:        Band{Min: 5, Span: 30},
		risk:        analysis.LevelLow,
		confidence:  analysis.LevelHigh,
		artifacts:   []string{"No harmful content detected", "Standard content patterns"},
		models:      []string{"Safe content", "Policy compliant"},
		summary:     "Content moderation analysis indicates safe, policy-compliant material with no signs of harassment, hate speech, or harmful content.",
		limitations: "Moderation analysis is based on pattern detection. Context-dependent content may require human review.",
	},
	slotImpersonation: {
		band:        Band{Min: 10, Span: 35},
		risk:        analysis.LevelLow,
		confidence:  analysis.LevelMedium,
		artifacts:   []string{"Natural profile characteristics", "No synthetic indicators"},
		models:      []string{"Authentic profile", "Standard identity"},
		summary:     "Profile analysis shows natural characteristics with no obvious signs of synthetic generation or identity theft. Appears to be authentic.",
		limitations: "Analysis cannot verify true identity without additional verification methods. Results are based on visual and pattern analysis only.",
	},
}

func lookup(id chamber.ID) baseline {
	s, ok := slots[id]
	if !ok {
		s = slotImageAuth
	}
	return baselines[s]
}

// BandFor returns the probability band the mock uses for id.
func BandFor(id chamber.ID) Band {
	return lookup(id).band
}
