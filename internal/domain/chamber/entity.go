package chamber

import "github.com/bryanwahyu/trustlayer/internal/domain/analysis"

// ID identifies an analysis chamber.
type ID string

const (
	ImageAuth     ID = "image_auth"
	VideoDeepfake ID = "video_deepfake"
	AudioAuth     ID = "audio_auth"
	TextAI        ID = "text_ai"
	URLScanner    ID = "url_scanner"
	Moderation    ID = "moderation"
	Impersonation ID = "impersonation"
	ContextNews   ID = "context_news"
	Emergency     ID = "emergency"
)

// Flow tells the caller which workflow a chamber is served by.
type Flow string

const (
	FlowUpload    Flow = "upload"
	FlowClaim     Flow = "claim"
	FlowEmergency Flow = "emergency"
)

// Chamber is static configuration; values are never mutated after the registry is built.
type Chamber struct {
	ID             ID                     `json:"id"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	Badge          string                 `json:"badge"`
	Flow           Flow                   `json:"flow"`
	SupportedTypes []analysis.ContentType `json:"supported_types,omitempty"`
	Instruction    string                 `json:"-"`
}

// UsesUpload reports whether the chamber goes through the upload analysis workflow.
func (c Chamber) UsesUpload() bool { return c.Flow == FlowUpload }
