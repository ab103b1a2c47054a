package chamber

import "github.com/bryanwahyu/trustlayer/internal/domain/analysis"

// DefaultID is what unknown identifiers resolve to in Lookup.
const DefaultID = ImageAuth

// Registry is a read-only table of chambers built once at startup.
type Registry struct {
	order []ID
	byID  map[ID]Chamber
}

// NewRegistry returns the built-in chamber set in display order.
func NewRegistry() *Registry {
	all := []Chamber{
		{
			ID:             ImageAuth,
			Title:          "Image Authenticity",
			Description:    "Detects GAN/Diffusion artifacts in photos & docs.",
			Badge:          "FORENSIC",
			Flow:           FlowUpload,
			SupportedTypes: []analysis.ContentType{analysis.ContentImage},
			Instruction:    imageAuthInstruction,
		},
		{
			ID:             VideoDeepfake,
			Title:          "Video & Deepfake",
			Description:    "Analyzes facial geometry & temporal consistency.",
			Badge:          "TEMPORAL",
			Flow:           FlowUpload,
			SupportedTypes: []analysis.ContentType{analysis.ContentVideo, analysis.ContentImage},
			Instruction:    videoDeepfakeInstruction,
		},
		{
			ID:             AudioAuth,
			Title:          "Audio Forensics",
			Description:    "Detects voice cloning and TTS synthesis.",
			Badge:          "WAVEFORM",
			Flow:           FlowUpload,
			SupportedTypes: []analysis.ContentType{analysis.ContentAudio},
			Instruction:    audioAuthInstruction,
		},
		{
			ID:             TextAI,
			Title:          "AI Text Provenance",
			Description:    "Identifies LLM patterns (ChatGPT, Claude).",
			Badge:          "LINGUISTIC",
			Flow:           FlowUpload,
			SupportedTypes: []analysis.ContentType{analysis.ContentText},
			Instruction:    textAIInstruction,
		},
		{
			ID:             URLScanner,
			Title:          "Phishing Scanner",
			Description:    "Visual analysis of malicious websites.",
			Badge:          "WEB SEC",
			Flow:           FlowUpload,
			SupportedTypes: []analysis.ContentType{analysis.ContentImage, analysis.ContentText},
			Instruction:    urlScannerInstruction,
		},
		{
			ID:             Moderation,
			Title:          "Content Safety",
			Description:    "Flags harassment, violence, & non-consensual media.",
			Badge:          "SAFETY",
			Flow:           FlowUpload,
			SupportedTypes: []analysis.ContentType{analysis.ContentImage, analysis.ContentVideo, analysis.ContentText},
			Instruction:    moderationInstruction,
		},
		{
			ID:             Impersonation,
			Title:          "Impersonation Check",
			Description:    "Identifies fake identities & social engineering.",
			Badge:          "FRAUD",
			Flow:           FlowUpload,
			SupportedTypes: []analysis.ContentType{analysis.ContentImage, analysis.ContentText},
			Instruction:    impersonationInstruction,
		},
		{
			ID:          ContextNews,
			Title:       "News Verification",
			Description: "Cross-references claims with global knowledge.",
			Badge:       "CONTEXT",
			Flow:        FlowClaim,
		},
		{
			ID:          Emergency,
			Title:       "Emergency Mode",
			Description: "Immediate personal safety & location support.",
			Badge:       "SOS",
			Flow:        FlowEmergency,
		},
	}

	r := &Registry{
		order: make([]ID, 0, len(all)),
		byID:  make(map[ID]Chamber, len(all)),
	}
	for _, c := range all {
		r.order = append(r.order, c.ID)
		r.byID[c.ID] = c
	}
	return r
}

// Get returns the chamber for id and whether it exists.
func (r *Registry) Get(id ID) (Chamber, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Lookup never fails: unknown ids resolve to the image_auth chamber.
func (r *Registry) Lookup(id ID) Chamber {
	if c, ok := r.byID[id]; ok {
		return c
	}
	return r.byID[DefaultID]
}

// Instruction returns the model instruction for id, falling back like Lookup.
func (r *Registry) Instruction(id ID) string {
	return r.Lookup(id).Instruction
}

// List returns all chambers in display order.
func (r *Registry) List() []Chamber {
	out := make([]Chamber, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// UploadChambers returns the chambers served by the upload workflow.
func (r *Registry) UploadChambers() []ID {
	var out []ID
	for _, id := range r.order {
		if r.byID[id].UsesUpload() {
			out = append(out, id)
		}
	}
	return out
}
