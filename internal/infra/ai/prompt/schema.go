package prompt

// Field names of the structured output. All are required.
const (
	FieldProbability = "ai_generated_probability"
	FieldContentType = "content_type"
	FieldRisk        = "deepfake_risk"
	FieldArtifacts   = "artifacts_detected"
	FieldModels      = "model_likelihood"
	FieldConfidence  = "confidence_level"
	FieldSummary     = "analysis_summary"
	FieldLimitations = "limitations"
)

// RequiredFields lists every field the model must return, in schema order.
var RequiredFields = []string{
	FieldProbability,
	FieldContentType,
	FieldRisk,
	FieldArtifacts,
	FieldModels,
	FieldConfidence,
	FieldSummary,
	FieldLimitations,
}

var (
	ContentTypeEnum = []string{"image", "video", "audio", "text"}
	LevelEnum       = []string{"low", "medium", "high"}
)

// SchemaName is used by providers that want a named schema.
const SchemaName = "analysis_result"
