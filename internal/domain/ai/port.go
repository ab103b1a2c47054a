package ai

import (
	"context"

	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
	"github.com/bryanwahyu/trustlayer/internal/domain/chamber"
)

// Synthesizer turns one upload into an analysis result for a chamber.
// Implementations make a single attempt and never retry.
type Synthesizer interface {
	Analyze(ctx context.Context, upload analysis.Upload, contentType analysis.ContentType, id chamber.ID) (*analysis.Result, error)
}
