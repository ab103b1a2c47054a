package rekognition

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domai "github.com/bryanwahyu/trustlayer/internal/domain/ai"
	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
	"github.com/bryanwahyu/trustlayer/internal/domain/chamber"
)

const DefaultRejectConfidence = 70.0

// Enricher wraps a synthesizer. For image uploads in the moderation chamber
// it raises risk to high when any label meets the reject confidence.
// Detector failures are logged and the wrapped result is returned as is.
type Enricher struct {
	next             domai.Synthesizer
	detector         Detector
	rejectConfidence float64
	log              *zap.Logger
}

func NewEnricher(next domai.Synthesizer, detector Detector, rejectConfidence float64, log *zap.Logger) *Enricher {
	if rejectConfidence <= 0 {
		rejectConfidence = DefaultRejectConfidence
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Enricher{next: next, detector: detector, rejectConfidence: rejectConfidence, log: log}
}

func (e *Enricher) Analyze(ctx context.Context, upload analysis.Upload, contentType analysis.ContentType, id chamber.ID) (*analysis.Result, error) {
	res, err := e.next.Analyze(ctx, upload, contentType, id)
	if err != nil || res == nil {
		return res, err
	}
	if id != chamber.Moderation || contentType != analysis.ContentImage {
		return res, nil
	}

	labels, err := e.detector.DetectModerationLabels(ctx, upload.Data)
	if err != nil {
		e.log.Warn("moderation labels unavailable", zap.String("file", upload.Name), zap.Error(err))
		return res, nil
	}

	flagged := 0
	for _, l := range labels {
		if l.Confidence < e.rejectConfidence {
			continue
		}
		flagged++
		res.ArtifactsDetected = append(res.ArtifactsDetected, describe(l))
	}
	if flagged > 0 {
		res.DeepfakeRisk = analysis.LevelHigh
		e.log.Info("moderation labels flagged upload",
			zap.String("file", upload.Name),
			zap.Int("labels", flagged))
	}
	return res, nil
}

func describe(l Label) string {
	if l.ParentName != "" {
		return fmt.Sprintf("Moderation label: %s (%s) %.1f%%", l.Name, l.ParentName, l.Confidence)
	}
	return fmt.Sprintf("Moderation label: %s %.1f%%", l.Name, l.Confidence)
}
