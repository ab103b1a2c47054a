// Package mock is the network-free synthesizer used for demos and tests.
package mock

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
	"github.com/bryanwahyu/trustlayer/internal/domain/chamber"
)

// DefaultLatency mimics the round trip of a hosted model.
const DefaultLatency = 1500 * time.Millisecond

type Synthesizer struct {
	mu      sync.Mutex
	rnd     *rand.Rand
	latency time.Duration
}

// New returns a mock synthesizer. A nil rnd gets a time-seeded source.
func New(rnd *rand.Rand, latency time.Duration) *Synthesizer {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if latency < 0 {
		latency = 0
	}
	return &Synthesizer{rnd: rnd, latency: latency}
}

func (s *Synthesizer) Analyze(ctx context.Context, upload analysis.Upload, contentType analysis.ContentType, id chamber.ID) (*analysis.Result, error) {
	if s.latency > 0 {
		t := time.NewTimer(s.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	base := lookup(id)

	s.mu.Lock()
	prob := base.band.Min + s.rnd.Intn(base.band.Span)
	s.mu.Unlock()

	risk := base.risk
	if risk == "" {
		risk = analysis.LevelLow
	}
	confidence := base.confidence
	if confidence == "" {
		confidence = analysis.LevelMedium
	}

	res := &analysis.Result{
		AIGeneratedProbability: prob,
		ContentType:            contentType,
		DeepfakeRisk:           risk,
		ArtifactsDetected:      append([]string(nil), base.artifacts...),
		ModelLikelihood:        append([]string(nil), base.models...),
		ConfidenceLevel:        confidence,
		AnalysisSummary:        base.summary,
		Limitations:            base.limitations,
	}
	res.Normalize()
	return res, nil
}
