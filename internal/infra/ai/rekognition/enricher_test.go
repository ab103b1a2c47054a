package rekognition

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
	"github.com/bryanwahyu/trustlayer/internal/domain/chamber"
)

type fakeDetector struct {
	labels []Label
	err    error
	calls  int
}

func (f *fakeDetector) DetectModerationLabels(ctx context.Context, imageBytes []byte) ([]Label, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.labels, nil
}

type stubSynth struct{ err error }

func (s stubSynth) Analyze(ctx context.Context, upload analysis.Upload, ct analysis.ContentType, id chamber.ID) (*analysis.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &analysis.Result{
		AIGeneratedProbability: 20,
		ContentType:            ct,
		DeepfakeRisk:           analysis.LevelLow,
		ArtifactsDetected:      []string{"base"},
		ModelLikelihood:        []string{},
		ConfidenceLevel:        analysis.LevelHigh,
	}, nil
}

func TestEnricher(t *testing.T) {
	tests := []struct {
		name          string
		id            chamber.ID
		contentType   analysis.ContentType
		labels        []Label
		detectErr     error
		wantRisk      analysis.Level
		wantArtifacts int
		wantCalls     int
	}{
		{
			name:          "flags labels over threshold",
			id:            chamber.Moderation,
			contentType:   analysis.ContentImage,
			labels:        []Label{{Name: "Violence", Confidence: 88}, {Name: "Suggestive", Confidence: 40}},
			wantRisk:      analysis.LevelHigh,
			wantArtifacts: 2,
			wantCalls:     1,
		},
		{
			name:          "below threshold keeps base",
			id:            chamber.Moderation,
			contentType:   analysis.ContentImage,
			labels:        []Label{{Name: "Suggestive", Confidence: 40}},
			wantRisk:      analysis.LevelLow,
			wantArtifacts: 1,
			wantCalls:     1,
		},
		{
			name:          "detector failure degrades",
			id:            chamber.Moderation,
			contentType:   analysis.ContentImage,
			detectErr:     errors.New("throttled"),
			wantRisk:      analysis.LevelLow,
			wantArtifacts: 1,
			wantCalls:     1,
		},
		{
			name:          "other chambers skip detector",
			id:            chamber.ImageAuth,
			contentType:   analysis.ContentImage,
			labels:        []Label{{Name: "Violence", Confidence: 99}},
			wantRisk:      analysis.LevelLow,
			wantArtifacts: 1,
		},
		{
			name:          "non image skips detector",
			id:            chamber.Moderation,
			contentType:   analysis.ContentText,
			labels:        []Label{{Name: "Violence", Confidence: 99}},
			wantRisk:      analysis.LevelLow,
			wantArtifacts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := &fakeDetector{labels: tt.labels, err: tt.detectErr}
			e := NewEnricher(stubSynth{}, det, 0, nil)

			res, err := e.Analyze(context.Background(), analysis.Upload{Data: []byte{1}}, tt.contentType, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRisk, res.DeepfakeRisk)
			assert.Len(t, res.ArtifactsDetected, tt.wantArtifacts)
			assert.Equal(t, tt.wantCalls, det.calls)
		})
	}
}

func TestEnricher_PassesThroughErrors(t *testing.T) {
	boom := errors.New("boom")
	det := &fakeDetector{}
	e := NewEnricher(stubSynth{err: boom}, det, 0, nil)
	_, err := e.Analyze(context.Background(), analysis.Upload{}, analysis.ContentImage, chamber.Moderation)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, det.calls)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Moderation label: Knife (Weapons) 91.0%", describe(Label{Name: "Knife", ParentName: "Weapons", Confidence: 91}))
	assert.Equal(t, "Moderation label: Gore 75.5%", describe(Label{Name: "Gore", Confidence: 75.5}))
}
