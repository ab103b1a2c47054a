package ai

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	domai "github.com/bryanwahyu/trustlayer/internal/domain/ai"
	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
	"github.com/bryanwahyu/trustlayer/internal/domain/chamber"
	"github.com/bryanwahyu/trustlayer/internal/infra/ai/mock"
)

type funcSynth func(ctx context.Context, u analysis.Upload, ct analysis.ContentType, id chamber.ID) (*analysis.Result, error)

func (f funcSynth) Analyze(ctx context.Context, u analysis.Upload, ct analysis.ContentType, id chamber.ID) (*analysis.Result, error) {
	return f(ctx, u, ct, id)
}

type countingObserver struct {
	mu       sync.Mutex
	started  int
	failures int
}

func (c *countingObserver) AnalysisStarted() { c.mu.Lock(); c.started++; c.mu.Unlock() }
func (c *countingObserver) AnalysisFinished(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.failures++
	}
}

func TestAnalyze_TextWithMock(t *testing.T) {
	svc := NewService(mock.New(nil, 0), nil)
	upload := analysis.Upload{Name: "essay.txt", MIMEType: "text/plain", Data: make([]byte, 2048)}

	res, err := svc.Analyze(context.Background(), upload, chamber.TextAI)
	require.NoError(t, err)
	assert.Equal(t, analysis.ContentText, res.ContentType)
	assert.Equal(t, analysis.LevelMedium, res.ConfidenceLevel)
	assert.True(t, res.AIGeneratedProbability >= 15 && res.AIGeneratedProbability < 65)
}

func TestAnalyze_ValidationErrorSkipsSynthesizer(t *testing.T) {
	called := false
	svc := NewService(funcSynth(func(context.Context, analysis.Upload, analysis.ContentType, chamber.ID) (*analysis.Result, error) {
		called = true
		return nil, nil
	}), nil)

	_, err := svc.Analyze(context.Background(), analysis.Upload{Name: "a.zip", MIMEType: "application/zip"}, chamber.ImageAuth)
	var verr *analysis.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Please upload an Image, Video, Audio, or Text file.", verr.Message)
	assert.False(t, called)
}

func TestAnalyze_FailuresBecomeGeneric(t *testing.T) {
	tests := []struct {
		name  string
		synth funcSynth
		cause error
	}{
		{
			name: "provider error",
			synth: func(context.Context, analysis.Upload, analysis.ContentType, chamber.ID) (*analysis.Result, error) {
				return nil, errors.New("upstream 500: secret detail")
			},
		},
		{
			name: "empty response",
			synth: func(context.Context, analysis.Upload, analysis.ContentType, chamber.ID) (*analysis.Result, error) {
				return nil, domai.ErrEmptyResponse
			},
			cause: domai.ErrEmptyResponse,
		},
		{
			name: "nil result",
			synth: func(context.Context, analysis.Upload, analysis.ContentType, chamber.ID) (*analysis.Result, error) {
				return nil, nil
			},
			cause: domai.ErrEmptyResponse,
		},
		{
			name: "out of range result",
			synth: func(context.Context, analysis.Upload, analysis.ContentType, chamber.ID) (*analysis.Result, error) {
				return &analysis.Result{AIGeneratedProbability: 140, DeepfakeRisk: analysis.LevelLow, ConfidenceLevel: analysis.LevelLow, ContentType: analysis.ContentImage}, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.InfoLevel)
			obs := &countingObserver{}
			svc := NewService(tt.synth, nil, WithLogger(zap.New(core)), WithObserver(obs))

			_, err := svc.Analyze(context.Background(), analysis.Upload{MIMEType: "image/png"}, chamber.ImageAuth)
			var failure *analysis.AnalysisFailure
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, analysis.FailureMessage, err.Error())
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
			assert.Equal(t, 1, logs.FilterMessage("analysis failed").Len())
			assert.Equal(t, 1, obs.started)
			assert.Equal(t, 1, obs.failures)
		})
	}
}

func TestAnalyze_Timeout(t *testing.T) {
	svc := NewService(mock.New(nil, time.Hour), nil, WithTimeout(10*time.Millisecond))
	_, err := svc.Analyze(context.Background(), analysis.Upload{MIMEType: "image/jpeg"}, chamber.ImageAuth)
	var failure *analysis.AnalysisFailure
	require.ErrorAs(t, err, &failure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnalyze_UnknownChamberFallsBack(t *testing.T) {
	var got chamber.ID
	svc := NewService(funcSynth(func(ctx context.Context, u analysis.Upload, ct analysis.ContentType, id chamber.ID) (*analysis.Result, error) {
		got = id
		return mock.New(nil, 0).Analyze(ctx, u, ct, id)
	}), nil)

	_, err := svc.Analyze(context.Background(), analysis.Upload{MIMEType: "image/png"}, "does_not_exist")
	require.NoError(t, err)
	assert.Equal(t, chamber.ImageAuth, got)
}

func TestAnalyze_QuotaLoggedAsWarning(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	svc := NewService(funcSynth(func(context.Context, analysis.Upload, analysis.ContentType, chamber.ID) (*analysis.Result, error) {
		return nil, domai.ErrQuotaExceeded
	}), nil, WithLogger(zap.New(core)))

	_, err := svc.Analyze(context.Background(), analysis.Upload{MIMEType: "image/png"}, chamber.ImageAuth)
	assert.ErrorIs(t, err, domai.ErrQuotaExceeded)
	assert.Equal(t, 1, logs.FilterMessage("analysis provider quota exceeded").Len())
}
