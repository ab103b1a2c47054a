package ai

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	domai "github.com/bryanwahyu/trustlayer/internal/domain/ai"
	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
	"github.com/bryanwahyu/trustlayer/internal/domain/chamber"
	"github.com/bryanwahyu/trustlayer/internal/domain/media"
)

const DefaultTimeout = 60 * time.Second

// Observer is notified around each synthesizer call.
type Observer interface {
	AnalysisStarted()
	AnalysisFinished(err error)
}

type nopObserver struct{}

func (nopObserver) AnalysisStarted()       {}
func (nopObserver) AnalysisFinished(error) {}

type Service struct {
	synth    domai.Synthesizer
	registry *chamber.Registry
	timeout  time.Duration
	log      *zap.Logger
	observer Observer
}

type Option func(*Service)

func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

func NewService(synth domai.Synthesizer, registry *chamber.Registry, opts ...Option) *Service {
	if registry == nil {
		registry = chamber.NewRegistry()
	}
	s := &Service{
		synth:    synth,
		registry: registry,
		timeout:  DefaultTimeout,
		log:      zap.NewNop(),
		observer: nopObserver{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Registry() *chamber.Registry { return s.registry }

// Validate rejects uploads the classifier does not accept.
func (s *Service) Validate(upload analysis.Upload) error {
	return media.Validate(upload.MIMEType)
}

// Analyze validates, classifies and synthesizes one upload. Any synthesizer
// problem comes back as *analysis.AnalysisFailure; the cause is only logged.
func (s *Service) Analyze(ctx context.Context, upload analysis.Upload, id chamber.ID) (*analysis.Result, error) {
	if err := s.Validate(upload); err != nil {
		return nil, err
	}
	ch := s.registry.Lookup(id)
	contentType := media.Classify(upload.MIMEType)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.observer.AnalysisStarted()
	start := time.Now()
	res, err := s.synth.Analyze(ctx, upload, contentType, ch.ID)
	if err == nil && res == nil {
		err = domai.ErrEmptyResponse
	}
	if err == nil {
		err = res.Validate()
	}
	s.observer.AnalysisFinished(err)

	if err != nil {
		fields := []zap.Field{
			zap.String("chamber", string(ch.ID)),
			zap.String("mime", upload.MIMEType),
			zap.Int("bytes", upload.Size()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		}
		if errors.Is(err, domai.ErrQuotaExceeded) {
			s.log.Warn("analysis provider quota exceeded", fields...)
		} else {
			s.log.Error("analysis failed", fields...)
		}
		return nil, &analysis.AnalysisFailure{Cause: err}
	}

	res.ContentType = contentType
	s.log.Info("analysis complete",
		zap.String("chamber", string(ch.ID)),
		zap.String("content_type", string(contentType)),
		zap.Int("probability", res.AIGeneratedProbability),
		zap.String("risk", string(res.DeepfakeRisk)),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}
