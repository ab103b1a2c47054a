package main

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	appai "github.com/bryanwahyu/trustlayer/internal/application/ai"
	"github.com/bryanwahyu/trustlayer/internal/application/reports"
	"github.com/bryanwahyu/trustlayer/internal/config"
	domai "github.com/bryanwahyu/trustlayer/internal/domain/ai"
	"github.com/bryanwahyu/trustlayer/internal/domain/chamber"
	domsession "github.com/bryanwahyu/trustlayer/internal/domain/session"
	"github.com/bryanwahyu/trustlayer/internal/infra/ai/gemini"
	"github.com/bryanwahyu/trustlayer/internal/infra/ai/mock"
	openaiclient "github.com/bryanwahyu/trustlayer/internal/infra/ai/openai"
	"github.com/bryanwahyu/trustlayer/internal/infra/ai/rekognition"
	mysqlp "github.com/bryanwahyu/trustlayer/internal/infra/db/mysql"
	"github.com/bryanwahyu/trustlayer/internal/infra/db/postgres"
	"github.com/bryanwahyu/trustlayer/internal/infra/sessionstore"
	minioStore "github.com/bryanwahyu/trustlayer/internal/infra/storage"
	"github.com/bryanwahyu/trustlayer/internal/logging"
	"github.com/bryanwahyu/trustlayer/internal/middleware"
)

// app holds what every command needs: config, logger, registry and the
// analysis service. Connections opened while wiring are closed by Close.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *chamber.Registry
	closers  []func() error
}

func bootstrap(configPath, logLevel string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	log, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, registry: chamber.NewRegistry()}, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

// synthesizer picks the strategy from analysis.provider, optionally
// decorated with Rekognition moderation labels.
func (a *app) synthesizer(ctx context.Context) (domai.Synthesizer, error) {
	var synth domai.Synthesizer
	ac := a.cfg.Analysis
	switch ac.Provider {
	case config.ProviderGemini:
		c, err := gemini.NewClient(ctx, ac.Gemini.APIKey, ac.Gemini.Model, a.registry)
		if err != nil {
			return nil, err
		}
		synth = c
	case config.ProviderOpenAI:
		if ac.OpenAI.BaseURL != "" {
			oc := openai.DefaultConfig(ac.OpenAI.APIKey)
			oc.BaseURL = ac.OpenAI.BaseURL
			synth = openaiclient.NewClientWithConfig(oc, ac.OpenAI.Model, a.registry)
		} else {
			synth = openaiclient.NewClient(ac.OpenAI.APIKey, ac.OpenAI.Model, a.registry)
		}
	default:
		synth = mock.New(rand.New(rand.NewSource(time.Now().UnixNano())), ac.MockLatency)
	}

	if a.cfg.Rekognition.Enabled {
		det, err := rekognition.NewAWSDetector(ctx, a.cfg.Rekognition.Region)
		if err != nil {
			return nil, err
		}
		synth = rekognition.NewEnricher(synth, det, a.cfg.Rekognition.RejectConfidence, a.log)
	}
	a.log.Info("analysis provider ready",
		zap.String("provider", ac.Provider),
		zap.Bool("rekognition", a.cfg.Rekognition.Enabled))
	return synth, nil
}

func (a *app) analysisService(ctx context.Context) (*appai.Service, error) {
	synth, err := a.synthesizer(ctx)
	if err != nil {
		return nil, err
	}
	return appai.NewService(synth, a.registry,
		appai.WithTimeout(a.cfg.Analysis.Timeout),
		appai.WithLogger(a.log),
		appai.WithObserver(middleware.AnalysisObserver{}),
	), nil
}

// sessionRepo opens the configured backend and registers its health check.
func (a *app) sessionRepo(ctx context.Context, health map[string]middleware.HealthChecker) (domsession.Repository, error) {
	sc := a.cfg.Session
	switch sc.Backend {
	case config.BackendMemory:
		return sessionstore.NewMemory(), nil
	case config.BackendRedis:
		r, err := sessionstore.NewRedis(ctx, sessionstore.RedisConfig{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
			Prefix:   a.cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r.Close)
		health["redis"] = middleware.CheckerFunc(r.Ping)
		return r, nil
	case config.BackendMySQL:
		db, err := mysqlp.Connect(ctx, a.cfg.MySQLDSN())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		repo := mysqlp.NewSessionRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		health["mysql"] = &middleware.DatabaseHealthChecker{DB: db}
		return repo, nil
	case config.BackendPostgres:
		db, err := postgres.Connect(ctx, a.cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		repo := postgres.NewSessionRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		health["postgres"] = &middleware.DatabaseHealthChecker{DB: db}
		return repo, nil
	default:
		return sessionstore.NewFile(sc.FilePath)
	}
}

// publisher returns nil when report publishing is disabled.
func (a *app) publisher(ctx context.Context, health map[string]middleware.HealthChecker) (reports.Publisher, error) {
	mc := a.cfg.Minio
	if !mc.Enabled {
		return nil, nil
	}
	store, err := minioStore.New(ctx, minioStore.Config{
		Endpoint:  mc.Endpoint,
		Region:    mc.Region,
		Bucket:    mc.BucketName,
		AccessKey: mc.AccessKey,
		SecretKey: mc.SecretKey,
		UseSSL:    mc.UseSSL,
		URLExpiry: mc.URLExpiry,
	})
	if err != nil {
		return nil, err
	}
	health["minio"] = store
	return store, nil
}

// signingKey falls back to a per-process key; tokens then die with the process.
func (a *app) signingKey() string {
	if k := strings.TrimSpace(a.cfg.Session.SigningKey); k != "" {
		return k
	}
	a.log.Warn("session.signingKey not set, using an ephemeral key")
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
