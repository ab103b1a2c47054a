// Package session is the login gate in front of the workspace.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/trustlayer/internal/application"
	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
	domsession "github.com/bryanwahyu/trustlayer/internal/domain/session"
)

const (
	DefaultRememberTTL = 7 * 24 * time.Hour
	DefaultSessionTTL  = 12 * time.Hour

	// pruneEvery bounds how often Login walks the grant map.
	pruneEvery = time.Minute
)

// LoginCommand carries the login form.
type LoginCommand struct {
	DeviceID      string
	Remember      bool
	HumanVerified bool
}

// Grant is an authenticated device session.
type Grant struct {
	DeviceID   string    `json:"device_id"`
	Remembered bool      `json:"remembered"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type Service struct {
	repo        domsession.Repository
	clock       application.Clock
	log         *zap.Logger
	rememberTTL time.Duration
	sessionTTL  time.Duration
	onLogout    func(deviceID string)

	mu        sync.Mutex
	active    map[string]Grant
	nextPrune time.Time
}

type Config struct {
	RememberTTL time.Duration
	SessionTTL  time.Duration
	Clock       application.Clock
	Logger      *zap.Logger
	// OnLogout runs after a device logs out, e.g. to drop its workspace.
	OnLogout func(deviceID string)
}

func NewService(repo domsession.Repository, cfg Config) *Service {
	if cfg.RememberTTL <= 0 {
		cfg.RememberTTL = DefaultRememberTTL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = application.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Service{
		repo:        repo,
		clock:       cfg.Clock,
		log:         cfg.Logger,
		rememberTTL: cfg.RememberTTL,
		sessionTTL:  cfg.SessionTTL,
		onLogout:    cfg.OnLogout,
		active:      make(map[string]Grant),
	}
}

// Resume restores a device session. Expired or unreadable records are cleared.
func (s *Service) Resume(ctx context.Context, deviceID string) (Grant, error) {
	if deviceID == "" {
		return Grant{}, domsession.ErrUnauthenticated
	}
	now := s.clock.Now()

	s.mu.Lock()
	g, ok := s.active[deviceID]
	if ok && now.Before(g.ExpiresAt) {
		s.mu.Unlock()
		return g, nil
	}
	delete(s.active, deviceID)
	s.mu.Unlock()

	rec, err := s.repo.Load(ctx, deviceID)
	if err != nil {
		if !errors.Is(err, domsession.ErrCorrupt) {
			return Grant{}, fmt.Errorf("load session: %w", err)
		}
		s.log.Warn("clearing unreadable session record", zap.String("device", deviceID), zap.Error(err))
		rec = &domsession.Record{}
	}
	if rec == nil {
		return Grant{}, domsession.ErrUnauthenticated
	}
	if !rec.Live(now) {
		if err := s.repo.Clear(ctx, deviceID); err != nil {
			return Grant{}, fmt.Errorf("clear session: %w", err)
		}
		return Grant{}, domsession.ErrUnauthenticated
	}

	g = Grant{DeviceID: deviceID, Remembered: true, ExpiresAt: rec.ExpiresAt}
	s.mu.Lock()
	s.active[deviceID] = g
	s.mu.Unlock()
	return g, nil
}

// Login authenticates a device. Remembered logins are persisted.
func (s *Service) Login(ctx context.Context, cmd LoginCommand) (Grant, error) {
	if !cmd.HumanVerified {
		return Grant{}, analysis.NewValidationError("Please verify you are not a robot.")
	}
	deviceID := cmd.DeviceID
	if deviceID == "" {
		deviceID = uuid.NewString()
	}
	now := s.clock.Now()

	g := Grant{DeviceID: deviceID, Remembered: cmd.Remember}
	if cmd.Remember {
		g.ExpiresAt = now.Add(s.rememberTTL)
		if err := s.repo.Save(ctx, deviceID, domsession.Record{Valid: true, ExpiresAt: g.ExpiresAt}); err != nil {
			return Grant{}, fmt.Errorf("save session: %w", err)
		}
	} else {
		g.ExpiresAt = now.Add(s.sessionTTL)
	}

	s.mu.Lock()
	if !now.Before(s.nextPrune) {
		s.pruneLocked(now)
		s.nextPrune = now.Add(pruneEvery)
	}
	s.active[deviceID] = g
	s.mu.Unlock()

	s.log.Info("device logged in", zap.String("device", deviceID), zap.Bool("remember", cmd.Remember))
	return g, nil
}

// Sweep drops expired in-memory grants and returns how many went.
// Persisted records are left to Resume.
func (s *Service) Sweep() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(now)
}

// Active counts in-memory grants, expired or not.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Service) pruneLocked(now time.Time) int {
	n := 0
	for id, g := range s.active {
		if !now.Before(g.ExpiresAt) {
			delete(s.active, id)
			n++
		}
	}
	return n
}

// Logout clears persisted and in-memory state for the device.
func (s *Service) Logout(ctx context.Context, deviceID string) error {
	s.mu.Lock()
	delete(s.active, deviceID)
	s.mu.Unlock()

	if err := s.repo.Clear(ctx, deviceID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if s.onLogout != nil {
		s.onLogout(deviceID)
	}
	s.log.Info("device logged out", zap.String("device", deviceID))
	return nil
}
