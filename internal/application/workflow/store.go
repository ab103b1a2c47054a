package workflow

import (
	"sync"
	"time"

	"github.com/bryanwahyu/trustlayer/internal/application"
	"github.com/bryanwahyu/trustlayer/internal/domain/chamber"
)

const (
	DefaultIdleTTL       = 30 * time.Minute
	defaultSweepInterval = 5 * time.Minute
)

type workspace struct {
	machine  *Machine
	lastSeen time.Time
}

// Store keeps one Machine per device and evicts idle ones.
type Store struct {
	mu         sync.RWMutex
	workspaces map[string]*workspace

	registry *chamber.Registry
	analyzer Analyzer
	clock    application.Clock
	idleTTL  time.Duration
	opts     []Option

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

type StoreConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
	Clock         application.Clock
	// MachineOptions are applied to every machine the store creates.
	MachineOptions []Option
}

func NewStore(registry *chamber.Registry, analyzer Analyzer, cfg StoreConfig) *Store {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = application.SystemClock{}
	}
	s := &Store{
		workspaces: make(map[string]*workspace),
		registry:   registry,
		analyzer:   analyzer,
		clock:      cfg.Clock,
		idleTTL:    cfg.IdleTTL,
		opts:       append([]Option{WithClock(cfg.Clock)}, cfg.MachineOptions...),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go s.cleanup(cfg.SweepInterval)
	return s
}

// Get returns the device's machine, creating it on first use.
func (s *Store) Get(deviceID string) *Machine {
	now := s.clock.Now()

	s.mu.RLock()
	ws, ok := s.workspaces[deviceID]
	s.mu.RUnlock()
	if ok {
		s.mu.Lock()
		ws.lastSeen = now
		s.mu.Unlock()
		return ws.machine
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, ok := s.workspaces[deviceID]; ok {
		ws.lastSeen = now
		return ws.machine
	}
	ws = &workspace{machine: NewMachine(s.registry, s.analyzer, s.opts...), lastSeen: now}
	s.workspaces[deviceID] = ws
	return ws.machine
}

// Drop forgets a device's workspace. Any in-flight run is detached.
func (s *Store) Drop(deviceID string) {
	s.mu.Lock()
	ws, ok := s.workspaces[deviceID]
	delete(s.workspaces, deviceID)
	s.mu.Unlock()
	if ok {
		ws.machine.ReturnToDashboard()
	}
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.workspaces)
}

// Sweep evicts workspaces idle longer than the TTL. Busy machines stay.
func (s *Store) Sweep() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, ws := range s.workspaces {
		if now.Sub(ws.lastSeen) > s.idleTTL && !ws.machine.Busy() {
			delete(s.workspaces, id)
			evicted++
		}
	}
	return evicted
}

func (s *Store) cleanup(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Close stops the sweeper and waits for in-flight runs.
func (s *Store) Close() {
	s.once.Do(func() { close(s.stop) })
	<-s.done

	s.mu.RLock()
	machines := make([]*Machine, 0, len(s.workspaces))
	for _, ws := range s.workspaces {
		machines = append(machines, ws.machine)
	}
	s.mu.RUnlock()
	for _, m := range machines {
		m.Wait()
	}
}
