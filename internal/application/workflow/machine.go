// Package workflow holds the per-device view state machine.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bryanwahyu/trustlayer/internal/application"
	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
	"github.com/bryanwahyu/trustlayer/internal/domain/chamber"
)

type State string

const (
	StateIdle      State = "idle"
	StateAnalyzing State = "analyzing"
	StateComplete  State = "complete"
	StateError     State = "error"
)

func (s State) Terminal() bool { return s == StateComplete || s == StateError }

// Analyzer is the orchestration service the machine drives.
type Analyzer interface {
	Validate(upload analysis.Upload) error
	Analyze(ctx context.Context, upload analysis.Upload, id chamber.ID) (*analysis.Result, error)
}

// FileInfo describes the in-flight upload without its bytes.
type FileInfo struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// Snapshot is an immutable copy of the machine for rendering.
type Snapshot struct {
	State      State            `json:"state"`
	Chamber    *chamber.Chamber `json:"chamber,omitempty"`
	File       *FileInfo        `json:"file,omitempty"`
	Result     *analysis.Result `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
	Generation uint64           `json:"generation"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

type Machine struct {
	mu       sync.Mutex
	registry *chamber.Registry
	analyzer Analyzer
	clock    application.Clock

	state     State
	chamber   *chamber.Chamber
	file      *FileInfo
	result    *analysis.Result
	errMsg    string
	gen       uint64
	updatedAt time.Time

	onSettled func(Snapshot)
	inflight  sync.WaitGroup
}

type Option func(*Machine)

// WithOnSettled registers a hook for every accepted terminal snapshot.
func WithOnSettled(fn func(Snapshot)) Option {
	return func(m *Machine) { m.onSettled = fn }
}

func WithClock(c application.Clock) Option {
	return func(m *Machine) {
		if c != nil {
			m.clock = c
		}
	}
}

func NewMachine(registry *chamber.Registry, analyzer Analyzer, opts ...Option) *Machine {
	if registry == nil {
		registry = chamber.NewRegistry()
	}
	m := &Machine{
		registry: registry,
		analyzer: analyzer,
		clock:    application.SystemClock{},
		state:    StateIdle,
	}
	for _, o := range opts {
		o(m)
	}
	m.updatedAt = m.clock.Now()
	return m
}

// SelectChamber activates an upload chamber and returns to Idle.
func (m *Machine) SelectChamber(id chamber.ID) (Snapshot, error) {
	ch, ok := m.registry.Get(id)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %q", analysis.ErrUnknownChamber, id)
	}
	if !ch.UsesUpload() {
		return Snapshot{}, fmt.Errorf("%w: %q is not an upload chamber", analysis.ErrUnknownChamber, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateAnalyzing {
		return m.snapshotLocked(), analysis.ErrBusy
	}
	m.clearLocked()
	m.chamber = &ch
	return m.snapshotLocked(), nil
}

// Start validates the upload and runs the analysis in the background.
// The returned channel yields the terminal snapshot, or closes empty if
// the run was detached by a reset or chamber change.
func (m *Machine) Start(ctx context.Context, upload analysis.Upload) (<-chan Snapshot, error) {
	m.mu.Lock()
	if m.state == StateAnalyzing {
		m.mu.Unlock()
		return nil, analysis.ErrBusy
	}
	if m.chamber == nil {
		m.mu.Unlock()
		return nil, analysis.ErrNoChamber
	}
	if err := m.analyzer.Validate(upload); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	m.gen++
	gen := m.gen
	id := m.chamber.ID
	m.state = StateAnalyzing
	m.result = nil
	m.errMsg = ""
	m.file = &FileInfo{Name: upload.Name, MIMEType: upload.MIMEType, Size: upload.Size()}
	m.updatedAt = m.clock.Now()
	m.inflight.Add(1)
	m.mu.Unlock()

	out := make(chan Snapshot, 1)
	go m.run(context.WithoutCancel(ctx), gen, id, upload, out)
	return out, nil
}

func (m *Machine) run(ctx context.Context, gen uint64, id chamber.ID, upload analysis.Upload, out chan<- Snapshot) {
	defer m.inflight.Done()
	defer close(out)

	res, err := m.analyzer.Analyze(ctx, upload, id)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	if err != nil {
		m.state = StateError
		m.errMsg = userMessage(err)
	} else {
		m.state = StateComplete
		m.result = res
	}
	m.updatedAt = m.clock.Now()
	snap := m.snapshotLocked()
	hook := m.onSettled
	m.mu.Unlock()

	out <- snap
	if hook != nil {
		hook(snap)
	}
}

// Reset returns a finished run to Idle, keeping the active chamber.
func (m *Machine) Reset() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateAnalyzing {
		return m.snapshotLocked(), analysis.ErrBusy
	}
	m.clearLocked()
	return m.snapshotLocked(), nil
}

// ReturnToDashboard clears everything including the chamber, from any state.
// An in-flight run is detached, not cancelled.
func (m *Machine) ReturnToDashboard() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
	m.chamber = nil
	return m.snapshotLocked()
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Busy reports whether an accepted analysis is in flight.
func (m *Machine) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateAnalyzing
}

// Wait blocks until every background run has returned.
func (m *Machine) Wait() { m.inflight.Wait() }

func (m *Machine) clearLocked() {
	m.gen++
	m.state = StateIdle
	m.file = nil
	m.result = nil
	m.errMsg = ""
	m.updatedAt = m.clock.Now()
}

func (m *Machine) snapshotLocked() Snapshot {
	s := Snapshot{
		State:      m.state,
		Error:      m.errMsg,
		Generation: m.gen,
		UpdatedAt:  m.updatedAt,
	}
	if m.chamber != nil {
		ch := *m.chamber
		ch.SupportedTypes = append([]analysis.ContentType(nil), ch.SupportedTypes...)
		s.Chamber = &ch
	}
	if m.file != nil {
		f := *m.file
		s.File = &f
	}
	if m.result != nil {
		r := *m.result
		r.ArtifactsDetected = append([]string(nil), r.ArtifactsDetected...)
		r.ModelLikelihood = append([]string(nil), r.ModelLikelihood...)
		r.Normalize()
		s.Result = &r
	}
	return s
}

func userMessage(err error) string {
	var verr *analysis.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return analysis.FailureMessage
}
