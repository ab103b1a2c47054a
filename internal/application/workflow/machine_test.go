package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	appai "github.com/bryanwahyu/trustlayer/internal/application/ai"
	domai "github.com/bryanwahyu/trustlayer/internal/domain/ai"
	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
	"github.com/bryanwahyu/trustlayer/internal/domain/chamber"
	"github.com/bryanwahyu/trustlayer/internal/infra/ai/mock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gatedSynth blocks every call until release is closed.
type gatedSynth struct {
	release chan struct{}
	mu      sync.Mutex
	calls   int
	result  *analysis.Result
	err     error
}

func newGated() *gatedSynth {
	return &gatedSynth{
		release: make(chan struct{}),
		result: &analysis.Result{
			AIGeneratedProbability: 30,
			ContentType:            analysis.ContentImage,
			DeepfakeRisk:           analysis.LevelLow,
			ArtifactsDetected:      []string{"a"},
			ModelLikelihood:        []string{"b"},
			ConfidenceLevel:        analysis.LevelHigh,
		},
	}
}

func (g *gatedSynth) Analyze(ctx context.Context, u analysis.Upload, ct analysis.ContentType, id chamber.ID) (*analysis.Result, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	<-g.release
	if g.err != nil {
		return nil, g.err
	}
	r := *g.result
	return &r, nil
}

func (g *gatedSynth) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func newMachine(synth domai.Synthesizer, opts ...Option) *Machine {
	reg := chamber.NewRegistry()
	return NewMachine(reg, appai.NewService(synth, reg), opts...)
}

var png = analysis.Upload{Name: "a.png", MIMEType: "image/png", Data: []byte{1, 2, 3}}

func TestMachine_StartRequiresChamber(t *testing.T) {
	m := newMachine(mock.New(nil, 0))
	_, err := m.Start(context.Background(), png)
	assert.ErrorIs(t, err, analysis.ErrNoChamber)
	assert.Equal(t, StateIdle, m.Snapshot().State)
}

func TestMachine_CompletesWithMock(t *testing.T) {
	m := newMachine(mock.New(nil, 0))
	_, err := m.SelectChamber(chamber.TextAI)
	require.NoError(t, err)

	ch, err := m.Start(context.Background(), analysis.Upload{Name: "essay.txt", MIMEType: "text/plain", Data: make([]byte, 2048)})
	require.NoError(t, err)
	snap := <-ch

	assert.Equal(t, StateComplete, snap.State)
	require.NotNil(t, snap.Result)
	assert.Equal(t, analysis.ContentText, snap.Result.ContentType)
	assert.Equal(t, analysis.LevelMedium, snap.Result.ConfidenceLevel)
	assert.Equal(t, "essay.txt", snap.File.Name)
	assert.Equal(t, 2048, snap.File.Size)
	assert.Equal(t, snap, m.Snapshot())
}

func TestMachine_BusyIsNoOp(t *testing.T) {
	g := newGated()
	m := newMachine(g)
	_, err := m.SelectChamber(chamber.ImageAuth)
	require.NoError(t, err)

	ch, err := m.Start(context.Background(), png)
	require.NoError(t, err)
	before := m.Snapshot()
	assert.Equal(t, StateAnalyzing, before.State)

	_, err = m.Start(context.Background(), analysis.Upload{Name: "b.jpg", MIMEType: "image/jpeg"})
	assert.ErrorIs(t, err, analysis.ErrBusy)
	_, err = m.SelectChamber(chamber.AudioAuth)
	assert.ErrorIs(t, err, analysis.ErrBusy)
	_, err = m.Reset()
	assert.ErrorIs(t, err, analysis.ErrBusy)
	assert.Equal(t, before, m.Snapshot())

	close(g.release)
	snap := <-ch
	assert.Equal(t, StateComplete, snap.State)
	assert.Equal(t, 1, g.Calls())
}

func TestMachine_ResetClears(t *testing.T) {
	m := newMachine(mock.New(nil, 0))
	_, err := m.SelectChamber(chamber.ImageAuth)
	require.NoError(t, err)
	ch, err := m.Start(context.Background(), png)
	require.NoError(t, err)
	<-ch

	snap, err := m.Reset()
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Result)
	assert.Nil(t, snap.File)
	assert.Empty(t, snap.Error)
	require.NotNil(t, snap.Chamber)
	assert.Equal(t, chamber.ImageAuth, snap.Chamber.ID)
}

func TestMachine_ReturnToDashboardClearsChamber(t *testing.T) {
	m := newMachine(mock.New(nil, 0))
	_, err := m.SelectChamber(chamber.Moderation)
	require.NoError(t, err)

	snap := m.ReturnToDashboard()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Chamber)
}

func TestMachine_StaleResultDropped(t *testing.T) {
	g := newGated()
	settled := 0
	m := newMachine(g, WithOnSettled(func(Snapshot) { settled++ }))
	_, err := m.SelectChamber(chamber.ImageAuth)
	require.NoError(t, err)

	ch, err := m.Start(context.Background(), png)
	require.NoError(t, err)
	m.ReturnToDashboard()
	close(g.release)

	_, ok := <-ch
	assert.False(t, ok, "detached run must not deliver a snapshot")
	m.Wait()

	snap := m.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Result)
	assert.Zero(t, settled)
}

func TestMachine_ZipRejectedStaysIdle(t *testing.T) {
	g := newGated()
	m := newMachine(g)
	_, err := m.SelectChamber(chamber.ImageAuth)
	require.NoError(t, err)
	before := m.Snapshot()

	_, err = m.Start(context.Background(), analysis.Upload{Name: "a.zip", MIMEType: "application/zip"})
	var verr *analysis.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Please upload an Image, Video, Audio, or Text file.", verr.Message)
	assert.Equal(t, before, m.Snapshot())
	assert.Zero(t, g.Calls())
}

func TestMachine_EmptyLiveResponseBecomesError(t *testing.T) {
	g := newGated()
	g.err = domai.ErrEmptyResponse
	close(g.release)

	var got []Snapshot
	m := newMachine(g, WithOnSettled(func(s Snapshot) { got = append(got, s) }))
	_, err := m.SelectChamber(chamber.VideoDeepfake)
	require.NoError(t, err)

	ch, err := m.Start(context.Background(), analysis.Upload{Name: "c.mp4", MIMEType: "video/mp4"})
	require.NoError(t, err)
	snap := <-ch
	m.Wait()

	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, analysis.FailureMessage, snap.Error)
	assert.Nil(t, snap.Result)
	require.Len(t, got, 1)
	assert.Equal(t, snap, got[0])

	snap, err = m.Reset()
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Error)
}

func TestMachine_SelectChamberRejectsUnknownAndBypass(t *testing.T) {
	m := newMachine(mock.New(nil, 0))
	for _, id := range []chamber.ID{"nope", chamber.ContextNews, chamber.Emergency} {
		_, err := m.SelectChamber(id)
		assert.ErrorIs(t, err, analysis.ErrUnknownChamber, id)
	}
	assert.Nil(t, m.Snapshot().Chamber)
}

func TestMachine_StartSurvivesRequestCancel(t *testing.T) {
	m := newMachine(mock.New(nil, 5*time.Millisecond))
	_, err := m.SelectChamber(chamber.ImageAuth)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := m.Start(ctx, png)
	require.NoError(t, err)
	cancel()

	snap := <-ch
	assert.Equal(t, StateComplete, snap.State)
}

func TestMachine_SnapshotIsCopy(t *testing.T) {
	m := newMachine(mock.New(nil, 0))
	_, err := m.SelectChamber(chamber.ImageAuth)
	require.NoError(t, err)
	ch, err := m.Start(context.Background(), png)
	require.NoError(t, err)
	snap := <-ch

	snap.Result.ArtifactsDetected[0] = "mutated"
	snap.Chamber.Title = "mutated"
	fresh := m.Snapshot()
	assert.NotEqual(t, "mutated", fresh.Result.ArtifactsDetected[0])
	assert.NotEqual(t, "mutated", fresh.Chamber.Title)
}
