package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/trustlayer/internal/application"
	appai "github.com/bryanwahyu/trustlayer/internal/application/ai"
	"github.com/bryanwahyu/trustlayer/internal/application/contextcheck"
	"github.com/bryanwahyu/trustlayer/internal/application/emergency"
	"github.com/bryanwahyu/trustlayer/internal/application/reports"
	appsession "github.com/bryanwahyu/trustlayer/internal/application/session"
	"github.com/bryanwahyu/trustlayer/internal/application/workflow"
	"github.com/bryanwahyu/trustlayer/internal/domain/chamber"
	"github.com/bryanwahyu/trustlayer/internal/infra/ai/mock"
	"github.com/bryanwahyu/trustlayer/internal/infra/sessionstore"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakePublisher struct{ keys []string }

func (f *fakePublisher) Publish(_ context.Context, key, _ string, _ []byte) (string, error) {
	f.keys = append(f.keys, key)
	return "https://reports.example/" + key, nil
}

type fixture struct {
	handler   http.Handler
	store     *workflow.Store
	publisher *fakePublisher
}

func newFixture(t *testing.T, maxUpload int64) *fixture {
	t.Helper()
	clock := application.FixedClock{T: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	registry := chamber.NewRegistry()

	svc := appai.NewService(mock.New(rand.New(rand.NewSource(1)), 0), registry)
	store := workflow.NewStore(registry, svc, workflow.StoreConfig{Clock: clock})
	t.Cleanup(store.Close)

	tokens, err := appsession.NewTokens("0123456789abcdef0123", clock)
	require.NoError(t, err)
	sessions := appsession.NewService(sessionstore.NewMemory(), appsession.Config{
		Clock:    clock,
		OnLogout: store.Drop,
	})

	pub := &fakePublisher{}
	h := NewRouter(Deps{
		Registry:       registry,
		Workspaces:     store,
		Sessions:       sessions,
		Tokens:         tokens,
		Checker:        contextcheck.New(rand.New(rand.NewSource(1)), 0),
		Emergency:      emergency.NewService(zap.NewNop()),
		Reports:        reports.NewService(clock, pub, zap.NewNop()),
		Logger:         zap.NewNop(),
		CORSOrigins:    []string{"*"},
		MaxUploadBytes: maxUpload,
	})
	return &fixture{handler: h, store: store, publisher: pub}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, name, mimeType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	hdr.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (f *fixture) upload(t *testing.T, token, name, mimeType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, name, mimeType, data)
	req := httptest.NewRequest(http.MethodPost, "/v1/workspace/analyze?wait=true", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(t *testing.T) (token, device string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/v1/session/login", "", map[string]bool{"remember": true, "human_verified": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out loginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.NotEmpty(t, out.Token)
	return out.Token, out.DeviceID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestChambers(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(t, http.MethodGet, "/v1/chambers", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	out := decode[struct {
		Chambers []chamber.Chamber `json:"chambers"`
	}](t, rec)
	require.Len(t, out.Chambers, 9)
	assert.Equal(t, chamber.ImageAuth, out.Chambers[0].ID)
}

func TestLogin_RequiresHumanVerification(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(t, http.MethodPost, "/v1/session/login", "", map[string]bool{"remember": true})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "not a robot")
}

func TestWorkspace_RequiresToken(t *testing.T) {
	f := newFixture(t, 0)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/v1/workspace", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/v1/workspace", "garbage", nil).Code)
}

func TestAnalyzeFlow(t *testing.T) {
	f := newFixture(t, 0)
	token, _ := f.login(t)

	rec := f.do(t, http.MethodPost, "/v1/workspace/chamber", token, map[string]string{"chamber_id": "image_auth"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decode[workflow.Snapshot](t, rec)
	assert.Equal(t, workflow.StateIdle, snap.State)
	require.NotNil(t, snap.Chamber)
	assert.Equal(t, chamber.ImageAuth, snap.Chamber.ID)

	rec = f.upload(t, token, "photo.png", "image/png", pngHeader)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap = decode[workflow.Snapshot](t, rec)
	assert.Equal(t, workflow.StateComplete, snap.State)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "image", string(snap.Result.ContentType))
	assert.GreaterOrEqual(t, snap.Result.AIGeneratedProbability, 10)
	assert.Less(t, snap.Result.AIGeneratedProbability, 50)
	require.NotNil(t, snap.File)
	assert.Equal(t, "photo.png", snap.File.Name)

	// low-risk image results have no safety panel
	rec = f.do(t, http.MethodGet, "/v1/workspace/safety", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/workspace/reset", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decode[workflow.Snapshot](t, rec)
	assert.Equal(t, workflow.StateIdle, snap.State)
	assert.Nil(t, snap.Result)
	assert.NotNil(t, snap.Chamber)

	rec = f.do(t, http.MethodPost, "/v1/workspace/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decode[workflow.Snapshot](t, rec)
	assert.Nil(t, snap.Chamber)
}

func TestAnalyze_Errors(t *testing.T) {
	f := newFixture(t, 0)
	token, _ := f.login(t)

	rec := f.upload(t, token, "photo.png", "image/png", pngHeader)
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, http.StatusOK,
		f.do(t, http.MethodPost, "/v1/workspace/chamber", token, map[string]string{"chamber_id": "image_auth"}).Code)

	rec = f.upload(t, token, "archive.zip", "application/zip", []byte("PK\x03\x04"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please upload an Image, Video, Audio, or Text file.")

	snap := decode[workflow.Snapshot](t, f.do(t, http.MethodGet, "/v1/workspace", token, nil))
	assert.Equal(t, workflow.StateIdle, snap.State)
}

func TestAnalyze_TooLarge(t *testing.T) {
	f := newFixture(t, 64)
	token, _ := f.login(t)
	require.Equal(t, http.StatusOK,
		f.do(t, http.MethodPost, "/v1/workspace/chamber", token, map[string]string{"chamber_id": "text_ai"}).Code)

	rec := f.upload(t, token, "essay.txt", "text/plain", bytes.Repeat([]byte("a"), 4096))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAnalyze_BodyOverLimit(t *testing.T) {
	f := newFixture(t, 64)
	token, _ := f.login(t)
	require.Equal(t, http.StatusOK,
		f.do(t, http.MethodPost, "/v1/workspace/chamber", token, map[string]string{"chamber_id": "text_ai"}).Code)

	data := bytes.Repeat([]byte("a"), multipartOverhead+1024)
	tests := []struct {
		name    string
		chunked bool
	}{
		{"declared length", false},
		{"chunked", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartBody(t, "essay.txt", "text/plain", data)
			req := httptest.NewRequest(http.MethodPost, "/v1/workspace/analyze", body)
			if tt.chunked {
				req.ContentLength = -1
			}
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
		})
	}

	snap := decode[workflow.Snapshot](t, f.do(t, http.MethodGet, "/v1/workspace", token, nil))
	assert.Equal(t, workflow.StateIdle, snap.State)
}

func TestSelectChamber_Rejects(t *testing.T) {
	f := newFixture(t, 0)
	token, _ := f.login(t)

	tests := []struct {
		name string
		id   string
		want int
	}{
		{"bad format", "Image-Auth!", http.StatusBadRequest},
		{"unknown", "nope", http.StatusBadRequest},
		{"bypass chamber", "emergency", http.StatusBadRequest},
		{"upload chamber", "moderation", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/v1/workspace/chamber", token, map[string]string{"chamber_id": tt.id})
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestSafety_ModerationPublishesReport(t *testing.T) {
	f := newFixture(t, 0)
	token, _ := f.login(t)
	require.Equal(t, http.StatusOK,
		f.do(t, http.MethodPost, "/v1/workspace/chamber", token, map[string]string{"chamber_id": "moderation"}).Code)
	require.Equal(t, http.StatusOK, f.upload(t, token, "post.txt", "text/plain", []byte("hello there")).Code)

	rec := f.do(t, http.MethodGet, "/v1/workspace/safety?located=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	panel := decode[reports.Panel](t, rec)
	assert.NotEmpty(t, panel.ReportID)
	assert.Contains(t, panel.Report, panel.ReportID)
	assert.NotEmpty(t, panel.Contacts)
	require.Len(t, f.publisher.keys, 1)
	assert.Equal(t, "https://reports.example/"+f.publisher.keys[0], panel.URL)
	assert.True(t, strings.HasPrefix(f.publisher.keys[0], "reports/2026-03-01/"))
}

func TestContextCheck(t *testing.T) {
	f := newFixture(t, 0)
	token, _ := f.login(t)

	rec := f.do(t, http.MethodPost, "/v1/context-check", token, map[string]string{"claim": "short"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/context-check", token,
		map[string]string{"claim": "According to a peer-reviewed study, the city budget grew 4% last year."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[struct {
		Report   contextcheck.Report     `json:"report"`
		Progress []contextcheck.Progress `json:"progress"`
	}](t, rec)
	assert.NotEmpty(t, out.Report.Verdict)
	require.Len(t, out.Progress, len(contextcheck.Steps))
	assert.Equal(t, 100, out.Progress[len(out.Progress)-1].Percent)
}

func TestEmergency(t *testing.T) {
	f := newFixture(t, 0)

	rec := f.do(t, http.MethodPost, "/v1/emergency", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[emergency.Response](t, rec)
	assert.False(t, out.Located)
	assert.Equal(t, emergency.FallbackMessage, out.Message)

	rec = f.do(t, http.MethodPost, "/v1/emergency", "", map[string]float64{"lat": -6.2, "lng": 106.8})
	require.Equal(t, http.StatusOK, rec.Code)
	out = decode[emergency.Response](t, rec)
	assert.True(t, out.Located)
	require.NotNil(t, out.Location)
	assert.InDelta(t, -6.2, out.Location.Lat, 0.0001)
}

func TestLogout_EndsSession(t *testing.T) {
	f := newFixture(t, 0)
	token, device := f.login(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/session", token, nil).Code)
	f.store.Get(device)

	rec := f.do(t, http.MethodPost, "/v1/session/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/v1/workspace", token, nil).Code)
}

func TestWrap_HidesInternalErrors(t *testing.T) {
	r := &Router{Deps: Deps{Logger: zap.NewNop()}}
	h := r.wrap(func(http.ResponseWriter, *http.Request) error {
		return errors.New("dial tcp 10.0.0.5:3306: connection refused")
	})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, "image/png", detectMIME("image/png", "x.bin", nil))
	assert.True(t, strings.HasPrefix(detectMIME("", "notes.txt", []byte("hi")), "text/plain"))
	assert.Equal(t, "image/png", detectMIME("application/octet-stream", "noext", pngHeader))
}
