package httpserver

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/bryanwahyu/trustlayer/internal/application/workflow"
	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
	"github.com/bryanwahyu/trustlayer/internal/domain/chamber"
	"github.com/bryanwahyu/trustlayer/internal/domain/media"
	"github.com/bryanwahyu/trustlayer/internal/middleware"
)

// multipartOverhead is the slack allowed for boundaries and part headers.
const multipartOverhead = 1 << 20

func (r *Router) machine(req *http.Request) *workflow.Machine {
	return r.Workspaces.Get(middleware.GetDeviceFromContext(req.Context()))
}

// GET /v1/workspace
func (r *Router) handleWorkspace(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, r.machine(req).Snapshot())
}

// POST /v1/workspace/chamber
// Body: {"chamber_id": "image_auth"}
func (r *Router) handleSelectChamber(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		ChamberID string `json:"chamber_id"`
	}
	if err := decodeJSON(req, &body); err != nil {
		return err
	}
	if err := middleware.ValidateChamberID(body.ChamberID); err != nil {
		return badRequest{msg: err.Error()}
	}
	snap, err := r.machine(req).SelectChamber(chamber.ID(body.ChamberID))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, snap)
}

// POST /v1/workspace/analyze (multipart, field "file")
// Answers 202 with the Analyzing snapshot; ?wait=true blocks for the outcome.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	limit := r.MaxUploadBytes + multipartOverhead
	if req.ContentLength > limit {
		return &http.MaxBytesError{Limit: limit}
	}
	req.Body = http.MaxBytesReader(w, req.Body, limit)
	if err := req.ParseMultipartForm(r.MaxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return tooBig
		}
		return badRequest{msg: "expected multipart form with a file field"}
	}
	defer req.MultipartForm.RemoveAll()

	file, header, err := req.FormFile("file")
	if err != nil {
		return badRequest{msg: "file is required"}
	}
	defer file.Close()
	if header.Size > r.MaxUploadBytes {
		return &http.MaxBytesError{Limit: r.MaxUploadBytes}
	}

	data, err := io.ReadAll(io.LimitReader(file, r.MaxUploadBytes+1))
	if err != nil {
		return err
	}
	if int64(len(data)) > r.MaxUploadBytes {
		return &http.MaxBytesError{Limit: r.MaxUploadBytes}
	}

	upload := analysis.Upload{
		Name:     filepath.Base(header.Filename),
		MIMEType: detectMIME(header.Header.Get("Content-Type"), header.Filename, data),
		Data:     data,
	}

	m := r.machine(req)
	done, err := m.Start(req.Context(), upload)
	if err != nil {
		return err
	}

	if wait, _ := strconv.ParseBool(req.URL.Query().Get("wait")); wait {
		select {
		case snap, ok := <-done:
			if ok {
				return writeJSON(w, http.StatusOK, snap)
			}
			return writeJSON(w, http.StatusOK, m.Snapshot())
		case <-req.Context().Done():
			return req.Context().Err()
		}
	}
	return writeJSON(w, http.StatusAccepted, m.Snapshot())
}

// detectMIME trusts the part header unless it is empty or generic.
func detectMIME(header, filename string, data []byte) string {
	if header != "" && header != "application/octet-stream" {
		return header
	}
	return media.Sniff(filename, data)
}

// POST /v1/workspace/reset
func (r *Router) handleReset(w http.ResponseWriter, req *http.Request) error {
	snap, err := r.machine(req).Reset()
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, snap)
}

// POST /v1/workspace/dashboard
func (r *Router) handleDashboard(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, r.machine(req).ReturnToDashboard())
}

// GET /v1/workspace/safety?located=true
func (r *Router) handleSafety(w http.ResponseWriter, req *http.Request) error {
	snap := r.machine(req).Snapshot()
	if snap.State != workflow.StateComplete || snap.Result == nil || snap.Chamber == nil {
		return analysis.NewValidationError("No completed analysis to report on.")
	}
	located, _ := strconv.ParseBool(req.URL.Query().Get("located"))
	panel, err := r.Reports.Build(req.Context(), snap.Result, snap.Chamber.ID, located)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, panel)
}
