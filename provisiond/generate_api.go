package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sikt-tools/provgen/internal/provision"
)

// generateRequest is the canonical bulk request, regardless of
// whether it arrived as multipart form data or JSON.
type generateRequest struct {
	code      string
	start     int64
	end       int64
	roleNames []string

	// imported is set for import-file requests; records then carries
	// the already validated rows.
	imported bool
	records  []provision.Record
}

func (req generateRequest) job() (provision.Job, error) {
	if req.imported {
		name := "generated_files_import.zip"
		if req.code != "" {
			name = "generated_files_" + req.code + ".zip"
		}
		return provision.Job{Code: req.code, Records: req.records, Filename: name}, nil
	}
	records, err := provision.RangeRequest{
		Code:      req.code,
		Start:     req.start,
		End:       req.end,
		RoleNames: req.roleNames,
	}.Resolve()
	if err != nil {
		return provision.Job{}, err
	}
	return provision.Job{
		Code:     req.code,
		Records:  records,
		Filename: fmt.Sprintf("generated_files_%s_%d-%d.zip", req.code, req.start, req.end),
	}, nil
}

func parseGenerateRequest(r *http.Request) (generateRequest, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return parseGenerateForm(r)
	}

	var body struct {
		Code  string `json:"code"`
		Start int64  `json:"start"`
		End   int64  `json:"end"`
	}
	if err := decodeJSON(r, &body); err != nil {
		return generateRequest{}, &provision.ValidationError{Message: provision.MsgFillAllFields}
	}
	return generateRequest{
		code:  strings.ToLower(strings.TrimSpace(body.Code)),
		start: body.Start,
		end:   body.End,
	}, nil
}

func parseGenerateForm(r *http.Request) (generateRequest, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return generateRequest{}, &provision.ValidationError{Message: provision.MsgFillAllFields}
	}
	req := generateRequest{
		code: strings.ToLower(strings.TrimSpace(r.FormValue("code"))),
	}
	// The code names the workbook and archive; import requests never
	// pass a resolver, so check it here.
	if req.code != "" && !provision.ValidGroupCode(req.code) {
		return generateRequest{}, &provision.ValidationError{Message: "Ugyldig kode."}
	}

	if file, _, err := r.FormFile("importFile"); err == nil {
		defer file.Close()
		records, err := provision.ParseImportRows(file)
		if err != nil {
			return generateRequest{}, err
		}
		req.imported = true
		req.records = records
		return req, nil
	}

	var err error
	if req.start, err = parseFormInt(r, "start"); err != nil {
		return generateRequest{}, err
	}
	if req.end, err = parseFormInt(r, "end"); err != nil {
		return generateRequest{}, err
	}

	if file, _, err := r.FormFile("roleFile"); err == nil {
		defer file.Close()
		names, err := provision.ParseRoleNames(file)
		if err != nil {
			return generateRequest{}, err
		}
		req.roleNames = names
	}
	return req, nil
}

func parseFormInt(r *http.Request, field string) (int64, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0, &provision.ValidationError{Message: provision.MsgFillAllFields}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &provision.ValidationError{Message: provision.MsgFillAllFields}
	}
	return v, nil
}

// handleGenerate validates the request synchronously, then streams
// progress as server-sent events: zero or more progress frames and
// exactly one terminal frame (complete or error).
func (api *provisionAPI) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, err := parseGenerateRequest(r)
	if err != nil {
		api.writeFailure(w, r, err)
		return
	}
	job, err := req.job()
	if err != nil {
		api.writeFailure(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.writeError(w, r, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range api.runner.Run(r.Context(), job) {
		switch ev.Kind {
		case provision.EventProgress:
			_ = writeSSE(w, map[string]any{"progress": ev.Progress})
		case provision.EventCompleted:
			_ = writeSSE(w, map[string]any{
				"complete":     true,
				"download_url": "/download/" + ev.Token,
				"filename":     ev.Filename,
			})
		case provision.EventFailed:
			_ = writeSSE(w, map[string]any{"error": ev.Err.Error()})
		}
	}
}

func writeSSE(w http.ResponseWriter, payload any) error {
	blob, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", blob); err != nil {
		return err
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}
