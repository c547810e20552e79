package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sikt-tools/provgen/internal/provision"
)

type provisionAPI struct {
	logger *slog.Logger
	runner *provision.Runner
	store  provision.ArchiveStore
}

func newProvisionAPI(logger *slog.Logger, runner *provision.Runner, store provision.ArchiveStore) *provisionAPI {
	return &provisionAPI{
		logger: logger,
		runner: runner,
		store:  store,
	}
}

func (api *provisionAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /generate", api.handleGenerate)
	mux.HandleFunc("POST /generate/single", api.handleGenerateSingle)
	mux.HandleFunc("GET /download/{filename}", api.handleDownload)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("multiple JSON values")
	}
	return nil
}

func (api *provisionAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *provisionAPI) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	api.writeJSON(w, status, map[string]any{
		"error":      message,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

// writeFailure maps an error to a client or server error response.
func (api *provisionAPI) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	if provision.IsValidation(err) {
		api.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	api.logger.Error("request failed",
		"request_id", r.Header.Get("X-Request-Id"),
		"path", r.URL.Path,
		"error", err)
	api.writeError(w, r, http.StatusInternalServerError, err.Error())
}
