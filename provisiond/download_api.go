package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/sikt-tools/provgen/internal/provision"
)

// handleDownload serves a stored archive exactly once. The archive is
// removed after a successful transfer, so a second request for the
// same token gets 404.
func (api *provisionAPI) handleDownload(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("filename")
	if !provision.ValidToken(token) {
		api.writeError(w, r, http.StatusBadRequest, "Ugyldig filnavn.")
		return
	}
	display, ok := provision.SafeDisplayName(r.URL.Query().Get("name"), token)
	if !ok {
		api.writeError(w, r, http.StatusBadRequest, "Ugyldig filnavn.")
		return
	}

	rc, size, err := api.store.Open(r.Context(), token)
	if err != nil {
		if errors.Is(err, provision.ErrArchiveNotFound) {
			api.writeError(w, r, http.StatusNotFound, "Filen finnes ikke eller er allerede lastet ned.")
			return
		}
		api.writeFailure(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+display+`"`)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		// The response is underway; keep the archive for a retry.
		api.logger.Warn("download interrupted", "token", token, "error", err)
		return
	}

	// One-shot: drop the archive even if the client went away after the
	// last byte, hence the fresh context.
	if err := api.store.Remove(context.Background(), token); err != nil {
		api.logger.Warn("archive cleanup failed", "token", token, "error", err)
	}
}
