package main

import (
	"net/http"

	"github.com/sikt-tools/provgen/internal/provision"
)

type singleRequest struct {
	Code      string `json:"code"`
	IMEI      string `json:"imei"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	Name      string `json:"name"`
	LastName  string `json:"last_name"`
}

// handleGenerateSingle provisions one handset and responds once the
// archive is stored. No streaming: a single record finishes fast.
func (api *provisionAPI) handleGenerateSingle(w http.ResponseWriter, r *http.Request) {
	var body singleRequest
	if err := decodeJSON(r, &body); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	record, err := provision.SingleRequest{
		Code:      body.Code,
		IMEI:      body.IMEI,
		Phone:     body.Phone,
		FirstName: body.FirstName,
		Name:      body.Name,
		LastName:  body.LastName,
	}.Resolve()
	if err != nil {
		api.writeFailure(w, r, err)
		return
	}

	job := provision.Job{
		Code:     record.GroupCode,
		Records:  []provision.Record{record},
		Filename: record.GroupCode + "_" + record.Key + ".zip",
	}
	token, filename, err := api.runner.RunSync(r.Context(), job)
	if err != nil {
		api.writeFailure(w, r, err)
		return
	}

	api.writeJSON(w, http.StatusOK, map[string]any{
		"complete":     true,
		"download_url": "/download/" + token,
		"filename":     filename,
	})
}
