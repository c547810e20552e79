// Package provision implements the bulk provisioning pipeline: record
// resolution, credential generation, per-device artifact emission,
// workbook composition and archive packaging.
package provision

import (
	"errors"
	"fmt"
)

// Record is one device to provision.
//
// Key names the artifact files. Number is the SIP/phone number written
// into the artifacts. Range requests use the raw sequence position for
// both; import requests use the IMEI for both; single requests key by
// IMEI but carry a separate phone number. The two addressing schemes
// are intentional and must stay distinct.
type Record struct {
	Key       string
	Number    string
	Name      string
	GroupCode string
	Seq       int
}

// ValidationError marks a request the caller can fix. The message is
// shown to the operator as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a request validation failure as
// opposed to an internal one.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
