// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for transport-level failures.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Mapping binds a domain error to a problem response.
type Mapping struct {
	Target error
	Status int
	Title  string
	Code   string
}

var defaultMappings = []Mapping{
	{Target: ErrNotFound, Status: http.StatusNotFound, Title: "Not Found", Code: "NOT_FOUND"},
	{Target: ErrDuplicate, Status: http.StatusConflict, Title: "Duplicate", Code: "DUPLICATE"},
	{Target: ErrValidation, Status: http.StatusBadRequest, Title: "Validation Failed", Code: "VALIDATION_FAILED"},
	{Target: ErrForbidden, Status: http.StatusForbidden, Title: "Forbidden", Code: "FORBIDDEN"},
	{Target: ErrUnauthorized, Status: http.StatusUnauthorized, Title: "Unauthorized", Code: "UNAUTHORIZED"},
}

// RespondError maps transport errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	RespondMapped(w, err, nil)
}

// RespondMapped checks the domain mappings first, then the transport
// defaults. Unmapped errors become an opaque 500.
func RespondMapped(w http.ResponseWriter, err error, mappings []Mapping) {
	for _, set := range [][]Mapping{mappings, defaultMappings} {
		for _, m := range set {
			if errors.Is(err, m.Target) {
				writeProblem(w, m.Status, m.Title, m.Code, err.Error())
				return
			}
		}
	}
	writeProblem(w, http.StatusInternalServerError, "Internal Error", "INTERNAL", "")
}
