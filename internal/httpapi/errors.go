// Package httpapi is the thin adapter over Engine operations spec.md §6
// describes as out of scope for the core but enumerates the HTTP table
// for. Grounded on the teacher's gin handler/middleware/routes layout
// (internal/handler, internal/middleware, internal/routes), reworked
// from JWT cookie auth + per-user ownership checks to the single shared
// x-api-key header spec.md §6 names, since this is a single-user service.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/didac-crst/mockexchange-api/internal/apperr"
)

// writeError is the central apperr-to-HTTP-status mapper, generalizing
// original_source/scripts/server.py's `_try` helper (which caught
// specific exception types per route and mapped them to status codes)
// into one dispatch keyed on apperr.Kind.
func writeError(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch ae.Kind {
	case apperr.UnknownSymbol, apperr.NotFound:
		status = http.StatusNotFound
	case apperr.InvalidArgument:
		status = http.StatusBadRequest
	case apperr.InsufficientFunds, apperr.Conflict:
		status = http.StatusConflict
	case apperr.StaleTicker:
		status = http.StatusServiceUnavailable
	case apperr.Transient:
		status = http.StatusBadGateway
	case apperr.IllegalTransition, apperr.Fatal:
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": ae.Error(), "kind": string(ae.Kind)})
}
