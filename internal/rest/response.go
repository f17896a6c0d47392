package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/omnistore/ledger-service/internal/apperror"
)

var statusByKind = map[apperror.Kind]int{
	apperror.KindNotFound:             http.StatusNotFound,
	apperror.KindInsufficientStock:    http.StatusConflict,
	apperror.KindInvalidTransition:    http.StatusConflict,
	apperror.KindAlreadyInspected:     http.StatusConflict,
	apperror.KindPendingInspection:    http.StatusConflict,
	apperror.KindDuplicateReturnClaim: http.StatusConflict,
	apperror.KindExpiredReturnWindow:  http.StatusUnprocessableEntity,
	apperror.KindValidationFailure:    http.StatusBadRequest,
	apperror.KindUnavailable:          http.StatusServiceUnavailable,
}

// Error writes a typed domain failure as its HTTP equivalent. Untyped errors
// are treated as internal.
func Error(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": string(kind)})
}

// BadRequest reports a malformed request body or parameter.
func BadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
