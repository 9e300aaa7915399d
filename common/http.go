package common

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"pressroom/content"
)

// SessionUserKey is the session field holding the signed-in user id.
const SessionUserKey = "user_id"

// SessionUserID returns the user id stored in the request session.
func SessionUserID(c *gin.Context) (uint, bool) {
	switch v := sessions.Default(c).Get(SessionUserKey).(type) {
	case uint:
		return v, v != 0
	case int:
		return uint(v), v > 0
	case int64:
		return uint(v), v > 0
	case uint64:
		return uint(v), v != 0
	}
	return 0, false
}

// RespondError writes the JSON error for err and aborts the request.
func RespondError(c *gin.Context, err error) {
	var verr *content.ValidationError
	var dup *content.DuplicateSlugError

	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.As(err, &dup):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": dup.Error(), "field": "slug"})
	case errors.Is(err, content.ErrNotFound), errors.Is(err, content.ErrParentNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, content.ErrCommentsDisabled):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, content.ErrDuplicateSubscription):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, content.ErrStorageUnavailable):
		log.Printf("storage unavailable on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "storage temporarily unavailable"})
	default:
		log.Printf("unexpected error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// BadRequest reports a request body or query that could not be bound.
func BadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
