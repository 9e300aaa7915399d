package cache

import (
	"bytes"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CacheMiddleware serves GET requests from store and records successful
// responses keyed by the request path. The query string is ignored, so it
// only fits routes that take no query. A nil store disables caching.
func CacheMiddleware(store *Store, maxAge time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || maxAge <= 0 || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.URL.Path
		if contentType, body, found := store.Read(key, maxAge); found {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, contentType, body)
			c.Abort()
			return
		}

		c.Header("X-Cache", "MISS")

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBuffer(nil),
		}
		c.Writer = writer

		c.Next()

		if writer.Status() == http.StatusOK && writer.body.Len() > 0 {
			contentType := writer.Header().Get("Content-Type")
			if err := store.Write(key, contentType, writer.body.Bytes()); err != nil {
				log.Printf("Error writing cache for %s: %v", key, err)
			}
		}
	}
}
