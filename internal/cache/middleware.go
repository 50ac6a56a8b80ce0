package cache

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ResponsePrefix namespaces cached HTTP responses
const ResponsePrefix = "response:"

// Middleware caches successful JSON responses for the given POST routes,
// keyed by route and request body.
func (c *Cache) Middleware(routes ...string) gin.HandlerFunc {
	cached := make(map[string]bool, len(routes))
	for _, r := range routes {
		cached[r] = true
	}

	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodPost || !cached[ctx.FullPath()] {
			ctx.Next()
			return
		}

		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			ctx.Next()
			return
		}
		ctx.Request.Body = io.NopCloser(bytes.NewReader(body))

		cacheKey := ResponsePrefix + Key(ctx.FullPath(), string(body))

		if cachedData, found := c.Get(ctx.Request.Context(), cacheKey); found {
			ctx.Header("X-Cache", "HIT")
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", cachedData)
			ctx.Abort()
			return
		}

		ctx.Header("X-Cache", "MISS")
		wrapper := &responseWriter{ResponseWriter: ctx.Writer, body: &bytes.Buffer{}}
		ctx.Writer = wrapper
		ctx.Next()

		if wrapper.Status() == http.StatusOK && wrapper.body.Len() > 0 {
			c.Set(ctx.Request.Context(), cacheKey, wrapper.body.Bytes())
		}
	}
}

// responseWriter wraps gin.ResponseWriter to capture response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
