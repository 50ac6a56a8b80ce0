package security

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/blc-o-meter/internal/errors"
)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	MaxInputLength int           `json:"max_input_length"`
	MaxBodyBytes   int64         `json:"max_body_bytes"`
	AllowedOrigins []string      `json:"allowed_origins"`
	RequestTimeout time.Duration `json:"request_timeout"`
	CollectTimeout time.Duration `json:"collect_timeout"`
	EnableHSTS     bool          `json:"enable_hsts"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxInputLength: 200,
		MaxBodyBytes:   8 << 20,
		AllowedOrigins: []string{"*"},
		RequestTimeout: 30 * time.Second,
		CollectTimeout: 3 * time.Minute,
	}
}

// SecurityMiddleware bundles the request hardening applied to the API
type SecurityMiddleware struct {
	config SecurityConfig
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	defaults := DefaultSecurityConfig()
	if config.MaxInputLength <= 0 {
		config.MaxInputLength = defaults.MaxInputLength
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = defaults.AllowedOrigins
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	if config.CollectTimeout <= 0 {
		config.CollectTimeout = defaults.CollectTimeout
	}
	return &SecurityMiddleware{config: config}
}

// Config returns the effective configuration
func (sm *SecurityMiddleware) Config() SecurityConfig {
	return sm.config
}

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
)

// SanitizeChannelInput trims a channel reference, strips markup and
// collapses inner whitespace
func (sm *SecurityMiddleware) SanitizeChannelInput(input string) string {
	input = strings.TrimSpace(input)
	input = htmlTagPattern.ReplaceAllString(input, "")
	return whitespacePattern.ReplaceAllString(input, " ")
}

// ValidateChannelInput rejects channel references that cannot be a handle,
// id, name or youtube.com URL
func (sm *SecurityMiddleware) ValidateChannelInput(input string) error {
	if input == "" {
		return apperrors.NewValidationError("channel is required", "field", "channel")
	}
	if len(input) > sm.config.MaxInputLength {
		return apperrors.NewValidationError(
			fmt.Sprintf("channel exceeds maximum length of %d characters", sm.config.MaxInputLength),
			"field", "channel")
	}
	if !utf8.ValidString(input) {
		return apperrors.NewValidationError("channel contains invalid UTF-8 encoding", "field", "channel")
	}
	for _, r := range input {
		if r < 0x20 || r == 0x7f {
			return apperrors.NewValidationError("channel contains invalid characters", "field", "channel")
		}
	}
	if strings.Contains(strings.ToLower(input), "javascript:") {
		return apperrors.NewValidationError("channel contains suspicious patterns", "field", "channel")
	}
	return nil
}

// swaggerCSP lets the bundled Swagger UI load its own scripts and styles
const swaggerCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; frame-ancestors 'none'"

// SecurityHeaders adds security headers to responses
func (sm *SecurityMiddleware) SecurityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("X-XSS-Protection", "1; mode=block")
	c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
	if strings.HasPrefix(c.Request.URL.Path, "/swagger/") {
		c.Header("Content-Security-Policy", swaggerCSP)
	} else {
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
	}

	if sm.config.EnableHSTS || c.Request.TLS != nil {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}

	c.Next()
}

// ValidateContentType requires JSON on requests that carry a body
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	if c.Request.ContentLength == 0 {
		c.Next()
		return
	}

	contentType := strings.ToLower(c.GetHeader("Content-Type"))
	if contentType != "" && !strings.Contains(contentType, "application/json") {
		c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
			"error":   "UNSUPPORTED_MEDIA_TYPE",
			"message": "request body must be application/json",
		})
		return
	}

	c.Next()
}

// LimitBody caps the request body size
func (sm *SecurityMiddleware) LimitBody(c *gin.Context) {
	if c.Request.ContentLength > sm.config.MaxBodyBytes {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":   "PAYLOAD_TOO_LARGE",
			"message": fmt.Sprintf("request body exceeds %d bytes", sm.config.MaxBodyBytes),
		})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sm.config.MaxBodyBytes)
	c.Next()
}

// RequestTimeout bounds the request context by the default timeout
func (sm *SecurityMiddleware) RequestTimeout() gin.HandlerFunc {
	return Timeout(sm.config.RequestTimeout)
}

// CollectTimeout bounds the request context for YouTube-backed routes
func (sm *SecurityMiddleware) CollectTimeout() gin.HandlerFunc {
	return Timeout(sm.config.CollectTimeout)
}

// Timeout replaces the request context with one that expires after d
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Timeout", strconv.Itoa(int(d.Seconds())))

		c.Next()
	}
}

// CORS returns the CORS handler for the configured origins
func (sm *SecurityMiddleware) CORS() gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Cache", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}

	if len(sm.config.AllowedOrigins) == 1 && sm.config.AllowedOrigins[0] == "*" {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = sm.config.AllowedOrigins
		config.AllowCredentials = true
	}

	return cors.New(config)
}
