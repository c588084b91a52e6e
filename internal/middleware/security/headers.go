package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeadersConfig holds response header settings for the JSON API
type HeadersConfig struct {
	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string

	// AllowedOrigins for CORS. "*" allows any origin.
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// DefaultHeadersConfig allows browser front-ends on any origin, the same as
// json-server does.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "strict-origin-when-cross-origin",
		AllowedOrigins:      []string{"*"},
		AllowedMethods:      []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:      []string{"Content-Type", "X-Request-ID"},
	}
}

// Headers sets security and CORS headers and answers preflight requests.
func Headers(cfg HeadersConfig) gin.HandlerFunc {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", cfg.XFrameOptions)
		h.Set("X-Content-Type-Options", cfg.XContentTypeOptions)
		h.Set("Referrer-Policy", cfg.ReferrerPolicy)

		if origin := c.GetHeader("Origin"); origin != "" {
			if allowed := allowOrigin(cfg.AllowedOrigins, origin); allowed != "" {
				h.Set("Access-Control-Allow-Origin", allowed)
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				h.Add("Vary", "Origin")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func allowOrigin(allowed []string, origin string) string {
	for _, o := range allowed {
		if o == "*" {
			return "*"
		}
		if strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}
