package middleware

import (
	"net/http"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gin-gonic/gin"
)

type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           string // seconds
}

type corsPolicy struct {
	anyOrigin bool
	origins   mapset.Set[string]
	headers   http.Header // fixed headers for every allowed origin
	preflight http.Header // extra headers for preflight replies
	echo      bool        // reflect Origin instead of "*"
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		origins:   mapset.NewThreadUnsafeSet[string](),
		headers:   http.Header{},
		preflight: http.Header{},
	}
	for _, origin := range cfg.AllowedOrigins {
		origin = strings.ToLower(strings.TrimSpace(origin))
		switch origin {
		case "":
		case "*":
			p.anyOrigin = true
		default:
			p.origins.Add(origin)
		}
	}
	// A literal "*" is not valid together with credentials.
	p.echo = !p.anyOrigin || cfg.AllowCredentials

	p.headers.Set("Access-Control-Expose-Headers", strings.Join(append([]string{TraceIDHeader}, cfg.ExposedHeaders...), ","))
	if cfg.AllowCredentials {
		p.headers.Set("Access-Control-Allow-Credentials", "true")
	}
	if len(cfg.AllowedMethods) > 0 {
		p.preflight.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ","))
	}
	if len(cfg.AllowedHeaders) > 0 {
		p.preflight.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ","))
	}
	if cfg.MaxAge != "" {
		p.preflight.Set("Access-Control-Max-Age", cfg.MaxAge)
	}
	return p
}

func (p *corsPolicy) allows(origin string) bool {
	if p.anyOrigin {
		return true
	}
	return p.origins.Contains(strings.ToLower(origin))
}

// CORSMiddleware lets the browser editor call the API from another origin.
func CORSMiddleware(cfg CORSConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	policy := newCORSPolicy(cfg)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		h := c.Writer.Header()
		h.Add("Vary", "Origin")
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""

		if !policy.allows(origin) {
			if preflight {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		if policy.echo {
			h.Set("Access-Control-Allow-Origin", origin)
		} else {
			h.Set("Access-Control-Allow-Origin", "*")
		}
		for k, v := range policy.headers {
			h[k] = v
		}
		if preflight {
			for k, v := range policy.preflight {
				h[k] = v
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
