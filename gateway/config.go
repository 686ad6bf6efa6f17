package gateway

import (
	"fmt"
	"time"

	"github.com/c360/seisgate/errors"
)

// Defaults applied by Validate when a field is unset.
const (
	DefaultBindAddress      = ":8080"
	DefaultReadTimeout      = 30 * time.Second
	DefaultIdleTimeout      = 60 * time.Second
	DefaultShutdownTimeout  = 30 * time.Second
	DefaultMaxRequestBytes  = 1 << 20 // 1 MiB of POST selector lines
	DefaultDocumentationURI = "https://www.fdsn.org/webservices/"
)

// Config holds the HTTP front-end settings.
type Config struct {
	// BindAddress is the listen address, e.g. ":8080".
	BindAddress string `json:"bind_address"`

	// ReadTimeout bounds reading the request headers and body.
	ReadTimeout time.Duration `json:"read_timeout"`

	// IdleTimeout bounds how long a keep-alive connection may sit idle.
	IdleTimeout time.Duration `json:"idle_timeout"`

	// ShutdownTimeout bounds graceful drain on Stop.
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`

	// MaxRequestBytes caps the POST body size. Bodies beyond the cap are
	// rejected with 413 before parsing.
	MaxRequestBytes int64 `json:"max_request_bytes"`

	// EnableCORS toggles cross-origin headers on all endpoints.
	EnableCORS bool `json:"enable_cors"`

	// CORSOrigins lists the allowed origins. Empty means allow any origin
	// when CORS is enabled.
	CORSOrigins []string `json:"cors_origins,omitempty"`

	// DocumentationURI is referenced from error bodies.
	DocumentationURI string `json:"documentation_uri"`
}

// Validate applies defaults to unset fields and rejects unusable values.
func (c *Config) Validate() error {
	if c.BindAddress == "" {
		c.BindAddress = DefaultBindAddress
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.MaxRequestBytes == 0 {
		c.MaxRequestBytes = DefaultMaxRequestBytes
	}
	if c.DocumentationURI == "" {
		c.DocumentationURI = DefaultDocumentationURI
	}

	if c.ReadTimeout < 0 || c.IdleTimeout < 0 || c.ShutdownTimeout < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Config", "Validate", "timeouts must not be negative")
	}
	if c.MaxRequestBytes < 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: max_request_bytes must not be negative, got %d",
			errors.ErrInvalidConfig, c.MaxRequestBytes),
			"Config", "Validate", "request size limit")
	}
	if c.EnableCORS && len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	return nil
}
