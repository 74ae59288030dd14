package core

import (
	"github.com/node-pkgs/pkgtree/client"
)

// Type aliases so internal packages can share the client surface.
type (
	RateLimiter    = client.RateLimiter
	Client         = client.Client
	Option         = client.Option
	HTTPError      = client.HTTPError
	RateLimitError = client.RateLimitError
)

// Function aliases.
var (
	DefaultClient  = client.DefaultClient
	NewClient      = client.NewClient
	WithTimeout    = client.WithTimeout
	WithMaxRetries = client.WithMaxRetries
)
