package api

import (
	"github.com/okian/pairup/pkg/logger"
	"golang.org/x/time/rate"
)

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRateLimit limits join and match requests to rps with the given burst.
// rps <= 0 disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}
