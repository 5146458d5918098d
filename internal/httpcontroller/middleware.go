package httpcontroller

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/ecovision/mantaview/internal/errors"
	"github.com/ecovision/mantaview/internal/logger"
	"github.com/ecovision/mantaview/internal/mutation"
	"github.com/ecovision/mantaview/internal/session"
)

const (
	sessionContextKey  = "session"
	rateLimiterExpires = 3 * time.Minute
)

// configureMiddleware sets up middleware for the server.
func (s *Server) configureMiddleware() {
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString()[:8] },
	}))
	s.Echo.Use(s.AccessLogMiddleware())
	if s.metrics != nil {
		s.Echo.Use(s.MetricsMiddleware())
	}
	if limit := s.Settings.WebServer.BodyLimit; limit != "" {
		s.Echo.Use(middleware.BodyLimit(limit))
	}
	s.Echo.Use(s.GzipMiddleware())
	s.Echo.Use(s.CacheControlMiddleware())
}

// AccessLogMiddleware writes one access log entry per request.
func (s *Server) AccessLogMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			s.access.Info("request",
				logger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				logger.String("method", req.Method),
				logger.String("path", req.URL.Path),
				logger.String("query", req.URL.RawQuery),
				logger.Int("status", c.Response().Status),
				logger.Int64("bytes", c.Response().Size),
				logger.Duration("latency", time.Since(start)),
				logger.String("ip", c.RealIP()))
			return nil
		}
	}
}

// MetricsMiddleware observes request count and latency per route.
func (s *Server) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if err != nil && errors.As(err, &he) {
				status = he.Code
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			s.metrics.HTTP.RecordRequest(c.Request().Method, path, status, time.Since(start))
			return err
		}
	}
}

// GzipMiddleware compresses responses larger than a couple of kilobytes.
func (s *Server) GzipMiddleware() echo.MiddlewareFunc {
	return middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     6,
		MinLength: 2048,
		Skipper: func(c echo.Context) bool {
			return c.Path() == s.metricsPath()
		},
	})
}

// CacheControlMiddleware marks every dynamic response as uncacheable.
func (s *Server) CacheControlMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			if strings.HasPrefix(c.Request().URL.Path, "/api/") {
				h.Set("Cache-Control", "no-store")
				h.Set("Pragma", "no-cache")
				h.Set("Expires", "0")
			} else {
				h.Set("Cache-Control", "no-cache")
			}
			return next(c)
		}
	}
}

// RateLimitMiddleware throttles API requests per client address.
func (s *Server) RateLimitMiddleware() echo.MiddlewareFunc {
	cfg := s.Settings.WebServer.RateLimit
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/api/v1/health"
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.RequestsPerSecond),
				Burst:     cfg.Burst,
				ExpiresIn: rateLimiterExpires,
			},
		),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return s.HandleError(c, err, "Could not identify client", http.StatusForbidden)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return s.HandleError(c, err, "Rate limit exceeded, please wait before trying again", http.StatusTooManyRequests)
		},
	})
}

// SessionMiddleware resolves the visitor's session from its cookie,
// starting one when needed, and tags the request context with its id.
func (s *Server) SessionMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			sess, err := s.Sessions.FromRequest(req.Context(), c.Response(), req)
			if err != nil {
				return s.handleServiceError(c, err, "Failed to load encounter data")
			}
			c.Set(sessionContextKey, sess)
			c.SetRequest(req.WithContext(mutation.WithSessionID(req.Context(), sess.ID)))
			return next(c)
		}
	}
}

func currentSession(c echo.Context) *session.Session {
	sess, _ := c.Get(sessionContextKey).(*session.Session)
	return sess
}
