package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/metrics"
	"github.com/akolanti/DocVault/pkg/logger_i"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

type Options struct {
	AuthToken    string
	NoAuthBypass bool
	// Departments is the closed list a department claim must belong to.
	Departments []string
	RateLimit   float64
	RateBurst   int
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		AuthToken:    cfg.Server.AuthToken,
		NoAuthBypass: cfg.Server.NoAuthBypass,
		Departments:  cfg.Access.Departments,
		RateLimit:    cfg.Server.RateLimit,
		RateBurst:    cfg.Server.RateBurst,
	}
}

// Chain runs every request through trace injection, rate limiting,
// authentication and the department claim, in that order.
type Chain struct {
	opts    Options
	limiter *IPRateLimiter
	logger  *logger_i.Logger
}

func New(opts Options) *Chain {
	if opts.RateLimit <= 0 {
		opts.RateLimit = config.RATE_LIMIT_PER_SECOND
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = config.BURST_RATE_LIMIT_PER_SECOND
	}
	return &Chain{
		opts:    opts,
		limiter: NewIPRateLimiter(rate.Limit(opts.RateLimit), opts.RateBurst, config.RateLimiterIdleTTL),
		logger:  logger_i.NewLogger("middleware"),
	}
}

func (c *Chain) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200} //metrics
		re := c.processRequest(requestResponseStruct{req: r, writer: rec})

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
		} else {
			next(rec, re.req)
		}

		metrics.HttpRequestsTotal.WithLabelValues(routeLabel(re.req), strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

// Handler wraps a plain http.Handler, used for mounted sub handlers.
func (c *Chain) Handler(next http.Handler) http.Handler {
	return c.Wrap(next.ServeHTTP)
}

func (c *Chain) processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = c.logger
	steps := []func(requestResponseStruct) requestResponseStruct{
		injectTrace,
		c.rateLimiter,
		c.authenticate,
		c.claimDepartment,
	}
	for _, step := range steps {
		re = step(re)
		if re.badRequest.isBadRequest {
			return re
		}
	}
	re.logger.Debug("Request accepted", "method", re.req.Method, "path", re.req.URL.Path)
	return re
}

// routeLabel keeps the metric cardinality bounded by using the route pattern.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
