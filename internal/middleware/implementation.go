package middleware

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"slices"
	"strings"

	"github.com/akolanti/DocVault/internal/adapter/utils"
	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/handlers"
	"github.com/akolanti/DocVault/pkg/logger_i"
)

const DepartmentHeader = "X-Department"

func injectTrace(re requestResponseStruct) requestResponseStruct {
	req := re.req
	if req == nil {
		//this is a bad request
		re.badRequest.httpCode = http.StatusBadRequest
		re.badRequest.errorMessage = "request is empty"
		re.badRequest.isBadRequest = true
		return re
	}
	trace := req.Header.Get("X-Trace-Id")
	if trace == "" {
		trace = utils.GetNewUUID()
	}
	re.logger = re.logger.With("traceId", trace)
	ctx := context.WithValue(req.Context(), config.TRACE_ID_KEY, trace)
	req.Header.Set(`X-Trace-Id`, trace)
	re.writer.Header().Set(`X-Trace-Id`, trace)
	re.req = req.WithContext(ctx)

	re.logger.Debug("trace middleware injected")
	return re
}

func (c *Chain) authenticate(re requestResponseStruct) requestResponseStruct {
	if !IsValidBearerToken(re.req.Header.Get("Authorization"), c.opts, re.logger) {
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusUnauthorized,
			errorMessage: "Unauthorized",
		}
		return re
	}
	return re
}

func IsValidBearerToken(authHeader string, opts Options, log *logger_i.Logger) bool {
	if opts.NoAuthBypass {
		log.Warn("Authentication bypassed")
		return true
	}
	if opts.AuthToken == "" {
		log.Error("No auth token configured, rejecting every request")
		return false
	}
	if authHeader == "" {
		log.Warn("Empty authorization header")
		return false
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		log.Warn("No Bearer header")
		return false
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(authHeader, "Bearer ")), []byte(opts.AuthToken)) != 1 {
		log.Warn("Invalid authorization header")
		return false
	}

	return true
}

// claimDepartment reads the department set by the identity proxy. No header
// means an anonymous caller that only sees public documents.
func (c *Chain) claimDepartment(re requestResponseStruct) requestResponseStruct {
	dept := strings.TrimSpace(re.req.Header.Get(DepartmentHeader))
	if dept == "" {
		return re
	}
	if !slices.Contains(c.opts.Departments, dept) {
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusForbidden,
			errorMessage: "unknown department",
		}
		return re
	}
	re.logger = re.logger.With("department", dept)
	re.req = re.req.WithContext(context.WithValue(re.req.Context(), config.DEPARTMENT_KEY, dept))
	return re
}

func (c *Chain) rateLimiter(re requestResponseStruct) requestResponseStruct {
	ip, _, err := net.SplitHostPort(re.req.RemoteAddr)
	if err != nil {
		ip = re.req.RemoteAddr
	}

	if !c.limiter.Allow(ip) {
		re.logger.Warn("Too many requests", "ip", ip)
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusTooManyRequests,
			errorMessage: "Rate limit exceeded",
		}
		return re
	}
	return re
}

func handleBadRequest(re requestResponseStruct) {
	remote := ""
	if re.req != nil {
		remote = re.req.RemoteAddr
	}
	re.logger.Warn("Bad request", "httpCode", re.badRequest.httpCode, "errorMessage", re.badRequest.errorMessage, "IP", remote)
	handlers.WriteErrorResponse(re.writer, re.badRequest.httpCode, "", re.badRequest.errorMessage)
}
