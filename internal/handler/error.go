package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/DukeRupert/dealroom/internal/domain"
)

// ErrorResponse maps a domain error to its HTTP status and writes it as a
// JSON envelope for API callers or plain text for browsers. Internal details
// never reach the body.
func ErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)
	logError(logger, r, err, code, domain.ErrorOp(err), status)

	message := domain.ErrorMessage(err)
	if acceptsJSON(r) {
		var body JSONError
		body.Error.Code = code
		body.Error.Message = message
		writeJSON(w, status, body)
		return
	}
	http.Error(w, message, status)
}

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// UpgradeResponse answers a request the viewer's membership does not cover.
// API clients get a 402 carrying the upgrade location; browsers are
// redirected to it.
func UpgradeResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, location string) {
	if !acceptsJSON(r) {
		logger.Info("upgrade required", "path", r.URL.Path, "location", location)
		http.Redirect(w, r, location, http.StatusSeeOther)
		return
	}

	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)
	logError(logger, r, err, code, domain.ErrorOp(err), status)

	var body JSONError
	body.Error.Code = code
	body.Error.Message = domain.ErrorMessage(err)
	body.Error.UpgradeURL = location
	writeJSON(w, status, body)
}

// UnauthorizedResponse writes a 401 for a request with no signed-in viewer.
func UnauthorizedResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	ErrorResponse(w, r, logger, domain.Unauthorized("", "Authentication required"))
}

// 5xx is logged as an error, 4xx as info.
func logError(logger *slog.Logger, r *http.Request, err error, code, op string, status int) {
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
	}
	if op != "" {
		attrs = append(attrs, "op", op)
	}

	if status >= 500 {
		logger.Error("server error", attrs...)
	} else if status >= 400 {
		logger.Info("client error", attrs...)
	}
}

// acceptsJSON reports whether the caller should get a JSON body. Everything
// under /api/ does, as does any request that sent or asked for JSON.
func acceptsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// JSONError is the error envelope of the JSON API.
type JSONError struct {
	Error struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		UpgradeURL string `json:"upgrade_url,omitempty"`
	} `json:"error"`
}
