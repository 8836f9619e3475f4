package chi

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/citymatch/internal/domain"
)

// Error codes returned in ErrorResponse.Code.
const (
	codeBadRequest             = "bad_request"
	codeUnauthorized           = "unauthorized"
	codeValidationFailed       = "validation_failed"
	codeNotFound               = "not_found"
	codeMethodNotAllowed       = "method_not_allowed"
	codeVectorDimMismatch      = "vector_dim_mismatch"
	codeInvalidLimit           = "invalid_limit"
	codeInvalidLambda          = "invalid_lambda"
	codeInvalidDislikeWeight   = "invalid_dislike_weight"
	codeInvalidConfig          = "invalid_config"
	codeEmptyProfile           = "empty_profile"
	codeUnsupportedEncoding    = "unsupported_encoding"
	codeEmbeddingProviderError = "embedding_provider_error"
	codeStoreUnavailable       = "store_unavailable"
	codeInternalError          = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// clientSentinels are safe to echo back verbatim.
var clientSentinels = []error{
	domain.ErrNotFound,
	domain.ErrVectorDimMismatch,
	domain.ErrInvalidK,
	domain.ErrInvalidLambda,
	domain.ErrInvalidDislikeWeight,
	domain.ErrInvalidConfig,
	domain.ErrEmptyProfile,
	domain.ErrUnsupportedEncoding,
	domain.ErrEmbeddingProviderError,
	domain.ErrStoreUnavailable,
}

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeVectorDimMismatch),
		sentinelHandler(domain.ErrInvalidK, http.StatusBadRequest, codeInvalidLimit),
		sentinelHandler(domain.ErrInvalidLambda, http.StatusBadRequest, codeInvalidLambda),
		detailedHandler(domain.ErrInvalidDislikeWeight, http.StatusBadRequest, codeInvalidDislikeWeight),
		sentinelHandler(domain.ErrInvalidConfig, http.StatusBadRequest, codeInvalidConfig),
		sentinelHandler(domain.ErrEmptyProfile, http.StatusBadRequest, codeEmptyProfile),
		sentinelHandler(domain.ErrUnsupportedEncoding, http.StatusBadRequest, codeUnsupportedEncoding),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, s := range clientSentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// detailedHandler is a sentinelHandler that echoes the full error text.
// Only for errors built from request input, such as the offending category.
func detailedHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, _ string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
