package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
)

// errorBody is the uniform HTTP error envelope (spec §6: "Error body
// { code: number, message: string }").
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response, logging (but not surfacing) any
// encoding failure — mirrors the teacher's handlers.WriteJSON.
func writeJSON(w http.ResponseWriter, logger *zap.Logger, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to write json response", zap.Error(err))
	}
}

// writeError maps err's apperrors.Kind to an HTTP status per spec §7's
// table and writes the uniform { code, message } envelope.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := statusFor(apperrors.KindOf(err))
	writeJSON(w, logger, status, errorBody{Code: status, Message: err.Error()})
}

func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindBadRequest:
		return http.StatusBadRequest
	case apperrors.KindFrozenConfig:
		return http.StatusForbidden
	case apperrors.KindProjectNotFound, apperrors.KindPackageNotFound, apperrors.KindModelNotFound, apperrors.KindConnectionNotFound:
		return http.StatusNotFound
	case apperrors.KindModelCompilation:
		return http.StatusFailedDependency
	case apperrors.KindMalloy:
		return http.StatusBadRequest
	case apperrors.KindConnection:
		return http.StatusBadGateway
	case apperrors.KindNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// rejectVersionID enforces spec §6's "?versionId=… on any endpoint ->
// uniformly 501 NotImplemented" rule. Returns true if it wrote a response
// (the caller must stop handling the request).
func rejectVersionID(w http.ResponseWriter, logger *zap.Logger, r *http.Request) bool {
	if r.URL.Query().Get("versionId") == "" {
		return false
	}
	writeJSON(w, logger, http.StatusNotImplemented, errorBody{Code: http.StatusNotImplemented, Message: "versionId is not supported"})
	return true
}
