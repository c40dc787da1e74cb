package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "ponto/pkg/domain-errors"
)

// internalMessage is shown for 5xx responses; the cause is logged, never sent.
const internalMessage = "internal error, please try again"

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code.
	_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // headers already sent
}

// WriteError translates a domain error into the failure envelope:
//
//	{"error": "<human message>", "code": "<reason>", ...details}
//
// Details never override "error" or "code".
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{
			"error": internalMessage,
			"code":  string(dErrors.CodeInternal),
		})
		return
	}

	status := DomainCodeToHTTPStatus(domainErr.Code)
	response := make(map[string]any, len(domainErr.Details)+2)
	for k, v := range domainErr.Details {
		response[k] = v
	}
	response["code"] = dErrors.ReasonOf(domainErr)
	response["error"] = domainErr.Message
	if status >= http.StatusInternalServerError || domainErr.Message == "" {
		response["error"] = messageFor(domainErr, status)
	}
	WriteJSON(w, status, response)
}

func messageFor(e *dErrors.Error, status int) string {
	if status >= http.StatusInternalServerError {
		if e.Reason != "" && e.Message != "" {
			// Reasoned 5xx messages are authored for users (e.g. evidence store failure).
			return e.Message
		}
		return internalMessage
	}
	return dErrors.ReasonOf(e)
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden, dErrors.CodeMissingConsent:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeTooManyRequests:
		return http.StatusTooManyRequests
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
