package errors

import "net/http"

// ErrorResponse is the JSON envelope returned to API clients.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the error details sent to clients.
type ErrorBody struct {
	ID              string          `json:"id"`
	Type            Kind            `json:"type"`
	Message         string          `json:"message"`
	Retryable       bool            `json:"retryable"`
	SuggestedAction SuggestedAction `json:"suggestedAction,omitempty"`
	Details         map[string]any  `json:"details,omitempty"`
}

// ToResponse converts the error to an ErrorResponse for JSON serialization.
// Only the user-facing message leaves the process.
func (e *ClassifiedError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			ID:              e.id,
			Type:            e.kind,
			Message:         e.userMessage,
			Retryable:       e.retryable,
			SuggestedAction: e.action,
			Details:         e.context.AdditionalData,
		},
	}
}

var kindStatus = map[Kind]int{
	KindNetwork:    http.StatusServiceUnavailable,
	KindValidation: http.StatusBadRequest,
	KindPermission: http.StatusForbidden,
	KindNotFound:   http.StatusNotFound,
	KindServer:     http.StatusBadGateway,
	KindClient:     http.StatusInternalServerError,
	KindUnknown:    http.StatusInternalServerError,
}

// HTTPStatus returns the status to use when relaying the error over HTTP.
// The originating status wins when there was one.
func (e *ClassifiedError) HTTPStatus() int {
	if e.status >= http.StatusBadRequest {
		return e.status
	}
	if s, ok := kindStatus[e.kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}
