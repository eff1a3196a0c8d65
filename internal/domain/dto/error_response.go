package dto

import "time"

// ErrorResponse is the standardized JSON error envelope for every failed request.
//
// Fields:
//   - Status: always "error" (lets clients branch on one field).
//   - Message: human-readable description of what went wrong.
//   - ErrorDetails: optional underlying error text, omitted when empty.
//   - Timestamp: when the error response was built.
type ErrorResponse struct {
	Status       string    `json:"status" example:"error"`
	Message      string    `json:"message" example:"failed to parse oracle output"`
	ErrorDetails string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewErrorResponse builds an ErrorResponse from a message and an optional inner error.
func NewErrorResponse(message string, err error) ErrorResponse {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return ErrorResponse{
		Status:       "error",
		Message:      message,
		ErrorDetails: details,
		Timestamp:    time.Now(),
	}
}

// Error implements the error interface so an ErrorResponse can travel through
// gin's error middleware.
func (e ErrorResponse) Error() string {
	if e.ErrorDetails != "" {
		return e.Message + ": " + e.ErrorDetails
	}
	return e.Message
}
