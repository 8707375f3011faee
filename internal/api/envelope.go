package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// envelopeVersion is bumped only on breaking changes to the envelope shape.
const envelopeVersion = 1

// Envelope is the uniform wrapper around every JSON response body.
type Envelope struct {
	V       int    `json:"v" doc:"Envelope version"`
	Success bool   `json:"success" doc:"Whether the request succeeded"`
	Data    any    `json:"data,omitempty" doc:"Response payload on success"`
	Error   *Error `json:"error,omitempty" doc:"Error details on failure"`
}

// Error is the failure payload inside an envelope.
type Error struct {
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// EnvelopeTransformer wraps every response in the shared envelope shape.
// Status codes at or above 400 produce an error envelope.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	code, err := strconv.Atoi(status)
	if err != nil {
		code = 200
	}

	if code >= 400 {
		envErr := &Error{Code: "INTERNAL", Message: "request failed"}
		if apiErr, ok := v.(*APIError); ok {
			envErr = &Error{
				Code:    apiErr.Code,
				Message: apiErr.Message,
				Details: apiErr.Details,
			}
		}
		return &Envelope{V: envelopeVersion, Success: false, Error: envErr}, nil
	}

	return &Envelope{V: envelopeVersion, Success: true, Data: v}, nil
}
