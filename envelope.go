package client

import (
	"bytes"
	"encoding/json"
)

// errorEnvelope is the error information carried by any server response.
type errorEnvelope struct {
	StatusCode      int
	Status          string
	Body            []byte
	ErrorCode       string
	At              string
	RawErrorDetails json.RawMessage
	InnerErrors     []InnerError
}

type envelopeBody struct {
	ErrorCode    string          `json:"errorCode"`
	ErrorDetails json.RawMessage `json:"errorDetails"`
	Output       *struct {
		Results []json.RawMessage `json:"results"`
	} `json:"output"`
}

type envelopeDetails struct {
	At string `json:"at"`
}

type envelopeResult struct {
	ErrorCode string `json:"errorCode"`
}

// parseErrorEnvelope extracts error information from a response. The second
// return value reports whether the response is an error: either the status is
// not 2xx or the body carries a top-level errorCode.
func parseErrorEnvelope(statusCode int, status string, body []byte) (*errorEnvelope, bool) {
	env := &errorEnvelope{
		StatusCode: statusCode,
		Status:     status,
		Body:       body,
	}

	var parsed envelopeBody
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &parsed); err == nil {
			env.ErrorCode = parsed.ErrorCode
			if len(parsed.ErrorDetails) > 0 && !bytes.Equal(parsed.ErrorDetails, []byte("null")) {
				env.RawErrorDetails = parsed.ErrorDetails
				var details envelopeDetails
				if json.Unmarshal(parsed.ErrorDetails, &details) == nil {
					env.At = details.At
				}
			}
			if parsed.Output != nil {
				for _, raw := range parsed.Output.Results {
					var r envelopeResult
					if json.Unmarshal(raw, &r) != nil || r.ErrorCode == "" {
						continue
					}
					env.InnerErrors = append(env.InnerErrors, InnerError{
						ErrorCode:       r.ErrorCode,
						RawErrorDetails: raw,
					})
				}
			}
		}
	}

	isError := statusCode < 200 || statusCode >= 300 || env.ErrorCode != ""
	return env, isError
}

// singleInnerError returns the only inner error, if there is exactly one.
func (e *errorEnvelope) singleInnerError() (InnerError, bool) {
	if len(e.InnerErrors) != 1 {
		return InnerError{}, false
	}
	return e.InnerErrors[0], true
}

func (e *errorEnvelope) toError(op Operation, kind ErrorKind, message string) *Error {
	return &Error{
		Op:              op,
		Kind:            kind,
		StatusCode:      e.StatusCode,
		Status:          e.Status,
		ErrorCode:       e.ErrorCode,
		At:              e.At,
		RawErrorDetails: e.RawErrorDetails,
		InnerErrors:     e.InnerErrors,
		Body:            string(e.Body),
		Message:         message,
	}
}
