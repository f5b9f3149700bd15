// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrValidation marks input rejected before anything was sent.
	ErrValidation = errors.New("invalid request")

	// ErrNotFound marks a job or artifact the API does not know.
	ErrNotFound = errors.New("not found")
)

// APIError is a failed call: either a transport failure (StatusCode 0,
// Err set) or a non-success HTTP response with the server's detail message.
type APIError struct {
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Detail)
	default:
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Detail returns the message to show a user for err: the server's detail
// when it sent one, the validation message for rejected input, and a
// generic text otherwise.
func Detail(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrValidation) {
		return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	if errors.Is(err, ErrNotFound) {
		return "Query not found"
	}
	return fallback
}

// parseDetail extracts the detail field of an error body. FastAPI sends a
// string for HTTPException and a list of {loc,msg} objects for validation
// failures.
func parseDetail(body []byte) string {
	var wire struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &wire); err != nil || len(wire.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(wire.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(wire.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg == "" {
				continue
			}
			if field := lastLoc(it.Loc); field != "" {
				msgs = append(msgs, field+": "+it.Msg)
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func lastLoc(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}
