package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// apiError pairs an error with the http status it should respond with.
type apiError struct {
	status int
	err    error
}

func (e *apiError) Error() string { return e.err.Error() }

func HTTPError(err error, status int) error {
	return &apiError{status: status, err: err}
}

func BadRequest(err error) error {
	return &apiError{status: http.StatusBadRequest, err: err}
}

func Forbidden(err error) error {
	return &apiError{status: http.StatusForbidden, err: err}
}

// HandlerFunc is an http handler returning an error. Errors built with the
// helpers above respond with their status, anything else responds 500.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

func WrapHandlerFunc(f HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err == nil {
			return
		}
		status := http.StatusInternalServerError
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			status = apiErr.status
		}
		http.Error(w, err.Error(), status)
	}
}

// ParseJSON decodes a request body, rejecting unknown fields.
func ParseJSON(r io.Reader, v interface{}) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// WriteJSON encodes obj as the json response body.
func WriteJSON(w http.ResponseWriter, obj interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(obj)
}
