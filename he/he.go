package he

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// HTTPError probably represents the wrong abstraction.
type HTTPError struct {
	code int
	err  error
}

func HTTPCodedErrorf(code int, f string, more ...any) *HTTPError {
	return &HTTPError{
		code: code,
		err:  fmt.Errorf(f, more...),
	}
}

func New(code int, err error) *HTTPError {
	return &HTTPError{
		code: code,
		err:  err,
	}
}

func (e *HTTPError) Error() string {
	return e.err.Error()
}

func (e *HTTPError) Unwrap() error {
	return e.err
}

func (e *HTTPError) Code() int {
	return e.code
}

// CodeOf digs an HTTP status out of err, or returns def.
func CodeOf(err error, def int) int {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.code
	}
	return def
}

// IsNotFound is true for a 404 anywhere in the chain.
func IsNotFound(err error) bool {
	return CodeOf(err, 0) == http.StatusNotFound
}

// SendErrorToHTTPClient sends err as an HTTP error.  If it happens to be our
// special HTTPCodedError, we can include a better respone code; otherwise,
// client gets 500 and it's on us.
func SendErrorToHTTPClient(w http.ResponseWriter, while string, err error) {
	code := CodeOf(err, http.StatusInternalServerError)
	txt := fmt.Sprintf("can't %s: %v", while, err)
	logAt(code, txt)
	http.Error(w, txt, code)
}

type jsonError struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// SendJSONError is SendErrorToHTTPClient for the JSON API.
func SendJSONError(w http.ResponseWriter, while string, err error) {
	code := CodeOf(err, http.StatusInternalServerError)
	txt := fmt.Sprintf("can't %s: %v", while, err)
	logAt(code, txt)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(&jsonError{Error: txt, Code: code})
}

// Client mistakes are warnings; our mistakes are errors.
func logAt(code int, txt string) {
	e := log.WithField("code", code)
	if code >= 500 {
		e.Error(txt)
	} else {
		e.Warn(txt)
	}
}
