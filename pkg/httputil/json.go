package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	bgerrors "github.com/matzehuels/bindgraph/pkg/errors"
)

// DefaultMaxBody bounds request bodies when no limit is given.
const DefaultMaxBody = 4 << 20

// ErrorBody is the JSON shape of an error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one error.
type ErrorDetail struct {
	Code    bgerrors.Code `json:"code"`
	Message string        `json:"message"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// WriteError writes err as an ErrorBody with the status from [Status].
func WriteError(w http.ResponseWriter, err error) {
	code := bgerrors.GetCode(err)
	if code == "" {
		code = bgerrors.ErrCodeInternal
	}
	msg := err.Error()
	var e *bgerrors.Error
	if errors.As(err, &e) && e.Cause == nil {
		msg = e.Message
	}
	WriteJSON(w, Status(err), ErrorBody{Error: ErrorDetail{Code: code, Message: msg}})
}

// Status maps an error code to an HTTP status.
func Status(err error) int {
	switch bgerrors.GetCode(err) {
	case bgerrors.ErrCodeInvalidInput, bgerrors.ErrCodeInvalidDeclaration,
		bgerrors.ErrCodeInvalidSchema, bgerrors.ErrCodeInvalidFormat:
		return http.StatusUnprocessableEntity
	case bgerrors.ErrCodeNotFound, bgerrors.ErrCodeMetadataMissing:
		return http.StatusNotFound
	case bgerrors.ErrCodeMetadataMismatch:
		return http.StatusConflict
	case bgerrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case bgerrors.ErrCodeStorage:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// ReadBody reads at most limit bytes of the request body. A larger body is
// an ErrCodeInvalidInput error.
func ReadBody(r *http.Request, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBody
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, bgerrors.Wrap(bgerrors.ErrCodeInvalidInput, err, "read request body")
	}
	if int64(len(data)) > limit {
		return nil, bgerrors.New(bgerrors.ErrCodeInvalidInput, "request body exceeds %d bytes", limit)
	}
	if len(data) == 0 {
		return nil, bgerrors.New(bgerrors.ErrCodeInvalidInput, "empty request body")
	}
	return data, nil
}
