/*
Package req binds HTTP request bodies and query strings, reporting failures as client errors.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"quicktalk/internal/pkg/errs"
)

// MaxJSONBodySize bounds a JSON request body.
const MaxJSONBodySize int64 = 64 << 10 // 64 KB

// BindJSON decodes the JSON body of r into dst, rejecting unknown fields and trailing content.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// QueryInt returns the integer query parameter key, or def when it is absent.
// A present but malformed value is ErrInvalidParams.
func QueryInt(r *http.Request, key string, def int) (int, *errs.CustomError) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.NewError(errs.ErrInvalidParams)
	}
	return n, nil
}
