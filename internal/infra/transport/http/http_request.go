package http

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mkrupp/webgallery/internal/domain"
)

// MaxValuesBodySize bounds JSON and urlencoded request bodies.
const MaxValuesBodySize = 1 << 20

// ReadValues reads a flat set of string fields from a JSON object or a form body.
// Non-string JSON scalars are converted with their JSON text.
func ReadValues(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxValuesBodySize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType != "application/json" {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: parse form: %w", domain.ErrValidation, err)
		}

		return r.Form, nil
	}

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode json: %w", domain.ErrValidation, err)
	}

	values := make(url.Values, len(raw))

	for key, value := range raw {
		switch v := value.(type) {
		case string:
			values.Set(key, v)
		case float64:
			values.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
		case bool:
			values.Set(key, strconv.FormatBool(v))
		case nil:
		default:
			return nil, fmt.Errorf("%w: field %q", domain.ErrValidation, key)
		}
	}

	return values, nil
}
