package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"

	"smartspend/internal/services"
)

const maxBodyBytes = 64 << 10

var errBodyTooLarge = errors.New("request body too large")

// form is a flattened request body: the first value of every field, cleaned.
type form map[string]string

func (f form) Get(key string) string { return f[key] }

// readForm decodes a urlencoded or JSON body. JSON is used when declared or
// when the body starts like an object; scalar members become strings.
func readForm(r *http.Request) (form, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBodyBytes {
		return nil, errBodyTooLarge
	}
	f := form{}
	if len(strings.TrimSpace(string(body))) == 0 {
		return f, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" || strings.HasPrefix(strings.TrimSpace(string(body)), "{") {
		var raw map[string]any
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, err
		}
		for k, v := range raw {
			f[k] = clean(scalar(v))
		}
		return f, nil
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}
	for k := range values {
		f[k] = clean(values.Get(k))
	}
	return f, nil
}

func scalar(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// clean drops control characters other than tab and newlines, then trims.
func clean(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// parseIndex reads the {index} route parameter. Range checks happen against
// the loaded ledger.
func parseIndex(r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

func expenseInput(f form) services.ExpenseInput {
	return services.ExpenseInput{
		Date:        f.Get("date"),
		Amount:      f.Get("amount"),
		Category:    f.Get("category"),
		Description: f.Get("description"),
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
