package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ledgerdash/internal/core"
)

const (
	dateLayout         = "2006-01-02"
	maxBodyBytes       = 1 << 20
	confidentialParam  = "include_confidential"
	confidentialCookie = "confidential_mode"
)

// requestError is a malformed request parameter.
type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// RequestBodyParser reads a JSON object or a form-encoded body once and
// serves string values from either.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body. Numbers in JSON keep their literal text so that
// amounts never pass through a float.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return badRequest("could not read request body")
	}

	body := bytes.TrimSpace(p.body)
	if len(body) == 0 {
		p.formData = url.Values{}
		return nil
	}
	if body[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = badRequest("malformed JSON body")
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(body))
	if p.err != nil {
		p.err = badRequest("malformed form body")
	}
	return p.err
}

// Get returns a trimmed value with control characters removed.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if v, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(v))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Bool treats "on" (HTML checkboxes) as true and anything unparsable as false.
func (p *RequestBodyParser) Bool(key string) bool {
	v := strings.ToLower(p.Get(key))
	if v == "on" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters except tab and newlines.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

// parseLocation reads the optional tz parameter; buckets align to it.
func parseLocation(q url.Values) (*time.Location, error) {
	name := strings.TrimSpace(q.Get("tz"))
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, badRequest("unknown time zone %q", name)
	}
	return loc, nil
}

// parseTime accepts RFC 3339 or a bare date. A bare date means the start
// of that day, or its last instant when endOfDay is set.
func parseTime(s string, loc *time.Location, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, badRequest("invalid date %q: use YYYY-MM-DD or RFC 3339", s)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

// parseOptionalTime returns the zero time when the parameter is absent.
func parseOptionalTime(q url.Values, key string, loc *time.Location, endOfDay bool) (time.Time, error) {
	v := q.Get(key)
	if strings.TrimSpace(v) == "" {
		return time.Time{}, nil
	}
	return parseTime(v, loc, endOfDay)
}

// parseWindow reads from/to. Without them the window is the twelve
// calendar months ending now.
func parseWindow(q url.Values, now time.Time) (core.Window, error) {
	loc, err := parseLocation(q)
	if err != nil {
		return core.Window{}, err
	}
	end, err := parseOptionalTime(q, "to", loc, true)
	if err != nil {
		return core.Window{}, err
	}
	if end.IsZero() {
		end = now.In(loc)
	}
	start, err := parseOptionalTime(q, "from", loc, false)
	if err != nil {
		return core.Window{}, err
	}
	if start.IsZero() {
		start = time.Date(end.Year(), end.Month()-11, 1, 0, 0, 0, 0, loc)
	}
	w := core.Window{Start: start, End: end}
	return w, w.Validate()
}

func parseGranularity(q url.Values) (core.Granularity, error) {
	v := q.Get("granularity")
	if strings.TrimSpace(v) == "" {
		return core.Month, nil
	}
	return core.ParseGranularity(v)
}

// resolveView decides confidential mode: query parameter, then cookie,
// then the configured default.
func resolveView(r *http.Request, def bool) core.ViewOptions {
	if v := r.URL.Query().Get(confidentialParam); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return core.ViewOptions{IncludeConfidential: b}
		}
	}
	if c, err := r.Cookie(confidentialCookie); err == nil {
		if b, err := strconv.ParseBool(c.Value); err == nil {
			return core.ViewOptions{IncludeConfidential: b}
		}
	}
	return core.ViewOptions{IncludeConfidential: def}
}

// parseList accepts repeated keys and comma-separated values.
func parseList(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseHidden(q url.Values) map[string]bool {
	ids := parseList(q, "hidden")
	if len(ids) == 0 {
		return nil
	}
	hidden := make(map[string]bool, len(ids))
	for _, id := range ids {
		hidden[id] = true
	}
	return hidden
}

func parsePositiveInt(q url.Values, key string) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, badRequest("%s must be a positive integer", key)
	}
	return n, nil
}
