// This file reads query parameters and create-request bodies. Bodies may be
// JSON or form-encoded.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"xpense/internal/core"
)

// maxBodyBytes bounds create-request bodies.
const maxBodyBytes = 1 << 20

// ParseQuery reads the selection parameters of list, summary and dashboard requests.
func ParseQuery(values url.Values) core.Query {
	return core.Query{
		Period:    sanitizeInput(values.Get("filter")),
		Category:  sanitizeInput(values.Get("category")),
		StartDate: sanitizeInput(values.Get("startDate")),
		EndDate:   sanitizeInput(values.Get("endDate")),
	}
}

// RequestBodyParser reads a body once and serves fields from it as strings.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads up to maxBodyBytes of r's body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	}
	return p
}

func (p *RequestBodyParser) isJSON() bool {
	if mt, _, err := mime.ParseMediaType(p.contentType); err == nil {
		if mt == "application/json" {
			return true
		}
		if mt == "application/x-www-form-urlencoded" {
			return false
		}
	}
	trimmed := bytes.TrimSpace(p.body)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Parse decodes the body. Numbers in JSON keep their literal text unless they
// use an exponent.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	if len(bytes.TrimSpace(p.body)) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.isJSON() {
		dec := json.NewDecoder(bytes.NewReader(p.body))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = err
			return err
		}
		if p.jsonData == nil {
			p.err = errors.New("body must be a JSON object")
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns the sanitized value of key, or "".
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

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return numberText(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// numberText spells exponent forms such as 1e2 as plain decimals so amount
// parsing sees "100".
func numberText(n json.Number) string {
	text := n.String()
	if !strings.ContainsAny(text, "eE") {
		return text
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return text
	}
	return d.String()
}

// sanitizeInput trims and drops control characters other than tab, newline
// and carriage return.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
