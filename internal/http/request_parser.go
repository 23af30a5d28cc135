// Package http exposes the ledger services as a JSON API.
//
// This file implements utilities for parsing and validating HTTP request data.
// Bodies may be JSON or form-encoded; both are read through RequestBodyParser.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kharcha/internal/core"
	"kharcha/internal/emi"
	"kharcha/internal/query"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// errMalformedBody marks a body that is neither valid JSON nor form data.
var errMalformedBody = errors.New("malformed request body")

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errMalformedBody, p.err)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", errMalformedBody, err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errMalformedBody, p.err)
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// GetList returns every value of key: a JSON array, or repeated and
// comma-separated form values.
func (p *RequestBodyParser) GetList(key string) []string {
	var raw []string
	switch {
	case p.jsonData != nil:
		switch v := p.jsonData[key].(type) {
		case []any:
			for _, item := range v {
				raw = append(raw, stringValue(item))
			}
		case string:
			raw = strings.Split(v, ",")
		}
	case p.formData != nil:
		for _, v := range p.formData[key] {
			raw = append(raw, strings.Split(v, ",")...)
		}
	}

	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = sanitizeInput(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// decodeJSON decodes a JSON body into v. Unknown fields are ignored so a
// client can send back what it read.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var dateErr *core.InvalidDateError
		if errors.As(err, &dateErr) {
			return dateErr
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

// ParseCriteria reads the transactions filter from query parameters:
// q, scope, category, range, start, end and member. Missing values keep
// their defaults.
func ParseCriteria(values url.Values) query.Criteria {
	c := query.Criteria{
		Search:      sanitizeInput(values.Get("q")),
		Scope:       strings.ToLower(sanitizeInput(values.Get("scope"))),
		Category:    sanitizeInput(values.Get("category")),
		DateRange:   query.RangeKind(strings.ToLower(sanitizeInput(values.Get("range")))),
		CustomStart: sanitizeInput(values.Get("start")),
		CustomEnd:   sanitizeInput(values.Get("end")),
		Member:      sanitizeInput(values.Get("member")),
	}
	if strings.EqualFold(c.Category, query.All) {
		c.Category = query.All
	}
	return c.Normalize()
}

// parseTransaction reads a transaction body. An empty date defaults to
// today in loc. Every failing field is reported.
func parseTransaction(p *RequestBodyParser, loc *time.Location) (core.Transaction, error) {
	if err := p.Parse(); err != nil {
		return core.Transaction{}, err
	}

	errs := core.FieldErrors{}
	t := core.Transaction{
		Description: p.Get("description"),
		Category:    p.Get("category"),
		Type:        core.TransactionType(strings.ToLower(p.Get("type"))),
		Scope:       core.Scope(strings.ToLower(p.Get("scope"))),
	}

	if amount, err := core.ParseAmount(p.Get("amount")); err != nil {
		errs.Add("amount", "Please enter a valid amount greater than zero")
	} else {
		t.Amount = amount
	}

	if raw := p.Get("date"); raw == "" {
		t.Date = core.DateOf(time.Now().In(loc))
	} else if d, err := core.ParseDate(raw); err != nil {
		errs.Add("date", "Please select a valid date")
	} else {
		t.Date = d
	}

	var fieldErrs core.FieldErrors
	if err := t.Validate(); errors.As(err, &fieldErrs) {
		for k, v := range fieldErrs {
			errs.Add(k, v)
		}
	}
	if err := errs.Err(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// parseCategory reads a category body. Scopes may be a JSON array or a
// comma-separated form value.
func parseCategory(p *RequestBodyParser) (core.Category, error) {
	if err := p.Parse(); err != nil {
		return core.Category{}, err
	}
	c := core.Category{
		Name:  p.Get("name"),
		Type:  core.TransactionType(strings.ToLower(p.Get("type"))),
		Color: p.Get("color"),
		Icon:  p.Get("icon"),
	}
	for _, s := range p.GetList("scopes") {
		c.Scopes = append(c.Scopes, core.Scope(strings.ToLower(s)))
	}
	return c, nil
}

// parseEMIForm reads the raw EMI form. Numbers may arrive as JSON numbers
// or strings; the emi package validates them.
func parseEMIForm(p *RequestBodyParser) (emi.Form, error) {
	if err := p.Parse(); err != nil {
		return emi.Form{}, err
	}
	return emi.Form{
		Name:         p.Get(emi.FieldName),
		Principal:    p.Get(emi.FieldPrincipal),
		InterestRate: p.Get(emi.FieldInterestRate),
		Tenure:       p.Get(emi.FieldTenure),
		StartDate:    p.Get(emi.FieldStartDate),
	}, nil
}

// parseCategoryFilter reads the type and scope of a category listing.
// Both default to expense and family.
func parseCategoryFilter(values url.Values) (core.TransactionType, core.Scope) {
	typ := core.TransactionType(strings.ToLower(sanitizeInput(values.Get("type"))))
	if typ == "" {
		typ = core.Expense
	}
	scope := core.Scope(strings.ToLower(sanitizeInput(values.Get("scope"))))
	if scope == "" {
		scope = core.Family
	}
	return typ, scope
}
