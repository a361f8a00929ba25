package sparql

import (
	"fmt"
	"strconv"
	"time"
)

const (
	xsdInteger = "http://www.w3.org/2001/XMLSchema#integer"
	xsdInt     = "http://www.w3.org/2001/XMLSchema#int"
	xsdLong    = "http://www.w3.org/2001/XMLSchema#long"
)

// dateTimeLayouts accepts xsd:dateTime with or without a zone. Zoneless
// values are read as UTC.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func parseDateTime(value string) (time.Time, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Binding is one variable binding of the SPARQL 1.1 JSON results format.
type Binding struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

type resultsDocument struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]Binding `json:"bindings"`
	} `json:"results"`
	Boolean *bool `json:"boolean,omitempty"`
}

// Row maps variable names to decoded values. Unbound variables are absent.
type Row map[string]any

// Decode converts a binding to a native value: dateTime literals become
// time.Time, integer literals int64, everything else the lexical string.
func Decode(b Binding) any {
	switch b.Datatype {
	case xsdDateTime:
		if t, ok := parseDateTime(b.Value); ok {
			return t
		}
	case xsdInteger, xsdInt, xsdLong:
		if n, err := strconv.ParseInt(b.Value, 10, 64); err == nil {
			return n
		}
	}
	return b.Value
}

func decodeRows(bindings []map[string]Binding) []Row {
	rows := make([]Row, 0, len(bindings))
	for _, binding := range bindings {
		row := make(Row, len(binding))
		for name, b := range binding {
			row[name] = Decode(b)
		}
		rows = append(rows, row)
	}
	return rows
}

// String returns the value as a string, "" when unbound.
func (r Row) String(name string) string {
	if p := r.StringPtr(name); p != nil {
		return *p
	}
	return ""
}

func (r Row) StringPtr(name string) *string {
	v, ok := r[name]
	if !ok || v == nil {
		return nil
	}
	var s string
	switch value := v.(type) {
	case string:
		s = value
	case time.Time:
		s = FormatDateTime(value)
	default:
		s = fmt.Sprint(value)
	}
	return &s
}

func (r Row) TimePtr(name string) *time.Time {
	switch value := r[name].(type) {
	case time.Time:
		return &value
	case string:
		if t, ok := parseDateTime(value); ok {
			return &t
		}
	}
	return nil
}

func (r Row) IntPtr(name string) *int {
	switch value := r[name].(type) {
	case int64:
		n := int(value)
		return &n
	case string:
		if n, err := strconv.Atoi(value); err == nil {
			return &n
		}
	}
	return nil
}
