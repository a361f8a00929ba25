package sparql

import (
	"fmt"
	"strings"
	"time"
)

const (
	xsdDateTime = "http://www.w3.org/2001/XMLSchema#dateTime"

	// iriExcluded are the printable ASCII bytes IRIREF forbids.
	iriExcluded = "<>\"{}|^`\\"
)

// URI renders value as an IRIREF. Bytes that may not appear inside <...>
// are percent-encoded, so neither the IRI nor a \u escape can be reopened.
func URI(value string) string {
	var sb strings.Builder
	sb.Grow(len(value) + 2)
	sb.WriteByte('<')
	for i := 0; i < len(value); i++ {
		b := value[i]
		if b <= 0x20 || strings.IndexByte(iriExcluded, b) >= 0 {
			fmt.Fprintf(&sb, "%%%02X", b)
			continue
		}
		sb.WriteByte(b)
	}
	sb.WriteByte('>')
	return sb.String()
}

// URIList renders values as a comma separated list of IRIs for IN (...).
func URIList(values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = URI(v)
	}
	return strings.Join(escaped, ", ")
}

var stringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", `\r`)

// String renders value as a long string literal ("""...""") so rendered
// HTML keeps its newlines.
func String(value string) string {
	return `"""` + stringEscaper.Replace(value) + `"""`
}

// DateTime renders t as an xsd:dateTime literal in UTC with millisecond
// precision.
func DateTime(t time.Time) string {
	return `"` + FormatDateTime(t) + `"^^<` + xsdDateTime + `>`
}

// FormatDateTime is the ISO-8601 form used for every timestamp this service
// writes or displays.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
