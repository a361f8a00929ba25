package model

import "strings"

// Resource carries the identity shared by every record read from or written
// to the triplestore: the subject URI and its mu:uuid.
type Resource struct {
	URI  string `json:"uri"`
	UUID string `json:"uuid,omitempty"`
}

// Label returns the final path segment of a URI, e.g.
// "http://redpencil.data.gift/id/concept/JobStatus/failed" -> "failed".
// A URI ending in "/" yields the URI itself.
func Label(uri string) string {
	if uri == "" {
		return ""
	}
	segment := uri[strings.LastIndex(uri, "/")+1:]
	if segment == "" {
		return uri
	}
	return segment
}

// LabelPtr is Label for optional values; nil yields "".
func LabelPtr(uri *string) string {
	if uri == nil {
		return ""
	}
	return Label(*uri)
}
