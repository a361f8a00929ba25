package handler

import (
	"time"

	"github.com/cockroachdb/errors"

	"job_alert_service/internal/common"
)

const invalidSinceMessage = `Invalid date format for "since" parameter`

var sinceLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseSince reads the optional since parameter. Values without a zone are
// taken as UTC. An empty value means no lower bound.
func ParseSince(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range sinceLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, errors.Wrapf(common.ErrBadRequest, "unparseable since %q", value)
}
