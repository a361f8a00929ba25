// Package mail renders the alert email for a job.
package mail

import (
	_ "embed"
	"os"
	"strings"
	"time"

	"github.com/aymerick/raymond"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"job_alert_service/internal/domain/model"
	"job_alert_service/internal/platform/sparql"
)

//go:embed templates/job-alert.hbs
var defaultTemplate string

// Renderer turns a job into the HTML body of its alert. Templates are
// Handlebars so operators can keep their existing .hbs files.
type Renderer struct {
	tpl *raymond.Template
}

// NewRenderer parses the template at path. A missing file falls back to the
// built-in template; a file that exists but does not parse is an error.
func NewRenderer(path string, log *zap.SugaredLogger) (*Renderer, error) {
	source := defaultTemplate
	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case err == nil:
			source = string(content)
		case errors.Is(err, os.ErrNotExist):
			log.Warnw("Alert template not found, using built-in template", "path", path)
		default:
			return nil, errors.Wrapf(err, "failed to read alert template %s", path)
		}
	}
	return NewRendererFromSource(source)
}

func NewRendererFromSource(source string) (*Renderer, error) {
	tpl, err := raymond.Parse(source)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse alert template")
	}
	tpl.RegisterHelper("eq", func(a, b interface{}) bool {
		return a == b
	})
	return &Renderer{tpl: tpl}, nil
}

// Render executes the template against the job's context.
func (r *Renderer) Render(job *model.Job) (string, error) {
	content, err := r.tpl.Exec(Context(job))
	if err != nil {
		return "", errors.Wrapf(err, "failed to render alert for job %s", job.URI)
	}
	return content, nil
}

// Context is the data exposed to templates. Absent values are empty strings
// and an absent task index is "?".
func Context(job *model.Job) map[string]interface{} {
	tasks := make([]map[string]interface{}, 0, len(job.Tasks))
	for _, task := range job.Tasks {
		var index interface{} = "?"
		if task.Index != nil {
			index = *task.Index
		}
		tasks = append(tasks, map[string]interface{}{
			"uri":            task.URI,
			"uuid":           task.UUID,
			"index":          index,
			"status":         deref(task.Status),
			"statusLabel":    model.LabelPtr(task.Status),
			"operation":      deref(task.Operation),
			"operationLabel": model.LabelPtr(task.Operation),
			"error":          deref(task.Error),
		})
	}

	return map[string]interface{}{
		"jobUri":         job.URI,
		"jobUuid":        job.UUID,
		"status":         job.Status,
		"statusLabel":    model.Label(job.Status),
		"operation":      deref(job.Operation),
		"operationLabel": model.LabelPtr(job.Operation),
		"created":        formatTime(job.Created),
		"modified":       formatTime(job.Modified),
		"creator":        deref(job.Creator),
		"tasks":          tasks,
	}
}

// Subject is "[JOB <STATUS>] <modified or created>" followed by
// " | <operation>" when the job has an operation.
func Subject(job *model.Job) string {
	var sb strings.Builder
	sb.WriteString("[JOB ")
	sb.WriteString(strings.ToUpper(model.Label(job.Status)))
	sb.WriteString("] ")
	sb.WriteString(formatTime(job.LastChanged()))
	if op := model.LabelPtr(job.Operation); op != "" {
		sb.WriteString(" | ")
		sb.WriteString(op)
	}
	return sb.String()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return sparql.FormatDateTime(*t)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
