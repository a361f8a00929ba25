package model

import "time"

// Job is a cogs:Job owned by the upstream job orchestrator. This service only
// reads it.
type Job struct {
	Resource
	Status    string     `json:"status"`
	Operation *string    `json:"operation,omitempty"`
	Created   *time.Time `json:"created,omitempty"`
	Modified  *time.Time `json:"modified,omitempty"`
	Creator   *string    `json:"creator,omitempty"`
	Tasks     []Task     `json:"tasks,omitempty"`
}

// IsValid reports whether the job can be alerted on: it needs both an
// identifier and a status.
func (j *Job) IsValid() bool {
	if j == nil {
		return false
	}
	return j.URI != "" && j.Status != ""
}

// LastChanged is the modification time, falling back to the creation time.
func (j *Job) LastChanged() *time.Time {
	if j.Modified != nil {
		return j.Modified
	}
	return j.Created
}

// Task is a task:Task belonging to exactly one Job via dcterms:isPartOf.
type Task struct {
	Resource
	Status    *string    `json:"status,omitempty"`
	Operation *string    `json:"operation,omitempty"`
	Index     *int       `json:"index,omitempty"` // nil when the store has no task:index
	Created   *time.Time `json:"created,omitempty"`
	Modified  *time.Time `json:"modified,omitempty"`
	Error     *string    `json:"error,omitempty"`
}

// JobSummary is the projection returned by the jobs-without-alerts scan.
type JobSummary struct {
	URI            string     `json:"uri"`
	UUID           *string    `json:"uuid"`
	Status         string     `json:"status"`
	StatusLabel    string     `json:"statusLabel"`
	Operation      *string    `json:"operation"`
	OperationLabel *string    `json:"operationLabel"`
	Created        *time.Time `json:"created"`
	Modified       *time.Time `json:"modified"`
	Creator        *string    `json:"creator"`
}

// NewJobSummary fills in the derived labels.
func NewJobSummary(uri string, uuid *string, status string, operation *string, created, modified *time.Time, creator *string) JobSummary {
	summary := JobSummary{
		URI:         uri,
		UUID:        uuid,
		Status:      status,
		StatusLabel: Label(status),
		Operation:   operation,
		Created:     created,
		Modified:    modified,
		Creator:     creator,
	}
	if operation != nil {
		label := Label(*operation)
		summary.OperationLabel = &label
	}
	return summary
}
