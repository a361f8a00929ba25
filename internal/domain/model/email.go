package model

import "time"

// ReasonAlertExists is reported when an Email already references the job.
const ReasonAlertExists = "alert_exists"

// ReasonAlertLocked is reported when another instance holds the advisory
// lock for the job.
const ReasonAlertLocked = "alert_locked"

// Email is an nmo:Email alert record. An external mailer picks it up from the
// folder it is filed in. At most one Email references a given Job.
type Email struct {
	Resource
	Folder    string    `json:"folder"`
	Subject   string    `json:"subject"`
	Content   string    `json:"content"`
	To        string    `json:"to"`
	From      string    `json:"from"`
	Creator   string    `json:"creator"`
	Reference string    `json:"reference"` // job URI
	Created   time.Time `json:"created"`
}

// AlertResult is the outcome of one alert-creation attempt. Created=false with
// a Reason is an expected outcome, not a failure.
type AlertResult struct {
	Created bool   `json:"created"`
	Reason  string `json:"reason,omitempty"`
	Email   *Email `json:"email,omitempty"`
}
