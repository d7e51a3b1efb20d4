package domain

import "time"

type JobLead struct {
	CompanyName     string
	Title           string
	URL             string
	LocationRaw     string
	WorkMode        string // Remote/Hybrid/Onsite/Unknown
	ATSJobID        string // board id, e.g. linkedin:4012345678
	Salary          string
	Description     string
	PostedAt        *time.Time
	FirstSeenSource string // email/linkedin/indeed/arbetsformedlingen/greenhouse/lever
}

// Status is where a stored job is in the pipeline.
type Status string

const (
	StatusNew        Status = "new"
	StatusDescribed  Status = "described"
	StatusClassified Status = "classified"
	StatusRendered   Status = "rendered"
	StatusSent       Status = "sent"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)
