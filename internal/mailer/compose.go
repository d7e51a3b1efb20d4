package mailer

import (
	"fmt"
	"strings"
)

// JobSummary is what the notification mail says about a job.
type JobSummary struct {
	ID         int64
	Title      string
	Company    string
	Location   string
	URL        string
	Role       string
	RoleName   string
	RoleMethod string
	Score      int
}

// Subject fills {title} and {company} in tpl.
func Subject(tpl string, j JobSummary) string {
	if tpl == "" {
		tpl = "Job application ready: {title} at {company}"
	}
	return strings.NewReplacer("{title}", j.Title, "{company}", j.Company).Replace(tpl)
}

func Body(j JobSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s at %s\n\n", j.Title, j.Company)
	if j.Location != "" {
		fmt.Fprintf(&b, "Location:  %s\n", j.Location)
	}
	fmt.Fprintf(&b, "Link:      %s\n", j.URL)
	role := j.Role
	if j.RoleName != "" {
		role = j.RoleName + " (" + j.Role + ")"
	}
	fmt.Fprintf(&b, "CV role:   %s, chosen by %s\n", role, j.RoleMethod)
	fmt.Fprintf(&b, "Relevance: %d\n\n", j.Score)
	b.WriteString("The tailored CV and cover letter are attached.\n")
	return b.String()
}
