package smartrecruiters

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
)

const pageJSON = `{
  "totalFound": 2,
  "content": [
    {"id":"744000012345","name":"Platform Engineer","releasedDate":"2025-03-10T08:00:00.000Z",
     "company":{"name":"Volvo Group"},
     "location":{"city":"Gothenburg","region":"Västra Götaland","country":"se","remote":false}},
    {"id":"744000099999","name":"Remote SRE",
     "location":{"city":"Stockholm","country":"se","remote":true}},
    {"id":"","name":"no id"}
  ]
}`

func TestParsePostingsJSON(t *testing.T) {
	leads, total, err := ParsePostingsJSON([]byte(pageJSON), config.Company{Slug: "Volvo"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, leads, 2)

	l := leads[0]
	assert.Equal(t, "Volvo Group", l.CompanyName)
	assert.Equal(t, "Platform Engineer", l.Title)
	assert.Equal(t, "https://jobs.smartrecruiters.com/Volvo/744000012345", l.URL)
	assert.Equal(t, "smartrecruiters:Volvo:744000012345", l.ATSJobID)
	assert.Equal(t, "Gothenburg, Västra Götaland, se", l.LocationRaw)
	require.NotNil(t, l.PostedAt)
	assert.Equal(t, 2025, l.PostedAt.Year())

	assert.Equal(t, "Remote", leads[1].WorkMode)
	assert.Nil(t, leads[1].PostedAt)

	_, _, err = ParsePostingsJSON([]byte("<html>"), config.Company{Slug: "x"})
	assert.Error(t, err)
}

func TestFetchPagesUntilTotal(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/companies/acme/postings" {
			http.NotFound(w, r)
			return
		}
		calls++
		switch r.URL.Query().Get("offset") {
		case "0":
			fmt.Fprint(w, `{"totalFound":101,"content":[{"id":"1","name":"Go Developer"}]}`)
		case "100":
			fmt.Fprint(w, `{"totalFound":101,"content":[{"id":"2","name":"Cloud Engineer"}]}`)
		default:
			fmt.Fprint(w, `{"totalFound":101,"content":[]}`)
		}
	}))
	defer srv.Close()

	s := New([]config.Company{{Slug: "acme", Name: "Acme"}, {Slug: "gone"}}, util.NewClient(nil, "test"), nil)
	s.BaseURL = srv.URL

	res, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "smartrecruiters", res.Source)
	assert.Len(t, res.Leads, 2)
	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 2, calls)
}

func TestDescriber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/companies/Volvo/postings/744000012345", r.URL.Path)
		fmt.Fprint(w, `{"jobAd":{"sections":{
		  "jobDescription":{"title":"Job Description","text":"<p>Run Kubernetes on AWS.</p>"},
		  "qualifications":{"title":"Qualifications","text":"<ul><li>Terraform</li></ul>"}}}}`)
	}))
	defer srv.Close()

	d := &Describer{Client: util.NewClient(nil, "test"), BaseURL: srv.URL}
	rawURL := "https://jobs.smartrecruiters.com/Volvo/744000012345-platform-engineer"
	require.True(t, d.Handles(rawURL))
	assert.False(t, d.Handles("https://www.linkedin.com/jobs/view/123"))

	text, err := d.Describe(context.Background(), rawURL)
	require.NoError(t, err)
	assert.Equal(t, "Job Description\nRun Kubernetes on AWS.\n\nQualifications\n- Terraform", text)
}
