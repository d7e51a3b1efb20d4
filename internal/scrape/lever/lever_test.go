package lever

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

const postingsJSON = `[
  {"id":"a1b2","text":"Backend Engineer (Go)","hostedUrl":"https://jobs.lever.co/acme/a1b2",
   "createdAt":1759300000000,"workplaceType":"hybrid",
   "categories":{"location":"Gothenburg"},
   "descriptionPlain":"Build APIs in Go.",
   "lists":[{"text":"Requirements","content":"<li>PostgreSQL</li><li>Kafka</li>"}]},
  {"id":"","text":"missing id","hostedUrl":"https://jobs.lever.co/acme/x"}
]`

func TestParsePostingsJSON(t *testing.T) {
	leads, err := ParsePostingsJSON([]byte(postingsJSON), config.Company{Slug: "acme", Name: "Acme"})
	require.NoError(t, err)
	require.Len(t, leads, 1)

	l := leads[0]
	assert.Equal(t, "lever:acme:a1b2", l.ATSJobID)
	assert.Equal(t, "Hybrid", l.WorkMode)
	assert.Contains(t, l.Description, "Build APIs in Go.")
	assert.Contains(t, l.Description, "- PostgreSQL")
	require.NotNil(t, l.PostedAt)

	_, err = ParsePostingsJSON([]byte("nope"), config.Company{Slug: "acme"})
	assert.Error(t, err)
}

func TestFetchFansOutOverCompanies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v0/postings/acme":
			fmt.Fprint(w, postingsJSON)
		case "/v0/postings/beta":
			fmt.Fprint(w, `[{"id":"z9","text":"SRE","hostedUrl":"https://jobs.lever.co/beta/z9"}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := New([]config.Company{{Slug: "acme"}, {Slug: "beta"}, {Slug: "gone"}}, util.NewClient(nil, "test"), nil)
	s.BaseURL = srv.URL

	res, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Leads, 2)
	assert.Equal(t, 2, res.Scanned)
}
