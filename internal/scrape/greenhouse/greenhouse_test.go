package greenhouse

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

const boardJSON = `{"jobs":[
  {"id":4400123,"title":"Site Reliability Engineer","absolute_url":"https://boards.greenhouse.io/acme/jobs/4400123",
   "location":{"name":"Stockholm, Sweden"},"updated_at":"2026-10-01T09:00:00-04:00",
   "content":"&lt;p&gt;Run &lt;b&gt;Kubernetes&lt;/b&gt; in production.&lt;/p&gt;"},
  {"id":0,"title":"no id","absolute_url":"https://x"}
]}`

func TestParseBoardJSON(t *testing.T) {
	leads, err := ParseBoardJSON([]byte(boardJSON), config.Company{Slug: "acme"})
	require.NoError(t, err)
	require.Len(t, leads, 1)

	l := leads[0]
	assert.Equal(t, "acme", l.CompanyName)
	assert.Equal(t, "greenhouse:acme:4400123", l.ATSJobID)
	assert.Equal(t, "Stockholm, Sweden", l.LocationRaw)
	assert.Equal(t, "Run Kubernetes in production.", l.Description)
	require.NotNil(t, l.PostedAt)
}

func TestFetchSkipsFailingBoards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/boards/acme/jobs" {
			fmt.Fprint(w, boardJSON)
			return
		}
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	s := New([]config.Company{{Slug: "missing"}, {Slug: "acme", Name: "Acme AB"}}, util.NewClient(nil, "test"), nil)
	s.BaseURL = srv.URL

	res, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Leads, 1)
	assert.Equal(t, "Acme AB", res.Leads[0].CompanyName)
}
