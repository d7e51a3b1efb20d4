package arbetsformedlingen

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

const searchJSON = `{
  "total": {"value": 2},
  "hits": [
    {
      "id": "28911234",
      "headline": "DevOps-ingenjör",
      "employer": {"name": "Volvo Cars AB"},
      "workplace_address": {"municipality": "Göteborg", "region": "Västra Götalands län", "country": "Sverige"},
      "description": {"text": "Vi söker en DevOps-ingenjör med Kubernetes och Terraform."},
      "salary_description": "Fast lön",
      "publication_date": "2026-10-10T08:15:00",
      "remote_work": false
    },
    {
      "id": "28919999",
      "headline": "Molnarkitekt",
      "employer": {"name": "Acme"},
      "workplace_address": {"municipality": "Stockholm"},
      "description": {"text": ""},
      "remote_work": true
    },
    {"id": "", "headline": "broken"}
  ]
}`

func TestParseSearchJSON(t *testing.T) {
	leads, total, err := ParseSearchJSON([]byte(searchJSON))
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, leads, 2)

	l := leads[0]
	assert.Equal(t, "af:28911234", l.ATSJobID)
	assert.Equal(t, "https://arbetsformedlingen.se/platsbanken/annonser/28911234", l.URL)
	assert.Equal(t, "Volvo Cars AB", l.CompanyName)
	assert.Equal(t, "Göteborg, Västra Götalands län, Sverige", l.LocationRaw)
	assert.Contains(t, l.Description, "Kubernetes")
	require.NotNil(t, l.PostedAt)
	assert.Equal(t, 10, l.PostedAt.Day())

	assert.Equal(t, "Remote", leads[1].WorkMode)

	_, _, err = ParseSearchJSON([]byte("{not json"))
	assert.Error(t, err)
}

func TestFetcherAndDescriber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			assert.Equal(t, "devops Göteborg", r.URL.Query().Get("q"))
			assert.Equal(t, "25", r.URL.Query().Get("limit"))
			fmt.Fprint(w, searchJSON)
		case "/ad/28919999":
			fmt.Fprint(w, `{"id":"28919999","description":{"text":"","text_formatted":"<p>Design <b>AWS</b> landing zones.</p>"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := util.NewClient(nil, "test")
	f := &Fetcher{Client: client, Board: config.Board{
		BaseURL: srv.URL, Queries: []string{"devops"}, Location: "Göteborg", Limit: 25, MaxPages: 3,
	}}
	res, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Leads, 2)

	d := &Describer{Client: client, BaseURL: srv.URL}
	require.True(t, d.Handles(res.Leads[1].URL))
	text, err := d.Describe(context.Background(), res.Leads[1].URL)
	require.NoError(t, err)
	assert.Contains(t, text, "Design AWS landing zones.")
}
