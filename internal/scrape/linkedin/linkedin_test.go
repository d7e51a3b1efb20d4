package linkedin

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
)

const searchPage = `<li>
  <div class="base-card job-search-card" data-entity-urn="urn:li:jobPosting:3912345678">
    <a class="base-card__full-link" href="https://se.linkedin.com/jobs/view/devops-engineer-at-volvo-cars-3912345678?refId=x"></a>
    <div class="base-search-card__info">
      <h3 class="base-search-card__title">  DevOps Engineer </h3>
      <h4 class="base-search-card__subtitle"><a>Volvo Cars</a></h4>
      <span class="job-search-card__location">Gothenburg, Västra Götaland County, Sweden</span>
      <time class="job-search-card__listdate" datetime="2026-10-12">1 week ago</time>
    </div>
  </div>
</li>
<li>
  <div class="base-card" data-entity-urn="urn:li:jobPosting:3900000001">
    <a class="base-card__full-link" href="https://se.linkedin.com/jobs/view/3900000001"></a>
    <h3 class="base-search-card__title">Cloud Engineer (Remote)</h3>
    <h4 class="base-search-card__subtitle">Acme</h4>
    <span class="job-search-card__location">Sweden</span>
  </div>
</li>`

const postingPage = `<html><body>
<section class="description">
  <div class="show-more-less-html__markup">
    <p>We run <strong>Kubernetes</strong> on AWS.</p>
    <ul><li>Terraform</li><li>Go</li></ul>
  </div>
  <ul class="description__job-criteria-list">
    <li class="description__job-criteria-item">
      <h3 class="description__job-criteria-subheader">Seniority level</h3>
      <span class="description__job-criteria-text">Mid-Senior level</span>
    </li>
  </ul>
</section></body></html>`

func TestParseSearchHTML(t *testing.T) {
	leads, err := ParseSearchHTML(searchPage)
	require.NoError(t, err)
	require.Len(t, leads, 2)

	l := leads[0]
	assert.Equal(t, "DevOps Engineer", l.Title)
	assert.Equal(t, "Volvo Cars", l.CompanyName)
	assert.Equal(t, "linkedin:3912345678", l.ATSJobID)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/3912345678/", l.URL)
	require.NotNil(t, l.PostedAt)
	assert.Equal(t, 12, l.PostedAt.Day())

	assert.Equal(t, "Remote", leads[1].WorkMode)
}

func TestFetcherPagesAndDedupes(t *testing.T) {
	var (
		mu      sync.Mutex
		queries []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs-guest/jobs/api/seeMoreJobPostings/search", r.URL.Path)
		mu.Lock()
		queries = append(queries, r.URL.Query().Get("keywords")+"@"+r.URL.Query().Get("start"))
		mu.Unlock()
		fmt.Fprint(w, searchPage)
	}))
	defer srv.Close()

	f := &Fetcher{
		Client: util.NewClient(util.NewHostLimiter(1000, 10), "test"),
		Board: config.Board{
			BaseURL:  srv.URL,
			Queries:  []string{"devops", "cloud"},
			Location: "Gothenburg",
			MaxPages: 3,
		},
	}
	res, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "linkedin", res.Source)
	assert.Len(t, res.Leads, 2)
	// a short page ends pagination for that query
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"devops@0", "cloud@0"}, queries)
}

func TestFetcherAllFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := &Fetcher{
		Client: util.NewClient(nil, "test"),
		Board:  config.Board{BaseURL: srv.URL, Queries: []string{"devops"}, MaxPages: 1},
	}
	_, err := f.Fetch(context.Background())
	assert.Error(t, err)
}

func TestDescriber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/jobs-guest/jobs/api/jobPosting/3912345678") {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, postingPage)
	}))
	defer srv.Close()

	d := &Describer{Client: util.NewClient(nil, "test"), BaseURL: srv.URL}
	assert.True(t, d.Handles("https://www.linkedin.com/jobs/view/3912345678/"))
	assert.False(t, d.Handles("https://se.indeed.com/viewjob?jk=1"))

	text, err := d.Describe(context.Background(), "https://www.linkedin.com/jobs/view/3912345678/")
	require.NoError(t, err)
	assert.Contains(t, text, "Kubernetes on AWS")
	assert.Contains(t, text, "- Terraform")
	assert.Contains(t, text, "Seniority level: Mid-Senior level")
}
