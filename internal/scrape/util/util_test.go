package util

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"HTTPS://WWW.Example.com/jobs/1?utm_source=mail&b=2&a=1#apply", "https://www.example.com/jobs/1?a=1&b=2"},
		{"https://www.linkedin.com/comm/jobs/view/123/?trackingId=x&refId=y&currentJobId=123", "https://www.linkedin.com/comm/jobs/view/123/?currentJobId=123"},
		{"https://se.indeed.com/rc/clk?jk=abc123&from=ja&tk=zz", "https://se.indeed.com/rc/clk?jk=abc123"},
		{"https://se.indeed.com/viewjob?vjk=def", "https://se.indeed.com/viewjob?jk=def"},
		{"  ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalizeURL(tt.in), tt.in)
	}
}

func TestJunkAndScore(t *testing.T) {
	assert.True(t, IsObviousJunkURL("https://www.linkedin.com/comm/jobs/alerts?x=1"))
	assert.True(t, IsObviousJunkURL("mailto:someone@example.com"))
	assert.True(t, IsObviousJunkURL("https://example.com/unsubscribe"))
	assert.False(t, IsObviousJunkURL("https://boards.greenhouse.io/acme/jobs/1"))

	assert.Greater(t, ScoreURL("https://www.linkedin.com/jobs/view/1"), ScoreURL("https://example.com/about"))
	assert.Greater(t, ScoreURL("https://jobs.lever.co/acme/1/apply"), ScoreURL("https://example.com/careers"))
}

func TestURLSourceIDIgnoresTracking(t *testing.T) {
	a := URLSourceID("https://example.com/jobs/1?utm_campaign=x")
	b := URLSourceID("https://EXAMPLE.com/jobs/1")
	assert.Equal(t, a, b)
	assert.Len(t, a, 40)
}

func TestNormalizeLocationAndWorkMode(t *testing.T) {
	assert.Equal(t, "Göteborg, Sweden", NormalizeLocation("Ort:  Göteborg ,Sweden, sweden"))
	assert.Equal(t, "Remote", InferWorkModeFromText("", "Backend (distans)", ""))
	assert.Equal(t, "Hybrid", InferWorkModeFromText("Stockholm (Hybrid)", "", ""))
	assert.Equal(t, "Unknown", InferWorkModeFromText("Malmö", "Developer", ""))
}

func TestClipKeepsUTF8(t *testing.T) {
	assert.Equal(t, "Göte", Clip("Göteborg", 5))
	assert.Equal(t, "abc", Clip(" abc ", 10))
}

func TestHTMLToText(t *testing.T) {
	page := `<html><head><style>p{color:red}</style><script>var x=1;</script></head>
<body><nav><ul><li>Home</li></ul></nav>
<h1>Senior   DevOps Engineer</h1>
<p>We run <b>Kubernetes</b> on AWS.</p>
<ul><li>Terraform</li><li>Go</li></ul>
<footer><p>Cookie policy</p></footer></body></html>`

	got := HTMLToText(page)
	assert.Contains(t, got, "Senior DevOps Engineer")
	assert.Contains(t, got, "Kubernetes on AWS")
	assert.Contains(t, got, "- Terraform")
	assert.NotContains(t, got, "var x")
	assert.NotContains(t, got, "Home")
	assert.NotContains(t, got, "Cookie policy")
}

func TestFindLocation(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><div>Arbetsort: Göteborg | Heltid</div></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "Göteborg", FindLocation(doc))
}

func TestClientGet(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("<p>ok</p>"))
	}))
	defer srv.Close()

	c := NewClient(NewHostLimiter(100, 5), "jobhunter-test")
	page, err := c.FetchPage(context.Background(), srv.URL+"/job")
	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", page)
	assert.Equal(t, "jobhunter-test", gotUA)

	_, err = c.Get(context.Background(), srv.URL+"/missing", "")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestHostLimiterHonoursContext(t *testing.T) {
	hl := NewHostLimiter(0.001, 1)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, hl.WaitURL(ctx, "https://a.example.com/x"))
	cancel()
	assert.Error(t, hl.WaitURL(ctx, "https://a.example.com/y"))

	var nilLimiter *HostLimiter
	assert.NoError(t, nilLimiter.WaitURL(context.Background(), "https://b.example.com"))
}

func TestHostKey(t *testing.T) {
	assert.Equal(t, "linkedin.com", HostKey("https://www.LinkedIn.com/jobs/view/1"))
	assert.Equal(t, "se.indeed.com", HostKey("https://se.indeed.com:443/viewjob?jk=a"))
	assert.Equal(t, "_", HostKey("not a url"))
}

func TestExtractLocationFromLabeledText(t *testing.T) {
	assert.Equal(t, "Stockholm, Sweden", ExtractLocationFromLabeledText("Team: Platform\nLocation: Stockholm, Sweden\nApply"))
	assert.Equal(t, "Malmö", ExtractLocationFromLabeledText("Placering: Malmö · Heltid"))
	assert.Empty(t, ExtractLocationFromLabeledText("Support: 24/7 on call"))
}
