// Package metrics keeps per-run counters on a private Prometheus registry.
// A run is short lived, so the registry is written to a node_exporter
// textfile at the end instead of being scraped.
package metrics

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"
)

const namespace = "jobhunter"

const lastSuccessName = namespace + "_last_success_timestamp_seconds"

// Label values shared by callers.
const (
	ResultSuccess = "success"
	ResultError   = "error"

	KindCV     = "cv"
	KindLetter = "cover_letter"
)

// Metrics holds every collector of one run.
type Metrics struct {
	reg       *prometheus.Registry
	succeeded bool

	EmailsScanned   prometheus.Counter
	Leads           *prometheus.CounterVec
	JobsAdded       *prometheus.CounterVec
	JobsClassified  *prometheus.CounterVec
	DocsCompiled    *prometheus.CounterVec
	MailsSent       *prometheus.CounterVec
	RunDuration     prometheus.Gauge
	LastSuccessTime prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		EmailsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_scanned_total",
			Help:      "Number of emails read from the configured mailboxes.",
		}),
		Leads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_total",
			Help:      "Job leads returned by each source before filtering.",
		}, []string{"source"}),
		JobsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_added_total",
			Help:      "New jobs stored per source.",
		}, []string{"source"}),
		JobsClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_classified_total",
			Help:      "Jobs assigned a CV role, by role and method.",
		}, []string{"role", "method"}),
		DocsCompiled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_compiled_total",
			Help:      "pdflatex compilations by document kind and result.",
		}, []string{"kind", "result"}),
		MailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mails_sent_total",
			Help:      "Application emails by result.",
		}, []string{"result"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		LastSuccessTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that finished without a fatal error.",
		}),
	}
	m.reg.MustRegister(
		m.EmailsScanned,
		m.Leads,
		m.JobsAdded,
		m.JobsClassified,
		m.DocsCompiled,
		m.MailsSent,
		m.RunDuration,
		m.LastSuccessTime,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveRun records the run duration and, when ok, the success time.
func (m *Metrics) ObserveRun(start time.Time, ok bool) {
	now := time.Now()
	m.RunDuration.Set(now.Sub(start).Seconds())
	if ok {
		m.succeeded = true
		m.LastSuccessTime.Set(float64(now.Unix()))
	}
}

// Result maps an error to the result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// WriteTextfile writes the registry in text exposition format. The write
// is atomic, so node_exporter never sees a partial file. A run that did not
// succeed keeps the last success time found in the existing file.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	var readErr error
	if !m.succeeded {
		prev, err := readGauge(path, lastSuccessName)
		if err != nil {
			readErr = fmt.Errorf("metrics read %s: %w", path, err)
		}
		m.LastSuccessTime.Set(prev)
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("metrics write %s: %w", path, err)
	}
	return readErr
}

// readGauge returns the value of an unlabelled gauge in a textfile. A
// missing file or metric reads as 0.
func readGauge(path, name string) (float64, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	parser := expfmt.NewTextParser(model.UTF8Validation)
	families, err := parser.TextToMetricFamilies(f)
	if err != nil {
		return 0, err
	}
	fam, ok := families[name]
	if !ok || len(fam.GetMetric()) == 0 {
		return 0, nil
	}
	return fam.GetMetric()[0].GetGauge().GetValue(), nil
}
