// Package metrics expõe os contadores do job no formato Prometheus.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rotisserie/eris"
)

const namespace = "leadsync"

// Recorder agrupa as métricas de um processo. Cada Recorder tem seu próprio registry,
// que é servido em /metrics e enviado ao Pushgateway no fim do run.
type Recorder struct {
	registry *prometheus.Registry

	leadsFetched   prometheus.Counter
	leadsInserted  prometheus.Counter
	backupRecords  prometheus.Gauge
	discrepancies  *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	runsTotal      *prometheus.CounterVec
	lastRunSuccess prometheus.Gauge
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		leadsFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_fetched_total",
			Help:      "Total number of leads fetched from the CRM",
		}),
		leadsInserted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_inserted_total",
			Help:      "Total number of new leads inserted into the lead store",
		}),
		backupRecords: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backup_records",
			Help:      "Number of records in the last lead store backup",
		}),
		discrepancies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discrepancies_total",
			Help:      "Total number of reconciliation discrepancies",
		}, []string{"kind"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage in seconds",
			Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"stage", "status"}),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by outcome",
		}, []string{"status"}),
		lastRunSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) AddFetched(n int) {
	r.leadsFetched.Add(float64(n))
}

func (r *Recorder) AddInserted(n int) {
	r.leadsInserted.Add(float64(n))
}

func (r *Recorder) SetBackupRecords(n int) {
	r.backupRecords.Set(float64(n))
}

// AddDiscrepancies recebe o tipo: "count", "checksum", "missing" ou "field".
func (r *Recorder) AddDiscrepancies(kind string, n int) {
	r.discrepancies.WithLabelValues(kind).Add(float64(n))
}

func (r *Recorder) ObserveStage(stage string, failed bool, d time.Duration) {
	status := "success"
	if failed {
		status = "error"
	}
	r.stageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

func (r *Recorder) RecordRun(failed bool, at time.Time) {
	if failed {
		r.runsTotal.WithLabelValues("failure").Inc()
		return
	}
	r.runsTotal.WithLabelValues("success").Inc()
	r.lastRunSuccess.Set(float64(at.Unix()))
}

// Push envia o registry ao Pushgateway. O job roda e termina, então não há scrape.
func (r *Recorder) Push(ctx context.Context, gatewayURL, job string) error {
	pusher := push.New(gatewayURL, job).Gatherer(r.registry)

	if err := pusher.PushContext(ctx); err != nil {
		return eris.Wrapf(err, "failed to push metrics to %s", gatewayURL)
	}
	return nil
}
