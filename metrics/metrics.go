// Package metrics records guardrail and ritual outcomes in a private
// Prometheus registry that can be exported for the node_exporter textfile
// collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "strictgate"

// Stage status values exported by the ritual_stage_status gauge.
const (
	StageFailed  = 0
	StagePassed  = 1
	StageSkipped = -1
)

// Recorder holds the strictgate collectors.
type Recorder struct {
	registry *prometheus.Registry

	guardrailCheck   *prometheus.GaugeVec
	guardrailMissing *prometheus.GaugeVec
	guardrailErrors  prometheus.Gauge
	stageStatus      *prometheus.GaugeVec
	ritualSuccess    prometheus.Gauge
	lastRun          *prometheus.GaugeVec

	now func() time.Time
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		guardrailCheck: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "guardrail",
			Name:      "check_passed",
			Help:      "Whether a guardrail file passed (1) or failed (0).",
		}, []string{"label", "path"}),
		guardrailMissing: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "guardrail",
			Name:      "missing_strings",
			Help:      "Number of required strings missing from a guardrail file.",
		}, []string{"label", "path"}),
		guardrailErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "guardrail",
			Name:      "errors",
			Help:      "Failed guardrail files in the last run.",
		}),
		stageStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ritual",
			Name:      "stage_status",
			Help:      "Strict ritual stage outcome: 1 passed, 0 failed, -1 skipped.",
		}, []string{"stage"}),
		ritualSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ritual",
			Name:      "success",
			Help:      "Whether the last strict ritual completed (1) or failed (0).",
		}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last run per pipeline.",
		}, []string{"pipeline"}),
		now: time.Now,
	}

	r.registry.MustRegister(
		r.guardrailCheck,
		r.guardrailMissing,
		r.guardrailErrors,
		r.stageStatus,
		r.ritualSuccess,
		r.lastRun,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveGuardrailCheck records one file check.
func (r *Recorder) ObserveGuardrailCheck(label, path string, passed bool, missing int) {
	r.guardrailCheck.WithLabelValues(label, path).Set(boolValue(passed))
	r.guardrailMissing.WithLabelValues(label, path).Set(float64(missing))
}

// ObserveGuardrailRun records the aggregate of a guardrail run.
func (r *Recorder) ObserveGuardrailRun(errors int) {
	r.guardrailErrors.Set(float64(errors))
	r.lastRun.WithLabelValues("guardrails").Set(float64(r.now().Unix()))
}

// ObserveStage records a ritual stage outcome using the Stage* values.
func (r *Recorder) ObserveStage(stage string, status int) {
	r.stageStatus.WithLabelValues(stage).Set(float64(status))
}

// ObserveRitual records the final ritual verdict.
func (r *Recorder) ObserveRitual(ok bool) {
	r.ritualSuccess.Set(boolValue(ok))
	r.lastRun.WithLabelValues("ritual").Set(float64(r.now().Unix()))
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
