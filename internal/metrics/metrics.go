// Package metrics exposes Prometheus collectors for the input and control
// stages. All methods are safe on a nil *Metrics, which disables recording.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "flightcore"

// Metrics holds the collectors.
type Metrics struct {
	frameRate      prometheus.Gauge       // receiver frame rate (Hz)
	autoCutoff     prometheus.Gauge       // applied adaptive input cutoff (Hz)
	failsafePhase  prometheus.Gauge       // current failsafe phase
	failsafeStages *prometheus.CounterVec // stage entries, label "stage"
	disarms        *prometheus.CounterVec // disarm requests, label "reason"
	invalidFrames  prometheus.Counter     // frames with an axis channel out of range
	deviceStatus   *prometheus.CounterVec // device statuses, label "status"
	controlCycles  *prometheus.CounterVec // control cycles, label "topology"
	itermResets    prometheus.Counter     // cycles that zeroed the integrators
	tpaFactor      prometheus.Gauge       // last TPA factor
}

// New registers the collectors with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		frameRate: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "input", Name: "frame_rate_hz",
			Help: "Smoothed receiver frame rate",
		}),
		autoCutoff: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "input", Name: "auto_cutoff_hz",
			Help: "Applied adaptive input filter cutoff",
		}),
		failsafePhase: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "failsafe", Name: "phase",
			Help: "Failsafe phase (0 idle, 1 rx loss detected, 3 landed)",
		}),
		failsafeStages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "failsafe", Name: "stage_total",
			Help: "Failsafe stage activations",
		}, []string{"stage"}),
		disarms: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "arming", Name: "disarm_total",
			Help: "Disarm requests by reason",
		}, []string{"reason"}),
		invalidFrames: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "input", Name: "invalid_frames_total",
			Help: "Frames with an axis channel outside the valid range",
		}),
		deviceStatus: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "input", Name: "device_status_total",
			Help: "Non-idle device statuses",
		}, []string{"status"}),
		controlCycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "control", Name: "cycles_total",
			Help: "Control cycles run",
		}, []string{"topology"}),
		itermResets: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "control", Name: "iterm_resets_total",
			Help: "Control cycles that zeroed the integrators",
		}),
		tpaFactor: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "control", Name: "tpa_factor",
			Help: "Last throttle PID attenuation factor",
		}),
	}
}

func (m *Metrics) SetFrameRate(hz float64) {
	if m == nil {
		return
	}
	m.frameRate.Set(hz)
}

func (m *Metrics) SetAutoCutoff(hz float64) {
	if m == nil {
		return
	}
	m.autoCutoff.Set(hz)
}

func (m *Metrics) SetFailsafePhase(phase int) {
	if m == nil {
		return
	}
	m.failsafePhase.Set(float64(phase))
}

func (m *Metrics) FailsafeStage(stage string) {
	if m == nil {
		return
	}
	m.failsafeStages.WithLabelValues(stage).Inc()
}

func (m *Metrics) Disarm(reason string) {
	if m == nil {
		return
	}
	m.disarms.WithLabelValues(reason).Inc()
}

func (m *Metrics) InvalidFrame() {
	if m == nil {
		return
	}
	m.invalidFrames.Inc()
}

func (m *Metrics) DeviceStatus(status string) {
	if m == nil {
		return
	}
	m.deviceStatus.WithLabelValues(status).Inc()
}

func (m *Metrics) ControlCycle(topology string) {
	if m == nil {
		return
	}
	m.controlCycles.WithLabelValues(topology).Inc()
}

func (m *Metrics) ItermReset() {
	if m == nil {
		return
	}
	m.itermResets.Inc()
}

func (m *Metrics) SetTpaFactor(v float64) {
	if m == nil {
		return
	}
	m.tpaFactor.Set(v)
}
