package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 网关的 Prometheus 指标
type Metrics struct {
	registry *prometheus.Registry

	Frames      *prometheus.CounterVec // result: decoded | failed
	Handshakes  *prometheus.CounterVec // result: ok | timeout | error
	Parameters  *prometheus.GaugeVec   // key, unit
	Commands    *prometheus.CounterVec // kind: init | register | control | unknown
	Sessions    prometheus.Gauge
	Dropped     prometheus.Counter
	LastFrameTS prometheus.Gauge
}

// New 创建并注册全部指标到独立的 registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consult_frames_total",
			Help: "Frames read from the ECU link",
		}, []string{"result"}),
		Handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consult_handshakes_total",
			Help: "Init handshakes with the ECU",
		}, []string{"result"}),
		Parameters: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "consult_parameter_value",
			Help: "Last decoded physical value per parameter",
		}, []string{"key", "unit"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consult_mock_commands_total",
			Help: "Commands received by the mock ECU",
		}, []string{"kind"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "consult_mock_sessions",
			Help: "Open mock ECU sessions",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consult_dispatch_dropped_total",
			Help: "Samples dropped because the dispatch buffer was full",
		}),
		LastFrameTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "consult_last_frame_timestamp_seconds",
			Help: "Unix time of the last decoded frame",
		}),
	}

	m.registry.MustRegister(
		m.Frames,
		m.Handshakes,
		m.Parameters,
		m.Commands,
		m.Sessions,
		m.Dropped,
		m.LastFrameTS,
	)
	return m
}

// Handler 返回 /metrics 的 HTTP 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 供测试读取指标
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
