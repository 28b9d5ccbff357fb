// Package metrics provides Prometheus metrics for ofslicerd.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ovslicer/ovslicer/internal/engine"
	"github.com/ovslicer/ovslicer/ovs"
)

const (
	SlicesGauge             = "ofslicerd_slices"
	SlicePortsGauge         = "ofslicerd_slice_ports"
	GroupsGauge             = "ofslicerd_groups"
	RevalidationTotal       = "ofslicerd_revalidation_total"
	RevalidationDuration    = "ofslicerd_revalidation_duration_seconds"
	SliceTrafficPacketTotal = "ofslicerd_slice_packets_total"
	SliceTrafficByteTotal   = "ofslicerd_slice_bytes_total"
)

// Metrics provides Prometheus metrics for the daemon.
type Metrics struct {
	slicesGauge    *prometheus.GaugeVec
	slicePortGauge *prometheus.GaugeVec
	groupsGauge    *prometheus.GaugeVec

	revalidationTotal    *prometheus.CounterVec
	revalidationDuration *prometheus.HistogramVec

	sliceTrafficPackets *prometheus.GaugeVec
	sliceTrafficBytes   *prometheus.GaugeVec
}

// New creates a new set of metrics and registers them with registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		slicesGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: SlicesGauge,
			Help: "Current number of slices on a switch.",
		}, []string{"dpid"}),
		slicePortGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: SlicePortsGauge,
			Help: "Current number of sanitized endpoints in a slice.",
		}, []string{"dpid", "slice"}),
		groupsGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: GroupsGauge,
			Help: "Current number of OpenFlow groups allocated to a slice's flood fan-out.",
		}, []string{"dpid", "slice"}),
		revalidationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: RevalidationTotal,
			Help: "Total number of revalidation passes run, by outcome.",
		}, []string{"dpid", "outcome"}),
		revalidationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    RevalidationDuration,
			Help:    "Time spent computing and applying a revalidation pass.",
			Buckets: prometheus.DefBuckets,
		}, []string{"dpid"}),
		sliceTrafficPackets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: SliceTrafficPacketTotal,
			Help: "Packet count across every flow carrying a slice's cookie (engine.SliceCookie), per ovs-ofctl dump-aggregate.",
		}, []string{"dpid", "slice"}),
		sliceTrafficBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: SliceTrafficByteTotal,
			Help: "Byte count across every flow carrying a slice's cookie (engine.SliceCookie), per ovs-ofctl dump-aggregate.",
		}, []string{"dpid", "slice"}),
	}
	m.register(registry)
	return m
}

func (m *Metrics) register(registry *prometheus.Registry) {
	registry.MustRegister(
		m.slicesGauge,
		m.slicePortGauge,
		m.groupsGauge,
		m.revalidationTotal,
		m.revalidationDuration,
		m.sliceTrafficPackets,
		m.sliceTrafficBytes,
	)
}

// Handler returns an http.Handler serving registry's metrics.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveSlices records the current slice and group population of dpid's
// switch state. Called periodically by the daemon's metrics poll loop.
func (m *Metrics) ObserveSlices(dpid string, slices []*engine.Slice) {
	m.slicesGauge.WithLabelValues(dpid).Set(float64(len(slices)))

	for _, s := range slices {
		label := sliceLabel(s.ID)
		m.slicePortGauge.WithLabelValues(dpid, label).Set(float64(len(s.Sanitized)))
		m.groupsGauge.WithLabelValues(dpid, label).Set(float64(len(s.Groups)))
	}
}

// ObserveRevalidation records the outcome and duration of one revalidation
// pass.
func (m *Metrics) ObserveRevalidation(dpid string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.revalidationTotal.WithLabelValues(dpid, outcome).Inc()
	m.revalidationDuration.WithLabelValues(dpid).Observe(d.Seconds())
}

// ObserveSliceTraffic records stats as the current traffic counters for
// slice id on dpid.
func (m *Metrics) ObserveSliceTraffic(dpid string, id engine.SliceID, stats *ovs.FlowStats) {
	label := sliceLabel(id)
	m.sliceTrafficPackets.WithLabelValues(dpid, label).Set(float64(stats.PacketCount))
	m.sliceTrafficBytes.WithLabelValues(dpid, label).Set(float64(stats.ByteCount))
}

func sliceLabel(id engine.SliceID) string {
	return strconv.Itoa(int(id))
}
