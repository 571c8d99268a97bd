package nvm

import (
	"fmt"
	"io"
	"math"
	"sync/atomic"
	"time"

	vmetrics "github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"

	"github.com/ferrokv/ferrokv/lib/ferrostore/engines/nvm/internal"
	"github.com/ferrokv/ferrokv/lib/histogram"
)

// settableGauge wraps a VictoriaMetrics/metrics Gauge, which only exposes
// its value through a read callback, with an atomically-stored value so
// observeHeader can Set it directly.
type settableGauge struct {
	bits atomic.Uint64
}

func (g *settableGauge) Set(v float64) {
	g.bits.Store(math.Float64bits(v))
}

func (g *settableGauge) get() float64 {
	return math.Float64frombits(g.bits.Load())
}

func (g *settableGauge) register(set *vmetrics.Set, name string) *vmetrics.Gauge {
	return set.NewGauge(name, g.get)
}

// engineMetrics holds the observational instrumentation of §4.12: gauges
// and a counter exported through VictoriaMetrics/metrics (the Prometheus
// text format the RPC daemon's /metrics endpoint serves), plus
// rcrowley/go-metrics EWMA timers surfaced through Statistics(). None of
// this ever gates correctness; a metrics update never fails an operation.
type engineMetrics struct {
	set *vmetrics.Set

	freeSpace     settableGauge
	usedSpace     settableGauge
	fragmentCount settableGauge
	fragmentSize  settableGauge
	tagCount      settableGauge
	totalWrites   *vmetrics.Counter

	writeTimer     gometrics.Timer
	readTimer      gometrics.Timer
	defragmentTimer gometrics.Timer

	payloadSize *histogram.Size
}

// metricName appends a device label to name when label is non-empty, in
// VictoriaMetrics/metrics' inline Prometheus-label syntax, so a daemon
// exporting several devices on one /metrics endpoint doesn't collide on
// identically-named, unlabeled series.
func metricName(name, label string) string {
	if label == "" {
		return name
	}
	return fmt.Sprintf(`%s{device="%s"}`, name, label)
}

func newEngineMetrics(label string) *engineMetrics {
	set := vmetrics.NewSet()

	m := &engineMetrics{
		set:             set,
		writeTimer:      gometrics.NewTimer(),
		readTimer:       gometrics.NewTimer(),
		defragmentTimer: gometrics.NewTimer(),
		payloadSize:     histogram.NewSize(),
	}

	m.freeSpace.register(set, metricName("ferrokv_free_space_bytes", label))
	m.usedSpace.register(set, metricName("ferrokv_used_space_bytes", label))
	m.fragmentCount.register(set, metricName("ferrokv_fragment_count", label))
	m.fragmentSize.register(set, metricName("ferrokv_fragment_size_bytes", label))
	m.tagCount.register(set, metricName("ferrokv_tag_count", label))
	m.totalWrites = set.NewCounter(metricName("ferrokv_total_writes", label))

	return m
}

// observeHeader refreshes the gauges from the current header snapshot.
// Called after every header save.
func (m *engineMetrics) observeHeader(h internal.Header) {
	free, used, fragCount, fragSize, tags := h.FreeSpace, h.UsedSpace, h.FragmentCount, h.FragmentSize, h.TagCount
	m.freeSpace.Set(float64(free))
	m.usedSpace.Set(float64(used))
	m.fragmentCount.Set(float64(fragCount))
	m.fragmentSize.Set(float64(fragSize))
	m.tagCount.Set(float64(tags))
}

func (m *engineMetrics) observeWrite(d time.Duration, payloadLen int) {
	m.writeTimer.Update(d)
	m.totalWrites.Inc()
	m.payloadSize.AddSample(payloadLen)
}

func (m *engineMetrics) observeRead(d time.Duration) {
	m.readTimer.Update(d)
}

func (m *engineMetrics) observeDefragment(d time.Duration) {
	m.defragmentTimer.Update(d)
}

// WritePrometheus renders this engine's metric set in Prometheus text
// exposition format, for the RPC daemon's /metrics handler (§4.13).
func (m *engineMetrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}

// LatencySnapshot summarizes the go-metrics timers for Statistics().
type LatencySnapshot struct {
	WriteP50Ms       float64
	WriteP99Ms       float64
	ReadP50Ms        float64
	ReadP99Ms        float64
	DefragmentMeanMs float64
	PayloadAvgBytes  int
	PayloadP99Bytes  int
}

func (m *engineMetrics) latencySnapshot() LatencySnapshot {
	toMs := func(ns float64) float64 { return ns / 1e6 }
	return LatencySnapshot{
		WriteP50Ms:       toMs(m.writeTimer.Percentile(0.5)),
		WriteP99Ms:       toMs(m.writeTimer.Percentile(0.99)),
		ReadP50Ms:        toMs(m.readTimer.Percentile(0.5)),
		ReadP99Ms:        toMs(m.readTimer.Percentile(0.99)),
		DefragmentMeanMs: toMs(m.defragmentTimer.Mean()),
		PayloadAvgBytes:  m.payloadSize.Average(),
		PayloadP99Bytes:  m.payloadSize.Percentile(99),
	}
}
