// Package metric publishes per element kind counters with expvar.
package metric

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const elementsLabel = "gst.elements"

const (
	// ElementCounter counts instances created with the factory.
	ElementCounter = "Elements"
	// BufferCounter counts buffers passed by the instances.
	BufferCounter = "Buffers"
	// ByteCounter counts payload bytes passed by the instances.
	ByteCounter = "Bytes"
	// LatencyCounter keeps the latest interval between two buffers.
	LatencyCounter = "Latency"
)

var (
	kinds = metrics{
		m: make(map[string]metric),
	}

	counters = []string{
		ElementCounter,
		BufferCounter,
		ByteCounter,
		LatencyCounter,
	}
)

// Get metrics values for provided element kind.
func Get(kind string) map[string]string {
	return getCounters(kind)
}

// GetAll returns counters for all measured kinds.
func GetAll() map[string]map[string]string {
	kinds.Lock()
	defer kinds.Unlock()
	m := make(map[string]map[string]string, len(kinds.m))
	for kind := range kinds.m {
		m[kind] = getCounters(kind)
	}
	return m
}

func getCounters(kind string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		if v := expvar.Get(key(kind, counter)); v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// ResetFunc returns new Measure closure. Capture is postponed until the
// element actually starts streaming.
type ResetFunc func() MeasureFunc

// MeasureFunc captures metrics when buffer is passed.
type MeasureFunc func(size int)

// Meter registers new instance of the kind and returns closure to capture
// its counters.
func Meter(kind string) ResetFunc {
	metric := kinds.get(kind)
	metric.elements.Add(1)
	return func() MeasureFunc {
		calledAt := time.Now()
		return func(size int) {
			metric.latency.set(time.Since(calledAt))
			metric.buffers.Add(1)
			metric.bytes.Add(int64(size))
			calledAt = time.Now()
		}
	}
}

type metrics struct {
	sync.Mutex
	m map[string]metric
}

func (m *metrics) get(kind string) metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[kind]; ok {
		return metric
	}
	metric := newMetric(kind)
	m.m[kind] = metric
	return metric
}

type metric struct {
	elements *expvar.Int
	buffers  *expvar.Int
	bytes    *expvar.Int
	latency  *duration
}

func newMetric(kind string) metric {
	m := metric{
		elements: expvar.NewInt(key(kind, ElementCounter)),
		buffers:  expvar.NewInt(key(kind, BufferCounter)),
		bytes:    expvar.NewInt(key(kind, ByteCounter)),
		latency:  &duration{},
	}
	expvar.Publish(key(kind, LatencyCounter), m.latency)
	return m
}

func key(kind, counter string) string {
	return fmt.Sprintf("%s.%s.%s", elementsLabel, kind, counter)
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%q", time.Duration(atomic.LoadInt64(&v.d)))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}
