package common

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics counts the bytes and chunks consumed by one pass over an image.
// Counters may be bumped from any goroutine.
type Metrics struct {
	bytes  atomic.Int64
	chunks atomic.Int64
	total  atomic.Int64

	mu      sync.Mutex
	started time.Time
	stopped time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// Start marks the beginning of the pass. Later calls are ignored.
func (m *Metrics) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started.IsZero() {
		m.started = time.Now()
	}
}

// Stop freezes the pass duration.
func (m *Metrics) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started.IsZero() && m.stopped.IsZero() {
		m.stopped = time.Now()
	}
}

// AddChunk counts one exported chunk of the given size.
func (m *Metrics) AddChunk(size int64) {
	m.chunks.Add(1)
	if size > 0 {
		m.bytes.Add(size)
	}
}

// SetTotalBytes records the image size so progress can be shown as a
// percentage.
func (m *Metrics) SetTotalBytes(total int64) {
	m.total.Store(max(total, 0))
}

// Reader returns a reader that counts every byte read from r.
func (m *Metrics) Reader(r io.Reader) io.Reader {
	return readerFunc(func(p []byte) (int, error) {
		n, err := r.Read(p)
		m.bytes.Add(int64(n))
		return n, err
	})
}

type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Duration   time.Duration
	Bytes      int64
	TotalBytes int64
	Chunks     int64
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	var elapsed time.Duration
	switch {
	case m.started.IsZero():
	case m.stopped.IsZero():
		elapsed = time.Since(m.started)
	default:
		elapsed = m.stopped.Sub(m.started)
	}
	m.mu.Unlock()
	return MetricsSnapshot{
		Duration:   elapsed,
		Bytes:      m.bytes.Load(),
		TotalBytes: m.total.Load(),
		Chunks:     m.chunks.Load(),
	}
}

func (s MetricsSnapshot) ThroughputBytesPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Bytes) / s.Duration.Seconds()
}

var byteUnits = []string{"KiB", "MiB", "GiB", "TiB"}

// FormatBytes renders b with a binary unit, e.g. "16.00 KiB".
func FormatBytes(b int64) string {
	if b < 1024 {
		return fmt.Sprintf("%d B", b)
	}
	v := float64(b) / 1024
	unit := 0
	for v >= 1024 && unit < len(byteUnits)-1 {
		v /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", v, byteUnits[unit])
}

func formatProgressLine(s MetricsSnapshot) string {
	rate := s.ThroughputBytesPerSecond() / (1 << 20)
	if s.TotalBytes <= 0 {
		return fmt.Sprintf("Read %s at %.2f MiB/s", FormatBytes(s.Bytes), rate)
	}
	pct := 100 * float64(min(s.Bytes, s.TotalBytes)) / float64(s.TotalBytes)
	return fmt.Sprintf("Read %6.2f%% of %s at %.2f MiB/s", pct, FormatBytes(s.TotalBytes), rate)
}

// StartProgressPrinter redraws a progress line on w every interval until
// the returned function is called. The final call clears the line.
func StartProgressPrinter(w io.Writer, m *Metrics, interval time.Duration) func() {
	if w == nil || m == nil {
		return func() {}
	}
	if interval <= 0 {
		interval = time.Second
	}
	stop := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		tick := time.NewTicker(interval)
		defer tick.Stop()
		width := 0
		for {
			select {
			case <-stop:
				if width > 0 {
					fmt.Fprint(w, "\r"+strings.Repeat(" ", width)+"\r")
				}
				return
			case <-tick.C:
				line := formatProgressLine(m.Snapshot())
				fmt.Fprintf(w, "\r%-*s", width, line)
				width = max(width, len(line))
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(stop) })
		<-finished
	}
}
