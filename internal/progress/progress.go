package progress

import (
	"log/slog"
	"sync"
)

// Names the step a milestone belongs to.
type Phase string

const (
	PhaseStaging     Phase = "staging"
	PhaseStaged      Phase = "staged"
	PhaseProbed      Phase = "engine ready"
	PhaseStarted     Phase = "building"
	PhaseExited      Phase = "build exited"
	PhaseCaptured    Phase = "output captured"
	PhaseCleanup     Phase = "cleanup"
	PhaseDownloading Phase = "downloading"
	PhaseDownloaded  Phase = "downloaded"
	PhaseExtracted   Phase = "extracted"
	PhaseNormalized  Phase = "normalized"
	PhaseDone        Phase = "done"
)

// A single milestone. Percent is in [0, 100].
type Update struct {
	Phase   Phase `json:"phase"`
	Percent int   `json:"percent"`
}

// Receives progress milestones.
type Sink interface {
	Report(Update)
}

// Adapts a plain function to a [Sink].
type Func func(Update)

// Calls f.
func (f Func) Report(u Update) {
	f(u)
}

// A sink that drops every update.
var Discard Sink = Func(func(Update) {})

// Returns s, or [Discard] if s is nil.
func Or(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

// Reports the same update to every non-nil sink, in order.
func Multi(sinks ...Sink) Sink {
	return Func(func(u Update) {
		for _, s := range sinks {
			if s != nil {
				s.Report(u)
			}
		}
	})
}

// Logs every update at debug level.
func Log(logger *slog.Logger) Sink {
	return Func(func(u Update) {
		logger.Debug("progress", "phase", u.Phase, "percent", u.Percent)
	})
}

// Wraps a sink so that it only ever sees a non-decreasing percentage in
// [0, 100].
//
// Values are clamped to the range. A value lower than the last one reported
// is raised to it, so the phase still reaches the sink. Safe for concurrent
// use.
func Monotonic(s Sink) Sink {
	m := &monotonic{next: Or(s)}
	return m
}

type monotonic struct {
	mu   sync.Mutex
	last int
	next Sink
}

func (m *monotonic) Report(u Update) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u.Percent = max(0, min(100, u.Percent))
	if u.Percent < m.last {
		u.Percent = m.last
	}
	m.last = u.Percent
	m.next.Report(u)
}
