package progress

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// Records every update it receives.
type recorder struct {
	updates []Update
}

func (r *recorder) Report(u Update) {
	r.updates = append(r.updates, u)
}

func (r *recorder) percents() []int {
	out := make([]int, len(r.updates))
	for i, u := range r.updates {
		out[i] = u.Percent
	}
	return out
}

func TestMonotonic(t *testing.T) {
	tests := []struct {
		name string
		in   []int
		want []int
	}{
		{
			name: "increasing",
			in:   []int{0, 10, 50, 100},
			want: []int{0, 10, 50, 100},
		},
		{
			name: "decrease raised to last",
			in:   []int{40, 20, 60},
			want: []int{40, 40, 60},
		},
		{
			name: "clamped",
			in:   []int{-5, 150},
			want: []int{0, 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			sink := Monotonic(rec)
			for _, p := range tt.in {
				sink.Report(Update{Phase: PhaseStaging, Percent: p})
			}

			got := rec.percents()
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestMonotonicKeepsPhase(t *testing.T) {
	rec := &recorder{}
	sink := Monotonic(rec)
	sink.Report(Update{Phase: PhaseStaged, Percent: 30})
	sink.Report(Update{Phase: PhaseProbed, Percent: 10})

	if rec.updates[1].Phase != PhaseProbed {
		t.Fatalf("phase = %q, want %q", rec.updates[1].Phase, PhaseProbed)
	}
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Multi(a, nil, b).Report(Update{Phase: PhaseDone, Percent: 100})

	if len(a.updates) != 1 || len(b.updates) != 1 {
		t.Fatalf("updates = %d, %d, want 1, 1", len(a.updates), len(b.updates))
	}
}

func TestOr(t *testing.T) {
	Or(nil).Report(Update{}) // must not panic

	rec := &recorder{}
	Or(rec).Report(Update{Percent: 1})
	if len(rec.updates) != 1 {
		t.Fatal("Or replaced a non-nil sink")
	}
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	Log(logger).Report(Update{Phase: PhaseDownloaded, Percent: 40})

	out := buf.String()
	if !strings.Contains(out, "phase=downloaded") || !strings.Contains(out, "percent=40") {
		t.Fatalf("log output = %q", out)
	}
}

func TestBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewBar(&buf)
	bar.Report(Update{Phase: PhaseStaging, Percent: 10})
	bar.Report(Update{Phase: PhaseDone, Percent: 100})

	if buf.Len() == 0 {
		t.Fatal("bar wrote nothing")
	}
}
