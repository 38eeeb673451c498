package profiling

import (
	"strings"
	"testing"
	"time"
)

func TestRecorderTrack(t *testing.T) {
	r := NewRecorder()
	stop := r.Track("terrain.ProcessTick")
	time.Sleep(2 * time.Millisecond)
	stop()
	r.Track("terrain.ProcessTick")()
	r.Track("physics.Raycast")()

	if got := r.Count("terrain.ProcessTick"); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
	snap := r.Snapshot()
	if snap["terrain.ProcessTick"] < 2*time.Millisecond {
		t.Errorf("ProcessTick total %v, want at least 2ms", snap["terrain.ProcessTick"])
	}

	top := r.TopN(1)
	if !strings.HasPrefix(top, "terrain.ProcessTick:") || strings.Contains(top, ",") {
		t.Errorf("TopN(1) = %q", top)
	}
	if got := r.TopN(10); !strings.Contains(got, "physics.Raycast:") {
		t.Errorf("TopN(10) = %q, missing physics.Raycast", got)
	}

	r.ResetTick()
	if len(r.Snapshot()) != 0 || r.Count("terrain.ProcessTick") != 0 {
		t.Errorf("ResetTick should clear totals")
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.Track("x")()
	r.ResetTick()
	if r.Count("x") != 0 || len(r.Snapshot()) != 0 || r.TopN(3) != "" {
		t.Errorf("nil recorder should record nothing")
	}
}

func TestFormatMs(t *testing.T) {
	cases := map[time.Duration]string{
		0:                       "0ms",
		1500 * time.Microsecond: "1.5ms",
		3 * time.Millisecond:    "3ms",
	}
	for d, want := range cases {
		if got := formatMs(d); got != want {
			t.Errorf("formatMs(%v) = %q, want %q", d, got, want)
		}
	}
}
