package simulate

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mcdev12/fingerpicker/go/internal/picker"
	"github.com/mcdev12/fingerpicker/go/internal/picker/events"
	"github.com/mcdev12/fingerpicker/go/internal/picker/pick"
	"github.com/mcdev12/fingerpicker/go/internal/picker/registry"
	"github.com/mcdev12/fingerpicker/go/internal/tone"
)

func mustRun(t *testing.T, name string, seed int64) Result {
	t.Helper()
	script, ok := Scenario(name)
	if !ok {
		t.Fatalf("no scenario %q", name)
	}
	res, err := Run(script, picker.DefaultOptions(), seed)
	if err != nil {
		t.Fatalf("Run(%s): %v", name, err)
	}
	return res
}

func firstAt(res Result, typ events.RequestType) (time.Duration, bool) {
	for _, e := range res.Timeline {
		if e.Request.Type == typ {
			return e.At, true
		}
	}
	return 0, false
}

func samples(ds ...time.Duration) int {
	n := 0
	for _, d := range ds {
		n += tone.SampleRate.N(d)
	}
	return n
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		name        string
		rounds      int
		toneStarts  int
		toneStops   int
		firstTone   time.Duration
		finalState  picker.State
		toneSamples int
	}{
		{
			name:        "single",
			rounds:      1,
			toneStarts:  1,
			toneStops:   1,
			firstTone:   1400 * time.Millisecond,
			finalState:  picker.StateFinished,
			toneSamples: samples(1400*time.Millisecond, 4*time.Second),
		},
		{
			name:        "late-join",
			rounds:      1,
			toneStarts:  2,
			toneStops:   2,
			firstTone:   time.Second,
			finalState:  picker.StateFinished,
			toneSamples: samples(time.Second, 3500*time.Millisecond, time.Second, 4*time.Second),
		},
		{
			name:        "early-release",
			rounds:      1,
			toneStarts:  2,
			toneStops:   2,
			firstTone:   time.Second,
			finalState:  picker.StateFinished,
			toneSamples: samples(time.Second, time.Second, 2*time.Second, 4*time.Second),
		},
		{
			name:       "lone-finger",
			finalState: picker.StateActive,
		},
		{
			name:        "group",
			rounds:      1,
			toneStarts:  1,
			toneStops:   1,
			firstTone:   1400 * time.Millisecond,
			finalState:  picker.StateFinished,
			toneSamples: samples(1400*time.Millisecond, 4*time.Second),
		},
		{
			name:        "cancel",
			toneStarts:  1,
			toneStops:   1,
			firstTone:   time.Second,
			finalState:  picker.StateIdle,
			toneSamples: samples(time.Second, 3500*time.Millisecond),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustRun(t, tt.name, 1)

			if len(res.Outcomes) != tt.rounds {
				t.Errorf("rounds = %d, want %d", len(res.Outcomes), tt.rounds)
			}
			if got := res.Count(events.RequestToneStart); got != tt.toneStarts {
				t.Errorf("ToneStart = %d, want %d", got, tt.toneStarts)
			}
			if got := res.Count(events.RequestToneStop); got != tt.toneStops {
				t.Errorf("ToneStop = %d, want %d", got, tt.toneStops)
			}
			if tt.toneStarts > 0 {
				if at, _ := firstAt(res, events.RequestToneStart); at != tt.firstTone {
					t.Errorf("first ToneStart at %s, want %s", at, tt.firstTone)
				}
			}
			if res.Final.State != tt.finalState {
				t.Errorf("final state = %s, want %s", res.Final.State, tt.finalState)
			}
			if got := res.Tone.Len(); got != tt.toneSamples {
				t.Errorf("tone samples = %d, want %d", got, tt.toneSamples)
			}
		})
	}
}

func TestSingleScenarioFeedback(t *testing.T) {
	res := mustRun(t, "single", 4)
	out := res.Outcomes[0]

	if len(out.Winners) != 1 {
		t.Fatalf("winners = %v", out.Winners)
	}
	if w := out.Winners[0]; w < 1 || w > 3 {
		t.Errorf("winner %d was never on screen", w)
	}
	if res.Count(events.RequestHapticTick) == 0 {
		t.Error("no progressive ticks during the countdown")
	}
	if res.Count(events.RequestParticleBurst) != 1 || res.Count(events.RequestFanfare) != 1 {
		t.Errorf("celebration = %d bursts, %d fanfares", res.Count(events.RequestParticleBurst), res.Count(events.RequestFanfare))
	}
	at, ok := firstAt(res, events.RequestFanfare)
	if !ok || at != 5400*time.Millisecond {
		t.Errorf("fanfare at %s, want 5.4s", at)
	}
	if res.Elapsed != 6400*time.Millisecond {
		t.Errorf("elapsed = %s, want 6.4s", res.Elapsed)
	}
}

func TestGroupScenarioBursts(t *testing.T) {
	res := mustRun(t, "group", 2)
	out := res.Outcomes[0]

	if out.Mode != pick.ModeGroup {
		t.Fatalf("mode = %s, want group", out.Mode)
	}
	if n := len(out.Winners); n != 2 && n != 3 {
		t.Errorf("winning team has %d members", n)
	}
	if got := res.Count(events.RequestParticleBurst); got != len(out.Winners) {
		t.Errorf("bursts = %d, want one per winner (%d)", got, len(out.Winners))
	}
}

func TestRunIsDeterministic(t *testing.T) {
	winners := func(res Result) [][]registry.ID {
		out := make([][]registry.ID, 0, len(res.Outcomes))
		for _, o := range res.Outcomes {
			out = append(out, o.Winners)
		}
		return out
	}
	types := func(res Result) []events.RequestType {
		out := make([]events.RequestType, 0, len(res.Timeline))
		for _, e := range res.Timeline {
			out = append(out, e.Request.Type)
		}
		return out
	}

	for _, s := range Scenarios() {
		a, err := Run(s, picker.DefaultOptions(), 99)
		if err != nil {
			t.Fatalf("Run(%s): %v", s.Name, err)
		}
		b, err := Run(s, picker.DefaultOptions(), 99)
		if err != nil {
			t.Fatalf("Run(%s): %v", s.Name, err)
		}
		if diff := cmp.Diff(winners(a), winners(b)); diff != "" {
			t.Errorf("%s winners differ between runs (-first +second):\n%s", s.Name, diff)
		}
		if diff := cmp.Diff(types(a), types(b)); diff != "" {
			t.Errorf("%s timeline differs between runs (-first +second):\n%s", s.Name, diff)
		}
	}
}

func TestRunStepErrors(t *testing.T) {
	tests := []struct {
		name   string
		script Script
		opts   func(*picker.Options)
		want   error
	}{
		{
			name:   "unknown action",
			script: Script{Name: "bad", Steps: []Step{{Action: "wave"}}},
			want:   ErrUnknownAction,
		},
		{
			name:   "unknown mode",
			script: Script{Name: "bad", Steps: []Step{{Action: ActionMode, Mode: "teams-of-three"}}},
			want:   pick.ErrUnknownMode,
		},
		{
			name:   "disabled mode",
			script: Script{Name: "bad", Steps: []Step{{Action: ActionMode, Mode: "group"}}},
			opts:   func(o *picker.Options) { o.EnableTeamMode = false },
			want:   picker.ErrModeUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := picker.DefaultOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}
			if _, err := Run(tt.script, opts, 1); !errors.Is(err, tt.want) {
				t.Errorf("Run() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	body := `name: table-two
description: two fingers, out of order
tail: 2s
steps:
  - at: 300ms
    action: begin
    id: 2
    x: 40
    y: 80
  - at: 0s
    action: begin
    id: 1
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	script, err := LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	want := Script{
		Name:        "table-two",
		Description: "two fingers, out of order",
		Tail:        2 * time.Second,
		Steps: []Step{
			{At: 300 * time.Millisecond, Action: ActionBegin, ID: 2, X: 40, Y: 80},
			{At: 0, Action: ActionBegin, ID: 1},
		},
	}
	if diff := cmp.Diff(want, script); diff != "" {
		t.Fatalf("LoadScript() mismatch (-want +got):\n%s", diff)
	}

	// Steps are replayed in time order; the round is armed at 300ms.
	res, err := Run(script, picker.DefaultOptions(), 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Final.State != picker.StateActive || len(res.Outcomes) != 0 {
		t.Errorf("state = %s with %d rounds after a 2s tail", res.Final.State, len(res.Outcomes))
	}
	if at, ok := firstAt(res, events.RequestToneStart); !ok || at != 1300*time.Millisecond {
		t.Errorf("first ToneStart at %s, want 1.3s", at)
	}

	if _, err := LoadScript(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing script")
	}
}

func TestReport(t *testing.T) {
	res := mustRun(t, "single", 4)

	var buf bytes.Buffer
	if err := Report(&buf, res); err != nil {
		t.Fatalf("Report: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"single", "round 1", res.Outcomes[0].WinningColor.Hex(), "final finished"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := Report(&buf, mustRun(t, "lone-finger", 1)); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !strings.Contains(buf.String(), "no round finished") {
		t.Errorf("report = %s", buf.String())
	}
}
