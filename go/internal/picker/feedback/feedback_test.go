package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mcdev12/fingerpicker/go/internal/picker/color"
	"github.com/mcdev12/fingerpicker/go/internal/picker/events"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

type fakePlayer struct {
	starts []time.Duration
	stops  int
}

func (p *fakePlayer) Start(d time.Duration) { p.starts = append(p.starts, d) }
func (p *fakePlayer) Stop() { p.stops++ }

func emitAll(c Collaborator) {
	c.HapticPulse(500 * time.Millisecond)
	c.HapticTick()
	c.ToneStart(4 * time.Second)
	c.ToneStop()
	c.Fanfare()
	c.ParticleBurst(12, 34, color.Cyan)
}

func TestFanoutAndRecorder(t *testing.T) {
	var a, b Recorder
	emitAll(Fanout{a.Collaborator(), Nop{}, b.Collaborator()})

	want := []events.RequestType{
		events.RequestHapticPulse,
		events.RequestHapticTick,
		events.RequestToneStart,
		events.RequestToneStop,
		events.RequestFanfare,
		events.RequestParticleBurst,
	}
	if diff := cmp.Diff(want, a.Types()); diff != "" {
		t.Fatalf("recorder a (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(a.Requests, b.Requests); diff != "" {
		t.Fatalf("fanout delivered different requests (-a +b):\n%s", diff)
	}

	if a.Requests[0].Duration() != 500*time.Millisecond || a.Requests[2].DurationMs != 4000 {
		t.Fatalf("durations not carried: %+v", a.Requests)
	}
	burst := a.Requests[5]
	if burst.X != 12 || burst.Y != 34 || burst.Color == nil || *burst.Color != color.Cyan {
		t.Fatalf("burst = %+v", burst)
	}
	if a.Count(events.RequestHapticTick) != 1 {
		t.Fatal("Count mismatch")
	}
	a.Reset()
	if len(a.Requests) != 0 {
		t.Fatal("Reset kept requests")
	}
}

func TestAudioRoutesToneOnly(t *testing.T) {
	p := &fakePlayer{}
	emitAll(Audio{Player: p})

	if diff := cmp.Diff([]time.Duration{4 * time.Second}, p.starts); diff != "" {
		t.Fatalf("starts (-want +got):\n%s", diff)
	}
	if p.stops != 1 {
		t.Fatalf("stops = %d", p.stops)
	}
}

func TestNATSPublisherSubjects(t *testing.T) {
	conn := &fakeConn{}
	p := newNATSPublisher(conn, "picker.tables")
	table := uuid.MustParse("7f1c2a86-6a53-4c8e-9a43-3f2f5c1d0b11")

	c := p.ForTable(table)
	c.ToneStart(4 * time.Second)
	c.ParticleBurst(1, 2, color.Magenta)

	if err := p.PublishRoundFinished(table, events.RoundFinishedPayload{RoundID: "r1", Mode: "single", Winners: []int64{3}}); err != nil {
		t.Fatal(err)
	}

	wantSubjects := []string{
		"picker.tables.7f1c2a86-6a53-4c8e-9a43-3f2f5c1d0b11.feedback.ToneStart",
		"picker.tables.7f1c2a86-6a53-4c8e-9a43-3f2f5c1d0b11.feedback.ParticleBurst",
		"picker.tables.7f1c2a86-6a53-4c8e-9a43-3f2f5c1d0b11.round.finished",
	}
	if diff := cmp.Diff(wantSubjects, conn.subjects); diff != "" {
		t.Fatalf("subjects (-want +got):\n%s", diff)
	}

	var burst events.Request
	if err := json.Unmarshal(conn.payloads[1], &burst); err != nil {
		t.Fatal(err)
	}
	if burst.Type != events.RequestParticleBurst || burst.Color == nil || *burst.Color != color.Magenta {
		t.Fatalf("decoded burst = %+v", burst)
	}
}

func TestNATSPublisherErrors(t *testing.T) {
	boom := errors.New("boom")
	p := newNATSPublisher(&fakeConn{err: boom}, "picker")

	// Collaborator calls swallow the error; direct publishes surface it.
	p.ForTable(uuid.New()).HapticTick()
	if err := p.PublishModeChanged(uuid.New(), events.ModeChangedPayload{Mode: "group"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

type fakeStream struct {
	msgs []*nats.Msg
	opts int
	seen map[string]bool
	err  error
	seq  uint64
}

func (f *fakeStream) PublishMsg(_ context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, msg)
	f.opts = len(opts)
	id := msg.Header.Get("Round-ID")
	dup := f.seen[id]
	if !dup {
		f.seq++
	}
	f.seen[id] = true
	return &jetstream.PubAck{Stream: "PICKER_ROUNDS", Sequence: f.seq, Duplicate: dup}, nil
}

func TestNATSPublisherStreamsRounds(t *testing.T) {
	conn := &fakeConn{}
	stream := &fakeStream{seen: make(map[string]bool)}
	p := newNATSPublisher(conn, "picker.tables")
	p.js, p.stream, p.wait = stream, "PICKER_ROUNDS", time.Second
	table := uuid.New()

	payload := events.RoundFinishedPayload{RoundID: "r7", Mode: "group", Winners: []int64{1, 4}}
	for i := 0; i < 2; i++ {
		if err := p.PublishRoundFinished(table, payload); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.PublishModeChanged(table, events.ModeChangedPayload{Mode: "group"}); err != nil {
		t.Fatal(err)
	}

	if len(stream.msgs) != 2 || stream.seq != 1 {
		t.Fatalf("stream got %d messages, sequence %d", len(stream.msgs), stream.seq)
	}
	if stream.opts != 2 {
		t.Errorf("publish options = %d, want msg id and expected stream", stream.opts)
	}
	if got, want := stream.msgs[0].Subject, "picker.tables."+table.String()+".round.finished"; got != want {
		t.Errorf("subject = %q, want %q", got, want)
	}
	// Mode changes stay on core NATS.
	if len(conn.subjects) != 1 {
		t.Errorf("core subjects = %v", conn.subjects)
	}

	stream.err = errors.New("no responders")
	if err := p.PublishRoundFinished(table, payload); !errors.Is(err, stream.err) {
		t.Errorf("err = %v", err)
	}
}

func TestRoundStreamConfig(t *testing.T) {
	cfg := DefaultNATSConfig()
	cfg.StreamName = "PICKER_ROUNDS"
	sc := roundStreamConfig(cfg)

	if diff := cmp.Diff([]string{"picker.tables.*.round.finished"}, sc.Subjects); diff != "" {
		t.Errorf("subjects (-want +got):\n%s", diff)
	}
	if sc.Duplicates != cfg.DuplicateWindow || sc.MaxAge != cfg.MaxAge {
		t.Errorf("stream config = %+v", sc)
	}
}
