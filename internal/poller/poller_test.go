package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/MattBortsov/homework-bot/internal/metrics"
	"github.com/MattBortsov/homework-bot/internal/practicum"
	"github.com/MattBortsov/homework-bot/internal/review"
	"github.com/MattBortsov/homework-bot/pkg/logx"
)

type fakeClient struct {
	raw json.RawMessage
	err error

	lastSince int64
}

func (f *fakeClient) Fetch(ctx context.Context, since int64) (json.RawMessage, error) {
	f.lastSince = since
	return f.raw, f.err
}

type sent struct {
	kind string
	text string
}

type fakeNotifier struct {
	sent []sent
}

func (f *fakeNotifier) Notify(ctx context.Context, kind, text string) {
	f.sent = append(f.sent, sent{kind, text})
}

func newTestPoller(c Client, n Notifier) *Poller {
	p := New(Config{Interval: time.Minute}, c, n, logx.Nop())
	p.now = func() time.Time { return time.Unix(1700000500, 0) }
	return p
}

func TestStepEmptyListAdvancesWatermark(t *testing.T) {
	c := &fakeClient{raw: json.RawMessage(`{"homeworks":[],"current_date":1700000100}`)}
	n := &fakeNotifier{}
	p := newTestPoller(c, n)

	st := p.step(context.Background(), State{Watermark: 1700000000})

	if len(n.sent) != 0 {
		t.Fatalf("no notification expected for empty list, got %v", n.sent)
	}
	if st.Watermark != 1700000100 {
		t.Fatalf("watermark should advance to envelope cursor, got %d", st.Watermark)
	}
	if c.lastSince != 1700000000 {
		t.Fatalf("fetch should use current watermark, got %d", c.lastSince)
	}
}

func TestStepChangeNotifiesExactTemplate(t *testing.T) {
	c := &fakeClient{raw: json.RawMessage(`{"homeworks":[{"homework_name":"Project 1","status":"approved"}],"current_date":1700000100}`)}
	n := &fakeNotifier{}
	p := newTestPoller(c, n)

	st := p.step(context.Background(), State{Watermark: 1700000000, LastErrorKey: "connectivity"})

	if len(n.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(n.sent))
	}
	want := `Status of "Project 1" changed. The review is done: the reviewer liked everything. Hooray!`
	if n.sent[0].text != want {
		t.Fatalf("message mismatch:\n got: %s\nwant: %s", n.sent[0].text, want)
	}
	if n.sent[0].kind != "status" {
		t.Fatalf("expected status kind, got %q", n.sent[0].kind)
	}
	if st.LastErrorKey != "" {
		t.Fatal("successful cycle must clear the dedup slot")
	}
}

func TestStepWatermarkDefaultsToNow(t *testing.T) {
	c := &fakeClient{raw: json.RawMessage(`{"homeworks":[]}`)}
	p := newTestPoller(c, &fakeNotifier{})

	st := p.step(context.Background(), State{Watermark: 1})
	if st.Watermark != 1700000500 {
		t.Fatalf("expected watermark to default to now, got %d", st.Watermark)
	}
}

func TestStepUnknownStatusNoStatusNotification(t *testing.T) {
	c := &fakeClient{raw: json.RawMessage(`{"homeworks":[{"homework_name":"hw","status":"celebrated"}],"current_date":1700000100}`)}
	n := &fakeNotifier{}
	p := newTestPoller(c, n)

	st := p.step(context.Background(), State{Watermark: 1700000000})

	if len(n.sent) != 1 || n.sent[0].kind != "error" {
		t.Fatalf("expected a single error notification, got %v", n.sent)
	}
	if st.Watermark != 1700000000 {
		t.Fatalf("failed cycle must not advance the watermark, got %d", st.Watermark)
	}
}

func TestStepErrorDeduplication(t *testing.T) {
	c := &fakeClient{err: &practicum.UpstreamError{StatusCode: 502, Status: "502 Bad Gateway"}}
	n := &fakeNotifier{}
	p := newTestPoller(c, n)

	suppressedBefore := testutil.ToFloat64(metrics.Notifications.WithLabelValues("suppressed"))

	st := State{Watermark: 1700000000}
	st = p.step(context.Background(), st)
	st = p.step(context.Background(), st)

	if len(n.sent) != 1 {
		t.Fatalf("identical consecutive errors must notify once, got %d", len(n.sent))
	}
	suppressed := testutil.ToFloat64(metrics.Notifications.WithLabelValues("suppressed")) - suppressedBefore
	if suppressed != 1 {
		t.Fatalf("expected 1 suppressed notification counted, got %v", suppressed)
	}

	// A successful cycle clears the slot...
	c.err = nil
	c.raw = json.RawMessage(`{"homeworks":[],"current_date":1700000100}`)
	st = p.step(context.Background(), st)

	// ...so a recurrence of the same error is notified again.
	c.err = &practicum.UpstreamError{StatusCode: 502, Status: "502 Bad Gateway"}
	c.raw = nil
	st = p.step(context.Background(), st)

	if len(n.sent) != 2 {
		t.Fatalf("recurrence after success must notify again, got %d", len(n.sent))
	}
}

func TestStepDifferentErrorsNotDeduplicated(t *testing.T) {
	c := &fakeClient{err: &practicum.UpstreamError{StatusCode: 500, Status: "500 Internal Server Error"}}
	n := &fakeNotifier{}
	p := newTestPoller(c, n)

	st := State{Watermark: 1700000000}
	st = p.step(context.Background(), st)

	c.err = &practicum.UpstreamError{StatusCode: 503, Status: "503 Service Unavailable"}
	st = p.step(context.Background(), st)

	if len(n.sent) != 2 {
		t.Fatalf("different upstream codes are different errors, got %d notifications", len(n.sent))
	}
}

func TestErrorKeyCategories(t *testing.T) {
	cases := []struct {
		err  error
		key  string
		kind string
	}{
		{&practicum.ConnectivityError{Endpoint: "http://x", Err: fmt.Errorf("refused")}, "connectivity", "connectivity"},
		{&practicum.UpstreamError{StatusCode: 502, Status: "502 Bad Gateway"}, "upstream:502", "upstream"},
		{&practicum.ShapeError{Reason: practicum.ShapeMissingField, Field: "homeworks"}, "shape:missing field:homeworks", "shape"},
		{&review.FieldMissingError{Field: "status"}, "field_missing:status", "field_missing"},
		{&review.UnknownStatusError{Status: "odd"}, "unknown_status:odd", "unknown_status"},
		{fmt.Errorf("boom"), "internal", "internal"},
	}
	seen := map[string]bool{}
	for _, tc := range cases {
		got := errorKey(tc.err)
		if got != tc.key {
			t.Fatalf("errorKey(%v) = %q, want %q", tc.err, got, tc.key)
		}
		if errorKind(got) != tc.kind {
			t.Fatalf("errorKind(%q) = %q, want %q", got, errorKind(got), tc.kind)
		}
		if seen[got] {
			t.Fatalf("key %q conflates two error categories", got)
		}
		seen[got] = true
	}
}

func TestStatusSnapshot(t *testing.T) {
	c := &fakeClient{raw: json.RawMessage(`{"homeworks":[],"current_date":1700000100}`)}
	p := newTestPoller(c, &fakeNotifier{})

	p.step(context.Background(), State{Watermark: 1700000000})

	s := p.Status()
	if s.Outcome != "unchanged" {
		t.Fatalf("expected unchanged outcome, got %q", s.Outcome)
	}
	if s.Stats.Cycles != 1 || s.Stats.Unchanged != 1 {
		t.Fatalf("unexpected stats: %+v", s.Stats)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	c := &fakeClient{raw: json.RawMessage(`{"homeworks":[]}`)}
	p := New(Config{Interval: time.Hour}, c, &fakeNotifier{}, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestTriggerCheckRunsImmediately(t *testing.T) {
	c := &fakeClient{raw: json.RawMessage(`{"homeworks":[]}`)}
	p := New(Config{Interval: time.Hour}, c, &fakeNotifier{}, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for p.StatsSnapshot().Cycles < 1 {
		if time.Now().After(deadline) {
			t.Fatal("first cycle never ran")
		}
		time.Sleep(10 * time.Millisecond)
	}

	p.TriggerCheck()
	deadline = time.Now().Add(2 * time.Second)
	for p.StatsSnapshot().Cycles < 2 {
		if time.Now().After(deadline) {
			t.Fatal("triggered cycle never ran")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
