package digest

import (
	"context"
	"testing"

	"github.com/MattBortsov/homework-bot/internal/poller"
	"github.com/MattBortsov/homework-bot/pkg/logx"
)

type fakeSource struct{ stats poller.Stats }

func (f *fakeSource) StatsSnapshot() poller.Stats { return f.stats }

type fakeNotifier struct {
	kinds []string
	texts []string
}

func (f *fakeNotifier) Notify(ctx context.Context, kind, text string) {
	f.kinds = append(f.kinds, kind)
	f.texts = append(f.texts, text)
}

func TestCompose(t *testing.T) {
	got := Compose(poller.Stats{Cycles: 10, Changed: 2, Unchanged: 7, Errors: 1, ErrorsNotified: 1})
	want := "Homework bot digest: 10 checks, 2 status changes, 7 quiet, 1 failures (1 reported)."
	if got != want {
		t.Fatalf("digest mismatch:\n got: %s\nwant: %s", got, want)
	}
}

func TestSendReportsWindowDelta(t *testing.T) {
	src := &fakeSource{stats: poller.Stats{Cycles: 5, Unchanged: 5}}
	n := &fakeNotifier{}
	s := New("@daily", src, n, logx.Nop())

	s.send(context.Background())
	src.stats = poller.Stats{Cycles: 8, Unchanged: 6, Changed: 1, Errors: 1, ErrorsNotified: 1}
	s.send(context.Background())

	if len(n.texts) != 2 {
		t.Fatalf("expected 2 digests, got %d", len(n.texts))
	}
	want := "Homework bot digest: 3 checks, 1 status changes, 1 quiet, 1 failures (1 reported)."
	if n.texts[1] != want {
		t.Fatalf("second digest should cover the new window only:\n got: %s\nwant: %s", n.texts[1], want)
	}
	if n.kinds[0] != "digest" {
		t.Fatalf("expected digest kind, got %q", n.kinds[0])
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := New("not a cron spec", &fakeSource{}, &fakeNotifier{}, logx.Nop())
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error for bad schedule")
	}
}

func TestStartEmptyScheduleDisabled(t *testing.T) {
	s := New("", &fakeSource{}, &fakeNotifier{}, logx.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("empty schedule should be a no-op, got %v", err)
	}
	s.Stop()
}
