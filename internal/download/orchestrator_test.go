package download

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/m3rciful/spotdl-bot/internal/apperr"
	"github.com/m3rciful/spotdl-bot/internal/composer"
	"github.com/m3rciful/spotdl-bot/internal/session"
	"github.com/m3rciful/spotdl-bot/internal/transport"
)

const validURL = "https://open.spotify.com/track/71XxylHoSigwo354LSy5p6"

type fakeTransport struct {
	mu        sync.Mutex
	nextID    int
	sent      []transport.Message
	edits     []transport.Message
	audios    []transport.Audio
	audioErrs []error
	deleted   chan transport.MessageRef
	notified  int
}

func newFakeTransport(audioErrs ...error) *fakeTransport {
	return &fakeTransport{audioErrs: audioErrs, deleted: make(chan transport.MessageRef, 8)}
}

func (f *fakeTransport) Send(_ context.Context, chatID int64, msg transport.Message) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, msg)
	return transport.MessageRef{ChatID: chatID, MessageID: f.nextID}, nil
}

func (f *fakeTransport) Edit(_ context.Context, _ transport.MessageRef, msg transport.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, msg)
	return nil
}

func (f *fakeTransport) Delete(_ context.Context, ref transport.MessageRef) error {
	f.deleted <- ref
	return nil
}

func (f *fakeTransport) SendAudio(_ context.Context, _ int64, audio transport.Audio) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audios = append(f.audios, audio)
	if i := len(f.audios) - 1; i < len(f.audioErrs) {
		return f.audioErrs[i]
	}
	return nil
}

func (f *fakeTransport) NotifyUploading(context.Context, int64) {
	f.mu.Lock()
	f.notified++
	f.mu.Unlock()
}

func (f *fakeTransport) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.Text)
	}
	return out
}

type fakeComposer struct {
	mu          sync.Mutex
	resolveErr  error
	detailsErr  error
	resolved    []string
	detailsSeen []string
}

func (f *fakeComposer) Resolve(_ context.Context, trackURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, trackURL)
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return "https://cdn.example.com/song.mp3", nil
}

func (f *fakeComposer) FetchDetails(_ context.Context, trackURL string) (composer.Details, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailsSeen = append(f.detailsSeen, trackURL)
	if f.detailsErr != nil {
		return composer.Details{}, f.detailsErr
	}
	return composer.Details{Name: "Mr. Brightside", Artist: "The Killers", DurationMS: 222075, ArtworkURL: "https://img/1"}, nil
}

func (f *fakeComposer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.resolved) + len(f.detailsSeen)
}

func newOrchestrator(t *testing.T, tr *fakeTransport, comp *fakeComposer, policy MetadataPolicy, clock clockwork.Clock) (*Orchestrator, *Scheduler) {
	t.Helper()
	sched := NewScheduler(clock)
	t.Cleanup(sched.Stop)
	o, err := New(Options{
		Resolver:  comp,
		Metadata:  comp,
		Transport: tr,
		Scheduler: sched,
		Policy:    policy,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o, sched
}

func waitDeleted(t *testing.T, tr *fakeTransport) transport.MessageRef {
	t.Helper()
	select {
	case ref := <-tr.deleted:
		return ref
	case <-time.After(2 * time.Second):
		t.Fatal("message was not deleted")
		return transport.MessageRef{}
	}
}

func TestDownloadRejectsHTTPBeforeAnyCall(t *testing.T) {
	tr := newFakeTransport()
	comp := &fakeComposer{}
	clock := clockwork.NewFakeClock()
	o, sched := newOrchestrator(t, tr, comp, PolicyAbort, clock)

	out, err := o.Download(context.Background(), 1, "http://open.spotify.com/track/abc")
	if !apperr.IsValidation(err) {
		t.Fatalf("err = %v", err)
	}
	if out.State != session.StateIdle {
		t.Fatalf("state = %s", out.State)
	}
	if comp.calls() != 0 {
		t.Fatalf("composer called %d times", comp.calls())
	}
	if texts := tr.texts(); len(texts) != 1 || texts[0] != TextInvalidURL {
		t.Fatalf("sent = %q", texts)
	}
	if sched.Pending() != 1 {
		t.Fatalf("pending = %d", sched.Pending())
	}

	clock.Advance(9 * time.Second)
	select {
	case <-tr.deleted:
		t.Fatal("validation notice deleted too early")
	default:
	}
	clock.Advance(time.Second)
	if ref := waitDeleted(t, tr); ref.MessageID != 1 {
		t.Fatalf("deleted %+v", ref)
	}
}

func TestDownloadRejectsLookalikeHosts(t *testing.T) {
	for _, raw := range []string{
		"",
		"https://open.spotify.com/album/abc",
		"https://open.spotify.com.evil.io/track/abc",
		"spotify:track:abc",
	} {
		tr := newFakeTransport()
		comp := &fakeComposer{}
		o, _ := newOrchestrator(t, tr, comp, PolicyAbort, clockwork.NewFakeClock())
		if _, err := o.Download(context.Background(), 1, raw); !apperr.IsValidation(err) {
			t.Fatalf("%q: err = %v", raw, err)
		}
		if comp.calls() != 0 {
			t.Fatalf("%q: composer called", raw)
		}
	}
}

func TestDownloadHappyPath(t *testing.T) {
	tr := newFakeTransport()
	comp := &fakeComposer{}
	o, sched := newOrchestrator(t, tr, comp, PolicyAbort, clockwork.NewFakeClock())

	out, err := o.Download(context.Background(), 5, validURL)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if out.State != session.StateDone || out.Delivery != Delivered {
		t.Fatalf("outcome = %+v", out)
	}
	if len(comp.resolved) != 1 || comp.resolved[0] != validURL {
		t.Fatalf("resolved = %q", comp.resolved)
	}
	if len(tr.audios) != 1 {
		t.Fatalf("audio calls = %d", len(tr.audios))
	}
	a := tr.audios[0]
	if a.URL != "https://cdn.example.com/song.mp3" || a.Title != "Mr. Brightside" || a.DurationSec != 222 || a.ThumbURL == "" {
		t.Fatalf("audio = %+v", a)
	}
	if tr.notified != 1 {
		t.Fatalf("notified = %d", tr.notified)
	}
	if ref := waitDeleted(t, tr); ref.MessageID != 1 {
		t.Fatalf("progress not deleted: %+v", ref)
	}
	if sched.Pending() != 0 {
		t.Fatalf("watchdog still pending")
	}
}

func TestRichFailsBareSucceeds(t *testing.T) {
	tr := newFakeTransport(errors.New("Bad Request: wrong file identifier"))
	comp := &fakeComposer{}
	o, _ := newOrchestrator(t, tr, comp, PolicyAbort, clockwork.NewFakeClock())

	out, err := o.Download(context.Background(), 5, validURL)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if out.State != session.StateDone {
		t.Fatalf("state = %s", out.State)
	}
	if len(tr.audios) != 2 {
		t.Fatalf("audio calls = %d", len(tr.audios))
	}
	if tr.audios[1] != (transport.Audio{URL: "https://cdn.example.com/song.mp3"}) {
		t.Fatalf("bare attempt = %+v", tr.audios[1])
	}
}

func TestBothDeliveriesFail(t *testing.T) {
	tr := newFakeTransport(errors.New("rich"), errors.New("bare"))
	comp := &fakeComposer{}
	o, _ := newOrchestrator(t, tr, comp, PolicyAbort, clockwork.NewFakeClock())

	out, err := o.Download(context.Background(), 5, validURL)
	var derr *apperr.DeliveryError
	if !errors.As(err, &derr) || derr.Attempt != AttemptBare {
		t.Fatalf("err = %v", err)
	}
	if out.State != session.StateFailed || len(tr.audios) != 2 {
		t.Fatalf("outcome = %+v audios=%d", out, len(tr.audios))
	}
	if len(tr.edits) != 1 || tr.edits[0].Text != TextFailed {
		t.Fatalf("edits = %+v", tr.edits)
	}
}

func TestResolveFailureReportsOnce(t *testing.T) {
	tr := newFakeTransport()
	comp := &fakeComposer{resolveErr: apperr.Upstream("composer", "resolve", errors.New("status 502"))}
	o, sched := newOrchestrator(t, tr, comp, PolicyAbort, clockwork.NewFakeClock())

	out, err := o.Download(context.Background(), 5, validURL)
	if !apperr.IsUpstream(err) {
		t.Fatalf("err = %v", err)
	}
	if out.State != session.StateFailed {
		t.Fatalf("state = %s", out.State)
	}
	if len(comp.detailsSeen) != 0 || len(tr.audios) != 0 {
		t.Fatal("pipeline continued after resolve failure")
	}
	if len(tr.edits) != 1 || tr.edits[0].Text != TextFailed {
		t.Fatalf("edits = %+v", tr.edits)
	}
	if sched.Pending() != 0 {
		t.Fatal("watchdog not cancelled")
	}
}

func TestMetadataFailureAbort(t *testing.T) {
	tr := newFakeTransport()
	comp := &fakeComposer{detailsErr: errors.New("boom")}
	o, _ := newOrchestrator(t, tr, comp, PolicyAbort, clockwork.NewFakeClock())

	out, _ := o.Download(context.Background(), 5, validURL)
	if out.State != session.StateFailed || len(tr.audios) != 0 {
		t.Fatalf("outcome = %+v audios=%d", out, len(tr.audios))
	}
}

func TestMetadataFailureDegrade(t *testing.T) {
	tr := newFakeTransport()
	comp := &fakeComposer{detailsErr: errors.New("boom")}
	o, _ := newOrchestrator(t, tr, comp, PolicyDegrade, clockwork.NewFakeClock())

	m := session.NewMachine()
	_ = m.Begin()
	out := o.Run(context.Background(), Request{
		ChatID:   5,
		TrackURL: validURL,
		Machine:  m,
		Hint:     composer.Details{Name: "Hinted", Artist: "Someone"},
	})
	if out.State != session.StateDone {
		t.Fatalf("outcome = %+v", out)
	}
	if len(tr.audios) != 1 || tr.audios[0].Title != "Hinted" {
		t.Fatalf("audios = %+v", tr.audios)
	}
}

func TestRunRequiresResolvingState(t *testing.T) {
	tr := newFakeTransport()
	comp := &fakeComposer{}
	o, _ := newOrchestrator(t, tr, comp, PolicyAbort, clockwork.NewFakeClock())

	out := o.Run(context.Background(), Request{ChatID: 1, TrackURL: validURL, Machine: session.NewMachine()})
	if !errors.Is(out.Err, session.ErrIllegalTransition) {
		t.Fatalf("err = %v", out.Err)
	}
	if comp.calls() != 0 {
		t.Fatal("composer called for idle machine")
	}
}

func TestCancelledContextIsNotRetried(t *testing.T) {
	tr := newFakeTransport(context.Canceled)
	comp := &fakeComposer{}
	o, _ := newOrchestrator(t, tr, comp, PolicyAbort, clockwork.NewFakeClock())

	out, _ := o.Download(context.Background(), 5, validURL)
	if out.State != session.StateFailed || len(tr.audios) != 1 {
		t.Fatalf("outcome = %+v audios=%d", out, len(tr.audios))
	}
}

func TestWatchdogDeletesStuckProgress(t *testing.T) {
	tr := newFakeTransport()
	release := make(chan struct{})
	comp := &blockingResolver{release: release}
	clock := clockwork.NewFakeClock()
	sched := NewScheduler(clock)
	t.Cleanup(sched.Stop)
	o, err := New(Options{
		Resolver:          comp,
		Metadata:          &fakeComposer{},
		Transport:         tr,
		Scheduler:         sched,
		ProcessingTimeout: time.Minute,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan Outcome, 1)
	go func() {
		out, _ := o.Download(context.Background(), 5, validURL)
		done <- out
	}()

	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	if ref := waitDeleted(t, tr); ref.MessageID != 1 {
		t.Fatalf("deleted %+v", ref)
	}
	close(release)
	if out := <-done; out.State != session.StateDone {
		t.Fatalf("outcome = %+v", out)
	}
}

type blockingResolver struct {
	release chan struct{}
}

func (b *blockingResolver) Resolve(ctx context.Context, _ string) (string, error) {
	select {
	case <-b.release:
		return "https://cdn.example.com/song.mp3", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != PolicyAbort {
		t.Fatalf("empty = %q %v", p, err)
	}
	if p, err := ParsePolicy(" Degrade "); err != nil || p != PolicyDegrade {
		t.Fatalf("degrade = %q %v", p, err)
	}
	if _, err := ParsePolicy("retry"); err == nil {
		t.Fatal("expected error")
	}
}
