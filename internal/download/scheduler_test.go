package download

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestSchedulerRunsAfterDelay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock)
	ran := make(chan struct{}, 1)
	s.Schedule(10*time.Second, func() { ran <- struct{}{} })

	clock.Advance(5 * time.Second)
	select {
	case <-ran:
		t.Fatal("ran early")
	default:
	}
	clock.Advance(5 * time.Second)
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
	if s.Pending() != 0 {
		t.Fatalf("pending = %d", s.Pending())
	}
}

func TestSchedulerCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock)
	ran := make(chan struct{}, 1)
	task := s.Schedule(time.Second, func() { ran <- struct{}{} })
	if !task.Cancel() {
		t.Fatal("cancel reported not pending")
	}
	if task.Cancel() {
		t.Fatal("second cancel reported pending")
	}
	clock.Advance(time.Minute)
	select {
	case <-ran:
		t.Fatal("cancelled task ran")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSchedulerStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock)
	s.Schedule(time.Second, func() { t.Error("ran after stop") })
	s.Schedule(2*time.Second, func() { t.Error("ran after stop") })
	s.Stop()
	if s.Pending() != 0 {
		t.Fatalf("pending = %d", s.Pending())
	}
	if task := s.Schedule(time.Second, func() {}); task.Cancel() {
		t.Fatal("task accepted after stop")
	}
	clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
}

func TestNilTaskCancel(t *testing.T) {
	var task *Task
	if task.Cancel() {
		t.Fatal("nil task cancelled")
	}
}
