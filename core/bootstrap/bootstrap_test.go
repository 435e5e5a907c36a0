package bootstrap

import (
	"context"
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/spotdl-bot/core/config"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background(), Options{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunStopsAtFirstFailingProbe(t *testing.T) {
	var ran []string
	probe := func(name string, err error) Probe {
		return Probe{Name: name, Run: func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Errorf("probe %s has no deadline", name)
			}
			ran = append(ran, name)
			return err
		}}
	}
	boom := errors.New("boom")
	err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Probes:     []Probe{probe("a", nil), probe("b", boom), probe("c", nil)},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if len(ran) != 2 {
		t.Fatalf("ran = %v", ran)
	}
}

func TestRunLoggerFailure(t *testing.T) {
	boom := errors.New("sink")
	err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return boom },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
