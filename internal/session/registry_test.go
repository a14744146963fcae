package session

import (
	"errors"
	"testing"
	"time"

	"tncparking/internal/clock"
	"tncparking/internal/playback"
)

func TestRegistry(t *testing.T) {
	clk := clock.NewFake()
	r := NewRegistry(time.Minute, testData(t), Options{Clock: clk})
	defer r.Close()

	s := r.Create()
	if r.Len() != 1 {
		t.Fatalf("Len() = %d; want 1", r.Len())
	}

	got, err := r.Get(s.ID())
	if err != nil || got != s {
		t.Fatalf("Get(%s) = %v, %v", s.ID(), got, err)
	}

	t.Run("unknown ids", func(t *testing.T) {
		for _, id := range []string{"", "not-a-uuid", "3b241101-e2bb-4255-8caf-4136c566a962"} {
			if _, err := r.Get(id); !errors.Is(err, ErrUnknownSession) {
				t.Errorf("Get(%q) error = %v; want ErrUnknownSession", id, err)
			}
		}
	})

	t.Run("apply", func(t *testing.T) {
		snap, err := r.Apply(s.ID(), Command{Op: OpSetDay, Day: intp(3)})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if snap.Filter.Day != 3 {
			t.Errorf("day = %d; want 3", snap.Filter.Day)
		}
	})

	t.Run("delete closes session", func(t *testing.T) {
		if _, err := s.Apply(Command{Op: OpTogglePlay, Dimension: playback.DimensionHour}); err != nil {
			t.Fatal(err)
		}
		if err := r.Delete(s.ID()); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if clk.Tickers() != 0 {
			t.Errorf("playback still running after delete")
		}
		if err := r.Delete(s.ID()); !errors.Is(err, ErrUnknownSession) {
			t.Errorf("second Delete error = %v; want ErrUnknownSession", err)
		}
		if _, err := r.Apply(s.ID(), Command{Op: OpDeselect}); !errors.Is(err, ErrUnknownSession) {
			t.Errorf("Apply after delete error = %v; want ErrUnknownSession", err)
		}
	})
}
