package service

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"tncparking/internal/parking"
	"tncparking/internal/session"
)

type fakeSubscriber struct {
	handler func(cmd session.Command) error
}

func (f *fakeSubscriber) SetCommandHandler(h func(cmd session.Command) error) { f.handler = h }

type fakeApplier struct {
	calls []string
	err   error
}

func (f *fakeApplier) Apply(id string, cmd session.Command) (parking.Snapshot, error) {
	f.calls = append(f.calls, id+":"+string(cmd.Op))
	return parking.Snapshot{}, f.err
}

func TestRegister(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("applies to the named session", func(t *testing.T) {
		sub := &fakeSubscriber{}
		app := &fakeApplier{}
		NewService(app, logger).Register(sub)
		if sub.handler == nil {
			t.Fatal("handler not registered")
		}

		if err := sub.handler(session.Command{Op: session.OpDeselect, SessionID: "s1"}); err != nil {
			t.Fatalf("handler err = %v; want nil", err)
		}
		if len(app.calls) != 1 || app.calls[0] != "s1:deselect" {
			t.Errorf("calls = %v; want [s1:deselect]", app.calls)
		}
	})

	t.Run("propagates apply errors", func(t *testing.T) {
		sub := &fakeSubscriber{}
		app := &fakeApplier{err: session.ErrUnknownSession}
		NewService(app, logger).Register(sub)

		err := sub.handler(session.Command{Op: session.OpStopPlay, SessionID: "gone"})
		if !errors.Is(err, session.ErrUnknownSession) {
			t.Errorf("err = %v; want ErrUnknownSession", err)
		}
	})
}
