package mqtt

import (
	"io"
	"log/slog"
	"testing"

	"tncparking/internal/config"
	"tncparking/internal/session"
)

type resultCounter map[string]int

func (r resultCounter) MQTTCommandInc(result string) { r[result]++ }

func newTestSubscriber(t *testing.T) (*Subscriber, resultCounter) {
	t.Helper()
	counts := resultCounter{}
	s, err := NewSubscriber(config.Config{
		MQTTBroker:   "localhost",
		MQTTPort:     1883,
		MQTTClientID: "test",
		MQTTTopic:    "tncparking/control",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), counts)
	if err != nil {
		t.Fatalf("NewSubscriber() error = %v", err)
	}
	return s, counts
}

func TestNewSubscriber_requiresBroker(t *testing.T) {
	if _, err := NewSubscriber(config.Config{}, nil, nil); err == nil {
		t.Fatal("NewSubscriber() error = nil; want error without broker")
	}
}

func TestHandleMessage(t *testing.T) {
	s, counts := newTestSubscriber(t)

	var got []session.Command
	s.SetCommandHandler(func(cmd session.Command) error {
		if cmd.SessionID == "gone" {
			return session.ErrUnknownSession
		}
		got = append(got, cmd)
		return nil
	})

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"not json", `{`, ResultInvalid},
		{"missing session", `{"op":"deselect"}`, ResultInvalid},
		{"invalid op", `{"op":"jump","session_id":"s"}`, ResultInvalid},
		{"out of range", `{"op":"set_day","day":9,"session_id":"s"}`, ResultInvalid},
		{"unknown session", `{"op":"deselect","session_id":"gone"}`, ResultRejected},
		{"applied", `{"op":"set_day","day":2,"session_id":"s"}`, ResultApplied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := s.handleMessage("tncparking/control", []byte(tt.payload)); res != tt.want {
				t.Errorf("handleMessage(%s) = %q; want %q", tt.payload, res, tt.want)
			}
		})
	}

	if len(got) != 1 || got[0].Op != session.OpSetDay || *got[0].Day != 2 {
		t.Errorf("handler received %+v", got)
	}
	if counts[ResultInvalid] != 4 || counts[ResultRejected] != 1 || counts[ResultApplied] != 1 {
		t.Errorf("metrics = %v", counts)
	}
}

func TestHandleMessage_noHandler(t *testing.T) {
	s, _ := newTestSubscriber(t)
	if res := s.handleMessage("t", []byte(`{"op":"deselect","session_id":"s"}`)); res != ResultRejected {
		t.Errorf("result = %q; want rejected", res)
	}
}

func TestDisconnect_idempotent(t *testing.T) {
	s, _ := newTestSubscriber(t)
	s.Disconnect()
	s.Disconnect()
	if s.IsConnected() {
		t.Error("IsConnected() = true after Disconnect")
	}
	if err := s.Connect(t.Context()); err == nil {
		t.Error("Connect after Disconnect: error = nil; want stopped")
	}
}
