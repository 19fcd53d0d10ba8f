package permission

import (
	"errors"
	"testing"

	"github.com/rcliao/voice-memories/internal/model"
)

func TestRequire(t *testing.T) {
	g := NewGrants(Photos)

	if err := Require(g, Photos); err != nil {
		t.Errorf("photos should be granted: %v", err)
	}
	if err := Require(g, Microphone); !errors.Is(err, model.ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}

	g.Set(Microphone, true)
	if err := Require(g, Microphone); err != nil {
		t.Errorf("microphone should be granted after Set: %v", err)
	}
	g.Set(Photos, false)
	if err := Require(g, Photos); err == nil {
		t.Error("photos should be revoked")
	}

	// No checker means nothing is gated.
	if err := Require(nil, Speech); err != nil {
		t.Errorf("nil checker: %v", err)
	}
}

func TestAll(t *testing.T) {
	g := All()
	for _, c := range []Capability{Photos, Microphone, Speech} {
		if !g.Granted(c) {
			t.Errorf("%s not granted", c)
		}
	}
}
