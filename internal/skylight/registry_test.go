package skylight

import (
	"errors"
	"testing"
	"time"
)

// registryConfig keeps registry tests quick: the unreachable host
// fails its first poll immediately and the hour-long interval means no
// second attempt happens during the test.
func registryConfig() SessionConfig {
	return SessionConfig{
		PollInterval:       time.Hour,
		StalenessThreshold: time.Minute,
		CommandTimeout:     time.Second,
		PollTimeout:        time.Second,
	}
}

func TestRegistry_AddGet(t *testing.T) {
	registry := NewRegistry()
	defer registry.CloseAll()

	session := NewSession(Endpoint{ID: "tank-main", Host: "127.0.0.1:1"}, registryConfig(), nil)
	if err := registry.Add(session); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	got, err := registry.Get("tank-main")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != session {
		t.Error("Get() returned a different session")
	}
	if registry.Count() != 1 {
		t.Errorf("Count() = %d, want 1", registry.Count())
	}
}

func TestRegistry_DuplicateID(t *testing.T) {
	registry := NewRegistry()
	defer registry.CloseAll()

	first := NewSession(Endpoint{ID: "tank-main", Host: "127.0.0.1:1"}, registryConfig(), nil)
	if err := registry.Add(first); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	second := NewSession(Endpoint{ID: "tank-main", Host: "127.0.0.1:2"}, registryConfig(), nil)
	if err := registry.Add(second); !errors.Is(err, ErrValidation) {
		t.Errorf("Add(duplicate) = %v, want ErrValidation", err)
	}
}

func TestRegistry_UnknownLamp(t *testing.T) {
	registry := NewRegistry()

	if _, err := registry.Get("ghost"); !errors.Is(err, ErrUnknownLamp) {
		t.Errorf("Get(ghost) = %v, want ErrUnknownLamp", err)
	}
	if err := registry.Remove("ghost"); !errors.Is(err, ErrUnknownLamp) {
		t.Errorf("Remove(ghost) = %v, want ErrUnknownLamp", err)
	}
}

func TestRegistry_Remove(t *testing.T) {
	registry := NewRegistry()
	defer registry.CloseAll()

	session := NewSession(Endpoint{ID: "tank-main", Host: "127.0.0.1:1"}, registryConfig(), nil)
	if err := registry.Add(session); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	if err := registry.Remove("tank-main"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if registry.Count() != 0 {
		t.Errorf("Count() = %d after Remove, want 0", registry.Count())
	}

	// The removed session is closed; commands fail fast.
	if _, err := session.InitPWM(t.Context()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("command on removed session = %v, want ErrSessionClosed", err)
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	registry := NewRegistry()

	for _, id := range []string{"tank-main", "tank-side", "sump"} {
		session := NewSession(Endpoint{ID: id, Host: "127.0.0.1:1"}, registryConfig(), nil)
		if err := registry.Add(session); err != nil {
			t.Fatalf("Add(%s) error: %v", id, err)
		}
	}
	if registry.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", registry.Count())
	}

	registry.CloseAll()
	if registry.Count() != 0 {
		t.Errorf("Count() = %d after CloseAll, want 0", registry.Count())
	}

	// List on an emptied registry is empty, not nil-unsafe.
	if got := registry.List(); len(got) != 0 {
		t.Errorf("List() = %d sessions after CloseAll", len(got))
	}
}
