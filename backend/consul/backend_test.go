package consul

import "testing"

func TestNewConsulBackendDefaults(t *testing.T) {
	cb, err := NewConsulBackend(nil)
	if err != nil {
		t.Fatalf("NewConsulBackend failed: %v", err)
	}
	if cb.config.Address != "127.0.0.1:8500" {
		t.Errorf("unexpected address %q", cb.config.Address)
	}
	if cb.config.Prefix != "histfs" {
		t.Errorf("unexpected prefix %q", cb.config.Prefix)
	}
}

func TestBuildKey(t *testing.T) {
	cb, err := NewConsulBackend(&ConsulBackendConfig{Prefix: "/team/histfs/"})
	if err != nil {
		t.Fatalf("NewConsulBackend failed: %v", err)
	}

	if got := cb.buildKey("notes/a.txt"); got != "team/histfs/ledgers/notes%2Fa.txt" {
		t.Fatalf("unexpected key %q", got)
	}
}
