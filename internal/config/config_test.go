package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/quorumnet/overlay/pkg/types"
)

func TestParseEndpoint(t *testing.T) {
	ep, err := ParseEndpoint("127.0.0.1:6001")
	if err != nil {
		t.Fatalf("ParseEndpoint: %v", err)
	}
	want := types.Endpoint{Host: "127.0.0.1", Port: 6001}
	if ep != want {
		t.Errorf("got %+v, want %+v", ep, want)
	}
}

func TestParseEndpointMalformed(t *testing.T) {
	cases := []string{"noport", "host:notanumber", ""}
	for _, c := range cases {
		if _, err := ParseEndpoint(c); err == nil {
			t.Errorf("ParseEndpoint(%q): expected error", c)
		}
	}
}

func TestSeedConfigQuorum(t *testing.T) {
	cases := []struct {
		n      int
		quorum int
	}{
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{5, 3},
	}
	for _, c := range cases {
		cfg := SeedConfig{Seeds: make([]types.Endpoint, c.n)}
		if got := cfg.Quorum(); got != c.quorum {
			t.Errorf("Quorum() with %d seeds = %d, want %d", c.n, got, c.quorum)
		}
	}
}

func TestSeedConfigOthersExcludesSelf(t *testing.T) {
	a := types.Endpoint{Host: "a", Port: 1}
	b := types.Endpoint{Host: "b", Port: 2}
	c := types.Endpoint{Host: "c", Port: 3}
	cfg := SeedConfig{Seeds: []types.Endpoint{a, b, c}}

	others := cfg.Others(b)
	if len(others) != 2 {
		t.Fatalf("Others() returned %d entries, want 2", len(others))
	}
	for _, ep := range others {
		if ep == b {
			t.Error("Others() should not include self")
		}
	}
}

func TestLoadSeedConfigMissingFileIsEmpty(t *testing.T) {
	cfg, err := LoadSeedConfig(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	if err != nil {
		t.Fatalf("LoadSeedConfig: %v", err)
	}
	if len(cfg.Seeds) != 0 {
		t.Errorf("expected empty config, got %d seeds", len(cfg.Seeds))
	}
}

func TestLoadSeedConfigParsesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.txt")
	content := "127.0.0.1:6001\n\n127.0.0.1:6002\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadSeedConfig(path)
	if err != nil {
		t.Fatalf("LoadSeedConfig: %v", err)
	}
	if len(cfg.Seeds) != 2 {
		t.Fatalf("got %d seeds, want 2", len(cfg.Seeds))
	}
}

func TestEnsureSeedRegisteredIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.txt")
	self := types.Endpoint{Host: "127.0.0.1", Port: 6001}

	if err := EnsureSeedRegistered(path, self); err != nil {
		t.Fatalf("EnsureSeedRegistered (first): %v", err)
	}
	if err := EnsureSeedRegistered(path, self); err != nil {
		t.Fatalf("EnsureSeedRegistered (second): %v", err)
	}

	cfg, err := LoadSeedConfig(path)
	if err != nil {
		t.Fatalf("LoadSeedConfig: %v", err)
	}
	if len(cfg.Seeds) != 1 {
		t.Errorf("expected self registered exactly once, got %d entries", len(cfg.Seeds))
	}
}
