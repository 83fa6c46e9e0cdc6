package supervisor

import (
	"net"
	"os"
	"testing"
)

func TestGetFreePeerPortSkipsUsed(t *testing.T) {
	m := NewNodeManager(Config{PeerPortRange: PeerPortRange{Start: 19000, End: 19010}}, "", "")

	first, err := m.getFreePeerPort()
	if err != nil {
		t.Fatalf("getFreePeerPort: %v", err)
	}
	second, err := m.getFreePeerPort()
	if err != nil {
		t.Fatalf("getFreePeerPort: %v", err)
	}
	if first == second {
		t.Error("consecutive allocations should not return the same port")
	}
}

func TestGetFreePeerPortSkipsBoundPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:19050")
	if err != nil {
		t.Skipf("could not bind test listener: %v", err)
	}
	defer ln.Close()

	m := NewNodeManager(Config{PeerPortRange: PeerPortRange{Start: 19050, End: 19052}}, "", "")

	port, err := m.getFreePeerPort()
	if err != nil {
		t.Fatalf("getFreePeerPort: %v", err)
	}
	if port == 19050 {
		t.Error("should not allocate a port with an active listener")
	}
}

func TestGetFreePeerPortExhausted(t *testing.T) {
	m := NewNodeManager(Config{PeerPortRange: PeerPortRange{Start: 19100, End: 19100}}, "", "")
	m.usedPorts[19100] = struct{}{}

	if _, err := m.getFreePeerPort(); err == nil {
		t.Error("expected error when the port range is exhausted")
	}
}

func TestLoadConfigDefaultsInitialPeers(t *testing.T) {
	path := writeTempConfig(t, `
seeds:
  - ip: 127.0.0.1
    port: 6001
peer_port_range:
  start: 7001
  end: 7100
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.InitialPeers != 3 {
		t.Errorf("InitialPeers = %d, want default 3", cfg.InitialPeers)
	}
	if len(cfg.Seeds) != 1 || cfg.Seeds[0].Port != 6001 {
		t.Errorf("unexpected seeds: %+v", cfg.Seeds)
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := t.TempDir() + "/config.yml"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
