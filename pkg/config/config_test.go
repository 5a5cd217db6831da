package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoadAppliesDefaultsWithNoConfigFile(t *testing.T) {
	viper.Reset()
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Node.ListenAddr != ":8635" {
		t.Fatalf("expected the default listen address, got %q", cfg.Node.ListenAddr)
	}
	if cfg.Kademlia.BucketSize != 3 || cfg.Kademlia.Alpha != 7 {
		t.Fatalf("expected the default kademlia tunables, got %+v", cfg.Kademlia)
	}
	if !cfg.TLS.Enabled {
		t.Fatalf("expected TLS to be enabled by default")
	}
}

func TestLoadFromEnvForcesTLSWhenSet(t *testing.T) {
	viper.Reset()
	t.Setenv("TLS", "1")
	t.Setenv("MARCONET_ENV", "")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if !cfg.TLS.Enabled {
		t.Fatalf("expected TLS=1 to force TLS enforcement")
	}
}
