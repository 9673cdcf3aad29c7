package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/framesink/internal/testutil/testlog"
	"github.com/danmuck/framesink/internal/transport"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	testlog.Start(t)
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadTOMLOverlaysDefaults(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "sinkctl.toml", `
id = "edge-a"

[listen]
transport = " KCP "
addr = "0.0.0.0:9000"

[sink]
limit = 4096

[relay]
compression = "snappy"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ID != "edge-a" || cfg.Listen.Transport != "kcp" || cfg.Listen.Addr != "0.0.0.0:9000" {
		t.Fatalf("listen not applied: %+v", cfg.Listen)
	}
	if cfg.Sink.Limit != 4096 || cfg.Sink.ScratchSize != 1024 {
		t.Fatalf("sink overlay got=%+v", cfg.Sink)
	}
	if cfg.Dial.Attempts != 5 || cfg.Relay.Compression != "snappy" {
		t.Fatalf("defaults lost: dial=%+v relay=%+v", cfg.Dial, cfg.Relay)
	}
}

func TestLoadYAML(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "sinkctl.yaml", `
id: edge-b
dial:
  addr: 10.0.0.2:7400
  attempts: 2
admin:
  cors_origins: ["http://localhost:3000"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ID != "edge-b" || cfg.Dial.Addr != "10.0.0.2:7400" || cfg.Dial.Attempts != 2 {
		t.Fatalf("yaml overlay got=%+v", cfg)
	}
	if len(cfg.Admin.CorsOrigins) != 1 || cfg.Admin.Addr != "127.0.0.1:7401" {
		t.Fatalf("admin got=%+v", cfg.Admin)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "bad.toml", "id = \"x\"\n[sink]\nlimt = 5\n")
	if _, err := Load(path); !errors.Is(err, ErrUnknownKeys) {
		t.Fatalf("expected ErrUnknownKeys, got %v", err)
	} else if !strings.Contains(err.Error(), "sink.limt") {
		t.Fatalf("error should name the key: %v", err)
	}

	path = writeFile(t, "bad.yaml", "id: x\nrelay:\n  codec: snappy\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown yaml field to fail")
	}
}

func TestLoadRejectsUnsupportedExtension(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "sinkctl.json", "{}")
	if _, err := Load(path); !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
}

func TestValidateFailures(t *testing.T) {
	testlog.Start(t)
	cases := map[string]func(*Config){
		"transport":   func(c *Config) { c.Listen.Transport = "quic" },
		"attempts":    func(c *Config) { c.Dial.Attempts = 0 },
		"tls-cert":    func(c *Config) { c.Listen.Transport = "tls" },
		"mutual-ca":   func(c *Config) { c.TLS.Mutual = true },
		"negative":    func(c *Config) { c.Sink.Limit = -1 },
		"compression": func(c *Config) { c.Relay.Compression = "zstd" },
		"id":          func(c *Config) { c.ID = "" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := Validate(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestTemplatesLoadBack(t *testing.T) {
	testlog.Start(t)
	for _, name := range []string{"sinkctl.toml", "sinkctl.yaml"} {
		path := filepath.Join(t.TempDir(), name)
		if err := WriteTemplate(path, false); err != nil {
			t.Fatalf("%s: write template: %v", name, err)
		}
		if err := WriteTemplate(path, false); err == nil {
			t.Fatalf("%s: expected refusal to overwrite", name)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("%s: load template: %v", name, err)
		}
		if cfg.ID != Default().ID || cfg.Sink != Default().Sink || cfg.Dial != Default().Dial {
			t.Fatalf("%s: template drifted from defaults: %+v", name, cfg)
		}
	}
	if _, err := Template("ini"); !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
}

func TestEndpoints(t *testing.T) {
	testlog.Start(t)
	cfg := Default()
	cfg.Dial.Transport = "kcp"
	ep, err := cfg.DialEndpoint()
	if err != nil || ep.Kind != transport.KindKCP || ep.TLS != nil {
		t.Fatalf("dial endpoint got=%+v err=%v", ep, err)
	}
	ep, err = cfg.ListenEndpoint()
	if err != nil || ep.Kind != transport.KindTCP || ep.Addr != "127.0.0.1:7400" {
		t.Fatalf("listen endpoint got=%+v err=%v", ep, err)
	}

	cfg.Dial.Transport = "tls"
	cfg.TLS.InsecureSkipVerify = true
	ep, err = cfg.DialEndpoint()
	if err != nil || ep.TLS == nil || !ep.TLS.InsecureSkipVerify {
		t.Fatalf("tls dial endpoint got=%+v err=%v", ep, err)
	}
	if cfg.Dial.Timeout().Milliseconds() != 5000 {
		t.Fatalf("timeout got=%s", cfg.Dial.Timeout())
	}
}
