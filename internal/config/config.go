package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the sinkctl runtime configuration.
type Config struct {
	ID     string       `toml:"id" yaml:"id"`
	Listen ListenConfig `toml:"listen" yaml:"listen"`
	Dial   DialConfig   `toml:"dial" yaml:"dial"`
	TLS    TLSConfig    `toml:"tls" yaml:"tls"`
	Sink   SinkConfig   `toml:"sink" yaml:"sink"`
	Relay  RelayConfig  `toml:"relay" yaml:"relay"`
	Admin  AdminConfig  `toml:"admin" yaml:"admin"`
	Log    LogConfig    `toml:"log" yaml:"log"`
}

type ListenConfig struct {
	Transport string `toml:"transport" yaml:"transport"`
	Addr      string `toml:"addr" yaml:"addr"`
}

type DialConfig struct {
	Transport        string `toml:"transport" yaml:"transport"`
	Addr             string `toml:"addr" yaml:"addr"`
	Attempts         int    `toml:"attempts" yaml:"attempts"`
	TimeoutMS        int    `toml:"timeout_ms" yaml:"timeout_ms"`
	BackoffInitialMS int    `toml:"backoff_initial_ms" yaml:"backoff_initial_ms"`
	BackoffMaxMS     int    `toml:"backoff_max_ms" yaml:"backoff_max_ms"`
	BackoffJitter    bool   `toml:"backoff_jitter" yaml:"backoff_jitter"`
}

type TLSConfig struct {
	CertFile           string `toml:"cert_file" yaml:"cert_file"`
	KeyFile            string `toml:"key_file" yaml:"key_file"`
	CAFile             string `toml:"ca_file" yaml:"ca_file"`
	Mutual             bool   `toml:"mutual" yaml:"mutual"`
	ServerName         string `toml:"server_name" yaml:"server_name"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// SinkConfig sizes every sink the process creates. Limit 0 means unbounded.
type SinkConfig struct {
	Limit       int `toml:"limit" yaml:"limit"`
	ScratchSize int `toml:"scratch_size" yaml:"scratch_size"`
	RingSize    int `toml:"ring_size" yaml:"ring_size"`
}

type RelayConfig struct {
	Compression string `toml:"compression" yaml:"compression"`
}

// AdminConfig enables the HTTP admin surface when Addr is set. A non-empty
// Token is required as a bearer token on /metrics and /sessions.
type AdminConfig struct {
	Addr        string   `toml:"addr" yaml:"addr"`
	CorsOrigins []string `toml:"cors_origins" yaml:"cors_origins"`
	Token       string   `toml:"token" yaml:"token"`
}

type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

var (
	ErrUnknownKeys     = errors.New("config: unknown keys")
	ErrUnsupportedFile = errors.New("config: unsupported file extension")
)

var (
	transports   = map[string]bool{"tcp": true, "tls": true, "kcp": true}
	compressions = map[string]bool{"none": true, "snappy": true}
)

func Default() Config {
	return Config{
		ID:     "sinkctl",
		Listen: ListenConfig{Transport: "tcp", Addr: "127.0.0.1:7400"},
		Dial: DialConfig{
			Transport:        "tcp",
			Addr:             "127.0.0.1:7400",
			Attempts:         5,
			TimeoutMS:        5000,
			BackoffInitialMS: 250,
			BackoffMaxMS:     5000,
			BackoffJitter:    true,
		},
		Sink: SinkConfig{
			Limit:       8 * 1024 * 1024,
			ScratchSize: 1024,
			RingSize:    64 * 1024,
		},
		Relay: RelayConfig{Compression: "none"},
		Admin: AdminConfig{Addr: "127.0.0.1:7401"},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads a TOML or YAML file over the defaults and validates the result.
// Keys the file sets replace defaults; unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = decodeTOML(data, &cfg)
	case ".yaml", ".yml":
		err = decodeYAML(data, &cfg)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFile, filepath.Ext(path))
	}
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	normalize(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func decodeTOML(data []byte, out *Config) error {
	meta, err := toml.Decode(string(data), out)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return fmt.Errorf("%w: %s", ErrUnknownKeys, strings.Join(keys, ", "))
	}
	return nil
}

func decodeYAML(data []byte, out *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func normalize(cfg *Config) {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Listen.Transport = strings.ToLower(strings.TrimSpace(cfg.Listen.Transport))
	cfg.Listen.Addr = strings.TrimSpace(cfg.Listen.Addr)
	cfg.Dial.Transport = strings.ToLower(strings.TrimSpace(cfg.Dial.Transport))
	cfg.Dial.Addr = strings.TrimSpace(cfg.Dial.Addr)
	cfg.Relay.Compression = strings.ToLower(strings.TrimSpace(cfg.Relay.Compression))
	cfg.Admin.Addr = strings.TrimSpace(cfg.Admin.Addr)
	cfg.Admin.Token = strings.TrimSpace(cfg.Admin.Token)
	cfg.TLS.CertFile = strings.TrimSpace(cfg.TLS.CertFile)
	cfg.TLS.KeyFile = strings.TrimSpace(cfg.TLS.KeyFile)
	cfg.TLS.CAFile = strings.TrimSpace(cfg.TLS.CAFile)
}

func Validate(cfg Config) error {
	if cfg.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !transports[cfg.Listen.Transport] {
		return fmt.Errorf("listen.transport %q is not one of tcp, tls, kcp", cfg.Listen.Transport)
	}
	if cfg.Listen.Addr == "" {
		return fmt.Errorf("listen.addr is required")
	}
	if !transports[cfg.Dial.Transport] {
		return fmt.Errorf("dial.transport %q is not one of tcp, tls, kcp", cfg.Dial.Transport)
	}
	if cfg.Dial.Addr == "" {
		return fmt.Errorf("dial.addr is required")
	}
	if cfg.Dial.Attempts < 1 {
		return fmt.Errorf("dial.attempts must be at least 1")
	}
	if cfg.Dial.TimeoutMS < 0 || cfg.Dial.BackoffInitialMS < 0 || cfg.Dial.BackoffMaxMS < 0 {
		return fmt.Errorf("dial durations must not be negative")
	}
	if cfg.Listen.Transport == "tls" && (cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "") {
		return fmt.Errorf("tls.cert_file and tls.key_file are required for a tls listener")
	}
	if cfg.TLS.Mutual && cfg.TLS.CAFile == "" {
		return fmt.Errorf("tls.ca_file is required when tls.mutual is set")
	}
	if cfg.Sink.Limit < 0 || cfg.Sink.ScratchSize < 0 || cfg.Sink.RingSize < 0 {
		return fmt.Errorf("sink sizes must not be negative")
	}
	if !compressions[cfg.Relay.Compression] {
		return fmt.Errorf("relay.compression %q is not one of none, snappy", cfg.Relay.Compression)
	}
	return nil
}
