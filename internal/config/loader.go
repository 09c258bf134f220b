package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"dualserve/internal/common/fsutil"
	"dualserve/internal/service"
)

// Environment variables read by ApplyEnv.
const (
	EnvMode         = "SERVE_MODE"
	EnvAPIHost      = "API_HOST"
	EnvAPIPort      = "API_PORT"
	EnvUIHost       = "UI_HOST"
	EnvUIPort       = "UI_PORT"
	EnvGraceSeconds = "SERVE_GRACE_SECONDS"
	EnvHealthAddr   = "HEALTH_ADDR"
	EnvHealthPolicy = "HEALTH_POLICY"
	EnvLogLevel     = "DUALSERVE_LOG_LEVEL"
)

// Config holds runtime parameters for the supervisor process.
type Config struct {
	Mode         string   `json:"mode" yaml:"mode" toml:"mode"`
	GraceSeconds int      `json:"grace_seconds" yaml:"grace_seconds" toml:"grace_seconds"`
	LogLevel     string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat    string   `json:"log_format" yaml:"log_format" toml:"log_format"`
	Health       Health   `json:"health" yaml:"health" toml:"health"`
	Services     Services `json:"services" yaml:"services" toml:"services"`
}

// Health configures the aggregated health surface.
type Health struct {
	Addr        string   `json:"addr" yaml:"addr" toml:"addr"`
	Policy      string   `json:"policy" yaml:"policy" toml:"policy"`
	TimeoutMS   int      `json:"timeout_ms" yaml:"timeout_ms" toml:"timeout_ms"`
	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	CORSMethods []string `json:"cors_methods" yaml:"cors_methods" toml:"cors_methods"`
	CORSHeaders []string `json:"cors_headers" yaml:"cors_headers" toml:"cors_headers"`
}

// Services holds the catalog of launchable services.
type Services struct {
	Predict ServiceConfig `json:"predict" yaml:"predict" toml:"predict"`
	UI      ServiceConfig `json:"ui" yaml:"ui" toml:"ui"`
}

// ServiceConfig describes how to run one service.
type ServiceConfig struct {
	Host       string            `json:"host" yaml:"host" toml:"host"`
	Port       int               `json:"port" yaml:"port" toml:"port"`
	Command    string            `json:"command" yaml:"command" toml:"command"`
	Args       []string          `json:"args" yaml:"args" toml:"args"`
	Env        map[string]string `json:"env" yaml:"env" toml:"env"`
	Dir        string            `json:"dir" yaml:"dir" toml:"dir"`
	HealthPath string            `json:"health_path" yaml:"health_path" toml:"health_path"`
}

// Default returns the built-in configuration: the prediction API under
// uvicorn on 0.0.0.0:8000 and the Streamlit UI on 0.0.0.0:8501.
func Default() Config {
	return Config{
		Mode:         string(service.ModeBoth),
		GraceSeconds: 10,
		LogLevel:     "info",
		Health: Health{
			Addr:      ":8090",
			Policy:    "any",
			TimeoutMS: 2000,
		},
		Services: Services{
			Predict: ServiceConfig{
				Host:       "0.0.0.0",
				Port:       8000,
				Command:    "uvicorn",
				Args:       []string{"fake_news_detector.api.app:app", "--host", "{host}", "--port", "{port}"},
				HealthPath: "/",
			},
			UI: ServiceConfig{
				Host:    "0.0.0.0",
				Port:    8501,
				Command: "streamlit",
				Args: []string{"run", "app_streamlit.py",
					"--server.address", "{host}", "--server.port", "{port}", "--server.headless", "true"},
				HealthPath: "/_stcore/health",
			},
		},
	}
}

// Load reads a configuration file based on its extension, on top of
// Default(). Supports: .yaml/.yml, .json, .toml
// Relative service directories are resolved against the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	path, err := fsutil.ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for _, sc := range []*ServiceConfig{&cfg.Services.Predict, &cfg.Services.UI} {
		if sc.Dir, err = fsutil.Resolve(base, sc.Dir); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// ApplyEnv overlays environment overrides. Unset or empty variables leave
// the current value alone; malformed numbers are reported.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", key, v)
		}
		*dst = n
		return nil
	}
	str(EnvMode, &c.Mode)
	str(EnvAPIHost, &c.Services.Predict.Host)
	str(EnvUIHost, &c.Services.UI.Host)
	str(EnvHealthAddr, &c.Health.Addr)
	str(EnvHealthPolicy, &c.Health.Policy)
	str(EnvLogLevel, &c.LogLevel)
	if err := num(EnvAPIPort, &c.Services.Predict.Port); err != nil {
		return err
	}
	if err := num(EnvUIPort, &c.Services.UI.Port); err != nil {
		return err
	}
	return num(EnvGraceSeconds, &c.GraceSeconds)
}

// Grace returns the stop grace period.
func (c Config) Grace() time.Duration {
	return time.Duration(c.GraceSeconds) * time.Second
}

// ProbeTimeout returns the per-probe timeout, zero meaning the default.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Health.TimeoutMS) * time.Millisecond
}

// Catalog converts the service section into launchable specs.
func (c Config) Catalog() service.Catalog {
	return service.Catalog{
		Predict: c.Services.Predict.spec(service.NamePredict),
		UI:      c.Services.UI.spec(service.NameUI),
	}
}

func (sc ServiceConfig) spec(name string) service.Spec {
	var env map[string]string
	if len(sc.Env) > 0 {
		env = make(map[string]string, len(sc.Env))
		for k, v := range sc.Env {
			env[k] = v
		}
	}
	return service.Spec{
		Name:       name,
		Host:       sc.Host,
		Port:       sc.Port,
		Command:    sc.Command,
		Args:       append([]string(nil), sc.Args...),
		Env:        env,
		Dir:        sc.Dir,
		HealthPath: sc.HealthPath,
	}
}

// Resolve validates the process-level settings and returns the specs
// selected by the configured mode. Services the mode does not select are
// not validated.
func (c Config) Resolve() ([]service.Spec, error) {
	if c.GraceSeconds < 0 {
		return nil, fmt.Errorf("grace_seconds must not be negative: %d", c.GraceSeconds)
	}
	if c.Health.TimeoutMS < 0 {
		return nil, fmt.Errorf("health.timeout_ms must not be negative: %d", c.Health.TimeoutMS)
	}
	specs, err := service.Resolve(c.Mode, c.Catalog())
	if err != nil {
		return nil, err
	}
	for i, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		for _, prev := range specs[:i] {
			if s.BindsOver(prev) {
				return nil, fmt.Errorf("services %s and %s both bind %s", prev.Name, s.Name, s.Addr())
			}
		}
	}
	return specs, nil
}
