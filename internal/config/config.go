package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr     string        `yaml:"listen_addr"`
	ModelID        string        `yaml:"model_id"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	MetricsPath    string        `yaml:"metrics_path"`
	// Engine
	Engine         string `yaml:"engine"`
	GeminiAPIKey   string `yaml:"gemini_api_key"`
	GeminiModel    string `yaml:"gemini_model"`
	VertexProject  string `yaml:"vertex_project"`
	VertexLocation string `yaml:"vertex_location"`
	// A2A
	A2AEnabled bool   `yaml:"a2a_enabled"`
	A2APort    int    `yaml:"a2a_port"`
	AgentName  string `yaml:"agent_name"`
	AgentDesc  string `yaml:"agent_desc"`

	ConfigFile string `yaml:"-"`
}

// Load reads .env, the environment, the command line and the optional config
// file. It exits on invalid input, like flag.Parse.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	cfg, err := Parse(os.Args[0], os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return cfg
}

// Parse builds a Config from args with environment fallbacks. Values from
// the YAML file named by -config override the environment and defaults but
// not flags given explicitly in args.
func Parse(name string, args []string) (*Config, error) {
	cfg := &Config{}
	set := flag.NewFlagSet(name, flag.ContinueOnError)

	set.StringVar(&cfg.ListenAddr, "listen-addr", getEnv("LISTEN_ADDR", ":8080"), "HTTP listen address")
	set.StringVar(&cfg.ModelID, "model-id", getEnv("MODEL_ID", "foundation-model"), "Model id reported by /v1/models")
	set.DurationVar(&cfg.RequestTimeout, "request-timeout", getEnvDuration("REQUEST_TIMEOUT", 120*time.Second), "Per-request generation timeout (0 disables)")
	set.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	set.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "json"), "Log format: json or text")
	set.StringVar(&cfg.MetricsPath, "metrics-path", getEnv("METRICS_PATH", "/metrics"), "Prometheus metrics path (empty disables)")

	set.StringVar(&cfg.Engine, "engine", getEnv("ENGINE", "echo"), "Inference backend: echo or gemini")
	set.StringVar(&cfg.GeminiAPIKey, "gemini-api-key", getEnv("GEMINI_API_KEY", ""), "Gemini API key")
	set.StringVar(&cfg.GeminiModel, "gemini-model", getEnv("GEMINI_MODEL", "gemini-2.5-flash"), "Gemini model name")
	set.StringVar(&cfg.VertexProject, "vertex-project", getEnv("VERTEX_PROJECT", ""), "Vertex AI project (selects the Vertex backend)")
	set.StringVar(&cfg.VertexLocation, "vertex-location", getEnv("VERTEX_LOCATION", "us-central1"), "Vertex AI location")

	set.BoolVar(&cfg.A2AEnabled, "a2a", getEnvBool("A2A_ENABLED", false), "Enable A2A server alongside the HTTP API")
	set.IntVar(&cfg.A2APort, "a2a-port", getEnvInt("A2A_PORT", 8000), "A2A server listen port")
	set.StringVar(&cfg.AgentName, "agent-name", getEnv("AGENT_NAME", "foundation-bridge"), "A2A AgentCard name")
	set.StringVar(&cfg.AgentDesc, "agent-desc", getEnv("AGENT_DESC", "Local foundation model exposed via A2A protocol"), "A2A AgentCard description")

	set.StringVar(&cfg.ConfigFile, "config", getEnv("CONFIG_FILE", ""), "Optional YAML config file")

	if err := set.Parse(args); err != nil {
		return nil, err
	}

	if cfg.ConfigFile != "" {
		if err := applyFile(cfg, cfg.ConfigFile); err != nil {
			return nil, err
		}
		// Explicit flags win over the file.
		if err := set.Parse(args); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// applyFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current value.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	file := *cfg
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	file.ConfigFile = cfg.ConfigFile
	*cfg = file
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
