package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the connection tracker
// driver. YAML values loaded via --config are overlaid by any flag
// that was explicitly set on the command line, so a deployment can
// check in a base YAML file and still override it per-invocation.
type Config struct {
	Directory string `yaml:"directory"`
	Output    string `yaml:"output"`
	NATSURL   string `yaml:"nats_url"`
	Subject   string `yaml:"nats_subject"`
	TimeoutMS int    `yaml:"timeout_ms"`
	Disable   string `yaml:"disable"`
	Flush     bool   `yaml:"flush"`
	Verbose   bool   `yaml:"verbose"`

	StatusGRPCAddr string `yaml:"status_grpc_addr"`
	StatusHTTPAddr string `yaml:"status_http_addr"`

	ClickHouse *ClickHouseYAML `yaml:"clickhouse"`
}

// ClickHouseYAML configures the optional direct-to-ClickHouse sink, used
// in place of the NATS sink when present in the config file.
type ClickHouseYAML struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// TimeoutMicros returns the idle timeout in microseconds, the unit the
// trackers operate in internally.
func (c *Config) TimeoutMicros() uint64 {
	return uint64(c.TimeoutMS) * 1000
}

func defaults() Config {
	return Config{
		Directory: "pcaps",
		Output:    "",
		NATSURL:   "nats://127.0.0.1:4222",
		Subject:   "pcaptrack.connections",
		TimeoutMS: 1000,
		Disable:   "",
		Flush:     false,
		Verbose:   false,
	}
}

// LoadFile reads a YAML config file and overlays it onto the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// ParseFlags builds a Config from defaults, an optional --config/-c YAML
// file, and CLI flags, in that precedence order: CLI flags always win
// over the config file, which always wins over built-in defaults.
func ParseFlags(fs *flag.FlagSet, args []string) (*Config, error) {
	var configPath string
	fs.StringVar(&configPath, "config", "", "path to a YAML config file")
	fs.StringVar(&configPath, "c", "", "path to a YAML config file (shorthand)")

	cfg := defaults()
	directory := fs.String("directory", cfg.Directory, "input directory of capture files")
	fs.StringVar(directory, "d", cfg.Directory, "input directory of capture files (shorthand)")
	output := fs.String("output", cfg.Output, "output path (unused by the tracker core)")
	fs.StringVar(output, "o", cfg.Output, "output path (shorthand)")
	natsURL := fs.String("nats", cfg.NATSURL, "sink endpoint URI")
	fs.StringVar(natsURL, "z", cfg.NATSURL, "sink endpoint URI (shorthand)")
	timeoutMS := fs.Int("timeout", cfg.TimeoutMS, "idle timeout in milliseconds, for UDP/ICMP")
	fs.IntVar(timeoutMS, "t", cfg.TimeoutMS, "idle timeout in milliseconds (shorthand)")
	disable := fs.String("disable", cfg.Disable, "comma-tolerant list of protocols to disable (tcp,udp,icmp)")
	flush := fs.Bool("flush", cfg.Flush, "recorded in the config only; the sink is flushed after every file whether or not this is set")
	fs.BoolVar(flush, "f", cfg.Flush, "recorded in the config only (shorthand)")
	verbose := fs.Bool("verbose", cfg.Verbose, "recorded in the config only; log output is the same whether or not this is set")
	fs.BoolVar(verbose, "v", cfg.Verbose, "recorded in the config only (shorthand)")
	statusGRPCAddr := fs.String("status-grpc", cfg.StatusGRPCAddr, "listen address for the status gRPC service (empty disables it)")
	statusHTTPAddr := fs.String("status-http", cfg.StatusHTTPAddr, "listen address for the status HTTP service (empty disables it)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath != "" {
		fileCfg, err := LoadFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = *fileCfg
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["directory"] || set["d"] {
		cfg.Directory = *directory
	}
	if set["output"] || set["o"] {
		cfg.Output = *output
	}
	if set["nats"] || set["z"] {
		cfg.NATSURL = *natsURL
	}
	if set["timeout"] || set["t"] {
		cfg.TimeoutMS = *timeoutMS
	}
	if set["disable"] {
		cfg.Disable = *disable
	}
	if set["flush"] || set["f"] {
		cfg.Flush = *flush
	}
	if set["verbose"] || set["v"] {
		cfg.Verbose = *verbose
	}
	if set["status-grpc"] {
		cfg.StatusGRPCAddr = *statusGRPCAddr
	}
	if set["status-http"] {
		cfg.StatusHTTPAddr = *statusHTTPAddr
	}

	return &cfg, nil
}

// IdleTimeout returns the configured idle timeout as a time.Duration,
// for log messages and diagnostics that want a human-friendly unit.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}
