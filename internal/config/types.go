package config

// Config is the persisted application configuration.
//
// Unknown or missing keys are tolerated on load: decoding starts from
// Default(), so anything absent from the file keeps its default value,
// and Save always writes the full key set back out.
type Config struct {
	// Language is a BCP-47-ish UI language tag (e.g. "en", "zh_tw").
	Language string `json:"language"`

	// LastUsedParams remembers the most recent test parameters so the
	// next invocation can start from them.
	LastUsedParams TestParams `json:"last_used_params"`

	// AutoSaveResults controls whether finished runs are written to the
	// results directory automatically.
	AutoSaveResults bool `json:"auto_save_results"`

	Logging LoggingConfig `json:"logging"`

	// Storage configures run-history persistence. Nil disables it.
	Storage *StorageConfig `json:"storage,omitempty"`

	// Schedule configures recurring unattended runs. Nil disables it.
	Schedule *ScheduleConfig `json:"schedule,omitempty"`

	// Notify configures completion notifications. Nil disables it.
	Notify *NotifyConfig `json:"notify,omitempty"`

	Ping PingConfig `json:"ping"`
}

// TestParams mirrors the knobs of a single bandwidth test.
type TestParams struct {
	// Mode is "client" or "server".
	Mode string `json:"mode"`
	Host string `json:"host"`
	Port int    `json:"port"`

	// Time is the test duration in seconds.
	Time int `json:"time"`

	// Bandwidth is a target rate string understood by the tool
	// (e.g. "10M"). Empty or "0" means unlimited.
	Bandwidth string `json:"bandwidth"`

	Parallel int `json:"parallel"`

	// Interval is the requested reporting interval in seconds.
	Interval float64 `json:"interval"`

	UDP     bool   `json:"udp"`
	Reverse bool   `json:"reverse"`
	Format  string `json:"format"`

	// ExtraParams is appended verbatim to the command line, split on
	// whitespace.
	ExtraParams string `json:"extra_params"`
}

type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `json:"level"`
	// Console enables human-readable console output.
	Console bool `json:"console"`
	// File, when non-empty, receives JSON log lines.
	File string `json:"file,omitempty"`
}

type StorageConfig struct {
	// Driver is "file", "sqlite" or "none".
	Driver string `json:"driver"`
	// Path is the backing file (JSONL for "file", database for "sqlite").
	Path string `json:"path"`
	// MaxRuns caps how many recent runs RecentRuns may return. 0 means
	// the driver default.
	MaxRuns int `json:"max_runs,omitempty"`
}

type ScheduleConfig struct {
	Enabled bool `json:"enabled"`
	// Spec is a cron expression (5-field, standard syntax).
	Spec string `json:"spec"`
}

type NotifyConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  int64  `json:"chat_id"`
}

type PingConfig struct {
	// Backend is "system" (platform ping binary) or "icmp" (native
	// unprivileged sockets).
	Backend string `json:"backend"`
	// Count limits how many probes a session sends. 0 means unlimited.
	Count int `json:"count"`
}

// Default returns a fully populated configuration. Load decodes over a
// copy of this value, so file contents only override what they mention.
func Default() *Config {
	return &Config{
		Language: "en",
		LastUsedParams: TestParams{
			Mode:     "client",
			Host:     "localhost",
			Port:     5201,
			Time:     10,
			Parallel: 1,
			Interval: 1,
			Format:   "normal",
		},
		AutoSaveResults: true,
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
		Ping: PingConfig{
			Backend: "system",
		},
	}
}
