package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed leave_types.yaml
var leaveTypesYAML []byte

type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	Embedding  EmbeddingConfig
	Matcher    MatcherConfig
	Attendance AttendanceConfig
	Roster     RosterConfig
	Leave      LeaveConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type RedisConfig struct {
	Addr       string        // empty disables the summary cache
	SummaryTTL time.Duration // how long cached monthly summaries live
}

type EmbeddingConfig struct {
	URL     string        // face embedding service, defaults to http://localhost:8000
	Model   string        // model name for reference only, defaults to sface
	Dim     int           // defaults to 512
	Timeout time.Duration // per-extraction deadline, defaults to 10s
}

type MatcherConfig struct {
	// Threshold is the cosine distance cutoff; lower is stricter.
	Threshold float64
	// UseIndex enables the in-memory HNSW candidate index. The default
	// (false) keeps recognition on the exact brute-force path.
	UseIndex bool
	// IndexCandidates is how many nearest stored vectors the index
	// pre-selects for exact rescoring.
	IndexCandidates int
}

type AttendanceConfig struct {
	// DayStartHour is the clock hour before which a scan belongs to the
	// previous calendar date.
	DayStartHour int
}

type RosterConfig struct {
	// LegacyDSN is the MySQL DSN of the legacy campus directory,
	// used by the sync command. Empty disables sync.
	LegacyDSN string
}

type LeaveConfig struct {
	Types []LeaveType
}

type LeaveType struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

type leaveTypesFile struct {
	LeaveTypes []LeaveType `yaml:"leave_types"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean flag.
func envBool(key string, defaultVal bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE":
		return true
	case "0", "false", "FALSE":
		return false
	}
	return defaultVal
}

// envDuration reads an environment variable as a time.Duration.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func env(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	var leave leaveTypesFile
	if err := yaml.Unmarshal(leaveTypesYAML, &leave); err != nil {
		// Embedded file, so this should never happen in practice.
		panic("failed to unmarshal embedded leave_types.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:       os.Getenv("REDIS_ADDR"),
			SummaryTTL: envDuration("SUMMARY_CACHE_TTL", 15*time.Minute),
		},
		Embedding: EmbeddingConfig{
			URL:     env("EMBEDDING_URL", "http://localhost:8000"),
			Model:   env("EMBEDDING_MODEL", "sface"),
			Dim:     envInt("EMBEDDING_DIM", 512),
			Timeout: envDuration("EMBEDDING_TIMEOUT", 10*time.Second),
		},
		Matcher: MatcherConfig{
			Threshold:       envFloat("MATCH_THRESHOLD", 0.45),
			UseIndex:        envBool("MATCH_USE_INDEX", false),
			IndexCandidates: envInt("MATCH_INDEX_CANDIDATES", 32),
		},
		Attendance: AttendanceConfig{
			DayStartHour: envInt("DAY_START_HOUR", 8),
		},
		Roster: RosterConfig{
			LegacyDSN: os.Getenv("LEGACY_ROSTER_DSN"),
		},
		Leave: LeaveConfig{
			Types: leave.LeaveTypes,
		},
	}
}

// ValidLeaveType reports whether key names a configured leave type.
func (c *Config) ValidLeaveType(key string) bool {
	for _, lt := range c.Leave.Types {
		if lt.Key == key {
			return true
		}
	}
	return false
}
