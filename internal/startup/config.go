package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"fingerprinter/internal/hashers"
	"fingerprinter/internal/indexer"
	"fingerprinter/internal/logging"
	"fingerprinter/internal/xerrors"
)

// Configuration keys. Flags are bound to these names and each can also be
// set through a FINGERPRINT_<KEY> environment variable or the config file.
const (
	KeyDirectory    = "directory"
	KeyHash         = "hash"
	KeyDatabase     = "database"
	KeyWorkers      = "workers"
	KeyBufferPolicy = "buffer_policy"
	KeyBufferSize   = "buffer_size"
	KeyBufferMax    = "buffer_max"
	KeySkipHidden   = "skip_hidden"
	KeyReset        = "reset"
	KeyMetricsFile  = "metrics_file"
	KeyListen       = "listen"
	KeyLogLevel     = "log_level"
)

const (
	// EnvPrefix prefixes every environment variable read by the config.
	EnvPrefix = "FINGERPRINT"
	// ConfigName is the base name of the optional config file.
	ConfigName = "fingerprinter"
	// DefaultDatabase is the store used when none is configured.
	DefaultDatabase = "fingerprints.db"
	// DefaultListen is the query server address.
	DefaultListen = ":8080"
)

// Config holds all application configuration
type Config struct {
	Directories    []string
	AlgorithmNames []string
	DatabasePath   string
	Workers        int
	BufferPolicy   string
	BufferSize     int
	BufferMax      int
	SkipHidden     bool
	Reset          bool
	MetricsFile    string
	Listen         string
	LogLevel       string

	// Set by ValidateRun
	Algorithms []*hashers.Algorithm
}

// NewViper returns a viper instance with the defaults, environment binding
// and config file search path set up.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyDatabase, DefaultDatabase)
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyBufferPolicy, indexer.PolicyStatic)
	v.SetDefault(KeyBufferSize, indexer.DefaultBufferSize)
	v.SetDefault(KeyBufferMax, indexer.DefaultBufferMax)
	v.SetDefault(KeyListen, DefaultListen)
	return v
}

// ReadConfigFile loads path, or searches for fingerprinter.yaml in the
// working directory and the user config directory when path is empty.
// A missing file is not an error unless it was named explicitly.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", ConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &nf) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	logging.Debug("Using config file %s", v.ConfigFileUsed())
	return nil
}

// LoadConfig reads and validates the settings shared by every command. The
// database directory is created if needed and must be writable. Run-specific
// settings are checked by ValidateRun.
func LoadConfig(v *viper.Viper) (*Config, error) {
	config := &Config{
		Directories:    splitList(v.GetStringSlice(KeyDirectory)),
		AlgorithmNames: splitList(v.GetStringSlice(KeyHash)),
		DatabasePath:   v.GetString(KeyDatabase),
		Workers:        v.GetInt(KeyWorkers),
		BufferPolicy:   strings.ToLower(v.GetString(KeyBufferPolicy)),
		BufferSize:     v.GetInt(KeyBufferSize),
		BufferMax:      v.GetInt(KeyBufferMax),
		SkipHidden:     v.GetBool(KeySkipHidden),
		Reset:          v.GetBool(KeyReset),
		MetricsFile:    v.GetString(KeyMetricsFile),
		Listen:         v.GetString(KeyListen),
		LogLevel:       v.GetString(KeyLogLevel),
	}

	if config.LogLevel != "" {
		level, ok := logging.ParseLevel(config.LogLevel)
		if !ok {
			return nil, fmt.Errorf("invalid log level %q", config.LogLevel)
		}
		logging.SetLevel(level)
	}

	section("CONFIGURATION")
	logging.Info("  database:        %s", config.DatabasePath)
	logging.Info("  workers:         %d", config.Workers)
	logging.Info("  buffer_policy:   %s", config.BufferPolicy)
	logging.Info("  buffer_size:     %d", config.BufferSize)
	logging.Info("  buffer_max:      %d", config.BufferMax)
	logging.Info("  skip_hidden:     %v", config.SkipHidden)
	logging.Info("  log_level:       %s", logging.GetLevel())
	if v.ConfigFileUsed() != "" {
		logging.Info("  config file:     %s", v.ConfigFileUsed())
	}

	switch config.BufferPolicy {
	case indexer.PolicyStatic, indexer.PolicyAdaptive:
	default:
		return nil, fmt.Errorf("invalid buffer policy %q (want %s or %s)",
			config.BufferPolicy, indexer.PolicyStatic, indexer.PolicyAdaptive)
	}
	if config.BufferSize < 1 {
		return nil, fmt.Errorf("buffer size must be at least 1, got %d", config.BufferSize)
	}
	if config.BufferMax < 1 {
		return nil, fmt.Errorf("buffer max must be at least 1, got %d", config.BufferMax)
	}

	if config.DatabasePath == "" {
		return nil, errors.New("database path is required")
	}
	dbPath, err := filepath.Abs(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	config.DatabasePath = dbPath

	dbDir := filepath.Dir(dbPath)
	if err := ensureDirectory(dbDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}
	if err := testWriteAccess(dbDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable: %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	return config, nil
}

// ValidateRun checks the roots and resolves the requested algorithms. Every
// root must exist and be a directory.
func (c *Config) ValidateRun() error {
	if len(c.Directories) == 0 {
		return errors.New("at least one directory is required")
	}
	if len(c.AlgorithmNames) == 0 {
		return errors.New("at least one hash algorithm is required")
	}

	roots := make([]string, 0, len(c.Directories))
	for _, dir := range c.Directories {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", dir, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return xerrors.Wrap(xerrors.KindAccess, "validate", abs, err)
		}
		if !info.IsDir() {
			return xerrors.E(xerrors.KindNotAFile, "validate", abs)
		}
		roots = append(roots, abs)
	}

	algorithms, err := hashers.Resolve(c.AlgorithmNames)
	if err != nil {
		return err
	}

	c.Directories = roots
	c.Algorithms = algorithms
	return nil
}

// splitList flattens comma-separated items. Viper splits list values read
// from the environment on whitespace only, so FINGERPRINT_HASH=md5,dhash
// arrives as one element.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Volumes labels the directories the process touches for filesystem
// metrics: the scanned roots and the database directory.
func (c *Config) Volumes() map[string][]string {
	volumes := map[string][]string{
		"database": {filepath.Dir(c.DatabasePath)},
	}
	if len(c.Directories) > 0 {
		volumes["source"] = c.Directories
	}
	return volumes
}

// IndexerConfig builds the pipeline configuration. ValidateRun must have
// succeeded.
func (c *Config) IndexerConfig() indexer.Config {
	config := indexer.DefaultConfig()
	config.Roots = c.Directories
	config.Algorithms = c.Algorithms
	config.Workers = c.Workers
	config.BufferPolicy = c.BufferPolicy
	config.BufferSize = c.BufferSize
	config.BufferMax = c.BufferMax
	config.SkipHidden = c.SkipHidden
	return config
}
