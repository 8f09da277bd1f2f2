package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPathEnv selects the configuration file.
const ConfigPathEnv = "STREAMIN_CONFIG_PATH"

// DefaultConfigPath is used when ConfigPathEnv is unset.
const DefaultConfigPath = "config.yaml"

// Config holds the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Dirs     DirsConfig     `yaml:"dirs" json:"dirs"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Tools    ToolsConfig    `yaml:"tools" json:"tools"`
	Pipeline PipelineConfig `yaml:"pipeline" json:"pipeline"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string        `yaml:"host" json:"host" env:"STREAMIN_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" json:"port" env:"STREAMIN_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout" env:"STREAMIN_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout" env:"STREAMIN_WRITE_TIMEOUT" default:"30s"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DirsConfig names the media directories
type DirsConfig struct {
	Unprocessed string `yaml:"unprocessed" json:"unprocessed" env:"STREAMIN_UNPROCESSED_DIR" default:"unprocessed"`
	Processed   string `yaml:"processed" json:"processed" env:"STREAMIN_PROCESSED_DIR" default:"processed"`
	Temp        string `yaml:"temp" json:"temp" env:"STREAMIN_TEMP_DIR"`
}

// DatabaseConfig selects and addresses the job history database
type DatabaseConfig struct {
	Type     string `yaml:"type" json:"type" env:"STREAMIN_DATABASE_TYPE" default:"sqlite"`
	Path     string `yaml:"path" json:"path" env:"STREAMIN_DATABASE_PATH"`
	URL      string `yaml:"url" json:"url" env:"STREAMIN_DATABASE_URL"`
	Host     string `yaml:"host" json:"host" env:"STREAMIN_POSTGRES_HOST" default:"localhost"`
	Port     int    `yaml:"port" json:"port" env:"STREAMIN_POSTGRES_PORT" default:"5432"`
	Username string `yaml:"username" json:"username" env:"STREAMIN_POSTGRES_USER" default:"streamin"`
	Password string `yaml:"password" json:"password" env:"STREAMIN_POSTGRES_PASSWORD"`
	Database string `yaml:"database" json:"database" env:"STREAMIN_POSTGRES_DB" default:"streamin"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"STREAMIN_LOG_LEVEL" default:"info"`
	Format string `yaml:"format" json:"format" env:"STREAMIN_LOG_FORMAT" default:"text"`
}

// ToolsConfig locates the external stage binaries
type ToolsConfig struct {
	FFmpeg      string `yaml:"ffmpeg" json:"ffmpeg" env:"STREAMIN_FFMPEG" default:"ffmpeg"`
	FFprobe     string `yaml:"ffprobe" json:"ffprobe" env:"STREAMIN_FFPROBE" default:"ffprobe"`
	MP4Fragment string `yaml:"mp4fragment" json:"mp4fragment" env:"STREAMIN_MP4FRAGMENT" default:"mp4fragment"`
	MP4Dash     string `yaml:"mp4dash" json:"mp4dash" env:"STREAMIN_MP4DASH" default:"mp4dash"`
}

// PipelineConfig tunes job execution and the media inventory
type PipelineConfig struct {
	FlushEvery   int  `yaml:"flush_every" json:"flush_every" env:"STREAMIN_FLUSH_EVERY" default:"25"`
	WatchLibrary bool `yaml:"watch_library" json:"watch_library" env:"STREAMIN_WATCH_LIBRARY" default:"true"`
	ProbeWorkers int  `yaml:"probe_workers" json:"probe_workers" env:"STREAMIN_PROBE_WORKERS"`

	// CleanupAfter is how long idle intermediates stay in the temp dir;
	// a zero CleanupInterval disables the sweep.
	CleanupAfter    time.Duration `yaml:"cleanup_after" json:"cleanup_after" env:"STREAMIN_CLEANUP_AFTER" default:"24h"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval" env:"STREAMIN_CLEANUP_INTERVAL" default:"1h"`
}

// ConfigManager manages application configuration with hot reloading
type ConfigManager struct {
	config     *Config
	configPath string
	watchers   []ConfigWatcher
	mu         sync.RWMutex
}

// ConfigWatcher is called when configuration changes
type ConfigWatcher func(oldConfig, newConfig *Config)

var (
	globalConfigManager *ConfigManager
	configOnce          sync.Once
)

// GetConfigManager returns the global configuration manager instance
func GetConfigManager() *ConfigManager {
	configOnce.Do(func() {
		globalConfigManager = NewConfigManager()
	})
	return globalConfigManager
}

// NewConfigManager creates a new configuration manager
func NewConfigManager() *ConfigManager {
	return &ConfigManager{
		config:   DefaultConfig(),
		watchers: make([]ConfigWatcher, 0),
	}
}

// DefaultConfig returns the configuration described by the default tags,
// with derived values filled in.
func DefaultConfig() *Config {
	config := &Config{}
	if err := applyDefaults(reflect.ValueOf(config).Elem()); err != nil {
		panic(fmt.Sprintf("invalid default tag: %v", err))
	}
	applyDerivedConfig(config)
	return config
}

// ResolvePath returns the file named by STREAMIN_CONFIG_PATH, or the
// default path.
func ResolvePath() string {
	if path := os.Getenv(ConfigPathEnv); path != "" {
		return path
	}
	return DefaultConfigPath
}

// LoadConfig loads configuration from file and environment variables
func (cm *ConfigManager) LoadConfig(configPath string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	oldConfig := *cm.config
	cm.configPath = configPath

	newConfig := &Config{}
	if err := applyDefaults(reflect.ValueOf(newConfig).Elem()); err != nil {
		return fmt.Errorf("failed to apply defaults: %w", err)
	}

	if configPath != "" && fileExists(configPath) {
		if err := loadFromFile(configPath, newConfig); err != nil {
			return fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(newConfig).Elem()); err != nil {
		return fmt.Errorf("failed to load config from environment: %w", err)
	}

	applyDerivedConfig(newConfig)

	if err := Validate(newConfig); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cm.config = newConfig

	for _, watcher := range cm.watchers {
		go watcher(&oldConfig, newConfig)
	}

	return nil
}

// GetConfig returns the current configuration (thread-safe)
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	configCopy := *cm.config
	return &configCopy
}

// ConfigPath is the file the configuration was last loaded from.
func (cm *ConfigManager) ConfigPath() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.configPath
}

// AddWatcher adds a configuration change watcher
func (cm *ConfigManager) AddWatcher(watcher ConfigWatcher) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.watchers = append(cm.watchers, watcher)
}

// SaveConfig saves the current configuration to file
func (cm *ConfigManager) SaveConfig() error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.configPath == "" {
		return fmt.Errorf("no config path set")
	}

	return saveToFile(cm.configPath, cm.config)
}

func loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	case ".json":
		return json.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
}

func saveToFile(path string, config *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	var data []byte
	var err error

	switch ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	case ".json":
		data, err = json.MarshalIndent(config, "", "  ")
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// applyDefaults sets every field carrying a default tag.
func applyDefaults(v reflect.Value) error {
	return walkTags(v, func(field reflect.Value, tag reflect.StructField) error {
		def := tag.Tag.Get("default")
		if def == "" {
			return nil
		}
		return setFieldValue(field, def)
	})
}

// loadStructFromEnv overrides fields whose env variable is set. File values
// are kept when the variable is unset.
func loadStructFromEnv(v reflect.Value) error {
	return walkTags(v, func(field reflect.Value, tag reflect.StructField) error {
		envTag := tag.Tag.Get("env")
		if envTag == "" {
			return nil
		}
		envValue, ok := os.LookupEnv(envTag)
		if !ok || envValue == "" {
			return nil
		}
		return setFieldValue(field, envValue)
	})
}

func walkTags(v reflect.Value, fn func(reflect.Value, reflect.StructField) error) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := walkTags(field, fn); err != nil {
				return err
			}
			continue
		}

		if err := fn(field, fieldType); err != nil {
			return fmt.Errorf("failed to set field %s: %w", fieldType.Name, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(duration))
		} else {
			intVal, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(intVal)
		}
	case reflect.Float32, reflect.Float64:
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatVal)
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolVal)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %v", field.Type())
		}
		values := strings.Split(value, ",")
		for i, v := range values {
			values[i] = strings.TrimSpace(v)
		}
		field.Set(reflect.ValueOf(values))
	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

func applyDerivedConfig(config *Config) {
	if config.Dirs.Temp == "" {
		config.Dirs.Temp = filepath.Join(os.TempDir(), "streamin")
	}

	if config.Database.Type == "sqlite" && config.Database.Path == "" {
		config.Database.Path = filepath.Join("data", "streamin.db")
	}

	if config.Pipeline.ProbeWorkers == 0 {
		config.Pipeline.ProbeWorkers = min(max(1, runtime.NumCPU()), 8)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Get returns the current global configuration
func Get() *Config {
	return GetConfigManager().GetConfig()
}

// Load loads configuration from the specified path
func Load(configPath string) error {
	return GetConfigManager().LoadConfig(configPath)
}

// AddWatcher adds a global configuration watcher
func AddWatcher(watcher ConfigWatcher) {
	GetConfigManager().AddWatcher(watcher)
}

// Save saves the current configuration
func Save() error {
	return GetConfigManager().SaveConfig()
}
