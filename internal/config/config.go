// Package config loads command settings from flags, the environment, and an
// optional notepdf.yaml file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"

	"github.com/tsawler/notepdf/internal/logging"
	"github.com/tsawler/notepdf/merge"
)

// EnvPrefix prefixes every environment variable, e.g. NOTEPDF_WORKERS.
// Nested keys use underscores: log.level is NOTEPDF_LOG_LEVEL.
const EnvPrefix = "NOTEPDF"

var envReplacer = strings.NewReplacer(".", "_")

// Config holds the effective settings of a command.
type Config struct {
	Output    string        `mapstructure:"output"`
	Workers   int           `mapstructure:"workers"`
	Buffer    int           `mapstructure:"buffer"`
	Raster    bool          `mapstructure:"raster"`
	DPI       float64       `mapstructure:"dpi"`
	Links     bool          `mapstructure:"links"`
	Recursive bool          `mapstructure:"recursive"`
	Force     bool          `mapstructure:"force"`
	Exact     bool          `mapstructure:"exact"`
	Hidden    bool          `mapstructure:"hidden"`
	Merge     bool          `mapstructure:"merge"`
	MergeDir  string        `mapstructure:"merge_dir"`
	Range     string        `mapstructure:"range"`
	Ledger    string        `mapstructure:"ledger"`
	Log       LogConfig     `mapstructure:"log"`
	Device    DeviceConfig  `mapstructure:"device"`
	OCR       OCRConfig     `mapstructure:"ocr"`
	Debounce  time.Duration `mapstructure:"debounce"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DeviceConfig locates the tablet's browse-and-access server.
type DeviceConfig struct {
	Host    string        `mapstructure:"host"`
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OCRConfig controls the searchable text layer.
type OCRConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Lang    string `mapstructure:"lang"`
	// PSM is the Tesseract page segmentation mode; 0 keeps the engine's own.
	PSM int `mapstructure:"psm"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("output", "")
	v.SetDefault("workers", 4)
	v.SetDefault("buffer", 2)
	v.SetDefault("raster", false)
	v.SetDefault("dpi", 150)
	v.SetDefault("links", true)
	v.SetDefault("recursive", false)
	v.SetDefault("force", false)
	v.SetDefault("exact", false)
	v.SetDefault("hidden", false)
	v.SetDefault("merge", false)
	v.SetDefault("merge_dir", merge.DefaultDir)
	v.SetDefault("range", string(merge.RangeAll))
	v.SetDefault("ledger", DefaultLedgerPath())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("device.host", "")
	v.SetDefault("device.port", 8089)
	v.SetDefault("device.timeout", 30*time.Second)
	v.SetDefault("ocr.enabled", false)
	v.SetDefault("ocr.lang", "eng")
	v.SetDefault("ocr.psm", 11) // sparse text
	v.SetDefault("debounce", 500*time.Millisecond)
}

// DefaultLedgerPath is ~/.config/notepdf/ledger.db, or a relative file when
// the home directory is unknown.
func DefaultLedgerPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "notepdf-ledger.db"
	}
	return filepath.Join(home, ".config", "notepdf", "ledger.db")
}

// Init points v at the config file and the environment. An explicit file
// must exist; otherwise notepdf.yaml is looked up in the current directory
// and ~/.config/notepdf. It returns the file used, if any.
func Init(v *viper.Viper, file string) (string, error) {
	SetDefaults(v)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("notepdf")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "notepdf"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && file == "" {
			return "", nil
		}
		return "", fmt.Errorf("read config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(256)),
		validation.Field(&c.Buffer, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.DPI, validation.Required, validation.Min(36.0), validation.Max(1200.0)),
		validation.Field(&c.MergeDir, validation.When(c.Merge, validation.Required)),
		validation.Field(&c.Range, validation.By(validRange)),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Device.Validate(); err != nil {
		return fmt.Errorf("device: %w", err)
	}
	return c.OCR.Validate()
}

func validRange(value interface{}) error {
	s, _ := value.(string)
	_, err := merge.ParseRange(s)
	return err
}

// TimeRange returns the parsed merge range.
func (c *Config) TimeRange() merge.Range {
	r, _ := merge.ParseRange(c.Range)
	return r
}

// Validate validates the logging configuration.
func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.In(stringsToAny(logging.Levels())...)),
		validation.Field(&c.Format, validation.In("console", "json")),
	)
}

// Validate validates the device configuration. Host may be empty until a
// command needs the device.
func (c *DeviceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// Address returns host:port.
func (c *DeviceConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate validates the OCR configuration.
func (c *OCRConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Lang, validation.When(c.Enabled, validation.Required)),
		// modes below 3 do no recognition
		validation.Field(&c.PSM, validation.Min(3), validation.Max(13)),
	)
}

func stringsToAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
