package config

import (
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"
)

// Duration is a time.Duration that unmarshals from "800ms" style YAML
// strings.
type Duration time.Duration

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	dur, err := cast.ToDurationE(raw)
	if err != nil {
		return errors.Wrapf(err, "parse duration %v", raw)
	}
	*d = Duration(dur)
	return nil
}

// AppConfig is the immutable application configuration, constructed once at
// startup and passed explicitly into each component. Nothing reads it from
// ambient state and nothing mutates it after Load.
type AppConfig struct {
	System  SysConfig     `yaml:"system"`
	Logger  LogConfig     `yaml:"logger"`
	Catalog CatalogConfig `yaml:"catalog"`
	Scanner ScannerConfig `yaml:"scanner"`
	Web     WebConfig     `yaml:"web"`

	// Variant holds the free-form screen-variant flags; the legacy
	// code base shipped five near-identical screens, this map is what
	// remains of the differences between them.
	Variant map[string]interface{} `yaml:"variant"`
}

type SysConfig struct {
	Workdir  string `yaml:"workdir"`
	Location string `yaml:"location"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"` // production or development
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type CatalogConfig struct {
	// URL is the remote catalog base, e.g. http://localhost:3333.
	URL     string   `yaml:"url"`
	Timeout Duration `yaml:"timeout"`
	// Refresh is the background full-list refresh interval; zero disables it.
	Refresh Duration `yaml:"refresh"`
}

type ScannerConfig struct {
	// Debounce is the window collapsing repeated identical decodes into
	// one scan event.
	Debounce      Duration `yaml:"debounce"`
	LookupWorkers int      `yaml:"lookup_workers"`
	AspectRatio   float64  `yaml:"aspect_ratio"`
	FocusMode     string   `yaml:"focus_mode"`
	Width         int      `yaml:"width"`
	Height        int      `yaml:"height"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
}

// VariantConfig is the typed view of AppConfig.Variant.
type VariantConfig struct {
	// Continuous keeps the camera decode loop running; when false the
	// screen is manual-entry only, as two of the legacy variants were.
	Continuous bool `mapstructure:"continuous"`
	// Typeahead enables store suggestions on the store field.
	Typeahead bool `mapstructure:"typeahead"`
	// PrefillPrice also copies price and store from a successful lookup,
	// not just the name.
	PrefillPrice bool `mapstructure:"prefill_price"`
}

// VariantFlags decodes the free-form variant map into typed flags.
func (c *AppConfig) VariantFlags() (VariantConfig, error) {
	v := VariantConfig{Continuous: true, Typeahead: true}
	if c.Variant == nil {
		return v, nil
	}
	if err := mapstructure.Decode(c.Variant, &v); err != nil {
		return v, errors.Wrap(err, "decode variant flags")
	}
	return v, nil
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Workdir:  "/var/shoppapp",
			Location: "Europe/Sofia",
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: false,
			Filename:   "/var/shoppapp/shoppapp.log",
		},
		Catalog: CatalogConfig{
			URL:     "http://localhost:3333",
			Timeout: Duration(10 * time.Second),
			Refresh: 0,
		},
		Scanner: ScannerConfig{
			Debounce:      Duration(time.Second),
			LookupWorkers: 2,
			AspectRatio:   16.0 / 9.0,
			FocusMode:     "continuous",
			Width:         200,
			Height:        100,
		},
		Web: WebConfig{
			Listen: "127.0.0.1:1979",
		},
	}
}

// LoadConfig reads the YAML file at path, falling back to defaults for any
// missing section, then applies SHOPPAPP_* environment overrides.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("SHOPPAPP_CATALOG_URL"); v != "" {
		cfg.Catalog.URL = v
	}
	if v := os.Getenv("SHOPPAPP_WORKDIR"); v != "" {
		cfg.System.Workdir = v
	}
	if v := os.Getenv("SHOPPAPP_WEB_LISTEN"); v != "" {
		cfg.Web.Listen = v
	}
	if v := os.Getenv("SHOPPAPP_DEBOUNCE_MS"); v != "" {
		if ms := cast.ToInt64(v); ms > 0 {
			cfg.Scanner.Debounce = Duration(time.Duration(ms) * time.Millisecond)
		}
	}
}
