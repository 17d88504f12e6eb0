package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/incidentlens/internal/report"
)

// Global configuration structure.
type Global struct {
	InputPath   string `mapstructure:"input_path" yaml:"input_path"`
	OutputPath  string `mapstructure:"output_path" yaml:"output_path" validate:"omitempty,tablefile"`
	ViewsDir    string `mapstructure:"views_dir" yaml:"views_dir"`
	SummaryPath string `mapstructure:"summary_path" yaml:"summary_path"`
	// Input selection
	SheetName  string `mapstructure:"sheet_name" yaml:"sheet_name"`
	SheetIndex int    `mapstructure:"sheet_index" yaml:"sheet_index" validate:"min=0"`
	Delimiter  string `mapstructure:"delimiter" yaml:"delimiter" validate:"omitempty,delimiter"`

	// Aggregation
	TopN          int     `mapstructure:"top_n" yaml:"top_n" validate:"min=1,max=1000"`
	TopCategories int     `mapstructure:"top_categories" yaml:"top_categories" validate:"min=1,max=100"`
	AgeMin        float64 `mapstructure:"age_min" yaml:"age_min" validate:"gte=0"`
	AgeMax        float64 `mapstructure:"age_max" yaml:"age_max" validate:"gtfield=AgeMin"`
	Workers       int     `mapstructure:"workers" yaml:"workers" validate:"min=1,max=64"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=text json"`

	Style report.Style `mapstructure:"style" yaml:"style"`
}

// ErrInvalid is matched by every validation and set failure.
var ErrInvalid = errors.New("invalid config")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("tablefile", func(fl validator.FieldLevel) bool {
		ext := strings.ToLower(filepath.Ext(fl.Field().String()))
		return ext == ".xlsx" || ext == ".csv"
	})
	_ = v.RegisterValidation("delimiter", func(fl validator.FieldLevel) bool {
		_, err := ParseDelimiter(fl.Field().String())
		return err == nil
	})
	// Report mapstructure keys in messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
	})
	return v
}

// Validate checks field constraints.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// ParseDelimiter maps a configured delimiter to a rune. "" means sniff.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case "tab", "\\t", "\t":
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 || r[0] == '"' || r[0] == '\n' || r[0] == '\r' {
		return 0, fmt.Errorf("%w: delimiter %q", ErrInvalid, s)
	}
	return r[0], nil
}

// Dir returns the default configuration directory, ~/.incidentlens.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".incidentlens"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.incidentlens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("INCIDENTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := report.DefaultStyle()
	v.SetDefault("input_path", "")
	v.SetDefault("output_path", "cleaned_incidents.xlsx")
	v.SetDefault("views_dir", "views")
	v.SetDefault("summary_path", "summary.md")
	v.SetDefault("sheet_name", "")
	v.SetDefault("sheet_index", 0)
	v.SetDefault("delimiter", "")
	v.SetDefault("top_n", 10)
	v.SetDefault("top_categories", 5)
	v.SetDefault("age_min", 0.0)
	v.SetDefault("age_max", 100.0)
	v.SetDefault("workers", 4)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("style.width", def.Width)
	v.SetDefault("style.height", def.Height)
	v.SetDefault("style.theme", def.Theme)
	v.SetDefault("style.palette", def.Palette)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Keys lists the settable keys in display order.
func Keys() []string {
	return []string{
		"input_path", "output_path", "views_dir", "summary_path",
		"sheet_name", "sheet_index", "delimiter",
		"top_n", "top_categories", "age_min", "age_max", "workers",
		"log_level", "log_format",
		"style.width", "style.height", "style.theme", "style.palette",
	}
}

// Get returns the display value of key.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "input_path":
		return c.InputPath, nil
	case "output_path":
		return c.OutputPath, nil
	case "views_dir":
		return c.ViewsDir, nil
	case "summary_path":
		return c.SummaryPath, nil
	case "sheet_name":
		return c.SheetName, nil
	case "sheet_index":
		return strconv.Itoa(c.SheetIndex), nil
	case "delimiter":
		return c.Delimiter, nil
	case "top_n":
		return strconv.Itoa(c.TopN), nil
	case "top_categories":
		return strconv.Itoa(c.TopCategories), nil
	case "age_min":
		return strconv.FormatFloat(c.AgeMin, 'f', -1, 64), nil
	case "age_max":
		return strconv.FormatFloat(c.AgeMax, 'f', -1, 64), nil
	case "workers":
		return strconv.Itoa(c.Workers), nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	case "style.width":
		return strconv.Itoa(c.Style.Width), nil
	case "style.height":
		return strconv.Itoa(c.Style.Height), nil
	case "style.theme":
		return c.Style.Theme, nil
	case "style.palette":
		return c.Style.Palette, nil
	default:
		return "", fmt.Errorf("%w: unknown key %s", ErrInvalid, key)
	}
}

// Set parses val into key and validates the result. c is left unchanged on
// error.
func (c *Global) Set(key, val string) error {
	next := *c
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid int for %s: %v", ErrInvalid, key, val)
		}
		return i, nil
	}
	atof := func() (float64, error) {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid float for %s: %v", ErrInvalid, key, val)
		}
		return f, nil
	}
	var err error
	switch key {
	case "input_path":
		next.InputPath = val
	case "output_path":
		next.OutputPath = val
	case "views_dir":
		next.ViewsDir = val
	case "summary_path":
		next.SummaryPath = val
	case "sheet_name":
		next.SheetName = val
	case "sheet_index":
		next.SheetIndex, err = atoi()
	case "delimiter":
		next.Delimiter = val
	case "top_n":
		next.TopN, err = atoi()
	case "top_categories":
		next.TopCategories, err = atoi()
	case "age_min":
		next.AgeMin, err = atof()
	case "age_max":
		next.AgeMax, err = atof()
	case "workers":
		next.Workers, err = atoi()
	case "log_level":
		next.LogLevel = strings.ToLower(val)
	case "log_format":
		next.LogFormat = strings.ToLower(val)
	case "style.width":
		next.Style.Width, err = atoi()
	case "style.height":
		next.Style.Height, err = atoi()
	case "style.theme":
		next.Style.Theme = val
	case "style.palette":
		next.Style.Palette = val
	default:
		return fmt.Errorf("%w: unknown key %s", ErrInvalid, key)
	}
	if err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
