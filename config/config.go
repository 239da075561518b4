// Package config loads the process-wide flattening settings from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rediwo/redi-shape/database"
	"github.com/rediwo/redi-shape/engine"
	"github.com/rediwo/redi-shape/logger"
	"github.com/rediwo/redi-shape/options"
)

// EnvPrefix starts the names of environment overrides
const EnvPrefix = "REDI_SHAPE_"

// envVarPattern matches ${VAR} and ${VAR:-default}
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// Config is the contents of a settings file:
//
//	scripts: [helpers.js]
//	options:
//	  exclude: [password]
//	  camelcase: true
//	  posthook: {script: "function(r, attrs) { attrs.kind = 'user' }"}
//	  related:
//	    posts:
//	      fields: [title]
//	      prehook: {criteria: {published: true}}
//	logging: {level: debug, format: json}
//	database: {uri: "sqlite://app.db", schema: schema.yaml}
type Config struct {
	Scripts  []string `yaml:"scripts,omitempty" validate:"dive,required"`
	Options  Profile  `yaml:"options"`
	Logging  Logging  `yaml:"logging"`
	Database Database `yaml:"database"`

	// dir resolves relative script and schema paths
	dir string
}

// Profile is an option layer as written in YAML. Hooks are given as
// JavaScript and nested relations as profiles of their own.
type Profile struct {
	options.Override `yaml:",inline"`

	Prehook  *HookSpec           `yaml:"prehook,omitempty"`
	Posthook *HookSpec           `yaml:"posthook,omitempty"`
	Related  map[string]*Profile `yaml:"related,omitempty" validate:"dive,required"`
}

// HookSpec is a hook written inline, read from a file, or, for prehooks,
// given as equality criteria.
type HookSpec struct {
	Script   string         `yaml:"script,omitempty" validate:"required_without_all=File Criteria"`
	File     string         `yaml:"file,omitempty"`
	Criteria map[string]any `yaml:"criteria,omitempty"`
}

type Logging struct {
	Level  string `yaml:"level,omitempty" validate:"omitempty,oneof=none off error warn warning info debug"`
	Format string `yaml:"format,omitempty" validate:"omitempty,oneof=text json"`
}

type Database struct {
	URI    string `yaml:"uri,omitempty" validate:"omitempty,dburi"`
	Schema string `yaml:"schema,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("dburi", func(fl validator.FieldLevel) bool {
		_, err := database.ParseURI(fl.Field().String())
		return err == nil
	})
	return v
}

// Load reads, expands and validates a settings file
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	config.dir = filepath.Dir(absPath)
	return config, nil
}

// Parse expands ${VAR} references, decodes the YAML, applies REDI_SHAPE_*
// environment overrides and validates the result.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal([]byte(substituteEnvVars(string(data))), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the config against its validation tags
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default}. $$ is a literal $.
func substituteEnvVars(content string) string {
	content = strings.ReplaceAll(content, "$$", "\x00ESCAPED_DOLLAR\x00")

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if value, exists := os.LookupEnv(submatches[1]); exists {
			return value
		}
		return submatches[2]
	})

	return strings.ReplaceAll(result, "\x00ESCAPED_DOLLAR\x00", "$")
}

// applyEnv applies REDI_SHAPE_* overrides on top of the file
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LOG_LEVEL":  &c.Logging.Level,
		"LOG_FORMAT": &c.Logging.Format,
		"DB":         &c.Database.URI,
		"SCHEMA":     &c.Database.Schema,
	}
	for name, target := range strs {
		if value, ok := lookup(EnvPrefix + name); ok {
			*target = value
		}
	}

	if value, ok := lookup(EnvPrefix + "PREFIX"); ok {
		c.Options.Prefix = &value
	}

	bools := map[string]**bool{
		"CAMELCASE":     &c.Options.Camelcase,
		"ALLOW_MISSING": &c.Options.AllowMissing,
		"FLAT":          &c.Options.Flat,
	}
	for name, target := range bools {
		value, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*target = &b
	}

	if value, ok := lookup(EnvPrefix + "MAX_DEPTH"); ok {
		depth, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%sMAX_DEPTH: %w", EnvPrefix, err)
		}
		c.Options.MaxDepth = &depth
	}
	return nil
}

// Path resolves a path from the config relative to the config file
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// Compile loads the helper scripts into eng and turns the options profile
// into an override with its hooks compiled.
func (c *Config) Compile(eng *engine.Engine) (*options.Override, error) {
	for _, script := range c.Scripts {
		if err := eng.ExecuteFile(c.Path(script)); err != nil {
			return nil, err
		}
	}
	return c.compile(eng, &c.Options, "options")
}

func (c *Config) compile(eng *engine.Engine, p *Profile, path string) (*options.Override, error) {
	out := p.Override.Clone()

	if p.Prehook != nil {
		if p.Prehook.Criteria != nil {
			out.Prehook = options.Criteria(p.Prehook.Criteria)
		} else {
			src, err := c.hookSource(p.Prehook)
			if err != nil {
				return nil, fmt.Errorf("%s.prehook: %w", path, err)
			}
			hook, err := eng.PrehookContext(src)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			out.Prehook = hook
		}
	}

	if p.Posthook != nil {
		src, err := c.hookSource(p.Posthook)
		if err != nil {
			return nil, fmt.Errorf("%s.posthook: %w", path, err)
		}
		hook, err := eng.Posthook(src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out.Posthook = hook
	}

	if p.Related != nil {
		out.Related = make(map[string]*options.Override, len(p.Related))
		for accessor, child := range p.Related {
			compiled, err := c.compile(eng, child, path+".related."+accessor)
			if err != nil {
				return nil, err
			}
			out.Related[accessor] = compiled
		}
	}
	return out, nil
}

func (c *Config) hookSource(h *HookSpec) (string, error) {
	if h.Script != "" {
		return h.Script, nil
	}
	if h.File == "" {
		return "", fmt.Errorf("criteria are only supported for prehooks")
	}
	data, err := os.ReadFile(c.Path(h.File))
	if err != nil {
		return "", fmt.Errorf("failed to read hook: %w", err)
	}
	return string(data), nil
}

// Logger builds the logger described by the logging section
func (c *Config) Logger() logger.Logger {
	var l logger.Logger
	if c.Logging.Format == "json" {
		l = logger.NewZapLogger("redi-shape", os.Stderr)
	} else {
		dl := logger.NewDefaultLogger("redi-shape")
		dl.SetOutput(os.Stderr)
		l = dl
	}
	l.SetLevel(logger.ParseLogLevel(c.Logging.Level))
	return l
}
