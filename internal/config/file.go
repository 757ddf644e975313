// file.go loads the optional boot file. The file exists so that compose
// setups can declare extra dependencies and initialization steps without
// rebuilding the image.
//
// Two formats are accepted, selected by extension:
//   - .yaml / .yml  — parsed with gopkg.in/yaml.v3
//   - .json / .jsonc — JSONC (JSON with comments and trailing commas),
//     stripped with github.com/tidwall/jsonc and parsed with encoding/json
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/sergehoo/lynerp/internal/model"
)

// defaultFileNames are probed in order by FindFile. The YAML spelling is
// listed first because it is what the deployment repo ships.
var defaultFileNames = []string{
	"lynerp-boot.yaml",
	"lynerp-boot.yml",
	"lynerp-boot.jsonc",
	"lynerp-boot.json",
}

// File is the raw boot file structure. Pointer and nil-able fields
// distinguish "absent" from "explicitly set to the zero value" so that the
// merge into Config only overrides what the file actually declares.
type File struct {
	// Attempts overrides the per-dependency retry budget.
	Attempts *int `json:"attempts,omitempty" yaml:"attempts,omitempty"`

	// Interval overrides the spacing between attempts. Accepts Go duration
	// syntax ("1s", "500ms") or bare seconds ("2").
	Interval string `json:"interval,omitempty" yaml:"interval,omitempty"`

	// Dependencies replaces the default DB/Redis dependency list when
	// present. An empty (but present) list disables the dependency wait
	// entirely.
	Dependencies []model.Dependency `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	// Steps are extra initialization steps run after the migration step.
	Steps []model.Step `json:"steps,omitempty" yaml:"steps,omitempty"`

	// Migrate configures the schema migration step.
	Migrate *FileMigrate `json:"migrate,omitempty" yaml:"migrate,omitempty"`

	// Server configures the final server commands.
	Server *FileServer `json:"server,omitempty" yaml:"server,omitempty"`

	// SelfCheck is an optional readiness target probed once, best-effort,
	// before the exec handoff.
	SelfCheck string `json:"selfCheck,omitempty" yaml:"selfCheck,omitempty"`
}

// FileMigrate mirrors config.Migration in boot file form.
type FileMigrate struct {
	Mode    string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Command []string `json:"command,omitempty" yaml:"command,omitempty"`
	Path    string   `json:"path,omitempty" yaml:"path,omitempty"`
	DSN     string   `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// FileServer declares the final server argvs and bind address.
type FileServer struct {
	Dev  []string `json:"dev,omitempty" yaml:"dev,omitempty"`
	Prod []string `json:"prod,omitempty" yaml:"prod,omitempty"`
	Bind string   `json:"bind,omitempty" yaml:"bind,omitempty"`
}

// FindFile probes the default boot file names in dir and returns the path
// of the first one that exists, or "" when none is present. A missing boot
// file is not an error — the env-derived defaults are a complete
// configuration on their own.
func FindFile(dir string) string {
	for _, name := range defaultFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadFile reads and parses a boot file. The format is chosen by file
// extension. Returns a BootError with ExitUsage for unreadable or
// malformed files, because a misspelled boot file must fail the container
// start loudly rather than silently boot with defaults.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapBootError(model.ExitUsage,
				fmt.Sprintf("boot file not found: %s", path), err)
		}
		return nil, model.WrapBootError(model.ExitUsage,
			fmt.Sprintf("failed to read boot file %s", path), err)
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, model.WrapBootError(model.ExitUsage,
				fmt.Sprintf("failed to parse boot file %s", path), err)
		}

	case ".json", ".jsonc":
		// Strip JSONC comments and trailing commas before handing the bytes
		// to encoding/json. Hand-edited deployment files accumulate comments.
		clean := jsonc.ToJSON(data)
		if err := json.Unmarshal(clean, &f); err != nil {
			return nil, model.WrapBootError(model.ExitUsage,
				fmt.Sprintf("failed to parse boot file %s", path), err)
		}

	default:
		return nil, model.NewBootError(model.ExitUsage,
			fmt.Sprintf("unsupported boot file extension %q (valid: .yaml, .yml, .json, .jsonc)", filepath.Ext(path)))
	}

	return &f, nil
}

// Apply merges the boot file into cfg. Only fields the file declares are
// overridden; everything else keeps its env-derived value.
func (f *File) Apply(cfg *Config) error {
	if f.Attempts != nil {
		cfg.Attempts = *f.Attempts
	}
	if f.Interval != "" {
		d, err := parseInterval(f.Interval)
		if err != nil {
			return model.WrapBootError(model.ExitUsage,
				fmt.Sprintf("invalid interval %q in boot file", f.Interval), err)
		}
		cfg.Interval = d
	}
	if f.Dependencies != nil {
		cfg.Dependencies = f.Dependencies
	}
	if len(f.Steps) > 0 {
		cfg.Steps = append(cfg.Steps, f.Steps...)
	}
	if f.Migrate != nil {
		if f.Migrate.Mode != "" {
			cfg.Migration.Mode = MigrationMode(strings.ToLower(f.Migrate.Mode))
		}
		if len(f.Migrate.Command) > 0 {
			cfg.Migration.Command = f.Migrate.Command
		}
		if f.Migrate.Path != "" {
			cfg.Migration.Path = f.Migrate.Path
		}
		if f.Migrate.DSN != "" {
			cfg.Migration.DSN = f.Migrate.DSN
		}
	}
	if f.Server != nil {
		if len(f.Server.Dev) > 0 {
			cfg.DevCommand = f.Server.Dev
		}
		if len(f.Server.Prod) > 0 {
			cfg.ProdCommand = f.Server.Prod
		}
		if f.Server.Bind != "" {
			cfg.Bind = f.Server.Bind
		}
	}
	if f.SelfCheck != "" {
		cfg.SelfCheck = f.SelfCheck
	}
	return nil
}

// parseInterval accepts Go duration syntax or bare seconds, the same
// grammar as the BOOT_INTERVAL environment variable.
func parseInterval(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("interval must be positive")
		}
		return d, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("expected a duration like \"1s\" or a positive number of seconds")
	}
	return time.Duration(n) * time.Second, nil
}

// Load resolves the full configuration: env defaults, then the boot file
// (explicit path, or discovery in the working directory when path is "").
func Load(path string) (*Config, error) {
	cfg := FromEnv()

	if path == "" {
		path = FindFile(".")
	}
	if path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := f.Apply(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, model.WrapBootError(model.ExitUsage, "invalid boot configuration", err)
	}
	return cfg, nil
}
