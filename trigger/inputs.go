package trigger

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where a repository can keep trigger defaults.
const DefaultConfigPath = ".conveyor/trigger.yml"

// Inputs is the full parameter set of a trigger run, merged from
// flags, GitHub Actions inputs and the repo-local config file, in
// that order of precedence.
type Inputs struct {
	APIURL     string
	Token      string
	AppSlug    string
	ConfigPath string

	// RepoDir is the checkout used when no CI event is around.
	RepoDir string

	Overrides    Overrides
	TriggerPaths []string
	DryRun       bool
}

// Config is the repo-local trigger configuration. A token never lives
// here; TokenEnv names the variable that carries it instead.
type Config struct {
	APIURL              string   `yaml:"api_url"`
	App                 string   `yaml:"app"`
	TokenEnv            string   `yaml:"token_env"`
	Workflow            string   `yaml:"workflow"`
	Pipeline            string   `yaml:"pipeline"`
	ForwardEnv          []string `yaml:"forward_env"`
	TriggerPaths        []string `yaml:"trigger_paths"`
	SkipGitStatusReport bool     `yaml:"skip_git_status_report"`
}

// LoadConfig reads and parses a trigger config file.
func LoadConfig(path string) (*Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}
	return cfg, nil
}

// Load fills the unset fields from the GitHub Actions input
// environment, then from the config file, then from defaults. Values
// already present (flags) stay.
func (in *Inputs) Load() error {
	in.fromAction()

	path := in.ConfigPath
	if path == "" {
		if _, err := os.Stat(DefaultConfigPath); err == nil {
			path = DefaultConfigPath
		}
	}
	if path != "" {
		cfg, err := LoadConfig(path)
		if err != nil {
			return err
		}
		in.fromConfig(cfg)
	}

	if in.APIURL == "" {
		in.APIURL = DefaultAPIURL
	}
	return nil
}

func (in *Inputs) fromAction() {
	setIfEmpty(&in.APIURL, ActionInput("api_url"))
	setIfEmpty(&in.Token, ActionInput("api_token"))
	setIfEmpty(&in.AppSlug, ActionInput("app_slug"))
	setIfEmpty(&in.ConfigPath, ActionInput("config"))
	setIfEmpty(&in.Overrides.Ref, ActionInput("branch"))
	setIfEmpty(&in.Overrides.Commit, ActionInput("commit"))
	setIfEmpty(&in.Overrides.Workflow, ActionInput("workflow"))
	setIfEmpty(&in.Overrides.Pipeline, ActionInput("pipeline"))
	if !in.Overrides.Listen {
		in.Overrides.Listen = actionBool("listen")
	}
	if !in.Overrides.SkipGitStatusReport {
		in.Overrides.SkipGitStatusReport = actionBool("skip_git_status_report")
	}
	if len(in.Overrides.ForwardEnv) == 0 {
		in.Overrides.ForwardEnv = SplitList(ActionInput("forward_env"))
	}
	if len(in.TriggerPaths) == 0 {
		in.TriggerPaths = SplitList(ActionInput("trigger_paths"))
	}
	if !in.DryRun {
		in.DryRun = actionBool("dry_run")
	}
}

func (in *Inputs) fromConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	setIfEmpty(&in.APIURL, cfg.APIURL)
	setIfEmpty(&in.AppSlug, cfg.App)
	if in.Token == "" && cfg.TokenEnv != "" {
		in.Token = os.Getenv(cfg.TokenEnv)
	}
	setIfEmpty(&in.Overrides.Workflow, cfg.Workflow)
	setIfEmpty(&in.Overrides.Pipeline, cfg.Pipeline)
	if len(in.Overrides.ForwardEnv) == 0 {
		in.Overrides.ForwardEnv = cfg.ForwardEnv
	}
	if len(in.TriggerPaths) == 0 {
		in.TriggerPaths = cfg.TriggerPaths
	}
	if !in.Overrides.SkipGitStatusReport {
		in.Overrides.SkipGitStatusReport = cfg.SkipGitStatusReport
	}
}

// ActionInput returns the value GitHub Actions passes for an input:
// inputs arrive as INPUT_* variables with the name upper-snake-cased.
func ActionInput(name string) string {
	return strings.TrimSpace(os.Getenv("INPUT_" + strcase.ToScreamingSnake(name)))
}

func actionBool(name string) bool {
	v, err := strconv.ParseBool(ActionInput(name))
	return err == nil && v
}

// SplitList splits a comma or newline separated input into its
// entries, dropping blanks.
func SplitList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	var out []string
	for _, field := range fields {
		if field = strings.TrimSpace(field); field != "" {
			out = append(out, field)
		}
	}
	return out
}

func setIfEmpty(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}
