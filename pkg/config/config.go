// Package config loads the small, optional settings surface this
// module exposes outside of the language itself: the REPL prompt, the
// path to the external lli interpreter used for JIT materialization,
// whether to dump IR before running it, and whether the per-function
// optimization hook runs at all.
package config

import (
	"io/ioutil"
	"os"

	"gopkg.in/yaml.v2"
)

// Config is never read from a CLI flag — §6 of this module's
// specification fixes the CLI's flag surface at none — so it is the
// only way to change driver behavior short of editing the source.
type Config struct {
	Prompt   string `yaml:"prompt"`
	LLIPath  string `yaml:"lli_path"`
	EmitIR   bool   `yaml:"emit_ir"`
	Optimize bool   `yaml:"optimize"`
}

// Default returns the configuration a REPL session starts with before
// any file or environment override is applied.
func Default() *Config {
	return &Config{
		Prompt:   "k> ",
		LLIPath:  "lli",
		EmitIR:   false,
		Optimize: true,
	}
}

// fileName is the conventional name Load looks for in the current
// working directory.
const fileName = ".kalerc.yaml"

// Load builds a Config by starting from Default, overlaying
// .kalerc.yaml if one exists in the working directory, then overlaying
// the KALE_PROMPT / KALE_LLI / KALE_NO_OPT environment variables.
// A missing config file is not an error.
func Load() (*Config, error) {
	cfg := Default()

	raw, err := ioutil.ReadFile(fileName)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}

	if prompt := os.Getenv("KALE_PROMPT"); prompt != "" {
		cfg.Prompt = prompt
	}
	if lli := os.Getenv("KALE_LLI"); lli != "" {
		cfg.LLIPath = lli
	}
	if os.Getenv("KALE_NO_OPT") != "" {
		cfg.Optimize = false
	}

	return cfg, nil
}
