package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/kartiknair/kale/pkg/config"
	"github.com/kartiknair/kale/pkg/driver"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "kale",
		Usage: "a Kaleidoscope read-eval-print loop",
		ExitErrHandler: func(c *cli.Context, err error) {
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		},
		Action: func(c *cli.Context) error {
			return run()
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("kale: loading .kalerc.yaml: %w", err)
	}

	if _, err := exec.LookPath(cfg.LLIPath); err != nil {
		return fmt.Errorf("kale: could not find %q on $PATH: %w", cfg.LLIPath, err)
	}

	ctx := driver.New(os.Stdin, cfg)
	return ctx.Run()
}
