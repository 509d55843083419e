package command

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/knadh/koanf/maps"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/regdesk-go/internal/cli/config"
	"github.com/yndnr/regdesk-go/internal/cli/output"
	"github.com/yndnr/regdesk-go/internal/infra/confloader"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration (secrets masked)",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Show the config file path",
				Action: configPath,
			},
			{
				Name:  "init",
				Usage: "Write a config file with the effective settings",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: configInit,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	env, err := GetEnv(c)
	if err != nil {
		return err
	}

	settings := env.Config.Redacted().ToMap()
	if !env.Table() {
		return env.Print(settings)
	}

	flat, _ := maps.Flatten(settings, nil, ".")
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := &output.Table{}
	table.SetHeaders("KEY", "VALUE", "SOURCE")
	for _, k := range keys {
		v := fmt.Sprint(flat[k])
		if v == "" {
			v = "-"
		}
		src := env.Sources[k]
		if src == "" {
			src = confloader.SourceDefault
		}
		table.AddRow(k, v, string(src))
	}
	return table.Render(env.Out)
}

func configPath(c *cli.Context) error {
	env, err := GetEnv(c)
	if err != nil {
		return err
	}

	state := "exists"
	if _, err := os.Stat(env.ConfigPath); errors.Is(err, fs.ErrNotExist) {
		state = "not found, using defaults"
	} else if err != nil {
		state = err.Error()
	}
	fmt.Fprintf(env.Out, "%s (%s)\n", env.ConfigPath, state)
	return nil
}

func configInit(c *cli.Context) error {
	env, err := GetEnv(c)
	if err != nil {
		return err
	}

	if _, err := os.Stat(env.ConfigPath); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", env.ConfigPath)
	}
	if err := config.Save(env.Config, env.ConfigPath); err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "Wrote %s\n", env.ConfigPath)
	return nil
}
