package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/regdesk-go/internal/client/uniqcheck"
	"github.com/yndnr/regdesk-go/internal/core/domain"
)

// CheckCommand returns the check subcommand group.
func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Check whether a student is already registered",
		Subcommands: []*cli.Command{
			{
				Name:      "id",
				Usage:     "Check an ID number",
				ArgsUsage: "ID_NUMBER",
				Action:    checkID,
			},
			{
				Name:  "name",
				Usage: "Check a full name",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "first", Usage: "First name", Required: true},
					&cli.StringFlag{Name: "middle", Usage: "Middle name"},
					&cli.StringFlag{Name: "last", Usage: "Last name", Required: true},
				},
				Action: checkName,
			},
		},
	}
}

type checkView struct {
	Field   domain.FieldKind `json:"field"`
	Value   string           `json:"value"`
	Exists  bool             `json:"exists"`
	Message string           `json:"message,omitempty"`
}

func checkID(c *cli.Context) error {
	id := domain.NormalizeIDNumber(c.Args().First())
	if id == "" {
		return domain.ErrInvalidArgument.WithDetails("ID number required")
	}

	env, err := GetEnv(c)
	if err != nil {
		return err
	}
	if !uniqcheck.MinLength(env.Config.Check.MinIDLength)(id) {
		return domain.ErrInvalidArgument.WithDetails(
			fmt.Sprintf("ID number must have at least %d characters", env.Config.Check.MinIDLength))
	}

	ctx := commandContext(c)
	api, err := env.API(ctx)
	if err != nil {
		return err
	}
	exists, err := api.CheckIDNumber(ctx, id)
	if err != nil {
		return err
	}

	view := checkView{Field: domain.FieldIDNumber, Value: id, Exists: exists}
	if exists {
		view.Message = uniqcheck.MsgIDNumberExists
	}
	return printCheck(env, view)
}

func checkName(c *cli.Context) error {
	name := domain.NameParts{
		First:  c.String("first"),
		Middle: c.String("middle"),
		Last:   c.String("last"),
	}.Normalize()
	if !uniqcheck.NameComplete(name) {
		return domain.ErrInvalidArgument.WithDetails("first and last name required")
	}

	env, err := GetEnv(c)
	if err != nil {
		return err
	}
	ctx := commandContext(c)
	api, err := env.API(ctx)
	if err != nil {
		return err
	}
	exists, err := api.CheckName(ctx, name)
	if err != nil {
		return err
	}

	view := checkView{Field: domain.FieldFullName, Value: name.String(), Exists: exists}
	if exists {
		view.Message = uniqcheck.MsgFullNameExists
	}
	return printCheck(env, view)
}

func printCheck(env *Env, view checkView) error {
	if !env.Table() {
		return env.Print(view)
	}
	if view.Exists {
		fmt.Fprintln(env.Out, view.Message)
	} else {
		fmt.Fprintf(env.Out, "%s is available\n", view.Value)
	}
	return nil
}
