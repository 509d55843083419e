package command

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/regdesk-go/internal/core/domain"
)

// SessionCommand returns the session subcommand group.
func SessionCommand() *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"sess"},
		Usage:   "Inspect the stored session",
		Subcommands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Validate the session with the backend (refreshing it if needed)",
				Action: sessionStatus,
			},
			{
				Name:   "show",
				Usage:  "Show the stored session without contacting the backend",
				Action: sessionShow,
			},
		},
	}
}

type sessionStatusView struct {
	Status   string `json:"status"`
	IDNumber string `json:"id_number,omitempty"`
	Role     string `json:"role,omitempty"`
}

func sessionStatus(c *cli.Context) error {
	env, err := GetEnv(c)
	if err != nil {
		return err
	}
	ctx := commandContext(c)
	api, err := env.API(ctx)
	if err != nil {
		return err
	}

	if err := api.Guard().EnsureValidSession(ctx); err != nil {
		return sessionError(err)
	}

	view := sessionStatusView{Status: "valid"}
	if session, err := api.Session(ctx); err == nil {
		view.IDNumber = session.Subject.IDNumber
		view.Role = session.Subject.Role
	}

	if env.Table() {
		if view.IDNumber != "" {
			fmt.Fprintf(env.Out, "Session valid for %s\n", view.IDNumber)
		} else {
			fmt.Fprintln(env.Out, "Session valid")
		}
		return nil
	}
	return env.Print(view)
}

func sessionShow(c *cli.Context) error {
	env, err := GetEnv(c)
	if err != nil {
		return err
	}
	ctx := commandContext(c)
	api, err := env.API(ctx)
	if err != nil {
		return err
	}

	session, err := api.Session(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSessionAbsent) {
			return errors.New("not logged in")
		}
		return err
	}
	return env.Print(session.Redacted())
}
