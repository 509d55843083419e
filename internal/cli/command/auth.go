package command

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/regdesk-go/internal/core/domain"
)

// LoginCommand returns the login command.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in and store the session token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "id-number",
				Aliases:  []string{"u"},
				Usage:    "School ID number",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Password (prefer --password-stdin)",
				EnvVars: []string{"REGDESK_PASSWORD"},
			},
			&cli.BoolFlag{
				Name:  "password-stdin",
				Usage: "Read the password from the first line of stdin",
			},
		},
		Action: login,
	}
}

func login(c *cli.Context) error {
	env, err := GetEnv(c)
	if err != nil {
		return err
	}

	password := c.String("password")
	if c.Bool("password-stdin") {
		line, err := bufio.NewReader(env.In).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password from stdin: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return domain.ErrInvalidArgument.WithDetails("password required (--password or --password-stdin)")
	}

	ctx := commandContext(c)
	api, err := env.API(ctx)
	if err != nil {
		return err
	}

	var session domain.Session
	err = env.withSpinner("Logging in", func() error {
		var err error
		session, err = api.Login(ctx, c.String("id-number"), password)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrLoginFailed) {
			var de *domain.DomainError
			if errors.As(err, &de) && de.Details != "" {
				return fmt.Errorf("login failed: %s", de.Details)
			}
			return errors.New("login failed")
		}
		return err
	}

	if env.Table() {
		who := session.Subject.IDNumber
		if who == "" {
			who = c.String("id-number")
		}
		if session.Subject.Role != "" {
			fmt.Fprintf(env.Out, "Logged in as %s (%s)\n", who, session.Subject.Role)
		} else {
			fmt.Fprintf(env.Out, "Logged in as %s\n", who)
		}
		return nil
	}
	return env.Print(session.Redacted())
}

// LogoutCommand returns the logout command.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "End the session and clear the stored token",
		Action: logout,
	}
}

func logout(c *cli.Context) error {
	env, err := GetEnv(c)
	if err != nil {
		return err
	}
	ctx := commandContext(c)
	api, err := env.API(ctx)
	if err != nil {
		return err
	}
	if err := api.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(env.Out, "Logged out")
	return nil
}

// WhoamiCommand returns the whoami command.
func WhoamiCommand() *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "Show the account behind the session (validated)",
		Action: whoami,
	}
}

func whoami(c *cli.Context) error {
	env, err := GetEnv(c)
	if err != nil {
		return err
	}
	ctx := commandContext(c)
	api, err := env.API(ctx)
	if err != nil {
		return err
	}
	subject, err := api.Me(ctx)
	if err != nil {
		return sessionError(err)
	}
	return env.Print(subject)
}
