package command

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/regdesk-go/internal/client/transport"
	"github.com/yndnr/regdesk-go/internal/core/domain"
)

// CallCommand returns the call command.
func CallCommand() *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "Send an authenticated request (the session is validated first)",
		ArgsUsage: "METHOD PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "JSON request body; @FILE reads it from a file",
			},
			&cli.StringSliceFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Query parameter as KEY=VALUE (repeatable)",
			},
		},
		Action: call,
	}
}

func call(c *cli.Context) error {
	if c.NArg() != 2 {
		return domain.ErrInvalidArgument.WithDetails("usage: call METHOD PATH")
	}
	method := strings.ToUpper(c.Args().Get(0))
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("unsupported method %q", method))
	}
	path := c.Args().Get(1)

	body, err := parseData(c.String("data"))
	if err != nil {
		return err
	}
	query, err := parseQuery(c.StringSlice("query"))
	if err != nil {
		return err
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

	var opts []transport.CallOption
	if len(query) > 0 {
		opts = append(opts, transport.WithQuery(query))
	}

	var resp *transport.Response
	err = env.withSpinner(method+" "+path, func() error {
		var err error
		// A nil RawMessage stored in an interface would be sent as "null".
		if body != nil {
			resp, err = api.Do(ctx, method, path, body, opts...)
		} else {
			resp, err = api.Do(ctx, method, path, nil, opts...)
		}
		return err
	})
	if err != nil {
		return sessionError(err)
	}
	if len(resp.Body) == 0 {
		fmt.Fprintf(env.Out, "%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
		return nil
	}
	return env.Print(resp.Body)
}

// parseData returns nil for an empty flag.
func parseData(data string) (json.RawMessage, error) {
	if data == "" {
		return nil, nil
	}
	raw := []byte(data)
	if strings.HasPrefix(data, "@") {
		b, err := os.ReadFile(strings.TrimPrefix(data, "@"))
		if err != nil {
			return nil, domain.ErrInvalidArgument.WithDetails("read --data file").WithCause(err)
		}
		raw = b
	}
	if !json.Valid(raw) {
		return nil, domain.ErrInvalidArgument.WithDetails("--data is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

func parseQuery(pairs []string) (url.Values, error) {
	q := url.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("query %q must be KEY=VALUE", p))
		}
		q.Add(k, v)
	}
	return q, nil
}
