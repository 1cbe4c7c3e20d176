package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/platinummonkey/clerk-fapi-go/pkg/clerk"
	"github.com/platinummonkey/clerk-fapi-go/pkg/sessiontoken"
)

func newTokenCommand() *Command {
	flags := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := flags.String("config", "", "Path to a clerk-demo.yaml config file")
	template := flags.String("template", "", "JWT template name, e.g. supabase")
	organization := flags.String("org", "", "Organization ID to scope the token to")
	decode := flags.Bool("decode", false, "Print the token's claims instead of the raw JWT")

	return &Command{
		Name:        "token",
		Description: "Mint a session token for the active session",
		Run: func(args []string) error {
			if err := flags.Parse(args); err != nil {
				return err
			}

			app, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer app.close()

			ctx, cancel := signalContext()
			defer cancel()
			if err := app.load(ctx, true); err != nil {
				return err
			}

			token, err := app.clerk.GetToken(ctx, clerk.GetTokenParams{
				Template:       *template,
				OrganizationID: *organization,
			})
			if err != nil {
				return err
			}
			if token == nil {
				return fmt.Errorf("no active session: sign in first")
			}

			if !*decode {
				fmt.Println(token.JWT)
				return nil
			}

			claims, err := sessiontoken.Parse(token.JWT)
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(claims)
		},
	}
}
