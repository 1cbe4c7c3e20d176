package main

import (
	"flag"
	"fmt"

	"github.com/platinummonkey/clerk-fapi-go/pkg/clerk"
)

func newSetActiveCommand() *Command {
	flags := flag.NewFlagSet("set-active", flag.ExitOnError)
	configPath := flags.String("config", "", "Path to a clerk-demo.yaml config file")
	sessionID := flags.String("session", "", "Session ID to activate (default: current)")
	organization := flags.String("org", "", "Organization ID or slug to activate")

	return &Command{
		Name:        "set-active",
		Description: "Switch the active session and/or organization",
		Run: func(args []string) error {
			if err := flags.Parse(args); err != nil {
				return err
			}
			if *sessionID == "" && *organization == "" {
				return fmt.Errorf("nothing to do: pass -session and/or -org")
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

			if err := app.clerk.SetActive(ctx, clerk.SetActiveParams{
				SessionID:    *sessionID,
				Organization: *organization,
			}); err != nil {
				return err
			}

			session, err := app.clerk.Session()
			if err != nil {
				return err
			}
			fmt.Printf("Active session: %s\n", session.ID)
			if org, err := app.clerk.Organization(); err == nil && org != nil {
				fmt.Printf("Active organization: %s (%s)\n", org.Name, org.ID)
			}
			return nil
		},
	}
}

func newSignOutCommand() *Command {
	flags := flag.NewFlagSet("sign-out", flag.ExitOnError)
	configPath := flags.String("config", "", "Path to a clerk-demo.yaml config file")
	sessionID := flags.String("session", "", "Session ID to sign out (default: all sessions)")

	return &Command{
		Name:        "sign-out",
		Description: "Sign out one session, or every session on this client",
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

			if err := app.clerk.SignOut(ctx, *sessionID); err != nil {
				return err
			}
			if *sessionID == "" {
				fmt.Println("Signed out of all sessions")
			} else {
				fmt.Printf("Signed out of %s\n", *sessionID)
			}
			return nil
		},
	}
}
