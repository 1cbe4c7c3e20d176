package main

import (
	"flag"
	"fmt"
)

func newStatusCommand() *Command {
	flags := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := flags.String("config", "", "Path to a clerk-demo.yaml config file")
	preferCache := flags.Bool("prefer-cache", false, "Serve environment and client from the store when cached")

	return &Command{
		Name:        "status",
		Description: "Load state and print the instance, session, and organization",
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
			if err := app.load(ctx, *preferCache); err != nil {
				return err
			}

			environment, err := app.clerk.Environment()
			if err != nil {
				return err
			}
			client, err := app.clerk.Client()
			if err != nil {
				return err
			}

			fmt.Printf("Application:  %s (%s)\n",
				environment.DisplayConfig.ApplicationName,
				environment.DisplayConfig.InstanceEnvironmentType)
			fmt.Printf("Client:       %s (%d sessions)\n", client.ID, len(client.Sessions))

			session, err := app.clerk.Session()
			if err != nil {
				return err
			}
			if session == nil {
				fmt.Printf("Session:      none (signed out)\n")
				return nil
			}
			fmt.Printf("Session:      %s (%s)\n", session.ID, session.Status)

			if user, err := app.clerk.User(); err == nil && user != nil {
				fmt.Printf("User:         %s %s (%s)\n", user.FirstName, user.LastName, user.ID)
			}
			if org, err := app.clerk.Organization(); err == nil {
				if org != nil {
					fmt.Printf("Organization: %s (%s)\n", org.Name, org.ID)
				} else {
					fmt.Printf("Organization: personal workspace\n")
				}
			}
			return nil
		},
	}
}
