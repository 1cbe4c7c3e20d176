package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/platinummonkey/clerk-fapi-go/pkg/verify"
)

func newVerifyCommand() *Command {
	flags := flag.NewFlagSet("verify", flag.ExitOnError)
	configPath := flags.String("config", "", "Path to a clerk-demo.yaml config file")
	token := flags.String("token", "", "Session JWT to verify (default: read from stdin)")

	return &Command{
		Name:        "verify",
		Description: "Verify a session JWT against the instance's JWKS",
		Run: func(args []string) error {
			if err := flags.Parse(args); err != nil {
				return err
			}

			raw := *token
			if raw == "" {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("failed to read token from stdin: %w", err)
				}
				raw = strings.TrimSpace(string(data))
			}
			if raw == "" {
				return fmt.Errorf("no token: pass -token or pipe one on stdin")
			}

			app, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer app.close()

			ctx, cancel := signalContext()
			defer cancel()

			verifier, err := verify.New(ctx, app.sdkCfg,
				verify.WithLogger(app.logger),
				verify.WithMetrics(app.metrics),
			)
			if err != nil {
				return err
			}

			claims, err := verifier.Verify(ctx, raw)
			if err != nil {
				return err
			}

			fmt.Printf("Token is valid\n")
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(claims)
		},
	}
}
