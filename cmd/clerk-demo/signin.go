package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/platinummonkey/clerk-fapi-go/pkg/api"
	"github.com/platinummonkey/clerk-fapi-go/pkg/fapi"
)

func newSignInCommand() *Command {
	flags := flag.NewFlagSet("sign-in", flag.ExitOnError)
	configPath := flags.String("config", "", "Path to a clerk-demo.yaml config file")
	identifier := flags.String("identifier", "", "Email address or username")
	password := flags.String("password", "", "Password (uses the password strategy)")
	strategy := flags.String("strategy", "", "First factor strategy: password or email_code (default: password when -password is set, email_code otherwise)")

	return &Command{
		Name:        "sign-in",
		Description: "Sign in and establish a session on this client",
		Run: func(args []string) error {
			if err := flags.Parse(args); err != nil {
				return err
			}
			if *identifier == "" {
				return fmt.Errorf("-identifier is required")
			}
			chosen := *strategy
			if chosen == "" {
				chosen = "email_code"
				if *password != "" {
					chosen = "password"
				}
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

			var signIn *api.SignIn
			switch chosen {
			case "password":
				if *password == "" {
					return fmt.Errorf("-password is required for the password strategy")
				}
				signIn, err = app.clerk.API().CreateSignIn(ctx, fapi.SignInCreateParams{
					Strategy:   "password",
					Identifier: *identifier,
					Password:   *password,
				})
			case "email_code":
				signIn, err = signInWithEmailCode(ctx, app, *identifier)
			default:
				return fmt.Errorf("unknown strategy %q", chosen)
			}
			if err != nil {
				return err
			}

			signIn, err = completeSecondFactor(ctx, app, signIn)
			if err != nil {
				return err
			}
			if !signIn.IsComplete() {
				return fmt.Errorf("sign-in did not complete, status %s", signIn.Status)
			}

			fmt.Printf("Signed in: session %s\n", signIn.CreatedSessionID)
			if user, err := app.clerk.User(); err == nil && user != nil {
				fmt.Printf("User: %s %s (%s)\n", user.FirstName, user.LastName, user.ID)
			}
			return nil
		},
	}
}

func signInWithEmailCode(ctx context.Context, a *app, identifier string) (*api.SignIn, error) {
	signIn, err := a.clerk.API().CreateSignIn(ctx, fapi.SignInCreateParams{Identifier: identifier})
	if err != nil {
		return nil, err
	}

	var emailAddressID string
	for _, factor := range signIn.SupportedFirstFactors {
		if factor.Strategy == "email_code" {
			emailAddressID = factor.EmailAddressID
			break
		}
	}
	if emailAddressID == "" {
		return nil, fmt.Errorf("this account does not support the email_code strategy")
	}

	signIn, err = a.clerk.API().PrepareSignInFirstFactor(ctx, signIn.ID, fapi.SignInFactorParams{
		Strategy:       "email_code",
		EmailAddressID: emailAddressID,
	})
	if err != nil {
		return nil, err
	}

	code, err := prompt("Enter the code sent to your email: ")
	if err != nil {
		return nil, err
	}
	return a.clerk.API().AttemptSignInFirstFactor(ctx, signIn.ID, fapi.SignInFactorParams{
		Strategy: "email_code",
		Code:     code,
	})
}

// completeSecondFactor walks a needs_second_factor attempt through TOTP or
// phone code verification. Attempts in any other state pass through.
func completeSecondFactor(ctx context.Context, a *app, signIn *api.SignIn) (*api.SignIn, error) {
	if signIn.Status != api.SignInStatusNeedsSecondFactor {
		return signIn, nil
	}

	supported := map[string]api.SignInFactor{}
	for _, factor := range signIn.SupportedSecondFactors {
		supported[factor.Strategy] = factor
	}

	if _, ok := supported["totp"]; ok {
		code, err := prompt("Enter your authenticator code: ")
		if err != nil {
			return nil, err
		}
		return a.clerk.API().AttemptSignInSecondFactor(ctx, signIn.ID, fapi.SignInFactorParams{
			Strategy: "totp",
			Code:     code,
		})
	}

	if factor, ok := supported["phone_code"]; ok {
		signIn, err := a.clerk.API().PrepareSignInSecondFactor(ctx, signIn.ID, fapi.SignInFactorParams{
			Strategy:      "phone_code",
			PhoneNumberID: factor.PhoneNumberID,
		})
		if err != nil {
			return nil, err
		}
		code, err := prompt("Enter the code sent to your phone: ")
		if err != nil {
			return nil, err
		}
		return a.clerk.API().AttemptSignInSecondFactor(ctx, signIn.ID, fapi.SignInFactorParams{
			Strategy: "phone_code",
			Code:     code,
		})
	}

	return nil, fmt.Errorf("no supported second factor: have %v", signIn.SupportedSecondFactors)
}

func prompt(message string) (string, error) {
	fmt.Print(message)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
