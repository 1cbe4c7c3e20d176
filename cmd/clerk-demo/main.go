// clerk-demo exercises the SDK against a real Clerk instance: sign in, mint
// tokens, switch sessions and organizations, and watch state updates arrive.
//
// Configuration comes from a clerk-demo.yaml file in the working directory
// (or -config), with CLERK_PUBLISHABLE_KEY as a fallback for the key.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Command represents one CLI subcommand.
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
}

func main() {
	commands := []*Command{
		newStatusCommand(),
		newSignInCommand(),
		newTokenCommand(),
		newSetActiveCommand(),
		newSignOutCommand(),
		newWatchCommand(),
		newVerifyCommand(),
	}

	args := os.Args[1:]
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(commands)
		return
	}

	for _, cmd := range commands {
		if cmd.Name == args[0] {
			if err := cmd.Run(args[1:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
	usage(commands)
	os.Exit(1)
}

func usage(commands []*Command) {
	fmt.Printf("Usage: clerk-demo <command> [flags]\n\n")
	fmt.Printf("Commands:\n")
	for _, cmd := range commands {
		fmt.Printf("  %-12s %s\n", cmd.Name, cmd.Description)
	}
	fmt.Printf("\nRun 'clerk-demo <command> -h' for command flags.\n")
}

// newCLILogger builds the human-facing logger. SDK logs stay structured JSON
// on stderr; this one is for the demo's own progress output.
func newCLILogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if parsed, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(parsed)
	}
	return log
}
