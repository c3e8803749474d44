package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/repairdesk/internal/common"
)

// command is one REPL verb.
type command struct {
	name  string
	usage string
	help  string
	// auth commands need a signed-in user.
	auth bool
	run  func(ctx context.Context, args []string) error
}

// runREPL reads a line, dispatches on its first token and prints handler
// errors in a user-facing form. It returns on EOF, on "exit"/"quit" or when
// ctx is done.
func runREPL(ctx context.Context, cmds []command, loggedIn func() bool, statusFn func() string, in *bufio.Reader, w io.Writer) {
	byName := make(map[string]command, len(cmds))
	for _, c := range cmds {
		byName[c.name] = c
	}

	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(w, "repairdesk %s> ", statusFn())
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		switch name {
		case "help":
			printHelp(w, cmds, loggedIn())
			continue
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		}

		c, ok := byName[name]
		if !ok {
			fmt.Fprintln(w, "Unknown command:", name)
			continue
		}
		if c.auth && !loggedIn() {
			fmt.Fprintln(w, "Please login first.")
			continue
		}
		if err := c.run(ctx, args); err != nil {
			fmt.Fprintln(w, "Error:", userMessage(err))
		}
	}
}

func printHelp(w io.Writer, cmds []command, loggedIn bool) {
	fmt.Fprintln(w, "Available commands:")
	for _, c := range cmds {
		if c.auth && !loggedIn {
			continue
		}
		fmt.Fprintf(w, "  %-28s %s\n", c.usage, c.help)
	}
	fmt.Fprintf(w, "  %-28s %s\n", "exit", "leave the program")
}

type usageError string

func (e usageError) Error() string { return "usage: " + string(e) }

func userMessage(err error) string {
	var ue usageError
	var de *common.DuplicateEntityError
	switch {
	case errors.As(err, &ue):
		return ue.Error()
	case errors.As(err, &de):
		return de.Error()
	case errors.Is(err, common.ErrNotFound):
		return "not found"
	case errors.Is(err, common.ErrUnauthorized):
		return "not allowed"
	case errors.Is(err, common.ErrOrganizationNotConfigured):
		return "this device is not set up yet"
	case errors.Is(err, common.ErrRestoreAuthFailure):
		return "invalid credentials or organization data missing in the cloud"
	case errors.Is(err, common.ErrConnectivityUnavailable):
		return "offline, try again when connected"
	case errors.Is(err, common.ErrPushInProgress):
		return "a push is already running"
	default:
		return err.Error()
	}
}
