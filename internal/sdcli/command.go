package sdcli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command is a CLI subcommand with unified flag parsing and help
// generation, adapted from the ticket CLI's command shape to this
// engine's fsck/put/get/rm/ls/browse commands.
type Command struct {
	// Flags holds command-specific flags. May be nil for a command that
	// takes only positional arguments.
	Flags *flag.FlagSet

	// Usage is the freeform usage string, its first word the command name.
	Usage string

	// Short is a one-line description shown in the top-level command list.
	Short string

	// Exec runs the command body after flags are parsed.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name, the first word of Usage.
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// HelpLine returns one line for the top-level command listing.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-28s %s", c.Usage, c.Short)
}

// PrintHelp prints full help for one command.
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: sdstoragectl", c.Usage)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder

		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses args against the command's flags and executes it, returning
// a process exit code.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	rest := args

	if c.Flags != nil {
		c.Flags.SetOutput(&strings.Builder{})

		if err := c.Flags.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				c.PrintHelp(o)

				return 0
			}

			o.ErrPrintln("error:", err)

			return 1
		}

		rest = c.Flags.Args()
	}

	if err := c.Exec(ctx, o, rest); err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return 0
}
