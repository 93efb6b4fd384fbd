package sdcli

import (
	"context"
	"os"
	"strings"
	"time"
)

// Run dispatches args[0] to the matching command in commands, running it in
// a goroutine so a signal on sigCh can cancel its context with a bounded
// grace period before forcing exit. sigCh may be nil (e.g. in tests).
func Run(out, errOut *IO, args []string, commands []*Command, sigCh <-chan os.Signal) int {
	commandMap := make(map[string]*Command, len(commands))
	for _, c := range commands {
		commandMap[c.Name()] = c
	}

	if len(args) == 0 {
		printUsage(out, commands)

		return 1
	}

	if args[0] == "-h" || args[0] == "--help" {
		printUsage(out, commands)

		return 0
	}

	cmd, ok := commandMap[args[0]]
	if !ok {
		errOut.ErrPrintln("error: unknown command:", args[0])
		printUsage(errOut, commands)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan int, 1)

	go func() {
		done <- cmd.Run(ctx, out, args[1:])
	}()

	select {
	case code := <-done:
		return code
	case <-sigCh:
		errOut.ErrPrintln("shutting down with 5s timeout...")
		cancel()
	}

	select {
	case <-done:
		errOut.ErrPrintln("graceful shutdown ok (130)")

		return 130
	case <-time.After(5 * time.Second):
		errOut.ErrPrintln("graceful shutdown timed out, forced exit (130)")

		return 130
	case <-sigCh:
		errOut.ErrPrintln("graceful shutdown interrupted, forced exit (130)")

		return 130
	}
}

func printUsage(o *IO, commands []*Command) {
	o.Println("sdstoragectl - inspect and operate on an sdstorage root")
	o.Println()
	o.Println("Usage: sdstoragectl [-C dir] [-c config] <command> [args]")
	o.Println()
	o.Println("Commands:")

	for _, c := range commands {
		o.Println(strings.TrimRight(c.HelpLine(), "\n"))
	}
}
