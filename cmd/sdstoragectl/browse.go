package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/danmowehhuk/sdstorage"
	"github.com/danmowehhuk/sdstorage/internal/sdcli"
)

var errBrowseUsage = errors.New("usage: browse <index>")

// browseCmd opens an interactive REPL over one named index, with tab
// completion driven by PrefixSearch — the canonical use of the trie-mode
// fallback is exactly an autocomplete callback like this one.
func browseCmd(e *sdstorage.Engine) *sdcli.Command {
	return &sdcli.Command{
		Usage: "browse <index>",
		Short: "interactive REPL over one index, with tab completion",
		Exec: func(_ context.Context, o *sdcli.IO, args []string) error {
			if len(args) < 1 {
				return errBrowseUsage
			}

			return runBrowseRepl(e, args[0], o)
		},
	}
}

func browseHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".sdstoragectl_history")
}

func runBrowseRepl(e *sdstorage.Engine, index string, o *sdcli.IO) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(partial string) []string {
		result, err := e.Index().PrefixSearch(index, partial)
		if err != nil {
			return nil
		}

		if !result.TrieMode {
			completions := make([]string, 0, len(result.Matches))
			for _, m := range result.Matches {
				completions = append(completions, m.Key)
			}

			return completions
		}

		completions := make([]string, 0, len(result.Trie))
		for _, c := range result.Trie {
			completions = append(completions, partial+c.Key)
		}

		return completions
	})

	if f, err := os.Open(browseHistoryFile()); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}

	o.Printf("browsing index %q. Type 'help' for commands.\n", index)

	for {
		input, err := line.Prompt(index + "> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				o.Println("bye")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)

		if !dispatchBrowseLine(e, index, o, input) {
			break
		}
	}

	if f, err := os.Create(browseHistoryFile()); err == nil {
		_, _ = line.WriteHistory(f)
		_ = f.Close()
	}

	return nil
}

// dispatchBrowseLine runs one REPL command. Returns false to exit the loop.
func dispatchBrowseLine(e *sdstorage.Engine, index string, o *sdcli.IO, input string) bool {
	fields := strings.Fields(input)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "exit", "quit", "q":
		o.Println("bye")

		return false

	case "help", "?":
		o.Println("commands: get <key> | put <key> <value> | rm <key> | prefix <prefix> | exit")

	case "get":
		if len(args) < 1 {
			o.Println("usage: get <key>")

			break
		}

		v, found, err := e.Index().Lookup(index, args[0])
		if err != nil {
			o.Printf("error: %v\n", err)
		} else if !found {
			o.Println("(not found)")
		} else {
			o.Println(v)
		}

	case "put":
		if len(args) < 2 {
			o.Println("usage: put <key> <value>")

			break
		}

		if err := e.Index().Upsert(index, args[0], strings.Join(args[1:], " "), nil); err != nil {
			o.Printf("error: %v\n", err)
		} else {
			o.Println("ok")
		}

	case "rm":
		if len(args) < 1 {
			o.Println("usage: rm <key>")

			break
		}

		if err := e.Index().Remove(index, args[0], nil); err != nil {
			o.Printf("error: %v\n", err)
		} else {
			o.Println("ok")
		}

	case "prefix":
		prefix := ""
		if len(args) >= 1 {
			prefix = args[0]
		}

		result, err := e.Index().PrefixSearch(index, prefix)
		if err != nil {
			o.Printf("error: %v\n", err)

			break
		}

		if !result.TrieMode {
			for _, m := range result.Matches {
				o.Printf("%s=%s\n", m.Key, m.Value)
			}
		} else {
			o.Println("(too many matches, showing next-character continuations)")

			for _, c := range result.Trie {
				o.Printf("%s%s\n", prefix, c.Key)
			}
		}

	default:
		o.Printf("unknown command: %s (type 'help')\n", cmd)
	}

	return true
}
