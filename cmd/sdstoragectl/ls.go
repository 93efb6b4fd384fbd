package main

import (
	"context"
	"errors"

	"github.com/danmowehhuk/sdstorage"
	"github.com/danmowehhuk/sdstorage/internal/sdcli"
)

var errLsUsage = errors.New("usage: ls <index> [prefix]")

// lsCmd runs PrefixSearch against a named index and prints its result,
// either the full (key, value) matches or, past the match cap, the
// trie-mode next-character continuations.
func lsCmd(e *sdstorage.Engine) *sdcli.Command {
	return &sdcli.Command{
		Usage: "ls <index> [prefix]",
		Short: "list index entries by prefix",
		Exec: func(_ context.Context, o *sdcli.IO, args []string) error {
			if len(args) < 1 {
				return errLsUsage
			}

			name := args[0]

			prefix := ""
			if len(args) >= 2 {
				prefix = args[1]
			}

			result, err := e.Index().PrefixSearch(name, prefix)
			if err != nil {
				return err
			}

			if !result.TrieMode {
				for _, m := range result.Matches {
					o.Printf("%s=%s\n", m.Key, m.Value)
				}

				return nil
			}

			o.Println("(too many matches, showing next-character continuations)")

			for _, c := range result.Trie {
				if c.Value != "" {
					o.Printf("%s%s=%s\n", prefix, c.Key, c.Value)
				} else {
					o.Printf("%s%s...\n", prefix, c.Key)
				}
			}

			return nil
		},
	}
}
