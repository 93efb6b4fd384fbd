package main

import (
	"context"
	"errors"

	"github.com/danmowehhuk/sdstorage"
	"github.com/danmowehhuk/sdstorage/internal/sdcli"
)

var errGetUsage = errors.New("usage: get <path>")

// getCmd loads a record and prints its fields in insertion order.
func getCmd(e *sdstorage.Engine) *sdcli.Command {
	return &sdcli.Command{
		Usage: "get <path>",
		Short: "read and print a record",
		Exec: func(ctx context.Context, o *sdcli.IO, args []string) error {
			if len(args) < 1 {
				return errGetUsage
			}

			rec, err := e.Load(ctx, args[0])
			if err != nil {
				return err
			}

			if rec.TypeID != "" {
				o.Printf("type=%s\n", rec.TypeID)
				o.Printf("version=%d\n", rec.Version)
			}

			for _, k := range rec.Keys() {
				v, _ := rec.Get(k)
				o.Printf("%s=%s\n", k, v)
			}

			return nil
		},
	}
}
