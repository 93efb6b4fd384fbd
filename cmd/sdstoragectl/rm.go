package main

import (
	"context"
	"errors"

	"github.com/danmowehhuk/sdstorage"
	"github.com/danmowehhuk/sdstorage/internal/sdcli"
)

var errRmUsage = errors.New("usage: rm <path>")

// rmCmd erases the record at path. A missing path is not an error.
func rmCmd(e *sdstorage.Engine) *sdcli.Command {
	return &sdcli.Command{
		Usage: "rm <path>",
		Short: "erase a record",
		Exec: func(ctx context.Context, o *sdcli.IO, args []string) error {
			if len(args) < 1 {
				return errRmUsage
			}

			if err := e.Erase(ctx, args[0], nil); err != nil {
				return err
			}

			o.Println("ok")

			return nil
		},
	}
}
