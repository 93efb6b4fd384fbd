package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/danmowehhuk/sdstorage"
	"github.com/danmowehhuk/sdstorage/internal/sdcli"
	"github.com/danmowehhuk/sdstorage/record"
)

var errPutUsage = errors.New("usage: put <path> key=value [key=value ...]")

// putCmd saves a record built from its field=value positional arguments.
func putCmd(e *sdstorage.Engine) *sdcli.Command {
	flags := flag.NewFlagSet("put", flag.ContinueOnError)
	version := flags.Int("version", 0, "record version")

	return &sdcli.Command{
		Flags: flags,
		Usage: "put <path> key=value [key=value ...]",
		Short: "write a record",
		Exec: func(ctx context.Context, o *sdcli.IO, args []string) error {
			if len(args) < 1 {
				return errPutUsage
			}

			path := args[0]
			rec := record.New()
			rec.Version = *version

			for _, field := range args[1:] {
				k, v, ok := strings.Cut(field, "=")
				if !ok {
					return fmt.Errorf("%w: field %q missing '='", errPutUsage, field)
				}

				rec.Set(k, v)
			}

			if err := e.Save(ctx, path, rec, nil); err != nil {
				return err
			}

			o.Println("ok")

			return nil
		},
	}
}
