package main

import (
	"context"

	"github.com/danmowehhuk/sdstorage"
	"github.com/danmowehhuk/sdstorage/internal/sdcli"
)

// fsckCmd re-runs recovery and reports the outcome. Open already ran fsck
// once; this lets an operator confirm a clean state without reopening.
func fsckCmd(e *sdstorage.Engine) *sdcli.Command {
	return &sdcli.Command{
		Usage: "fsck",
		Short: "re-run crash recovery over the work directory",
		Exec: func(_ context.Context, o *sdcli.IO, _ []string) error {
			if err := e.Fsck(); err != nil {
				return err
			}

			o.Println("fsck ok")

			return nil
		},
	}
}
