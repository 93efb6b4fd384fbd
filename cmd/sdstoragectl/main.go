// Command sdstoragectl is an operator CLI over an sdstorage root: fsck,
// single-record put/get/rm, index listing, and an interactive index browser.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/danmowehhuk/sdstorage"
	"github.com/danmowehhuk/sdstorage/internal/sdcli"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, os.Environ(), sigCh))
}

func run(args []string, stdout, stderr *os.File, environ []string, sigCh <-chan os.Signal) int {
	globalFlags := flag.NewFlagSet("sdstoragectl", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)

	cwd := globalFlags.StringP("cwd", "C", "", "run as if started in dir")
	configPath := globalFlags.StringP("config", "c", "", "use specified config file")
	rootOverride := globalFlags.String("root", "", "override root_dir")

	o := sdcli.NewIO(stdout, stderr)

	if err := globalFlags.Parse(args); err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	workDir := *cwd
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			o.ErrPrintln("error:", err)

			return 1
		}

		workDir = wd
	}

	cliCfg, err := loadCliConfig(workDir, *configPath, *rootOverride, environ)
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	e, err := sdstorage.Open(context.Background(), sdstorage.Config{
		RootDir:    cliCfg.RootDir,
		ChipSelect: cliCfg.DevPath,
		ErrorHook:  func(err error) { o.ErrPrintln("sdstorage:", err) },
	})
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	defer e.Close()

	commands := []*sdcli.Command{
		fsckCmd(e),
		putCmd(e),
		getCmd(e),
		rmCmd(e),
		lsCmd(e),
		browseCmd(e),
	}

	return sdcli.Run(o, o, globalFlags.Args(), commands, sigCh)
}
