// Command payorledger edits and reports on a payor receipt ledger.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var exitFunc = os.Exit

func main() {
	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	flag.StringVar(&a.envFile, "env", "", "dotenv file with PAYORLEDGER_* settings (default .env)")
	register(commander, a)
	flag.Parse()
	exitFunc(int(commander.Execute(context.Background())))
}

func register(c *subcommands.Commander, a *app) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(&initCmd{app: a}, "")
	c.Register(&showCmd{app: a}, "")
	c.Register(&totalsCmd{app: a}, "")
	c.Register(&exportCmd{app: a}, "")
	c.Register(&backupCmd{app: a}, "")
	c.Register(&shellCmd{app: a}, "")
}
