package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"payorledger/internal/backup"
	"payorledger/internal/blob"
	"payorledger/internal/report"

	"github.com/google/subcommands"
)

type initCmd struct{ app *app }

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "create the ledger tables in the configured storage" }
func (*initCmd) Usage() string {
	return `payorledger init

  Opens the configured storage, creating its tables when missing.
`
}
func (*initCmd) SetFlags(*flag.FlagSet) {}

func (c *initCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, cfg, err := c.app.open(ctx)
	if err != nil {
		c.app.fail(err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	fmt.Fprintf(c.app.stdout, "%s storage ready: %d payors, %d rows\n", cfg.StorageDriver, len(s.View().Payors()), len(s.View().Rows()))
	return subcommands.ExitSuccess
}

type showCmd struct {
	app   *app
	year  int
	month int
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "print payors, columns, and rows" }
func (*showCmd) Usage() string {
	return `payorledger show [-year <yyyy>] [-month <m>]

  Prints the stored ledger. Rows can be limited to a year or a month.
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", 0, "only rows booked in this year")
	f.IntVar(&c.month, "month", 0, "only rows booked in this month (1-12, needs -year)")
}

func (c *showCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, _, err := c.app.open(ctx)
	if err != nil {
		c.app.fail(err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	if err := render(c.app.stdout, s.View(), filter{year: c.year, month: time.Month(c.month)}); err != nil {
		c.app.fail(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type totalsCmd struct {
	app   *app
	year  int
	month int
}

func (*totalsCmd) Name() string     { return "totals" }
func (*totalsCmd) Synopsis() string { return "print column totals for a month or a year" }
func (*totalsCmd) Usage() string {
	return `payorledger totals [-year <yyyy>] [-month <m>]

  Prints the total of each subheader column and the overall total.
`
}

func (c *totalsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", time.Now().Year(), "year to total")
	f.IntVar(&c.month, "month", 0, "month to total (1-12); the whole year when zero")
}

func (c *totalsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, _, err := c.app.open(ctx)
	if err != nil {
		c.app.fail(err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	if err := renderTotals(c.app.stdout, s.View(), s.Totals(), c.year, time.Month(c.month)); err != nil {
		c.app.fail(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type exportCmd struct {
	app    *app
	year   int
	out    string
	format string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write a year of the ledger to an Excel workbook" }
func (*exportCmd) Usage() string {
	return `payorledger export [-year <yyyy>] [-format xlsx|csv] [-o <file>]

  Writes one sheet per month with rows and totals plus a year summary sheet,
  or a single CSV table of the year's rows.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", time.Now().Year(), "year to export")
	f.StringVar(&c.format, "format", "xlsx", "output format: xlsx or csv")
	f.StringVar(&c.out, "o", "", "output file (default ledger-<year>.<format>)")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	write := report.Write
	switch c.format {
	case "xlsx":
	case "csv":
		write = report.WriteCSV
	default:
		fmt.Fprintf(c.app.stderr, "unknown format %q\n", c.format)
		return subcommands.ExitUsageError
	}
	s, _, err := c.app.open(ctx)
	if err != nil {
		c.app.fail(err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	path := c.out
	if path == "" {
		path = fmt.Sprintf("ledger-%d.%s", c.year, c.format)
	}
	f, err := os.Create(path)
	if err != nil {
		c.app.fail(err)
		return subcommands.ExitFailure
	}
	if err := write(f, s.View(), c.year); err != nil {
		f.Close()
		c.app.fail(err)
		return subcommands.ExitFailure
	}
	if err := f.Close(); err != nil {
		c.app.fail(err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(c.app.stdout, "wrote", path)
	return subcommands.ExitSuccess
}

type backupCmd struct{ app *app }

func (*backupCmd) Name() string     { return "backup" }
func (*backupCmd) Synopsis() string { return "create, list, or restore ledger backups" }
func (*backupCmd) Usage() string {
	return `payorledger backup create | list | restore <id>

  Backups are stored in the configured blob store. Restore only writes into
  an empty storage.
`
}
func (*backupCmd) SetFlags(*flag.FlagSet) {}

func (c *backupCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) == 0 {
		fmt.Fprint(c.app.stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	s, cfg, err := c.app.open(ctx)
	if err != nil {
		c.app.fail(err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	store, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		c.app.fail(err)
		return subcommands.ExitFailure
	}
	m := backup.New(store)
	switch {
	case args[0] == "create" && len(args) == 1:
		info, err := m.Create(ctx, s.Storage())
		if err != nil {
			c.app.fail(err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(c.app.stdout, "created %s (%d bytes)\n", info.ID, info.Size)
	case args[0] == "list" && len(args) == 1:
		infos, err := m.List(ctx)
		if err != nil {
			c.app.fail(err)
			return subcommands.ExitFailure
		}
		for _, info := range infos {
			fmt.Fprintf(c.app.stdout, "%s\t%s\t%d\n", info.ID, info.Created.Format(time.RFC3339), info.Size)
		}
	case args[0] == "restore" && len(args) == 2:
		rep, err := m.Restore(ctx, args[1], s.Storage())
		if err != nil {
			c.app.fail(err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(c.app.stdout, "restored %s: %d records written\n", args[1], rep.Writes())
	default:
		fmt.Fprint(c.app.stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}
