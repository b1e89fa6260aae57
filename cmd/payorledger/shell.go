package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"payorledger/internal/command"
	"payorledger/internal/core"
	"payorledger/pkg/domain"

	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// errUnsaved is returned by quit while changes are pending.
var errUnsaved = errors.New("unsaved changes; save first or use quit!")

const shellHelp = `commands:
  payor add <label> <name...>            payor edit <id> <label> <name...>
  payor rm <id>
  header add <name...>                   header rename <id> <name...>
  header rm <id>
  sub add <header> <name...>             sub rename <id> <name...>
  sub mv <id> <header>                   sub rm <id>
  row add <or#> <date> <payor> <label> [comment...]
  row edit <or#> <new or#> <date> <payor> <label> [comment...]
  row rm <or#>
  cell set <or#> <sub> <amount>          cell clear <or#> <sub>
  show [year [month]]                    totals <year> [month]
  undo  redo  save  quit  quit!
`

type shellCmd struct {
	app         *app
	metricsAddr string
}

func (*shellCmd) Name() string     { return "shell" }
func (*shellCmd) Synopsis() string { return "edit the ledger interactively" }
func (*shellCmd) Usage() string {
	return `payorledger shell [-metrics-addr <host:port>]

  Reads editing commands from standard input. Changes are staged in memory
  until "save"; "undo" and "redo" walk the edit history.
`
}

func (c *shellCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address (needs PAYORLEDGER_METRICS)")
}

func (c *shellCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, _, err := c.app.open(ctx)
	if err != nil {
		c.app.fail(err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	if c.metricsAddr != "" && c.app.registry != nil {
		ln, err := net.Listen("tcp", c.metricsAddr)
		if err != nil {
			c.app.fail(err)
			return subcommands.ExitFailure
		}
		srv := &http.Server{Handler: promhttp.HandlerFor(c.app.registry, promhttp.HandlerOpts{}), ReadHeaderTimeout: 5 * time.Second}
		go serveMetrics(srv, ln, s.Logger())
		defer srv.Close()
	}
	sh := &shell{s: s, out: c.app.stdout}
	if err := sh.run(ctx, c.app.stdin); err != nil {
		c.app.fail(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func serveMetrics(srv *http.Server, ln net.Listener, log core.Logger) {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server stopped", "addr", ln.Addr().String(), "error", err)
	}
}

// shell interprets editing commands against a session.
type shell struct {
	s   *core.Session
	out io.Writer
}

// run executes commands from in until quit or end of input. Command errors
// are printed and do not stop the loop. Reaching the end of input with
// unsaved changes is an error.
func (sh *shell) run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(sh.out, "> ")
		if !sc.Scan() {
			break
		}
		quit, err := sh.exec(ctx, sc.Text())
		if err != nil {
			fmt.Fprintln(sh.out, "error:", err)
			continue
		}
		if quit {
			return nil
		}
	}
	fmt.Fprintln(sh.out)
	if err := sc.Err(); err != nil {
		return err
	}
	if !sh.s.Saved() {
		return errUnsaved
	}
	return nil
}

// exec runs one command line and reports whether the shell should stop.
func (sh *shell) exec(ctx context.Context, line string) (bool, error) {
	args := strings.Fields(line)
	if len(args) == 0 || strings.HasPrefix(args[0], "#") {
		return false, nil
	}
	switch args[0] {
	case "help", "?":
		fmt.Fprint(sh.out, shellHelp)
		return false, nil
	case "quit", "exit":
		if !sh.s.Saved() {
			return false, errUnsaved
		}
		return true, nil
	case "quit!":
		return true, nil
	case "undo":
		return false, sh.s.Undo()
	case "redo":
		return false, sh.s.Redo()
	case "save":
		rep, err := sh.s.Save(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(sh.out, "saved: %d writes\n", rep.Writes())
		return false, nil
	case "show":
		f, err := parseFilter(args[1:])
		if err != nil {
			return false, err
		}
		return false, render(sh.out, sh.s.View(), f)
	case "totals":
		f, err := parseFilter(args[1:])
		if err != nil {
			return false, err
		}
		if f.year == 0 {
			return false, errors.New("usage: totals <year> [month]")
		}
		return false, renderTotals(sh.out, sh.s.View(), sh.s.Totals(), f.year, f.month)
	case "payor":
		return false, sh.payor(args[1:])
	case "header":
		return false, sh.header(args[1:])
	case "sub":
		return false, sh.subheader(args[1:])
	case "row":
		return false, sh.row(args[1:])
	case "cell":
		return false, sh.cell(args[1:])
	}
	return false, fmt.Errorf("unknown command %q (try help)", args[0])
}

func usage(form string) error { return fmt.Errorf("usage: %s", form) }

func (sh *shell) payor(args []string) error {
	switch {
	case len(args) >= 3 && args[0] == "add":
		p, err := sh.s.AddPayor(strings.Join(args[2:], " "), args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(sh.out, "payor", p.ID)
		return nil
	case len(args) >= 4 && args[0] == "edit":
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return sh.s.EditPayor(domain.PayorID(id), strings.Join(args[3:], " "), args[2])
	case len(args) == 2 && args[0] == "rm":
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return sh.s.DeletePayor(domain.PayorID(id))
	}
	return usage("payor add <label> <name...> | edit <id> <label> <name...> | rm <id>")
}

func (sh *shell) header(args []string) error {
	switch {
	case len(args) >= 2 && args[0] == "add":
		h, err := sh.s.AddHeader(strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(sh.out, "header", h.ID)
		return nil
	case len(args) >= 3 && args[0] == "rename":
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return sh.s.RenameHeader(domain.HeaderID(id), strings.Join(args[2:], " "))
	case len(args) == 2 && args[0] == "rm":
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return sh.s.DeleteHeader(domain.HeaderID(id))
	}
	return usage("header add <name...> | rename <id> <name...> | rm <id>")
}

func (sh *shell) subheader(args []string) error {
	switch {
	case len(args) >= 3 && args[0] == "add":
		hid, err := parseID(args[1])
		if err != nil {
			return err
		}
		sub, err := sh.s.AddSubheader(domain.HeaderID(hid), strings.Join(args[2:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(sh.out, "subheader", sub.ID)
		return nil
	case len(args) >= 3 && args[0] == "rename":
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return sh.s.RenameSubheader(domain.SubheaderID(id), strings.Join(args[2:], " "))
	case len(args) == 3 && args[0] == "mv":
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		hid, err := parseID(args[2])
		if err != nil {
			return err
		}
		return sh.s.MoveSubheader(domain.SubheaderID(id), domain.HeaderID(hid))
	case len(args) == 2 && args[0] == "rm":
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return sh.s.DeleteSubheader(domain.SubheaderID(id))
	}
	return usage("sub add <header> <name...> | rename <id> <name...> | mv <id> <header> | rm <id>")
}

func (sh *shell) row(args []string) error {
	switch {
	case len(args) >= 5 && args[0] == "add":
		f, err := parseRowFields(args[1:])
		if err != nil {
			return err
		}
		_, err = sh.s.AddRow(f.OrNum, f.Date, f.PayorID, string(f.Label), f.Comment)
		return err
	case len(args) >= 6 && args[0] == "edit":
		n, err := parseID(args[1])
		if err != nil {
			return err
		}
		f, err := parseRowFields(args[2:])
		if err != nil {
			return err
		}
		return sh.s.EditRow(domain.OrNum(n), f)
	case len(args) == 2 && args[0] == "rm":
		n, err := parseID(args[1])
		if err != nil {
			return err
		}
		return sh.s.DeleteRow(domain.OrNum(n))
	}
	return usage("row add <or#> <date> <payor> <label> [comment...] | edit <or#> <new or#> <date> <payor> <label> [comment...] | rm <or#>")
}

func (sh *shell) cell(args []string) error {
	if len(args) < 3 || (args[0] != "set" && args[0] != "clear") {
		return usage("cell set <or#> <sub> <amount> | clear <or#> <sub>")
	}
	n, err := parseID(args[1])
	if err != nil {
		return err
	}
	sub, err := parseID(args[2])
	if err != nil {
		return err
	}
	if args[0] == "clear" {
		return sh.s.ClearCell(domain.OrNum(n), domain.SubheaderID(sub))
	}
	if len(args) != 4 {
		return usage("cell set <or#> <sub> <amount>")
	}
	return sh.s.SetCell(domain.OrNum(n), domain.SubheaderID(sub), args[3])
}

func parseID(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return n, nil
}

// parseRowFields reads "<or#> <date> <payor> <label> [comment...]".
func parseRowFields(args []string) (command.RowFields, error) {
	n, err := parseID(args[0])
	if err != nil {
		return command.RowFields{}, err
	}
	date, err := time.Parse(domain.DateLayout, args[1])
	if err != nil {
		return command.RowFields{}, fmt.Errorf("invalid date %q, want %s", args[1], domain.DateLayout)
	}
	pid, err := parseID(args[2])
	if err != nil {
		return command.RowFields{}, err
	}
	label, ok := domain.ParsePayorLabel(args[3])
	if !ok {
		return command.RowFields{}, fmt.Errorf("unknown label %q", args[3])
	}
	return command.RowFields{
		OrNum:   domain.OrNum(n),
		Date:    date,
		PayorID: domain.PayorID(pid),
		Label:   label,
		Comment: strings.Join(args[4:], " "),
	}, nil
}

func parseFilter(args []string) (filter, error) {
	var f filter
	if len(args) > 0 {
		y, err := parseID(args[0])
		if err != nil {
			return f, err
		}
		f.year = int(y)
	}
	if len(args) > 1 {
		m, err := parseID(args[1])
		if err != nil || m < 1 || m > 12 {
			return f, fmt.Errorf("invalid month %q", args[1])
		}
		f.month = time.Month(m)
	}
	return f, nil
}
