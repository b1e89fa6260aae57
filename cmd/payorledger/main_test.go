package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"payorledger/internal/core"
	"payorledger/internal/infra/persistence/memory"

	"github.com/google/subcommands"
)

const script = `payor add depositor Alice Smith
header add Loans
sub add -1 Principal
row add 100 2024-04-02 -1 depositor first receipt
cell set 100 -1 25.50
quit
save
quit
`

func newTestApp(t *testing.T, stdin string) (*app, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PAYORLEDGER_STORAGE_DRIVER", "sqlite")
	t.Setenv("PAYORLEDGER_SQLITE_PATH", filepath.Join(dir, "ledger.db"))
	t.Setenv("PAYORLEDGER_BLOB_DRIVER", "fs")
	t.Setenv("PAYORLEDGER_BLOB_FS_ROOT", filepath.Join(dir, "backups"))
	t.Setenv("PAYORLEDGER_LOG_LEVEL", "warn")
	t.Setenv("PAYORLEDGER_METRICS", "")
	var out, errOut bytes.Buffer
	return &app{
		envFile: filepath.Join(dir, "absent.env"),
		stdin:   strings.NewReader(stdin),
		stdout:  &out,
		stderr:  &errOut,
	}, &out, &errOut
}

func runCommand(t *testing.T, a *app, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet("payorledger", flag.ContinueOnError)
	c := subcommands.NewCommander(fs, "payorledger")
	register(c, a)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return c.Execute(context.Background())
}

func TestCommandsEndToEnd(t *testing.T) {
	a, out, errOut := newTestApp(t, script)

	if st := runCommand(t, a, "shell"); st != subcommands.ExitSuccess {
		t.Fatalf("shell exit %v: %s", st, errOut)
	}
	for _, want := range []string{"payor -1", "header -1", "subheader -1", "unsaved changes", "saved: 5 writes"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("shell output missing %q:\n%s", want, out)
		}
	}

	out.Reset()
	if st := runCommand(t, a, "show", "-year", "2024"); st != subcommands.ExitSuccess {
		t.Fatalf("show exit %v: %s", st, errOut)
	}
	for _, want := range []string{"Alice Smith", "Principal", "2024-04-02", "1=25.50", "first receipt"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("show output missing %q:\n%s", want, out)
		}
	}

	out.Reset()
	if st := runCommand(t, a, "totals", "-year", "2024", "-month", "4"); st != subcommands.ExitSuccess {
		t.Fatalf("totals exit %v: %s", st, errOut)
	}
	if !strings.Contains(out.String(), "Loans / Principal") || strings.Count(out.String(), "25.50") != 2 {
		t.Fatalf("unexpected totals:\n%s", out)
	}

	xlsx := filepath.Join(t.TempDir(), "2024.xlsx")
	if st := runCommand(t, a, "export", "-year", "2024", "-o", xlsx); st != subcommands.ExitSuccess {
		t.Fatalf("export exit %v: %s", st, errOut)
	}
	if fi, err := os.Stat(xlsx); err != nil || fi.Size() == 0 {
		t.Fatalf("workbook not written: %v", err)
	}

	csvPath := filepath.Join(t.TempDir(), "2024.csv")
	if st := runCommand(t, a, "export", "-year", "2024", "-format", "csv", "-o", csvPath); st != subcommands.ExitSuccess {
		t.Fatalf("csv export exit %v: %s", st, errOut)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil || !strings.Contains(string(data), "100,2024-04-02,Alice Smith,Depositor,25.5,25.5,first receipt") {
		t.Fatalf("unexpected csv %q: %v", data, err)
	}
	if st := runCommand(t, a, "export", "-format", "pdf"); st != subcommands.ExitUsageError {
		t.Fatalf("unknown format must be a usage error, got %v", st)
	}

	out.Reset()
	if st := runCommand(t, a, "backup", "create"); st != subcommands.ExitSuccess {
		t.Fatalf("backup exit %v: %s", st, errOut)
	}
	out.Reset()
	if st := runCommand(t, a, "backup", "list"); st != subcommands.ExitSuccess {
		t.Fatalf("backup list exit %v: %s", st, errOut)
	}
	if lines := strings.Split(strings.TrimSpace(out.String()), "\n"); len(lines) != 1 {
		t.Fatalf("expected one backup, got %q", out)
	}
	id := strings.Fields(out.String())[0]
	if st := runCommand(t, a, "backup", "restore", id); st != subcommands.ExitFailure {
		t.Fatalf("restore into a non-empty ledger must fail, got %v", st)
	}
}

func TestBackupUsage(t *testing.T) {
	a, _, errOut := newTestApp(t, "")
	if st := runCommand(t, a, "backup"); st != subcommands.ExitUsageError {
		t.Fatalf("expected usage error, got %v", st)
	}
	if st := runCommand(t, a, "backup", "drop"); st != subcommands.ExitUsageError {
		t.Fatalf("expected usage error, got %v", st)
	}
	if !strings.Contains(errOut.String(), "payorledger backup create") {
		t.Fatalf("usage not printed: %s", errOut)
	}
}

func TestShellReportsErrorsAndContinues(t *testing.T) {
	s, err := core.Open(context.Background(), memory.NewStore())
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	sh := &shell{s: s, out: &out}
	in := strings.Join([]string{
		"bogus",
		"payor add nobody Alice",
		"payor add other Alice",
		"payor add other alice",
		"undo",
		"redo",
		"row add 1 April -1 other",
		"cell set 9 1 5",
		"# a comment",
		"quit!",
	}, "\n")
	if err := sh.run(context.Background(), strings.NewReader(in)); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	for _, want := range []string{`unknown command "bogus"`, "invalid date", "not found"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if n := strings.Count(got, "error:"); n != 5 {
		t.Fatalf("expected 5 errors, got %d:\n%s", n, got)
	}
	if len(s.View().Payors()) != 1 || s.Saved() {
		t.Fatalf("expected one unsaved payor after undo/redo")
	}
}

func TestShellEndOfInputWithUnsavedChanges(t *testing.T) {
	s, err := core.Open(context.Background(), memory.NewStore())
	if err != nil {
		t.Fatal(err)
	}
	sh := &shell{s: s, out: &bytes.Buffer{}}
	if err := sh.run(context.Background(), strings.NewReader("header add Fees\n")); err != errUnsaved {
		t.Fatalf("expected errUnsaved, got %v", err)
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		args    []string
		year    int
		month   int
		wantErr bool
	}{
		{args: nil},
		{args: []string{"2024"}, year: 2024},
		{args: []string{"2024", "12"}, year: 2024, month: 12},
		{args: []string{"2024", "13"}, wantErr: true},
		{args: []string{"soon"}, wantErr: true},
	}
	for _, tt := range tests {
		f, err := parseFilter(tt.args)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%v: err = %v", tt.args, err)
		}
		if !tt.wantErr && (f.year != tt.year || int(f.month) != tt.month) {
			t.Fatalf("%v: got %+v", tt.args, f)
		}
	}
}
