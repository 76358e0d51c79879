package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academic"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/student"
)

var (
	isTerminalFunc  = term.IsTerminal // mockable
	readConfirmFunc = readConfirm     // mockable

	errHelp      = errors.New("help provided")
	errNoTTY     = errors.New("stdin is not a terminal: pass -yes to send reminders")
	errCancelled = errors.New("cancelled")
)

type commandLine struct {
	out        io.Writer
	studentSvc *student.Service
	feeSvc     *fee.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  years [-before N] [-after N] [-short] - list academic years around the current one")
	fmt.Fprintln(cli.out, "  feestatus -student ID [-year YEAR] [-asof DATE] - show a student's fee status")
	fmt.Fprintln(cli.out, "  defaulters [-year YEAR] [-asof DATE] - list students with unpaid fees")
	fmt.Fprintln(cli.out, "  remind [-year YEAR] [-asof DATE] [-yes] - email the guardians of defaulters")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	switch args[1] {
	case "years":
		cmd := cli.newFlagSet("years")
		before := cmd.Int("before", 2, "Number of previous academic years to list.")
		after := cmd.Int("after", 1, "Number of next academic years to list.")
		short := cmd.Bool("short", false, "Abbreviate the end year (2025-26).")
		if err := cli.parse(cmd, args[2:]); err != nil {
			return err
		}
		if *before < 0 || *after < 0 {
			cmd.Usage()
			return errHelp
		}
		return cli.years(*before, *after, *short)

	case "feestatus":
		cmd := cli.newFlagSet("feestatus")
		studentID := cmd.String("student", "", "The student's ID.")
		year := cmd.String("year", "", "The academic year (2025-2026). Defaults to the student's current year.")
		asOf := cmd.String("asof", "", "The date fees are evaluated on (2006-01-02). Defaults to today.")
		if err := cli.parse(cmd, args[2:]); err != nil {
			return err
		}
		if *studentID == "" {
			cmd.Usage()
			return errHelp
		}
		date, err := parseAsOf(*asOf)
		if err != nil {
			return err
		}
		if *year == "" {
			res, err := cli.studentSvc.CurrentYear(ctx, *studentID, date)
			if err != nil {
				return err
			}
			return cli.feeStatus(ctx, *studentID, res.Year, date)
		}
		y, err := academic.Parse(*year)
		if err != nil {
			return err
		}
		return cli.feeStatus(ctx, *studentID, y, date)

	case "defaulters", "remind":
		cmd := cli.newFlagSet(args[1])
		year := cmd.String("year", "", "The academic year (2025-2026). Defaults to the current one.")
		asOf := cmd.String("asof", "", "The date fees are evaluated on (2006-01-02). Defaults to today.")
		yes := cmd.Bool("yes", false, "Do not ask for confirmation.")
		if err := cli.parse(cmd, args[2:]); err != nil {
			return err
		}
		date, err := parseAsOf(*asOf)
		if err != nil {
			return err
		}
		y, err := academic.ParseOrCurrent(*year, date)
		if err != nil {
			return err
		}
		if args[1] == "defaulters" {
			return cli.defaulters(ctx, y, date)
		}
		return cli.remind(ctx, y, date, *yes)

	default:
		cli.printUsage()
		return errHelp
	}
}

func parseAsOf(s string) (time.Time, error) {
	if s == "" {
		return academic.NowFunc(), nil
	}
	return core.ParseDate(s)
}

func (cli *commandLine) years(before, after int, short bool) error {
	current := academic.CurrentAcademicYear(academic.NowFunc())
	for _, y := range academic.AcademicYearOptions(before, after) {
		marker := " "
		if y == current {
			marker = "*"
		}
		fmt.Fprintf(cli.out, "%s %s\n", marker, academic.FormatAcademicYear(y, short))
	}
	return nil
}

func (cli *commandLine) feeStatus(ctx context.Context, studentID string, year academic.Year, asOf time.Time) error {
	st, err := cli.feeSvc.StudentStatus(ctx, studentID, year, asOf)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Academic year:\t%s\n", st.AcademicYear)
	fmt.Fprintf(w, "Status:\t%s\n", st.PaymentStatus)
	fmt.Fprintf(w, "Effective fee:\t%.2f\n", st.EffectiveFee)
	fmt.Fprintf(w, "Paid:\t%.2f\n", st.TotalPaid)
	if st.PendingVerification > 0 {
		fmt.Fprintf(w, "Pending verification:\t%.2f\n", st.PendingVerification)
	}
	fmt.Fprintf(w, "Remaining:\t%.2f\n", st.Remaining)
	if st.OverdueDays > 0 {
		fmt.Fprintf(w, "Late fee:\t%.2f (%d days overdue)\n", st.TotalLateFee, st.OverdueDays)
	}
	fmt.Fprintf(w, "Total due:\t%.2f\n", st.TotalDue)
	return w.Flush()
}

func (cli *commandLine) defaulters(ctx context.Context, year academic.Year, asOf time.Time) error {
	defaulters, err := cli.feeSvc.Defaulters(ctx, year, asOf)
	if err != nil {
		return err
	}
	if len(defaulters) == 0 {
		fmt.Fprintf(cli.out, "No defaulters in %s.\n", year)
		return nil
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STUDENT\tCLASS\tSTATUS\tOVERDUE DAYS\tTOTAL DUE")
	for _, d := range defaulters {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\n",
			d.Student.Name, d.Student.ClassName, d.Status.PaymentStatus, d.Status.OverdueDays, d.Status.TotalDue)
	}
	return w.Flush()
}

func (cli *commandLine) remind(ctx context.Context, year academic.Year, asOf time.Time, yes bool) error {
	if !yes {
		defaulters, err := cli.feeSvc.Defaulters(ctx, year, asOf)
		if err != nil {
			return err
		}
		var guardians int
		for _, d := range defaulters {
			if d.Student.HasGuardianEmail() {
				guardians++
			}
		}
		if guardians == 0 {
			fmt.Fprintf(cli.out, "No guardian to remind in %s.\n", year)
			return nil
		}

		fd := int(syscall.Stdin)
		if !isTerminalFunc(fd) {
			return errNoTTY
		}
		fmt.Fprintf(cli.out, "Send %d fee reminders for %s? [y/N] ", guardians, year)
		answer, err := readConfirmFunc(fd)
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			return errCancelled
		}
	}

	sent, err := cli.feeSvc.RemindDefaulters(ctx, year, asOf)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d reminders sent.\n", sent)
	return nil
}

// readConfirm reads one line from the terminal in raw mode.
func readConfirm(fd int) (string, error) {
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return "", err
	}
	defer term.Restore(fd, oldState) // nolint: errcheck

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "")
	return t.ReadLine()
}
