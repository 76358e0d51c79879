package main

import (
	"bytes"
	"io"
	"log"
	"net/mail"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academic"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/services/email"
	"github.com/trezcool/campus/services/logger"
	"github.com/trezcool/campus/storage/database/inmem"
)

const (
	amaniID = "6f1c1a52-3a34-4a8e-9c59-7f0f3c1f8f10"
	neemaID = "0b3e7e0c-9d51-4f2b-8f3a-2c7c5b8e4a21"
	jumaID  = "9a7d2c44-1e0b-4c55-b6a3-5d2f8e9b1c37"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	now := academic.NowFunc
	academic.NowFunc = func() time.Time { return time.Date(2025, time.January, 11, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { academic.NowFunc = now })

	conf := &core.Config{
		TestMode:         true,
		AppName:          "Campus",
		DefaultFromEmail: mail.Address{Address: "noreply@campus.test"},
	}
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "ADMIN : ", 0), conf)
	logger.Enable(false)
	core.ParseEmailTemplates(conf, logger)

	// set up DB & repos
	db := inmemdb.Open()
	if err := db.LoadFixtures(filepath.Join(core.Getwd(), "config", "fixtures")); err != nil {
		t.Fatalf("LoadFixtures(): %v", err)
	}
	students := inmemdb.NewStudentRepository(db)

	// start CLI
	out := new(bytes.Buffer)
	return &commandLine{
		out:        out,
		studentSvc: student.NewService(students),
		feeSvc:     fee.NewService(conf, inmemdb.NewFeeRepository(db), students, emailsvc.NewConsoleServiceMock(conf), nil),
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    []string
}

func runCliTests(t *testing.T, tests []cliTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, out := setup(t)
			err := cli.run(append([]string{"admin"}, tt.args...))

			switch {
			case tt.wantErr != nil:
				if err != tt.wantErr {
					t.Errorf("run() error = %v; wantErr %v", err, tt.wantErr)
				}
			case tt.wantErrStr != "":
				if err == nil || !strings.Contains(err.Error(), tt.wantErrStr) {
					t.Errorf("run() error = %v; wantErr %q", err, tt.wantErrStr)
				}
			case err != nil:
				t.Errorf("run() error = %v", err)
			}
			for _, want := range tt.wantOut {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func Test_commandLine_run(t *testing.T) {
	runCliTests(t, []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: []string{"Usage:"}},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp, wantOut: []string{"Usage:"}},
		{name: "help flag", args: []string{"years", "-h"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"years", "-lol"}, wantErrStr: "flag provided but not defined: -lol"},
	})
}

func Test_commandLine_years(t *testing.T) {
	runCliTests(t, []cliTest{
		{name: "defaults", args: []string{"years"}, wantOut: []string{"  2022-2023\n  2023-2024\n* 2024-2025\n  2025-2026\n"}},
		{name: "short", args: []string{"years", "-before", "0", "-after", "1", "-short"}, wantOut: []string{"* 2024-25\n  2025-26\n"}},
		{name: "negative", args: []string{"years", "-before", "-1"}, wantErr: errHelp},
	})
}

func Test_commandLine_feeStatus(t *testing.T) {
	runCliTests(t, []cliTest{
		{name: "student required", args: []string{"feestatus"}, wantErr: errHelp},
		{
			name: "partially paid", args: []string{"feestatus", "-student", amaniID, "-year", "2024-2025"},
			wantOut: []string{"Partially Paid", "9000.00", "500.00 (10 days overdue)", "4500.00"},
		},
		{
			name: "pending verification", args: []string{"feestatus", "-student", jumaID, "-year", "2024-2025"},
			wantOut: []string{"Paid", "Pending verification:  2000.00"},
		},
		{
			name: "promoted student defaults to next year", args: []string{"feestatus", "-student", amaniID},
			wantOut: []string{"2025-2026", "Unpaid", "11000.00"},
		},
		{
			name: "as of", args: []string{"feestatus", "-student", neemaID, "-year", "2024-2025", "-asof", "2024-12-01"},
			wantOut: []string{"Unpaid", "Total due:      8100.00"},
		},
		{name: "invalid year", args: []string{"feestatus", "-student", amaniID, "-year", "2024-2026"}, wantErrStr: "invalid academic year"},
		{name: "invalid date", args: []string{"feestatus", "-student", amaniID, "-asof", "soon"}, wantErrStr: "invalid date"},
		{name: "unknown student", args: []string{"feestatus", "-student", "nope"}, wantErr: student.ErrNotFound},
		{name: "no structure", args: []string{"feestatus", "-student", amaniID, "-year", "2020-2021"}, wantErr: fee.ErrNotFound},
	})
}

func Test_commandLine_defaulters(t *testing.T) {
	runCliTests(t, []cliTest{
		{name: "current year", args: []string{"defaulters"}, wantOut: []string{"STUDENT", "Neema Otieno", "8300.00", "Amani Mwangi", "4500.00"}},
		{name: "none", args: []string{"defaulters", "-year", "2020-2021"}, wantOut: []string{"No defaulters in 2020-2021."}},
		{name: "invalid year", args: []string{"defaulters", "-year", "2020"}, wantErrStr: "invalid academic year"},
	})

	t.Run("sorted by total due", func(t *testing.T) {
		cli, out := setup(t)
		if err := cli.run([]string{"admin", "defaulters"}); err != nil {
			t.Fatalf("run() error = %v", err)
		}
		got := out.String()
		if strings.Index(got, "Neema Otieno") > strings.Index(got, "Amani Mwangi") {
			t.Errorf("failed! Neema (8300) should come before Amani (4500):\n%s", got)
		}
		if strings.Contains(got, "Juma Hassan") {
			t.Errorf("failed! Juma has no fees left to pay:\n%s", got)
		}
	})
}

func Test_commandLine_remind(t *testing.T) {
	isTerminal, readConfirm := isTerminalFunc, readConfirmFunc
	t.Cleanup(func() { isTerminalFunc, readConfirmFunc = isTerminal, readConfirm })

	tests := []struct {
		name       string
		args       []string
		terminal   bool
		answer     string
		wantErr    error
		wantOut    string
		wantEmails int
	}{
		{name: "-yes", args: []string{"remind", "-yes"}, wantOut: "2 reminders sent.", wantEmails: 2},
		{name: "confirmed", args: []string{"remind"}, terminal: true, answer: "y", wantOut: "2 reminders sent.", wantEmails: 2},
		{name: "declined", args: []string{"remind"}, terminal: true, answer: "n", wantErr: errCancelled},
		{name: "not a terminal", args: []string{"remind"}, wantErr: errNoTTY},
		{name: "nobody to remind", args: []string{"remind", "-year", "2020-2021"}, wantOut: "No guardian to remind in 2020-2021."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isTerminalFunc = func(int) bool { return tt.terminal }
			readConfirmFunc = func(int) (string, error) { return tt.answer, nil }
			emailsvc.ResetSentMessages()

			cli, out := setup(t)
			err := cli.run(append([]string{"admin"}, tt.args...))
			if err != tt.wantErr {
				t.Fatalf("run() error = %v; wantErr %v", err, tt.wantErr)
			}
			assert.Contains(t, out.String(), tt.wantOut)
			assert.Len(t, emailsvc.SentMessages, tt.wantEmails)
		})
	}
}
