// Command auditctl is the operator tool for the audit chain.
//
//	auditctl verify-export -f export.jsonl
//	auditctl issue-token --id u1 --role AUDITOR --hotel H1
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/hoteltrack/api/audit"
	"github.com/hoteltrack/api/config"
	"github.com/hoteltrack/api/middleware"
	"github.com/hoteltrack/api/model"
)

// exitError carries a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) ExitCode() int { return e.code }

var errChainInvalid = errors.New("export does not verify")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var coded *exitError
		if errors.As(err, &coded) {
			os.Exit(coded.ExitCode())
		}
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		printUsage()
		return &exitError{code: 64, err: errors.New("missing command")}
	}
	switch args[0] {
	case "verify-export":
		return verifyExport(args[1:], stdout)
	case "issue-token":
		return issueToken(args[1:], stdout)
	case "-h", "--help", "help":
		printUsage()
		return nil
	}
	printUsage()
	return &exitError{code: 64, err: fmt.Errorf("unknown command %q", args[0])}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `auditctl: operator tool for the hoteltrack audit chain.

Usage:
  auditctl verify-export -f FILE     replay a JSONL export offline ("-" reads stdin)
  auditctl issue-token --id ID --role ROLE [--hotel H] [--department D] [--ttl 1h]
`)
}

func verifyExport(args []string, stdout io.Writer) error {
	var filePath string
	flagSet := pflag.NewFlagSet("verify-export", pflag.ContinueOnError)
	flagSet.StringVarP(&filePath, "file", "f", "", "path to a JSONL audit export")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if filePath == "" {
		return &exitError{code: 64, err: errors.New("--file is required")}
	}

	var r io.Reader = os.Stdin
	if filePath != "-" {
		f, err := os.Open(filePath)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	report, err := audit.VerifyExport(r)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if !report.Valid {
		return &exitError{code: 2, err: errChainInvalid}
	}
	return nil
}

func issueToken(args []string, stdout io.Writer) error {
	var actor model.Actor
	var secret, issuer string
	var ttl time.Duration

	flagSet := pflag.NewFlagSet("issue-token", pflag.ContinueOnError)
	flagSet.StringVar(&actor.ID, "id", "", "actor id (token subject)")
	flagSet.StringVar(&actor.Role, "role", "", "actor role")
	flagSet.StringVar(&actor.HotelID, "hotel", "", "hotel the actor belongs to")
	flagSet.StringVar(&actor.DepartmentID, "department", "", "department the actor belongs to")
	flagSet.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	flagSet.StringVar(&secret, "secret", "", "signing secret (default: auth.jwtSecret from config)")
	flagSet.StringVar(&issuer, "issuer", "", "issuer (default: auth.issuer from config)")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if actor.ID == "" || actor.Role == "" {
		return &exitError{code: 64, err: errors.New("--id and --role are required")}
	}

	if secret == "" || issuer == "" {
		if err := config.InitConfig(); err != nil {
			return err
		}
		if secret == "" {
			secret = config.GetString("auth.jwtSecret")
		}
		if issuer == "" {
			issuer = config.GetString("auth.issuer")
		}
	}
	if secret == "" {
		return errors.New("no signing secret: pass --secret or set auth.jwtSecret")
	}

	token, err := middleware.IssueToken([]byte(secret), issuer, actor, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}
