package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	httpc "github.com/frankli0324/go-http-client"
)

var version = "dev"

// exitError carries the process exit code up to Execute.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, err error) error { return &exitError{code: code, err: err} }

// exitCode maps client errors onto the documented exit codes.
func exitCode(err error) int {
	var ee *exitError
	var pe *httpc.ParseError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &ee):
		return ee.code
	case errors.Is(err, httpc.ErrInvalidArgument):
		return ExitConfigError
	case errors.As(err, &pe):
		return ExitParseError
	case errors.Is(err, httpc.ErrRuntime):
		return ExitNetworkError
	}
	return ExitUsageError
}

func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	f := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "httpc [flags] URL",
		Short: "Send an HTTP/1.x request and print the response",
		Long: `httpc sends one request through go-http-client, following redirects,
keeping cookies across hops and answering basic or digest challenges.

Options can be loaded from a YAML file with --config; command line flags
take precedence over the file.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(out, errOut, f.noColor)
			err := f.run(cmd, p, args[0])
			if err != nil {
				p.errorf("%v", err)
			}
			return err
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	f.register(cmd)
	cmd.AddCommand(newVersionCmd(out))
	return cmd
}

func newVersionCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(out, "httpc %s\n", version)
		},
	}
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	cmd := NewRootCmd(os.Stdout, os.Stderr)
	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	code := exitCode(err)
	if code == ExitUsageError {
		fmt.Fprintln(os.Stderr, err)
	}
	return code
}
