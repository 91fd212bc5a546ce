package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	execFile   string
	execDryRun bool
)

var execCmd = &cobra.Command{
	Use:   "exec [statements]",
	Short: "Run statements and exit",
	Long: `Run one or more ';'-terminated statements given as arguments, read from
--file, or read from stdin when neither is given. Statements run in order and
execution stops at the first failure.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := execSource(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		run := s.exec.ExecScript
		if execDryRun {
			run = s.exec.DryRunScript
		}
		results, err := run(cmd.Context(), src)
		s.print(results)
		return err
	},
}

func execSource(stdin io.Reader, args []string) (string, error) {
	switch {
	case execFile != "" && len(args) > 0:
		return "", errors.New("use either --file or statement arguments, not both")
	case execFile != "":
		b, err := os.ReadFile(execFile)
		if err != nil {
			return "", fmt.Errorf("read statements: %w", err)
		}
		return string(b), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}

func init() {
	execCmd.Flags().StringVarP(&execFile, "file", "f", "", "read statements from a file")
	execCmd.Flags().BoolVarP(&execDryRun, "dry-run", "n", false, "evaluate without changing the database")
	rootCmd.AddCommand(execCmd)
}
