package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jask/moneyql/internal/render"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Read statements interactively",
	Long: `Read statements from stdin. A statement may span several lines and runs
once a line ends with ';'. A failing statement is reported and the shell keeps
going. Type "quit" or send EOF to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		prompt := isatty.IsTerminal(os.Stdin.Fd())
		return readStatements(cmd.InOrStdin(), cmd.OutOrStdout(), prompt, func(src string) {
			results, err := s.exec.ExecScript(cmd.Context(), src)
			s.print(results)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), render.Error(err, s.out))
			}
		})
	},
}

// readStatements buffers lines until one ends with ';' and hands the buffered
// text to run.
func readStatements(in io.Reader, out io.Writer, prompt bool, run func(string)) error {
	sc := bufio.NewScanner(in)
	var buf strings.Builder
	for {
		if prompt {
			if buf.Len() == 0 {
				fmt.Fprint(out, "moneyql> ")
			} else {
				fmt.Fprint(out, "     ...> ")
			}
		}
		if !sc.Scan() {
			break
		}
		line := sc.Text()
		if buf.Len() == 0 {
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "":
				continue
			case "quit", "exit", `\q`:
				return nil
			}
		}
		buf.WriteString(line)
		buf.WriteString("\n")
		if strings.HasSuffix(strings.TrimSpace(line), ";") {
			run(buf.String())
			buf.Reset()
		}
	}
	if strings.TrimSpace(buf.String()) != "" {
		run(buf.String())
	}
	return sc.Err()
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
