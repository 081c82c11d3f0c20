// Command play runs the quiz banks in the terminal.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/quizdesk/core/catalog"
	"github.com/trezcool/quizdesk/fs"
)

var errBankRequired = errors.New("-bank is required with plain output")

// isTerminal reports whether a writer is a TTY.
var isTerminal = defaultIsTerminal // mockable

func defaultIsTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "play: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	flags := flag.NewFlagSet("play", flag.ContinueOnError)
	flags.SetOutput(stdout)
	bankID := flags.String("bank", "", "The quiz bank to play. Pick from a list when empty.")
	subject := flags.String("subject", "", "Only list banks of this subject.")
	grade := flags.Int("grade", 0, "Only list banks of this grade.")
	plain := flags.Bool("plain", false, "Read answers from stdin, one per line, and print a summary.")
	noColor := flags.Bool("nocolor", false, "Disable colors.")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cat, err := catalog.Load(appfs.FS, appfs.BanksDir)
	if err != nil {
		return err
	}

	if *plain || !isTerminal(stdout) {
		if *bankID == "" {
			return errBankRequired
		}
		entry, err := cat.Get(*bankID)
		if err != nil {
			return err
		}
		return runPlain(entry, stdin, stdout)
	}

	filter := catalog.Filter{Subject: catalog.Subject(*subject), Grade: *grade}
	filter.Clean()
	m := newModel(cat.List(filter), *noColor || os.Getenv("NO_COLOR") != "")
	if *bankID != "" {
		entry, err := cat.Get(*bankID)
		if err != nil {
			return err
		}
		if m, err = m.start(entry); err != nil {
			return err
		}
	}

	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithInput(stdin), tea.WithOutput(stdout)).Run()
	return err
}
