package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/trezcool/quizdesk/core/catalog"
)

func (cli *commandLine) listBanks(filter catalog.Filter) error {
	filter.Clean()
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSUBJECT\tGRADE\tVARIANT\tTIMER\tQUESTIONS\tTITLE")
	for _, e := range cli.catalog.List(filter) {
		timer := "-"
		if e.Timed() {
			timer = e.TimeLimit.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%d\t%s\n", e.ID, e.Subject, e.Grade, e.Variant, timer, e.Bank.Len(), e.Title)
	}
	return w.Flush()
}

// lintBanks prints the content warnings of every bank. Warnings never fail the command.
func (cli *commandLine) lintBanks() error {
	warns := catalog.Lint(cli.catalog)
	for _, w := range warns {
		fmt.Fprintln(cli.out, w)
	}
	fmt.Fprintf(cli.out, "%d banks, %d warnings\n", cli.catalog.Len(), len(warns))
	return nil
}
