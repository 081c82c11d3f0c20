package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/quizdesk/core/catalog"
	"github.com/trezcool/quizdesk/core/quiz"
)

var errAnswersEnded = errors.New("answers ended before the quiz was complete")

// runPlain plays entry with one answer per line read from in: an option number (1-based) or its text.
// Rejected answers are reported and the next line is tried on the same question.
// The countdown of timed banks does not apply to scripted answers.
func runPlain(entry *catalog.Entry, in io.Reader, out io.Writer) error {
	p, err := newPlayer(entry, true /* untimed */, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	scanner := bufio.NewScanner(in)
	for p.Phase().Kind != quiz.Complete {
		if !scanner.Scan() {
			if err = scanner.Err(); err != nil {
				return errors.Wrap(err, "reading answers")
			}
			return errors.Wrapf(errAnswersEnded, "at question %d of %d", p.Phase().Index+1, p.eng.Total())
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err = answer(p, line); err != nil {
			fmt.Fprintf(out, "question %d: %q: %v\n", p.Phase().Index+1, line, err)
			continue
		}
		if err = p.Advance(); err != nil {
			return err
		}
	}

	printSummary(p, out)
	return nil
}

func answer(p *player, line string) error {
	choice := quiz.OptionValue(line)
	if n, err := strconv.Atoi(line); err == nil && p.Question().IndexOf(line) < 0 {
		choice = quiz.OptionIndex(n - 1)
	}
	if err := p.Select(choice); err != nil {
		return err
	}
	if p.eng.Variant() == quiz.ExplicitSubmit {
		return p.Submit()
	}
	return nil
}

func printSummary(p *player, out io.Writer) {
	bank := p.eng.Bank()
	fmt.Fprintf(out, "%s: %d/%d (%d%%)\n", p.entry.Title, p.state.Score, p.eng.Total(), p.Percentage())
	for _, rec := range p.state.Answers {
		q := bank.Question(rec.Question)
		if rec.Correct {
			fmt.Fprintf(out, "  Q%02d correct\n", rec.Question+1)
			continue
		}
		want := make([]string, 0, 1)
		for _, i := range q.CorrectIndexes() {
			want = append(want, q.Choices[i])
		}
		fmt.Fprintf(out, "  Q%02d wrong, answer: %s\n", rec.Question+1, strings.Join(want, " or "))
	}
}
