package catalog

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/quizdesk/core"
)

// NearDuplicateRatio is the prompt similarity from which two questions of a bank are reported.
const NearDuplicateRatio = .95

type WarningKind string

const (
	WarnNearDuplicate   WarningKind = "near-duplicate"
	WarnDuplicateChoice WarningKind = "duplicate-choice"
	WarnReviewNote      WarningKind = "review-note"
	WarnNoExplanation   WarningKind = "no-explanation"
)

type Warning struct {
	BankID   string
	Question int // 1-based
	Kind     WarningKind
	Message  string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s #%d [%s] %s", w.BankID, w.Question, w.Kind, w.Message)
}

// Lint reports content problems that do not prevent a bank from loading.
// Flagged content is reported as is; nothing is rewritten.
func Lint(c *Catalog) []Warning {
	var warns []Warning
	for _, e := range c.entries {
		warns = append(warns, lintEntry(e)...)
	}
	return warns
}

func lintEntry(e *Entry) []Warning {
	var warns []Warning
	questions := e.Bank.Questions()
	words := make([][]string, len(questions))
	for i, q := range questions {
		words[i] = strings.Fields(core.CleanString(q.Prompt, true /* lower */))
	}

	for i, q := range questions {
		num := i + 1
		if q.ReviewNote != "" {
			warns = append(warns, Warning{BankID: e.ID, Question: num, Kind: WarnReviewNote, Message: q.ReviewNote})
		}
		if strings.TrimSpace(q.Explanation) == "" {
			warns = append(warns, Warning{BankID: e.ID, Question: num, Kind: WarnNoExplanation, Message: "no explanation shown after reveal"})
		}

		seen := make(map[string]int, len(q.Choices))
		for j, ch := range q.Choices {
			key := core.CleanString(ch, true /* lower */)
			if first, ok := seen[key]; ok {
				warns = append(warns, Warning{
					BankID: e.ID, Question: num, Kind: WarnDuplicateChoice,
					Message: fmt.Sprintf("choices %d and %d are both %q", first+1, j+1, ch),
				})
				continue
			}
			seen[key] = j
		}

		for j := 0; j < i; j++ {
			if ratio := similarity(words[j], words[i]); ratio >= NearDuplicateRatio {
				warns = append(warns, Warning{
					BankID: e.ID, Question: num, Kind: WarnNearDuplicate,
					Message: fmt.Sprintf("prompt is %.0f%% similar to question %d", ratio*100, j+1),
				})
			}
		}
	}
	return warns
}

func similarity(a, b []string) float64 {
	m := difflib.NewMatcher(a, b)
	if m.QuickRatio() < NearDuplicateRatio {
		return m.QuickRatio()
	}
	return m.Ratio()
}
