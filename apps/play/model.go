package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/trezcool/quizdesk/core/catalog"
	"github.com/trezcool/quizdesk/core/quiz"
)

type screen int

const (
	pickScreen screen = iota
	playScreen
)

type (
	// expiredMsg signals that the countdown revealed the current question.
	expiredMsg struct{}

	tickMsg time.Time
)

// model is the bubbletea model of the player: a bank picker, then the quiz.
type model struct {
	entries []*catalog.Entry
	noColor bool

	screen  screen
	cursor  int // bank on pickScreen, option on playScreen
	player  *player
	expired chan struct{}
	bar     progress.Model
	now     time.Time
	err     error
}

func newModel(entries []*catalog.Entry, noColor bool) model {
	return model{
		entries: entries,
		noColor: noColor,
		expired: make(chan struct{}, 1),
		bar:     progress.New(progress.WithoutPercentage(), progress.WithWidth(40)),
		now:     nowFunc(),
	}
}

// start opens entry right away, skipping the picker.
func (m model) start(entry *catalog.Entry) (model, error) {
	p, err := newPlayer(entry, false, func() {
		select {
		case m.expired <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return m, err
	}
	if m.player != nil {
		m.player.Close()
	}
	m.player = p
	m.screen = playScreen
	m.cursor = 0
	m.err = nil
	m.bar = progress.New(progress.WithoutPercentage(), progress.WithWidth(40), progress.WithSolidFill(m.accentColor()))
	return m, nil
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForExpiry(m.expired), tick())
}

func waitForExpiry(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return expiredMsg{}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-10, 10), 60)
		return m, nil
	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()
	case expiredMsg:
		if m.player != nil {
			m.player.Sync()
		}
		return m, waitForExpiry(m.expired)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			if m.player != nil {
				m.player.Close()
			}
			return m, tea.Quit
		}
		if m.screen == pickScreen {
			return m.updatePick(msg)
		}
		return m.updatePlay(msg)
	}
	return m, nil
}

func (m model) updatePick(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.entries) == 0 {
			return m, nil
		}
		var err error
		if m, err = m.start(m.entries[m.cursor]); err != nil {
			m.err = err
		}
	}
	return m, nil
}

func (m model) updatePlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.player
	phase := p.Phase()
	choices := len(p.Question().Choices)
	m.err = nil

	switch key := msg.String(); key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < choices-1 {
			m.cursor++
		}
	case "enter", " ":
		switch {
		case phase.Kind == quiz.Revealed:
			m.err = p.Advance()
			m.cursor = 0
		case phase.Kind == quiz.Asking && p.eng.Variant() == quiz.ExplicitSubmit &&
			p.state.Selected != nil && *p.state.Selected == m.cursor:
			m.err = p.Submit()
		case phase.Kind == quiz.Asking:
			m.err = p.Select(quiz.OptionIndex(m.cursor))
		}
	case "s":
		m.err = p.Submit()
	case "n":
		m.err = p.Advance()
		m.cursor = 0
	case "r":
		p.Reset()
		m.cursor = 0
	case "b":
		if phase.Kind == quiz.Complete {
			p.Close()
			m.player = nil
			m.screen = pickScreen
			m.cursor = 0
		}
	default:
		// number keys pick an option directly
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= choices {
			m.cursor = n - 1
			m.err = p.Select(quiz.OptionIndex(n - 1))
		}
	}
	return m, nil
}

// Styles

const defaultAccent = "#7c3aed"

func (m model) accentColor() string {
	if m.player != nil {
		return accentOf(m.player.entry)
	}
	return defaultAccent
}

func (m model) stylize(text string, style lipgloss.Style) string {
	if m.noColor {
		return text
	}
	return style.Render(text)
}

func (m model) accent() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(m.accentColor())).Bold(true)
}

var (
	faintStyle = lipgloss.NewStyle().Faint(true)
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a")).Bold(true)
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626")).Bold(true)
)

func (m model) View() string {
	if m.screen == pickScreen {
		return m.viewPick()
	}
	return m.viewPlay()
}

func (m model) viewPick() string {
	var b strings.Builder
	b.WriteString(m.stylize("Pick a quiz", m.accent()) + "\n\n")
	for i, e := range m.entries {
		line := fmt.Sprintf("%s  %-32s %-11s grade %d", pointer(i == m.cursor), e.Title, e.Subject, e.Grade)
		if e.Timed() {
			line += fmt.Sprintf("  %s/question", e.TimeLimit)
		}
		if i == m.cursor {
			line = m.stylize(line, lipgloss.NewStyle().Foreground(lipgloss.Color(accentOf(e))))
		}
		b.WriteString(line + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + m.stylize(m.err.Error(), badStyle) + "\n")
	}
	b.WriteString("\n" + m.stylize("up/down: move • enter: start • q: quit", faintStyle) + "\n")
	return b.String()
}

func (m model) viewPlay() string {
	p := m.player
	phase := p.Phase()
	total := p.eng.Total()

	var b strings.Builder
	b.WriteString(m.stylize(p.entry.Title, m.accent()) + "\n")
	b.WriteString(m.bar.ViewAs(p.Progress()) + fmt.Sprintf("  score %d/%d\n\n", p.state.Score, total))

	if phase.Kind == quiz.Complete {
		b.WriteString(fmt.Sprintf("Done! You scored %d out of %d (%d%%).\n\n", p.state.Score, total, p.Percentage()))
		b.WriteString(m.stylize("r: play again • b: back to the list • q: quit", faintStyle) + "\n")
		return b.String()
	}

	q := p.Question()
	b.WriteString(fmt.Sprintf("Question %d of %d", phase.Index+1, total))
	if q.Difficulty != "" {
		b.WriteString(m.stylize(" • "+string(q.Difficulty), faintStyle))
	}
	if deadline, ok := p.Deadline(); ok {
		left := deadline.Sub(m.now).Round(time.Second)
		if left < 0 {
			left = 0
		}
		b.WriteString(fmt.Sprintf("  ⏱ %s", left))
	}
	b.WriteString("\n" + q.Prompt + "\n\n")

	rec, revealed := p.LastAnswer()
	for i, choice := range q.Choices {
		line := fmt.Sprintf("%s %d. %s", pointer(i == m.cursor && phase.Kind == quiz.Asking), i+1, choice)
		switch {
		case revealed && q.IsCorrect(i):
			line = m.stylize(line+"  ✓", goodStyle)
		case revealed && rec.Selected != nil && *rec.Selected == i:
			line = m.stylize(line+"  ✗", badStyle)
		case p.state.Selected != nil && *p.state.Selected == i:
			line = m.stylize(line, m.accent())
		}
		b.WriteString(line + "\n")
	}

	if revealed {
		switch {
		case rec.TimedOut:
			b.WriteString("\n" + m.stylize("Time's up!", badStyle) + "\n")
		case rec.Correct:
			b.WriteString("\n" + m.stylize("Correct!", goodStyle) + "\n")
		default:
			b.WriteString("\n" + m.stylize("Not quite.", badStyle) + "\n")
		}
		if q.Explanation != "" {
			b.WriteString(q.Explanation + "\n")
		}
	}
	if m.err != nil {
		b.WriteString("\n" + m.stylize(m.err.Error(), badStyle) + "\n")
	}

	help := "1-9/enter: answer • r: restart • q: quit"
	switch {
	case revealed:
		help = "enter/n: next • r: restart • q: quit"
	case p.eng.Variant() == quiz.ExplicitSubmit:
		help = "1-9/enter: choose • enter again/s: submit • r: restart • q: quit"
	}
	b.WriteString("\n" + m.stylize(help, faintStyle) + "\n")
	return b.String()
}

func pointer(on bool) string {
	if on {
		return ">"
	}
	return " "
}

func accentOf(e *catalog.Entry) string {
	if e.Theme.Accent != "" {
		return e.Theme.Accent
	}
	return defaultAccent
}
