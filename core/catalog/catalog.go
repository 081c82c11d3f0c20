// Package catalog holds the quiz banks offered to learners, indexed by subject and grade.
package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/quiz"
)

var (
	ErrBankNotFound  = errors.New("quiz bank not found")
	ErrDuplicateBank = errors.New("duplicate quiz bank id")
)

type Subject string

const (
	Math        Subject = "math"
	Science     Subject = "science"
	Engineering Subject = "engineering"
)

var Subjects = []Subject{Math, Science, Engineering}

func (s Subject) Valid() bool {
	for _, sub := range Subjects {
		if s == sub {
			return true
		}
	}
	return false
}

const (
	MinGrade = 6
	MaxGrade = 10
)

type Theme struct {
	Accent string `json:"accent"` // #rrggbb
}

// Entry is one quiz of the catalog: a bank and how it is presented.
type Entry struct {
	ID        string
	Title     string
	Subject   Subject
	Grade     int
	Topic     string
	Variant   quiz.Variant
	TimeLimit time.Duration // per question; 0 = untimed
	Theme     Theme
	Bank      *quiz.Bank
	Source    string // file the entry was loaded from
}

func (e *Entry) NewEngine() (*quiz.Engine, error) {
	return quiz.NewEngine(e.Bank, e.Variant)
}

func (e *Entry) Timed() bool { return e.TimeLimit > 0 }

// Summary is the listing view of an Entry.
type Summary struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Subject          Subject      `json:"subject"`
	Grade            int          `json:"grade"`
	Topic            string       `json:"topic"`
	Variant          quiz.Variant `json:"variant"`
	TimeLimitSeconds int          `json:"time_limit_seconds"`
	QuestionCount    int          `json:"question_count"`
	Theme            Theme        `json:"theme"`
}

func (e *Entry) Summary() Summary {
	return Summary{
		ID:               e.ID,
		Title:            e.Title,
		Subject:          e.Subject,
		Grade:            e.Grade,
		Topic:            e.Topic,
		Variant:          e.Variant,
		TimeLimitSeconds: int(e.TimeLimit / time.Second),
		QuestionCount:    e.Bank.Len(),
		Theme:            e.Theme,
	}
}

type Filter struct {
	Subject Subject `query:"subject"`
	Grade   int     `query:"grade"`
	Search  string  `query:"search"`
}

func (f *Filter) Clean() {
	f.Subject = Subject(core.CleanString(string(f.Subject), true /* lower */))
	f.Search = core.CleanString(f.Search, true /* lower */)
}

func (f Filter) match(e *Entry) bool {
	if f.Subject != "" && e.Subject != f.Subject {
		return false
	}
	if f.Grade != 0 && e.Grade != f.Grade {
		return false
	}
	if f.Search != "" &&
		!strings.Contains(strings.ToLower(e.Title), f.Search) &&
		!strings.Contains(strings.ToLower(e.Topic), f.Search) {
		return false
	}
	return true
}

type Catalog struct {
	byID    map[string]*Entry
	entries []*Entry // sorted by grade, subject, title
}

// New indexes the entries; ids must be unique.
func New(entries ...*Entry) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*Entry, len(entries))}
	for _, e := range entries {
		if _, ok := c.byID[e.ID]; ok {
			return nil, errors.Wrapf(ErrDuplicateBank, "%q", e.ID)
		}
		c.byID[e.ID] = e
		c.entries = append(c.entries, e)
	}
	sort.SliceStable(c.entries, func(i, j int) bool {
		a, b := c.entries[i], c.entries[j]
		if a.Grade != b.Grade {
			return a.Grade < b.Grade
		}
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		return a.Title < b.Title
	})
	return c, nil
}

func (c *Catalog) Len() int { return len(c.entries) }

func (c *Catalog) Get(id string) (*Entry, error) {
	if e, ok := c.byID[id]; ok {
		return e, nil
	}
	return nil, ErrBankNotFound
}

// List returns the entries matching f, in catalog order.
func (c *Catalog) List(f Filter) []*Entry {
	entries := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if f.match(e) {
			entries = append(entries, e)
		}
	}
	return entries
}
