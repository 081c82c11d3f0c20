package catalog

import (
	"bytes"
	"io/fs"
	"path"
	"regexp"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/quizdesk/core/quiz"
)

var (
	idRegex     = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	accentRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

type (
	bankDoc struct {
		ID               string        `yaml:"id" json:"id"`
		Title            string        `yaml:"title" json:"title"`
		Subject          Subject       `yaml:"subject" json:"subject"`
		Grade            int           `yaml:"grade" json:"grade"`
		Topic            string        `yaml:"topic" json:"topic"`
		Variant          string        `yaml:"variant" json:"variant"`
		TimeLimitSeconds int           `yaml:"time_limit_seconds" json:"time_limit_seconds"`
		Theme            themeDoc      `yaml:"theme" json:"theme"`
		Questions        []questionDoc `yaml:"questions" json:"questions"`
	}

	themeDoc struct {
		Accent string `yaml:"accent" json:"accent"`
	}

	questionDoc struct {
		Prompt      string     `yaml:"prompt" json:"prompt"`
		Choices     []string   `yaml:"choices" json:"choices"`
		Correct     correctDoc `yaml:"correct" json:"correct"`
		Explanation string     `yaml:"explanation" json:"explanation"`
		Difficulty  string     `yaml:"difficulty" json:"difficulty"`
		Topic       string     `yaml:"topic" json:"topic"`
		ReviewNote  string     `yaml:"review_note" json:"review_note"`
	}

	// correctDoc decodes an integer as quiz.ByIndex and a string as quiz.ByValue.
	correctDoc struct {
		value quiz.Correctness
	}
)

func (c *correctDoc) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: correct must be an option index or an option value", n.Line)
	}
	switch n.ShortTag() {
	case "!!int":
		var i int
		if err := n.Decode(&i); err != nil {
			return err
		}
		c.value = quiz.ByIndex(i)
	case "!!str":
		c.value = quiz.ByValue(n.Value)
	default:
		return errors.Errorf("line %d: correct must be an option index or a quoted option value, got %s", n.Line, n.ShortTag())
	}
	return nil
}

func (c *correctDoc) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		c.value = quiz.ByValue(s)
		return nil
	}
	i, err := strconv.Atoi(string(data))
	if err != nil {
		return errors.Errorf("correct must be an option index or an option value, got %s", data)
	}
	c.value = quiz.ByIndex(i)
	return nil
}

// Load reads every *.yaml, *.yml and *.json bank under dir.
// All problems found are reported together.
func Load(fsys fs.FS, dir string) (*Catalog, error) {
	des, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading banks dir")
	}

	var errs *multierror.Error
	entries := make([]*Entry, 0, len(des))
	seen := make(map[string]string, len(des))
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		fp := path.Join(dir, de.Name())
		var doc bankDoc
		switch path.Ext(fp) {
		case ".yaml", ".yml":
			err = decodeYAML(fsys, fp, &doc)
		case ".json":
			err = decodeJSON(fsys, fp, &doc)
		default:
			continue
		}
		if err != nil {
			errs = multierror.Append(errs, errors.Wrap(err, fp))
			continue
		}

		entry, dErrs := doc.entry(fp)
		if dErrs != nil {
			errs = multierror.Append(errs, dErrs.Errors...)
			continue
		}
		if other, ok := seen[entry.ID]; ok {
			errs = multierror.Append(errs, errors.Wrapf(ErrDuplicateBank, "%s: %q already defined in %s", fp, entry.ID, other))
			continue
		}
		seen[entry.ID] = fp
		entries = append(entries, entry)
	}
	if err = errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return New(entries...)
}

func decodeYAML(fsys fs.FS, fp string, doc *bankDoc) error {
	data, err := fs.ReadFile(fsys, fp)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(doc)
}

func decodeJSON(fsys fs.FS, fp string, doc *bankDoc) error {
	data, err := fs.ReadFile(fsys, fp)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(doc)
}

func (doc bankDoc) entry(fp string) (*Entry, *multierror.Error) {
	var errs *multierror.Error
	fail := func(format string, args ...interface{}) {
		errs = multierror.Append(errs, errors.Errorf("%s: "+format, append([]interface{}{fp}, args...)...))
	}

	if !idRegex.MatchString(doc.ID) {
		fail("id %q must be lowercase words joined by dashes", doc.ID)
	}
	if doc.Title == "" {
		fail("title is required")
	}
	if !doc.Subject.Valid() {
		fail("unknown subject %q", doc.Subject)
	}
	if doc.Grade < MinGrade || doc.Grade > MaxGrade {
		fail("grade %d out of range [%d, %d]", doc.Grade, MinGrade, MaxGrade)
	}
	variant, err := quiz.ParseVariant(doc.Variant)
	if err != nil {
		fail("%v", err)
	}
	if doc.TimeLimitSeconds < 0 {
		fail("time_limit_seconds must not be negative")
	}
	if doc.Theme.Accent != "" && !accentRegex.MatchString(doc.Theme.Accent) {
		fail("theme.accent %q must be a #rrggbb color", doc.Theme.Accent)
	}

	questions := make([]quiz.Question, 0, len(doc.Questions))
	for _, qd := range doc.Questions {
		questions = append(questions, quiz.Question{
			Prompt:      qd.Prompt,
			Choices:     qd.Choices,
			Correct:     qd.Correct.value,
			Explanation: qd.Explanation,
			Difficulty:  quiz.Difficulty(qd.Difficulty),
			Topic:       qd.Topic,
			ReviewNote:  qd.ReviewNote,
		})
	}
	bank, err := quiz.NewBank(doc.ID, doc.Title, questions)
	if err != nil {
		fail("%v", err)
	}

	if errs != nil {
		return nil, errs
	}
	return &Entry{
		ID:        doc.ID,
		Title:     doc.Title,
		Subject:   doc.Subject,
		Grade:     doc.Grade,
		Topic:     doc.Topic,
		Variant:   variant,
		TimeLimit: time.Duration(doc.TimeLimitSeconds) * time.Second,
		Theme:     Theme{Accent: doc.Theme.Accent},
		Bank:      bank,
		Source:    fp,
	}, nil
}
