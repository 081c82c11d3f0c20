// Package dashboard shapes classroom rows into the teacher's reports and chart data.
package dashboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/catalog"
	"github.com/trezcool/quizdesk/core/classroom"
)

const (
	DefaultWeeks = 8
	MaxWeeks     = 52

	recentLimit = 10
)

type ChartType string

const (
	Bar      ChartType = "bar"
	Doughnut ChartType = "doughnut"
	Line     ChartType = "line"
)

type Dataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

// Chart is chart-library input: one label per point, one value per label in each dataset.
type Chart struct {
	Type     ChartType `json:"type"`
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type StatusCounts struct {
	Pending   int `json:"pending"`
	Submitted int `json:"submitted"`
	Late      int `json:"late"`
	Graded    int `json:"graded"`
	Overdue   int `json:"overdue"`
}

func (c *StatusCounts) add(s classroom.Status) {
	switch s {
	case classroom.StatusPending:
		c.Pending++
	case classroom.StatusSubmitted:
		c.Submitted++
	case classroom.StatusLate:
		c.Late++
	case classroom.StatusGraded:
		c.Graded++
	case classroom.StatusOverdue:
		c.Overdue++
	}
}

// Done counts the work handed in, graded or not.
func (c StatusCounts) Done() int { return c.Submitted + c.Late + c.Graded }

func (c StatusCounts) chart() Chart {
	return Chart{
		Type:   Doughnut,
		Labels: []string{"Pending", "Submitted", "Late", "Graded", "Overdue"},
		Datasets: []Dataset{{
			Label: "Submissions",
			Data:  []float64{float64(c.Pending), float64(c.Submitted), float64(c.Late), float64(c.Graded), float64(c.Overdue)},
		}},
	}
}

type StudentAverage struct {
	StudentID string   `json:"student_id"`
	Name      string   `json:"name"`
	ClassName string   `json:"class_name"`
	Graded    int      `json:"graded"`
	Average   *float64 `json:"average"` // nil until graded once
}

type Overview struct {
	TotalStudents    int              `json:"total_students"`
	TotalAssignments int              `json:"total_assignments"`
	TotalSubmissions int              `json:"total_submissions"`
	Statuses         StatusCounts     `json:"statuses"`
	AverageGrade     *float64         `json:"average_grade"`
	CompletionRate   float64          `json:"completion_rate"` // % of submissions handed in
	StatusChart      Chart            `json:"status_chart"`
	SubjectChart     Chart            `json:"subject_chart"`
	Students         []StudentAverage `json:"students"`
}

type average struct {
	sum float64
	n   int
}

func (a *average) add(f float64) {
	a.sum += f
	a.n++
}

func (a average) value() *float64 {
	if a.n == 0 {
		return nil
	}
	v := core.Round1(a.sum / float64(a.n))
	return &v
}

func (a average) valueOrZero() float64 {
	if v := a.value(); v != nil {
		return *v
	}
	return 0
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return core.Round1(100 * float64(part) / float64(total))
}

// subjectChart is a bar chart of the average grade per subject, in catalog order, subjects with no grade omitted.
func subjectChart(bySubject map[catalog.Subject]*average) Chart {
	c := Chart{Type: Bar, Labels: []string{}, Datasets: []Dataset{{Label: "Average grade", Data: []float64{}}}}
	for _, sub := range catalog.Subjects {
		avg, ok := bySubject[sub]
		if !ok || avg.n == 0 {
			continue
		}
		c.Labels = append(c.Labels, string(sub))
		c.Datasets[0].Data = append(c.Datasets[0].Data, avg.valueOrZero())
	}
	return c
}

// BuildOverview summarizes the submissions of a teacher's students.
func BuildOverview(students []classroom.Student, subs []classroom.Submission, now time.Time) Overview {
	ov := Overview{
		TotalStudents:    len(students),
		TotalSubmissions: len(subs),
		Students:         make([]StudentAverage, 0, len(students)),
	}

	var total average
	bySubject := make(map[catalog.Subject]*average)
	byStudent := make(map[string]*average)
	assignments := make(map[string]bool)
	for _, s := range subs {
		assignments[s.AssignmentID] = true
		ov.Statuses.add(s.EffectiveStatus(now))
		if s.Status != classroom.StatusGraded || s.Grade == nil {
			continue
		}
		total.add(*s.Grade)
		if bySubject[s.Subject] == nil {
			bySubject[s.Subject] = new(average)
		}
		bySubject[s.Subject].add(*s.Grade)
		if byStudent[s.StudentID] == nil {
			byStudent[s.StudentID] = new(average)
		}
		byStudent[s.StudentID].add(*s.Grade)
	}

	ov.TotalAssignments = len(assignments)
	ov.AverageGrade = total.value()
	ov.CompletionRate = percent(ov.Statuses.Done(), len(subs))
	ov.StatusChart = ov.Statuses.chart()
	ov.SubjectChart = subjectChart(bySubject)

	for _, stu := range students {
		sa := StudentAverage{StudentID: stu.ID, Name: stu.Name, ClassName: stu.ClassName}
		if avg, ok := byStudent[stu.ID]; ok {
			sa.Graded = avg.n
			sa.Average = avg.value()
		}
		ov.Students = append(ov.Students, sa)
	}
	sort.SliceStable(ov.Students, func(i, j int) bool { return ov.Students[i].Name < ov.Students[j].Name })
	return ov
}

type StudentReport struct {
	Student          classroom.Student       `json:"student"`
	TotalAssignments int                     `json:"total_assignments"`
	Statuses         StatusCounts            `json:"statuses"`
	AverageGrade     *float64                `json:"average_grade"`
	CompletionRate   float64                 `json:"completion_rate"`
	SubjectChart     Chart                   `json:"subject_chart"`
	Recent           []classroom.Submission  `json:"recent"`   // newest due date first
	Attempts         []classroom.QuizAttempt `json:"attempts"` // newest first
	QuizAverage      *float64                `json:"quiz_average"`
}

// BuildStudentReport reports on one student; rows of other students are ignored.
func BuildStudentReport(stu classroom.Student, subs []classroom.Submission, attempts []classroom.QuizAttempt, now time.Time) StudentReport {
	rep := StudentReport{
		Student:  stu,
		Recent:   make([]classroom.Submission, 0),
		Attempts: make([]classroom.QuizAttempt, 0),
	}

	var total average
	bySubject := make(map[catalog.Subject]*average)
	for _, s := range subs {
		if s.StudentID != stu.ID {
			continue
		}
		s.Status = s.EffectiveStatus(now)
		rep.Statuses.add(s.Status)
		rep.Recent = append(rep.Recent, s)
		if s.Status != classroom.StatusGraded || s.Grade == nil {
			continue
		}
		total.add(*s.Grade)
		if bySubject[s.Subject] == nil {
			bySubject[s.Subject] = new(average)
		}
		bySubject[s.Subject].add(*s.Grade)
	}
	rep.TotalAssignments = len(rep.Recent)
	rep.AverageGrade = total.value()
	rep.CompletionRate = percent(rep.Statuses.Done(), rep.TotalAssignments)
	rep.SubjectChart = subjectChart(bySubject)

	sort.SliceStable(rep.Recent, func(i, j int) bool { return rep.Recent[i].DueDate.After(rep.Recent[j].DueDate) })
	if len(rep.Recent) > recentLimit {
		rep.Recent = rep.Recent[:recentLimit]
	}

	var quizAvg average
	for _, a := range attempts {
		if a.StudentID != stu.ID {
			continue
		}
		rep.Attempts = append(rep.Attempts, a)
		quizAvg.add(float64(a.Percentage))
	}
	sort.SliceStable(rep.Attempts, func(i, j int) bool { return rep.Attempts[i].CompletedAt.After(rep.Attempts[j].CompletedAt) })
	rep.QuizAverage = quizAvg.value()
	return rep
}

type Trends struct {
	Weeks int   `json:"weeks"`
	Chart Chart `json:"chart"`
}

// NormalizeWeeks bounds a requested number of weeks to [1, MaxWeeks], defaulting to DefaultWeeks.
func NormalizeWeeks(weeks int) int {
	switch {
	case weeks <= 0:
		return DefaultWeeks
	case weeks > MaxWeeks:
		return MaxWeeks
	}
	return weeks
}

// weekStart returns the Monday 00:00 UTC of t's ISO week.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7 // days since Monday
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weekLabel(start time.Time) string {
	y, w := start.ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}

// BuildTrends counts the work handed in per ISO week and averages the grades given per week,
// over the last `weeks` weeks up to now's week, oldest first.
func BuildTrends(subs []classroom.Submission, now time.Time, weeks int) Trends {
	weeks = NormalizeWeeks(weeks)
	current := weekStart(now)
	first := current.AddDate(0, 0, -7*(weeks-1))

	labels := make([]string, weeks)
	for i := range labels {
		labels[i] = weekLabel(first.AddDate(0, 0, 7*i))
	}
	counts := make([]float64, weeks)
	grades := make([]average, weeks)

	index := func(t *time.Time) int {
		if t == nil {
			return -1
		}
		days := int(weekStart(*t).Sub(first).Hours() / 24)
		i := days / 7
		if days < 0 || i >= weeks {
			return -1
		}
		return i
	}

	for _, s := range subs {
		if i := index(s.SubmittedAt); i >= 0 {
			counts[i]++
		}
		if s.Status == classroom.StatusGraded && s.Grade != nil {
			if i := index(s.GradedAt); i >= 0 {
				grades[i].add(*s.Grade)
			}
		}
	}

	avgs := make([]float64, weeks)
	for i, g := range grades {
		avgs[i] = g.valueOrZero()
	}
	return Trends{
		Weeks: weeks,
		Chart: Chart{
			Type:   Line,
			Labels: labels,
			Datasets: []Dataset{
				{Label: "Submissions", Data: counts},
				{Label: "Average grade", Data: avgs},
			},
		},
	}
}
