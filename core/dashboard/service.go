package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/classroom"
)

// NowFunc is mocked in tests.
var NowFunc = func() time.Time { return time.Now().UTC() }

// Snapshot is what the live dashboard pushes on every refresh.
type Snapshot struct {
	Overview    Overview  `json:"overview"`
	Trends      Trends    `json:"trends"`
	GeneratedAt time.Time `json:"generated_at"`
}

type Service struct {
	repo   classroom.Repository
	logger core.Logger
}

func NewService(repo classroom.Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) Overview(ctx context.Context, teacherID string) (Overview, error) {
	students, err := svc.repo.GetTeacherStudents(ctx, teacherID)
	if err != nil {
		return Overview{}, errors.Wrap(err, "fetching students")
	}
	subs, err := svc.repo.GetTeacherSubmissions(ctx, teacherID)
	if err != nil {
		return Overview{}, errors.Wrap(err, "fetching submissions")
	}
	return BuildOverview(students, subs, NowFunc()), nil
}

// StudentReport returns classroom.ErrNotFound when the student is not one of the teacher's.
func (svc *Service) StudentReport(ctx context.Context, teacherID, studentID string) (StudentReport, error) {
	students, err := svc.repo.GetTeacherStudents(ctx, teacherID)
	if err != nil {
		return StudentReport{}, errors.Wrap(err, "fetching students")
	}
	var (
		stu   classroom.Student
		found bool
	)
	for _, s := range students {
		if s.ID == studentID {
			stu, found = s, true
			break
		}
	}
	if !found {
		return StudentReport{}, classroom.ErrNotFound
	}

	subs, err := svc.repo.GetTeacherSubmissions(ctx, teacherID)
	if err != nil {
		return StudentReport{}, errors.Wrap(err, "fetching submissions")
	}
	attempts, err := svc.repo.QueryAttempts(ctx, teacherID, studentID)
	if err != nil {
		return StudentReport{}, errors.Wrap(err, "fetching quiz attempts")
	}
	return BuildStudentReport(stu, subs, attempts, NowFunc()), nil
}

func (svc *Service) Trends(ctx context.Context, teacherID string, weeks int) (Trends, error) {
	subs, err := svc.repo.GetTeacherSubmissions(ctx, teacherID)
	if err != nil {
		return Trends{}, errors.Wrap(err, "fetching submissions")
	}
	return BuildTrends(subs, NowFunc(), weeks), nil
}

func (svc *Service) Snapshot(ctx context.Context, teacherID string) (Snapshot, error) {
	students, err := svc.repo.GetTeacherStudents(ctx, teacherID)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "fetching students")
	}
	subs, err := svc.repo.GetTeacherSubmissions(ctx, teacherID)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "fetching submissions")
	}
	now := NowFunc()
	return Snapshot{
		Overview:    BuildOverview(students, subs, now),
		Trends:      BuildTrends(subs, now, DefaultWeeks),
		GeneratedAt: now,
	}, nil
}

// Watch pushes a snapshot right away, then one every interval until ctx is done or push fails.
// A failed fetch is logged and skipped: the client keeps the last snapshot it got.
func (svc *Service) Watch(ctx context.Context, teacherID string, interval time.Duration, push func(Snapshot) error) error {
	refresh := func() error {
		snap, err := svc.Snapshot(ctx, teacherID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			svc.logger.Error(fmt.Sprintf("refreshing dashboard: %v", err), err, core.Person{ID: teacherID})
			return nil
		}
		return push(snap)
	}

	if err := refresh(); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := refresh(); err != nil {
				return err
			}
		}
	}
}
