package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/lms-registry/internal/models"
	"github.com/SAP-F-2025/lms-registry/internal/services"
)

var ErrNoIdentity = errors.New("plan has no identity")

type ExamResult struct {
	Name    string             `json:"name"`
	Index   int                `json:"index"`
	Address models.ExamAddress `json:"address"`
}

type CourseResult struct {
	Name  string       `json:"name"`
	ID    uint         `json:"id"`
	Exams []ExamResult `json:"exams"`
}

// Result holds everything a run created, up to the first failure.
type Result struct {
	Identity   string         `json:"identity"`
	Registered bool           `json:"registered"`
	Courses    []CourseResult `json:"courses"`
}

// Print writes one line per created course and exam.
func (r *Result) Print(w io.Writer) {
	if r.Registered {
		fmt.Fprintf(w, "registered %s\n", r.Identity)
	}
	for _, c := range r.Courses {
		fmt.Fprintf(w, "course %s id=%d\n", c.Name, c.ID)
		for _, e := range c.Exams {
			fmt.Fprintf(w, "  exam %s index=%d address=%s\n", e.Name, e.Index, e.Address)
		}
	}
}

// Failure describes the step a run stopped at.
type Failure struct {
	Step   string
	Kind   services.ErrorKind
	Inputs map[string]string
	Err    error
}

func (f *Failure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", f.Step)
	if f.Kind != services.KindNone {
		fmt.Fprintf(&b, " [%s]", f.Kind)
	}
	fmt.Fprintf(&b, ": %v", f.Err)
	for _, k := range sortedKeys(f.Inputs) {
		fmt.Fprintf(&b, "\n  %s = %q", k, f.Inputs[k])
	}
	return b.String()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Runner applies a plan step by step. Each step is submitted only after
// the previous one has settled, and the run stops at the first failure.
type Runner struct {
	target Target
	logger *slog.Logger
}

func NewRunner(target Target, logger *slog.Logger) *Runner {
	return &Runner{target: target, logger: logger}
}

// Run applies plan. On failure it returns the partial result together with
// a *Failure.
func (r *Runner) Run(ctx context.Context, plan *Plan) (*Result, error) {
	result := &Result{Identity: plan.Identity}
	if strings.TrimSpace(plan.Identity) == "" {
		return result, ErrNoIdentity
	}

	r.logger.Info("Applying deploy plan", "identity", plan.Identity, "steps", plan.StepCount())

	if u := plan.User; u != nil {
		req := &services.RegisterUserRequest{
			DisplayName: u.DisplayName,
			Bio:         u.Bio,
			IsLecturer:  u.IsLecturer,
			Extra:       u.Extra,
		}
		if err := r.target.RegisterUser(ctx, plan.Identity, req); err != nil {
			return result, newFailure("register user", err, map[string]string{
				"identity":     plan.Identity,
				"display_name": u.DisplayName,
				"is_lecturer":  fmt.Sprint(u.IsLecturer),
			})
		}
		result.Registered = true
		r.logger.Info("User registered", "identity", plan.Identity, "is_lecturer", u.IsLecturer)
	}

	for _, course := range plan.Courses {
		courseID, err := r.target.CreateCourse(ctx, plan.Identity, &services.CreateCourseRequest{
			Title:       course.Title,
			Description: course.Description,
		})
		if err != nil {
			return result, newFailure(fmt.Sprintf("create course %q", course.Name), err, map[string]string{
				"identity": plan.Identity,
				"title":    course.Title,
			})
		}
		r.logger.Info("Course created", "course", course.Name, "course_id", courseID)

		result.Courses = append(result.Courses, CourseResult{Name: course.Name, ID: courseID})
		created := &result.Courses[len(result.Courses)-1]

		for _, exam := range course.Exams {
			inputs := map[string]string{
				"identity":         plan.Identity,
				"course_id":        fmt.Sprint(courseID),
				"title":            exam.Title,
				"duration_seconds": fmt.Sprint(exam.DurationSeconds),
			}
			step := fmt.Sprintf("create exam %q in course %q", exam.Name, course.Name)

			index, err := r.target.CreateExam(ctx, plan.Identity, courseID, &services.CreateExamRequest{
				Title:           exam.Title,
				DurationSeconds: exam.DurationSeconds,
			})
			if err != nil {
				return result, newFailure(step, err, inputs)
			}

			addr, err := r.target.GetExamAddress(ctx, courseID, index)
			if err != nil {
				inputs["exam_index"] = fmt.Sprint(index)
				return result, newFailure(fmt.Sprintf("resolve address of exam %q", exam.Name), err, inputs)
			}
			r.logger.Info("Exam created", "exam", exam.Name, "course_id", courseID, "exam_index", index, "address", addr)

			created.Exams = append(created.Exams, ExamResult{Name: exam.Name, Index: index, Address: addr})
		}
	}

	return result, nil
}

func newFailure(step string, err error, inputs map[string]string) *Failure {
	return &Failure{
		Step:   step,
		Kind:   services.KindOf(err),
		Inputs: inputs,
		Err:    err,
	}
}
