package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/SAP-F-2025/lms-registry/internal/address"
	"github.com/SAP-F-2025/lms-registry/internal/events"
	"github.com/SAP-F-2025/lms-registry/internal/ledger"
	"github.com/SAP-F-2025/lms-registry/internal/models"
	"github.com/SAP-F-2025/lms-registry/internal/repositories"
	"github.com/SAP-F-2025/lms-registry/internal/repositories/memory"
	"github.com/SAP-F-2025/lms-registry/internal/validator"
)

type testEnv struct {
	repo      repositories.Repository
	users     UserDirectory
	registry  CourseExamRegistry
	publisher *events.MockEventPublisher
}

func newTestEnv(t *testing.T, policy RegistrationPolicy) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.New().Repository()
	l := ledger.New(16, logger)
	l.Start()
	t.Cleanup(func() { l.Close() })

	publisher := events.NewMockEventPublisher(logger)
	v := validator.New()
	deriver := address.NewDeriver(address.RegistryFromName("test-registry"))

	return &testEnv{
		repo:      repo,
		users:     NewUserDirectory(repo, l, publisher, logger, v, policy),
		registry:  NewRegistryService(repo, l, deriver, publisher, logger, v),
		publisher: publisher,
	}
}

func (e *testEnv) register(t *testing.T, identity string, lecturer bool) {
	t.Helper()
	_, err := e.users.RegisterUser(context.Background(), identity, &RegisterUserRequest{
		DisplayName: identity,
		IsLecturer:  lecturer,
	})
	if err != nil {
		t.Fatalf("RegisterUser(%s) error = %v", identity, err)
	}
}

func (e *testEnv) course(t *testing.T, owner, title string) uint {
	t.Helper()
	c, err := e.registry.CreateCourse(context.Background(), owner, &CreateCourseRequest{Title: title})
	if err != nil {
		t.Fatalf("CreateCourse(%s) error = %v", title, err)
	}
	return c.ID
}

func TestRegistry_EndToEnd(t *testing.T) {
	env := newTestEnv(t, PolicyOverwrite)
	ctx := context.Background()

	env.register(t, "A", true)

	course, err := env.registry.CreateCourse(ctx, "A", &CreateCourseRequest{Title: "Blockchain 101", Description: "Intro"})
	if err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}
	if course.ID != 1 {
		t.Fatalf("courseId = %d, want 1", course.ID)
	}

	exam, err := env.registry.CreateExam(ctx, "A", 1, &CreateExamRequest{Title: "Midterm Exam", DurationSeconds: 3600})
	if err != nil {
		t.Fatalf("CreateExam() error = %v", err)
	}
	if exam.Index != 0 {
		t.Fatalf("examIndex = %d, want 0", exam.Index)
	}

	addr, err := env.registry.GetExamAddress(ctx, 1, 0)
	if err != nil {
		t.Fatalf("GetExamAddress(1,0) error = %v", err)
	}
	if addr == "" {
		t.Fatal("GetExamAddress(1,0) returned an empty address")
	}
	if addr != exam.Address {
		t.Errorf("GetExamAddress(1,0) = %s, CreateExam reported %s", addr, exam.Address)
	}

	if _, err := env.registry.GetExamAddress(ctx, 1, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetExamAddress(1,1) error = %v, want NotFound", err)
	}

	published := env.publisher.GetPublishedEvents()
	wantTypes := []models.EventType{models.EventUserRegistered, models.EventCourseCreated, models.EventExamCreated}
	if len(published) != len(wantTypes) {
		t.Fatalf("published %d events, want %d", len(published), len(wantTypes))
	}
	for i, want := range wantTypes {
		if published[i].Type != want {
			t.Errorf("event[%d] = %s, want %s", i, published[i].Type, want)
		}
	}
}

func TestRegistry_CreateCourseRequiresLecturer(t *testing.T) {
	env := newTestEnv(t, PolicyOverwrite)
	ctx := context.Background()

	env.register(t, "student", false)
	env.register(t, "lecturer", true)
	env.course(t, "lecturer", "Existing")

	tests := []struct {
		name   string
		caller string
		req    CreateCourseRequest
	}{
		{name: "student", caller: "student", req: CreateCourseRequest{Title: "Nope"}},
		{name: "unregistered", caller: "ghost", req: CreateCourseRequest{Title: "Nope"}},
		{name: "empty identity", caller: "", req: CreateCourseRequest{Title: "Nope"}},
		{name: "student with invalid title", caller: "student", req: CreateCourseRequest{Title: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.registry.CreateCourse(ctx, tt.caller, &tt.req)
			if KindOf(err) != KindUnauthorized {
				t.Fatalf("CreateCourse() error = %v, want Unauthorized", err)
			}
			var permErr *PermissionError
			if !errors.As(err, &permErr) {
				t.Errorf("error %T is not a *PermissionError", err)
			}

			count, _ := env.registry.CourseCount(ctx)
			if count != 1 {
				t.Errorf("course count = %d, want 1", count)
			}
		})
	}
}

func TestRegistry_CourseIDsAreSequential(t *testing.T) {
	env := newTestEnv(t, PolicyOverwrite)
	env.register(t, "A", true)
	env.register(t, "B", true)

	const n = 10
	for i := 1; i <= n; i++ {
		owner := "A"
		if i%2 == 0 {
			owner = "B"
		}
		if id := env.course(t, owner, "Course"); id != uint(i) {
			t.Fatalf("course %d got id %d", i, id)
		}
	}

	// A failed creation must not consume an id.
	if _, err := env.registry.CreateCourse(context.Background(), "A", &CreateCourseRequest{Title: ""}); KindOf(err) != KindInvalidArgument {
		t.Fatalf("CreateCourse(empty title) error = %v, want InvalidArgument", err)
	}
	if id := env.course(t, "A", "After failure"); id != n+1 {
		t.Errorf("id after failed create = %d, want %d", id, n+1)
	}
}

func TestRegistry_ExamIndicesPerCourse(t *testing.T) {
	env := newTestEnv(t, PolicyOverwrite)
	ctx := context.Background()
	env.register(t, "A", true)
	first := env.course(t, "A", "First")
	second := env.course(t, "A", "Second")

	for i := 0; i < 5; i++ {
		exam, err := env.registry.CreateExam(ctx, "A", first, &CreateExamRequest{Title: "Quiz", DurationSeconds: 600})
		if err != nil {
			t.Fatalf("CreateExam() error = %v", err)
		}
		if exam.Index != i {
			t.Fatalf("exam %d got index %d", i, exam.Index)
		}
	}

	exam, err := env.registry.CreateExam(ctx, "A", second, &CreateExamRequest{Title: "Final", DurationSeconds: 7200})
	if err != nil {
		t.Fatalf("CreateExam() error = %v", err)
	}
	if exam.Index != 0 {
		t.Errorf("first exam of second course got index %d, want 0", exam.Index)
	}

	exams, err := env.registry.ListExams(ctx, first)
	if err != nil {
		t.Fatalf("ListExams() error = %v", err)
	}
	for i, e := range exams {
		if e.Index != i {
			t.Errorf("ListExams()[%d].Index = %d", i, e.Index)
		}
	}

	course, _ := env.registry.GetCourse(ctx, first)
	if course.ExamCount != 5 {
		t.Errorf("ExamCount = %d, want 5", course.ExamCount)
	}
}

func TestRegistry_CreateExamErrors(t *testing.T) {
	env := newTestEnv(t, PolicyOverwrite)
	ctx := context.Background()
	env.register(t, "A", true)
	env.register(t, "B", true)
	courseID := env.course(t, "A", "Owned by A")

	tests := []struct {
		name     string
		caller   string
		courseID uint
		req      CreateExamRequest
		want     ErrorKind
	}{
		{name: "missing course", caller: "A", courseID: 99, req: CreateExamRequest{Title: "x", DurationSeconds: 60}, want: KindNotFound},
		{name: "missing course beats bad duration", caller: "B", courseID: 99, req: CreateExamRequest{Title: "x", DurationSeconds: 0}, want: KindNotFound},
		{name: "not owner", caller: "B", courseID: courseID, req: CreateExamRequest{Title: "x", DurationSeconds: 60}, want: KindUnauthorized},
		{name: "not owner beats bad duration", caller: "B", courseID: courseID, req: CreateExamRequest{Title: "x", DurationSeconds: -1}, want: KindUnauthorized},
		{name: "zero duration", caller: "A", courseID: courseID, req: CreateExamRequest{Title: "x", DurationSeconds: 0}, want: KindInvalidArgument},
		{name: "negative duration", caller: "A", courseID: courseID, req: CreateExamRequest{Title: "x", DurationSeconds: -60}, want: KindInvalidArgument},
		{name: "empty title", caller: "A", courseID: courseID, req: CreateExamRequest{Title: "", DurationSeconds: 60}, want: KindInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.registry.CreateExam(ctx, tt.caller, tt.courseID, &tt.req)
			if got := KindOf(err); got != tt.want {
				t.Fatalf("CreateExam() error = %v (kind %q), want %q", err, got, tt.want)
			}

			exams, _ := env.registry.ListExams(ctx, courseID)
			if len(exams) != 0 {
				t.Errorf("exam list changed after failure: %d exams", len(exams))
			}
		})
	}

	var ve ValidationErrors
	_, err := env.registry.CreateExam(ctx, "A", courseID, &CreateExamRequest{Title: "x"})
	if !errors.As(err, &ve) || ve[0].Field != "duration_seconds" {
		t.Errorf("CreateExam() error = %v, want field error on duration_seconds", err)
	}

	exam, err := env.registry.CreateExam(ctx, "A", courseID, &CreateExamRequest{Title: "Take-home", DurationSeconds: 8 * 24 * 3600})
	if err != nil {
		t.Fatalf("CreateExam() of an eight day exam error = %v", err)
	}
	if exam.Index != 0 || exam.DurationSeconds != 8*24*3600 {
		t.Errorf("exam = %+v", exam.Exam)
	}
}

func TestRegistry_OwnershipScenario(t *testing.T) {
	env := newTestEnv(t, PolicyOverwrite)
	ctx := context.Background()
	env.register(t, "A", true)
	env.register(t, "B", true)
	courseID := env.course(t, "A", "A's course")

	if _, err := env.registry.CreateExam(ctx, "A", courseID, &CreateExamRequest{Title: "Quiz", DurationSeconds: 60}); err != nil {
		t.Fatalf("CreateExam() error = %v", err)
	}
	before, _ := env.registry.ListExams(ctx, courseID)

	_, err := env.registry.CreateExam(ctx, "B", courseID, &CreateExamRequest{Title: "Hijack", DurationSeconds: 60})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("CreateExam() by B error = %v, want Unauthorized", err)
	}

	after, _ := env.registry.ListExams(ctx, courseID)
	if len(after) != len(before) || after[0].Title != before[0].Title {
		t.Errorf("exam list changed: before=%d after=%d", len(before), len(after))
	}
}

func TestRegistry_GetExamAddress(t *testing.T) {
	env := newTestEnv(t, PolicyOverwrite)
	ctx := context.Background()
	env.register(t, "A", true)
	c1 := env.course(t, "A", "One")
	c2 := env.course(t, "A", "Two")
	for _, c := range []uint{c1, c1, c2} {
		if _, err := env.registry.CreateExam(ctx, "A", c, &CreateExamRequest{Title: "E", DurationSeconds: 60}); err != nil {
			t.Fatalf("CreateExam() error = %v", err)
		}
	}

	t.Run("stable", func(t *testing.T) {
		a, _ := env.registry.GetExamAddress(ctx, c1, 1)
		b, _ := env.registry.GetExamAddress(ctx, c1, 1)
		if a == "" || a != b {
			t.Errorf("GetExamAddress() = %q then %q", a, b)
		}
	})

	t.Run("distinct", func(t *testing.T) {
		seen := map[models.ExamAddress]bool{}
		for _, key := range [][2]int{{int(c1), 0}, {int(c1), 1}, {int(c2), 0}} {
			addr, err := env.registry.GetExamAddress(ctx, uint(key[0]), key[1])
			if err != nil {
				t.Fatalf("GetExamAddress(%v) error = %v", key, err)
			}
			if seen[addr] {
				t.Fatalf("duplicate address %s", addr)
			}
			seen[addr] = true
		}
	})

	t.Run("stable across unrelated mutations", func(t *testing.T) {
		a, _ := env.registry.GetExamAddress(ctx, c1, 0)
		env.course(t, "A", "Three")
		b, _ := env.registry.GetExamAddress(ctx, c1, 0)
		if a != b {
			t.Errorf("address changed from %s to %s", a, b)
		}
	})

	notFound := []struct {
		name     string
		courseID uint
		index    int
		want     error
	}{
		{name: "unknown course", courseID: 42, index: 0, want: ErrCourseNotFound},
		{name: "course zero", courseID: 0, index: 0, want: ErrCourseNotFound},
		{name: "index past end", courseID: c2, index: 1, want: ErrExamNotFound},
		{name: "negative index", courseID: c1, index: -1, want: ErrExamNotFound},
	}
	for _, tt := range notFound {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.registry.GetExamAddress(ctx, tt.courseID, tt.index)
			if !errors.Is(err, tt.want) || KindOf(err) != KindNotFound {
				t.Errorf("GetExamAddress() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRegistry_ConcurrentMutationsAreSerialized(t *testing.T) {
	env := newTestEnv(t, PolicyOverwrite)
	ctx := context.Background()
	env.register(t, "A", true)
	courseID := env.course(t, "A", "Busy")

	const n = 40
	var wg sync.WaitGroup
	indices := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			exam, err := env.registry.CreateExam(ctx, "A", courseID, &CreateExamRequest{Title: "Q", DurationSeconds: 30})
			if err != nil {
				t.Errorf("CreateExam() error = %v", err)
				return
			}
			indices <- exam.Index
		}()
	}
	wg.Wait()
	close(indices)

	seen := make([]bool, n)
	for idx := range indices {
		if idx < 0 || idx >= n || seen[idx] {
			t.Fatalf("index %d duplicated or out of range", idx)
		}
		seen[idx] = true
	}
	for i, ok := range seen {
		if !ok {
			t.Errorf("index %d never assigned", i)
		}
	}
}

func TestRegistry_PublishFailureDoesNotUndoMutation(t *testing.T) {
	env := newTestEnv(t, PolicyOverwrite)
	ctx := context.Background()
	env.register(t, "A", true)

	env.publisher.FailWith(errors.New("broker down"))
	course, err := env.registry.CreateCourse(ctx, "A", &CreateCourseRequest{Title: "Kept"})
	if err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}
	if _, err := env.registry.GetCourse(ctx, course.ID); err != nil {
		t.Errorf("GetCourse() error = %v", err)
	}
}

func TestRegistry_ListCourses(t *testing.T) {
	env := newTestEnv(t, PolicyOverwrite)
	ctx := context.Background()
	env.register(t, "A", true)
	env.register(t, "B", true)
	env.course(t, "A", "A1")
	env.course(t, "B", "B1")
	env.course(t, "A", "A2")

	owner := "A"
	list, err := env.registry.ListCourses(ctx, repositories.CourseFilters{OwnerIdentity: &owner})
	if err != nil {
		t.Fatalf("ListCourses() error = %v", err)
	}
	if len(list.Courses) != 2 || list.Courses[0].ID != 1 || list.Courses[1].ID != 3 {
		t.Errorf("ListCourses(owner=A) = %+v", list.Courses)
	}
	if list.Total != 2 {
		t.Errorf("Total(owner=A) = %d, want 2", list.Total)
	}

	paged, err := env.registry.ListCourses(ctx, repositories.CourseFilters{OwnerIdentity: &owner, Limit: 1})
	if err != nil {
		t.Fatalf("ListCourses() error = %v", err)
	}
	if len(paged.Courses) != 1 || paged.Total != 2 {
		t.Errorf("ListCourses(owner=A, limit=1) = %d courses, total %d; want 1, 2", len(paged.Courses), paged.Total)
	}

	all, err := env.registry.ListCourses(ctx, repositories.CourseFilters{})
	if err != nil {
		t.Fatalf("ListCourses() error = %v", err)
	}
	if len(all.Courses) != 3 || all.Total != 3 {
		t.Errorf("ListCourses() = %d courses, total %d; want 3, 3", len(all.Courses), all.Total)
	}
}
