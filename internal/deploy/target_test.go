package deploy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/lms-registry/internal/address"
	"github.com/SAP-F-2025/lms-registry/internal/config"
	"github.com/SAP-F-2025/lms-registry/internal/handlers"
	"github.com/SAP-F-2025/lms-registry/internal/services"
	"github.com/SAP-F-2025/lms-registry/internal/utils"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlers.NewHandlerManager(newTestServiceManager(t), logger, config.CasdoorConfig{}).SetupRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestHTTPTarget_Run(t *testing.T) {
	server := newTestServer(t)
	target := NewHTTPTarget(server.URL+"/", server.Client())

	result, err := NewRunner(target, discardLogger()).Run(context.Background(), mustDecode(t, lecturerPlan))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.Courses) != 2 || result.Courses[1].ID != 2 {
		t.Fatalf("result = %+v", result)
	}
	want := address.NewDeriver(testRegistry).ExamAddress(1, 1)
	if got := result.Courses[0].Exams[1].Address; got != want {
		t.Errorf("Address = %s, want %s", got, want)
	}
}

func TestHTTPTarget_ErrorKinds(t *testing.T) {
	server := newTestServer(t)
	target := NewHTTPTarget(server.URL, nil)
	ctx := context.Background()

	if err := target.RegisterUser(ctx, "student-1", &services.RegisterUserRequest{DisplayName: "Sam"}); err != nil {
		t.Fatalf("RegisterUser() error = %v", err)
	}

	tests := []struct {
		name     string
		call     func() error
		wantKind services.ErrorKind
		wantErr  error
	}{
		{
			name: "student creates course",
			call: func() error {
				_, err := target.CreateCourse(ctx, "student-1", &services.CreateCourseRequest{Title: "A"})
				return err
			},
			wantKind: services.KindUnauthorized,
			wantErr:  services.ErrUnauthorized,
		},
		{
			name: "exam on missing course",
			call: func() error {
				_, err := target.CreateExam(ctx, "student-1", 9, &services.CreateExamRequest{Title: "X", DurationSeconds: 60})
				return err
			},
			wantKind: services.KindNotFound,
			wantErr:  services.ErrNotFound,
		},
		{
			name: "address of missing course",
			call: func() error {
				_, err := target.GetExamAddress(ctx, 1, 0)
				return err
			},
			wantKind: services.KindNotFound,
			wantErr:  services.ErrNotFound,
		},
		{
			name: "blank display name",
			call: func() error {
				return target.RegisterUser(ctx, "student-2", &services.RegisterUserRequest{DisplayName: " "})
			},
			wantKind: services.KindInvalidArgument,
			wantErr:  services.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()

			var remote *RemoteError
			if !errors.As(err, &remote) {
				t.Fatalf("error = %v, want *RemoteError", err)
			}
			if remote.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", remote.Kind, tt.wantKind)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantErr)
			}
			if got := services.KindOf(err); got != tt.wantKind {
				t.Errorf("KindOf() = %q, want %q", got, tt.wantKind)
			}
		})
	}
}
