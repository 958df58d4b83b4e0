package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SAP-F-2025/lms-registry/internal/models"
	"github.com/SAP-F-2025/lms-registry/internal/services"
)

// CallerIdentityHeader carries the caller identity to registries that
// trust it as is.
const CallerIdentityHeader = "X-Caller-Identity"

// Target is a registry a plan can be applied to. Every mutating call
// returns only once the registry has settled it.
type Target interface {
	RegisterUser(ctx context.Context, identity string, req *services.RegisterUserRequest) error
	CreateCourse(ctx context.Context, caller string, req *services.CreateCourseRequest) (uint, error)
	CreateExam(ctx context.Context, caller string, courseID uint, req *services.CreateExamRequest) (int, error)
	GetExamAddress(ctx context.Context, courseID uint, index int) (models.ExamAddress, error)
}

// LocalTarget applies plans to an in-process service manager.
type LocalTarget struct {
	users    services.UserDirectory
	registry services.CourseExamRegistry
}

func NewLocalTarget(sm services.ServiceManager) *LocalTarget {
	return &LocalTarget{
		users:    sm.Users(),
		registry: sm.Registry(),
	}
}

func (t *LocalTarget) RegisterUser(ctx context.Context, identity string, req *services.RegisterUserRequest) error {
	_, err := t.users.RegisterUser(ctx, identity, req)
	return err
}

func (t *LocalTarget) CreateCourse(ctx context.Context, caller string, req *services.CreateCourseRequest) (uint, error) {
	course, err := t.registry.CreateCourse(ctx, caller, req)
	if err != nil {
		return 0, err
	}
	return course.ID, nil
}

func (t *LocalTarget) CreateExam(ctx context.Context, caller string, courseID uint, req *services.CreateExamRequest) (int, error) {
	exam, err := t.registry.CreateExam(ctx, caller, courseID, req)
	if err != nil {
		return 0, err
	}
	return exam.Index, nil
}

func (t *LocalTarget) GetExamAddress(ctx context.Context, courseID uint, index int) (models.ExamAddress, error) {
	return t.registry.GetExamAddress(ctx, courseID, index)
}

// RemoteError is a failure reported by a registry over HTTP. It unwraps to
// the matching error kind so services.KindOf works on it.
type RemoteError struct {
	Status  int
	Kind    services.ErrorKind
	Message string
	Details string
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("registry returned %d: %s", e.Status, e.Message)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *RemoteError) Unwrap() error {
	switch e.Kind {
	case services.KindUnauthorized:
		return services.ErrUnauthorized
	case services.KindNotFound:
		return services.ErrNotFound
	case services.KindInvalidArgument:
		return services.ErrInvalidArgument
	case services.KindAlreadyRegisteredConflict:
		return services.ErrAlreadyRegisteredConflict
	}
	return nil
}

// HTTPTarget applies plans to a registry daemon through its /api/v1 routes.
type HTTPTarget struct {
	baseURL string
	client  *http.Client

	// Token, when set, is sent as a bearer token instead of the identity
	// header.
	Token string
}

func NewHTTPTarget(baseURL string, client *http.Client) *HTTPTarget {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPTarget{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (t *HTTPTarget) RegisterUser(ctx context.Context, identity string, req *services.RegisterUserRequest) error {
	return t.do(ctx, http.MethodPost, "/api/v1/users", identity, req, nil)
}

func (t *HTTPTarget) CreateCourse(ctx context.Context, caller string, req *services.CreateCourseRequest) (uint, error) {
	var course models.Course
	if err := t.do(ctx, http.MethodPost, "/api/v1/courses", caller, req, &course); err != nil {
		return 0, err
	}
	return course.ID, nil
}

func (t *HTTPTarget) CreateExam(ctx context.Context, caller string, courseID uint, req *services.CreateExamRequest) (int, error) {
	var exam models.Exam
	path := fmt.Sprintf("/api/v1/courses/%d/exams", courseID)
	if err := t.do(ctx, http.MethodPost, path, caller, req, &exam); err != nil {
		return 0, err
	}
	return exam.Index, nil
}

func (t *HTTPTarget) GetExamAddress(ctx context.Context, courseID uint, index int) (models.ExamAddress, error) {
	var resp struct {
		Address models.ExamAddress `json:"address"`
	}
	path := fmt.Sprintf("/api/v1/courses/%d/exams/%d/address", courseID, index)
	if err := t.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return "", err
	}
	return resp.Address, nil
}

func (t *HTTPTarget) do(ctx context.Context, method, path, caller string, body, out interface{}) error {
	u, err := url.JoinPath(t.baseURL, path)
	if err != nil {
		return fmt.Errorf("invalid registry url: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.Token)
	} else if caller != "" {
		req.Header.Set(CallerIdentityHeader, caller)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		remote := &RemoteError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var errBody struct {
			Message string      `json:"message"`
			Kind    string      `json:"kind"`
			Details interface{} `json:"details"`
		}
		if json.Unmarshal(data, &errBody) == nil {
			if errBody.Message != "" {
				remote.Message = errBody.Message
			}
			remote.Kind = services.ErrorKind(errBody.Kind)
			if errBody.Details != nil {
				remote.Details = fmt.Sprint(errBody.Details)
			}
		}
		return remote
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
