package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SAP-F-2025/lms-registry/internal/address"
	"github.com/SAP-F-2025/lms-registry/internal/config"
	"github.com/SAP-F-2025/lms-registry/internal/deploy"
	"github.com/SAP-F-2025/lms-registry/internal/services"
)

func newTestCLI(t *testing.T, env ...string) (*commandLine, *bytes.Buffer) {
	t.Helper()

	orig := loadConfigFunc
	loadConfigFunc = func() (*config.Config, error) {
		return &config.Config{Registry: config.RegistryConfig{Name: "lmsctl-test"}}, nil
	}
	t.Cleanup(func() { loadConfigFunc = orig })

	out := &bytes.Buffer{}
	return &commandLine{
		out:    out,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		env:    env,
	}, out
}

func writePlan(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.hcl")
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const deployPlan = `
identity = env.LMS_IDENTITY

user {
  display_name = "Ada"
  is_lecturer  = true
}

course "algebra" {
  title = "Linear Algebra"

  exam "midterm" {
    title            = "Midterm"
    duration_seconds = 3600
  }
}
`

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: []string{"lmsctl"}},
		{name: "unknown command", args: []string{"lmsctl", "destroy"}},
		{name: "deploy without plan", args: []string{"lmsctl", "deploy"}},
		{name: "address without course", args: []string{"lmsctl", "address", "-exam", "0", "-target", "http://localhost"}},
		{name: "address without target", args: []string{"lmsctl", "address", "-course", "1", "-exam", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, _ := newTestCLI(t)
			if err := cli.run(tt.args); !errors.Is(err, errHelp) {
				t.Errorf("run() error = %v, want errHelp", err)
			}
		})
	}
}

func TestRun_DeployInProcess(t *testing.T) {
	cli, out := newTestCLI(t, "LMS_IDENTITY=lecturer-1")

	if err := cli.run([]string{"lmsctl", "deploy", "-plan", writePlan(t, deployPlan)}); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	deriver := address.NewDeriver(address.RegistryFromName("lmsctl-test"))
	for _, want := range []string{
		"registry " + deriver.Registry().String(),
		"registered lecturer-1",
		"course algebra id=1",
		"exam midterm index=0 address=" + deriver.ExamAddress(1, 0).String(),
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRun_DeployFailure(t *testing.T) {
	cli, _ := newTestCLI(t, "LMS_IDENTITY=lecturer-1")

	err := cli.run([]string{"lmsctl", "deploy", "-plan", writePlan(t, deployPlan), "-identity", "lecturer-1 "})
	if err == nil {
		t.Fatal("run() error = nil")
	}

	var failure *deploy.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("run() error = %v, want *deploy.Failure", err)
	}
	if failure.Kind != services.KindInvalidArgument {
		t.Errorf("Kind = %q, want %q", failure.Kind, services.KindInvalidArgument)
	}
}

func TestRun_Address(t *testing.T) {
	want := "0x94e8ad3B02b1E6C87cb7ecce750d9a8F52fE8307"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/courses/1/exams/0/address":
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"course_id":1,"exam_index":0,"address":"`+want+`"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"message":"Exam not found","kind":"NotFound"}`)
		}
	}))
	defer server.Close()

	cli, out := newTestCLI(t, "LMS_REGISTRY_URL="+server.URL)

	if err := cli.run([]string{"lmsctl", "address", "-course", "1", "-exam", "0"}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}

	err := cli.run([]string{"lmsctl", "address", "-course", "1", "-exam", "3"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Errorf("run() error = %v, want NotFound", err)
	}
	if err != nil && !strings.Contains(err.Error(), "[NotFound]") {
		t.Errorf("error = %q, want the kind in the message", err)
	}
}
