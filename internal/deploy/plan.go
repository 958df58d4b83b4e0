// Package deploy runs declarative deploy plans against a registry. A plan
// is an HCL file naming the deploying identity, its profile, and the
// courses and exams to create:
//
//	identity = "lecturer-1"
//
//	user {
//	  display_name = "Ada"
//	  is_lecturer  = true
//	}
//
//	course "algebra" {
//	  title = "Linear Algebra"
//
//	  exam "midterm" {
//	    title            = "Midterm"
//	    duration_seconds = 3600
//	  }
//	}
//
// Expressions may read process environment values through the env map,
// e.g. identity = env.LMS_IDENTITY.
package deploy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

type Plan struct {
	Identity string        `hcl:"identity,optional"`
	User     *UserBlock    `hcl:"user,block"`
	Courses  []CourseBlock `hcl:"course,block"`
}

type UserBlock struct {
	DisplayName string `hcl:"display_name"`
	Bio         string `hcl:"bio,optional"`
	IsLecturer  bool   `hcl:"is_lecturer,optional"`
	Extra       string `hcl:"extra,optional"`
}

type CourseBlock struct {
	Name        string      `hcl:"name,label"`
	Title       string      `hcl:"title"`
	Description string      `hcl:"description,optional"`
	Exams       []ExamBlock `hcl:"exam,block"`
}

type ExamBlock struct {
	Name            string `hcl:"name,label"`
	Title           string `hcl:"title"`
	DurationSeconds int64  `hcl:"duration_seconds"`
}

// DecodePlanFile parses and decodes the plan at path.
func DecodePlanFile(path string, env map[string]string) (*Plan, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %s", path, diags.Error())
	}
	return decodeBody(file.Body, path, env)
}

// DecodePlan decodes a plan held in memory; filename is used in diagnostics.
func DecodePlan(src []byte, filename string, env map[string]string) (*Plan, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %s", filename, diags.Error())
	}
	return decodeBody(file.Body, filename, env)
}

func decodeBody(body hcl.Body, filename string, env map[string]string) (*Plan, error) {
	var plan Plan
	diags := gohcl.DecodeBody(body, evalContext(env), &plan)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %s", filename, diags.Error())
	}
	if err := plan.checkNames(); err != nil {
		return nil, fmt.Errorf("invalid plan %s: %w", filename, err)
	}
	return &plan, nil
}

func evalContext(env map[string]string) *hcl.EvalContext {
	envVal := cty.MapValEmpty(cty.String)
	if len(env) > 0 {
		vals := make(map[string]cty.Value, len(env))
		for k, v := range env {
			vals[k] = cty.StringVal(v)
		}
		envVal = cty.MapVal(vals)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envVal,
		},
	}
}

// checkNames rejects duplicate block labels; they are how results and
// failures are reported back.
func (p *Plan) checkNames() error {
	courses := make(map[string]bool, len(p.Courses))
	for _, c := range p.Courses {
		if courses[c.Name] {
			return fmt.Errorf("duplicate course %q", c.Name)
		}
		courses[c.Name] = true

		exams := make(map[string]bool, len(c.Exams))
		for _, e := range c.Exams {
			if exams[e.Name] {
				return fmt.Errorf("duplicate exam %q in course %q", e.Name, c.Name)
			}
			exams[e.Name] = true
		}
	}
	return nil
}

// StepCount is the number of mutations the plan submits.
func (p *Plan) StepCount() int {
	n := len(p.Courses)
	if p.User != nil {
		n++
	}
	for _, c := range p.Courses {
		n += len(c.Exams)
	}
	return n
}

// EnvMap turns KEY=VALUE pairs, as returned by os.Environ, into a map.
func EnvMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
