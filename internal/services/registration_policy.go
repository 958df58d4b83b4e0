package services

import (
	"fmt"
	"strings"

	"github.com/SAP-F-2025/lms-registry/internal/models"
)

// RegistrationPolicy decides whether an already registered identity may
// register again.
type RegistrationPolicy string

const (
	// PolicyOverwrite allows profile overwrites. Only a role change by an
	// identity that owns courses is rejected.
	PolicyOverwrite RegistrationPolicy = "overwrite"
	// PolicyLockOwners rejects any re-registration by an identity that owns
	// courses. This is the default.
	PolicyLockOwners RegistrationPolicy = "lock-owners"
	// PolicyReject rejects every re-registration.
	PolicyReject RegistrationPolicy = "reject"
)

func ParseRegistrationPolicy(s string) (RegistrationPolicy, error) {
	switch p := RegistrationPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyLockOwners, nil
	case PolicyOverwrite, PolicyLockOwners, PolicyReject:
		return p, nil
	default:
		return "", fmt.Errorf("unknown registration policy %q", s)
	}
}

// check returns a *ConflictError when existing may not be replaced by a
// profile with role isLecturer.
func (p RegistrationPolicy) check(existing *models.User, isLecturer bool, ownedCourses int64) error {
	conflict := func(reason string) error {
		return &ConflictError{Identity: existing.Identity, OwnedCourses: ownedCourses, Reason: reason}
	}

	if ownedCourses > 0 && existing.IsLecturer != isLecturer {
		return conflict("role cannot change while the identity owns courses")
	}

	switch p {
	case PolicyReject:
		return conflict("re-registration is disabled")
	case PolicyLockOwners:
		if ownedCourses > 0 {
			return conflict("profile is locked while the identity owns courses")
		}
	}
	return nil
}
