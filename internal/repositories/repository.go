package repositories

import "context"

// Repository groups the registry stores. Implementations bound inside
// WithTransaction see the transaction's uncommitted writes; everything else
// sees only committed state.
type Repository interface {
	User() UserRepository
	Course() CourseRepository
	Exam() ExamRepository

	// WithTransaction runs fn atomically. If fn returns an error none of its
	// writes become visible.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}
