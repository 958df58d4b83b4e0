package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/lms-registry/internal/models"
	"github.com/SAP-F-2025/lms-registry/internal/repositories"
	"github.com/SAP-F-2025/lms-registry/pkg"
)

// newTestRepository needs a disposable database in TEST_DATABASE_URL.
func newTestRepository(t *testing.T) (repositories.Repository, *miniredis.Miniredis) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}
	if err := db.Migrator().DropTable(&models.Exam{}, &models.Course{}, &models.User{}); err != nil {
		t.Fatalf("DropTable() error = %v", err)
	}
	if err := pkg.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	manager := NewRepositoryManager(RepositoryConfig{DB: db, RedisClient: client})
	if err := manager.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { manager.Shutdown(context.Background()) })

	return manager.GetRepository(), mr
}

func TestPostgreSQLRepository_CourseAndExamLifecycle(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.User().Save(ctx, &models.User{Identity: "A", DisplayName: "A", IsLecturer: true, CreatedAt: now, UpdatedAt: now}); err != nil {
			return err
		}
		return tx.Course().Create(ctx, &models.Course{ID: 1, Title: "Blockchain 101", OwnerIdentity: "A", CreatedAt: now})
	})
	if err != nil {
		t.Fatalf("WithTransaction() error = %v", err)
	}

	if id, _ := repo.Course().MaxID(ctx); id != 1 {
		t.Errorf("MaxID() = %d, want 1", id)
	}
	if n, _ := repo.Course().CountByOwner(ctx, "A"); n != 1 {
		t.Errorf("CountByOwner() = %d, want 1", n)
	}

	for i := 0; i < 2; i++ {
		if err := repo.Exam().Append(ctx, &models.Exam{CourseID: 1, Index: i, Title: "E", DurationSeconds: 60, CreatedAt: now}); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}
	if err := repo.Exam().Append(ctx, &models.Exam{CourseID: 1, Index: 1, Title: "dup", DurationSeconds: 60}); err == nil {
		t.Error("Append() with a duplicate index succeeded")
	}

	course, err := repo.Course().GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if course.ExamCount != 2 {
		t.Errorf("ExamCount = %d, want 2", course.ExamCount)
	}
	if !mr.Exists("course:id:1") {
		t.Error("course row was not cached")
	}

	if _, err := repo.Exam().Get(ctx, 1, 1); err != nil {
		t.Fatalf("Get(1,1) error = %v", err)
	}
	if !mr.Exists("exam:1:1") {
		t.Error("exam row was not cached")
	}
	if _, err := repo.Exam().Get(ctx, 1, 2); !repositories.IsNotFoundError(err) {
		t.Errorf("Get(1,2) error = %v, want not found", err)
	}
}

func TestPostgreSQLRepository_RollbackIsNotCached(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Course().Create(ctx, &models.Course{ID: 1, Title: "ghost", OwnerIdentity: "A"}); err != nil {
			return err
		}
		if _, err := tx.Course().GetByID(ctx, 1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTransaction() error = %v, want boom", err)
	}

	if mr.Exists("course:id:1") {
		t.Error("uncommitted course leaked into the cache")
	}
	if _, err := repo.Course().GetByID(ctx, 1); !repositories.IsNotFoundError(err) {
		t.Errorf("GetByID() after rollback error = %v, want not found", err)
	}
}
