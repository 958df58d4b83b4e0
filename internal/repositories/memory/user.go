package memory

import (
	"context"
	"sort"

	"github.com/SAP-F-2025/lms-registry/internal/models"
	"github.com/SAP-F-2025/lms-registry/internal/repositories"
)

type userRepository struct {
	v *view
}

func (r *userRepository) GetByIdentity(ctx context.Context, identity string) (*models.User, error) {
	var usr *models.User
	r.v.read(func(t *tables) {
		if u, ok := t.users[identity]; ok {
			cp := *u
			usr = &cp
		}
	})
	if usr == nil {
		return nil, repositories.NewNotFoundError("user", identity)
	}
	return usr, nil
}

func (r *userRepository) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, error) {
	var users []*models.User
	r.v.read(func(t *tables) {
		users = make([]*models.User, 0, len(t.users))
		for _, u := range t.users {
			if filters.LecturersOnly && !u.IsLecturer {
				continue
			}
			cp := *u
			users = append(users, &cp)
		}
	})
	sort.Slice(users, func(i, j int) bool { return users[i].Identity < users[j].Identity })
	return paginate(users, filters.Offset, filters.Limit), nil
}

func (r *userRepository) Save(ctx context.Context, usr *models.User) error {
	return r.v.write(ctx, func(t *tables) error {
		cp := *usr
		t.users[usr.Identity] = &cp
		return nil
	})
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
