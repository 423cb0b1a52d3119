package memstore

import (
	"context"
	"sort"
	"strings"

	"civicreport-be/apperrors"
	"civicreport-be/models"
	"civicreport-be/repositories"
)

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user.Email = models.NormalizeEmail(user.Email)
	for _, u := range r.s.data.users {
		if u.Email == user.Email {
			return apperrors.Conflict("User with this email already exists")
		}
	}
	if user.ID == "" {
		user.ID = newID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.s.now()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	r.s.data.users[user.ID] = *user
	r.s.data.track(user.ID)
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.data.users[id]
	if !ok {
		return nil, apperrors.NotFound("User not found")
	}
	return &u, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = models.NormalizeEmail(email)
	for _, u := range r.s.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("User not found")
}

func (r userRepo) List(ctx context.Context, filter repositories.UserFilter, page repositories.Page) ([]models.User, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	term := strings.ToLower(strings.TrimSpace(filter.Search))
	var all []models.User
	for _, u := range r.s.data.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(u.Name), term) && !strings.Contains(u.Email, term) {
			continue
		}
		all = append(all, u)
	}
	seq := r.s.data.seq
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return seq[all[i].ID] > seq[all[j].ID]
	})
	start, end := page.Window(len(all))
	return all[start:end], int64(len(all)), nil
}

func (r userRepo) Update(ctx context.Context, id string, patch repositories.UserPatch) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.data.users[id]
	if !ok {
		return nil, apperrors.NotFound("User not found")
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Phone != nil {
		u.Phone = *patch.Phone
	}
	if patch.Password != nil {
		u.Password = *patch.Password
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	u.UpdatedAt = r.s.now()
	r.s.data.users[id] = u
	return &u, nil
}

func (r userRepo) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, u := range r.s.data.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r userRepo) Summaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[string]models.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := r.s.data.users[id]; ok {
			out[id] = u.Summary()
		}
	}
	return out, nil
}
