package pgstore

import (
	"context"
	"errors"
	"strings"

	"civicreport-be/apperrors"
	"civicreport-be/models"
	"civicreport-be/repositories"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	if user.ID == "" {
		user.ID = newID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.s.now()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	rec := newUserRecord(user)
	if err := r.s.conn(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Conflict("User with this email already exists")
		}
		return apperrors.Internal(err, "Failed to create user")
	}
	return nil
}

func (r userRepo) first(ctx context.Context, query string, arg any) (*models.User, error) {
	var rec userRecord
	if err := r.s.conn(ctx).Where(query, arg).First(&rec).Error; err != nil {
		return nil, notFound(err, "User not found")
	}
	u := rec.model()
	return &u, nil
}

func (r userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", models.NormalizeEmail(email))
}

func (r userRepo) List(ctx context.Context, filter repositories.UserFilter, page repositories.Page) ([]models.User, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if filter.Role != "" {
			db = db.Where("role = ?", string(filter.Role))
		}
		if term := strings.TrimSpace(filter.Search); term != "" {
			p := contains(term)
			db = db.Where("(name ILIKE ? OR email ILIKE ?)", p, p)
		}
		return db
	}

	var total int64
	if err := r.s.conn(ctx).Model(&userRecord{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err, "Failed to count users")
	}
	var recs []userRecord
	err := r.s.conn(ctx).Scopes(scope).
		Order(newestFirst).
		Offset(page.Skip()).
		Limit(page.Size).
		Find(&recs).Error
	if err != nil {
		return nil, 0, apperrors.Internal(err, "Failed to fetch users")
	}
	users := make([]models.User, len(recs))
	for i, rec := range recs {
		users[i] = rec.model()
	}
	return users, total, nil
}

func (r userRepo) Update(ctx context.Context, id string, patch repositories.UserPatch) (*models.User, error) {
	cols := map[string]any{"updated_at": r.s.now()}
	if patch.Name != nil {
		cols["name"] = *patch.Name
	}
	if patch.Phone != nil {
		cols["phone"] = *patch.Phone
	}
	if patch.Password != nil {
		cols["password"] = *patch.Password
	}
	if patch.Role != nil {
		cols["role"] = string(*patch.Role)
	}

	var rec userRecord
	res := r.s.conn(ctx).Model(&rec).Clauses(clause.Returning{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return nil, apperrors.Internal(res.Error, "Failed to update user")
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("User not found")
	}
	u := rec.model()
	return &u, nil
}

func (r userRepo) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	var n int64
	if err := r.s.conn(ctx).Model(&userRecord{}).Where("role = ?", string(role)).Count(&n).Error; err != nil {
		return 0, apperrors.Internal(err, "Failed to count users")
	}
	return n, nil
}

func (r userRepo) Summaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	out := make(map[string]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var recs []userRecord
	if err := r.s.conn(ctx).Select("id", "name", "email").Where("id IN ?", ids).Find(&recs).Error; err != nil {
		return nil, apperrors.Internal(err, "Failed to fetch users")
	}
	for _, rec := range recs {
		out[rec.ID] = models.UserSummary{ID: rec.ID, Name: rec.Name, Email: rec.Email}
	}
	return out, nil
}
