package services

import (
	"context"
	"strings"
	"time"

	"civicreport-be/apperrors"
	"civicreport-be/models"
	"civicreport-be/repositories"
	authUtils "civicreport-be/utils"

	"go.uber.org/zap"
)

const DefaultUserPageSize = 20

// UserService covers registration, login, profiles and role management.
type UserService struct {
	store  repositories.Store
	tokens *authUtils.Issuer
	log    *zap.Logger
	now    Clock
}

func NewUserService(store repositories.Store, tokens *authUtils.Issuer, log *zap.Logger) *UserService {
	return &UserService{store: store, tokens: tokens, log: log, now: time.Now}
}

type RegisterInput struct {
	Name     string `json:"name" validate:"min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6,max=128"`
	Phone    string `json:"phone" validate:"omitempty,min=7,max=20"`
}

// Register creates a CITIZEN account and returns it with a token. The role
// is never taken from the request.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = models.NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validateStruct(in); err != nil {
		return nil, "", err
	}

	user := &models.User{
		Name:      in.Name,
		Email:     in.Email,
		Password:  in.Password,
		Phone:     in.Phone,
		Role:      models.RoleCitizen,
		CreatedAt: s.now(),
	}
	user.UpdatedAt = user.CreatedAt
	if err := user.HashPassword(); err != nil {
		return nil, "", apperrors.Internal(err, "Failed to hash password")
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", apperrors.Internal(err, "Failed to generate token")
	}
	s.log.Info("user registered", zap.String("user_id", user.ID))
	return user, token, nil
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *UserService) Login(ctx context.Context, in LoginInput) (*models.User, string, error) {
	in.Email = models.NormalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, "", err
	}

	user, err := s.store.Users().GetByEmail(ctx, in.Email)
	if apperrors.IsNotFound(err) {
		return nil, "", apperrors.Authentication("Invalid email or password")
	}
	if err != nil {
		return nil, "", err
	}
	if !user.ComparePassword(in.Password) {
		return nil, "", apperrors.Authentication("Invalid email or password")
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", apperrors.Internal(err, "Failed to generate token")
	}
	return user, token, nil
}

// Me returns the authenticated user. A token whose user no longer exists is
// an authentication failure.
func (s *UserService) Me(ctx context.Context, id string) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if apperrors.IsNotFound(err) {
		return nil, apperrors.Authentication("User not found")
	}
	return user, err
}

// Refresh issues a new token with the role currently stored.
func (s *UserService) Refresh(ctx context.Context, id string) (string, error) {
	user, err := s.Me(ctx, id)
	if err != nil {
		return "", err
	}
	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", apperrors.Internal(err, "Failed to generate token")
	}
	return token, nil
}

func (s *UserService) Profile(ctx context.Context, id string) (*models.UserProfile, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	reported, err := s.store.Issues().Count(ctx, []repositories.IssueFilter{repositories.ReporterFilter{ReporterID: id}})
	if err != nil {
		return nil, err
	}
	assigned, err := s.store.Issues().Count(ctx, []repositories.IssueFilter{repositories.AssigneeFilter{AssigneeID: id}})
	if err != nil {
		return nil, err
	}
	return &models.UserProfile{User: *user, ReportedIssues: reported, AssignedIssues: assigned}, nil
}

type ProfileInput struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=50"`
	Phone *string `json:"phone" validate:"omitempty,max=20"`
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*models.User, error) {
	in.Name, in.Phone = trimmed(in.Name), trimmed(in.Phone)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	return s.store.Users().Update(ctx, id, repositories.UserPatch{Name: in.Name, Phone: in.Phone})
}

type PasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"min=6,max=128"`
}

func (s *UserService) ChangePassword(ctx context.Context, id string, in PasswordInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !user.ComparePassword(in.CurrentPassword) {
		return apperrors.Validation("Current password is incorrect")
	}
	user.Password = in.NewPassword
	if err := user.HashPassword(); err != nil {
		return apperrors.Internal(err, "Failed to hash password")
	}
	_, err = s.store.Users().Update(ctx, id, repositories.UserPatch{Password: &user.Password})
	return err
}

type UserQuery struct {
	Role   string
	Search string
}

// List returns users for administrators.
func (s *UserService) List(ctx context.Context, actor Actor, q UserQuery, page repositories.Page) ([]models.User, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, apperrors.Forbidden("Admin access required")
	}
	filter := repositories.UserFilter{Search: strings.TrimSpace(q.Search)}
	if r := strings.TrimSpace(q.Role); r != "" && !strings.EqualFold(r, "all") {
		role := models.Role(strings.ToUpper(r))
		if !role.Valid() {
			return nil, 0, apperrors.Validation("Invalid role filter %q", q.Role)
		}
		filter.Role = role
	}
	users, total, err := s.store.Users().List(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, total, nil
}

// UpdateRole changes another user's role. Only a SUPERADMIN may grant or
// revoke SUPERADMIN and nobody may change their own role.
func (s *UserService) UpdateRole(ctx context.Context, actor Actor, targetID, role string) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Admin access required")
	}
	newRole := models.Role(strings.ToUpper(strings.TrimSpace(role)))
	if !newRole.Valid() {
		return nil, apperrors.Validation("Invalid role")
	}
	if targetID == actor.ID {
		return nil, apperrors.Forbidden("You cannot change your own role")
	}
	target, err := s.store.Users().GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if (newRole == models.RoleSuperAdmin || target.Role == models.RoleSuperAdmin) && actor.Role != models.RoleSuperAdmin {
		return nil, apperrors.Forbidden("Only a super admin can grant or revoke super admin")
	}
	if target.Role == newRole {
		return target, nil
	}
	updated, err := s.store.Users().Update(ctx, targetID, repositories.UserPatch{Role: &newRole})
	if err != nil {
		return nil, err
	}
	s.log.Info("user role changed", zap.String("user_id", targetID), zap.String("role", string(newRole)), zap.String("by", actor.ID))
	return updated, nil
}

// EnsureStaffAccount creates a staff account or promotes an existing one.
// It backs the create-admin command and bypasses actor checks.
func (s *UserService) EnsureStaffAccount(ctx context.Context, in RegisterInput, role models.Role) (*models.User, bool, error) {
	if !role.IsStaff() {
		return nil, false, apperrors.Validation("Role %s is not a staff role", role)
	}
	in.Email = models.NormalizeEmail(in.Email)

	existing, err := s.store.Users().GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		if existing.Role == role {
			return existing, false, nil
		}
		updated, err := s.store.Users().Update(ctx, existing.ID, repositories.UserPatch{Role: &role})
		return updated, false, err
	case !apperrors.IsNotFound(err):
		return nil, false, err
	}

	user, _, err := s.Register(ctx, in)
	if err != nil {
		return nil, false, err
	}
	updated, err := s.store.Users().Update(ctx, user.ID, repositories.UserPatch{Role: &role})
	return updated, true, err
}
