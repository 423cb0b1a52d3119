package mongostore

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"civicreport-be/apperrors"
	"civicreport-be/models"
	"civicreport-be/repositories"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userRepo struct{ s *Store }

func (r userRepo) col() *mongo.Collection { return r.s.col(usersCollection) }

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
	if _, err := r.col().InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("User with this email already exists")
		}
		return apperrors.Internal(err, "Failed to create user")
	}
	return nil
}

func (r userRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.col().FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, notFound(err, "User not found")
	}
	return &user, nil
}

func (r userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

func (r userRepo) List(ctx context.Context, filter repositories.UserFilter, page repositories.Page) ([]models.User, int64, error) {
	q := bson.M{}
	if filter.Role != "" {
		q["role"] = filter.Role
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}
		q["$or"] = []bson.M{{"name": pattern}, {"email": pattern}}
	}

	total, err := r.col().CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, apperrors.Internal(err, "Failed to count users")
	}
	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Size))
	cursor, err := r.col().Find(ctx, q, opts)
	if err != nil {
		return nil, 0, apperrors.Internal(err, "Failed to fetch users")
	}
	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, apperrors.Internal(err, "Failed to decode users")
	}
	return users, total, nil
}

func (r userRepo) Update(ctx context.Context, id string, patch repositories.UserPatch) (*models.User, error) {
	set := bson.M{"updatedAt": r.s.now()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Phone != nil {
		set["phone"] = *patch.Phone
	}
	if patch.Password != nil {
		set["password"] = *patch.Password
	}
	if patch.Role != nil {
		set["role"] = *patch.Role
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err := r.col().FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, apperrors.Internal(err, "Failed to update user")
	}
	return &user, nil
}

func (r userRepo) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	n, err := r.col().CountDocuments(ctx, bson.M{"role": role})
	if err != nil {
		return 0, apperrors.Internal(err, "Failed to count users")
	}
	return n, nil
}

func (r userRepo) Summaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	out := make(map[string]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.M{"name": 1, "email": 1})
	cursor, err := r.col().Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, apperrors.Internal(err, "Failed to fetch users")
	}
	var summaries []models.UserSummary
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, apperrors.Internal(err, "Failed to decode users")
	}
	for _, s := range summaries {
		out[s.ID] = s
	}
	return out, nil
}
