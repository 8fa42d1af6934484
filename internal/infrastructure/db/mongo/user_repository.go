package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/auth-service/internal/core/domain"
)

const usersCollection = "users"

// UserRepository is the Mongo credential store. User IDs are UUID strings
// stored as _id.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

type mongoUser struct {
	ID               string `bson:"_id"`
	Username         string `bson:"username"`
	PasswordHash     string `bson:"password_hash"`
	Role             string `bson:"role"`
	RefreshTokenHash string `bson:"refresh_token_hash"`
	CreatedAt        int64  `bson:"created_at"`
	UpdatedAt        int64  `bson:"updated_at"`
}

func (mu *mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:               mu.ID,
		Username:         mu.Username,
		PasswordHash:     mu.PasswordHash,
		Role:             domain.Role(mu.Role),
		RefreshTokenHash: mu.RefreshTokenHash,
		CreatedAt:        unixToTime(mu.CreatedAt),
		UpdatedAt:        unixToTime(mu.UpdatedAt),
	}
}

// EnsureIndexes creates the unique username index.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_username"),
	})
	if err != nil {
		return fmt.Errorf("create username index: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	id := user.ID
	if id == "" {
		id = uuid.NewString()
	}
	doc := mongoUser{
		ID:               id,
		Username:         user.Username,
		PasswordHash:     user.PasswordHash,
		Role:             string(user.Role),
		RefreshTokenHash: user.RefreshTokenHash,
		CreatedAt:        user.CreatedAt.Unix(),
		UpdatedAt:        user.UpdatedAt.Unix(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, storageErr("insert user", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storageErr("find user", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, storageErr("list users", err)
	}
	defer cur.Close(ctx)

	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storageErr("decode users", err)
	}
	users := make([]*domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toDomain())
	}
	return users, nil
}

func (r *UserRepository) SaveRefreshTokenHash(ctx context.Context, userID, hash string) error {
	return r.updateFields(ctx, bson.M{"_id": userID}, bson.M{"refresh_token_hash": hash})
}

// SwapRefreshTokenHash relies on the filter including the expected hash, which
// makes the compare-and-set a single atomic document update.
func (r *UserRepository) SwapRefreshTokenHash(ctx context.Context, userID, expected, hash string) error {
	err := r.updateFields(ctx,
		bson.M{"_id": userID, "refresh_token_hash": expected},
		bson.M{"refresh_token_hash": hash},
	)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.ErrRefreshConflict
	}
	return err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.updateFields(ctx, bson.M{"_id": userID}, bson.M{"password_hash": passwordHash})
}

func (r *UserRepository) UpdateRole(ctx context.Context, userID string, role domain.Role) (*domain.User, error) {
	var mu mongoUser
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"role": string(role), "updated_at": time.Now().UTC().Unix()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&mu)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storageErr("update role", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) Delete(ctx context.Context, userID string) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": userID}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storageErr("delete user", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) updateFields(ctx context.Context, filter, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC().Unix()
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": fields})
	if err != nil {
		return storageErr("update user", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
