package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domainuser "dmbox/internal/domain/user"
)

const usersCollection = "users"

// UserRepository persists accounts keyed by username.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(client *Client) *UserRepository {
	return &UserRepository{coll: client.DB.Collection(usersCollection)}
}

type userDoc struct {
	ID           string    `bson:"_id"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	var doc userDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domainuser.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domainuser.User{
		ID:           domainuser.ID(doc.ID),
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func (r *UserRepository) Exists(ctx context.Context, id domainuser.ID) (bool, error) {
	err := r.coll.FindOne(ctx, bson.M{"_id": string(id)}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *UserRepository) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil {
		return domainuser.ErrIDRequired
	}
	_, err := r.coll.InsertOne(ctx, userDoc{
		ID:           string(user.ID),
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return domainuser.ErrUsernameTaken
	}
	return err
}

var _ domainuser.Repository = (*UserRepository)(nil)
