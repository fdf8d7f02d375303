package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/auth-service/internal/core/domain"
)

const (
	collectionUsers = "users"

	usernameIndex = "username_1"
	emailIndex    = "email_1"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

type mongoUser struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	Username  string               `bson:"username"`
	Email     string               `bson:"email"`
	Password  string               `bson:"password"`
	Roles     []primitive.ObjectID `bson:"roles"`
	CreatedAt int64                `bson:"created_at"`
	UpdatedAt int64                `bson:"updated_at"`
}

// Create inserts a new user document. Unique index violations are translated
// into *domain.ConflictError.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := toMongoUser(user)
	if err != nil {
		return nil, err
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, conflictFromDuplicate(err)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

// FindByUsername retrieves a user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.col.FindOne(ctx, bson.M{"username": username}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

// FindByUsernameOrEmail returns all users whose username or email matches.
func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"username": username},
	}}

	// At most one user can match each unique field.
	cur, err := r.col.Find(ctx, filter, options.Find().SetLimit(2))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toDomain())
	}
	return users, nil
}

// EnsureIndexes creates the unique indexes backing username and email
// uniqueness.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(usernameIndex),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(emailIndex),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// conflictFromDuplicate names the fields whose index rejected the insert.
// When the index cannot be identified both fields are reported.
func conflictFromDuplicate(err error) *domain.ConflictError {
	msg := err.Error()
	c := &domain.ConflictError{
		Username: strings.Contains(msg, usernameIndex),
		Email:    strings.Contains(msg, emailIndex),
	}
	if !c.Username && !c.Email {
		c.Username, c.Email = true, true
	}
	return c
}

func toMongoUser(u *domain.User) (mongoUser, error) {
	roles := make([]primitive.ObjectID, 0, len(u.Roles))
	for _, id := range u.Roles {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return mongoUser{}, fmt.Errorf("role id %q: %w", id, err)
		}
		roles = append(roles, oid)
	}

	return mongoUser{
		Username:  u.Username,
		Email:     u.Email,
		Password:  u.PasswordHash,
		Roles:     roles,
		CreatedAt: u.CreatedAt.Unix(),
		UpdatedAt: u.UpdatedAt.Unix(),
	}, nil
}

func (mu *mongoUser) toDomain() *domain.User {
	roles := make([]string, 0, len(mu.Roles))
	for _, oid := range mu.Roles {
		roles = append(roles, oid.Hex())
	}

	return &domain.User{
		ID:           mu.ID.Hex(),
		Username:     mu.Username,
		Email:        mu.Email,
		PasswordHash: mu.Password,
		Roles:        roles,
		CreatedAt:    unixToTime(mu.CreatedAt),
		UpdatedAt:    unixToTime(mu.UpdatedAt),
	}
}
