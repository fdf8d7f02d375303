package mongo

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/auth-service/internal/core/domain"
)

func duplicateKeyError(msg string) error {
	return mongo.WriteException{
		WriteErrors: mongo.WriteErrors{{Code: 11000, Message: msg}},
	}
}

func TestConflictFromDuplicate(t *testing.T) {
	cases := []struct {
		name     string
		msg      string
		username bool
		email    bool
	}{
		{
			name:  "email index",
			msg:   `E11000 duplicate key error collection: auth.users index: email_1 dup key: { email: "a@test.com" }`,
			email: true,
		},
		{
			name:     "username index",
			msg:      `E11000 duplicate key error collection: auth.users index: username_1 dup key: { username: "a" }`,
			username: true,
		},
		{
			name:     "unidentified index",
			msg:      `E11000 duplicate key error`,
			username: true,
			email:    true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := duplicateKeyError(tc.msg)
			if !mongo.IsDuplicateKeyError(err) {
				t.Fatalf("expected duplicate key error")
			}
			c := conflictFromDuplicate(err)
			if c.Username != tc.username || c.Email != tc.email {
				t.Fatalf("unexpected conflict fields: %+v", c)
			}
			var target *domain.ConflictError
			if !errors.As(error(c), &target) {
				t.Fatalf("expected ConflictError")
			}
		})
	}
}

func TestUserMapping_RoundTripsRoleReferences(t *testing.T) {
	roleID := primitive.NewObjectID()
	now := time.Unix(1700000000, 0).UTC()

	doc, err := toMongoUser(&domain.User{
		Username:     "alice",
		Email:        "alice@test.com",
		PasswordHash: "hash",
		Roles:        []string{roleID.Hex()},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("toMongoUser: %v", err)
	}
	if len(doc.Roles) != 1 || doc.Roles[0] != roleID {
		t.Fatalf("unexpected role refs: %v", doc.Roles)
	}

	doc.ID = primitive.NewObjectID()
	u := doc.toDomain()
	if u.ID != doc.ID.Hex() || u.Roles[0] != roleID.Hex() || !u.CreatedAt.Equal(now) {
		t.Fatalf("unexpected domain user: %+v", u)
	}
	if u.PasswordHash != "hash" {
		t.Fatalf("password hash not mapped")
	}
}

func TestToMongoUser_RejectsMalformedRoleID(t *testing.T) {
	if _, err := toMongoUser(&domain.User{Roles: []string{"not-an-object-id"}}); err == nil {
		t.Fatalf("expected error for malformed role id")
	}
}
