package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"

	digivahan "github.com/Preet-Sharma-7061/Digivahan-backend-sub000"
)

// AdminStore implements digivahan.AdminStore on the admins collection.
type AdminStore struct {
	coll *driver.Collection
}

type adminDoc struct {
	ID           string `bson:"_id"`
	Email        string `bson:"email"`
	PasswordHash string `bson:"password_hash"`
	Active       bool   `bson:"active"`
}

func (d adminDoc) toRecord() *digivahan.AdminRecord {
	return &digivahan.AdminRecord{
		ID:           d.ID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Active:       d.Active,
	}
}

func (s *AdminStore) GetByEmail(ctx context.Context, email string) (*digivahan.AdminRecord, error) {
	var doc adminDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, driver.ErrNoDocuments) {
			return nil, digivahan.ErrAccountNotFound
		}
		return nil, fmt.Errorf("loading admin by email: %w", err)
	}
	return doc.toRecord(), nil
}

func (s *AdminStore) GetByID(ctx context.Context, id string) (*digivahan.AdminRecord, error) {
	var doc adminDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, driver.ErrNoDocuments) {
			return nil, digivahan.ErrAccountNotFound
		}
		return nil, fmt.Errorf("loading admin %s: %w", id, err)
	}
	return doc.toRecord(), nil
}
