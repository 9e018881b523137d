package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"

	digivahan "github.com/Preet-Sharma-7061/Digivahan-backend-sub000"
)

// GarageStore implements digivahan.GarageStore on the vehicles
// collection.
type GarageStore struct {
	coll *driver.Collection
}

type vehicleDoc struct {
	ID            string        `bson:"_id"`
	AccountID     string        `bson:"account_id"`
	SecurityCode  string        `bson:"security_code,omitempty"`
	CodeExpiresAt *time.Time    `bson:"code_expires_at,omitempty"`
	Documents     []documentDoc `bson:"documents,omitempty"`
}

type documentDoc struct {
	Name     string `bson:"name"`
	URL      string `bson:"url"`
	PublicID string `bson:"public_id"`
}

func vehicleFilter(accountID, vehicleID string) bson.D {
	return bson.D{
		{Key: "_id", Value: vehicleID},
		{Key: "account_id", Value: accountID},
	}
}

func (s *GarageStore) SetSecurityCode(ctx context.Context, accountID, vehicleID, code string, expiresAt time.Time) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "security_code", Value: code},
		{Key: "code_expires_at", Value: expiresAt},
	}}}

	res, err := s.coll.UpdateOne(ctx, vehicleFilter(accountID, vehicleID), update)
	if err != nil {
		return fmt.Errorf("setting security code for vehicle %s: %w", vehicleID, err)
	}
	if res.MatchedCount == 0 {
		return digivahan.ErrVehicleNotFound
	}
	return nil
}

func (s *GarageStore) GetSecurityCode(ctx context.Context, accountID, vehicleID string) (string, time.Time, error) {
	var doc vehicleDoc
	err := s.coll.FindOne(ctx, vehicleFilter(accountID, vehicleID)).Decode(&doc)
	if err != nil {
		if errors.Is(err, driver.ErrNoDocuments) {
			return "", time.Time{}, digivahan.ErrVehicleNotFound
		}
		return "", time.Time{}, fmt.Errorf("loading vehicle %s: %w", vehicleID, err)
	}

	var expiresAt time.Time
	if doc.CodeExpiresAt != nil {
		expiresAt = *doc.CodeExpiresAt
	}
	return doc.SecurityCode, expiresAt, nil
}

func (s *GarageStore) ClearSecurityCode(ctx context.Context, accountID, vehicleID string) error {
	update := bson.D{{Key: "$unset", Value: bson.D{
		{Key: "security_code", Value: ""},
		{Key: "code_expires_at", Value: ""},
	}}}

	res, err := s.coll.UpdateOne(ctx, vehicleFilter(accountID, vehicleID), update)
	if err != nil {
		return fmt.Errorf("clearing security code for vehicle %s: %w", vehicleID, err)
	}
	if res.MatchedCount == 0 {
		return digivahan.ErrVehicleNotFound
	}
	return nil
}

func (s *GarageStore) ListDocuments(ctx context.Context, accountID, vehicleID string) ([]digivahan.VehicleDocument, error) {
	var doc vehicleDoc
	err := s.coll.FindOne(ctx, vehicleFilter(accountID, vehicleID)).Decode(&doc)
	if err != nil {
		if errors.Is(err, driver.ErrNoDocuments) {
			return nil, digivahan.ErrVehicleNotFound
		}
		return nil, fmt.Errorf("loading vehicle %s: %w", vehicleID, err)
	}

	docs := make([]digivahan.VehicleDocument, 0, len(doc.Documents))
	for _, d := range doc.Documents {
		docs = append(docs, digivahan.VehicleDocument{
			Name:     d.Name,
			URL:      d.URL,
			PublicID: d.PublicID,
		})
	}
	return docs, nil
}
