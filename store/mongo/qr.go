package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"

	digivahan "github.com/Preet-Sharma-7061/Digivahan-backend-sub000"
)

// QRAssignmentStore implements digivahan.QRAssignmentStore on the
// qr_assignments collection.
type QRAssignmentStore struct {
	coll *driver.Collection
}

type qrDoc struct {
	ID        string `bson:"_id"`
	AccountID string `bson:"account_id"`
	Status    string `bson:"status"`
}

// SetStatusForAccount flips every assignment of the account to status and
// returns the ids it touched. The read and the update are not one atomic
// step; an assignment created in between is picked up by the next cascade.
func (s *QRAssignmentStore) SetStatusForAccount(ctx context.Context, accountID string, status digivahan.QRStatus) ([]string, error) {
	ids, err := s.FindAllForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	filter := bson.D{{Key: "account_id", Value: accountID}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: string(status)}}}}
	if _, err := s.coll.UpdateMany(ctx, filter, update); err != nil {
		return nil, fmt.Errorf("updating qr assignments for %s: %w", accountID, err)
	}
	return ids, nil
}

func (s *QRAssignmentStore) FindAllForAccount(ctx context.Context, accountID string) ([]string, error) {
	cursor, err := s.coll.Find(ctx, bson.D{{Key: "account_id", Value: accountID}})
	if err != nil {
		return nil, fmt.Errorf("listing qr assignments for %s: %w", accountID, err)
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc qrDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding qr assignment: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating qr assignments: %w", err)
	}
	return ids, nil
}
