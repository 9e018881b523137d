package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"

	digivahan "github.com/Preet-Sharma-7061/Digivahan-backend-sub000"
)

// DeletionRecordStore implements digivahan.DeletionRecordStore on the
// deletion_records collection.
type DeletionRecordStore struct {
	coll *driver.Collection
}

type deletionDoc struct {
	ID             string     `bson:"_id"`
	AccountID      string     `bson:"account_id"`
	Type           string     `bson:"type"`
	Reason         string     `bson:"reason,omitempty"`
	DeleteOn       time.Time  `bson:"delete_on"`
	Status         string     `bson:"status"`
	BlockedQRCodes []string   `bson:"blocked_qr_codes,omitempty"`
	CompletedAt    *time.Time `bson:"completed_at,omitempty"`
}

func (d deletionDoc) toRecord() digivahan.DeletionRecord {
	return digivahan.DeletionRecord{
		ID:             d.ID,
		AccountID:      d.AccountID,
		Type:           digivahan.DeletionType(d.Type),
		Reason:         d.Reason,
		DeleteOn:       d.DeleteOn,
		Status:         digivahan.DeletionStatus(d.Status),
		BlockedQRCodes: d.BlockedQRCodes,
		CompletedAt:    d.CompletedAt,
	}
}

// Create inserts a PENDING record. The partial unique index on account_id
// turns a second pending record into a duplicate-key error.
func (s *DeletionRecordStore) Create(ctx context.Context, record *digivahan.DeletionRecord) error {
	doc := deletionDoc{
		ID:             record.ID,
		AccountID:      record.AccountID,
		Type:           string(record.Type),
		Reason:         record.Reason,
		DeleteOn:       record.DeleteOn,
		Status:         string(record.Status),
		BlockedQRCodes: record.BlockedQRCodes,
		CompletedAt:    record.CompletedAt,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if driver.IsDuplicateKeyError(err) {
			return digivahan.ErrDeletionPending
		}
		return fmt.Errorf("creating deletion record: %w", err)
	}
	return nil
}

func (s *DeletionRecordStore) DeletePendingForAccount(ctx context.Context, accountID string) error {
	filter := bson.D{
		{Key: "account_id", Value: accountID},
		{Key: "status", Value: string(digivahan.DeletionPending)},
	}
	if _, err := s.coll.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("removing pending deletion records for %s: %w", accountID, err)
	}
	return nil
}

func (s *DeletionRecordStore) ListDue(ctx context.Context, now time.Time) ([]digivahan.DeletionRecord, error) {
	filter := bson.D{
		{Key: "status", Value: string(digivahan.DeletionPending)},
		{Key: "delete_on", Value: bson.D{{Key: "$lte", Value: now}}},
	}

	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing due deletion records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []digivahan.DeletionRecord
	for cursor.Next(ctx) {
		var doc deletionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding deletion record: %w", err)
		}
		records = append(records, doc.toRecord())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating deletion records: %w", err)
	}
	return records, nil
}

func (s *DeletionRecordStore) MarkCompleted(ctx context.Context, id string, blockedQRCodes []string, completedAt time.Time) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: string(digivahan.DeletionCompleted)},
		{Key: "blocked_qr_codes", Value: blockedQRCodes},
		{Key: "completed_at", Value: completedAt},
	}}}

	res, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return fmt.Errorf("completing deletion record %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return digivahan.ErrNotFoundOrInvalidState
	}
	return nil
}
