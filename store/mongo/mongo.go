package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	digivahan "github.com/Preet-Sharma-7061/Digivahan-backend-sub000"
)

const (
	collAccounts  = "accounts"
	collAdmins    = "admins"
	collDeletions = "deletion_records"
	collQR        = "qr_assignments"
	collVehicles  = "vehicles"
)

// Config carries the connection parameters.
type Config struct {
	URI      string
	Database string
	// ConnectTimeout bounds the initial dial. Defaults to 10s.
	ConnectTimeout time.Duration
}

// DB owns the Mongo client and hands out the per-collection stores.
type DB struct {
	client *driver.Client
	db     *driver.Database
}

// Connect dials MongoDB and pings it once.
func Connect(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongo database name required")
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := driver.Connect(dialCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(dialCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	return &DB{client: client, db: client.Database(cfg.Database)}, nil
}

// Close disconnects the underlying client.
func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the stores rely on. It is idempotent
// and safe to run on every startup.
//
// The partial unique index on deletion_records is what enforces the
// one-PENDING-record-per-account rule; Create surfaces the duplicate-key
// error as ErrDeletionPending.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	accountIndexes := []driver.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := d.db.Collection(collAccounts).Indexes().CreateMany(ctx, accountIndexes); err != nil {
		return fmt.Errorf("creating account indexes: %w", err)
	}

	deletionIndexes := []driver.IndexModel{
		{
			Keys: bson.D{{Key: "account_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "status", Value: string(digivahan.DeletionPending)}}),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "delete_on", Value: 1}},
		},
	}
	if _, err := d.db.Collection(collDeletions).Indexes().CreateMany(ctx, deletionIndexes); err != nil {
		return fmt.Errorf("creating deletion indexes: %w", err)
	}

	qrIndexes := []driver.IndexModel{
		{Keys: bson.D{{Key: "account_id", Value: 1}}},
	}
	if _, err := d.db.Collection(collQR).Indexes().CreateMany(ctx, qrIndexes); err != nil {
		return fmt.Errorf("creating qr indexes: %w", err)
	}

	vehicleIndexes := []driver.IndexModel{
		{Keys: bson.D{{Key: "account_id", Value: 1}}},
	}
	if _, err := d.db.Collection(collVehicles).Indexes().CreateMany(ctx, vehicleIndexes); err != nil {
		return fmt.Errorf("creating vehicle indexes: %w", err)
	}

	adminIndexes := []driver.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := d.db.Collection(collAdmins).Indexes().CreateMany(ctx, adminIndexes); err != nil {
		return fmt.Errorf("creating admin indexes: %w", err)
	}

	return nil
}

// Accounts returns the account store.
func (d *DB) Accounts() *AccountStore {
	return &AccountStore{coll: d.db.Collection(collAccounts)}
}

// Admins returns the admin store.
func (d *DB) Admins() *AdminStore {
	return &AdminStore{coll: d.db.Collection(collAdmins)}
}

// DeletionRecords returns the deletion work-item store.
func (d *DB) DeletionRecords() *DeletionRecordStore {
	return &DeletionRecordStore{coll: d.db.Collection(collDeletions)}
}

// QRAssignments returns the QR assignment store.
func (d *DB) QRAssignments() *QRAssignmentStore {
	return &QRAssignmentStore{coll: d.db.Collection(collQR)}
}

// Garage returns the vehicle store.
func (d *DB) Garage() *GarageStore {
	return &GarageStore{coll: d.db.Collection(collVehicles)}
}
