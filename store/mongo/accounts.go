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

// AccountStore implements digivahan.AccountStore on the accounts
// collection.
type AccountStore struct {
	coll *driver.Collection
}

type accountDoc struct {
	ID               string     `bson:"_id"`
	Email            string     `bson:"email"`
	Phone            string     `bson:"phone"`
	Primary          string     `bson:"primary"`
	PasswordHash     string     `bson:"password_hash"`
	PasswordHistory  []string   `bson:"password_history,omitempty"`
	EmailVerified    bool       `bson:"email_verified"`
	PhoneVerified    bool       `bson:"phone_verified"`
	Active           bool       `bson:"active"`
	LoggedIn         bool       `bson:"logged_in"`
	Status           string     `bson:"status"`
	SuspendedUntil   *time.Time `bson:"suspended_until,omitempty"`
	SuspensionReason string     `bson:"suspension_reason,omitempty"`
	DeletionDate     *time.Time `bson:"deletion_date,omitempty"`
	CreatedAt        time.Time  `bson:"created_at"`
}

func toAccountDoc(a *digivahan.Account) accountDoc {
	return accountDoc{
		ID:               a.ID,
		Email:            a.Email,
		Phone:            a.Phone,
		Primary:          string(a.Primary),
		PasswordHash:     a.PasswordHash,
		PasswordHistory:  a.PasswordHistory,
		EmailVerified:    a.EmailVerified,
		PhoneVerified:    a.PhoneVerified,
		Active:           a.Active,
		LoggedIn:         a.LoggedIn,
		Status:           string(a.Status),
		SuspendedUntil:   a.SuspendedUntil,
		SuspensionReason: a.SuspensionReason,
		DeletionDate:     a.DeletionDate,
		CreatedAt:        a.CreatedAt,
	}
}

func (d accountDoc) toAccount() *digivahan.Account {
	return &digivahan.Account{
		ID:               d.ID,
		Email:            d.Email,
		Phone:            d.Phone,
		Primary:          digivahan.ContactChannel(d.Primary),
		PasswordHash:     d.PasswordHash,
		PasswordHistory:  d.PasswordHistory,
		EmailVerified:    d.EmailVerified,
		PhoneVerified:    d.PhoneVerified,
		Active:           d.Active,
		LoggedIn:         d.LoggedIn,
		Status:           digivahan.AccountStatus(d.Status),
		SuspendedUntil:   d.SuspendedUntil,
		SuspensionReason: d.SuspensionReason,
		DeletionDate:     d.DeletionDate,
		CreatedAt:        d.CreatedAt,
	}
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (*digivahan.Account, error) {
	var doc accountDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, driver.ErrNoDocuments) {
			return nil, digivahan.ErrAccountNotFound
		}
		return nil, fmt.Errorf("loading account %s: %w", id, err)
	}
	return doc.toAccount(), nil
}

func (s *AccountStore) GetByContact(ctx context.Context, contact string) (*digivahan.Account, error) {
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "email", Value: contact}},
		bson.D{{Key: "phone", Value: contact}},
	}}}

	var doc accountDoc
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, driver.ErrNoDocuments) {
			return nil, digivahan.ErrAccountNotFound
		}
		return nil, fmt.Errorf("loading account by contact: %w", err)
	}
	return doc.toAccount(), nil
}

func (s *AccountStore) Create(ctx context.Context, account *digivahan.Account) error {
	_, err := s.coll.InsertOne(ctx, toAccountDoc(account))
	if err != nil {
		if driver.IsDuplicateKeyError(err) {
			return digivahan.ErrDuplicateContact
		}
		return fmt.Errorf("creating account: %w", err)
	}
	return nil
}

// CommitPassword swaps hash and history in one update conditional on the
// current hash. A lost race shows up as zero matched documents.
func (s *AccountStore) CommitPassword(ctx context.Context, id, expectedHash, newHash string, history []string) error {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "password_hash", Value: expectedHash},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "password_hash", Value: newHash},
		{Key: "password_history", Value: history},
		{Key: "logged_in", Value: true},
	}}}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("committing password for %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return digivahan.ErrStaleAccount
	}
	return nil
}

func (s *AccountStore) SetLoggedIn(ctx context.Context, id string, loggedIn bool) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "logged_in", Value: loggedIn}}}},
	)
	if err != nil {
		return fmt.Errorf("setting logged-in for %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return digivahan.ErrAccountNotFound
	}
	return nil
}

func (s *AccountStore) SetContactVerified(ctx context.Context, id string, channel digivahan.ContactChannel) error {
	field := "email_verified"
	if channel == digivahan.ChannelPhone {
		field = "phone_verified"
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: field, Value: true}}}},
	)
	if err != nil {
		return fmt.Errorf("marking %s verified for %s: %w", channel, id, err)
	}
	if res.MatchedCount == 0 {
		return digivahan.ErrAccountNotFound
	}
	return nil
}

func (s *AccountStore) SetPrimaryContact(ctx context.Context, id string, channel digivahan.ContactChannel, value string) error {
	field := "email"
	if channel == digivahan.ChannelPhone {
		field = "phone"
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: field, Value: value},
			{Key: "primary", Value: string(channel)},
		}}},
	)
	if err != nil {
		if driver.IsDuplicateKeyError(err) {
			return digivahan.ErrDuplicateContact
		}
		return fmt.Errorf("replacing %s for %s: %w", channel, id, err)
	}
	if res.MatchedCount == 0 {
		return digivahan.ErrAccountNotFound
	}
	return nil
}

// Suspend opens a suspension window, conditional on no window being open
// at now. The filter admits both a missing suspended_until and one already
// in the past.
func (s *AccountStore) Suspend(ctx context.Context, id, reason string, until, now time.Time) error {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "suspended_until", Value: nil}},
			bson.D{{Key: "suspended_until", Value: bson.D{{Key: "$lte", Value: now}}}},
		}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "suspended_until", Value: until},
		{Key: "suspension_reason", Value: reason},
		{Key: "logged_in", Value: false},
	}}}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("suspending %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return digivahan.ErrNotFoundOrInvalidState
	}
	return nil
}

func (s *AccountStore) RemoveSuspension(ctx context.Context, id string, now time.Time) error {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "suspended_until", Value: bson.D{{Key: "$gt", Value: now}}},
	}
	update := bson.D{
		{Key: "$unset", Value: bson.D{
			{Key: "suspended_until", Value: ""},
			{Key: "suspension_reason", Value: ""},
		}},
	}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("removing suspension for %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return digivahan.ErrNotFoundOrInvalidState
	}
	return nil
}

func (s *AccountStore) ScheduleDeletion(ctx context.Context, id string, deletionDate time.Time) error {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "status", Value: string(digivahan.AccountActive)},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: string(digivahan.AccountPendingDeletion)},
		{Key: "deletion_date", Value: deletionDate},
	}}}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("scheduling deletion for %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return digivahan.ErrNotFoundOrInvalidState
	}
	return nil
}

func (s *AccountStore) CancelDeletion(ctx context.Context, id string) error {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "status", Value: string(digivahan.AccountPendingDeletion)},
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{{Key: "status", Value: string(digivahan.AccountActive)}}},
		{Key: "$unset", Value: bson.D{{Key: "deletion_date", Value: ""}}},
	}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("cancelling deletion for %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return digivahan.ErrNotFoundOrInvalidState
	}
	return nil
}

func (s *AccountStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("deleting account %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return digivahan.ErrAccountNotFound
	}
	return nil
}
