package digivahan

import (
	"context"
	"time"
)

// AccountStatus is the stored lifecycle status of an account. Suspension is
// not a stored status: it is derived from SuspendedUntil at read time, so it
// can expire without a write.
type AccountStatus string

const (
	// AccountActive is the normal operating state.
	AccountActive AccountStatus = "ACTIVE"
	// AccountPendingDeletion marks an account scheduled for removal; a
	// successful login before the deletion date cancels it.
	AccountPendingDeletion AccountStatus = "PENDING_DELETION"
)

// ContactChannel selects which contact identifier a flow addresses.
type ContactChannel string

const (
	// ChannelEmail is an exported constant selecting the email contact.
	ChannelEmail ContactChannel = "email"
	// ChannelPhone is an exported constant selecting the phone contact.
	ChannelPhone ContactChannel = "phone"
)

// OTPPurpose tags a one-time code with the flow that issued it. Codes are
// keyed per purpose so flows can never consume each other's codes.
type OTPPurpose string

const (
	// PurposeSignup gates 3-step registration.
	PurposeSignup OTPPurpose = "signup"
	// PurposeLogin gates OTP-based login.
	PurposeLogin OTPPurpose = "login"
	// PurposePasswordReset gates contact-based password reset.
	PurposePasswordReset OTPPurpose = "password_reset"
	// PurposeContactVerify gates standalone contact verification.
	PurposeContactVerify OTPPurpose = "contact_verify"
	// PurposeContactChange gates primary-contact change.
	PurposeContactChange OTPPurpose = "contact_change"
	// PurposeAdminLogin gates the second step of admin sign-in.
	PurposeAdminLogin OTPPurpose = "admin_login"
)

// Account is the identity root. Email and phone are each unique across all
// accounts and independently verifiable; Primary names at most one of them.
// PasswordHistory holds up to three prior hashes, most recent first.
type Account struct {
	ID               string
	Email            string
	Phone            string
	Primary          ContactChannel
	PasswordHash     string
	PasswordHistory  []string
	EmailVerified    bool
	PhoneVerified    bool
	Active           bool
	LoggedIn         bool
	Status           AccountStatus
	SuspendedUntil   *time.Time
	SuspensionReason string
	DeletionDate     *time.Time
	CreatedAt        time.Time
}

// SuspendedAt reports whether the account is inside a suspension window at
// the given wall-clock instant. Callers must never cache the result.
func (a *Account) SuspendedAt(now time.Time) bool {
	return a.SuspendedUntil != nil && a.SuspendedUntil.After(now)
}

// AccountStore is the credential store: the durable owner of account
// records. Implementations back conditional mutations with atomic
// single-document updates ("update where id and precondition"), returning
// ErrNotFoundOrInvalidState (or ErrStaleAccount for CommitPassword) when the
// precondition does not hold.
type AccountStore interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	// GetByContact resolves an account by exact email or phone match.
	GetByContact(ctx context.Context, contact string) (*Account, error)
	// Create persists a new account; ErrDuplicateContact on a unique-index
	// clash for email or phone.
	Create(ctx context.Context, account *Account) error
	// CommitPassword swaps the password hash and history in one update,
	// conditional on the current hash still being expectedHash; a stale read
	// returns ErrStaleAccount and must not be committed. Marks the account
	// logged in.
	CommitPassword(ctx context.Context, id, expectedHash, newHash string, history []string) error
	SetLoggedIn(ctx context.Context, id string, loggedIn bool) error
	// SetContactVerified flips the verification flag for one channel.
	SetContactVerified(ctx context.Context, id string, channel ContactChannel) error
	// SetPrimaryContact replaces the value of the given channel and marks it
	// primary; ErrDuplicateContact if the new value is taken.
	SetPrimaryContact(ctx context.Context, id string, channel ContactChannel, value string) error
	// Suspend sets the suspension window and forces logged-out, conditional
	// on the account not being currently suspended at now.
	Suspend(ctx context.Context, id, reason string, until, now time.Time) error
	// RemoveSuspension clears the window, conditional on the account being
	// currently suspended at now.
	RemoveSuspension(ctx context.Context, id string, now time.Time) error
	// ScheduleDeletion moves ACTIVE -> PENDING_DELETION and sets the date.
	ScheduleDeletion(ctx context.Context, id string, deletionDate time.Time) error
	// CancelDeletion moves PENDING_DELETION -> ACTIVE and clears the date.
	CancelDeletion(ctx context.Context, id string) error
	// Delete removes the record entirely (terminal).
	Delete(ctx context.Context, id string) error
}

// DeletionType distinguishes immediate from scheduled removal.
type DeletionType string

const (
	// DeletionImmediate is an exported constant for operator-forced removal.
	DeletionImmediate DeletionType = "IMMEDIATE"
	// DeletionScheduled is an exported constant for user-requested removal
	// after the grace window.
	DeletionScheduled DeletionType = "SCHEDULED"
)

// DeletionStatus is the work-item state of a deletion record.
type DeletionStatus string

const (
	// DeletionPending marks a record awaiting the sweep.
	DeletionPending DeletionStatus = "PENDING"
	// DeletionCompleted marks a record the sweep has finalized.
	DeletionCompleted DeletionStatus = "COMPLETED"
)

// DeletionRecord is the audit/work-item for a scheduled account removal.
// At most one PENDING record exists per account at a time.
type DeletionRecord struct {
	ID             string
	AccountID      string
	Type           DeletionType
	Reason         string
	DeleteOn       time.Time
	Status         DeletionStatus
	BlockedQRCodes []string
	CompletedAt    *time.Time
}

// DeletionRecordStore owns deletion work-items.
type DeletionRecordStore interface {
	// Create persists a PENDING record; ErrDeletionPending if one already
	// exists for the account.
	Create(ctx context.Context, record *DeletionRecord) error
	// DeletePendingForAccount removes the account's PENDING record(s);
	// deleting nothing is not an error.
	DeletePendingForAccount(ctx context.Context, accountID string) error
	// ListDue returns PENDING records with DeleteOn at or before now.
	ListDue(ctx context.Context, now time.Time) ([]DeletionRecord, error)
	// MarkCompleted stamps the record COMPLETED with the blocked QR ids.
	MarkCompleted(ctx context.Context, id string, blockedQRCodes []string, completedAt time.Time) error
}

// QRStatus is the assignment state the deletion and recovery cascades flip.
type QRStatus string

const (
	// QRActive is an exported constant or variable used by the cascades.
	QRActive QRStatus = "active"
	// QRInactive is an exported constant or variable used by the cascades.
	QRInactive QRStatus = "inactive"
	// QRBlocked is an exported constant or variable used by the cascades.
	QRBlocked QRStatus = "blocked"
)

// QRAssignmentStore is the external QR collaborator, referenced not owned
// here. SetStatusForAccount returns the identifiers of the assignments it
// touched so the deletion record can retain them.
type QRAssignmentStore interface {
	SetStatusForAccount(ctx context.Context, accountID string, status QRStatus) ([]string, error)
	FindAllForAccount(ctx context.Context, accountID string) ([]string, error)
}

// VehicleDocument references a stored document by URL plus deletable id; the
// object store behind it is out of scope.
type VehicleDocument struct {
	Name     string
	URL      string
	PublicID string
}

// GarageStore exposes the per-vehicle security code slot and document list.
// Exactly one code is active per vehicle; an empty code means inactive.
type GarageStore interface {
	// SetSecurityCode overwrites the vehicle's code and expiry;
	// ErrVehicleNotFound if the vehicle is not in the account's garage.
	SetSecurityCode(ctx context.Context, accountID, vehicleID, code string, expiresAt time.Time) error
	GetSecurityCode(ctx context.Context, accountID, vehicleID string) (code string, expiresAt time.Time, err error)
	ClearSecurityCode(ctx context.Context, accountID, vehicleID string) error
	ListDocuments(ctx context.Context, accountID, vehicleID string) ([]VehicleDocument, error)
}

// AdminRecord is the separate admin principal. Admin tokens never validate
// against user accounts and vice versa.
type AdminRecord struct {
	ID           string
	Email        string
	PasswordHash string
	Active       bool
}

// AdminStore resolves admin principals.
type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (*AdminRecord, error)
	GetByID(ctx context.Context, id string) (*AdminRecord, error)
}

// OTPChannel delivers one-time codes over an external provider. A single
// call per issue; the engine applies a bounded timeout and treats timeout as
// delivery failure.
type OTPChannel interface {
	Send(ctx context.Context, contact string, channel ContactChannel, code string, purpose OTPPurpose) error
}

// AuthResult is returned by [Engine.Authenticate] and attached to the
// request context by middleware.
type AuthResult struct {
	AccountID string
	Email     string
	Phone     string
}

// AdminResult is returned by [Engine.AdminAuthenticate].
type AdminResult struct {
	AdminID string
	Email   string
}

// SignInResult carries the issued bearer token and the account it belongs
// to.
type SignInResult struct {
	Token   string
	Account *Account
}

// RegistrationInput is the pending-account snapshot captured at
// BeginRegistration and held until OTP confirmation.
type RegistrationInput struct {
	Email    string
	Phone    string
	Password string
	// Primary selects which contact is flagged primary and receives the
	// signup OTP.
	Primary ContactChannel
}

// SweepReport summarizes one deletion sweep run.
type SweepReport struct {
	Processed int
	Failed    int
}
