package digivahan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.PrivateKey = []byte("user-test-secret-0123456789abcdef")
	cfg.AdminJWT.PrivateKey = []byte("admin-test-secret-fedcba987654321")
	cfg.Password = PasswordConfig{
		Memory:       8 * 1024,
		Time:         1,
		Parallelism:  1,
		SaltLength:   16,
		KeyLength:    16,
		HistoryDepth: 3,
	}
	return cfg
}

type testEnv struct {
	mr        *miniredis.Miniredis
	rdb       *redis.Client
	engine    *Engine
	accounts  *mockAccounts
	deletions *mockDeletions
	qr        *mockQR
	garage    *mockGarage
	admins    *mockAdmins
	channel   *mockChannel
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, rdb := newTestRedis(t)
	env := &testEnv{
		mr:        mr,
		rdb:       rdb,
		accounts:  newMockAccounts(),
		deletions: newMockDeletions(),
		qr:        newMockQR(),
		garage:    newMockGarage(),
		admins:    newMockAdmins(),
		channel:   &mockChannel{},
	}

	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithAccounts(env.accounts).
		WithAdmins(env.admins).
		WithDeletionRecords(env.deletions).
		WithQRAssignments(env.qr).
		WithGarage(env.garage).
		WithOTPChannel(env.channel).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	env.engine = engine

	t.Cleanup(func() {
		engine.Close()
		mr.Close()
	})
	return env
}

// seedAccount creates an active account with the given password directly
// in the mock store and returns it.
func (env *testEnv) seedAccount(t *testing.T, email, phone, pass string) *Account {
	t.Helper()

	hash, err := env.engine.passwordHash.Hash(pass)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	account := &Account{
		ID:            uuid.NewString(),
		Email:         email,
		Phone:         phone,
		Primary:       ChannelEmail,
		PasswordHash:  hash,
		EmailVerified: true,
		Active:        true,
		Status:        AccountActive,
		CreatedAt:     time.Now(),
	}
	if err := env.accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("seeding account: %v", err)
	}
	return account
}

func (env *testEnv) seedAdmin(t *testing.T, email, pass string) *AdminRecord {
	t.Helper()

	hash, err := env.engine.passwordHash.Hash(pass)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	admin := &AdminRecord{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Active:       true,
	}
	env.admins.mu.Lock()
	env.admins.records[admin.ID] = admin
	env.admins.mu.Unlock()
	return admin
}

// lastCode returns the most recently delivered code, failing the test
// when nothing was sent.
func (env *testEnv) lastCode(t *testing.T) sentCode {
	t.Helper()

	env.channel.mu.Lock()
	defer env.channel.mu.Unlock()
	if len(env.channel.sent) == 0 {
		t.Fatal("no code was delivered")
	}
	return env.channel.sent[len(env.channel.sent)-1]
}

/*==== MOCKS ====*/

type sentCode struct {
	contact string
	channel ContactChannel
	code    string
	purpose OTPPurpose
}

type mockChannel struct {
	mu   sync.Mutex
	sent []sentCode
	fail error
}

func (c *mockChannel) Send(_ context.Context, contact string, channel ContactChannel, code string, purpose OTPPurpose) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.sent = append(c.sent, sentCode{contact: contact, channel: channel, code: code, purpose: purpose})
	return nil
}

type mockAccounts struct {
	mu         sync.Mutex
	accounts   map[string]*Account
	failDelete map[string]error
}

func newMockAccounts() *mockAccounts {
	return &mockAccounts{
		accounts:   map[string]*Account{},
		failDelete: map[string]error{},
	}
}

func (m *mockAccounts) get(id string) *Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		cp := *a
		return &cp
	}
	return nil
}

func (m *mockAccounts) GetByID(_ context.Context, id string) (*Account, error) {
	a := m.get(id)
	if a == nil {
		return nil, ErrAccountNotFound
	}
	return a, nil
}

func (m *mockAccounts) GetByContact(_ context.Context, contact string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == contact || a.Phone == contact {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *mockAccounts) Create(_ context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == account.Email || a.Phone == account.Phone {
			return ErrDuplicateContact
		}
	}
	cp := *account
	m.accounts[account.ID] = &cp
	return nil
}

func (m *mockAccounts) CommitPassword(_ context.Context, id, expectedHash, newHash string, history []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.PasswordHash != expectedHash {
		return ErrStaleAccount
	}
	a.PasswordHash = newHash
	a.PasswordHistory = append([]string(nil), history...)
	a.LoggedIn = true
	return nil
}

func (m *mockAccounts) SetLoggedIn(_ context.Context, id string, loggedIn bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.LoggedIn = loggedIn
	return nil
}

func (m *mockAccounts) SetContactVerified(_ context.Context, id string, channel ContactChannel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	if channel == ChannelPhone {
		a.PhoneVerified = true
	} else {
		a.EmailVerified = true
	}
	return nil
}

func (m *mockAccounts) SetPrimaryContact(_ context.Context, id string, channel ContactChannel, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for otherID, other := range m.accounts {
		if otherID != id && (other.Email == value || other.Phone == value) {
			return ErrDuplicateContact
		}
	}
	a, ok := m.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	if channel == ChannelPhone {
		a.Phone = value
	} else {
		a.Email = value
	}
	a.Primary = channel
	return nil
}

func (m *mockAccounts) Suspend(_ context.Context, id, reason string, until, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.SuspendedAt(now) {
		return ErrNotFoundOrInvalidState
	}
	a.SuspendedUntil = &until
	a.SuspensionReason = reason
	a.LoggedIn = false
	return nil
}

func (m *mockAccounts) RemoveSuspension(_ context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || !a.SuspendedAt(now) {
		return ErrNotFoundOrInvalidState
	}
	a.SuspendedUntil = nil
	a.SuspensionReason = ""
	return nil
}

func (m *mockAccounts) ScheduleDeletion(_ context.Context, id string, deletionDate time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.Status != AccountActive {
		return ErrNotFoundOrInvalidState
	}
	a.Status = AccountPendingDeletion
	a.DeletionDate = &deletionDate
	return nil
}

func (m *mockAccounts) CancelDeletion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.Status != AccountPendingDeletion {
		return ErrNotFoundOrInvalidState
	}
	a.Status = AccountActive
	a.DeletionDate = nil
	return nil
}

func (m *mockAccounts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failDelete[id]; ok {
		return err
	}
	if _, ok := m.accounts[id]; !ok {
		return ErrAccountNotFound
	}
	delete(m.accounts, id)
	return nil
}

// directly mutates a stored account, bypassing the interface.
func (m *mockAccounts) patch(id string, fn func(*Account)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		fn(a)
	}
}

type mockDeletions struct {
	mu      sync.Mutex
	records map[string]*DeletionRecord
}

func newMockDeletions() *mockDeletions {
	return &mockDeletions{records: map[string]*DeletionRecord{}}
}

func (m *mockDeletions) Create(_ context.Context, record *DeletionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.AccountID == record.AccountID && r.Status == DeletionPending {
			return ErrDeletionPending
		}
	}
	cp := *record
	m.records[record.ID] = &cp
	return nil
}

func (m *mockDeletions) DeletePendingForAccount(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.records {
		if r.AccountID == accountID && r.Status == DeletionPending {
			delete(m.records, id)
		}
	}
	return nil
}

func (m *mockDeletions) ListDue(_ context.Context, now time.Time) ([]DeletionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []DeletionRecord
	for _, r := range m.records {
		if r.Status == DeletionPending && !r.DeleteOn.After(now) {
			due = append(due, *r)
		}
	}
	return due, nil
}

func (m *mockDeletions) MarkCompleted(_ context.Context, id string, blockedQRCodes []string, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return ErrNotFoundOrInvalidState
	}
	r.Status = DeletionCompleted
	r.BlockedQRCodes = append([]string(nil), blockedQRCodes...)
	r.CompletedAt = &completedAt
	return nil
}

func (m *mockDeletions) pendingFor(accountID string) *DeletionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.AccountID == accountID && r.Status == DeletionPending {
			cp := *r
			return &cp
		}
	}
	return nil
}

func (m *mockDeletions) byID(id string) *DeletionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[id]; ok {
		cp := *r
		return &cp
	}
	return nil
}

type mockQR struct {
	mu     sync.Mutex
	owners map[string]string // qr id -> account id
	status map[string]QRStatus
}

func newMockQR() *mockQR {
	return &mockQR{owners: map[string]string{}, status: map[string]QRStatus{}}
}

func (m *mockQR) assign(qrID, accountID string, status QRStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[qrID] = accountID
	m.status[qrID] = status
}

func (m *mockQR) statusOf(qrID string) QRStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status[qrID]
}

func (m *mockQR) SetStatusForAccount(_ context.Context, accountID string, status QRStatus) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, owner := range m.owners {
		if owner == accountID {
			m.status[id] = status
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *mockQR) FindAllForAccount(_ context.Context, accountID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, owner := range m.owners {
		if owner == accountID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type mockVehicle struct {
	accountID string
	code      string
	expiresAt time.Time
	documents []VehicleDocument
}

type mockGarage struct {
	mu       sync.Mutex
	vehicles map[string]*mockVehicle
}

func newMockGarage() *mockGarage {
	return &mockGarage{vehicles: map[string]*mockVehicle{}}
}

func (m *mockGarage) addVehicle(vehicleID, accountID string, docs []VehicleDocument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[vehicleID] = &mockVehicle{accountID: accountID, documents: docs}
}

func (m *mockGarage) lookup(accountID, vehicleID string) *mockVehicle {
	v, ok := m.vehicles[vehicleID]
	if !ok || v.accountID != accountID {
		return nil
	}
	return v
}

func (m *mockGarage) SetSecurityCode(_ context.Context, accountID, vehicleID, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.lookup(accountID, vehicleID)
	if v == nil {
		return ErrVehicleNotFound
	}
	v.code = code
	v.expiresAt = expiresAt
	return nil
}

func (m *mockGarage) GetSecurityCode(_ context.Context, accountID, vehicleID string) (string, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.lookup(accountID, vehicleID)
	if v == nil {
		return "", time.Time{}, ErrVehicleNotFound
	}
	return v.code, v.expiresAt, nil
}

func (m *mockGarage) ClearSecurityCode(_ context.Context, accountID, vehicleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.lookup(accountID, vehicleID)
	if v == nil {
		return ErrVehicleNotFound
	}
	v.code = ""
	v.expiresAt = time.Time{}
	return nil
}

func (m *mockGarage) ListDocuments(_ context.Context, accountID, vehicleID string) ([]VehicleDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.lookup(accountID, vehicleID)
	if v == nil {
		return nil, ErrVehicleNotFound
	}
	return append([]VehicleDocument(nil), v.documents...), nil
}

type mockAdmins struct {
	mu      sync.Mutex
	records map[string]*AdminRecord
}

func newMockAdmins() *mockAdmins {
	return &mockAdmins{records: map[string]*AdminRecord{}}
}

func (m *mockAdmins) GetByEmail(_ context.Context, email string) (*AdminRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.records {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *mockAdmins) GetByID(_ context.Context, id string) (*AdminRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.records[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, ErrAccountNotFound
}

/*==== BUILDER ====*/

func TestBuilderRejectsMissingWiring(t *testing.T) {
	_, rdb := newTestRedis(t)

	if _, err := New().WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected error without account store")
	}
	if _, err := New().WithAccounts(newMockAccounts()).Build(); err == nil {
		t.Fatal("expected error without redis")
	}
}

func TestBuilderRejectsSharedAdminKey(t *testing.T) {
	_, rdb := newTestRedis(t)

	cfg := testConfig()
	cfg.AdminJWT.PrivateKey = cfg.JWT.PrivateKey

	_, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccounts(newMockAccounts()).
		WithAdmins(newMockAdmins()).
		WithDeletionRecords(newMockDeletions()).
		WithQRAssignments(newMockQR()).
		WithGarage(newMockGarage()).
		WithOTPChannel(&mockChannel{}).
		Build()
	if err == nil {
		t.Fatal("expected error for shared admin signing key")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	_ = env

	b := New().
		WithConfig(testConfig()).
		WithRedis(env.rdb).
		WithAccounts(env.accounts).
		WithDeletionRecords(env.deletions).
		WithQRAssignments(env.qr).
		WithGarage(env.garage).
		WithOTPChannel(env.channel)

	if _, err := b.Build(); err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}
