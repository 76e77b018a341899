package service

import (
	"context"
	"sync"
	"time"

	"github.com/yasinhessnawi1/authgate/internal/auth"
	"github.com/yasinhessnawi1/authgate/internal/config"
	"github.com/yasinhessnawi1/authgate/internal/constants"
	"github.com/yasinhessnawi1/authgate/internal/models"
	"github.com/yasinhessnawi1/authgate/internal/repository"
	"github.com/yasinhessnawi1/authgate/internal/utils"
)

// MockUserRepository is an in-memory UserRepository with the same
// conditional update semantics as the PostgreSQL one.
type MockUserRepository struct {
	mu     sync.Mutex
	users  map[int64]*models.User
	nextID int64
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:  make(map[int64]*models.User),
		nextID: 1,
	}
}

func (m *MockUserRepository) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return utils.NewDuplicateError("User", "email", user.Email)
		}
	}

	user.ID = m.nextID
	m.nextID++
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *MockUserRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return nil, utils.NewNotFoundError("User", id)
	}
	copied := *user
	return &copied, nil
}

func (m *MockUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, utils.NewNotFoundError("User", email)
}

func (m *MockUserRepository) GetByEmailVerifyToken(_ context.Context, token string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token != "" {
		for _, u := range m.users {
			if u.EmailVerifyToken == token {
				copied := *u
				return &copied, nil
			}
		}
	}
	return nil, utils.NewNotFoundError("User", "email_verify_token")
}

func (m *MockUserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockUserRepository) UpdatePassword(_ context.Context, id int64, passwordHash, salt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return utils.NewNotFoundError("User", id)
	}
	user.PasswordHash = passwordHash
	user.Salt = salt
	return nil
}

func (m *MockUserRepository) SetSingleUseToken(_ context.Context, id int64, slot models.TokenSlot, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return utils.NewNotFoundError("User", id)
	}
	if slot == models.SlotEmailVerify {
		user.EmailVerifyToken = value
	} else {
		user.ForgotPasswordToken = value
	}
	return nil
}

func (m *MockUserRepository) GetSingleUseToken(_ context.Context, id int64, slot models.TokenSlot) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return "", utils.NewNotFoundError("User", id)
	}
	return user.SlotValue(slot), nil
}

func (m *MockUserRepository) ClearSingleUseToken(ctx context.Context, id int64, slot models.TokenSlot) error {
	return m.SetSingleUseToken(ctx, id, slot, "")
}

func (m *MockUserRepository) ResetPassword(_ context.Context, id int64, token, passwordHash, salt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok || token == "" || user.ForgotPasswordToken != token {
		return utils.NewUnauthorizedError(constants.MsgInvalidForgotPasswordToken)
	}
	user.PasswordHash = passwordHash
	user.Salt = salt
	user.ForgotPasswordToken = ""
	return nil
}

func (m *MockUserRepository) MarkEmailVerified(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok || user.Status != models.UserUnverified {
		return false, nil
	}
	user.Status = models.UserVerified
	user.EmailVerifyToken = ""
	return true, nil
}

// addUser stores a user directly, bypassing Create.
func (m *MockUserRepository) addUser(user *models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	user.ID = m.nextID
	m.nextID++
	stored := *user
	m.users[user.ID] = &stored
	return user
}

// MockRefreshTokenRepository is an in-memory RefreshTokenRepository keyed by token digest.
type MockRefreshTokenRepository struct {
	mu      sync.Mutex
	records map[string]*models.RefreshToken
	nextID  int64
	err     error
}

func NewMockRefreshTokenRepository() *MockRefreshTokenRepository {
	return &MockRefreshTokenRepository{
		records: make(map[string]*models.RefreshToken),
		nextID:  1,
	}
}

func (m *MockRefreshTokenRepository) Insert(_ context.Context, record *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	digest := utils.HashToken(record.Token)
	if _, ok := m.records[digest]; ok {
		return utils.NewDuplicateError("RefreshToken", "token_hash", digest)
	}
	record.ID = m.nextID
	m.nextID++
	stored := *record
	m.records[digest] = &stored
	return nil
}

func (m *MockRefreshTokenRepository) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	record, ok := m.records[utils.HashToken(token)]
	if !ok {
		return nil, utils.NewNotFoundError("RefreshToken", "token")
	}
	copied := *record
	return &copied, nil
}

func (m *MockRefreshTokenRepository) Delete(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return false, m.err
	}
	digest := utils.HashToken(token)
	if _, ok := m.records[digest]; !ok {
		return false, nil
	}
	delete(m.records, digest)
	return true, nil
}

func (m *MockRefreshTokenRepository) DeleteByUserID(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return 0, m.err
	}
	var count int64
	for digest, record := range m.records {
		if record.UserID == userID {
			delete(m.records, digest)
			count++
		}
	}
	return count, nil
}

func (m *MockRefreshTokenRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return 0, m.err
	}
	var count int64
	for digest, record := range m.records {
		if record.ExpiresAt.Before(before) {
			delete(m.records, digest)
			count++
		}
	}
	return count, nil
}

func (m *MockRefreshTokenRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *MockRefreshTokenRepository) failWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// sentEmail records one call to MockEmailSender.
type sentEmail struct {
	kind  string
	to    string
	token string
}

// MockEmailSender records the emails it was asked to send.
type MockEmailSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (m *MockEmailSender) SendVerifyEmail(_ context.Context, toEmail, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{kind: "verify", to: toEmail, token: token})
	return m.err
}

func (m *MockEmailSender) SendForgotPasswordEmail(_ context.Context, toEmail, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{kind: "forgot", to: toEmail, token: token})
	return m.err
}

func (m *MockEmailSender) emails() []sentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentEmail(nil), m.sent...)
}

// MockEventPublisher records published events.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (m *MockEventPublisher) Publish(_ context.Context, event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *MockEventPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockEventPublisher) types() []EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]EventType, 0, len(m.events))
	for _, e := range m.events {
		types = append(types, e.Type)
	}
	return types
}

// testClock is a settable clock shared by the codec and the manager.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0).UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testTokenSettings uses whole-second lifetimes since token times are second precision.
func testTokenSettings() *config.TokenSettings {
	return &config.TokenSettings{
		AccessSecret:         "test-access-secret",
		AccessExpiry:         15 * time.Minute,
		RefreshSecret:        "test-refresh-secret",
		RefreshExpiry:        time.Hour,
		ForgotPasswordSecret: "test-forgot-password-secret",
		ForgotPasswordExpiry: 10 * time.Minute,
		EmailVerifySecret:    "test-email-verify-secret",
		EmailVerifyExpiry:    24 * time.Hour,
		Issuer:               "authgate-test",
	}
}

// testPasswordConfig keeps Argon2 cheap in tests.
func testPasswordConfig() *auth.PasswordConfig {
	return &auth.PasswordConfig{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// lifecycleFixture wires a manager over in-memory stores.
type lifecycleFixture struct {
	clock   *testClock
	codec   *auth.TokenCodec
	users   *MockUserRepository
	refresh *MockRefreshTokenRepository
	store   *repository.SessionStore
	email   *MockEmailSender
	events  *MockEventPublisher
	manager *TokenLifecycleManager
}

func newLifecycleFixture() *lifecycleFixture {
	clock := newTestClock()
	codec := auth.NewTokenCodec(testTokenSettings()).WithClock(clock.Now)
	users := NewMockUserRepository()
	refresh := NewMockRefreshTokenRepository()
	store := repository.NewSessionStore(refresh, users)
	email := &MockEmailSender{}
	events := &MockEventPublisher{}

	manager := NewTokenLifecycleManager(codec, store, users, email, events, testPasswordConfig()).
		WithClock(clock.Now)

	return &lifecycleFixture{
		clock:   clock,
		codec:   codec,
		users:   users,
		refresh: refresh,
		store:   store,
		email:   email,
		events:  events,
		manager: manager,
	}
}

// newUser stores a user with the given status and a known password.
func (f *lifecycleFixture) newUser(email string, status models.UserStatus, password string) *models.User {
	hash, salt, err := auth.HashPassword(password, testPasswordConfig())
	if err != nil {
		panic(err)
	}
	user := models.NewUser("Test User", email)
	user.PasswordHash = hash
	user.Salt = salt
	user.Status = status
	return f.users.addUser(user)
}
