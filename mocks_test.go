package auth_test

import (
	"context"
	"database/sql"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	auth "github.com/good-food-maalsi/auth-service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// testConfig implements auth.Config with fixed values suited to unit tests.
type testConfig struct {
	signingKey string
	accessTTL  time.Duration
	refreshTTL time.Duration
	magicTTL   time.Duration
	issuer     string
	audience   []string
	production bool
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey: "test-signing-key-needs-to-be-long",
		accessTTL:  5 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
		magicTTL:   15 * time.Minute,
		issuer:     "test-issuer",
	}
}

func (c *testConfig) GetSigningKey() string             { return c.signingKey }
func (c *testConfig) GetSigningMethod() string          { return "HS256" }
func (c *testConfig) GetIssuer() string                 { return c.issuer }
func (c *testConfig) GetAudience() []string             { return c.audience }
func (c *testConfig) GetContextKey() string             { return "user" }
func (c *testConfig) GetTokenLookup() string            { return "" }
func (c *testConfig) GetAuthScheme() string             { return "Bearer" }
func (c *testConfig) GetAccessTokenTTL() time.Duration  { return c.accessTTL }
func (c *testConfig) GetRefreshTokenTTL() time.Duration { return c.refreshTTL }
func (c *testConfig) GetMagicTokenTTL() time.Duration   { return c.magicTTL }
func (c *testConfig) IsProduction() bool                { return c.production }

// noopLogger satisfies auth.Logger without asserting on log output.
type noopLogger struct{}

func (noopLogger) Debug(format string, args ...any) {}
func (noopLogger) Info(format string, args ...any)  {}
func (noopLogger) Warn(format string, args ...any)  {}
func (noopLogger) Error(format string, args ...any) {}

// MockUsers implements the auth.Users methods the orchestrators touch. The
// embedded interface covers the rest; calling an unmocked method panics,
// which is what we want in a unit test.
type MockUsers struct {
	mock.Mock
	auth.Users
}

func (m *MockUsers) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*auth.User, error) {
	args := m.Called(ctx, tx, identifier)
	if user, ok := args.Get(0).(*auth.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetWithRoles(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*auth.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByEmailWithRoles(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if user, ok := args.Get(0).(*auth.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) ListByFranchise(ctx context.Context, franchiseID uuid.UUID, criteria ...repository.SelectCriteria) ([]*auth.User, error) {
	args := m.Called(ctx, franchiseID)
	if users, ok := args.Get(0).([]*auth.User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *auth.User, criteria ...repository.InsertCriteria) (*auth.User, error) {
	args := m.Called(ctx, tx, record)
	if user, ok := args.Get(0).(*auth.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) AssignRoleTx(ctx context.Context, tx bun.IDB, userID, roleID uuid.UUID) error {
	args := m.Called(ctx, tx, userID, roleID)
	return args.Error(0)
}

func (m *MockUsers) MarkEmailVerified(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockUsers) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockRoles implements the auth.Roles methods used by the orchestrators.
type MockRoles struct {
	mock.Mock
	auth.Roles
}

func (m *MockRoles) GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*auth.Role, error) {
	args := m.Called(ctx, tx, name)
	if role, ok := args.Get(0).(*auth.Role); ok {
		return role, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRoles) Seed(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockRepositoryManager wires the mock repositories together. RunInTx invokes
// the closure with a zero transaction so transactional code paths run against
// the mocks.
type MockRepositoryManager struct {
	UsersRepo *MockUsers
	RolesRepo *MockRoles
}

func newMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		UsersRepo: &MockUsers{},
		RolesRepo: &MockRoles{},
	}
}

func (m *MockRepositoryManager) Users() auth.Users { return m.UsersRepo }
func (m *MockRepositoryManager) Roles() auth.Roles { return m.RolesRepo }
func (m *MockRepositoryManager) Validate() error   { return nil }
func (m *MockRepositoryManager) MustValidate()     {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) AssertExpectations(t mock.TestingT) {
	m.UsersRepo.AssertExpectations(t)
	m.RolesRepo.AssertExpectations(t)
}

// recordingNotifier captures queue payloads and answers with a canned result.
type recordingNotifier struct {
	ok       bool
	queue    string
	payloads []any
}

func (n *recordingNotifier) Send(ctx context.Context, queueName string, payload any) bool {
	n.queue = queueName
	n.payloads = append(n.payloads, payload)
	return n.ok
}

func strPtr(s string) *string { return &s }

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }
