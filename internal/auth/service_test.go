package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/inamate/viewport/internal/db"
)

// memUsers is an in-memory UserStore with the same unique-email behavior
// as the users table.
type memUsers struct {
	mu    sync.Mutex
	users map[string]db.User
}

func newMemUsers() *memUsers { return &memUsers{users: make(map[string]db.User)} }

func (m *memUsers) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == arg.Email {
			return db.User{}, &pgconn.PgError{Code: "23505"}
		}
	}
	u := db.User{ID: arg.ID, Email: arg.Email, Password: arg.Password, DisplayName: arg.DisplayName, CreatedAt: time.Now()}
	m.users[u.ID] = u
	return u, nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func newTestService() *Service {
	s := NewService(newMemUsers(), "test-secret")
	s.cost = bcrypt.MinCost
	return s
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	reg, err := s.Register(ctx, "ada@example.com", "correct horse", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "Ada", reg.User.DisplayName)
	assert.NotEmpty(t, reg.Token)

	userID, err := s.ValidateToken(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, userID)

	login, err := s.Login(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	_, err = s.Register(ctx, "ada@example.com", "other password", "Ada 2")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = s.Login(ctx, "ada@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	u, err := s.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)

	_, err = s.GetUser(ctx, "user_missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRegisterValidatesInput(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	tests := []struct {
		name, email, password, displayName string
	}{
		{"blank email", "  ", "correct horse", "Ada"},
		{"blank name", "ada@example.com", "correct horse", " "},
		{"short password", "ada@example.com", "short", "Ada"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Register(ctx, tc.email, tc.password, tc.displayName)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err := s.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidateTokenRejects(t *testing.T) {
	s := newTestService()

	t.Run("garbage", func(t *testing.T) {
		_, err := s.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewService(newMemUsers(), "other-secret")
		token, err := other.issueToken("user_1")
		require.NoError(t, err)
		_, err = s.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := s.issueToken("user_1")
		require.NoError(t, err)
		s.now = func() time.Time { return time.Now().Add(2 * tokenTTL) }
		defer func() { s.now = time.Now }()
		_, err = s.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user_1"})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = s.ValidateToken(signed)
		assert.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iat": time.Now().Unix()})
		signed, err := token.SignedString(s.jwtSecret)
		require.NoError(t, err)
		_, err = s.ValidateToken(signed)
		assert.True(t, errors.Is(err, ErrInvalidToken), "%v", err)
	})
}
