package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pledgecam/pledgecam-api/internal/models"
	appErrors "github.com/pledgecam/pledgecam-api/pkg/errors"
)

type fakeAdminRepo struct {
	admin           *models.AdminUser
	lastLoginCalled bool
}

func (f *fakeAdminRepo) FindByEmail(_ context.Context, email string) (*models.AdminUser, error) {
	if f.admin == nil || f.admin.Email != email {
		return nil, sql.ErrNoRows
	}
	return f.admin, nil
}

func (f *fakeAdminRepo) UpdateLastLogin(_ context.Context, _ string, _ time.Time) error {
	f.lastLoginCalled = true
	return nil
}

func newAuthFixture(t *testing.T, active bool) (*AuthService, *fakeAdminRepo) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret!"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &fakeAdminRepo{admin: &models.AdminUser{
		ID:           "admin-1",
		Email:        "staff@school.example",
		PasswordHash: string(hash),
		FullName:     "School Staff",
		Active:       active,
	}}
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "pledgecam",
	})
	return svc, repo
}

func TestAuthServiceLogin(t *testing.T) {
	svc, repo := newAuthFixture(t, true)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "staff@school.example",
		Password: "s3cret!",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, "admin-1", resp.Admin.ID)
	require.True(t, repo.lastLoginCalled)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "admin-1", claims.AdminID)
	require.Equal(t, "pledgecam", claims.Issuer)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t, true)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "staff@school.example",
		Password: "wrong",
	})
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture(t, true)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@school.example",
		Password: "s3cret!",
	})
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	svc, _ := newAuthFixture(t, false)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "staff@school.example",
		Password: "s3cret!",
	})
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthFixture(t, true)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)
}
