package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/crc-dev/volreg-api/internal/models"
	appErrors "github.com/crc-dev/volreg-api/pkg/errors"
)

type mockUserRepo struct {
	users   map[string]*models.User
	byEmail map[string]*models.User
	deleted []string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (m *mockUserRepo) add(u *models.User) {
	m.users[u.ID] = u
	m.byEmail[u.Email] = u
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.add(user)
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	if u, ok := m.users[id]; ok {
		u.Active = false
	}
	return nil
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Email: "admin@registry.test", Role: models.RoleAdmin, Staff: true}
}

func TestUserServiceCreate(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "Coordinator@Registry.Test",
		FullName: "Ana Coordinadora",
		Role:     models.RoleCoordinator,
		Active:   true,
		Password: "s3cret-pass",
	}, adminClaims())
	require.NoError(t, err)

	assert.Equal(t, "coordinator@registry.test", user.Email)
	assert.Equal(t, models.RoleCoordinator, user.Role)
	assert.NotEmpty(t, user.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")))
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(&models.User{ID: "u1", Email: "taken@registry.test", Role: models.RoleViewer, Active: true})
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "taken@registry.test",
		FullName: "Duplicate",
		Role:     models.RoleViewer,
		Password: "s3cret-pass",
	}, adminClaims())
	require.Error(t, err)

	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestUserServiceCreateRejectsUnknownRole(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), nil, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "new@registry.test",
		FullName: "New",
		Role:     models.UserRole("SUPERUSER"),
		Password: "s3cret-pass",
	}, adminClaims())
	require.Error(t, err)

	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestUserServiceUpdate(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(&models.User{ID: "u1", Email: "viewer@registry.test", FullName: "Old Name", Role: models.RoleViewer, Active: true})
	svc := NewUserService(repo, nil, nil)

	inactive := false
	user, err := svc.Update(context.Background(), "u1", UpdateUserRequest{
		FullName: "New Name",
		Role:     models.RoleCoordinator,
		Active:   &inactive,
	}, adminClaims())
	require.NoError(t, err)

	assert.Equal(t, "New Name", user.FullName)
	assert.Equal(t, models.RoleCoordinator, user.Role)
	assert.False(t, user.Active)
}

func TestUserServiceDeleteOwnAccount(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(&models.User{ID: "admin-1", Email: "admin@registry.test", Role: models.RoleAdmin, Active: true})
	svc := NewUserService(repo, nil, nil)

	err := svc.Delete(context.Background(), "admin-1", adminClaims())
	require.Error(t, err)

	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, repo.deleted)
}

func TestUserServiceDeleteDeactivates(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(&models.User{ID: "u2", Email: "other@registry.test", Role: models.RoleViewer, Active: true})
	svc := NewUserService(repo, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "u2", adminClaims()))

	assert.Equal(t, []string{"u2"}, repo.deleted)
	assert.False(t, repo.users["u2"].Active)
}
