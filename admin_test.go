package auth_test

import (
	"context"
	"errors"
	"testing"

	repository "github.com/goliatone/go-repository-bun"
	auth "github.com/good-food-maalsi/auth-service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func adminActor() auth.Actor {
	return auth.Actor{
		UserID: uuid.New(),
		Roles:  []string{auth.RoleAdmin},
	}
}

func ownerActor(franchiseID string) auth.Actor {
	return auth.Actor{
		UserID:      uuid.New(),
		Roles:       []string{auth.RoleFranchiseOwner},
		FranchiseID: strPtr(franchiseID),
	}
}

func TestAdmin_CreatePrivilegedUser(t *testing.T) {
	ctx := context.Background()

	t.Run("admin creates staff in any franchise", func(t *testing.T) {
		repo := newMockRepositoryManager()
		admin := auth.NewAdmin(repo).WithLogger(noopLogger{})

		franchiseID := uuid.New()
		role := &auth.Role{ID: uuid.New(), Name: auth.RoleStaff}

		repo.UsersRepo.On("GetByIdentifierTx", mock.Anything, mock.Anything, "staff@example.com").
			Return(nil, repository.NewRecordNotFound())
		repo.UsersRepo.On("CreateTx", mock.Anything, mock.Anything, mock.AnythingOfType("*auth.User")).
			Return(&auth.User{
				ID:          uuid.New(),
				Username:    "staff",
				Email:       "staff@example.com",
				FranchiseID: uuidPtr(franchiseID),
			}, nil)
		repo.RolesRepo.On("GetByNameTx", mock.Anything, mock.Anything, auth.RoleStaff).
			Return(role, nil)
		repo.UsersRepo.On("AssignRoleTx", mock.Anything, mock.Anything, mock.Anything, role.ID).
			Return(nil)

		summary, err := admin.CreatePrivilegedUser(ctx, adminActor(), auth.CreatePrivilegedUserMessage{
			Username:    "staff",
			Email:       "Staff@Example.com",
			Password:    "hunter2hunter2",
			Role:        auth.RoleStaff,
			FranchiseID: franchiseID.String(),
		})
		require.NoError(t, err)
		require.NotNil(t, summary)
		assert.Equal(t, "staff@example.com", summary.Email)
		assert.Contains(t, summary.Roles, auth.RoleStaff)
		require.NotNil(t, summary.FranchiseID)
		assert.Equal(t, franchiseID, *summary.FranchiseID)
		assert.NotEmpty(t, summary.ID)

		repo.AssertExpectations(t)
	})

	t.Run("owner creates staff in own franchise", func(t *testing.T) {
		repo := newMockRepositoryManager()
		admin := auth.NewAdmin(repo).WithLogger(noopLogger{})

		franchiseID := uuid.New()
		role := &auth.Role{ID: uuid.New(), Name: auth.RoleStaff}

		repo.UsersRepo.On("GetByIdentifierTx", mock.Anything, mock.Anything, "staff@example.com").
			Return(nil, repository.NewRecordNotFound())
		repo.UsersRepo.On("CreateTx", mock.Anything, mock.Anything, mock.AnythingOfType("*auth.User")).
			Return(&auth.User{ID: uuid.New(), Email: "staff@example.com", FranchiseID: uuidPtr(franchiseID)}, nil)
		repo.RolesRepo.On("GetByNameTx", mock.Anything, mock.Anything, auth.RoleStaff).
			Return(role, nil)
		repo.UsersRepo.On("AssignRoleTx", mock.Anything, mock.Anything, mock.Anything, role.ID).
			Return(nil)

		_, err := admin.CreatePrivilegedUser(ctx, ownerActor(franchiseID.String()), auth.CreatePrivilegedUserMessage{
			Email:       "staff@example.com",
			Password:    "hunter2hunter2",
			Role:        auth.RoleStaff,
			FranchiseID: franchiseID.String(),
		})
		require.NoError(t, err)
	})

	t.Run("owner rejected for another franchise", func(t *testing.T) {
		repo := newMockRepositoryManager()
		admin := auth.NewAdmin(repo).WithLogger(noopLogger{})

		_, err := admin.CreatePrivilegedUser(ctx, ownerActor(uuid.NewString()), auth.CreatePrivilegedUserMessage{
			Email:       "staff@example.com",
			Password:    "hunter2hunter2",
			Role:        auth.RoleStaff,
			FranchiseID: uuid.NewString(),
		})
		require.Error(t, err)
		assert.Equal(t, auth.TextCodeFranchiseMismatch, textCode(t, err))
	})

	t.Run("only STAFF and FRANCHISE_OWNER can be created", func(t *testing.T) {
		repo := newMockRepositoryManager()
		admin := auth.NewAdmin(repo).WithLogger(noopLogger{})

		for _, role := range []string{auth.RoleAdmin, auth.RoleCustomer, "WIZARD", ""} {
			_, err := admin.CreatePrivilegedUser(ctx, adminActor(), auth.CreatePrivilegedUserMessage{
				Email:       "x@example.com",
				Password:    "hunter2hunter2",
				Role:        role,
				FranchiseID: uuid.NewString(),
			})
			assert.Error(t, err, "role %q must be rejected", role)
		}
	})

	t.Run("franchise id required", func(t *testing.T) {
		repo := newMockRepositoryManager()
		admin := auth.NewAdmin(repo).WithLogger(noopLogger{})

		_, err := admin.CreatePrivilegedUser(ctx, adminActor(), auth.CreatePrivilegedUserMessage{
			Email:    "x@example.com",
			Password: "hunter2hunter2",
			Role:     auth.RoleStaff,
		})
		assert.Error(t, err)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		repo := newMockRepositoryManager()
		admin := auth.NewAdmin(repo).WithLogger(noopLogger{})

		repo.UsersRepo.On("GetByIdentifierTx", mock.Anything, mock.Anything, "taken@example.com").
			Return(&auth.User{ID: uuid.New()}, nil)

		_, err := admin.CreatePrivilegedUser(ctx, adminActor(), auth.CreatePrivilegedUserMessage{
			Email:       "taken@example.com",
			Password:    "hunter2hunter2",
			Role:        auth.RoleStaff,
			FranchiseID: uuid.NewString(),
		})
		require.Error(t, err)
		assert.Equal(t, auth.TextCodeEmailExists, textCode(t, err))
	})

	t.Run("duplicate slipping past the precheck still conflicts", func(t *testing.T) {
		repo := newMockRepositoryManager()
		admin := auth.NewAdmin(repo).WithLogger(noopLogger{})

		repo.UsersRepo.On("GetByIdentifierTx", mock.Anything, mock.Anything, "taken@example.com").
			Return(nil, repository.NewRecordNotFound())
		repo.UsersRepo.On("CreateTx", mock.Anything, mock.Anything, mock.AnythingOfType("*auth.User")).
			Return(nil, errors.New("UNIQUE constraint failed: users.email"))

		_, err := admin.CreatePrivilegedUser(ctx, adminActor(), auth.CreatePrivilegedUserMessage{
			Email:       "taken@example.com",
			Password:    "hunter2hunter2",
			Role:        auth.RoleStaff,
			FranchiseID: uuid.NewString(),
		})
		require.Error(t, err)
		assert.Equal(t, auth.TextCodeEmailExists, textCode(t, err))
	})
}

func TestAdmin_ListUsersByFranchise(t *testing.T) {
	ctx := context.Background()

	t.Run("owner lists own franchise", func(t *testing.T) {
		repo := newMockRepositoryManager()
		admin := auth.NewAdmin(repo).WithLogger(noopLogger{})

		franchiseID := uuid.New()
		members := []*auth.User{
			{ID: uuid.New(), Username: "a", Email: "a@example.com", FranchiseID: uuidPtr(franchiseID)},
			{ID: uuid.New(), Username: "b", Email: "b@example.com", FranchiseID: uuidPtr(franchiseID)},
		}
		repo.UsersRepo.On("ListByFranchise", mock.Anything, franchiseID).Return(members, nil)

		summaries, err := admin.ListUsersByFranchise(ctx, ownerActor(franchiseID.String()), franchiseID.String())
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, "a@example.com", summaries[0].Email)

		repo.AssertExpectations(t)
	})

	t.Run("admin lists any franchise", func(t *testing.T) {
		repo := newMockRepositoryManager()
		admin := auth.NewAdmin(repo).WithLogger(noopLogger{})

		franchiseID := uuid.New()
		repo.UsersRepo.On("ListByFranchise", mock.Anything, franchiseID).Return([]*auth.User{}, nil)

		summaries, err := admin.ListUsersByFranchise(ctx, adminActor(), franchiseID.String())
		require.NoError(t, err)
		assert.Empty(t, summaries)
	})

	t.Run("owner rejected for another franchise", func(t *testing.T) {
		repo := newMockRepositoryManager()
		admin := auth.NewAdmin(repo).WithLogger(noopLogger{})

		_, err := admin.ListUsersByFranchise(ctx, ownerActor(uuid.NewString()), uuid.NewString())
		require.Error(t, err)
		assert.Equal(t, auth.TextCodeFranchiseMismatch, textCode(t, err))
	})

	t.Run("staff rejected", func(t *testing.T) {
		repo := newMockRepositoryManager()
		admin := auth.NewAdmin(repo).WithLogger(noopLogger{})

		franchiseID := uuid.NewString()
		actor := auth.Actor{
			UserID:      uuid.New(),
			Roles:       []string{auth.RoleStaff},
			FranchiseID: strPtr(franchiseID),
		}

		_, err := admin.ListUsersByFranchise(ctx, actor, franchiseID)
		assert.Error(t, err)
	})

	t.Run("invalid franchise id", func(t *testing.T) {
		repo := newMockRepositoryManager()
		admin := auth.NewAdmin(repo).WithLogger(noopLogger{})

		_, err := admin.ListUsersByFranchise(ctx, adminActor(), "not-a-uuid")
		assert.Error(t, err)
	})
}

func TestActorFromClaims(t *testing.T) {
	service := auth.NewTokenService(newTestConfig(), noopLogger{})

	userID := uuid.New()
	franchiseID := uuid.New()

	token, _, err := service.IssueAccess(userID, []string{auth.RoleFranchiseOwner}, &franchiseID)
	require.NoError(t, err)

	claims, err := service.Validate(token, auth.TokenKindAccess)
	require.NoError(t, err)

	actor, err := auth.ActorFromClaims(claims)
	require.NoError(t, err)

	assert.Equal(t, userID, actor.UserID)
	assert.Equal(t, []string{auth.RoleFranchiseOwner}, actor.Roles)
	require.NotNil(t, actor.FranchiseID)
	assert.Equal(t, franchiseID.String(), *actor.FranchiseID)
}
