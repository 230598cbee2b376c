package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/isdelr/ender-accounts/internal/mocks"
	"github.com/isdelr/ender-accounts/internal/models"
	"github.com/isdelr/ender-accounts/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestNewPrincipal(t *testing.T) {
	t.Parallel()
	p := NewPrincipal(&models.User{
		ID:           7,
		Username:     "ann",
		Email:        "ann@x.io",
		PasswordHash: "hash",
		Roles:        []string{models.RoleAdmin, models.RoleUser},
	})

	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, "ann", p.Username)
	assert.Equal(t, "ann@x.io", p.Email)
	assert.Equal(t, []string{"ROLE_ADMIN", "ROLE_USER"}, p.Authorities)
	assert.True(t, p.IsAdmin())
	assert.True(t, p.HasAuthority("ROLE_USER"))
	assert.False(t, p.HasAuthority("USER"))
}

func TestPrincipal_EqualByID(t *testing.T) {
	t.Parallel()
	a := Principal{ID: 1, Username: "ann"}
	b := Principal{ID: 1, Username: "renamed", Authorities: []string{AuthorityAdmin}}
	c := Principal{ID: 2, Username: "ann"}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestPrincipalResolver_Resolve(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	resolver := NewPrincipalResolver(users)
	ctx := context.Background()

	users.EXPECT().FindByUsername(gomock.Any(), "ann").
		Return(&models.User{ID: 1, Username: "ann", Email: "ann@x.io", Roles: []string{models.RoleUser}}, nil)
	p, err := resolver.Resolve(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, Principal{ID: 1, Username: "ann", Email: "ann@x.io", Authorities: []string{"ROLE_USER"}}, p)

	users.EXPECT().FindByUsername(gomock.Any(), "ghost").Return(nil, store.ErrNotFound)
	_, err = resolver.Resolve(ctx, "ghost")
	assert.ErrorIs(t, err, ErrPrincipalNotFound)

	boom := errors.New("connection reset")
	users.EXPECT().FindByUsername(gomock.Any(), "bob").Return(nil, boom)
	_, err = resolver.Resolve(ctx, "bob")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrPrincipalNotFound)
}

func TestPrincipalContext(t *testing.T) {
	t.Parallel()
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{ID: 3, Username: "cy"})
	p, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "cy", p.Username)
}
