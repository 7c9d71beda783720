package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSessionAndClear(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryStorage(), nil)

	assert.False(t, s.IsAuthenticated(ctx))
	assert.Equal(t, RoleNone, s.Role(ctx))

	require.NoError(t, s.SetSession(ctx, Session{
		Token:       "abc123",
		Role:        RoleEmployee,
		DisplayName: "ayse",
		SubjectID:   "42",
	}))

	assert.True(t, s.IsAuthenticated(ctx))
	assert.Equal(t, "abc123", s.Token(ctx))
	assert.Equal(t, RoleEmployee, s.Role(ctx))
	assert.Equal(t, "ayse", s.DisplayName(ctx))
	assert.Equal(t, "42", s.SubjectID(ctx))

	require.NoError(t, s.Clear(ctx))
	assert.False(t, s.IsAuthenticated(ctx))
	assert.Equal(t, Session{}, s.Session(ctx))

	// Clearing an empty store is a no-op.
	require.NoError(t, s.Clear(ctx))
	assert.False(t, s.IsAuthenticated(ctx))
}

func TestSetSessionWithoutTokenIsIgnored(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	s := NewStore(storage, nil)

	require.NoError(t, s.SetSession(ctx, Session{Role: RoleAuthorized, DisplayName: "mallory"}))

	assert.False(t, s.IsAuthenticated(ctx))
	assert.Equal(t, RoleNone, s.Role(ctx))
	_, ok, _ := storage.Get(ctx, KeyRole)
	assert.False(t, ok, "role must not be written without a token")
}

func TestSetClearSequences(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryStorage(), nil)

	for i := 0; i < 25; i++ {
		token := fmt.Sprintf("tok-%d", i)
		require.NoError(t, s.SetSession(ctx, Session{Token: token, Role: RoleEmployee}))
		assert.True(t, s.IsAuthenticated(ctx), "after set %d", i)
		assert.Equal(t, token, s.Token(ctx))

		require.NoError(t, s.Clear(ctx))
		assert.False(t, s.IsAuthenticated(ctx), "after clear %d", i)
	}
}

func TestTokenIsMirrored(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	s := NewStore(storage, nil)

	require.NoError(t, s.SetSession(ctx, Session{Token: "t1", Role: RoleAuthorized}))
	v, ok, err := storage.Get(ctx, KeyAuthToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "t1", v)
}

func TestSubjectIDReplacedOnNewSession(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryStorage(), nil)

	require.NoError(t, s.SetSession(ctx, Session{Token: "t1", Role: RoleEmployee, SubjectID: "7"}))
	require.NoError(t, s.SetSession(ctx, Session{Token: "t2", Role: RoleAuthorized}))
	assert.Equal(t, "", s.SubjectID(ctx))
}

func TestThemeSurvivesClear(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryStorage(), nil)

	assert.Equal(t, "light", s.Theme(ctx))
	require.NoError(t, s.SetTheme(ctx, "dark"))
	require.NoError(t, s.SetSession(ctx, Session{Token: "t", Role: RoleEmployee}))
	require.NoError(t, s.Clear(ctx))

	assert.Equal(t, "dark", s.Theme(ctx))
}

func TestReadsAreNotCached(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	a := NewStore(storage, nil)
	b := NewStore(storage, nil)

	require.NoError(t, a.SetSession(ctx, Session{Token: "shared", Role: RoleEmployee}))
	assert.True(t, b.IsAuthenticated(ctx))

	require.NoError(t, b.Clear(ctx))
	assert.False(t, a.IsAuthenticated(ctx))
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleEmployee, ParseRole("employee"))
	assert.Equal(t, RoleAuthorized, ParseRole("authorized"))
	assert.Equal(t, RoleNone, ParseRole("admin"))
	assert.Equal(t, RoleNone, ParseRole(""))
}
