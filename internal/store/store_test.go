package store

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/glefebvre/iptvplayer/internal/errors"
	"github.com/glefebvre/iptvplayer/internal/logger"
	"github.com/glefebvre/iptvplayer/internal/models"
	testhelpers "github.com/glefebvre/iptvplayer/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s := New(testhelpers.TestDB(t), logger.Discard())
	s.now = func() time.Time { return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestSave_InsertsAndSelects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, models.NewM3UAccount("", "Home", "http://x/list.m3u"))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID, "an id is generated")
	require.NotNil(t, saved.LastUsed)
	assert.True(t, saved.LastUsed.Equal(s.now()))

	current, err := s.CurrentAccountID(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, current)

	accounts, err := s.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "http://x/list.m3u", accounts[0].M3U.URL)
	assert.Nil(t, accounts[0].Xtream)
}

func TestSave_DeduplicatesSameSource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Save(ctx, models.NewXtreamAccount("a1", "Panel", "http://panel", "bob", "old"))
	require.NoError(t, err)

	_, err = s.Save(ctx, models.NewXtreamAccount("a2", "Other", "http://panel", "alice", "pw"))
	require.NoError(t, err)

	s.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	updated, err := s.Save(ctx, models.NewXtreamAccount("a3", "Renamed", "http://panel", "bob", "new"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, updated.ID, "existing account keeps its id")
	assert.Equal(t, "Renamed", updated.PlaylistName)
	assert.Equal(t, "new", updated.Xtream.Password)
	assert.True(t, updated.LastUsed.After(*first.LastUsed))

	accounts, err := s.Accounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	current, err := s.CurrentAccountID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a1", current)
}

func TestSave_RejectsInvalidAccount(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save(context.Background(), models.Account{ID: "x", Type: models.AccountTypeM3U})
	assert.True(t, apperrors.IsValidationError(err))
}

func TestDelete_ClearsCurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.Save(ctx, models.NewM3UAccount("a", "A", "http://x/a.m3u"))
	require.NoError(t, err)
	b, err := s.Save(ctx, models.NewM3UAccount("b", "B", "http://x/b.m3u"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, a.ID))
	current, err := s.CurrentAccountID(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, current, "deleting another account keeps the selection")

	require.NoError(t, s.Delete(ctx, b.ID))
	current, err = s.CurrentAccountID(ctx)
	require.NoError(t, err)
	assert.Empty(t, current)

	err = s.Delete(ctx, "missing")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetErrorCode(err))
}

func TestSetCurrent(t *testing.T) {
	db := testhelpers.TestDB(t)
	s := New(db, logger.Discard())
	ctx := context.Background()

	rec := testhelpers.CreateAccount(db, testhelpers.WithXtream("http://panel", "u", "p"))

	require.NoError(t, s.SetCurrent(ctx, rec.ID))
	current, err := s.CurrentAccountID(ctx)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, current)

	err = s.SetCurrent(ctx, "missing")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetErrorCode(err))

	testhelpers.AssertCount(t, db, &models.Setting{}, 1, "one current pointer")
}

func TestAccounts_CreationOrder(t *testing.T) {
	db := testhelpers.TestDB(t)
	s := New(db, logger.Discard())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	testhelpers.CreateAccount(db, testhelpers.WithID("late"), testhelpers.WithCreatedAt(base.Add(time.Hour)))
	testhelpers.CreateAccount(db, testhelpers.WithID("early"), testhelpers.WithCreatedAt(base))

	accounts, err := s.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "early", accounts[0].ID)
	assert.Equal(t, "late", accounts[1].ID)
}

func TestGet(t *testing.T) {
	db := testhelpers.TestDB(t)
	s := New(db, logger.Discard())
	rec := testhelpers.CreateAccount(db, testhelpers.WithXtream("http://panel", "u", "secret"))

	acct, err := s.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountTypeXtream, acct.Type)
	assert.Equal(t, "secret", acct.Xtream.Password)
	assert.NoError(t, acct.Validate())

	_, err = s.Get(context.Background(), "nope")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetErrorCode(err))
}

func TestCurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := Current(ctx, s)
	require.NoError(t, err)
	assert.False(t, ok)

	saved, err := s.Save(ctx, models.NewM3UAccount("m", "M", "http://x/m.m3u"))
	require.NoError(t, err)

	acct, ok, err := Current(ctx, s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, saved.ID, acct.ID)
}
