package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwpulley/charkeep/internal/game/sheet"
	"github.com/rwpulley/charkeep/internal/storage/postgres"
	"github.com/rwpulley/charkeep/internal/testutil"
)

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func setupSheetRepo(t *testing.T) (*postgres.SheetRepository, int64) {
	t.Helper()
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	acctRepo := postgres.NewAccountRepository(pc.RawPool)
	acct, err := acctRepo.Create(context.Background(), uniqueName("user"), "password123")
	require.NoError(t, err)
	return postgres.NewSheetRepository(pc.RawPool), acct.ID
}

func makeTestSheet(name string) sheet.Character {
	c := sheet.New(name)
	c, _ = sheet.SetAttribute(c, "str", sheet.Attribute{RolledScore: 14, IsPrime: true})
	c = sheet.AddItem(c, sheet.InventoryItem{ID: "rope", Name: "Rope", Quantity: 2, EV: 1})
	c = sheet.SetXPTable(c, []int{0, 2000, 4000})
	c = sheet.SetXP(c, 2500)
	return c
}

func TestSheetRepository_UpsertAndGet(t *testing.T) {
	repo, accountID := setupSheetRepo(t)
	ctx := context.Background()

	c := makeTestSheet("Zara")
	require.NoError(t, repo.Upsert(ctx, accountID, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got, "the document round-trips whole")
}

func TestSheetRepository_UpsertReplaces(t *testing.T) {
	repo, accountID := setupSheetRepo(t)
	ctx := context.Background()

	c := makeTestSheet("Zara")
	require.NoError(t, repo.Upsert(ctx, accountID, c))

	c = sheet.SetXP(c, 9999)
	require.NoError(t, repo.Upsert(ctx, accountID, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 9999, got.CurrentXP)

	all, err := repo.ListByAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Len(t, all, 1, "upsert must not duplicate rows")
}

func TestSheetRepository_ListByAccount(t *testing.T) {
	repo, accountID := setupSheetRepo(t)
	ctx := context.Background()

	for _, name := range []string{"Zara", "Bryn", "Vex"} {
		require.NoError(t, repo.Upsert(ctx, accountID, makeTestSheet(name)))
	}

	all, err := repo.ListByAccount(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Zara", all[0].Name, "ordered by creation time")

	empty, err := repo.ListByAccount(ctx, accountID+1000)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSheetRepository_Delete(t *testing.T) {
	repo, accountID := setupSheetRepo(t)
	ctx := context.Background()

	c := makeTestSheet("Zara")
	require.NoError(t, repo.Upsert(ctx, accountID, c))
	require.NoError(t, repo.Delete(ctx, c.ID))

	_, err := repo.GetByID(ctx, c.ID)
	require.ErrorIs(t, err, postgres.ErrSheetNotFound)
	require.ErrorIs(t, repo.Delete(ctx, c.ID), postgres.ErrSheetNotFound)
}

func TestSheetRepository_ReplaceAccount(t *testing.T) {
	repo, accountID := setupSheetRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, accountID, makeTestSheet("Old")))

	replacement := []sheet.Character{makeTestSheet("NewA"), makeTestSheet("NewB")}
	require.NoError(t, repo.ReplaceAccount(ctx, accountID, replacement))

	all, err := repo.ListByAccount(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	names := []string{all[0].Name, all[1].Name}
	assert.ElementsMatch(t, []string{"NewA", "NewB"}, names)
}

func TestSheetRepository_AccountStore(t *testing.T) {
	repo, accountID := setupSheetRepo(t)
	ctx := context.Background()

	store := repo.AccountStore(accountID)

	initial, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, initial)

	c := makeTestSheet("Zara")
	require.NoError(t, store.Save(ctx, []sheet.Character{c}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, c, loaded[0])
}
