// ABOUTME: Shared test helpers and monster catalog tests
// ABOUTME: Covers name uniqueness, the four-star rule, filters and monster pagination

package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClock advances one second on every read so records get distinct,
// ordered timestamps.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	return openTestStore(t, dbPath, opts...)
}

func openTestStore(t *testing.T, dbPath string, opts ...Option) *SQLiteStore {
	t.Helper()
	base := []Option{WithClock(newTestClock().Now), WithLogger(discardLogger())}
	store, err := NewSQLiteStore(dbPath, append(base, opts...)...)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func countRows(t *testing.T, s *SQLiteStore, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow(query, args...).Scan(&n))
	return n
}

func newMonster(name string, element Element, typ MonsterType) *Monster {
	return &Monster{
		Name:       name,
		Element:    element,
		Type:       typ,
		MainEffect: name + " main effect",
	}
}

func TestAddAndGetMonster(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	m := &Monster{
		Name:           "Bahamut",
		Element:        ElementFire,
		Type:           MonsterTypeGod,
		MainEffect:     "Dark ATK +120%",
		Note:           "limited",
		HasFourStar:    true,
		FourStarEffect: "Dark ATK +140%",
		ImageURL:       "/uploads/bahamut.png",
	}
	require.NoError(t, store.AddMonster(ctx, m))
	assert.NotEmpty(t, m.ID)
	assert.False(t, m.CreatedAt.IsZero())
	assert.Equal(t, m.CreatedAt, m.UpdatedAt)

	got, err := store.GetMonster(ctx, m.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("GetMonster mismatch (-want +got):\n%s", diff)
	}
}

func TestAddMonster_UnsetElementUsesSentinel(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	m := newMonster("Lucifer", ElementUnset, MonsterTypeGod)
	require.NoError(t, store.AddMonster(ctx, m))

	var raw string
	require.NoError(t, store.db.QueryRow(`SELECT element FROM monsters WHERE id = ?`, m.ID).Scan(&raw))
	assert.Equal(t, "其他", raw)

	got, err := store.GetMonster(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, ElementUnset, got.Element)
}

func TestGetMonster_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetMonster(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddMonster_DuplicateNameIgnoresCase(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddMonster(ctx, newMonster("bahamut", ElementFire, MonsterTypeGod)))

	err := store.AddMonster(ctx, newMonster("Bahamut", ElementWater, MonsterTypeDemon))
	assert.ErrorIs(t, err, ErrDuplicateName)

	err = store.AddMonster(ctx, newMonster("  BAHAMUT ", ElementWater, MonsterTypeDemon))
	assert.ErrorIs(t, err, ErrDuplicateName)

	assert.Equal(t, 1, countRows(t, store, `SELECT COUNT(*) FROM monsters`))
}

func TestUpdateMonster_OwnNameIsNotDuplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	m := newMonster("Bahamut", ElementFire, MonsterTypeGod)
	require.NoError(t, store.AddMonster(ctx, m))
	created := m.CreatedAt

	m.MainEffect = "updated"
	require.NoError(t, store.UpdateMonster(ctx, m))

	m.Name = "BAHAMUT"
	require.NoError(t, store.UpdateMonster(ctx, m))

	got, err := store.GetMonster(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "BAHAMUT", got.Name)
	assert.Equal(t, "updated", got.MainEffect)
	assert.Equal(t, created, got.CreatedAt)
	assert.True(t, got.UpdatedAt.After(created))
}

func TestUpdateMonster_DuplicateName(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddMonster(ctx, newMonster("Bahamut", ElementFire, MonsterTypeGod)))
	other := newMonster("Lucifer", ElementFire, MonsterTypeGod)
	require.NoError(t, store.AddMonster(ctx, other))

	other.Name = "bahamut"
	assert.ErrorIs(t, store.UpdateMonster(ctx, other), ErrDuplicateName)
}

func TestUpdateMonster_NotFound(t *testing.T) {
	store := setupTestStore(t)

	m := newMonster("Ghost", ElementFire, MonsterTypeGod)
	m.ID = "missing"
	assert.ErrorIs(t, store.UpdateMonster(context.Background(), m), ErrNotFound)
}

func TestAddMonster_Validation(t *testing.T) {
	tests := []struct {
		name    string
		monster *Monster
		field   string
	}{
		{
			name:    "missing name",
			monster: newMonster("   ", ElementFire, MonsterTypeGod),
			field:   "name",
		},
		{
			name:    "unknown type",
			monster: newMonster("A", ElementFire, MonsterTypeUnknown),
			field:   "type",
		},
		{
			name:    "invalid element",
			monster: newMonster("B", Element(42), MonsterTypeGod),
			field:   "element",
		},
		{
			name: "missing main effect",
			monster: &Monster{
				Name: "C", Element: ElementFire, Type: MonsterTypeGod,
			},
			field: "mainEffect",
		},
		{
			name: "four star without effect",
			monster: &Monster{
				Name: "D", Element: ElementFire, Type: MonsterTypeGod,
				MainEffect: "x", HasFourStar: true, FourStarEffect: "  ",
			},
			field: "fourStarEffect",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			err := store.AddMonster(context.Background(), tt.monster)
			require.ErrorIs(t, err, ErrValidation)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, 0, countRows(t, store, `SELECT COUNT(*) FROM monsters`))
		})
	}
}

func TestAddMonster_FourStarEffectClearedWhenNotFourStar(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	m := newMonster("Shiva", ElementWater, MonsterTypeElemental)
	m.FourStarEffect = "ignored"
	require.NoError(t, store.AddMonster(ctx, m))

	got, err := store.GetMonster(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, got.HasFourStar)
	assert.Empty(t, got.FourStarEffect)
}

func TestDeleteMonster(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	m := newMonster("Bahamut", ElementFire, MonsterTypeGod)
	require.NoError(t, store.AddMonster(ctx, m))

	require.NoError(t, store.DeleteMonster(ctx, m.ID))
	_, err := store.GetMonster(ctx, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.DeleteMonster(ctx, m.ID), ErrNotFound)
}

func TestListMonsters_Filters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	fire := newMonster("Agni", ElementFire, MonsterTypeGod)
	water := newMonster("Varuna", ElementWater, MonsterTypeDemon)
	unset := newMonster("Lucifer", ElementUnset, MonsterTypeGod)
	elemental := newMonster("Colossus", ElementFire, MonsterTypeElemental)
	elemental.Note = "100% drop"
	for _, m := range []*Monster{fire, water, unset, elemental} {
		require.NoError(t, store.AddMonster(ctx, m))
	}

	names := func(ms []*Monster) []string {
		out := make([]string, len(ms))
		for i, m := range ms {
			out[i] = m.Name
		}
		return out
	}

	all, err := store.ListMonsters(ctx, MonsterFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Colossus", "Lucifer", "Varuna", "Agni"}, names(all))

	fireEl := ElementFire
	got, err := store.ListMonsters(ctx, MonsterFilter{Element: &fireEl})
	require.NoError(t, err)
	assert.Equal(t, []string{"Colossus", "Agni"}, names(got))

	unsetEl := ElementUnset
	got, err = store.ListMonsters(ctx, MonsterFilter{Element: &unsetEl})
	require.NoError(t, err)
	assert.Equal(t, []string{"Lucifer"}, names(got))

	god := MonsterTypeGod
	got, err = store.ListMonsters(ctx, MonsterFilter{Element: &fireEl, Type: &god})
	require.NoError(t, err)
	assert.Equal(t, []string{"Agni"}, names(got))

	got, err = store.ListMonsters(ctx, MonsterFilter{Query: "varuna"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Varuna"}, names(got))

	// % is matched literally, not as a wildcard
	got, err = store.ListMonsters(ctx, MonsterFilter{Query: "100%"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Colossus"}, names(got))

	got, err = store.ListMonsters(ctx, MonsterFilter{Query: "%"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Colossus"}, names(got))

	got, err = store.ListMonsters(ctx, MonsterFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestListMonsters_WildcardFilterMatchesEverything(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddMonster(ctx, newMonster("Agni", ElementFire, MonsterTypeGod)))
	require.NoError(t, store.AddMonster(ctx, newMonster("Lucifer", ElementUnset, MonsterTypeGod)))

	element, err := ParseElementFilter(FilterAll)
	require.NoError(t, err)
	typ, err := ParseMonsterTypeFilter(FilterAll)
	require.NoError(t, err)

	got, err := store.ListMonsters(ctx, MonsterFilter{Element: element, Type: typ})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestListMonstersPage(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		require.NoError(t, store.AddMonster(ctx, newMonster(fmt.Sprintf("m%02d", i), ElementFire, MonsterTypeGod)))
	}

	tests := []struct {
		page    int
		count   int
		hasPrev bool
		hasNext bool
		first   string
	}{
		{page: 1, count: 5, hasPrev: false, hasNext: true, first: "m11"},
		{page: 2, count: 5, hasPrev: true, hasNext: true, first: "m06"},
		{page: 3, count: 2, hasPrev: true, hasNext: false, first: "m01"},
		{page: 4, count: 0, hasPrev: true, hasNext: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			p, err := store.ListMonstersPage(ctx, MonsterFilter{}, PageRequest{Page: tt.page, PageSize: 5})
			require.NoError(t, err)
			assert.Len(t, p.Items, tt.count)
			assert.Equal(t, tt.hasPrev, p.HasPrev)
			assert.Equal(t, tt.hasNext, p.HasNext)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, 5, p.PageSize)
			if tt.first != "" {
				assert.Equal(t, tt.first, p.Items[0].Name)
			}
		})
	}
}

func TestListMonstersByIDs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := newMonster("A", ElementFire, MonsterTypeGod)
	b := newMonster("B", ElementWind, MonsterTypeGod)
	require.NoError(t, store.AddMonster(ctx, a))
	require.NoError(t, store.AddMonster(ctx, b))

	got, err := store.ListMonstersByIDs(ctx, []string{a.ID, "missing", a.ID, b.ID, ""})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "A", got[a.ID].Name)
	assert.Equal(t, "B", got[b.ID].Name)

	empty, err := store.ListMonstersByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAddMonster_ExistingIDAlreadyExists(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := newMonster("A", ElementFire, MonsterTypeGod)
	a.ID = "fixed"
	require.NoError(t, store.AddMonster(ctx, a))

	b := newMonster("B", ElementFire, MonsterTypeGod)
	b.ID = "fixed"
	assert.ErrorIs(t, store.AddMonster(ctx, b), ErrAlreadyExists)
}

func TestGlossaryTerms(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	term := &GlossaryTerm{Term: "Ougi", Meaning: "charge attack"}
	require.NoError(t, store.AddGlossaryTerm(ctx, term))
	assert.NotEmpty(t, term.ID)

	err := store.AddGlossaryTerm(ctx, &GlossaryTerm{Term: "OUGI", Meaning: "dup"})
	assert.ErrorIs(t, err, ErrDuplicateName)

	err = store.AddGlossaryTerm(ctx, &GlossaryTerm{Term: "x", Meaning: " "})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, store.AddGlossaryTerm(ctx, &GlossaryTerm{Term: "Full auto", Meaning: "let the game play"}))

	term.Meaning = "special attack when the charge bar is full"
	require.NoError(t, store.UpdateGlossaryTerm(ctx, term))

	got, err := store.GetGlossaryTerm(ctx, term.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(term, got); diff != "" {
		t.Errorf("GetGlossaryTerm mismatch (-want +got):\n%s", diff)
	}

	list, err := store.ListGlossaryTerms(ctx, "charge", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, term.ID, list[0].ID)

	list, err = store.ListGlossaryTerms(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, term.ID, list[0].ID, "most recently edited first")

	require.NoError(t, store.DeleteGlossaryTerm(ctx, term.ID))
	_, err = store.GetGlossaryTerm(ctx, term.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.UpdateGlossaryTerm(ctx, term), ErrNotFound)
}
