// ABOUTME: Tests for weapon-board persistence
// ABOUTME: Covers validation, nullable categories, filters, popularity order and exact pagination

package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndGetWeaponBoard(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	wb := &WeaponBoard{
		Name:               "Magna fire",
		Element:            ElementFire,
		Type:               BoardTypeOther,
		Description:        "full auto",
		PlayerID:           "12345678",
		SkillShareCode:     "W3siSW5kZXgiOjB9XQ",
		BoardImageURL:      "/uploads/board.png",
		PredictionImageURL: "/uploads/pred.png",
		TeamImageURL0:      "/uploads/team0.png",
	}
	require.NoError(t, store.AddWeaponBoard(ctx, wb))
	assert.NotEmpty(t, wb.ID)
	assert.Equal(t, 0, wb.Likes)

	got, err := store.GetWeaponBoard(ctx, wb.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(wb, got); diff != "" {
		t.Errorf("GetWeaponBoard mismatch (-want +got):\n%s", diff)
	}
}

func TestAddWeaponBoard_UnsetCategoriesAreNull(t *testing.T) {
	store := setupTestStore(t)
	wb := addTestBoard(t, store, "plain")

	assert.Equal(t, 1, countRows(t, store,
		`SELECT COUNT(*) FROM weapon_boards WHERE id = ? AND element IS NULL AND type IS NULL`, wb.ID))
}

func TestAddWeaponBoard_Validation(t *testing.T) {
	valid := func() *WeaponBoard {
		return &WeaponBoard{Name: "n", BoardImageURL: "/img.png"}
	}

	tests := []struct {
		name   string
		mutate func(*WeaponBoard)
	}{
		{name: "missing name", mutate: func(wb *WeaponBoard) { wb.Name = " " }},
		{name: "missing image", mutate: func(wb *WeaponBoard) { wb.BoardImageURL = "" }},
		{name: "element without type", mutate: func(wb *WeaponBoard) { wb.Element = ElementFire }},
		{name: "type without element", mutate: func(wb *WeaponBoard) { wb.Type = BoardTypeGod }},
		{name: "invalid element", mutate: func(wb *WeaponBoard) { wb.Element = Element(9); wb.Type = BoardTypeGod }},
		{name: "invalid type", mutate: func(wb *WeaponBoard) { wb.Element = ElementFire; wb.Type = BoardType(9) }},
		{name: "non-numeric player", mutate: func(wb *WeaponBoard) { wb.PlayerID = "abc" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			wb := valid()
			tt.mutate(wb)
			assert.ErrorIs(t, store.AddWeaponBoard(context.Background(), wb), ErrValidation)
			assert.Equal(t, 0, countRows(t, store, `SELECT COUNT(*) FROM weapon_boards`))
		})
	}
}

func TestUpdateWeaponBoard_KeepsLikesAndCreatedAt(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	wb := addTestBoard(t, store, "grid")
	created := wb.CreatedAt

	_, err := store.LikeWeaponBoard(ctx, wb.ID, "alice")
	require.NoError(t, err)

	update := &WeaponBoard{
		ID:            wb.ID,
		Name:          "renamed",
		Element:       ElementWater,
		Type:          BoardTypeDemon,
		BoardImageURL: "/img/new.png",
	}
	require.NoError(t, store.UpdateWeaponBoard(ctx, update))
	assert.Equal(t, 1, update.Likes)
	assert.Equal(t, created, update.CreatedAt)

	got, err := store.GetWeaponBoard(ctx, wb.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, ElementWater, got.Element)
	assert.Equal(t, BoardTypeDemon, got.Type)
	assert.Equal(t, 1, got.Likes)
	assert.True(t, got.UpdatedAt.After(created))

	update.ID = "missing"
	assert.ErrorIs(t, store.UpdateWeaponBoard(ctx, update), ErrNotFound)
}

func TestListWeaponBoards_Filters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	boards := []*WeaponBoard{
		{Name: "fire god", Element: ElementFire, Type: BoardTypeGod, BoardImageURL: "/a"},
		{Name: "fire other", Element: ElementFire, Type: BoardTypeOther, BoardImageURL: "/b", Description: "under_score"},
		{Name: "water demon", Element: ElementWater, Type: BoardTypeDemon, BoardImageURL: "/c", PlayerID: "999"},
		{Name: "unspecified", BoardImageURL: "/d"},
	}
	for _, wb := range boards {
		require.NoError(t, store.AddWeaponBoard(ctx, wb))
	}

	names := func(list []*WeaponBoard) []string {
		out := make([]string, len(list))
		for i, wb := range list {
			out[i] = wb.Name
		}
		return out
	}

	fire := ElementFire
	got, err := store.ListWeaponBoards(ctx, WeaponBoardFilter{Element: &fire}, SortNewest)
	require.NoError(t, err)
	assert.Equal(t, []string{"fire other", "fire god"}, names(got))

	other := BoardTypeOther
	got, err = store.ListWeaponBoards(ctx, WeaponBoardFilter{Type: &other}, SortNewest)
	require.NoError(t, err)
	assert.Equal(t, []string{"fire other"}, names(got))

	unsetType := BoardTypeUnset
	got, err = store.ListWeaponBoards(ctx, WeaponBoardFilter{Type: &unsetType}, SortNewest)
	require.NoError(t, err)
	assert.Equal(t, []string{"unspecified"}, names(got))

	got, err = store.ListWeaponBoards(ctx, WeaponBoardFilter{Query: "999"}, SortNewest)
	require.NoError(t, err)
	assert.Equal(t, []string{"water demon"}, names(got))

	// _ is matched literally, not as a single-character wildcard
	got, err = store.ListWeaponBoards(ctx, WeaponBoardFilter{Query: "e_o"}, SortNewest)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = store.ListWeaponBoards(ctx, WeaponBoardFilter{Query: "under_"}, SortNewest)
	require.NoError(t, err)
	assert.Equal(t, []string{"fire other"}, names(got))

	elem, err := ParseElementFilter(FilterAll)
	require.NoError(t, err)
	typ, err := ParseBoardTypeFilter(FilterAll)
	require.NoError(t, err)
	got, err = store.ListWeaponBoards(ctx, WeaponBoardFilter{Element: elem, Type: typ}, SortNewest)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestListWeaponBoards_Popular(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := addTestBoard(t, store, "a")
	b := addTestBoard(t, store, "b")
	c := addTestBoard(t, store, "c")

	for _, voter := range []string{"1", "2"} {
		_, err := store.LikeWeaponBoard(ctx, a.ID, voter)
		require.NoError(t, err)
	}
	_, err := store.LikeWeaponBoard(ctx, b.ID, "1")
	require.NoError(t, err)
	_, err = store.LikeWeaponBoard(ctx, c.ID, "1")
	require.NoError(t, err)

	got, err := store.ListWeaponBoards(ctx, WeaponBoardFilter{}, SortPopular)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// b and c tie on likes; the more recent one wins.
	assert.Equal(t, []string{"a", "c", "b"}, []string{got[0].Name, got[1].Name, got[2].Name})
}

func TestListWeaponBoardsPage(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		addTestBoard(t, store, fmt.Sprintf("b%02d", i))
	}

	p, err := store.ListWeaponBoardsPage(ctx, WeaponBoardFilter{}, PageRequest{Page: 1, PageSize: 5})
	require.NoError(t, err)
	assert.Len(t, p.Items, 5)
	assert.False(t, p.HasPrev)
	assert.True(t, p.HasNext)
	assert.Equal(t, "b11", p.Items[0].Name)

	p, err = store.ListWeaponBoardsPage(ctx, WeaponBoardFilter{}, PageRequest{Page: 3, PageSize: 5})
	require.NoError(t, err)
	assert.Len(t, p.Items, 2)
	assert.True(t, p.HasPrev)
	assert.False(t, p.HasNext)

	p, err = store.ListWeaponBoardsPage(ctx, WeaponBoardFilter{}, PageRequest{Page: 4, PageSize: 5})
	require.NoError(t, err)
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)
	assert.True(t, p.HasPrev)
	assert.False(t, p.HasNext)

	p, err = store.ListWeaponBoardsPage(ctx, WeaponBoardFilter{}, PageRequest{Page: ParsePage("NaN")})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Len(t, p.Items, 12)
	assert.False(t, p.HasNext)
}

func TestDeleteWeaponBoard_NotFound(t *testing.T) {
	store := setupTestStore(t)
	assert.ErrorIs(t, store.DeleteWeaponBoard(context.Background(), "missing"), ErrNotFound)

	_, err := store.GetWeaponBoard(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
