// ABOUTME: Friend-summon store methods keyed by player id
// ABOUTME: Upsert replaces the ten slots while keeping createdAt and likes

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/2389/summon-share/internal/slot"
)

const friendSummonColumns = `playerId, slot0, slot1, slot2, slot3, slot4, slot5, slot6, slot7, slot8, slot9,
	likes, createdAt, updatedAt`

// UpsertFriendSummon creates the player's record or replaces its slots.
// createdAt and likes survive a replace; fs is updated with the stored values.
func (s *SQLiteStore) UpsertFriendSummon(ctx context.Context, fs *FriendSummon) error {
	fs.PlayerID = strings.TrimSpace(fs.PlayerID)
	if !isNumeric(fs.PlayerID) {
		return invalid("playerId", "must be numeric")
	}

	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	now := formatTime(s.timestamp())
	args := make([]any, 0, SlotCount+3)
	args = append(args, fs.PlayerID)
	for i, tok := range fs.Slots {
		fs.Slots[i] = slot.Decode(tok.String())
		args = append(args, nullString(fs.Slots[i].String()))
	}
	args = append(args, now, now)

	var likes int
	var createdAt, updatedAt string
	err = db.QueryRowContext(ctx, `
		INSERT INTO friend_summons (playerId, slot0, slot1, slot2, slot3, slot4, slot5, slot6, slot7, slot8, slot9, likes, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(playerId) DO UPDATE SET
			slot0 = excluded.slot0, slot1 = excluded.slot1, slot2 = excluded.slot2,
			slot3 = excluded.slot3, slot4 = excluded.slot4, slot5 = excluded.slot5,
			slot6 = excluded.slot6, slot7 = excluded.slot7, slot8 = excluded.slot8,
			slot9 = excluded.slot9, updatedAt = excluded.updatedAt
		RETURNING likes, createdAt, updatedAt
	`, args...).Scan(&likes, &createdAt, &updatedAt)
	if err != nil {
		return mapWriteError("upserting friend summon", err)
	}

	fs.Likes = likes
	if fs.CreatedAt, err = parseTime(createdAt); err != nil {
		return err
	}
	if fs.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return err
	}
	s.logger.Debug("upserted friend summon", "player_id", fs.PlayerID)
	return nil
}

// GetFriendSummon retrieves a player's friend summon.
func (s *SQLiteStore) GetFriendSummon(ctx context.Context, playerID string) (*FriendSummon, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	fs, err := scanFriendSummon(db.QueryRowContext(ctx,
		`SELECT `+friendSummonColumns+` FROM friend_summons WHERE playerId = ?`, strings.TrimSpace(playerID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return fs, err
}

// DeleteFriendSummon removes a player's friend summon and its votes.
func (s *SQLiteStore) DeleteFriendSummon(ctx context.Context, playerID string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	result, err := db.ExecContext(ctx, `DELETE FROM friend_summons WHERE playerId = ?`, strings.TrimSpace(playerID))
	if err != nil {
		return fmt.Errorf("deleting friend summon: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	s.logger.Debug("deleted friend summon", "player_id", playerID)
	return nil
}

// ListFriendSummons returns up to filter.Limit friend summons, most recently updated first.
func (s *SQLiteStore) ListFriendSummons(ctx context.Context, filter FriendSummonFilter) ([]*FriendSummon, error) {
	c := friendSummonConditions(filter)
	query := `SELECT ` + friendSummonColumns + ` FROM friend_summons` + c.where() +
		` ORDER BY ` + friendSummonOrder(SortNewest) + ` LIMIT ?`
	return s.queryFriendSummons(ctx, query, append(c.args, clampLimit(filter.Limit))...)
}

// ListFriendSummonsPage returns one page of friend summons.
func (s *SQLiteStore) ListFriendSummonsPage(ctx context.Context, filter FriendSummonFilter, req PageRequest) (*Page[*FriendSummon], error) {
	req = s.normalize(req)
	limit, offset := req.limitOffset()

	c := friendSummonConditions(filter)
	query := `SELECT ` + friendSummonColumns + ` FROM friend_summons` + c.where() +
		` ORDER BY ` + friendSummonOrder(req.Sort) + ` LIMIT ? OFFSET ?`
	items, err := s.queryFriendSummons(ctx, query, append(c.args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	return newPage(items, req), nil
}

// ValidateFriendSummonSlots checks the slots against the monster catalog:
// every referenced monster exists, columns 0-3 of each block of five hold a
// monster of that column's element, and the uncapped variant is only used for
// monsters that have a four-star effect. It does not write anything.
func (s *SQLiteStore) ValidateFriendSummonSlots(ctx context.Context, slots [SlotCount]slot.Token) error {
	ids := make([]string, 0, SlotCount)
	for i, tok := range slots {
		slots[i] = slot.Decode(tok.String())
		if !slots[i].IsEmpty() {
			ids = append(ids, slots[i].ItemID)
		}
	}
	monsters, err := s.ListMonstersByIDs(ctx, ids)
	if err != nil {
		return err
	}

	for i, tok := range slots {
		if tok.IsEmpty() {
			continue
		}
		field := fmt.Sprintf("slot%d", i)
		m, ok := monsters[tok.ItemID]
		if !ok {
			return invalid(field, "unknown monster "+tok.ItemID)
		}
		if want := SlotElement(i); want != ElementUnset && m.Element != want {
			return invalid(field, fmt.Sprintf("%s is not %s element", m.Name, want.Label()))
		}
		if tok.Variant == slot.VariantUncapped && !m.HasFourStar {
			return invalid(field, m.Name+" has no four-star effect")
		}
	}
	return nil
}

func friendSummonConditions(filter FriendSummonFilter) *conditions {
	c := &conditions{}
	c.search(filter.Query, "playerId")
	return c
}

func friendSummonOrder(sort SortOrder) string {
	if sort == SortPopular {
		return "likes DESC, updatedAt DESC, playerId"
	}
	return "updatedAt DESC, playerId"
}

func (s *SQLiteStore) queryFriendSummons(ctx context.Context, query string, args ...any) ([]*FriendSummon, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying friend summons: %w", err)
	}
	defer rows.Close()

	var out []*FriendSummon
	for rows.Next() {
		fs, err := scanFriendSummon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating friend summons: %w", err)
	}
	return out, nil
}

func scanFriendSummon(row rowScanner) (*FriendSummon, error) {
	var (
		fs                   FriendSummon
		slots                [SlotCount]sql.NullString
		createdAt, updatedAt string
	)
	dest := make([]any, 0, SlotCount+4)
	dest = append(dest, &fs.PlayerID)
	for i := range slots {
		dest = append(dest, &slots[i])
	}
	dest = append(dest, &fs.Likes, &createdAt, &updatedAt)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning friend summon: %w", err)
	}

	for i, v := range slots {
		fs.Slots[i] = slot.Decode(v.String)
	}

	var err error
	if fs.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if fs.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &fs, nil
}
