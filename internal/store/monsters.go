// ABOUTME: Monster catalog store methods
// ABOUTME: Enforces case-insensitive name uniqueness and the four-star effect rule before writing

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const monsterColumns = `id, name, element, type, mainEffect, note, hasFourStar, fourStarEffect, imageUrl,
	createdAt, COALESCE(updatedAt, createdAt)`

var monsterSearchColumns = []string{"name", "mainEffect", "fourStarEffect", "note"}

// AddMonster validates and inserts a monster. A missing ID is generated.
func (s *SQLiteStore) AddMonster(ctx context.Context, m *Monster) error {
	if err := validateMonster(m); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = s.newID()
	}
	now := s.timestamp()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkMonsterName(ctx, tx, m.Name, m.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO monsters (id, name, element, type, mainEffect, note, hasFourStar, fourStarEffect, imageUrl, createdAt, updatedAt)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			m.ID,
			m.Name,
			monsterElementLabel(m.Element),
			m.Type.Label(),
			m.MainEffect,
			nullString(m.Note),
			m.HasFourStar,
			nullString(m.FourStarEffect),
			nullString(m.ImageURL),
			formatTime(now),
			formatTime(now),
		)
		if err != nil {
			return mapWriteError("inserting monster", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.CreatedAt = now
	m.UpdatedAt = now
	s.logger.Debug("added monster", "id", m.ID, "name", m.Name)
	return nil
}

// GetMonster retrieves a monster by id.
func (s *SQLiteStore) GetMonster(ctx context.Context, id string) (*Monster, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	m, err := scanMonster(db.QueryRowContext(ctx, `SELECT `+monsterColumns+` FROM monsters WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// UpdateMonster replaces every mutable field of an existing monster.
func (s *SQLiteStore) UpdateMonster(ctx context.Context, m *Monster) error {
	if err := validateMonster(m); err != nil {
		return err
	}
	now := s.timestamp()

	var createdAt string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkMonsterName(ctx, tx, m.Name, m.ID); err != nil {
			return err
		}
		err := tx.QueryRowContext(ctx, `
			UPDATE monsters
			SET name = ?, element = ?, type = ?, mainEffect = ?, note = ?,
				hasFourStar = ?, fourStarEffect = ?, imageUrl = ?, updatedAt = ?
			WHERE id = ?
			RETURNING createdAt
		`,
			m.Name,
			monsterElementLabel(m.Element),
			m.Type.Label(),
			m.MainEffect,
			nullString(m.Note),
			m.HasFourStar,
			nullString(m.FourStarEffect),
			nullString(m.ImageURL),
			formatTime(now),
			m.ID,
		).Scan(&createdAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return mapWriteError("updating monster", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return err
	}
	m.UpdatedAt = now
	s.logger.Debug("updated monster", "id", m.ID, "name", m.Name)
	return nil
}

// DeleteMonster removes a monster. Image assets are the caller's concern.
func (s *SQLiteStore) DeleteMonster(ctx context.Context, id string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	result, err := db.ExecContext(ctx, `DELETE FROM monsters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting monster: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	s.logger.Debug("deleted monster", "id", id)
	return nil
}

// ListMonsters returns up to filter.Limit monsters, newest first.
func (s *SQLiteStore) ListMonsters(ctx context.Context, filter MonsterFilter) ([]*Monster, error) {
	c := monsterConditions(filter)
	query := `SELECT ` + monsterColumns + ` FROM monsters` + c.where() +
		` ORDER BY createdAt DESC, id DESC LIMIT ?`
	return s.queryMonsters(ctx, query, append(c.args, clampLimit(filter.Limit))...)
}

// ListMonstersPage returns one page of monsters, newest first. Monsters carry
// no likes, so SortPopular is treated as SortNewest.
func (s *SQLiteStore) ListMonstersPage(ctx context.Context, filter MonsterFilter, req PageRequest) (*Page[*Monster], error) {
	req = s.normalize(req)
	limit, offset := req.limitOffset()

	c := monsterConditions(filter)
	query := `SELECT ` + monsterColumns + ` FROM monsters` + c.where() +
		` ORDER BY createdAt DESC, id DESC LIMIT ? OFFSET ?`
	items, err := s.queryMonsters(ctx, query, append(c.args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	return newPage(items, req), nil
}

// ListMonstersByIDs returns the monsters that exist among ids, keyed by id.
func (s *SQLiteStore) ListMonstersByIDs(ctx context.Context, ids []string) (map[string]*Monster, error) {
	seen := make(map[string]struct{}, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		args = append(args, id)
	}

	out := make(map[string]*Monster, len(args))
	if len(args) == 0 {
		return out, nil
	}

	query := `SELECT ` + monsterColumns + ` FROM monsters WHERE id IN (` + placeholders(len(args)) + `)`
	monsters, err := s.queryMonsters(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for _, m := range monsters {
		out[m.ID] = m
	}
	return out, nil
}

func monsterConditions(filter MonsterFilter) *conditions {
	c := &conditions{}
	c.search(filter.Query, monsterSearchColumns...)
	if filter.Element != nil {
		c.add("element = ?", monsterElementLabel(*filter.Element))
	}
	if filter.Type != nil {
		c.add("type = ?", filter.Type.Label())
	}
	return c
}

func (s *SQLiteStore) queryMonsters(ctx context.Context, query string, args ...any) ([]*Monster, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying monsters: %w", err)
	}
	defer rows.Close()

	var monsters []*Monster
	for rows.Next() {
		m, err := scanMonster(rows)
		if err != nil {
			return nil, err
		}
		monsters = append(monsters, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating monsters: %w", err)
	}
	return monsters, nil
}

func scanMonster(row rowScanner) (*Monster, error) {
	var (
		m                              Monster
		element, typ                   string
		note, fourStarEffect, imageURL sql.NullString
		createdAt, updatedAt           string
	)
	err := row.Scan(&m.ID, &m.Name, &element, &typ, &m.MainEffect, &note,
		&m.HasFourStar, &fourStarEffect, &imageURL, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning monster: %w", err)
	}

	m.Element, _ = ParseElement(element)
	m.Type, _ = ParseMonsterType(typ)
	m.Note = note.String
	m.FourStarEffect = fourStarEffect.String
	m.ImageURL = imageURL.String

	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// validateMonster trims text fields in place and checks every write rule
// that does not need the database.
func validateMonster(m *Monster) error {
	m.Name = strings.TrimSpace(m.Name)
	m.MainEffect = strings.TrimSpace(m.MainEffect)
	m.Note = strings.TrimSpace(m.Note)
	m.FourStarEffect = strings.TrimSpace(m.FourStarEffect)
	m.ImageURL = strings.TrimSpace(m.ImageURL)

	if m.Name == "" {
		return invalid("name", "required")
	}
	if !m.Element.valid() {
		return invalid("element", "unknown element")
	}
	if m.Type.Label() == "" {
		return invalid("type", "must be one of 神, 魔, 属性")
	}
	if m.MainEffect == "" {
		return invalid("mainEffect", "required")
	}
	if m.HasFourStar && m.FourStarEffect == "" {
		return invalid("fourStarEffect", "required when hasFourStar is set")
	}
	if !m.HasFourStar {
		m.FourStarEffect = ""
	}
	return nil
}

// checkMonsterName fails with ErrDuplicateName when another monster already
// uses name, ignoring case.
func checkMonsterName(ctx context.Context, tx *sql.Tx, name, id string) error {
	var other string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM monsters WHERE name = ? COLLATE NOCASE AND id <> ? LIMIT 1`, name, id,
	).Scan(&other)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("checking monster name: %w", err)
	default:
		return fmt.Errorf("%w: monster %q", ErrDuplicateName, name)
	}
}

// mapWriteError turns driver constraint failures into domain errors.
func mapWriteError(op string, err error) error {
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w: %v", op, ErrAlreadyExists, err)
	case isConstraintViolation(err):
		return fmt.Errorf("%s: %w: %v", op, ErrValidation, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
