// ABOUTME: Weapon-board store methods
// ABOUTME: Element and type are nullable and must be set or unset together

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const weaponBoardColumns = `id, name, element, type, description, playerId, skillShareCode,
	boardImageUrl, predictionImageUrl, teamImageUrl0, teamImageUrl1, likes,
	createdAt, COALESCE(updatedAt, createdAt)`

var weaponBoardSearchColumns = []string{"name", "description", "playerId"}

// AddWeaponBoard validates and inserts a weapon board with zero likes.
func (s *SQLiteStore) AddWeaponBoard(ctx context.Context, wb *WeaponBoard) error {
	if err := validateWeaponBoard(wb); err != nil {
		return err
	}
	if wb.ID == "" {
		wb.ID = s.newID()
	}

	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	now := s.timestamp()
	_, err = db.ExecContext(ctx, `
		INSERT INTO weapon_boards (id, name, element, type, description, playerId, skillShareCode,
			boardImageUrl, predictionImageUrl, teamImageUrl0, teamImageUrl1, likes, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`,
		wb.ID,
		wb.Name,
		nullableElementLabel(wb.Element),
		nullableBoardTypeLabel(wb.Type),
		nullString(wb.Description),
		nullString(wb.PlayerID),
		nullString(wb.SkillShareCode),
		wb.BoardImageURL,
		nullString(wb.PredictionImageURL),
		nullString(wb.TeamImageURL0),
		nullString(wb.TeamImageURL1),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return mapWriteError("inserting weapon board", err)
	}

	wb.Likes = 0
	wb.CreatedAt = now
	wb.UpdatedAt = now
	s.logger.Debug("added weapon board", "id", wb.ID, "name", wb.Name)
	return nil
}

// GetWeaponBoard retrieves a weapon board by id.
func (s *SQLiteStore) GetWeaponBoard(ctx context.Context, id string) (*WeaponBoard, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	wb, err := scanWeaponBoard(db.QueryRowContext(ctx,
		`SELECT `+weaponBoardColumns+` FROM weapon_boards WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return wb, err
}

// UpdateWeaponBoard replaces every mutable field. Likes and createdAt are kept.
func (s *SQLiteStore) UpdateWeaponBoard(ctx context.Context, wb *WeaponBoard) error {
	if err := validateWeaponBoard(wb); err != nil {
		return err
	}

	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	now := s.timestamp()
	var createdAt string
	err = db.QueryRowContext(ctx, `
		UPDATE weapon_boards
		SET name = ?, element = ?, type = ?, description = ?, playerId = ?, skillShareCode = ?,
			boardImageUrl = ?, predictionImageUrl = ?, teamImageUrl0 = ?, teamImageUrl1 = ?, updatedAt = ?
		WHERE id = ?
		RETURNING likes, createdAt
	`,
		wb.Name,
		nullableElementLabel(wb.Element),
		nullableBoardTypeLabel(wb.Type),
		nullString(wb.Description),
		nullString(wb.PlayerID),
		nullString(wb.SkillShareCode),
		wb.BoardImageURL,
		nullString(wb.PredictionImageURL),
		nullString(wb.TeamImageURL0),
		nullString(wb.TeamImageURL1),
		formatTime(now),
		wb.ID,
	).Scan(&wb.Likes, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return mapWriteError("updating weapon board", err)
	}

	if wb.CreatedAt, err = parseTime(createdAt); err != nil {
		return err
	}
	wb.UpdatedAt = now
	s.logger.Debug("updated weapon board", "id", wb.ID)
	return nil
}

// DeleteWeaponBoard removes a weapon board and its votes.
func (s *SQLiteStore) DeleteWeaponBoard(ctx context.Context, id string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	result, err := db.ExecContext(ctx, `DELETE FROM weapon_boards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting weapon board: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	s.logger.Debug("deleted weapon board", "id", id)
	return nil
}

// ListWeaponBoards returns up to filter.Limit weapon boards in the given order.
func (s *SQLiteStore) ListWeaponBoards(ctx context.Context, filter WeaponBoardFilter, sort SortOrder) ([]*WeaponBoard, error) {
	c := weaponBoardConditions(filter)
	query := `SELECT ` + weaponBoardColumns + ` FROM weapon_boards` + c.where() +
		` ORDER BY ` + weaponBoardOrder(sort) + ` LIMIT ?`
	return s.queryWeaponBoards(ctx, query, append(c.args, clampLimit(filter.Limit))...)
}

// ListWeaponBoardsPage returns one page of weapon boards.
func (s *SQLiteStore) ListWeaponBoardsPage(ctx context.Context, filter WeaponBoardFilter, req PageRequest) (*Page[*WeaponBoard], error) {
	req = s.normalize(req)
	limit, offset := req.limitOffset()

	c := weaponBoardConditions(filter)
	query := `SELECT ` + weaponBoardColumns + ` FROM weapon_boards` + c.where() +
		` ORDER BY ` + weaponBoardOrder(req.Sort) + ` LIMIT ? OFFSET ?`
	items, err := s.queryWeaponBoards(ctx, query, append(c.args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	return newPage(items, req), nil
}

// weaponBoardConditions maps an unset element or type filter to IS NULL.
func weaponBoardConditions(filter WeaponBoardFilter) *conditions {
	c := &conditions{}
	c.search(filter.Query, weaponBoardSearchColumns...)
	if filter.Element != nil {
		if *filter.Element == ElementUnset {
			c.add("element IS NULL")
		} else {
			c.add("element = ?", filter.Element.Label())
		}
	}
	if filter.Type != nil {
		if *filter.Type == BoardTypeUnset {
			c.add("type IS NULL")
		} else {
			c.add("type = ?", filter.Type.Label())
		}
	}
	return c
}

func weaponBoardOrder(sort SortOrder) string {
	if sort == SortPopular {
		return "likes DESC, COALESCE(updatedAt, createdAt) DESC, id"
	}
	return "COALESCE(updatedAt, createdAt) DESC, id"
}

func (s *SQLiteStore) queryWeaponBoards(ctx context.Context, query string, args ...any) ([]*WeaponBoard, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying weapon boards: %w", err)
	}
	defer rows.Close()

	var boards []*WeaponBoard
	for rows.Next() {
		wb, err := scanWeaponBoard(rows)
		if err != nil {
			return nil, err
		}
		boards = append(boards, wb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating weapon boards: %w", err)
	}
	return boards, nil
}

func scanWeaponBoard(row rowScanner) (*WeaponBoard, error) {
	var (
		wb                                      WeaponBoard
		element, typ                            sql.NullString
		description, playerID, skillShareCode   sql.NullString
		predictionImage, teamImage0, teamImage1 sql.NullString
		createdAt, updatedAt                    string
	)
	err := row.Scan(&wb.ID, &wb.Name, &element, &typ, &description, &playerID, &skillShareCode,
		&wb.BoardImageURL, &predictionImage, &teamImage0, &teamImage1, &wb.Likes,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning weapon board: %w", err)
	}

	wb.Element, _ = ParseElement(element.String)
	wb.Type, _ = ParseBoardType(typ.String)
	wb.Description = description.String
	wb.PlayerID = playerID.String
	wb.SkillShareCode = skillShareCode.String
	wb.PredictionImageURL = predictionImage.String
	wb.TeamImageURL0 = teamImage0.String
	wb.TeamImageURL1 = teamImage1.String

	if wb.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if wb.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &wb, nil
}

func validateWeaponBoard(wb *WeaponBoard) error {
	wb.Name = strings.TrimSpace(wb.Name)
	wb.Description = strings.TrimSpace(wb.Description)
	wb.PlayerID = strings.TrimSpace(wb.PlayerID)
	wb.SkillShareCode = strings.TrimSpace(wb.SkillShareCode)
	wb.BoardImageURL = strings.TrimSpace(wb.BoardImageURL)

	if wb.Name == "" {
		return invalid("name", "required")
	}
	if wb.BoardImageURL == "" {
		return invalid("boardImageUrl", "required")
	}
	if !wb.Element.valid() {
		return invalid("element", "unknown element")
	}
	if !wb.Type.valid() {
		return invalid("type", "unknown board type")
	}
	if (wb.Element == ElementUnset) != (wb.Type == BoardTypeUnset) {
		return invalid("element", "element and type must be specified together")
	}
	if wb.PlayerID != "" && !isNumeric(wb.PlayerID) {
		return invalid("playerId", "must be numeric")
	}
	return nil
}
