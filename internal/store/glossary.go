// ABOUTME: Slang glossary store methods
// ABOUTME: Terms are unique ignoring case, like monster names

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const glossaryColumns = `id, term, meaning, createdAt, COALESCE(updatedAt, createdAt)`

// AddGlossaryTerm validates and inserts a glossary term.
func (s *SQLiteStore) AddGlossaryTerm(ctx context.Context, term *GlossaryTerm) error {
	if err := validateGlossaryTerm(term); err != nil {
		return err
	}
	if term.ID == "" {
		term.ID = s.newID()
	}
	now := s.timestamp()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkGlossaryTerm(ctx, tx, term.Term, term.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO heihua_terms (id, term, meaning, createdAt, updatedAt) VALUES (?, ?, ?, ?, ?)`,
			term.ID, term.Term, term.Meaning, formatTime(now), formatTime(now),
		)
		if err != nil {
			return mapWriteError("inserting glossary term", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	term.CreatedAt = now
	term.UpdatedAt = now
	s.logger.Debug("added glossary term", "id", term.ID, "term", term.Term)
	return nil
}

// GetGlossaryTerm retrieves a glossary term by id.
func (s *SQLiteStore) GetGlossaryTerm(ctx context.Context, id string) (*GlossaryTerm, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	term, err := scanGlossaryTerm(db.QueryRowContext(ctx,
		`SELECT `+glossaryColumns+` FROM heihua_terms WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return term, err
}

// UpdateGlossaryTerm replaces a term's text and meaning.
func (s *SQLiteStore) UpdateGlossaryTerm(ctx context.Context, term *GlossaryTerm) error {
	if err := validateGlossaryTerm(term); err != nil {
		return err
	}
	now := s.timestamp()

	var createdAt string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkGlossaryTerm(ctx, tx, term.Term, term.ID); err != nil {
			return err
		}
		err := tx.QueryRowContext(ctx,
			`UPDATE heihua_terms SET term = ?, meaning = ?, updatedAt = ? WHERE id = ? RETURNING createdAt`,
			term.Term, term.Meaning, formatTime(now), term.ID,
		).Scan(&createdAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return mapWriteError("updating glossary term", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if term.CreatedAt, err = parseTime(createdAt); err != nil {
		return err
	}
	term.UpdatedAt = now
	s.logger.Debug("updated glossary term", "id", term.ID)
	return nil
}

// DeleteGlossaryTerm removes a glossary term.
func (s *SQLiteStore) DeleteGlossaryTerm(ctx context.Context, id string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	result, err := db.ExecContext(ctx, `DELETE FROM heihua_terms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting glossary term: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	s.logger.Debug("deleted glossary term", "id", id)
	return nil
}

// ListGlossaryTerms returns terms whose term or meaning contains query,
// most recently edited first.
func (s *SQLiteStore) ListGlossaryTerms(ctx context.Context, query string, limit int) ([]*GlossaryTerm, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	c := &conditions{}
	c.search(query, "term", "meaning")
	rows, err := db.QueryContext(ctx,
		`SELECT `+glossaryColumns+` FROM heihua_terms`+c.where()+
			` ORDER BY COALESCE(updatedAt, createdAt) DESC, id LIMIT ?`,
		append(c.args, clampLimit(limit))...)
	if err != nil {
		return nil, fmt.Errorf("querying glossary terms: %w", err)
	}
	defer rows.Close()

	var terms []*GlossaryTerm
	for rows.Next() {
		t, err := scanGlossaryTerm(rows)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating glossary terms: %w", err)
	}
	return terms, nil
}

func scanGlossaryTerm(row rowScanner) (*GlossaryTerm, error) {
	var t GlossaryTerm
	var createdAt, updatedAt string
	if err := row.Scan(&t.ID, &t.Term, &t.Meaning, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning glossary term: %w", err)
	}

	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func validateGlossaryTerm(t *GlossaryTerm) error {
	t.Term = strings.TrimSpace(t.Term)
	t.Meaning = strings.TrimSpace(t.Meaning)
	if t.Term == "" {
		return invalid("term", "required")
	}
	if t.Meaning == "" {
		return invalid("meaning", "required")
	}
	return nil
}

func checkGlossaryTerm(ctx context.Context, tx *sql.Tx, term, id string) error {
	var other string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM heihua_terms WHERE term = ? COLLATE NOCASE AND id <> ? LIMIT 1`, term, id,
	).Scan(&other)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("checking glossary term: %w", err)
	default:
		return fmt.Errorf("%w: term %q", ErrDuplicateName, term)
	}
}
