// ABOUTME: Like ledger giving each voter at most one counted vote per subject
// ABOUTME: Dedup insert and counter increment share one write transaction

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// likeLedger describes one likeable table and its ledger.
type likeLedger struct {
	subjectTable  string
	subjectColumn string
	ledgerTable   string
	ledgerColumn  string
}

var (
	weaponBoardLikes = likeLedger{
		subjectTable:  "weapon_boards",
		subjectColumn: "id",
		ledgerTable:   "weapon_board_likes",
		ledgerColumn:  "boardId",
	}
	friendSummonLikes = likeLedger{
		subjectTable:  "friend_summons",
		subjectColumn: "playerId",
		ledgerTable:   "friend_summon_likes",
		ledgerColumn:  "playerId",
	}
)

// vote records voterID's like on subjectID. Repeating a vote is a no-op that
// reports DidVote=false and the unchanged count.
func (s *SQLiteStore) vote(ctx context.Context, l likeLedger, subjectID, voterID string) (*VoteResult, error) {
	voterID = strings.TrimSpace(voterID)
	if voterID == "" {
		return nil, invalid("voterId", "required")
	}

	var result VoteResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT 1 FROM %s WHERE %s = ?`, l.subjectTable, l.subjectColumn), subjectID,
		).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("checking %s: %w", l.subjectTable, err)
		}

		res, err := tx.ExecContext(ctx, fmt.Sprintf(
			`INSERT INTO %s (%s, voterId, createdAt) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
			l.ledgerTable, l.ledgerColumn,
		), subjectID, voterID, formatTime(s.timestamp()))
		if err != nil {
			return fmt.Errorf("recording vote: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		}
		result.DidVote = n == 1

		if result.DidVote {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(
				`UPDATE %s SET likes = likes + 1 WHERE %s = ?`, l.subjectTable, l.subjectColumn,
			), subjectID); err != nil {
				return fmt.Errorf("incrementing likes: %w", err)
			}
		}

		err = tx.QueryRowContext(ctx, fmt.Sprintf(
			`SELECT likes FROM %s WHERE %s = ?`, l.subjectTable, l.subjectColumn,
		), subjectID).Scan(&result.Likes)
		if err != nil {
			return fmt.Errorf("reading likes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("vote", "subject", l.subjectTable, "id", subjectID, "counted", result.DidVote, "likes", result.Likes)
	return &result, nil
}

// LikeWeaponBoard casts voterID's like on a weapon board.
func (s *SQLiteStore) LikeWeaponBoard(ctx context.Context, id, voterID string) (*VoteResult, error) {
	return s.vote(ctx, weaponBoardLikes, id, voterID)
}

// LikeFriendSummon casts voterID's like on a friend summon.
func (s *SQLiteStore) LikeFriendSummon(ctx context.Context, playerID, voterID string) (*VoteResult, error) {
	return s.vote(ctx, friendSummonLikes, strings.TrimSpace(playerID), voterID)
}
