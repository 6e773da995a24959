// Package store provides persistent storage for summon-share using SQLite.
//
// # Architecture
//
// The store package exposes one interface per record kind:
//
//   - MonsterStore: Monster catalog with case-insensitive unique names
//   - FriendSummonStore: Ten-slot friend summons keyed by player id
//   - WeaponBoardStore: Weapon-board shares with optional element/type
//   - GlossaryStore: Community slang terms
//
// Store embeds all of them plus EnsureReady and Close. SQLiteStore implements
// Store in a single struct sharing one *sql.DB.
//
// # Schema Evolution
//
// EnsureReady brings any earlier on-disk layout up to the current one. Steps
// are ordered and idempotent: missing columns are added and backfilled,
// legacy labels are normalized, and tables whose CHECK constraint must admit a
// new value are rebuilt through a shadow table. All steps run in a single
// transaction, so a failed run leaves the file unchanged and returns an error
// wrapping ErrMigrationFailed. Every store method calls EnsureReady before
// touching the database.
//
// # Likes
//
// LikeWeaponBoard and LikeFriendSummon record (subject, voter) in a ledger
// table and only increment the visible counter when that pair is new.
// Replaying a vote returns DidVote=false and the unchanged count.
//
// # SQLite Configuration
//
// Every pooled connection is opened with:
//
//	PRAGMA foreign_keys=ON;
//	PRAGMA journal_mode=WAL;
//	PRAGMA busy_timeout=5000;
//
// and every transaction begins IMMEDIATE, so writers are serialized by SQLite
// itself. The default driver is modernc.org/sqlite; WithDriver(DriverMattn)
// selects github.com/mattn/go-sqlite3.
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrDuplicateName: Name or term collides ignoring case
//   - ErrValidation: Matched by every *ValidationError
//   - ErrMigrationFailed: Schema could not be brought up to date
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewSQLiteStore(filepath.Join(t.TempDir(), "test.db")) for tests
// against a real SQLite file, or ":memory:" for a throwaway database.
package store
