// ABOUTME: Schema manager that brings any prior on-disk shape up to the current schema
// ABOUTME: Runs ordered, idempotent steps in one transaction, rebuilding tables whose CHECK must widen

package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// migrationStep is one idempotent schema change. apply reports whether it
// changed anything so that no-op runs stay quiet in the logs.
type migrationStep struct {
	name  string
	apply func(ctx context.Context, tx *sql.Tx) (bool, error)
}

// legacyUnknownElements are the labels earlier releases used for "no element".
var legacyUnknownElements = []string{"", "无", "未知", FilterAll, "none", "unknown", "unset", "null"}

// EnsureReady brings the schema up to date. It does the work at most once per
// store handle; every step is also safe to re-run against an up-to-date file.
// A failure returns an error wrapping ErrMigrationFailed and leaves the file
// exactly as it was before the call.
func (s *SQLiteStore) EnsureReady(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}

	s.readyMu.Lock()
	defer s.readyMu.Unlock()
	if s.ready.Load() {
		return nil
	}

	if err := s.migrate(ctx); err != nil {
		s.logger.Error("schema migration failed", "error", err)
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	s.ready.Store(true)
	return nil
}

func (s *SQLiteStore) migrationSteps() []migrationStep {
	return []migrationStep{
		{name: "create_tables", apply: s.createTables},

		addColumn("monsters", "element", `TEXT NOT NULL DEFAULT '其他'`, ""),
		addColumn("monsters", "note", `TEXT`, ""),
		addColumn("monsters", "updatedAt", `TEXT`,
			`UPDATE monsters SET updatedAt = createdAt WHERE updatedAt IS NULL`),
		{name: "monsters_normalize_element", apply: normalizeMonsterElements},
		s.widenCheck(monstersTable, "type", []string{"神", "魔", "属性"}),

		addColumn("weapon_boards", "element", `TEXT CHECK (element IS NULL OR element IN ('火','风','土','水'))`, ""),
		addColumn("weapon_boards", "type", `TEXT CHECK (type IS NULL OR type IN ('神','魔','其他'))`, ""),
		addColumn("weapon_boards", "skillShareCode", `TEXT`, ""),
		addColumn("weapon_boards", "likes", `INTEGER NOT NULL DEFAULT 0`, ""),
		addColumn("weapon_boards", "updatedAt", `TEXT`,
			`UPDATE weapon_boards SET updatedAt = createdAt WHERE updatedAt IS NULL`),
		s.widenCheck(weaponBoardsTable, "type", []string{"神", "魔", "其他"}),

		addColumn("friend_summons", "likes", `INTEGER NOT NULL DEFAULT 0`, ""),

		addColumn("heihua_terms", "updatedAt", `TEXT`,
			`UPDATE heihua_terms SET updatedAt = createdAt WHERE updatedAt IS NULL`),

		{name: "create_indexes", apply: createIndexes},
		{name: "unique_name_indexes", apply: s.createUniqueNameIndexes},
	}
}

// migrate runs every step in one transaction on a dedicated connection.
// Foreign keys are switched off for that connection first: the pragma is a
// no-op inside a transaction, and a table rebuild's DROP TABLE would otherwise
// cascade into the like ledgers.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys=OFF"); err != nil {
		return fmt.Errorf("disabling foreign keys: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), "PRAGMA foreign_keys=ON"); err != nil {
			s.logger.Error("re-enabling foreign keys failed, discarding connection", "error", err)
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration transaction: %w", err)
	}
	defer tx.Rollback()

	for _, step := range s.migrationSteps() {
		changed, err := step.apply(ctx, tx)
		if err != nil {
			return fmt.Errorf("step %s: %w", step.name, err)
		}
		if changed {
			s.logger.Info("applied migration", "step", step.name)
		}
	}

	if err := checkForeignKeys(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}
	return nil
}

func (s *SQLiteStore) createTables(ctx context.Context, tx *sql.Tx) (bool, error) {
	before, err := schemaObjectCount(ctx, tx)
	if err != nil {
		return false, err
	}
	for _, t := range allTables {
		if _, err := tx.ExecContext(ctx, t.createSQL(t.name)); err != nil {
			return false, fmt.Errorf("creating %s: %w", t.name, err)
		}
	}
	after, err := schemaObjectCount(ctx, tx)
	if err != nil {
		return false, err
	}
	return after != before, nil
}

func createIndexes(ctx context.Context, tx *sql.Tx) (bool, error) {
	before, err := schemaObjectCount(ctx, tx)
	if err != nil {
		return false, err
	}
	for _, t := range allTables {
		if err := createTableIndexes(ctx, tx, t); err != nil {
			return false, err
		}
	}
	after, err := schemaObjectCount(ctx, tx)
	if err != nil {
		return false, err
	}
	return after != before, nil
}

func createTableIndexes(ctx context.Context, tx *sql.Tx, t tableDef) error {
	for _, idx := range t.indexes {
		if _, err := tx.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("creating index on %s: %w", t.name, err)
		}
	}
	return nil
}

// createUniqueNameIndexes adds the case-insensitive unique indexes. A store
// that already holds duplicate names keeps working without the index; the
// write-time duplicate check stays authoritative.
func (s *SQLiteStore) createUniqueNameIndexes(ctx context.Context, tx *sql.Tx) (bool, error) {
	changed := false
	for _, u := range uniqueNameIndexes {
		created, err := s.createUniqueNameIndex(ctx, tx, u)
		if err != nil {
			return false, err
		}
		changed = changed || created
	}
	return changed, nil
}

func (s *SQLiteStore) createUniqueNameIndex(ctx context.Context, tx *sql.Tx, u uniqueNameIndex) (bool, error) {
	exists, err := indexExists(ctx, tx, u.name)
	if err != nil || exists {
		return false, err
	}

	var dup int
	err = tx.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT 1 FROM %s GROUP BY %s COLLATE NOCASE HAVING COUNT(*) > 1 LIMIT 1`, u.table, u.column,
	)).Scan(&dup)
	switch {
	case err == nil:
		s.logger.Warn("skipping unique index, duplicate values exist", "index", u.name, "table", u.table)
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("checking duplicates in %s: %w", u.table, err)
	}

	if _, err := tx.ExecContext(ctx, u.createSQL()); err != nil {
		return false, fmt.Errorf("creating %s: %w", u.name, err)
	}
	return true, nil
}

// addColumn probes for the column and adds it when missing. SQLite has no
// ADD COLUMN IF NOT EXISTS. The optional backfill runs on every pass; it must
// only touch rows that still need it.
func addColumn(table, column, definition, backfill string) migrationStep {
	return migrationStep{
		name: fmt.Sprintf("%s_add_%s", table, column),
		apply: func(ctx context.Context, tx *sql.Tx) (bool, error) {
			exists, err := columnExists(ctx, tx, table, column)
			if err != nil {
				return false, err
			}
			changed := false
			if !exists {
				stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return false, fmt.Errorf("adding %s column to %s: %w", column, table, err)
				}
				changed = true
			}
			if backfill != "" {
				res, err := tx.ExecContext(ctx, backfill)
				if err != nil {
					return false, fmt.Errorf("backfilling %s.%s: %w", table, column, err)
				}
				n, _ := res.RowsAffected()
				changed = changed || n > 0
			}
			return changed, nil
		},
	}
}

func normalizeMonsterElements(ctx context.Context, tx *sql.Tx) (bool, error) {
	args := make([]any, 0, len(legacyUnknownElements)+1)
	args = append(args, monsterElementSentinel)
	for _, v := range legacyUnknownElements {
		args = append(args, v)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE monsters SET element = ?
		WHERE element IS NULL OR LOWER(TRIM(element)) IN (`+placeholders(len(legacyUnknownElements))+`)
	`, args...)
	if err != nil {
		return false, fmt.Errorf("normalizing unknown elements: %w", err)
	}
	unknown, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, `UPDATE monsters SET element = TRIM(element) WHERE element <> TRIM(element)`)
	if err != nil {
		return false, fmt.Errorf("trimming elements: %w", err)
	}
	padded, _ := res.RowsAffected()

	return unknown+padded > 0, nil
}

// widenCheck rebuilds def when the live CHECK constraint on column does not
// admit every required value. SQLite cannot alter a CHECK in place.
func (s *SQLiteStore) widenCheck(def tableDef, column string, required []string) migrationStep {
	return migrationStep{
		name: fmt.Sprintf("%s_widen_%s", def.name, column),
		apply: func(ctx context.Context, tx *sql.Tx) (bool, error) {
			ddl, err := tableSQL(ctx, tx, def.name)
			if err != nil {
				return false, err
			}
			allowed, constrained := checkValues(ddl, column)
			if !constrained || containsAll(allowed, required) {
				return false, nil
			}
			s.logger.Info("rebuilding table to widen constraint",
				"table", def.name, "column", column, "allowed", allowed, "required", required)
			if err := s.rebuildTable(ctx, tx, def); err != nil {
				return false, err
			}
			return true, nil
		},
	}
}

// rebuildTable replaces def's table with a fresh copy built from the current
// DDL: create shadow, copy rows, drop old, rename shadow, rebuild indexes.
// It runs inside the caller's transaction, so any failure leaves the
// original table untouched.
func (s *SQLiteStore) rebuildTable(ctx context.Context, tx *sql.Tx, def tableDef) error {
	shadow := def.name + "_rebuild"

	// Columns the old table never had take their defaults.
	existing, err := tableColumns(ctx, tx, def.name)
	if err != nil {
		return err
	}
	var copyCols []string
	for _, c := range def.columns {
		if _, ok := existing[c]; ok {
			copyCols = append(copyCols, c)
		}
	}
	cols := strings.Join(copyCols, ", ")

	var before int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+def.name).Scan(&before); err != nil {
		return fmt.Errorf("counting %s rows: %w", def.name, err)
	}

	stmts := []string{
		"DROP TABLE IF EXISTS " + shadow,
		def.createSQL(shadow),
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", shadow, cols, cols, def.name),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rebuilding %s: %w", def.name, err)
		}
	}

	var copied int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+shadow).Scan(&copied); err != nil {
		return fmt.Errorf("counting %s rows: %w", shadow, err)
	}
	if copied != before {
		return fmt.Errorf("rebuilding %s: copied %d of %d rows", def.name, copied, before)
	}

	stmts = []string{
		"DROP TABLE " + def.name,
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", shadow, def.name),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("swapping %s: %w", def.name, err)
		}
	}

	if err := createTableIndexes(ctx, tx, def); err != nil {
		return err
	}
	for _, u := range uniqueNameIndexes {
		if u.table != def.name {
			continue
		}
		if _, err := s.createUniqueNameIndex(ctx, tx, u); err != nil {
			return err
		}
	}

	s.logger.Info("rebuilt table", "table", def.name, "rows", copied)
	return nil
}

func checkForeignKeys(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("checking foreign keys: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		var table string
		var rowid sql.NullInt64
		var parent string
		var fkid int
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return fmt.Errorf("scanning foreign key violation: %w", err)
		}
		return fmt.Errorf("foreign key violation in %s referencing %s", table, parent)
	}
	return rows.Err()
}

func columnExists(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probing %s.%s: %w", table, column, err)
	}
	return true, nil
}

func tableColumns(ctx context.Context, tx *sql.Tx, table string) (map[string]struct{}, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("listing %s columns: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning %s column: %w", table, err)
		}
		cols[name] = struct{}{}
	}
	return cols, rows.Err()
}

func indexExists(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM sqlite_master WHERE type = 'index' AND name = ?`, name).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probing index %s: %w", name, err)
	}
	return true, nil
}

// tableSQL returns the live CREATE TABLE statement, or "" if the table is missing.
func tableSQL(ctx context.Context, tx *sql.Tx, table string) (string, error) {
	var ddl string
	err := tx.QueryRowContext(ctx, `SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&ddl)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s definition: %w", table, err)
	}
	return ddl, nil
}

func schemaObjectCount(ctx context.Context, tx *sql.Tx) (int, error) {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting schema objects: %w", err)
	}
	return n, nil
}

var quotedValue = regexp.MustCompile(`'((?:[^']|'')*)'`)

// checkValues extracts the literal list of "<column> IN (...)" from a CREATE
// TABLE statement. constrained is false when no such list exists.
func checkValues(ddl, column string) (values []string, constrained bool) {
	re := regexp.MustCompile(`(?is)(?:^|[^A-Za-z0-9_"])"?` + regexp.QuoteMeta(column) + `"?\s+IN\s*\(([^)]*)\)`)
	m := re.FindStringSubmatch(ddl)
	if m == nil {
		return nil, false
	}
	for _, q := range quotedValue.FindAllStringSubmatch(m[1], -1) {
		values = append(values, strings.ReplaceAll(q[1], "''", "'"))
	}
	return values, true
}

func containsAll(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, v := range have {
		set[v] = struct{}{}
	}
	for _, v := range want {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}
