// ABOUTME: Current table definitions for every summon-share table
// ABOUTME: DDL templates are shared by fresh creation and shadow-table rebuilds

package store

import "fmt"

// tableDef is the current shape of one table.
type tableDef struct {
	name string
	// ddl is a CREATE TABLE template; %s is replaced by the table name.
	ddl     string
	columns []string
	indexes []string
}

func (t tableDef) createSQL(name string) string {
	return fmt.Sprintf(t.ddl, name)
}

var monstersTable = tableDef{
	name: "monsters",
	ddl: `CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			element TEXT NOT NULL DEFAULT '其他',
			type TEXT NOT NULL CHECK (type IN ('神','魔','属性')),
			mainEffect TEXT NOT NULL,
			note TEXT,
			hasFourStar INTEGER NOT NULL CHECK (hasFourStar IN (0,1)),
			fourStarEffect TEXT,
			imageUrl TEXT,
			createdAt TEXT NOT NULL,
			updatedAt TEXT
		)`,
	columns: []string{
		"id", "name", "element", "type", "mainEffect", "note",
		"hasFourStar", "fourStarEffect", "imageUrl", "createdAt", "updatedAt",
	},
	indexes: []string{
		`CREATE INDEX IF NOT EXISTS idx_monsters_createdAt ON monsters(createdAt DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_monsters_type ON monsters(type)`,
		`CREATE INDEX IF NOT EXISTS idx_monsters_element ON monsters(element)`,
		`CREATE INDEX IF NOT EXISTS idx_monsters_name ON monsters(name)`,
	},
}

var friendSummonsTable = tableDef{
	name: "friend_summons",
	ddl: `CREATE TABLE IF NOT EXISTS %s (
			playerId TEXT PRIMARY KEY,
			slot0 TEXT,
			slot1 TEXT,
			slot2 TEXT,
			slot3 TEXT,
			slot4 TEXT,
			slot5 TEXT,
			slot6 TEXT,
			slot7 TEXT,
			slot8 TEXT,
			slot9 TEXT,
			likes INTEGER NOT NULL DEFAULT 0,
			createdAt TEXT NOT NULL,
			updatedAt TEXT NOT NULL
		)`,
	columns: []string{
		"playerId", "slot0", "slot1", "slot2", "slot3", "slot4",
		"slot5", "slot6", "slot7", "slot8", "slot9", "likes", "createdAt", "updatedAt",
	},
	indexes: []string{
		`CREATE INDEX IF NOT EXISTS idx_friend_summons_updatedAt ON friend_summons(updatedAt DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_friend_summons_likes ON friend_summons(likes DESC, updatedAt DESC)`,
	},
}

var friendSummonLikesTable = tableDef{
	name: "friend_summon_likes",
	ddl: `CREATE TABLE IF NOT EXISTS %s (
			playerId TEXT NOT NULL REFERENCES friend_summons(playerId) ON DELETE CASCADE,
			voterId TEXT NOT NULL,
			createdAt TEXT NOT NULL,
			PRIMARY KEY (playerId, voterId)
		)`,
	columns: []string{"playerId", "voterId", "createdAt"},
}

var weaponBoardsTable = tableDef{
	name: "weapon_boards",
	ddl: `CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			element TEXT CHECK (element IS NULL OR element IN ('火','风','土','水')),
			type TEXT CHECK (type IS NULL OR type IN ('神','魔','其他')),
			description TEXT,
			playerId TEXT,
			skillShareCode TEXT,
			boardImageUrl TEXT NOT NULL,
			predictionImageUrl TEXT,
			teamImageUrl0 TEXT,
			teamImageUrl1 TEXT,
			likes INTEGER NOT NULL DEFAULT 0,
			createdAt TEXT NOT NULL,
			updatedAt TEXT NOT NULL
		)`,
	columns: []string{
		"id", "name", "element", "type", "description", "playerId", "skillShareCode",
		"boardImageUrl", "predictionImageUrl", "teamImageUrl0", "teamImageUrl1",
		"likes", "createdAt", "updatedAt",
	},
	indexes: []string{
		`CREATE INDEX IF NOT EXISTS idx_weapon_boards_updatedAt ON weapon_boards(updatedAt DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_weapon_boards_likes ON weapon_boards(likes DESC, updatedAt DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_weapon_boards_element ON weapon_boards(element)`,
		`CREATE INDEX IF NOT EXISTS idx_weapon_boards_type ON weapon_boards(type)`,
	},
}

var weaponBoardLikesTable = tableDef{
	name: "weapon_board_likes",
	ddl: `CREATE TABLE IF NOT EXISTS %s (
			boardId TEXT NOT NULL REFERENCES weapon_boards(id) ON DELETE CASCADE,
			voterId TEXT NOT NULL,
			createdAt TEXT NOT NULL,
			PRIMARY KEY (boardId, voterId)
		)`,
	columns: []string{"boardId", "voterId", "createdAt"},
}

var glossaryTermsTable = tableDef{
	name: "heihua_terms",
	ddl: `CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			term TEXT NOT NULL,
			meaning TEXT NOT NULL,
			createdAt TEXT NOT NULL,
			updatedAt TEXT
		)`,
	columns: []string{"id", "term", "meaning", "createdAt", "updatedAt"},
	indexes: []string{
		`CREATE INDEX IF NOT EXISTS idx_heihua_terms_updatedAt ON heihua_terms(updatedAt DESC)`,
	},
}

// allTables is in dependency order: referenced tables first.
var allTables = []tableDef{
	monstersTable,
	friendSummonsTable,
	friendSummonLikesTable,
	weaponBoardsTable,
	weaponBoardLikesTable,
	glossaryTermsTable,
}

// uniqueNameIndex is a case-insensitive unique index that older stores may
// not be able to hold because of pre-existing duplicates.
type uniqueNameIndex struct {
	name   string
	table  string
	column string
}

func (u uniqueNameIndex) createSQL() string {
	return fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s(%s COLLATE NOCASE)", u.name, u.table, u.column)
}

var uniqueNameIndexes = []uniqueNameIndex{
	{name: "uniq_monsters_name", table: "monsters", column: "name"},
	{name: "uniq_heihua_terms_term", table: "heihua_terms", column: "term"},
}
