// ABOUTME: Tests for the summon-share CLI commands
// ABOUTME: Runs commands against a temp database and checks output and exit codes

package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/summon-share/internal/config"
	"github.com/2389/summon-share/internal/slot"
	"github.com/2389/summon-share/internal/store"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type testEnv struct {
	cfgPath string
	dbPath  string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "site.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "database:\n  path: \"" + dbPath + "\"\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))
	return testEnv{cfgPath: cfgPath, dbPath: dbPath}
}

// seed opens the configured database directly and hands it to fn.
func (e testEnv) seed(t *testing.T, fn func(s *store.SQLiteStore)) {
	t.Helper()
	s, err := store.NewSQLiteStore(e.dbPath)
	require.NoError(t, err)
	defer s.Close()
	fn(s)
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	c := &cli{out: &out, errOut: &errOut, newVoterID: func() string { return "generated-voter" }}
	code := c.run(context.Background(), args)
	return code, out.String(), errOut.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, errOut := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Usage: summon-share")

	code, _, errOut = runCLI(t, "bogus")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Unknown command: bogus")

	code, out, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "dev\n", out)
}

func TestMigrate(t *testing.T) {
	env := newTestEnv(t)

	code, out, errOut := runCLI(t, "migrate", "--config", env.cfgPath)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Schema up to date:")
	assert.Contains(t, out, env.dbPath)
	assert.FileExists(t, env.dbPath)

	code, _, errOut = runCLI(t, "migrate", "--config", env.cfgPath)
	assert.Equal(t, 0, code, errOut)
}

func TestMigrate_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: postgres\n"), 0644))

	code, _, errOut := runCLI(t, "migrate", "--config", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "database.driver")
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")

	code, out, errOut := runCLI(t, "init", "--path", path)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Wrote")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.Template, string(data))

	code, _, errOut = runCLI(t, "init", "--path", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "already exists")

	code, _, errOut = runCLI(t, "init", "--path", path, "--force")
	assert.Equal(t, 0, code, errOut)
}

func TestMonsters(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, func(s *store.SQLiteStore) {
		for _, m := range []*store.Monster{
			{Name: "Agni", Element: store.ElementFire, Type: store.MonsterTypeGod, MainEffect: "fire atk"},
			{Name: "Varuna", Element: store.ElementWater, Type: store.MonsterTypeGod, MainEffect: "water atk"},
		} {
			require.NoError(t, s.AddMonster(context.Background(), m))
		}
	})

	code, out, errOut := runCLI(t, "monsters", "--config", env.cfgPath, "--element", "火")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Agni")
	assert.NotContains(t, out, "Varuna")
	assert.Contains(t, out, "page 1, 1 items")

	code, out, _ = runCLI(t, "monsters", "--config", env.cfgPath, "-q", "varu", "--element", "全部")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Varuna")

	code, _, errOut = runCLI(t, "monsters", "--config", env.cfgPath, "--element", "plasma")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "element")
}

func TestBoardsAndLike(t *testing.T) {
	env := newTestEnv(t)
	var boardID string
	env.seed(t, func(s *store.SQLiteStore) {
		wb := &store.WeaponBoard{Name: "magna grid", BoardImageURL: "/img/grid.png"}
		require.NoError(t, s.AddWeaponBoard(context.Background(), wb))
		boardID = wb.ID
	})

	code, out, errOut := runCLI(t, "like", "board", boardID, "--config", env.cfgPath)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Liked likes=1 voter=generated-voter")

	code, out, _ = runCLI(t, "like", "board", boardID, "--config", env.cfgPath, "--voter", "generated-voter")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Already liked likes=1")

	code, _, errOut = runCLI(t, "like", "board", "missing", "--config", env.cfgPath)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "board missing not found")

	code, _, _ = runCLI(t, "like", "poster", boardID, "--config", env.cfgPath)
	assert.Equal(t, 2, code)

	code, out, errOut = runCLI(t, "boards", "--config", env.cfgPath, "--sort", "popular")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "magna grid")
	assert.Contains(t, out, boardID)
}

func TestSummons(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, func(s *store.SQLiteStore) {
		ctx := context.Background()
		m := &store.Monster{
			Name: "Agni", Element: store.ElementFire, Type: store.MonsterTypeGod,
			MainEffect: "fire atk", HasFourStar: true, FourStarEffect: "more",
		}
		require.NoError(t, s.AddMonster(ctx, m))

		fs := &store.FriendSummon{PlayerID: "12345678"}
		fs.Slots[0] = slot.Token{ItemID: m.ID, Variant: slot.VariantUncapped}
		fs.Slots[4] = slot.Token{ItemID: "gone", Variant: slot.VariantStandard}
		require.NoError(t, s.UpsertFriendSummon(ctx, fs))
	})

	code, out, errOut := runCLI(t, "summons", "--config", env.cfgPath, "--page", "abc")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "12345678")
	assert.Contains(t, out, "Agni★")
	assert.Contains(t, out, "gone")
	assert.Contains(t, out, "page 1, 1 items")

	code, out, errOut = runCLI(t, "like", "summon", "12345678", "--config", env.cfgPath)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "likes=1")
}

func TestSkillCode(t *testing.T) {
	payload := `[{"Index":0,"OwnerType":1,"OwnerIsMain":true,"OwnerID":3040,"OwnerPos":2,"SkillID":77,"ConfigID0":5,"ConfigID1":6}]`
	code := base64.RawURLEncoding.EncodeToString([]byte(payload))

	exit, out, errOut := runCLI(t, "skill-code", code)
	require.Equal(t, 0, exit, errOut)
	assert.Contains(t, out, "3040")
	assert.Contains(t, out, "5/6")

	exit, _, errOut = runCLI(t, "skill-code", "!!!")
	assert.Equal(t, 1, exit)
	assert.Contains(t, errOut, "decoding skill code")

	exit, _, _ = runCLI(t, "skill-code")
	assert.Equal(t, 2, exit)
}
