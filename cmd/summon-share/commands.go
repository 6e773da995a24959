// ABOUTME: Subcommand implementations for the summon-share CLI
// ABOUTME: Each command parses its flags, opens the store when needed and prints plain tables

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/2389/summon-share/internal/config"
	"github.com/2389/summon-share/internal/skillshare"
	"github.com/2389/summon-share/internal/slot"
	"github.com/2389/summon-share/internal/store"
)

func (c *cli) runMigrate(ctx context.Context, args []string) error {
	fs, cfgPath := c.newFlagSet("migrate")
	if err := c.parse(fs, args); err != nil {
		return err
	}

	s, cfg, err := c.openStore(*cfgPath)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.EnsureReady(ctx); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "%s %s (driver %s)\n", color.GreenString("Schema up to date:"), cfg.Database.Path, cfg.Database.Driver)
	return nil
}

func (c *cli) runInit(args []string) error {
	fs, _ := c.newFlagSet("init")
	path := fs.String("path", "config.yaml", "Where to write the config file")
	force := fs.Bool("force", false, "Overwrite an existing file")
	if err := c.parse(fs, args); err != nil {
		return err
	}

	if _, err := os.Stat(*path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", *path)
	}

	if dir := filepath.Dir(*path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	if err := atomic.WriteFile(*path, strings.NewReader(config.Template)); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(c.out, "%s %s\n", color.GreenString("Wrote"), *path)
	return nil
}

// pageFlags registers the listing flags shared by every list command.
type pageFlags struct {
	query    *string
	page     *string
	pageSize *int
	sort     *string
}

func addPageFlags(fs *flag.FlagSet, withSort bool) pageFlags {
	pf := pageFlags{
		query:    fs.StringP("query", "q", "", "Case-insensitive substring search"),
		page:     fs.String("page", "1", "Page number, starting at 1"),
		pageSize: fs.Int("page-size", 0, "Items per page (0 uses the configured default)"),
	}
	if withSort {
		pf.sort = fs.String("sort", "newest", "Sort order: newest or popular")
	}
	return pf
}

func (pf pageFlags) request() store.PageRequest {
	req := store.PageRequest{
		Page:     store.ParsePage(*pf.page),
		PageSize: *pf.pageSize,
	}
	if pf.sort != nil {
		req.Sort = store.ParseSortOrder(*pf.sort)
	}
	return req
}

func (c *cli) runMonsters(ctx context.Context, args []string) error {
	fs, cfgPath := c.newFlagSet("monsters")
	pf := addPageFlags(fs, false)
	element := fs.String("element", "", "Element filter (火, 风, 土, 水, 其他 or 全部)")
	typ := fs.String("type", "", "Type filter (神, 魔, 属性 or 全部)")
	if err := c.parse(fs, args); err != nil {
		return err
	}

	elem, err := store.ParseElementFilter(*element)
	if err != nil {
		return usageError("%v", err)
	}
	mtype, err := store.ParseMonsterTypeFilter(*typ)
	if err != nil {
		return usageError("%v", err)
	}

	s, _, err := c.openStore(*cfgPath)
	if err != nil {
		return err
	}
	defer s.Close()

	page, err := s.ListMonstersPage(ctx, store.MonsterFilter{
		Query:   *pf.query,
		Element: elem,
		Type:    mtype,
	}, pf.request())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tELEMENT\tTYPE\tFOUR-STAR\tMAIN EFFECT")
	for _, m := range page.Items {
		fourStar := "-"
		if m.HasFourStar {
			fourStar = m.FourStarEffect
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.Name, orDash(m.Element.Label()), orDash(m.Type.Label()), fourStar, m.MainEffect)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	c.printPageFooter(page.Page, len(page.Items), page.HasPrev, page.HasNext)
	return nil
}

func (c *cli) runBoards(ctx context.Context, args []string) error {
	fs, cfgPath := c.newFlagSet("boards")
	pf := addPageFlags(fs, true)
	element := fs.String("element", "", "Element filter (火, 风, 土, 水, 其他 or 全部)")
	typ := fs.String("type", "", "Type filter (神, 魔, 其他 or 全部)")
	if err := c.parse(fs, args); err != nil {
		return err
	}

	elem, err := store.ParseElementFilter(*element)
	if err != nil {
		return usageError("%v", err)
	}
	btype, err := store.ParseBoardTypeFilter(*typ)
	if err != nil {
		return usageError("%v", err)
	}

	s, _, err := c.openStore(*cfgPath)
	if err != nil {
		return err
	}
	defer s.Close()

	page, err := s.ListWeaponBoardsPage(ctx, store.WeaponBoardFilter{
		Query:   *pf.query,
		Element: elem,
		Type:    btype,
	}, pf.request())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tELEMENT\tTYPE\tLIKES\tPLAYER\tUPDATED")
	for _, wb := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			wb.ID, wb.Name, orDash(wb.Element.Label()), orDash(wb.Type.Label()),
			wb.Likes, orDash(wb.PlayerID), wb.UpdatedAt.Local().Format(time.DateTime))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	c.printPageFooter(page.Page, len(page.Items), page.HasPrev, page.HasNext)
	return nil
}

func (c *cli) runSummons(ctx context.Context, args []string) error {
	fs, cfgPath := c.newFlagSet("summons")
	pf := addPageFlags(fs, true)
	if err := c.parse(fs, args); err != nil {
		return err
	}

	s, _, err := c.openStore(*cfgPath)
	if err != nil {
		return err
	}
	defer s.Close()

	page, err := s.ListFriendSummonsPage(ctx, store.FriendSummonFilter{Query: *pf.query}, pf.request())
	if err != nil {
		return err
	}

	var ids []string
	for _, summon := range page.Items {
		for _, tok := range summon.Slots {
			if !tok.IsEmpty() {
				ids = append(ids, tok.ItemID)
			}
		}
	}
	monsters, err := s.ListMonstersByIDs(ctx, ids)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAYER\tLIKES\tUPDATED\tSLOTS")
	for _, summon := range page.Items {
		slots := make([]string, len(summon.Slots))
		for i, tok := range summon.Slots {
			slots[i] = slotLabel(tok, monsters)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			summon.PlayerID, summon.Likes, summon.UpdatedAt.Local().Format(time.DateTime), strings.Join(slots, " "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	c.printPageFooter(page.Page, len(page.Items), page.HasPrev, page.HasNext)
	return nil
}

// slotLabel renders a slot as the monster name (or raw id when the monster
// is gone) plus a star for the uncapped variant.
func slotLabel(tok slot.Token, monsters map[string]*store.Monster) string {
	if tok.IsEmpty() {
		return "-"
	}
	name := tok.ItemID
	if m, ok := monsters[tok.ItemID]; ok {
		name = m.Name
	}
	if tok.Variant == slot.VariantUncapped {
		name += "★"
	}
	return name
}

func (c *cli) runLike(ctx context.Context, args []string) error {
	fs, cfgPath := c.newFlagSet("like")
	voter := fs.String("voter", "", "Voter id (default: a fresh random id)")
	if err := c.parse(fs, args); err != nil {
		return err
	}

	if fs.NArg() != 2 {
		return usageError("like board|summon ID [--voter V]")
	}
	kind, id := fs.Arg(0), fs.Arg(1)

	voterID := *voter
	if !fs.Changed("voter") {
		voterID = c.newVoterID()
	}

	s, _, err := c.openStore(*cfgPath)
	if err != nil {
		return err
	}
	defer s.Close()

	var res *store.VoteResult
	switch kind {
	case "board":
		res, err = s.LikeWeaponBoard(ctx, id, voterID)
	case "summon":
		res, err = s.LikeFriendSummon(ctx, id, voterID)
	default:
		return usageError("unknown like target %q (want board or summon)", kind)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%s %s not found", kind, id)
		}
		return err
	}

	if res.DidVote {
		fmt.Fprintf(c.out, "%s likes=%d voter=%s\n", color.GreenString("Liked"), res.Likes, voterID)
	} else {
		fmt.Fprintf(c.out, "%s likes=%d voter=%s\n", color.YellowString("Already liked"), res.Likes, voterID)
	}
	return nil
}

func (c *cli) runSkillCode(args []string) error {
	fs, _ := c.newFlagSet("skill-code")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError("skill-code CODE")
	}

	entries, err := skillshare.Decode(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("decoding skill code: %w", err)
	}

	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tOWNER TYPE\tMAIN\tOWNER\tPOS\tSKILL\tCONFIG")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%d\t%t\t%d\t%d\t%d\t%d/%d\n",
			e.Index, e.OwnerType, e.OwnerIsMain, e.OwnerID, e.OwnerPos, e.SkillID, e.ConfigID0, e.ConfigID1)
	}
	return tw.Flush()
}

func (c *cli) printPageFooter(page, count int, hasPrev, hasNext bool) {
	footer := fmt.Sprintf("page %d, %d items", page, count)
	if hasPrev {
		footer += ", prev"
	}
	if hasNext {
		footer += ", next"
	}
	fmt.Fprintln(c.out, color.HiBlackString(footer))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
