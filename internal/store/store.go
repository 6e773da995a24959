// ABOUTME: Store interfaces and data types for summon-share persistence
// ABOUTME: Defines Monster, FriendSummon, WeaponBoard, GlossaryTerm and the error taxonomy

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2389/summon-share/internal/slot"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateName is returned when a name collides case-insensitively with another record
var ErrDuplicateName = errors.New("duplicate name")

// ErrAlreadyExists is returned when a new record reuses an existing id
var ErrAlreadyExists = errors.New("already exists")

// ErrValidation is matched by every *ValidationError
var ErrValidation = errors.New("validation failed")

// ErrMigrationFailed wraps any failure while bringing the schema up to date.
// The store must not be used after it is returned.
var ErrMigrationFailed = errors.New("migration failed")

// ValidationError describes a rejected field. It is raised before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// SlotCount is the fixed number of slots in a friend summon
const SlotCount = 10

// Monster is a catalog entry referenced by friend-summon slots
type Monster struct {
	ID             string
	Name           string
	Element        Element
	Type           MonsterType
	MainEffect     string
	Note           string
	HasFourStar    bool
	FourStarEffect string // required iff HasFourStar
	ImageURL       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FriendSummon is one player's ten-slot support configuration
type FriendSummon struct {
	PlayerID  string
	Slots     [SlotCount]slot.Token
	Likes     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WeaponBoard is a shared weapon-board post
type WeaponBoard struct {
	ID                 string
	Name               string
	Element            Element   // ElementUnset is stored as NULL
	Type               BoardType // BoardTypeUnset is stored as NULL
	Description        string
	PlayerID           string
	SkillShareCode     string
	BoardImageURL      string
	PredictionImageURL string
	TeamImageURL0      string
	TeamImageURL1      string
	Likes              int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// GlossaryTerm is a community slang term and its meaning
type GlossaryTerm struct {
	ID        string
	Term      string
	Meaning   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VoteResult is the outcome of a like.
type VoteResult struct {
	Likes   int
	DidVote bool // false when this voter had already voted
}

// MonsterFilter narrows monster listings. Nil pointers disable a filter.
type MonsterFilter struct {
	Query   string
	Element *Element
	Type    *MonsterType
	Limit   int // ListMonsters only; 0 uses the default
}

// WeaponBoardFilter narrows weapon-board listings. Nil pointers disable a filter.
type WeaponBoardFilter struct {
	Query   string
	Element *Element
	Type    *BoardType
	Limit   int
}

// FriendSummonFilter narrows friend-summon listings.
type FriendSummonFilter struct {
	Query string // substring of the player id
	Limit int
}

// MonsterStore defines monster catalog persistence
type MonsterStore interface {
	AddMonster(ctx context.Context, m *Monster) error
	GetMonster(ctx context.Context, id string) (*Monster, error)
	UpdateMonster(ctx context.Context, m *Monster) error
	DeleteMonster(ctx context.Context, id string) error
	ListMonsters(ctx context.Context, filter MonsterFilter) ([]*Monster, error)
	ListMonstersPage(ctx context.Context, filter MonsterFilter, req PageRequest) (*Page[*Monster], error)
	ListMonstersByIDs(ctx context.Context, ids []string) (map[string]*Monster, error)
}

// FriendSummonStore defines friend-summon persistence
type FriendSummonStore interface {
	UpsertFriendSummon(ctx context.Context, fs *FriendSummon) error
	GetFriendSummon(ctx context.Context, playerID string) (*FriendSummon, error)
	DeleteFriendSummon(ctx context.Context, playerID string) error
	ListFriendSummons(ctx context.Context, filter FriendSummonFilter) ([]*FriendSummon, error)
	ListFriendSummonsPage(ctx context.Context, filter FriendSummonFilter, req PageRequest) (*Page[*FriendSummon], error)
	LikeFriendSummon(ctx context.Context, playerID, voterID string) (*VoteResult, error)
	ValidateFriendSummonSlots(ctx context.Context, slots [SlotCount]slot.Token) error
}

// WeaponBoardStore defines weapon-board persistence
type WeaponBoardStore interface {
	AddWeaponBoard(ctx context.Context, wb *WeaponBoard) error
	GetWeaponBoard(ctx context.Context, id string) (*WeaponBoard, error)
	UpdateWeaponBoard(ctx context.Context, wb *WeaponBoard) error
	DeleteWeaponBoard(ctx context.Context, id string) error
	ListWeaponBoards(ctx context.Context, filter WeaponBoardFilter, sort SortOrder) ([]*WeaponBoard, error)
	ListWeaponBoardsPage(ctx context.Context, filter WeaponBoardFilter, req PageRequest) (*Page[*WeaponBoard], error)
	LikeWeaponBoard(ctx context.Context, id, voterID string) (*VoteResult, error)
}

// GlossaryStore defines slang glossary persistence
type GlossaryStore interface {
	AddGlossaryTerm(ctx context.Context, term *GlossaryTerm) error
	GetGlossaryTerm(ctx context.Context, id string) (*GlossaryTerm, error)
	UpdateGlossaryTerm(ctx context.Context, term *GlossaryTerm) error
	DeleteGlossaryTerm(ctx context.Context, id string) error
	ListGlossaryTerms(ctx context.Context, query string, limit int) ([]*GlossaryTerm, error)
}

// Store is the full persistence surface used by the web layer
type Store interface {
	MonsterStore
	FriendSummonStore
	WeaponBoardStore
	GlossaryStore

	// EnsureReady brings the schema up to date. It is idempotent.
	EnsureReady(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}
