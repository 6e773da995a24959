// ABOUTME: Categorical enumerations stored as text labels
// ABOUTME: Element, MonsterType and BoardType with explicit unset states and filter parsing

package store

import "strings"

// FilterAll is the query-boundary wildcard that disables a categorical filter.
// It is never a stored value.
const FilterAll = "全部"

// Element is a monster or weapon-board element. The zero value is ElementUnset.
type Element int

const (
	ElementUnset Element = iota
	ElementFire
	ElementWind
	ElementEarth
	ElementWater
)

// Elements lists every concrete element in slot-column order.
var Elements = []Element{ElementFire, ElementWind, ElementEarth, ElementWater}

// monsterElementSentinel is how monsters persist ElementUnset.
const monsterElementSentinel = "其他"

var elementLabels = map[Element]string{
	ElementFire:  "火",
	ElementWind:  "风",
	ElementEarth: "土",
	ElementWater: "水",
}

// Label returns the stored label, or "" for ElementUnset.
func (e Element) Label() string {
	return elementLabels[e]
}

func (e Element) String() string {
	switch e {
	case ElementFire:
		return "fire"
	case ElementWind:
		return "wind"
	case ElementEarth:
		return "earth"
	case ElementWater:
		return "water"
	default:
		return "unset"
	}
}

func (e Element) valid() bool {
	return e >= ElementUnset && e <= ElementWater
}

// ParseElement accepts a stored label or an English name. The monster
// sentinel and the empty string parse to ElementUnset.
func ParseElement(s string) (Element, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", monsterElementSentinel, "unset", "none":
		return ElementUnset, true
	case "火", "fire":
		return ElementFire, true
	case "风", "wind":
		return ElementWind, true
	case "土", "earth":
		return ElementEarth, true
	case "水", "water":
		return ElementWater, true
	}
	return ElementUnset, false
}

// ParseElementFilter parses a query-string element. "" and FilterAll yield nil.
func ParseElementFilter(s string) (*Element, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == FilterAll {
		return nil, nil
	}
	e, ok := ParseElement(s)
	if !ok {
		return nil, invalid("element", "unknown element "+s)
	}
	return &e, nil
}

func monsterElementLabel(e Element) string {
	if e == ElementUnset {
		return monsterElementSentinel
	}
	return e.Label()
}

func nullableElementLabel(e Element) any {
	if e == ElementUnset {
		return nil
	}
	return e.Label()
}

// MonsterType is the category of a monster. The zero value is not writable.
type MonsterType int

const (
	MonsterTypeUnknown MonsterType = iota
	MonsterTypeGod
	MonsterTypeDemon
	MonsterTypeElemental
)

var monsterTypeLabels = map[MonsterType]string{
	MonsterTypeGod:       "神",
	MonsterTypeDemon:     "魔",
	MonsterTypeElemental: "属性",
}

// Label returns the stored label.
func (t MonsterType) Label() string {
	return monsterTypeLabels[t]
}

func (t MonsterType) String() string {
	switch t {
	case MonsterTypeGod:
		return "god"
	case MonsterTypeDemon:
		return "demon"
	case MonsterTypeElemental:
		return "elemental"
	default:
		return "unknown"
	}
}

// ParseMonsterType accepts a stored label or an English name.
func ParseMonsterType(s string) (MonsterType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "神", "god":
		return MonsterTypeGod, true
	case "魔", "demon":
		return MonsterTypeDemon, true
	case "属性", "elemental":
		return MonsterTypeElemental, true
	}
	return MonsterTypeUnknown, false
}

// ParseMonsterTypeFilter parses a query-string type. "" and FilterAll yield nil.
func ParseMonsterTypeFilter(s string) (*MonsterType, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == FilterAll {
		return nil, nil
	}
	t, ok := ParseMonsterType(s)
	if !ok {
		return nil, invalid("type", "unknown monster type "+s)
	}
	return &t, nil
}

// BoardType is the category of a weapon board. BoardTypeOther is a real
// category distinct from BoardTypeUnset.
type BoardType int

const (
	BoardTypeUnset BoardType = iota
	BoardTypeGod
	BoardTypeDemon
	BoardTypeOther
)

var boardTypeLabels = map[BoardType]string{
	BoardTypeGod:   "神",
	BoardTypeDemon: "魔",
	BoardTypeOther: "其他",
}

// Label returns the stored label, or "" for BoardTypeUnset.
func (t BoardType) Label() string {
	return boardTypeLabels[t]
}

func (t BoardType) String() string {
	switch t {
	case BoardTypeGod:
		return "god"
	case BoardTypeDemon:
		return "demon"
	case BoardTypeOther:
		return "other"
	default:
		return "unset"
	}
}

func (t BoardType) valid() bool {
	return t >= BoardTypeUnset && t <= BoardTypeOther
}

// ParseBoardType accepts a stored label or an English name. "" is BoardTypeUnset.
func ParseBoardType(s string) (BoardType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unset":
		return BoardTypeUnset, true
	case "神", "god":
		return BoardTypeGod, true
	case "魔", "demon":
		return BoardTypeDemon, true
	case "其他", "other":
		return BoardTypeOther, true
	}
	return BoardTypeUnset, false
}

// ParseBoardTypeFilter parses a query-string type. "" and FilterAll yield nil.
func ParseBoardTypeFilter(s string) (*BoardType, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == FilterAll {
		return nil, nil
	}
	t, ok := ParseBoardType(s)
	if !ok {
		return nil, invalid("type", "unknown board type "+s)
	}
	return &t, nil
}

func nullableBoardTypeLabel(t BoardType) any {
	if t == BoardTypeUnset {
		return nil
	}
	return t.Label()
}

// SlotElement returns the element required of the monster in slot index.
// Column 4 of each block of five accepts any element (ElementUnset).
func SlotElement(index int) Element {
	col := index % 5
	if col < 0 || col >= len(Elements) {
		return ElementUnset
	}
	return Elements[col]
}
