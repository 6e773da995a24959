// ABOUTME: Slot Token codec for friend-summon slot columns
// ABOUTME: Encodes an item reference plus presentation variant into one delimited string

package slot

import "strings"

// Delimiter separates the item id from the variant tag inside a token.
const Delimiter = "|"

// Variant distinguishes the standard presentation of an item from its
// uncapped (four-star) presentation.
type Variant int

const (
	VariantStandard Variant = iota // tag "5", also the default
	VariantUncapped                // tag "u"
)

// DefaultVariant is used for empty tokens, bare legacy ids and unknown tags.
const DefaultVariant = VariantStandard

const (
	tagStandard = "5"
	tagUncapped = "u"
)

// Tag returns the storage tag for the variant.
func (v Variant) Tag() string {
	switch v {
	case VariantUncapped:
		return tagUncapped
	default:
		return tagStandard
	}
}

// String implements fmt.Stringer.
func (v Variant) String() string {
	switch v {
	case VariantUncapped:
		return "uncapped"
	default:
		return "standard"
	}
}

// ParseVariant maps a storage tag to a Variant. Unknown tags yield
// DefaultVariant and ok=false.
func ParseVariant(tag string) (v Variant, ok bool) {
	switch tag {
	case tagStandard:
		return VariantStandard, true
	case tagUncapped:
		return VariantUncapped, true
	default:
		return DefaultVariant, false
	}
}

// Token is a decoded slot value. The zero Token is an empty slot.
type Token struct {
	ItemID  string
	Variant Variant
}

// IsEmpty reports whether the token references no item.
func (t Token) IsEmpty() bool {
	return t.ItemID == ""
}

// String encodes the token for storage.
func (t Token) String() string {
	return Encode(t.ItemID, t.Variant)
}

// Encode returns the storage form of (itemID, variant). An empty item id
// (after trimming) encodes to the empty string.
func Encode(itemID string, variant Variant) string {
	id := strings.TrimSpace(itemID)
	if id == "" {
		return ""
	}
	return id + Delimiter + variant.Tag()
}

// Decode parses a stored token. Values written before variants existed carry
// no delimiter and decode to the default variant.
func Decode(token string) Token {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Token{Variant: DefaultVariant}
	}

	id, tag, hasTag := strings.Cut(trimmed, Delimiter)
	switch {
	case !hasTag:
		return Token{ItemID: trimmed, Variant: DefaultVariant}
	default:
		variant, _ := ParseVariant(tag)
		return Token{ItemID: id, Variant: variant}
	}
}
