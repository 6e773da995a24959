// ABOUTME: Decoder for skill-share codes attached to weapon boards
// ABOUTME: Codes are base64 (std or URL-safe, padding optional) wrapping a JSON array of entries

package skillshare

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidBase64 is returned when the code is not valid base64.
	ErrInvalidBase64 = errors.New("invalid base64")
	// ErrInvalidJSON is returned when the decoded payload is not JSON.
	ErrInvalidJSON = errors.New("invalid json")
	// ErrInvalidPayload is returned when the JSON payload is not an array.
	ErrInvalidPayload = errors.New("invalid payload")
)

// Entry is one skill placement in a shared rotation.
type Entry struct {
	Index       int  `json:"Index"`
	OwnerType   int  `json:"OwnerType"`
	OwnerIsMain bool `json:"OwnerIsMain"`
	OwnerID     int  `json:"OwnerID"`
	OwnerPos    int  `json:"OwnerPos"`
	SkillID     int  `json:"SkillID"`
	ConfigID0   int  `json:"ConfigID0"`
	ConfigID1   int  `json:"ConfigID1"`
}

// FieldError reports a missing or mistyped field in one entry.
type FieldError struct {
	Index int
	Field string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid entry %d", e.Index)
	}
	return fmt.Sprintf("invalid field %s in entry %d", e.Field, e.Index)
}

var numberFields = []string{"Index", "OwnerType", "OwnerID", "OwnerPos", "SkillID", "ConfigID0", "ConfigID1"}

// normalizeBase64 converts URL-safe characters to the standard alphabet and
// restores padding.
func normalizeBase64(input string) string {
	s := strings.TrimSpace(input)
	s = strings.NewReplacer("-", "+", "_", "/").Replace(s)
	if pad := len(s) % 4; pad != 0 {
		s += strings.Repeat("=", 4-pad)
	}
	return s
}

// Decode parses a skill-share code into its entries.
func Decode(code string) ([]Entry, error) {
	raw, err := base64.StdEncoding.DecodeString(normalizeBase64(code))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}

	var parsed any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	items, ok := parsed.([]any)
	if !ok {
		return nil, ErrInvalidPayload
	}

	entries := make([]Entry, 0, len(items))
	for i, item := range items {
		entry, err := decodeEntry(item, i)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func decodeEntry(item any, index int) (Entry, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return Entry{}, &FieldError{Index: index}
	}

	nums := make(map[string]int, len(numberFields))
	for _, field := range numberFields {
		n, ok := obj[field].(json.Number)
		if !ok {
			return Entry{}, &FieldError{Index: index, Field: field}
		}
		f, err := n.Float64()
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return Entry{}, &FieldError{Index: index, Field: field}
		}
		nums[field] = int(f)
	}

	isMain, ok := obj["OwnerIsMain"].(bool)
	if !ok {
		return Entry{}, &FieldError{Index: index, Field: "OwnerIsMain"}
	}

	return Entry{
		Index:       nums["Index"],
		OwnerType:   nums["OwnerType"],
		OwnerIsMain: isMain,
		OwnerID:     nums["OwnerID"],
		OwnerPos:    nums["OwnerPos"],
		SkillID:     nums["SkillID"],
		ConfigID0:   nums["ConfigID0"],
		ConfigID1:   nums["ConfigID1"],
	}, nil
}

// Encode produces the URL-safe, unpadded form of entries.
func Encode(entries []Entry) (string, error) {
	if entries == nil {
		entries = []Entry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshaling entries: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
