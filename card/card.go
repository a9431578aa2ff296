// Package card implements the fixed-width record format stored on
// card proximity tags.
//
// A record is 42 characters: 39 characters of fields followed by a
// 3-character trailer. Variable-length fields are right-padded with
// the filler character '-'. Decode trims the filler from passcode and
// konami_id; set_id, rarity and edition keep their padded width.
package card

import (
	"fmt"
	"strings"
)

const (
	// Filler pads variable-length fields to their fixed width.
	Filler = '-'

	// Trailer terminates every encoded record.
	Trailer = "XXX"

	// RecordLen is the full encoded length including the trailer.
	RecordLen = 42

	// MinDecodeLen tolerates a record with the trailer cut off.
	MinDecodeLen = 41

	identifierPrefix = "YG"
)

// Field byte offsets within an encoded record.
const (
	offPasscode = 4
	offKonamiID = 14
	offVariant  = 22
	offSetID    = 26
	offLang     = 30
	offNumber   = 32
	offRarity   = 35
	offEdition  = 37
	offTrailer  = 39
)

// Card is the decoded content of a tag record.
type Card struct {
	Identifier string
	Passcode   string
	KonamiID   string
	Variant    string
	SetID      string
	Lang       string
	Number     string
	Rarity     string
	Edition    string
}

// FieldError reports a field that failed validation. The first failing
// field aborts the whole encode or decode.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("card: invalid %s: %s", e.Field, e.Reason)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(string(Filler), width-len(s))
}

// validate applies the field rules in encode order. Fields are checked
// before padding, so widths here are the unpadded limits.
func validate(c Card) error {
	if len(c.Identifier) != 4 || !strings.HasPrefix(c.Identifier, identifierPrefix) {
		return &FieldError{"identifier", "must be 4 characters starting with " + identifierPrefix}
	}
	if !isDigits(c.Passcode) || len(c.Passcode) < 5 || len(c.Passcode) > 10 {
		return &FieldError{"passcode", "must be 5 to 10 digits"}
	}
	if !isDigits(c.KonamiID) || len(c.KonamiID) > 8 {
		return &FieldError{"konami_id", "must be numeric and at most 8 digits"}
	}
	if !isDigits(c.Variant) || len(c.Variant) != 4 {
		return &FieldError{"variant", "must be exactly 4 digits"}
	}
	if len(c.SetID) < 3 || len(c.SetID) > 4 {
		return &FieldError{"set_id", "must be 3 or 4 characters"}
	}
	if len(c.Lang) != 2 {
		return &FieldError{"lang", "must be exactly 2 characters"}
	}
	if !isDigits(c.Number) || len(c.Number) != 3 {
		return &FieldError{"number", "must be exactly 3 digits"}
	}
	if len(c.Rarity) > 2 {
		return &FieldError{"rarity", "must be at most 2 characters"}
	}
	if len(c.Edition) > 2 {
		return &FieldError{"edition", "must be at most 2 characters"}
	}
	return nil
}

// Encode renders c as a 42-character record. The input card is not
// modified; padding is applied to the output only.
func Encode(c Card) (string, error) {
	if err := validate(c); err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(RecordLen)
	b.WriteString(c.Identifier)
	b.WriteString(pad(c.Passcode, 10))
	b.WriteString(pad(c.KonamiID, 8))
	b.WriteString(c.Variant)
	b.WriteString(pad(c.SetID, 4))
	b.WriteString(c.Lang)
	b.WriteString(c.Number)
	b.WriteString(pad(c.Rarity, 2))
	b.WriteString(pad(c.Edition, 2))
	b.WriteString(Trailer)
	return b.String(), nil
}

// Decode parses an encoded record back into a Card. Records shorter
// than 41 characters are rejected; a 41-character record (trailer lost
// in transit) is accepted.
func Decode(record string) (Card, error) {
	if len(record) < MinDecodeLen {
		return Card{}, &FieldError{"record", fmt.Sprintf("must be at least %d characters, got %d", MinDecodeLen, len(record))}
	}

	c := Card{
		Identifier: record[:offPasscode],
		Passcode:   strings.TrimRight(record[offPasscode:offKonamiID], string(Filler)),
		KonamiID:   strings.TrimRight(record[offKonamiID:offVariant], string(Filler)),
		Variant:    record[offVariant:offSetID],
		SetID:      record[offSetID:offLang],
		Lang:       record[offLang:offNumber],
		Number:     record[offNumber:offRarity],
		Rarity:     record[offRarity:offEdition],
		Edition:    record[offEdition:offTrailer],
	}

	if err := validate(c); err != nil {
		return Card{}, err
	}
	return c, nil
}

// Normalize returns c with every field padded to its encoded width, so
// a card built from user input compares equal to its decoded form.
func (c Card) Normalize() Card {
	c.SetID = pad(c.SetID, 4)
	c.Rarity = pad(c.Rarity, 2)
	c.Edition = pad(c.Edition, 2)
	return c
}
