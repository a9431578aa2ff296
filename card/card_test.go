package card

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		card Card
	}{
		{
			name: "short passcode",
			card: Card{
				Identifier: "YG01",
				Passcode:   "12345",
				KonamiID:   "1",
				Variant:    "0001",
				SetID:      "ABC",
				Lang:       "EN",
				Number:     "001",
				Rarity:     "-",
				Edition:    "-",
			},
		},
		{
			name: "full width fields",
			card: Card{
				Identifier: "YG01",
				Passcode:   "1234567890",
				KonamiID:   "12345678",
				Variant:    "0002",
				SetID:      "LOB1",
				Lang:       "JP",
				Number:     "124",
				Rarity:     "UR",
				Edition:    "1E",
			},
		},
		{
			name: "three char set id",
			card: Card{
				Identifier: "YG02",
				Passcode:   "46986414",
				KonamiID:   "4007",
				Variant:    "0000",
				SetID:      "SDY",
				Lang:       "EN",
				Number:     "006",
				Rarity:     "",
				Edition:    "LE",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := Encode(tt.card)
			require.NoError(t, err)
			assert.Len(t, record, RecordLen)
			assert.True(t, strings.HasSuffix(record, Trailer))

			decoded, err := Decode(record)
			require.NoError(t, err)
			assert.Equal(t, tt.card.Normalize(), decoded)
		})
	}
}

func TestEncodeSpecExample(t *testing.T) {
	c := Card{
		Identifier: "YG01",
		Passcode:   "12345",
		KonamiID:   "1",
		Variant:    "0001",
		SetID:      "ABC",
		Lang:       "EN",
		Number:     "001",
		Rarity:     "-",
		Edition:    "-",
	}

	record, err := Encode(c)
	require.NoError(t, err)
	assert.Equal(t, "YG0112345-----1-------0001ABC-EN001----XXX", record)
	assert.True(t, strings.HasPrefix(record, "YG0112345---"))
}

func TestEncodeValidation(t *testing.T) {
	valid := Card{
		Identifier: "YG01",
		Passcode:   "12345",
		KonamiID:   "1",
		Variant:    "0001",
		SetID:      "ABC",
		Lang:       "EN",
		Number:     "001",
	}

	tests := []struct {
		name   string
		mutate func(*Card)
		field  string
	}{
		{"wrong prefix", func(c *Card) { c.Identifier = "XX01" }, "identifier"},
		{"short identifier", func(c *Card) { c.Identifier = "YG1" }, "identifier"},
		{"short passcode", func(c *Card) { c.Passcode = "1234" }, "passcode"},
		{"long passcode", func(c *Card) { c.Passcode = "12345678901" }, "passcode"},
		{"alpha passcode", func(c *Card) { c.Passcode = "1234X" }, "passcode"},
		{"long konami id", func(c *Card) { c.KonamiID = "123456789" }, "konami_id"},
		{"alpha konami id", func(c *Card) { c.KonamiID = "12a" }, "konami_id"},
		{"short variant", func(c *Card) { c.Variant = "001" }, "variant"},
		{"alpha variant", func(c *Card) { c.Variant = "00a1" }, "variant"},
		{"short set id", func(c *Card) { c.SetID = "AB" }, "set_id"},
		{"long set id", func(c *Card) { c.SetID = "ABCDE" }, "set_id"},
		{"one char lang", func(c *Card) { c.Lang = "E" }, "lang"},
		{"three char lang", func(c *Card) { c.Lang = "ENG" }, "lang"},
		{"short number", func(c *Card) { c.Number = "01" }, "number"},
		{"alpha number", func(c *Card) { c.Number = "0a1" }, "number"},
		{"long rarity", func(c *Card) { c.Rarity = "URX" }, "rarity"},
		{"long edition", func(c *Card) { c.Edition = "1ED" }, "edition"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)

			_, err := Encode(c)
			require.Error(t, err)

			var ferr *FieldError
			require.ErrorAs(t, err, &ferr)
			assert.Equal(t, tt.field, ferr.Field)
		})
	}
}

func TestDecodeShortRecord(t *testing.T) {
	for _, record := range []string{"", "YG01", strings.Repeat("A", 40)} {
		_, err := Decode(record)
		var ferr *FieldError
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, "record", ferr.Field)
	}
}

func TestDecodeWithoutTrailer(t *testing.T) {
	record, err := Encode(Card{
		Identifier: "YG01",
		Passcode:   "12345",
		KonamiID:   "1",
		Variant:    "0001",
		SetID:      "ABC",
		Lang:       "EN",
		Number:     "001",
	})
	require.NoError(t, err)

	// Trailer lost in transit: one character short is still decodable.
	decoded, err := Decode(record[:MinDecodeLen])
	require.NoError(t, err)
	assert.Equal(t, "12345", decoded.Passcode)
}

func TestDecodeValidation(t *testing.T) {
	base, err := Encode(Card{
		Identifier: "YG01",
		Passcode:   "12345",
		KonamiID:   "1",
		Variant:    "0001",
		SetID:      "ABC",
		Lang:       "EN",
		Number:     "001",
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		record string
		field  string
	}{
		{"bad identifier", "ZZ01" + base[4:], "identifier"},
		{"bad variant", base[:22] + "00X1" + base[26:], "variant"},
		{"bad number", base[:32] + "0X1" + base[35:], "number"},
		{"filler passcode", base[:4] + "----------" + base[14:], "passcode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.record)
			var ferr *FieldError
			require.ErrorAs(t, err, &ferr)
			assert.Equal(t, tt.field, ferr.Field)
		})
	}
}
