package reader

import (
	"errors"
	"testing"

	"github.com/ebfe/scard"
	"github.com/stretchr/testify/assert"
)

func TestSWOK(t *testing.T) {
	tests := []struct {
		name string
		resp []byte
		want bool
	}{
		{"success", []byte{0x90, 0x00}, true},
		{"success with data", []byte{0x04, 0xAA, 0xBB, 0x90, 0x00}, true},
		{"failure", []byte{0x63, 0x00}, false},
		{"wrong sw2", []byte{0x90, 0x01}, false},
		{"empty", nil, false},
		{"one byte", []byte{0x90}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, swOK(tt.resp))
		})
	}
}

func TestCardGone(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no smartcard", scard.ErrNoSmartcard, true},
		{"removed card", scard.ErrRemovedCard, true},
		{"unpowered card", scard.ErrUnpoweredCard, true},
		{"unresponsive card", scard.ErrUnresponsiveCard, true},
		{"reset card", scard.ErrResetCard, true},
		{"reader unavailable", scard.ErrReaderUnavailable, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cardGone(tt.err))
		})
	}
}

func TestAPDUs(t *testing.T) {
	assert.Equal(t, []byte{0xFF, 0xCA, 0x00, 0x00, 0x00}, apduGetUID)
	assert.Equal(t, []byte{0xFF, 0xB0, 0x00, 0x04, 0x04}, apduReadBlock(4))
	assert.Equal(t, []byte{0xFF, 0xB0, 0x00, 0x0E, 0x04}, apduReadBlock(14))
}
