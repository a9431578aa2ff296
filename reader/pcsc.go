package reader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ebfe/scard"
)

// ISO 7816 APDUs understood by PC/SC contactless readers.
var apduGetUID = []byte{0xFF, 0xCA, 0x00, 0x00, 0x00}

func apduReadBlock(block byte) []byte {
	return []byte{0xFF, 0xB0, 0x00, block, 0x04}
}

// PCSC implements Transport for PC/SC smartcard readers. The device
// string optionally selects a reader by name substring; otherwise the
// first reader found is used.
type PCSC struct {
	device     string
	ctx        *scard.Context
	readerName string
	card       *scard.Card
}

// NewPCSC creates a PC/SC transport.
func NewPCSC(device string) *PCSC {
	return &PCSC{device: device}
}

// Name implements Transport.Name.
func (p *PCSC) Name() string { return "pcsc" }

// Connect implements Transport.Connect: establishes a PC/SC context
// and picks a reader.
func (p *PCSC) Connect() error {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return fmt.Errorf("establish PC/SC context: %w", err)
	}

	readers, err := ctx.ListReaders()
	if err != nil {
		_ = ctx.Release()
		return fmt.Errorf("list PC/SC readers: %w", err)
	}

	name := ""
	for _, r := range readers {
		if p.device == "" || strings.Contains(r, p.device) {
			name = r
			break
		}
	}
	if name == "" {
		_ = ctx.Release()
		return errors.New("no PC/SC reader detected")
	}

	p.ctx = ctx
	p.readerName = name
	return nil
}

// Poll implements Transport.Poll: connects to the card if one is in
// the field and queries its UID.
func (p *PCSC) Poll() (string, bool, error) {
	if p.card == nil {
		c, err := p.ctx.Connect(p.readerName, scard.ShareShared, scard.ProtocolAny)
		if err != nil {
			if errors.Is(err, scard.ErrNoSmartcard) || errors.Is(err, scard.ErrRemovedCard) {
				return "", false, nil
			}
			return "", false, fmt.Errorf("connect reader %s: %w", p.readerName, err)
		}
		p.card = c
	}

	resp, err := p.card.Transmit(apduGetUID)
	if err != nil {
		// The card left the field between connect and transmit.
		p.dropCard()
		if cardGone(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query UID: %w", err)
	}
	if !swOK(resp) {
		p.dropCard()
		return "", false, nil
	}

	return fmt.Sprintf("% X", resp[:len(resp)-2]), true, nil
}

// ReadTag implements Transport.ReadTag using page-sized READ BINARY
// transfers over the connection left open by Poll.
func (p *PCSC) ReadTag() ([]byte, error) {
	if p.card == nil {
		return nil, errors.New("no card connected")
	}

	var data []byte
	for block := firstDataBlock; block <= lastDataBlock; block++ {
		resp, err := p.card.Transmit(apduReadBlock(byte(block)))
		if err != nil {
			p.dropCard()
			return nil, fmt.Errorf("read page %d: %w", block, err)
		}
		if len(resp) < 2 {
			return nil, fmt.Errorf("read page %d: short response", block)
		}
		if !swOK(resp) {
			return nil, fmt.Errorf("read page %d: SW %02X %02X", block, resp[len(resp)-2], resp[len(resp)-1])
		}
		data = append(data, resp[:len(resp)-2]...)
	}
	return data, nil
}

// Close implements Transport.Close.
func (p *PCSC) Close() error {
	p.dropCard()
	if p.ctx != nil {
		err := p.ctx.Release()
		p.ctx = nil
		return err
	}
	return nil
}

func (p *PCSC) dropCard() {
	if p.card != nil {
		_ = p.card.Disconnect(scard.LeaveCard)
		p.card = nil
	}
}

func cardGone(err error) bool {
	return errors.Is(err, scard.ErrNoSmartcard) ||
		errors.Is(err, scard.ErrRemovedCard) ||
		errors.Is(err, scard.ErrUnpoweredCard) ||
		errors.Is(err, scard.ErrUnresponsiveCard) ||
		errors.Is(err, scard.ErrResetCard)
}

func swOK(resp []byte) bool {
	return len(resp) >= 2 && resp[len(resp)-2] == 0x90 && resp[len(resp)-1] == 0x00
}
