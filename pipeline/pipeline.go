// Package pipeline turns raw tag bytes into a JSON payload for the
// companion display app: codec decode, card database lookup, artwork
// load, edition resolution, forward. Every failure along the way only
// aborts that tag's processing; the pollers keep running.
package pipeline

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/SideswipeeZ/ygo-nfc-card-server/card"
)

// Payload statuses sent to the companion app.
const (
	StatusNewCard     = "NewCard"
	StatusCardRemoved = "CardRemoved"
)

// Payload is the outbound JSON message. A removal carries only the
// status field.
type Payload struct {
	Status    string `json:"status"`
	CardData  string `json:"card_data,omitempty"`
	Passcode  string `json:"passcode,omitempty"`
	Edition   string `json:"edition,omitempty"`
	SetString string `json:"set_string,omitempty"`
	CardImage string `json:"card_image,omitempty"`
}

// Store is the card database as the pipeline needs it.
type Store interface {
	Lookup(passcode string) (jsonData, imagePath string, found bool, err error)
	EditionName(code string) string
	Image(relPath string) ([]byte, error)
}

// Pipeline is stateless apart from its collaborators; Process and
// SendRemoval are safe to call from any worker concurrently.
type Pipeline struct {
	store     Store
	fwd       *Forwarder
	onForward func(status, passcode string)
	log       *log.Entry
}

// New creates a pipeline over the given store and forwarder.
func New(store Store, fwd *Forwarder) *Pipeline {
	return &Pipeline{
		store: store,
		fwd:   fwd,
		log:   log.WithField("component", "pipeline"),
	}
}

// SetForwardHook installs a callback invoked after every successful
// forward, with the payload status and passcode ("" for removals).
// Must be called before the workers start.
func (p *Pipeline) SetForwardHook(hook func(status, passcode string)) {
	p.onForward = hook
}

// Process decodes raw tag bytes and, if the card is known, forwards a
// NewCard payload. The last two bytes of raw are the tag's reserved
// region and are discarded before decoding.
func (p *Pipeline) Process(raw []byte) {
	if len(raw) <= 2 {
		p.log.Warnf("Tag data too short: %d bytes", len(raw))
		return
	}

	record := string(raw[:len(raw)-2])
	c, err := card.Decode(record)
	if err != nil {
		p.log.Warnf("Decode tag record: %v", err)
		return
	}

	jsonData, imagePath, found, err := p.store.Lookup(c.Passcode)
	if err != nil {
		p.log.Errorf("Card lookup: %v", err)
		return
	}
	if !found {
		p.log.Infof("Card not found: passcode %s", c.Passcode)
		return
	}

	image, err := p.store.Image(imagePath)
	if err != nil {
		p.log.Errorf("Load card image: %v", err)
		return
	}

	payload := Payload{
		Status:    StatusNewCard,
		CardData:  jsonData,
		Passcode:  c.Passcode,
		Edition:   p.store.EditionName(c.Edition),
		SetString: fmt.Sprintf("%s-%s%s", c.SetID, c.Lang, c.Number),
		CardImage: base64.StdEncoding.EncodeToString(image),
	}
	p.forward(payload)

	border := "+" + strings.Repeat("-", 60) + "+"
	p.log.Debug(border)
	p.log.Debugf(" Raw Data: %s ", record)
	p.log.Debugf(" Card ID: %s ", c.Passcode)
	p.log.Debug(border)
}

// SendRemoval forwards a CardRemoved payload.
func (p *Pipeline) SendRemoval() {
	p.forward(Payload{Status: StatusCardRemoved})
}

func (p *Pipeline) forward(payload Payload) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.Errorf("Marshal payload: %v", err)
		return
	}

	if err := p.fwd.Send(data); err != nil {
		p.log.Errorf("Forward %s: %v", payload.Status, err)
		return
	}
	p.log.Infof("Sent %s to companion app", payload.Status)

	if p.onForward != nil {
		p.onForward(payload.Status, payload.Passcode)
	}
}
