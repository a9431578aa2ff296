// Package reader talks to the tag reader hardware. Each physical
// interface is a Transport; a Poller owns one Transport and runs the
// connect/poll/read loop against the shared presence tracker.
package reader

import "fmt"

// Transport is one physical means of talking to a tag. Implementations
// are not safe for concurrent use; each is owned by a single Poller.
type Transport interface {
	// Name identifies the interface ("serial", "pcsc").
	Name() string

	// Connect binds the hardware. Called again after any transport
	// error, so it must be safe to retry.
	Connect() error

	// Poll issues one presence query. present=false with a nil error
	// means no tag is in range; a non-nil error means the transport
	// is broken and needs a reconnect.
	Poll() (uid string, present bool, err error)

	// ReadTag reads the tag's full record memory, blocks 4 through 14,
	// concatenated in ascending order.
	ReadTag() ([]byte, error)

	// Close releases the hardware handle.
	Close() error
}

// Tag memory range holding the card record.
const (
	firstDataBlock = 4
	lastDataBlock  = 14
)

// Config holds configuration for one reader interface.
type Config struct {
	Type   string `yaml:"type"`   // "serial" or "pcsc"
	Device string `yaml:"device"` // serial: tty path; pcsc: reader name substring, optional
	Baud   int    `yaml:"baud"`   // serial only, defaults to 115200
}

// New creates a Transport based on the provided configuration. The
// hardware is not touched until Connect.
func New(cfg Config) (Transport, error) {
	switch cfg.Type {
	case "serial":
		return NewSerial(cfg.Device, cfg.Baud), nil
	case "pcsc":
		return NewPCSC(cfg.Device), nil
	default:
		return nil, fmt.Errorf("unknown reader type %q", cfg.Type)
	}
}
