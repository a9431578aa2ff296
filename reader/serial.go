package reader

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Serial command/response framing.
// Command:  [0x02][cmd][arg][0x03]
// Response: [0x02][len][payload...][xor][0x03], xor over the payload.
const (
	frameStart = 0x02
	frameEnd   = 0x03

	cmdPollUID   = 0x55 // payload: tag UID bytes, empty when no tag
	cmdReadBlock = 0x52 // arg: block number, payload: 4 data bytes

	serialDefaultBaud = 115200
	serialBlockSize   = 4

	// A frame can arrive split across reads; each read blocks for at
	// most the port's ReadTimeout, so this bounds one exchange.
	maxReadAttempts = 5
)

// Read-side outcomes that mean "try again", not "reconnect". The chip
// staying silent or garbling one frame is routine on a serial line;
// only genuine I/O errors tear the port down.
var (
	errNoResponse = errors.New("no response from reader")
	errBadFrame   = errors.New("malformed frame")
)

// Serial implements Transport for the serial-attached reader chip.
type Serial struct {
	device string
	baud   int
	port   io.ReadWriteCloser
}

// NewSerial creates a serial transport for the given tty device.
func NewSerial(device string, baud int) *Serial {
	if baud == 0 {
		baud = serialDefaultBaud
	}
	return &Serial{device: device, baud: baud}
}

// Name implements Transport.Name.
func (s *Serial) Name() string { return "serial" }

// Connect implements Transport.Connect.
func (s *Serial) Connect() error {
	c := &serial.Config{
		Name:        s.device,
		Baud:        s.baud,
		ReadTimeout: time.Second,
	}
	port, err := serial.OpenPort(c)
	if err != nil {
		return fmt.Errorf("open serial %s: %w", s.device, err)
	}
	s.port = port
	return nil
}

// Poll implements Transport.Poll. An empty response payload means no
// tag is in range; a silent or garbled reader counts as no tag too.
func (s *Serial) Poll() (string, bool, error) {
	payload, err := s.command(cmdPollUID, 0)
	if err != nil {
		if errors.Is(err, errNoResponse) || errors.Is(err, errBadFrame) {
			return "", false, nil
		}
		return "", false, err
	}
	if len(payload) == 0 {
		return "", false, nil
	}
	return fmt.Sprintf("% X", payload), true, nil
}

// ReadTag implements Transport.ReadTag. Here a missing or garbled
// frame is an error: the tag was just confirmed present, so a failed
// block read aborts the whole record.
func (s *Serial) ReadTag() ([]byte, error) {
	data := make([]byte, 0, (lastDataBlock-firstDataBlock+1)*serialBlockSize)
	for block := firstDataBlock; block <= lastDataBlock; block++ {
		payload, err := s.command(cmdReadBlock, byte(block))
		if err != nil {
			return nil, fmt.Errorf("read block %d: %w", block, err)
		}
		if len(payload) < serialBlockSize {
			return nil, fmt.Errorf("read block %d: short payload (%d bytes)", block, len(payload))
		}
		data = append(data, payload[:serialBlockSize]...)
	}
	return data, nil
}

func (s *Serial) command(cmd, arg byte) ([]byte, error) {
	if _, err := s.port.Write([]byte{frameStart, cmd, arg, frameEnd}); err != nil {
		return nil, fmt.Errorf("write command 0x%02x: %w", cmd, err)
	}
	return s.readFrame()
}

// readFrame accumulates bytes until a full response frame is buffered.
// The port's ReadTimeout surfaces as a zero-byte read (or io.EOF),
// which is not a transport failure.
func (s *Serial) readFrame() ([]byte, error) {
	buf := make([]byte, 0, 64)
	chunk := make([]byte, 64)

	for attempt := 0; attempt < maxReadAttempts; attempt++ {
		n, err := s.port.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if payload, complete, perr := parseFrame(buf); complete {
				return payload, perr
			}
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read frame: %w", err)
		}
	}

	if len(buf) == 0 {
		return nil, errNoResponse
	}
	return nil, fmt.Errorf("%w: incomplete after %d reads (%d bytes)", errBadFrame, maxReadAttempts, len(buf))
}

// parseFrame inspects an accumulating response buffer. complete is
// false while more bytes are still expected; once the frame is fully
// buffered it is validated and the payload returned.
func parseFrame(buf []byte) (payload []byte, complete bool, err error) {
	if len(buf) < 2 {
		return nil, false, nil
	}

	total := int(buf[1]) + 4
	if len(buf) < total {
		return nil, false, nil
	}

	if buf[0] != frameStart || buf[total-1] != frameEnd {
		return nil, true, fmt.Errorf("%w: bad framing", errBadFrame)
	}

	payload = buf[2 : total-2]
	var xor byte
	for _, b := range payload {
		xor ^= b
	}
	if xor != buf[total-2] {
		return nil, true, fmt.Errorf("%w: checksum mismatch", errBadFrame)
	}

	return payload, true, nil
}

// Close implements Transport.Close.
func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}
