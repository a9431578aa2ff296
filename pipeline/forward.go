package pipeline

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// DefaultForwardPort is the companion app's listening port.
const DefaultForwardPort = 41112

const forwardTimeout = 2 * time.Second

// Forwarder pushes one payload to the companion display app per call:
// connect, write, close. Forwarding is best-effort; callers log and
// drop failures rather than retrying, so a dead companion app never
// stalls the polling loops.
type Forwarder struct {
	addr    string
	timeout time.Duration
}

// NewForwarder creates a forwarder for the companion app at host:port.
func NewForwarder(host string, port int) *Forwarder {
	return &Forwarder{
		addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		timeout: forwardTimeout,
	}
}

// Addr returns the companion app address.
func (f *Forwarder) Addr() string {
	return f.addr
}

// Send transmits one payload over a short-lived connection.
func (f *Forwarder) Send(payload []byte) error {
	conn, err := net.DialTimeout("tcp", f.addr, f.timeout)
	if err != nil {
		return fmt.Errorf("connect companion app %s: %w", f.addr, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(f.timeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("send to companion app %s: %w", f.addr, err)
	}
	return nil
}
