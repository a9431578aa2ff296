// Package command accepts out-of-band tag injections over a local TCP
// port, so another process can feed the pipeline without hardware: a
// raw tag record, or the removal sentinel. This channel is an
// alternate authoritative source and bypasses the presence tracker.
package command

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultPort is the command listener's default TCP port.
const DefaultPort = 41114

// RemovedSentinel marks a payload as a card-removed event.
const RemovedSentinel = "RemovedTag"

const (
	acceptTimeout = 500 * time.Millisecond
	readTimeout   = 2 * time.Second
	maxPayload    = 1024
)

// Handler receives the injected events. Satisfied by
// pipeline.Pipeline.
type Handler interface {
	Process(raw []byte)
	SendRemoval()
}

// Listener serves the command channel, one connection at a time.
type Listener struct {
	port    int
	handler Handler
	log     *log.Entry

	mu    sync.Mutex
	bound net.Addr
}

// NewListener creates a listener on the given local port (0 picks an
// ephemeral port).
func NewListener(port int, handler Handler) *Listener {
	return &Listener{
		port:    port,
		handler: handler,
		log:     log.WithField("component", "command"),
	}
}

// Addr returns the bound address once Run has started listening, nil
// before that.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bound
}

// Run accepts connections until ctx is cancelled. The accept loop uses
// a short deadline so cancellation is observed within one interval.
func (l *Listener) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", l.port))
	if err != nil {
		return fmt.Errorf("listen command port: %w", err)
	}
	defer ln.Close()

	tcpLn := ln.(*net.TCPListener)

	l.mu.Lock()
	l.bound = ln.Addr()
	l.mu.Unlock()
	l.log.Infof("Command listener on %s", ln.Addr())

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := tcpLn.SetDeadline(time.Now().Add(acceptTimeout)); err != nil {
			return fmt.Errorf("set accept deadline: %w", err)
		}

		conn, err := tcpLn.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			l.log.Warnf("Accept: %v", err)
			continue
		}

		l.handle(conn)
	}
}

func (l *Listener) handle(conn net.Conn) {
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		l.log.Warnf("Set read deadline: %v", err)
		return
	}

	buf := make([]byte, maxPayload)
	n, err := conn.Read(buf)
	if n == 0 {
		if err != nil {
			l.log.Warnf("Read command payload: %v", err)
		}
		return
	}
	payload := buf[:n]

	if bytes.HasPrefix(payload, []byte(RemovedSentinel)) {
		l.log.Info("Card removal injected via command channel")
		l.handler.SendRemoval()
		return
	}

	l.log.Infof("Tag record injected via command channel (%d bytes)", n)
	l.handler.Process(payload)
}
