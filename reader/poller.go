package reader

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/SideswipeeZ/ygo-nfc-card-server/presence"
)

// Sink receives decoded-ready tag bytes and removal events. Satisfied
// by pipeline.Pipeline.
type Sink interface {
	Process(raw []byte)
	SendRemoval()
}

const (
	defaultPollInterval  = 100 * time.Millisecond
	defaultRetryInterval = 2 * time.Second
)

// Poller runs one hardware interface: it retries the connection while
// the reader is absent, polls for tag presence, gates new tags through
// the shared presence tracker and hands full reads to the sink.
type Poller struct {
	transport Transport
	iface     presence.Interface
	tracker   *presence.Tracker
	sink      Sink
	onState   func(name string, up bool)

	pollInterval  time.Duration
	retryInterval time.Duration

	connected    bool
	outageLogged bool
	log          *log.Entry
}

// NewPoller creates a poller owning the given transport.
func NewPoller(t Transport, tracker *presence.Tracker, sink Sink) *Poller {
	return &Poller{
		transport:     t,
		iface:         presence.Interface(t.Name()),
		tracker:       tracker,
		sink:          sink,
		pollInterval:  defaultPollInterval,
		retryInterval: defaultRetryInterval,
		log:           log.WithField("reader", t.Name()),
	}
}

// Interface returns the presence interface id this poller reports as.
func (p *Poller) Interface() presence.Interface {
	return p.iface
}

// SetStateHook installs a callback invoked when the reader connects or
// is lost. Must be called before Run.
func (p *Poller) SetStateHook(hook func(name string, up bool)) {
	p.onState = hook
}

// Run polls until ctx is cancelled. It never returns an error: reader
// outages are retried indefinitely.
func (p *Poller) Run(ctx context.Context) {
	defer func() {
		if p.connected {
			_ = p.transport.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !p.connected {
			if err := p.transport.Connect(); err != nil {
				if !p.outageLogged {
					p.log.Infof("Reader unavailable, waiting for device: %v", err)
					p.outageLogged = true
				}
				if !sleepCtx(ctx, p.retryInterval) {
					return
				}
				continue
			}
			p.connected = true
			p.outageLogged = false
			p.log.Info("Reader connected")
			if p.onState != nil {
				p.onState(p.transport.Name(), true)
			}
		}

		p.cycle()

		if !sleepCtx(ctx, p.pollInterval) {
			return
		}
	}
}

// cycle is one poll iteration: presence query, tracker update, full
// read on a new card, removal check. The tracker lock is never held
// across any of the hardware calls here.
func (p *Poller) cycle() {
	uid, present, err := p.transport.Poll()
	if err != nil {
		p.dropTransport(err)
		p.checkRemoval()
		return
	}

	if !present {
		p.tracker.ReportUnseen(p.iface)
		p.checkRemoval()
		return
	}

	if p.tracker.ReportSeen(p.iface, uid) == presence.NewCard {
		p.log.Infof("Tag detected. UID: %s", uid)
		raw, err := p.transport.ReadTag()
		if err != nil {
			p.dropTransport(err)
		} else {
			p.sink.Process(raw)
		}
	}

	p.checkRemoval()
}

func (p *Poller) checkRemoval() {
	if p.tracker.EvaluateRemoval() == presence.Removed {
		p.log.Info("Tag removed")
		p.sink.SendRemoval()
	}
}

// dropTransport tears down a broken connection. A dead interface no
// longer sees anything, so its health flag goes false with it.
func (p *Poller) dropTransport(err error) {
	p.log.Warnf("Reader error: %v", err)
	_ = p.transport.Close()
	p.connected = false
	p.tracker.ReportUnseen(p.iface)
	if p.onState != nil {
		p.onState(p.transport.Name(), false)
	}
}

// sleepCtx sleeps for d or until ctx is cancelled; it reports whether
// the caller should keep running.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
