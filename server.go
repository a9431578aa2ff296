package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/SideswipeeZ/ygo-nfc-card-server/carddb"
	"github.com/SideswipeeZ/ygo-nfc-card-server/command"
	"github.com/SideswipeeZ/ygo-nfc-card-server/mqtt"
	"github.com/SideswipeeZ/ygo-nfc-card-server/pipeline"
	"github.com/SideswipeeZ/ygo-nfc-card-server/presence"
	"github.com/SideswipeeZ/ygo-nfc-card-server/reader"
)

const pingInterval = 120 * time.Second

// App holds the application state and dependencies.
type App struct {
	cfg      *Config
	store    *carddb.Store
	pipeline *pipeline.Pipeline
	tracker  *presence.Tracker
	pollers  []*reader.Poller
	listener *command.Listener
	mqtt     *mqtt.Client
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// newApp wires every component from the configuration. Hardware is not
// touched here; the pollers bind their readers once started.
func newApp(cfg *Config) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	store, err := carddb.Open(cfg.Database)
	if err != nil {
		cancel()
		return nil, err
	}
	app.store = store

	fwd := pipeline.NewForwarder(cfg.Forward.Host, cfg.Forward.Port)
	app.pipeline = pipeline.New(store, fwd)

	app.mqtt, err = mqtt.New(cfg.MQTT, cfg.ClientID, mqtt.Handlers{
		OnConnect:    func() { log.Debug("Status broker ready") },
		OnDisconnect: func() { log.Debug("Status broker lost") },
	})
	if err != nil {
		store.Close()
		cancel()
		return nil, err
	}
	app.pipeline.SetForwardHook(app.mqtt.PublishCard)

	transports, err := buildTransports(cfg.Readers)
	if err != nil {
		store.Close()
		cancel()
		return nil, err
	}
	interfaces := make([]presence.Interface, 0, len(transports))
	for _, t := range transports {
		interfaces = append(interfaces, presence.Interface(t.Name()))
	}
	app.tracker = presence.NewTracker(interfaces...)

	for _, t := range transports {
		p := reader.NewPoller(t, app.tracker, app.pipeline)
		p.SetStateHook(app.mqtt.PublishReaderState)
		app.pollers = append(app.pollers, p)
	}

	app.listener = command.NewListener(cfg.Command.Port, app.pipeline)

	return app, nil
}

// buildTransports creates one transport per configured reader. Every
// interface must have a distinct name: the presence tracker keys its
// health map by name, and two readers sharing a key would let a
// removal fire while the other physical reader still sees the card.
func buildTransports(cfgs []reader.Config) ([]reader.Transport, error) {
	seen := make(map[string]bool, len(cfgs))
	transports := make([]reader.Transport, 0, len(cfgs))
	for _, rc := range cfgs {
		t, err := reader.New(rc)
		if err != nil {
			return nil, err
		}
		if seen[t.Name()] {
			return nil, fmt.Errorf("duplicate reader type %q", rc.Type)
		}
		seen[t.Name()] = true
		transports = append(transports, t)
	}
	return transports, nil
}

// Start launches the worker goroutines: one per reader interface, the
// command listener and the status pinger.
func (app *App) Start() {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		if err := app.mqtt.Connect(app.ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warnf("MQTT connect: %v", err)
		}
	}()

	for _, p := range app.pollers {
		app.wg.Add(1)
		go func(p *reader.Poller) {
			defer app.wg.Done()
			p.Run(app.ctx)
		}(p)
	}

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		if err := app.listener.Run(app.ctx); err != nil {
			log.Errorf("Command listener: %v", err)
		}
	}()

	app.wg.Add(1)
	go app.pingSender()

	log.Infof("Loaded DB path: %s", app.cfg.Database)
	log.Infof("Transmitting card data on %s:%d", app.cfg.Forward.Host, app.cfg.Forward.Port)
}

// Stop cancels the workers, waits for them and releases everything.
func (app *App) Stop() {
	app.cancel()
	app.wg.Wait()

	app.mqtt.Disconnect()
	if err := app.store.Close(); err != nil {
		log.Warnf("Close card db: %v", err)
	}
}

func (app *App) pingSender() {
	defer app.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			app.mqtt.Ping()
		}
	}
}
