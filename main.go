package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const version = "0.1.0"

// defaultDatabase is picked up from the working directory when no
// database is configured.
const defaultDatabase = "cards.db"

func main() {
	cfgfile := flag.String("cfg", "cardserver.yaml", "Config file")
	dbpath := flag.String("db", "", "Path to the sqlite card database")
	address := flag.String("address", "", "Companion app host (default: localhost)")
	port := flag.Int("port", 0, "Companion app port (default: 41112)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	fmt.Printf("Card Identify Server v%s\n", version)

	cfg, err := loadConfig(*cfgfile)
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	// Flags override the config file.
	if *dbpath != "" {
		cfg.Database = *dbpath
	}
	if *address != "" {
		cfg.Forward.Host = *address
	}
	if *port != 0 {
		cfg.Forward.Port = *port
	}
	cfg.applyDefaults()

	if cfg.Database == "" {
		cwdDB := filepath.Join(".", defaultDatabase)
		if _, err := os.Stat(cwdDB); err != nil {
			log.Fatalf("No database configured and %s not found in the current directory", defaultDatabase)
		}
		log.Infof("Using default database: %s", cwdDB)
		cfg.Database = cwdDB
	}
	if _, err := os.Stat(cfg.Database); err != nil {
		log.Fatalf("Card database not found at %q", cfg.Database)
	}

	app, err := newApp(cfg)
	if err != nil {
		log.Fatalf("Init: %v", err)
	}

	app.Start()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	app.Stop()
	fmt.Println("Shutdown complete")
}

// loadConfig reads the yaml config file. A missing file is not an
// error: everything has a default or a flag.
func loadConfig(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &cfg, nil
}
