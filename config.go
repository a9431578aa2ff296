package main

import (
	"github.com/SideswipeeZ/ygo-nfc-card-server/command"
	"github.com/SideswipeeZ/ygo-nfc-card-server/mqtt"
	"github.com/SideswipeeZ/ygo-nfc-card-server/pipeline"
	"github.com/SideswipeeZ/ygo-nfc-card-server/reader"
)

// Config is the main configuration structure for the card server.
type Config struct {
	// MQTT status broker settings (optional)
	MQTT mqtt.Config `yaml:"mqtt"`

	// Reader interfaces to poll
	Readers []reader.Config `yaml:"readers"`

	// Forward socket to the companion display app
	Forward ForwardConfig `yaml:"forward"`

	// Command channel for out-of-band tag injection
	Command CommandConfig `yaml:"command"`

	// General settings
	ClientID string `yaml:"client_id"`
	Database string `yaml:"database"`
}

// ForwardConfig holds the companion app endpoint.
type ForwardConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CommandConfig holds the inbound command channel settings.
type CommandConfig struct {
	Port int `yaml:"port"`
}

// applyDefaults fills in everything the config file may omit.
func (c *Config) applyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "card-server"
	}
	if c.Forward.Host == "" {
		c.Forward.Host = "localhost"
	}
	if c.Forward.Port == 0 {
		c.Forward.Port = pipeline.DefaultForwardPort
	}
	if c.Command.Port == 0 {
		c.Command.Port = command.DefaultPort
	}
	if len(c.Readers) == 0 {
		c.Readers = []reader.Config{
			{Type: "serial", Device: "/dev/ttyUSB0"},
			{Type: "pcsc"},
		}
	}
}
