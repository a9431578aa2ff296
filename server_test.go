package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SideswipeeZ/ygo-nfc-card-server/reader"
)

func TestBuildTransports(t *testing.T) {
	transports, err := buildTransports([]reader.Config{
		{Type: "serial", Device: "/dev/ttyUSB0"},
		{Type: "pcsc"},
	})
	require.NoError(t, err)
	require.Len(t, transports, 2)
	assert.Equal(t, "serial", transports[0].Name())
	assert.Equal(t, "pcsc", transports[1].Name())
}

func TestBuildTransportsRejectsDuplicates(t *testing.T) {
	// The presence tracker keys on the interface name; two readers
	// behind one key would corrupt the removal logic, so wiring fails.
	_, err := buildTransports([]reader.Config{
		{Type: "serial", Device: "/dev/ttyUSB0"},
		{Type: "serial", Device: "/dev/ttyUSB1"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate reader type")
}

func TestBuildTransportsUnknownType(t *testing.T) {
	_, err := buildTransports([]reader.Config{{Type: "telepathy"}})
	require.Error(t, err)
}
