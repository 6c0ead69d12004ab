package dockerprovider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateBridgePortsReturnsDistinctPortsInRange(t *testing.T) {
	p := &Provider{cfg: Config{
		PortRangeLow:   40000,
		PortRangeHigh:  40050,
		PortAllocTries: 50,
	}}

	ports, err := p.allocateBridgePorts()
	require.NoError(t, err)
	assert.NotEqual(t, ports.embeddingProxy, ports.http)
	assert.GreaterOrEqual(t, ports.embeddingProxy, 40000)
	assert.LessOrEqual(t, ports.embeddingProxy, 40050)
	assert.GreaterOrEqual(t, ports.http, 40000)
	assert.LessOrEqual(t, ports.http, 40050)
}

func TestAllocateOnePortExcludesGivenPort(t *testing.T) {
	p := &Provider{cfg: Config{
		PortRangeLow:   40100,
		PortRangeHigh:  40110,
		PortAllocTries: 50,
	}}

	first, err := p.allocateOnePort(nil)
	require.NoError(t, err)

	second, err := p.allocateOnePort(&first)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestPortSeedSpreadsDeterministically(t *testing.T) {
	assert.Equal(t, 0, portSeed(0))
	assert.Equal(t, 7919, portSeed(1))
	assert.Equal(t, portSeed(2), portSeed(2))
}
