package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGeometry(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "disk.img", cfg.DiskImageName)
	assert.Equal(t, uint32(1024), cfg.DiskNumBlocks)
	assert.Equal(t, uint32(0x1000), cfg.DiskBlockSize)
	assert.Equal(t, uint32(896), cfg.SwapStart())
	assert.Equal(t, uint32(889), cfg.MaxDataBlocks())
	assert.Equal(t, uint32(8), cfg.NumFrames)
	assert.Equal(t, uint32(64), cfg.VirtualPages)
}

func TestValidateRejectsBadGeometry(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"swap swallows disk", func(c *Config) { c.SwapReservedBlocks = c.DiskNumBlocks }},
		{"page size mismatch", func(c *Config) { c.PageSize = 512 }},
		{"no frames", func(c *Config) { c.NumFrames = 0 }},
		{"no virtual pages", func(c *Config) { c.VirtualPages = 0 }},
		{"fs region too small", func(c *Config) { c.SwapReservedBlocks = c.DiskNumBlocks - 5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
