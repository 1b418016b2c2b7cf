// File: internal/config/config.go
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/tinixos/tinix/internal/types"
)

// Config holds the simulator geometry. Defaults reproduce the canonical
// 4 MiB disk with a 128-block swap region and 8 page frames; a tinix.yaml
// in the working directory or TINIX_* environment variables override them.
type Config struct {
	DiskImageName      string `mapstructure:"disk_image_name"`
	DiskNumBlocks      uint32 `mapstructure:"disk_num_blocks"`
	DiskBlockSize      uint32 `mapstructure:"disk_block_size"`
	SwapReservedBlocks uint32 `mapstructure:"swap_reserved_blocks"`
	NumFrames          uint32 `mapstructure:"num_frames"`
	PageSize           uint32 `mapstructure:"page_size"`
	VirtualPages       uint32 `mapstructure:"virtual_pages"`
}

// Load reads the configuration with viper. A missing config file is fine;
// defaults apply.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("tinix")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("disk_image_name", "disk.img")
	v.SetDefault("disk_num_blocks", 1024)
	v.SetDefault("disk_block_size", 0x1000)
	v.SetDefault("swap_reserved_blocks", 128)
	v.SetDefault("num_frames", 8)
	v.SetDefault("page_size", 0x1000)
	v.SetDefault("virtual_pages", 64)

	v.SetEnvPrefix("TINIX")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the canonical geometry without consulting viper.
// Tests use it to avoid picking up a stray tinix.yaml.
func Default() *Config {
	return &Config{
		DiskImageName:      "disk.img",
		DiskNumBlocks:      1024,
		DiskBlockSize:      0x1000,
		SwapReservedBlocks: 128,
		NumFrames:          8,
		PageSize:           0x1000,
		VirtualPages:       64,
	}
}

// Validate rejects geometries the on-disk layout cannot express.
func (c *Config) Validate() error {
	if c.SwapReservedBlocks >= c.DiskNumBlocks {
		return fmt.Errorf("swap_reserved_blocks %d must be below disk_num_blocks %d",
			c.SwapReservedBlocks, c.DiskNumBlocks)
	}
	if c.DiskBlockSize != c.PageSize {
		return fmt.Errorf("disk_block_size %d must equal page_size %d (one page per swap slot)",
			c.DiskBlockSize, c.PageSize)
	}
	if c.SwapStart() <= types.DataBlocksStart {
		return fmt.Errorf("FS region too small: swap starts at block %d", c.SwapStart())
	}
	if c.NumFrames == 0 {
		return fmt.Errorf("num_frames must be positive")
	}
	if c.VirtualPages == 0 {
		return fmt.Errorf("virtual_pages must be positive")
	}
	return nil
}

// SwapStart returns the first disk block of the swap region. Blocks below
// it belong to the file system.
func (c *Config) SwapStart() uint32 {
	return c.DiskNumBlocks - c.SwapReservedBlocks
}

// MaxDataBlocks returns the number of allocatable FS data blocks.
func (c *Config) MaxDataBlocks() uint32 {
	return c.SwapStart() - types.DataBlocksStart
}
