package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// SnapshotConfig holds configuration for the snapshot command.
type SnapshotConfig struct {
	Config
	Out   string
	PGDSN string
}

// LoadSnapshot merges config file, environment variables, and flags into SnapshotConfig.
func LoadSnapshot(cfgFile string, flags *pflag.FlagSet) (SnapshotConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return SnapshotConfig{}, err
	}

	cfg := SnapshotConfig{
		Config: fromViper(v),
		Out:    v.GetString("out"),
		PGDSN:  v.GetString("pg-dsn"),
	}

	return cfg, nil
}

// Validate checks the shared settings and that at least one sink is configured.
func (c SnapshotConfig) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if c.Out == "" && c.PGDSN == "" {
		return fmt.Errorf("an output path or pg dsn is required")
	}
	return nil
}
