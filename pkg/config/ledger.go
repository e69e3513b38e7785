package config

import (
	"fmt"
	"strings"
	"time"
)

const defaultLowStockThreshold = 5

type LedgerConfig struct {
	LowStockThreshold int32         `koanf:"lowstockthreshold"`
	StrictRemoval     bool          `koanf:"strictremoval"`
	IdempotencyTTL    time.Duration `koanf:"idempotencyttl"`
}

// String returns a string representation of the ledger configuration.
func (c *LedgerConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Ledger ---\n")
	b.WriteString(fmt.Sprintf("  lowstockthreshold: %d\n", c.LowStockThreshold))
	b.WriteString(fmt.Sprintf("  strictremoval: %t\n", c.StrictRemoval))
	b.WriteString(fmt.Sprintf("  idempotencyttl: %s\n", c.IdempotencyTTL))
	return b.String()
}

func (c *LedgerConfig) Validate() error {
	if c.LowStockThreshold == 0 {
		c.LowStockThreshold = defaultLowStockThreshold
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("ledger.lowstockthreshold must not be negative")
	}
	if c.IdempotencyTTL < 0 {
		return fmt.Errorf("ledger.idempotencyttl must not be negative")
	}
	return nil
}
