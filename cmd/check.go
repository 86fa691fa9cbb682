package cmd

import (
	"fmt"
	"strings"

	"grimm.is/shunt/internal/brand"
	"grimm.is/shunt/internal/config"
)

// RunCheck validates a configuration file and prints a summary of what the
// daemon would do with it.
func RunCheck(configFile string) error {
	if configFile == "" {
		return fmt.Errorf("usage: %s check <config-file>", brand.BinaryName)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	fmt.Println("Configuration valid!")
	fmt.Printf("Table: %s\n", cfg.Divert.Table)
	fmt.Printf("Chains: %s\n", strings.Join(cfg.Divert.Chains, ", "))
	fmt.Printf("Poll timeout: %s\n", cfg.PollTimeout())
	if len(cfg.Divert.RedirectInterfaces) > 0 {
		fmt.Printf("Redirect interfaces: %s\n", strings.Join(cfg.Divert.RedirectInterfaces, ", "))
	}
	fmt.Printf("Local DNS capture: %v\n", cfg.Divert.LocalDNS)
	if cfg.Metrics != nil && cfg.Metrics.Listen != "" {
		fmt.Printf("Metrics: %s\n", cfg.Metrics.Listen)
	}
	return nil
}
