package main

import (
	"fmt"

	"strings"

	"github.com/spf13/cobra"

	tlsconf "github.com/templar-app/templar/internal/tls"
	"github.com/templar-app/templar/internal/web/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

func init() {
	configValidateCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")
	configCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	fmt.Println("Configuration is valid")
	fmt.Printf("  Listen address: %s\n", cfg.Server.ListenAddr)
	fmt.Printf("  Backend: %s (timeout %s, retries %d)\n", cfg.Backend.BaseURL, cfg.Backend.Timeout, cfg.Backend.RetryMax)
	fmt.Printf("  Journal: %s (max %d entries)\n", cfg.Journal.Path, cfg.Journal.MaxEntries)
	fmt.Printf("  Search debounce: %s\n", cfg.UI.SearchDebounce)
	fmt.Printf("  Default sort: %s\n", cfg.UI.DefaultSort)

	if cfg.Server.TLS.Enabled {
		if cfg.Server.TLS.ACME.Enabled {
			fmt.Printf("  TLS: ACME for %s\n", strings.Join(cfg.Server.TLS.ACME.Domains, ", "))
		} else if info, err := tlsconf.Inspect(cfg.Server.TLS.CertFile); err != nil {
			fmt.Printf("  TLS: certificate unreadable: %v\n", err)
		} else {
			fmt.Printf("  TLS: %s, expires %s (%d days left)\n",
				info.Subject, info.NotAfter.Format("2006-01-02"), info.DaysLeft)
		}
	}

	return nil
}
