// Package cmd implements the starecho command line.
package cmd

import (
	"github.com/spf13/cobra"

	"starEcho/pkg/config"
)

var (
	// Global flags
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "starecho",
	Short: "starecho - answers ARP, ICMP echo and UDP echo on a raw Ethernet device",
	Long: `starecho owns one IPv4 address on a raw Ethernet device (TAP, AF_PACKET or a
pcap replay). It learns peers from the traffic it sees and answers ARP requests
for its address, ICMP echo requests and UDP datagrams by rewriting the received
frame in place.`,
	SilenceUsage: true,
}

// Execute runs the root command. It is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig reads the config file and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}
