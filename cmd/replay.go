package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"starEcho/pkg/config"
	logsetup "starEcho/pkg/log"
	"starEcho/pkg/pcapnic"
)

var (
	replayIn  string
	replayOut string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Answer every frame of a capture file and record the replies",
	Long: `
Replay a pcap capture through the responder in one drain pass and write the
transmitted frames to another capture.

Examples:
  starecho replay --in requests.pcap --out replies.pcap
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Device.Type = config.DevicePcap
		if replayIn != "" {
			cfg.Device.PcapIn = replayIn
		}
		if replayOut != "" {
			cfg.Device.PcapOut = replayOut
		}
		if cfg.Device.PcapIn == "" {
			return fmt.Errorf("no input capture, use --in or device.pcap_in")
		}

		closer, err := logsetup.Setup(cfg.Log)
		if err != nil {
			return err
		}
		defer closer.Close()

		dev, err := pcapnic.Open(cfg.Device.PcapIn, cfg.Device.PcapOut, cfg.Device.MaxFrames)
		if err != nil {
			return err
		}

		s, err := newStack(cfg, dev)
		if err != nil {
			_ = dev.Close()
			return err
		}
		defer s.Close()

		stats := s.drainer.Drain()
		if err := dev.Close(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "received %d, transmitted %d, dropped %d, receive errors %d, transmit errors %d\n",
			stats.Received, stats.Transmitted, stats.Dropped, stats.ReceiveErrors, stats.TransmitErrors)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayIn, "in", "", "capture to replay (overrides device.pcap_in)")
	replayCmd.Flags().StringVar(&replayOut, "out", "", "capture to write replies to (overrides device.pcap_out)")
}
