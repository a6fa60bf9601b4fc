package cmd

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"starEcho/irq"
	logsetup "starEcho/pkg/log"
	"starEcho/pkg/metrics"
	"starEcho/pkg/timer"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Answer on a live device until interrupted",
	Long: `
Open the configured device and answer ARP, ICMP echo and UDP echo until SIGINT
or SIGTERM.

Examples:
  starecho run                          # tap0 with the default identity
  starecho run -c starecho.yaml         # settings from starecho.yaml
  STARECHO_DEVICE_TYPE=raw STARECHO_DEVICE_NAME=eth1 starecho run
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		closer, err := logsetup.Setup(cfg.Log)
		if err != nil {
			return err
		}
		defer closer.Close()

		dev, devCloser, err := openDevice(cfg)
		if err != nil {
			return err
		}
		defer devCloser.Close()

		s, err := newStack(cfg, dev)
		if err != nil {
			return err
		}
		defer s.Close()

		logger := log.WithField("module", "main")
		logger.Infof("answering for %s (%s) on %s %s", cfg.Identity.IP, cfg.Identity.MAC, cfg.Device.Type, cfg.Device.Name)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := metrics.NewServer(cfg.Metrics.Listen)
		srv.Start()
		defer srv.Stop(context.Background())

		meter := timer.NewSleepMeter()
		worker := irq.NewWorker(s.drainer, s.line, meter)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			meter.Report(ctx, cfg.Idle.ReportInterval, log.WithField("module", "timer"))
		}()
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()

		err = irq.Watch(ctx, dev, s.line, cfg.Drain.PollInterval)
		stop()
		wg.Wait()

		s.dumpCache(logger)
		if err != nil {
			return errors.Wrap(err, "device watch stopped")
		}
		return nil
	},
}
