package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grimm.is/shunt/internal/brand"
	"grimm.is/shunt/internal/config"
	"grimm.is/shunt/internal/divert"
	"grimm.is/shunt/internal/logging"
	"grimm.is/shunt/internal/metrics"
	"grimm.is/shunt/internal/netutil"
)

// RunDaemon starts the diversion daemon in the foreground: one queue binding
// per configured chain, optional nonlocal redirect rules and local DNS
// capture, then blocks until SIGINT or SIGTERM and tears everything down in
// reverse order.
func RunDaemon(configFile string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.SetDefault(logging.New(logging.Config{Level: level, Output: os.Stderr}))
	log := logging.WithComponent("daemon")

	if cfg.Metrics != nil && cfg.Metrics.Listen != "" {
		metrics.Get()
		go serveMetrics(cfg.Metrics.Listen, log)
	}

	runner := &divert.RealCommandRunner{}

	chains := cfg.Divert.Chains
	qnos := divert.NewAllocator().NextFree(len(chains))
	if len(qnos) < len(chains) {
		return fmt.Errorf("need %d free queue numbers, only %d available", len(chains), len(qnos))
	}

	group := divert.NewGroup()
	for i, chain := range chains {
		group.Add(divert.NewBinding(runner, divert.NewConsumer(), qnos[i], chain, cfg.Divert.Table, logPacket))
	}

	if err := group.StartAll(cfg.PollTimeout()); err != nil {
		return fmt.Errorf("start queue bindings: %w", err)
	}

	var redirects []*divert.RuleTemplate
	if len(cfg.Divert.RedirectInterfaces) > 0 {
		redirects, err = divert.RedirectNonlocal(runner, cfg.Divert.RedirectInterfaces)
		if err != nil {
			// Undo the rules that did go in, then the bindings.
			divert.RemoveRules(redirects)
			stopErr := group.StopAll()
			return errors.Join(fmt.Errorf("install redirect rules: %w", err), stopErr)
		}
	}

	var resolv *netutil.ResolvConf
	if cfg.Divert.LocalDNS {
		resolv = netutil.NewResolvConf("")
		if err := resolv.PointToLocalhost(); err != nil {
			log.Warn("local DNS capture disabled", "error", err)
			resolv = nil
		}
	}

	log.Info("diversion running",
		"table", cfg.Divert.Table,
		"chains", len(chains),
		"redirect_rules", len(redirects),
		"poll_timeout", cfg.PollTimeout())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	s := <-sig
	log.Info("shutting down", "signal", s.String())

	var errs []error
	if failed := divert.RemoveRules(redirects); len(failed) > 0 {
		errs = append(errs, fmt.Errorf("%d redirect rules left behind", len(failed)))
	}
	if err := group.StopAll(); err != nil {
		errs = append(errs, err)
	}
	if resolv != nil {
		if err := resolv.Restore(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// logPacket is the default diversion callback: describe, count, accept.
func logPacket(pkt divert.Packet) divert.Verdict {
	logging.WithComponent("divert").Debug("diverted packet",
		"id", pkt.ID, "summary", netutil.DescribePacket(pkt.Payload))
	return divert.Accept
}

// loadConfig loads the named file, or the default file if it exists, or the
// built-in defaults when no file is present at all.
func loadConfig(configFile string) (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}

	defaultPath := filepath.Join(brand.DefaultConfigDir, brand.ConfigFileName)
	if _, err := os.Stat(defaultPath); err == nil {
		return config.Load(defaultPath)
	}
	return config.Default(), nil
}

func serveMetrics(listen string, log *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("metrics endpoint listening", "addr", listen)

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Error("metrics endpoint failed", "addr", listen, "error", err)
	}
}
