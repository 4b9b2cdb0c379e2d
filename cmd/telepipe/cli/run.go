/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/signalpath/telepipe/cmn/nlog"
	"github.com/signalpath/telepipe/config"
	"github.com/signalpath/telepipe/dispatcher"
	"github.com/signalpath/telepipe/fieldmap"
	"github.com/signalpath/telepipe/memsys"
	"github.com/signalpath/telepipe/registry"
	"github.com/signalpath/telepipe/router"
	"github.com/signalpath/telepipe/source"
	"github.com/signalpath/telepipe/xstats"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the dispatcher, router, and metrics/debug HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline()
		},
	}
}

func runPipeline() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.LogDir != "" {
		nlog.SetLogDirRole(cfg.LogDir, "telepipe")
	}

	reg := registry.New()
	_ = fieldmap.NewExtractor() // bound by structure-declaration loading, left to the caller's integration

	rcfg := router.DefaultConfig()
	rcfg.QueueSize = cfg.Router.QueueSize
	rcfg.WorkerThreads = cfg.Router.WorkerThreads
	rcfg.BatchSize = cfg.Router.BatchSize
	rcfg.MaxLatencyMs = int64(cfg.Router.MaxLatencyMs)
	rcfg.MaintainOrder = cfg.Router.MaintainOrder
	rtr := router.New(rcfg, reg)

	dcfg := dispatcher.DefaultConfig()
	dcfg.BackPressureEnabled = cfg.Dispatcher.BackPressureEnabled
	dcfg.BackPressureThreshold = cfg.Dispatcher.BackPressureThreshold
	dcfg.MaxSources = cfg.Dispatcher.MaxSources
	disp := dispatcher.New(dcfg, reg, rtr)

	mm := memsys.New("telepipe", memsys.DefaultClasses, memsys.DefaultSlotsPerClass)
	if err := registerSources(disp, cfg, mm); err != nil {
		return fmt.Errorf("register sources: %w", err)
	}

	stats := xstats.NewRegistry(
		xstats.WithWindow(cfg.Statistics.WindowSize, int64(cfg.Statistics.TimeWindowMs), xstats.DefaultPercentiles),
		xstats.WithUpdateInterval(cfg.UpdateInterval()),
	)
	stats.Start()
	defer stats.Stop()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(xstats.NewCollector(stats, "telepipe"))

	serveDebugHTTP(cfg.Metrics.ListenAddr, promReg)

	if err := disp.Start(); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}
	nlog.Infoln("telepipe running; press Ctrl+C to stop")

	// Runs until the process is signaled; graceful shutdown is the
	// caller's (systemd/k8s) responsibility.
	select {}
}

// registerSources builds and registers one source adapter per configured
// listener. A source that fails to register (duplicate name, MaxSources
// reached) aborts startup; actual transport errors surface later, per
// packet, on the source's own Errors() stream instead.
func registerSources(disp *dispatcher.Dispatcher, cfg config.Config, mm *memsys.MMSA) error {
	for _, u := range cfg.Sources.UDP {
		if err := disp.RegisterSource(source.NewUDPSource(u.Name, u.Addr, mm)); err != nil {
			return err
		}
	}
	for _, t := range cfg.Sources.TCP {
		if err := disp.RegisterSource(source.NewTCPSource(t.Name, t.Addr, mm)); err != nil {
			return err
		}
	}
	return nil
}

func serveDebugHTTP(addr string, promReg *prometheus.Registry) *http.Server {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nlog.Errorf("debug http server: %v", err)
		}
	}()
	return srv
}
