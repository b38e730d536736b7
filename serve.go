package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robhughadams/FakeSMTP/dns"
	"github.com/robhughadams/FakeSMTP/fakesmtp-"
	"github.com/robhughadams/FakeSMTP/metrics"
	"github.com/robhughadams/FakeSMTP/mlog"
	"github.com/robhughadams/FakeSMTP/sesslog"
	"github.com/robhughadams/FakeSMTP/smtpserver"
	"github.com/robhughadams/FakeSMTP/store"
)

// cmdServe runs the receiver in the foreground until SIGINT/SIGTERM, and
// returns its exit status: 0 clean, 1 bind failure, 2 accept failure.
func cmdServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "fakesmtp.conf", "path of configuration file; a missing file runs with defaults")
	fs.Parse(args)

	log := mlog.New("serve", nil)
	cfg := fakesmtp.MustLoadConfig(log, *configPath)
	fakesmtp.SetLogLevels(cfg)

	if err := fakesmtp.SessionIDInitRandom(); err != nil {
		log.Fatalx("initializing session ids", err)
	}

	sl, err := sesslog.Open(cfg.LogPath)
	if err != nil {
		log.Fatalx("opening session log", err)
	}
	defer sl.Close()

	var st store.Store
	if cfg.StoreData {
		dirStore, err := store.Open(fakesmtp.Shutdown, log, cfg.StorePath)
		if err != nil {
			log.Fatalx("opening message store", err)
		}
		defer dirStore.Close()
		st = dirStore
	}

	if cfg.MetricsAddress != "" {
		metrics.Serve(cfg.MetricsAddress, log)
	}

	resolver := dns.StrictResolver{Log: log.Logger}
	srv := smtpserver.New(cfg, resolver, st, sl)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigc
		log.Print("shutting down", slog.Any("signal", sig))
		fakesmtp.ShutdownCancel()
		srv.Stop()
	}()

	log.Print("starting", slog.String("version", fakesmtp.Version), slog.String("address", cfg.Addr()))
	return srv.Start()
}
