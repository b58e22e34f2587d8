package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"arenagrid.ai/internal/config"
	"arenagrid.ai/internal/hostsim"
	"arenagrid.ai/internal/objects"
	"arenagrid.ai/internal/persistence/indexdb"
	"arenagrid.ai/internal/persistence/journal"
	"arenagrid.ai/internal/protocol"
	"arenagrid.ai/internal/transport/hostrpc"
)

func main() {
	os.Exit(realMain())
}

// realMain returns the exit code so the journal sinks are closed before
// os.Exit.
func realMain() int {
	var (
		configPath = flag.String("config", "", "path to arenagrid.yaml (optional)")
		addr       = flag.String("addr", "", "http listen address (overrides serve.addr)")
		scenario   = flag.String("scenario", "", "scenario yaml (overrides serve.scenario)")
		tickEvery  = flag.Duration("tick_every", 0, "advance the simulation at this interval (0 keeps it frozen)")
		journalDir = flag.String("journal", "", "journal served calls to this directory (overrides journal.dir)")
		indexPath  = flag.String("index_db", "", "sqlite call index path (overrides journal.index_db)")
		noJournal  = flag.Bool("no_journal", false, "disable call journaling even if configured")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[hostsim] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Printf("load config: %v", err)
		return 2
	}
	if v := strings.TrimSpace(*addr); v != "" {
		cfg.Serve.Addr = v
	}
	if v := strings.TrimSpace(*scenario); v != "" {
		cfg.Serve.Scenario = v
	}
	if v := strings.TrimSpace(*journalDir); v != "" {
		cfg.Journal.Dir = v
	}
	if v := strings.TrimSpace(*indexPath); v != "" {
		cfg.Journal.IndexDB = v
	}

	sc, err := hostsim.LoadScenario(cfg.Serve.Scenario)
	if err != nil {
		logger.Printf("load scenario: %v", err)
		return 2
	}
	sim, err := sc.Build()
	if err != nil {
		logger.Printf("build scenario: %v", err)
		return 2
	}
	w, h := sim.Size()
	logger.Printf("scenario %s: %dx%d tick=%d", cfg.Serve.Scenario, w, h, sim.Tick())

	var host objects.Host = sim
	var sinks []journal.Sink
	if !*noJournal && cfg.Journal.Dir != "" {
		fs := journal.NewFileSink(cfg.Journal.Dir)
		defer fs.Close()
		sinks = append(sinks, fs)
	}
	if !*noJournal && cfg.Journal.IndexDB != "" {
		idx, err := indexdb.OpenSQLite(cfg.Journal.IndexDB)
		if err != nil {
			logger.Printf("open index: %v", err)
			return 1
		}
		defer idx.Close()
		sinks = append(sinks, idx)
	}
	if len(sinks) > 0 {
		rec := journal.NewRecorder(sim, journal.MultiSink(sinks...), log.New(os.Stdout, "[journal] ", log.LstdFlags|log.Lmicroseconds))
		logger.Printf("journaling served calls, session=%s", rec.Session())
		host = rec
	}

	opts := hostrpc.ServerOptions{Name: cfg.Serve.Name, Describer: sim}
	if cfg.Serve.ValidateFrames {
		v, err := protocol.NewValidator()
		if err != nil {
			logger.Printf("schemas: %v", err)
			return 1
		}
		opts.Validator = v
	}

	ctx, cancel := signalContext()
	defer cancel()

	if *tickEvery > 0 {
		go func() {
			t := time.NewTicker(*tickEvery)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					sim.Advance()
				}
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/host", hostrpc.NewServer(host, logger, opts).Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": sim.Tick()})
	})

	srv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", cfg.Serve.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("ListenAndServe: %v", err)
		return 1
	}
	return 0
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
