package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/probelabs/visor/internal/analyzer"
	"github.com/probelabs/visor/internal/config"
	"github.com/probelabs/visor/internal/crypto"
	"github.com/probelabs/visor/internal/ledger"
	"github.com/probelabs/visor/internal/logging"
	"github.com/probelabs/visor/internal/rpc"
	"github.com/probelabs/visor/internal/wsrpc"
)

func main() {
	configPath := flag.String("config", "analyzer.yaml", "path to the analyzer config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("config_load_failed", logging.Fields{Component: "main", Error: err.Error()})
		os.Exit(1)
	}

	var sink rpc.Sink
	var worker *ledger.Worker
	if cfg.Ledger.Enabled {
		db, err := ledger.OpenDB(cfg.Ledger.Path)
		if err != nil {
			logging.Error("ledger_open_failed", logging.Fields{Component: "main", Error: err.Error()})
			os.Exit(1)
		}
		signer, err := crypto.NewSigner(cfg.Ledger.KeyPath)
		if err != nil {
			logging.Error("signer_init_failed", logging.Fields{Component: "main", Error: err.Error()})
			os.Exit(1)
		}
		worker, err = ledger.NewWorker(db, signer, cfg.Ledger.BufferSize)
		if err != nil {
			logging.Error("worker_init_failed", logging.Fields{Component: "main", Error: err.Error()})
			os.Exit(1)
		}
		if err := worker.Start(); err != nil {
			logging.Error("worker_start_failed", logging.Fields{Component: "main", Error: err.Error()})
			os.Exit(1)
		}
		sink = ledger.NewRecorder(worker)
	}

	srv := rpc.NewServer(analyzer.New(cfg.Analysis.Level).Registry(), sink)

	if cfg.Listen.WSAddr != "" {
		ws := wsrpc.NewServer(srv, worker)
		go func() {
			logging.Info("ws_listening on "+cfg.Listen.WSAddr, logging.Fields{Component: "main"})
			if err := http.ListenAndServe(cfg.Listen.WSAddr, ws.Routes()); err != nil {
				logging.Error("ws_listen_failed", logging.Fields{Component: "main", Error: err.Error()})
			}
		}()
	}

	logging.Info("analyzer_started level="+cfg.Analysis.Level, logging.Fields{Component: "main"})
	serveErr := srv.ServeStream(os.Stdin, os.Stdout)

	if worker != nil {
		if err := worker.Shutdown(5 * time.Second); err != nil {
			logging.Warn("worker_shutdown_failed", logging.Fields{Component: "main", Error: err.Error()})
		}
	}

	if serveErr != nil {
		logging.Error("stream_failed", logging.Fields{Component: "main", Error: serveErr.Error()})
		os.Exit(1)
	}
	logging.Info("analyzer_stopped", logging.Fields{Component: "main"})
}
