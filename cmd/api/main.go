package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"sector-flow/internal/infrastructure/config"
	"sector-flow/internal/infrastructure/db"
)

func main() {
	cfg, err := config.LoadFromFile("config.yaml")
	if err != nil {
		log.Fatalf("CRITICAL: load config failed: %v", err)
	}
	log.Printf("configuration loaded (HTTP_ADDR=%s)", cfg.HTTP.Addr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		log.Printf("warning: database connection failed, falling back to in-memory store: %v", err)
		pool = nil
	} else if pool == nil {
		log.Printf("no DB_DSN provided; running with in-memory store only")
	} else {
		defer pool.Close()
		log.Printf("database connected successfully")
	}

	application := buildApp(cfg, pool)

	if cfg.Job.Enabled {
		if err := application.job.Start(cfg.Job.Spec, cfg.Job.Timezone); err != nil {
			log.Fatalf("CRITICAL: start daily job failed: %v", err)
		}
		defer application.job.Stop()
	}

	addr := cfg.HTTP.Addr
	log.Printf("starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, application.server.Handler()); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
