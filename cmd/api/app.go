package main

import (
	"database/sql"
	"log"

	appflowgraph "sector-flow/internal/application/flowgraph"
	"sector-flow/internal/application/schedule"
	appstrength "sector-flow/internal/application/strength"
	"sector-flow/internal/domain/taxonomy"
	"sector-flow/internal/infra/memory"
	"sector-flow/internal/infrastructure/config"
	"sector-flow/internal/infrastructure/external/tushare"
	"sector-flow/internal/infrastructure/notify"
	"sector-flow/internal/infrastructure/persistence/postgres"
	httpapi "sector-flow/internal/interface/http"
)

// app 聚合啟動後常駐的元件。
type app struct {
	server *httpapi.Server
	job    *schedule.DailyJob
}

// buildApp 組裝行情來源、儲存層與用例。pool 為 nil 時全部落在記憶體儲存。
func buildApp(cfg config.Config, pool *sql.DB) *app {
	client := tushare.NewClient(cfg.Provider)
	provider := tushare.NewProvider(client, cfg.Provider.CacheTTL, cfg.Provider.ConceptLimit)

	var (
		store   appstrength.ResultStore
		sectors httpapi.SectorStore
		custom  appstrength.GroupingSource
	)
	if pool != nil {
		sectorRepo := postgres.NewSectorRepo(pool)
		store = postgres.NewStrengthRepo(pool)
		sectors = sectorRepo
		custom = sectorRepo
	} else {
		mem := memory.NewStore()
		store = mem
		sectors = mem
		custom = mem
	}

	resolver := appstrength.NewResolver(
		tushare.NewIndustrySource(provider),
		tushare.NewConceptSource(provider),
		custom,
	)
	compute := appstrength.NewComputeUseCase(resolver, provider, store, appstrength.Options{
		Weights:    cfg.Compute.Weights,
		Workers:    cfg.Compute.Workers,
		Budget:     cfg.Compute.Budget,
		TopStocks:  cfg.Compute.TopStocks,
		MaxMembers: cfg.Compute.MaxMembers,
	})
	graph := appflowgraph.NewBuildUseCase(compute, cfg.Compute.TopN)

	server := httpapi.NewServer(cfg, httpapi.Deps{
		Compute: compute,
		Graph:   graph,
		Sectors: sectors,
		DB:      pool,
	})

	var notifier schedule.Notifier
	if cfg.Notifier.Telegram.Enabled {
		notifier = notify.NewTelegramClient(cfg.Notifier.Telegram.Token, cfg.Notifier.Telegram.ChatID, "板塊強度")
	}
	jobMode, err := taxonomy.Parse(cfg.Job.Mode)
	if err != nil {
		log.Printf("warning: invalid job mode %q, falling back to industry", cfg.Job.Mode)
		jobMode = taxonomy.Industry
	}
	job := schedule.NewDailyJob(compute, notifier, jobMode, cfg.Notifier.Telegram.TopN)

	return &app{server: server, job: job}
}
