package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	appflowgraph "sector-flow/internal/application/flowgraph"
	appstrength "sector-flow/internal/application/strength"
	"sector-flow/internal/domain/taxonomy"
	"sector-flow/internal/infra/memory"
	"sector-flow/internal/infrastructure/config"
	"sector-flow/internal/infrastructure/persistence/postgres"
)

// SectorStore 定義自訂板塊的讀寫接口，Postgres 與記憶體實作皆適用。
type SectorStore interface {
	CreateSector(ctx context.Context, sector taxonomy.CustomSector) (string, error)
	UpdateSector(ctx context.Context, sector taxonomy.CustomSector) error
	DeleteSector(ctx context.Context, id string) error
	GetSector(ctx context.Context, id string) (taxonomy.CustomSector, error)
	ListSectors(ctx context.Context) ([]taxonomy.CustomSector, error)
}

// Server 封裝 HTTP 路由與依賴。
type Server struct {
	mux       *http.ServeMux
	computeUC *appstrength.ComputeUseCase
	graphUC   *appflowgraph.BuildUseCase
	sectors   SectorStore
	db        *sql.DB
	apiKey    string
	limiter   *rate.Limiter
}

// Deps 為伺服器依賴的用例與來源。
type Deps struct {
	Compute *appstrength.ComputeUseCase
	Graph   *appflowgraph.BuildUseCase
	Sectors SectorStore
	DB      *sql.DB
}

// NewServer 建立 API 伺服器。未設定資料庫時，自訂板塊落在記憶體儲存。
func NewServer(cfg config.Config, deps Deps) *Server {
	sectors := deps.Sectors
	if sectors == nil {
		if deps.DB != nil {
			sectors = postgres.NewSectorRepo(deps.DB)
		} else {
			sectors = memory.NewStore()
		}
	}

	perMin := cfg.HTTP.RatePerMinute
	if perMin <= 0 {
		perMin = 100
	}

	s := &Server{
		mux:       http.NewServeMux(),
		computeUC: deps.Compute,
		graphUC:   deps.Graph,
		sectors:   sectors,
		db:        deps.DB,
		apiKey:    cfg.HTTP.APIKey,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
	}
	s.registerRoutes()
	return s
}

// Handler 回傳路由處理器，外層依序套上日誌與限流。
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.rateLimit(s.mux))
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/ping", s.handlePing)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.Handle("GET /api/sectors/strength", s.requireKey(http.HandlerFunc(s.handleStrength)))
	s.mux.Handle("GET /api/sectors/flowgraph", s.requireKey(http.HandlerFunc(s.handleFlowGraph)))
	s.mux.Handle("GET /api/sectors/{id}/history", s.requireKey(http.HandlerFunc(s.handleHistory)))
	s.mux.Handle("POST /api/sectors/{id}/invalidate", s.requireKey(http.HandlerFunc(s.handleInvalidate)))

	s.mux.Handle("GET /api/sectors/custom", s.requireKey(http.HandlerFunc(s.handleListSectors)))
	s.mux.Handle("POST /api/sectors/custom", s.requireKey(http.HandlerFunc(s.handleCreateSector)))
	s.mux.Handle("GET /api/sectors/custom/{id}", s.requireKey(http.HandlerFunc(s.handleGetSector)))
	s.mux.Handle("PUT /api/sectors/custom/{id}", s.requireKey(http.HandlerFunc(s.handleUpdateSector)))
	s.mux.Handle("DELETE /api/sectors/custom/{id}", s.requireKey(http.HandlerFunc(s.handleDeleteSector)))
}
