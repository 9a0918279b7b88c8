package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"contract-review-backend/internal/analysis"
	"contract-review-backend/internal/llm/openai"
	"contract-review-backend/internal/reviews"
	"contract-review-backend/internal/shared/config"
	"contract-review-backend/internal/shared/server/middleware"
	"contract-review-backend/internal/shared/storage/db"
	localstore "contract-review-backend/internal/shared/storage/object/local"
)

// NewRouter constructs the Gin engine with middleware, dependencies, and
// routes registered. Fails when the LLM backend is not configured.
func NewRouter(cfg config.Config) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	if cfg.LLMProvider != "openai" {
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
	client, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"))
	if err != nil {
		return nil, err
	}

	stagingDir := cfg.StagingDir
	if stagingDir == "" {
		stagingDir = filepath.Join(os.TempDir(), "contract-review")
	}
	store := localstore.New(stagingDir)

	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		dbConn, err := db.Connect(context.Background(), cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			log.Printf("failed to connect database, falling back to memory: %v", err)
		} else {
			if err := db.RunMigrations(context.Background(), dbConn); err != nil {
				log.Printf("failed to run migrations, falling back to memory: %v", err)
				dbConn = nil
			}
		}
		sqlDB = dbConn
	}

	var repo reviews.Repo
	if sqlDB != nil {
		repo = &reviews.PGRepo{DB: sqlDB}
	} else {
		repo = reviews.NewMemoryRepo()
	}

	service := &reviews.Service{
		Store:     store,
		Engine:    analysis.NewEngine(client, cfg.LLMModel),
		Matcher:   analysis.NewMatcher(client, cfg.LLMMatchModel),
		Repo:      repo,
		Downloads: reviews.NewDownloadStore(),
	}
	handler := reviews.NewHandler(service)

	api := r.Group("/api/v1")
	handler.RegisterRoutes(api)

	return r, nil
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
