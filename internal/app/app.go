package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/studylog/internal/auth"
	"github.com/hitoshi/studylog/internal/config"
	"github.com/hitoshi/studylog/internal/database"
	"github.com/hitoshi/studylog/internal/handler"
	"github.com/hitoshi/studylog/internal/logger"
	"github.com/hitoshi/studylog/internal/metrics"
	"github.com/hitoshi/studylog/internal/middleware"
	"github.com/hitoshi/studylog/internal/repository"
	"github.com/hitoshi/studylog/internal/security"
	"github.com/hitoshi/studylog/internal/timer"
	"github.com/hitoshi/studylog/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, nil)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Bool("use_postgres", cfg.UsePostgres()),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はWebサーバーモードで起動する。
// DATABASE_URLの有無でストレージ構成を切り替え、全依存関係を
// ワイヤリングしてHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. ストレージの初期化
	var (
		credRepo      repository.CredentialRepository
		recordRepo    repository.RecordRepository
		sessionRepo   repository.SessionRepository
		storeInit     auth.RecordStoreInitializer
		healthChecker handler.HealthChecker
	)

	if cfg.UsePostgres() {
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		slog.Info("database connection established")

		credRepo = repository.NewPostgresCredentialRepo(db)
		recordRepo = repository.NewPostgresRecordRepo(db)
		sessionRepo = repository.NewPostgresSessionRepo(db)
		healthChecker = db

		// 期限切れセッションの掃除は日次バックグラウンドジョブで行う
		cleanupJob := cleanup.NewCleanupJob(db, slog.Default())
		go runCleanupLoop(ctx, cleanupJob)
	} else {
		slog.Info("using CSV storage", slog.String("data_dir", cfg.DataDir))

		csvCredRepo, err := repository.NewCSVCredentialRepo(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to init credential store: %w", err)
		}
		csvRecordRepo, err := repository.NewCSVRecordRepo(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to init record store: %w", err)
		}
		memSessionRepo := repository.NewMemorySessionRepo(5 * time.Minute)
		defer memSessionRepo.Stop()

		credRepo = csvCredRepo
		recordRepo = csvRecordRepo
		sessionRepo = memSessionRepo
		storeInit = csvRecordRepo
	}

	// 3. ドメインサービスの初期化
	authService := auth.NewService(credRepo, sessionRepo, storeInit,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge})
	timerService := timer.NewService(recordRepo, sessionRepo, collector)
	sanitizer := security.NewSubjectSanitizer()

	// 4. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	// configのレートはreq/min単位なのでreq/secに変換する
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.LoginRate = rate.Limit(float64(cfg.RateLimitLogin) / 60.0)

	deps := &handler.RouterDeps{
		SessionFinder: sessionRepo,
		RateLimiter:   middleware.NewRateLimiter(rateLimiterCfg),
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger:       slog.Default(),
		Metrics:      collector,
		MetricsRoute: metrics.Handler(registry),

		HealthChecker: healthChecker,

		AuthService: authService,
		AuthMetrics: collector,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		TimerService:   timerService,
		RecordLister:   recordRepo,
		SessionUpdater: sessionRepo,
		Sanitizer:      sanitizer,
	}

	router := handler.NewRouter(deps)

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down web server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runCleanupLoop は期限切れセッションの削除ジョブを日次で実行する。
// 起動直後に1回実行し、以降は24時間ごとに繰り返す。
func runCleanupLoop(ctx context.Context, job *cleanup.CleanupJob) {
	if err := job.Run(ctx); err != nil {
		slog.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
// CSVストレージ構成（DATABASE_URL未設定）ではマイグレーション不要のためエラーを返す。
func runMigrate(cfg *config.Config) error {
	if !cfg.UsePostgres() {
		return fmt.Errorf("migrate requires DATABASE_URL to be set")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
