package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/marga/internal/auth"
	"github.com/hitoshi/marga/internal/config"
	"github.com/hitoshi/marga/internal/database"
	"github.com/hitoshi/marga/internal/event"
	"github.com/hitoshi/marga/internal/feedback"
	"github.com/hitoshi/marga/internal/handler"
	"github.com/hitoshi/marga/internal/logger"
	"github.com/hitoshi/marga/internal/metrics"
	"github.com/hitoshi/marga/internal/middleware"
	"github.com/hitoshi/marga/internal/partner"
	"github.com/hitoshi/marga/internal/place"
	"github.com/hitoshi/marga/internal/profile"
	"github.com/hitoshi/marga/internal/repository"
	"github.com/hitoshi/marga/internal/savedplace"
	"github.com/hitoshi/marga/internal/security"
	"github.com/hitoshi/marga/internal/worker/cleanup"
	"github.com/hitoshi/marga/internal/worker/eventimport"
)

// cleanupInterval はクリーンアップジョブの実行間隔。
const cleanupInterval = 24 * time.Hour

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

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

	// healthcheck とクライアント系コマンドはデータベースを使わないため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}
	if cmd.clientCommand() {
		return runClient(context.Background(), w, cmd, args[1:])
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("アプリケーションを起動します",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runClient はクライアント系コマンドを実行する。cmdArgsはサブコマンド名を除いた引数。
func runClient(ctx context.Context, w io.Writer, cmd Command, cmdArgs []string) error {
	cfg := config.LoadClient()
	switch cmd {
	case CommandSignIn:
		return runSignIn(ctx, w, cfg, cmdArgs)
	case CommandSignUp:
		return runSignUp(ctx, w, cfg, cmdArgs)
	case CommandSignOut:
		return runSignOut(ctx, w, cfg)
	case CommandToggle:
		return runToggle(ctx, w, cfg, cmdArgs)
	default:
		return runStatus(ctx, w, cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("データベースに接続しました")

	profileRepo := repository.NewPostgresProfileRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	savedRepo := repository.NewPostgresSavedPlaceRepo(db)
	spotRepo := repository.NewPostgresSpotRepo(db)
	eventRepo := repository.NewPostgresEventRepo(db)
	feedbackRepo := repository.NewPostgresFeedbackRepo(db)
	partnerRepo := repository.NewPostgresPartnerRepo(db)

	sanitizer := security.NewSanitizer()

	placeService, err := place.NewService(spotRepo)
	if err != nil {
		return fmt.Errorf("failed to load place catalog: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	authService := auth.NewService(profileRepo, sessionRepo, auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge})
	authAdapter := handler.NewAuthServiceAdapter(authService, collector)

	rateLimiter := middleware.NewRateLimiter(
		middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitSignIn),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Authenticator:     authAdapter,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger: slog.Default(),

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(reg),

		AuthService: authAdapter,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		ProfileService:    profile.NewService(profileRepo, sessionRepo),
		SavedPlaceService: savedplace.NewService(savedRepo, spotRepo),
		PlaceService:      placeService,
		EventService:      event.NewService(eventRepo, sanitizer),
		FeedbackService:   feedback.NewService(feedbackRepo, sanitizer),
		PartnerService:    partner.NewService(partnerRepo, sanitizer),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("APIサーバーを起動します", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server listen failed: %w", err)
	case <-stop:
	}
	slog.Info("APIサーバーを停止します")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("APIサーバーを正常に停止しました")
	return nil
}

// runWorker はワーカーモードで起動する。
// イベント取り込みスケジューラとクリーンアップジョブを実行し、
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("データベースに接続しました（worker）")

	sourceRepo := repository.NewPostgresEventSourceRepo(db)
	eventRepo := repository.NewPostgresEventRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)

	guard := security.NewURLGuard()
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	upserter := eventimport.NewUpserter(eventRepo, security.NewSanitizer())
	fetcher := eventimport.NewFetcher(sourceRepo, upserter, guard, collector, slog.Default(), eventimport.FetcherConfig{
		Timeout:     cfg.FetchTimeout,
		MaxBodySize: cfg.FetchMaxSize,
		Interval:    cfg.EventImportInterval,
	})
	scheduler := eventimport.NewScheduler(sourceRepo, fetcher, guard, slog.Default(), cfg.FetchMaxConcurrent).
		WithResolver(eventimport.NewDiscoverer(guard, cfg.FetchTimeout, cfg.FetchMaxSize))

	cleanupJob := cleanup.NewCleanupJob(sessionRepo, eventRepo, slog.Default())
	cleanupJob.RetentionDays = cfg.EventRetentionDays

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := scheduler.Seed(ctx, cfg.EventFeedURLs); err != nil {
		return fmt.Errorf("failed to seed event sources: %w", err)
	}

	slog.Info("ワーカーを起動します",
		slog.Duration("import_interval", cfg.EventImportInterval),
		slog.Int("max_concurrent", cfg.FetchMaxConcurrent),
		slog.Int("feed_count", len(cfg.EventFeedURLs)),
	)

	go cleanupJob.Start(ctx, cleanupInterval)

	// スケジューラはメインgoroutineで実行する（ブロッキング）
	scheduler.Start(ctx, cfg.EventImportInterval)

	slog.Info("ワーカーを正常に停止しました")
	return nil
}

// runMigrate はすべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("マイグレーションを実行します",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	state, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("マイグレーションが完了しました",
		slog.Uint64("version", uint64(state.Version)),
		slog.Bool("dirty", state.Dirty),
	)
	return nil
}

// runHealthcheck はdistroless環境でのDockerヘルスチェック用サブコマンド。
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
