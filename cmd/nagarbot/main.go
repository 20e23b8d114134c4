package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"nagarbot/internal/api"
	"nagarbot/internal/auth"
	"nagarbot/internal/catalog"
	"nagarbot/internal/chat"
	"nagarbot/internal/config"
	"nagarbot/internal/dialogue"
	"nagarbot/internal/health"
	"nagarbot/internal/notify"
	"nagarbot/internal/session"
	"nagarbot/internal/storage"
	"nagarbot/internal/telegram"
	"nagarbot/internal/translate"
)

func main() {
	log.Println("🚀 Starting Nagar Palika assistant...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	log.Println("✓ Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		log.Fatalf("❌ Failed to load category catalog: %v", err)
	}
	log.Printf("✓ Category catalog loaded (%d categories)", len(cat.Categories))

	log.Println("📋 Initializing conversation state...")
	transcript := chat.NewLog()
	repo := storage.New()
	sessions := session.NewStore()

	log.Println("🌐 Initializing translation...")
	var translator notify.Translator
	tr, err := translate.NewTranslator(ctx, cfg.TranslateAPIKey, cfg.HandoffLanguage)
	if err != nil {
		log.Printf("⚠️  Translation disabled: %v", err)
	} else if tr != nil {
		translator = tr
		defer tr.Close()
	}
	composer := notify.NewComposer(cfg.ContactPhone, translator)

	var tg *telegram.Client
	if cfg.TelegramEnabled() {
		log.Println("📱 Initializing Telegram...")
		tg = telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.TelegramStaffChatID, cfg.DebugMode, cat)
	} else {
		log.Println("⚠️  Telegram not configured, escalations and handoffs stay local")
	}

	monitor := health.NewMonitor(repo.Count)

	opts := []dialogue.Option{
		dialogue.WithPacer(dialogue.SleepPacer{}),
		dialogue.WithDelays(dialogue.Delays{
			Typing:      cfg.TypingDelay,
			QuickAction: cfg.QuickActionDelay,
		}),
		dialogue.WithRecentLimit(cfg.RecentLimit),
	}
	if tg != nil {
		opts = append(opts, dialogue.WithEscalator(tg))
	}
	ctrl := dialogue.NewController(transcript, repo, sessions, cat, opts...)
	ctrl.Greet()

	runner := dialogue.NewRunner(ctrl, cfg.TurnQueueSize, monitor.RecordTurn)
	defer runner.Close()

	var users auth.UserStore = auth.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rdb, err := auth.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("❌ Failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		users = auth.NewRedisStore(rdb)
		log.Printf("✓ User sessions stored in redis at %s", cfg.RedisAddr)
	} else {
		log.Println("⚠️  REDIS_ADDR not set, user sessions kept in memory")
	}
	authSvc := auth.NewService(users, cfg.UserTTL)

	var staff api.Staff
	if tg != nil {
		staff = tg
		go tg.HandleUpdates(ctx, runner)
	}

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.NewHandler(authSvc, runner, transcript, repo, composer, monitor, staff, cfg.UserTTL).RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	go func() {
		log.Printf("✓ HTTP API listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ HTTP server failed: %v", err)
		}
	}()

	log.Println("═══════════════════════════════════════════════════════════")
	<-ctx.Done()
	log.Println("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  HTTP shutdown: %v", err)
	}
}
