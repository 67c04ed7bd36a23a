package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-admin/backend"
	"food-admin/bot"
	"food-admin/config"
	"food-admin/db"
	"food-admin/httpapi"
	"food-admin/logger"
	"food-admin/services"
	"food-admin/storage"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})

	// Check for migrate subcommand
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(cfg, log)
		return
	}

	if cfg.Telegram.Token == "" && cfg.HTTP.Addr == "" {
		fmt.Fprintln(os.Stderr, "TOKEN not set (and no HTTP_ADDR): nothing to serve")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DB.Enabled() {
		if err := db.Init(ctx, cfg.DB); err != nil {
			fmt.Fprintln(os.Stderr, "db:", err)
			os.Exit(1)
		}
		defer db.Close()

		if cfg.AutoMigrate {
			if err := applyMigrations(ctx, db.Pool, log); err != nil {
				fmt.Fprintln(os.Stderr, "migrate:", err)
				os.Exit(1)
			}
		}
	}

	api := backend.NewClient(cfg.Backend.BaseURL, &http.Client{Timeout: cfg.Backend.Timeout})
	store := services.NewStore()
	scheduler := services.NewSyncScheduler(api, store, services.SyncOptions{
		Interval: cfg.Sync.Interval,
		Logger:   log,
	})

	commander := services.NewCommander(api, store, log)
	commander.SetRefresher(scheduler)
	menu := services.NewMenuEditor(api, store, log)
	menu.SetRefresher(scheduler)

	var pointers services.CardPointerStore = services.NewMemoryCardPointers()
	if db.Pool != nil {
		commander.SetRecorder(services.NewAdminActionLog(db.Pool))
		pointers = services.NewPgCardPointers(db.Pool)
	}

	var markers storage.Markers = storage.NewMemoryMarkers(cfg.Redis.MarkerTTL)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, keeping notification markers in memory", "addr", cfg.Redis.Addr, "error", err)
		} else {
			markers = storage.NewRedisMarkers(client, cfg.Redis.MarkerTTL)
		}
	}

	if cfg.Kafka.Broker != "" {
		writer := storage.NewKafkaWriter(cfg.Kafka.Broker, cfg.Kafka.Topic)
		defer writer.Close()
		scheduler.OnSync(services.ForwardStatusChanges(storage.NewKafkaPublisher(writer), 5*time.Second, log))
		log.Info("publishing status changes", "broker", cfg.Kafka.Broker, "topic", cfg.Kafka.Topic)
	}

	if cfg.Telegram.Token != "" {
		b, err := bot.NewAdminBot(cfg, bot.Deps{
			Store:     store,
			Commander: commander,
			Menu:      menu,
			Sync:      scheduler,
			Pointers:  pointers,
			Markers:   markers,
			Log:       log,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "bot:", err)
			os.Exit(1)
		}
		scheduler.OnSync(b.HandleSync)
		scheduler.OnError(b.HandleSyncError)
		scheduler.OnRecover(b.HandleSyncRecover)
		go b.Start(ctx)
		log.Info("admin bot started")
	}

	if cfg.HTTP.Addr != "" {
		httpLog := log.With("component", "http")
		router := httpapi.NewRouter(httpapi.NewHandler(store, scheduler, httpLog), httpLog)
		go func() {
			if err := httpapi.Serve(ctx, cfg.HTTP.Addr, router, log); err != nil {
				log.Error("read API stopped", "error", err)
				stop()
			}
		}()
	}

	scheduler.Start(ctx)
	<-ctx.Done()
	scheduler.Stop()
	scheduler.Wait()
	log.Info("shut down")
}

func runMigrate(cfg *config.Config, log *slog.Logger) {
	if !cfg.DB.Enabled() {
		fmt.Fprintln(os.Stderr, "migrate: DB_HOST not set")
		os.Exit(1)
	}
	ctx := context.Background()
	if err := db.Init(ctx, cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := applyMigrations(ctx, db.Pool, log); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
