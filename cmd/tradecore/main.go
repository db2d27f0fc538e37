package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tradecore/config"
	"tradecore/engine"
	"tradecore/logging"
	"tradecore/messaging"
	"tradecore/nodestate"
	"tradecore/store"
	"tradecore/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "tradecore.yaml", "path to config file")
	writeConfig := flag.Bool("write-config", false, "write the effective config to -config and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("tradecore", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *writeConfig {
		if err := cfg.Save(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "write config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("tradecore exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	log := logger.Sugar().Named("tradecore")
	ec := engine.Config{AppConfig: cfg, Logger: logger}

	// Database
	if cfg.Database.Driver != "" && cfg.Database.Driver != "memory" {
		db, err := store.Open(&cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		ec.DB = db
		log.Infof("database open (%s)", cfg.Database.Driver)
	} else {
		log.Infof("running with in-memory storage")
	}

	// Redis
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		rs := nodestate.NewRedisStore(redisClient)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rs.Ping(ctx)
		cancel()
		if err != nil {
			log.Warnf("redis not available (%v), running without node-state mirror", err)
		} else {
			ec.Redis = rs
			log.Infof("redis connected (%s)", cfg.Redis.Address)
		}
	}

	// Messaging
	if cfg.Messaging.Enabled {
		msgClient := messaging.NewClient(&cfg.Messaging, logger)
		if err := msgClient.Connect(); err != nil {
			log.Warnf("messaging connect failed (%v), delivered messages stay in the outbox", err)
		} else {
			log.Infof("messaging connected (%s)", cfg.Messaging.Backend)
		}
		defer msgClient.Close()
		ec.MsgClient = msgClient
	}

	eng, err := engine.New(ec)
	if err != nil {
		return err
	}
	eng.Start()
	defer eng.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if cfg.Web.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           www.NewRouter(eng, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			log.Infof("web server listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("web server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	log.Infof("ready (%d nodes)", eng.Registry().Len())
	g.Go(func() error {
		<-ctx.Done()
		log.Infof("shutting down...")
		return nil
	})
	return g.Wait()
}
