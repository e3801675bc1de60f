package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"Lee_Moderation/internal/classifier"
	"Lee_Moderation/internal/config"
	"Lee_Moderation/internal/middleware"
	"Lee_Moderation/internal/moderation"
	"Lee_Moderation/internal/pkg"
	"Lee_Moderation/internal/repository/db"
	"Lee_Moderation/internal/repository/redis"
	"Lee_Moderation/internal/router"
	"Lee_Moderation/internal/service"
)

func newServeCommand() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the moderation event relayer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err = cfg.RequireSecrets(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run schema migration before serving")
	return cmd
}

func serve(parent context.Context, cfg *config.Config, migrate bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.Debug)
	if err != nil {
		return err
	}
	defer db.Close(conn)
	if migrate {
		if err = db.Migrate(conn); err != nil {
			return err
		}
	}

	var sessions service.SessionStore
	var authSessions middleware.Sessions
	var statsCache service.StatsCache
	if cfg.Redis.Enabled() {
		if err = redis.Init(ctx, redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redis.Close()
		s := &redis.SessionRepository{}
		sessions, authSessions = s, s
		statsCache = &redis.StatsCache{TTL: cfg.Redis.StatsTTL}
	} else {
		log.Printf("redis: not configured, single-session check and stats cache disabled")
	}

	store := db.NewPostStore(conn)
	lifecycle := moderation.NewLifecycle(store, nil)
	tokens := pkg.NewTokenIssuer(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret)
	communities := &db.CommunityRepository{DB: conn}
	users := &db.UserRepository{DB: conn}

	adapter := classifier.New(classifier.Config{
		APIKey:        cfg.Classifier.APIKey,
		Model:         cfg.Classifier.Model,
		BaseURL:       cfg.Classifier.BaseURL,
		Timeout:       cfg.Classifier.Timeout,
		ImageTimeout:  cfg.Classifier.ImageTimeout,
		MaxImageBytes: cfg.Classifier.MaxImageBytes,
	})

	modOpts := []service.ModerationOption{service.WithLocation(cfg.Location())}
	if statsCache != nil {
		modOpts = append(modOpts, service.WithStatsCache(statsCache))
	}

	gin.SetMode(cfg.Server.Mode)
	engine := router.InitRouter(router.Deps{
		Users:       service.NewUserService(users, sessions, tokens),
		Communities: service.NewCommunityService(communities),
		Posts:       service.NewPostService(store, lifecycle, communities, adapter, cfg.Server.RequestTimeout),
		Moderation:  service.NewModerationService(store, lifecycle, modOpts...),
		Tokens:      tokens,
		Sessions:    authSessions,
	})

	sender, closeSender, err := buildSender(cfg, conn)
	if err != nil {
		return err
	}
	defer closeSender()
	if sender != nil {
		relayer := service.NewOutboxRelayer(store, sender, cfg.Events.BatchSize, cfg.Events.Interval, cfg.Events.MaxRetry)
		go relayer.Run(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("server: listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Printf("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.RequestTimeout+5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildSender 按 events.broker 选择投递方式；none 表示不启动 relayer
func buildSender(cfg *config.Config, conn *gorm.DB) (service.Sender, func(), error) {
	var (
		senders []service.Sender
		closers []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	switch cfg.Events.Broker {
	case config.BrokerNone:
	case config.BrokerLog:
		senders = append(senders, service.LogSender)
	case config.BrokerKafka:
		p, err := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { _ = p.Close() })
		senders = append(senders, service.KafkaSender(p))
	case config.BrokerNATS:
		p, err := pkg.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, p.Close)
		senders = append(senders, service.NATSSender(p))
	}

	// 通知邮件必须排在 broker 之后，broker 失败时本轮不发信
	if cfg.Events.NotifyAuthors {
		smtp := pkg.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}
		if !smtp.Enabled() {
			return nil, closeAll, errors.New("events.notify_authors requires smtp.host")
		}
		senders = append(senders, service.AuthorNotifier(&db.UserRepository{DB: conn}, pkg.NewMailer(smtp)))
	}

	switch len(senders) {
	case 0:
		log.Printf("outbox: relayer disabled")
		return nil, closeAll, nil
	case 1:
		return senders[0], closeAll, nil
	default:
		return service.MultiSender(senders...), closeAll, nil
	}
}
