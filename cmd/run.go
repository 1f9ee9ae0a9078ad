// Package cmd wires the application together and runs it.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"mort/auth"
	"mort/bot"
	"mort/chain"
	"mort/config"
	"mort/database"
	"mort/observability"
	"mort/pricing"
	"mort/reconciler"
	"mort/repository"
	"mort/whatsapp"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application, blocking until ctx is cancelled
func Run(ctx context.Context) error {
	cfg := config.Get()
	configureLogging(cfg)

	log.WithField("environment", cfg.Environment).Info("Starting wallet agent")

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics := observability.GetMetrics()

	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established")

	userRepo := repository.NewUserRepository(db, metrics)
	gameRepo := repository.NewGameRecordRepository(db, metrics)

	contracts := chain.Contracts{
		Flip:  common.HexToAddress(cfg.FlipContract),
		RPS:   common.HexToAddress(cfg.RPSContract),
		Lucky: common.HexToAddress(cfg.LuckyContract),
	}
	signer := chain.NewRemoteSigner(cfg.SignerURL, cfg.SignerAppID, cfg.SignerSecret)

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, signer, contracts, cfg.ChainID)
	if err != nil {
		return fmt.Errorf("failed to create chain client: %w", err)
	}
	log.Info("Chain client initialized")

	sender := whatsapp.NewGraphSender(cfg.WhatsAppToken, cfg.WhatsAppPhoneID)
	price := pricing.NewCoinGecko(cfg.CoinGeckoURL, cfg.CoinGeckoAPIKey)
	verifier := auth.NewBcryptVerifier()
	sessions := bot.NewSessionStore(cfg.SessionIdleTimeout)

	agent := bot.New(userRepo, gameRepo, chainClient, verifier, sender, price, sessions, cfg, metrics)

	// Each reconnect attempt dials a fresh websocket connection.
	dial := func(ctx context.Context) (chain.LogSubscriber, error) {
		metrics.RecordChainReconnect()
		return ethclient.DialContext(ctx, cfg.WSSRPCURL)
	}
	supervisor := chain.NewSupervisor(dial, contracts, cfg.ReconnectBaseDelay, cfg.ReconnectMaxDelay)
	settle := reconciler.New(gameRepo, userRepo, sender, agent, metrics)

	go supervisor.Run(ctx)
	go settle.Run(ctx, supervisor.Events())

	server := newWebhookServer(cfg, agent)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("Webhook server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Webhook server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to shut down webhook server cleanly")
	}
	db.Close()
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to shut down metrics cleanly")
	}

	log.Info("Shutdown complete")
	return nil
}

func newWebhookServer(cfg *config.Config, agent *bot.Bot) *http.Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	whatsapp.NewWebhook(agent, cfg).Register(router)
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return &http.Server{Addr: cfg.ListenAddr, Handler: router}
}

func configureLogging(cfg *config.Config) {
	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
		log.SetLevel(log.InfoLevel)
	} else {
		log.SetLevel(log.DebugLevel)
	}
}
