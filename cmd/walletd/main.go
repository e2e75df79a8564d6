package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"mybucks/internal/account/evm"
	"mybucks/internal/account/tron"
	"mybucks/internal/app/port"
	"mybucks/internal/app/service"
	"mybucks/internal/config"
	"mybucks/internal/domain/entity"
	"mybucks/internal/infrastructure/httpclient"
	"mybucks/internal/infrastructure/restapi"
	"mybucks/internal/pkg/logger"
	"mybucks/internal/pkg/metrics"
	"mybucks/internal/pkg/utils"
)

func main() {
	cfgPath := utils.GetEnv("CONFIG_PATH", "config/config.yaml")
	var cfg *config.Config
	if _, err := os.Stat(cfgPath); err == nil {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			logrus.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	} else {
		logrus.Infof("No config file at %s, using built-in defaults", cfgPath)
		cfg = config.Default()
	}

	zapLogger, err := logger.Init(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	secrets, err := config.LoadSecrets()
	if err != nil {
		zapLogger.Fatal("Failed to load secrets", zap.Error(err))
	}

	metrics.MustRegister()

	balanceClient := httpclient.NewBalanceClient(
		cfg.Balance.BaseURL,
		secrets.BalanceAPIKey,
		time.Duration(cfg.Balance.RequestTimeoutMs)*time.Millisecond,
		cfg.Balance.RateLimitPerSec,
		cfg.Balance.RateBurst,
		zapLogger,
	)
	historyClient := httpclient.NewHistoryClient(
		cfg.History.BaseURL,
		secrets.HistoryAPIKey,
		time.Duration(cfg.History.RequestTimeoutMs)*time.Millisecond,
		cfg.History.RateLimitPerSec,
		cfg.History.RateBurst,
		zapLogger,
	)
	priceClient := httpclient.NewPriceClient(
		cfg.Price.BaseURL,
		time.Duration(cfg.Price.RequestTimeoutMs)*time.Millisecond,
		cfg.Price.RateLimitPerSec,
		cfg.Price.RateBurst,
		time.Duration(cfg.Price.CacheTTLMinutes)*time.Minute,
		zapLogger,
	)

	factory := accountFactory(cfg, secrets, balanceClient, historyClient, priceClient, zapLogger)

	sessionSvc := service.NewSessionService(cfg, factory, logger.NewAdapter(zapLogger))
	estimator := service.NewEstimator(
		sessionSvc,
		time.Duration(cfg.Session.EstimateDebounceMs)*time.Millisecond,
		logger.NewAdapter(zapLogger),
	)

	handler := restapi.NewSessionHandler(sessionSvc, estimator)
	router := restapi.SetupRouter(handler, zapLogger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		zapLogger.Info(fmt.Sprintf("Server starting on port %s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	// Lock before refusing new requests: secret material must not outlive
	// the process by even a failed shutdown.
	sessionSvc.Reset()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		zapLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting")
}

// accountFactory binds configuration and providers into the session's
// account constructor.
func accountFactory(
	cfg *config.Config,
	secrets *config.Secrets,
	balances port.BalanceProvider,
	history port.HistoryProvider,
	prices port.PriceProvider,
	zapLogger *zap.Logger,
) service.AccountFactory {
	return func(privKey []byte, kind entity.NetworkKind, chainID uint64) (port.Account, error) {
		if kind == entity.NetworkTron {
			return tron.New(privKey, tron.Settings{
				NodeURL:             cfg.Tron.NodeURL,
				APIKey:              secrets.TronAPIKey,
				BlockExplorerURL:    cfg.Tron.BlockExplorerURL,
				RequestTimeout:      time.Duration(cfg.Tron.RequestTimeoutMs) * time.Millisecond,
				Tokens:              cfg.Tron.Tokens,
				ReceiptPollAttempts: cfg.Session.ReceiptPollAttempts,
				ReceiptPollInterval: time.Duration(cfg.Session.ReceiptPollIntervalSecond) * time.Second,
			}, tron.Providers{History: history, Prices: prices}, zapLogger)
		}

		netDef, ok := cfg.FindEVMNetwork(chainID)
		if !ok {
			return nil, fmt.Errorf("no network configured for chain id %d", chainID)
		}
		return evm.New(privKey, netDef, evm.Providers{
			Balances: balances,
			History:  history,
			Prices:   prices,
		}, zapLogger)
	}
}
