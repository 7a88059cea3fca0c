package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/solarflux/pulsetrader/internal/alerts"
	"github.com/solarflux/pulsetrader/internal/audit"
	"github.com/solarflux/pulsetrader/internal/broadcast"
	"github.com/solarflux/pulsetrader/internal/broker"
	"github.com/solarflux/pulsetrader/internal/candle"
	"github.com/solarflux/pulsetrader/internal/catalog"
	"github.com/solarflux/pulsetrader/internal/composer"
	"github.com/solarflux/pulsetrader/internal/config"
	"github.com/solarflux/pulsetrader/internal/db"
	"github.com/solarflux/pulsetrader/internal/exchange"
	"github.com/solarflux/pulsetrader/internal/executor"
	"github.com/solarflux/pulsetrader/internal/htf"
	"github.com/solarflux/pulsetrader/internal/llm"
	"github.com/solarflux/pulsetrader/internal/oracle"
	"github.com/solarflux/pulsetrader/internal/pipeline"
	"github.com/solarflux/pulsetrader/internal/queue"
	"github.com/solarflux/pulsetrader/internal/risk"

	notif "github.com/solarflux/pulsetrader/internal/notifications"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ./configs/config.yaml)")
	agentsPath := flag.String("agents", "", "Path to agents file (default: ./configs/agents.yaml)")
	verifyOnly := flag.Bool("verify", false, "Validate configuration and connectivity, then exit")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	config.InitLogger(cfg.App.LogLevel, "console")

	// Resolve secrets through Vault before anything dials out
	ctx := context.Background()
	if err := config.LoadSecretsFromVault(ctx, cfg, config.GetVaultConfigFromEnv()); err != nil {
		log.Warn().Err(err).Msg("Vault secrets unavailable, falling back to environment")
	}

	validator := config.NewValidator(cfg, config.ValidatorOptions{
		VerifyConnectivity: true,
		VerifyAPIKeys:      *verifyOnly,
		Timeout:            5 * time.Second,
	})
	if err := validator.ValidateStartup(ctx); err != nil {
		log.Fatal().Err(err).Msg("Startup validation failed")
	}
	if *verifyOnly {
		log.Info().Msg("Configuration verified")
		return
	}

	agentCfg, err := config.LoadAgentConfig(*agentsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load agent configuration")
	}

	log.Info().
		Str("mode", cfg.Trading.Mode).
		Strs("symbols", cfg.Trading.Symbols).
		Str("primary_tf", cfg.Pipeline.PrimaryTimeframe).
		Msg("Starting PulseTrader signal pipeline")

	// Database
	database, err := db.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	// Redis (HTF level cache, validated-signal replay store)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// NATS (notification bus)
	natsConn, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.NATS.URL).Msg("Failed to connect to NATS")
	}
	defer natsConn.Close()

	// Seed the agent catalog from config
	seedAgents(ctx, database, agentCfg)

	comps, sessions, err := buildComponents(ctx, cfg, database, redisClient, natsConn)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build pipeline components")
	}

	// Open a trading session for this run
	mode := db.TradingModePaper
	if strings.EqualFold(cfg.Trading.Mode, "live") {
		mode = db.TradingModeLive
	}
	session, err := sessions.StartSession(ctx, mode, strings.Join(cfg.Trading.Symbols, ","), cfg.Trading.Exchange,
		cfg.Trading.InitialCapital, map[string]interface{}{
			"primary_timeframe": cfg.Pipeline.PrimaryTimeframe,
			"base_notional":     cfg.Pipeline.BaseNotional,
		})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start trading session")
	}

	pipe := pipeline.New(comps, log.Logger)

	// HTTP control surface (health, readiness, pause/resume, metrics)
	httpServer := NewHTTPServer(cfg.Pipeline.HTTPPort, pipe)
	if err := httpServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start HTTP server")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := pipe.Start(runCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start pipeline")
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := pipe.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during pipeline shutdown")
	}
	if _, err := sessions.StopSession(shutdownCtx, cfg.Trading.InitialCapital); err != nil {
		log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Failed to close trading session")
	}
	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during HTTP server shutdown")
	}

	log.Info().Msg("Pipeline shutdown complete")
}

// seedAgents upserts the configured agent population into the catalog.
func seedAgents(ctx context.Context, database *db.DB, agentCfg *config.AgentConfig) {
	for _, id := range agentCfg.EnabledAgents() {
		seed, _ := agentCfg.Agent(id)
		agent := &db.TradingAgent{
			ID:                        id,
			Name:                      seed.Name,
			IsActive:                  true,
			Category:                  seed.Category,
			RiskLevel:                 seed.RiskLevel,
			Budget:                    seed.Budget,
			AllowedCategories:         seed.AllowedCategories,
			MinConfidence:             seed.MinConfidence,
			MaxOpenPositions:          seed.MaxOpenPositions,
			EnableExpensiveValidation: seed.EnableExpensiveValidation,
			Broker:                    seed.Broker,
		}
		if err := database.UpsertTradingAgent(ctx, agent); err != nil {
			log.Error().Err(err).Str("agent_id", id).Msg("Failed to seed agent")
			continue
		}
		log.Info().Str("agent_id", id).Str("category", seed.Category).Msg("Agent seeded")
	}
}

// buildComponents wires the six pipeline components in dependency order:
// ingestors, HTF context, oracle pool, composers, broadcaster, and
// executor/monitor.
func buildComponents(ctx context.Context, cfg *config.Config, database *db.DB, redisClient *redis.Client, natsConn *nats.Conn) (pipeline.Components, *exchange.SessionService, error) {
	exCfg := cfg.Exchanges[cfg.Trading.Exchange]

	// Exchange backend: mock ledger for paper trading, Binance for live.
	var ex exchange.Exchange
	if strings.EqualFold(cfg.Trading.Mode, "live") {
		bx, err := exchange.NewBinanceExchange(exchange.BinanceConfig{
			APIKey:    exCfg.APIKey,
			SecretKey: exCfg.SecretKey,
			Testnet:   exCfg.Testnet,
		}, database)
		if err != nil {
			return pipeline.Components{}, nil, fmt.Errorf("binance exchange: %w", err)
		}
		ex = bx
	} else {
		ex = exchange.NewMockExchangeWithFees(database, exCfg.Fees)
	}
	sessions := exchange.NewSessionService(ex, database)

	brk := broker.New(ex, cfg.Trading.InitialCapital, "USDT", log.Logger)

	// LLM gateway: primary model with fallback, every call recorded to the
	// decision log.
	fallback := llm.NewFallbackClient(llm.FallbackConfig{
		PrimaryConfig: llm.ClientConfig{
			Endpoint:    cfg.LLM.Endpoint,
			Model:       cfg.LLM.PrimaryModel,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.GetTimeout(),
		},
		PrimaryName: cfg.LLM.PrimaryModel,
		FallbackConfigs: []llm.ClientConfig{{
			Endpoint:    cfg.LLM.Endpoint,
			Model:       cfg.LLM.FallbackModel,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.GetTimeout(),
		}},
		FallbackNames:        []string{cfg.LLM.FallbackModel},
		CircuitBreakerConfig: llm.DefaultCircuitBreakerConfig(),
	})
	gradingClient := llm.NewRecordingClient(fallback, database.NewLLMCallSink("oracle_grading", strings.Join(cfg.Trading.Symbols, ",")))
	validationClient := llm.NewRecordingClient(fallback, database.NewLLMCallSink("agent_validation", strings.Join(cfg.Trading.Symbols, ",")))

	pool := oracle.NewPool([4]oracle.Grader{
		oracle.NewFibonacciGrader(gradingClient, log.Logger),
		oracle.NewTrendMomentumGrader(gradingClient, log.Logger),
		oracle.NewVolumePriceActionGrader(gradingClient, log.Logger),
		oracle.NewSupportResistanceGrader(gradingClient, log.Logger),
	}, log.Logger)
	pool.SetBreaker(database.GetCircuitBreaker().Oracle())
	validationOracle := oracle.NewLLMValidationOracle(validationClient, log.Logger)

	// Market data transport (public endpoints, shared by paper and live)
	marketData := candle.NewBinanceTransport(binance.NewClient(exCfg.APIKey, exCfg.SecretKey))

	htfCtx := htf.NewContext(htf.NewRedisCache(redisClient), log.Logger)
	auditLogger := audit.NewLogger(database.Pool(), true)
	alertManager := alerts.NewManager(alerts.NewLogAlerter())
	bus := notif.New(natsConn, log.Logger)

	validatedQueue, err := queue.New(ctx, broadcast.NewRedisStore(redisClient))
	if err != nil {
		return pipeline.Components{}, nil, fmt.Errorf("validated-signal queue: %w", err)
	}

	cat := catalog.NewPostgresCatalog(database.Pool())
	admissibility := catalog.NewCachedAdmissibility(catalog.NewPassthroughAdmissibility(
		[]string{cfg.Trading.Exchange}, cfg.Trading.Symbols))

	ingestors := make(map[string]*candle.Ingestor, len(cfg.Trading.Symbols))
	composers := make(map[string]*composer.Composer, len(cfg.Trading.Symbols))
	monitorSources := make(map[string]executor.Source, len(cfg.Trading.Symbols))

	supporting := make([]candle.Timeframe, 0, len(cfg.Pipeline.SupportingTimeframes))
	for _, tf := range cfg.Pipeline.SupportingTimeframes {
		supporting = append(supporting, candle.Timeframe(tf))
	}
	htfTFs := make([]candle.Timeframe, 0, len(cfg.Pipeline.HTFTimeframes))
	for _, tf := range cfg.Pipeline.HTFTimeframes {
		htfTFs = append(htfTFs, candle.Timeframe(tf))
	}

	for _, symbol := range cfg.Trading.Symbols {
		ing := candle.NewIngestor(candle.Config{
			Instrument: symbol,
			Primary:    candle.Timeframe(cfg.Pipeline.PrimaryTimeframe),
			Supporting: supporting,
			HTF:        htfTFs,
		}, marketData, marketData, log.Logger)

		htfCtx.Register(symbol, ing)

		comp := composer.New(composer.Config{
			Instrument:         symbol,
			Primary:            candle.Timeframe(cfg.Pipeline.PrimaryTimeframe),
			Supporting:         supporting,
			MinSignalInterval:  cfg.Pipeline.MinSignalInterval,
			InversionThreshold: cfg.Pipeline.InversionThreshold,
			BaseNotional:       cfg.Pipeline.BaseNotional,
		}, pool, htfCtx, ing, auditLogger, log.Logger)

		ingestors[symbol] = ing
		composers[symbol] = comp
		monitorSources[symbol] = ing
	}

	monitor := executor.NewMonitor(executor.MonitorConfig{
		Primary: candle.Timeframe(cfg.Pipeline.PrimaryTimeframe),
		Pool:    pool,
		Broker:  brk,
		DB:      database,
		Bus:     bus,
		Audit:   auditLogger,
	}, monitorSources, log.Logger)

	exec := executor.New(executor.Config{
		Queue:   validatedQueue,
		Broker:  brk,
		Monitor: monitor,
		DB:      database,
		Bus:     bus,
		Audit:   auditLogger,
		Workers: cfg.Pipeline.ExecutorWorkers,
	}, log.Logger)

	broadcaster := broadcast.New(broadcast.Config{
		Catalog:       cat,
		Admissibility: admissibility,
		Broker:        brk,
		Validation:    validationOracle,
		Performance:   risk.NewCalculatorWithPool(database.Pool()),
		Queue:         validatedQueue,
		Bus:           bus,
		Audit:         auditLogger,
		MarketConditions: func(instrument string) broadcast.MarketConditions {
			return marketConditions(ctx, brk, instrument)
		},
	}, log.Logger)

	return pipeline.Components{
		DB:          database,
		NATS:        natsConn,
		Catalog:     cat,
		Ingestors:   ingestors,
		Composers:   composers,
		Broadcaster: broadcaster,
		Executor:    exec,
		Monitor:     monitor,
		Alerts:      alertManager,
	}, sessions, nil
}

// marketConditions derives the validation oracle's market bundle from a
// live ticker: spread from bid/ask, volatility from 24h change, liquidity
// bucketed by quote volume.
func marketConditions(ctx context.Context, brk broker.Broker, instrument string) broadcast.MarketConditions {
	t, err := brk.Ticker(ctx, instrument)
	if err != nil || t.Last <= 0 {
		return broadcast.MarketConditions{LiquidityBucket: "unknown"}
	}

	spread := 0.0
	if t.Ask > 0 && t.Bid > 0 {
		spread = (t.Ask - t.Bid) / t.Last
	}

	bucket := "low"
	switch {
	case t.QuoteVolume >= 1e9:
		bucket = "high"
	case t.QuoteVolume >= 1e7:
		bucket = "medium"
	}

	return broadcast.MarketConditions{
		LiquidityBucket: bucket,
		Spread:          spread,
		Volatility:      math.Abs(t.Change24hPct) / 100,
	}
}
