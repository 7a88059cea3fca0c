package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bounded cardinality constants for metric labels.
// These ensure metrics don't have unbounded label values which can cause memory issues.
const (
	// Circuit breaker reasons (bounded set)
	ReasonMaxDrawdown    = "max_drawdown"
	ReasonHighVolatility = "high_volatility"
	ReasonRateLimit      = "rate_limit"
	ReasonManualHalt     = "manual_halt"
	ReasonOther          = "other"

	// Composer rejection reasons (bounded set, mirrors the canonical reasons)
	RejectionSpacing      = "spacing"
	RejectionConsensus    = "consensus"
	RejectionConfidence   = "confidence"
	RejectionStopTarget   = "stop_target"
	RejectionRiskReward   = "risk_reward"
	RejectionHTFCounter   = "htf_counter"
	RejectionPrecondition = "precondition"
	RejectionOther        = "other"

	// Exchange API error categories (bounded set)
	ExchangeErrorTimeout     = "timeout"
	ExchangeErrorRateLimit   = "rate_limit"
	ExchangeErrorAuth        = "authentication"
	ExchangeErrorNetwork     = "network"
	ExchangeErrorInvalidReq  = "invalid_request"
	ExchangeErrorServerError = "server_error"
	ExchangeErrorOther       = "other"
)

// NormalizeCircuitBreakerReason maps arbitrary reasons to bounded set
func NormalizeCircuitBreakerReason(reason string) string {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "drawdown"):
		return ReasonMaxDrawdown
	case strings.Contains(lower, "volatility"):
		return ReasonHighVolatility
	case strings.Contains(lower, "rate") || strings.Contains(lower, "limit"):
		return ReasonRateLimit
	case strings.Contains(lower, "manual") || strings.Contains(lower, "halt"):
		return ReasonManualHalt
	default:
		return ReasonOther
	}
}

// NormalizeRejectionReason maps composer rejection reasons to bounded set
func NormalizeRejectionReason(reason string) string {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "spacing"):
		return RejectionSpacing
	case strings.Contains(lower, "split") || strings.Contains(lower, "consensus"):
		return RejectionConsensus
	case strings.Contains(lower, "confidence"):
		return RejectionConfidence
	case strings.Contains(lower, "stop") || strings.Contains(lower, "target"):
		return RejectionStopTarget
	case strings.Contains(lower, "rr") || strings.Contains(lower, "reward"):
		return RejectionRiskReward
	case strings.Contains(lower, "htf") || strings.Contains(lower, "counter"):
		return RejectionHTFCounter
	case strings.Contains(lower, "precondition") || strings.Contains(lower, "invariant"):
		return RejectionPrecondition
	default:
		return RejectionOther
	}
}

// NormalizeExchangeError maps arbitrary error messages to bounded set
func NormalizeExchangeError(err error) string {
	if err == nil {
		return ""
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return ExchangeErrorTimeout
	case strings.Contains(errStr, "rate") || strings.Contains(errStr, "429"):
		return ExchangeErrorRateLimit
	case strings.Contains(errStr, "auth") || strings.Contains(errStr, "401") || strings.Contains(errStr, "403"):
		return ExchangeErrorAuth
	case strings.Contains(errStr, "network") || strings.Contains(errStr, "connection"):
		return ExchangeErrorNetwork
	case strings.Contains(errStr, "400") || strings.Contains(errStr, "invalid"):
		return ExchangeErrorInvalidReq
	case strings.Contains(errStr, "500") || strings.Contains(errStr, "502") || strings.Contains(errStr, "503"):
		return ExchangeErrorServerError
	default:
		return ExchangeErrorOther
	}
}

// Trading Performance Metrics
var (
	// Total P&L
	TotalPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsetrader_total_pnl",
		Help: "Total profit and loss in USD",
	})

	// Win rate (0.0 to 1.0)
	WinRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsetrader_win_rate",
		Help: "Win rate as a ratio (0.0 to 1.0)",
	})

	// Open positions
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsetrader_open_positions",
		Help: "Number of currently open positions",
	})

	// Total trades
	TotalTrades = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulsetrader_total_trades",
		Help: "Total number of trades executed",
	})

	// Current drawdown
	CurrentDrawdown = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsetrader_current_drawdown",
		Help: "Current drawdown as a ratio (0.0 to 1.0)",
	})

	// Max drawdown threshold
	MaxDrawdownThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsetrader_max_drawdown_threshold",
		Help: "Maximum allowed drawdown threshold",
	})

	// Position value by symbol
	PositionValueBySymbol = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pulsetrader_position_value_by_symbol",
		Help: "Position value in USD by trading symbol",
	}, []string{"symbol"})

	// Risk/reward ratio
	RiskRewardRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsetrader_risk_reward_ratio",
		Help: "Average risk/reward ratio",
	})

	// Winning trades value
	WinningTradesValue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulsetrader_winning_trades_value",
		Help: "Total value of winning trades in USD",
	})

	// Losing trades value
	LosingTradesValue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulsetrader_losing_trades_value",
		Help: "Total value (absolute) of losing trades in USD",
	})

	// Daily return
	DailyReturn = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsetrader_daily_return",
		Help: "Daily return as a ratio",
	})

	// Weekly return
	WeeklyReturn = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsetrader_weekly_return",
		Help: "Weekly return as a ratio",
	})

	// Monthly return
	MonthlyReturn = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsetrader_monthly_return",
		Help: "Monthly return as a ratio",
	})

	// Sharpe ratio
	SharpeRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsetrader_sharpe_ratio",
		Help: "Sharpe ratio (risk-adjusted return)",
	})
)

// System Health Metrics
var (
	// Active trading sessions
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsetrader_active_sessions",
		Help: "Number of currently active trading sessions",
	})

	// Composition latency (one full pass through the filter stack)
	CompositionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulsetrader_composition_latency_ms",
		Help:    "Signal composition latency in milliseconds",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})

	// Database connections
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsetrader_database_connections_active",
		Help: "Number of active database connections",
	})

	DatabaseConnectionsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsetrader_database_connections_idle",
		Help: "Number of idle database connections",
	})

	// Redis cache hit rate
	RedisCacheHitRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsetrader_redis_cache_hit_rate",
		Help: "Redis cache hit rate as a ratio (0.0 to 1.0)",
	})

	// Redis operations
	RedisOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsetrader_redis_operations_total",
		Help: "Total number of Redis operations by type",
	}, []string{"operation"})

	// API request duration
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulsetrader_api_request_duration_ms",
		Help:    "API request duration in milliseconds",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"method", "path", "status_code"})

	// HTTP requests
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsetrader_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status_code"})

	// Errors
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsetrader_errors_total",
		Help: "Total number of errors by type",
	}, []string{"type", "component"})

	// Database query duration
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulsetrader_database_query_duration_ms",
		Help:    "Database query duration in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"query_type"})

	// NATS messages
	NATSMessagesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulsetrader_nats_messages_published_total",
		Help: "Total number of NATS messages published",
	})

	NATSMessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulsetrader_nats_messages_received_total",
		Help: "Total number of NATS messages received",
	})
)

// Signal Pipeline Metrics
var (
	// Candles ingested
	CandlesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsetrader_candles_ingested_total",
		Help: "Total number of finalized candles appended by timeframe",
	}, []string{"timeframe"})

	// Oracle call duration
	OracleCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulsetrader_oracle_call_duration_ms",
		Help:    "Pattern oracle call duration in milliseconds by kind",
		Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	}, []string{"kind"})

	// Oracle failures (timeout or malformed output, substituted with HOLD/0)
	OracleFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsetrader_oracle_failures_total",
		Help: "Total oracle calls that fell back to the HOLD/0 sentinel",
	}, []string{"kind"})

	// Signals composed
	SignalsComposed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsetrader_signals_composed_total",
		Help: "Total composed signals by direction and quality grade",
	}, []string{"direction", "grade"})

	// Signals rejected by the filter stack
	SignalsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsetrader_signals_rejected_total",
		Help: "Total filter-stack rejections by normalized reason",
	}, []string{"reason"})

	// Consensus patterns observed on primary closes
	ConsensusPatterns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsetrader_consensus_patterns_total",
		Help: "Total consensus patterns observed by token",
	}, []string{"pattern"})

	// Eligible agents on the last broadcast
	EligibleAgents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsetrader_eligible_agents",
		Help: "Number of agents that passed eligibility on the last broadcast",
	})

	// Active trading agents in the catalog
	ActiveTradingAgents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsetrader_active_trading_agents",
		Help: "Number of active agents in the catalog",
	})

	// Open positions by agent
	AgentOpenPositions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pulsetrader_agent_open_positions",
		Help: "Number of monitored open positions by agent",
	}, []string{"agent_id"})

	// Agent exclusions during broadcast
	AgentExclusions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsetrader_agent_exclusions_total",
		Help: "Total broadcast eligibility exclusions by reason",
	}, []string{"reason"})

	// Validation decisions
	ValidationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsetrader_validation_decisions_total",
		Help: "Total per-agent validation decisions by mode and outcome",
	}, []string{"mode", "outcome"})

	// Validation duration
	ValidationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulsetrader_validation_duration_ms",
		Help:    "Per-agent validation duration in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})

	// Validated-signal queue depth
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsetrader_validated_signal_queue_depth",
		Help: "Current depth of the validated-signal priority queue",
	})

	// Monitor exits
	MonitorExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsetrader_monitor_exits_total",
		Help: "Total monitor-driven exits by kind (full, partial)",
	}, []string{"kind"})
)

// Circuit Breaker Metrics
var (
	// Circuit breaker status (1 = active, 0 = inactive)
	CircuitBreakerStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pulsetrader_circuit_breaker_status",
		Help: "Circuit breaker status (1 = active/tripped, 0 = inactive)",
	}, []string{"breaker_type"})

	// Circuit breaker trips
	CircuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsetrader_circuit_breaker_trips_total",
		Help: "Total number of circuit breaker trips",
	}, []string{"breaker_type", "reason"})
)

// Audit Metrics
var (
	// Audit log operations
	AuditLogOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsetrader_audit_log_operations_total",
		Help: "Total number of audit log operations by event type and status",
	}, []string{"event_type", "status"})

	// Audit log failures
	AuditLogFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsetrader_audit_log_failures_total",
		Help: "Total number of audit log failures by error type",
	}, []string{"error_type", "event_type"})

	// Audit log latency
	AuditLogLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulsetrader_audit_log_latency_ms",
		Help:    "Audit log operation latency in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})
)

// Exchange Metrics
var (
	// Exchange API latency
	ExchangeAPILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulsetrader_exchange_api_latency_ms",
		Help:    "Exchange API latency in milliseconds",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"exchange", "endpoint"})

	// Exchange API errors
	ExchangeAPIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsetrader_exchange_api_errors_total",
		Help: "Total exchange API errors",
	}, []string{"exchange", "error_type"})

	// Order execution latency
	OrderExecutionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulsetrader_order_execution_latency_ms",
		Help:    "Order execution latency in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2500, 5000},
	})
)

// Vault Metrics
var (
	// Vault request latency
	VaultRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulsetrader_vault_request_duration_ms",
		Help:    "Vault request duration in milliseconds",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	// Vault request failures
	VaultRequestFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulsetrader_vault_request_failures_total",
		Help: "Total number of failed Vault requests",
	})

	// Vault cache hits/misses
	VaultCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulsetrader_vault_cache_hits_total",
		Help: "Total number of Vault secret cache hits",
	})

	VaultCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulsetrader_vault_cache_misses_total",
		Help: "Total number of Vault secret cache misses",
	})

	// Vault cache size
	VaultCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsetrader_vault_cache_size",
		Help: "Number of secrets currently held in the Vault cache",
	})
)

// Helper functions to update metrics

// UpdateDatabaseConnections updates database connection metrics
func UpdateDatabaseConnections(active, idle int32) {
	DatabaseConnectionsActive.Set(float64(active))
	DatabaseConnectionsIdle.Set(float64(idle))
}

// RecordAPIRequest records an API request with duration
func RecordAPIRequest(method, path, statusCode string, durationMs float64) {
	APIRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationMs)
	HTTPRequests.WithLabelValues(method, path, statusCode).Inc()
}

// RecordError records an error
func RecordError(errorType, component string) {
	Errors.WithLabelValues(errorType, component).Inc()
}

// RecordDatabaseQuery records a database query
func RecordDatabaseQuery(queryType string, durationMs float64) {
	DatabaseQueryDuration.WithLabelValues(queryType).Observe(durationMs)
}

// RecordCandleIngested records a finalized candle appended to a window
func RecordCandleIngested(timeframe string) {
	CandlesIngested.WithLabelValues(timeframe).Inc()
}

// RecordOracleCall records a pattern oracle invocation
func RecordOracleCall(kind string, durationMs float64, failed bool) {
	OracleCallDuration.WithLabelValues(kind).Observe(durationMs)
	if failed {
		OracleFailures.WithLabelValues(kind).Inc()
	}
}

// RecordSignalComposed records an emitted signal
func RecordSignalComposed(direction, grade string) {
	SignalsComposed.WithLabelValues(direction, grade).Inc()
}

// RecordSignalRejected records a filter-stack rejection with normalized reason
func RecordSignalRejected(reason string) {
	SignalsRejected.WithLabelValues(NormalizeRejectionReason(reason)).Inc()
}

// RecordConsensusPattern records the consensus token observed on a primary close
func RecordConsensusPattern(pattern string) {
	ConsensusPatterns.WithLabelValues(pattern).Inc()
}

// UpdateEligibleAgents updates the eligible-agent count from the last broadcast
func UpdateEligibleAgents(count int) {
	EligibleAgents.Set(float64(count))
}

// RecordAgentExclusion records a broadcast eligibility exclusion
func RecordAgentExclusion(reason string) {
	AgentExclusions.WithLabelValues(reason).Inc()
}

// RecordValidationDecision records a per-agent validation decision
func RecordValidationDecision(mode, outcome string, durationMs float64) {
	ValidationDecisions.WithLabelValues(mode, outcome).Inc()
	ValidationDuration.Observe(durationMs)
}

// UpdateQueueDepth updates the validated-signal queue depth
func UpdateQueueDepth(depth int) {
	QueueDepth.Set(float64(depth))
}

// RecordMonitorExit records a monitor-driven exit
func RecordMonitorExit(kind string) {
	MonitorExits.WithLabelValues(kind).Inc()
}

// RecordTrade records a completed trade
func RecordTrade(profitLoss float64) {
	TotalTrades.Inc()
	if profitLoss > 0 {
		WinningTradesValue.Add(profitLoss)
	} else {
		LosingTradesValue.Add(-profitLoss) // Store absolute value
	}
}

// UpdatePositionValue updates position value for a symbol
func UpdatePositionValue(symbol string, value float64) {
	PositionValueBySymbol.WithLabelValues(symbol).Set(value)
}

// RecordRedisOperation records a Redis operation
func RecordRedisOperation(operation string) {
	RedisOperations.WithLabelValues(operation).Inc()
}

// UpdateCircuitBreaker updates circuit breaker status
func UpdateCircuitBreaker(breakerType string, active bool) {
	status := 0.0
	if active {
		status = 1.0
	}
	CircuitBreakerStatus.WithLabelValues(breakerType).Set(status)
}

// RecordCircuitBreakerTrip records a circuit breaker trip with normalized reason
func RecordCircuitBreakerTrip(breakerType, reason string) {
	normalizedReason := NormalizeCircuitBreakerReason(reason)
	CircuitBreakerTrips.WithLabelValues(breakerType, normalizedReason).Inc()
}

// RecordExchangeAPICall records an exchange API call with normalized error category
func RecordExchangeAPICall(exchange, endpoint string, durationMs float64, err error) {
	ExchangeAPILatency.WithLabelValues(exchange, endpoint).Observe(durationMs)
	if err != nil {
		errorCategory := NormalizeExchangeError(err)
		ExchangeAPIErrors.WithLabelValues(exchange, errorCategory).Inc()
	}
}

// RecordOrderExecution records order execution latency
func RecordOrderExecution(durationMs float64) {
	OrderExecutionLatency.Observe(durationMs)
}

// UpdateActiveSessions updates the number of active trading sessions
func UpdateActiveSessions(count int) {
	ActiveSessions.Set(float64(count))
}

// RecordCompositionLatency records one pass through the filter stack
func RecordCompositionLatency(durationMs float64) {
	CompositionLatency.Observe(durationMs)
}

// RecordAuditLog records an audit log operation
func RecordAuditLog(eventType string, success bool, durationMs float64) {
	status := "success"
	if !success {
		status = "failure"
	}
	AuditLogOperations.WithLabelValues(eventType, status).Inc()
	AuditLogLatency.Observe(durationMs)
}

// RecordAuditLogFailure records an audit log failure with error type
func RecordAuditLogFailure(errorType, eventType string) {
	AuditLogFailures.WithLabelValues(errorType, eventType).Inc()
}

// RecordVaultRequest records a Vault request with its outcome
func RecordVaultRequest(durationMs float64, err error) {
	VaultRequestDuration.Observe(durationMs)
	if err != nil {
		VaultRequestFailures.Inc()
	}
}

// RecordVaultCacheHit records a Vault secret cache hit
func RecordVaultCacheHit() {
	VaultCacheHits.Inc()
}

// RecordVaultCacheMiss records a Vault secret cache miss
func RecordVaultCacheMiss() {
	VaultCacheMisses.Inc()
}

// UpdateVaultCacheSize updates the Vault cache size gauge
func UpdateVaultCacheSize(size int) {
	VaultCacheSize.Set(float64(size))
}
