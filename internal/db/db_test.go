package db

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a test database connection
// Skips test if DATABASE_URL is not set
func setupTestDB(t *testing.T) (*DB, func()) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("Skipping database test: DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := New(ctx)
	if err != nil {
		t.Skipf("Skipping database test: failed to connect: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return db, cleanup
}

func TestNew(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	assert.NotNil(t, db)
	assert.NotNil(t, db.Pool())
}

func TestClose(t *testing.T) {
	db, _ := setupTestDB(t)

	// Close doesn't return error
	db.Close()
}

func TestPing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	err := db.Ping(ctx)
	assert.NoError(t, err)
}

func TestPool(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	pool := db.Pool()
	assert.NotNil(t, pool)
}

func TestHealth(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	err := db.Health(ctx)
	assert.NoError(t, err)
}

// TestGetTradingAgent tests retrieving a trading agent
func TestGetTradingAgent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	agentID := "test-agent-" + uuid.New().String()[:8]

	// First, upsert an agent
	err := db.UpsertTradingAgent(ctx, &TradingAgent{
		ID:                        agentID,
		Name:                      "conservative-spot",
		IsActive:                  true,
		Category:                  "spot",
		RiskLevel:                 2,
		Budget:                    1000,
		AllowedCategories:         []string{"spot"},
		MinConfidence:             70,
		MaxOpenPositions:          2,
		EnableExpensiveValidation: true,
		Broker:                    "binance",
	})
	require.NoError(t, err)

	// Now get it
	agent, err := db.GetTradingAgent(ctx, agentID)
	require.NoError(t, err)
	require.NotNil(t, agent)

	assert.Equal(t, agentID, agent.ID)
	assert.Equal(t, "conservative-spot", agent.Name)
	assert.Equal(t, "spot", agent.Category)
	assert.True(t, agent.IsActive)
	assert.Equal(t, 70.0, agent.MinConfidence)
}

func TestGetTradingAgent_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	agent, err := db.GetTradingAgent(ctx, "non-existent-agent")

	// Should return error for not found
	assert.Error(t, err)
	assert.Nil(t, agent)
}

func TestGetAllTradingAgents(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	// Insert multiple agents
	agent1 := "test-agent-1-" + uuid.New().String()[:8]
	agent2 := "test-agent-2-" + uuid.New().String()[:8]

	err := db.UpsertTradingAgent(ctx, &TradingAgent{
		ID: agent1, Name: "a1", IsActive: true, Category: "spot",
		RiskLevel: 3, Budget: 500, MinConfidence: 60, MaxOpenPositions: 3, Broker: "binance",
	})
	require.NoError(t, err)

	err = db.UpsertTradingAgent(ctx, &TradingAgent{
		ID: agent2, Name: "a2", IsActive: false, Category: "swing",
		RiskLevel: 4, Budget: 2500, MinConfidence: 55, MaxOpenPositions: 5, Broker: "binance",
	})
	require.NoError(t, err)

	// Get the population
	agents, err := db.GetAllTradingAgents(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(agents), 2)

	// Verify our test agents are in the list
	foundAgent1 := false
	foundAgent2 := false
	for _, agent := range agents {
		if agent.ID == agent1 {
			foundAgent1 = true
		}
		if agent.ID == agent2 {
			foundAgent2 = true
		}
	}
	assert.True(t, foundAgent1, "Should find agent1")
	assert.True(t, foundAgent2, "Should find agent2")
}

func TestUpsertTradingAgent_PreservesActivation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	agentID := "test-agent-" + uuid.New().String()[:8]

	// Insert
	err := db.UpsertTradingAgent(ctx, &TradingAgent{
		ID: agentID, Name: "a", IsActive: true, Category: "spot",
		RiskLevel: 3, Budget: 500, MinConfidence: 60, MaxOpenPositions: 3, Broker: "binance",
	})
	require.NoError(t, err)

	// An operator disables the agent out of band.
	require.NoError(t, db.SetTradingAgentActive(ctx, agentID, false))

	// Re-seeding (same id, active in config) must not re-enable it.
	err = db.UpsertTradingAgent(ctx, &TradingAgent{
		ID: agentID, Name: "a", IsActive: true, Category: "spot",
		RiskLevel: 4, Budget: 750, MinConfidence: 65, MaxOpenPositions: 3, Broker: "binance",
	})
	require.NoError(t, err)

	agent, err := db.GetTradingAgent(ctx, agentID)
	require.NoError(t, err)
	assert.False(t, agent.IsActive, "manual disable must survive re-seeding")
	assert.Equal(t, 4, agent.RiskLevel, "non-activation fields update on re-seed")
	assert.Equal(t, 750.0, agent.Budget)
}
