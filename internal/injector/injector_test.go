package injector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/collapse/internal/config"
	"github.com/zeusync/collapse/internal/core/collapse"
	"github.com/zeusync/collapse/internal/core/simulation"
)

func TestInitializeHeadlessRunsATest(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = 3
	cfg.LogLevel = "error"

	h, cleanup, err := InitializeHeadless(cfg)
	require.NoError(t, err)
	defer cleanup()

	_, err = h.Sim.Build("steel")
	require.NoError(t, err)
	require.NoError(t, h.Sim.RunStrengthTest())

	sched := simulation.NewManualScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Clock.Run(ctx, sched)
	sched.StepN(collapse.ShakeTicks + 1)

	assert.Equal(t, collapse.StateIdle, h.Sim.Sequencer().State())
	assert.NotNil(t, h.Stream.Latest())
}

func TestInitializeServer(t *testing.T) {
	cfg := config.Default()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.LogLevel = "error"

	srv, cleanup, err := InitializeServer(cfg)
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, srv.Start(context.Background()))
	assert.NotNil(t, srv.Addr())
	require.NoError(t, srv.Stop(context.Background()))
}
