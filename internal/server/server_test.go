package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/collapse/internal/config"
	"github.com/zeusync/collapse/internal/core/events/bus"
	"github.com/zeusync/collapse/internal/core/observability/log"
	"github.com/zeusync/collapse/internal/core/simulation"
	"github.com/zeusync/collapse/internal/render"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	cfg := config.Default()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.FrameInterval = time.Millisecond
	cfg.Seed = 1

	logger := log.NewNop()
	hub := NewHub(cfg, logger)
	stream, err := render.NewStream(hub, logger)
	require.NoError(t, err)

	events := bus.New()
	_, err = events.SubscribeAll(stream.OnEvent)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	sim := simulation.NewContext(stream, rng, events, logger)
	clock := simulation.NewClock(sim, logger)
	sched := simulation.NewFrameScheduler(cfg.FrameInterval, logger)

	srv := NewServer(cfg, logger, sim, clock, sched, stream, hub)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Close() })

	return srv, srv.Addr().String()
}

func post(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

func getState(t *testing.T, addr string) stateResponse {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("http://%s/api/state", addr))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state stateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	return state
}

func TestControlAPI(t *testing.T) {
	_, addr := newTestServer(t)
	base := "http://" + addr

	resp, _ := post(t, base+"/api/test")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body := post(t, base+"/api/building?material=glass")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "invalid material kind")

	resp, _ = post(t, base+"/api/building")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = post(t, base+"/api/building?material=steel")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "steel", body["material"])
	assert.Equal(t, 1.0, body["strength"])
	assert.NotEmpty(t, body["buildingId"])

	resp, _ = post(t, base+"/api/test")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		s := getState(t, addr)
		return s.Simulation.Phase == "idle" && s.Clock.Ticks > 100
	}, 5*time.Second, 10*time.Millisecond)

	state := getState(t, addr)
	assert.True(t, state.Simulation.Alive)
	assert.Equal(t, "steel", state.Simulation.Material)
	assert.Zero(t, state.Simulation.Debris)
}

func readEnvelope(t *testing.T, conn *websocket.Conn) render.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var env render.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestWebSocketStream(t *testing.T) {
	srv, addr := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws", addr), nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readEnvelope(t, conn)
	assert.Equal(t, render.MessageScene, first.Type)
	require.Eventually(t, func() bool { return srv.hub.Len() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, conn.WriteJSON(ControlMessage{Action: "build", Material: "wood"}))

	var (
		gotReply, gotBuilt, gotFrame bool
	)
	for !(gotReply && gotBuilt && gotFrame) {
		env := readEnvelope(t, conn)
		switch env.Type {
		case messageReply:
			var reply controlReply
			require.NoError(t, json.Unmarshal(env.Data, &reply))
			assert.Equal(t, "build", reply.Action)
			assert.True(t, reply.OK)
			gotReply = true
		case render.MessageEvent:
			if env.Event == simulation.EventBuildingBuilt {
				gotBuilt = true
			}
		case render.MessageFrame:
			var frame render.Frame
			require.NoError(t, json.Unmarshal(env.Data, &frame))
			if len(frame.Buildings) == 1 {
				assert.Equal(t, "wood", frame.Buildings[0].Material.String())
				gotFrame = true
			}
		}
	}

	require.NoError(t, conn.WriteJSON(ControlMessage{Action: "explode"}))
	for {
		env := readEnvelope(t, conn)
		if env.Type != messageReply {
			continue
		}
		var reply controlReply
		require.NoError(t, json.Unmarshal(env.Data, &reply))
		assert.False(t, reply.OK)
		assert.Contains(t, reply.Error, "unknown action")
		break
	}
}

func TestServerLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	assert.ErrorIs(t, srv.Start(context.Background()), ErrServerAlreadyRunning)
	require.NoError(t, srv.Stop(context.Background()))
	assert.ErrorIs(t, srv.Stop(context.Background()), ErrServerNotRunning)

	require.NoError(t, srv.Close())
	assert.ErrorIs(t, srv.Start(context.Background()), ErrServerClosed)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(simulation.ErrSchedulerStopped))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(context.Canceled))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
