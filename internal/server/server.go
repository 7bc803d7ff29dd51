package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/collapse/internal/config"
	"github.com/zeusync/collapse/internal/core/collapse"
	"github.com/zeusync/collapse/internal/core/observability/log"
	"github.com/zeusync/collapse/internal/core/simulation"
	"github.com/zeusync/collapse/internal/render"
)

const shutdownTimeout = 5 * time.Second

// Server hosts the simulation: it runs the frame loop, accepts control
// requests and streams frames to viewers.
type Server struct {
	config config.Config
	logger log.Log

	sim       *simulation.Context
	clock     *simulation.Clock
	scheduler *simulation.FrameScheduler
	stream    *render.Stream
	hub       *Hub

	httpServer *http.Server
	listener   net.Listener

	running int32 // atomic bool
	closed  int32 // atomic bool

	mu     sync.Mutex
	group  *errgroup.Group
	cancel context.CancelFunc
}

func NewServer(
	cfg config.Config,
	logger log.Log,
	sim *simulation.Context,
	clock *simulation.Clock,
	scheduler *simulation.FrameScheduler,
	stream *render.Stream,
	hub *Hub,
) *Server {
	s := &Server{
		config:    cfg,
		logger:    logger.With(log.String("component", "server")),
		sim:       sim,
		clock:     clock,
		scheduler: scheduler,
		stream:    stream,
		hub:       hub,
	}
	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Server created",
		log.String("listen_addr", cfg.ListenAddr),
		log.Duration("frame_interval", cfg.FrameInterval))

	return s
}

// Start binds the listener and starts the frame loop and the HTTP server.
// It returns once both are running.
func (s *Server) Start(ctx context.Context) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		atomic.StoreInt32(&s.running, 0)
		s.logger.Error("Failed to create listener", log.Error(err))
		return err
	}
	s.listener = listener

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		return s.scheduler.Run(groupCtx)
	})
	s.clock.Run(groupCtx, s.scheduler)

	group.Go(func() error {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		s.hub.CloseAll()
		return s.httpServer.Shutdown(shutdownCtx)
	})

	s.mu.Lock()
	s.group = group
	s.cancel = cancel
	s.mu.Unlock()

	if s.config.InitialMaterial != "" {
		if _, err := s.build(ctx, s.config.InitialMaterial); err != nil {
			s.logger.Warn("Initial building failed", log.Error(err))
		}
	}

	s.logger.Info("Server listening", log.String("addr", listener.Addr().String()))
	return nil
}

// Stop shuts the server down and waits for the frame loop and the HTTP
// server to exit.
func (s *Server) Stop(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return ErrServerNotRunning
	}

	s.logger.Info("Stopping server")

	s.mu.Lock()
	cancel, group := s.cancel, s.group
	s.mu.Unlock()

	cancel()
	err := group.Wait()

	m := s.clock.Metrics()
	published, skipped := s.stream.Stats()
	s.logger.Info("Server stopped",
		log.Uint64("ticks", m.TickCount),
		log.Duration("avg_tick", m.AverageTickTime),
		log.Uint64("frames_published", published),
		log.Uint64("frames_skipped", skipped))

	return err
}

// Close stops the server if needed. A closed server cannot be restarted.
func (s *Server) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	if atomic.LoadInt32(&s.running) == 1 {
		return s.Stop(context.Background())
	}
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// build and runTest marshal commands onto the frame goroutine.

func (s *Server) build(ctx context.Context, material string) (collapse.BuildingProxy, error) {
	var (
		built collapse.BuildingProxy
		err   error
	)
	postErr := s.scheduler.Post(ctx, func() {
		var b *collapse.BuildingProxy
		if b, err = s.sim.Build(material); err == nil {
			built = *b
		}
	})
	if postErr != nil {
		return collapse.BuildingProxy{}, postErr
	}
	return built, err
}

func (s *Server) runTest(ctx context.Context) error {
	var err error
	if postErr := s.scheduler.Post(ctx, func() { err = s.sim.RunStrengthTest() }); postErr != nil {
		return postErr
	}
	return err
}

func (s *Server) snapshot(ctx context.Context) (simulation.Snapshot, error) {
	var snap simulation.Snapshot
	err := s.scheduler.Post(ctx, func() { snap = s.sim.Snapshot() })
	return snap, err
}
