package injector

import (
	"math/rand/v2"
	"time"

	"github.com/google/wire"

	"github.com/zeusync/collapse/internal/config"
	"github.com/zeusync/collapse/internal/core/collapse"
	"github.com/zeusync/collapse/internal/core/events/bus"
	"github.com/zeusync/collapse/internal/core/observability/log"
	"github.com/zeusync/collapse/internal/core/simulation"
	"github.com/zeusync/collapse/internal/core/systems/physics"
	"github.com/zeusync/collapse/internal/render"
	"github.com/zeusync/collapse/internal/server"
)

// Headless is a simulation without a server, driven by hand.
type Headless struct {
	Sim    *simulation.Context
	Clock  *simulation.Clock
	Stream *render.Stream
	Logger log.Log
}

var commonSet = wire.NewSet(
	ProvideLogger,
	ProvideEventBus,
	ProvideRandom,
	ProvideSimulation,
	simulation.NewClock,
	wire.Bind(new(simulation.Renderer), new(*render.Stream)),
)

var ServerSet = wire.NewSet(
	commonSet,
	server.NewHub,
	wire.Bind(new(render.Publisher), new(*server.Hub)),
	ProvideStream,
	ProvideFrameScheduler,
	server.NewServer,
)

var HeadlessSet = wire.NewSet(
	commonSet,
	ProvideHeadlessStream,
	wire.Struct(new(Headless), "*"),
)

func ProvideLogger(cfg config.Config) (log.Log, func()) {
	logger := log.New(cfg.Level())
	return logger, func() { _ = logger.Sync() }
}

func ProvideEventBus(logger log.Log) bus.EventBus {
	b := bus.New()
	b.AddObserver(&logObserver{logger: logger.With(log.String("component", "bus"))})
	return b
}

func ProvideRandom(cfg config.Config) physics.Source {
	seed := cfg.ResolvedSeed()
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func ProvideStream(pub render.Publisher, logger log.Log, events bus.EventBus) (*render.Stream, error) {
	stream, err := render.NewStream(pub, logger)
	if err != nil {
		return nil, err
	}
	if _, err = events.SubscribeAll(stream.OnEvent); err != nil {
		return nil, err
	}
	return stream, nil
}

// ProvideHeadlessStream keeps frames in memory only.
func ProvideHeadlessStream(logger log.Log) (*render.Stream, error) {
	return render.NewStream(nil, logger)
}

func ProvideSimulation(
	renderer simulation.Renderer,
	rng physics.Source,
	events bus.EventBus,
	logger log.Log,
	cfg config.Config,
) *simulation.Context {
	return simulation.NewContext(renderer, rng, events, logger, collapse.WithDebrisCount(cfg.DebrisCount))
}

func ProvideFrameScheduler(cfg config.Config, logger log.Log) *simulation.FrameScheduler {
	return simulation.NewFrameScheduler(cfg.FrameInterval, logger)
}

type logObserver struct {
	logger log.Log
}

func (o *logObserver) OnPublish(string, bus.Event) {}

func (o *logObserver) OnDelivered(eventType string, handlers int, err error, took time.Duration) {
	if err != nil {
		o.logger.Warn("Event delivery failed",
			log.String("event", eventType),
			log.Int("handlers", handlers),
			log.Error(err))
		return
	}
	o.logger.Debug("Event delivered",
		log.String("event", eventType),
		log.Int("handlers", handlers),
		log.Duration("took", took))
}
