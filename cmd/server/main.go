package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/collapse/internal/config"
	"github.com/zeusync/collapse/internal/core/observability/log"
	"github.com/zeusync/collapse/internal/core/simulation"
	"github.com/zeusync/collapse/internal/injector"
)

// maxHeadlessTicks bounds a headless run; a full collapse takes well under it.
const maxHeadlessTicks = 10_000

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	headless := flag.Bool("headless", false, "run a single strength test without serving")
	material := flag.String("material", "wood", "building material for -headless")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	if *headless {
		if err = runHeadless(cfg, *material); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, cleanup, err := injector.InitializeServer(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error creating server:", err)
		os.Exit(1)
	}
	defer cleanup()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)

	if err = srv.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error starting server:", err)
		return
	}

	<-stopCh
	cancel()
	if err = srv.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "Error stopping server:", err)
	}
}

func runHeadless(cfg config.Config, material string) error {
	h, cleanup, err := injector.InitializeHeadless(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err = h.Sim.Build(material); err != nil {
		return err
	}
	if err = h.Sim.RunStrengthTest(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := simulation.NewManualScheduler()
	h.Clock.Run(ctx, sched)

	seq := h.Sim.Sequencer()
	debris := h.Sim.Debris()
	for i := 0; i < maxHeadlessTicks && sched.Step(); i++ {
		if !seq.Running() && debris.SettledCount() == debris.Len() {
			break
		}
	}

	snap := h.Sim.Snapshot()
	m := h.Clock.Metrics()
	h.Logger.Info("Headless test finished",
		log.String("material", snap.Material),
		log.String("phase", snap.Phase),
		log.Bool("standing", snap.Alive),
		log.Int("debris", snap.Debris),
		log.Uint64("ticks", m.TickCount),
		log.Duration("avg_tick", m.AverageTickTime))
	return nil
}
