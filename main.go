// Package main wires together the supervisor's components and runs them
// until a process-level interrupt or an unrecoverable component error
// triggers a coordinated shutdown.
//
// Grounded on the teacher's roboserver/main.go: a context-scoped set of
// components each started in its own goroutine, a signal.Notify-driven
// shutdown select, and a bounded wait for every goroutine to settle before
// exit. This version replaces the teacher's fixed HTTP/MQTT/TCP/terminal
// quartet with the supervisor's own component set (discovery, arena,
// journal, UI) but keeps the same startup/shutdown shape.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"swarmctl/internal/agent"
	"swarmctl/internal/arena"
	"swarmctl/internal/config"
	"swarmctl/internal/discovery"
	"swarmctl/internal/eventbus"
	"swarmctl/internal/journal"
	"swarmctl/internal/logging"
	"swarmctl/internal/pool"
	"swarmctl/internal/robot"
	"swarmctl/internal/robot/drone"
	"swarmctl/internal/robot/ground"
	"swarmctl/internal/ui"

	"github.com/google/uuid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	logging.Enabled = cfg.Debug

	logging.Debugf("supervisor reachable on:")
	for _, ip := range config.LocalIPs() {
		logging.Debugf("  %s", ip)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := eventbus.New()

	addrPool := pool.New()
	seeded, err := addrPool.SeedCIDR(cfg.DiscoveryCIDR)
	if err != nil {
		panic(fmt.Sprintf("pool: seed %s: %v", cfg.DiscoveryCIDR, err))
	}
	logging.Debugf("pool: seeded %d addresses from %s", seeded, cfg.DiscoveryCIDR)

	j := journal.New(cfg.JournalCapacity)
	journal.Attach(bus, j)

	a := arena.New(addrPool, bus)

	discCfg := discovery.DefaultConfig()
	discCfg.RadioPort = cfg.RadioPort
	discCfg.AgentPort = cfg.AgentPort
	discCfg.TRadio = cfg.DiscoveryDialTimeout
	discCfg.TAgent = cfg.DiscoveryDialTimeout
	discCfg.DRetry = cfg.DiscoveryRetryDelay
	discCfg.Concurrency = cfg.DiscoveryConcurrency
	engine := discovery.New(addrPool, discCfg)

	uiServer := ui.New(a, cfg.UIAddr)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
			logging.Errorf(fmt.Errorf("discovery: %w", err))
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		admitDiscovered(ctx, engine, a, addrPool, cfg)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := uiServer.Start(ctx); err != nil {
			logging.Errorf(fmt.Errorf("ui: %w", err))
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := runRouterStub(ctx, cfg.RouterAddr); err != nil {
			logging.Errorf(fmt.Errorf("router: %w", err))
			cancel()
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		logging.Debugf("context cancelled, shutting down")
	case <-sigs:
		logging.Debugf("received termination signal, shutting down")
	}

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Debugf("all components shut down gracefully")
	case <-time.After(60 * time.Second):
		logging.Debugf("timeout waiting for components to shut down, forcing exit")
	}
}

// admitDiscovered drains the probe engine's classified devices and admits
// each into the arena as a drone (radio-link, paired with a best-effort
// agent dial to complete its second leg) or a ground robot (agent-link
// only), per spec.md §4.4's two closed kinds. Each admitted robot gets a
// freshly minted id; a device that cannot be admitted has its address
// released back to the pool.
func admitDiscovered(ctx context.Context, engine *discovery.Engine, a *arena.Arena, addrPool *pool.Pool, cfg config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case dev, ok := <-engine.Devices:
			if !ok {
				return
			}
			ctrl, err := controllerFor(ctx, dev, cfg)
			if err != nil {
				logging.Errorf(fmt.Errorf("admit %s: %w", dev.Addr, err))
				addrPool.Release(dev.Addr)
				continue
			}
			if err := a.AddRobot(ctx, uuid.New().String(), dev.Addr, ctrl); err != nil {
				logging.Errorf(fmt.Errorf("admit %s: %w", dev.Addr, err))
				ctrl.Close()
				addrPool.Release(dev.Addr)
			}
		}
	}
}

// runRouterStub holds open the controller-rendezvous port named in
// spec.md §6.3. The ad-hoc message-router protocol robot controllers
// speak over it at runtime is an out-of-scope external collaborator
// (spec.md §1); this supervisor only needs to accept and immediately
// drop connections so the port is never left refusing them.
func runRouterStub(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		conn.Close()
	}
}

func controllerFor(ctx context.Context, dev discovery.Device, cfg config.Config) (robot.Controller, error) {
	switch dev.Kind {
	case discovery.KindRadioLink:
		agentAddr := net.JoinHostPort(dev.Addr, fmt.Sprint(cfg.AgentPort))
		agentDev, err := agent.DialWithTimeout(agentAddr, cfg.DiscoveryDialTimeout)
		if err != nil {
			dev.Radio.Close()
			return nil, fmt.Errorf("dial companion agent: %w", err)
		}
		return drone.New(dev.Radio, agentDev), nil
	case discovery.KindAgentLink:
		return ground.New(dev.Agent), nil
	default:
		return nil, fmt.Errorf("unknown device kind %q", dev.Kind)
	}
}
