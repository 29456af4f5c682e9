package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"skyrelay/store"
)

func main() {
	// Check for CLI subcommands before parsing server flags, mirroring the
	// default config path a bare invocation would use.
	if len(os.Args) > 1 {
		cliCfg, err := LoadConfig("config.toml")
		if err != nil {
			log.Fatalf("[config] %v", err)
		}
		if RunCLI(os.Args[1:], cliCfg) {
			return
		}
	}

	configPath := flag.String("config", "config.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("[config] %v", err)
	}

	st, err := store.New(cfg.AuditDBPath)
	if err != nil {
		log.Fatalf("[store] %v", err)
	}
	defer st.Close()

	listenAddr := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
	tlsConfig, fingerprint, err := generateTLSConfig(time.Duration(cfg.CertValidityH)*time.Hour, cfg.ListenAddress)
	if err != nil {
		log.Fatalf("[tls] %v", err)
	}
	log.Printf("[tls] certificate fingerprint: %s", fingerprint)

	host := NewTransportHost(listenAddr, tlsConfig)
	shuttle := NewPacketShuttle(host, 256)
	engine := NewStreamEngine(NewStaticTextureSource(), shuttle)

	sink := NewKeystrokeSink()
	resolver := NewKeybindingResolver(sink)

	provider := NewConfigStringProvider(cfg.KeyfilePath)
	watcher := NewKeyfileWatcher(provider, DefaultKeyfileParser{}, resolver)
	if cfg.KeyfilePollMS > 0 {
		watcher.PollInterval = time.Duration(cfg.KeyfilePollMS) * time.Millisecond
	}
	watcher.OnReload = func(source string, hash uint64, entries int) {
		if err := st.RecordReload(source, fmt.Sprintf("%x", hash), entries); err != nil {
			log.Printf("[audit] record reload: %v", err)
		}
	}

	dispatcher := NewDispatcher(host, engine, resolver)
	dispatcher.OnConnect = func(peer PeerID) {
		if err := st.RecordConnect(int64(peer), ""); err != nil {
			log.Printf("[audit] record connect: %v", err)
		}
	}
	dispatcher.OnDisconnect = func(peer PeerID) {
		if err := st.RecordDisconnect(int64(peer)); err != nil {
			log.Printf("[audit] record disconnect: %v", err)
		}
	}
	dispatcher.OnResolve = func(peer PeerID, name string, resolved bool) {
		if err := st.RecordResolve(int64(peer), name, resolved); err != nil {
			log.Printf("[audit] record resolve: %v", err)
		}
	}

	broadcast, err := NewBroadcastListener(cfg.ListenAddress, cfg.BroadcastPort)
	if err != nil {
		log.Fatalf("[broadcast] %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Println("[server] shutting down...")
		cancel()
	}()

	go func() {
		if err := host.Run(ctx); err != nil {
			log.Fatalf("[transport] %v", err)
		}
	}()
	go shuttle.Run()
	go engine.Run(ctx)
	go watcher.Run(ctx)
	go dispatcher.Run(ctx)
	go broadcast.Run(ctx)
	go RunMetrics(ctx, host, engine, 5*time.Second)

	if cfg.AdminAddress != "" {
		api := NewAPIServer(host, engine, resolver, watcher, st)
		go api.Run(ctx, cfg.AdminAddress)
		log.Printf("[api] listening on %s", cfg.AdminAddress)
	}

	log.Printf("[server] bridge listening on %s (broadcast port %d)", listenAddr, cfg.BroadcastPort)
	<-ctx.Done()
	shuttle.Stop()
	_ = host.Close()
	_ = broadcast.Close()
}
