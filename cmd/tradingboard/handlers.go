package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/CGeorges/tradingboard/internal/config"
	"github.com/CGeorges/tradingboard/internal/scheduler"
	"github.com/CGeorges/tradingboard/internal/service"
	"github.com/CGeorges/tradingboard/internal/store"
	"github.com/CGeorges/tradingboard/pkg/client"
	"github.com/CGeorges/tradingboard/pkg/notify"
	"github.com/CGeorges/tradingboard/pkg/server"
	"github.com/CGeorges/tradingboard/pkg/state"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildSynchronizer(cfg *config.Config) *client.Synchronizer {
	remote := client.NewRemote(cfg.Client.APIBaseURL, cfg.Client.ParseTimeout())
	cache := client.NewCache(cfg.Client.CachePath)
	notifier := notify.NewManager(notify.NewLogSink(log.New(os.Stderr, "[notify] ", log.LstdFlags)))
	return client.New(remote, cache, notifier, nil)
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := server.New(service.New(db), db, port, cfg.Server.CORSOrigins)
	return srv.ListenAndServe(ctx)
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Flush pending client writes in the background next to the server.
	sync := buildSynchronizer(cfg)
	sched := scheduler.New(sync, cfg.Sync.ParseFlushInterval())
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "scheduler error: %v\n", err)
		}
	}()

	srv := server.New(service.New(db), db, port, cfg.Server.CORSOrigins)
	return srv.ListenAndServe(ctx)
}

func runList(jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	remote := client.NewRemote(cfg.Client.APIBaseURL, cfg.Client.ParseTimeout())
	lists, err := remote.LoadAll(context.Background())
	if err != nil {
		return fmt.Errorf("load watchlists: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(lists)
	}

	if len(lists) == 0 {
		fmt.Println("no watchlists found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSYMBOLS\tPINNED\tDEFAULT\tUPDATED")
	for _, wl := range lists {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%v\t%s\n",
			wl.ID, wl.Name, len(wl.Symbols), len(wl.PinnedSymbols),
			wl.IsDefault, wl.UpdatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runSymbol(action string, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	sync := buildSynchronizer(cfg)

	// Synchronous persistence: the command exits right after the mutation.
	st := state.NewStore(sync)
	st.Load(sync.Bootstrap(ctx))

	var ok bool
	switch action {
	case "add":
		ok = st.AddSymbol(ctx, args[0], args[1])
	case "remove":
		ok = st.RemoveSymbol(ctx, args[0], args[1])
	case "pin":
		ok = st.Pin(ctx, args[0], args[1])
	case "unpin":
		ok = st.Unpin(ctx, args[0], args[1])
	case "move":
		ok = st.MoveSymbol(ctx, args[0], args[1], args[2])
	}
	if !ok {
		return fmt.Errorf("%s: no change (unknown watchlist or symbol already in that state)", action)
	}

	if pending := sync.PendingCount(); pending > 0 {
		fmt.Fprintf(os.Stderr, "%d writes pending, run `tradingboard sync` to retry\n", pending)
	}
	return nil
}

func runSync() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sync := buildSynchronizer(cfg)
	lists := sync.Bootstrap(context.Background())
	fmt.Fprintf(os.Stderr, "resolved %d watchlists\n", len(lists))

	if pending := sync.PendingCount(); pending > 0 {
		flushed := sync.Flush(context.Background())
		fmt.Fprintf(os.Stderr, "flushed %d of %d pending writes\n", flushed, pending)
	}
	return nil
}
