package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/pose.report/internal/api"
	"github.com/banshee-data/pose.report/internal/version"
)

func handleServe(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("serve", stderr)
	listen := fs.String("listen", "", "HTTP listen address (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.setup(stderr)
	if err != nil {
		return err
	}
	addr := *listen
	if addr == "" {
		addr = cfg.GetListen()
	}

	fsys := newFileSystem()
	store, err := loadStore(cfg, fsys)
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	log.Printf("%s starting", version.String("posereport"))
	log.Printf("loaded %d poses from %s", store.Len(), cfg.LogPath())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := api.NewServer(cfg, fsys, store, db).ServeMux()
	server := &http.Server{
		Addr:    addr,
		Handler: api.LoggingMiddleware(mux),
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("Graceful shutdown complete")
	return nil
}
