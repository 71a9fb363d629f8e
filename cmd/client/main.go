package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voxdesk/client/internal/config"
	"github.com/voxdesk/client/internal/handler"
	"github.com/voxdesk/client/internal/handler/status"
	"github.com/voxdesk/client/internal/service/governor"
	"github.com/voxdesk/client/internal/service/listener"
	"github.com/voxdesk/client/internal/service/registry"
	"github.com/voxdesk/client/internal/service/stream"
	"github.com/voxdesk/client/internal/service/voices"
	"github.com/voxdesk/client/internal/store"
	"github.com/voxdesk/client/internal/transport"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Open the persisted store, degrading to an in-memory store rather than
	// refusing to start.
	var st store.Store
	fileStore, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Printf("warning: failed to open store at %s: %v", cfg.Store.Path, err)
		log.Println("continuing with in-memory store; nothing will survive restart")
		st = store.NewMemoryStore()
	} else {
		st = fileStore
	}

	// Startup budget sweep before anything reads the governed collections.
	governor.EnforceBudget(st, cfg.Store.BudgetBytes)

	sessions := registry.NewManager(st)
	assignments := voices.Load(st)
	streamClient := stream.NewClient(nil)

	statusHandler := status.New(sessions, streamClient, assignments)

	if cfg.Events.Enabled() {
		sub, err := transport.Dial(ctx, cfg.Events.URL)
		if err != nil {
			log.Printf("warning: failed to connect event channel: %v", err)
			log.Println("continuing without live session updates")
		} else {
			defer sub.Close()
			err := listener.Init(sub,
				func(evt listener.MessageEvent) {
					s := sessions.RecordMessage(evt.SessionID, evt.Text, evt.Timestamp)
					statusHandler.Broadcast("message", map[string]any{
						"sessionId":   s.ID,
						"displayName": s.DisplayName,
						"text":        evt.Text,
						"timestamp":   evt.Timestamp,
					})
				},
				func(evt listener.HeartbeatEvent) {
					sessions.RecordHeartbeat(evt.SessionID, evt.Timestamp)
					statusHandler.Broadcast("heartbeat", map[string]any{
						"sessionId": evt.SessionID,
						"timestamp": evt.Timestamp,
					})
				})
			if err != nil {
				log.Printf("warning: failed to initialize event listener: %v", err)
			} else {
				defer listener.Cleanup()
				log.Println("Event listener initialized successfully")
			}
		}
	} else {
		log.Println("VOXDESK_EVENTS_URL not set, skipping event channel")
	}

	if cfg.Stream.Enabled() {
		unsubscribe := streamClient.OnEvent(func(evt stream.Event) {
			statusHandler.Broadcast("stream", evt)
		})
		defer unsubscribe()
		defer streamClient.Disconnect()

		if err := streamClient.Connect(cfg.Stream.URL); err != nil {
			log.Printf("warning: stream connect failed, reconnecting in background: %v", err)
		}
	} else {
		log.Println("VOXDESK_STREAM_URL not set, skipping audio/speech stream")
	}

	router := handler.NewRouter(statusHandler)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Voxdesk client core listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
