package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/viewport/internal/asset"
	"github.com/inamate/viewport/internal/auth"
	"github.com/inamate/viewport/internal/collab"
	"github.com/inamate/viewport/internal/config"
	"github.com/inamate/viewport/internal/db"
	"github.com/inamate/viewport/internal/metrics"
	mw "github.com/inamate/viewport/internal/middleware"
	"github.com/inamate/viewport/internal/typeid"
	"github.com/inamate/viewport/internal/views"
)

// Rooms whose id starts with this prefix accept anonymous clients.
const playgroundRoomPrefix = "room_playground"

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	queries := db.New(pool)
	m := metrics.New()

	authService := auth.NewService(queries, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService, auth.NewSessionViewport(cfg.Viewport.Options(), cfg.Viewport.Gates))

	assetHandler := asset.NewHandler(cfg.AssetDir)

	hub, err := collab.NewHub(collab.HubConfig{
		Engine:   cfg.Viewport.Options(),
		Gates:    cfg.Viewport.Gates,
		Content:  assetHandler,
		Recorder: m,
	})
	if err != nil {
		slog.Error("create hub", "error", err)
		os.Exit(1)
	}
	go hub.Run()

	viewService := views.NewService(queries, hub)
	viewHandler := views.NewHandler(viewService)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(m.Middleware)

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.Handle(cfg.MetricsPath, m.Handler()).Methods("GET")

	// Asset endpoints (public, used by the playground too)
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)
	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/assets/{assetId}", assetHandler.Remove).Methods("DELETE")
	viewHandler.Routes(api)
	api.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id":%q}`, typeid.NewRoomID())
	}).Methods("POST")

	// WebSocket endpoint
	origins := cfg.Origins()
	r.HandleFunc("/ws/room/{roomId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, origins)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mw.CORS(origins)(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, origins []string) {
	roomID := mux.Vars(r)["roomId"]
	if err := typeid.Validate(roomID, typeid.PrefixRoom); err != nil && !isPlayground(roomID) {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}

	var userID string
	var displayName string

	if isPlayground(roomID) {
		userID = "anon-" + uuid.New().String()[:8]
		displayName = "Anonymous"
	} else {
		// Browsers cannot set headers on websocket requests
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		var err error
		userID, err = authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		user, err := authSvc.GetUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusUnauthorized)
			return
		}
		displayName = user.DisplayName
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := collab.NewClient(hub, conn, userID, displayName, roomID, typeid.NewClientID())

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

func isPlayground(roomID string) bool {
	return strings.HasPrefix(roomID, playgroundRoomPrefix)
}
