package main

import (
	"context"
	"encoding/json"
	"errors"
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

	"github.com/doodlekit/doodlekit/backend-go/internal/auth"
	"github.com/doodlekit/doodlekit/backend-go/internal/board"
	"github.com/doodlekit/doodlekit/backend-go/internal/config"
	"github.com/doodlekit/doodlekit/backend-go/internal/export"
	mw "github.com/doodlekit/doodlekit/backend-go/internal/middleware"
	"github.com/doodlekit/doodlekit/backend-go/internal/scene"
	"github.com/doodlekit/doodlekit/backend-go/internal/session"
	"github.com/doodlekit/doodlekit/backend-go/internal/store"
	"github.com/doodlekit/doodlekit/backend-go/internal/typeid"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	authService := auth.NewService(st, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	boardService := board.NewService(st)
	boardHandler := board.NewHandler(boardService)

	exporter, err := export.NewExporter()
	if err != nil {
		slog.Error("init exporter", "error", err)
		os.Exit(1)
	}
	exportHandler := export.NewHandler(exporter)

	// Scene loader for editor sessions. An unwritten slot loads as absent
	// and the session starts with an empty scene.
	sceneLoader := func(boardID string) (*scene.Scene, error) {
		// Background context since this runs in the hub/session path.
		snap, err := st.LoadSnapshot(context.Background(), boardID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		var sc scene.Scene
		if err := json.Unmarshal(snap.Scene, &sc); err != nil {
			return nil, fmt.Errorf("unmarshal scene: %w", err)
		}
		return &sc, nil
	}

	// Scene saver: each commit appends a new latest snapshot for the slot.
	sceneSaver := func(boardID string, sc *scene.Scene) error {
		sceneJSON, err := json.Marshal(sc)
		if err != nil {
			return fmt.Errorf("marshal scene: %w", err)
		}
		return st.SaveSnapshot(context.Background(), boardID, typeid.NewSnapshotID(), sceneJSON)
	}

	hub := session.NewHub(sceneLoader, sceneSaver, exporter)
	go hub.Run()

	r := mux.NewRouter()

	// Global middleware
	origins := strings.Split(cfg.AllowedOrigins, ",")
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(origins))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// One-shot export endpoint (public — takes the scene in the body)
	r.HandleFunc("/export/png", exportHandler.ExportPNG).Methods("POST", "OPTIONS")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/boards", boardHandler.List).Methods("GET")
	api.HandleFunc("/boards", boardHandler.Create).Methods("POST")
	api.HandleFunc("/boards/{boardId}", boardHandler.Get).Methods("GET")
	api.HandleFunc("/boards/{boardId}", boardHandler.Delete).Methods("DELETE")
	api.HandleFunc("/boards/{boardId}/scene", boardHandler.LoadScene).Methods("GET")
	api.HandleFunc("/boards/{boardId}/scene", boardHandler.SaveScene).Methods("PUT")

	// WebSocket editing endpoint
	r.HandleFunc("/ws/board/{boardId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, boardService, origins)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop the hub first so every live session gets flushed.
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

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *session.Hub, authSvc *auth.Service, boards *board.Service, origins []string) {
	vars := mux.Vars(r)
	boardID := vars["boardId"]

	token := auth.TokenFromRequest(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	userID, err := authSvc.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// Ownership check
	if _, err := boards.Get(r.Context(), boardID, userID); err != nil {
		if errors.Is(err, board.ErrForbidden) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		http.Error(w, "board not found", http.StatusNotFound)
		return
	}

	sess, err := hub.StartSession(boardID, userID)
	if err != nil {
		slog.Error("start session", "board", boardID, "error", err)
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}

	originPatterns := make([]string, 0, len(origins))
	for _, o := range origins {
		originPatterns = append(originPatterns, strings.TrimPrefix(strings.TrimPrefix(o, "http://"), "https://"))
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := session.NewClient(hub, conn, sess.ID, userID, uuid.New().String())
	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
