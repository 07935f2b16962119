package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"nvivas/backend/bingo-go-server/internal/client"
	"nvivas/backend/bingo-go-server/internal/config"
	"nvivas/backend/bingo-go-server/internal/interfaces"
	"nvivas/backend/bingo-go-server/internal/logger"
	"nvivas/backend/bingo-go-server/pkg/models"
)

const (
	shutdownTimeout = 5 * time.Second
	requestTimeout  = 15 * time.Second
	qrSize          = 320
)

// Hub is what the HTTP layer needs from the room coordinator.
type Hub interface {
	interfaces.Hub
	ListRooms(ctx context.Context) ([]models.RoomInfo, error)
	RoomInfo(ctx context.Context, roomID string) (models.RoomInfo, bool, error)
}

// Server expone el hub por WebSocket y algunas rutas HTTP auxiliares
type Server struct {
	cfg      *config.Config
	hub      Hub
	version  string
	router   *httprouter.Router
	upgrader websocket.Upgrader

	// Contexto que heredan los clientes
	ctx context.Context
}

// New builds a Server and registers its routes.
func New(ctx context.Context, cfg *config.Config, hub Hub, version string) *Server {
	s := &Server{
		cfg:     cfg,
		hub:     hub,
		version: version,
		router:  httprouter.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Permisivo para desarrollo
			},
		},
		ctx: ctx,
	}

	s.router.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		logger.Error("Panic serving request", logger.Fields{
			"path":  r.URL.Path,
			"panic": i,
		})
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}

	s.router.GET("/ws", s.serveWebSocket)
	s.router.GET("/healthz", s.serveHealthCheck)
	s.router.GET("/version", s.serveVersion)
	s.router.GET("/rooms", s.serveRooms)
	s.router.GET("/rooms/:roomid/qr", s.serveRoomQR)

	if cfg.Profile {
		registerProfileHandlers(s.router)
	}

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadTimeout:       requestTimeout,
		ReadHeaderTimeout: requestTimeout,
		WriteTimeout:      requestTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("Iniciando servidor", logger.Fields{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err, ok := <-errs:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Recibida señal de apagado, iniciando shutdown", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error durante el shutdown del servidor", logger.Fields{"error": err.Error()})
		return err
	}

	logger.Info("Servidor detenido correctamente", nil)
	return nil
}

// serveWebSocket maneja las conexiones WebSocket entrantes
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Error al actualizar la conexión WebSocket", logger.Fields{
			"error": err.Error(),
			"path":  r.URL.Path,
		})
		return
	}

	c := client.NewClient(uuid.NewString(), s.hub, conn, s.ctx)
	s.hub.RegisterClient(c)

	go c.WritePump()
	go c.ReadPump()

	logger.Info("Nueva conexión establecida", logger.Fields{
		"clientID": c.GetID(),
		"remote":   realIP(r),
	})
}

func (s *Server) serveHealthCheck(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Ok\n"))
}

func (s *Server) serveVersion(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("bingo v" + s.version + "\n"))
}

// serveRooms lists public rooms. Private codes are never published.
func (s *Server) serveRooms(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rooms, err := s.hub.ListRooms(r.Context())
	if err != nil {
		http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
		return
	}

	public := make([]models.RoomInfo, 0, len(rooms))
	for _, info := range rooms {
		if info.Visibility == models.VisibilityPublic {
			public = append(public, info)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(models.RoomListPayload{Rooms: public}); err != nil {
		logger.Warn("Failed to write room list", logger.Fields{"error": err.Error()})
	}
}

// serveRoomQR returns a PNG QR code with the invite link for a room.
func (s *Server) serveRoomQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("roomid")

	_, found, err := s.hub.RoomInfo(r.Context(), roomID)
	if err != nil {
		http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
		return
	}
	if !found {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	png, err := qrcode.Encode(inviteURL(r, roomID), qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// inviteURL points at the front page with the room preselected.
func inviteURL(r *http.Request, roomID string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     "/",
		RawQuery: url.Values{"room": {roomID}}.Encode(),
	}
	return u.String()
}

func realIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" && net.ParseIP(ip) != nil {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
