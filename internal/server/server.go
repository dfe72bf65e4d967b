// internal/server/server.go
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/auth"
	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/cache"
	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/config"
	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/database"
	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/models"
	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/ws"
)

type contextKey string

const userIDKey contextKey = "userID"

// Server binds the HTTP surface: account endpoints, game creation and the
// WebSocket upgrade.
type Server struct {
	cfg *config.Config
	ws  *ws.Server
}

// New assembles the router and its dependencies.
func New(cfg *config.Config) *Server {
	return &Server{cfg: cfg, ws: ws.NewServer()}
}

// Router builds the full route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/user/create", s.handleCreateUser).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)

	authed := r.NewRoute().Subrouter()
	authed.Use(s.authMiddleware)
	authed.HandleFunc("/game/create", s.handleCreateGame).Methods(http.MethodPost)
	authed.HandleFunc("/game/ws/{id}", s.handleGameWS).Methods(http.MethodGet)
	authed.HandleFunc("/game/{id}/history", s.handleGameHistory).Methods(http.MethodGet)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authMiddleware accepts a bearer token or, for WebSocket upgrades where
// headers are awkward for browser clients, a token query parameter.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		userID, err := auth.VerifyToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		ctx := contextWithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username and password required"})
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	user, err := database.CreateUser(r.Context(), req.Username, req.Email, hash)
	if err != nil {
		logrus.Warnf("create user %s: %v", req.Username, err)
		writeJSON(w, http.StatusConflict, map[string]string{"error": "could not create user"})
		return
	}
	token, err := auth.CreateToken(user.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": user, "token": token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	user, err := database.GetUserByUsername(r.Context(), req.Username)
	if err != nil || auth.CheckPassword(user.Password, req.Password) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	token, err := auth.CreateToken(user.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user, "token": token})
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	g := s.ws.CreateGame(time.Duration(s.cfg.TurnTimerSec) * time.Second)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"gameId": g.ID})
}

func (s *Server) handleGameWS(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad game id"})
		return
	}
	userID := userIDFromContext(r.Context())

	user := &models.User{ID: userID, Username: userID.String()[:8]}
	if database.DB != nil {
		// Best effort: a display name beats a UUID prefix when we have one.
		if u, err := database.GetUserByID(r.Context(), userID); err == nil {
			user = u
		}
	}
	s.ws.HandleGameWS(w, r, gameID, user)
}

func (s *Server) handleGameHistory(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad game id"})
		return
	}
	records, err := cache.FetchGameActions(r.Context(), gameID, 1000)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"actions": records})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Debugf("write response: %v", err)
	}
}
