// internal/ws/ws.go
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/game"
	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/models"
)

const writeTimeout = 5 * time.Second

// Server owns the set of running games and attaches WebSocket connections
// to them.
type Server struct {
	mu    sync.Mutex
	games map[uuid.UUID]*game.CasinoGame
}

// NewServer creates an empty game registry.
func NewServer() *Server {
	return &Server{games: make(map[uuid.UUID]*game.CasinoGame)}
}

// CreateGame registers a new game and wires its broadcast callbacks to the
// players' WebSocket connections.
func (s *Server) CreateGame(turnTimer time.Duration) *game.CasinoGame {
	g := game.NewCasinoGame()
	if turnTimer > 0 {
		g.TurnDuration = turnTimer
	}
	g.BroadcastFn = func(ev game.GameEvent) {
		for _, p := range g.Players {
			if p.Connected && p.Conn != nil {
				writeEvent(p.Conn, ev)
			}
		}
	}
	g.BroadcastToPlayerFn = func(playerID uuid.UUID, ev game.GameEvent) {
		for _, p := range g.Players {
			if p.ID == playerID && p.Connected && p.Conn != nil {
				writeEvent(p.Conn, ev)
				return
			}
		}
	}
	g.OnGameEnd = func(lobbyID uuid.UUID, winner uuid.UUID, scores map[uuid.UUID]int) {
		logrus.Infof("game ended (lobby %s): winner=%s scores=%v", lobbyID, winner, scores)
		s.removeGame(g.ID)
	}

	s.mu.Lock()
	s.games[g.ID] = g
	s.mu.Unlock()
	logrus.Infof("created game %s", g.ID)
	return g
}

// GetGame looks up a running game.
func (s *Server) GetGame(id uuid.UUID) *game.CasinoGame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.games[id]
}

func (s *Server) removeGame(id uuid.UUID) {
	s.mu.Lock()
	delete(s.games, id)
	s.mu.Unlock()
}

// HandleGameWS upgrades the request and runs the connection's read loop
// until the client goes away.
func (s *Server) HandleGameWS(w http.ResponseWriter, r *http.Request, gameID uuid.UUID, user *models.User) {
	g := s.GetGame(gameID)
	if g == nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // origin checking handled by the router middleware
	})
	if err != nil {
		logrus.Warnf("websocket accept failed: %v", err)
		return
	}

	player := &models.Player{
		ID:        user.ID,
		User:      user,
		Conn:      conn,
		Connected: true,
	}

	g.Mu.Lock()
	g.AddPlayer(player)
	seated := g.Players
	started := g.Started
	if started {
		g.HandleReconnect(user.ID)
	} else if len(seated) == 2 {
		g.Start()
	}
	g.Mu.Unlock()

	s.readLoop(r.Context(), g, conn, user.ID)
}

// readLoop decodes inbound actions until the connection drops.
func (s *Server) readLoop(ctx context.Context, g *game.CasinoGame, conn *websocket.Conn, userID uuid.UUID) {
	defer func() {
		conn.Close(websocket.StatusNormalClosure, "")
		g.Mu.Lock()
		g.HandleDisconnect(userID)
		g.Mu.Unlock()
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			logrus.Debugf("read from %s ended: %v", userID, err)
			return
		}
		var action models.GameAction
		if err := json.Unmarshal(data, &action); err != nil {
			logrus.Warnf("malformed message from %s: %v", userID, err)
			continue
		}
		g.HandlePlayerAction(userID, action)
	}
}

// writeEvent marshals and sends one event, dropping it on a slow or broken
// connection rather than blocking the game loop.
func writeEvent(conn *websocket.Conn, ev game.GameEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		logrus.Errorf("marshal event %s: %v", ev.Type, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		logrus.Debugf("write event %s failed: %v", ev.Type, err)
	}
}
