// internal/database/database.go
package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/models"
)

// DB is the shared connection pool. Nil when Postgres is not configured;
// persistence is then skipped silently.
var DB *pgxpool.Pool

// Connect opens the pool and verifies it.
func Connect(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return errors.Wrap(err, "create pgx pool")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return errors.Wrap(err, "ping postgres")
	}
	DB = pool
	logrus.Info("connected to postgres")
	return nil
}

// UpsertInitialGameState stores the deal snapshot for a game.
func UpsertInitialGameState(gameID uuid.UUID, state interface{}) {
	if DB == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	data, err := json.Marshal(state)
	if err != nil {
		logrus.Errorf("marshal initial state for game %s: %v", gameID, err)
		return
	}
	_, err = DB.Exec(ctx, `
		INSERT INTO games (id, initial_state, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET initial_state = EXCLUDED.initial_state`,
		gameID, data)
	if err != nil {
		logrus.Errorf("upsert initial state for game %s: %v", gameID, err)
	}
}

// StoreFinalGameState records the outcome of a finished game.
func StoreFinalGameState(ctx context.Context, gameID uuid.UUID, state interface{}) {
	if DB == nil {
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		logrus.Errorf("marshal final state for game %s: %v", gameID, err)
		return
	}
	_, err = DB.Exec(ctx, `
		UPDATE games SET final_state = $2, finished_at = now() WHERE id = $1`,
		gameID, data)
	if err != nil {
		logrus.Errorf("store final state for game %s: %v", gameID, err)
	}
}

// CreateUser inserts a new user row and returns it with the generated ID.
func CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	if DB == nil {
		return nil, errors.New("database not initialized")
	}
	u := &models.User{Username: username, Email: email, Elo: 1500}
	err := DB.QueryRow(ctx, `
		INSERT INTO users (username, email, password, elo)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		username, email, passwordHash, u.Elo).Scan(&u.ID)
	if err != nil {
		return nil, errors.Wrap(err, "insert user")
	}
	return u, nil
}

// GetUserByUsername loads a user row, including the password hash for
// credential checks.
func GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if DB == nil {
		return nil, errors.New("database not initialized")
	}
	u := &models.User{}
	err := DB.QueryRow(ctx, `
		SELECT id, username, email, password, elo FROM users WHERE username = $1`,
		username).Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.Elo)
	if err != nil {
		return nil, errors.Wrapf(err, "select user %s", username)
	}
	return u, nil
}

// GetUserByID loads a user row without the password hash.
func GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if DB == nil {
		return nil, errors.New("database not initialized")
	}
	u := &models.User{}
	err := DB.QueryRow(ctx, `
		SELECT id, username, email, elo FROM users WHERE id = $1`,
		id).Scan(&u.ID, &u.Username, &u.Email, &u.Elo)
	if err != nil {
		return nil, errors.Wrapf(err, "select user %s", id)
	}
	return u, nil
}

// UpdateElo writes a player's new rating after a game.
func UpdateElo(ctx context.Context, userID uuid.UUID, elo int) error {
	if DB == nil {
		return errors.New("database not initialized")
	}
	_, err := DB.Exec(ctx, `UPDATE users SET elo = $2 WHERE id = $1`, userID, elo)
	return errors.Wrapf(err, "update elo for %s", userID)
}
