// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Rdb is the shared Redis client. Nil when Redis is not configured; callers
// must check before publishing.
var Rdb *redis.Client

// actionQueueKey is the list the historian consumer drains.
const actionQueueKey = "casino:game_actions"

// GameActionRecord is one entry in the per-game action history stream.
type GameActionRecord struct {
	GameID        uuid.UUID              `json:"gameId"`
	ActionIndex   int                    `json:"actionIndex"`
	ActorUserID   uuid.UUID              `json:"actorUserId"`
	ActionType    string                 `json:"actionType"`
	ActionPayload map[string]interface{} `json:"actionPayload"`
	Timestamp     int64                  `json:"timestamp"`
}

// Init connects the shared client and verifies the connection with a ping.
func Init(ctx context.Context, addr, password string) error {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return errors.Wrapf(err, "redis ping %s", addr)
	}
	Rdb = client
	logrus.Infof("connected to redis at %s", addr)
	return nil
}

// PublishGameAction appends one action record to the historian queue.
func PublishGameAction(ctx context.Context, rec GameActionRecord) error {
	if Rdb == nil {
		return errors.New("redis client not initialized")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal action record")
	}
	if err := Rdb.RPush(ctx, actionQueueKey, data).Err(); err != nil {
		return errors.Wrap(err, "rpush action record")
	}
	return nil
}

// FetchGameActions returns up to limit recorded actions for a game, oldest
// first. Used by the replay endpoint.
func FetchGameActions(ctx context.Context, gameID uuid.UUID, limit int64) ([]GameActionRecord, error) {
	if Rdb == nil {
		return nil, errors.New("redis client not initialized")
	}
	raw, err := Rdb.LRange(ctx, actionQueueKey, 0, limit-1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "lrange action records")
	}
	var out []GameActionRecord
	for _, item := range raw {
		var rec GameActionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			logrus.Warnf("skipping malformed action record: %v", err)
			continue
		}
		if rec.GameID == gameID {
			out = append(out, rec)
		}
	}
	return out, nil
}
