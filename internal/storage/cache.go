package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"sharetrack/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

func locationKey(sessionID, userID string) string {
	return "loc:" + sessionID + ":" + userID
}

// SaveLastLocation caches the latest accepted location of userID in a
// session. The key lives no longer than ttl.
func (s *Service) SaveLastLocation(ctx context.Context, sessionID, userID string, loc models.Location, ttl time.Duration) error {
	if s.Redis == nil || ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	return s.Redis.Set(ctx, locationKey(sessionID, userID), data, ttl).Err()
}

// LastLocation returns the cached location of userID in a session.
func (s *Service) LastLocation(ctx context.Context, sessionID, userID string) (*models.Location, error) {
	if s.Redis == nil {
		return nil, nil
	}
	data, err := s.Redis.Get(ctx, locationKey(sessionID, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var loc models.Location
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}
