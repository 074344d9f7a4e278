package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"flickr-mirror/internal/models"

	"github.com/redis/go-redis/v9"
)

const pendingKeyPrefix = "flickr-mirror:oauth:"

// PendingAuthStore keeps OAuth request tokens between the redirect to Flickr
// and the callback.
type PendingAuthStore struct {
	rdb *redis.Client
}

// NewPendingAuthStore creates a new pending authorization store
func NewPendingAuthStore(rdb *redis.Client) *PendingAuthStore {
	return &PendingAuthStore{rdb: rdb}
}

// Save stores a pending authorization for ttl
func (s *PendingAuthStore) Save(ctx context.Context, p models.PendingAuthorization, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode pending authorization: %w", err)
	}
	if err := s.rdb.Set(ctx, pendingKeyPrefix+p.RequestToken, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save pending authorization: %w", err)
	}
	return nil
}

// Take returns and removes the pending authorization for a request token
func (s *PendingAuthStore) Take(ctx context.Context, requestToken string) (*models.PendingAuthorization, error) {
	data, err := s.rdb.GetDel(ctx, pendingKeyPrefix+requestToken).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("pending authorization %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get pending authorization: %w", err)
	}

	var p models.PendingAuthorization
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode pending authorization: %w", err)
	}
	return &p, nil
}
