package services

import (
	"context"
	"sync"
	"testing"

	"flickr-mirror/internal/models"
	"flickr-mirror/internal/testutil"

	"github.com/stretchr/testify/require"
)

const testNSID = "35034347371@N01"

func memStores(db *testutil.MemDB) Stores {
	return Stores{
		Users:       db.Users(),
		Accounts:    db.Accounts(),
		Photos:      db.Photos(),
		PhotoSets:   db.PhotoSets(),
		Collections: db.Collections(),
		Cache:       db.Cache(),
		Downloads:   db.Downloads(),
		Pending:     db.Pending(),
	}
}

// linkedAccount creates an account with a stored token for userID
func linkedAccount(t *testing.T, db *testutil.MemDB, userID string) *models.RemoteAccount {
	t.Helper()
	ctx := context.Background()

	account, err := db.Accounts().GetOrCreateForUser(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, db.Accounts().SetCredential(ctx, account.ID, "token", "secret", "read"))
	require.NoError(t, db.Accounts().UpdateFromRemote(ctx, account.ID, models.AccountFields{
		FlickrID: testNSID,
		NSID:     testNSID,
		Username: "bees",
	}))

	account, err = db.Accounts().GetByID(ctx, account.ID)
	require.NoError(t, err)
	return account
}

type recorder struct {
	mu       sync.Mutex
	messages []WSMessage
}

func (r *recorder) Notify(_ string, msg WSMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.messages {
		out = append(out, m.Type)
	}
	return out
}
