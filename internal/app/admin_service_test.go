package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flisboa999/guiaturismo/internal/cache"
	"github.com/flisboa999/guiaturismo/internal/model"
	"github.com/flisboa999/guiaturismo/internal/store"
)

type flakyTurns struct {
	*store.Collection
	fail map[string]bool
}

func (f *flakyTurns) Delete(ctx context.Context, id string) error {
	if f.fail[id] {
		return errors.New("permission denied by backend")
	}
	return f.Collection.Delete(ctx, id)
}

type resetCounter struct {
	ok, failed int
}

func (r *resetCounter) ObserveResetDelete(failed bool) {
	if failed {
		r.failed++
		return
	}
	r.ok++
}

func seedTurns(t *testing.T, c *store.Collection, prompts ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(prompts))
	for _, p := range prompts {
		id, err := c.Append(context.Background(), model.ChatTurn{Prompt: p})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func adminSession(email string) *SessionContext {
	session := NewSessionContext(NewRoleGate("admin@example.com"), nil)
	if email != "" {
		session.OnIdentityChange(&Identity{UserID: 1, Email: email})
	}
	return session
}

func TestBulkResetToleratesFailures(t *testing.T) {
	docs := store.NewMemory()
	collection := store.NewCollection(docs, store.NewHub())
	ids := seedTurns(t, collection, "a", "b", "c", "d", "e")

	turns := &flakyTurns{Collection: collection, fail: map[string]bool{ids[1]: true, ids[3]: true}}
	recorder := &resetCounter{}
	svc := NewAdminService(turns, cache.NewMemoryConfirmations(), time.Minute, recorder)

	report, err := svc.BulkReset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Deleted)
	assert.Equal(t, 2, report.Failed)
	require.Len(t, report.Outcomes, 5)
	for _, o := range report.Outcomes {
		if o.ID == ids[1] || o.ID == ids[3] {
			assert.Error(t, o.Err)
			assert.NotEmpty(t, o.Error)
		} else {
			assert.NoError(t, o.Err)
		}
	}
	assert.Equal(t, 2, docs.Len())
	assert.Equal(t, 3, recorder.ok)
	assert.Equal(t, 2, recorder.failed)
}

func TestBulkResetEmptyCollection(t *testing.T) {
	collection := store.NewCollection(store.NewMemory(), store.NewHub())
	svc := NewAdminService(collection, cache.NewMemoryConfirmations(), time.Minute, nil)
	report, err := svc.BulkReset(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
}

func TestResetRequiresAdminAndConfirmation(t *testing.T) {
	docs := store.NewMemory()
	collection := store.NewCollection(docs, store.NewHub())
	seedTurns(t, collection, "one", "two")
	svc := NewAdminService(collection, cache.NewMemoryConfirmations(), time.Minute, nil)
	ctx := context.Background()

	_, err := svc.RequestReset(ctx, adminSession(""))
	assert.Equal(t, CodeUnauthenticated, CodeOf(err))

	_, err = svc.RequestReset(ctx, adminSession("user@example.com"))
	assert.Equal(t, CodePermissionDenied, CodeOf(err))

	admin := adminSession("Admin@Example.com")
	_, err = svc.ConfirmReset(ctx, admin, "")
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))
	_, err = svc.ConfirmReset(ctx, admin, "made-up")
	assert.Equal(t, CodePermissionDenied, CodeOf(err))
	assert.Equal(t, 2, docs.Len())

	challenge, err := svc.RequestReset(ctx, admin)
	require.NoError(t, err)
	assert.NotEmpty(t, challenge.Token)
	assert.True(t, challenge.ExpiresAt.After(time.Now()))

	report, err := svc.ConfirmReset(ctx, admin, challenge.Token)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Deleted)
	assert.Equal(t, 0, docs.Len())

	// Tokens are single use.
	_, err = svc.ConfirmReset(ctx, admin, challenge.Token)
	assert.Equal(t, CodePermissionDenied, CodeOf(err))
}

func TestEditTurnKeepsResponse(t *testing.T) {
	docs := store.NewMemory()
	collection := store.NewCollection(docs, store.NewHub())
	reply := "original reply"
	id, err := collection.Append(context.Background(), model.ChatTurn{Prompt: "before", Response: &reply})
	require.NoError(t, err)

	svc := NewAdminService(collection, cache.NewMemoryConfirmations(), time.Minute, nil)
	admin := adminSession("admin@example.com")

	require.NoError(t, svc.EditTurn(context.Background(), admin, id, "after"))
	turn, err := docs.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "after", turn.Prompt)
	require.NotNil(t, turn.Response)
	assert.Equal(t, "original reply", *turn.Response)

	assert.Equal(t, CodeInvalidArgument, CodeOf(svc.EditTurn(context.Background(), admin, id, "   ")))
	assert.Equal(t, CodeNotFound, CodeOf(svc.EditTurn(context.Background(), admin, "missing", "x")))
	assert.Equal(t, CodePermissionDenied, CodeOf(svc.EditTurn(context.Background(), adminSession("user@example.com"), id, "x")))
}
