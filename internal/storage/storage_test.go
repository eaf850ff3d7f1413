package storage_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/sync/errgroup"

	"github.com/ErikKalkoken/hookpost/internal/dhook"
	"github.com/ErikKalkoken/hookpost/internal/storage"
)

func newStorage(t *testing.T) *storage.Storage {
	t.Helper()
	p := filepath.Join(t.TempDir(), "test.db")
	db, err := bolt.Open(p, 0600, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	st := storage.New(db)
	require.NoError(t, st.Init())
	return st
}

func TestWebhookStats(t *testing.T) {
	st := newStorage(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	t.Run("should return not found for unknown webhook", func(t *testing.T) {
		require.NoError(t, st.ClearWebhookStats())
		_, err := st.GetWebhookStats("unknown")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
	t.Run("can record successful delivery", func(t *testing.T) {
		require.NoError(t, st.ClearWebhookStats())
		err := st.RecordDelivery("alpha", nil, now)
		if assert.NoError(t, err) {
			ws, err := st.GetWebhookStats("alpha")
			if assert.NoError(t, err) {
				assert.Equal(t, "alpha", ws.Name)
				assert.Equal(t, 1, ws.SentCount)
				assert.True(t, now.Equal(ws.SentLast))
				assert.Equal(t, 0, ws.ErrorCount)
			}
		}
	})
	t.Run("can record failed delivery", func(t *testing.T) {
		require.NoError(t, st.ClearWebhookStats())
		err := st.RecordDelivery("alpha", dhook.DeliveryError{StatusCode: 404, Status: "404 Not Found"}, now)
		if assert.NoError(t, err) {
			ws, err := st.GetWebhookStats("alpha")
			if assert.NoError(t, err) {
				assert.Equal(t, 0, ws.SentCount)
				assert.Equal(t, 1, ws.ErrorCount)
				assert.Equal(t, 404, ws.StatusLast)
				assert.Contains(t, ws.ErrorLast, "404")
			}
		}
	})
	t.Run("can record other errors", func(t *testing.T) {
		require.NoError(t, st.ClearWebhookStats())
		err := st.RecordDelivery("alpha", errors.New("failed"), now)
		if assert.NoError(t, err) {
			ws, err := st.GetWebhookStats("alpha")
			if assert.NoError(t, err) {
				assert.Equal(t, 1, ws.ErrorCount)
				assert.Equal(t, 0, ws.StatusLast)
				assert.Equal(t, "failed", ws.ErrorLast)
			}
		}
	})
	t.Run("can list stats ordered by name", func(t *testing.T) {
		require.NoError(t, st.ClearWebhookStats())
		for _, n := range []string{"charlie", "alpha", "bravo"} {
			require.NoError(t, st.RecordDelivery(n, nil, now))
		}
		s, err := st.ListWebhookStats()
		if assert.NoError(t, err) {
			var names []string
			for _, ws := range s {
				names = append(names, ws.Name)
			}
			assert.Equal(t, []string{"alpha", "bravo", "charlie"}, names)
		}
	})
	t.Run("should count concurrent deliveries", func(t *testing.T) {
		require.NoError(t, st.ClearWebhookStats())
		g := new(errgroup.Group)
		for range 10 {
			g.Go(func() error {
				return st.RecordDelivery("alpha", nil, now)
			})
		}
		require.NoError(t, g.Wait())
		ws, err := st.GetWebhookStats("alpha")
		if assert.NoError(t, err) {
			assert.Equal(t, 10, ws.SentCount)
		}
	})
	t.Run("should abort update when function returns error", func(t *testing.T) {
		require.NoError(t, st.ClearWebhookStats())
		errAbort := errors.New("abort")
		err := st.UpdateWebhookStats("alpha", func(ws *storage.WebhookStats) error {
			ws.SentCount = 99
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)
		_, err = st.GetWebhookStats("alpha")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
