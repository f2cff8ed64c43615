package integration

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/infrastructure/event"
	"github.com/marketplace/backend/internal/infrastructure/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPGBridge(t *testing.T, dsn, origin string, hub *realtime.Hub) *realtime.PGBridge {
	t.Helper()
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	serializer := event.NewEventSerializer()
	event.RegisterMarketplaceEvents(serializer)
	return realtime.NewPGBridge(pool, nil, "marketplace_changes_test", origin, serializer, hub, zap.NewNop())
}

func TestPGBridge_RelaysProductChangesAcrossInstances(t *testing.T) {
	tdb := NewTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v := tdb.CreateApprovedVendor("Chimanimani Honey")
	honey := tdb.CreateActiveProduct(v.ID, "Raw Honey", "6.50", 40)

	localHub, remoteHub := realtime.NewHub(), realtime.NewHub()
	sender := newPGBridge(t, tdb.DSN, "node-a", localHub)
	receiver := newPGBridge(t, tdb.DSN, "node-b", remoteHub)

	done := make(chan error, 1)
	go func() { done <- receiver.Run(ctx) }()

	sub, err := remoteHub.Subscribe(catalog.TopicProducts, realtime.Viewer{})
	require.NoError(t, err)
	defer sub.Close()

	// LISTEN starts asynchronously, so keep notifying until one arrives
	var got realtime.Change
	require.Eventually(t, func() bool {
		if err := sender.Handle(ctx, catalog.NewProductEvent(catalog.EventTypeProductUpdated, honey)); err != nil {
			return false
		}
		select {
		case got = <-sub.C:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 10*time.Millisecond)

	assert.Equal(t, catalog.EventTypeProductUpdated, got.Type)
	assert.Equal(t, honey.ID, got.RecordID)

	// discard duplicates from the retries above
	time.Sleep(300 * time.Millisecond)
	for len(sub.C) > 0 {
		<-sub.C
	}

	t.Run("own notifications are not echoed", func(t *testing.T) {
		echoHub := realtime.NewHub()
		self := newPGBridge(t, tdb.DSN, "node-b", echoHub)
		echoSub, err := echoHub.Subscribe(catalog.TopicProducts, realtime.Viewer{})
		require.NoError(t, err)
		defer echoSub.Close()

		require.NoError(t, self.Handle(ctx, catalog.NewProductEvent(catalog.EventTypeProductStock, honey)))
		select {
		case c := <-sub.C:
			t.Fatalf("receiver relayed its own origin: %s", c.Type)
		case <-time.After(300 * time.Millisecond):
		}
	})

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("bridge did not stop after cancel")
	}
}
