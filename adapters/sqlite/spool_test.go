package sqlite_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/hsdsgate/adapters/clock"
	"github.com/artpar/hsdsgate/adapters/codec"
	"github.com/artpar/hsdsgate/adapters/sqlite"
	"github.com/artpar/hsdsgate/domain/record"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()

	f, err := os.CreateTemp("", "hsdsgate-test-*.db")
	require.NoError(t, err)
	path := f.Name()
	f.Close()

	db, err := sqlite.Open(path)
	if err != nil {
		os.Remove(path)
		t.Fatalf("open database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		os.Remove(path)
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
		os.Remove(path)
	})
	return db
}

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func envelope(id, topic, recordID string, at time.Time) record.Envelope {
	rec := record.New("organization")
	rec.SetID(recordID)
	rec.Set("name", "Food Bank")
	rec.SetProvenance("gw-1")
	return record.NewEnvelope(id, topic, rec, at)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Migrate())
}

func TestSpool_SendAndSince(t *testing.T) {
	db := setupTestDB(t)
	spool := sqlite.NewSpool(db, codec.JSON{}, clock.NewFake(epoch), zerolog.Nop())
	ctx := context.Background()

	ch, err := spool.CreateChannel(ctx, "Organization", "organization")
	require.NoError(t, err)
	assert.Equal(t, "Organization", ch.Topic())

	require.NoError(t, ch.Send(ctx, envelope("m1", "Organization", "org-1", epoch)))
	require.NoError(t, ch.Send(ctx, envelope("m2", "Organization", "org-2", epoch)))

	rows, err := spool.Since(ctx, "Organization", 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "m1", rows[0].MessageID)
	assert.Equal(t, "org-1", rows[0].RecordID)
	assert.Equal(t, "gw-1", rows[0].SourceID)
	assert.Equal(t, "json", rows[0].Codec)
	assert.True(t, rows[0].PublishedAt.Equal(epoch))
	assert.Less(t, rows[0].Seq, rows[1].Seq)

	var got record.Envelope
	require.NoError(t, codec.JSON{}.Unmarshal(rows[1].Payload, &got))
	assert.Equal(t, "org-2", got.Record["id"])

	after, err := spool.Since(ctx, "Organization", rows[0].Seq, 10)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "m2", after[0].MessageID)
}

func TestSpool_TopicsAreSeparate(t *testing.T) {
	db := setupTestDB(t)
	spool := sqlite.NewSpool(db, codec.JSON{}, clock.NewFake(epoch), zerolog.Nop())
	ctx := context.Background()

	org, err := spool.CreateChannel(ctx, "Organization", "organization")
	require.NoError(t, err)
	svc, err := spool.CreateChannel(ctx, "Service", "service")
	require.NoError(t, err)

	require.NoError(t, org.Send(ctx, envelope("m1", "Organization", "org-1", epoch)))
	require.NoError(t, svc.Send(ctx, envelope("m2", "Service", "svc-1", epoch)))
	require.NoError(t, svc.Send(ctx, envelope("m3", "Service", "svc-2", epoch)))

	n, err := spool.Count(ctx, "Organization")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = spool.Count(ctx, "Service")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestSpool_DuplicateMessageIDRejected(t *testing.T) {
	db := setupTestDB(t)
	spool := sqlite.NewSpool(db, codec.JSON{}, clock.NewFake(epoch), zerolog.Nop())
	ctx := context.Background()

	ch, err := spool.CreateChannel(ctx, "Organization", "organization")
	require.NoError(t, err)

	require.NoError(t, ch.Send(ctx, envelope("m1", "Organization", "org-1", epoch)))
	assert.Error(t, ch.Send(ctx, envelope("m1", "Organization", "org-1", epoch)))
}

func TestSpool_SendAfterClose(t *testing.T) {
	db := setupTestDB(t)
	spool := sqlite.NewSpool(db, codec.JSON{}, clock.NewFake(epoch), zerolog.Nop())
	ctx := context.Background()

	ch, err := spool.CreateChannel(ctx, "Organization", "organization")
	require.NoError(t, err)
	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())

	err = ch.Send(ctx, envelope("m1", "Organization", "org-1", epoch))
	assert.ErrorIs(t, err, sqlite.ErrClosed)
}

func TestSpool_CBORPayload(t *testing.T) {
	db := setupTestDB(t)
	cb, err := codec.NewCBOR()
	require.NoError(t, err)
	spool := sqlite.NewSpool(db, cb, clock.NewFake(epoch), zerolog.Nop())
	ctx := context.Background()

	ch, err := spool.CreateChannel(ctx, "Organization", "organization")
	require.NoError(t, err)
	require.NoError(t, ch.Send(ctx, envelope("m1", "Organization", "org-1", epoch)))

	rows, err := spool.Since(ctx, "Organization", 0, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "cbor", rows[0].Codec)

	var got record.Envelope
	require.NoError(t, cb.Unmarshal(rows[0].Payload, &got))
	assert.Equal(t, "m1", got.MessageID)
	assert.Equal(t, "Food Bank", got.Record["name"])
}

func TestSpool_Purge(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFake(epoch)
	spool := sqlite.NewSpool(db, codec.JSON{}, clk, zerolog.Nop())
	ctx := context.Background()

	ch, err := spool.CreateChannel(ctx, "Organization", "organization")
	require.NoError(t, err)
	require.NoError(t, ch.Send(ctx, envelope("old", "Organization", "org-1", epoch.Add(-2*time.Hour))))
	require.NoError(t, ch.Send(ctx, envelope("new", "Organization", "org-2", epoch.Add(-10*time.Minute))))

	n, err := spool.Purge(ctx, time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rows, err := spool.Since(ctx, "Organization", 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "new", rows[0].MessageID)
}

func TestSpool_Heartbeat(t *testing.T) {
	db := setupTestDB(t)
	spool := sqlite.NewSpool(db, codec.JSON{}, clock.NewFake(epoch), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, spool.SendHeartbeat(ctx, record.Heartbeat{SourceID: "gw-1", Timestamp: epoch, Published: 3, Topics: 24}))
	require.NoError(t, spool.SendHeartbeat(ctx, record.Heartbeat{SourceID: "gw-1", Timestamp: epoch.Add(time.Minute), Published: 5, Topics: 24}))

	hb, err := spool.LastHeartbeat(ctx, "gw-1")
	require.NoError(t, err)
	assert.EqualValues(t, 5, hb.Published)
	assert.Equal(t, 24, hb.Topics)
	assert.True(t, hb.Timestamp.Equal(epoch.Add(time.Minute)))

	_, err = spool.LastHeartbeat(ctx, "gw-2")
	assert.Error(t, err)
}
