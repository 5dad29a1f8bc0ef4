package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/hsdsgate/adapters/channel/memory"
	"github.com/artpar/hsdsgate/domain/record"
)

func envelope(id string) record.Envelope {
	rec := record.New("organization")
	rec.SetID(id)
	rec.SetProvenance("gw-1")
	return record.NewEnvelope("m-"+id, "Organization", rec, time.Unix(0, 0))
}

func TestBus_SendDeliversAndRecords(t *testing.T) {
	bus := memory.NewBus(zerolog.Nop())
	ctx := context.Background()

	var exact, wildcard int
	bus.Subscribe("Organization", func(context.Context, record.Envelope) error { exact++; return nil })
	bus.Subscribe("*", func(context.Context, record.Envelope) error { wildcard++; return nil })

	ch, err := bus.CreateChannel(ctx, "Organization", "organization")
	require.NoError(t, err)
	assert.Equal(t, "Organization", ch.Topic())

	require.NoError(t, ch.Send(ctx, envelope("o1")))
	require.NoError(t, ch.Send(ctx, envelope("o2")))

	msgs := bus.Messages("Organization")
	require.Len(t, msgs, 2)
	assert.Equal(t, "o1", msgs[0].Record["id"])
	assert.Equal(t, 2, exact)
	assert.Equal(t, 2, wildcard)
}

func TestBus_SubscriberErrorDoesNotFailSend(t *testing.T) {
	bus := memory.NewBus(zerolog.Nop())
	bus.Subscribe("*", func(context.Context, record.Envelope) error { return errors.New("boom") })

	ch, err := bus.CreateChannel(context.Background(), "Organization", "organization")
	require.NoError(t, err)
	assert.NoError(t, ch.Send(context.Background(), envelope("o1")))
}

func TestBus_FailSends(t *testing.T) {
	bus := memory.NewBus(zerolog.Nop())
	ch, err := bus.CreateChannel(context.Background(), "Phone", "phone")
	require.NoError(t, err)

	boom := errors.New("link down")
	bus.FailSends("Phone", boom)
	assert.ErrorIs(t, ch.Send(context.Background(), envelope("p1")), boom)
	assert.Empty(t, bus.Messages("Phone"))

	bus.FailSends("Phone", nil)
	assert.NoError(t, ch.Send(context.Background(), envelope("p1")))
}

func TestBus_FailCreate(t *testing.T) {
	bus := memory.NewBus(zerolog.Nop())
	boom := errors.New("quota")
	bus.FailCreate("Unit", boom)

	_, err := bus.CreateChannel(context.Background(), "Unit", "unit")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, bus.OpenChannels())
}

func TestChannel_Close(t *testing.T) {
	bus := memory.NewBus(zerolog.Nop())
	ch, err := bus.CreateChannel(context.Background(), "Unit", "unit")
	require.NoError(t, err)
	assert.Equal(t, 1, bus.OpenChannels())

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())
	assert.Equal(t, 0, bus.OpenChannels())
	assert.Equal(t, 1, bus.Created())

	assert.ErrorIs(t, ch.Send(context.Background(), envelope("u1")), memory.ErrClosed)
}

func TestBus_Heartbeats(t *testing.T) {
	bus := memory.NewBus(zerolog.Nop())
	require.NoError(t, bus.SendHeartbeat(context.Background(), record.Heartbeat{SourceID: "gw-1", Published: 3}))

	hbs := bus.Heartbeats()
	require.Len(t, hbs, 1)
	assert.Equal(t, uint64(3), hbs[0].Published)
}
