package realtime_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rpggio/worksreg/internal/realtime"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.Ping(context.Background()).Err())
	return client, mr
}

func TestRedisBroadcaster_PublishesEnvelope(t *testing.T) {
	ctx := context.Background()
	client, _ := setupTestRedis(t)
	b := realtime.NewRedisBroadcaster(client, "test:")

	sub := client.Subscribe(ctx, b.Channel("notification.new"))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Broadcast(ctx, "notification.new", map[string]string{"project_id": "p1"}))

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(recvCtx)
	require.NoError(t, err)
	require.Equal(t, "test:notification.new", msg.Channel)

	var env realtime.Envelope
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
	require.Equal(t, "notification.new", env.Event)
	require.JSONEq(t, `{"project_id":"p1"}`, string(env.Payload))
}

func TestRedisBroadcaster_DefaultPrefix(t *testing.T) {
	client, _ := setupTestRedis(t)
	b := realtime.NewRedisBroadcaster(client, "")
	require.Equal(t, realtime.DefaultChannelPrefix+"project.created", b.Channel("project.created"))
}

func TestRedisBroadcaster_ServerDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	b := realtime.NewRedisBroadcaster(client, "")
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.Error(t, b.Broadcast(ctx, "notification.edit", map[string]string{}))
}
