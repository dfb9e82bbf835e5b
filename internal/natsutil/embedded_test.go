package natsutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartEmbedded(t *testing.T) {
	ns, nc, err := StartEmbedded(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	require.True(t, nc.IsConnected())
	require.True(t, ns.JetStreamEnabled())

	sub, err := nc.SubscribeSync("ping")
	require.NoError(t, err)
	require.NoError(t, nc.Publish("ping", []byte("pong")))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	require.Equal(t, "pong", string(msg.Data))
}
