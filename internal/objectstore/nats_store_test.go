// Package objectstore_test tests the NATS object store implementation.
package objectstore_test

import (
	"context"
	"testing"

	"github.com/book-expert/audiobook-studio/internal/objectstore"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

// StartTestServer starts an in-memory NATS server for testing purposes.
func StartTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	opts.JetStream = true
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	return natsServer, natsConnection
}

func TestNatsObjectStore_UploadDownload(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := StartTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := objectstore.New(jetstreamContext, "audiobook-test-bucket")
	require.NoError(t, err)

	ctx := context.Background()
	key := "novel_merged.wav"
	uploadData := []byte("merged audiobook bytes")

	err = store.Upload(ctx, key, uploadData)
	require.NoError(t, err)

	downloadData, err := store.Download(ctx, key)
	require.NoError(t, err)

	require.Equal(t, uploadData, downloadData)
}

func TestNatsObjectStore_BindsExistingBucket(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := StartTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	first, err := objectstore.New(jetstreamContext, "shared-bucket")
	require.NoError(t, err)

	err = first.Upload(context.Background(), "key", []byte("payload"))
	require.NoError(t, err)

	// A second store over the same bucket sees existing objects.
	second, err := objectstore.New(jetstreamContext, "shared-bucket")
	require.NoError(t, err)

	data, err := second.Download(context.Background(), "key")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), data)
}
