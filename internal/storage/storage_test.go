package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, err := NewLocalClient(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, client.UploadObject(ctx, "backtest/retro_20240501_7d.csv", []byte("a,b\n")))
	require.NoError(t, client.UploadObject(ctx, "other/x.csv", []byte("x")))

	objects, err := client.ListObjects(ctx, "backtest/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "backtest/retro_20240501_7d.csv", objects[0].Key)
	assert.Equal(t, int64(4), objects[0].Size)

	dest := filepath.Join(t.TempDir(), "nested", "copy.csv")
	require.NoError(t, client.DownloadObject(ctx, "backtest/retro_20240501_7d.csv", dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}

func TestLocalClientStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	client, err := NewLocalClient(filepath.Join(root, "reports"))
	require.NoError(t, err)

	require.NoError(t, client.UploadObject(context.Background(), "../escape.csv", []byte("x")))
	_, err = os.Stat(filepath.Join(root, "escape.csv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "reports", "escape.csv"))
	assert.NoError(t, err)

	assert.Error(t, client.UploadObject(context.Background(), "", []byte("x")))
}

func TestNewSelectsSink(t *testing.T) {
	s, err := New(context.Background(), Options{LocalDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalClient{}, s)

	_, err = New(context.Background(), Options{Sink: "ftp"})
	assert.Error(t, err)

	_, err = New(context.Background(), Options{Sink: SinkS3})
	assert.Error(t, err, "missing endpoint")

	_, err = New(context.Background(), Options{Sink: SinkDrive})
	assert.Error(t, err, "missing credentials")
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "https://s3.local", endpointURL("s3.local", true))
	assert.Equal(t, "http://s3.local", endpointURL("s3.local", false))
	assert.Equal(t, "http://minio:9000", endpointURL("http://minio:9000", true))
}
