package server_test

import (
	"testing"
	"time"

	"github.com/iamNilotpal/ember/internal/client"
	"github.com/iamNilotpal/ember/internal/server"
	"github.com/iamNilotpal/ember/pkg/ember"
	"github.com/iamNilotpal/ember/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T) (*server.Server, *ember.DB) {
	t.Helper()

	db, err := ember.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := server.New("127.0.0.1:0", db, logger.New("server_test"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	go s.Run()
	return s, db
}

func TestPingPong(t *testing.T) {
	s, _ := startTestServer(t)

	c, err := client.Dial(s.Addr())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Ping())
}

func TestPutGetRemoveOverWire(t *testing.T) {
	s, _ := startTestServer(t)

	c, err := client.Dial(s.Addr())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Put([]byte("k"), []byte("v")))

	// PUT has no response frame; give the server a moment to apply it
	// before issuing the GET on the same connection.
	time.Sleep(10 * time.Millisecond)

	value, found, err := c.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v"), value)

	require.NoError(t, c.Remove([]byte("k")))
	time.Sleep(10 * time.Millisecond)

	_, found, err = c.Get([]byte("k"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetMissingKeyNotFound(t *testing.T) {
	s, _ := startTestServer(t)

	c, err := client.Dial(s.Addr())
	require.NoError(t, err)
	defer c.Close()

	_, found, err := c.Get([]byte("absent"))
	require.NoError(t, err)
	assert.False(t, found)
}
