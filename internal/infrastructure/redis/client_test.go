package redis

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	s := miniredis.RunT(t)

	client, err := NewClient(context.Background(), fmt.Sprintf("redis://%s", s.Addr()))
	require.NoError(t, err)
	defer client.Close()

	opts := client.Options()
	assert.Equal(t, clientName, opts.ClientName)
	assert.Equal(t, dialTimeout, opts.DialTimeout)
	assert.Equal(t, ioTimeout, opts.ReadTimeout)
	assert.NoError(t, Ping(context.Background(), client))
}

func TestNewClientKeepsURLTimeouts(t *testing.T) {
	s := miniredis.RunT(t)

	client, err := NewClient(context.Background(), fmt.Sprintf("redis://%s?dial_timeout=3s&read_timeout=7s", s.Addr()))
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, "3s", client.Options().DialTimeout.String())
	assert.Equal(t, "7s", client.Options().ReadTimeout.String())
}

func TestNewClientInvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), "://bad-url")
	assert.ErrorContains(t, err, "parse redis URL")
}

func TestNewClientPingFailure(t *testing.T) {
	s := miniredis.RunT(t)
	url := fmt.Sprintf("redis://%s", s.Addr())
	s.Close() // close before attempting to connect

	_, err := NewClient(context.Background(), url)
	assert.ErrorContains(t, err, "ping redis")
}
