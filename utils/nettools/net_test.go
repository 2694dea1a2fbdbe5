package nettools

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pair(t *testing.T) (client, server net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	accepted := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		accepted <- c
	}()
	client, err = net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	server = <-accepted
	require.NotNil(t, server)
	return client, server
}

func TestIsAlive(t *testing.T) {
	if !Supported() {
		t.Skip("no liveness check on this platform")
	}
	client, server := pair(t)
	defer client.Close()
	assert.True(t, IsAlive(client))

	server.Close()
	assert.Eventually(t, func() bool { return !IsAlive(client) }, time.Second, 10*time.Millisecond)
}

func TestIsAliveStrayBytes(t *testing.T) {
	if !Supported() {
		t.Skip("no liveness check on this platform")
	}
	client, server := pair(t)
	defer client.Close()
	defer server.Close()
	_, err := server.Write([]byte("junk"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return !IsAlive(client) }, time.Second, 10*time.Millisecond)
}

func TestIsAliveClosedLocally(t *testing.T) {
	client, server := pair(t)
	defer server.Close()
	client.Close()
	if Supported() {
		assert.False(t, IsAlive(client))
	}
}

type fakeConn struct{ net.Conn }

func TestIsAliveUncheckable(t *testing.T) {
	assert.True(t, IsAlive(fakeConn{}))
}
