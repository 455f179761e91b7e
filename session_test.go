package rbzk

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(t *testing.T, addr string) Options {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return Options{
		IP:       host,
		Port:     port,
		Timeout:  2 * time.Second,
		OmitPing: true,
	}
}

// Property 7 (auth flow), success leg: the device answers CMD_CONNECT with
// ACK_UNAUTH, the client derives the commkey and authenticates, the device
// answers ACK_OK.
func TestConnectAuthSucceeds(t *testing.T) {
	addr := startFakeDevice(t, func(conn net.Conn) {
		defer conn.Close()

		head, _ := readFramedRequest(t, conn)
		assert.Equal(t, CmdConnect, head.Command)
		writeFramedReply(t, conn, CmdAckUnauth, 999, head.ReplyID, nil)

		head, payload := readFramedRequest(t, conn)
		assert.Equal(t, CmdAuth, head.Command)
		wantKey, err := commKey(0, 999, 50)
		require.NoError(t, err)
		assert.Equal(t, wantKey, payload)
		writeFramedReply(t, conn, CmdAckOK, 999, head.ReplyID, nil)
	})

	zk := New(testOptions(t, addr))
	err := zk.Connect()
	require.NoError(t, err)
	assert.True(t, zk.Connected())
	assert.Equal(t, 999, zk.sessionID)
}

// Property 7, failure leg: the device rejects the auth attempt a second
// time and Connect must report an auth error with connected left false.
func TestConnectAuthFails(t *testing.T) {
	addr := startFakeDevice(t, func(conn net.Conn) {
		defer conn.Close()

		head, _ := readFramedRequest(t, conn)
		assert.Equal(t, CmdConnect, head.Command)
		writeFramedReply(t, conn, CmdAckUnauth, 777, head.ReplyID, nil)

		head, _ = readFramedRequest(t, conn)
		assert.Equal(t, CmdAuth, head.Command)
		writeFramedReply(t, conn, CmdAckUnauth, 777, head.ReplyID, nil)
	})

	zk := New(testOptions(t, addr))
	err := zk.Connect()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindAuth))
	assert.False(t, zk.Connected())
}

// Connect with no auth challenge at all: the device answers ACK_OK right
// away.
func TestConnectNoAuthRequired(t *testing.T) {
	addr := startFakeDevice(t, func(conn net.Conn) {
		defer conn.Close()
		head, _ := readFramedRequest(t, conn)
		assert.Equal(t, CmdConnect, head.Command)
		writeFramedReply(t, conn, CmdAckOK, 42, head.ReplyID, nil)
	})

	zk := New(testOptions(t, addr))
	require.NoError(t, zk.Connect())
	assert.True(t, zk.Connected())
	assert.Equal(t, 42, zk.sessionID)
}

// Property 3 (reply-id monotonicity): across several exchanges on one
// session, the client's reply id advances by exactly one (mod 0xFFFF) per
// request, and the device's echoed value is what the client adopts.
func TestReplyIDMonotonicity(t *testing.T) {
	const rounds = 5
	seen := make(chan int, rounds+1)

	addr := startFakeDevice(t, func(conn net.Conn) {
		defer conn.Close()
		head, _ := readFramedRequest(t, conn)
		seen <- head.ReplyID
		writeFramedReply(t, conn, CmdAckOK, 1, head.ReplyID, nil)

		for i := 0; i < rounds; i++ {
			head, _ := readFramedRequest(t, conn)
			seen <- head.ReplyID
			writeFramedReply(t, conn, CmdAckOK, 1, head.ReplyID, nil)
		}
	})

	zk := New(testOptions(t, addr))
	require.NoError(t, zk.Connect())

	firstReply := <-seen
	last := firstReply
	for i := 0; i < rounds; i++ {
		_, err := zk.sendCommand("noop", CmdGetTime, nil)
		require.NoError(t, err)
		got := <-seen
		want := last + 1
		if want >= ushrtMax {
			want -= ushrtMax
		}
		assert.Equal(t, want, got)
		last = got
	}
}

// A fatal transport error during an exchange must clear Connected and
// close the socket (§7's Closed transition).
func TestExchangeFailureClosesConnection(t *testing.T) {
	addr := startFakeDevice(t, func(conn net.Conn) {
		head, _ := readFramedRequest(t, conn)
		writeFramedReply(t, conn, CmdAckOK, 1, head.ReplyID, nil)
		conn.Close()
	})

	zk := New(testOptions(t, addr))
	require.NoError(t, zk.Connect())

	_, err := zk.sendCommand("noop", CmdGetTime, nil)
	require.Error(t, err)
	assert.False(t, zk.Connected())

	_, err = zk.sendCommand("noop", CmdGetTime, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindState))
}
