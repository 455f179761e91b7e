package rbzk

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

// startFakeDevice listens on an ephemeral TCP port, accepts a single
// connection and hands it to handle in a background goroutine. It returns
// the address to dial; the listener is closed by t.Cleanup.
func startFakeDevice(t *testing.T, handle func(net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		handle(conn)
	}()

	return ln.Addr().String()
}

// readFramedRequest reads one TCP-framed inner packet from conn, as a
// fake device would see a client's request.
func readFramedRequest(t *testing.T, conn net.Conn) (packetHeader, []byte) {
	t.Helper()
	outer := readFull(t, conn, 8)
	_, _, length, err := parseOuterFrame(outer)
	require.NoError(t, err)
	body := readFull(t, conn, length)
	head, err := unpackHeader(body)
	require.NoError(t, err)
	return head, body[8:]
}

// writeFramedReply writes one TCP-framed inner packet, as a fake device
// answering a client.
func writeFramedReply(t *testing.T, conn net.Conn, command, session, reply int, payload []byte) {
	t.Helper()
	packet, err := packHeader(command, session, reply, payload)
	require.NoError(t, err)
	top, err := newBP().Pack([]string{"H", "H", "I"}, []interface{}{magicWord1, magicWord2, len(packet)})
	require.NoError(t, err)
	_, err = conn.Write(append(top, packet...))
	require.NoError(t, err)
}

func readFull(t *testing.T, conn net.Conn, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	_, err := io.ReadFull(conn, buf)
	require.NoError(t, err)
	return buf
}
