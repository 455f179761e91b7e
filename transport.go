package rbzk

import (
	"fmt"
	"io"
	"net"
	"time"
)

// transport is the framing-aware socket abstraction used by the session
// engine. TCP wraps every packet in an 8-byte outer frame; UDP sends/
// receives a single datagram per exchange (§4.2).
type transport interface {
	send(packet []byte) error
	receive() (reply, error)
	close() error
}

// dialTransport opens a transport of the requested mode to addr, probing
// reachability first unless omitPing is set.
func dialTransport(mode Mode, addr string, timeout time.Duration, omitPing bool) (transport, error) {
	if !omitPing {
		probe, err := net.DialTimeout("tcp", addr, 5*time.Second)
		if err != nil {
			return nil, errNetwork("probe", err)
		}
		probe.Close()
	}

	switch mode {
	case ModeUDP:
		return dialUDPTransport(addr, timeout)
	default:
		return dialTCPTransport(addr, timeout)
	}
}

// --- TCP ---

type tcpTransport struct {
	conn net.Conn
}

func dialTCPTransport(addr string, timeout time.Duration) (transport, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errNetwork("dial", err)
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		conn.Close()
		return nil, errNetwork("dial", err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetKeepAlive(true)
		tc.SetKeepAlivePeriod(6 * time.Second)
	}
	t := &tcpTransport{conn: conn}
	if err := t.setTimeout(timeout); err != nil {
		conn.Close()
		return nil, err
	}
	return t, nil
}

func (t *tcpTransport) setTimeout(d time.Duration) error {
	if err := t.conn.SetDeadline(time.Now().Add(d)); err != nil {
		return errNetwork("set-timeout", err)
	}
	return nil
}

func (t *tcpTransport) send(packet []byte) error {
	top, err := newBP().Pack([]string{"H", "H", "I"}, []interface{}{magicWord1, magicWord2, len(packet)})
	if err != nil {
		return errProtocol("send", err.Error())
	}
	if _, err := t.conn.Write(append(top, packet...)); err != nil {
		return classifyWriteErr(err)
	}
	return nil
}

// receive reads one TCP-framed reply: the 8-byte outer frame, then the
// inner 8-byte header, then the remainder of the frame's declared length.
// An outer length of 0 carries no inner packet at all and is a keep-alive
// (§4.2, §9); a length of exactly 8 is a perfectly ordinary header-only
// reply with an empty payload (ACK_OK to most no-data commands) and must
// be decoded, not swallowed.
func (t *tcpTransport) receive() (reply, error) {
	outer, err := t.readExactly(8)
	if err != nil {
		return reply{}, err
	}
	m1, m2, frameLen, err := parseOuterFrame(outer)
	if err != nil {
		return reply{}, err
	}
	if m1 != magicWord1 || m2 != magicWord2 {
		return reply{}, errProtocol("receive", fmt.Sprintf("bad outer frame magic %#x/%#x", m1, m2))
	}
	if frameLen == 0 {
		return reply{
			Head:     packetHeader{Command: CmdTCPStillAlive},
			Payload:  nil,
			FrameLen: frameLen,
		}, nil
	}
	header, err := t.readExactly(8)
	if err != nil {
		return reply{}, err
	}
	head, err := unpackHeader(header)
	if err != nil {
		return reply{}, errProtocol("receive", err.Error())
	}
	remaining := frameLen - 8
	payload, err := t.readExactly(remaining)
	if err != nil {
		return reply{}, err
	}
	return reply{Head: head, Payload: payload, FrameLen: frameLen}, nil
}

// readExactly loops over partial reads until n bytes are consumed, per
// §4.2's "looping over partial reads until the declared length is
// consumed."
func (t *tcpTransport) readExactly(n int) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	read := 0
	for read < n {
		m, err := t.conn.Read(buf[read:])
		if err != nil {
			if err == io.EOF {
				return nil, errNetwork("read", err)
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return nil, errTimeout("read", err)
			}
			return nil, errNetwork("read", err)
		}
		read += m
	}
	return buf, nil
}

func (t *tcpTransport) close() error {
	return t.conn.Close()
}

func parseOuterFrame(b []byte) (m1, m2, length int, err error) {
	vals, err := newBP().UnPack([]string{"H", "H", "I"}, b)
	if err != nil {
		return 0, 0, 0, errProtocol("receive", err.Error())
	}
	return vals[0].(int), vals[1].(int), vals[2].(int), nil
}

func classifyWriteErr(err error) error {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return errTimeout("write", err)
	}
	return errNetwork("write", err)
}

// --- UDP ---

type udpTransport struct {
	conn    net.Conn
	timeout time.Duration
}

func dialUDPTransport(addr string, timeout time.Duration) (transport, error) {
	conn, err := net.DialTimeout("udp", addr, timeout)
	if err != nil {
		return nil, errNetwork("dial", err)
	}
	return &udpTransport{conn: conn, timeout: timeout}, nil
}

func (u *udpTransport) send(packet []byte) error {
	if err := u.conn.SetWriteDeadline(time.Now().Add(u.timeout)); err != nil {
		return errNetwork("set-timeout", err)
	}
	if _, err := u.conn.Write(packet); err != nil {
		return classifyWriteErr(err)
	}
	return nil
}

func (u *udpTransport) receive() (reply, error) {
	if err := u.conn.SetReadDeadline(time.Now().Add(u.timeout)); err != nil {
		return reply{}, errNetwork("set-timeout", err)
	}
	buf := make([]byte, maxChunkUDP+64)
	n, err := u.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return reply{}, errTimeout("read", err)
		}
		return reply{}, errNetwork("read", err)
	}
	if n < 8 {
		return reply{}, errProtocol("receive", fmt.Sprintf("short datagram: %d bytes", n))
	}
	head, err := unpackHeader(buf[:8])
	if err != nil {
		return reply{}, errProtocol("receive", err.Error())
	}
	return reply{Head: head, Payload: buf[8:n]}, nil
}

func (u *udpTransport) close() error {
	return u.conn.Close()
}

// setTransportTimeout re-arms a TCP connection's overall deadline ahead of
// the next exchange; UDP re-arms per read/write call instead since it has
// no persistent connection state to expire.
func setTransportTimeout(t transport, d time.Duration) error {
	if tt, ok := t.(*tcpTransport); ok {
		return tt.setTimeout(d)
	}
	return nil
}
