package rbzk

import (
	"fmt"
)

// Connect opens the transport, probes reachability (unless OmitPing),
// performs CMD_CONNECT, and authenticates if the device demands it (§4.3).
func (zk *ZK) Connect() error {
	if zk.connected {
		return nil
	}

	conn, err := dialTransport(zk.opts.mode(), zk.addr(), zk.opts.Timeout, zk.opts.OmitPing)
	if err != nil {
		return err
	}
	zk.conn = conn
	zk.sessionID = 0
	zk.replyID = ushrtMax - 1

	r, err := zk.exchange(CmdConnect, nil)
	if err != nil {
		return err
	}
	zk.sessionID = r.Head.SessionID

	if r.Head.Command == CmdAckUnauth {
		key, err := commKey(zk.opts.Password, zk.sessionID, 50)
		if err != nil {
			zk.conn.close()
			zk.conn = nil
			return err
		}
		authReply, err := zk.exchange(CmdAuth, key)
		if err != nil {
			return err
		}
		if authReply.Head.Command == CmdAckUnauth {
			zk.conn.close()
			zk.conn = nil
			return errAuth("connect", "device rejected authentication")
		}
		if !authReply.ok() {
			zk.conn.close()
			zk.conn = nil
			return errProtocol("connect", fmt.Sprintf("unexpected auth response code %d", authReply.Head.Command))
		}
	} else if !r.ok() {
		zk.conn.close()
		zk.conn = nil
		return errProtocol("connect", fmt.Sprintf("unexpected connect response code %d", r.Head.Command))
	}

	zk.connected = true
	zk.log.Infof("connected to %s session=%d", zk.addr(), zk.sessionID)
	return nil
}

// Disconnect sends CMD_EXIT, closes the socket, and clears session state.
func (zk *ZK) Disconnect() error {
	if !zk.connected {
		return nil
	}
	_, err := zk.exchange(CmdExit, nil)
	zk.connected = false
	if zk.conn != nil {
		closeErr := zk.conn.close()
		zk.conn = nil
		if err == nil {
			err = closeErr
		}
	}
	return err
}

// commKey derives the 4-byte authentication payload from
// the device password and session id, per §4.3's exact recipe (note the
// deliberate third-byte asymmetry documented there and in DESIGN.md).
func commKey(password, sessionID, ticks int) ([]byte, error) {
	k := 0
	for i := 0; i < 32; i++ {
		bit := (password >> uint(i)) & 1
		if bit != 0 {
			k = (k << 1) | 1
		} else {
			k = k << 1
		}
	}
	k += sessionID
	k &= 0xFFFFFFFF

	b := []byte{byte(k), byte(k >> 8), byte(k >> 16), byte(k >> 24)}
	zkso := []byte("ZKSO")
	for i := range b {
		b[i] ^= zkso[i]
	}

	w0 := int(b[0]) | int(b[1])<<8
	w1 := int(b[2]) | int(b[3])<<8
	// swap the two 16-bit words
	sw0, sw1 := w1, w0

	c0 := byte(sw0)
	c1 := byte(sw0 >> 8)
	c3 := byte(sw1 >> 8)

	t := byte(ticks)
	return []byte{c0 ^ t, c1 ^ t, t, c3 ^ t}, nil
}

// exchange sends one packet and reads exactly one reply, updating session
// bookkeeping. It is the low-level primitive under sendCommand; unlike
// sendCommand it does not enforce the connected precondition, since it is
// also used by Connect/auth before connected becomes true. Any failure is
// treated as fatal to the session: see rawExchange for the retryable
// variant used by the chunk-retry loop in bulk.go.
func (zk *ZK) exchange(command int, payload []byte) (reply, error) {
	r, err := zk.rawExchange(command, payload)
	if err != nil {
		return reply{}, zk.fail(err)
	}
	return r, nil
}

// rawExchange is exchange without the on-error teardown. bulk.go's
// per-chunk retry loop calls this directly: a single dropped chunk read is
// expected to be retried on the SAME connection up to maxChunkRetries
// times (§4.4), so tearing the session down after the first failed attempt
// would make the retry loop meaningless (and leave later attempts sending
// on a closed transport). The caller is responsible for calling zk.fail
// once retries are exhausted.
func (zk *ZK) rawExchange(command int, payload []byte) (reply, error) {
	nextReply := zk.replyID + 1
	if nextReply >= ushrtMax {
		nextReply -= ushrtMax
	}

	packet, err := packHeader(command, zk.sessionID, nextReply, payload)
	if err != nil {
		return reply{}, errProtocol("exchange", err.Error())
	}

	zk.log.Debugf("send cmd=%d session=%d reply=%d payload=%s", command, zk.sessionID, nextReply, hexDump(payload))

	// Re-arm the per-operation deadline before each request.
	zk.withTimeout(zk.opts.Timeout)

	if err := zk.conn.send(packet); err != nil {
		return reply{}, err
	}

	r, err := zk.conn.receive()
	if err != nil {
		return reply{}, err
	}

	// A TCP keep-alive frame carries no correlation info; the caller must
	// read again to get the real reply.
	for r.Head.Command == CmdTCPStillAlive {
		r, err = zk.conn.receive()
		if err != nil {
			return reply{}, err
		}
	}

	zk.replyID = r.Head.ReplyID
	zk.lastHeader = r.Head
	zk.lastPayload = r.Payload
	zk.tcpFrameLen = r.FrameLen

	zk.log.Debugf("recv cmd=%d session=%d reply=%d payload=%dB", r.Head.Command, r.Head.SessionID, r.Head.ReplyID, len(r.Payload))

	return r, nil
}

// sendCommand is the request/reply contract of §4.3: it enforces the
// connected precondition (except during Connect/auth, which call exchange
// directly), performs the exchange, and translates a fatal transport
// failure into the state machine's Closed transition.
func (zk *ZK) sendCommand(op string, command int, payload []byte) (reply, error) {
	if err := zk.requireConnected(op); err != nil {
		return reply{}, err
	}
	r, err := zk.exchange(command, payload)
	if err != nil {
		return reply{}, err
	}
	if r.Head.Command == CmdAckError {
		return r, errDevice(op, r.Head.Command)
	}
	return r, nil
}
