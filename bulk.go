package rbzk

import (
	"fmt"
)

// bulkRead implements the "prepare buffer / read chunks" flow of §4.4 (Mode
// A), with the "stream until ACK" fallback (Mode B) folded into the same
// chunk-reassembly loop: whichever reply code the device answers
// CmdPrepareBuffer with — CMD_DATA (fits in one reply), or CMD_PREPARE_DATA
// (a total size to stream) — is handled here, since both ultimately resolve
// to the same "read until declared size is satisfied" loop.
func (zk *ZK) bulkRead(op string, innerCmd, fct, ext int) ([]byte, error) {
	if err := zk.requireConnected(op); err != nil {
		return nil, err
	}

	prep, err := newBP().Pack([]string{"B", "H", "I", "I"}, []interface{}{1, innerCmd, fct, ext})
	if err != nil {
		return nil, errProtocol(op, err.Error())
	}

	r, err := zk.exchange(CmdPrepareBuffer, prep)
	if err != nil {
		return nil, err
	}
	if !r.ok() {
		return nil, errProtocol(op, fmt.Sprintf("prepare-buffer rejected with code %d", r.Head.Command))
	}

	if r.Head.Command == CmdData {
		// Whole dataset fit in the prepare-buffer reply itself.
		return r.Payload, nil
	}

	if len(r.Payload) < 4 {
		return nil, errProtocol(op, "prepare-data reply shorter than the 4-byte size prefix")
	}
	sizeVals, err := newBP().UnPack([]string{"I"}, r.Payload[:4])
	if err != nil {
		return nil, errProtocol(op, err.Error())
	}
	totalSize := sizeVals[0].(int)

	data, err := zk.streamChunks(op, totalSize)
	if err != nil {
		return nil, err
	}

	if _, err := zk.exchange(CmdFreeData, nil); err != nil {
		return nil, fmt.Errorf("%w (free-data after successful read)", err)
	}

	return data, nil
}

// streamChunks drives the CmdReadBuffer loop until totalSize bytes have
// been collected, retrying each chunk up to maxChunkRetries times (§4.4).
func (zk *ZK) streamChunks(op string, totalSize int) ([]byte, error) {
	maxChunk := maxChunkTCP
	if zk.opts.mode() == ModeUDP {
		maxChunk = maxChunkUDP
	}

	data := make([]byte, 0, totalSize)
	start := 0
	for start < totalSize {
		size := totalSize - start
		if size > maxChunk {
			size = maxChunk
		}

		var chunk []byte
		var err error
		for attempt := 0; attempt < maxChunkRetries; attempt++ {
			chunk, err = zk.readChunk(start, size)
			if err == nil {
				break
			}
			zk.log.Errorf("chunk read failed (attempt %d/%d) start=%d size=%d: %v", attempt+1, maxChunkRetries, start, size, err)
		}
		if err != nil {
			return nil, zk.fail(errProtocol(op, fmt.Sprintf("exhausted %d retries reading chunk at %d: %v", maxChunkRetries, start, err)))
		}

		data = append(data, chunk...)
		start += size
	}

	if len(data) != totalSize {
		return nil, errProtocol(op, fmt.Sprintf("reassembled %d bytes, expected %d", len(data), totalSize))
	}
	return data, nil
}

// readChunk issues one CmdReadBuffer(start, size) request and reassembles
// its reply per §4.4's "Chunk reassembly" rules. It uses rawExchange, not
// exchange: a single failed attempt must not tear the session down, since
// the caller retries on the same connection up to maxChunkRetries times.
func (zk *ZK) readChunk(start, size int) ([]byte, error) {
	payload, err := newBP().Pack([]string{"i", "i"}, []interface{}{start, size})
	if err != nil {
		return nil, err
	}

	r, err := zk.rawExchange(CmdReadBuffer, payload)
	if err != nil {
		return nil, err
	}

	switch r.Head.Command {
	case CmdData:
		chunk := r.Payload
		if zk.opts.mode() == ModeTCP {
			want := zk.tcpFrameLen - 8
			for len(chunk) < want {
				more, err := zk.conn.receive()
				if err != nil {
					return nil, err
				}
				chunk = append(chunk, more.Payload...)
			}
		}
		return chunk, nil

	case CmdPrepareData:
		if len(r.Payload) < 4 {
			return nil, errProtocol("read-buffer", "prepare-data chunk shorter than 4-byte size prefix")
		}
		sizeVals, err := newBP().UnPack([]string{"I"}, r.Payload[:4])
		if err != nil {
			return nil, err
		}
		chunkSize := sizeVals[0].(int)
		chunk := r.Payload[4:]

		for len(chunk) < chunkSize {
			more, err := zk.conn.receive()
			if err != nil {
				return nil, err
			}
			chunk = append(chunk, more.Payload...)
		}
		if len(chunk) > chunkSize {
			chunk = chunk[:chunkSize]
		}

		// Trailing 16-byte terminator: an outer TCP frame wrapping an
		// inner ACK_OK header.
		term, err := zk.conn.receive()
		if err != nil {
			return nil, err
		}
		if term.Head.Command != CmdAckOK {
			return nil, errProtocol("read-buffer", fmt.Sprintf("terminator carried code %d, want ACK_OK", term.Head.Command))
		}
		return chunk, nil

	case CmdAckOK:
		// UDP's "stream until ACK": a zero-length terminal frame.
		return nil, nil

	default:
		return nil, errProtocol("read-buffer", fmt.Sprintf("unexpected reply code %d", r.Head.Command))
	}
}
