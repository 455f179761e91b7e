package rbzk

import (
	"fmt"
	"time"
)

// ZK is a connection to a single ZKTeco device. It is not safe for
// concurrent use: the wire protocol correlates replies by a reply-id the
// client itself advances, so two in-flight requests on one connection
// would race (§5). Callers needing concurrency should open one ZK per
// worker.
type ZK struct {
	opts      Options
	conn      transport
	log       logger
	connected bool

	sessionID int
	replyID   int

	lastHeader  packetHeader
	lastPayload []byte
	tcpFrameLen int

	counts         DeviceCounts
	nextUID        int
	nextUserID     string
	userPacketSize int
}

// New creates a ZK client for the given options. It does not connect; call
// Connect to establish a session.
func New(opts Options) *ZK {
	opts = opts.withDefaults()
	if opts.Verbose {
		SetVerbose(true)
	}
	return &ZK{
		opts:           opts,
		log:            Log,
		replyID:        ushrtMax - 1,
		userPacketSize: 28,
	}
}

func (zk *ZK) addr() string {
	return fmt.Sprintf("%s:%d", zk.opts.IP, zk.opts.Port)
}

// Connected reports whether the connection has completed CMD_CONNECT (and,
// if required, authentication) and has not since failed fatally.
func (zk *ZK) Connected() bool {
	return zk.connected
}

// Counts returns the device counts last populated by ReadSizes.
func (zk *ZK) Counts() DeviceCounts {
	return zk.counts
}

// requireConnected enforces the state-machine precondition of §4.3/§7:
// every operation other than Connect/auth requires an established session.
func (zk *ZK) requireConnected(op string) error {
	if !zk.connected {
		return errState(op)
	}
	return nil
}

// fail tears down the connection after a fatal error, per §7's propagation
// policy: on any fatal error during an exchange, connected is cleared, the
// socket is closed, and subsequent operations fail with state until the
// caller reconnects.
func (zk *ZK) fail(err error) error {
	zk.connected = false
	if zk.conn != nil {
		zk.conn.close()
		zk.conn = nil
	}
	return err
}

func (zk *ZK) withTimeout(d time.Duration) {
	if zk.conn != nil {
		setTransportTimeout(zk.conn, d)
	}
}
