package rbzk

import "encoding/hex"

// hexDump renders bytes as a hex string for debug logging, adapted from
// the teacher's PrintlHex helper.
func hexDump(buf []byte) string {
	return hex.EncodeToString(buf)
}
