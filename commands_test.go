package rbzk

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFreeSizes replies to a CMD_GET_FREE_SIZES request with an
// 80-byte block carrying the given user/record counts at their known
// offsets, zero elsewhere.
func writeFreeSizes(t *testing.T, conn net.Conn, head packetHeader, users, records int) {
	t.Helper()
	fields := make([]interface{}, 20)
	for i := range fields {
		fields[i] = 0
	}
	fields[4] = users
	fields[8] = records
	format := make([]string, 20)
	for i := range format {
		format[i] = "i"
	}
	payload, err := newBP().Pack(format, fields)
	require.NoError(t, err)
	writeFramedReply(t, conn, CmdAckOK, 1, head.ReplyID, payload)
}

// Scenario S1: an empty device reports zero users and zero attendance
// records, not an error.
func TestGetUsersEmptyDevice(t *testing.T) {
	addr := connectFakeDevice(t, func(conn net.Conn) {
		head, _ := readFramedRequest(t, conn)
		assert.Equal(t, CmdGetFreeSizes, head.Command)
		writeFreeSizes(t, conn, head, 0, 0)

		head, _ = readFramedRequest(t, conn)
		assert.Equal(t, CmdPrepareBuffer, head.Command)
		writeFramedReply(t, conn, CmdData, 1, head.ReplyID, nil)
	})

	zk := New(testOptions(t, addr))
	require.NoError(t, zk.Connect())

	users, err := zk.GetUsers()
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Equal(t, 1, zk.nextUID)
	assert.Equal(t, "1", zk.nextUserID)
}

// Scenario S2: a device reporting three 72-byte ("ZK8" firmware) user
// records must decode all three with string user/group ids.
func TestGetUsersThreeRecords72Byte(t *testing.T) {
	want := []User{
		{UID: 1, UserID: "emp-1", Name: "Alice", Privilege: UserDefault, GroupID: "eng"},
		{UID: 2, UserID: "emp-2", Name: "Bob", Privilege: UserAdmin, GroupID: "ops"},
		{UID: 3, UserID: "emp-3", Name: "Carol", Privilege: UserManager, GroupID: "eng"},
	}

	addr := connectFakeDevice(t, func(conn net.Conn) {
		head, _ := readFramedRequest(t, conn)
		assert.Equal(t, CmdGetFreeSizes, head.Command)
		writeFreeSizes(t, conn, head, len(want), 0)

		head, _ = readFramedRequest(t, conn)
		assert.Equal(t, CmdPrepareBuffer, head.Command)

		var records []byte
		for _, u := range want {
			rec, err := encodeUser72(u, "UTF-8")
			require.NoError(t, err)
			records = append(records, rec...)
		}
		totalPrefix, err := newBP().Pack([]string{"I"}, []interface{}{len(records)})
		require.NoError(t, err)
		body := append(totalPrefix, records...)
		writeFramedReply(t, conn, CmdData, 1, head.ReplyID, body)
	})

	zk := New(testOptions(t, addr))
	require.NoError(t, zk.Connect())

	got, err := zk.GetUsers()
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range want {
		assert.Equal(t, want[i].UID, got[i].UID)
		assert.Equal(t, want[i].UserID, got[i].UserID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].GroupID, got[i].GroupID)
	}
	assert.Equal(t, 72, zk.userPacketSize)
}

// Scenario S3: on a 28-byte ("ZK6" firmware) device, SetUser with a zero
// UID auto-allocates the next free numeric uid/user_id and encodes with
// the 28-byte layout.
func TestSetUserAutoAllocates28ByteFirmware(t *testing.T) {
	existing := User{UID: 5, UserID: "5", Name: "Dave", GroupID: "3"}

	addr := connectFakeDevice(t, func(conn net.Conn) {
		head, _ := readFramedRequest(t, conn)
		assert.Equal(t, CmdGetFreeSizes, head.Command)
		writeFreeSizes(t, conn, head, 1, 0)

		head, _ = readFramedRequest(t, conn)
		assert.Equal(t, CmdPrepareBuffer, head.Command)
		rec, err := encodeUser28(existing, "UTF-8")
		require.NoError(t, err)
		totalPrefix, err := newBP().Pack([]string{"I"}, []interface{}{len(rec)})
		require.NoError(t, err)
		writeFramedReply(t, conn, CmdData, 1, head.ReplyID, append(totalPrefix, rec...))

		head, payload := readFramedRequest(t, conn)
		assert.Equal(t, CmdUserWRQ, head.Command)
		require.Len(t, payload, 28)
		got, err := decodeUser28(payload, "UTF-8")
		require.NoError(t, err)
		assert.Equal(t, 6, got.UID)
		assert.Equal(t, "1", got.UserID)
		assert.Equal(t, "New Hire", got.Name)
		writeFramedReply(t, conn, CmdAckOK, 1, head.ReplyID, nil)
	})

	zk := New(testOptions(t, addr))
	require.NoError(t, zk.Connect())

	require.NoError(t, zk.SetUser(User{Name: "New Hire"}))
}

// Scenario S4: attendance records for an unrecognized uid keep the
// numeric fallback UserID rather than an empty string.
func TestGetAttendanceUnknownUserFallback(t *testing.T) {
	ts := encodeTime(time.Date(2024, time.May, 10, 9, 0, 0, 0, time.Local))

	addr := connectFakeDevice(t, func(conn net.Conn) {
		head, _ := readFramedRequest(t, conn)
		assert.Equal(t, CmdGetFreeSizes, head.Command)
		writeFreeSizes(t, conn, head, 0, 1)

		head, _ = readFramedRequest(t, conn)
		assert.Equal(t, CmdPrepareBuffer, head.Command)
		writeFramedReply(t, conn, CmdData, 1, head.ReplyID, nil)

		head, _ = readFramedRequest(t, conn)
		assert.Equal(t, CmdPrepareBuffer, head.Command)
		rec, err := newBP().Pack([]string{"H", "B", "I", "B"}, []interface{}{99, 1, int(ts), 0})
		require.NoError(t, err)
		totalPrefix, err := newBP().Pack([]string{"I"}, []interface{}{len(rec)})
		require.NoError(t, err)
		writeFramedReply(t, conn, CmdData, 1, head.ReplyID, append(totalPrefix, rec...))
	})

	zk := New(testOptions(t, addr))
	require.NoError(t, zk.Connect())

	records, err := zk.GetAttendance()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 99, records[0].UID)
	assert.Equal(t, "99", records[0].UserID)
}

// Scenario S5: WithDeviceDisabled must re-enable the device even when the
// guarded function fails, and must propagate the guarded function's own
// error rather than any secondary re-enable failure.
func TestWithDeviceDisabledReleasesOnFailure(t *testing.T) {
	addr := connectFakeDevice(t, func(conn net.Conn) {
		head, _ := readFramedRequest(t, conn)
		assert.Equal(t, CmdDisableDevice, head.Command)
		writeFramedReply(t, conn, CmdAckOK, 1, head.ReplyID, nil)

		head, _ = readFramedRequest(t, conn)
		assert.Equal(t, CmdEnableDevice, head.Command)
		writeFramedReply(t, conn, CmdAckOK, 1, head.ReplyID, nil)
	})

	zk := New(testOptions(t, addr))
	require.NoError(t, zk.Connect())

	guardErr := errProtocol("guarded-op", "boom")
	err := zk.WithDeviceDisabled(func() error { return guardErr })
	assert.Equal(t, guardErr, err)
}

// Scenario S6: after Restart, the connection is considered closed and any
// further operation fails with a state error rather than attempting to use
// a dead socket.
func TestRestartThenStateError(t *testing.T) {
	addr := connectFakeDevice(t, func(conn net.Conn) {
		// Restart: the device drops the line without a graceful ack.
		readFramedRequest(t, conn)
	})

	zk := New(testOptions(t, addr))
	require.NoError(t, zk.Connect())

	require.NoError(t, zk.Restart())
	assert.False(t, zk.Connected())

	_, err := zk.GetTime()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindState))
}
