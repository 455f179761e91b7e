package rbzk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Property 1 (checksum round-trip): pack a header, unpack it, and confirm
// the checksum verifies. See DESIGN.md's Open Question decisions for why
// this checks self-consistency rather than a literal external byte string.
func TestChecksumRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		command int
		session int
		reply   int
		payload []byte
	}{
		{"read-buffer-chunk", CmdReadBuffer, 13838, 3, []byte{0x00, 0x00, 0x00, 0x00, 0x54, 0x07, 0x00, 0x00}},
		{"connect-empty-payload", CmdConnect, 0, 65534, nil},
		{"typical-user-payload", CmdUserWRQ, 42, 100, []byte("some fixed width record bytes...")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			packet, err := packHeader(tc.command, tc.session, tc.reply, tc.payload)
			require.NoError(t, err)
			assert.True(t, verifyChecksum(packet))

			head, err := unpackHeader(packet)
			require.NoError(t, err)
			assert.Equal(t, tc.command, head.Command)
			assert.Equal(t, tc.session, head.SessionID)
			assert.Equal(t, tc.reply, head.ReplyID)
		})
	}
}

func TestChecksumDetectsCorruption(t *testing.T) {
	packet, err := packHeader(CmdConnect, 5, 10, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.True(t, verifyChecksum(packet))

	corrupted := append([]byte(nil), packet...)
	corrupted[len(corrupted)-1] ^= 0xFF
	assert.False(t, verifyChecksum(corrupted))
}

// Property 2 (timestamp round-trip).
func TestTimestampRoundTrip(t *testing.T) {
	cases := []time.Time{
		time.Date(2000, time.January, 1, 0, 0, 0, 0, time.Local),
		time.Date(2099, time.December, 31, 23, 59, 59, 0, time.Local),
		time.Date(2024, time.February, 29, 12, 30, 45, 0, time.Local),
		time.Date(2018, time.July, 4, 8, 15, 0, 0, time.Local),
	}
	for _, tc := range cases {
		encoded := encodeTime(tc)
		decoded := decodeTime(encoded)
		assert.Equal(t, tc.Year(), decoded.Year())
		assert.Equal(t, tc.Month(), decoded.Month())
		assert.Equal(t, tc.Day(), decoded.Day())
		assert.Equal(t, tc.Hour(), decoded.Hour())
		assert.Equal(t, tc.Minute(), decoded.Minute())
		assert.Equal(t, tc.Second(), decoded.Second())
	}
}

func TestTimestampHexRoundTrip(t *testing.T) {
	tc := time.Date(2023, time.March, 15, 9, 5, 30, 0, time.Local)
	encoded := encodeTimeHex(tc)
	require.Len(t, encoded, 6)
	decoded := decodeTimeHex(encoded)
	assert.Equal(t, tc.Year(), decoded.Year())
	assert.Equal(t, tc.Month(), decoded.Month())
	assert.Equal(t, tc.Day(), decoded.Day())
	assert.Equal(t, tc.Hour(), decoded.Hour())
	assert.Equal(t, tc.Minute(), decoded.Minute())
	assert.Equal(t, tc.Second(), decoded.Second())
}

// Property 5 (user record symmetry), 28-byte variant. The numeric fields
// round-trip; GroupID/UserID are decimal strings in this variant (§4.1).
func TestUser28RoundTrip(t *testing.T) {
	u := User{
		UID:       7,
		UserID:    "12345",
		Name:      "Alice",
		Privilege: UserAdmin,
		Password:  "1234",
		GroupID:   "3",
		Card:      998877,
	}
	packed, err := encodeUser28(u, "UTF-8")
	require.NoError(t, err)
	require.Len(t, packed, 28)

	got, err := decodeUser28(packed, "UTF-8")
	require.NoError(t, err)
	assert.Equal(t, u.UID, got.UID)
	assert.Equal(t, u.UserID, got.UserID)
	assert.Equal(t, u.Name, got.Name)
	assert.Equal(t, u.Privilege, got.Privilege)
	assert.Equal(t, u.Password, got.Password)
	assert.Equal(t, u.GroupID, got.GroupID)
	assert.Equal(t, u.Card, got.Card)
}

// Property 5, 72-byte variant. GroupID/UserID are strings here.
func TestUser72RoundTrip(t *testing.T) {
	u := User{
		UID:       1324,
		UserID:    "JD1",
		Name:      "John Doe",
		Privilege: UserManager,
		Password:  "secret1",
		GroupID:   "eng",
		Card:      42,
	}
	packed, err := encodeUser72(u, "UTF-8")
	require.NoError(t, err)
	require.Len(t, packed, 72)

	got, err := decodeUser72(packed, "UTF-8")
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestAttendance8RoundTrip(t *testing.T) {
	ts := time.Date(2022, time.June, 1, 8, 0, 0, 0, time.Local)
	packed, err := newBP().Pack([]string{"H", "B", "I", "B"}, []interface{}{15, 1, int(encodeTime(ts)), 0})
	require.NoError(t, err)

	got, err := decodeAttendance8(packed)
	require.NoError(t, err)
	assert.Equal(t, 15, got.UID)
	assert.Equal(t, uint8(1), got.Status)
	assert.Equal(t, uint8(0), got.Punch)
	assert.Equal(t, ts.Unix(), got.Timestamp.Unix())
}

func TestAttendance40RoundTrip(t *testing.T) {
	ts := time.Date(2022, time.June, 1, 8, 0, 0, 0, time.Local)
	packed, err := newBP().Pack(
		[]string{"H", "24s", "B", "I", "B", "8s"},
		[]interface{}{15, string(encodeString("JD1", 24, "UTF-8")), 1, int(encodeTime(ts)), 0, string(make([]byte, 8))},
	)
	require.NoError(t, err)

	got, err := decodeAttendance40(packed, "UTF-8")
	require.NoError(t, err)
	assert.Equal(t, 15, got.UID)
	assert.Equal(t, "JD1", got.UserID)
	assert.Equal(t, uint8(1), got.Status)
}

func TestAttendanceRecordSizeSelector(t *testing.T) {
	size, err := attendanceRecordSize(120, 3)
	require.NoError(t, err)
	assert.Equal(t, 40, size)

	_, err = attendanceRecordSize(123, 3)
	assert.Error(t, err)
}

func TestUserRecordSizeSelector(t *testing.T) {
	size, err := userRecordSize(216, 3)
	require.NoError(t, err)
	assert.Equal(t, 72, size)

	size, err = userRecordSize(84, 3)
	require.NoError(t, err)
	assert.Equal(t, 28, size)
}

// Property 6 (commkey determinism). Golden values independently re-derived
// from §4.3's byte-level recipe (see DESIGN.md Open Question decisions).
func TestCommKeyDeterminism(t *testing.T) {
	key, err := commKey(0, 0, 50)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x61, 0x7d, 0x32, 0x79}, key)

	key, err = commKey(123456, 13838, 50)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x26, 0x7f, 0x32, 0xcf}, key)
}

func TestFreeSizesParsing(t *testing.T) {
	fields := make([]interface{}, 20)
	for i := range fields {
		fields[i] = 0
	}
	fields[4] = 10  // users
	fields[6] = 3   // fingers
	fields[8] = 500 // records
	fields[12] = 2  // cards
	fields[14] = 3000
	fields[15] = 3000
	fields[16] = 100000
	fields[17] = 2997
	fields[18] = 2990
	fields[19] = 99500

	format := make([]string, 20)
	for i := range format {
		format[i] = "i"
	}
	data, err := newBP().Pack(format, fields)
	require.NoError(t, err)

	counts, err := parseFreeSizes(data)
	require.NoError(t, err)
	assert.Equal(t, 10, counts.Users)
	assert.Equal(t, 3, counts.Fingers)
	assert.Equal(t, 500, counts.Records)
	assert.Equal(t, 2, counts.Cards)
	assert.Equal(t, 2990, counts.UsersAvail)
}
