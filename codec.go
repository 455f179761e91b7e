package rbzk

import (
	"bytes"
	"fmt"
	"time"

	binarypack "github.com/canhlinh/go-binary-pack"
	iconv "github.com/djimenez/iconv-go"
)

func newBP() *binarypack.BinaryPack {
	return &binarypack.BinaryPack{}
}

// packHeader serializes an inner packet (8-byte header + payload) with a
// correct checksum, per §4.1. session and reply are written into the
// header verbatim — no reply-id increment happens here; that bookkeeping
// belongs to the session engine (session.go).
func packHeader(command, session, reply int, payload []byte) ([]byte, error) {
	if payload == nil {
		payload = []byte{}
	}
	header, err := newBP().Pack([]string{"H", "H", "H", "H"}, []interface{}{command, 0, session, reply})
	if err != nil {
		return nil, fmt.Errorf("pack header: %w", err)
	}
	buf := append(header, payload...)
	checksum := onesComplementChecksum(buf)
	header, err = newBP().Pack([]string{"H", "H", "H", "H"}, []interface{}{command, int(checksum), session, reply})
	if err != nil {
		return nil, fmt.Errorf("pack header: %w", err)
	}
	return append(header, payload...), nil
}

// unpackHeader decodes the 8-byte inner packet header.
func unpackHeader(data []byte) (packetHeader, error) {
	if len(data) < 8 {
		return packetHeader{}, fmt.Errorf("short header: %d bytes", len(data))
	}
	vals, err := newBP().UnPack([]string{"H", "H", "H", "H"}, data[:8])
	if err != nil {
		return packetHeader{}, err
	}
	return packetHeader{
		Command:   vals[0].(int),
		Checksum:  vals[1].(int),
		SessionID: vals[2].(int),
		ReplyID:   vals[3].(int),
	}, nil
}

// onesComplementChecksum implements the 16-bit ones-complement checksum of
// §4.1: successive little-endian u16 words summed with end-around carry, an
// optional trailing odd byte, then a bitwise complement adjusted to stay
// non-negative. This mirrors the teacher's createCheckSum, written directly
// over bytes instead of round-tripping every word through the pack library.
func onesComplementChecksum(data []byte) uint16 {
	sum := 0
	i := 0
	for i+1 < len(data) {
		word := int(data[i]) | int(data[i+1])<<8
		sum += word
		if sum > 0xFFFF {
			sum -= 0xFFFF
		}
		i += 2
	}
	if i < len(data) {
		sum += int(data[i])
		for sum > 0xFFFF {
			sum -= 0xFFFF
		}
	}
	sum = ^sum
	for sum < 0 {
		sum += 0xFFFF
	}
	return uint16(sum & 0xFFFF)
}

// verifyChecksum recomputes the checksum over header-with-checksum-zeroed
// plus payload and compares it against the checksum carried in data.
func verifyChecksum(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	h, err := unpackHeader(data)
	if err != nil {
		return false
	}
	zeroed := make([]byte, len(data))
	copy(zeroed, data)
	zeroed[2] = 0
	zeroed[3] = 0
	return onesComplementChecksum(zeroed) == uint16(h.Checksum)
}

// encodeTime packs a local date-time into the compact 32-bit form used by
// CmdGetTime/CmdSetTime (§4.1).
func encodeTime(t time.Time) uint32 {
	yy := t.Year() - 2000
	mm := int(t.Month()) - 1
	dd := t.Day() - 1
	compact := (((yy*12+mm)*31)+dd)*86400 + t.Hour()*3600 + t.Minute()*60 + t.Second()
	return uint32(compact)
}

// decodeTime inverts encodeTime exactly.
func decodeTime(v uint32) time.Time {
	total := int(v)
	second := total % 60
	total /= 60
	minute := total % 60
	total /= 60
	hour := total % 24
	total /= 24
	day := total % 31
	total /= 31
	month := total % 12
	total /= 12
	year := total + 2000
	return time.Date(year, time.Month(month+1), day+1, hour, minute, second, 0, time.Local)
}

// encodeTimeHex packs the 6-byte "YY MM DD HH mm ss" form used by some
// commands (notably the real-time event stream the teacher originally
// consumed).
func encodeTimeHex(t time.Time) []byte {
	return []byte{
		byte(t.Year() - 2000),
		byte(t.Month()),
		byte(t.Day()),
		byte(t.Hour()),
		byte(t.Minute()),
		byte(t.Second()),
	}
}

// decodeTimeHex inverts encodeTimeHex.
func decodeTimeHex(b []byte) time.Time {
	if len(b) < 6 {
		return time.Time{}
	}
	return time.Date(2000+int(b[0]), time.Month(b[1]), int(b[2]), int(b[3]), int(b[4]), int(b[5]), 0, time.Local)
}

// decodeString trims a fixed-width, null-terminated wire string at its
// first NUL byte and, if encoding is not UTF-8, converts it from encoding
// into UTF-8 via iconv.
func decodeString(raw []byte, encoding string) string {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	if encoding == "" || encoding == "UTF-8" || encoding == "utf-8" {
		return string(raw)
	}
	out, err := iconv.ConvertString(string(raw), encoding, "UTF-8")
	if err != nil {
		return string(raw)
	}
	return out
}

// encodeString converts s from UTF-8 into encoding (if not UTF-8) and pads
// or truncates it to width bytes, null-terminated/padded.
func encodeString(s string, width int, encoding string) []byte {
	if encoding != "" && encoding != "UTF-8" && encoding != "utf-8" {
		if converted, err := iconv.ConvertString(s, "UTF-8", encoding); err == nil {
			s = converted
		}
	}
	out := make([]byte, width)
	b := []byte(s)
	n := len(b)
	if n > width {
		n = width
	}
	copy(out, b[:n])
	return out
}

// --- User record layouts ---

// decodeUser28 parses the 28-byte "ZK6" firmware user record. The numeric
// user_id field is distinct from the device-assigned uid (§4.1, §9:
// "Endianness and signedness").
func decodeUser28(data []byte, encoding string) (User, error) {
	if len(data) < 28 {
		return User{}, fmt.Errorf("short 28-byte user record: %d bytes", len(data))
	}
	vals, err := newBP().UnPack([]string{"H", "B", "5s", "8s", "I", "B", "B", "H", "I"}, data[:28])
	if err != nil {
		return User{}, err
	}
	password := decodeString([]byte(vals[2].(string)), encoding)
	name := decodeString([]byte(vals[3].(string)), encoding)
	card := uint32(vals[4].(int))
	groupID := vals[6].(int)
	userIDNum := uint32(vals[8].(int))
	return User{
		UID:       vals[0].(int),
		Privilege: uint8(vals[1].(int)),
		Password:  password,
		Name:      name,
		Card:      card,
		GroupID:   fmt.Sprintf("%d", groupID),
		UserID:    fmt.Sprintf("%d", userIDNum),
	}, nil
}

func encodeUser28(u User, encoding string) ([]byte, error) {
	var groupID int
	fmt.Sscanf(u.GroupID, "%d", &groupID)
	var userIDNum uint32
	fmt.Sscanf(u.UserID, "%d", &userIDNum)
	values := []interface{}{
		u.UID,
		int(u.Privilege),
		string(encodeString(u.Password, 5, encoding)),
		string(encodeString(u.Name, 8, encoding)),
		int(u.Card),
		0,
		groupID,
		0,
		int(userIDNum),
	}
	return newBP().Pack([]string{"H", "B", "5s", "8s", "I", "B", "B", "H", "I"}, values)
}

// decodeUser72 parses the 72-byte "ZK8" firmware user record, where
// group_id and user_id are null-terminated strings rather than numbers.
func decodeUser72(data []byte, encoding string) (User, error) {
	if len(data) < 72 {
		return User{}, fmt.Errorf("short 72-byte user record: %d bytes", len(data))
	}
	vals, err := newBP().UnPack([]string{"H", "B", "8s", "24s", "I", "B", "7s", "B", "24s"}, data[:72])
	if err != nil {
		return User{}, err
	}
	return User{
		UID:       vals[0].(int),
		Privilege: uint8(vals[1].(int)),
		Password:  decodeString([]byte(vals[2].(string)), encoding),
		Name:      decodeString([]byte(vals[3].(string)), encoding),
		Card:      uint32(vals[4].(int)),
		GroupID:   decodeString([]byte(vals[6].(string)), encoding),
		UserID:    decodeString([]byte(vals[8].(string)), encoding),
	}, nil
}

func encodeUser72(u User, encoding string) ([]byte, error) {
	values := []interface{}{
		u.UID,
		int(u.Privilege),
		string(encodeString(u.Password, 8, encoding)),
		string(encodeString(u.Name, 24, encoding)),
		int(u.Card),
		0,
		string(encodeString(u.GroupID, 7, encoding)),
		0,
		string(encodeString(u.UserID, 24, encoding)),
	}
	return newBP().Pack([]string{"H", "B", "8s", "24s", "I", "B", "7s", "B", "24s"}, values)
}

// --- Attendance record layouts ---

func decodeAttendance8(data []byte) (Attendance, error) {
	if len(data) < 8 {
		return Attendance{}, fmt.Errorf("short 8-byte attendance record: %d bytes", len(data))
	}
	vals, err := newBP().UnPack([]string{"H", "B", "I", "B"}, data[:8])
	if err != nil {
		return Attendance{}, err
	}
	uid := vals[0].(int)
	return Attendance{
		UID:       uid,
		UserID:    fmt.Sprintf("%d", uid),
		Status:    uint8(vals[1].(int)),
		Timestamp: decodeTime(uint32(vals[2].(int))),
		Punch:     uint8(vals[3].(int)),
	}, nil
}

// decodeAttendance16 parses the 16-byte variant. Per spec.md §9 Open
// Question #3, the numeric user id is decoded as a uint32 and kept as a
// number in UID; UserID holds its decimal form, built here from the number
// (never from a fixed-width string), so no leading zeros are involved.
func decodeAttendance16(data []byte) (Attendance, error) {
	if len(data) < 16 {
		return Attendance{}, fmt.Errorf("short 16-byte attendance record: %d bytes", len(data))
	}
	vals, err := newBP().UnPack([]string{"I", "I", "B", "B", "2s", "I"}, data[:16])
	if err != nil {
		return Attendance{}, err
	}
	userIDNum := vals[0].(int)
	return Attendance{
		UID:       userIDNum,
		UserID:    fmt.Sprintf("%d", userIDNum),
		Timestamp: decodeTime(uint32(vals[1].(int))),
		Status:    uint8(vals[2].(int)),
		Punch:     uint8(vals[3].(int)),
	}, nil
}

func decodeAttendance40(data []byte, encoding string) (Attendance, error) {
	if len(data) < 40 {
		return Attendance{}, fmt.Errorf("short 40-byte attendance record: %d bytes", len(data))
	}
	vals, err := newBP().UnPack([]string{"H", "24s", "B", "I", "B", "8s"}, data[:40])
	if err != nil {
		return Attendance{}, err
	}
	uid := vals[0].(int)
	userID := decodeString([]byte(vals[1].(string)), encoding)
	if userID == "" {
		userID = fmt.Sprintf("%d", uid)
	}
	return Attendance{
		UID:       uid,
		UserID:    userID,
		Status:    uint8(vals[2].(int)),
		Timestamp: decodeTime(uint32(vals[3].(int))),
		Punch:     uint8(vals[4].(int)),
	}, nil
}

// attendanceRecordSize returns the byte width of an attendance record given
// the total bulk payload size and the device-reported record count
// (§9: "the selector in every case is total_bulk_size / declared_record_count").
func attendanceRecordSize(totalSize, recordCount int) (int, error) {
	if recordCount <= 0 {
		return 0, fmt.Errorf("record count must be positive, got %d", recordCount)
	}
	size := totalSize / recordCount
	switch size {
	case 8, 16, 40:
		return size, nil
	default:
		return 0, fmt.Errorf("unsupported attendance record size %d (total=%d count=%d)", size, totalSize, recordCount)
	}
}

// userRecordSize returns the byte width of a user record the same way.
func userRecordSize(totalSize, recordCount int) (int, error) {
	if recordCount <= 0 {
		return 0, fmt.Errorf("record count must be positive, got %d", recordCount)
	}
	size := totalSize / recordCount
	switch size {
	case 28, 72:
		return size, nil
	default:
		return 0, fmt.Errorf("unsupported user record size %d (total=%d count=%d)", size, totalSize, recordCount)
	}
}

// parseFreeSizes parses the 80-byte (optionally +12-byte face block) reply
// to CmdGetFreeSizes (§4.1).
func parseFreeSizes(data []byte) (DeviceCounts, error) {
	if len(data) < 80 {
		return DeviceCounts{}, fmt.Errorf("short free-sizes block: %d bytes", len(data))
	}
	fields := make([]string, 20)
	for i := range fields {
		fields[i] = "i"
	}
	vals, err := newBP().UnPack(fields, data[:80])
	if err != nil {
		return DeviceCounts{}, err
	}
	asInt := func(i int) int { return vals[i].(int) }
	counts := DeviceCounts{
		Users:        asInt(4),
		Fingers:      asInt(6),
		Records:      asInt(8),
		Cards:        asInt(12),
		FingersCap:   asInt(14),
		UsersCap:     asInt(15),
		RecordsCap:   asInt(16),
		FingersAvail: asInt(17),
		UsersAvail:   asInt(18),
		RecordsAvail: asInt(19),
	}
	if len(data) >= 92 {
		faceVals, err := newBP().UnPack([]string{"i", "i", "i"}, data[80:92])
		if err == nil {
			counts.Faces = faceVals[0].(int)
			counts.FacesCap = faceVals[2].(int)
		}
	}
	return counts, nil
}
