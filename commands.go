package rbzk

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// EnableDevice re-enables input acceptance on the device (§4.5).
func (zk *ZK) EnableDevice() error {
	_, err := zk.sendCommand("enable-device", CmdEnableDevice, nil)
	return err
}

// DisableDevice suspends input acceptance on the device. Callers performing
// bulk modifications should disable, mutate, then re-enable in a
// guaranteed-release block (§5, scenario S5).
func (zk *ZK) DisableDevice() error {
	_, err := zk.sendCommand("disable-device", CmdDisableDevice, nil)
	return err
}

// WithDeviceDisabled disables the device, runs fn, then re-enables it even
// if fn fails. A secondary failure re-enabling is logged, not returned, so
// it never masks fn's own error (§5, scenario S5).
func (zk *ZK) WithDeviceDisabled(fn func() error) error {
	if err := zk.DisableDevice(); err != nil {
		return err
	}
	fnErr := fn()
	if err := zk.EnableDevice(); err != nil {
		zk.log.Errorf("re-enable after guarded operation failed: %v", err)
	}
	return fnErr
}

// Restart reboots the device. The device drops the connection without a
// graceful ack; the caller must not expect a clean reply (§4.5).
func (zk *ZK) Restart() error {
	if err := zk.requireConnected("restart"); err != nil {
		return err
	}
	zk.exchange(CmdRestart, nil)
	zk.connected = false
	if zk.conn != nil {
		zk.conn.close()
		zk.conn = nil
	}
	return nil
}

// PowerOff powers the device down. Same caveat as Restart.
func (zk *ZK) PowerOff() error {
	if err := zk.requireConnected("poweroff"); err != nil {
		return err
	}
	zk.exchange(CmdPowerOff, nil)
	zk.connected = false
	if zk.conn != nil {
		zk.conn.close()
		zk.conn = nil
	}
	return nil
}

// GetTime reads the device's real-time clock.
func (zk *ZK) GetTime() (time.Time, error) {
	r, err := zk.sendCommand("get-time", CmdGetTime, nil)
	if err != nil {
		return time.Time{}, err
	}
	if len(r.Payload) < 4 {
		return time.Time{}, errProtocol("get-time", "short reply")
	}
	vals, err := newBP().UnPack([]string{"I"}, r.Payload[:4])
	if err != nil {
		return time.Time{}, errProtocol("get-time", err.Error())
	}
	return decodeTime(uint32(vals[0].(int))), nil
}

// SetTime writes the device's real-time clock.
func (zk *ZK) SetTime(t time.Time) error {
	payload, err := newBP().Pack([]string{"I"}, []interface{}{int(encodeTime(t))})
	if err != nil {
		return errProtocol("set-time", err.Error())
	}
	_, err = zk.sendCommand("set-time", CmdSetTime, payload)
	return err
}

// TestVoice plays a device voice prompt by its numeric index (0..51,
// device-defined).
func (zk *ZK) TestVoice(index int) error {
	payload, err := newBP().Pack([]string{"I"}, []interface{}{index})
	if err != nil {
		return errProtocol("test-voice", err.Error())
	}
	_, err = zk.sendCommand("test-voice", CmdTestVoice, payload)
	return err
}

// Unlock opens the door relay for durationTenths tenths of a second.
func (zk *ZK) Unlock(durationTenths int) error {
	payload, err := newBP().Pack([]string{"I"}, []interface{}{durationTenths})
	if err != nil {
		return errProtocol("unlock", err.Error())
	}
	_, err = zk.sendCommand("unlock", CmdUnlock, payload)
	return err
}

// DoorState reports whether the door sensor currently reads open: an OK
// reply means open, a fail reply (including CMD_ACK_ERROR) means closed.
func (zk *ZK) DoorState() (bool, error) {
	r, err := zk.sendCommand("door-state", CmdDoorStateRRQ, nil)
	if err != nil {
		if IsKind(err, KindDevice) {
			return false, nil
		}
		return false, err
	}
	return r.ok(), nil
}

// WriteLCD writes text to a given LCD line.
func (zk *ZK) WriteLCD(line int, text string) error {
	header, err := newBP().Pack([]string{"H", "B"}, []interface{}{line, 0})
	if err != nil {
		return errProtocol("write-lcd", err.Error())
	}
	payload := append(header, []byte(" "+text)...)
	_, err = zk.sendCommand("write-lcd", CmdWriteLCD, payload)
	return err
}

// ClearLCD clears the LCD screen.
func (zk *ZK) ClearLCD() error {
	_, err := zk.sendCommand("clear-lcd", CmdClearLCD, nil)
	return err
}

// RefreshData instructs the device to reload its internal caches.
func (zk *ZK) RefreshData() error {
	_, err := zk.sendCommand("refresh-data", CmdRefreshData, nil)
	return err
}

// ClearAttendance erases the attendance log.
func (zk *ZK) ClearAttendance() error {
	_, err := zk.sendCommand("clear-attendance", CmdClearAttLog, nil)
	return err
}

// ClearData wipes all data (users, templates, attendance) from the device.
func (zk *ZK) ClearData() error {
	_, err := zk.sendCommand("clear-data", CmdClearData, nil)
	return err
}

// DeleteUser removes a user by device-assigned uid.
func (zk *ZK) DeleteUser(uid int) error {
	payload, err := newBP().Pack([]string{"H"}, []interface{}{uid})
	if err != nil {
		return errProtocol("delete-user", err.Error())
	}
	_, err = zk.sendCommand("delete-user", CmdDeleteUser, payload)
	return err
}

// ReadSizes reads device record/slot counts (users, fingers, records,
// cards, faces + capacities + available slots) and populates Counts(). The
// next-uid/next-user-id allocator state is set by GetUsers, not here.
func (zk *ZK) ReadSizes() (DeviceCounts, error) {
	r, err := zk.sendCommand("read-sizes", CmdGetFreeSizes, nil)
	if err != nil {
		return DeviceCounts{}, err
	}
	counts, err := parseFreeSizes(r.Payload)
	if err != nil {
		return DeviceCounts{}, errProtocol("read-sizes", err.Error())
	}
	zk.counts = counts
	return counts, nil
}

// getVersionOption sends CMD_OPTIONS_RRQ (or CmdGetVersion for firmware)
// with a "~Key\0"-style option string and parses the "key=value\0" reply.
func (zk *ZK) getVersionOption(op string, cmd int, key string) (string, error) {
	payload := append([]byte(key), 0)
	r, err := zk.sendCommand(op, cmd, payload)
	if err != nil {
		return "", err
	}
	resp := decodeString(r.Payload, zk.opts.Encoding)
	if idx := strings.IndexByte(resp, '='); idx >= 0 {
		return resp[idx+1:], nil
	}
	return resp, nil
}

// GetFirmwareVersion returns the device's firmware version string.
func (zk *ZK) GetFirmwareVersion() (string, error) {
	return zk.getVersionOption("get-firmware-version", CmdGetVersion, "~FirmwareVersion\x00")
}

// GetSerialNumber returns the device serial number.
func (zk *ZK) GetSerialNumber() (string, error) {
	return zk.getVersionOption("get-serial-number", CmdOptionsRRQ, "~SerialNumber\x00")
}

// GetMAC returns the device's MAC address.
func (zk *ZK) GetMAC() (string, error) {
	return zk.getVersionOption("get-mac", CmdOptionsRRQ, "MAC\x00")
}

// GetDeviceName returns the device's configured name.
func (zk *ZK) GetDeviceName() (string, error) {
	return zk.getVersionOption("get-device-name", CmdOptionsRRQ, "~DeviceName\x00")
}

// GetPlatform returns the device's hardware platform identifier.
func (zk *ZK) GetPlatform() (string, error) {
	return zk.getVersionOption("get-platform", CmdOptionsRRQ, "~Platform\x00")
}

// GetFaceVersion returns the device's face-recognition algorithm version.
func (zk *ZK) GetFaceVersion() (string, error) {
	return zk.getVersionOption("get-face-version", CmdOptionsRRQ, "ZKFaceVersion\x00")
}

// GetFingerprintVersion returns the device's fingerprint algorithm version.
func (zk *ZK) GetFingerprintVersion() (string, error) {
	return zk.getVersionOption("get-fingerprint-version", CmdOptionsRRQ, "ZKFPVersion\x00")
}

// GetExtendFmt returns the device's extended-record format identifier.
func (zk *ZK) GetExtendFmt() (string, error) {
	return zk.getVersionOption("get-extend-fmt", CmdOptionsRRQ, "~ExtendFmt\x00")
}

// GetUsers downloads the full user list via the bulk transfer engine and
// picks the next free uid/user_id (§4.4, §9: "dispatch on the computed
// packet size").
func (zk *ZK) GetUsers() ([]User, error) {
	if _, err := zk.ReadSizes(); err != nil {
		return nil, err
	}

	data, err := zk.bulkRead("get-users", CmdUserTempRRQ, FctUser, 0)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 {
		zk.nextUID = 1
		zk.nextUserID = "1"
		return []User{}, nil
	}

	totalVals, err := newBP().UnPack([]string{"I"}, data[:4])
	if err != nil {
		return nil, errProtocol("get-users", err.Error())
	}
	totalSize := totalVals[0].(int)
	data = data[4:]

	recordSize, err := userRecordSize(totalSize, zk.counts.Users)
	if err != nil {
		if len(data) >= 72 {
			recordSize = 72
		} else {
			recordSize = 28
		}
	}
	zk.userPacketSize = recordSize

	users := make([]User, 0, zk.counts.Users)
	usedUIDs := map[int]bool{}
	usedUserIDs := map[string]bool{}
	maxUID := 0

	for len(data) >= recordSize {
		var u User
		var err error
		if recordSize == 72 {
			u, err = decodeUser72(data[:recordSize], zk.opts.Encoding)
		} else {
			u, err = decodeUser28(data[:recordSize], zk.opts.Encoding)
		}
		if err != nil {
			return nil, errProtocol("get-users", err.Error())
		}
		users = append(users, u)
		usedUIDs[u.UID] = true
		usedUserIDs[u.UserID] = true
		if u.UID > maxUID {
			maxUID = u.UID
		}
		data = data[recordSize:]
	}

	zk.nextUID = maxUID + 1
	zk.nextUserID = nextFreeUserID(usedUserIDs)
	_ = usedUIDs

	return users, nil
}

// nextFreeUserID picks the smallest positive decimal user id string not
// already taken, matching the teacher's "pick a next_user_id that is not
// already taken" invariant (§3).
func nextFreeUserID(used map[string]bool) string {
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%d", i)
		if !used[candidate] {
			return candidate
		}
	}
}

// SetUser creates or updates a user record. If u.UID is zero, the
// connection's next free uid is allocated; if GetUsers has not yet
// populated it, SetUser calls GetUsers first. An empty u.UserID is filled
// the same way.
func (zk *ZK) SetUser(u User) error {
	if u.UID == 0 {
		if zk.nextUID == 0 {
			if _, err := zk.GetUsers(); err != nil {
				return err
			}
		}
		u.UID = zk.nextUID
	}
	if u.UserID == "" {
		if zk.nextUserID == "" {
			if _, err := zk.GetUsers(); err != nil {
				return err
			}
		}
		u.UserID = zk.nextUserID
	}

	var payload []byte
	var err error
	if zk.userPacketSize == 72 {
		payload, err = encodeUser72(u, zk.opts.Encoding)
	} else {
		payload, err = encodeUser28(u, zk.opts.Encoding)
	}
	if err != nil {
		return errProtocol("set-user", err.Error())
	}

	_, err = zk.sendCommand("set-user", CmdUserWRQ, payload)
	return err
}

// GetAttendance downloads the full attendance log via the bulk transfer
// engine and maps each record's uid to the caller-facing user_id using the
// current user list, falling back to the numeric uid when unknown
// (§4.5, scenario S4).
func (zk *ZK) GetAttendance() ([]Attendance, error) {
	users, err := zk.GetUsers()
	if err != nil {
		return nil, err
	}
	uidToUserID := make(map[int]string, len(users))
	for _, u := range users {
		uidToUserID[u.UID] = u.UserID
	}

	data, err := zk.bulkRead("get-attendance", CmdAttLogRRQ, FctAttLog, 0)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 {
		return []Attendance{}, nil
	}

	totalVals, err := newBP().UnPack([]string{"I"}, data[:4])
	if err != nil {
		return nil, errProtocol("get-attendance", err.Error())
	}
	totalSize := totalVals[0].(int)
	data = data[4:]

	recordSize, err := attendanceRecordSize(totalSize, zk.counts.Records)
	if err != nil {
		return nil, errProtocol("get-attendance", err.Error())
	}

	records := make([]Attendance, 0, zk.counts.Records)
	for len(data) >= recordSize {
		var a Attendance
		var err error
		switch recordSize {
		case 8:
			a, err = decodeAttendance8(data[:recordSize])
		case 16:
			a, err = decodeAttendance16(data[:recordSize])
		case 40:
			a, err = decodeAttendance40(data[:recordSize], zk.opts.Encoding)
		}
		if err != nil {
			return nil, errProtocol("get-attendance", err.Error())
		}
		if name, ok := uidToUserID[a.UID]; ok {
			a.UserID = name
		}
		records = append(records, a)
		data = data[recordSize:]
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp.Before(records[j].Timestamp) })
	return records, nil
}

// GetTemplates downloads every fingerprint template on the device.
func (zk *ZK) GetTemplates() ([]FingerTemplate, error) {
	data, err := zk.bulkRead("get-templates", CmdUserTempRRQ, FctFingerTmp, 0)
	if err != nil {
		return nil, err
	}
	return parseTemplates(data)
}

// parseTemplates decodes a concatenated stream of finger templates, after a
// leading 4-byte prefix. Each entry is prefixed with a u16 size, u16 uid, u8
// finger_id, u8 valid flag, followed by size-6 bytes of opaque template data
// (size counts the 6-byte entry header).
func parseTemplates(data []byte) ([]FingerTemplate, error) {
	var templates []FingerTemplate
	if len(data) >= 4 {
		if vals, err := newBP().UnPack([]string{"I"}, data[:4]); err == nil {
			_ = vals
			data = data[4:]
		}
	}
	for len(data) >= 6 {
		hdr, err := newBP().UnPack([]string{"H", "H", "B", "B"}, data[:6])
		if err != nil {
			return nil, errProtocol("get-templates", err.Error())
		}
		size := hdr[0].(int)
		if size < 6 || size > len(data) {
			break
		}
		templates = append(templates, FingerTemplate{
			UID:           hdr[1].(int),
			FingerID:      uint8(hdr[2].(int)),
			Valid:         hdr[3].(int) == 1,
			TemplateBytes: append([]byte(nil), data[6:size]...),
		})
		data = data[size:]
	}
	return templates, nil
}

// GetUserTemplate downloads a single finger's template for one user.
func (zk *ZK) GetUserTemplate(uid int, fingerID uint8) (FingerTemplate, error) {
	payload, err := newBP().Pack([]string{"H", "H"}, []interface{}{uid, int(fingerID)})
	if err != nil {
		return FingerTemplate{}, errProtocol("get-user-template", err.Error())
	}
	r, err := zk.sendCommand("get-user-template", CmdGetUserTemp, payload)
	if err != nil {
		return FingerTemplate{}, err
	}
	if len(r.Payload) < 6 {
		return FingerTemplate{}, errProtocol("get-user-template", "short reply")
	}
	hdr, err := newBP().UnPack([]string{"H", "B", "B"}, r.Payload[:4])
	if err != nil {
		return FingerTemplate{}, errProtocol("get-user-template", err.Error())
	}
	return FingerTemplate{
		UID:           hdr[0].(int),
		FingerID:      uint8(hdr[1].(int)),
		Valid:         hdr[2].(int) == 1,
		TemplateBytes: append([]byte(nil), r.Payload[4:]...),
	}, nil
}
