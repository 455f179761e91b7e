package rbzk

// Command codes understood by the ZK wire protocol.
const (
	CmdConnect        = 1000
	CmdExit           = 1001
	CmdEnableDevice   = 1002
	CmdDisableDevice  = 1003
	CmdRestart        = 1004
	CmdPowerOff       = 1005
	CmdSleep          = 1006
	CmdResume         = 1007

	CmdOptionsRRQ = 11
	CmdOptionsWRQ = 12

	CmdAttLogRRQ    = 13
	CmdClearData    = 14
	CmdClearAttLog  = 15
	CmdDeleteUser   = 18
	CmdClearAdmin   = 20

	CmdGetFreeSizes = 50

	CmdUnlock       = 31
	CmdDoorStateRRQ = 35

	CmdWriteLCD = 66
	CmdClearLCD = 67

	CmdGetTime = 201
	CmdSetTime = 202

	CmdRegEvent = 500

	CmdUserWRQ     = 8
	CmdUserTempRRQ = 9

	CmdGetUserTemp = 88

	CmdRefreshData = 1013
	CmdTestVoice   = 1017

	CmdVersion   = 1100
	CmdGetVersion = 1100
	CmdAuth      = 1102

	CmdPrepareData = 1500
	CmdData        = 1501
	CmdFreeData    = 1502

	CmdPrepareBuffer = 1503
	CmdReadBuffer    = 1504

	CmdAckOK      = 2000
	CmdAckError   = 2001
	CmdAckData    = 2002
	CmdAckRetry   = 2003
	CmdAckRepeat  = 2004
	CmdAckUnauth  = 2005

	CmdTCPStillAlive = 2007
)

// Function-type selectors used with CmdUserTempRRQ / the bulk-read family.
const (
	FctAttLog    = 1
	FctFingerTmp = 7
	FctWorkCode  = 8
	FctFingerTmp2 = 2
	FctOpLog     = 4
	FctUser      = 5
	FctSMS       = 6
	FctUData     = 7
)

// Device-defined user privilege levels.
const (
	UserDefault  = 0
	UserEnroller = 2
	UserManager  = 6
	UserAdmin    = 14
)

// Real-time event flags accepted by CmdRegEvent.
const (
	EFAttLog       = 1
	EFFinger       = 2
	EFEnrollUser   = 4
	EFEnrollFinger = 8
	EFButton       = 16
	EFUnlock       = 32
	EFVerify       = 128
	EFFPFTR        = 256
	EFAlarm        = 512
)

// TCP outer-frame magic words, "PP" followed by a fixed second word.
const (
	magicWord1 = 0x5050
	magicWord2 = 0x7d82
)

// ushrtMax is the modulus used for checksum reduction and reply-id wraparound.
const ushrtMax = 0xFFFF

// maxChunkTCP / maxChunkUDP bound a single CmdReadBuffer request.
const (
	maxChunkTCP = 0xFFC0
	maxChunkUDP = 16 * 1024
)

// defaultPort is the well-known ZK device listening port.
const defaultPort = 4370

// maxChunkRetries bounds per-chunk retry attempts during a bulk transfer.
const maxChunkRetries = 3
