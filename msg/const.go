package msg

// Notification record
const (
	Magic      = uint32(0x53484454) // 'SHDT'
	Version    = uint16(1)
	RecordSize = 4 + 2 + 2 + 4 + 4 + 8 // 24 bytes（含 reserved）
)

// Runtime
const (
	MaxSpawnRetries = 20
	SpawnLogEvery   = 5
	ExitAbort       = 2
)

// Arena
const (
	Align     = 16
	ShardSize = 32
)

// Stats
const (
	SmapsRollup = "/proc/self/smaps_rollup"
	PssBufLen   = 1024
)
