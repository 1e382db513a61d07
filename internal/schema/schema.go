package schema

// SchemaVersion is the current command schema version.
const SchemaVersion uint16 = 1

// CommandType defines the category of a command in the ordered stream.
type CommandType uint16

const (
	CommandUnknown CommandType = iota
	CommandCreateRfq
	CommandSubmitQuote
	CommandAcceptQuote
	CommandRejectQuote
	CommandCancelRfq
	CommandExpireRfq
)

// ClusterTime is the logical time agreed by all replicas, in milliseconds.
type ClusterTime int64

// SessionID addresses a single client connection. Zero means no session
// (timer-originated commands).
type SessionID uint64

// CommandHeader is the common metadata attached to every command.
type CommandHeader struct {
	Type        CommandType
	Version     uint16
	Flags       uint16
	Seq         uint64
	ClusterTime ClusterTime
	SessionID   SessionID
}

// CommandFlagTimer marks a command synthesized from a timer firing rather
// than received from a client session.
const CommandFlagTimer uint16 = 1 << 0

// NewHeader builds a header with the current schema version.
func NewHeader(commandType CommandType, seq uint64, clusterTime ClusterTime, session SessionID) CommandHeader {
	return CommandHeader{
		Type:        commandType,
		Version:     SchemaVersion,
		Seq:         seq,
		ClusterTime: clusterTime,
		SessionID:   session,
	}
}
