package schema

// Price is a scaled integer. The scale is defined by configuration.
type Price int64

// Quantity is a scaled integer. The scale is defined by configuration.
type Quantity int64

// RfqID identifies an RFQ aggregate. Assigned sequentially, never reused.
type RfqID uint64

// QuoteID identifies a quote within its parent RFQ (1-based insertion order).
type QuoteID uint32

// UserID identifies a user in reference data.
type UserID uint32

// TimerID identifies a pending timer registration.
type TimerID uint64

// GroupID identifies a broadcast session group.
type GroupID uint16

// GroupDealers is the broadcast group of all dealer sessions.
const GroupDealers GroupID = 1

// Side describes RFQ direction.
type Side uint16

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

// RfqState tracks the lifecycle of an RFQ.
type RfqState uint16

const (
	RfqStateUnknown RfqState = iota
	RfqStateOpen
	RfqStateQuoted
	RfqStateAccepted
	RfqStateRejected
	RfqStateExpired
	RfqStateCancelled
)

// IsTerminal reports whether the state accepts no further transitions.
func (s RfqState) IsTerminal() bool {
	switch s {
	case RfqStateAccepted, RfqStateRejected, RfqStateExpired, RfqStateCancelled:
		return true
	default:
		return false
	}
}

// ResultCode is the outcome reported on every primary response.
type ResultCode uint16

const (
	ResultSuccess ResultCode = iota
	ResultUnknownUser
	ResultUnknownCusip
	ResultRfqExpiresInPast
	ResultInstrumentNotEnabled
	ResultInstrumentMinSizeNotMet
	ResultUnknownRfq
	ResultRfqNotOpen
	ResultRfqExpired
	ResultUnauthorized
)

func (r ResultCode) String() string {
	switch r {
	case ResultSuccess:
		return "SUCCESS"
	case ResultUnknownUser:
		return "UNKNOWN_USER"
	case ResultUnknownCusip:
		return "UNKNOWN_CUSIP"
	case ResultRfqExpiresInPast:
		return "RFQ_EXPIRES_IN_PAST"
	case ResultInstrumentNotEnabled:
		return "INSTRUMENT_NOT_ENABLED"
	case ResultInstrumentMinSizeNotMet:
		return "INSTRUMENT_MIN_SIZE_NOT_MET"
	case ResultUnknownRfq:
		return "UNKNOWN_RFQ"
	case ResultRfqNotOpen:
		return "RFQ_NOT_OPEN"
	case ResultRfqExpired:
		return "RFQ_EXPIRED"
	case ResultUnauthorized:
		return "UNAUTHORIZED"
	default:
		return "UNKNOWN"
	}
}

// CreateRfq is the payload for CommandCreateRfq.
type CreateRfq struct {
	Correlation string
	ExpireAt    ClusterTime
	Quantity    Quantity
	Side        Side
	Cusip       string
	UserID      UserID
}

// SubmitQuote is the payload for CommandSubmitQuote.
type SubmitQuote struct {
	Correlation  string
	RfqID        RfqID
	DealerUserID UserID
	Price        Price
	Quantity     Quantity
}

// AcceptQuote is the payload for CommandAcceptQuote.
type AcceptQuote struct {
	Correlation string
	RfqID       RfqID
	QuoteID     QuoteID
	UserID      UserID
}

// RejectQuote is the payload for CommandRejectQuote.
type RejectQuote struct {
	Correlation string
	RfqID       RfqID
	QuoteID     QuoteID
	UserID      UserID
}

// CancelRfq is the payload for CommandCancelRfq.
type CancelRfq struct {
	Correlation string
	RfqID       RfqID
	UserID      UserID
}

// ExpireRfq is the payload for CommandExpireRfq. Timer-originated only;
// it never carries a session or correlation.
type ExpireRfq struct {
	RfqID RfqID
}

// TimerEntry is a pending expiry registration. Part of the snapshot so a
// rejoining replica resumes with identical deadlines and firing order.
type TimerEntry struct {
	ID       TimerID     `json:"id"`
	Deadline ClusterTime `json:"deadline"`
	RfqID    RfqID       `json:"rfqId"`
}
