package schema

// Outbound is the closed set of payloads the core hands to the session
// responder. The marker method keeps the set sealed to this package.
type Outbound interface {
	isOutbound()
}

// QuoteInfo is the immutable view of a quote on an RFQ.
type QuoteInfo struct {
	QuoteID      QuoteID     `json:"quoteId"`
	DealerUserID UserID      `json:"dealerUserId"`
	Price        Price       `json:"price"`
	Quantity     Quantity    `json:"quantity"`
	SubmittedAt  ClusterTime `json:"submittedAt"`
}

// RfqInfo is the immutable view of an RFQ aggregate.
type RfqInfo struct {
	ID            RfqID       `json:"id"`
	Correlation   string      `json:"correlation"`
	ExpireAt      ClusterTime `json:"expireAt"`
	Quantity      Quantity    `json:"quantity"`
	Side          Side        `json:"side"`
	Cusip         string      `json:"cusip"`
	CreatorUserID UserID      `json:"creatorUserId"`
	State         RfqState    `json:"state"`
	ClosedAt      ClusterTime `json:"closedAt,omitempty"`
	// AcceptedQuoteID is set only when State is ACCEPTED.
	AcceptedQuoteID QuoteID     `json:"acceptedQuoteId,omitempty"`
	Quotes          []QuoteInfo `json:"quotes,omitempty"`
}

// CreateRfqConfirm is the primary response to CommandCreateRfq.
// Rfq is nil when Result is not SUCCESS.
type CreateRfqConfirm struct {
	Correlation string
	Rfq         *RfqInfo
	Result      ResultCode
}

// QuoteConfirm is the primary response to CommandSubmitQuote.
type QuoteConfirm struct {
	Correlation string
	RfqID       RfqID
	QuoteID     QuoteID
	Result      ResultCode
}

// AcceptConfirm is the primary response to CommandAcceptQuote.
type AcceptConfirm struct {
	Correlation string
	RfqID       RfqID
	QuoteID     QuoteID
	Result      ResultCode
}

// RejectConfirm is the primary response to CommandRejectQuote.
type RejectConfirm struct {
	Correlation string
	RfqID       RfqID
	QuoteID     QuoteID
	Result      ResultCode
}

// CancelConfirm is the primary response to CommandCancelRfq.
type CancelConfirm struct {
	Correlation string
	RfqID       RfqID
	Result      ResultCode
}

// QuoteNotice informs the RFQ creator of a newly submitted quote.
type QuoteNotice struct {
	RfqID RfqID
	Quote QuoteInfo
}

// NewRfq is broadcast to the dealer group when an RFQ is created.
type NewRfq struct {
	Rfq RfqInfo
}

// TradeDone reports an accepted quote. Sent to the counterparties and
// broadcast to the dealer group; other dealers' quotes are void.
type TradeDone struct {
	RfqID        RfqID
	DealerUserID UserID
	Price        Price
	Quantity     Quantity
}

// RfqExpired reports a timer-driven expiry.
type RfqExpired struct {
	RfqID RfqID
}

// RfqRejected reports a creator rejecting a quote, closing the RFQ.
type RfqRejected struct {
	RfqID RfqID
}

// RfqCanceled reports a creator withdrawing an RFQ.
type RfqCanceled struct {
	RfqID RfqID
}

func (CreateRfqConfirm) isOutbound() {}
func (QuoteConfirm) isOutbound()     {}
func (AcceptConfirm) isOutbound()    {}
func (RejectConfirm) isOutbound()    {}
func (CancelConfirm) isOutbound()    {}
func (QuoteNotice) isOutbound()      {}
func (NewRfq) isOutbound()           {}
func (TradeDone) isOutbound()        {}
func (RfqExpired) isOutbound()       {}
func (RfqRejected) isOutbound()      {}
func (RfqCanceled) isOutbound()      {}
