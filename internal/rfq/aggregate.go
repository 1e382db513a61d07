package rfq

import (
	"errors"

	"main/internal/schema"
)

var (
	ErrInvalidTransition = errors.New("invalid rfq state transition")
	ErrRfqTerminal       = errors.New("rfq is in a terminal state")
)

// Quote is a dealer's answer to an RFQ. Owned by its parent aggregate;
// no identity outside it.
type Quote struct {
	QuoteID      schema.QuoteID
	DealerUserID schema.UserID
	Price        schema.Price
	Quantity     schema.Quantity
	SubmittedAt  schema.ClusterTime
}

// Rfq is the negotiation aggregate root. Everything except the lifecycle
// fields (State, ClosedAt, AcceptedQuoteID, Quotes) is fixed at creation.
type Rfq struct {
	ID              schema.RfqID
	Correlation     string
	ExpireAt        schema.ClusterTime
	Quantity        schema.Quantity
	Side            schema.Side
	Cusip           string
	CreatorUserID   schema.UserID
	State           schema.RfqState
	ClosedAt        schema.ClusterTime
	AcceptedQuoteID schema.QuoteID
	Quotes          []Quote
}

func newRfq(id schema.RfqID, command schema.CreateRfq) *Rfq {
	return &Rfq{
		ID:            id,
		Correlation:   command.Correlation,
		ExpireAt:      command.ExpireAt,
		Quantity:      command.Quantity,
		Side:          command.Side,
		Cusip:         command.Cusip,
		CreatorUserID: command.UserID,
		State:         schema.RfqStateOpen,
	}
}

// CanQuote reports whether new quotes may be appended.
func (r *Rfq) CanQuote() bool {
	return r.State == schema.RfqStateOpen || r.State == schema.RfqStateQuoted
}

// AppendQuote adds a quote while the aggregate is OPEN or QUOTED and
// moves the state to QUOTED. Quote ids are 1-based insertion order.
func (r *Rfq) AppendQuote(dealer schema.UserID, price schema.Price, quantity schema.Quantity, at schema.ClusterTime) (Quote, error) {
	if !r.CanQuote() {
		return Quote{}, ErrRfqTerminal
	}
	quote := Quote{
		QuoteID:      schema.QuoteID(len(r.Quotes) + 1),
		DealerUserID: dealer,
		Price:        price,
		Quantity:     quantity,
		SubmittedAt:  at,
	}
	r.Quotes = append(r.Quotes, quote)
	r.State = schema.RfqStateQuoted
	return quote, nil
}

// Quote returns the quote with the given id.
func (r *Rfq) Quote(id schema.QuoteID) (Quote, bool) {
	idx := int(id) - 1
	if idx < 0 || idx >= len(r.Quotes) {
		return Quote{}, false
	}
	return r.Quotes[idx], true
}

// Close moves the aggregate into a terminal state and stamps ClosedAt.
func (r *Rfq) Close(state schema.RfqState, at schema.ClusterTime) error {
	if r.State.IsTerminal() {
		return ErrRfqTerminal
	}
	if !state.IsTerminal() {
		return ErrInvalidTransition
	}
	r.State = state
	r.ClosedAt = at
	return nil
}

// Accept closes the aggregate as ACCEPTED and records which quote was
// executed. The archive reads the deal off that quote, not off the quote
// list tail.
func (r *Rfq) Accept(id schema.QuoteID, at schema.ClusterTime) error {
	if err := r.Close(schema.RfqStateAccepted, at); err != nil {
		return err
	}
	r.AcceptedQuoteID = id
	return nil
}

// QuotingDealers returns the distinct dealer ids in quote insertion order.
func (r *Rfq) QuotingDealers() []schema.UserID {
	if len(r.Quotes) == 0 {
		return nil
	}
	seen := make(map[schema.UserID]struct{}, len(r.Quotes))
	dealers := make([]schema.UserID, 0, len(r.Quotes))
	for _, q := range r.Quotes {
		if _, ok := seen[q.DealerUserID]; ok {
			continue
		}
		seen[q.DealerUserID] = struct{}{}
		dealers = append(dealers, q.DealerUserID)
	}
	return dealers
}

// Info returns an immutable deep copy for responses and snapshots.
func (r *Rfq) Info() schema.RfqInfo {
	info := schema.RfqInfo{
		ID:              r.ID,
		Correlation:     r.Correlation,
		ExpireAt:        r.ExpireAt,
		Quantity:        r.Quantity,
		Side:            r.Side,
		Cusip:           r.Cusip,
		CreatorUserID:   r.CreatorUserID,
		State:           r.State,
		ClosedAt:        r.ClosedAt,
		AcceptedQuoteID: r.AcceptedQuoteID,
	}
	if len(r.Quotes) > 0 {
		info.Quotes = make([]schema.QuoteInfo, len(r.Quotes))
		for i, q := range r.Quotes {
			info.Quotes[i] = schema.QuoteInfo{
				QuoteID:      q.QuoteID,
				DealerUserID: q.DealerUserID,
				Price:        q.Price,
				Quantity:     q.Quantity,
				SubmittedAt:  q.SubmittedAt,
			}
		}
	}
	return info
}

func rfqFromInfo(info schema.RfqInfo) *Rfq {
	r := &Rfq{
		ID:              info.ID,
		Correlation:     info.Correlation,
		ExpireAt:        info.ExpireAt,
		Quantity:        info.Quantity,
		Side:            info.Side,
		Cusip:           info.Cusip,
		CreatorUserID:   info.CreatorUserID,
		State:           info.State,
		ClosedAt:        info.ClosedAt,
		AcceptedQuoteID: info.AcceptedQuoteID,
	}
	if len(info.Quotes) > 0 {
		r.Quotes = make([]Quote, len(info.Quotes))
		for i, q := range info.Quotes {
			r.Quotes[i] = Quote{
				QuoteID:      q.QuoteID,
				DealerUserID: q.DealerUserID,
				Price:        q.Price,
				Quantity:     q.Quantity,
				SubmittedAt:  q.SubmittedAt,
			}
		}
	}
	return r
}
