package rfq

import (
	"github.com/yanun0323/logs"

	"main/internal/schema"
)

// TerminalObserver is invoked after an aggregate reaches a terminal state.
// Hosts use it to feed the archive outbox; it must not mutate the book.
type TerminalObserver func(info schema.RfqInfo)

// Book owns every RFQ aggregate and is the only component allowed to
// mutate them. Commands are applied one at a time in global log order:
// validate, then mutate, then respond. Validation fully precedes mutation
// so a failed command leaves no partial state behind.
type Book struct {
	refData   ReferenceData
	timers    TimerScheduler
	responder Responder

	rfqs       []*Rfq
	index      map[schema.RfqID]int
	timerByRfq map[schema.RfqID]schema.TimerID
	nextID     schema.RfqID

	lastSeq  uint64
	lastTime schema.ClusterTime

	onTerminal TerminalObserver
}

// NewBook creates an empty book with the injected collaborators.
func NewBook(refData ReferenceData, timers TimerScheduler, responder Responder) *Book {
	return &Book{
		refData:    refData,
		timers:     timers,
		responder:  responder,
		index:      make(map[schema.RfqID]int),
		timerByRfq: make(map[schema.RfqID]schema.TimerID),
		nextID:     1,
	}
}

// SetTerminalObserver installs the terminal-aggregate hook.
func (b *Book) SetTerminalObserver(observer TerminalObserver) {
	b.onTerminal = observer
}

// SetResponder swaps the output sink. Hosts mute outputs with NopResponder
// while re-applying a recorded stream, then restore the live responder.
func (b *Book) SetResponder(responder Responder) {
	b.responder = responder
}

// Advance fires every timer due at or before now through the book, in
// deterministic (deadline, registration) order. The returned commands are
// the synthesized expiries, already applied, so the host can append them
// to the command log ahead of the command that carried now.
func (b *Book) Advance(now schema.ClusterTime) []TimerCommand {
	due := b.timers.Due(now)
	if len(due) == 0 {
		return nil
	}
	fired := make([]TimerCommand, 0, len(due))
	for _, entry := range due {
		header := schema.NewHeader(schema.CommandExpireRfq, b.lastSeq+1, entry.Deadline, 0)
		header.Flags |= schema.CommandFlagTimer
		command := schema.ExpireRfq{RfqID: entry.RfqID}
		b.Apply(header, command)
		fired = append(fired, TimerCommand{Header: header, Command: command})
	}
	return fired
}

// TimerCommand is an expiry synthesized from a due timer registration.
type TimerCommand struct {
	Header  schema.CommandHeader
	Command schema.ExpireRfq
}

// Apply routes a decoded command to the matching operation. Unknown
// command payloads are ignored without mutation.
func (b *Book) Apply(header schema.CommandHeader, command any) {
	if header.Seq > b.lastSeq {
		b.lastSeq = header.Seq
	}
	if header.ClusterTime > b.lastTime {
		b.lastTime = header.ClusterTime
	}
	switch c := command.(type) {
	case schema.CreateRfq:
		b.createRfq(header, c)
	case schema.SubmitQuote:
		b.submitQuote(header, c)
	case schema.AcceptQuote:
		b.acceptQuote(header, c)
	case schema.RejectQuote:
		b.rejectQuote(header, c)
	case schema.CancelRfq:
		b.cancelRfq(header, c)
	case schema.ExpireRfq:
		b.expireRfq(header, c)
	}
}

// The validation order is a client-visible contract: a multiply-invalid
// request must receive the code of the first failing check.
func (b *Book) createRfq(header schema.CommandHeader, command schema.CreateRfq) {
	if !b.refData.IsValidUser(command.UserID) {
		logs.Infof("cannot create rfq: invalid user id %d", command.UserID)
		b.responder.Respond(header.SessionID, schema.CreateRfqConfirm{
			Correlation: command.Correlation,
			Result:      schema.ResultUnknownUser,
		})
		return
	}
	if !b.refData.IsValidCusip(command.Cusip) {
		logs.Infof("cannot create rfq: invalid cusip %s", command.Cusip)
		b.responder.Respond(header.SessionID, schema.CreateRfqConfirm{
			Correlation: command.Correlation,
			Result:      schema.ResultUnknownCusip,
		})
		return
	}
	if command.ExpireAt <= header.ClusterTime {
		logs.Info("cannot create rfq: rfq expires in the past")
		b.responder.Respond(header.SessionID, schema.CreateRfqConfirm{
			Correlation: command.Correlation,
			Result:      schema.ResultRfqExpiresInPast,
		})
		return
	}
	if !b.refData.IsEnabled(command.Cusip) {
		logs.Infof("cannot create rfq: instrument %s is not enabled", command.Cusip)
		b.responder.Respond(header.SessionID, schema.CreateRfqConfirm{
			Correlation: command.Correlation,
			Result:      schema.ResultInstrumentNotEnabled,
		})
		return
	}
	if command.Quantity < b.refData.MinSize(command.Cusip) {
		logs.Infof("cannot create rfq: instrument %s min size not met", command.Cusip)
		b.responder.Respond(header.SessionID, schema.CreateRfqConfirm{
			Correlation: command.Correlation,
			Result:      schema.ResultInstrumentMinSizeNotMet,
		})
		return
	}

	id := b.nextID
	b.nextID++
	rfq := newRfq(id, command)
	b.index[id] = len(b.rfqs)
	b.rfqs = append(b.rfqs, rfq)
	b.timerByRfq[id] = b.timers.Register(command.ExpireAt, id)

	info := rfq.Info()
	b.responder.Respond(header.SessionID, schema.CreateRfqConfirm{
		Correlation: command.Correlation,
		Rfq:         &info,
		Result:      schema.ResultSuccess,
	})
	b.responder.Broadcast(schema.GroupDealers, schema.NewRfq{Rfq: info})
}

func (b *Book) submitQuote(header schema.CommandHeader, command schema.SubmitQuote) {
	rfq, ok := b.lookup(command.RfqID)
	if !ok {
		b.responder.Respond(header.SessionID, schema.QuoteConfirm{
			Correlation: command.Correlation,
			RfqID:       command.RfqID,
			Result:      schema.ResultUnknownRfq,
		})
		return
	}
	if !rfq.CanQuote() {
		b.responder.Respond(header.SessionID, schema.QuoteConfirm{
			Correlation: command.Correlation,
			RfqID:       command.RfqID,
			Result:      schema.ResultRfqNotOpen,
		})
		return
	}
	if !b.refData.IsValidUser(command.DealerUserID) {
		logs.Infof("cannot quote rfq %d: invalid dealer id %d", command.RfqID, command.DealerUserID)
		b.responder.Respond(header.SessionID, schema.QuoteConfirm{
			Correlation: command.Correlation,
			RfqID:       command.RfqID,
			Result:      schema.ResultUnknownUser,
		})
		return
	}

	quote, err := rfq.AppendQuote(command.DealerUserID, command.Price, command.Quantity, header.ClusterTime)
	if err != nil {
		b.responder.Respond(header.SessionID, schema.QuoteConfirm{
			Correlation: command.Correlation,
			RfqID:       command.RfqID,
			Result:      schema.ResultRfqNotOpen,
		})
		return
	}
	b.responder.Respond(header.SessionID, schema.QuoteConfirm{
		Correlation: command.Correlation,
		RfqID:       rfq.ID,
		QuoteID:     quote.QuoteID,
		Result:      schema.ResultSuccess,
	})
	b.responder.RespondUser(rfq.CreatorUserID, schema.QuoteNotice{
		RfqID: rfq.ID,
		Quote: schema.QuoteInfo{
			QuoteID:      quote.QuoteID,
			DealerUserID: quote.DealerUserID,
			Price:        quote.Price,
			Quantity:     quote.Quantity,
			SubmittedAt:  quote.SubmittedAt,
		},
	})
}

func (b *Book) acceptQuote(header schema.CommandHeader, command schema.AcceptQuote) {
	rfq, result := b.guardQuoteAction(command.RfqID, command.UserID)
	var quote Quote
	if result == schema.ResultSuccess {
		var ok bool
		quote, ok = rfq.Quote(command.QuoteID)
		if !ok {
			result = schema.ResultUnknownRfq
		}
	}
	if result != schema.ResultSuccess {
		logs.Infof("cannot accept quote on rfq %d: %s", command.RfqID, result)
		b.responder.Respond(header.SessionID, schema.AcceptConfirm{
			Correlation: command.Correlation,
			RfqID:       command.RfqID,
			QuoteID:     command.QuoteID,
			Result:      result,
		})
		return
	}

	_ = rfq.Accept(quote.QuoteID, header.ClusterTime)
	b.cancelTimer(rfq.ID)

	b.responder.Respond(header.SessionID, schema.AcceptConfirm{
		Correlation: command.Correlation,
		RfqID:       rfq.ID,
		QuoteID:     quote.QuoteID,
		Result:      schema.ResultSuccess,
	})
	done := schema.TradeDone{
		RfqID:        rfq.ID,
		DealerUserID: quote.DealerUserID,
		Price:        quote.Price,
		Quantity:     quote.Quantity,
	}
	b.responder.RespondUser(quote.DealerUserID, done)
	b.responder.Broadcast(schema.GroupDealers, done)
	b.notifyTerminal(rfq)
}

func (b *Book) rejectQuote(header schema.CommandHeader, command schema.RejectQuote) {
	rfq, result := b.guardQuoteAction(command.RfqID, command.UserID)
	var quote Quote
	if result == schema.ResultSuccess {
		var ok bool
		quote, ok = rfq.Quote(command.QuoteID)
		if !ok {
			result = schema.ResultUnknownRfq
		}
	}
	if result != schema.ResultSuccess {
		logs.Infof("cannot reject quote on rfq %d: %s", command.RfqID, result)
		b.responder.Respond(header.SessionID, schema.RejectConfirm{
			Correlation: command.Correlation,
			RfqID:       command.RfqID,
			QuoteID:     command.QuoteID,
			Result:      result,
		})
		return
	}

	_ = rfq.Close(schema.RfqStateRejected, header.ClusterTime)
	b.cancelTimer(rfq.ID)

	b.responder.Respond(header.SessionID, schema.RejectConfirm{
		Correlation: command.Correlation,
		RfqID:       rfq.ID,
		QuoteID:     quote.QuoteID,
		Result:      schema.ResultSuccess,
	})
	rejected := schema.RfqRejected{RfqID: rfq.ID}
	b.responder.RespondUser(quote.DealerUserID, rejected)
	b.responder.Broadcast(schema.GroupDealers, rejected)
	b.notifyTerminal(rfq)
}

func (b *Book) cancelRfq(header schema.CommandHeader, command schema.CancelRfq) {
	rfq, result := b.guardQuoteAction(command.RfqID, command.UserID)
	if result != schema.ResultSuccess {
		logs.Infof("cannot cancel rfq %d: %s", command.RfqID, result)
		b.responder.Respond(header.SessionID, schema.CancelConfirm{
			Correlation: command.Correlation,
			RfqID:       command.RfqID,
			Result:      result,
		})
		return
	}

	_ = rfq.Close(schema.RfqStateCancelled, header.ClusterTime)
	b.cancelTimer(rfq.ID)

	b.responder.Respond(header.SessionID, schema.CancelConfirm{
		Correlation: command.Correlation,
		RfqID:       rfq.ID,
		Result:      schema.ResultSuccess,
	})
	b.responder.Broadcast(schema.GroupDealers, schema.RfqCanceled{RfqID: rfq.ID})
	b.notifyTerminal(rfq)
}

// expireRfq is reached only through the ordered stream. A firing delivered
// after an unrelated terminal transition is a no-op; that guard, not the
// advisory timer cancel, is what makes the race harmless.
func (b *Book) expireRfq(header schema.CommandHeader, command schema.ExpireRfq) {
	rfq, ok := b.lookup(command.RfqID)
	if !ok {
		return
	}
	if rfq.State.IsTerminal() {
		return
	}

	_ = rfq.Close(schema.RfqStateExpired, header.ClusterTime)
	b.cancelTimer(rfq.ID)

	expired := schema.RfqExpired{RfqID: rfq.ID}
	b.responder.RespondUser(rfq.CreatorUserID, expired)
	for _, dealer := range rfq.QuotingDealers() {
		b.responder.RespondUser(dealer, expired)
	}
	b.responder.Broadcast(schema.GroupDealers, expired)
	b.notifyTerminal(rfq)
}

// guardQuoteAction runs the shared id, authorization and state checks for
// creator-initiated lifecycle commands.
func (b *Book) guardQuoteAction(id schema.RfqID, user schema.UserID) (*Rfq, schema.ResultCode) {
	rfq, ok := b.lookup(id)
	if !ok {
		return nil, schema.ResultUnknownRfq
	}
	if rfq.CreatorUserID != user {
		return nil, schema.ResultUnauthorized
	}
	if rfq.State == schema.RfqStateExpired {
		return nil, schema.ResultRfqExpired
	}
	if rfq.State.IsTerminal() {
		return nil, schema.ResultRfqNotOpen
	}
	return rfq, schema.ResultSuccess
}

func (b *Book) lookup(id schema.RfqID) (*Rfq, bool) {
	idx, ok := b.index[id]
	if !ok {
		return nil, false
	}
	return b.rfqs[idx], true
}

func (b *Book) cancelTimer(id schema.RfqID) {
	timerID, ok := b.timerByRfq[id]
	if !ok {
		return
	}
	delete(b.timerByRfq, id)
	b.timers.Cancel(timerID)
}

func (b *Book) notifyTerminal(rfq *Rfq) {
	if b.onTerminal == nil {
		return
	}
	b.onTerminal(rfq.Info())
}
