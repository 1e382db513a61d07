package codec

import (
	"encoding/binary"

	"main/internal/schema"
)

// AppendCreateRfq serializes a create command onto dst. Encoding fails
// when a string field exceeds the wire bound; nothing is ever truncated.
func AppendCreateRfq(dst []byte, command schema.CreateRfq) ([]byte, bool) {
	dst = binary.LittleEndian.AppendUint64(dst, uint64(command.ExpireAt))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(command.Quantity))
	dst = binary.LittleEndian.AppendUint16(dst, uint16(command.Side))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(command.UserID))
	var ok bool
	dst, ok = appendString(dst, command.Correlation)
	if !ok {
		return dst, false
	}
	return appendString(dst, command.Cusip)
}

// DecodeCreateRfq parses a create command payload.
func DecodeCreateRfq(src []byte) (schema.CreateRfq, bool) {
	if len(src) < 22 {
		return schema.CreateRfq{}, false
	}
	command := schema.CreateRfq{
		ExpireAt: schema.ClusterTime(binary.LittleEndian.Uint64(src[0:8])),
		Quantity: schema.Quantity(binary.LittleEndian.Uint64(src[8:16])),
		Side:     schema.Side(binary.LittleEndian.Uint16(src[16:18])),
		UserID:   schema.UserID(binary.LittleEndian.Uint32(src[18:22])),
	}
	var ok bool
	offset := 22
	command.Correlation, offset, ok = readString(src, offset)
	if !ok {
		return schema.CreateRfq{}, false
	}
	command.Cusip, _, ok = readString(src, offset)
	if !ok {
		return schema.CreateRfq{}, false
	}
	return command, true
}

// AppendSubmitQuote serializes a quote command onto dst.
func AppendSubmitQuote(dst []byte, command schema.SubmitQuote) ([]byte, bool) {
	dst = binary.LittleEndian.AppendUint64(dst, uint64(command.RfqID))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(command.Price))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(command.Quantity))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(command.DealerUserID))
	return appendString(dst, command.Correlation)
}

// DecodeSubmitQuote parses a quote command payload.
func DecodeSubmitQuote(src []byte) (schema.SubmitQuote, bool) {
	if len(src) < 28 {
		return schema.SubmitQuote{}, false
	}
	command := schema.SubmitQuote{
		RfqID:        schema.RfqID(binary.LittleEndian.Uint64(src[0:8])),
		Price:        schema.Price(binary.LittleEndian.Uint64(src[8:16])),
		Quantity:     schema.Quantity(binary.LittleEndian.Uint64(src[16:24])),
		DealerUserID: schema.UserID(binary.LittleEndian.Uint32(src[24:28])),
	}
	var ok bool
	command.Correlation, _, ok = readString(src, 28)
	if !ok {
		return schema.SubmitQuote{}, false
	}
	return command, true
}

// AppendAcceptQuote serializes an accept command onto dst.
func AppendAcceptQuote(dst []byte, command schema.AcceptQuote) ([]byte, bool) {
	return appendQuoteAction(dst, command.RfqID, command.QuoteID, command.UserID, command.Correlation)
}

// DecodeAcceptQuote parses an accept command payload.
func DecodeAcceptQuote(src []byte) (schema.AcceptQuote, bool) {
	rfqID, quoteID, userID, correlation, ok := decodeQuoteAction(src)
	if !ok {
		return schema.AcceptQuote{}, false
	}
	return schema.AcceptQuote{Correlation: correlation, RfqID: rfqID, QuoteID: quoteID, UserID: userID}, true
}

// AppendRejectQuote serializes a reject command onto dst.
func AppendRejectQuote(dst []byte, command schema.RejectQuote) ([]byte, bool) {
	return appendQuoteAction(dst, command.RfqID, command.QuoteID, command.UserID, command.Correlation)
}

// DecodeRejectQuote parses a reject command payload.
func DecodeRejectQuote(src []byte) (schema.RejectQuote, bool) {
	rfqID, quoteID, userID, correlation, ok := decodeQuoteAction(src)
	if !ok {
		return schema.RejectQuote{}, false
	}
	return schema.RejectQuote{Correlation: correlation, RfqID: rfqID, QuoteID: quoteID, UserID: userID}, true
}

// AppendCancelRfq serializes a cancel command onto dst.
func AppendCancelRfq(dst []byte, command schema.CancelRfq) ([]byte, bool) {
	dst = binary.LittleEndian.AppendUint64(dst, uint64(command.RfqID))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(command.UserID))
	return appendString(dst, command.Correlation)
}

// DecodeCancelRfq parses a cancel command payload.
func DecodeCancelRfq(src []byte) (schema.CancelRfq, bool) {
	if len(src) < 12 {
		return schema.CancelRfq{}, false
	}
	command := schema.CancelRfq{
		RfqID:  schema.RfqID(binary.LittleEndian.Uint64(src[0:8])),
		UserID: schema.UserID(binary.LittleEndian.Uint32(src[8:12])),
	}
	var ok bool
	command.Correlation, _, ok = readString(src, 12)
	if !ok {
		return schema.CancelRfq{}, false
	}
	return command, true
}

// AppendExpireRfq serializes an expiry command onto dst.
func AppendExpireRfq(dst []byte, command schema.ExpireRfq) []byte {
	return binary.LittleEndian.AppendUint64(dst, uint64(command.RfqID))
}

// DecodeExpireRfq parses an expiry command payload.
func DecodeExpireRfq(src []byte) (schema.ExpireRfq, bool) {
	if len(src) < 8 {
		return schema.ExpireRfq{}, false
	}
	return schema.ExpireRfq{RfqID: schema.RfqID(binary.LittleEndian.Uint64(src[0:8]))}, true
}

func appendQuoteAction(dst []byte, rfqID schema.RfqID, quoteID schema.QuoteID, userID schema.UserID, correlation string) ([]byte, bool) {
	dst = binary.LittleEndian.AppendUint64(dst, uint64(rfqID))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(quoteID))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(userID))
	return appendString(dst, correlation)
}

func decodeQuoteAction(src []byte) (schema.RfqID, schema.QuoteID, schema.UserID, string, bool) {
	if len(src) < 16 {
		return 0, 0, 0, "", false
	}
	rfqID := schema.RfqID(binary.LittleEndian.Uint64(src[0:8]))
	quoteID := schema.QuoteID(binary.LittleEndian.Uint32(src[8:12]))
	userID := schema.UserID(binary.LittleEndian.Uint32(src[12:16]))
	correlation, _, ok := readString(src, 16)
	if !ok {
		return 0, 0, 0, "", false
	}
	return rfqID, quoteID, userID, correlation, true
}
