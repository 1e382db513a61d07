package codec

import "main/internal/schema"

// Encode serializes any command payload onto dst and reports its type.
// Unknown payload kinds fail, as do string fields over the wire bound.
func Encode(dst []byte, command any) (schema.CommandType, []byte, bool) {
	switch c := command.(type) {
	case schema.CreateRfq:
		payload, ok := AppendCreateRfq(dst, c)
		return schema.CommandCreateRfq, payload, ok
	case schema.SubmitQuote:
		payload, ok := AppendSubmitQuote(dst, c)
		return schema.CommandSubmitQuote, payload, ok
	case schema.AcceptQuote:
		payload, ok := AppendAcceptQuote(dst, c)
		return schema.CommandAcceptQuote, payload, ok
	case schema.RejectQuote:
		payload, ok := AppendRejectQuote(dst, c)
		return schema.CommandRejectQuote, payload, ok
	case schema.CancelRfq:
		payload, ok := AppendCancelRfq(dst, c)
		return schema.CommandCancelRfq, payload, ok
	case schema.ExpireRfq:
		return schema.CommandExpireRfq, AppendExpireRfq(dst, c), true
	default:
		return schema.CommandUnknown, dst, false
	}
}

// Decode parses a payload according to the command type. Unknown or
// malformed payloads return false so the apply loop can skip them without
// mutation.
func Decode(commandType schema.CommandType, payload []byte) (any, bool) {
	switch commandType {
	case schema.CommandCreateRfq:
		return valid(DecodeCreateRfq(payload))
	case schema.CommandSubmitQuote:
		return valid(DecodeSubmitQuote(payload))
	case schema.CommandAcceptQuote:
		return valid(DecodeAcceptQuote(payload))
	case schema.CommandRejectQuote:
		return valid(DecodeRejectQuote(payload))
	case schema.CommandCancelRfq:
		return valid(DecodeCancelRfq(payload))
	case schema.CommandExpireRfq:
		return valid(DecodeExpireRfq(payload))
	default:
		return nil, false
	}
}

func valid[T any](command T, ok bool) (any, bool) {
	if !ok {
		return nil, false
	}
	return command, true
}
