package codec

import "encoding/binary"

// maxStringLen bounds variable-length fields (correlation, cusip) so a
// corrupt record cannot force a huge allocation.
const maxStringLen = 1024

func appendString(dst []byte, s string) ([]byte, bool) {
	if len(s) > maxStringLen {
		return dst, false
	}
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(s)))
	return append(dst, s...), true
}

func readString(src []byte, offset int) (string, int, bool) {
	if offset+2 > len(src) {
		return "", offset, false
	}
	length := int(binary.LittleEndian.Uint16(src[offset : offset+2]))
	offset += 2
	if length > maxStringLen || offset+length > len(src) {
		return "", offset, false
	}
	return string(src[offset : offset+length]), offset + length, true
}
