package recorder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"

	"main/internal/schema"
)

const (
	recordVersion      uint16 = 1
	recordHeaderSize          = 48
	recordChecksumSize        = 4
)

var (
	recordMagic = [4]byte{'R', 'F', 'Q', '1'}
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic            = errors.New("command log invalid magic")
	ErrUnsupportedRecordVer    = errors.New("command log unsupported record version")
	ErrInvalidRecordHeaderSize = errors.New("command log invalid header size")
)

func encodeHeader(dst []byte, header schema.CommandHeader, payloadLen int) {
	_ = dst[recordHeaderSize-1]
	copy(dst[0:4], recordMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], recordVersion)
	binary.LittleEndian.PutUint16(dst[6:8], uint16(recordHeaderSize))
	binary.LittleEndian.PutUint16(dst[8:10], uint16(header.Type))
	binary.LittleEndian.PutUint16(dst[10:12], header.Version)
	binary.LittleEndian.PutUint16(dst[12:14], header.Flags)
	binary.LittleEndian.PutUint16(dst[14:16], 0)
	binary.LittleEndian.PutUint32(dst[16:20], uint32(payloadLen))
	binary.LittleEndian.PutUint64(dst[20:28], header.Seq)
	binary.LittleEndian.PutUint64(dst[28:36], uint64(header.ClusterTime))
	binary.LittleEndian.PutUint64(dst[36:44], uint64(header.SessionID))
	binary.LittleEndian.PutUint32(dst[44:48], 0)
}

func checksum(header []byte, payload []byte) uint32 {
	crc := crc32.Update(0, crcTable, header)
	return crc32.Update(crc, crcTable, payload)
}

func decodeRecordHeader(src []byte) (schema.CommandHeader, uint32, error) {
	if len(src) < recordHeaderSize {
		return schema.CommandHeader{}, 0, ErrInvalidRecordHeaderSize
	}
	if !bytes.Equal(src[0:4], recordMagic[:]) {
		return schema.CommandHeader{}, 0, ErrInvalidMagic
	}
	if ver := binary.LittleEndian.Uint16(src[4:6]); ver != recordVersion {
		return schema.CommandHeader{}, 0, ErrUnsupportedRecordVer
	}
	if headerSize := binary.LittleEndian.Uint16(src[6:8]); headerSize != recordHeaderSize {
		return schema.CommandHeader{}, 0, ErrInvalidRecordHeaderSize
	}
	payloadLen := binary.LittleEndian.Uint32(src[16:20])
	h := schema.CommandHeader{
		Type:        schema.CommandType(binary.LittleEndian.Uint16(src[8:10])),
		Version:     binary.LittleEndian.Uint16(src[10:12]),
		Flags:       binary.LittleEndian.Uint16(src[12:14]),
		Seq:         binary.LittleEndian.Uint64(src[20:28]),
		ClusterTime: schema.ClusterTime(binary.LittleEndian.Uint64(src[28:36])),
		SessionID:   schema.SessionID(binary.LittleEndian.Uint64(src[36:44])),
	}
	return h, payloadLen, nil
}
