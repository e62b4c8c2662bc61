package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// headerVersion is bumped whenever the on-wire framing below changes. It is
// part of every distributed key (see distributedKey), not of the payload,
// so records written under another layout sit under other keys: a reader
// on a different version gets a miss for them and never decodes their
// bytes. The pack's source repositories disagree on whether unix
// timestamps are seconds, milliseconds, or ticks; this framing picks unix
// seconds, signed, 64-bit, once and for all.
const headerVersion = 1

// recordOptions is a reserved bitfield, currently always zero.
type recordOptions uint32

const (
	optionsNone recordOptions = 0
)

// recordHeaderSize is the fixed-size prefix of every distributed record:
// a 4-byte options field plus two 8-byte signed unix-second timestamps.
const recordHeaderSize = 4 + 8 + 8

// encodeRecord frames a distributed record: options, creation time,
// eviction time, and (when hasValue) the serializer's value bytes.
// Little-endian per spec §6.
func encodeRecord(hasValue bool, createdAt, evictsAt time.Time, valueBytes []byte) []byte {
	size := recordHeaderSize
	if hasValue {
		size += len(valueBytes)
	}
	buf := make([]byte, size)

	binary.LittleEndian.PutUint32(buf[0:4], uint32(optionsNone))
	binary.LittleEndian.PutUint64(buf[4:12], uint64(createdAt.Unix()))
	binary.LittleEndian.PutUint64(buf[12:20], uint64(evictsAt.Unix()))

	if hasValue {
		copy(buf[recordHeaderSize:], valueBytes)
	}

	return buf
}

// decodedRecord is the parsed form of a distributed record, before the
// serializer has turned the trailing bytes into a V.
type decodedRecord struct {
	createdAt  time.Time
	evictsAt   time.Time
	hasValue   bool
	valueBytes []byte
}

// decodeRecord parses the fixed header and splits off the trailing value
// bytes. It does not itself know header versioning: the version lives in
// the key, not the payload (spec §3: header_version is part of the
// distributed key), so only records stored under the current version's key
// ever reach it.
func decodeRecord(data []byte) (decodedRecord, error) {
	if len(data) < recordHeaderSize {
		return decodedRecord{}, fmt.Errorf("cache: distributed record too short: %d bytes", len(data))
	}

	createdAt := time.Unix(int64(binary.LittleEndian.Uint64(data[4:12])), 0).UTC()
	evictsAt := time.Unix(int64(binary.LittleEndian.Uint64(data[12:20])), 0).UTC()
	valueBytes := data[recordHeaderSize:]

	return decodedRecord{
		createdAt:  createdAt,
		evictsAt:   evictsAt,
		hasValue:   len(valueBytes) > 0,
		valueBytes: valueBytes,
	}, nil
}

// distributedKey builds the L2 key: "{prefix|}{name}|{headerVersion}/{schemaVersion}|{stringifiedKey}".
// No escaping or hashing is applied — spec leaves that entirely to the
// serializer's StringifyKey and to the caller's choice of key type.
func distributedKey(prefix, name string, schemaVersion int, stringifiedKey string) string {
	var b bytes.Buffer
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte('|')
	}
	b.WriteString(name)
	b.WriteByte('|')
	fmt.Fprintf(&b, "%d/%d", headerVersion, schemaVersion)
	b.WriteByte('|')
	b.WriteString(stringifiedKey)
	return b.String()
}

// valueSink/valueSource let a Serializer write/read without this package
// committing to a concrete byte buffer type.
type valueSink = io.Writer
type valueSource = io.Reader
