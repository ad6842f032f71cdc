package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version   byte = 1
	kindEntry byte = 1
	kindIndex byte = 2
)

var (
	ErrCorrupt   = errors.New("swcache: corrupt record")
	ErrKeyLength = errors.New("swcache: key length must be 1..65535 bytes")
	magic4       = [...]byte{'S', 'W', 'C', 'E'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Entry: magic(4) | ver(1) | kind(1=entry) | gen(u64 be) | keyLen(u16 be) | key | vlen(u32 be) | payload(vlen)
//
// gen is the namespace generation the entry was written under. key is the
// caller's key (not the hashed storage key) so collisions can be detected.
func EncodeEntry(gen uint64, key string, payload []byte) ([]byte, error) {
	if l := len(key); l == 0 || l > 0xFFFF {
		return nil, ErrKeyLength
	}

	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 8 + 2 + len(key) + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint64(u8[:], gen)
	buf.Write(u8[:])

	binary.BigEndian.PutUint16(u2[:], uint16(len(key)))
	buf.Write(u2[:])
	buf.WriteString(key)

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes(), nil
}

func DecodeEntry(b []byte) (gen uint64, key string, payload []byte, err error) {
	const hdr = 4 + 1 + 1 + 8 + 2
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindEntry {
		return 0, "", nil, ErrCorrupt
	}

	off := 6

	gen = binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	klen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if klen == 0 || klen > len(b)-off {
		return 0, "", nil, ErrCorrupt
	}
	key = string(b[off : off+klen])
	off += klen

	if off+4 > len(b) {
		return 0, "", nil, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // trailing bytes are corruption too
		return 0, "", nil, ErrCorrupt
	}

	return gen, key, b[off : off+vlen], nil
}

// Index:
//
//	magic(4) | ver(1) | kind(2=index) | n(u32 be)
//	nameLen(u16 be) | name(nameLen) * n
//
// Used for the namespace registry and per-namespace key lists.
func EncodeIndex(names []string) ([]byte, error) {
	total := 4 + 1 + 1 + 4
	for _, n := range names {
		total += 2 + len(n)
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindIndex)

	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint32(u4[:], uint32(len(names)))
	buf.Write(u4[:])

	for _, n := range names {
		if l := len(n); l == 0 || l > 0xFFFF {
			return nil, ErrKeyLength
		}
		binary.BigEndian.PutUint16(u2[:], uint16(len(n)))
		buf.Write(u2[:])
		buf.WriteString(n)
	}

	return buf.Bytes(), nil
}

func DecodeIndex(b []byte) ([]string, error) {
	const hdr = 4 + 1 + 1 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindIndex {
		return nil, ErrCorrupt
	}

	off := 6

	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	// every name needs at least 3 bytes; reject counts that cannot fit
	if n < 0 || n > (len(b)-off)/3 {
		return nil, ErrCorrupt
	}

	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if off+2 > len(b) {
			return nil, ErrCorrupt
		}
		l := int(binary.BigEndian.Uint16(b[off : off+2]))
		off += 2
		if l <= 0 || l > len(b)-off {
			return nil, ErrCorrupt
		}
		names = append(names, string(b[off:off+l]))
		off += l
	}
	if off != len(b) {
		return nil, ErrCorrupt
	}

	return names, nil
}
