package session

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/samber/oops"

	"sessionkit/internal/curve"
)

var (
	// ErrMalformed reports a serialized state or record that cannot be parsed.
	ErrMalformed = errors.New("malformed session encoding")

	errTLVTruncated  = oops.In("session").Wrapf(ErrMalformed, "truncated TLV")
	errTLVLenOverrun = oops.In("session").Wrapf(ErrMalformed, "TLV length overrun")
)

type tlvWriter struct {
	buf []byte
}

func newTLVWriter(formatVersion byte) *tlvWriter {
	return &tlvWriter{buf: []byte{formatVersion}}
}

func (w *tlvWriter) put(tag byte, v []byte) {
	if len(v) > math.MaxUint16 {
		// Every field is a key, a counter or a nested state well below this.
		panic("session: TLV value too large")
	}
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(len(v)))
	w.buf = append(w.buf, tag)
	w.buf = append(w.buf, n[:]...)
	w.buf = append(w.buf, v...)
}

func (w *tlvWriter) putUint32(tag byte, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.put(tag, b[:])
}

func (w *tlvWriter) putPublicKey(tag byte, k curve.PublicKey) {
	w.put(tag, k.SerializeTyped())
}

func (w *tlvWriter) bytes() []byte { return w.buf }

type tlvField struct {
	tag byte
	val []byte
}

// decodeTLVs checks the format version and splits b into fields.
func decodeTLVs(b []byte, formatVersion byte) ([]tlvField, error) {
	if len(b) < 1 {
		return nil, errTLVTruncated
	}
	if b[0] != formatVersion {
		return nil, oops.In("session").
			With("format_version", b[0]).
			Wrapf(ErrMalformed, "unsupported format version %d", b[0])
	}
	rest := b[1:]
	var out []tlvField
	for len(rest) > 0 {
		if len(rest) < 3 {
			return nil, errTLVTruncated
		}
		tag := rest[0]
		n := int(binary.BigEndian.Uint16(rest[1:3]))
		if len(rest) < 3+n {
			return nil, errTLVLenOverrun
		}
		out = append(out, tlvField{tag: tag, val: rest[3 : 3+n]})
		rest = rest[3+n:]
	}
	return out, nil
}

// indexFields maps tags to values, rejecting unknown and repeated tags
// except for those listed in repeatable.
func indexFields(fields []tlvField, known map[byte]bool, repeatable byte) (map[byte][]byte, [][]byte, error) {
	single := make(map[byte][]byte, len(fields))
	var repeated [][]byte
	for _, f := range fields {
		if !known[f.tag] {
			return nil, nil, oops.In("session").
				With("tag", f.tag).
				Wrapf(ErrMalformed, "unexpected tag 0x%02x", f.tag)
		}
		if f.tag == repeatable {
			repeated = append(repeated, f.val)
			continue
		}
		if _, dup := single[f.tag]; dup {
			return nil, nil, oops.In("session").
				With("tag", f.tag).
				Wrapf(ErrMalformed, "repeated tag 0x%02x", f.tag)
		}
		single[f.tag] = f.val
	}
	return single, repeated, nil
}

func decodePublicKey(b []byte) (curve.PublicKey, error) {
	return curve.DeserializeTypedPublicKey(b)
}

func decodeUint32(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, oops.In("session").
			With("length", len(b)).
			Wrapf(ErrMalformed, "counter must be 4 bytes")
	}
	return binary.BigEndian.Uint32(b), nil
}
