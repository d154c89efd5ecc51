package state

import (
	"encoding/binary"
	"fmt"

	"github.com/ugorji/go/codec"
)

// Records are stored as CBOR. The handle is shared; it is safe for
// concurrent use once configured.
var cborHandle = func() *codec.CborHandle {
	h := &codec.CborHandle{}
	h.Canonical = true
	return h
}()

func encode(v any) ([]byte, error) {
	var buf []byte
	enc := codec.NewEncoderBytes(&buf, cborHandle)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf, nil
}

func decode(data []byte, v any) error {
	dec := codec.NewDecoderBytes(data, cborHandle)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// EncodeOffer serializes an offer record.
func EncodeOffer(o *Offer) ([]byte, error) {
	return encode(o)
}

// DecodeOffer deserializes an offer record.
func DecodeOffer(data []byte) (*Offer, error) {
	var o Offer
	if err := decode(data, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// EncodeAccount serializes a party funds record.
func EncodeAccount(a *Account) ([]byte, error) {
	return encode(a)
}

// DecodeAccount deserializes a party funds record.
func DecodeAccount(data []byte) (*Account, error) {
	var a Account
	if err := decode(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// EncodeUint64 serializes a directory or counter value. These entries are
// a single integer, so they skip CBOR and use an 8-byte big-endian form.
func EncodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// DecodeUint64 deserializes a directory or counter value.
func DecodeUint64(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("decode uint64 entry: want 8 bytes, got %d", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}
