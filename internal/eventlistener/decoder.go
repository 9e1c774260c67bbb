package eventlistener

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/mr-tron/base58"
)

const (
	discriminatorSize = 8
	publicKeySize     = 32
)

// DecodeCreateEvent decodes the borsh payload of a pump.fun create event:
// an 8 byte discriminator, then name, symbol and uri as u32 LE length
// prefixed UTF-8, then mint, bonding curve and creator keys.
func DecodeCreateEvent(data []byte) (CreationEvent, error) {
	dec := bin.NewBorshDecoder(data)
	if err := dec.SkipBytes(discriminatorSize); err != nil {
		return CreationEvent{}, fmt.Errorf("%w: discriminator: %v", ErrTruncated, err)
	}

	var (
		ev  CreationEvent
		err error
	)
	if ev.Name, err = readString(dec, "name"); err != nil {
		return CreationEvent{}, err
	}
	if ev.Symbol, err = readString(dec, "symbol"); err != nil {
		return CreationEvent{}, err
	}
	if ev.URI, err = readString(dec, "uri"); err != nil {
		return CreationEvent{}, err
	}
	if ev.AssetID, err = readPublicKey(dec, "mint"); err != nil {
		return CreationEvent{}, err
	}
	if ev.BondingCurve, err = readPublicKey(dec, "bonding curve"); err != nil {
		return CreationEvent{}, err
	}
	if ev.Creator, err = readPublicKey(dec, "user"); err != nil {
		return CreationEvent{}, err
	}
	return ev, nil
}

func readString(dec *bin.Decoder, field string) (string, error) {
	n, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return "", fmt.Errorf("%w: %s length: %v", ErrTruncated, field, err)
	}
	if int64(n) > int64(dec.Remaining()) {
		return "", fmt.Errorf("%w: %s needs %d bytes, %d left", ErrTruncated, field, n, dec.Remaining())
	}
	raw, err := dec.ReadNBytes(int(n))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTruncated, field, err)
	}
	return string(raw), nil
}

func readPublicKey(dec *bin.Decoder, field string) (string, error) {
	raw, err := dec.ReadNBytes(publicKeySize)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTruncated, field, err)
	}
	return base58.Encode(raw), nil
}
