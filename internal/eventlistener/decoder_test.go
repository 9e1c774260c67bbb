package eventlistener

import (
	"bytes"
	"encoding/base64"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createEventDiscriminator = []byte{27, 114, 169, 77, 222, 235, 99, 118}

func encodeCreateEvent(t *testing.T, name, symbol, uri string, mint, curve, user [32]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := bin.NewBorshEncoder(&buf)
	require.NoError(t, enc.WriteBytes(createEventDiscriminator, false))
	for _, s := range []string{name, symbol, uri} {
		require.NoError(t, enc.WriteUint32(uint32(len(s)), bin.LE))
		require.NoError(t, enc.WriteBytes([]byte(s), false))
	}
	for _, k := range [][32]byte{mint, curve, user} {
		require.NoError(t, enc.WriteBytes(k[:], false))
	}
	return buf.Bytes()
}

func key(b byte) [32]byte {
	var k [32]byte
	for i := range k {
		k[i] = b
	}
	return k
}

func TestDecodeCreateEvent(t *testing.T) {
	data := encodeCreateEvent(t, "DOGE", "DOGE", "http://x", key(0), key(0), key(0))

	ev, err := DecodeCreateEvent(data)
	require.NoError(t, err)

	zero := base58.Encode(make([]byte, 32))
	assert.Equal(t, "DOGE", ev.Name)
	assert.Equal(t, "DOGE", ev.Symbol)
	assert.Equal(t, "http://x", ev.URI)
	assert.Equal(t, zero, ev.AssetID)
	assert.Equal(t, zero, ev.BondingCurve)
	assert.Equal(t, zero, ev.Creator)
	assert.Equal(t, "11111111111111111111111111111111", zero)
}

func TestDecodeCreateEventDistinctKeys(t *testing.T) {
	mint, curve, user := key(1), key(2), key(3)
	data := encodeCreateEvent(t, "Pepe Classic", "PEPEC", "https://ipfs.io/ipfs/Qm", mint, curve, user)

	ev, err := DecodeCreateEvent(data)
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(mint[:]), ev.AssetID)
	assert.Equal(t, base58.Encode(curve[:]), ev.BondingCurve)
	assert.Equal(t, base58.Encode(user[:]), ev.Creator)
}

func TestDecodeCreateEventUnicode(t *testing.T) {
	data := encodeCreateEvent(t, "火箭🚀", "RKT", "", key(9), key(8), key(7))

	ev, err := DecodeCreateEvent(data)
	require.NoError(t, err)
	assert.Equal(t, "火箭🚀", ev.Name)
	assert.Empty(t, ev.URI)
}

func TestDecodeCreateEventTruncated(t *testing.T) {
	full := encodeCreateEvent(t, "DOGE", "DOGE", "http://x", key(0), key(0), key(0))

	cases := map[string][]byte{
		"empty":             {},
		"short header":      full[:5],
		"missing name":      full[:10],
		"missing last key":  full[:len(full)-1],
		"oversized length":  append(append([]byte{}, full[:8]...), 0xff, 0xff, 0xff, 0x7f, 'a'),
		"only discriminant": full[:8],
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCreateEvent(data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTruncated)
		})
	}
}

func TestDecodeCreateEventFromBase64Line(t *testing.T) {
	data := encodeCreateEvent(t, "DOGE", "DOGE", "http://x", key(0), key(0), key(0))
	decoded, err := base64.StdEncoding.DecodeString(base64.StdEncoding.EncodeToString(data))
	require.NoError(t, err)

	ev, err := DecodeCreateEvent(decoded)
	require.NoError(t, err)
	assert.Equal(t, "DOGE", ev.Symbol)
}
