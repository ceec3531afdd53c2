package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterIntegersLittleEndian(t *testing.T) {
	w := NewWriter()
	w.WriteU8(0xab)
	w.WriteU16LE(0x0102)
	w.WriteU32LE(0x01020304)
	w.WriteU64LE(0x0102030405060708)

	want := []byte{
		0xab,
		0x02, 0x01,
		0x04, 0x03, 0x02, 0x01,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}
	assert.Equal(t, want, w.Bytes())
}

func TestWriterSignedTwosComplement(t *testing.T) {
	cases := []struct {
		v    int64
		want []byte
	}{
		{0, []byte{0, 0, 0, 0, 0, 0, 0, 0}},
		{1, []byte{1, 0, 0, 0, 0, 0, 0, 0}},
		{-1, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
		{-2, []byte{0xfe, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
		{-100000000, []byte{0x00, 0x1f, 0x0a, 0xfa, 0xff, 0xff, 0xff, 0xff}},
		{math.MinInt64, []byte{0, 0, 0, 0, 0, 0, 0, 0x80}},
	}
	for _, tc := range cases {
		w := NewWriter()
		w.WriteI64LE(tc.v)
		assert.Equal(t, tc.want, w.Bytes(), "value %d", tc.v)

		got, err := NewReader(w.Bytes()).ReadI64LE()
		require.NoError(t, err)
		assert.Equal(t, tc.v, got)
	}
}

func TestWriteVecPrefixesLength(t *testing.T) {
	w := NewWriter()
	w.WriteVec([]byte{0xaa, 0xbb, 0xcc})
	w.WriteVec(nil)
	assert.Equal(t, []byte{3, 0, 0, 0, 0xaa, 0xbb, 0xcc, 0, 0, 0, 0}, w.Bytes())

	r := NewReader(w.Bytes())
	first, err := r.ReadVec()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa, 0xbb, 0xcc}, first)
	second, err := r.ReadVec()
	require.NoError(t, err)
	assert.Empty(t, second)
	require.NoError(t, r.ExpectEOF())
}

func TestWriteFixedRejectsWrongSize(t *testing.T) {
	w := NewWriter()
	require.Error(t, w.WriteFixed([]byte{1, 2, 3}, 32))
	require.NoError(t, w.WriteFixed(make([]byte, 32), 32))
	assert.Equal(t, 32, w.Len())
}

func TestCompactU16(t *testing.T) {
	cases := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{0x7f, []byte{0x7f}},
		{0x80, []byte{0x80, 0x01}},
		{0x3fff, []byte{0xff, 0x7f}},
		{0x4000, []byte{0x80, 0x80, 0x01}},
		{0xffff, []byte{0xff, 0xff, 0x03}},
	}
	for _, tc := range cases {
		w := NewWriter()
		require.NoError(t, w.WriteCompactU16(tc.n))
		assert.Equal(t, tc.want, w.Bytes(), "n=%d", tc.n)

		got, err := NewReader(tc.want).ReadCompactU16()
		require.NoError(t, err)
		assert.Equal(t, tc.n, got)
	}

	require.ErrorIs(t, NewWriter().WriteCompactU16(0x10000), ErrCompactU16Overflow)
	_, err := NewReader([]byte{0x80, 0x80, 0x80}).ReadCompactU16()
	require.ErrorIs(t, err, ErrCompactU16Overflow)
}

func TestReaderShortBuffer(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	_, err := r.ReadU32LE()
	require.ErrorIs(t, err, ErrShortBuffer)

	// length prefix claims more bytes than exist
	r = NewReader([]byte{9, 0, 0, 0, 1})
	_, err = r.ReadVec()
	require.ErrorIs(t, err, ErrShortBuffer)

	r = NewReader([]byte{1, 2})
	_, err = r.ReadU8()
	require.NoError(t, err)
	require.ErrorIs(t, r.ExpectEOF(), ErrTrailingBytes)
}
