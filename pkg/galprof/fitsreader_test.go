package galprof

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFits assembles a primary HDU from header cards and raw big-endian data,
// padding both to 2880-byte blocks.
func buildFits(cards []string, data []byte) []byte {
	var buf bytes.Buffer
	for _, card := range append(cards, "END") {
		buf.WriteString(fmt.Sprintf("%-80s", card))
	}
	for buf.Len()%2880 != 0 {
		buf.WriteByte(' ')
	}
	buf.Write(data)
	for buf.Len()%2880 != 0 {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func card(key, value string) string {
	return fmt.Sprintf("%-8s= %20s", key, value)
}

func TestReadFitsFloat32(t *testing.T) {
	values := []float32{1, 2.5, -3, 4, 0, 1e3}
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}
	raw := buildFits([]string{
		card("SIMPLE", "T"),
		card("BITPIX", "-32"),
		card("NAXIS", "2"),
		card("NAXIS1", "3"),
		card("NAXIS2", "2"),
		card("PIXSCALE", "0.4") + " / arcsec per pixel",
		"OBJECT  = 'NGC 1234'",
	}, data)

	fits, err := ReadFitsFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, 3, fits.Width)
	assert.Equal(t, 2, fits.Height)
	assert.Equal(t, []float64{1, 2.5, -3, 4, 0, 1e3}, fits.Pixels)
	assert.Equal(t, "NGC 1234", fits.Metadata.ObjectName())
	assert.Equal(t, "True", fits.Metadata.GetString("simple"))

	img, err := fits.Image(0, Point2d{X: 1, Y: 2})
	require.NoError(t, err)
	assert.Equal(t, 0.4, img.PixelScale())
	assert.Equal(t, 2, img.Rows())
	assert.Equal(t, 3, img.Cols())
	assert.Equal(t, 4.0, img.At(1, 0))
	assert.Equal(t, Point2d{X: 1, Y: 2}, img.Origin())
}

func TestReadFitsInt16Scaled(t *testing.T) {
	values := []int16{-32768, 0, 100, 32767}
	data := make([]byte, 2*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(data[2*i:], uint16(v))
	}
	raw := buildFits([]string{
		card("SIMPLE", "T"),
		card("BITPIX", "16"),
		card("NAXIS", "2"),
		card("NAXIS1", "2"),
		card("NAXIS2", "2"),
		card("BZERO", "32768"),
		card("BSCALE", "2"),
	}, data)

	fits, err := ReadFitsFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, []float64{-32768, 32768, 32968, 98302}, fits.Pixels)

	_, err = fits.Image(0, Point2d{})
	require.ErrorIs(t, err, ErrInvalidWindow, "no pixel scale anywhere")
	img, err := fits.Image(1.5, Point2d{})
	require.NoError(t, err)
	assert.Equal(t, 1.5, img.PixelScale())
}

func TestReadFitsRejectsBadInput(t *testing.T) {
	_, err := ReadFitsFromBytes([]byte("SIMPLE  ="))
	require.Error(t, err)

	raw := buildFits([]string{card("SIMPLE", "T"), card("BITPIX", "-32"), card("NAXIS", "0")}, nil)
	_, err = ReadFitsFromBytes(raw)
	require.Error(t, err)

	raw = buildFits([]string{
		card("BITPIX", "24"), card("NAXIS", "2"), card("NAXIS1", "1"), card("NAXIS2", "1"),
	}, []byte{0, 0, 0})
	_, err = ReadFitsFromBytes(raw)
	require.ErrorContains(t, err, "unsupported BITPIX")
}

func TestFitsPixelScale(t *testing.T) {
	meta := NewFitsMetadata()
	_, ok := meta.PixelScale()
	assert.False(t, ok)

	meta.Headers["XPIXSZ"] = "3.76"
	meta.Headers["FOCALLEN"] = "1000"
	ps, ok := meta.PixelScale()
	require.True(t, ok)
	assert.InDelta(t, 0.77556, ps, 1e-5)

	meta.Headers["PIXSCALE"] = "1.2"
	ps, ok = meta.PixelScale()
	require.True(t, ok)
	assert.Equal(t, 1.2, ps)
}

func TestLoadFitsImage(t *testing.T) {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, math.Float64bits(42))
	raw := buildFits([]string{
		card("SIMPLE", "T"), card("BITPIX", "-64"), card("NAXIS", "2"),
		card("NAXIS1", "1"), card("NAXIS2", "1"),
	}, data)
	path := filepath.Join(t.TempDir(), "one.fits")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	img, err := LoadFitsImage(path, 2, Point2d{})
	require.NoError(t, err)
	assert.Equal(t, 42.0, img.At(0, 0))

	_, err = LoadFitsImage(filepath.Join(t.TempDir(), "missing.fits"), 1, Point2d{})
	require.Error(t, err)
}

func TestParseFitsValue(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"                   T / simple", "True"},
		{"F", "False"},
		{"  1.5E2 / exposure", "1.5E2"},
		{"'M31/NGC 224'       / name", "M31/NGC 224"},
		{"'O''Brien '", "O'Brien"},
		{"'unterminated", "unterminated"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseFitsValue(tt.field), tt.field)
	}
}
