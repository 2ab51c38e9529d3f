package galprof

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// FitsMetadata holds parsed FITS header key-value pairs.
type FitsMetadata struct {
	Headers map[string]string
}

// NewFitsMetadata creates an empty FitsMetadata.
func NewFitsMetadata() *FitsMetadata {
	return &FitsMetadata{Headers: make(map[string]string)}
}

func (m *FitsMetadata) GetString(key string) string {
	if v, ok := m.Headers[strings.ToUpper(key)]; ok {
		return v
	}
	return ""
}

func (m *FitsMetadata) GetDouble(key string) (float64, bool) {
	v, ok := m.Headers[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

func (m *FitsMetadata) ObjectName() string { return m.GetString("OBJECT") }

// PixelScale is the plate scale in arcsec/pixel: PIXSCALE when present,
// otherwise derived from XPIXSZ (microns) and FOCALLEN (mm).
func (m *FitsMetadata) PixelScale() (float64, bool) {
	if v, ok := m.GetDouble("PIXSCALE"); ok && v > 0 {
		return v, true
	}
	size, okSize := m.GetDouble("XPIXSZ")
	focal, okFocal := m.GetDouble("FOCALLEN")
	if !okSize || !okFocal || size <= 0 || focal <= 0 {
		return 0, false
	}
	return 206.265 * size / focal, true
}

// FitsImageData holds the physical (BSCALE/BZERO applied) pixel values of the
// primary HDU, row-major.
type FitsImageData struct {
	Pixels   []float64
	Width    int
	Height   int
	Metadata *FitsMetadata
}

// ReadFits reads FITS headers and pixel data from a file.
func ReadFits(filePath string) (*FitsImageData, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening FITS file: %w", err)
	}
	defer f.Close()
	return readFitsFromReader(f)
}

// ReadFitsFromBytes reads FITS headers and pixel data from a byte slice.
func ReadFitsFromBytes(data []byte) (*FitsImageData, error) {
	return readFitsFromReader(bytes.NewReader(data))
}

// LoadFitsImage reads a FITS file as a target image. A pixelscale of 0 is
// taken from the header.
func LoadFitsImage(filePath string, pixelscale float64, origin Point2d) (*Image, error) {
	fits, err := ReadFits(filePath)
	if err != nil {
		return nil, err
	}
	return fits.Image(pixelscale, origin)
}

// Image wraps the pixels as an Image.
func (d *FitsImageData) Image(pixelscale float64, origin Point2d) (*Image, error) {
	if pixelscale == 0 {
		ps, ok := d.Metadata.PixelScale()
		if !ok {
			return nil, fmt.Errorf("FITS header has no pixel scale and none was configured: %w", ErrInvalidWindow)
		}
		pixelscale = ps
	}
	return NewImageFromData(d.Pixels, d.Height, d.Width, pixelscale, origin)
}

const (
	fitsCardLen   = 80
	fitsBlockLen  = 2880
	fitsBlockCard = fitsBlockLen / fitsCardLen
)

// pixelDecoders turns one big-endian sample into its raw value, per BITPIX.
var pixelDecoders = map[int]func([]byte) float64{
	8:   func(b []byte) float64 { return float64(b[0]) },
	16:  func(b []byte) float64 { return float64(int16(binary.BigEndian.Uint16(b))) },
	32:  func(b []byte) float64 { return float64(int32(binary.BigEndian.Uint32(b))) },
	-32: func(b []byte) float64 { return float64(math.Float32frombits(binary.BigEndian.Uint32(b))) },
	-64: func(b []byte) float64 { return math.Float64frombits(binary.BigEndian.Uint64(b)) },
}

func readFitsFromReader(r io.Reader) (*FitsImageData, error) {
	metadata, err := readFitsHeader(r)
	if err != nil {
		return nil, err
	}

	bitpix := metadata.intValue("BITPIX")
	naxis := metadata.intValue("NAXIS")
	width := metadata.intValue("NAXIS1")
	height := metadata.intValue("NAXIS2")
	if naxis < 2 || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid FITS: NAXIS=%d, NAXIS1=%d, NAXIS2=%d", naxis, width, height)
	}
	decode, ok := pixelDecoders[bitpix]
	if !ok {
		return nil, fmt.Errorf("unsupported BITPIX: %d", bitpix)
	}
	bzero, ok := metadata.GetDouble("BZERO")
	if !ok {
		bzero = 0
	}
	bscale, ok := metadata.GetDouble("BSCALE")
	if !ok {
		bscale = 1
	}

	sampleLen := max(bitpix, -bitpix) / 8
	raw := make([]byte, width*height*sampleLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("reading BITPIX %d pixel data: %w", bitpix, err)
	}
	pixels := make([]float64, width*height)
	for i := range pixels {
		pixels[i] = decode(raw[i*sampleLen:])*bscale + bzero
	}

	return &FitsImageData{
		Pixels:   pixels,
		Width:    width,
		Height:   height,
		Metadata: metadata,
	}, nil
}

// readFitsHeader consumes whole header blocks up to and including the one
// holding END.
func readFitsHeader(r io.Reader) (*FitsMetadata, error) {
	metadata := NewFitsMetadata()
	block := make([]byte, fitsBlockLen)
	for {
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, fmt.Errorf("reading FITS header block: %w", err)
		}
		for i := 0; i < fitsBlockCard; i++ {
			card := string(block[i*fitsCardLen : (i+1)*fitsCardLen])
			keyword := strings.ToUpper(strings.TrimSpace(card[:8]))
			if keyword == "END" {
				return metadata, nil
			}
			if keyword == "" || card[8:10] != "= " {
				continue
			}
			if value := parseFitsValue(card[10:]); value != "" {
				metadata.Headers[keyword] = value
			}
		}
	}
}

func (m *FitsMetadata) intValue(key string) int {
	v, _ := m.GetDouble(key)
	return int(v)
}

// parseFitsValue extracts the value field of a card, dropping any trailing
// comment. Strings lose their quotes and trailing blanks; logicals become
// True/False.
func parseFitsValue(field string) string {
	field = strings.TrimSpace(field)
	if strings.HasPrefix(field, "'") {
		// '' is an escaped quote inside a string value.
		var sb strings.Builder
		for i := 1; i < len(field); i++ {
			if field[i] != '\'' {
				sb.WriteByte(field[i])
				continue
			}
			if i+1 < len(field) && field[i+1] == '\'' {
				sb.WriteByte('\'')
				i++
				continue
			}
			break
		}
		return strings.TrimRight(sb.String(), " ")
	}
	value, _, _ := strings.Cut(field, "/")
	switch value = strings.TrimSpace(value); value {
	case "T":
		return "True"
	case "F":
		return "False"
	}
	return value
}
