package texture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// Codec errors.
var (
	// ErrUnalignedBuffer is returned when a byte buffer is not a whole number
	// of elements.
	ErrUnalignedBuffer = errors.New("texture: buffer length is not a multiple of the element size")

	// ErrInvalidDimensions is returned when a declared width, height or depth
	// is not positive.
	ErrInvalidDimensions = errors.New("texture: invalid dimensions")
)

// Channels is the number of components stored per texel. Every lookup table
// is RGBA so that it maps onto a single GPU float format.
const Channels = 4

// MalformedArtifactError reports a precomputed artifact whose byte length does
// not match the dimensions declared by the caller.
type MalformedArtifactError struct {
	Name string
	Got  int
	Want int
}

func (e *MalformedArtifactError) Error() string {
	return fmt.Sprintf("texture: malformed artifact %q: %d bytes, want %d", e.Name, e.Got, e.Want)
}

// ParseFloat32Array decodes little-endian IEEE 754 binary32 values. The result
// does not depend on the host byte order.
func ParseFloat32Array(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, ErrUnalignedBuffer
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}

// ParseFloat16Array decodes little-endian IEEE 754 binary16 values and widens
// them to float32.
func ParseFloat16Array(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, ErrUnalignedBuffer
	}
	out := make([]float32, len(data)/2)
	for i := range out {
		out[i] = float16.Frombits(binary.LittleEndian.Uint16(data[i*2:])).Float32()
	}
	return out, nil
}

// EncodeFloat32Array is the inverse of ParseFloat32Array.
func EncodeFloat32Array(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// EncodeFloat16Array narrows values to binary16 (round to nearest even) and
// writes them little-endian.
func EncodeFloat16Array(values []float32) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[i*2:], float16.Fromfloat32(v).Bits())
	}
	return out
}

// QuantizeHalf rounds every value to the nearest binary16 in place, leaving
// them stored as float32. This is what a half-float GPU texture holds after
// upload.
func QuantizeHalf(values []float32) {
	for i, v := range values {
		values[i] = float16.Fromfloat32(v).Float32()
	}
}

// ElementSize returns the byte size of one stored component.
func ElementSize(half bool) int {
	if half {
		return 2
	}
	return 4
}

// Decode parses an artifact buffer whose element count must equal
// texels*Channels. The caller's declared dimensions are trusted; a buffer of
// any other length is rejected with a *MalformedArtifactError.
func Decode(name string, data []byte, texels int, half bool) ([]float32, error) {
	if texels <= 0 {
		return nil, ErrInvalidDimensions
	}
	want := texels * Channels * ElementSize(half)
	if len(data) != want {
		return nil, &MalformedArtifactError{Name: name, Got: len(data), Want: want}
	}
	if half {
		return ParseFloat16Array(data)
	}
	return ParseFloat32Array(data)
}
