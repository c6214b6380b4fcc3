package visfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// A band file is a flat sequence of fixed-width records with no
// header: each record is two little-endian IEEE-754 float32 fields,
// the real and imaginary parts of one visibility. This layout is a
// compatibility contract with the simulator's native output; both the
// byte order and the field width are fixed, and the whole layout is
// owned by decodeRecord so a format change touches one place.
const (
	fieldWidth = 4 // bytes per float32 field

	// RecordWidth is the byte width of one visibility sample.
	RecordWidth = 2 * fieldWidth
)

// MalformedFileError means a file's byte length is not a positive
// multiple of the record width, so it cannot be a valid band file.
type MalformedFileError struct {
	Path string
	Size int64
}

func (e *MalformedFileError) Error() string {
	if e.Size == 0 {
		return fmt.Sprintf("%s contains no data", e.Path)
	}
	return fmt.Sprintf("%s: size %d bytes is not a multiple of the %d-byte record width (%d bytes over)",
		e.Path, e.Size, RecordWidth, e.Size%RecordWidth)
}

// TruncatedFileError means a read stopped short of the file's declared
// length.
type TruncatedFileError struct {
	Path string
	Want int64
	Got  int64
	Err  error
}

func (e *TruncatedFileError) Error() string {
	return fmt.Sprintf("%s: read %d of %d bytes: %v", e.Path, e.Got, e.Want, e.Err)
}

func (e *TruncatedFileError) Unwrap() error {
	return e.Err
}

// Read decodes one band file into its visibility samples, in record
// order. No unit conversion, byte-order detection or partial-read
// recovery is attempted.
func Read(path string) ([]complex64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening band file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	size := info.Size()
	if size == 0 || size%RecordWidth != 0 {
		return nil, &MalformedFileError{Path: path, Size: size}
	}

	buf := make([]byte, size)
	if n, err := io.ReadFull(f, buf); err != nil {
		return nil, &TruncatedFileError{Path: path, Want: size, Got: int64(n), Err: err}
	}

	samples := make([]complex64, size/RecordWidth)
	for i := range samples {
		samples[i] = decodeRecord(buf[i*RecordWidth:])
	}
	return samples, nil
}

// decodeRecord decodes one fixed-width record. b must hold at least
// RecordWidth bytes.
func decodeRecord(b []byte) complex64 {
	re := math.Float32frombits(binary.LittleEndian.Uint32(b[0:fieldWidth]))
	im := math.Float32frombits(binary.LittleEndian.Uint32(b[fieldWidth:RecordWidth]))
	return complex(re, im)
}
