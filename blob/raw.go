package blob

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

var (
	ErrDataTooLarge    = errors.New("blob: raw data too large")
	ErrIncorrectScalar = errors.New("blob: scalar does not hold a raw unit")
	ErrLengthField     = errors.New("blob: incorrect length field")
)

// MaxRawDataSize is the payload a blob of n scalars carries: RAW_UNIT bytes per scalar
// minus the 4-byte length trailer.
func MaxRawDataSize(n int) int {
	return RAW_UNIT*n - 4
}

// FromBytes packs data into n scalars, RAW_UNIT little-endian bytes each. The padded
// buffer ends with the payload length (uint32, little-endian).
func FromBytes(data []byte, n int) ([]fr.Element, error) {
	limit := MaxRawDataSize(n)
	if len(data) > limit {
		return nil, fmt.Errorf("%w: %d bytes, at most %d", ErrDataTooLarge, len(data), limit)
	}
	padded := make([]byte, RAW_UNIT*n)
	copy(padded, data)
	binary.LittleEndian.PutUint32(padded[limit:], uint32(len(data)))

	scalars := make([]fr.Element, n)
	var unit [fr.Bytes]byte
	for i := range scalars {
		copy(unit[:RAW_UNIT], padded[i*RAW_UNIT:(i+1)*RAW_UNIT])
		// 31 bytes stay below the modulus
		scalars[i], _ = fr.LittleEndian.Element(&unit)
	}
	return scalars, nil
}

// ToBytes reverses FromBytes.
func ToBytes(scalars []fr.Element) ([]byte, error) {
	padded := make([]byte, 0, RAW_UNIT*len(scalars))
	var unit [fr.Bytes]byte
	for i := range scalars {
		fr.LittleEndian.PutElement(&unit, scalars[i])
		if unit[RAW_UNIT] != 0 {
			return nil, fmt.Errorf("%w: index %d", ErrIncorrectScalar, i)
		}
		padded = append(padded, unit[:RAW_UNIT]...)
	}
	limit := MaxRawDataSize(len(scalars))
	if limit < 0 {
		return nil, ErrLengthField
	}
	length := int(binary.LittleEndian.Uint32(padded[limit:]))
	if length > limit {
		return nil, fmt.Errorf("%w: %d above %d", ErrLengthField, length, limit)
	}
	for _, b := range padded[length:limit] {
		if b != 0 {
			return nil, fmt.Errorf("%w: non zero padding", ErrLengthField)
		}
	}
	return padded[:length], nil
}
