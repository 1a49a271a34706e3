package store

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a stable hex identity for a profile payload. Two
// submissions with the same radii, densities and unit symbols share the
// fingerprint, which lets callers reuse a stored fit instead of
// repeating it. The radius count is hashed first so the boundary
// between the two arrays is unambiguous.
func Fingerprint(radii, density []float64, radiusUnit, densityUnit string) string {
	d := xxhash.New()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(len(radii)))
	d.Write(buf[:])
	for _, v := range radii {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		d.Write(buf[:])
	}
	for _, v := range density {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		d.Write(buf[:])
	}
	d.WriteString(radiusUnit)
	d.Write([]byte{0})
	d.WriteString(densityUnit)

	return strconv.FormatUint(d.Sum64(), 16)
}
