package polynomial

import (
	"fmt"

	"github.com/vybium/vybium-stark/internal/stark/field"
	"github.com/vybium/vybium-stark/internal/stark/utils"
)

// Domain is a coset of a multiplicative subgroup: {offset * generator^i :
// i = 0..length-1}. All domains used by the proof engine have power-of-two
// length (spec DATA MODEL, "Evaluation domain").
type Domain struct {
	Offset    field.Element
	Generator field.Element
	Length    int
}

// NewDomain builds the length-th roots-of-unity domain with the given
// coset offset (field.One() for no offset).
func NewDomain(length int, offset field.Element) (*Domain, error) {
	if !utils.IsPowerOfTwo(length) {
		return nil, fmt.Errorf("polynomial: domain length must be a power of two, got %d", length)
	}
	generator, err := field.Root(uint64(length))
	if err != nil {
		return nil, err
	}
	return &Domain{Offset: offset, Generator: generator, Length: length}, nil
}

// Elements returns every point of the domain in natural (non-bit-reversed)
// order.
func (d *Domain) Elements() []field.Element {
	out := make([]field.Element, d.Length)
	cur := d.Offset
	for i := range out {
		out[i] = cur
		cur = cur.Mul(d.Generator)
	}
	return out
}

// At returns the i-th domain element, offset * generator^i.
func (d *Domain) At(i int) field.Element {
	return d.Offset.Mul(d.Generator.PowUint64(uint64(i)))
}

// Halve returns the domain of half the length, obtained by squaring both
// the offset and the generator: {offset^2 * generator^(2i) : i}. This is
// the domain a folded FRI codeword lives on.
func (d *Domain) Halve() (*Domain, error) {
	if d.Length < 2 {
		return nil, fmt.Errorf("polynomial: cannot halve domain of length %d", d.Length)
	}
	return &Domain{
		Offset:    d.Offset.Square(),
		Generator: d.Generator.Square(),
		Length:    d.Length / 2,
	}, nil
}

func (d *Domain) String() string {
	return fmt.Sprintf("Domain{length: %d, offset: %s, generator: %s}", d.Length, d.Offset, d.Generator)
}
