package polynomial

import (
	"fmt"

	"github.com/vybium/vybium-stark/internal/stark/field"
	"github.com/vybium/vybium-stark/internal/stark/utils"
)

func log2(n int) int {
	result := 0
	for n > 1 {
		n >>= 1
		result++
	}
	return result
}

// PermuteIndex reverses the low log2(size) bits of index. It is its own
// inverse: PermuteIndex(size, PermuteIndex(size, i)) == i.
func PermuteIndex(size, index int) int {
	bits := log2(size)
	reversed := 0
	for i := 0; i < bits; i++ {
		if index&(1<<i) != 0 {
			reversed |= 1 << (bits - 1 - i)
		}
	}
	return reversed
}

// BitReverse applies the self-inverse bit-reversal permutation to v in
// place. len(v) must be a power of two.
func BitReverse(v []field.Element) {
	n := len(v)
	for i := 0; i < n; i++ {
		j := PermuteIndex(n, i)
		if j > i {
			v[i], v[j] = v[j], v[i]
		}
	}
}

// fftRec implements the recursive Gentleman-Sande decimation-in-frequency
// FFT: given coefficients in natural order and a primitive len(a)-th root of
// unity, it overwrites a in place with the corresponding evaluations, left
// in bit-reversed order.
func fftRec(a []field.Element, root field.Element) {
	n := len(a)
	if n == 1 {
		return
	}
	half := n / 2
	w := field.One()
	for i := 0; i < half; i++ {
		x := a[i]
		y := a[i+half]
		a[i] = x.Add(y)
		a[i+half] = x.Sub(y).Mul(w)
		w = w.Mul(root)
	}
	root2 := root.Square()
	fftRec(a[:half], root2)
	fftRec(a[half:], root2)
}

// ifftRec is the exact algebraic inverse of fftRec, up to an overall factor
// of n which the caller must divide out.
func ifftRec(a []field.Element, rootInv field.Element) {
	n := len(a)
	if n == 1 {
		return
	}
	half := n / 2
	root2 := rootInv.Square()
	ifftRec(a[:half], root2)
	ifftRec(a[half:], root2)
	w := field.One()
	for i := 0; i < half; i++ {
		x := a[i]
		y := a[i+half].Mul(w)
		a[i] = x.Add(y)
		a[i+half] = x.Sub(y)
		w = w.Mul(rootInv)
	}
}

func checkPowerOfTwo(a []field.Element) error {
	if !utils.IsPowerOfTwo(len(a)) {
		return fmt.Errorf("polynomial: length %d is not a power of two", len(a))
	}
	return nil
}

// FFT evaluates the polynomial with coefficients a (natural order, read as
// coefficient 0..n-1) at the n-th roots of unity, in place. The result is
// left in bit-reversed order, so that FRI can consume it directly.
func FFT(a []field.Element) error {
	if err := checkPowerOfTwo(a); err != nil {
		return err
	}
	if len(a) == 1 {
		return nil
	}
	root, err := field.Root(uint64(len(a)))
	if err != nil {
		return err
	}
	return FFTRoot(root, a)
}

// FFTRoot runs the FFT using an arbitrary caller-supplied primitive
// len(a)-th root of unity.
func FFTRoot(root field.Element, a []field.Element) error {
	if err := checkPowerOfTwo(a); err != nil {
		return err
	}
	fftRec(a, root)
	return nil
}

// IFFT inverts FFT: given evaluations in bit-reversed order, recovers the
// coefficients in natural order, scaling by n^-1.
func IFFT(a []field.Element) error {
	if err := checkPowerOfTwo(a); err != nil {
		return err
	}
	if len(a) == 1 {
		return nil
	}
	root, err := field.Root(uint64(len(a)))
	if err != nil {
		return err
	}
	rootInv, err := root.Inv()
	if err != nil {
		return err
	}
	ifftRec(a, rootInv)
	nInv, err := field.FromUint64(uint64(len(a))).Inv()
	if err != nil {
		return err
	}
	for i := range a {
		a[i] = a[i].Mul(nInv)
	}
	return nil
}

// FFTCofactor evaluates the polynomial with coefficients a at the coset
// cofactor * omega^i, i.e. it scales a[k] by cofactor^k before running FFT.
// a is modified in place; its original coefficient values are destroyed.
func FFTCofactor(cofactor field.Element, a []field.Element) error {
	scalePowers(cofactor, a)
	return FFT(a)
}

// IFFTCofactor inverts FFTCofactor: given evaluations on the coset
// cofactor * omega^i (bit-reversed order), recovers the coefficients.
func IFFTCofactor(cofactor field.Element, a []field.Element) error {
	if err := IFFT(a); err != nil {
		return err
	}
	cofactorInv, err := cofactor.Inv()
	if err != nil {
		return err
	}
	scalePowers(cofactorInv, a)
	return nil
}

func scalePowers(base field.Element, a []field.Element) {
	cur := field.One()
	for i := range a {
		a[i] = a[i].Mul(cur)
		cur = cur.Mul(base)
	}
}

// EvaluateDomain evaluates the polynomial p (zero-padded to domainSize) on
// the coset {offset * root^i : i = 0..domainSize-1} via a cofactor FFT,
// returning values in bit-reversed order.
func EvaluateDomain(p *Polynomial, offset field.Element, domainSize int) ([]field.Element, error) {
	coeffs := make([]field.Element, domainSize)
	for i := 0; i <= p.Degree() && i < domainSize; i++ {
		coeffs[i] = p.Coefficient(i)
	}
	for i := p.Degree() + 1; i < domainSize; i++ {
		coeffs[i] = field.Zero()
	}
	if err := FFTCofactor(offset, coeffs); err != nil {
		return nil, err
	}
	return coeffs, nil
}

// InterpolateRootsOfUnity recovers the unique polynomial of degree <
// len(values) whose evaluation on the len(values)-th roots of unity (given
// in bit-reversed order) equals values.
func InterpolateRootsOfUnity(values []field.Element) (*Polynomial, error) {
	coeffs := make([]field.Element, len(values))
	copy(coeffs, values)
	if err := IFFT(coeffs); err != nil {
		return nil, err
	}
	return New(coeffs), nil
}

// InterpolateCoset inverts EvaluateDomain: given the evaluations (in
// bit-reversed order) of a polynomial of degree < len(values) on the coset
// {offset * root^i}, recovers its coefficients.
func InterpolateCoset(offset field.Element, values []field.Element) (*Polynomial, error) {
	coeffs := make([]field.Element, len(values))
	copy(coeffs, values)
	if err := IFFTCofactor(offset, coeffs); err != nil {
		return nil, err
	}
	return New(coeffs), nil
}
