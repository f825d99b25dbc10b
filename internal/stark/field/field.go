// Package field implements arithmetic in the 252-bit STARK-friendly prime
// field used throughout the proof engine. Elements are held internally in
// Montgomery form; callers never observe the Montgomery representative
// directly except at the wire-encoding boundary (Bytes/FromMontgomeryBytes),
// where it is part of the documented proof format.
package field

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Modulus is the STARK prime p = 2^251 + 17*2^192 + 1.
var Modulus = mustHex("0800000000000011000000000000000000000000000000000000000000000001")

// Generator is a generator of the multiplicative group Z/pZ*.
var Generator = FromUint64(3)

// r is Montgomery's R = 2^256.
var r = new(big.Int).Lsh(big.NewInt(1), 256)

// rSquared is R^2 mod p, used to convert canonical values into Montgomery
// form without a full REDC round trip.
var rSquared = new(big.Int).Mod(new(big.Int).Mul(r, r), Modulus)

// nPrime is -p^-1 mod R, the Montgomery reduction constant.
var nPrime = computeNPrime()

func mustHex(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("field: bad modulus literal")
	}
	return v
}

func computeNPrime() *big.Int {
	pInv := new(big.Int).ModInverse(Modulus, r)
	if pInv == nil {
		panic("field: modulus has no inverse mod R; modulus is not odd")
	}
	return new(big.Int).Sub(r, pInv)
}

// Element is a field element held in Montgomery form: the stored value v
// satisfies v = x*R mod p for the represented canonical value x, and is
// always strictly less than Modulus.
type Element struct {
	v big.Int
}

// redc performs Montgomery reduction: given t < R*p, returns t*R^-1 mod p.
func redc(t *big.Int) big.Int {
	m := new(big.Int).Mod(t, r)
	m.Mul(m, nPrime)
	m.Mod(m, r)

	u := new(big.Int).Mul(m, Modulus)
	u.Add(u, t)
	u.Div(u, r)
	if u.Cmp(Modulus) >= 0 {
		u.Sub(u, Modulus)
	}
	return *u
}

// toMontgomery converts a canonical value x (0 <= x < p) to its Montgomery
// representative x*R mod p, via REDC(x * R^2).
func toMontgomery(x *big.Int) big.Int {
	t := new(big.Int).Mul(x, rSquared)
	return redc(t)
}

// Zero returns the additive identity.
func Zero() Element { return Element{} }

// One returns the multiplicative identity.
var oneMontgomery = toMontgomery(big.NewInt(1))

func One() Element {
	var e Element
	e.v.Set(&oneMontgomery)
	return e
}

// FromUint64 builds an element from a uint64 canonical value.
func FromUint64(x uint64) Element {
	return FromBigInt(new(big.Int).SetUint64(x))
}

// FromInt64 builds an element from a signed canonical value, wrapping
// negative values modulo p.
func FromInt64(x int64) Element {
	b := big.NewInt(x)
	b.Mod(b, Modulus)
	return FromBigInt(b)
}

// FromBigInt builds an element from an arbitrary big.Int, reducing modulo p.
func FromBigInt(x *big.Int) Element {
	canon := new(big.Int).Mod(x, Modulus)
	mont := toMontgomery(canon)
	return Element{v: mont}
}

// RandomElement draws a uniformly random element using crypto/rand.
func RandomElement() Element {
	for {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			panic(fmt.Sprintf("field: crypto/rand failure: %v", err))
		}
		b[0] &= 0x0f // mask to 252 bits
		v := new(big.Int).SetBytes(b)
		if v.Cmp(Modulus) < 0 {
			return FromBigInt(v)
		}
	}
}

// BigInt returns the canonical (non-Montgomery) representative as a new
// big.Int, in [0, p).
func (e Element) BigInt() *big.Int {
	out := redc(&e.v)
	return &out
}

// Bytes encodes the element as its 32-byte big-endian Montgomery
// representative, per the wire format (spec EXTERNAL INTERFACES).
func (e Element) Bytes() [32]byte {
	var out [32]byte
	e.v.FillBytes(out[:])
	return out
}

// FromMontgomeryBytes decodes a 32-byte big-endian Montgomery representative
// as written on the wire. Returns an error if the value is not strictly less
// than the modulus.
func FromMontgomeryBytes(b [32]byte) (Element, error) {
	v := new(big.Int).SetBytes(b[:])
	if v.Cmp(Modulus) >= 0 {
		return Element{}, fmt.Errorf("field: encoded value is not less than the modulus")
	}
	return Element{v: *v}, nil
}

// Add returns e + other.
func (e Element) Add(other Element) Element {
	sum := new(big.Int).Add(&e.v, &other.v)
	if sum.Cmp(Modulus) >= 0 {
		sum.Sub(sum, Modulus)
	}
	return Element{v: *sum}
}

// Sub returns e - other.
func (e Element) Sub(other Element) Element {
	diff := new(big.Int).Sub(&e.v, &other.v)
	if diff.Sign() < 0 {
		diff.Add(diff, Modulus)
	}
	return Element{v: *diff}
}

// Neg returns -e.
func (e Element) Neg() Element {
	if e.v.Sign() == 0 {
		return Zero()
	}
	out := new(big.Int).Sub(Modulus, &e.v)
	return Element{v: *out}
}

// Mul returns e * other.
func (e Element) Mul(other Element) Element {
	t := new(big.Int).Mul(&e.v, &other.v)
	out := redc(t)
	return Element{v: out}
}

// Square returns e * e.
func (e Element) Square() Element { return e.Mul(e) }

// Double returns e + e.
func (e Element) Double() Element { return e.Add(e) }

// IsZero reports whether e is the additive identity.
func (e Element) IsZero() bool { return e.v.Sign() == 0 }

// IsOne reports whether e is the multiplicative identity.
func (e Element) IsOne() bool { return e.v.Cmp(&oneMontgomery) == 0 }

// Equal reports whether e and other represent the same canonical value.
func (e Element) Equal(other Element) bool { return e.v.Cmp(&other.v) == 0 }

// LessThan compares canonical representatives.
func (e Element) LessThan(other Element) bool {
	return e.BigInt().Cmp(other.BigInt()) < 0
}

func (e Element) String() string {
	return e.BigInt().String()
}

// ErrInverseOfZero is returned by Inv when called on the zero element.
var ErrInverseOfZero = fmt.Errorf("field: cannot invert zero")

// Inv returns the multiplicative inverse of e. Total on non-zero inputs:
// for any non-zero a, a.Inv() times a is One.
func (e Element) Inv() (Element, error) {
	if e.IsZero() {
		return Element{}, ErrInverseOfZero
	}
	canon := e.BigInt()
	inv := new(big.Int).ModInverse(canon, Modulus)
	if inv == nil {
		return Element{}, ErrInverseOfZero
	}
	return FromBigInt(inv), nil
}

// Div returns e / other.
func (e Element) Div(other Element) (Element, error) {
	inv, err := other.Inv()
	if err != nil {
		return Element{}, err
	}
	return e.Mul(inv), nil
}

// Pow raises e to the given non-negative exponent using left-to-right
// square-and-multiply over the exponent's bits. e^0 == 1 even for e == 0.
func (e Element) Pow(exponent *big.Int) Element {
	if exponent.Sign() == 0 {
		return One()
	}
	result := One()
	base := e
	for i := exponent.BitLen() - 1; i >= 0; i-- {
		result = result.Square()
		if exponent.Bit(i) == 1 {
			result = result.Mul(base)
		}
	}
	return result
}

// PowUint64 is a convenience wrapper around Pow for uint64 exponents.
func (e Element) PowUint64(exponent uint64) Element {
	return e.Pow(new(big.Int).SetUint64(exponent))
}

// ErrNoRootOfUnity is returned by Root when the requested order does not
// divide p-1.
var ErrNoRootOfUnity = fmt.Errorf("field: order does not divide p-1")

// pMinusOne is p - 1, the order of the multiplicative group.
var pMinusOne = new(big.Int).Sub(Modulus, big.NewInt(1))

// Root returns a primitive n-th root of unity, computed as
// generator^((p-1)/n). Root(0) == One().
func Root(n uint64) (Element, error) {
	if n == 0 {
		return One(), nil
	}
	nBig := new(big.Int).SetUint64(n)
	q, rem := new(big.Int).QuoRem(pMinusOne, nBig, new(big.Int))
	if rem.Sign() != 0 {
		return Element{}, ErrNoRootOfUnity
	}
	return Generator.Pow(q), nil
}

// ErrNoSquareRoot is returned by Sqrt when the value is not a quadratic
// residue.
var ErrNoSquareRoot = fmt.Errorf("field: value is not a quadratic residue")

// Sqrt computes a square root of e via Tonelli-Shanks. Of the two roots
// +-r, the one whose canonical representative is numerically smaller is
// returned, per the documented convention.
func (e Element) Sqrt() (Element, error) {
	if e.IsZero() {
		return Zero(), nil
	}
	legendre := e.Pow(new(big.Int).Rsh(pMinusOne, 1))
	if !legendre.IsOne() {
		return Element{}, ErrNoSquareRoot
	}

	// p % 4 == 3 shortcut: r = e^((p+1)/4).
	if new(big.Int).Mod(Modulus, big.NewInt(4)).Cmp(big.NewInt(3)) == 0 {
		exp := new(big.Int).Add(Modulus, big.NewInt(1))
		exp.Rsh(exp, 2)
		r := e.Pow(exp)
		return smallerRoot(r), nil
	}

	// General Tonelli-Shanks.
	q := new(big.Int).Set(pMinusOne)
	s := 0
	for new(big.Int).Mod(q, big.NewInt(2)).Sign() == 0 {
		q.Rsh(q, 1)
		s++
	}

	var z Element
	for i := uint64(2); ; i++ {
		cand := FromUint64(i)
		ls := cand.Pow(new(big.Int).Rsh(pMinusOne, 1))
		if !ls.IsOne() {
			z = cand
			break
		}
	}

	m := s
	c := z.Pow(q)
	t := e.Pow(q)
	qPlus1Over2 := new(big.Int).Add(q, big.NewInt(1))
	qPlus1Over2.Rsh(qPlus1Over2, 1)
	rRoot := e.Pow(qPlus1Over2)

	for {
		if t.IsOne() {
			return smallerRoot(rRoot), nil
		}
		i := 0
		tt := t
		for !tt.IsOne() {
			tt = tt.Square()
			i++
			if i == m {
				return Element{}, ErrNoSquareRoot
			}
		}
		bExp := new(big.Int).Lsh(big.NewInt(1), uint(m-i-1))
		b := c.Pow(bExp)
		m = i
		c = b.Square()
		t = t.Mul(c)
		rRoot = rRoot.Mul(b)
	}
}

func smallerRoot(r Element) Element {
	neg := r.Neg()
	if neg.BigInt().Cmp(r.BigInt()) < 0 {
		return neg
	}
	return r
}

// BatchInvert inverts every element of in using the standard prefix/suffix
// product trick: 3(n-1) multiplications plus a single inversion. Fails if
// any element is zero.
func BatchInvert(in []Element) ([]Element, error) {
	n := len(in)
	if n == 0 {
		return nil, nil
	}
	prefix := make([]Element, n)
	acc := One()
	for i, e := range in {
		if e.IsZero() {
			return nil, ErrInverseOfZero
		}
		prefix[i] = acc
		acc = acc.Mul(e)
	}
	accInv, err := acc.Inv()
	if err != nil {
		return nil, err
	}
	out := make([]Element, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = prefix[i].Mul(accInv)
		accInv = accInv.Mul(in[i])
	}
	return out, nil
}
