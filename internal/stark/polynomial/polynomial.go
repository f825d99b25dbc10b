// Package polynomial implements dense polynomials over the STARK field,
// together with the FFT/IFFT engine used for interpolation and low-degree
// extension.
package polynomial

import (
	"fmt"

	"github.com/vybium/vybium-stark/internal/stark/field"
)

// Polynomial is a dense polynomial c_0 + c_1*X + ... + c_d*X^d.
type Polynomial struct {
	coefficients []field.Element
}

// New builds a polynomial from coefficients in ascending-degree order,
// trimming trailing (high-degree) zero coefficients.
func New(coefficients []field.Element) *Polynomial {
	d := len(coefficients)
	for d > 0 && coefficients[d-1].IsZero() {
		d--
	}
	out := make([]field.Element, d)
	copy(out, coefficients[:d])
	return &Polynomial{coefficients: out}
}

// Zero returns the zero polynomial.
func Zero() *Polynomial { return &Polynomial{} }

// Degree returns the polynomial's degree; the zero polynomial has degree -1.
func (p *Polynomial) Degree() int { return len(p.coefficients) - 1 }

// Coefficients returns the coefficient slice in ascending-degree order.
// Callers must not mutate the returned slice.
func (p *Polynomial) Coefficients() []field.Element { return p.coefficients }

// Coefficient returns the i-th coefficient, or zero if i exceeds the degree.
func (p *Polynomial) Coefficient(i int) field.Element {
	if i < 0 || i >= len(p.coefficients) {
		return field.Zero()
	}
	return p.coefficients[i]
}

// Clone returns a deep copy.
func (p *Polynomial) Clone() *Polynomial {
	out := make([]field.Element, len(p.coefficients))
	copy(out, p.coefficients)
	return &Polynomial{coefficients: out}
}

// Eval evaluates the polynomial at x via Horner's method.
func (p *Polynomial) Eval(x field.Element) field.Element {
	result := field.Zero()
	for i := len(p.coefficients) - 1; i >= 0; i-- {
		result = result.Mul(x).Add(p.coefficients[i])
	}
	return result
}

// EvalMany evaluates the polynomial at every point in xs.
func (p *Polynomial) EvalMany(xs []field.Element) []field.Element {
	out := make([]field.Element, len(xs))
	for i, x := range xs {
		out[i] = p.Eval(x)
	}
	return out
}

// Add returns p + other.
func (p *Polynomial) Add(other *Polynomial) *Polynomial {
	n := len(p.coefficients)
	if len(other.coefficients) > n {
		n = len(other.coefficients)
	}
	out := make([]field.Element, n)
	for i := 0; i < n; i++ {
		out[i] = p.Coefficient(i).Add(other.Coefficient(i))
	}
	return New(out)
}

// Sub returns p - other.
func (p *Polynomial) Sub(other *Polynomial) *Polynomial {
	n := len(p.coefficients)
	if len(other.coefficients) > n {
		n = len(other.coefficients)
	}
	out := make([]field.Element, n)
	for i := 0; i < n; i++ {
		out[i] = p.Coefficient(i).Sub(other.Coefficient(i))
	}
	return New(out)
}

// Neg returns -p.
func (p *Polynomial) Neg() *Polynomial {
	out := make([]field.Element, len(p.coefficients))
	for i, c := range p.coefficients {
		out[i] = c.Neg()
	}
	return New(out)
}

// Scale returns p scaled by a constant factor.
func (p *Polynomial) Scale(factor field.Element) *Polynomial {
	out := make([]field.Element, len(p.coefficients))
	for i, c := range p.coefficients {
		out[i] = c.Mul(factor)
	}
	return New(out)
}

// Mul returns the convolution product p * other.
func (p *Polynomial) Mul(other *Polynomial) *Polynomial {
	if len(p.coefficients) == 0 || len(other.coefficients) == 0 {
		return Zero()
	}
	out := make([]field.Element, len(p.coefficients)+len(other.coefficients)-1)
	for i := range out {
		out[i] = field.Zero()
	}
	for i, a := range p.coefficients {
		if a.IsZero() {
			continue
		}
		for j, b := range other.coefficients {
			out[i+j] = out[i+j].Add(a.Mul(b))
		}
	}
	return New(out)
}

// Div performs polynomial long division, returning quotient and remainder.
func (p *Polynomial) Div(divisor *Polynomial) (quotient, remainder *Polynomial, err error) {
	if divisor.Degree() < 0 {
		return nil, nil, fmt.Errorf("polynomial: division by zero polynomial")
	}
	remCoeffs := make([]field.Element, len(p.coefficients))
	copy(remCoeffs, p.coefficients)
	rem := New(remCoeffs)

	divDeg := divisor.Degree()
	leadInv, err := divisor.Coefficient(divDeg).Inv()
	if err != nil {
		return nil, nil, fmt.Errorf("polynomial: leading coefficient is not invertible: %w", err)
	}

	quotDeg := rem.Degree() - divDeg
	if quotDeg < 0 {
		return Zero(), rem, nil
	}
	quotCoeffs := make([]field.Element, quotDeg+1)
	for rem.Degree() >= divDeg && rem.Degree() >= 0 {
		shift := rem.Degree() - divDeg
		coeff := rem.Coefficient(rem.Degree()).Mul(leadInv)
		quotCoeffs[shift] = coeff

		sub := make([]field.Element, shift+divDeg+1)
		for i := 0; i <= divDeg; i++ {
			sub[i+shift] = divisor.Coefficient(i).Mul(coeff)
		}
		rem = rem.Sub(New(sub))
	}
	return New(quotCoeffs), rem, nil
}

// Interpolate builds the unique polynomial of degree < len(points) passing
// through the given (x, y) pairs, using Lagrange interpolation. For the
// roots-of-unity case used throughout the proof engine, prefer IFFT
// (fft.go), which is asymptotically faster.
func Interpolate(xs, ys []field.Element) (*Polynomial, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("polynomial: mismatched point counts")
	}
	result := Zero()
	for i := range xs {
		denomTerms := make([]field.Element, 0, len(xs)-1)
		numerator := New([]field.Element{field.One()})
		for j := range xs {
			if i == j {
				continue
			}
			numerator = numerator.Mul(New([]field.Element{xs[j].Neg(), field.One()}))
			denomTerms = append(denomTerms, xs[i].Sub(xs[j]))
		}
		denom := field.One()
		for _, t := range denomTerms {
			denom = denom.Mul(t)
		}
		denomInv, err := denom.Inv()
		if err != nil {
			return nil, fmt.Errorf("polynomial: duplicate interpolation point: %w", err)
		}
		term := numerator.Scale(ys[i].Mul(denomInv))
		result = result.Add(term)
	}
	return result, nil
}

func (p *Polynomial) String() string {
	return fmt.Sprintf("Polynomial(degree=%d)", p.Degree())
}
