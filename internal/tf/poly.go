package tf

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Poly is a polynomial with coefficients in descending power:
// Poly{a, b, c} is a·s² + b·s + c.
type Poly []float64

// Degree returns the degree after trimming leading zeros; the zero
// polynomial has degree -1.
func (p Poly) Degree() int {
	return len(p.Trim()) - 1
}

// IsZero reports whether every coefficient is exactly zero.
func (p Poly) IsZero() bool {
	for _, c := range p {
		if c != 0 {
			return false
		}
	}
	return true
}

// Trim drops leading zero coefficients. The zero polynomial trims to an
// empty Poly.
func (p Poly) Trim() Poly {
	i := 0
	for i < len(p) && p[i] == 0 {
		i++
	}
	out := make(Poly, len(p)-i)
	copy(out, p[i:])
	return out
}

// Mul returns the polynomial product (coefficient convolution).
func (p Poly) Mul(q Poly) Poly {
	if len(p) == 0 || len(q) == 0 {
		return Poly{}
	}
	out := make(Poly, len(p)+len(q)-1)
	for i, a := range p {
		for j, b := range q {
			out[i+j] += a * b
		}
	}
	return out
}

// Add returns p + q, aligning coefficients at the constant term.
func (p Poly) Add(q Poly) Poly {
	n := len(p)
	if len(q) > n {
		n = len(q)
	}
	out := make(Poly, n)
	for i := range p {
		out[n-len(p)+i] += p[i]
	}
	for i := range q {
		out[n-len(q)+i] += q[i]
	}
	return out
}

// Scale multiplies every coefficient by c.
func (p Poly) Scale(c float64) Poly {
	out := make(Poly, len(p))
	for i, a := range p {
		out[i] = a * c
	}
	return out
}

// Eval evaluates p at a complex point using Horner's scheme.
func (p Poly) Eval(s complex128) complex128 {
	var acc complex128
	for _, c := range p {
		acc = acc*s + complex(c, 0)
	}
	return acc
}

// Roots returns the roots of p as the eigenvalues of its companion matrix.
func (p Poly) Roots() ([]complex128, error) {
	t := p.Trim()
	n := len(t) - 1
	if n < 0 {
		return nil, fmt.Errorf("tf: roots of the zero polynomial are undefined")
	}
	if n == 0 {
		return []complex128{}, nil
	}
	if n == 1 {
		return []complex128{complex(-t[1]/t[0], 0)}, nil
	}

	comp := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		comp.Set(0, j, -t[j+1]/t[0])
	}
	for i := 1; i < n; i++ {
		comp.Set(i, i-1, 1)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(comp, mat.EigenNone); !ok {
		return nil, fmt.Errorf("tf: eigen decomposition of companion matrix failed")
	}
	roots := eig.Values(nil)
	for i, r := range roots {
		// Clean numerical noise on real roots.
		if math.Abs(imag(r)) < 1e-12*math.Max(1, cmplx.Abs(r)) {
			roots[i] = complex(real(r), 0)
		}
	}
	return roots, nil
}

func (p Poly) String() string {
	t := p.Trim()
	if len(t) == 0 {
		return "0"
	}
	var terms []string
	n := len(t) - 1
	for i, c := range t {
		if c == 0 {
			continue
		}
		pow := n - i
		var term string
		switch pow {
		case 0:
			term = fmt.Sprintf("%g", c)
		case 1:
			term = fmt.Sprintf("%gs", c)
		default:
			term = fmt.Sprintf("%gs^%d", c, pow)
		}
		terms = append(terms, term)
	}
	return strings.ReplaceAll(strings.Join(terms, " + "), "+ -", "- ")
}
