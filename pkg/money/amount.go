// Package money provides exact, non-negative 256-bit amounts in the smallest
// currency unit. Arithmetic never wraps; overflow and underflow are reported.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

var (
	ErrOverflow  = errors.New("money: amount overflow")
	ErrUnderflow = errors.New("money: amount underflow")
	ErrDivZero   = errors.New("money: division by zero")
)

// WeiPerEther is 10^18.
const WeiPerEther uint64 = 1_000_000_000_000_000_000

// Amount is an immutable value. The zero value is zero.
type Amount struct {
	v uint256.Int
}

// Zero is the zero amount.
var Zero Amount

// FromUint64 wraps a machine integer.
func FromUint64(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// Ether returns n * 10^18 wei.
func Ether(n uint64) Amount {
	var a Amount
	a.v.Mul(uint256.NewInt(n), uint256.NewInt(WeiPerEther))
	return a
}

// Parse reads a base-10 integer string. Signs, whitespace, and fractional
// parts are rejected.
func Parse(s string) (Amount, error) {
	var a Amount
	if s == "" || strings.ContainsAny(s, "+- \t\n.") {
		return a, fmt.Errorf("money: invalid amount %q", s)
	}
	if err := a.v.SetFromDecimal(s); err != nil {
		return Amount{}, fmt.Errorf("money: invalid amount %q: %w", s, err)
	}
	return a, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) IsZero() bool { return a.v.IsZero() }

// Cmp returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

func (a Amount) Lt(b Amount) bool { return a.v.Lt(&b.v) }
func (a Amount) Gt(b Amount) bool { return a.v.Gt(&b.v) }

// Add returns a+b or ErrOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	var out Amount
	if _, overflow := out.v.AddOverflow(&a.v, &b.v); overflow {
		return Amount{}, ErrOverflow
	}
	return out, nil
}

// Sub returns a-b or ErrUnderflow.
func (a Amount) Sub(b Amount) (Amount, error) {
	var out Amount
	if _, underflow := out.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, ErrUnderflow
	}
	return out, nil
}

// MulUint64 returns a*n or ErrOverflow.
func (a Amount) MulUint64(n uint64) (Amount, error) {
	var out Amount
	if _, overflow := out.v.MulOverflow(&a.v, uint256.NewInt(n)); overflow {
		return Amount{}, ErrOverflow
	}
	return out, nil
}

// Split divides a into n equal parts. It returns the per-part share and the
// remainder, so share*n + remainder == a.
func (a Amount) Split(n uint64) (share, remainder Amount, err error) {
	if n == 0 {
		return Amount{}, Amount{}, ErrDivZero
	}
	share.v.DivMod(&a.v, uint256.NewInt(n), &remainder.v)
	return share, remainder, nil
}

// Uint64 reports the value and whether it fits in 64 bits.
func (a Amount) Uint64() (uint64, bool) {
	return a.v.Uint64(), a.v.IsUint64()
}

// String returns the base-10 form.
func (a Amount) String() string {
	return a.v.Dec()
}

// MarshalText encodes as a decimal string so JSON amounts never lose
// precision.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.v.Dec()), nil
}

func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Sum adds amounts, failing on the first overflow.
func Sum(amounts ...Amount) (Amount, error) {
	total := Zero
	for _, x := range amounts {
		var err error
		if total, err = total.Add(x); err != nil {
			return Amount{}, err
		}
	}
	return total, nil
}
