package domain

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Time is an exact rational point on the timeline, in seconds.
// Normalized values (Den > 0, reduced) are comparable and safe as map keys;
// the zero Time is treated as 0/1.
type Time struct {
	Num int64 `json:"num" yaml:"num"`
	Den int64 `json:"den" yaml:"den"`
}

// NewTime returns num/den seconds, normalized. A zero denominator yields 0.
func NewTime(num, den int64) Time {
	return Time{Num: num, Den: den}.Normalize()
}

// maxSeconds bounds Seconds so f*1e6 fits in an int64 numerator.
const maxSeconds = 9e12

// ErrTimeOutOfRange is returned when a time cannot be represented as an int64 fraction.
var ErrTimeOutOfRange = errors.New("time out of range")

// Seconds approximates f as a rational with microsecond precision.
func Seconds(f float64) (Time, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Time{}, fmt.Errorf("invalid time %v: %w", f, ErrTimeOutOfRange)
	}
	if math.Abs(f) > maxSeconds {
		return Time{}, fmt.Errorf("time %g seconds: %w", f, ErrTimeOutOfRange)
	}
	r := new(big.Rat)
	r.SetFloat64(f)
	if r.Denom().IsInt64() && r.Num().IsInt64() && r.Denom().Int64() <= 1_000_000 {
		return NewTime(r.Num().Int64(), r.Denom().Int64()), nil
	}
	return NewTime(int64(math.Round(f*1e6)), 1_000_000), nil
}

// ParseTime accepts "num/den", decimal seconds ("2.5") or integers ("3").
func ParseTime(s string) (Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Time{}, fmt.Errorf("empty time")
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
		if err != nil {
			return Time{}, fmt.Errorf("invalid time numerator %q: %w", num, err)
		}
		d, err := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
		if err != nil {
			return Time{}, fmt.Errorf("invalid time denominator %q: %w", den, err)
		}
		if d == 0 {
			return Time{}, fmt.Errorf("invalid time %q: zero denominator", s)
		}
		if n == math.MinInt64 || d == math.MinInt64 {
			return Time{}, fmt.Errorf("invalid time %q: %w", s, ErrTimeOutOfRange)
		}
		return NewTime(n, d), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Time{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return Seconds(f)
}

// Normalize reduces the fraction and forces a positive denominator.
func (t Time) Normalize() Time {
	if t.Den == 0 || t.Num == 0 {
		return Time{Num: 0, Den: 1}
	}
	if t.Num == math.MinInt64 || t.Den == math.MinInt64 {
		return fromRat(big.NewRat(t.Num, t.Den))
	}
	if t.Den < 0 {
		t.Num, t.Den = -t.Num, -t.Den
	}
	g := gcd(abs(t.Num), t.Den)
	return Time{Num: t.Num / g, Den: t.Den / g}
}

func (t Time) rat() *big.Rat {
	n := t.Normalize()
	return big.NewRat(n.Num, n.Den)
}

// fromRat converts r, saturating magnitudes that do not fit an int64 fraction.
func fromRat(r *big.Rat) Time {
	if r.Num().IsInt64() && r.Denom().IsInt64() && r.Num().Int64() != math.MinInt64 {
		return Time{Num: r.Num().Int64(), Den: r.Denom().Int64()}
	}
	f, _ := r.Float64()
	if t, err := Seconds(f); err == nil {
		return t
	}
	if f < 0 {
		return Time{Num: -math.MaxInt64, Den: 1}
	}
	return Time{Num: math.MaxInt64, Den: 1}
}

// Seconds returns t as a float64.
func (t Time) Seconds() float64 {
	n := t.Normalize()
	return float64(n.Num) / float64(n.Den)
}

// Add returns t+u.
func (t Time) Add(u Time) Time { return fromRat(new(big.Rat).Add(t.rat(), u.rat())) }

// Sub returns t-u.
func (t Time) Sub(u Time) Time { return fromRat(new(big.Rat).Sub(t.rat(), u.rat())) }

// Mul returns t scaled by u.
func (t Time) Mul(u Time) Time { return fromRat(new(big.Rat).Mul(t.rat(), u.rat())) }

// Cmp returns -1, 0 or +1.
func (t Time) Cmp(u Time) int { return t.rat().Cmp(u.rat()) }

// Before reports t < u.
func (t Time) Before(u Time) bool { return t.Cmp(u) < 0 }

// Ratio returns (t-a)/(b-a) as a float64, or 0 when a == b.
func Ratio(t, a, b Time) float64 {
	span := b.Sub(a)
	if span.Num == 0 {
		return 0
	}
	f, _ := new(big.Rat).Quo(t.Sub(a).rat(), span.rat()).Float64()
	return f
}

func (t Time) String() string {
	n := t.Normalize()
	if n.Den == 1 {
		return strconv.FormatInt(n.Num, 10)
	}
	return fmt.Sprintf("%d/%d", n.Num, n.Den)
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func abs(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}
