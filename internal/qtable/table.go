// Package qtable implements the square state-action value table used by the
// route trainer. Row s holds the learned value of moving from destination s to
// every destination a; storage is a flat row-major slice.
package qtable

import (
	"errors"
	"fmt"
	"math"

	json "github.com/goccy/go-json"
)

var (
	// ErrInvalidSize is returned when the requested table size is not positive
	ErrInvalidSize = errors.New("qtable: size must be > 0")

	// ErrNotSquare is returned when decoded rows do not form an N×N matrix
	ErrNotSquare = errors.New("qtable: matrix is not square")

	// ErrNaNInf is returned when a decoded value is not finite
	ErrNaNInf = errors.New("qtable: NaN or Inf encountered")
)

// Table is an N×N matrix of float64 values.
// At and Set panic on out-of-range indices like slice indexing does.
type Table struct {
	n    int
	data []float64
}

// New creates a zero-filled n×n table
func New(n int) (*Table, error) {
	if n <= 0 {
		return nil, ErrInvalidSize
	}
	return &Table{n: n, data: make([]float64, n*n)}, nil
}

// FromRows builds a table from nested rows, validating shape and values
func FromRows(rows [][]float64) (*Table, error) {
	n := len(rows)
	if n == 0 {
		return nil, ErrInvalidSize
	}
	t := &Table{n: n, data: make([]float64, 0, n*n)}
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrNotSquare, i, len(row), n)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: row %d", ErrNaNInf, i)
			}
		}
		t.data = append(t.data, row...)
	}
	return t, nil
}

// Size returns N
func (t *Table) Size() int {
	return t.n
}

// At returns Q[s,a]
func (t *Table) At(s, a int) float64 {
	return t.data[t.index(s, a)]
}

// Set assigns Q[s,a]
func (t *Table) Set(s, a int, v float64) {
	t.data[t.index(s, a)] = v
}

func (t *Table) index(s, a int) int {
	if s < 0 || s >= t.n || a < 0 || a >= t.n {
		panic(fmt.Sprintf("qtable: index (%d,%d) out of range for size %d", s, a, t.n))
	}
	return s*t.n + a
}

// row returns the backing slice of row s
func (t *Table) row(s int) []float64 {
	start := t.index(s, 0)
	return t.data[start : start+t.n]
}

// MaxValue returns max over a of Q[s,a]
func (t *Table) MaxValue(s int) float64 {
	return t.At(s, t.ArgMax(s))
}

// ArgMax returns the action with the highest value in row s.
// Ties resolve to the lowest index.
func (t *Table) ArgMax(s int) int {
	row := t.row(s)
	best := 0
	for a := 1; a < len(row); a++ {
		if row[a] > row[best] {
			best = a
		}
	}
	return best
}

// ArgMaxOf returns the candidate with the highest value in row s, or -1 when
// candidates is empty. Ties resolve to the earliest candidate.
func (t *Table) ArgMaxOf(s int, candidates []int) int {
	if len(candidates) == 0 {
		return -1
	}
	best := candidates[0]
	bestValue := t.At(s, best)
	for _, a := range candidates[1:] {
		if v := t.At(s, a); v > bestValue {
			best, bestValue = a, v
		}
	}
	return best
}

// Update applies the Q-learning rule to (s,a) and returns the new value:
//
//	Q[s,a] += alpha * (reward + gamma * max_a' Q[a,a'] - Q[s,a])
//
// The successor state is the chosen action.
func (t *Table) Update(s, a int, reward, alpha, gamma float64) float64 {
	current := t.At(s, a)
	next := current + alpha*(reward+gamma*t.MaxValue(a)-current)
	t.Set(s, a, next)
	return next
}

// IsZero reports whether every entry is zero
func (t *Table) IsZero() bool {
	for _, v := range t.data {
		if v != 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy
func (t *Table) Clone() *Table {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Table{n: t.n, data: data}
}

// Rows returns the table as freshly allocated nested rows
func (t *Table) Rows() [][]float64 {
	rows := make([][]float64, t.n)
	for s := range rows {
		rows[s] = append([]float64(nil), t.row(s)...)
	}
	return rows
}

// Equal reports whether both tables have the same size and all entries
// differ by at most tol
func (t *Table) Equal(other *Table, tol float64) bool {
	if other == nil || t.n != other.n {
		return false
	}
	for i, v := range t.data {
		if math.Abs(v-other.data[i]) > tol {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the table as nested rows, e.g. [[0,1],[2,3]]
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Rows())
}

// UnmarshalJSON decodes nested rows produced by MarshalJSON
func (t *Table) UnmarshalJSON(b []byte) error {
	var rows [][]float64
	if err := json.Unmarshal(b, &rows); err != nil {
		return fmt.Errorf("qtable: failed to decode rows: %w", err)
	}
	decoded, err := FromRows(rows)
	if err != nil {
		return err
	}
	*t = *decoded
	return nil
}
