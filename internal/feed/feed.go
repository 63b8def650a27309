// Package feed reads orders from a line oriented text stream:
//
//	# side price quantity [owner]
//	buy  10.50 3 alice
//	sell 10.25 1
//
// Blank lines and lines starting with # are skipped. Orders without an owner get
// a random identity.
package feed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"matchbook/internal/common"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidOrder  = errors.New("invalid order")
	ErrMalformedLine = errors.New("malformed order line")
)

type Reader struct {
	scanner *bufio.Scanner
	line    int
}

func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next order, or io.EOF once the stream is exhausted. Errors for
// lines that do not hold a valid order wrap ErrInvalidOrder, and reading may
// continue past them.
func (r *Reader) Next() (common.Order, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		order, err := ParseOrder(text)
		if err != nil {
			return common.Order{}, fmt.Errorf("line %d: %w: %w", r.line, ErrInvalidOrder, err)
		}
		return order, nil
	}
	if err := r.scanner.Err(); err != nil {
		return common.Order{}, err
	}
	return common.Order{}, io.EOF
}

// ParseOrder parses a single "side price quantity [owner]" line.
func ParseOrder(text string) (common.Order, error) {
	fields := strings.Fields(text)
	if len(fields) < 3 || len(fields) > 4 {
		return common.Order{}, fmt.Errorf("%w: want 3 or 4 fields, got %d", ErrMalformedLine, len(fields))
	}

	side, err := common.ParseSide(fields[0])
	if err != nil {
		return common.Order{}, err
	}
	price, err := decimal.NewFromString(fields[1])
	if err != nil {
		return common.Order{}, fmt.Errorf("%w: price %q", ErrMalformedLine, fields[1])
	}
	quantity, err := decimal.NewFromString(fields[2])
	if err != nil {
		return common.Order{}, fmt.Errorf("%w: quantity %q", ErrMalformedLine, fields[2])
	}

	owner := common.NewRandomIdentity()
	if len(fields) == 4 {
		if owner, err = common.NewIdentity(fields[3]); err != nil {
			return common.Order{}, err
		}
	}

	return common.NewOrder(side, price, quantity, owner)
}
