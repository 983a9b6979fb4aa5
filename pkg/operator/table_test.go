package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTablePreloadsBuiltins(t *testing.T) {
	tbl := New()

	cases := []struct {
		c    byte
		prec int
	}{
		{'=', 2},
		{'<', 10},
		{'+', 20},
		{'-', 20},
		{'*', 40},
	}

	for _, c := range cases {
		prec, ok := tbl.Precedence(c.c)
		assert.True(t, ok)
		assert.Equal(t, c.prec, prec)
	}
}

func TestUndefinedOperatorLookupFails(t *testing.T) {
	tbl := New()
	_, ok := tbl.Precedence(':')
	assert.False(t, ok)
	assert.False(t, tbl.IsDefined(':'))
}

func TestDefineAndRemoveRoundTrip(t *testing.T) {
	tbl := New()

	tbl.Define(':', 1)
	prec, ok := tbl.Precedence(':')
	assert.True(t, ok)
	assert.Equal(t, 1, prec)

	tbl.Remove(':')
	assert.False(t, tbl.IsDefined(':'))
}
