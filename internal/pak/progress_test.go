package pak

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_ClampsAndDeduplicates(t *testing.T) {
	var got []int
	p := newProgress(func(v int) { got = append(got, v) })

	for _, v := range []int{-5, 0, 10, 10, 7, 50, 140, 100} {
		p.set(v)
	}
	assert.Equal(t, []int{0, 10, 50, 100}, got)
}

func TestProgress_Span(t *testing.T) {
	var got []int
	p := newProgress(func(v int) { got = append(got, v) })

	for i := 1; i <= 4; i++ {
		p.span(50, 90, i, 4)
	}
	p.span(90, 100, 0, 0)
	assert.Equal(t, []int{60, 70, 80, 90, 100}, got)
}
