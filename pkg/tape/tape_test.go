package tape_test

import (
	"strings"
	"testing"

	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/tape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTape_RoundTrip(t *testing.T) {
	for _, s := range []string{"", "a", "ab", "aab_b", "1011", "héllo"} {
		tp := tape.New(s)
		assert.Equal(t, s, tp.String(), "round trip of %q", s)
		assert.Equal(t, 0, tp.Head())
	}
}

func TestTape_EmptyIsSingleBlank(t *testing.T) {
	tp := tape.New("")
	require.Equal(t, 1, tp.Len())
	assert.Equal(t, domain.Blank, tp.Read())
	_, ok := tp.FirstNonBlank()
	assert.False(t, ok)
}

func TestTape_MoveLeftPrepends(t *testing.T) {
	tp := tape.New("ab")
	head := tp.MoveLeft()
	assert.Equal(t, 0, head)
	assert.Equal(t, 3, tp.Len())
	assert.Equal(t, domain.Blank, tp.Read())
	assert.Equal(t, "ab", tp.String())

	tp.MoveRight()
	assert.Equal(t, "a", tp.Read())
}

func TestTape_MoveRightAppends(t *testing.T) {
	tp := tape.New("a")
	head := tp.MoveRight()
	assert.Equal(t, 1, head)
	assert.Equal(t, 2, tp.Len())
	assert.Equal(t, domain.Blank, tp.Read())

	// Inside the materialized range nothing grows.
	tp.MoveLeft()
	tp.MoveRight()
	assert.Equal(t, 2, tp.Len())
}

func TestTape_ReadOutsideDoesNotMutate(t *testing.T) {
	tp := tape.New("abc")
	assert.Equal(t, domain.Blank, tp.At(-5))
	assert.Equal(t, domain.Blank, tp.At(10))
	assert.Equal(t, 3, tp.Len())
}

func TestTape_Window(t *testing.T) {
	tp := tape.New("abc")

	tests := []struct {
		name  string
		from  int
		count int
		want  string
	}{
		{"fully inside", 0, 3, "abc"},
		{"inner slice", 1, 1, "b"},
		{"left overhang", -2, 4, "__ab"},
		{"right overhang", 2, 3, "c__"},
		{"both sides", -1, 5, "_abc_"},
		{"fully left", -10, 3, "___"},
		{"fully right", 7, 2, "__"},
		{"zero count", 0, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tp.Window(tt.from, tt.count)
			if len(got) != tt.count {
				t.Fatalf("expected %d symbols, got %d", tt.count, len(got))
			}
			if s := strings.Join(got, ""); s != tt.want {
				t.Errorf("Window(%d,%d) = %q, want %q", tt.from, tt.count, s, tt.want)
			}
		})
	}
	assert.Equal(t, 3, tp.Len())
}

func TestTape_StringSkipsLeadingBlanks(t *testing.T) {
	tp := tape.New("__ab")
	assert.Equal(t, "ab", tp.String())

	first, ok := tp.FirstNonBlank()
	require.True(t, ok)
	assert.Equal(t, 2, first)

	tp.Set("___")
	assert.Equal(t, "", tp.String())
}

func TestTape_ResetHead(t *testing.T) {
	tp := tape.New("__ab")
	assert.Equal(t, 2, tp.ResetHead())
	assert.Equal(t, "a", tp.Read())

	tp.Set("")
	assert.Equal(t, 0, tp.ResetHead())
}

func TestTape_WriteAndMove(t *testing.T) {
	tp := tape.New("a")
	tp.Write("b")
	tp.Move(domain.Right)
	assert.Equal(t, "b_", tp.String())
	assert.Equal(t, 1, tp.Head())

	tp.Move(domain.Direction("N"))
	assert.Equal(t, 1, tp.Head())
}

func TestTape_CustomBlank(t *testing.T) {
	tp := tape.NewWithBlank("", "#")
	assert.Equal(t, "#", tp.Read())
	assert.Equal(t, []string{"#", "#"}, tp.Window(5, 2))
}
