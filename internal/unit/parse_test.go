package unit_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"bbgraph/internal/unit"
)

const maxListing = `
# max of two values
.body max
    x = a
    if x >= b goto done
    x = b
done:
    return x

.body dispatch
    switch k one two default other
one: r = 1
    goto out
two: r = 2
    goto out
other:
    r = 0
out:
    return r
`

func TestParse_Bodies(t *testing.T) {
	bodies, err := unit.Parse("max.bbl", []byte(maxListing))
	require.NoError(t, err)
	require.Len(t, bodies, 2)

	maxBody := bodies[0]
	require.Equal(t, "max", maxBody.Name)
	require.Equal(t, "max.bbl", maxBody.File)
	require.Len(t, maxBody.Units, 4)

	ops := make([]unit.Op, 0, len(maxBody.Units))
	for _, u := range maxBody.Units {
		ops = append(ops, u.Op)
	}
	require.Equal(t, []unit.Op{unit.OpStmt, unit.OpIf, unit.OpStmt, unit.OpReturn}, ops)
	require.Equal(t, []string{"done"}, maxBody.Units[1].Targets)
	require.Equal(t, []string{"done"}, maxBody.Units[3].Labels)
	require.Equal(t, uint32(5), maxBody.Units[1].Line)

	dispatch := bodies[1]
	require.Equal(t, []string{"one", "two", "other"}, dispatch.Units[0].Targets)
	require.Equal(t, "r = 1", dispatch.Units[1].Text)
	u, ok := dispatch.Label("out")
	require.True(t, ok)
	require.Equal(t, unit.OpReturn, u.Op)
}

func TestParse_DefaultBodyName(t *testing.T) {
	bodies, err := unit.Parse("dir/loop.bbl", []byte("top: x = x + 1\ngoto top\n"))
	require.NoError(t, err)
	require.Len(t, bodies, 1)
	require.Equal(t, "loop", bodies[0].Name)
	require.Equal(t, "top", bodies[0].Units[0].Name())
	require.Equal(t, "u1", bodies[0].Units[1].Name())
}

func TestParse_AssignmentIsNotALabel(t *testing.T) {
	bodies, err := unit.Parse("a.bbl", []byte("x := y\nreturn x\n"))
	require.NoError(t, err)
	require.Empty(t, bodies[0].Units[0].Labels)
	require.Equal(t, "x := y", bodies[0].Units[0].Text)
}

func TestParse_NormalizesLabels(t *testing.T) {
	// "é" spelled as e + combining acute in the jump, precomposed at the label.
	src := "goto cafe\u0301\ncaf\u00e9: return\n"
	bodies, err := unit.Parse("n.bbl", []byte(src))
	require.NoError(t, err)
	u, ok := bodies[0].Label("caf\u00e9")
	require.True(t, ok)
	require.Equal(t, 1, u.Index)
}

func TestParse_Traps(t *testing.T) {
	src := `
.body guarded
try: x = load p
    y = x + 1
end: return y
handler:
    throw e
.trap try end handler
.trap try - handler
`
	bodies, err := unit.Parse("t.bbl", []byte(src))
	require.NoError(t, err)
	b := bodies[0]
	require.Equal(t, []unit.Trap{
		{Begin: "try", End: "end", Handler: "handler"},
		{Begin: "try", End: "", Handler: "handler"},
	}, b.Traps)
	handlers := b.HandlerUnits()
	require.Len(t, handlers, 2)
	require.Equal(t, 3, handlers[0].Index)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{name: "undefined label", src: "goto nowhere\n", line: 1, msg: "undefined label"},
		{name: "falls off the end", src: "x = 1\n", line: 1, msg: "falls off the end"},
		{name: "duplicate label", src: "a: nop\na: return\n", line: 2, msg: "defined twice"},
		{name: "dangling label", src: "return\nlast:\n", line: 2, msg: "does not precede a unit"},
		{name: "bad if", src: "if x\nreturn\n", line: 1, msg: "if COND goto"},
		{name: "bad switch", src: "switch x a b\nreturn\n", line: 1, msg: "switch VALUE"},
		{name: "bad trap", src: ".trap a b\nreturn\n", line: 1, msg: ".trap takes"},
		{name: "unknown directive", src: ".frame 3\n", line: 1, msg: "unknown directive"},
		{name: "undefined trap handler", src: "a: return\n.trap a - h\n", line: 2, msg: "undefined handler label"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := unit.Parse("bad.bbl", []byte(tt.src))
			require.Error(t, err)
			var pe *unit.ParseError
			require.True(t, errors.As(err, &pe), "error %T is not a ParseError", err)
			require.Equal(t, tt.line, pe.Line)
			require.Contains(t, pe.Error(), tt.msg)
			require.Contains(t, pe.Error(), "bad.bbl:")
		})
	}
}
