package unit

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

// ParseError reports a malformed listing line.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// ParseFile reads a listing from disk.
func ParseFile(path string) ([]*Body, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing: %w", err)
	}
	return Parse(path, src)
}

// Parse reads every body of a listing. Syntax, one unit per line:
//
//	.body NAME                 start a new body
//	.trap BEGIN END HANDLER    END may be "-" for the end of the body
//	LABEL:                     label the next unit (may share its line)
//	goto L
//	if COND goto L
//	switch V L1 L2 ... default LD
//	return [V] | throw V | nop
//	anything else              plain statement
//
// '#' starts a comment. Labels are compared after NFC normalization.
func Parse(file string, src []byte) ([]*Body, error) {
	p := &parser{file: file}
	sc := bufio.NewScanner(bytes.NewReader(src))
	for sc.Scan() {
		p.line++
		if err := p.parseLine(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if err := p.flush(); err != nil {
		return nil, err
	}
	return p.bodies, nil
}

type parser struct {
	file   string
	line   int
	bodies []*Body

	name    string
	started bool
	units   []*Unit
	traps   []Trap
	pending []string
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{File: p.file, Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseLine(raw string) error {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, ".") {
		return p.directive(strings.Fields(text))
	}

	for {
		label, rest, ok := splitLabel(text)
		if !ok {
			break
		}
		p.pending = append(p.pending, label)
		text = rest
	}
	if text == "" {
		return nil
	}
	return p.instr(text)
}

func (p *parser) directive(fields []string) error {
	switch fields[0] {
	case ".body":
		if len(fields) != 2 {
			return p.errorf(".body takes exactly one name")
		}
		if err := p.flush(); err != nil {
			return err
		}
		p.name = fields[1]
		p.started = true
		return nil
	case ".trap":
		if len(fields) != 4 {
			return p.errorf(".trap takes BEGIN END HANDLER")
		}
		end := label(fields[2])
		if fields[2] == "-" {
			end = ""
		}
		p.traps = append(p.traps, Trap{Begin: label(fields[1]), End: end, Handler: label(fields[3])})
		return nil
	default:
		return p.errorf("unknown directive %s", fields[0])
	}
}

func (p *parser) instr(text string) error {
	line, err := safecast.Conv[uint32](p.line)
	if err != nil {
		return p.errorf("line number overflow: %v", err)
	}
	u := &Unit{Line: line, Labels: p.pending, Text: text}
	p.pending = nil

	fields := strings.Fields(text)
	switch fields[0] {
	case "goto":
		if len(fields) != 2 {
			return p.errorf("goto takes one label")
		}
		u.Op = OpGoto
		u.Targets = []string{label(fields[1])}
	case "if":
		n := len(fields)
		if n < 4 || fields[n-2] != "goto" {
			return p.errorf("expected: if COND goto LABEL")
		}
		u.Op = OpIf
		u.Targets = []string{label(fields[n-1])}
	case "switch":
		targets, err := p.switchTargets(fields)
		if err != nil {
			return err
		}
		u.Op = OpSwitch
		u.Targets = targets
	case "return":
		u.Op = OpReturn
	case "throw":
		if len(fields) != 2 {
			return p.errorf("throw takes one operand")
		}
		u.Op = OpThrow
	case "nop":
		u.Op = OpNop
	default:
		u.Op = OpStmt
	}
	p.units = append(p.units, u)
	return nil
}

func (p *parser) switchTargets(fields []string) ([]string, error) {
	// switch V L1 ... default LD
	n := len(fields)
	if n < 4 || fields[n-2] != "default" {
		return nil, p.errorf("expected: switch VALUE LABEL... default LABEL")
	}
	targets := make([]string, 0, n-3)
	for _, f := range fields[2 : n-2] {
		targets = append(targets, label(f))
	}
	return append(targets, label(fields[n-1])), nil
}

// flush closes the body in progress.
func (p *parser) flush() error {
	if !p.started && len(p.units) == 0 && len(p.traps) == 0 && len(p.pending) == 0 {
		return nil
	}
	if len(p.pending) > 0 {
		return p.errorf("label %q does not precede a unit", p.pending[0])
	}
	name := p.name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(p.file), filepath.Ext(p.file))
	}
	b, err := NewBody(name, p.units, p.traps)
	if err != nil {
		return p.errorf("body %s: %v", name, err)
	}
	b.File = p.file
	p.bodies = append(p.bodies, b)

	p.name, p.started = "", false
	p.units, p.traps = nil, nil
	return nil
}

// splitLabel cuts a leading "name:" off text.
func splitLabel(text string) (string, string, bool) {
	i := strings.IndexByte(text, ':')
	if i <= 0 || (i+1 < len(text) && text[i+1] == '=') {
		return "", "", false
	}
	name := text[:i]
	for j, r := range name {
		if !(r == '_' || r == '.' || r == '$' || unicode.IsLetter(r) || (j > 0 && unicode.IsDigit(r))) {
			return "", "", false
		}
	}
	return label(name), strings.TrimSpace(text[i+1:]), true
}

func label(s string) string {
	return norm.NFC.String(s)
}
