package extract

import (
	"io"
	"strconv"
	"strings"
)

// tjSpaceThreshold is the TJ kerning offset (thousandths of an em) treated as a word gap.
const tjSpaceThreshold = -200

type operandKind int

const (
	opOther operandKind = iota
	opString
	opNumber
	opArray
)

type operand struct {
	kind operandKind
	str  string
	num  float64
	arr  []operand
}

// contentText collects the text shown by Tj, TJ, ' and " in a page content
// stream. Text objects and line moves become line breaks.
func contentText(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	var (
		out    textWriter
		stack  []operand
		arrays [][]operand
	)

	push := func(o operand) {
		if n := len(arrays); n > 0 {
			arrays[n-1] = append(arrays[n-1], o)
			return
		}
		stack = append(stack, o)
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isSpace(c):
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '(':
			s, next := readLiteral(data, i+1)
			push(operand{kind: opString, str: s})
			i = next
		case c == '<' && i+1 < len(data) && data[i+1] == '<':
			i += 2
		case c == '>' && i+1 < len(data) && data[i+1] == '>':
			i += 2
		case c == '<':
			s, next := readHex(data, i+1)
			push(operand{kind: opString, str: s})
			i = next
		case c == '[':
			arrays = append(arrays, nil)
			i++
		case c == ']':
			if n := len(arrays); n > 0 {
				arr := arrays[n-1]
				arrays = arrays[:n-1]
				push(operand{kind: opArray, arr: arr})
			}
			i++
		case c == '{' || c == '}' || c == ')' || c == '>':
			i++
		case c == '/':
			j := i + 1
			for j < len(data) && !isSpace(data[j]) && !isDelimiter(data[j]) {
				j++
			}
			push(operand{kind: opOther})
			i = j
		default:
			j := i
			for j < len(data) && !isSpace(data[j]) && !isDelimiter(data[j]) {
				j++
			}
			if j == i {
				j++
			}
			tok := string(data[i:j])
			i = j

			if f, err := strconv.ParseFloat(tok, 64); err == nil {
				push(operand{kind: opNumber, num: f})
				continue
			}
			if len(arrays) > 0 {
				push(operand{kind: opOther})
				continue
			}

			if tok == "BI" {
				i = skipInlineImage(data, i)
			} else {
				applyOperator(&out, tok, stack)
			}
			stack = stack[:0]
		}
	}

	return out.String(), nil
}

func applyOperator(out *textWriter, op string, operands []operand) {
	last := func(kind operandKind) (operand, bool) {
		if len(operands) == 0 || operands[len(operands)-1].kind != kind {
			return operand{}, false
		}
		return operands[len(operands)-1], true
	}

	switch op {
	case "Tj":
		if o, ok := last(opString); ok {
			out.text(o.str)
		}
	case "'", "\"":
		out.newline()
		out.knownY = false
		if o, ok := last(opString); ok {
			out.text(o.str)
		}
	case "TJ":
		o, ok := last(opArray)
		if !ok {
			return
		}
		for _, el := range o.arr {
			switch el.kind {
			case opString:
				out.text(el.str)
			case opNumber:
				if el.num <= tjSpaceThreshold {
					out.space()
				}
			}
		}
	case "BT":
		out.lineY, out.knownY = 0, true
	case "T*", "ET":
		out.newline()
		out.knownY = false
	case "Td", "TD":
		if len(operands) >= 2 && operands[len(operands)-1].kind == opNumber && operands[len(operands)-1].num != 0 {
			out.newline()
			out.lineY += operands[len(operands)-1].num
		} else {
			out.space()
		}
	case "Tm":
		if len(operands) < 6 || operands[len(operands)-1].kind != opNumber {
			return
		}
		y := operands[len(operands)-1].num
		if out.knownY && y == out.lineY {
			out.space()
		} else {
			out.newline()
		}
		out.lineY, out.knownY = y, true
	}
}

// readLiteral decodes a (...) string starting just after the opening paren.
func readLiteral(data []byte, i int) (string, int) {
	var b []byte
	depth := 1
	for i < len(data) {
		c := data[i]
		switch c {
		case '\\':
			i++
			if i >= len(data) {
				return string(b), i
			}
			e := data[i]
			switch e {
			case 'n':
				b = append(b, '\n')
			case 'r':
				b = append(b, '\r')
			case 't':
				b = append(b, '\t')
			case 'b':
				b = append(b, '\b')
			case 'f':
				b = append(b, '\f')
			case '\r':
				if i+1 < len(data) && data[i+1] == '\n' {
					i++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := 0
					n := 0
					for n < 3 && i < len(data) && data[i] >= '0' && data[i] <= '7' {
						v = v*8 + int(data[i]-'0')
						i++
						n++
					}
					b = append(b, byte(v))
					continue
				}
				b = append(b, e)
			}
			i++
		case '(':
			depth++
			b = append(b, c)
			i++
		case ')':
			depth--
			i++
			if depth == 0 {
				return string(b), i
			}
			b = append(b, c)
		default:
			b = append(b, c)
			i++
		}
	}
	return string(b), i
}

// readHex decodes a <...> string starting just after the opening bracket.
func readHex(data []byte, i int) (string, int) {
	var digits []byte
	for i < len(data) && data[i] != '>' {
		if isHexDigit(data[i]) {
			digits = append(digits, data[i])
		}
		i++
	}
	if i < len(data) {
		i++
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}

	b := make([]byte, 0, len(digits)/2)
	for j := 0; j < len(digits); j += 2 {
		v, _ := strconv.ParseUint(string(digits[j:j+2]), 16, 8)
		b = append(b, byte(v))
	}
	return string(b), i
}

// skipInlineImage moves past an inline image's binary data to just after EI.
func skipInlineImage(data []byte, i int) int {
	for i+2 < len(data) {
		if isSpace(data[i]) && data[i+1] == 'E' && data[i+2] == 'I' &&
			(i+3 == len(data) || isSpace(data[i+3]) || isDelimiter(data[i+3])) {
			return i + 3
		}
		i++
	}
	return len(data)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// textWriter accumulates shown text, collapsing repeated breaks. lineY is the
// baseline of the current line when knownY is set.
type textWriter struct {
	b      strings.Builder
	lineY  float64
	knownY bool
}

// text writes single-byte encoded glyph codes, mapping the Latin-1 range and
// dropping control codes.
func (w *textWriter) text(s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 0x20 && c < 0x7f:
			w.b.WriteByte(c)
		case c >= 0xa0:
			w.b.WriteRune(rune(c))
		case c == '\t':
			w.b.WriteByte(' ')
		}
	}
}

func (w *textWriter) space() {
	if w.b.Len() == 0 {
		return
	}
	s := w.b.String()
	if last := s[len(s)-1]; last != ' ' && last != '\n' {
		w.b.WriteByte(' ')
	}
}

func (w *textWriter) newline() {
	if w.b.Len() == 0 {
		return
	}
	s := w.b.String()
	if s[len(s)-1] == '\n' {
		return
	}
	w.b.WriteByte('\n')
}

func (w *textWriter) String() string {
	return w.b.String()
}
