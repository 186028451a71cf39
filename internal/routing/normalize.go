package routing

import (
	"strconv"
	"strings"
)

// Bit is one reversible rendering of a pattern: a literal string with
// %(name)s placeholders plus the parameters the rendering consumes. A
// pattern yields several bits when it has optional capturing parts.
type Bit struct {
	Format string
	Params []string
}

// escapeRepresentatives maps character-class escapes to a literal
// stand-in. A zero value drops the escape (zero-width assertions).
var escapeRepresentatives = map[rune]rune{
	'A': 0,
	'b': 0,
	'B': 0,
	'Z': 0,
	'd': '0',
	'D': 'x',
	's': ' ',
	'S': 'x',
	'w': 'x',
	'W': '!',
}

// normalize reduces a regex pattern to the literal renderings that
// suffice for reverse substitution:
//
//   - repeated sections keep the minimum occurrences permitted;
//     optional sections containing parameters yield both the absent
//     and the present form
//   - character classes collapse to their first character
//   - capturing groups become %(name)s placeholders, positional
//     groups numbered _0, _1, ...
//   - lookarounds contribute nothing
//
// Patterns with no literal rendering (alternation, inline flags) fall
// back to a single verbatim bit; reverse verification then rejects any
// substitution that does not match the raw pattern.
func normalize(pattern string) []Bit {
	bits, ok := tryNormalize(pattern)
	if !ok {
		return []Bit{{Format: pattern}}
	}
	return bits
}

type renderOp int

const (
	opLiteral renderOp = iota
	opGroup
	opSequence
	opChoice
)

// renderNode is one element of the intermediate rendering tree built
// while walking a pattern.
type renderNode struct {
	op       renderOp
	lit      string
	format   string
	param    string // empty for placeholders that bind no parameter
	children []renderNode
}

func literalNode(ch rune) renderNode {
	return renderNode{op: opLiteral, lit: string(ch)}
}

func groupNode(name string, binds bool) renderNode {
	n := renderNode{op: opGroup, format: "%(" + name + ")s"}
	if binds {
		n.param = name
	}
	return n
}

func containsGroup(n renderNode) bool {
	if n.op == opGroup {
		return true
	}
	for _, c := range n.children {
		if containsGroup(c) {
			return true
		}
	}
	return false
}

// tryNormalize walks the pattern into a rendering tree and flattens
// it. ok is false for constructs with no literal rendering.
func tryNormalize(pattern string) (bits []Bit, reversible bool) {
	sc := &patternScanner{runes: []rune(pattern)}
	var result []renderNode
	var openSequences []int
	numArgs := 0

	ch, escaped, ok := sc.next()
	consumeNext := true

loop:
	for ok {
		switch {
		case escaped:
			result = append(result, literalNode(ch))
		case ch == '.':
			result = append(result, literalNode('.'))
		case ch == '|':
			return nil, false
		case ch == '^':
			// anchors render nothing
		case ch == '$':
			break loop
		case ch == ')':
			// closes a non-capturing section opened below; capturing
			// groups never reach here, walkToEnd consumes them whole
			if len(openSequences) == 0 {
				return nil, false
			}
			start := openSequences[len(openSequences)-1]
			openSequences = openSequences[:len(openSequences)-1]
			inner := renderNode{op: opSequence, children: append([]renderNode(nil), result[start:]...)}
			result = append(result[:start], inner)
		case ch == '[':
			// a character class renders as its first member
			ch, escaped, ok = sc.next()
			if !ok {
				break loop
			}
			result = append(result, literalNode(ch))
			for {
				ch, escaped, ok = sc.next()
				if !ok {
					break loop
				}
				if !escaped && ch == ']' {
					break
				}
			}
		case ch == '(':
			ch, escaped, ok = sc.next()
			if !ok {
				break loop
			}
			if ch != '?' || escaped {
				name := "_" + strconv.Itoa(numArgs)
				numArgs++
				result = append(result, groupNode(name, true))
				sc.walkToEnd(ch)
				break
			}
			ch, _, ok = sc.next()
			if !ok {
				break loop
			}
			switch ch {
			case '!', '=', '<':
				// lookaround
				sc.walkToEnd(ch)
			case ':':
				openSequences = append(openSequences, len(result))
			case 'P':
				ch, _, ok = sc.next()
				if !ok {
					break loop
				}
				if ch != '<' && ch != '=' {
					return nil, false
				}
				// '<' opens a named group, '=' a named backreference;
				// only the former binds a fresh parameter
				terminal, binds := '>', true
				if ch == '=' {
					terminal, binds = ')', false
				}
				var name []rune
				for {
					ch, _, ok = sc.next()
					if !ok {
						break loop
					}
					if ch == terminal {
						break
					}
					name = append(name, ch)
				}
				result = append(result, groupNode(string(name), binds))
				if terminal == '>' {
					sc.walkToEnd(ch)
				}
			default:
				// inline flags and other extensions
				return nil, false
			}
		case ch == '*' || ch == '?' || ch == '+' || ch == '{':
			if len(result) == 0 {
				return nil, false
			}
			count, lookahead, hasLookahead := sc.quantifier(ch)
			last := result[len(result)-1]
			switch {
			case count == 0:
				if containsGroup(last) {
					// a zero-minimum quantifier over parameters also
					// admits a single occurrence
					result[len(result)-1] = renderNode{
						op: opChoice,
						children: []renderNode{
							{op: opSequence},
							{op: opSequence, children: []renderNode{last}},
						},
					}
				} else {
					result = result[:len(result)-1]
				}
			case count > 1:
				for i := 1; i < count; i++ {
					result = append(result, last)
				}
			}
			if hasLookahead {
				ch, escaped = lookahead, false
				consumeNext = false
			}
		default:
			result = append(result, literalNode(ch))
		}

		if consumeNext {
			ch, escaped, ok = sc.next()
		} else {
			consumeNext = true
		}
	}

	return flatten(result), true
}

// patternScanner iterates a pattern, resolving escapes to
// representative literals.
type patternScanner struct {
	runes []rune
	pos   int
}

func (s *patternScanner) next() (ch rune, escaped, ok bool) {
	for s.pos < len(s.runes) {
		ch = s.runes[s.pos]
		s.pos++
		if ch != '\\' {
			return ch, false, true
		}
		if s.pos >= len(s.runes) {
			return '\\', false, true
		}
		esc := s.runes[s.pos]
		s.pos++
		if rep, known := escapeRepresentatives[esc]; known {
			if rep == 0 {
				continue
			}
			return rep, true, true
		}
		return esc, true, true
	}
	return 0, false, false
}

// walkToEnd consumes the rest of a group, honoring nesting. ch is the
// first character already read from the group body.
func (s *patternScanner) walkToEnd(ch rune) {
	nesting := 0
	if ch == '(' {
		nesting = 1
	}
	for {
		ch, escaped, ok := s.next()
		if !ok {
			return
		}
		if escaped {
			continue
		}
		switch ch {
		case '(':
			nesting++
		case ')':
			if nesting == 0 {
				return
			}
			nesting--
		}
	}
}

// quantifier parses a repetition operator, returning the minimum
// occurrence count and, when one had to be read past the operator, the
// following character.
func (s *patternScanner) quantifier(ch rune) (count int, next rune, hasNext bool) {
	if ch == '*' || ch == '?' || ch == '+' {
		lower := 0
		if ch == '+' {
			lower = 1
		}
		ch2, _, ok := s.next()
		if !ok {
			return lower, 0, false
		}
		if ch2 == '?' {
			// non-greedy marker
			return lower, 0, false
		}
		return lower, ch2, true
	}
	var spec []rune
	for {
		c, _, ok := s.next()
		if !ok {
			return 0, 0, false
		}
		if c == '}' {
			break
		}
		spec = append(spec, c)
	}
	bound := string(spec)
	if i := strings.IndexByte(bound, ','); i >= 0 {
		bound = bound[:i]
	}
	lower, err := strconv.Atoi(strings.TrimSpace(bound))
	if err != nil {
		lower = 0
	}
	c, _, ok := s.next()
	if !ok {
		return lower, 0, false
	}
	if c == '?' {
		return lower, 0, false
	}
	return lower, c, true
}

// flatten renders the intermediate tree into bits, expanding choices
// into the cross product of their alternatives.
func flatten(nodes []renderNode) []Bit {
	formats := []string{""}
	params := [][]string{nil}
	for _, n := range nodes {
		switch n.op {
		case opLiteral:
			for i := range formats {
				formats[i] += n.lit
			}
		case opGroup:
			for i := range formats {
				formats[i] += n.format
				if n.param != "" {
					params[i] = append(params[i], n.param)
				}
			}
		case opSequence:
			formats, params = cross(formats, params, flatten(n.children))
		case opChoice:
			var alts []Bit
			for _, alt := range n.children {
				alts = append(alts, flatten(alt.children)...)
			}
			formats, params = cross(formats, params, alts)
		}
	}
	out := make([]Bit, len(formats))
	for i := range formats {
		out[i] = Bit{Format: formats[i], Params: params[i]}
	}
	return out
}

func cross(formats []string, params [][]string, inner []Bit) ([]string, [][]string) {
	outF := make([]string, 0, len(formats)*len(inner))
	outP := make([][]string, 0, len(formats)*len(inner))
	for i, f := range formats {
		for _, b := range inner {
			outF = append(outF, f+b.Format)
			merged := append(append([]string(nil), params[i]...), b.Params...)
			outP = append(outP, merged)
		}
	}
	return outF, outP
}
