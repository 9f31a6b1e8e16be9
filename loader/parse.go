// Copyright 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package loader

import (
	"fmt"
	"regexp"
)

// Parse tokenizes program and parses each word into a Command, in program
// order (spec.md §4.4 "a Loader program is a sequence of commands").
func Parse(program string) ([]*Command, error) {
	words, err := tokenize(program)
	if err != nil {
		return nil, err
	}
	cmds := make([]*Command, 0, len(words))
	for _, w := range words {
		c, err := parseCommand(w)
		if err != nil {
			return nil, fmt.Errorf("loader: parsing %q: %w", w, err)
		}
		cmds = append(cmds, c)
	}
	return cmds, nil
}

// scan is a byte cursor over one already-tokenized word (quotes still
// embedded verbatim; tokenize only decided word boundaries, not escaping).
type scan struct {
	s string
	i int
}

func (sc *scan) eof() bool { return sc.i >= len(sc.s) }

func (sc *scan) peek() byte {
	if sc.eof() {
		return 0
	}
	return sc.s[sc.i]
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (sc *scan) readIdent() string {
	start := sc.i
	for !sc.eof() && isIdentChar(sc.peek()) {
		sc.i++
	}
	return sc.s[start:sc.i]
}

// readKey reads a collection-entry id following ':' — a quoted span, or a
// bare run stopping at whatever would start a subaction ('=', '.', '~') or
// an annotation ('#'), so that `plain_hash:foo=boo` splits into key "foo"
// and a following subaction rather than swallowing "foo=boo" whole.
func (sc *scan) readKey() (string, error) {
	if sc.peek() == '"' {
		return sc.readQuotedOrBare()
	}
	start := sc.i
	for !sc.eof() {
		switch sc.s[sc.i] {
		case '=', '.', '~', '#':
			return sc.s[start:sc.i], nil
		}
		sc.i++
	}
	return sc.s[start:sc.i], nil
}

// readQuotedOrBare reads a double-quoted span (returning its unescaped
// content) or, failing that, a bare run up to the next '#' (which starts an
// annotation) or end of word.
func (sc *scan) readQuotedOrBare() (string, error) {
	if sc.peek() == '"' {
		start := sc.i
		sc.i++
		for !sc.eof() {
			c := sc.s[sc.i]
			if c == '\\' && sc.i+1 < len(sc.s) {
				sc.i += 2
				continue
			}
			sc.i++
			if c == '"' {
				return unquote(sc.s[start:sc.i])
			}
		}
		return "", fmt.Errorf("unterminated quoted string")
	}
	start := sc.i
	for !sc.eof() && sc.s[sc.i] != '#' {
		sc.i++
	}
	return sc.s[start:sc.i], nil
}

// readDelimited reads up to the next unescaped occurrence of delim,
// unescaping \delim and \\ as it goes (the sed-style s/pat/repl/flags
// syntax used by regex substitutions and regex-loop patterns).
func (sc *scan) readDelimited(delim byte) (string, error) {
	start := sc.i
	var out []byte
	for !sc.eof() {
		c := sc.s[sc.i]
		if c == '\\' && sc.i+1 < len(sc.s) && (sc.s[sc.i+1] == delim || sc.s[sc.i+1] == '\\') {
			out = append(out, sc.s[sc.i+1])
			sc.i += 2
			continue
		}
		if c == delim {
			sc.i++
			return string(out), nil
		}
		out = append(out, c)
		sc.i++
	}
	return "", fmt.Errorf("unterminated delimited span starting at %q", sc.s[start:])
}

// readArgs reads a parenthesized, comma-separated argument list, each item
// itself bare-or-quoted (spec.md §4.4 "args := '(' quoted-list ')' |
// bareword").
func (sc *scan) readArgs() ([]string, error) {
	if sc.peek() != '(' {
		return nil, nil
	}
	sc.i++
	var args []string
	for {
		for !sc.eof() && sc.s[sc.i] == ' ' {
			sc.i++
		}
		if sc.peek() == ')' {
			sc.i++
			return args, nil
		}
		var item string
		var err error
		if sc.peek() == '"' {
			item, err = sc.readQuotedOrBare()
		} else {
			start := sc.i
			for !sc.eof() && sc.s[sc.i] != ',' && sc.s[sc.i] != ')' {
				sc.i++
			}
			item = sc.s[start:sc.i]
		}
		if err != nil {
			return nil, err
		}
		args = append(args, item)
		for !sc.eof() && sc.s[sc.i] == ' ' {
			sc.i++
		}
		if sc.peek() == ',' {
			sc.i++
			continue
		}
		if sc.peek() == ')' {
			sc.i++
			return args, nil
		}
		return nil, fmt.Errorf("malformed argument list %q", sc.s)
	}
}

// parseRegex reads a regex-loop or substitution pattern: either a
// slash-delimited span `/pat/flags` or, failing a leading '/', a bare
// pattern running to the next '#' or end of word (spec.md §4.4's regex
// dialect minimum contract: "." any char, "*"/"+" repetition, "^"/"$"
// anchors, character classes — i.e. whatever Go's regexp/syntax already
// gives us, which covers that contract and more).
func (sc *scan) parseRegex() (*regexp.Regexp, string, error) {
	var pat, flags string
	var err error
	if sc.peek() == '/' {
		sc.i++
		pat, err = sc.readDelimited('/')
		if err != nil {
			return nil, "", err
		}
		flags = sc.readIdent()
	} else {
		pat, err = sc.readQuotedOrBare()
		if err != nil {
			return nil, "", err
		}
	}
	expr := pat
	if flags != "" {
		expr = "(?" + flags + ")" + pat
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, "", fmt.Errorf("bad regex %q: %w", pat, err)
	}
	return re, flags, nil
}

// parseCommand parses one tokenized word into a Command. Per spec.md §4.4's
// grammar, "action" and "subaction" can both be present on one word
// (`plain_hash:foo=boo`): the action selects a collection entry by key, and
// the subaction then applies directly to that entry when its cargo is a
// leaf — so a combined word never pushes onto the Loader's node stack, it
// only addresses one leaf.
func parseCommand(word string) (*Command, error) {
	if word == "!" {
		return &Command{Kind: KindPopRoot}, nil
	}
	if word == "-" {
		return &Command{Kind: KindPop}, nil
	}
	if word[0] == '/' {
		return &Command{Kind: KindSearch, Key: word[1:]}, nil
	}

	sc := &scan{s: word}
	name := sc.readIdent()
	if name == "" {
		return nil, fmt.Errorf("expected an element name in %q", word)
	}
	cmd := &Command{Name: name}

	if sc.peek() == ':' {
		sc.i++
		switch sc.peek() {
		case '.':
			sc.i++
			cmd.Kind = KindCollectionOp
			cmd.Method = sc.readIdent()
			args, err := sc.readArgs()
			if err != nil {
				return nil, err
			}
			cmd.Args = args
		case '~':
			sc.i++
			cmd.Kind = KindRegexLoop
			re, _, err := sc.parseRegex()
			if err != nil {
				return nil, err
			}
			cmd.Pattern = re
		default:
			cmd.Kind = KindDescend
			key, err := sc.readKey()
			if err != nil {
				return nil, err
			}
			cmd.Key = key
			if isSubactionStart(sc.peek()) {
				if err := parseSubaction(sc, cmd); err != nil {
					return nil, err
				}
			}
		}
	} else if isSubactionStart(sc.peek()) {
		if err := parseSubaction(sc, cmd); err != nil {
			return nil, err
		}
	} else if sc.peek() == '#' || sc.eof() {
		cmd.Kind = KindDescend
	} else {
		return nil, fmt.Errorf("unexpected character %q in %q", sc.peek(), word)
	}

	if sc.peek() == '#' {
		sc.i++
		ann, err := sc.readQuotedOrBare()
		if err != nil {
			return nil, err
		}
		cmd.HasAnnotation = true
		cmd.Annotation = ann
	}
	return cmd, nil
}

// isSubactionStart reports whether c begins a subaction or the bare '~'
// clear action (spec.md §4.4's `action := ... | '~'` and
// `subaction := '=' | '.=' | ...`, both of which address a leaf).
func isSubactionStart(c byte) bool {
	return c == '~' || c == '=' || c == '.'
}

// parseSubaction reads a leaf-targeting action/subaction (bare '~', '=',
// '.=', or one of the '=.'-prefixed projections) starting at sc's current
// position, filling cmd's Kind and associated fields.
func parseSubaction(sc *scan, cmd *Command) error {
	switch sc.peek() {
	case '~':
		sc.i++
		cmd.Kind = KindClear
		return nil
	case '=':
		sc.i++
		switch sc.peek() {
		case '.':
			sc.i++
			cmd.Kind = KindProject
			cmd.Method = sc.readIdent()
			args, err := sc.readArgs()
			if err != nil {
				return err
			}
			cmd.Args = args
			return nil
		case '~':
			sc.i++
			if sc.peek() == 's' {
				sc.i++
			}
			delim := sc.peek()
			sc.i++
			pat, err := sc.readDelimited(delim)
			if err != nil {
				return err
			}
			repl, err := sc.readDelimited(delim)
			if err != nil {
				return err
			}
			flags := sc.readIdent()
			expr := pat
			if flags != "" {
				expr = "(?" + flags + ")" + pat
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return fmt.Errorf("bad regex %q: %w", pat, err)
			}
			cmd.Kind = KindSubst
			cmd.Pattern = re
			cmd.Repl = repl
			cmd.Flags = flags
			return nil
		default:
			cmd.Kind = KindStore
			val, err := sc.readQuotedOrBare()
			if err != nil {
				return err
			}
			cmd.Value = val
			return nil
		}
	case '.':
		if sc.i+1 < len(sc.s) && sc.s[sc.i+1] == '=' {
			sc.i += 2
			cmd.Kind = KindAppend
			val, err := sc.readQuotedOrBare()
			if err != nil {
				return err
			}
			cmd.Value = val
			return nil
		}
		return fmt.Errorf("unexpected '.' in %q", sc.s)
	default:
		return fmt.Errorf("expected a subaction in %q", sc.s)
	}
}
