// Package lexer tokenizes a single Jack source unit. It strips line and
// block comments while scanning, and classifies the remaining runs of
// characters into the closed token vocabulary of internal/token using
// longest-match regex scanning, enforcing the 16-bit integer-constant
// bound and reporting typed clierr.Lex errors.
package lexer

import (
	"bufio"
	"errors"
	"io"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/libklein/hackjack/internal/clierr"
	"github.com/libklein/hackjack/internal/token"
)

var (
	keywordRegex   = regexp.MustCompile(`(class|constructor|function|method|field|static|var|int|char|boolean|void|true|false|null|this|let|do|if|else|while|return)`)
	symbolRegex    = regexp.MustCompile(`[{}\[\]().,;+\-*/&|<>=~]`)
	intConstRegex  = regexp.MustCompile(`\d+`)
	strConstRegex  = regexp.MustCompile(`"[^"\n]*"`)
	identRegex     = regexp.MustCompile(`[a-zA-Z_]\w*`)
	regexes        = []*regexp.Regexp{keywordRegex, symbolRegex, intConstRegex, strConstRegex, identRegex}
	whitespaceOnly = regexp.MustCompile(`^\s*$`)

	regexTokenType = map[*regexp.Regexp]token.Type{
		keywordRegex:  token.Keyword,
		symbolRegex:   token.Symbol,
		intConstRegex: token.IntConst,
		strConstRegex: token.StrConst,
		identRegex:    token.Identifier,
	}
)

func init() {
	for _, re := range regexes {
		re.Longest()
	}
}

// commentFilteredReader discards // line comments and /* ... */ block
// comments from the underlying rune stream as it is read.
type commentFilteredReader struct {
	reader *bufio.Reader
}

func newCommentFilteredReader(r io.Reader) commentFilteredReader {
	return commentFilteredReader{reader: bufio.NewReader(r)}
}

func (r *commentFilteredReader) Read(b []byte) (int, error) {
	i := 0
	for i < len(b) {
		char, n, err := r.reader.ReadRune()
		if n == 0 {
			return i, err
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return i, err
		}

		if char == '/' {
			next, _, nextErr := r.reader.ReadRune()
			switch {
			case nextErr != nil && !errors.Is(nextErr, io.EOF):
				return i, nextErr
			case nextErr == nil && next == '/':
				if _, readErr := r.reader.ReadString('\n'); readErr != nil && !errors.Is(readErr, io.EOF) {
					return i, readErr
				}
				continue
			case nextErr == nil && next == '*':
				if skipErr := skipBlockComment(r.reader); skipErr != nil {
					return i, skipErr
				}
				continue
			default:
				if nextErr == nil {
					if unreadErr := r.reader.UnreadRune(); unreadErr != nil {
						return i, unreadErr
					}
				}
			}
		}

		if i+n > len(b) {
			if unreadErr := r.reader.UnreadRune(); unreadErr != nil {
				return i, nil
			}
			return i, nil
		}
		i += utf8.EncodeRune(b[i:], char)
		if errors.Is(err, io.EOF) {
			return i, io.EOF
		}
	}
	return i, nil
}

func skipBlockComment(r *bufio.Reader) error {
	for {
		str, err := r.ReadString('/')
		if err != nil {
			return clierr.New(clierr.Lex, "unclosed block comment")
		}
		if len(str) >= 2 && str[len(str)-2] == '*' {
			return nil
		}
	}
}

// Lexer scans one Token at a time from a Jack source unit.
type Lexer struct {
	scanner *bufio.Scanner
	next    token.Token
	err     error
}

// New creates a Lexer reading from r.
func New(r io.Reader) *Lexer {
	filtered := newCommentFilteredReader(r)
	scanner := bufio.NewScanner(&filtered)
	scanner.Split(splitToken)
	return &Lexer{scanner: scanner}
}

// Err returns the first lexical error encountered, if any.
func (l *Lexer) Err() error {
	return l.err
}

// Scan advances to the next token, returning false at end of input or on
// error (distinguish via Err).
func (l *Lexer) Scan() bool {
	if !l.scanner.Scan() {
		if err := l.scanner.Err(); err != nil {
			l.err = err
		}
		return false
	}
	tok, err := parseToken(l.scanner.Text())
	if err != nil {
		l.err = err
		return false
	}
	l.next = tok
	return true
}

// Token returns the token produced by the most recent successful Scan.
func (l *Lexer) Token() token.Token {
	return l.next
}

func matchToken(s string) (start, end, regexIdx int, err error) {
	start, end, regexIdx = -1, -1, -1
	for i, re := range regexes {
		if m := re.FindStringIndex(s); m != nil {
			if start == -1 || m[0] < start || (m[0] == start && (m[1]-m[0]) > (end-start)) {
				start, end, regexIdx = m[0], m[1], i
			}
		}
	}
	if regexIdx == -1 {
		return 0, 0, 0, clierr.New(clierr.Lex, "unrecognized character near %q", s)
	}
	if !whitespaceOnly.MatchString(s[:start]) {
		return 0, 0, 0, clierr.New(clierr.Lex, "unexpected characters before %q in %q", s[start:end], s)
	}
	return start, end, regexIdx, nil
}

func splitToken(data []byte, atEOF bool) (advance int, tok []byte, err error) {
	trimmed := strings.TrimLeftFunc(string(data), unicode.IsSpace)
	if len(trimmed) == 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}

	start, end, _, matchErr := matchToken(trimmed)
	if matchErr != nil {
		if atEOF {
			return 0, nil, matchErr
		}
		// Might just need more input (e.g. an unterminated string constant
		// still accumulating characters); ask the Scanner for more bytes.
		if isLikelyIncomplete(trimmed) {
			return 0, nil, nil
		}
		return 0, nil, matchErr
	}

	// A token that runs to the end of the buffered data (e.g. a number
	// constant) may continue in bytes not yet read; ask for more first.
	if !atEOF && end == len(trimmed) {
		return 0, nil, nil
	}

	prefixLen := len(data) - len(trimmed)
	advance = prefixLen + end
	tok = []byte(trimmed[start:end])
	return advance, tok, nil
}

// isLikelyIncomplete reports whether s starts with a string constant whose
// closing quote has not arrived yet, so more bytes may still complete it.
func isLikelyIncomplete(s string) bool {
	return strings.HasPrefix(s, "\"") && !strings.Contains(s[1:], "\"")
}

func parseToken(s string) (token.Token, error) {
	start, end, regexIdx, err := matchToken(s)
	if err != nil {
		return token.Token{}, err
	}

	tok := token.Token{Terminal: s[start:end]}
	re := regexes[regexIdx]
	tok.Type = regexTokenType[re]

	switch re {
	case intConstRegex:
		if n := tok.Int(); n > token.MaxIntConst {
			return token.Token{}, clierr.New(clierr.Lex, "integer constant %d out of range (0..%d)", n, token.MaxIntConst)
		}
	case strConstRegex:
		tok.Terminal = s[start+1 : end-1]
	}
	return tok, nil
}
