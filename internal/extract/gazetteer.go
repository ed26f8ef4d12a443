package extract

import (
	"bufio"
	_ "embed"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

//go:embed default_cities.txt
var defaultCities string

// Gazetteer is the fixed list of city names recognized in posting text.
type Gazetteer struct {
	names []string
	lower []string
}

func NewGazetteer(names []string) *Gazetteer {
	g := &Gazetteer{}
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || strings.HasPrefix(n, "#") {
			continue
		}
		k := strings.ToLower(n)
		if seen[k] {
			continue
		}
		seen[k] = true
		g.names = append(g.names, n)
		g.lower = append(g.lower, k)
	}
	return g
}

// DefaultGazetteer returns the built-in city list.
func DefaultGazetteer() *Gazetteer {
	g, _ := readGazetteer(strings.NewReader(defaultCities))
	return g
}

// LoadGazetteer reads a newline-delimited city file. Blank lines and lines
// starting with '#' are skipped. A missing file is reported with an error
// satisfying errors.Is(err, fs.ErrNotExist).
func LoadGazetteer(path string) (*Gazetteer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open gazetteer %s", path)
	}
	defer f.Close()
	g, err := readGazetteer(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read gazetteer %s", path)
	}
	return g, nil
}

func readGazetteer(r io.Reader) (*Gazetteer, error) {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		names = append(names, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return NewGazetteer(names), nil
}

func (g *Gazetteer) Len() int { return len(g.names) }

// Find returns the city that occurs earliest in text. A match must start
// the text or follow whitespace, and must end the text or be followed by
// whitespace or a comma. On a tie the longer name wins.
func (g *Gazetteer) Find(text string) (string, bool) {
	lower := strings.ToLower(text)
	best, bestAt := -1, len(lower)+1
	for i, name := range g.lower {
		at := indexDelimited(lower, name)
		if at < 0 {
			continue
		}
		if at < bestAt || (at == bestAt && len(name) > len(g.lower[best])) {
			best, bestAt = i, at
		}
	}
	if best < 0 {
		return "", false
	}
	return g.names[best], true
}

func indexDelimited(s, sub string) int {
	from := 0
	for from <= len(s)-len(sub) {
		i := strings.Index(s[from:], sub)
		if i < 0 {
			return -1
		}
		at := from + i
		end := at + len(sub)
		if boundaryBefore(s, at) && boundaryAfter(s, end) {
			return at
		}
		from = at + 1
	}
	return -1
}

func boundaryBefore(s string, at int) bool {
	if at == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:at])
	return unicode.IsSpace(r)
}

func boundaryAfter(s string, end int) bool {
	if end == len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[end:])
	return r == ',' || unicode.IsSpace(r)
}
