package scanner

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIgnorePatterns always apply before configured patterns:
// version-control and dependency directories whose subtrees can be
// enormous and are never policy-relevant.
var DefaultIgnorePatterns = []string{
	".git/",
	".hg/",
	".svn/",
	"node_modules/",
	"vendor/",
	"__pycache__/",
	".venv/",
	".tox/",
}

type ignorePattern struct {
	glob     string
	dirOnly  bool // trailing "/" matches directories only
	baseOnly bool // no "/" in pattern: match the basename
}

// Matcher evaluates a path against the ordered ignore patterns and the
// optional --only allow list. Paths are relative to the repository
// root, POSIX separators.
type Matcher struct {
	ignore []ignorePattern
	allow  []ignorePattern
}

// NewMatcher compiles the pattern groups. The ignore list must already
// be ordered: defaults, ignore-file patterns, CLI patterns. Invalid
// globs are a configuration error.
func NewMatcher(ignore, only []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range ignore {
		compiled, err := compilePattern(p)
		if err != nil {
			return nil, err
		}
		m.ignore = append(m.ignore, compiled)
	}
	for _, p := range only {
		compiled, err := compilePattern(p)
		if err != nil {
			return nil, err
		}
		m.allow = append(m.allow, compiled)
	}
	return m, nil
}

func compilePattern(p string) (ignorePattern, error) {
	if p == "" || p == "/" {
		return ignorePattern{}, fmt.Errorf("config: empty ignore pattern")
	}
	pat := ignorePattern{glob: p}
	if strings.HasSuffix(p, "/") {
		pat.dirOnly = true
		pat.glob = strings.TrimSuffix(p, "/")
	}
	pat.baseOnly = !strings.Contains(pat.glob, "/")
	if !doublestar.ValidatePattern(pat.glob) {
		return ignorePattern{}, fmt.Errorf("config: invalid glob pattern %q", p)
	}
	return pat, nil
}

func (p ignorePattern) matches(rel string, isDir bool) bool {
	if p.dirOnly && !isDir {
		return false
	}
	target := rel
	if p.baseOnly {
		target = path.Base(rel)
	}
	ok, err := doublestar.Match(p.glob, target)
	return err == nil && ok
}

// Match reports whether rel is excluded from the scan. When an allow
// list is present, files not matching any allow pattern are excluded;
// ignore patterns still apply afterward. Directories are never gated
// by the allow list so that allowed files deeper in the tree remain
// reachable.
func (m *Matcher) Match(rel string, isDir bool) bool {
	if !isDir && len(m.allow) > 0 {
		allowed := false
		for _, p := range m.allow {
			if p.matches(rel, false) {
				allowed = true
				break
			}
		}
		if !allowed {
			return true
		}
	}

	for _, p := range m.ignore {
		if p.matches(rel, isDir) {
			return true
		}
	}
	return false
}
