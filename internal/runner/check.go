package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"edu/xxhasher/pkg/hasher"
)

var (
	ErrMalformedLine = errors.New("malformed checksum line")
	ErrMismatch      = errors.New("checksum mismatch")
)

type CheckResult struct {
	Line int
	Algo string
	Name string
	Want string
	Got  string
	Err  error
}

func (c CheckResult) OK() bool { return c.Err == nil }

// Entry is one parsed checksum line. Algo is set only when the line names its
// family (BSD tag or XXH3_ prefix).
type Entry struct {
	Algo   string
	Digest string
	Name   string
}

// FormatLine renders a result the way Check reads it back. XXH3-64 digests get
// the XXH3_ prefix so they do not read as XXH64.
func FormatLine(r Result) string {
	d := r.Digest.String()
	if r.Algo == "xxh3" {
		d = hasher.Xxh3Prefix + d
	}
	return d + "  " + r.Name
}

// ParseLine accepts "<hex>  <name>" (with an optional '*' binary marker) and
// the BSD form "XXH64 (<name>) = <hex>".
func ParseLine(line string) (Entry, error) {
	if tag, rest, ok := strings.Cut(line, " ("); ok && strings.HasPrefix(tag, "XXH") && !strings.Contains(tag, " ") {
		name, digest, ok := cutLast(rest, ") = ")
		if !ok || name == "" {
			return Entry{}, ErrMalformedLine
		}
		f, err := hasher.Get(tag)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
		}
		digest = strings.ToLower(strings.TrimSpace(digest))
		if len(hasher.Detect(digest)) == 0 || len(digest) != f.Size()*2 {
			return Entry{}, ErrMalformedLine
		}
		return Entry{Algo: f.Name(), Digest: digest, Name: name}, nil
	}

	digest, name, ok := strings.Cut(line, " ")
	if !ok {
		return Entry{}, ErrMalformedLine
	}
	name = strings.TrimPrefix(strings.TrimLeft(name, " "), "*")
	if name == "" {
		return Entry{}, ErrMalformedLine
	}
	e := Entry{Name: name}
	cands := hasher.Detect(digest)
	if len(cands) == 0 {
		return Entry{}, ErrMalformedLine
	}
	if rest, ok := strings.CutPrefix(digest, hasher.Xxh3Prefix); ok {
		e.Algo = cands[0]
		digest = rest
	}
	e.Digest = strings.ToLower(digest)
	return e, nil
}

func cutLast(s, sep string) (before, after string, ok bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

// resolve picks the family for one entry. With f set, the entry must agree
// with it; otherwise the line's own tag or its digest width decides.
func resolve(f hasher.Family, e Entry) (hasher.Family, error) {
	if f != nil {
		if (e.Algo != "" && e.Algo != f.Name()) || len(e.Digest) != f.Size()*2 {
			return nil, fmt.Errorf("%w: not a %s digest", ErrMalformedLine, f.Name())
		}
		return f, nil
	}
	name := e.Algo
	if name == "" {
		name = hasher.Detect(e.Digest)[0]
	}
	return hasher.Get(name)
}

// Check verifies a checksum list. Blank lines and lines starting with '#' are
// skipped; every other line yields one CheckResult. A nil f detects the family
// per line.
func (r *Runner) Check(ctx context.Context, f hasher.Family, p hasher.Params, lines []string, open OpenFunc) ([]CheckResult, error) {
	type group struct {
		f     hasher.Family
		names []string
		at    []int
	}
	var (
		out    []CheckResult
		groups = map[string]*group{}
		order  []string
	)
	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r\n")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cr := CheckResult{Line: i + 1}
		e, err := ParseLine(line)
		var fam hasher.Family
		if err == nil {
			fam, err = resolve(f, e)
		}
		if err != nil {
			cr.Err = fmt.Errorf("line %d: %w", i+1, err)
			out = append(out, cr)
			continue
		}
		cr.Algo, cr.Name, cr.Want = fam.Name(), e.Name, e.Digest
		g, ok := groups[fam.Name()]
		if !ok {
			g = &group{f: fam}
			groups[fam.Name()] = g
			order = append(order, fam.Name())
		}
		g.names = append(g.names, e.Name)
		g.at = append(g.at, len(out))
		out = append(out, cr)
	}

	for _, name := range order {
		g := groups[name]
		res, err := r.SumAll(ctx, g.f, p, g.names, open)
		if err != nil {
			return nil, err
		}
		for i, sr := range res {
			cr := &out[g.at[i]]
			if sr.Err != nil {
				cr.Err = sr.Err
				continue
			}
			cr.Got = sr.Digest.String()
			if cr.Got != cr.Want {
				cr.Err = ErrMismatch
			}
		}
	}

	var bad int
	for _, cr := range out {
		if cr.Err != nil {
			bad++
		}
	}
	r.logEvent("check", map[string]any{"lines": len(out), "failed": bad})
	return out, nil
}
