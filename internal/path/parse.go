package path

import (
	"fmt"
	"strings"
)

// NullToken is the literal spelling of the termination target.
const NullToken = "null"

// Parse tokenizes a raw `to:` string into an Expr, applying the
// ordering of §4.C (null, decision, fork, self, absolute, descend,
// up, bare sibling).
func Parse(raw string) (Expr, error) {
	t := strings.TrimSpace(raw)

	if t == NullToken || t == "" {
		return NullExpr{}, nil
	}
	if strings.HasPrefix(t, "@") {
		name := strings.TrimPrefix(t, "@")
		if name == "" {
			return nil, fmt.Errorf("empty decision reference %q", raw)
		}
		return DecisionRef{Name: name}, nil
	}
	if idx := strings.Index(t, "["); idx >= 0 {
		return parseFork(t, idx)
	}
	if t == "." {
		return SelfExpr{}, nil
	}
	if strings.HasPrefix(t, "/") {
		segs := splitSegments(strings.TrimPrefix(t, "/"))
		return Absolute{Segments: segs}, nil
	}
	if strings.HasPrefix(t, "./") {
		segs := splitSegments(strings.TrimPrefix(t, "./"))
		return Descend{Segments: segs}, nil
	}
	if strings.HasPrefix(t, "../") {
		n := 0
		rest := t
		for strings.HasPrefix(rest, "../") {
			n++
			rest = strings.TrimPrefix(rest, "../")
		}
		return Up{N: n, Tail: splitSegments(rest)}, nil
	}
	return Sibling{Name: t}, nil
}

// parseFork handles "prefix/[a, b, c]" forms. idx is the index of the
// opening bracket within t.
func parseFork(t string, idx int) (Expr, error) {
	if !strings.HasSuffix(t, "]") {
		return nil, fmt.Errorf("malformed fork expression %q: missing closing bracket", t)
	}
	prefixRaw := strings.TrimSuffix(t[:idx], "/")
	inner := t[idx+1 : len(t)-1]

	var prefix Expr
	var err error
	if prefixRaw == "" {
		prefix = SelfExpr{}
	} else {
		prefix, err = Parse(prefixRaw)
		if err != nil {
			return nil, err
		}
	}

	parts := strings.Split(inner, ",")
	limbs := make([][]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("malformed fork expression %q: empty limb", t)
		}
		limbs = append(limbs, splitSegments(p))
	}
	if len(limbs) == 0 {
		return nil, fmt.Errorf("malformed fork expression %q: no limbs", t)
	}
	return Fork{Prefix: prefix, Limbs: limbs}, nil
}

func splitSegments(s string) []string {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}
