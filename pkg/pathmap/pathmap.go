package pathmap

import (
	"sort"
	"strings"
)

type prefixPair struct {
	remote string
	local  string
}

// Mapper translates paths reported by a remote download client into locally
// accessible paths. Pairs are checked longest remote prefix first, so overlap
// between prefixes resolves deterministically regardless of config ordering.
type Mapper struct {
	pairs []prefixPair
}

func New(mapping map[string]string) *Mapper {
	m := &Mapper{
		pairs: make([]prefixPair, 0, len(mapping)),
	}

	for remote, local := range mapping {
		m.pairs = append(m.pairs, prefixPair{remote: remote, local: local})
	}

	sort.Slice(m.pairs, func(i, j int) bool {
		if len(m.pairs[i].remote) != len(m.pairs[j].remote) {
			return len(m.pairs[i].remote) > len(m.pairs[j].remote)
		}
		return m.pairs[i].remote < m.pairs[j].remote
	})

	return m
}

// Apply maps the first (longest) matching remote prefix onto its local
// counterpart. Paths without a matching prefix are returned unchanged.
func (m *Mapper) Apply(path string) string {
	for _, p := range m.pairs {
		if strings.HasPrefix(path, p.remote) {
			return p.local + strings.TrimPrefix(path, p.remote)
		}
	}

	return path
}

func (m *Mapper) Len() int {
	return len(m.pairs)
}
