package radio

import (
	"github.com/rigado/blescan"
)

// FilterSet matches packets against required service UUIDs, for stacks that
// cannot filter in the OS. A packet matches when it advertises any UUID of
// the set; an empty set matches everything.
type FilterSet map[string]struct{}

// NewFilterSet builds a FilterSet from UUID text. Entries that do not parse
// are skipped.
func NewFilterSet(uuids []string) FilterSet {
	f := make(FilterSet, len(uuids))
	for _, u := range uuids {
		n, err := blescan.NormalizeUUID(u)
		if err != nil {
			continue
		}
		f[n] = struct{}{}
	}
	return f
}

// Empty reports whether the set filters nothing.
func (f FilterSet) Empty() bool { return len(f) == 0 }

// Match reports whether p passes the filter.
func (f FilterSet) Match(p Packet) bool {
	if len(f) == 0 {
		return true
	}
	for _, u := range p.ServiceUUIDs {
		n, err := blescan.NormalizeUUID(u)
		if err != nil {
			continue
		}
		if _, ok := f[n]; ok {
			return true
		}
	}
	return false
}

// UUIDs returns the set members in no particular order.
func (f FilterSet) UUIDs() []string {
	out := make([]string, 0, len(f))
	for u := range f {
		out = append(out, u)
	}
	return out
}
