package store

import (
	"fmt"
	"reflect"
	"sort"
)

// matches reports whether a document satisfies every field of a filter.
func matches(doc Doc, filter Filter) bool {
	for key, want := range filter {
		if !equalValues(doc[key], want) {
			return false
		}
	}
	return true
}

// equalValues compares two field values, treating all numeric types as
// equivalent (DynamoDB round-trips numbers as float64, the memory backend
// keeps whatever type was inserted).
func equalValues(got, want any) bool {
	gi, gok := toInt64(got)
	wi, wok := toInt64(want)
	if gok && wok {
		return gi == wi
	}
	return reflect.DeepEqual(got, want)
}

// sortDocs orders documents in place by the given sort field, falling back
// to document-id order. The sort is stable with id as tiebreaker so results
// are deterministic across backends.
func sortDocs(docs []Doc, s *Sort) {
	less := func(a, b Doc) bool { return a.ID() < b.ID() }
	if s != nil {
		field := s.Field
		less = func(a, b Doc) bool {
			av, aok := a.Int(field)
			bv, bok := b.Int(field)
			if aok && bok {
				if av != bv {
					return av < bv
				}
				return a.ID() < b.ID()
			}
			as := fmt.Sprint(a[field])
			bs := fmt.Sprint(b[field])
			if as != bs {
				return as < bs
			}
			return a.ID() < b.ID()
		}
		if s.Descending {
			asc := less
			less = func(a, b Doc) bool { return asc(b, a) }
		}
	}
	sort.SliceStable(docs, func(i, j int) bool { return less(docs[i], docs[j]) })
}
