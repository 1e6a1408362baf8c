// Package descriptor edits the dependency entries of a package
// descriptor in place.
//
// The descriptor is never decoded into an object model. Instead, a
// scanner that understands strings and brace depth finds the exact
// byte range of a `"name": {...}` pair and cuts it out, so every byte
// outside of the removed pairs is preserved. Values may nest objects
// to any depth. Only pairs whose value is an object are matched.
package descriptor

import (
	"context"

	"github.com/go-logr/logr"
)

// Remove strips the named dependency objects from text. Names are
// processed in the order given and compared verbatim against the raw
// key text. Only the first occurrence of each name is removed and
// names that cannot be found are skipped.
//
// It returns the new text along with the names that were removed.
// When nothing is removed the returned text is identical to the input.
func Remove(ctx context.Context, text string, names []string) (string, []string) {
	log := logr.FromContextOrDiscard(ctx)

	removed := make([]string, 0, len(names))
	for _, name := range names {
		s, ok := findPair(text, name, 0)
		if !ok {
			log.V(3).Info("dependency not present in descriptor", "name", name)
			continue
		}
		log.V(4).Info("removing dependency", "name", name, "start", s.start, "end", s.end)
		text = text[:s.start] + text[s.end:]
		removed = append(removed, name)

		if _, dup := findPair(text, name, 0); dup {
			log.V(1).Info("descriptor contains a duplicate key, only the first was removed", "name", name)
		}
	}
	if len(removed) == 0 {
		return text, removed
	}
	return normalize(text), removed
}

// Keys returns the keys of the object stored under parent, in the
// order they appear. It returns nil if parent cannot be found or is
// not an object.
func Keys(text, parent string) []string {
	s, ok := findPair(text, parent, 0)
	if !ok {
		return nil
	}
	open, closing, _ := keyValue(text, stringEnd(text, s.start))

	keys := make([]string, 0)
	depth := 0
	for i := open + 1; i < closing; i++ {
		switch text[i] {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		case '"':
			end := stringEnd(text, i)
			if depth == 0 {
				next := skipSpace(text, end)
				if next < closing && text[next] == ':' {
					keys = append(keys, text[i+1:end-1])
				}
			}
			i = end - 1
		}
	}
	return keys
}
