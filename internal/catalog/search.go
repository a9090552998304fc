package catalog

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"golang.org/x/text/cases"
)

// Search returns the resources matching every criterion. A criterion
// matches when the field exists and its string form equals the value,
// ignoring case. A key naming a top-level field is matched literally;
// otherwise a dotted key ("author.name") addresses nested objects.
// Empty criteria select everything.
func (s *Service) Search(ctx context.Context, criteria map[string]string) ([]Resource, error) {
	rs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(criteria) == 0 {
		return rs, nil
	}

	type criterion struct {
		key, path, want string
	}
	fold := cases.Fold()
	cs := make([]criterion, 0, len(criteria))
	for k, v := range criteria {
		cs = append(cs, criterion{key: k, path: fieldPath(k), want: fold.String(v)})
	}

	out := []Resource{}
	for _, r := range rs {
		ok := true
		for _, c := range cs {
			got, found := lookup(r, c.key, c.path)
			if !found || fold.String(got) != c.want {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// fieldPath turns "a.b" into the JSONPath $["a"]["b"].
func fieldPath(key string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, seg := range strings.Split(key, ".") {
		b.WriteString("[")
		b.WriteString(strconv.Quote(seg))
		b.WriteString("]")
	}
	return b.String()
}

// lookup returns the string form of the field named key, falling back to
// the nested path when r has no such top-level field. Objects and arrays
// have no string form and never match.
func lookup(r Resource, key, path string) (string, bool) {
	if v, ok := r[key]; ok {
		return stringify(v)
	}
	if !strings.Contains(key, ".") {
		return "", false
	}
	v, err := jsonpath.Get(path, map[string]any(r))
	if err != nil {
		return "", false
	}
	return stringify(v)
}

func stringify(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case nil:
		return "null", true
	default:
		return "", false
	}
}
