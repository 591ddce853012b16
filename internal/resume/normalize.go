package resume

import (
	"maps"
	"strings"
)

// field aliases seen in older saved portfolios, keyed by section.
var legacyAliases = map[string]map[string]string{
	"work_experience": {"position": "title", "date_range": "dates"},
	"education":       {"date_range": "dates"},
	"publications":    {"title": "name"},
	"patents":         {"title": "name"},
	"test_scores":     {"test": "test_name"},
}

// Normalize rewrites older and alternate shapes into the current one. It never
// mutates raw and Normalize(Normalize(x)) equals Normalize(x).
func Normalize(raw map[string]any) map[string]any {
	if raw == nil {
		return nil
	}
	out := maps.Clone(raw)

	for _, key := range []string{"skills", "languages", "courses"} {
		if v, ok := out[key]; ok {
			out[key] = normalizeStringList(v, key == "skills")
		}
	}

	if v, ok := out["awards"]; ok {
		out["awards"] = normalizeObjectList(v, "awards", func(s string) map[string]any {
			return map[string]any{"name": s, "description": ""}
		})
	}
	if v, ok := out["test_scores"]; ok {
		out["test_scores"] = normalizeObjectList(v, "test_scores", splitTestScore)
	}
	if v, ok := out["certifications"]; ok {
		out["certifications"] = normalizeObjectList(v, "certifications", func(s string) map[string]any {
			return map[string]any{"name": s, "date_issued": "", "link": ""}
		})
	}

	for _, key := range []string{"work_experience", "education", "projects", "publications", "patents"} {
		if v, ok := out[key]; ok {
			out[key] = normalizeObjectList(v, key, nil)
		}
	}
	return out
}

// splitTestScore splits "SAT: 1500" on the first colon.
func splitTestScore(s string) map[string]any {
	name, score, found := strings.Cut(s, ":")
	if !found {
		return map[string]any{"test_name": s, "score": ""}
	}
	return map[string]any{"test_name": strings.TrimSpace(name), "score": strings.TrimSpace(score)}
}

// normalizeStringList coerces a scalar string or a mixed list into []any of
// trimmed strings. Objects carrying a name contribute that name.
func normalizeStringList(v any, commaSplit bool) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return stringsToAny(splitScalar(t, commaSplit))
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			switch it := item.(type) {
			case string:
				if s := strings.TrimSpace(it); s != "" {
					out = append(out, s)
				}
			case map[string]any:
				if name, ok := it["name"].(string); ok && strings.TrimSpace(name) != "" {
					out = append(out, strings.TrimSpace(name))
				}
			}
		}
		return out
	default:
		return v
	}
}

// normalizeObjectList rewrites a section list. String elements go through
// fromString when provided; object elements get legacy aliases and nested
// list coercion. Anything else is left for schema validation to reject.
func normalizeObjectList(v any, section string, fromString func(string) map[string]any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]any, 0, len(list))
	for _, item := range list {
		switch it := item.(type) {
		case string:
			s := strings.TrimSpace(it)
			if s == "" {
				continue
			}
			if fromString == nil {
				out = append(out, it)
				continue
			}
			out = append(out, fromString(s))
		case map[string]any:
			out = append(out, normalizeEntry(it, section))
		default:
			out = append(out, item)
		}
	}
	return out
}

func normalizeEntry(entry map[string]any, section string) map[string]any {
	out := maps.Clone(entry)
	for from, to := range legacyAliases[section] {
		v, ok := out[from]
		if !ok {
			continue
		}
		if _, exists := out[to]; !exists {
			out[to] = v
		}
		delete(out, from)
	}
	if v, ok := out["tags"]; ok {
		out["tags"] = normalizeStringList(v, true)
	}
	if v, ok := out["links"]; ok {
		out["links"] = normalizeStringList(v, false)
	}
	return out
}

func splitScalar(s string, commaSplit bool) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if !commaSplit {
		return []string{s}
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
