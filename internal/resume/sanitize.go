package resume

import (
	"sort"
	"strconv"
	"strings"
)

var scalarFields = set(
	"name", "email", "phone", "location",
	"linkedin", "github", "twitter", "instagram", "facebook", "devpost", "scholar", "youtube",
	"profile_picture", "tagline", "about", "parsing_error",
)

var stringListFields = set("skills", "languages", "courses")

// sectionFields lists the allowed keys of each list-of-struct section. Keys
// mapped to true are nested string lists.
var sectionFields = map[string]map[string]bool{
	"work_experience": {"company": false, "title": false, "dates": false, "start_date": false, "end_date": false, "description": false, "location": false, "tags": true, "logo_url": false, "media_url": false},
	"education":       {"institution": false, "degree": false, "dates": false, "start_date": false, "end_date": false, "gpa": false, "activities": false, "logo_url": false},
	"projects":        {"name": false, "description": false, "start_date": false, "end_date": false, "tags": true, "links": true, "media_url": false},
	"publications":    {"name": false, "journal": false, "year": false, "authors": false, "link": false},
	"patents":         {"name": false, "inventors": false, "number": false, "link": false},
	"awards":          {"name": false, "description": false},
	"test_scores":     {"test_name": false, "score": false},
	"certifications":  {"name": false, "date_issued": false, "link": false},
}

// Sanitize keeps only known keys, coerces numbers to strings and drops nulls.
// It returns the cleaned map and a sorted list of what was dropped.
func Sanitize(raw map[string]any) (map[string]any, []string) {
	out := make(map[string]any, len(raw))
	var dropped []string

	for key, val := range raw {
		switch {
		case scalarFields[key]:
			if s, ok := coerceString(val); ok {
				out[key] = s
			} else {
				dropped = append(dropped, key+"(type)")
			}
		case stringListFields[key]:
			if list, ok := coerceStringList(val); ok {
				out[key] = list
			} else {
				dropped = append(dropped, key+"(type)")
			}
		case sectionFields[key] != nil:
			items, ok := val.([]any)
			if !ok {
				dropped = append(dropped, key+"(type)")
				continue
			}
			clean := make([]any, 0, len(items))
			for i, item := range items {
				entry, ok := item.(map[string]any)
				if !ok {
					dropped = append(dropped, key+"["+strconv.Itoa(i)+"](type)")
					continue
				}
				clean = append(clean, sanitizeEntry(key, i, entry, &dropped))
			}
			out[key] = clean
		default:
			dropped = append(dropped, key+"(unknown)")
		}
	}
	sort.Strings(dropped)
	return out, dropped
}

func sanitizeEntry(section string, idx int, entry map[string]any, dropped *[]string) map[string]any {
	allowed := sectionFields[section]
	out := make(map[string]any, len(entry))
	prefix := section + "[" + strconv.Itoa(idx) + "]."
	for k, v := range entry {
		isList, ok := allowed[k]
		if !ok {
			*dropped = append(*dropped, prefix+k+"(unknown)")
			continue
		}
		if isList {
			if list, ok := coerceStringList(v); ok {
				out[k] = list
			} else {
				*dropped = append(*dropped, prefix+k+"(type)")
			}
			continue
		}
		if s, ok := coerceString(v); ok {
			out[k] = s
		} else {
			*dropped = append(*dropped, prefix+k+"(type)")
		}
	}
	return out
}

func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

func coerceStringList(v any) ([]any, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		if s, ok := coerceString(item); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, true
}

func set(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}
