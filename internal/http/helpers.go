package http

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// reportCacheKey canonicalizes a year selection (dedupe, sort) so reordered
// or repeated selections of the same years share one cache entry.
func reportCacheKey(years []string) string {
	seen := make(map[string]struct{}, len(years))
	uniq := make([]string, 0, len(years))
	for _, y := range years {
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		uniq = append(uniq, y)
	}
	sort.Strings(uniq)
	return "years=" + strings.Join(uniq, ",")
}

// parseYearsParam splits a comma-separated year list, dropping empty parts.
// Normalization (dedupe, sort, digit check) is the engine's job.
func parseYearsParam(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	years := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		years = append(years, p)
	}
	return years
}
