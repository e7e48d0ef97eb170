package validators

import (
	"net/http"
	"strings"

	pkgerrors "github.com/DanielHemmis/BggCollections/pkg/errors"
)

// ParseQueryList collects comma separated values from every occurrence of
// key. Blank entries are dropped and each value is cut to maxLen.
func ParseQueryList(r *http.Request, key string, maxItems, maxLen int) ([]string, error) {
	var out []string
	for _, raw := range r.URL.Query()[key] {
		for _, part := range strings.Split(raw, ",") {
			if value := SanitizeString(part, maxLen); value != "" {
				out = append(out, value)
			}
		}
	}
	if len(out) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter is required").WithDetails(map[string]any{"field": key})
	}
	if maxItems > 0 && len(out) > maxItems {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many values").WithDetails(map[string]any{"field": key, "max": maxItems})
	}
	return out, nil
}
