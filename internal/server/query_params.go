package server

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	cfdomain "github.com/smallbiznis/mesa/internal/customfield/domain"
)

// Query keys consumed by pagination and sorting rather than filtering.
var reservedQueryKeys = map[string]bool{
	"page":    true,
	"perPage": true,
	"sortBy":  true,
	"orderBy": true,
}

type listParams struct {
	Filters map[string]any
	SortBy  string
	OrderBy string
	Page    int
	PerPage int
}

// parseListParams reads pagination plus the generic filter map from the query
// string. Operator filters use bracket syntax: price[operator]=>= with
// price[value]=10, or status[operator]=in with repeated status[values]
// entries. Plain keys stay scalar so equality and the isNull/isNotNull tags
// work unchanged.
func parseListParams(c *gin.Context) listParams {
	params := listParams{
		Filters: map[string]any{},
		SortBy:  c.Query("sortBy"),
		OrderBy: c.Query("orderBy"),
		Page:    parsePositiveInt(c.Query("page")),
		PerPage: parsePositiveInt(c.Query("perPage")),
	}

	composite := map[string]map[string]any{}
	for key, values := range c.Request.URL.Query() {
		if reservedQueryKeys[key] || len(values) == 0 {
			continue
		}

		base, attr, bracketed := cutBracket(key)
		if !bracketed {
			params.Filters[key] = values[0]
			continue
		}

		parts, ok := composite[base]
		if !ok {
			parts = map[string]any{}
			composite[base] = parts
		}
		switch attr {
		case "values":
			list := make([]any, 0, len(values))
			for _, v := range values {
				for _, item := range strings.Split(v, ",") {
					list = append(list, item)
				}
			}
			parts[attr] = list
		default:
			parts[attr] = values[0]
		}
	}

	for base, parts := range composite {
		params.Filters[base] = parts
	}
	return params
}

// cutBracket splits "price[operator]" into ("price", "operator", true).
func cutBracket(key string) (base, attr string, ok bool) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key, "", false
	}
	return key[:open], key[open+1 : len(key)-1], true
}

func parsePositiveInt(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		return 0
	}
	return value
}

// decodeBody unmarshals the request body into dst and returns the payload
// keys that matched no native field, in a stable order. Those leftovers are
// handed to the merge engine as candidate custom-field entries.
func decodeBody(c *gin.Context, dst any, known map[string]bool) ([]cfdomain.Entry, error) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(payload))
	for name := range payload {
		if known[name] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]cfdomain.Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, cfdomain.Entry{Name: name, Value: payload[name]})
	}
	return entries, nil
}
