package sfclient

import (
	"net/url"
	"strconv"
	"strings"
)

// Eq renders an OData equality test against a single-quoted string literal.
// Embedded quotes in value are doubled, so caller input can never break out
// of the literal.
func Eq(field, value string) string {
	return field + " eq '" + strings.ReplaceAll(value, "'", "''") + "'"
}

// And joins filter expressions with the OData conjunction.
func And(exprs ...string) string {
	return strings.Join(exprs, " and ")
}

// Query describes one request against the source. Zero-valued fields are
// omitted from the URL; Skip is always emitted when Paged is set so page
// boundaries stay explicit.
type Query struct {
	Resource string
	Filter   string
	Select   string
	OrderBy  string
	Expand   string
	Top      int
	Skip     int
	Paged    bool
	Extra    url.Values
}

func (q Query) encode() string {
	v := url.Values{}
	for key, vals := range q.Extra {
		v[key] = vals
	}
	if q.Paged || q.Skip > 0 {
		v.Set("$skip", strconv.Itoa(q.Skip))
	}
	if q.Top > 0 {
		v.Set("$top", strconv.Itoa(q.Top))
	}
	if q.Filter != "" {
		v.Set("$filter", q.Filter)
	}
	if q.Select != "" {
		v.Set("$select", q.Select)
	}
	if q.OrderBy != "" {
		v.Set("$orderby", q.OrderBy)
	}
	if q.Expand != "" {
		v.Set("$expand", q.Expand)
	}
	return v.Encode()
}
