// Package docquery holds the query semantics shared by every DocumentStore
// implementation: clause evaluation, deterministic ordering and query
// hashing. Keeping these in one place guarantees the in-memory store and the
// DynamoDB client paginate and sort identically.
package docquery

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"skillcourt-backend/application/ports"
)

// Matches reports whether a record satisfies every where clause
func Matches(record ports.Record, where []ports.WhereClause) bool {
	for _, clause := range where {
		if !matchesClause(record, clause) {
			return false
		}
	}
	return true
}

func matchesClause(record ports.Record, clause ports.WhereClause) bool {
	value, ok := record[clause.Field]

	switch clause.Operator {
	case ports.OpEqual:
		return ok && Compare(value, clause.Value) == 0
	case ports.OpNotEqual:
		return !ok || Compare(value, clause.Value) != 0
	case ports.OpLessThan:
		return ok && Compare(value, clause.Value) < 0
	case ports.OpLessOrEqual:
		return ok && Compare(value, clause.Value) <= 0
	case ports.OpGreaterThan:
		return ok && Compare(value, clause.Value) > 0
	case ports.OpGreaterOrEqual:
		return ok && Compare(value, clause.Value) >= 0
	case ports.OpContains:
		return containsValue(value, clause.Value)
	}
	return false
}

func containsValue(haystack, needle interface{}) bool {
	want := fmt.Sprint(needle)
	switch vs := haystack.(type) {
	case []interface{}:
		for _, v := range vs {
			if fmt.Sprint(v) == want {
				return true
			}
		}
	case []string:
		for _, v := range vs {
			if v == want {
				return true
			}
		}
	case string:
		return strings.Contains(vs, want)
	}
	return false
}

// Sort orders records by the orderBy clauses in the order supplied, breaking
// all remaining ties on record id so identical inputs against unchanged data
// always produce identical output.
func Sort(records []ports.Record, orderBy []ports.OrderClause) {
	sort.SliceStable(records, func(i, j int) bool {
		for _, clause := range orderBy {
			c := Compare(records[i][clause.Field], records[j][clause.Field])
			if c == 0 {
				continue
			}
			if clause.Descending {
				return c > 0
			}
			return c < 0
		}
		return records[i].ID() < records[j].ID()
	})
}

// Compare orders two field values: numbers numerically, everything else by
// string form. Missing values sort first.
func Compare(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Hash derives a stable cache key component from the query shape
func Hash(opts ports.QueryOptions) string {
	var b strings.Builder
	for _, w := range opts.Where {
		fmt.Fprintf(&b, "w:%s%s%v;", w.Field, w.Operator, w.Value)
	}
	for _, o := range opts.OrderBy {
		fmt.Fprintf(&b, "o:%s:%t;", o.Field, o.Descending)
	}
	fmt.Fprintf(&b, "l:%d;c:%s", opts.Limit, opts.Cursor)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}
