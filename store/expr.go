package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// compiled holds DynamoDB expression fragments built from a Filter or Patch.
type compiled struct {
	expr   string
	names  map[string]string
	values map[string]types.AttributeValue
}

// compileFilter renders the non-id fields of a filter into an equality
// condition expression ("#f0 = :f0 AND #f1 = :f1"). Fields are processed
// in sorted order so the output is deterministic. The expression is empty
// when the filter holds no non-id fields.
func compileFilter(f Filter) (compiled, error) {
	c := compiled{
		names:  map[string]string{},
		values: map[string]types.AttributeValue{},
	}

	var clauses []string
	for i, key := range sortedFields(f) {
		av, err := attributevalue.Marshal(f[key])
		if err != nil {
			return compiled{}, fmt.Errorf("marshal filter field %q: %w", key, err)
		}
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":f%d", i)
		c.names[nameKey] = key
		c.values[valueKey] = av
		clauses = append(clauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}

	c.expr = strings.Join(clauses, " AND ")
	return c, nil
}

// compilePatch renders a patch into a SET update expression
// ("SET #p0 = :p0, #p1 = :p1"), fields in sorted order.
func compilePatch(p Patch) (compiled, error) {
	c := compiled{
		names:  map[string]string{},
		values: map[string]types.AttributeValue{},
	}

	var clauses []string
	for i, key := range sortedFields(Filter(p)) {
		av, err := attributevalue.Marshal(p[key])
		if err != nil {
			return compiled{}, fmt.Errorf("marshal patch field %q: %w", key, err)
		}
		nameKey := fmt.Sprintf("#p%d", i)
		valueKey := fmt.Sprintf(":p%d", i)
		c.names[nameKey] = key
		c.values[valueKey] = av
		clauses = append(clauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}
	if len(clauses) == 0 {
		return compiled{}, fmt.Errorf("empty patch")
	}

	c.expr = "SET " + strings.Join(clauses, ", ")
	return c, nil
}

// sortedFields returns the filter's field names minus the id field, sorted.
func sortedFields(f Filter) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		if k == FieldID {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// mergeExprNames merges expression attribute name maps.
func mergeExprNames(maps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}

// mergeExprValues merges expression attribute value maps.
func mergeExprValues(maps ...map[string]types.AttributeValue) map[string]types.AttributeValue {
	result := make(map[string]types.AttributeValue)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}
