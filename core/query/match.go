package query

import (
	"cmp"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/asaidimu/go-datamap/core/mapping"
)

// PredicateFunction evaluates a custom operator against one property value.
type PredicateFunction func(value any, args any) (bool, error)

// Matcher evaluates filters against loaded entities in memory. Custom
// operators, which cannot be rendered to SQL, are registered as predicates.
type Matcher struct {
	fm         *mapping.FieldMap
	mu         sync.RWMutex
	predicates map[ComparisonOperator]PredicateFunction
	logger     *zap.Logger
}

// NewMatcher returns a Matcher for entities described by fm.
func NewMatcher(fm *mapping.FieldMap, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{
		fm:         fm,
		predicates: make(map[ComparisonOperator]PredicateFunction),
		logger:     logger,
	}
}

// RegisterPredicate installs fn for a custom operator.
func (m *Matcher) RegisterPredicate(op ComparisonOperator, fn PredicateFunction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predicates[op] = fn
	m.logger.Debug("Registered filter predicate", zap.String("operator", string(op)))
}

// Match reports whether entity satisfies filter. A nil filter matches
// everything.
func (m *Matcher) Match(filter *QueryFilter, entity any) (bool, error) {
	if filter == nil {
		return true, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.evaluate(filter, entity)
}

// Filter returns the members of items matching filter.
func Filter[T any](m *Matcher, filter *QueryFilter, items []T) ([]T, error) {
	var out []T
	for _, it := range items {
		ok, err := m.Match(filter, it)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, it)
		}
	}
	m.logger.Debug("Filtered items in memory", zap.Int("in", len(items)), zap.Int("out", len(out)))
	return out, nil
}

func (m *Matcher) evaluate(filter *QueryFilter, entity any) (bool, error) {
	if filter.Condition != nil {
		return m.condition(filter.Condition, entity)
	}
	if filter.Group == nil {
		return false, fmt.Errorf("query: filter has neither a condition nor a group")
	}
	g := filter.Group
	matched, all := false, true
	for i := range g.Conditions {
		ok, err := m.evaluate(&g.Conditions[i], entity)
		if err != nil {
			return false, err
		}
		matched = matched || ok
		all = all && ok
	}
	switch g.Operator {
	case LogicalOperatorAnd:
		return all, nil
	case LogicalOperatorOr:
		return matched, nil
	case LogicalOperatorNot:
		return !all, nil
	case LogicalOperatorNor:
		return !matched, nil
	default:
		return false, fmt.Errorf("query: unsupported logical operator %q", g.Operator)
	}
}

func (m *Matcher) condition(cond *FilterCondition, entity any) (bool, error) {
	f, ok := m.fm.Lookup(cond.Field)
	if !ok {
		return false, fmt.Errorf("query: filter on unmapped field %q", cond.Field)
	}
	v := f.Value(entity)

	if !cond.Operator.IsStandard() {
		fn, ok := m.predicates[cond.Operator]
		if !ok {
			return false, fmt.Errorf("query: no predicate registered for operator %q", cond.Operator)
		}
		return fn(v, cond.Value)
	}

	switch cond.Operator {
	case ComparisonOperatorEq:
		return mapping.Equal(v, cond.Value), nil
	case ComparisonOperatorNeq:
		return !mapping.Equal(v, cond.Value), nil
	case ComparisonOperatorExists:
		return !mapping.Equal(v, nil), nil
	case ComparisonOperatorNotExists:
		return mapping.Equal(v, nil), nil
	case ComparisonOperatorIn, ComparisonOperatorNin:
		found := false
		for _, x := range listOf(cond.Value) {
			if mapping.Equal(v, x) {
				found = true
				break
			}
		}
		return found == (cond.Operator == ComparisonOperatorIn), nil
	case ComparisonOperatorContains, ComparisonOperatorNotContains,
		ComparisonOperatorStartsWith, ComparisonOperatorEndsWith:
		if v == nil {
			return false, nil
		}
		s, arg := fmt.Sprint(v), fmt.Sprint(cond.Value)
		switch cond.Operator {
		case ComparisonOperatorContains:
			return strings.Contains(s, arg), nil
		case ComparisonOperatorNotContains:
			return !strings.Contains(s, arg), nil
		case ComparisonOperatorStartsWith:
			return strings.HasPrefix(s, arg), nil
		default:
			return strings.HasSuffix(s, arg), nil
		}
	}

	// Ordering comparisons are false against NULL, as in SQL.
	if v == nil || cond.Value == nil {
		return false, nil
	}
	c, err := compare(v, cond.Value)
	if err != nil {
		return false, err
	}
	switch cond.Operator {
	case ComparisonOperatorLt:
		return c < 0, nil
	case ComparisonOperatorLte:
		return c <= 0, nil
	case ComparisonOperatorGt:
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

func compare(a, b any) (int, error) {
	bv, err := mapping.Coerce(b, reflect.TypeOf(a))
	if err != nil {
		return 0, fmt.Errorf("query: cannot compare %T with %T: %w", a, b, err)
	}
	av := reflect.ValueOf(a)
	switch {
	case av.CanInt():
		return cmp.Compare(av.Int(), bv.Int()), nil
	case av.CanUint():
		return cmp.Compare(av.Uint(), bv.Uint()), nil
	case av.CanFloat():
		return cmp.Compare(av.Float(), bv.Float()), nil
	case av.Kind() == reflect.String:
		return strings.Compare(av.String(), bv.String()), nil
	}
	if t, ok := a.(time.Time); ok {
		return t.Compare(bv.Interface().(time.Time)), nil
	}
	return 0, fmt.Errorf("query: %T values are not ordered", a)
}
