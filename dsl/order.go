package dsl

import "slices"

// visit marks used while ordering operations.
const (
	unvisited = iota
	visiting
	visited
)

// Order returns ops in an order where every operation follows the
// siblings it depends on. Dependencies are resolved against the aliases of
// ops only; names that match no sibling are ignored. Operations with no
// dependency edge keep their source order. A cycle fails with a
// *DependencyError naming the operation that was reached twice.
func Order(ops []*Operation) ([]*Operation, error) {
	return orderBy(ops, inputDependencies)
}

func inputDependencies(op *Operation) []string {
	return op.Dependencies
}

// placeholderDependencies extends the input dependencies of an agent with
// its {{name}} placeholders.
func placeholderDependencies(op *Operation) []string {
	cfg := op.Agent()
	if cfg == nil {
		return op.Dependencies
	}
	names := cfg.Placeholders()
	if len(names) == 0 {
		return op.Dependencies
	}

	deps := append([]string(nil), op.Dependencies...)
	for _, name := range names {
		if !slices.Contains(deps, name) {
			deps = append(deps, name)
		}
	}
	return deps
}

func orderBy(ops []*Operation, dependencies func(*Operation) []string) ([]*Operation, error) {
	byName := make(map[string]*Operation, len(ops))
	for _, op := range ops {
		if op.Name != "" {
			byName[op.Name] = op
		}
	}

	marks := make(map[*Operation]int, len(ops))
	ordered := make([]*Operation, 0, len(ops))

	var visit func(op *Operation) error
	visit = func(op *Operation) error {
		switch marks[op] {
		case visited:
			return nil
		case visiting:
			return &DependencyError{OperationID: op.ID, Alias: op.Name}
		}

		marks[op] = visiting
		for _, dep := range dependencies(op) {
			if target, ok := byName[dep]; ok {
				if err := visit(target); err != nil {
					return err
				}
			}
		}
		marks[op] = visited
		ordered = append(ordered, op)
		return nil
	}

	for _, op := range ops {
		if err := visit(op); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// Validate checks every nesting level of the query for dependency
// cycles without executing anything.
func (q *Query) Validate() error {
	var check func(ops []*Operation) error
	check = func(ops []*Operation) error {
		if _, err := Order(ops); err != nil {
			return err
		}
		for _, op := range ops {
			if err := check(op.Children()); err != nil {
				return err
			}
		}
		return nil
	}
	return check(q.Operations)
}
