package auth

import "sort"

// PermissionSet is the de-duplicated union of operations granted through a user's roles.
type PermissionSet struct {
	ops   []Operation
	names map[string]struct{}
}

// EffectivePermissions derives the permission set of u. A nil user or a user without roles
// yields the empty set. Operations are de-duplicated by identifier; the first occurrence wins.
func EffectivePermissions(u *User) PermissionSet {
	set := PermissionSet{names: map[string]struct{}{}}
	if u == nil {
		return set
	}
	seen := make(map[string]struct{})
	for _, role := range u.Roles {
		for _, op := range role.Operations {
			if op.Name == "" {
				continue
			}
			key := op.ID
			if key == "" {
				key = "name:" + op.Name
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			set.ops = append(set.ops, op)
			set.names[op.Name] = struct{}{}
		}
	}
	return set
}

// Has reports whether name is granted.
func (s PermissionSet) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of distinct operations in the set.
func (s PermissionSet) Len() int { return len(s.ops) }

// Names returns the granted operation names in sorted order.
func (s PermissionSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Operations returns a copy of the backing operations in first-seen order.
func (s PermissionSet) Operations() []Operation {
	out := make([]Operation, len(s.ops))
	copy(out, s.ops)
	return out
}

// HasPermission reports whether u is granted the named operation.
func HasPermission(u *User, name string) bool {
	return EffectivePermissions(u).Has(name)
}

// HasAny reports whether u is granted at least one of names.
func HasAny(u *User, names ...string) bool {
	if u == nil {
		return false
	}
	set := EffectivePermissions(u)
	for _, n := range names {
		if set.Has(n) {
			return true
		}
	}
	return false
}

// HasAll reports whether u is granted every one of names. An empty list is satisfied by any
// non-nil user.
func HasAll(u *User, names ...string) bool {
	if u == nil {
		return false
	}
	set := EffectivePermissions(u)
	for _, n := range names {
		if !set.Has(n) {
			return false
		}
	}
	return true
}

// OperationsByCategory returns the user's effective operations tagged with category.
func OperationsByCategory(u *User, category string) []Operation {
	var out []Operation
	for _, op := range EffectivePermissions(u).ops {
		if op.Category == category {
			out = append(out, op)
		}
	}
	return out
}

// OperationGroup is a category with its operations, as shown when composing a role.
type OperationGroup struct {
	Category   string      `json:"type"`
	Operations []Operation `json:"operations"`
}

// GroupOperations groups ops by category, keeping categories and operations in first-seen order.
func GroupOperations(ops []Operation) []OperationGroup {
	index := make(map[string]int)
	var groups []OperationGroup
	for _, op := range ops {
		i, ok := index[op.Category]
		if !ok {
			i = len(groups)
			index[op.Category] = i
			groups = append(groups, OperationGroup{Category: op.Category})
		}
		groups[i].Operations = append(groups[i].Operations, op)
	}
	return groups
}
