// Package eval grades a predicted SQL query against a gold SQL query for
// semantic structural equivalence. Queries are canonicalized (foreign-key
// equivalent columns unified, literals and DISTINCT markers stripped) and then
// compared per SQL construct category; the exact-match verdict requires every
// category to agree.
package eval

import (
	"sort"

	"github.com/kyleconroy/sqlmatch/schema"
)

// BuildForeignKeyMap groups a database's columns into equivalence classes:
// any two columns appearing together in a foreign-key pair share a class.
// Every member maps to the class's lexicographically smallest identifier;
// columns outside any class are left unmapped (implicitly self-mapped).
func BuildForeignKeyMap(s *schema.Schema) (map[string]string, error) {
	var groups []map[string]bool

	for _, fk := range s.ForeignKeys() {
		key1, err := s.ColumnIDByIndex(fk[0])
		if err != nil {
			return nil, err
		}
		key2, err := s.ColumnIDByIndex(fk[1])
		if err != nil {
			return nil, err
		}

		var group map[string]bool
		for _, g := range groups {
			if g[key1] || g[key2] {
				group = g
				break
			}
		}
		if group == nil {
			group = make(map[string]bool)
			groups = append(groups, group)
		}
		group[key1] = true
		group[key2] = true
	}

	fkMap := make(map[string]string)
	for _, group := range groups {
		members := make([]string, 0, len(group))
		for key := range group {
			members = append(members, key)
		}
		sort.Strings(members)
		for _, key := range members {
			fkMap[key] = members[0]
		}
	}
	return fkMap, nil
}
