// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package forms

import (
	"sort"
	"strconv"
)

// Match resolves a nested server message tree onto the paths of index.
//
// Object keys extend the path like the tree walk does for sections and conditionals,
// list positions extend it like repeat instances. Messages for paths that are not in
// the index are dropped.
func Match(index *Index, messages any) map[string]string {
	result := map[string]string{}
	matchMessages(index, "", messages, result)

	return result
}

func matchMessages(index *Index, path string, head any, result map[string]string) {
	switch val := head.(type) {
	case string:
		if index.Has(path) {
			result[path] = val
		}

	case map[string]string:
		for k, msg := range val {
			matchMessages(index, JoinPath(path, k), msg, result)
		}

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			matchMessages(index, JoinPath(path, k), val[k], result)
		}

	case []any:
		for i, item := range val {
			next := strconv.Itoa(i)
			if path != "" {
				next = RepeatPath(path, i)
			}
			matchMessages(index, next, item, result)
		}
	}
}
