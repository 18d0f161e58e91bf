package main

import "strings"

// sqliteDSN appends driver query parameters to path, keeping any parameters
// the path already carries.
func sqliteDSN(path string, params ...string) string {
	if len(params) == 0 {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}
