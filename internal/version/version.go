// Package version holds the campipe release number.
package version

import "fmt"

// Version is a semantic version number.
type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// App is the version reported by the campipe command.
var App = Version{Major: 0, Minor: 3, Patch: 0}
