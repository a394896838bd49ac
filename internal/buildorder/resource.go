// Package buildorder searches for the build order of producer bots that yields the
// most output resource within a fixed number of time steps.
package buildorder

import "fmt"

// Resource is one kind of stockpiled material. Each resource kind also names the
// bot kind that produces it.
type Resource int

// Later kinds are built from earlier ones, so the order is significant.
const (
	Ore Resource = iota
	Clay
	Obsidian
	Geode

	NumResources = 4
)

const (
	// Base is the kind of the single bot every search starts with.
	Base = Ore
	// Output is the kind whose final stockpile is maximised.
	Output = Geode
)

// Resources lists every kind in declaration order.
var Resources = [NumResources]Resource{Ore, Clay, Obsidian, Geode}

var resourceNames = [NumResources]string{"ore", "clay", "obsidian", "geode"}

func (r Resource) String() string {
	if r < 0 || int(r) >= NumResources {
		return fmt.Sprintf("Resource(%d)", int(r))
	}
	return resourceNames[r]
}

// ParseResource maps a lower-case name such as "obsidian" to its Resource.
func ParseResource(s string) (Resource, bool) {
	switch s {
	case "ore":
		return Ore, true
	case "clay":
		return Clay, true
	case "obsidian":
		return Obsidian, true
	case "geode":
		return Geode, true
	}
	return 0, false
}
