package constants

// Lineage names which single-parent line a coalescence walk follows.
type Lineage string

const (
	// LineagePaternal follows father links (Y chromosome).
	LineagePaternal Lineage = "paternal"

	// LineageMaternal follows mother links (mitochondrial DNA).
	LineageMaternal Lineage = "maternal"

	// LineageBoth requests both walks.
	LineageBoth Lineage = "both"
)

// Valid returns true if the lineage is a recognized value.
func (l Lineage) Valid() bool {
	switch l {
	case LineagePaternal, LineageMaternal, LineageBoth:
		return true
	}
	return false
}

// Includes reports whether a request for l covers the single lineage other.
func (l Lineage) Includes(other Lineage) bool {
	return l == other || l == LineageBoth
}

// String returns the string representation of the lineage.
func (l Lineage) String() string {
	return string(l)
}
