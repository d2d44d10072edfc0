package entry

// AnchorName is the fixed content of the anchor indexing all badge classes.
const AnchorName = "all_badges_classes"

// Anchor is a well-known record whose address is derived from a constant. It
// is the base of the anchor->badge_class links.
type Anchor struct {
	Name string `json:"name"`
}

// NewAnchor returns the badge class anchor.
func NewAnchor() *Anchor {
	return &Anchor{Name: AnchorName}
}

// AnchorAddress returns the address of the badge class anchor. It does not
// depend on any store: every agent computes the same value.
func AnchorAddress() (Address, error) {
	return AddressOf(NewAnchor())
}
