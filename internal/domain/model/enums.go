package model

// View identifies which panel an authenticated operator sees.
type View string

const (
	ViewManager View = "manager" // Editable list of categorized entries.
	ViewTree    View = "tree"    // Read-only JSON tree served by the node API.
)

// Valid reports whether v is one of the known views.
func (v View) Valid() bool {
	return v == ViewManager || v == ViewTree
}

// FlashStatus mirrors the three indicator colors of the panel's message bar.
type FlashStatus int

const (
	FlashError   FlashStatus = -1
	FlashNeutral FlashStatus = 0
	FlashSuccess FlashStatus = 1
)
