// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// FlashViewModel is the one-line status message shown above the page content.
type FlashViewModel struct {
	Status int // 1 success, 0 neutral, -1 error
	Text   string
}

// NavViewModel holds the tab bar state for authenticated pages.
type NavViewModel struct {
	ActiveView string // "manager" or "tree"
	CSRFToken  string // for the logout form
}

// EntryViewModel holds presentation-ready data for one entry row.
type EntryViewModel struct {
	Category        string
	Key             string
	Value           string
	Description     string
	DescriptionHTML string // sanitized markdown rendering of Description
	EditPath        string
}

// CategoryViewModel is one collapsible section of the manager view.
type CategoryViewModel struct {
	Name    string
	Entries []EntryViewModel
}

// ManagerViewModel holds all data needed to render the manager view.
type ManagerViewModel struct {
	Nav        NavViewModel
	Flash      *FlashViewModel
	Categories []CategoryViewModel
}

// EditFormViewModel holds data for the edit form of an existing entry.
type EditFormViewModel struct {
	Nav         NavViewModel
	Flash       *FlashViewModel
	Category    string
	Key         string
	Value       string
	Description string
	RemovePath  string
}

// CreateFormViewModel holds data for the create form. Categories lists the
// existing categories for the select element; when empty only the free-text
// category input is shown.
type CreateFormViewModel struct {
	Nav              NavViewModel
	Flash            *FlashViewModel
	Categories       []string
	SelectedCategory string
	NewCategory      string
	Key              string
	Value            string
	Description      string
}

// HasCategories reports whether the category select should be shown.
func (v CreateFormViewModel) HasCategories() bool {
	return len(v.Categories) > 0
}

// ShowNewCategory reports whether the free-text category input is visible.
func (v CreateFormViewModel) ShowNewCategory() bool {
	return !v.HasCategories() || v.SelectedCategory == NewCategoryOption
}

// ConfirmRemoveViewModel holds data for the delete confirmation dialog.
type ConfirmRemoveViewModel struct {
	Nav      NavViewModel
	Category string
	Key      string
	BackPath string
}

// TreeViewModel holds the read-only variables tree, or the error that
// prevented loading it.
type TreeViewModel struct {
	Nav   NavViewModel
	JSON  string
	Error string
}

// LoginViewModel holds data for the credential form.
type LoginViewModel struct {
	CSRFToken string
	Error     string
}

// NewCategoryOption is the select value meaning "use the free-text category".
const NewCategoryOption = "__new__"
