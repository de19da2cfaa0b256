package web

import (
	"net/url"

	vm "github.com/ericfisherdev/envpanel/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/envpanel/internal/domain/model"
)

// toCategoryViewModels groups the snapshot's entries under their categories
// in the snapshot's category order.
func toCategoryViewModels(s model.Snapshot) []vm.CategoryViewModel {
	vms := make([]vm.CategoryViewModel, 0, len(s.Categories))
	for _, name := range s.Categories {
		entries := s.InCategory(name)
		rows := make([]vm.EntryViewModel, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, toEntryViewModel(e))
		}
		vms = append(vms, vm.CategoryViewModel{Name: name, Entries: rows})
	}
	return vms
}

// toEntryViewModel converts a domain Entry to an EntryViewModel.
func toEntryViewModel(e model.Entry) vm.EntryViewModel {
	return vm.EntryViewModel{
		Category:        e.Category,
		Key:             e.Key,
		Value:           e.Value,
		Description:     e.Description,
		DescriptionHTML: RenderMarkdown(e.Description),
		EditPath:        entryPath("/app/entries/edit", e.Category, e.Key),
	}
}

// toEditFormViewModel converts a domain Entry into the edit form's data.
func toEditFormViewModel(nav vm.NavViewModel, e model.Entry, flash *vm.FlashViewModel) vm.EditFormViewModel {
	return vm.EditFormViewModel{
		Nav:         nav,
		Flash:       flash,
		Category:    e.Category,
		Key:         e.Key,
		Value:       e.Value,
		Description: e.Description,
		RemovePath:  entryPath("/app/entries/remove", e.Category, e.Key),
	}
}

// entryPath builds base?category=..&key=.. with both values query-escaped.
func entryPath(base, category, key string) string {
	q := url.Values{}
	q.Set("category", category)
	q.Set("key", key)
	return base + "?" + q.Encode()
}

func errorFlash(text string) *vm.FlashViewModel {
	return &vm.FlashViewModel{Status: int(model.FlashError), Text: text}
}

func successFlash(text string) *vm.FlashViewModel {
	return &vm.FlashViewModel{Status: int(model.FlashSuccess), Text: text}
}
