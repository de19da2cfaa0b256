// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/envpanel/internal/adapter/driving/web/templates"
	vm "github.com/ericfisherdev/envpanel/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/envpanel/internal/application"
	"github.com/ericfisherdev/envpanel/internal/domain/model"
	"github.com/ericfisherdev/envpanel/internal/domain/port/driven"
)

const pageTitle = "Environment manager"

// Operator-facing messages.
const (
	msgInvalidCredential = "Invalid token. Please try again."
	msgLoginFailed       = "Could not reach the server. Please try again."
	msgLoadFailed        = "Failed to load environment variables"
	msgEntryNotFound     = "Variable not found"
	msgAdded             = "Variable added"
	msgUpdated           = "Updated"
	msgDeleted           = "Variable deleted"
	msgSaveFailed        = "An error occurred while saving"
	msgUpdateFailed      = "An error occurred while updating"
	msgDeleteFailed      = "An error occurred while deleting"
)

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	gate         *application.SessionGate
	entries      *application.EntryService
	cookieSecure bool
	logger       *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	gate *application.SessionGate,
	entries *application.EntryService,
	cookieSecure bool,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		gate:         gate,
		entries:      entries,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// Index is the session gate's page-load path: without a session whose
// credential the node API still accepts it shows the sign-in form, otherwise
// it redirects to the operator's last active view.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	session, err := h.gate.Resume(r.Context(), sessionIDFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, application.ErrCredentialCheck):
			// Keep the cookie; the session is usable once the node API answers.
			h.logger.Warn("session resume deferred", "error", err)
		case errors.Is(err, application.ErrNoSession):
			if sessionIDFromRequest(r) != "" {
				h.clearSessionCookie(w)
			}
		default:
			h.logger.Error("session resume failed", "error", err)
		}
		h.renderLogin(w, r, http.StatusOK, "")
		return
	}

	http.Redirect(w, r, viewPath(session.View), http.StatusSeeOther)
}

// Login validates the submitted credential and starts a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	session, err := h.gate.Login(r.Context(), r.FormValue("credential"))
	if err != nil {
		if errors.Is(err, application.ErrCredentialCheck) {
			h.renderLogin(w, r, http.StatusBadGateway, msgLoginFailed)
			return
		}
		if errors.Is(err, application.ErrInvalidCredential) {
			h.renderLogin(w, r, http.StatusUnauthorized, msgInvalidCredential)
			return
		}
		h.logger.Error("login failed", "error", err)
		h.renderLogin(w, r, http.StatusInternalServerError, msgLoginFailed)
		return
	}

	h.setSessionCookie(w, session.ID)
	http.Redirect(w, r, viewPath(session.View), http.StatusSeeOther)
}

// Logout ends the session and returns to the sign-in page.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	if err := h.gate.Logout(r.Context(), sessionIDFromRequest(r)); err != nil {
		h.logger.Error("logout failed", "error", err)
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Entries renders the manager view from a fresh fetch of the entry list.
func (h *Handler) Entries(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	h.selectView(r, session, model.ViewManager)

	snapshot, err := h.entries.Load(r.Context(), session.Credential)
	var flash *vm.FlashViewModel
	if err != nil {
		flash = errorFlash(msgLoadFailed)
	}

	h.renderManager(w, r, http.StatusOK, snapshot, flash)
}

// NewEntryForm renders the create form, offering the current categories.
func (h *Handler) NewEntryForm(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())

	snapshot, err := h.entries.Load(r.Context(), session.Credential)
	var flash *vm.FlashViewModel
	if err != nil {
		flash = errorFlash(msgLoadFailed)
	}

	form := vm.CreateFormViewModel{
		Nav:        h.nav(w, r, model.ViewManager),
		Flash:      flash,
		Categories: snapshot.Categories,
	}
	if len(snapshot.Categories) > 0 {
		form.SelectedCategory = snapshot.Categories[0]
	}

	h.render(w, r, http.StatusOK, &form.Nav, form.Flash, templates.CreateForm(form))
}

// CreateEntry submits a new entry. On success the manager view is rendered
// from the re-fetched list; on failure the form is shown again with the
// operator's input preserved.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())

	selected := r.FormValue("category")
	category := selected
	if selected == "" || selected == vm.NewCategoryOption {
		category = r.FormValue("new_category")
	}
	entry := model.Entry{
		Category:    category,
		Key:         r.FormValue("key"),
		Value:       r.FormValue("value"),
		Description: r.FormValue("description"),
	}

	snapshot, err := h.entries.Create(r.Context(), session.Credential, entry)
	if err != nil && !isRefreshError(err) {
		current, _ := h.entries.Load(r.Context(), session.Credential)
		form := vm.CreateFormViewModel{
			Nav:              h.nav(w, r, model.ViewManager),
			Flash:            errorFlash(userMessage(err, msgSaveFailed)),
			Categories:       current.Categories,
			SelectedCategory: selected,
			NewCategory:      r.FormValue("new_category"),
			Key:              entry.Key,
			Value:            entry.Value,
			Description:      entry.Description,
		}
		h.render(w, r, mutationFailureStatus(err), &form.Nav, form.Flash, templates.CreateForm(form))
		return
	}

	h.renderAfterMutation(w, r, snapshot, err, msgAdded)
}

// EditEntryForm renders the edit form for the entry named in the query string.
func (h *Handler) EditEntryForm(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	category, key := r.URL.Query().Get("category"), r.URL.Query().Get("key")

	snapshot, err := h.entries.Load(r.Context(), session.Credential)
	if err != nil {
		h.renderManager(w, r, http.StatusOK, snapshot, errorFlash(msgLoadFailed))
		return
	}

	entry, ok := snapshot.Find(category, key)
	if !ok {
		h.renderManager(w, r, http.StatusNotFound, snapshot, errorFlash(msgEntryNotFound))
		return
	}

	form := toEditFormViewModel(h.nav(w, r, model.ViewManager), entry, nil)
	h.render(w, r, http.StatusOK, &form.Nav, nil, templates.EditForm(form))
}

// UpdateEntry submits a changed value and description for an existing entry.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	entry := model.Entry{
		Category:    r.FormValue("category"),
		Key:         r.FormValue("key"),
		Value:       r.FormValue("value"),
		Description: r.FormValue("description"),
	}

	snapshot, err := h.entries.Update(r.Context(), session.Credential, entry)
	if err != nil && !isRefreshError(err) {
		form := toEditFormViewModel(h.nav(w, r, model.ViewManager), entry, errorFlash(userMessage(err, msgUpdateFailed)))
		h.render(w, r, mutationFailureStatus(err), &form.Nav, form.Flash, templates.EditForm(form))
		return
	}

	h.renderAfterMutation(w, r, snapshot, err, msgUpdated)
}

// ConfirmRemoveEntry renders the delete confirmation dialog.
func (h *Handler) ConfirmRemoveEntry(w http.ResponseWriter, r *http.Request) {
	category, key := r.URL.Query().Get("category"), r.URL.Query().Get("key")

	dialog := vm.ConfirmRemoveViewModel{
		Nav:      h.nav(w, r, model.ViewManager),
		Category: category,
		Key:      key,
		BackPath: entryPath("/app/entries/edit", category, key),
	}
	h.render(w, r, http.StatusOK, &dialog.Nav, nil, templates.ConfirmRemove(dialog))
}

// RemoveEntry deletes the confirmed entry.
func (h *Handler) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	category, key := r.FormValue("category"), r.FormValue("key")

	snapshot, err := h.entries.Remove(r.Context(), session.Credential, category, key)
	if err != nil && !isRefreshError(err) {
		flash := errorFlash(userMessage(err, msgDeleteFailed))
		current, loadErr := h.entries.Load(r.Context(), session.Credential)
		if entry, ok := current.Find(category, key); loadErr == nil && ok {
			form := toEditFormViewModel(h.nav(w, r, model.ViewManager), entry, flash)
			h.render(w, r, mutationFailureStatus(err), &form.Nav, flash, templates.EditForm(form))
			return
		}
		h.renderManager(w, r, mutationFailureStatus(err), current, flash)
		return
	}

	h.renderAfterMutation(w, r, snapshot, err, msgDeleted)
}

// Tree renders the read-only variables tree.
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	h.selectView(r, session, model.ViewTree)

	tree := vm.TreeViewModel{Nav: h.nav(w, r, model.ViewTree)}
	status := http.StatusOK
	pretty, err := h.entries.Tree(r.Context(), session.Credential)
	if err != nil {
		tree.Error = "Error fetching variables tree: " + treeErrorText(err)
		status = http.StatusBadGateway
	} else {
		tree.JSON = pretty
	}

	h.render(w, r, status, &tree.Nav, nil, templates.Tree(tree))
}

// renderAfterMutation renders the manager view from the snapshot re-fetched
// after a successful mutation. A failed re-fetch replaces the success
// message with the load failure and shows an empty list.
func (h *Handler) renderAfterMutation(w http.ResponseWriter, r *http.Request, snapshot model.Snapshot, err error, success string) {
	flash := successFlash(success)
	if err != nil {
		flash = errorFlash(msgLoadFailed)
	}
	h.renderManager(w, r, http.StatusOK, snapshot, flash)
}

func (h *Handler) renderManager(w http.ResponseWriter, r *http.Request, status int, snapshot model.Snapshot, flash *vm.FlashViewModel) {
	page := vm.ManagerViewModel{
		Nav:        h.nav(w, r, model.ViewManager),
		Categories: toCategoryViewModels(snapshot),
	}
	h.render(w, r, status, &page.Nav, flash, templates.Manager(page))
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	login := vm.LoginViewModel{
		CSRFToken: ensureCSRFToken(w, r, h.cookieSecure),
		Error:     errMsg,
	}
	h.renderPage(w, r, status, templates.Layout(pageTitle, nil, nil, templates.Login(login)))
}

// render wraps authenticated content in the layout with the tab bar.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, nav *vm.NavViewModel, flash *vm.FlashViewModel, content templ.Component) {
	h.renderPage(w, r, status, templates.Layout(pageTitle, nav, flash, content))
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, page templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := page.Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render page", "path", r.URL.Path, "error", err)
	}
}

func (h *Handler) nav(w http.ResponseWriter, r *http.Request, active model.View) vm.NavViewModel {
	token, ok := csrfTokenFromContext(r.Context())
	if !ok {
		token = ensureCSRFToken(w, r, h.cookieSecure)
	}
	return vm.NavViewModel{ActiveView: string(active), CSRFToken: token}
}

func (h *Handler) selectView(r *http.Request, session model.Session, view model.View) {
	if session.View == view {
		return
	}
	if err := h.gate.SelectView(r.Context(), session.ID, view); err != nil {
		h.logger.Warn("failed to persist active view", "view", view, "error", err)
	}
}

// viewPath maps a view to the route that renders it.
func viewPath(v model.View) string {
	if v == model.ViewTree {
		return "/app/tree"
	}
	return "/app/entries"
}

// userMessage picks the operator-facing text for a failed mutation: the
// validation message or the server's own rejection, else fallback.
func userMessage(err error, fallback string) string {
	var validationErr *application.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}
	var rejected *driven.RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message
	}
	return fallback
}

// statusTexter is implemented by node API errors that carry the HTTP status line.
type statusTexter interface {
	StatusText() string
}

// treeErrorText reduces a tree fetch failure to the status line or the
// transport message, leaving out endpoint and URL details.
func treeErrorText(err error) string {
	var st statusTexter
	if errors.As(err, &st) {
		return st.StatusText()
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err.Error()
	}
	return "invalid response from server"
}

func mutationFailureStatus(err error) int {
	var rejected *driven.RejectedError
	switch {
	case errors.Is(err, application.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.As(err, &rejected):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func isRefreshError(err error) bool {
	var refreshErr *application.RefreshError
	return errors.As(err, &refreshErr)
}
