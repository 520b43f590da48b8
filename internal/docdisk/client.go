package docdisk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	ConfirmDelete(doc Document) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(doc Document) bool

func (f ConfirmFunc) ConfirmDelete(doc Document) bool { return f(doc) }

// Options configures a Client.
type Options struct {
	Backend   Backend
	Storage   LocalStorage
	Encryptor Encryptor // optional
	Clock     Clock
	Logger    Logger

	// DismissAfter overrides DefaultDismissAfter.
	DismissAfter time.Duration
}

// Client is the document-session state machine. It moves between
// Unauthenticated, ListView and EditorView, owns the session's document
// cache, the inline error banner and the notification channel.
//
// Backend calls are made without holding the lock; their results are only
// applied if the session that issued them is still the live one.
type Client struct {
	session  *SessionStore
	notifier *Notifier
	logger   Logger

	mu     sync.Mutex // protects the fields below
	view   ViewState  // ListView or EditorView; Unauthenticated is derived
	docs   *DocumentCache
	banner string
}

// NewClient creates a Client in the Unauthenticated state.
func NewClient(opts Options) *Client {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = NewNopLogger()
	}

	return &Client{
		session:  NewSessionStore(opts.Backend, opts.Storage, opts.Encryptor, clock, logger),
		notifier: NewNotifier(clock, opts.DismissAfter),
		logger:   logger,
		view:     ListView{},
	}
}

// Start restores a persisted session, if there is one, and loads its
// documents. A credential the backend rejects is cleared silently.
func (c *Client) Start(ctx context.Context) bool {
	if !c.session.Restore(ctx) {
		return false
	}
	c.enterAuthenticated(ctx)
	return true
}

// Login authenticates (registering first if form.Register is set) and enters
// the authenticated state. Failures are also set as the inline banner.
// A signed-in session is ended first, so a failed attempt leaves the client
// unauthenticated.
func (c *Client) Login(ctx context.Context, form LoginForm) error {
	if c.session.Authenticated() {
		c.Logout()
	}
	c.setBanner("")

	_, err := c.session.Login(ctx, form)
	if err != nil {
		if !errors.Is(err, ErrSessionEnded) {
			c.setBanner(MessageOf(err))
		}
		return err
	}

	c.enterAuthenticated(ctx)
	// Greet the name as typed; the backend stores it lower-cased.
	c.notifier.Show(fmt.Sprintf(MsgWelcome, strings.TrimSpace(form.Username)), SeveritySuccess)
	return nil
}

// enterAuthenticated binds a fresh document cache to the live session and
// loads it. A failed load still leaves the user signed in, with a banner.
func (c *Client) enterAuthenticated(ctx context.Context) {
	api, gen := c.session.API()
	if api == nil {
		return
	}
	cache := NewDocumentCache(api, c.logger)

	c.mu.Lock()
	if c.docs != nil {
		c.docs.Close()
	}
	c.docs = cache
	c.view = ListView{}
	c.mu.Unlock()

	if err := cache.Refresh(ctx); err != nil {
		if errors.Is(err, ErrSessionEnded) || !c.session.Current(gen) {
			return
		}
		c.logger.Error("loading documents", "error", err)
		c.setBanner(MsgLoadFailed)
	}
}

// Logout drops the session, its documents and any unsaved draft.
func (c *Client) Logout() {
	c.session.Logout()

	c.mu.Lock()
	if c.docs != nil {
		c.docs.Close()
		c.docs = nil
	}
	c.view = ListView{}
	c.banner = ""
	c.mu.Unlock()

	c.logger.Info("logged out")
}

// Refresh reloads the document list.
func (c *Client) Refresh(ctx context.Context) error {
	docs, err := c.cache()
	if err != nil {
		return err
	}
	if err := docs.Refresh(ctx); err != nil {
		if errors.Is(err, ErrSessionEnded) {
			return err
		}
		c.logger.Error("refreshing documents", "error", err)
		c.setBanner(MsgLoadFailed)
		return newError(KindTransient, MsgLoadFailed, err)
	}
	return nil
}

// NewDocument opens the editor on an empty draft.
func (c *Client) NewDocument() error {
	return c.openEditor(nil)
}

// SelectDocument opens the editor on a cached document.
func (c *Client) SelectDocument(id string) error {
	docs, err := c.cache()
	if err != nil {
		return err
	}
	doc, ok := docs.Find(id)
	if !ok {
		return newError(KindValidation, MsgDocumentNotFound, nil)
	}
	return c.openEditor(&doc)
}

func (c *Client) openEditor(target *Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.docs == nil {
		return newError(KindValidation, MsgNotSignedIn, nil)
	}
	if _, ok := c.view.(ListView); !ok {
		return newError(KindValidation, MsgNotInList, nil)
	}
	c.view = EditorView{Target: target, Draft: NewDraft(target)}
	return nil
}

// Cancel leaves the editor, discarding the draft.
func (c *Client) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.view.(EditorView); !ok || c.docs == nil {
		return newError(KindValidation, MsgNoOpenDocument, nil)
	}
	c.view = ListView{}
	return nil
}

// Draft returns the draft of the open editor.
func (c *Client) Draft() (*Draft, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ed, ok := c.view.(EditorView)
	if !ok || c.docs == nil {
		return nil, false
	}
	return ed.Draft, true
}

// Save sends the draft to the backend, creating or updating depending on the
// editor target, and returns to the list. A blank title is rejected locally.
func (c *Client) Save(ctx context.Context) error {
	c.mu.Lock()
	ed, ok := c.view.(EditorView)
	if !ok || c.docs == nil {
		c.mu.Unlock()
		return newError(KindValidation, MsgNoOpenDocument, nil)
	}
	title := strings.TrimSpace(ed.Draft.Title)
	if title == "" {
		c.mu.Unlock()
		return newError(KindValidation, MsgTitleRequired, nil)
	}
	c.banner = ""
	docs := c.docs
	in := DocumentInput{Title: title, Content: ed.Draft.Content}
	c.mu.Unlock()

	var err error
	if ed.IsNew() {
		err = docs.Create(ctx, in)
	} else {
		err = docs.Update(ctx, ed.Target.ID, in)
	}

	switch {
	case errors.Is(err, ErrSessionEnded):
		return err
	case errors.Is(err, ErrRefreshFailed):
		c.logger.Error("refreshing documents after save", "error", err)
		c.setBanner(MsgLoadFailed)
	case err != nil:
		c.logger.Error("saving document", "error", err)
		c.setBanner(MsgSaveFailed)
		return newError(KindTransient, MsgSaveFailed, err)
	}

	c.mu.Lock()
	if c.docs != docs {
		c.mu.Unlock()
		return ErrSessionEnded
	}
	c.view = ListView{}
	c.mu.Unlock()

	c.notifier.Show(MsgSaved, SeveritySuccess)
	return nil
}

// DeleteDocument deletes a document from the list view after confirm agrees.
// A declined confirmation changes nothing and calls nothing.
func (c *Client) DeleteDocument(ctx context.Context, id string, confirm Confirmer) error {
	c.mu.Lock()
	docs := c.docs
	_, inList := c.view.(ListView)
	c.mu.Unlock()

	if docs == nil {
		return newError(KindValidation, MsgNotSignedIn, nil)
	}
	if !inList {
		return newError(KindValidation, MsgNotInList, nil)
	}
	doc, ok := docs.Find(id)
	if !ok {
		return newError(KindValidation, MsgDocumentNotFound, nil)
	}
	if confirm == nil || !confirm.ConfirmDelete(doc) {
		return nil
	}

	err := docs.Delete(ctx, id)
	switch {
	case errors.Is(err, ErrSessionEnded):
		return err
	case errors.Is(err, ErrRefreshFailed):
		c.logger.Error("refreshing documents after delete", "error", err)
		c.setBanner(MsgLoadFailed)
	case err != nil:
		c.logger.Error("deleting document", "id", id, "error", err)
		c.notifier.Show(MsgDeleteFailed, SeverityError)
		return newError(KindTransient, MsgDeleteFailed, err)
	}

	c.notifier.Show(MsgDeleted, SeveritySuccess)
	return nil
}

// View returns the current view. It is Unauthenticated whenever no identity
// has been validated.
func (c *Client) View() ViewState {
	if !c.session.Authenticated() {
		return Unauthenticated{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.docs == nil {
		return Unauthenticated{}
	}
	return c.view
}

// Identity returns the signed-in user, or nil.
func (c *Client) Identity() *Identity { return c.session.Identity() }

// Credential returns the held credential, or nil.
func (c *Client) Credential() *Credential { return c.session.Credential() }

// Documents returns the cached document list.
func (c *Client) Documents() []Document {
	c.mu.Lock()
	docs := c.docs
	c.mu.Unlock()
	if docs == nil {
		return nil
	}
	return docs.List()
}

// Document returns a cached document by id.
func (c *Client) Document(id string) (Document, bool) {
	c.mu.Lock()
	docs := c.docs
	c.mu.Unlock()
	if docs == nil {
		return Document{}, false
	}
	return docs.Find(id)
}

// Banner returns the inline error message, or "".
func (c *Client) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

// Notifier returns the client's notification channel.
func (c *Client) Notifier() *Notifier { return c.notifier }

// Close cancels the pending notification timer.
func (c *Client) Close() {
	c.notifier.Close()
}

func (c *Client) cache() (*DocumentCache, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.docs == nil {
		return nil, newError(KindValidation, MsgNotSignedIn, nil)
	}
	return c.docs, nil
}

func (c *Client) setBanner(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.banner = msg
}
