package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"docdisk/internal/api"
	"docdisk/internal/config"
	"docdisk/internal/docdisk"
	"docdisk/internal/encryption"
	"docdisk/internal/storage"
	"docdisk/internal/ui"
)

// Options tune how an App is built.
type Options struct {
	// Verbose also logs to stderr, at debug level.
	Verbose bool

	// Clock replaces the real clock. Tests only.
	Clock docdisk.Clock
}

// App is the application layer between the CLI and docdisk.Client.
// It constructs all dependencies from config and exposes high-level
// operations; the caller must call Close when done.
type App struct {
	cfg      *config.Config
	storage  docdisk.LocalStorage
	backend  *api.Client
	client   *docdisk.Client
	renderer *ui.Renderer
	op       *Operation
	logger   *slog.Logger
	logFile  *os.File
	started  bool
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Login", "List").
func NewApp(ctx context.Context, cfg *config.Config, operation string, opts Options) (*App, error) {
	clock := opts.Clock
	if clock == nil {
		clock = docdisk.RealClock{}
	}
	cfg.ApplyDefaults()

	op := NewOperation(operation, clock.Now())
	logger, logFile, err := newLogger(cfg.LogDir, op.ID, opts.Verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	adapter := &slogAdapter{l: logger}

	store, err := storage.NewStorageFromConfig(ctx, cfg.Storage, clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating storage: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		closeStorage(store)
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if age, ok := enc.(*encryption.AgeEncryptor); ok && !age.IsConfigured() {
		if err := age.Setup(); err != nil {
			closeStorage(store)
			logFile.Close()
			return nil, fmt.Errorf("setting up encryption: %w", err)
		}
		logger.Info("generated credential key", "path", cfg.Encryption.IdentityPath)
	}

	backend, err := api.New(cfg.ServerURL,
		api.WithTimeout(cfg.HTTP.Timeout.Duration),
		api.WithLogger(adapter))
	if err != nil {
		closeStorage(store)
		logFile.Close()
		return nil, fmt.Errorf("creating API client: %w", err)
	}

	client := docdisk.NewClient(docdisk.Options{
		Backend:      backend,
		Storage:      store,
		Encryptor:    enc,
		Clock:        clock,
		Logger:       adapter,
		DismissAfter: cfg.Notifications.DismissAfter.Duration,
	})

	logger.Info("operation started", "operation", operation, "server", backend.BaseURL())

	return &App{
		cfg:      cfg,
		storage:  store,
		backend:  backend,
		client:   client,
		renderer: ui.NewRenderer(nil),
		op:       op,
		logger:   logger,
		logFile:  logFile,
	}, nil
}

func (a *App) Config() *config.Config { return a.cfg }

// Client returns the underlying session client, for interactive use.
func (a *App) Client() *docdisk.Client { return a.client }

func (a *App) Renderer() *ui.Renderer { return a.renderer }

// Operation returns the operation this App was created for.
func (a *App) Operation() *Operation { return a.op }

// Health asks the server whether it is up.
func (a *App) Health(ctx context.Context) (string, error) {
	return a.backend.Health(ctx)
}

// Login signs in, registering first when form.Register is set.
func (a *App) Login(ctx context.Context, form docdisk.LoginForm) (*docdisk.Identity, error) {
	a.started = true
	if err := a.client.Login(ctx, form); err != nil {
		return nil, a.fail(err)
	}
	return a.client.Identity(), nil
}

// Logout forgets the persisted credential. No server call is made.
func (a *App) Logout() {
	a.started = true
	a.client.Logout()
}

// WhoAmI restores the persisted session and returns the identity and
// credential it belongs to.
func (a *App) WhoAmI(ctx context.Context) (*docdisk.Identity, *docdisk.Credential, error) {
	if err := a.ensureSession(ctx); err != nil {
		return nil, nil, err
	}
	return a.client.Identity(), a.client.Credential(), nil
}

// ListDocuments returns the signed-in user's documents in backend order.
func (a *App) ListDocuments(ctx context.Context) ([]docdisk.Document, error) {
	if err := a.ensureSession(ctx); err != nil {
		return nil, err
	}
	if banner := a.client.Banner(); banner != "" {
		return nil, a.fail(&docdisk.Error{Kind: docdisk.KindTransient, Message: banner})
	}
	return a.client.Documents(), nil
}

// GetDocument returns one document by ID.
func (a *App) GetDocument(ctx context.Context, id string) (docdisk.Document, error) {
	if _, err := a.ListDocuments(ctx); err != nil {
		return docdisk.Document{}, err
	}
	doc, ok := a.client.Document(id)
	if !ok {
		return docdisk.Document{}, a.fail(&docdisk.Error{Kind: docdisk.KindValidation, Message: docdisk.MsgDocumentNotFound})
	}
	return doc, nil
}

// CreateDocument saves a new document and returns it as listed afterwards.
func (a *App) CreateDocument(ctx context.Context, title, content string) (docdisk.Document, error) {
	if err := a.ensureSession(ctx); err != nil {
		return docdisk.Document{}, err
	}
	before := make(map[string]bool)
	for _, d := range a.client.Documents() {
		before[d.ID] = true
	}

	if err := a.client.NewDocument(); err != nil {
		return docdisk.Document{}, a.fail(err)
	}
	draft, _ := a.client.Draft()
	draft.Title = title
	draft.SetContent(content)
	if err := a.client.Save(ctx); err != nil {
		return docdisk.Document{}, a.fail(err)
	}

	for _, d := range a.client.Documents() {
		if !before[d.ID] {
			return d, nil
		}
	}
	return docdisk.Document{Title: title, Content: content}, nil
}

// EditDocument updates the given fields of an existing document. A nil
// field keeps its current value.
func (a *App) EditDocument(ctx context.Context, id string, title, content *string) (docdisk.Document, error) {
	if err := a.ensureSession(ctx); err != nil {
		return docdisk.Document{}, err
	}
	if err := a.client.SelectDocument(id); err != nil {
		return docdisk.Document{}, a.fail(err)
	}
	draft, _ := a.client.Draft()
	if title != nil {
		draft.Title = *title
	}
	if content != nil {
		draft.SetContent(*content)
	}
	if err := a.client.Save(ctx); err != nil {
		return docdisk.Document{}, a.fail(err)
	}

	doc, _ := a.client.Document(id)
	return doc, nil
}

// DeleteDocument removes a document once confirm agrees. It reports
// whether the document was deleted.
func (a *App) DeleteDocument(ctx context.Context, id string, confirm docdisk.Confirmer) (bool, error) {
	if err := a.ensureSession(ctx); err != nil {
		return false, err
	}
	before := len(a.client.Documents())
	if err := a.client.DeleteDocument(ctx, id, confirm); err != nil {
		return false, a.fail(err)
	}
	_, still := a.client.Document(id)
	return !still && len(a.client.Documents()) < before, nil
}

// ensureSession restores the persisted session once per App.
func (a *App) ensureSession(ctx context.Context) error {
	if a.client.Identity() != nil {
		return nil
	}
	if !a.started {
		a.started = true
		if a.client.Start(ctx) {
			return nil
		}
	}
	return a.fail(&docdisk.Error{Kind: docdisk.KindAuth, Message: docdisk.MsgNotSignedIn})
}

func (a *App) fail(err error) error {
	a.op.Fail()
	a.logger.Error("operation failed", "operation", a.op.Name, "error", err)
	return err
}

// Close finishes the operation and releases resources.
func (a *App) Close() error {
	a.logger.Info("operation finished", "operation", a.op.Name, "status", a.op.Status)
	a.client.Close()

	var firstErr error
	if err := closeStorage(a.storage); err != nil {
		firstErr = fmt.Errorf("closing storage: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

func closeStorage(s docdisk.LocalStorage) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
