package docdisk_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"docdisk/internal/docdisk"
	"docdisk/internal/storage"
	"docdisk/internal/testutil"
)

type testEnv struct {
	client  *docdisk.Client
	backend *testutil.FakeBackend
	clock   *testutil.StubClock
	storage *storage.MemoryStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := testutil.FixedClock()
	backend := testutil.NewFakeBackend(clock)
	store := testutil.NewTestStorage()
	client := docdisk.NewClient(docdisk.Options{
		Backend:   backend,
		Storage:   store,
		Encryptor: testutil.NewTestEncryptor(),
		Clock:     clock,
	})
	t.Cleanup(client.Close)
	return &testEnv{client: client, backend: backend, clock: clock, storage: store}
}

// signIn registers the user with the backend and logs the client in.
func (e *testEnv) signIn(t *testing.T, username string) {
	t.Helper()
	e.backend.AddUser(username, "secret", "1234")
	form := docdisk.LoginForm{Username: username, Password: "secret", PIN: "1234"}
	if err := e.client.Login(context.Background(), form); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
}

func alwaysConfirm(docdisk.Document) bool { return true }

func TestClient_Scenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("register then land on an empty list", func(t *testing.T) {
		env := newTestEnv(t)

		form := docdisk.LoginForm{Username: "alice", Password: "pw", PIN: "1234", Register: true}
		if err := env.client.Login(ctx, form); err != nil {
			t.Fatalf("Login() error = %v", err)
		}

		if _, ok := env.client.View().(docdisk.ListView); !ok {
			t.Errorf("View() = %T, want ListView", env.client.View())
		}
		if docs := env.client.Documents(); len(docs) != 0 {
			t.Errorf("Documents() len = %d, want 0", len(docs))
		}
		if id := env.client.Identity(); id == nil || id.Username != "alice" {
			t.Errorf("Identity() = %+v, want alice", id)
		}
		note, ok := env.client.Notifier().Current()
		if !ok || note.Message != "Welcome back, alice!" || note.Severity != docdisk.SeveritySuccess {
			t.Errorf("notification = %+v, want welcome success", note)
		}
		if got := env.backend.Calls("register"); got != 1 {
			t.Errorf("register calls = %d, want 1", got)
		}
	})

	t.Run("wrong PIN shows the invalid credentials message", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.AddUser("alice", "pw", "1234")

		err := env.client.Login(ctx, docdisk.LoginForm{Username: "alice", Password: "pw", PIN: "9999"})
		if err == nil {
			t.Fatal("Login() expected error for wrong PIN")
		}
		if docdisk.KindOf(err) != docdisk.KindAuth {
			t.Errorf("KindOf() = %v, want auth", docdisk.KindOf(err))
		}
		want := "Invalid credentials. Please check your username, password, and PIN."
		if got := env.client.Banner(); got != want {
			t.Errorf("Banner() = %q, want %q", got, want)
		}
		if _, ok := env.client.View().(docdisk.Unauthenticated); !ok {
			t.Errorf("View() = %T, want Unauthenticated", env.client.View())
		}
		if env.client.Credential() != nil {
			t.Error("Credential() should be nil after failed login")
		}
	})

	t.Run("create a document", func(t *testing.T) {
		env := newTestEnv(t)
		env.signIn(t, "alice")

		if err := env.client.NewDocument(); err != nil {
			t.Fatalf("NewDocument() error = %v", err)
		}
		draft, ok := env.client.Draft()
		if !ok {
			t.Fatal("Draft() not available in editor")
		}
		draft.Title = "Notes"
		draft.SetContent("hello")

		if err := env.client.Save(ctx); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		docs := env.client.Documents()
		if len(docs) != 1 || docs[0].Title != "Notes" || docs[0].Content != "hello" {
			t.Fatalf("Documents() = %+v, want one Notes document", docs)
		}
		if _, ok := env.client.View().(docdisk.ListView); !ok {
			t.Errorf("View() = %T, want ListView", env.client.View())
		}
		note, ok := env.client.Notifier().Current()
		if !ok || note.Message != "Document saved successfully!" || note.Severity != docdisk.SeveritySuccess {
			t.Errorf("notification = %+v, want saved success", note)
		}

		env.clock.Advance(4999 * time.Millisecond)
		if _, ok := env.client.Notifier().Current(); !ok {
			t.Error("notification dismissed before 5s")
		}
		env.clock.Advance(time.Millisecond)
		if _, ok := env.client.Notifier().Current(); ok {
			t.Error("notification still shown after 5s")
		}
	})
}

func TestClient_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("starts unauthenticated without a stored credential", func(t *testing.T) {
		env := newTestEnv(t)
		if env.client.Start(ctx) {
			t.Error("Start() = true, want false")
		}
		if _, ok := env.client.View().(docdisk.Unauthenticated); !ok {
			t.Errorf("View() = %T, want Unauthenticated", env.client.View())
		}
		if got := env.backend.TotalCalls(); got != 0 {
			t.Errorf("backend calls = %d, want 0", got)
		}
	})

	t.Run("restores a persisted session", func(t *testing.T) {
		env := newTestEnv(t)
		env.signIn(t, "alice")
		env.backend.AddDocument("alice", "Notes", "hello")

		restarted := docdisk.NewClient(docdisk.Options{
			Backend:   env.backend,
			Storage:   env.storage,
			Encryptor: testutil.NewTestEncryptor(),
			Clock:     env.clock,
		})
		defer restarted.Close()

		if !restarted.Start(ctx) {
			t.Fatal("Start() = false, want true")
		}
		if id := restarted.Identity(); id == nil || id.Username != "alice" {
			t.Errorf("Identity() = %+v, want alice", id)
		}
		if docs := restarted.Documents(); len(docs) != 1 {
			t.Errorf("Documents() len = %d, want 1", len(docs))
		}
	})

	t.Run("clears a rejected credential without retrying", func(t *testing.T) {
		env := newTestEnv(t)
		env.signIn(t, "alice")
		env.backend.RevokeTokens()
		meBefore := env.backend.Calls("me")

		restarted := docdisk.NewClient(docdisk.Options{
			Backend:   env.backend,
			Storage:   env.storage,
			Encryptor: testutil.NewTestEncryptor(),
			Clock:     env.clock,
		})
		defer restarted.Close()

		if restarted.Start(ctx) {
			t.Fatal("Start() = true, want false")
		}
		if got := env.backend.Calls("me") - meBefore; got != 1 {
			t.Errorf("me calls = %d, want 1", got)
		}
		if data, _ := env.storage.Get(docdisk.CredentialKey); data != nil {
			t.Error("credential still persisted after rejection")
		}
		if _, ok := restarted.View().(docdisk.Unauthenticated); !ok {
			t.Errorf("View() = %T, want Unauthenticated", restarted.View())
		}
	})

	t.Run("clears a locally expired credential without calling the backend", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.AddUser("alice", "pw", "1234")
		cred := env.backend.IssueToken("alice")
		cred.ExpiresAt = env.clock.Now().Add(-time.Minute)
		persistCredential(t, env.storage, cred)

		if env.client.Start(ctx) {
			t.Fatal("Start() = true, want false")
		}
		if got := env.backend.TotalCalls(); got != 0 {
			t.Errorf("backend calls = %d, want 0", got)
		}
		if data, _ := env.storage.Get(docdisk.CredentialKey); data != nil {
			t.Error("expired credential still persisted")
		}
	})
}

func TestClient_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("registration failure never logs in", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.AddUser("alice", "pw", "1234")

		err := env.client.Login(ctx, docdisk.LoginForm{Username: "alice", Password: "pw", PIN: "1234", Register: true})
		if err == nil {
			t.Fatal("Login() expected error for taken username")
		}
		if docdisk.KindOf(err) != docdisk.KindConflict {
			t.Errorf("KindOf() = %v, want conflict", docdisk.KindOf(err))
		}
		if got := env.backend.Calls("login"); got != 0 {
			t.Errorf("login calls = %d, want 0", got)
		}
		if got := env.client.Banner(); got != docdisk.MsgUsernameTaken {
			t.Errorf("Banner() = %q, want %q", got, docdisk.MsgUsernameTaken)
		}
	})

	t.Run("registration errors map to messages", func(t *testing.T) {
		tests := []struct {
			name     string
			err      error
			wantKind docdisk.ErrorKind
			wantMsg  string
		}{
			{
				name:     "detail string",
				err:      &docdisk.ResponseError{StatusCode: 403, Detail: "Registration closed"},
				wantKind: docdisk.KindValidation,
				wantMsg:  "Registration closed",
			},
			{
				name:     "validation list",
				err:      &docdisk.ResponseError{StatusCode: 422, Messages: []string{"Username must be at least 3 characters", "other"}},
				wantKind: docdisk.KindValidation,
				wantMsg:  "Username must be at least 3 characters",
			},
			{
				name:     "validation list without message",
				err:      &docdisk.ResponseError{StatusCode: 422, Messages: []string{""}},
				wantKind: docdisk.KindValidation,
				wantMsg:  docdisk.MsgRegisterInvalid,
			},
			{
				name:     "malformed detail",
				err:      &docdisk.ResponseError{StatusCode: 422, MalformedDetail: true},
				wantKind: docdisk.KindValidation,
				wantMsg:  docdisk.MsgRegisterCheck,
			},
			{
				name:     "server error without detail",
				err:      &docdisk.ResponseError{StatusCode: 500},
				wantKind: docdisk.KindTransient,
				wantMsg:  docdisk.MsgRegisterFailed,
			},
			{
				name:     "network failure",
				err:      errors.New("connection refused"),
				wantKind: docdisk.KindTransient,
				wantMsg:  docdisk.MsgRegisterFailed,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				env := newTestEnv(t)
				env.backend.RegisterErr = tt.err

				err := env.client.Login(ctx, docdisk.LoginForm{Username: "bob", Password: "pw", PIN: "1234", Register: true})
				if got := docdisk.KindOf(err); got != tt.wantKind {
					t.Errorf("KindOf() = %v, want %v", got, tt.wantKind)
				}
				if got := docdisk.MessageOf(err); got != tt.wantMsg {
					t.Errorf("MessageOf() = %q, want %q", got, tt.wantMsg)
				}
				if got := env.backend.Calls("login"); got != 0 {
					t.Errorf("login calls = %d, want 0", got)
				}
			})
		}
	})

	t.Run("login failure after registration gets its own message", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.LoginErr = &docdisk.ResponseError{StatusCode: 401, Detail: "Invalid credentials"}

		err := env.client.Login(ctx, docdisk.LoginForm{Username: "bob", Password: "pw", PIN: "1234", Register: true})
		if docdisk.MessageOf(err) != docdisk.MsgLoginAfterRegister {
			t.Errorf("MessageOf() = %q, want %q", docdisk.MessageOf(err), docdisk.MsgLoginAfterRegister)
		}
		if docdisk.KindOf(err) != docdisk.KindAuth {
			t.Errorf("KindOf() = %v, want auth", docdisk.KindOf(err))
		}
	})

	t.Run("non-401 login failure is transient", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.AddUser("alice", "pw", "1234")
		env.backend.LoginErr = &docdisk.ResponseError{StatusCode: 502}

		err := env.client.Login(ctx, docdisk.LoginForm{Username: "alice", Password: "pw", PIN: "1234"})
		if docdisk.KindOf(err) != docdisk.KindTransient {
			t.Errorf("KindOf() = %v, want transient", docdisk.KindOf(err))
		}
		if got := env.client.Banner(); got != docdisk.MsgLoginFailed {
			t.Errorf("Banner() = %q, want %q", got, docdisk.MsgLoginFailed)
		}
	})

	t.Run("invalid form never reaches the backend", func(t *testing.T) {
		env := newTestEnv(t)

		err := env.client.Login(ctx, docdisk.LoginForm{Username: "alice", Password: "pw", PIN: "12a4"})
		if docdisk.KindOf(err) != docdisk.KindValidation {
			t.Errorf("KindOf() = %v, want validation", docdisk.KindOf(err))
		}
		if got := env.backend.TotalCalls(); got != 0 {
			t.Errorf("backend calls = %d, want 0", got)
		}
	})

	t.Run("identity failure logs out", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.AddUser("alice", "pw", "1234")
		env.backend.MeErr = &docdisk.ResponseError{StatusCode: 500}

		err := env.client.Login(ctx, docdisk.LoginForm{Username: "alice", Password: "pw", PIN: "1234"})
		if err == nil {
			t.Fatal("Login() expected error when identity fetch fails")
		}
		if _, ok := env.client.View().(docdisk.Unauthenticated); !ok {
			t.Errorf("View() = %T, want Unauthenticated", env.client.View())
		}
		if data, _ := env.storage.Get(docdisk.CredentialKey); data != nil {
			t.Error("credential still persisted after identity failure")
		}
		if got := env.backend.Calls("list"); got != 0 {
			t.Errorf("list calls = %d, want 0", got)
		}
	})

	t.Run("document load failure keeps the session", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.ListErr = errors.New("timeout")
		env.signIn(t, "alice")

		if _, ok := env.client.View().(docdisk.ListView); !ok {
			t.Errorf("View() = %T, want ListView", env.client.View())
		}
		if got := env.client.Banner(); got != docdisk.MsgLoadFailed {
			t.Errorf("Banner() = %q, want %q", got, docdisk.MsgLoadFailed)
		}
	})

	t.Run("credential persistence failure still signs in", func(t *testing.T) {
		clock := testutil.FixedClock()
		backend := testutil.NewFakeBackend(clock)
		backend.AddUser("alice", "pw", "1234")
		client := docdisk.NewClient(docdisk.Options{
			Backend: backend,
			Storage: testutil.FailingStorage{Err: errors.New("disk full")},
			Clock:   clock,
		})
		defer client.Close()

		if err := client.Login(ctx, docdisk.LoginForm{Username: "alice", Password: "pw", PIN: "1234"}); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if client.Identity() == nil {
			t.Error("Identity() = nil, want alice")
		}
	})

	t.Run("failed login ends the previous session", func(t *testing.T) {
		tests := []struct {
			name string
			form docdisk.LoginForm
		}{
			{"wrong password", docdisk.LoginForm{Username: "bob", Password: "bad", PIN: "1234"}},
			{"invalid pin", docdisk.LoginForm{Username: "bob", Password: "secret", PIN: "12"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				env := newTestEnv(t)
				env.signIn(t, "alice")
				env.backend.AddUser("bob", "secret", "1234")

				if err := env.client.Login(ctx, tt.form); err == nil {
					t.Fatal("Login() expected error")
				}
				if id := env.client.Identity(); id != nil {
					t.Errorf("Identity() = %+v, want nil", id)
				}
				if _, ok := env.client.View().(docdisk.Unauthenticated); !ok {
					t.Errorf("View() = %T, want Unauthenticated", env.client.View())
				}
				if len(env.client.Documents()) != 0 {
					t.Errorf("Documents() = %d, want 0", len(env.client.Documents()))
				}
				if data, _ := env.storage.Get(docdisk.CredentialKey); data != nil {
					t.Error("previous credential still persisted")
				}
			})
		}
	})

	t.Run("a new attempt clears the previous banner", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.AddUser("alice", "secret", "1234")
		_ = env.client.Login(ctx, docdisk.LoginForm{Username: "alice", Password: "wrong", PIN: "1234"})
		if env.client.Banner() == "" {
			t.Fatal("Banner() empty after failed login")
		}

		if err := env.client.Login(ctx, docdisk.LoginForm{Username: "alice", Password: "secret", PIN: "1234"}); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if got := env.client.Banner(); got != "" {
			t.Errorf("Banner() = %q, want empty", got)
		}
	})
}

func TestClient_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("clears session, documents and draft", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.AddUser("alice", "secret", "1234")
		env.backend.AddDocument("alice", "Notes", "hello")
		env.signInExisting(t, "alice")

		if err := env.client.NewDocument(); err != nil {
			t.Fatalf("NewDocument() error = %v", err)
		}
		calls := env.backend.TotalCalls()

		env.client.Logout()

		if _, ok := env.client.View().(docdisk.Unauthenticated); !ok {
			t.Errorf("View() = %T, want Unauthenticated", env.client.View())
		}
		if env.client.Identity() != nil || env.client.Credential() != nil {
			t.Error("session not cleared")
		}
		if docs := env.client.Documents(); len(docs) != 0 {
			t.Errorf("Documents() len = %d, want 0", len(docs))
		}
		if _, ok := env.client.Draft(); ok {
			t.Error("Draft() still available after logout")
		}
		if data, _ := env.storage.Get(docdisk.CredentialKey); data != nil {
			t.Error("credential still persisted after logout")
		}
		if got := env.backend.TotalCalls(); got != calls {
			t.Errorf("logout made %d backend calls, want 0", got-calls)
		}
	})

	t.Run("signing in again lands on the list", func(t *testing.T) {
		env := newTestEnv(t)
		env.signIn(t, "alice")
		if err := env.client.NewDocument(); err != nil {
			t.Fatalf("NewDocument() error = %v", err)
		}
		env.client.Logout()

		form := docdisk.LoginForm{Username: "alice", Password: "secret", PIN: "1234"}
		if err := env.client.Login(ctx, form); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if _, ok := env.client.View().(docdisk.ListView); !ok {
			t.Errorf("View() = %T, want ListView", env.client.View())
		}
	})

	t.Run("a refresh finishing after logout is discarded", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.AddUser("alice", "secret", "1234")
		env.backend.AddDocument("alice", "Notes", "hello")
		env.signInExisting(t, "alice")

		env.backend.BeforeList = env.client.Logout

		err := env.client.Refresh(ctx)
		if !errors.Is(err, docdisk.ErrSessionEnded) {
			t.Errorf("Refresh() error = %v, want ErrSessionEnded", err)
		}
		if docs := env.client.Documents(); len(docs) != 0 {
			t.Errorf("Documents() len = %d, want 0", len(docs))
		}
		if _, ok := env.client.View().(docdisk.Unauthenticated); !ok {
			t.Errorf("View() = %T, want Unauthenticated", env.client.View())
		}
	})
}

func TestClient_Editor(t *testing.T) {
	t.Run("select opens the document", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.AddUser("alice", "secret", "1234")
		doc := env.backend.AddDocument("alice", "Notes", "hello")
		env.signInExisting(t, "alice")

		if err := env.client.SelectDocument(doc.ID); err != nil {
			t.Fatalf("SelectDocument() error = %v", err)
		}
		ed, ok := env.client.View().(docdisk.EditorView)
		if !ok {
			t.Fatalf("View() = %T, want EditorView", env.client.View())
		}
		if ed.IsNew() || ed.Target.ID != doc.ID {
			t.Errorf("editor target = %+v, want %s", ed.Target, doc.ID)
		}
		if ed.Draft.Title != "Notes" || ed.Draft.Content != "hello" {
			t.Errorf("draft = %+v, want Notes/hello", ed.Draft)
		}
	})

	t.Run("select of unknown document fails", func(t *testing.T) {
		env := newTestEnv(t)
		env.signIn(t, "alice")

		err := env.client.SelectDocument("missing")
		if docdisk.MessageOf(err) != docdisk.MsgDocumentNotFound {
			t.Errorf("SelectDocument() error = %v, want not found", err)
		}
	})

	t.Run("new requires the list view", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.client.NewDocument(); docdisk.KindOf(err) != docdisk.KindValidation {
			t.Errorf("NewDocument() unauthenticated error = %v, want validation", err)
		}

		env.signIn(t, "alice")
		if err := env.client.NewDocument(); err != nil {
			t.Fatalf("NewDocument() error = %v", err)
		}
		if err := env.client.NewDocument(); docdisk.MessageOf(err) != docdisk.MsgNotInList {
			t.Errorf("NewDocument() in editor error = %v, want %q", err, docdisk.MsgNotInList)
		}
	})

	t.Run("draft edits do not touch the cache", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.AddUser("alice", "secret", "1234")
		doc := env.backend.AddDocument("alice", "Notes", "hello")
		env.signInExisting(t, "alice")

		if err := env.client.SelectDocument(doc.ID); err != nil {
			t.Fatalf("SelectDocument() error = %v", err)
		}
		draft, _ := env.client.Draft()
		draft.Title = "Changed"
		draft.Append(" world")

		cached, _ := env.client.Document(doc.ID)
		if cached.Title != "Notes" || cached.Content != "hello" {
			t.Errorf("cached document = %+v, want unchanged", cached)
		}

		if err := env.client.Cancel(); err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}
		if _, ok := env.client.View().(docdisk.ListView); !ok {
			t.Errorf("View() = %T, want ListView", env.client.View())
		}
		if got := env.backend.Calls("update"); got != 0 {
			t.Errorf("update calls = %d, want 0", got)
		}
	})
}

func TestClient_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("whitespace title is rejected without network", func(t *testing.T) {
		env := newTestEnv(t)
		env.signIn(t, "alice")
		if err := env.client.NewDocument(); err != nil {
			t.Fatalf("NewDocument() error = %v", err)
		}
		draft, _ := env.client.Draft()
		draft.Title = "   \t"
		calls := env.backend.TotalCalls()

		err := env.client.Save(ctx)
		if docdisk.KindOf(err) != docdisk.KindValidation {
			t.Errorf("Save() error = %v, want validation", err)
		}
		if got := env.backend.TotalCalls(); got != calls {
			t.Errorf("backend calls = %d, want %d", got, calls)
		}
		if _, ok := env.client.View().(docdisk.EditorView); !ok {
			t.Errorf("View() = %T, want EditorView", env.client.View())
		}
	})

	t.Run("update sends trimmed title and refreshes", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.AddUser("alice", "secret", "1234")
		doc := env.backend.AddDocument("alice", "Notes", "hello")
		env.signInExisting(t, "alice")

		if err := env.client.SelectDocument(doc.ID); err != nil {
			t.Fatalf("SelectDocument() error = %v", err)
		}
		draft, _ := env.client.Draft()
		draft.Title = "  Renamed  "
		lists := env.backend.Calls("list")

		if err := env.client.Save(ctx); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if got := env.backend.Calls("update"); got != 1 {
			t.Errorf("update calls = %d, want 1", got)
		}
		if got := env.backend.Calls("list") - lists; got != 1 {
			t.Errorf("list calls after save = %d, want 1", got)
		}
		saved, _ := env.client.Document(doc.ID)
		if saved.Title != "Renamed" {
			t.Errorf("Title = %q, want %q", saved.Title, "Renamed")
		}
	})

	t.Run("backend failure keeps the editor open", func(t *testing.T) {
		env := newTestEnv(t)
		env.signIn(t, "alice")
		if err := env.client.NewDocument(); err != nil {
			t.Fatalf("NewDocument() error = %v", err)
		}
		draft, _ := env.client.Draft()
		draft.Title = "Notes"
		env.backend.CreateErr = &docdisk.ResponseError{StatusCode: 500}

		err := env.client.Save(ctx)
		if docdisk.KindOf(err) != docdisk.KindTransient {
			t.Errorf("Save() error = %v, want transient", err)
		}
		if got := env.client.Banner(); got != docdisk.MsgSaveFailed {
			t.Errorf("Banner() = %q, want %q", got, docdisk.MsgSaveFailed)
		}
		ed, ok := env.client.View().(docdisk.EditorView)
		if !ok || ed.Draft.Title != "Notes" {
			t.Errorf("View() = %+v, want editor with draft kept", env.client.View())
		}
		if docs := env.client.Documents(); len(docs) != 0 {
			t.Errorf("Documents() len = %d, want 0", len(docs))
		}
	})

	t.Run("refresh failure after save still counts as saved", func(t *testing.T) {
		env := newTestEnv(t)
		env.signIn(t, "alice")
		if err := env.client.NewDocument(); err != nil {
			t.Fatalf("NewDocument() error = %v", err)
		}
		draft, _ := env.client.Draft()
		draft.Title = "Notes"
		env.backend.ListErr = errors.New("timeout")

		if err := env.client.Save(ctx); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if _, ok := env.client.View().(docdisk.ListView); !ok {
			t.Errorf("View() = %T, want ListView", env.client.View())
		}
		if got := env.client.Banner(); got != docdisk.MsgLoadFailed {
			t.Errorf("Banner() = %q, want %q", got, docdisk.MsgLoadFailed)
		}
	})
}

func TestClient_DeleteDocument(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*testEnv, docdisk.Document) {
		t.Helper()
		env := newTestEnv(t)
		env.backend.AddUser("alice", "secret", "1234")
		doc := env.backend.AddDocument("alice", "Notes", "hello")
		env.backend.AddDocument("alice", "Ideas", "")
		env.signInExisting(t, "alice")
		return env, doc
	}

	t.Run("declined confirmation changes nothing", func(t *testing.T) {
		env, doc := setup(t)
		calls := env.backend.TotalCalls()
		var asked string

		err := env.client.DeleteDocument(ctx, doc.ID, docdisk.ConfirmFunc(func(d docdisk.Document) bool {
			asked = d.Title
			return false
		}))
		if err != nil {
			t.Fatalf("DeleteDocument() error = %v", err)
		}
		if asked != "Notes" {
			t.Errorf("confirmation asked for %q, want Notes", asked)
		}
		if got := env.backend.TotalCalls(); got != calls {
			t.Errorf("backend calls = %d, want %d", got, calls)
		}
		if docs := env.client.Documents(); len(docs) != 2 {
			t.Errorf("Documents() len = %d, want 2", len(docs))
		}
	})

	t.Run("confirmed delete refreshes the list", func(t *testing.T) {
		env, doc := setup(t)
		lists := env.backend.Calls("list")

		if err := env.client.DeleteDocument(ctx, doc.ID, docdisk.ConfirmFunc(alwaysConfirm)); err != nil {
			t.Fatalf("DeleteDocument() error = %v", err)
		}
		if got := env.backend.Calls("list") - lists; got != 1 {
			t.Errorf("list calls after delete = %d, want 1", got)
		}
		docs := env.client.Documents()
		if len(docs) != 1 || docs[0].Title != "Ideas" {
			t.Errorf("Documents() = %+v, want only Ideas", docs)
		}
		if _, ok := env.client.View().(docdisk.ListView); !ok {
			t.Errorf("View() = %T, want ListView", env.client.View())
		}
		note, _ := env.client.Notifier().Current()
		if note.Message != docdisk.MsgDeleted || note.Severity != docdisk.SeveritySuccess {
			t.Errorf("notification = %+v, want deleted success", note)
		}
	})

	t.Run("failure shows an error notification", func(t *testing.T) {
		env, doc := setup(t)
		env.backend.DeleteErr = &docdisk.ResponseError{StatusCode: 500}

		err := env.client.DeleteDocument(ctx, doc.ID, docdisk.ConfirmFunc(alwaysConfirm))
		if docdisk.KindOf(err) != docdisk.KindTransient {
			t.Errorf("DeleteDocument() error = %v, want transient", err)
		}
		note, _ := env.client.Notifier().Current()
		if note.Message != "Failed to delete document" || note.Severity != docdisk.SeverityError {
			t.Errorf("notification = %+v, want delete failure", note)
		}
		if docs := env.client.Documents(); len(docs) != 2 {
			t.Errorf("Documents() len = %d, want 2", len(docs))
		}
	})

	t.Run("not allowed from the editor", func(t *testing.T) {
		env, doc := setup(t)
		if err := env.client.SelectDocument(doc.ID); err != nil {
			t.Fatalf("SelectDocument() error = %v", err)
		}

		err := env.client.DeleteDocument(ctx, doc.ID, docdisk.ConfirmFunc(alwaysConfirm))
		if docdisk.MessageOf(err) != docdisk.MsgNotInList {
			t.Errorf("DeleteDocument() error = %v, want %q", err, docdisk.MsgNotInList)
		}
		if got := env.backend.Calls("delete"); got != 0 {
			t.Errorf("delete calls = %d, want 0", got)
		}
	})
}

func TestClient_CacheMatchesFreshListing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.signIn(t, "alice")

	for i := 0; i < 3; i++ {
		if err := env.client.NewDocument(); err != nil {
			t.Fatalf("NewDocument() error = %v", err)
		}
		draft, _ := env.client.Draft()
		draft.Title = fmt.Sprintf("doc %d", i)
		if err := env.client.Save(ctx); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	first := env.client.Documents()[0]
	if err := env.client.DeleteDocument(ctx, first.ID, docdisk.ConfirmFunc(alwaysConfirm)); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}

	cached := env.client.Documents()
	api := env.backend.Authorize(*env.client.Credential())
	fresh, err := api.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(cached) != len(fresh) {
		t.Fatalf("cached %d documents, backend has %d", len(cached), len(fresh))
	}
	for i := range fresh {
		if cached[i] != fresh[i] {
			t.Errorf("document %d = %+v, want %+v", i, cached[i], fresh[i])
		}
	}
}

// signInExisting logs in a user that was already added to the backend.
func (e *testEnv) signInExisting(t *testing.T, username string) {
	t.Helper()
	form := docdisk.LoginForm{Username: username, Password: "secret", PIN: "1234"}
	if err := e.client.Login(context.Background(), form); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
}
