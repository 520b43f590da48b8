package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"docdisk/internal/docdisk"
)

const shellHelp = `Commands:
  login USER | register USER   sign in (prompts for password and PIN)
  logout                       sign out
  whoami                       show the signed-in user
  list | refresh               show or reload your documents
  new [TITLE]                  start a new document
  open ID                      edit a document
  delete ID                    delete a document (asks first)
  title TEXT                   set the draft title
  write TEXT                   append a line to the draft
  clear                        empty the draft content
  select START END             select a character range of the draft
  bold | italic | h1 | h2 | bullet
                               format the selection
  show                         show the draft
  save | cancel                leave the editor
  quit                         exit`

// Shell drives the client from line-oriented input, one command per line.
type Shell struct {
	app *App
	in  *bufio.Reader

	mu  sync.Mutex // guards out
	out io.Writer

	// ReadSecret reads a password or PIN. When nil, secrets are read as
	// ordinary lines from the input.
	ReadSecret func(prompt string) (string, error)

	lastBanner string
}

func (a *App) NewShell(in io.Reader, out io.Writer) *Shell {
	return &Shell{app: a, in: bufio.NewReader(in), out: out}
}

// Run reads commands until quit or end of input.
func (s *Shell) Run(ctx context.Context) error {
	client := s.app.client
	r := s.app.renderer

	client.Notifier().OnChange(func(n *docdisk.Notification) {
		if n != nil {
			s.println(r.Notification(*n))
		}
	})
	defer client.Notifier().OnChange(nil)

	s.app.started = true
	if client.Start(ctx) {
		s.println(fmt.Sprintf("Signed in as %s.", client.Identity().Username))
		s.showBanner()
	} else {
		s.println("Not signed in. Use login or register, or help for all commands.")
	}

	for {
		s.print(s.prompt())
		line, err := s.readLine()
		if errors.Is(err, io.EOF) {
			s.println("")
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		if line == "" {
			continue
		}

		quit, err := s.exec(ctx, line)
		if err != nil {
			s.println(r.Banner(docdisk.MessageOf(err)))
			s.lastBanner = client.Banner()
		} else {
			s.showBanner()
		}
		if quit {
			return nil
		}
	}
}

func (s *Shell) prompt() string {
	switch s.app.client.View().(type) {
	case docdisk.EditorView:
		return "edit> "
	case docdisk.ListView:
		return "docs> "
	default:
		return "docdisk> "
	}
}

func (s *Shell) exec(ctx context.Context, line string) (bool, error) {
	client := s.app.client
	r := s.app.renderer
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "quit", "exit":
		return true, nil

	case "help", "?":
		s.println(shellHelp)

	case "login", "register":
		if client.Identity() != nil {
			return false, &docdisk.Error{Kind: docdisk.KindValidation, Message: "Already signed in. Use logout first."}
		}
		form, err := s.readLoginForm(arg, cmd == "register")
		if err != nil {
			return false, err
		}
		if err := client.Login(ctx, form); err != nil {
			return false, err
		}
		s.println(r.DocumentList(client.Documents()))

	case "logout":
		client.Logout()
		s.println("Signed out.")

	case "whoami":
		id := client.Identity()
		if id == nil {
			return false, &docdisk.Error{Kind: docdisk.KindAuth, Message: docdisk.MsgNotSignedIn}
		}
		s.println(id.Username)

	case "list", "ls":
		if client.Identity() == nil {
			return false, &docdisk.Error{Kind: docdisk.KindAuth, Message: docdisk.MsgNotSignedIn}
		}
		s.println(r.DocumentList(client.Documents()))

	case "refresh":
		if err := client.Refresh(ctx); err != nil {
			return false, err
		}
		s.println(r.DocumentList(client.Documents()))

	case "new":
		if err := client.NewDocument(); err != nil {
			return false, err
		}
		if arg != "" {
			draft, _ := client.Draft()
			draft.Title = arg
		}
		s.showEditor()

	case "open":
		if err := client.SelectDocument(arg); err != nil {
			return false, err
		}
		s.showEditor()

	case "delete", "rm":
		confirm := docdisk.ConfirmFunc(func(doc docdisk.Document) bool {
			s.print(fmt.Sprintf("Delete %q? [y/N] ", doc.Title))
			answer, err := s.readLine()
			if err != nil {
				return false
			}
			answer = strings.ToLower(answer)
			return answer == "y" || answer == "yes"
		})
		if err := client.DeleteDocument(ctx, arg, confirm); err != nil {
			return false, err
		}
		s.println(r.DocumentList(client.Documents()))

	case "title", "write", "clear", "select", "bold", "italic", "h1", "h2", "bullet", "show":
		draft, ok := client.Draft()
		if !ok {
			return false, &docdisk.Error{Kind: docdisk.KindValidation, Message: docdisk.MsgNoOpenDocument}
		}
		if err := editDraft(draft, strings.ToLower(cmd), arg); err != nil {
			return false, err
		}
		s.showEditor()

	case "save":
		if err := client.Save(ctx); err != nil {
			return false, err
		}
		s.println(r.DocumentList(client.Documents()))

	case "cancel":
		if err := client.Cancel(); err != nil {
			return false, err
		}
		s.println(r.DocumentList(client.Documents()))

	default:
		return false, &docdisk.Error{Kind: docdisk.KindValidation, Message: fmt.Sprintf("Unknown command %q. Type help for a list.", cmd)}
	}
	return false, nil
}

func editDraft(draft *docdisk.Draft, cmd, arg string) error {
	switch cmd {
	case "title":
		draft.Title = arg
	case "write":
		if draft.Content != "" && !strings.HasSuffix(draft.Content, "\n") {
			draft.Append("\n")
		}
		draft.Append(arg)
	case "clear":
		draft.SetContent("")
	case "select":
		fields := strings.Fields(arg)
		if len(fields) != 2 {
			return &docdisk.Error{Kind: docdisk.KindValidation, Message: "Usage: select START END"}
		}
		start, err1 := strconv.Atoi(fields[0])
		end, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			return &docdisk.Error{Kind: docdisk.KindValidation, Message: "Usage: select START END"}
		}
		if err := draft.Select(start, end); err != nil {
			return &docdisk.Error{Kind: docdisk.KindValidation, Message: "Selection is outside the content.", Err: err}
		}
	case "bold":
		draft.Bold()
	case "italic":
		draft.Italic()
	case "h1":
		draft.Heading1()
	case "h2":
		draft.Heading2()
	case "bullet":
		draft.Bullet()
	}
	return nil
}

func (s *Shell) readLoginForm(username string, register bool) (docdisk.LoginForm, error) {
	form := docdisk.LoginForm{Username: username, Register: register}
	if form.Username == "" {
		s.print("Username: ")
		line, err := s.readLine()
		if err != nil {
			return form, err
		}
		form.Username = line
	}

	var err error
	if form.Password, err = s.readSecret("Password: "); err != nil {
		return form, err
	}
	if form.PIN, err = s.readSecret("PIN: "); err != nil {
		return form, err
	}
	return form, nil
}

func (s *Shell) readSecret(prompt string) (string, error) {
	if s.ReadSecret != nil {
		return s.ReadSecret(prompt)
	}
	s.print(prompt)
	return s.readLine()
}

func (s *Shell) readLine() (string, error) {
	line, err := s.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *Shell) showEditor() {
	if v, ok := s.app.client.View().(docdisk.EditorView); ok {
		s.println(s.app.renderer.Editor(v))
	}
}

func (s *Shell) showBanner() {
	banner := s.app.client.Banner()
	if banner != "" && banner != s.lastBanner {
		s.println(s.app.renderer.Banner(banner))
	}
	s.lastBanner = banner
}

func (s *Shell) print(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprint(s.out, text)
}

func (s *Shell) println(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, strings.TrimRight(text, "\n"))
}
