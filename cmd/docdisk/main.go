package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"docdisk/internal/api"
	"docdisk/internal/app"
	"docdisk/internal/config"
	"docdisk/internal/devserver"
	"docdisk/internal/docdisk"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var stdin = bufio.NewReader(os.Stdin)

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps a failure to the process exit status.
func exitCode(err error) int {
	switch docdisk.KindOf(err) {
	case docdisk.KindValidation:
		return 2
	case docdisk.KindAuth:
		return 3
	case docdisk.KindConflict:
		return 4
	default:
		return 1
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Login", "List").
func newApp(cmd *cobra.Command, operation string) (*app.App, error) {
	cfg, _, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	a, err := app.NewApp(cmd.Context(), cfg, operation, app.Options{Verbose: verbose})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// userError prints the user-facing message of err and keeps err for the exit code.
func userError(cmd *cobra.Command, err error) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	fmt.Fprintln(os.Stderr, docdisk.MessageOf(err))
	return err
}

func readLine() (string, error) {
	line, err := stdin.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func prompt(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	return readLine()
}

// promptSecret reads without echo when stdin is a terminal.
func promptSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(label)
	}
	fmt.Fprint(os.Stderr, label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	return string(b), nil
}

func loginForm(args []string, register bool) (docdisk.LoginForm, error) {
	form := docdisk.LoginForm{Register: register}
	var err error
	if len(args) > 0 {
		form.Username = args[0]
	} else if form.Username, err = prompt("Username: "); err != nil {
		return form, err
	}
	if form.Password, err = promptSecret("Password: "); err != nil {
		return form, err
	}
	if form.PIN, err = promptSecret("PIN: "); err != nil {
		return form, err
	}
	return form, nil
}

func printNotification(a *app.App) {
	if n, ok := a.Client().Notifier().Current(); ok {
		fmt.Println(a.Renderer().Notification(n))
	}
}

var rootCmd = &cobra.Command{
	Use:   "docdisk",
	Short: "Document Disk client",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if url := os.Getenv("DOCDISK_SERVER_URL"); url != "" {
			cfg.ServerURL = url
		}
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Server:   %s\n", cfg.ServerURL)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := app.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Server:      %s\n", cfg.ServerURL)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Timeout:     %s\n", cfg.HTTP.Timeout)
		fmt.Printf("Dismiss:     %s\n", cfg.Notifications.DismissAfter)
		fmt.Printf("Storage:     %s\n", cfg.Storage.Type)
		fmt.Printf("Encryption:  %s\n", cfg.Encryption.Type)
		return nil
	},
}

// auth commands
var registerCmd = &cobra.Command{
	Use:   "register [USERNAME]",
	Short: "Create an account and sign in",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLogin(cmd, args, true)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login [USERNAME]",
	Short: "Sign in",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLogin(cmd, args, false)
	},
}

func runLogin(cmd *cobra.Command, args []string, register bool) error {
	form, err := loginForm(args, register)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, "Login")
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.Login(cmd.Context(), form); err != nil {
		return userError(cmd, err)
	}
	printNotification(a)
	if banner := a.Client().Banner(); banner != "" {
		fmt.Println(a.Renderer().Banner(banner))
	}
	return nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Logout")
		if err != nil {
			return err
		}
		defer a.Close()

		a.Logout()
		fmt.Println("Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "WhoAmI")
		if err != nil {
			return err
		}
		defer a.Close()

		identity, cred, err := a.WhoAmI(cmd.Context())
		if err != nil {
			return userError(cmd, err)
		}

		fmt.Printf("Username: %s\n", identity.Username)
		fmt.Printf("User ID:  %s\n", identity.ID)
		fmt.Printf("Since:    %s\n", identity.CreatedAt.Local().Format(time.DateTime))
		fmt.Printf("Server:   %s\n", a.Config().ServerURL)
		if info, err := api.InspectToken(cred.Token); err == nil && !info.ExpiresAt.IsZero() {
			fmt.Printf("Expires:  %s (in %s)\n",
				info.ExpiresAt.Local().Format(time.DateTime),
				time.Until(info.ExpiresAt).Truncate(time.Minute))
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the server, storage and encryption setup",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Status")
		if err != nil {
			return err
		}
		defer a.Close()

		st := a.Status(cmd.Context())
		fmt.Printf("Server:     %s\n", st.ServerURL)
		if st.ServerErr != nil {
			fmt.Printf("            unreachable: %s\n", docdisk.MessageOf(st.ServerErr))
		} else {
			fmt.Printf("            %s\n", st.ServerMessage)
		}
		fmt.Printf("Storage:    %s\n", st.StorageType)
		if st.StorageErr != nil {
			fmt.Printf("            %v\n", st.StorageErr)
		}
		if !st.CredentialSavedAt.IsZero() {
			fmt.Printf("            credential saved %s\n", st.CredentialSavedAt.Local().Format(time.DateTime))
		}
		fmt.Printf("Encryption: %s\n", st.EncryptionType)
		if st.Recipient != "" {
			fmt.Printf("            %s\n", st.Recipient)
		}

		if st.ServerErr != nil || st.StorageErr != nil {
			cmd.SilenceUsage = true
			return errors.New("setup check failed")
		}
		return nil
	},
}

// document commands
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "List")
		if err != nil {
			return err
		}
		defer a.Close()

		docs, err := a.ListDocuments(cmd.Context())
		if err != nil {
			return userError(cmd, err)
		}
		fmt.Print(a.Renderer().DocumentList(docs))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Show")
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.GetDocument(cmd.Context(), args[0])
		if err != nil {
			return userError(cmd, err)
		}
		fmt.Print(a.Renderer().Document(doc))
		return nil
	},
}

// contentFlag reads --content, where "-" means standard input.
func contentFlag(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed("content") {
		return nil, nil
	}
	content, _ := cmd.Flags().GetString("content")
	if content == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading content: %w", err)
		}
		content = string(b)
	}
	return &content, nil
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a document",
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		content, err := contentFlag(cmd)
		if err != nil {
			return err
		}
		if content == nil {
			content = new(string)
		}

		a, err := newApp(cmd, "New")
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.CreateDocument(cmd.Context(), title, *content)
		if err != nil {
			return userError(cmd, err)
		}
		printNotification(a)
		fmt.Printf("ID: %s\n", doc.ID)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Change a document's title or content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var title *string
		if cmd.Flags().Changed("title") {
			t, _ := cmd.Flags().GetString("title")
			title = &t
		}
		content, err := contentFlag(cmd)
		if err != nil {
			return err
		}
		if title == nil && content == nil {
			return fmt.Errorf("nothing to change: pass --title and/or --content")
		}

		a, err := newApp(cmd, "Edit")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.EditDocument(cmd.Context(), args[0], title, content); err != nil {
			return userError(cmd, err)
		}
		printNotification(a)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		a, err := newApp(cmd, "Delete")
		if err != nil {
			return err
		}
		defer a.Close()

		confirm := docdisk.ConfirmFunc(func(doc docdisk.Document) bool {
			if yes {
				return true
			}
			answer, err := prompt(fmt.Sprintf("Delete %q? [y/N] ", doc.Title))
			if err != nil {
				return false
			}
			answer = strings.ToLower(strings.TrimSpace(answer))
			return answer == "y" || answer == "yes"
		})

		deleted, err := a.DeleteDocument(cmd.Context(), args[0], confirm)
		if err != nil {
			return userError(cmd, err)
		}
		if !deleted {
			fmt.Println("Not deleted.")
			return nil
		}
		printNotification(a)
		return nil
	},
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Shell")
		if err != nil {
			return err
		}
		defer a.Close()

		sh := a.NewShell(stdin, os.Stdout)
		if term.IsTerminal(int(os.Stdin.Fd())) {
			sh.ReadSecret = promptSecret
		}
		return sh.Run(cmd.Context())
	},
}

var devServerCmd = &cobra.Command{
	Use:   "dev-server",
	Short: "Run an in-memory Document Disk server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		secret, _ := cmd.Flags().GetString("secret")
		if secret == "" {
			secret = os.Getenv("DOCDISK_DEV_SECRET")
		}

		srv := devserver.New(devserver.Options{
			Secret: secret,
			Logger: app.NewConsoleLogger(os.Stderr, uuid.NewString()),
		})
		return srv.ListenAndServe(cmd.Context(), addr)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log to stderr, including debug output")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringP("title", "t", "", "Document title")
	newCmd.Flags().StringP("content", "c", "", `Document content ("-" reads standard input)`)
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringP("title", "t", "", "New title")
	editCmd.Flags().StringP("content", "c", "", `New content ("-" reads standard input)`)
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(devServerCmd)
	devServerCmd.Flags().String("addr", ":8001", "Listen address")
	devServerCmd.Flags().String("secret", "", "Token signing secret (default $DOCDISK_DEV_SECRET or a fixed development secret)")
}
