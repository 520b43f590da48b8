// Package devserver is an in-memory implementation of the Document Disk
// HTTP API for local development and end-to-end tests.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"docdisk/internal/docdisk"
)

const (
	// TokenLifetime is how long an issued access token stays valid.
	TokenLifetime = 24 * time.Hour

	// DefaultSecret signs tokens when no secret is configured.
	DefaultSecret = "docdisk-dev-secret"

	wireTimeLayout = "2006-01-02T15:04:05.999999"
	maxRequestBody = 1 << 20
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

type contextKey string

const userIDKey contextKey = "userID"

// Options configures a Server. Zero values get development defaults.
type Options struct {
	Secret     string
	Clock      docdisk.Clock
	IDs        docdisk.IDGenerator
	Logger     *slog.Logger
	BcryptCost int
}

// Server serves the Document Disk API from memory.
type Server struct {
	store  *store
	secret []byte
	clock  docdisk.Clock
	ids    docdisk.IDGenerator
	logger *slog.Logger
	cost   int
	router *mux.Router
}

func New(opts Options) *Server {
	if opts.Secret == "" {
		opts.Secret = DefaultSecret
	}
	if opts.Clock == nil {
		opts.Clock = docdisk.RealClock{}
	}
	if opts.IDs == nil {
		opts.IDs = docdisk.UUIDGenerator{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}

	s := &Server{
		store:  newStore(),
		secret: []byte(opts.Secret),
		clock:  opts.Clock,
		ids:    opts.IDs,
		logger: opts.Logger,
		cost:   opts.BcryptCost,
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	api.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.requireAuth)
	authed.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)
	authed.HandleFunc("/documents", s.handleListDocuments).Methods(http.MethodGet)
	authed.HandleFunc("/documents", s.handleCreateDocument).Methods(http.MethodPost)
	authed.HandleFunc("/documents/{id}", s.handleGetDocument).Methods(http.MethodGet)
	authed.HandleFunc("/documents/{id}", s.handleUpdateDocument).Methods(http.MethodPut)
	authed.HandleFunc("/documents/{id}", s.handleDeleteDocument).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

// Wire types.

type userResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

type documentResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	UserID    string `json:"user_id"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type validationError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// wireTime formats t the way the reference service does: naive UTC with
// microseconds.
func wireTime(t time.Time) string {
	return t.UTC().Format(wireTimeLayout)
}

func toUserResponse(u user) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, CreatedAt: wireTime(u.CreatedAt)}
}

func toDocumentResponse(d document) documentResponse {
	return documentResponse{
		ID:        d.ID,
		Title:     d.Title,
		Content:   d.Content,
		UserID:    d.UserID,
		CreatedAt: wireTime(d.CreatedAt),
		UpdatedAt: wireTime(d.UpdatedAt),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

// decodeBody reads a JSON object into a field map. Missing required fields
// and non-string values are reported together, like a validation framework
// would.
func decodeBody(r *http.Request, required []string, optional []string) (map[string]*string, []validationError) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&raw); err != nil || raw == nil {
		return nil, []validationError{{Loc: []string{"body"}, Msg: "Invalid JSON body", Type: "value_error.jsondecode"}}
	}

	fields := make(map[string]*string)
	var errs []validationError
	read := func(name string, req bool) {
		v, ok := raw[name]
		if !ok || string(v) == "null" {
			if req {
				errs = append(errs, validationError{Loc: []string{"body", name}, Msg: "field required", Type: "value_error.missing"})
			}
			return
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			errs = append(errs, validationError{Loc: []string{"body", name}, Msg: "str type expected", Type: "type_error.str"})
			return
		}
		fields[name] = &s
	}
	for _, name := range required {
		read(name, true)
	}
	for _, name := range optional {
		read(name, false)
	}
	return fields, errs
}

// Handlers.

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Document Disk API is running"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	fields, errs := decodeBody(r, []string{"username", "password", "pin"}, nil)
	if len(errs) == 0 {
		if len(*fields["username"]) < 3 {
			errs = append(errs, validationError{Loc: []string{"body", "username"}, Msg: "Username must be at least 3 characters", Type: "value_error"})
		}
		if !pinPattern.MatchString(*fields["pin"]) {
			errs = append(errs, validationError{Loc: []string{"body", "pin"}, Msg: "Pin must be exactly 4 digits", Type: "value_error"})
		}
	}
	if len(errs) > 0 {
		writeDetail(w, http.StatusUnprocessableEntity, errs)
		return
	}

	username := normalizeUsername(*fields["username"])
	if _, exists := s.store.userByName(username); exists {
		writeDetail(w, http.StatusBadRequest, "Username already registered")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*fields["password"]), s.cost)
	if err != nil {
		s.internalError(w, r, "hashing password", err)
		return
	}
	hashedPIN, err := bcrypt.GenerateFromPassword([]byte(*fields["pin"]), s.cost)
	if err != nil {
		s.internalError(w, r, "hashing pin", err)
		return
	}

	u := &user{
		ID:             s.ids.New(),
		Username:       username,
		HashedPassword: hashedPassword,
		HashedPIN:      hashedPIN,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.store.addUser(u); err != nil {
		if errors.Is(err, errUsernameTaken) {
			writeDetail(w, http.StatusBadRequest, "Username already registered")
			return
		}
		s.internalError(w, r, "storing user", err)
		return
	}

	s.logger.Info("user registered", "user_id", u.ID, "username", u.Username)
	writeJSON(w, http.StatusOK, toUserResponse(*u))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	fields, errs := decodeBody(r, []string{"username", "password", "pin"}, nil)
	if len(errs) > 0 {
		writeDetail(w, http.StatusUnprocessableEntity, errs)
		return
	}

	u, ok := s.store.userByName(normalizeUsername(*fields["username"]))
	if !ok ||
		bcrypt.CompareHashAndPassword(u.HashedPassword, []byte(*fields["password"])) != nil ||
		bcrypt.CompareHashAndPassword(u.HashedPIN, []byte(*fields["pin"])) != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		s.internalError(w, r, "signing token", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := s.store.userByID(currentUserID(r))
	if !ok {
		writeCredentialsError(w)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.store.listDocuments(currentUserID(r))
	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	fields, errs := decodeBody(r, []string{"title", "content"}, nil)
	if len(errs) > 0 {
		writeDetail(w, http.StatusUnprocessableEntity, errs)
		return
	}

	now := s.clock.Now()
	d := &document{
		ID:        s.ids.New(),
		Title:     *fields["title"],
		Content:   *fields["content"],
		UserID:    currentUserID(r),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.store.addDocument(d)
	writeJSON(w, http.StatusOK, toDocumentResponse(*d))
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.getDocument(currentUserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Document not found")
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(d))
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	fields, errs := decodeBody(r, nil, []string{"title", "content"})
	if len(errs) > 0 {
		writeDetail(w, http.StatusUnprocessableEntity, errs)
		return
	}

	d, err := s.store.updateDocument(currentUserID(r), mux.Vars(r)["id"], fields["title"], fields["content"], s.clock.Now())
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Document not found")
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(d))
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.store.deleteDocument(currentUserID(r), mux.Vars(r)["id"]); err != nil {
		writeDetail(w, http.StatusNotFound, "Document not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Document deleted successfully"})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, what string, err error) {
	s.logger.Error(what, "path", r.URL.Path, "error", err)
	writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Tokens.

func (s *Server) issueToken(userID string) (string, error) {
	now := s.clock.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": now.Add(TokenLifetime).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) parseToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type %T", token.Claims)
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

func writeCredentialsError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
}

// Middleware.

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, tokenString, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			writeDetail(w, http.StatusForbidden, "Not authenticated")
			return
		}

		userID, err := s.parseToken(tokenString)
		if err != nil {
			s.logger.Debug("rejected token", "error", err)
			writeCredentialsError(w)
			return
		}
		if _, ok := s.store.userByID(userID); !ok {
			writeCredentialsError(w)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"request_id", requestID,
			"duration", time.Since(start))
	})
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("dev server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}
