package devserver

import (
	"errors"
	"sync"
	"time"
)

var (
	errUsernameTaken = errors.New("username taken")
	errNotFound      = errors.New("not found")
)

type user struct {
	ID             string
	Username       string
	HashedPassword []byte
	HashedPIN      []byte
	CreatedAt      time.Time
}

type document struct {
	ID        string
	Title     string
	Content   string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// store holds users and documents in memory. Documents keep insertion order.
type store struct {
	mu        sync.Mutex
	users     map[string]*user // by username
	usersByID map[string]*user
	documents []*document
}

func newStore() *store {
	return &store{
		users:     make(map[string]*user),
		usersByID: make(map[string]*user),
	}
}

func (s *store) addUser(u *user) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.Username]; ok {
		return errUsernameTaken
	}
	s.users[u.Username] = u
	s.usersByID[u.ID] = u
	return nil
}

func (s *store) userByName(username string) (user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return user{}, false
	}
	return *u, true
}

func (s *store) userByID(id string) (user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.usersByID[id]
	if !ok {
		return user{}, false
	}
	return *u, true
}

func (s *store) addDocument(d *document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = append(s.documents, d)
}

func (s *store) listDocuments(userID string) []document {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []document{}
	for _, d := range s.documents {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out
}

func (s *store) getDocument(userID, id string) (document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.documents {
		if d.ID == id && d.UserID == userID {
			return *d, nil
		}
	}
	return document{}, errNotFound
}

// updateDocument applies the non-nil fields. UpdatedAt only moves when
// something was set.
func (s *store) updateDocument(userID, id string, title, content *string, now time.Time) (document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.documents {
		if d.ID != id || d.UserID != userID {
			continue
		}
		if title == nil && content == nil {
			return *d, nil
		}
		if title != nil {
			d.Title = *title
		}
		if content != nil {
			d.Content = *content
		}
		d.UpdatedAt = now
		return *d, nil
	}
	return document{}, errNotFound
}

func (s *store) deleteDocument(userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, d := range s.documents {
		if d.ID == id && d.UserID == userID {
			s.documents = append(s.documents[:i], s.documents[i+1:]...)
			return nil
		}
	}
	return errNotFound
}
