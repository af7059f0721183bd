package devserver

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nkiryanov/doccollab/internal/apperrors"
	"github.com/nkiryanov/doccollab/internal/models"
)

type userRecord struct {
	user           models.User
	hashedPassword string
}

// In-memory state of the API: users, their notifications and documents
type Store struct {
	mu     sync.RWMutex
	nextID int64

	users         map[int64]userRecord
	notifications map[int64][]models.Notification
	documents     map[int64]models.Document
}

func NewStore() *Store {
	return &Store{
		users:         make(map[int64]userRecord),
		notifications: make(map[int64][]models.Notification),
		documents:     make(map[int64]models.Document),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// CreateUser stores user. Email and username are unique
func (s *Store) CreateUser(user models.User, hashedPassword string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.users {
		if strings.EqualFold(rec.user.Email, user.Email) || rec.user.Username == user.Username {
			return models.User{}, apperrors.ErrUserAlreadyExists
		}
	}

	user.ID = s.id()
	s.users[user.ID] = userRecord{user: user, hashedPassword: hashedPassword}
	return user, nil
}

// UserByEmail returns user and its password hash
func (s *Store) UserByEmail(email string) (models.User, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.users {
		if strings.EqualFold(rec.user.Email, email) {
			return rec.user, rec.hashedPassword, nil
		}
	}
	return models.User{}, "", apperrors.ErrInvalidCredentials
}

func (s *Store) User(id int64) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[id]
	if !ok {
		return models.User{}, apperrors.ErrInvalidCredentials
	}
	return rec.user, nil
}

// AddNotification notifies user about document
func (s *Store) AddNotification(userID int64, message string, ts time.Time, doc models.Document) models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := models.Notification{ID: s.id(), Message: message, Timestamp: ts, Document: doc}
	if rec, ok := s.users[userID]; ok {
		recipient := rec.user
		n.Recipient = &recipient
	}
	s.notifications[userID] = append(s.notifications[userID], n)
	return n
}

// Notifications of the user, newest first
func (s *Store) Notifications(userID int64) []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := slices.Clone(s.notifications[userID])
	slices.SortStableFunc(list, func(a, b models.Notification) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if list == nil {
		list = []models.Notification{}
	}
	return list
}

func (s *Store) MarkRead(userID int64, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.notifications[userID]
	for i := range list {
		if list[i].ID == id {
			list[i].Read = true
			return nil
		}
	}
	return apperrors.ErrNotificationNotFound
}

func (s *Store) MarkAllRead(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications[userID] {
		s.notifications[userID][i].Read = true
	}
}

// DeleteNotification deletes notification by id, negative id deletes all of them
func (s *Store) DeleteNotification(userID int64, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id < 0 {
		delete(s.notifications, userID)
		return nil
	}

	list := s.notifications[userID]
	i := slices.IndexFunc(list, func(n models.Notification) bool { return n.ID == id })
	if i < 0 {
		return apperrors.ErrNotificationNotFound
	}
	s.notifications[userID] = slices.Delete(list, i, i+1)
	return nil
}

// AddDocument stores document owned by user
func (s *Store) AddDocument(userID int64, doc models.Document) models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.ID = s.id()
	if rec, ok := s.users[userID]; ok {
		owner := rec.user
		doc.Owner = &owner
	}
	s.documents[doc.ID] = doc
	return doc
}

// Documents owned by user ordered by id
func (s *Store) Documents(userID int64) []models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := []models.Document{}
	for _, doc := range s.documents {
		if doc.Owner != nil && doc.Owner.ID == userID {
			docs = append(docs, doc)
		}
	}
	slices.SortFunc(docs, func(a, b models.Document) int { return cmp.Compare(a.ID, b.ID) })
	return docs
}

func (s *Store) Document(userID int64, id int64) (models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok || doc.Owner == nil || doc.Owner.ID != userID {
		return models.Document{}, apperrors.ErrDocumentNotFound
	}
	return doc, nil
}

// UpdateDocument replaces document name and content
func (s *Store) UpdateDocument(userID int64, update models.Document) (models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[update.ID]
	if !ok || doc.Owner == nil || doc.Owner.ID != userID {
		return models.Document{}, apperrors.ErrDocumentNotFound
	}

	doc.Name = update.Name
	doc.Content = update.Content
	s.documents[doc.ID] = doc
	return doc, nil
}
