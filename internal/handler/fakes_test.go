package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/policy"
	"github.com/iliyamo/marketplace-api/internal/repository"
	"github.com/iliyamo/marketplace-api/internal/utils"
)

// In-memory stores backing the handler tests. They implement the same
// store interfaces the repositories do, including the sentinel errors the
// handlers branch on.

type fakeUserStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]*repository.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, users: map[uint64]*repository.User{}}
}

func (s *fakeUserStore) add(u repository.User) *repository.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.nextID
	s.nextID++
	cp := u
	s.users[cp.ID] = &cp
	return &cp
}

func (s *fakeUserStore) Create(_ context.Context, u *repository.User, password string, cost int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return repository.ErrEmailExists
		}
		if existing.PhoneNumber == u.PhoneNumber {
			return repository.ErrPhoneExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	u.ID = s.nextID
	s.nextID++
	u.PasswordHash = hash
	u.CreatedAt = time.Now().UTC()
	cp := *u
	s.users[cp.ID] = &cp
	return nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *fakeUserStore) GetByID(_ context.Context, id uint64) (*repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) List(_ context.Context) ([]*repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*repository.User{}
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeUserStore) ListExcept(ctx context.Context, id uint64) ([]*repository.User, error) {
	all, _ := s.List(ctx)
	out := []*repository.User{}
	for _, u := range all {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *fakeUserStore) UpdateProfile(_ context.Context, id uint64, name, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Name, u.Address = name, address
	return nil
}

func (s *fakeUserStore) UpdateLogoPath(_ context.Context, id uint64, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.LogoPath = path
	return nil
}

func (s *fakeUserStore) SetBanned(_ context.Context, id uint64, banned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.IsBanned = banned
	return nil
}

func (s *fakeUserStore) SetSuper(_ context.Context, id uint64, super bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.IsSuper = super
	return nil
}

func (s *fakeUserStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

type fakeChatStore struct {
	mu     sync.Mutex
	nextID uint64
	chats  map[uint64]*repository.Chat
	users  *fakeUserStore
}

func newFakeChatStore(users *fakeUserStore) *fakeChatStore {
	return &fakeChatStore{nextID: 1, chats: map[uint64]*repository.Chat{}, users: users}
}

func (s *fakeChatStore) Create(_ context.Context, a, b uint64) (*repository.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u1, u2 := repository.NormalizePair(a, b)
	for _, c := range s.chats {
		if c.User1ID == u1 && c.User2ID == u2 {
			return nil, repository.ErrChatExists
		}
	}
	c := &repository.Chat{ID: s.nextID, User1ID: u1, User2ID: u2, CreatedAt: time.Now().UTC()}
	s.nextID++
	s.chats[c.ID] = c
	cp := *c
	return &cp, nil
}

func (s *fakeChatStore) GetByID(_ context.Context, id uint64) (*repository.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return nil, repository.ErrChatNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *fakeChatStore) GetWithUsers(ctx context.Context, id uint64) (*repository.ChatWithUsers, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &repository.ChatWithUsers{Chat: *c}
	if u, err := s.users.GetByID(ctx, c.User1ID); err == nil {
		out.User1 = repository.UserSummary{ID: u.ID, Name: u.Name, LogoPath: u.LogoPath}
	}
	if u, err := s.users.GetByID(ctx, c.User2ID); err == nil {
		out.User2 = repository.UserSummary{ID: u.ID, Name: u.Name, LogoPath: u.LogoPath}
	}
	return out, nil
}

func (s *fakeChatStore) ListForUser(ctx context.Context, userID uint64) ([]*repository.ChatWithUsers, error) {
	s.mu.Lock()
	ids := []uint64{}
	for id, c := range s.chats {
		if c.User1ID == userID || c.User2ID == userID {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()
	out := []*repository.ChatWithUsers{}
	for _, id := range ids {
		c, err := s.GetWithUsers(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *fakeChatStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[id]; !ok {
		return repository.ErrChatNotFound
	}
	delete(s.chats, id)
	return nil
}

type fakeMessageStore struct {
	mu       sync.Mutex
	nextID   uint64
	messages []*repository.Message
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{nextID: 1}
}

func (s *fakeMessageStore) Create(_ context.Context, m *repository.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.nextID
	s.nextID++
	m.Viewed = false
	m.CreatedAt = time.Now().UTC()
	cp := *m
	s.messages = append(s.messages, &cp)
	return nil
}

func (s *fakeMessageStore) GetByID(_ context.Context, id uint64) (*repository.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repository.ErrMessageNotFound
}

func (s *fakeMessageStore) ListByChat(_ context.Context, chatID uint64) ([]*repository.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*repository.Message{}
	for _, m := range s.messages {
		if m.ChatID == chatID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeMessageStore) MarkViewed(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			m.Viewed = true
			return nil
		}
	}
	return repository.ErrMessageNotFound
}

func (s *fakeMessageStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.messages {
		if m.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return nil
		}
	}
	return repository.ErrMessageNotFound
}

// fakeBroadcaster records published events.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []fakeEvent
}

type fakeEvent struct {
	Channel string
	Event   string
	Payload any
}

func (b *fakeBroadcaster) Publish(_ context.Context, channel, event string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, fakeEvent{Channel: channel, Event: event, Payload: payload})
	return nil
}

func (b *fakeBroadcaster) published() []fakeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]fakeEvent(nil), b.events...)
}

// fakeDenylist is an in-memory token denylist.
type fakeDenylist struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func newFakeDenylist() *fakeDenylist {
	return &fakeDenylist{revoked: map[string]bool{}}
}

func (d *fakeDenylist) Revoke(_ context.Context, jti string, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[jti] = true
	return nil
}

func (d *fakeDenylist) IsRevoked(_ context.Context, jti string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.revoked[jti]
}

// newTestContext builds an echo context for a JSON request, optionally
// acting as the given identity.
func newTestContext(method, target string, body string, ident *policy.Identity) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if ident != nil {
		c.Set("identity", *ident)
	}
	return c, rec
}

func decodeBody(rec *httptest.ResponseRecorder) map[string]any {
	out := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return out
}
