package http

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"conexbot/internal/entities"
)

type memUsers struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*entities.User
}

func newMemUsers() *memUsers { return &memUsers{rows: map[int]*entities.User{}} }

func (s *memUsers) taken(email string, exceptID int) error {
	for id, u := range s.rows {
		if id == exceptID {
			continue
		}
		if strings.EqualFold(u.Email, email) {
			return entities.ErrEmailTaken
		}
		if entities.ClientID(u.Email) == entities.ClientID(email) {
			return entities.ErrClientIDTaken
		}
	}
	return nil
}

func copyUser(u *entities.User) *entities.User {
	c := *u
	c.Contacts = append([]entities.Contact{}, u.Contacts...)
	return &c
}

func (s *memUsers) Create(_ context.Context, u *entities.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.taken(u.Email, 0); err != nil {
		return err
	}
	s.nextID++
	u.ID, u.CreatedAt, u.UpdatedAt = s.nextID, time.Now(), time.Now()
	s.rows[u.ID] = copyUser(u)
	return nil
}

func (s *memUsers) GetByID(_ context.Context, id int) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.rows[id]; ok {
		return copyUser(u), nil
	}
	return nil, nil
}

func (s *memUsers) GetByEmail(_ context.Context, email string) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.rows {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (s *memUsers) List(context.Context) ([]entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []entities.User{}
	for _, u := range s.rows {
		out = append(out, *copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memUsers) Update(_ context.Context, u *entities.User, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[u.ID]
	if !ok {
		return entities.ErrNotFound
	}
	if err := s.taken(u.Email, u.ID); err != nil {
		return err
	}
	if hash == "" {
		u.PasswordHash = cur.PasswordHash
	} else {
		u.PasswordHash = hash
	}
	s.rows[u.ID] = copyUser(u)
	return nil
}

func (s *memUsers) with(id int, fn func(u *entities.User)) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	fn(u)
	return copyUser(u), nil
}

func (s *memUsers) UpdateRole(_ context.Context, id int, role string) (*entities.User, error) {
	return s.with(id, func(u *entities.User) { u.Role = role })
}

func (s *memUsers) UpdateProfile(_ context.Context, id int, upd entities.ProfileUpdate) (*entities.User, error) {
	return s.with(id, func(u *entities.User) {
		if upd.Name != nil {
			u.Name = *upd.Name
		}
		if upd.Company != nil {
			u.Company = *upd.Company
		}
		if upd.Phone != nil {
			u.Phone = *upd.Phone
		}
		if upd.CPF != nil {
			u.CPF = *upd.CPF
		}
	})
}

func (s *memUsers) Delete(_ context.Context, id int) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	delete(s.rows, id)
	return u, nil
}

func (s *memUsers) CountByRole(context.Context) (entities.RoleCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c entities.RoleCounts
	for _, u := range s.rows {
		c.Total++
		switch u.Role {
		case entities.RoleAdmin:
			c.Admins++
		case entities.RoleModerator:
			c.Moderators++
		default:
			c.Users++
		}
	}
	return c, nil
}

func (s *memUsers) SetMessageTemplate(_ context.Context, id int, msg string) error {
	_, err := s.with(id, func(u *entities.User) { u.MessageTemplate = msg })
	return err
}

func (s *memUsers) SetContacts(_ context.Context, id int, c []entities.Contact) error {
	_, err := s.with(id, func(u *entities.User) { u.Contacts = append([]entities.Contact{}, c...) })
	return err
}

func (s *memUsers) SetMessageInterval(_ context.Context, id int, sec int) error {
	_, err := s.with(id, func(u *entities.User) { u.MessageInterval = sec })
	return err
}

func (s *memUsers) SetIAEnabled(_ context.Context, id int, on bool) error {
	_, err := s.with(id, func(u *entities.User) { u.IAEnabled = on })
	return err
}

type stubProvider struct {
	mu     sync.Mutex
	fail   bool
	status entities.InstanceStatus
	calls  []string
}

func (p *stubProvider) record(op string) {
	p.mu.Lock()
	p.calls = append(p.calls, op)
	p.mu.Unlock()
}

func (p *stubProvider) called(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (p *stubProvider) result(email string) entities.InstanceResult {
	if p.fail {
		return entities.InstanceResult{ClientID: entities.ClientID(email), Error: "HTTP 500: provider down"}
	}
	return entities.InstanceResult{Success: true, ClientID: entities.ClientID(email)}
}

func (p *stubProvider) CreateInstance(_ context.Context, email string, _ entities.InstanceOptions) entities.InstanceResult {
	p.record("create")
	return p.result(email)
}

func (p *stubProvider) DeleteInstance(_ context.Context, email string) entities.InstanceResult {
	p.record("delete")
	return p.result(email)
}

func (p *stubProvider) Status(_ context.Context, email string) entities.StatusResult {
	p.record("status")
	if p.fail {
		return entities.StatusResult{ClientID: entities.ClientID(email), Error: "HTTP 404: instance not found"}
	}
	return entities.StatusResult{Success: true, ClientID: entities.ClientID(email), Status: p.status}
}

func (p *stubProvider) ListInstances(context.Context) entities.InstanceListResult {
	p.record("list")
	if p.fail {
		return entities.InstanceListResult{Error: "HTTP 500: provider down"}
	}
	return entities.InstanceListResult{Success: true, Instances: []map[string]any{{"clientId": "ana@loja.com"}}}
}

func (p *stubProvider) QRCode(_ context.Context, email string) entities.QRResult {
	p.record("qr")
	if p.fail {
		return entities.QRResult{ClientID: entities.ClientID(email), Error: "HTTP 404: no qr"}
	}
	return entities.QRResult{Success: true, ClientID: entities.ClientID(email), QRCode: "2@abc,def", Status: "qr"}
}

func (p *stubProvider) Logout(_ context.Context, email string) entities.InstanceResult {
	p.record("logout")
	return p.result(email)
}

func (p *stubProvider) SendText(_ context.Context, email, _, _ string, _ entities.SendTextOptions) entities.InstanceResult {
	p.record("send")
	return p.result(email)
}

type memMedia struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]entities.Media
}

func newMemMedia() *memMedia { return &memMedia{rows: map[int]entities.Media{}} }

func (s *memMedia) Create(_ context.Context, m *entities.Media) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	s.rows[m.ID] = *m
	return nil
}

func (s *memMedia) ListByUser(_ context.Context, userID int) ([]entities.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []entities.Media{}
	for _, m := range s.rows {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memMedia) GetForUser(_ context.Context, id, userID int) (*entities.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.rows[id]; ok && m.UserID == userID {
		return &m, nil
	}
	return nil, nil
}

func (s *memMedia) Delete(_ context.Context, id, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.rows[id]; !ok || m.UserID != userID {
		return entities.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

type stubStorage struct {
	deleteErr error
	lastMIME  string
}

func (s *stubStorage) Upload(_ context.Context, _, filename, mimeType string, body io.Reader) (*entities.StoredObject, error) {
	data, _ := io.ReadAll(body)
	s.lastMIME = mimeType
	return &entities.StoredObject{ID: "r-" + filename, URL: "https://cdn.example/" + filename, Filename: filename, MimeType: mimeType, Size: int64(len(data))}, nil
}

func (s *stubStorage) Delete(context.Context, string) error { return s.deleteErr }
