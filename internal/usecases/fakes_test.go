package usecases

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"conexbot/internal/entities"
)

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*entities.User
	hashes map[int]string // password hash passed to the last Update
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{rows: map[int]*entities.User{}, hashes: map[int]string{}}
}

func (s *fakeUserStore) emailAvailable(email string, exceptID int) error {
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

func clone(u *entities.User) *entities.User {
	c := *u
	c.Contacts = append([]entities.Contact(nil), u.Contacts...)
	return &c
}

func (s *fakeUserStore) Create(_ context.Context, u *entities.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.emailAvailable(u.Email, 0); err != nil {
		return err
	}
	s.nextID++
	u.ID = s.nextID
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	s.rows[u.ID] = clone(u)
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id int) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.rows[id]; ok {
		return clone(u), nil
	}
	return nil, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.rows {
		if strings.EqualFold(u.Email, email) {
			return clone(u), nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) List(_ context.Context) ([]entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []entities.User{}
	for _, u := range s.rows {
		out = append(out, *clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *fakeUserStore) Update(_ context.Context, u *entities.User, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[u.ID]
	if !ok {
		return entities.ErrNotFound
	}
	if err := s.emailAvailable(u.Email, u.ID); err != nil {
		return err
	}
	s.hashes[u.ID] = hash
	if hash == "" {
		u.PasswordHash = cur.PasswordHash
	} else {
		u.PasswordHash = hash
	}
	s.rows[u.ID] = clone(u)
	return nil
}

func (s *fakeUserStore) UpdateRole(_ context.Context, id int, role string) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	u.Role = role
	return clone(u), nil
}

func (s *fakeUserStore) UpdateProfile(_ context.Context, id int, upd entities.ProfileUpdate) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
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
	return clone(u), nil
}

func (s *fakeUserStore) Delete(_ context.Context, id int) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	delete(s.rows, id)
	return u, nil
}

func (s *fakeUserStore) CountByRole(_ context.Context) (entities.RoleCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c entities.RoleCounts
	for _, u := range s.rows {
		c.Total++
		switch u.Role {
		case entities.RoleAdmin:
			c.Admins++
		case entities.RoleUser:
			c.Users++
		case entities.RoleModerator:
			c.Moderators++
		}
	}
	return c, nil
}

func (s *fakeUserStore) mutate(id int, fn func(u *entities.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return entities.ErrNotFound
	}
	fn(u)
	return nil
}

func (s *fakeUserStore) SetMessageTemplate(_ context.Context, id int, msg string) error {
	return s.mutate(id, func(u *entities.User) { u.MessageTemplate = msg })
}

func (s *fakeUserStore) SetContacts(_ context.Context, id int, c []entities.Contact) error {
	return s.mutate(id, func(u *entities.User) { u.Contacts = append([]entities.Contact{}, c...) })
}

func (s *fakeUserStore) SetMessageInterval(_ context.Context, id int, sec int) error {
	return s.mutate(id, func(u *entities.User) { u.MessageInterval = sec })
}

func (s *fakeUserStore) SetIAEnabled(_ context.Context, id int, on bool) error {
	return s.mutate(id, func(u *entities.User) { u.IAEnabled = on })
}

// fakeProvider records every call and answers from its fields.
type fakeProvider struct {
	mu       sync.Mutex
	calls    []string
	emails   []string
	fail     bool
	status   entities.InstanceStatus
	statuses []string // consumed one per Status call when set
	qr       func() entities.QRResult
	sent     []entities.Contact
	sendFail map[string]bool
}

func (p *fakeProvider) record(op, email string) {
	p.mu.Lock()
	p.calls = append(p.calls, op)
	p.emails = append(p.emails, email)
	p.mu.Unlock()
}

func (p *fakeProvider) result(email string) entities.InstanceResult {
	if p.fail {
		return entities.InstanceResult{ClientID: entities.ClientID(email), Error: "HTTP 502: bad gateway"}
	}
	return entities.InstanceResult{Success: true, ClientID: entities.ClientID(email)}
}

func (p *fakeProvider) CreateInstance(_ context.Context, email string, _ entities.InstanceOptions) entities.InstanceResult {
	p.record("create", email)
	r := p.result(email)
	if r.Success {
		r.QRCodeURL = "https://wa/api/whatsapp/qr-image?clientId=" + r.ClientID
	}
	return r
}

func (p *fakeProvider) DeleteInstance(_ context.Context, email string) entities.InstanceResult {
	p.record("delete", email)
	return p.result(email)
}

func (p *fakeProvider) Status(_ context.Context, email string) entities.StatusResult {
	p.record("status", email)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return entities.StatusResult{Error: "HTTP 404: not found"}
	}
	st := p.status
	if len(p.statuses) > 0 {
		st = entities.InstanceStatus{Status: p.statuses[0], Connected: entities.IsConnectedStatus(p.statuses[0])}
		p.statuses = p.statuses[1:]
	}
	return entities.StatusResult{Success: true, ClientID: entities.ClientID(email), Status: st}
}

func (p *fakeProvider) ListInstances(context.Context) entities.InstanceListResult {
	p.record("list", "")
	return entities.InstanceListResult{Success: true, Instances: []map[string]any{}}
}

func (p *fakeProvider) QRCode(_ context.Context, email string) entities.QRResult {
	p.record("qr", email)
	if p.qr != nil {
		return p.qr()
	}
	return entities.QRResult{Success: true, QRCode: "data:image/png;base64,AAAA", Status: "qr"}
}

func (p *fakeProvider) Logout(_ context.Context, email string) entities.InstanceResult {
	p.record("logout", email)
	return p.result(email)
}

func (p *fakeProvider) SendText(_ context.Context, email, phone, message string, _ entities.SendTextOptions) entities.InstanceResult {
	p.record("send", email)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendFail[phone] {
		return entities.InstanceResult{Error: "HTTP 400: invalid number"}
	}
	p.sent = append(p.sent, entities.Contact{Name: message, Phone: phone})
	return entities.InstanceResult{Success: true}
}

func (p *fakeProvider) count(op string) int {
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

type fakeMediaStore struct {
	mu        sync.Mutex
	rows      map[int]*entities.Media
	nextID    int
	createErr error
}

func newFakeMediaStore() *fakeMediaStore {
	return &fakeMediaStore{rows: map[int]*entities.Media{}}
}

func (s *fakeMediaStore) Create(_ context.Context, m *entities.Media) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	m.ID = s.nextID
	c := *m
	s.rows[m.ID] = &c
	return nil
}

func (s *fakeMediaStore) ListByUser(_ context.Context, userID int) ([]entities.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []entities.Media{}
	for _, m := range s.rows {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *fakeMediaStore) GetForUser(_ context.Context, id, userID int) (*entities.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.rows[id]; ok && m.UserID == userID {
		c := *m
		return &c, nil
	}
	return nil, nil
}

func (s *fakeMediaStore) Delete(_ context.Context, id, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.rows[id]; !ok || m.UserID != userID {
		return entities.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

type fakeStorage struct {
	deleteErr error
	deleted   []string
	uploads   int
}

func (f *fakeStorage) Upload(_ context.Context, _, filename, mimeType string, body io.Reader) (*entities.StoredObject, error) {
	data, _ := io.ReadAll(body)
	f.uploads++
	return &entities.StoredObject{
		ID:       "remote-" + filename,
		URL:      "https://cdn.example/" + filename,
		Filename: filename,
		MimeType: mimeType,
		Size:     int64(len(data)),
	}, nil
}

func (f *fakeStorage) Delete(_ context.Context, remoteID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, remoteID)
	return nil
}

var errBoom = errors.New("boom")

type fakeUsage struct {
	mu     sync.Mutex
	sent   map[int]int
	failed map[int]int
}

func newFakeUsage() *fakeUsage {
	return &fakeUsage{sent: map[int]int{}, failed: map[int]int{}}
}

func (f *fakeUsage) RecordSend(_ context.Context, userID int, delivered bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if delivered {
		f.sent[userID]++
	} else {
		f.failed[userID]++
	}
	return nil
}

func (f *fakeUsage) Summary(_ context.Context, userID int, _ int) (entities.UsageSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return entities.UsageSummary{
		TodaySent:   f.sent[userID],
		TodayFailed: f.failed[userID],
		MonthSent:   f.sent[userID],
		MonthFailed: f.failed[userID],
		History:     []entities.DailyUsage{},
	}, nil
}
