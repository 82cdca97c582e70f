package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/aligner-portal/internal/model"
	"github.com/iliyamo/aligner-portal/internal/notify"
	"github.com/iliyamo/aligner-portal/internal/repository"
	"github.com/iliyamo/aligner-portal/internal/storage"
)

// In-memory stores mirroring the repository contracts closely enough for
// service tests: same sentinel errors, same conditional updates.

type fakeUsers struct {
	mu   sync.Mutex
	next uint64
	rows map[uint64]model.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{rows: map[uint64]model.User{}} }

func (f *fakeUsers) Create(_ context.Context, u model.User) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, r := range f.rows {
		if r.Email == u.Email {
			return 0, repository.ErrEmailExists
		}
		if u.Role == model.RoleSuperAdmin && r.Role == model.RoleSuperAdmin {
			return 0, repository.ErrConflict
		}
	}
	f.next++
	u.ID = f.next
	u.CreatedAt = time.Now()
	f.rows[u.ID] = u
	return u.ID, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, r := range f.rows {
		if r.Email == email {
			return r, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) sorted(keep func(model.User) bool) []model.User {
	out := []model.User{}
	for _, r := range f.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeUsers) ListByRoles(_ context.Context, roles ...model.Role) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(u model.User) bool {
		for _, r := range roles {
			if u.Role == r {
				return true
			}
		}
		return false
	}), nil
}

func (f *fakeUsers) ListDoctorsByDistributer(_ context.Context, distID uint64) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(u model.User) bool {
		return u.Role == model.RoleDoctor && u.DistributerID != nil && *u.DistributerID == distID
	}), nil
}

func (f *fakeUsers) update(id uint64, fn func(*model.User) bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok || !fn(&u) {
		return repository.ErrNotFound
	}
	f.rows[id] = u
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	return f.update(id, func(u *model.User) bool { u.PasswordHash = hash; return true })
}

func (f *fakeUsers) UpdateCapabilities(_ context.Context, id uint64, caps model.Capability) error {
	return f.update(id, func(u *model.User) bool { u.Capabilities = caps; return true })
}

func (f *fakeUsers) SetSuspended(_ context.Context, id uint64, s bool) error {
	return f.update(id, func(u *model.User) bool { u.IsSuspended = s; return true })
}

func (f *fakeUsers) SetDistributer(_ context.Context, id uint64, dist *uint64) error {
	return f.update(id, func(u *model.User) bool {
		if u.Role != model.RoleDoctor {
			return false
		}
		u.DistributerID = dist
		return true
	})
}

type fakeDists struct {
	mu   sync.Mutex
	next uint64
	rows map[uint64]model.Distributer
}

func newFakeDists() *fakeDists { return &fakeDists{rows: map[uint64]model.Distributer{}} }

func (f *fakeDists) Create(_ context.Context, d model.Distributer) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Email == d.Email {
			return 0, repository.ErrEmailExists
		}
	}
	f.next++
	d.ID = f.next
	f.rows[d.ID] = d
	return d.ID, nil
}

func (f *fakeDists) GetByID(_ context.Context, id uint64) (model.Distributer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.rows[id]
	if !ok {
		return model.Distributer{}, repository.ErrNotFound
	}
	return d, nil
}

func (f *fakeDists) GetByEmail(_ context.Context, email string) (model.Distributer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Email == strings.ToLower(email) {
			return r, nil
		}
	}
	return model.Distributer{}, repository.ErrNotFound
}

func (f *fakeDists) List(_ context.Context) ([]model.Distributer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Distributer{}
	for _, r := range f.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDists) UpdateAccess(_ context.Context, id uint64, a model.DistributerAccess) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.Access = a
	f.rows[id] = d
	return nil
}

func (f *fakeDists) UpdatePassword(_ context.Context, id uint64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.PasswordHash = hash
	f.rows[id] = d
	return nil
}

type tokenRow struct {
	sub     model.Subject
	exp     time.Time
	revoked bool
}

type fakeTokens struct {
	mu   sync.Mutex
	rows map[string]*tokenRow
}

func newFakeTokens() *fakeTokens { return &fakeTokens{rows: map[string]*tokenRow{}} }

func (f *fakeTokens) StoreRefresh(_ context.Context, sub model.Subject, hash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[hash] = &tokenRow{sub: sub, exp: exp}
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (model.Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[hash]
	if !ok || r.revoked || time.Now().After(r.exp) {
		return model.Subject{}, repository.ErrNotFound
	}
	return r.sub, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rows[hash]; ok {
		r.revoked = true
	}
	return nil
}

func (f *fakeTokens) RevokeAll(_ context.Context, sub model.Subject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.sub == sub {
			r.revoked = true
		}
	}
	return nil
}

func (f *fakeTokens) active(sub model.Subject) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.rows {
		if r.sub == sub && !r.revoked {
			n++
		}
	}
	return n
}

type fakeCases struct {
	mu   sync.Mutex
	rows map[primitive.ObjectID]model.Patient
}

func newFakeCases() *fakeCases { return &fakeCases{rows: map[primitive.ObjectID]model.Patient{}} }

func (f *fakeCases) Create(_ context.Context, p *model.Patient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	f.rows[p.ID] = *p
	return nil
}

func (f *fakeCases) GetByID(_ context.Context, id primitive.ObjectID) (model.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return model.Patient{}, repository.ErrNotFound
	}
	return p, nil
}

func inScope(s model.CaseScope, p model.Patient) bool {
	if s.OwnerIDs != nil {
		found := false
		for _, id := range s.OwnerIDs {
			if id == p.UserID {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if s.PlannerID != nil && !p.IsAssignedTo(*s.PlannerID) {
		return false
	}
	return true
}

func (f *fakeCases) List(_ context.Context, q model.CaseQuery) ([]model.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Patient{}
	for _, p := range f.rows {
		if inScope(q.Scope, p) && (q.CaseStatus == "" || p.CaseStatus == q.CaseStatus) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeCases) mutate(id primitive.ObjectID, fn func(*model.Patient) error) (model.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return model.Patient{}, repository.ErrNotFound
	}
	if err := fn(&p); err != nil {
		return model.Patient{}, err
	}
	p.UpdatedAt = time.Now()
	f.rows[id] = p
	return p, nil
}

func (f *fakeCases) UpdateIntake(_ context.Context, id primitive.ObjectID, name string, in model.Intake) (model.Patient, error) {
	return f.mutate(id, func(p *model.Patient) error { p.PatientName, p.Intake = name, in; return nil })
}

func (f *fakeCases) SetStatus(_ context.Context, id primitive.ObjectID, st string, unlock bool) (model.Patient, error) {
	return f.mutate(id, func(p *model.Patient) error {
		p.CaseStatus = st
		if unlock {
			p.STLFile.CanUpload = true
		}
		return nil
	})
}

func (f *fakeCases) SetProgress(_ context.Context, id primitive.ObjectID, pr model.ProgressStatus) (model.Patient, error) {
	return f.mutate(id, func(p *model.Patient) error { p.ProgressStatus = pr; return nil })
}

func (f *fakeCases) SetPrice(_ context.Context, id primitive.ObjectID, total, received *int64) (model.Patient, error) {
	return f.mutate(id, func(p *model.Patient) error {
		if total != nil {
			p.Amount = p.Amount.WithTotal(*total)
		}
		if received != nil {
			p.Amount = p.Amount.WithReceived(*received)
		}
		return nil
	})
}

func (f *fakeCases) AssignPlanner(_ context.Context, id primitive.ObjectID, pl uint64, dl *time.Time) (model.Patient, error) {
	return f.mutate(id, func(p *model.Patient) error { p.PlannerID, p.PlannerDeadline = &pl, dl; return nil })
}

func (f *fakeCases) SetSTLFile(_ context.Context, id primitive.ObjectID, url, key string) (model.Patient, error) {
	return f.mutate(id, func(p *model.Patient) error {
		if !p.STLFile.CanUpload {
			return repository.ErrConflict
		}
		p.STLFile.URL, p.STLFile.Key = url, key
		return nil
	})
}

func (f *fakeCases) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeCases) Stats(_ context.Context, s model.CaseScope) (model.CaseStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := model.CaseStats{ByStatus: map[string]int64{}, ByProgress: map[string]int64{}}
	for _, p := range f.rows {
		if !inScope(s, p) {
			continue
		}
		st.Total++
		st.ByStatus[p.CaseStatus]++
		st.ByProgress[string(p.ProgressStatus)]++
		st.Amount.Total += p.Amount.Total
		st.Amount.Received += p.Amount.Received
		st.Amount.Pending += p.Amount.Pending
	}
	return st, nil
}

type fakeComments struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]*model.PatientComment // by patient
}

func newFakeComments() *fakeComments {
	return &fakeComments{docs: map[primitive.ObjectID]*model.PatientComment{}}
}

func (f *fakeComments) Append(_ context.Context, pid primitive.ObjectID, name string, e model.CommentEntry) (primitive.ObjectID, model.CommentEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[pid]
	if !ok {
		d = &model.PatientComment{ID: primitive.NewObjectID(), PatientID: pid, PatientName: name}
		f.docs[pid] = d
	}
	d.Comments = append(d.Comments, e)
	return d.ID, d.Comments[len(d.Comments)-1], nil
}

func (f *fakeComments) GetByPatient(_ context.Context, pid primitive.ObjectID) (model.PatientComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[pid]
	if !ok {
		return model.PatientComment{}, repository.ErrNotFound
	}
	cp := *d
	cp.Comments = append([]model.CommentEntry(nil), d.Comments...)
	return cp, nil
}

func (f *fakeComments) UpdateEntry(_ context.Context, pid, cid primitive.ObjectID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.docs[pid]; ok {
		for i := range d.Comments {
			if d.Comments[i].ID == cid {
				d.Comments[i].Comment = text
				return nil
			}
		}
	}
	return repository.ErrNotFound
}

func (f *fakeComments) DeleteEntry(_ context.Context, pid, cid primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.docs[pid]; ok {
		for i := range d.Comments {
			if d.Comments[i].ID == cid {
				d.Comments = append(d.Comments[:i], d.Comments[i+1:]...)
				return nil
			}
		}
	}
	return repository.ErrNotFound
}

func (f *fakeComments) DeleteByPatient(_ context.Context, pid primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, pid)
	return nil
}

type fakeFiles struct {
	mu   sync.Mutex
	rows []model.PatientFile
}

func (f *fakeFiles) Create(_ context.Context, pf *model.PatientFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pf.ID.IsZero() {
		pf.ID = primitive.NewObjectID()
	}
	f.rows = append(f.rows, *pf)
	return nil
}

func (f *fakeFiles) GetByID(_ context.Context, id primitive.ObjectID) (model.PatientFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return model.PatientFile{}, repository.ErrNotFound
}

func (f *fakeFiles) ListByPatient(_ context.Context, pid primitive.ObjectID) ([]model.PatientFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.PatientFile{}
	for _, r := range f.rows {
		if r.PatientID == pid {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeFiles) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeFiles) DeleteByPatient(_ context.Context, pid primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.PatientID != pid {
			kept = append(kept, r)
		}
	}
	f.rows = kept
	return nil
}

type fakeNotes struct {
	mu   sync.Mutex
	rows []model.Notification
}

func (f *fakeNotes) Create(_ context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	f.rows = append(f.rows, *n)
	return nil
}

func (f *fakeNotes) ListFor(_ context.Context, aud string) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Notification{}
	for _, r := range f.rows {
		if r.CommentFor == aud {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Read != out[j].Read {
			return !out[i].Read
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeNotes) CountUnread(_ context.Context, aud string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range f.rows {
		if r.CommentFor == aud && !r.Read {
			n++
		}
	}
	return n, nil
}

func (f *fakeNotes) MarkRead(_ context.Context, id primitive.ObjectID, aud string) (model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id && f.rows[i].CommentFor == aud && !f.rows[i].Read {
			f.rows[i].Read = true
			return f.rows[i], nil
		}
	}
	return model.Notification{}, repository.ErrNotFound
}

func (f *fakeNotes) DeleteByPatient(_ context.Context, pid primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.PatientID != pid {
			kept = append(kept, r)
		}
	}
	f.rows = kept
	return nil
}

type fakeSpecial struct {
	mu   sync.Mutex
	rows map[primitive.ObjectID]*model.SpecialComment
}

func newFakeSpecial() *fakeSpecial {
	return &fakeSpecial{rows: map[primitive.ObjectID]*model.SpecialComment{}}
}

func (f *fakeSpecial) Create(_ context.Context, s *model.SpecialComment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	cp := *s
	cp.ReadBy = append([]model.ReadReceipt(nil), s.ReadBy...)
	f.rows[s.ID] = &cp
	return nil
}

func (f *fakeSpecial) GetByID(_ context.Context, id primitive.ObjectID) (model.SpecialComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok || !s.IsActive {
		return model.SpecialComment{}, repository.ErrNotFound
	}
	return *s, nil
}

func (f *fakeSpecial) ListActive(_ context.Context) ([]model.SpecialComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.SpecialComment{}
	for _, s := range f.rows {
		if s.IsActive {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeSpecial) CountUnread(_ context.Context, adminID uint64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.rows {
		if s.IsActive && s.UnreadBy(adminID) {
			n++
		}
	}
	return n, nil
}

func (f *fakeSpecial) MarkRead(_ context.Context, id primitive.ObjectID, adminID uint64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok || !s.IsActive {
		return repository.ErrNotFound
	}
	for i := range s.ReadBy {
		if s.ReadBy[i].AdminID == adminID && s.ReadBy[i].ReadAt == nil {
			t := at
			s.ReadBy[i].ReadAt = &t
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeSpecial) Update(_ context.Context, id primitive.ObjectID, title, comment string) (model.SpecialComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok || !s.IsActive {
		return model.SpecialComment{}, repository.ErrNotFound
	}
	s.Title, s.Comment = title, comment
	return *s, nil
}

func (f *fakeSpecial) Deactivate(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok || !s.IsActive {
		return repository.ErrNotFound
	}
	s.IsActive = false
	return nil
}

type fakeCats struct {
	mu   sync.Mutex
	rows []model.CaseCategory
}

func (f *fakeCats) Create(_ context.Context, c *model.CaseCategory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Category == c.Category {
			return repository.ErrConflict
		}
	}
	c.ID = primitive.NewObjectID()
	f.rows = append(f.rows, *c)
	return nil
}

func (f *fakeCats) List(_ context.Context) ([]model.CaseCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.CaseCategory{}, f.rows...), nil
}

func (f *fakeCats) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeBlobs struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeBlobs) PresignPut(_ context.Context, key, _ string) (storage.Upload, error) {
	return storage.Upload{Key: key, UploadURL: "https://blob.test/put/" + key, FileURL: "https://blob.test/" + key}, nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Email
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, e notify.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, e)
	return f.err
}

func (f *fakeNotifier) emails() []notify.Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Email(nil), f.sent...)
}
