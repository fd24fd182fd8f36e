package core

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"crm.service/internal/core/model"
	"crm.service/internal/ports/messaging"
	"crm.service/pkg/apperror"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type fakeTx struct{ calls int }

func (f *fakeTx) WithinTx(ctx context.Context, fn func(context.Context) error) error {
	f.calls++
	return fn(ctx)
}

// fakeStore backs the in-memory repositories and applies the same
// conditional-write rules as the Postgres ones.
type fakeStore struct {
	mu        sync.Mutex
	employees map[string]model.Employee
	leads     map[string]model.Lead
	records   map[string]model.AttendanceRecord

	// beforeSwap runs inside CompareAndSwap before the version check.
	beforeSwap func()
	// assignLost makes AssignIfUnassigned report a lost race.
	assignLost bool
	// beforeLeadUpdate runs inside lead Update, after the caller's checks.
	beforeLeadUpdate func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		employees: map[string]model.Employee{},
		leads:     map[string]model.Lead{},
		records:   map[string]model.AttendanceRecord{},
	}
}

func (s *fakeStore) addEmployee(id string, lang model.Language, loc model.Location) model.Employee {
	e := model.Employee{ID: id, FirstName: "First" + id, LastName: "Last" + id, Email: id + "@crm.test", Language: lang, Location: loc}
	s.employees[id] = e
	return e
}

func (s *fakeStore) addLead(id, owner string, status model.LeadStatus) model.Lead {
	l := model.Lead{ID: id, Name: "Lead " + id, Language: model.LanguageEnglish, Location: model.LocationDelhi, Type: model.LeadWarm, Status: status, Version: 1}
	if owner != "" {
		o := owner
		l.AssignedTo = &o
	}
	email := id + "@lead.test"
	l.Email = &email
	s.leads[id] = l
	return l
}

func (s *fakeStore) pendingOf(employeeID string) int {
	n := 0
	for _, l := range s.leads {
		if l.AssignedTo != nil && *l.AssignedTo == employeeID && l.Status == model.LeadPending {
			n++
		}
	}
	return n
}

type fakeEmployees struct{ *fakeStore }

func (f fakeEmployees) Create(_ context.Context, e *model.Employee) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.employees {
		if other.Email == e.Email {
			return apperror.Validation("email", "employee with email %s already exists", e.Email)
		}
	}
	f.employees[e.ID] = *e
	return nil
}

func (f fakeEmployees) FindByID(_ context.Context, id string) (*model.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.employees[id]
	if !ok {
		return nil, apperror.NotFound("employee %s not found", id)
	}
	return &e, nil
}

func (f fakeEmployees) FindByFullName(_ context.Context, first, last string) (*model.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.sortedEmployees() {
		if strings.EqualFold(e.FirstName, first) && strings.EqualFold(e.LastName, last) {
			return &e, nil
		}
	}
	return nil, nil
}

func (f fakeEmployees) List(_ context.Context) ([]model.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedEmployees(), nil
}

func (s *fakeStore) sortedEmployees() []model.Employee {
	out := make([]model.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f fakeEmployees) SetActive(_ context.Context, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.employees[id]
	if !ok {
		return apperror.NotFound("employee %s not found", id)
	}
	e.Active = active
	f.employees[id] = e
	return nil
}

func (f fakeEmployees) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.leads {
		if l.AssignedTo != nil && *l.AssignedTo == id {
			return apperror.Storage(nil, "employee %s still owns lead %s", id, l.ID)
		}
	}
	delete(f.employees, id)
	return nil
}

type fakeLeads struct{ *fakeStore }

func (f fakeLeads) Create(_ context.Context, l *model.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads[l.ID] = *l
	return nil
}

func (f fakeLeads) FindByID(_ context.Context, id string) (*model.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[id]
	if !ok {
		return nil, apperror.NotFound("lead %s not found", id)
	}
	return &l, nil
}

func (f fakeLeads) List(_ context.Context, flt model.LeadFilter) (model.LeadPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Lead
	for _, l := range f.leads {
		if flt.Status != "" && l.Status != flt.Status {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return model.LeadPage{Leads: out, Total: len(out)}, nil
}

func (f fakeLeads) ContactTaken(_ context.Context, email, phone *string) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var e, p bool
	for _, l := range f.leads {
		if email != nil && l.Email != nil && *l.Email == *email {
			e = true
		}
		if phone != nil && l.Phone != nil && *l.Phone == *phone {
			p = true
		}
	}
	return e, p, nil
}

func (f fakeLeads) PendingCounts(_ context.Context, ids []string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(ids))
	for _, id := range ids {
		out[id] = f.pendingOf(id)
	}
	return out, nil
}

func (f fakeLeads) PendingByAssignee(_ context.Context, employeeID string) ([]model.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Lead
	for _, l := range f.leads {
		if l.AssignedTo != nil && *l.AssignedTo == employeeID && l.Status == model.LeadPending {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeLeads) AssignIfUnassigned(_ context.Context, leadID, employeeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[leadID]
	if !ok || l.AssignedTo != nil || f.assignLost {
		return false, nil
	}
	l.AssignedTo = &employeeID
	l.Version++
	f.leads[leadID] = l
	return true, nil
}

func (f fakeLeads) Reassign(_ context.Context, leadID, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[leadID]
	if !ok || l.AssignedTo == nil || *l.AssignedTo != from || l.Status != model.LeadPending {
		return false, nil
	}
	l.AssignedTo = &to
	if f.slotClash(l) {
		return false, apperror.StateConflict("employee already has a lead scheduled at that time")
	}
	l.Version++
	f.leads[leadID] = l
	return true, nil
}

// slotClash mirrors the unique index on pending (owner, date, time).
func (f fakeLeads) slotClash(l model.Lead) bool {
	if l.AssignedTo == nil || l.Schedule == nil || l.Status != model.LeadPending {
		return false
	}
	for _, o := range f.leads {
		if o.ID == l.ID || o.AssignedTo == nil || o.Schedule == nil || o.Status != model.LeadPending {
			continue
		}
		if *o.AssignedTo == *l.AssignedTo && o.Schedule.Equal(*l.Schedule) {
			return true
		}
	}
	return false
}

func (f fakeLeads) UnassignPending(_ context.Context, employeeID string) (int, error) {
	return f.clearOwner(employeeID, model.LeadPending), nil
}

func (f fakeLeads) ReleaseClosed(_ context.Context, employeeID string) (int, error) {
	return f.clearOwner(employeeID, model.LeadClosed), nil
}

func (f fakeLeads) clearOwner(employeeID string, status model.LeadStatus) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, l := range f.leads {
		if l.AssignedTo != nil && *l.AssignedTo == employeeID && l.Status == status {
			l.AssignedTo = nil
			l.Version++
			f.leads[id] = l
			n++
		}
	}
	return n
}

func (f fakeLeads) ScheduleTaken(_ context.Context, employeeID, excludeLeadID string, s model.Schedule) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.leads {
		if l.ID == excludeLeadID || l.Status == model.LeadClosed || l.Schedule == nil {
			continue
		}
		if l.AssignedTo != nil && *l.AssignedTo == employeeID && l.Schedule.Equal(s) {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeLeads) Update(_ context.Context, l *model.Lead, expected int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.beforeLeadUpdate != nil {
		f.beforeLeadUpdate()
	}
	cur, ok := f.leads[l.ID]
	if !ok {
		return apperror.NotFound("lead %s not found", l.ID)
	}
	if cur.Version != expected {
		return apperror.StateConflict("lead %s was modified concurrently", l.ID)
	}
	if f.slotClash(*l) {
		return apperror.StateConflict("employee already has a lead scheduled at that time")
	}
	l.Version = expected + 1
	f.leads[l.ID] = *l
	return nil
}

type fakeAttendance struct{ *fakeStore }

func (f fakeAttendance) FindByEmployeeAndDay(_ context.Context, employeeID string, day time.Time) (*model.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.EmployeeID == employeeID && r.Day.Equal(day) {
			c := r.Clone()
			return &c, nil
		}
	}
	return nil, nil
}

func (f fakeAttendance) FindByID(_ context.Context, id string) (*model.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, apperror.NotFound("attendance record %s not found", id)
	}
	c := r.Clone()
	return &c, nil
}

func (f fakeAttendance) ListByEmployee(_ context.Context, employeeID string) ([]model.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AttendanceRecord
	for _, r := range f.records {
		if r.EmployeeID == employeeID {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (f fakeAttendance) Create(_ context.Context, r *model.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.records {
		if existing.EmployeeID == r.EmployeeID && existing.Day.Equal(r.Day) {
			return apperror.StateConflict("attendance for this day was recorded concurrently")
		}
	}
	r.Version = 1
	f.records[r.ID] = r.Clone()
	return nil
}

func (f fakeAttendance) CompareAndSwap(_ context.Context, r *model.AttendanceRecord, expected int64) error {
	if f.beforeSwap != nil {
		f.beforeSwap()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.records[r.ID]
	if !ok || cur.Version != expected {
		return apperror.StateConflict("attendance record changed concurrently")
	}
	r.Version = expected + 1
	f.records[r.ID] = r.Clone()
	return nil
}

func (f fakeAttendance) UpdateExportStatus(_ context.Context, id string, status model.ExportStatus, retry int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.records[id]
	r.ExportStatus = status
	r.ExportRetryCount = retry
	f.records[id] = r
	return nil
}

type fakePublisher struct {
	mu            sync.Mutex
	notifications []messaging.NotificationEvent
	timesheets    []messaging.DayClosedEvent
	err           error
}

func (p *fakePublisher) PublishNotification(_ context.Context, e messaging.NotificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, e)
	return p.err
}

func (p *fakePublisher) PublishTimesheet(_ context.Context, e messaging.DayClosedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timesheets = append(p.timesheets, e)
	return p.err
}

// fixture wires every service over one fake store.
type fixture struct {
	store      *fakeStore
	clock      *fakeClock
	tx         *fakeTx
	publisher  *fakePublisher
	leads      *LeadService
	employees  *EmployeeService
	attendance *AttendanceService
}

func newFixture() *fixture {
	store := newFakeStore()
	clock := &fakeClock{now: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}
	tx := &fakeTx{}
	pub := &fakePublisher{}
	emps, lds, att := fakeEmployees{store}, fakeLeads{store}, fakeAttendance{store}

	return &fixture{
		store:      store,
		clock:      clock,
		tx:         tx,
		publisher:  pub,
		leads:      NewLeadService(tx, emps, lds, pub, clock),
		employees:  NewEmployeeService(tx, emps, lds, pub, clock),
		attendance: NewAttendanceService(tx, emps, att, pub, clock),
	}
}
