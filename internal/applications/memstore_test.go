package applications

import (
	"context"
	"sort"
	"sync"
	"time"

	"gig-marketplace/internal/models"
)

// memStore is an in-memory Store with the same atomicity as the Postgres one: every
// method runs under one mutex, standing in for the job row lock.
type memStore struct {
	mu    sync.Mutex
	jobs  map[string]*models.JobSummary
	hired map[string]string
	apps  map[string]*models.Application
	clock time.Time
}

func newMemStore() *memStore {
	return &memStore{
		jobs:  map[string]*models.JobSummary{},
		hired: map[string]string{},
		apps:  map[string]*models.Application{},
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) addJob(id, owner string, status models.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id] = &models.JobSummary{ID: id, Title: "Job " + id, Status: status, PostedBy: owner}
}

func (m *memStore) jobStatus(id string) models.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id].Status
}

func (m *memStore) GetJob(_ context.Context, jobID string) (*models.JobSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *memStore) Get(_ context.Context, id string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, ErrApplicationNotFound
	}
	cp := *app
	return &cp, nil
}

func (m *memStore) Exists(_ context.Context, jobID, applicantID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, app := range m.apps {
		if app.JobID == jobID && app.ApplicantID == applicantID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Create(_ context.Context, app *models.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[app.JobID]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status != models.JobOpen {
		return ErrJobNotOpen
	}
	for _, other := range m.apps {
		if other.JobID == app.JobID && other.ApplicantID == app.ApplicantID {
			return ErrDuplicate
		}
	}
	now := m.tick()
	app.CreatedAt, app.UpdatedAt = now, now
	cp := *app
	m.apps[app.ID] = &cp
	return nil
}

func (m *memStore) UpdateStatus(_ context.Context, id string, status models.ApplicationStatus, notes *string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, ErrApplicationNotFound
	}
	if m.jobs[app.JobID].Status != models.JobOpen {
		return nil, ErrJobNotOpen
	}
	app.Status = status
	if notes != nil {
		app.Notes = *notes
	}
	app.UpdatedAt = m.tick()
	cp := *app
	return &cp, nil
}

func (m *memStore) UpdateNotes(_ context.Context, id string, notes string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, ErrApplicationNotFound
	}
	app.Notes = notes
	app.UpdatedAt = m.tick()
	cp := *app
	return &cp, nil
}

func (m *memStore) Accept(_ context.Context, jobID, id string, notes *string, _ string) (*AcceptResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	target, ok := m.apps[id]
	if !ok || target.JobID != jobID {
		return nil, ErrApplicationNotFound
	}
	if job.Status != models.JobOpen {
		return nil, ErrRaceLost
	}

	now := m.tick()
	job.Status = models.JobInProgress
	m.hired[jobID] = target.ApplicantID

	target.Status = models.ApplicationAccepted
	if notes != nil {
		target.Notes = *notes
	}
	target.UpdatedAt = now

	result := &AcceptResult{Accepted: *target}
	for _, app := range m.apps {
		if app.JobID != jobID || app.ID == id || app.Status == models.ApplicationRejected {
			continue
		}
		app.Status = models.ApplicationRejected
		app.Notes = SiblingRejectionNote
		app.UpdatedAt = now
		result.Rejected = append(result.Rejected, *app)
	}
	return result, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return ErrApplicationNotFound
	}
	if app.Status == models.ApplicationAccepted {
		return ErrAccepted
	}
	delete(m.apps, id)
	return nil
}

func (m *memStore) ListByJob(_ context.Context, jobID string) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Application{}
	for _, app := range m.apps {
		if app.JobID == jobID {
			out = append(out, *app)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) ListByApplicant(_ context.Context, applicantID string) ([]models.ApplicationWithJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ApplicationWithJob{}
	for _, app := range m.apps {
		if app.ApplicantID == applicantID {
			out = append(out, models.ApplicationWithJob{Application: *app, Job: *m.jobs[app.JobID]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
