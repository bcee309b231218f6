package jobs

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gig-marketplace/internal/models"
	"gig-marketplace/internal/search"
)

type memStore struct {
	mu    sync.Mutex
	jobs  map[string]*models.Job
	apps  map[string][]models.Application
	clock time.Time
}

func newMemStore() *memStore {
	return &memStore{
		jobs:  map[string]*models.Job{},
		apps:  map[string][]models.Application{},
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) addApplication(jobID, id, applicant string, status models.ApplicationStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps[jobID] = append(m.apps[jobID], models.Application{ID: id, JobID: jobID, ApplicantID: applicant, Status: status})
}

func (m *memStore) setStatus(jobID string, status models.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[jobID].Status = status
}

func (m *memStore) view(job *models.Job) models.Job {
	cp := *job
	cp.Skills = append([]string{}, job.Skills...)
	cp.Applications = []string{}
	cp.Applicants = []string{}
	for _, app := range m.apps[job.ID] {
		cp.Applications = append(cp.Applications, app.ID)
		cp.Applicants = append(cp.Applicants, app.ApplicantID)
	}
	return cp
}

func (m *memStore) Create(_ context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	job.CreatedAt, job.UpdatedAt = now, now
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	v := m.view(job)
	return &v, nil
}

func (m *memStore) GetMany(_ context.Context, ids []string) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Job{}
	for _, id := range ids {
		if job, ok := m.jobs[id]; ok {
			out = append(out, m.view(job))
		}
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, job *models.Job) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.jobs[job.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if current.Status != models.JobOpen {
		return nil, ErrInvalidState
	}
	current.Title, current.Description, current.Category = job.Title, job.Description, job.Category
	current.Budget, current.Location, current.Skills = job.Budget, job.Location, job.Skills
	current.UpdatedAt = m.tick()
	v := m.view(current)
	return &v, nil
}

func (m *memStore) Cancel(_ context.Context, id, _ string) (*models.Job, []models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if job.Status != models.JobOpen {
		return nil, nil, ErrInvalidState
	}
	job.Status = models.JobCancelled
	job.UpdatedAt = m.tick()

	var rejected []models.Application
	apps := m.apps[id]
	for i := range apps {
		if apps[i].Status == models.ApplicationPending || apps[i].Status == models.ApplicationShortlisted {
			apps[i].Status = models.ApplicationRejected
			apps[i].Notes = ClosedJobNote
			rejected = append(rejected, apps[i])
		}
	}
	v := m.view(job)
	return &v, rejected, nil
}

func (m *memStore) Complete(_ context.Context, id, _ string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if job.Status != models.JobInProgress {
		return nil, ErrInvalidState
	}
	job.Status = models.JobCompleted
	job.UpdatedAt = m.tick()
	v := m.view(job)
	return &v, nil
}

func (m *memStore) List(_ context.Context, f search.JobFilter) ([]models.Job, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []models.Job
	for _, job := range m.jobs {
		if job.Status != f.Status {
			continue
		}
		if f.Category != "" && job.Category != f.Category {
			continue
		}
		if f.Keyword != "" && !strings.Contains(strings.ToLower(job.Title+" "+job.Description), strings.ToLower(f.Keyword)) {
			continue
		}
		if f.MinBudget != nil && job.Budget.Max < *f.MinBudget {
			continue
		}
		if f.MaxBudget != nil && job.Budget.Min > *f.MaxBudget {
			continue
		}
		matched = append(matched, m.view(job))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	from := f.Offset()
	if from > total {
		from = total
	}
	to := from + f.PageSize
	if to > total {
		to = total
	}
	return matched[from:to], total, nil
}
