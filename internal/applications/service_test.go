package applications

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"gig-marketplace/internal/common/auth"
	apperrors "gig-marketplace/internal/common/errors"
	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) ofType(t models.EventType) []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

const (
	ownerID = "owner-1"
	jobID   = "job-1"
)

func user(id string) *auth.Identity {
	return &auth.Identity{UserID: id, Role: models.RoleProvider}
}

func newTestService(t *testing.T) (*Service, *memStore, *recordingPublisher) {
	store := newMemStore()
	store.addJob(jobID, ownerID, models.JobOpen)
	pub := &recordingPublisher{}
	return NewService(store, pub, nil, logger.NewTestLogger(t)), store, pub
}

func validSubmit() SubmitRequest {
	return SubmitRequest{CoverLetter: "I have done this before", Availability: models.AvailabilityImmediate}
}

func submit(t *testing.T, svc *Service, applicant string) *models.Application {
	t.Helper()
	app, err := svc.Submit(context.Background(), user(applicant), jobID, validSubmit())
	require.NoError(t, err)
	return app
}

func requireCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, code), "want %s, got %v", code, err)
}

// ==========================
// Submit
// ==========================

func TestSubmit_CreatesPendingApplication(t *testing.T) {
	svc, store, pub := newTestService(t)

	rate := 45.0
	req := validSubmit()
	req.ExpectedRate = &rate
	app, err := svc.Submit(context.Background(), user("worker-1"), jobID, req)

	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, app.Status)
	assert.Equal(t, "worker-1", app.ApplicantID)
	assert.Equal(t, []string{}, app.Attachments)

	listed, err := store.ListByJob(context.Background(), jobID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	events := pub.ofType(models.EventApplicationSubmitted)
	require.Len(t, events, 1)
	assert.Equal(t, ownerID, events[0].RecipientID)
	assert.Equal(t, app.ID, events[0].EntityID)
}

func TestSubmit_Failures(t *testing.T) {
	tests := []struct {
		name   string
		caller *auth.Identity
		job    string
		setup  func(svc *Service, store *memStore)
		req    SubmitRequest
		code   apperrors.ErrorCode
	}{
		{
			name:   "anonymous",
			caller: nil,
			job:    jobID,
			req:    validSubmit(),
			code:   apperrors.ErrCodeUnauthenticated,
		},
		{
			name:   "missing job",
			caller: user("worker-1"),
			job:    "nope",
			req:    validSubmit(),
			code:   apperrors.ErrCodeNotFound,
		},
		{
			name:   "job not open",
			caller: user("worker-1"),
			job:    "closed",
			setup: func(_ *Service, store *memStore) {
				store.addJob("closed", ownerID, models.JobCancelled)
			},
			req:  validSubmit(),
			code: apperrors.ErrCodeInvalidState,
		},
		{
			name:   "owner applies to own job",
			caller: user(ownerID),
			job:    jobID,
			req:    validSubmit(),
			code:   apperrors.ErrCodeForbidden,
		},
		{
			name:   "duplicate",
			caller: user("worker-1"),
			job:    jobID,
			setup: func(svc *Service, _ *memStore) {
				_, _ = svc.Submit(context.Background(), user("worker-1"), jobID, validSubmit())
			},
			req:  validSubmit(),
			code: apperrors.ErrCodeConflict,
		},
		{
			name:   "bad availability",
			caller: user("worker-1"),
			job:    jobID,
			req:    SubmitRequest{CoverLetter: "x", Availability: "someday"},
			code:   apperrors.ErrCodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService(t)
			if tt.setup != nil {
				tt.setup(svc, store)
			}
			_, err := svc.Submit(context.Background(), tt.caller, tt.job, tt.req)
			requireCode(t, err, tt.code)
		})
	}
}

// ==========================
// Status updates
// ==========================

func TestUpdateStatus_ShortlistByOwner(t *testing.T) {
	svc, _, pub := newTestService(t)
	app := submit(t, svc, "worker-1")

	notes := "strong portfolio"
	got, err := svc.UpdateStatus(context.Background(), user(ownerID), app.ID,
		UpdateStatusRequest{Status: models.ApplicationShortlisted, Notes: &notes})

	require.NoError(t, err)
	assert.Equal(t, models.ApplicationShortlisted, got.Status)
	assert.Equal(t, notes, got.Notes)
	assert.Len(t, pub.ofType(models.EventApplicationStatusChanged), 1)
}

func TestUpdateStatus_NonOwnerForbiddenEvenAsAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)
	app := submit(t, svc, "worker-1")

	admin := &auth.Identity{UserID: "admin-1", Role: models.RoleAdmin}
	_, err := svc.UpdateStatus(context.Background(), admin, app.ID,
		UpdateStatusRequest{Status: models.ApplicationAccepted})
	requireCode(t, err, apperrors.ErrCodeForbidden)

	_, err = svc.UpdateStatus(context.Background(), user("worker-1"), app.ID,
		UpdateStatusRequest{Status: models.ApplicationAccepted})
	requireCode(t, err, apperrors.ErrCodeForbidden)
}

func TestUpdateStatus_InvalidStatusAndMissing(t *testing.T) {
	svc, _, _ := newTestService(t)
	app := submit(t, svc, "worker-1")

	_, err := svc.UpdateStatus(context.Background(), user(ownerID), app.ID,
		UpdateStatusRequest{Status: "withdrawn"})
	requireCode(t, err, apperrors.ErrCodeInvalidArgument)

	_, err = svc.UpdateStatus(context.Background(), user(ownerID), "missing",
		UpdateStatusRequest{Status: models.ApplicationRejected})
	requireCode(t, err, apperrors.ErrCodeNotFound)
}

func TestAccept_HiresAndRejectsSiblings(t *testing.T) {
	svc, store, pub := newTestService(t)
	a1 := submit(t, svc, "worker-1")
	a2 := submit(t, svc, "worker-2")
	a3 := submit(t, svc, "worker-3")

	_, err := svc.UpdateStatus(context.Background(), user(ownerID), a3.ID,
		UpdateStatusRequest{Status: models.ApplicationRejected})
	require.NoError(t, err)

	got, err := svc.UpdateStatus(context.Background(), user(ownerID), a1.ID,
		UpdateStatusRequest{Status: models.ApplicationAccepted})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationAccepted, got.Status)

	assert.Equal(t, models.JobInProgress, store.jobStatus(jobID))
	assert.Equal(t, "worker-1", store.hired[jobID])

	sibling, err := store.Get(context.Background(), a2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationRejected, sibling.Status)
	assert.Equal(t, SiblingRejectionNote, sibling.Notes)

	// already rejected before the accept, so not touched again
	alreadyRejected, err := store.Get(context.Background(), a3.ID)
	require.NoError(t, err)
	assert.Empty(t, alreadyRejected.Notes)

	rejected := pub.ofType(models.EventApplicationRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, "worker-2", rejected[0].RecipientID)
}

func TestAccept_AfterJobClosed(t *testing.T) {
	svc, _, _ := newTestService(t)
	a1 := submit(t, svc, "worker-1")
	a2 := submit(t, svc, "worker-2")

	_, err := svc.UpdateStatus(context.Background(), user(ownerID), a1.ID,
		UpdateStatusRequest{Status: models.ApplicationAccepted})
	require.NoError(t, err)

	t.Run("another accept is refused", func(t *testing.T) {
		_, err := svc.UpdateStatus(context.Background(), user(ownerID), a2.ID,
			UpdateStatusRequest{Status: models.ApplicationAccepted})
		requireCode(t, err, apperrors.ErrCodeInvalidState)
	})

	t.Run("re-confirming the hire is idempotent", func(t *testing.T) {
		notes := "start monday"
		got, err := svc.UpdateStatus(context.Background(), user(ownerID), a1.ID,
			UpdateStatusRequest{Status: models.ApplicationAccepted, Notes: &notes})
		require.NoError(t, err)
		assert.Equal(t, models.ApplicationAccepted, got.Status)
		assert.Equal(t, notes, got.Notes)
	})

	t.Run("reverting the hire is refused", func(t *testing.T) {
		_, err := svc.UpdateStatus(context.Background(), user(ownerID), a1.ID,
			UpdateStatusRequest{Status: models.ApplicationPending})
		requireCode(t, err, apperrors.ErrCodeInvalidState)
	})

	t.Run("new submissions are refused", func(t *testing.T) {
		_, err := svc.Submit(context.Background(), user("worker-9"), jobID, validSubmit())
		requireCode(t, err, apperrors.ErrCodeInvalidState)
	})
}

// withdrawFirst deletes the target application just before the accept transaction runs.
type withdrawFirst struct{ *memStore }

func (w withdrawFirst) Accept(ctx context.Context, jobID, id string, notes *string, actorID string) (*AcceptResult, error) {
	if err := w.memStore.Delete(ctx, id); err != nil {
		return nil, err
	}
	return w.memStore.Accept(ctx, jobID, id, notes, actorID)
}

func TestAccept_ApplicationWithdrawnConcurrently(t *testing.T) {
	store := newMemStore()
	store.addJob(jobID, ownerID, models.JobOpen)
	svc := NewService(withdrawFirst{store}, &recordingPublisher{}, nil, logger.NewTestLogger(t))
	app := submit(t, svc, "worker-1")

	_, err := svc.UpdateStatus(context.Background(), user(ownerID), app.ID,
		UpdateStatusRequest{Status: models.ApplicationAccepted})

	requireCode(t, err, apperrors.ErrCodeNotFound)
	assert.Equal(t, models.JobOpen, store.jobStatus(jobID))
}

func TestAccept_ConcurrentAcceptsHaveOneWinner(t *testing.T) {
	const n = 12
	svc, store, _ := newTestService(t)

	apps := make([]*models.Application, n)
	for i := range apps {
		apps[i] = submit(t, svc, fmt.Sprintf("worker-%d", i))
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		losses   int
		winnerID string
	)
	start := make(chan struct{})
	for _, app := range apps {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			<-start
			_, err := svc.UpdateStatus(context.Background(), user(ownerID), id,
				UpdateStatusRequest{Status: models.ApplicationAccepted})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
				winnerID = id
			case apperrors.HasCode(err, apperrors.ErrCodeRaceLost),
				apperrors.HasCode(err, apperrors.ErrCodeInvalidState):
				losses++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(app.ID)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, losses)
	assert.Equal(t, models.JobInProgress, store.jobStatus(jobID))

	listed, err := store.ListByJob(context.Background(), jobID)
	require.NoError(t, err)
	nonRejected := 0
	for _, app := range listed {
		if app.Status != models.ApplicationRejected {
			nonRejected++
			assert.Equal(t, winnerID, app.ID)
			assert.Equal(t, models.ApplicationAccepted, app.Status)
		}
	}
	assert.Equal(t, 1, nonRejected)
}

// ==========================
// Withdraw
// ==========================

func TestWithdraw_ThenReapply(t *testing.T) {
	svc, store, _ := newTestService(t)
	app := submit(t, svc, "worker-1")

	require.NoError(t, svc.Withdraw(context.Background(), user("worker-1"), app.ID))

	listed, err := store.ListByJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	again := submit(t, svc, "worker-1")
	assert.NotEqual(t, app.ID, again.ID)
}

func TestWithdraw_Rules(t *testing.T) {
	svc, _, _ := newTestService(t)
	app := submit(t, svc, "worker-1")

	requireCode(t, svc.Withdraw(context.Background(), user("worker-2"), app.ID), apperrors.ErrCodeForbidden)
	requireCode(t, svc.Withdraw(context.Background(), user("worker-1"), "missing"), apperrors.ErrCodeNotFound)
	requireCode(t, svc.Withdraw(context.Background(), nil, app.ID), apperrors.ErrCodeUnauthenticated)

	_, err := svc.UpdateStatus(context.Background(), user(ownerID), app.ID,
		UpdateStatusRequest{Status: models.ApplicationAccepted})
	require.NoError(t, err)
	requireCode(t, svc.Withdraw(context.Background(), user("worker-1"), app.ID), apperrors.ErrCodeInvalidState)
}

// ==========================
// Reads
// ==========================

func TestListAndGet_Visibility(t *testing.T) {
	svc, _, _ := newTestService(t)
	a1 := submit(t, svc, "worker-1")
	a2 := submit(t, svc, "worker-2")

	apps, err := svc.ListForJob(context.Background(), user(ownerID), jobID)
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, a2.ID, apps[0].ID, "newest first")

	_, err = svc.ListForJob(context.Background(), user("worker-1"), jobID)
	requireCode(t, err, apperrors.ErrCodeForbidden)

	mine, err := svc.ListForUser(context.Background(), user("worker-1"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a1.ID, mine[0].ID)
	assert.Equal(t, ownerID, mine[0].Job.PostedBy)

	_, err = svc.Get(context.Background(), user("worker-1"), a1.ID)
	assert.NoError(t, err)
	_, err = svc.Get(context.Background(), user(ownerID), a1.ID)
	assert.NoError(t, err)
	_, err = svc.Get(context.Background(), user("worker-2"), a1.ID)
	requireCode(t, err, apperrors.ErrCodeForbidden)
}
