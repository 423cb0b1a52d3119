package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"civicreport-be/models"
	"civicreport-be/realtime"
	"civicreport-be/repositories"
	"civicreport-be/repositories/memstore"
	"civicreport-be/storage"
	authUtils "civicreport-be/utils"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	alice = Actor{ID: "alice", Role: models.RoleCitizen}
	bob   = Actor{ID: "bob", Role: models.RoleCitizen}
	dept  = Actor{ID: "dept-1", Role: models.RoleDepartment}
	admin = Actor{ID: "admin-1", Role: models.RoleAdmin}
	super = Actor{ID: "super-1", Role: models.RoleSuperAdmin}
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	mem      *memstore.Store
	notifier *NotificationService
	issues   *IssueService
	users    *UserService
	admin    *AdminService
}

type fixtureOptions struct {
	store  repositories.Store
	pub    realtime.Publisher
	images storage.ImageStore
	log    *zap.Logger
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	mem := memstore.New()
	store := opts.store
	switch wrapped := store.(type) {
	case nil:
		store = mem
	case failingStore:
		mem = wrapped.Store.(*memstore.Store)
	case staleReads:
		mem = wrapped.Store.(*memstore.Store)
	}
	log := opts.log
	if log == nil {
		log = zap.NewNop()
	}

	tokens, err := authUtils.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	f := &fixture{mem: mem}
	f.notifier = NewNotificationService(store, opts.pub, log)
	f.notifier.now = func() time.Time { return fixedNow }
	f.issues = NewIssueService(store, f.notifier, opts.images, log)
	f.issues.now = func() time.Time { return fixedNow }
	f.users = NewUserService(store, tokens, log)
	f.users.now = func() time.Time { return fixedNow }
	f.admin = NewAdminService(store, f.issues)
	f.admin.now = func() time.Time { return fixedNow }
	t.Cleanup(f.notifier.Wait)

	for _, a := range []struct {
		actor Actor
		name  string
	}{{alice, "Alice"}, {bob, "Bob"}, {dept, "Electrical Desk"}, {admin, "Admin"}, {super, "Root"}} {
		u := &models.User{ID: a.actor.ID, Name: a.name, Email: a.actor.ID + "@example.com", Role: a.actor.Role, CreatedAt: fixedNow}
		require.NoError(t, mem.Users().Create(context.Background(), u))
	}
	return f
}

func (f *fixture) seedIssue(t *testing.T, reporter Actor, status models.IssueStatus) *models.Issue {
	t.Helper()
	issue := &models.Issue{
		Title:       "Streetlight not working",
		Description: "The lamp outside block C is dark",
		Location:    "Block C, Sector 4",
		Category:    models.CategoryStreetlight,
		Status:      status,
		Priority:    models.PriorityHigh,
		Images:      []string{},
		ReporterID:  reporter.ID,
		CreatedAt:   fixedNow,
		UpdatedAt:   fixedNow,
	}
	require.NoError(t, f.mem.Issues().Create(context.Background(), issue))
	return issue
}

func (f *fixture) updates(t *testing.T, issueID string) []models.IssueUpdate {
	t.Helper()
	updates, err := f.mem.IssueUpdates().ListByIssue(context.Background(), issueID)
	require.NoError(t, err)
	return updates
}

func (f *fixture) notifications(t *testing.T, userID string) []models.Notification {
	t.Helper()
	items, _, err := f.mem.Notifications().List(context.Background(), userID, false, repositories.NewPage(1, 100, 100))
	require.NoError(t, err)
	return items
}

func ptr[T any](v T) *T { return &v }

// failingStore makes every notification insert fail.
type failingStore struct {
	repositories.Store
	transactional bool
}

type failingNotifications struct {
	repositories.NotificationRepository
}

var errNotificationInsert = errors.New("notification insert failed")

func (failingNotifications) Create(context.Context, *models.Notification) error {
	return errNotificationInsert
}

func (s failingStore) Notifications() repositories.NotificationRepository {
	return failingNotifications{s.Store.Notifications()}
}

func (s failingStore) Transactional() bool { return s.transactional }

func (s failingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	if !s.transactional {
		return fn(ctx, s)
	}
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		return fn(ctx, failingStore{Store: tx, transactional: true})
	})
}

// staleReads reports every issue with an old status, as if another writer
// changed it between the read and the write.
type staleReads struct {
	repositories.Store
	status models.IssueStatus
}

type staleIssues struct {
	repositories.IssueRepository
	status models.IssueStatus
}

func (r staleIssues) Get(ctx context.Context, id string) (*models.Issue, error) {
	issue, err := r.IssueRepository.Get(ctx, id)
	if err == nil {
		issue.Status = r.status
	}
	return issue, err
}

func (s staleReads) Issues() repositories.IssueRepository {
	return staleIssues{s.Store.Issues(), s.status}
}

func (s staleReads) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		return fn(ctx, staleReads{Store: tx, status: s.status})
	})
}

// eventNamed matches a realtime.Event by name.
type eventNamed string

func (e eventNamed) Matches(x any) bool {
	ev, ok := x.(realtime.Event)
	return ok && ev.Name == string(e)
}

func (e eventNamed) String() string { return fmt.Sprintf("event named %q", string(e)) }
