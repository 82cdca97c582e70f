package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/aligner-portal/internal/metrics"
	"github.com/iliyamo/aligner-portal/internal/model"
	"github.com/iliyamo/aligner-portal/internal/utils"
)

const (
	testSecret   = "test-secret"
	testPassword = "password123"
)

type harness struct {
	st       Stores
	users    *fakeUsers
	dists    *fakeDists
	tokens   *fakeTokens
	cases    *fakeCases
	comments *fakeComments
	files    *fakeFiles
	notes    *fakeNotes
	special  *fakeSpecial
	cats     *fakeCats
	blobs    *fakeBlobs
	outbox   *fakeNotifier
	m        *metrics.Collector

	gate     *Gate
	caseSvc  *CaseService
	collab   *CollabService
	inbox    *NotificationService
	specials *SpecialCommentService
	category *CategoryService
	dash     *DashboardService
	auth     *AuthService
	accounts *UserService

	super, admin, bareAdmin   Actor
	doctor, otherDoctor       Actor
	planner                   Actor
	fullDistributor, viewOnly Actor
}

func newHarness(t *testing.T, strict bool) *harness {
	t.Helper()
	ctx := context.Background()
	log := zap.NewNop()
	h := &harness{
		users:    newFakeUsers(),
		dists:    newFakeDists(),
		tokens:   newFakeTokens(),
		cases:    newFakeCases(),
		comments: newFakeComments(),
		files:    &fakeFiles{},
		notes:    &fakeNotes{},
		special:  newFakeSpecial(),
		cats:     &fakeCats{},
		blobs:    &fakeBlobs{},
		outbox:   &fakeNotifier{},
		m:        metrics.NewCollector("test"),
	}
	h.st = Stores{
		Users:           h.users,
		Distributers:    h.dists,
		Tokens:          h.tokens,
		Cases:           h.cases,
		Comments:        h.comments,
		Files:           h.files,
		Notifications:   h.notes,
		SpecialComments: h.special,
		Categories:      h.cats,
		Blobs:           h.blobs,
	}

	hash, err := utils.HashPassword(testPassword, bcrypt.MinCost)
	require.NoError(t, err)

	dist := func(name, email string, access model.DistributerAccess) Actor {
		id, err := h.dists.Create(ctx, model.Distributer{Name: name, Email: email, PasswordHash: hash, Access: access})
		require.NoError(t, err)
		return Actor{ID: id, Role: model.RoleDistributor, Kind: model.SubjectDistributer}
	}
	h.fullDistributor = dist("North Dental Supply", "dist@x.io", model.AccessFull)
	h.viewOnly = dist("View Only Supply", "view@x.io", model.AccessView)

	user := func(name, email string, role model.Role, caps model.Capability, distID *uint64) Actor {
		id, err := h.users.Create(ctx, model.User{
			Name: name, Email: email, PasswordHash: hash, Role: role, Capabilities: caps, DistributerID: distID,
		})
		require.NoError(t, err)
		return Actor{ID: id, Role: role, Kind: model.SubjectUser}
	}
	fullID, viewID := h.fullDistributor.ID, h.viewOnly.ID
	h.super = user("Root", "super@x.io", model.RoleSuperAdmin, 0, nil)
	h.admin = user("Ops", "admin@x.io", model.RoleAdmin, model.CapAll, nil)
	h.bareAdmin = user("Intern", "admin2@x.io", model.RoleAdmin, 0, nil)
	h.doctor = user("Dr. Reyes", "doc@x.io", model.RoleDoctor, 0, &fullID)
	h.otherDoctor = user("Dr. Okafor", "doc2@x.io", model.RoleDoctor, 0, &viewID)
	h.planner = user("Plan Lab", "planner@x.io", model.RolePlanner, 0, nil)

	h.gate = NewGate(testSecret, h.users, log)
	mailer := NewMailer(h.outbox, log, h.m)
	h.caseSvc = NewCaseService(h.st, h.gate, mailer, strict, log, h.m)
	h.collab = NewCollabService(h.st, h.gate, mailer, log, h.m)
	h.inbox = NewNotificationService(h.notes)
	h.specials = NewSpecialCommentService(h.st, h.gate, log, h.m)
	h.category = NewCategoryService(h.cats, h.gate)
	h.dash = NewDashboardService(h.caseSvc, h.notes, h.special)
	h.auth = NewAuthService(h.st, AuthConfig{
		JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: bcrypt.MinCost,
	}, log, h.m)
	h.accounts = NewUserService(h.st, h.gate, bcrypt.MinCost, log)
	return h
}

// newCase submits a case as owner and returns it.
func (h *harness) newCase(t *testing.T, owner Actor, name string) model.Patient {
	t.Helper()
	p, err := h.caseSvc.Create(context.Background(), owner, CreateCaseInput{PatientName: name})
	require.NoError(t, err)
	return p
}

// bearer signs an access token for a.
func bearer(t *testing.T, a Actor) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, utils.AccessClaims{
		Subject: a.ID, Role: string(a.Role), Kind: string(a.Kind),
	}, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}
