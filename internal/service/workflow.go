package service

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/iliyamo/aligner-portal/internal/model"
	"github.com/iliyamo/aligner-portal/internal/notify"
	"github.com/iliyamo/aligner-portal/internal/repository"
)

// SetStatus moves a case to a new status.
//
// Who may transition: an admin any case, a doctor only their own, a
// full-access distributor the cases of doctors scoped to it, a planner
// only cases assigned to it. Moving to "approved" opens the STL upload
// gate, which is never closed again. After the write one e-mail goes to
// the stakeholders picked by who acted, not by the new status. Mail
// failures are logged and do not affect the result.
//
// There is no version check: concurrent transitions are last-write-wins
// and each one sends its own e-mail.
func (s *CaseService) SetStatus(ctx context.Context, a Actor, id primitive.ObjectID, rawStatus string) (model.Patient, error) {
	status, err := s.normalizeStatus(rawStatus)
	if err != nil {
		return model.Patient{}, err
	}
	p, err := s.st.Cases.GetByID(ctx, id)
	if err != nil {
		return model.Patient{}, err
	}
	if err := s.authorizeTransition(ctx, a, p); err != nil {
		return model.Patient{}, err
	}

	updated, err := s.st.Cases.SetStatus(ctx, id, status, status == model.StatusApproved)
	if err != nil {
		return model.Patient{}, err
	}
	s.m.StatusChanged(statusLabel(status), string(a.Role))
	s.log.Info("case status changed",
		zap.String("case_id", updated.CaseID),
		zap.String("from", p.CaseStatus),
		zap.String("to", status),
		zap.String("by_role", string(a.Role)),
		zap.Uint64("by_id", a.ID),
	)

	to := s.transitionRecipients(ctx, a, updated)
	s.mailer.Deliver(ctx, notify.Email{
		To:      to,
		Subject: fmt.Sprintf("Case %s status: %s", updated.CaseID, status),
		HTML: notify.StatusChangedHTML(notify.CaseEvent{
			CaseID:      updated.CaseID,
			PatientName: updated.PatientName,
			Status:      status,
			Actor:       actorLabel(a),
		}),
	})
	return updated, nil
}

func (s *CaseService) authorizeTransition(ctx context.Context, a Actor, p model.Patient) error {
	switch {
	case a.IsAdmin():
		return nil
	case a.IsDoctor():
		if p.IsOwnedBy(a.ID) {
			return nil
		}
	case a.IsPlanner():
		if p.IsAssignedTo(a.ID) {
			return nil
		}
	case a.IsDistributor():
		d, err := s.st.Distributers.GetByID(ctx, a.ID)
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrForbidden
		}
		if err != nil {
			return fmt.Errorf("load distributer: %w", err)
		}
		if d.Access != model.AccessFull {
			return repository.ErrForbidden
		}
		ok, err := s.scopedToDistributer(ctx, a.ID, p)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	s.m.AuthFailure("forbidden")
	s.log.Info("status transition denied",
		zap.String("case_id", p.CaseID),
		zap.String("role", string(a.Role)),
		zap.Uint64("actor_id", a.ID),
	)
	return repository.ErrForbidden
}

// transitionRecipients resolves the e-mail set for a transition done by a.
//
//	admin       -> owning doctor, scoped distributor, assigned planner
//	doctor      -> all admins, scoped distributor
//	distributor -> all admins, owning doctor
//	planner     -> all admins, owning doctor
//
// Lookup failures drop that recipient and are logged.
func (s *CaseService) transitionRecipients(ctx context.Context, a Actor, p model.Patient) []string {
	log := s.log.With(zap.String("case_id", p.CaseID))
	var addrs []string

	doctor, err := s.st.Users.GetByID(ctx, p.UserID)
	haveDoctor := err == nil
	if err != nil {
		log.Warn("recipient lookup: owning doctor", zap.Error(err))
	}
	distributorEmail := func() string {
		if !haveDoctor || doctor.DistributerID == nil {
			return ""
		}
		d, err := s.st.Distributers.GetByID(ctx, *doctor.DistributerID)
		if err != nil {
			log.Warn("recipient lookup: distributer", zap.Error(err))
			return ""
		}
		return d.Email
	}
	adminEmails := func() []string {
		out, err := adminAddresses(ctx, s.st.Users)
		if err != nil {
			log.Warn("recipient lookup: admins", zap.Error(err))
		}
		return out
	}

	switch {
	case a.IsAdmin():
		if haveDoctor {
			addrs = append(addrs, doctor.Email)
		}
		addrs = append(addrs, distributorEmail())
		if p.PlannerID != nil {
			pl, err := s.st.Users.GetByID(ctx, *p.PlannerID)
			if err != nil {
				log.Warn("recipient lookup: planner", zap.Error(err))
			} else {
				addrs = append(addrs, pl.Email)
			}
		}
	case a.IsDoctor():
		addrs = append(addrs, adminEmails()...)
		addrs = append(addrs, distributorEmail())
	case a.IsDistributor(), a.IsPlanner():
		addrs = append(addrs, adminEmails()...)
		if haveDoctor {
			addrs = append(addrs, doctor.Email)
		}
	}
	return notify.Dedupe(addrs...)
}

// adminAddresses returns the e-mail of every admin and the super-admin.
func adminAddresses(ctx context.Context, users UserStore) ([]string, error) {
	admins, err := users.ListByRoles(ctx, model.RoleAdmin, model.RoleSuperAdmin)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(admins))
	for _, u := range admins {
		out = append(out, u.Email)
	}
	return out, nil
}

func actorLabel(a Actor) string {
	switch {
	case a.IsAdmin():
		return "Admin"
	case a.IsPlanner():
		return "Planner"
	case a.IsDistributor():
		return "Distributor"
	}
	return "Doctor"
}

// statusLabel keeps free-text statuses from exploding metric cardinality.
func statusLabel(st string) string {
	if known, ok := knownStatus(st); ok {
		return known
	}
	return "other"
}
