package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/homevisit/scheduling-service/internal/audit"
	"github.com/homevisit/scheduling-service/internal/identity"
)

// ListMine returns the actor's own visits: a patient sees appointments where
// they are the patient, a doctor where they are the doctor, staff sees all.
func (s *Service) ListMine(ctx context.Context, actor identity.Actor, status *AppointmentStatus) ([]Appointment, error) {
	f := AppointmentFilter{Status: status}
	switch actor.Role {
	case identity.RolePatient:
		id := actor.ID
		f.PatientID = &id
	case identity.RoleDoctor:
		id := actor.ID
		f.DoctorID = &id
	case identity.RoleStaff, identity.RoleAdmin:
		// unscoped
	default:
		return nil, ErrForbidden
	}

	items, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, err
	}

	meta := map[string]any{"role": string(actor.Role)}
	if status != nil {
		meta["status"] = string(*status)
	}
	s.audit(ctx, actor, audit.Record{
		Action:   audit.ActionAppointmentListMy,
		Metadata: meta,
	})

	return items, nil
}

// ListForDoctor returns one doctor's agenda. A doctor only reads their own;
// staff reads any.
func (s *Service) ListForDoctor(ctx context.Context, actor identity.Actor, doctorID uuid.UUID, status *AppointmentStatus) ([]Appointment, error) {
	switch actor.Role {
	case identity.RoleDoctor:
		if actor.ID != doctorID {
			return nil, ErrForbidden
		}
	case identity.RoleStaff, identity.RoleAdmin:
	default:
		return nil, ErrForbidden
	}

	items, err := s.repo.ListAppointments(ctx, AppointmentFilter{DoctorID: &doctorID, Status: status})
	if err != nil {
		return nil, err
	}

	meta := map[string]any{}
	if status != nil {
		meta["status"] = string(*status)
	}
	s.audit(ctx, actor, audit.Record{
		Action:     audit.ActionAppointmentListDoctor,
		EntityType: audit.EntityUser,
		EntityID:   &doctorID,
		Metadata:   meta,
	})

	return items, nil
}

// CompletedQuery narrows completed-visit listings.
type CompletedQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	From      *time.Time
	To        *time.Time
	Ascending bool
}

// ListCompleted returns completed visits with role scoping: a patient sees
// only their own, a doctor their own with an optional patient filter, staff
// must narrow by patient or doctor.
func (s *Service) ListCompleted(ctx context.Context, actor identity.Actor, q CompletedQuery) ([]Appointment, error) {
	status := StatusCompleted
	f := AppointmentFilter{
		Status:     &status,
		From:       q.From,
		To:         q.To,
		Descending: !q.Ascending,
	}

	switch actor.Role {
	case identity.RolePatient:
		id := actor.ID
		f.PatientID = &id
	case identity.RoleDoctor:
		id := actor.ID
		f.DoctorID = &id
		f.PatientID = q.PatientID
	case identity.RoleStaff, identity.RoleAdmin:
		if q.PatientID == nil && q.DoctorID == nil {
			return nil, ErrMissingFilter
		}
		f.PatientID = q.PatientID
		f.DoctorID = q.DoctorID
	default:
		return nil, ErrForbidden
	}

	items, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, err
	}

	meta := map[string]any{"role": string(actor.Role)}
	if f.PatientID != nil {
		meta["patientId"] = f.PatientID.String()
	}
	if f.DoctorID != nil {
		meta["doctorId"] = f.DoctorID.String()
	}
	s.audit(ctx, actor, audit.Record{
		Action:   audit.ActionAppointmentListCompleted,
		Metadata: meta,
	})

	return items, nil
}
