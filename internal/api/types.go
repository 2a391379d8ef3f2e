package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/homevisit/scheduling-service/internal/scheduling"
)

type CreateSlotRequest struct {
	DoctorID string `json:"doctor_id,omitempty"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

type OpenDayRequest struct {
	DoctorID    string `json:"doctor_id,omitempty"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	DurationMin int    `json:"duration_min"`
}

type DeleteUnusedRequest struct {
	DoctorID string `json:"doctor_id,omitempty"`
	From     string `json:"from"`
	To       string `json:"to"`
}

type BookSlotRequest struct {
	SlotID    string  `json:"slot_id"`
	PatientID string  `json:"patient_id,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

type TransitionRequest struct {
	Status string `json:"status"`
}

type SlotResponse struct {
	ID       uuid.UUID `json:"id"`
	DoctorID uuid.UUID `json:"doctor_id"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	IsBooked bool      `json:"is_booked"`
}

type OpenDayResponse struct {
	Generated int            `json:"generated"`
	Created   int            `json:"created"`
	Skipped   int            `json:"skipped"`
	Slots     []SlotResponse `json:"slots"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Status    string    `json:"status"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DeletedResponse struct {
	Deleted int64 `json:"deleted"`
}

type OkResponse struct {
	Ok bool `json:"ok"`
}

func toSlotResponse(s scheduling.Slot) SlotResponse {
	return SlotResponse{
		ID:       s.ID,
		DoctorID: s.DoctorID,
		StartsAt: s.StartsAt,
		EndsAt:   s.EndsAt,
		IsBooked: s.IsBooked,
	}
}

func toSlotResponses(slots []scheduling.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, toSlotResponse(s))
	}
	return out
}

func toAppointmentResponse(a scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		StartsAt:  a.StartsAt,
		EndsAt:    a.EndsAt,
		Status:    string(a.Status),
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toAppointmentResponses(items []scheduling.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(items))
	for _, a := range items {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}
