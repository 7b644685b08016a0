package appointments

import (
	"context"
	"errors"
	"strings"

	"github.com/dohanimedicare/medicare-platform/internal/cms"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
)

const appointmentFields = `id
    firstName
    lastName
    email
    phone
    dateOfBirth
    emergencyContact
    appointmentType
    preferredDate
    preferredTime
    doctor
    reason
    symptoms
    previousVisit
    hasInsurance
    insuranceProvider
    policyNumber
    status
    createdAt
    updatedAt`

const (
	mutationCreateAppointment = `mutation CreateAppointment($data: AppointmentCreateInput!) {
  createAppointment(data: $data) {
    ` + appointmentFields + `
  }
}`

	mutationPublishAppointment = `mutation PublishAppointment($id: ID!) {
  publishAppointment(where: { id: $id }) {
    id
  }
}`

	mutationUpdateAppointment = `mutation UpdateAppointment($id: ID!, $data: AppointmentUpdateInput!) {
  updateAppointment(where: { id: $id }, data: $data) {
    ` + appointmentFields + `
  }
}`

	queryAppointment = `query GetAppointment($id: ID!) {
  appointment(where: { id: $id }, stage: DRAFT) {
    ` + appointmentFields + `
  }
}`

	queryAppointments = `query GetAppointments($first: Int!, $skip: Int!) {
  appointments(orderBy: createdAt_DESC, first: $first, skip: $skip, stage: DRAFT) {
    ` + appointmentFields + `
  }
}`

	queryAppointmentsByStatus = `query GetAppointmentsByStatus($status: AppointmentStatus!, $first: Int!, $skip: Int!) {
  appointments(where: { status: $status }, orderBy: createdAt_DESC, first: $first, skip: $skip, stage: DRAFT) {
    ` + appointmentFields + `
  }
}`
)

const cmsPageSize = 100

// GraphQLClient is the subset of cms.Client used by CMSStore.
type GraphQLClient interface {
	Do(ctx context.Context, operationName, query string, variables map[string]any, out any) error
}

// CMSStore persists appointments in the headless CMS. Drafts are published
// after every write so the website's read paths see them. The draft is the
// record of truth: a failed publish is logged and the write still succeeds.
type CMSStore struct {
	client GraphQLClient
	logger *logging.Logger
}

func NewCMSStore(client GraphQLClient, logger *logging.Logger) *CMSStore {
	if client == nil {
		panic("appointments: cms client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CMSStore{client: client, logger: logger}
}

func (s *CMSStore) Create(ctx context.Context, sub Submission) (*Appointment, error) {
	a := Normalize(sub)
	data := map[string]any{
		"firstName":         a.FirstName,
		"lastName":          a.LastName,
		"email":             a.Email,
		"phone":             a.Phone,
		"dateOfBirth":       a.DateOfBirth,
		"emergencyContact":  a.EmergencyContact,
		"appointmentType":   string(a.AppointmentType),
		"preferredDate":     a.PreferredDate,
		"preferredTime":     a.PreferredTime,
		"doctor":            a.Doctor,
		"reason":            a.Reason,
		"symptoms":          a.Symptoms,
		"previousVisit":     a.PreviousVisit,
		"hasInsurance":      a.HasInsurance,
		"insuranceProvider": a.InsuranceProvider,
		"policyNumber":      a.PolicyNumber,
		"status":            string(StatusPending),
	}

	var out struct {
		CreateAppointment *Appointment `json:"createAppointment"`
	}
	if err := s.client.Do(ctx, "CreateAppointment", mutationCreateAppointment, map[string]any{"data": data}, &out); err != nil {
		return nil, persistErr("create", err)
	}
	if out.CreateAppointment == nil || out.CreateAppointment.ID == "" {
		return nil, persistErr("create", errors.New("cms returned no appointment"))
	}
	s.publish(ctx, "create", out.CreateAppointment.ID)
	return out.CreateAppointment, nil
}

func (s *CMSStore) Get(ctx context.Context, id string) (*Appointment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	var out struct {
		Appointment *Appointment `json:"appointment"`
	}
	if err := s.client.Do(ctx, "GetAppointment", queryAppointment, map[string]any{"id": id}, &out); err != nil {
		return nil, persistErr("get", err)
	}
	if out.Appointment == nil {
		return nil, ErrNotFound
	}
	return out.Appointment, nil
}

func (s *CMSStore) UpdateStatus(ctx context.Context, id string, to Status) (*Appointment, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransition(to) {
		return nil, &TransitionError{From: current.Status, To: to}
	}
	return s.update(ctx, "update status", id, map[string]any{"status": string(to)})
}

func (s *CMSStore) Reschedule(ctx context.Context, id, date, timeOfDay string) (*Appointment, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.Reschedulable() {
		return nil, ErrNotReschedulable
	}
	return s.update(ctx, "reschedule", id, map[string]any{"preferredDate": date, "preferredTime": timeOfDay})
}

func (s *CMSStore) FindByFilter(ctx context.Context, f Filter) ([]Appointment, error) {
	out := []Appointment{}
	for skip := 0; ; skip += cmsPageSize {
		vars := map[string]any{"first": cmsPageSize, "skip": skip}
		op, query := "GetAppointments", queryAppointments
		if f.Status != "" {
			vars["status"] = string(f.Status)
			op, query = "GetAppointmentsByStatus", queryAppointmentsByStatus
		}

		var page struct {
			Appointments []Appointment `json:"appointments"`
		}
		if err := s.client.Do(ctx, op, query, vars, &page); err != nil {
			return nil, persistErr("list", err)
		}
		for _, a := range page.Appointments {
			if f.Matches(a) {
				out = append(out, a)
			}
		}
		if len(page.Appointments) < cmsPageSize {
			return out, nil
		}
	}
}

// update writes data. Hygraph bumps updatedAt itself on every mutation.
func (s *CMSStore) update(ctx context.Context, op, id string, data map[string]any) (*Appointment, error) {
	var out struct {
		UpdateAppointment *Appointment `json:"updateAppointment"`
	}
	if err := s.client.Do(ctx, "UpdateAppointment", mutationUpdateAppointment, map[string]any{"id": id, "data": data}, &out); err != nil {
		return nil, persistErr(op, err)
	}
	if out.UpdateAppointment == nil {
		return nil, ErrNotFound
	}
	s.publish(ctx, op, id)
	return out.UpdateAppointment, nil
}

func (s *CMSStore) publish(ctx context.Context, op, id string) {
	if err := s.client.Do(ctx, "PublishAppointment", mutationPublishAppointment, map[string]any{"id": id}, nil); err != nil {
		s.logger.Warn("appointment saved as draft but publish failed",
			"appointment_id", id,
			"operation", op,
			"error", err,
		)
	}
}

// CMSRejection extracts the structured GraphQL errors behind err, if any.
func CMSRejection(err error) ([]cms.GraphQLError, bool) {
	var respErr *cms.ResponseError
	if errors.As(err, &respErr) && len(respErr.Errors) > 0 {
		return respErr.Errors, true
	}
	return nil, false
}

var _ Store = (*CMSStore)(nil)
