package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/joho/godotenv"

	"github.com/dohanimedicare/medicare-platform/internal/app/bootstrap"
	"github.com/dohanimedicare/medicare-platform/internal/appointments"
	appconfig "github.com/dohanimedicare/medicare-platform/internal/config"
	"github.com/dohanimedicare/medicare-platform/internal/messages"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
)

// Seed writes straight to the store; no emails or events are produced.
func main() {
	apptCount := flag.Int("appointments", 50, "number of appointments to create")
	msgCount := flag.Int("messages", 20, "number of contact messages to create")
	flag.Parse()

	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	stores, err := bootstrap.BuildStores(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("stores: %v", err)
	}
	defer stores.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedAppointments(ctx, stores.Appointments, *apptCount, time.Now()); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}
	if err := seedMessages(ctx, stores.Messages, *msgCount); err != nil {
		log.Fatalf("seed messages: %v", err)
	}

	log.Println("seed complete")
}

var (
	appointmentTypes = []string{"general", "cardiology", "pediatrics", "laboratory", "pharmacy", "primary"}
	timeSlots        = []string{"08:30", "09:00", "10:00", "11:30", "14:00", "15:30", "16:00"}
	insurers         = []string{"NHIF", "AAR", "Jubilee", "Britam", "CIC"}
	doctors          = []string{"", "Dr. Wanjiru", "Dr. Ochieng", "Dr. Mutua"}
	reasons          = []string{
		"Annual checkup",
		"Persistent headache for a week",
		"Follow-up on blood pressure medication",
		"Child vaccination",
		"Chest pain when climbing stairs",
		"Blood sugar test",
		"Prescription refill",
	}
	enquiries = []string{
		"Do you accept NHIF cards?",
		"What are your weekend opening hours?",
		"Can I get a home visit for my elderly mother?",
		"How much does a full blood count cost?",
		"Please call me back about my lab results.",
	}
)

func fakeSubmission(today time.Time) appointments.Submission {
	sub := appointments.Submission{
		FirstName:       gofakeit.FirstName(),
		LastName:        gofakeit.LastName(),
		Email:           gofakeit.Email(),
		Phone:           fmt.Sprintf("07%08d", gofakeit.Number(0, 99999999)),
		DateOfBirth:     gofakeit.DateRange(today.AddDate(-80, 0, 0), today.AddDate(-1, 0, 0)).Format("2006-01-02"),
		AppointmentType: gofakeit.RandomString(appointmentTypes),
		PreferredDate:   today.AddDate(0, 0, gofakeit.Number(1, 45)).Format("2006-01-02"),
		PreferredTime:   gofakeit.RandomString(timeSlots),
		Doctor:          gofakeit.RandomString(doctors),
		Reason:          gofakeit.RandomString(reasons),
		PreviousVisit:   appointments.FlexBool(gofakeit.Bool()),
	}
	if gofakeit.Bool() {
		sub.HasInsurance = true
		sub.InsuranceProvider = gofakeit.RandomString(insurers)
		sub.PolicyNumber = fmt.Sprintf("POL-%06d", gofakeit.Number(0, 999999))
	}
	return sub
}

// lifecycle walks a fresh record along a random valid path.
func lifecycle() []appointments.Status {
	switch gofakeit.Number(0, 5) {
	case 0:
		return nil
	case 1:
		return []appointments.Status{appointments.StatusCancelled}
	case 2:
		return []appointments.Status{appointments.StatusConfirmed, appointments.StatusCompleted}
	case 3:
		return []appointments.Status{appointments.StatusConfirmed, appointments.StatusNoShow}
	default:
		return []appointments.Status{appointments.StatusConfirmed}
	}
}

func seedAppointments(ctx context.Context, store appointments.Store, count int, today time.Time) error {
	log.Printf("seeding %d appointments", count)
	for i := 0; i < count; i++ {
		appt, err := store.Create(ctx, fakeSubmission(today))
		if err != nil {
			return err
		}
		for _, next := range lifecycle() {
			if _, err := store.UpdateStatus(ctx, appt.ID, next); err != nil {
				return err
			}
		}
	}
	log.Println("appointments seeded")
	return nil
}

func seedMessages(ctx context.Context, store messages.Store, count int) error {
	log.Printf("seeding %d messages", count)
	statuses := []messages.Status{messages.StatusUnread, messages.StatusUnread, messages.StatusRead, messages.StatusReplied}
	for i := 0; i < count; i++ {
		body := gofakeit.RandomString(enquiries)
		m := messages.Message{
			Name:   gofakeit.Name(),
			Email:  gofakeit.Email(),
			Body:   body,
			HTML:   messages.Paragraphs(body),
			Status: statuses[gofakeit.Number(0, len(statuses)-1)],
			Source: messages.SourceWebsite,
		}
		if i%5 == 4 {
			m.Source = messages.SourceChatbot
			m.Body = fmt.Sprintf("[Chatbot Request - callback] %s", body)
			m.HTML = messages.Paragraphs(m.Body)
		}
		if _, err := store.Create(ctx, m); err != nil {
			return err
		}
	}
	log.Println("messages seeded")
	return nil
}
