package appointments

import (
	"encoding/csv"
	"fmt"
	"io"
)

var csvHeader = []string{"Date", "Time", "Patient Name", "Email", "Phone", "Type", "Doctor", "Status"}

// WriteCSV renders appointments in the admin dashboard's export layout.
func WriteCSV(w io.Writer, appts []Appointment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("appointments: write csv header: %w", err)
	}
	for _, a := range appts {
		row := []string{
			a.PreferredDate,
			a.PreferredTime,
			a.FullName(),
			a.Email,
			a.Phone,
			a.AppointmentType.Label(),
			a.DoctorOr("Not assigned"),
			string(a.Status),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("appointments: write csv row %s: %w", a.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
