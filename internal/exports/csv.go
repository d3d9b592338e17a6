package exports

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/eventconnect/backend/internal/models"
)

var csvHeader = []string{"participant_name", "participant_email", "method", "validated_by", "recorded_at", "points"}

// WriteCSV renders attendance rows as CSV with a header line.
func WriteCSV(w io.Writer, rows []models.AttendanceRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			r.ParticipantName,
			r.ParticipantEmail,
			string(r.Method),
			r.ValidatorName,
			r.RecordedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(r.WorkshopPoints),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
