package mockdata

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/job-insights/internal/ingest"
	"github.com/job-insights/internal/types"
)

// WriteCSV writes jobs with the canonical export header. Absent fields are written empty.
func WriteCSV(w io.Writer, jobs []types.JobRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ingest.Columns); err != nil {
		return err
	}

	optional := func(v *string) string {
		if v == nil {
			return ""
		}
		return *v
	}

	for _, job := range jobs {
		row := []string{
			job.JobID,
			job.Backend,
			optional(job.BackendType),
			string(job.Status),
			job.CreationTime,
			optional(job.EndTime),
			optional(job.ExecutionTime),
			strconv.Itoa(job.Shots),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
