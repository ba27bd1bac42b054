package history

import (
	"database/sql"
	"strings"
	"time"
)

type scanner interface{ Scan(dest ...any) error }

func scanRun(row scanner) (*Run, error) {
	var (
		run          Run
		status       string
		selfHeal     int
		storageRoot  sql.NullString
		newModel     sql.NullString
		errorMessage sql.NullString
		startedRaw   string
		finishedRaw  sql.NullString
	)
	if err := row.Scan(
		&run.ID,
		&status,
		&selfHeal,
		&storageRoot,
		&run.Submitted,
		&run.Scored,
		&run.Failures,
		&newModel,
		&run.KeywordsAdded,
		&errorMessage,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.SelfHeal = selfHeal != 0
	run.StorageRoot = storageRoot.String
	run.NewModel = newModel.String
	run.ErrorMessage = errorMessage.String
	run.StartedAt = parseTime(startedRaw)
	run.FinishedAt = parseTime(finishedRaw.String)
	return &run, nil
}

func scanJob(row scanner) (Job, error) {
	var (
		job          Job
		kind         string
		model        sql.NullString
		folder       sql.NullString
		wer          sql.NullFloat64
		errorClass   sql.NullString
		errorMessage sql.NullString
		startedRaw   string
		finishedRaw  sql.NullString
	)
	if err := row.Scan(
		&job.ID,
		&job.RunID,
		&kind,
		&job.Name,
		&model,
		&folder,
		&job.Status,
		&wer,
		&errorClass,
		&errorMessage,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Job{}, err
	}
	job.Kind = JobKind(kind)
	job.Model = model.String
	job.Folder = folder.String
	if wer.Valid {
		v := wer.Float64
		job.WER = &v
	}
	job.ErrorClass = errorClass.String
	job.ErrorMessage = errorMessage.String
	job.StartedAt = parseTime(startedRaw)
	job.FinishedAt = parseTime(finishedRaw.String)
	return job, nil
}

// timeLayout is fixed width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
