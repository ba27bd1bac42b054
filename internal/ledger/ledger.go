// Package ledger persists one row per (model, folder) evaluation and renders
// the leaderboard from those rows.
//
// The ledger is the idempotence oracle for runs: a pair with a row is never
// transcribed again. Rows are loaded once, mutated in memory and written back
// with a full overwrite.
package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"clmeval/internal/services"
	"clmeval/internal/storage"
)

// StandardModel is the model value of the standard transcription baseline.
const StandardModel = "ST"

// StandardLabel is how the baseline appears on the leaderboard.
const StandardLabel = "Standard Transcribe (ST)"

// LeaderboardHeader opens the leaderboard text.
const LeaderboardHeader = "model-name: WER\n\n"

const listSeparator = ", "

// Header is the CSV column order written by Save.
var Header = []string{"model", "folder", "wer", "missed_words", "fixed_words"}

// Record is one ledger row. WER is nil when absent, which is the case for
// placeholder rows registering a freshly trained model.
type Record struct {
	Model       string
	Folder      string
	WER         *float64
	MissedWords []string
	FixedWords  []string
}

// Placeholder returns the row that registers a trained, not yet evaluated model.
func Placeholder(model string) Record {
	return Record{Model: model}
}

// IsPlaceholder reports whether the row only registers a model.
func (r Record) IsPlaceholder() bool {
	return r.Folder == "" && r.WER == nil
}

type pairKey struct {
	model  string
	folder string
}

// Ledger holds the rows of one storage root.
type Ledger struct {
	store   storage.Store
	key     string
	records []Record
	index   map[pairKey]int
}

// New returns an empty ledger bound to key.
func New(store storage.Store, key string) *Ledger {
	return &Ledger{store: store, key: key, index: make(map[pairKey]int)}
}

// Load reads the ledger at key. A missing object yields an empty ledger.
func Load(ctx context.Context, store storage.Store, key string) (*Ledger, error) {
	l := New(store, key)
	data, err := store.Read(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return l, nil
		}
		return nil, services.Wrap(services.ErrTransient, "ledger", "load", key, err)
	}
	records, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "ledger", "parse", key, err)
	}
	for _, rec := range records {
		l.Append(rec)
	}
	return l, nil
}

// Key returns the object key the ledger saves to.
func (l *Ledger) Key() string { return l.key }

// Len returns the number of rows.
func (l *Ledger) Len() int { return len(l.records) }

// HasRun reports whether a row exists for the pair.
func (l *Ledger) HasRun(model, folder string) bool {
	_, ok := l.index[pairKey{model, folder}]
	return ok
}

// Append adds a row without checking for duplicates. Callers check HasRun
// first; when duplicates exist the first row wins for lookups.
func (l *Ledger) Append(rec Record) {
	rec.MissedWords = cloneStrings(rec.MissedWords)
	rec.FixedWords = cloneStrings(rec.FixedWords)
	if rec.WER != nil {
		v := *rec.WER
		rec.WER = &v
	}
	k := pairKey{rec.Model, rec.Folder}
	if _, ok := l.index[k]; !ok {
		l.index[k] = len(l.records)
	}
	l.records = append(l.records, rec)
}

// DistinctModels returns the models seen in the ledger in first-seen order,
// leaving out exclude.
func (l *Ledger) DistinctModels(exclude string) []string {
	seen := make(map[string]struct{})
	var models []string
	for _, rec := range l.records {
		if rec.Model == exclude || rec.Model == "" {
			continue
		}
		if _, ok := seen[rec.Model]; ok {
			continue
		}
		seen[rec.Model] = struct{}{}
		models = append(models, rec.Model)
	}
	return models
}

// MissedWordsFor returns the missed words recorded for the pair, or nil.
func (l *Ledger) MissedWordsFor(model, folder string) []string {
	idx, ok := l.index[pairKey{model, folder}]
	if !ok {
		return nil
	}
	return cloneStrings(l.records[idx].MissedWords)
}

// Records returns a copy of every row in insertion order.
func (l *Ledger) Records() []Record {
	out := make([]Record, len(l.records))
	for i, rec := range l.records {
		out[i] = rec
		out[i].MissedWords = cloneStrings(rec.MissedWords)
		out[i].FixedWords = cloneStrings(rec.FixedWords)
		if rec.WER != nil {
			v := *rec.WER
			out[i].WER = &v
		}
	}
	return out
}

// Save overwrites the ledger object.
func (l *Ledger) Save(ctx context.Context) error {
	var buf bytes.Buffer
	if err := Write(&buf, l.records); err != nil {
		return services.Wrap(services.ErrTransient, "ledger", "encode", l.key, err)
	}
	if err := l.store.Write(ctx, l.key, buf.Bytes()); err != nil {
		return services.Wrap(services.ErrTransient, "ledger", "save", l.key, err)
	}
	return nil
}

// Parse reads ledger CSV. Columns are located by header name so extra or
// reordered columns are tolerated; model and folder are required.
func Parse(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	modelCol, okModel := cols["model"]
	folderCol, okFolder := cols["folder"]
	if !okModel || !okFolder {
		return nil, fmt.Errorf("header %v lacks model/folder columns", header)
	}
	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if modelCol >= len(row) || strings.TrimSpace(row[modelCol]) == "" {
			continue
		}
		rec := Record{
			Model:       strings.TrimSpace(row[modelCol]),
			MissedWords: splitList(field(row, "missed_words")),
			FixedWords:  splitList(field(row, "fixed_words")),
		}
		if folderCol < len(row) && !missing(row[folderCol]) {
			rec.Folder = strings.TrimSpace(row[folderCol])
		}
		wer, err := parseWER(field(row, "wer"))
		if err != nil {
			return nil, fmt.Errorf("line %d: wer: %w", line, err)
		}
		rec.WER = wer
		records = append(records, rec)
	}
	return records, nil
}

// Write encodes records as ledger CSV with Header.
func Write(w io.Writer, records []Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.Model,
			rec.Folder,
			FormatWER(rec.WER),
			strings.Join(rec.MissedWords, listSeparator),
			strings.Join(rec.FixedWords, listSeparator),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// FormatWER renders a WER with the shortest decimal form, or "" when absent.
func FormatWER(wer *float64) string {
	if wer == nil {
		return ""
	}
	return strconv.FormatFloat(*wer, 'f', -1, 64)
}

// missing reports cells pandas writes for absent values: empty, nan, None.
func missing(raw string) bool {
	raw = strings.TrimSpace(raw)
	return raw == "" || strings.EqualFold(raw, "nan") || raw == "None"
}

func parseWER(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if missing(raw) {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) {
		return nil, nil
	}
	return &v, nil
}

func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if missing(raw) {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return append([]string(nil), in...)
}

// Standing is one leaderboard entry.
type Standing struct {
	Model string
	Label string
	Mean  float64
	Count int
}

// Standings averages the WER of every model over rows with a present,
// non-negative WER. Models without such rows are left out. Entries are
// ordered by ascending mean; ties keep first-seen order.
func (l *Ledger) Standings() []Standing {
	type acc struct {
		sum   float64
		count int
	}
	sums := make(map[string]*acc)
	var order []string
	for _, rec := range l.records {
		if rec.WER == nil || *rec.WER < 0 || math.IsNaN(*rec.WER) {
			continue
		}
		a, ok := sums[rec.Model]
		if !ok {
			a = &acc{}
			sums[rec.Model] = a
			order = append(order, rec.Model)
		}
		a.sum += *rec.WER
		a.count++
	}
	standings := make([]Standing, 0, len(order))
	for _, model := range order {
		a := sums[model]
		standings = append(standings, Standing{
			Model: model,
			Label: Label(model),
			Mean:  a.sum / float64(a.count),
			Count: a.count,
		})
	}
	sort.SliceStable(standings, func(i, j int) bool { return standings[i].Mean < standings[j].Mean })
	return standings
}

// BuildLeaderboard renders the leaderboard text artifact.
func (l *Ledger) BuildLeaderboard() string {
	var b strings.Builder
	b.WriteString(LeaderboardHeader)
	for _, s := range l.Standings() {
		fmt.Fprintf(&b, "%s: %s\n\n", s.Label, strconv.FormatFloat(s.Mean, 'f', -1, 64))
	}
	return b.String()
}

// Label returns the leaderboard label of a model.
func Label(model string) string {
	if model == StandardModel {
		return StandardLabel
	}
	return model
}
