// Package ingest loads race results from CSV into a store.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/okian/wser/internal/adapters/repository"
	"github.com/okian/wser/internal/domain/course"
	"github.com/okian/wser/internal/domain/model"
	"github.com/okian/wser/internal/domain/timefmt"
	"github.com/okian/wser/internal/domain/types"
	"github.com/okian/wser/pkg/logger"
	"github.com/okian/wser/pkg/metrics"
)

// Fixed result columns, in the order Generate writes them.
const (
	ColPlace     = "OverallPlace"
	ColBib       = "Bib"
	ColFirstName = "FirstName"
	ColLastName  = "LastName"
	ColGender    = "Gender"
	ColAge       = "Age"
	ColCity      = "City"
	ColState     = "State"
	ColCountry   = "Country"

	positionSuffix = "Position"
)

var fixedColumns = []string{ColPlace, ColBib, ColFirstName, ColLastName, ColGender, ColAge, ColCity, ColState, ColCountry}

// ColumnName is the CSV header used for checkpoint name: letters and digits only.
func ColumnName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, name)
}

// Report summarizes a load.
type Report struct {
	Rows         int `json:"rows"`
	Runners      int `json:"runners"`
	FormatErrors int `json:"format_errors"`
	Rejected     int `json:"rejected"`
}

// Loader reads results CSV into a repository.Writer.
type Loader struct {
	course     *course.Course
	normalizer *timefmt.Normalizer
	strict     bool
	log        logger.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithCourse sets the course whose checkpoints are read. Default is Western States.
func WithCourse(c *course.Course) Option {
	return func(l *Loader) {
		if c != nil {
			l.course = c
		}
	}
}

// WithStrict aborts on the first malformed time or out-of-order runner
// instead of skipping it.
func WithStrict(strict bool) Option {
	return func(l *Loader) { l.strict = strict }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// New returns a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		course: course.Default(),
		// stored splits never impute a DNF time
		normalizer: timefmt.New(timefmt.WithPolicy(timefmt.PolicyAbsent)),
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type layout struct {
	fixed    map[string]int
	times    []int // per checkpoint, -1 when the column is missing
	position []int
}

func (l *Loader) layout(header []string) (layout, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	lay := layout{fixed: make(map[string]int, len(fixedColumns))}
	for _, c := range fixedColumns {
		i, ok := pos[c]
		if !ok && (c == ColBib || c == ColGender || c == ColAge) {
			return layout{}, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
		if ok {
			lay.fixed[c] = i
		}
	}
	for _, cp := range l.course.Checkpoints() {
		col := ColumnName(cp.Name)
		t, ok := pos[col]
		if !ok {
			t = -1
		}
		p, ok := pos[col+positionSuffix]
		if !ok {
			p = -1
		}
		lay.times = append(lay.times, t)
		lay.position = append(lay.position, p)
	}
	return lay, nil
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (lay layout) get(rec []string, col string) string {
	i, ok := lay.fixed[col]
	if !ok {
		return ""
	}
	return cell(rec, i)
}

type parsedRunner struct {
	info   model.RunnerInfo
	splits []model.SplitRecord
}

// Load replaces the contents of w with the runners in r. Every row is parsed
// before w is reset, so a read error or a strict abort leaves w untouched.
func (l *Loader) Load(ctx context.Context, r io.Reader, w repository.Writer) (Report, error) {
	var rep Report
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return rep, fmt.Errorf("read header: %w", err)
	}
	lay, err := l.layout(header)
	if err != nil {
		return rep, err
	}

	var runners []parsedRunner
	for {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rep, fmt.Errorf("read row %d: %w", rep.Rows+1, err)
		}
		rep.Rows++
		metrics.RecordIngestRow()

		info, splits, err := l.parseRow(ctx, lay, rec, &rep)
		if err != nil {
			if l.strict {
				return rep, fmt.Errorf("row %d: %w", rep.Rows, err)
			}
			if errors.Is(err, model.ErrOutOfOrder) {
				metrics.RecordIngestDataQualityError()
			}
			rep.Rejected++
			l.log.Warn(ctx, "runner skipped", logger.Int("row", rep.Rows), logger.Error(err))
			continue
		}
		runners = append(runners, parsedRunner{info: info, splits: splits})
	}

	if err := w.Reset(ctx); err != nil {
		return rep, fmt.Errorf("reset store: %w", err)
	}
	for _, pr := range runners {
		if err := w.SaveRunner(ctx, pr.info, pr.splits); err != nil {
			return rep, fmt.Errorf("save runner %s: %w", pr.info.ID, err)
		}
		rep.Runners++
		metrics.RecordIngestRunner()
	}

	l.log.Info(ctx, "results loaded",
		logger.Int("rows", rep.Rows),
		logger.Int("runners", rep.Runners),
		logger.Int("format_errors", rep.FormatErrors),
		logger.Int("rejected", rep.Rejected))
	return rep, nil
}

func (l *Loader) parseRow(ctx context.Context, lay layout, rec []string, rep *Report) (model.RunnerInfo, []model.SplitRecord, error) {
	bib := lay.get(rec, ColBib)
	if bib == "" {
		return model.RunnerInfo{}, nil, ErrMissingBib
	}
	info := model.RunnerInfo{
		ID:        types.RunnerID(bib),
		FirstName: lay.get(rec, ColFirstName),
		LastName:  lay.get(rec, ColLastName),
		City:      lay.get(rec, ColCity),
		State:     lay.get(rec, ColState),
		Country:   lay.get(rec, ColCountry),
	}
	// unknown genders are kept and only match the "any" filter
	info.Gender, _ = types.ParseGender(lay.get(rec, ColGender))

	age, err := strconv.Atoi(lay.get(rec, ColAge))
	if err != nil {
		return model.RunnerInfo{}, nil, fmt.Errorf("%w: age %q of runner %s", ErrBadNumber, lay.get(rec, ColAge), bib)
	}
	info.Age = age
	// DNF rows have no place
	info.Place, _ = strconv.Atoi(lay.get(rec, ColPlace))

	profile := model.RunnerProfile{Info: info, Elapsed: make(map[string]float64)}
	var splits []model.SplitRecord
	for i, cp := range l.course.Checkpoints() {
		raw := cell(rec, lay.times[i])
		h, m, s, ok, err := l.normalizer.Clock(raw)
		if err != nil {
			rep.FormatErrors++
			metrics.RecordIngestFormatError()
			if l.strict {
				return model.RunnerInfo{}, nil, fmt.Errorf("runner %s at %s: %w", bib, cp.Name, err)
			}
			l.log.Debug(ctx, "malformed split treated as absent",
				logger.String("runner", bib), logger.String("checkpoint", cp.Name), logger.Error(err))
			continue
		}
		if !ok {
			continue
		}
		t := model.ClockTime{Hours: h, Minutes: m, Seconds: s}
		place, _ := strconv.Atoi(cell(rec, lay.position[i]))
		splits = append(splits, model.SplitRecord{RunnerID: info.ID, Checkpoint: cp.Name, Time: t, Place: place})
		profile.Elapsed[cp.Name] = t.Fractional()
	}
	if err := profile.Validate(l.course); err != nil {
		return model.RunnerInfo{}, nil, err
	}
	return info, splits, nil
}
