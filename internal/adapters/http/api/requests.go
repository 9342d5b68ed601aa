package api

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/aarondl/opt/omit"
	"github.com/go-playground/validator/v10"

	"github.com/okian/wser/internal/domain/model"
	"github.com/okian/wser/internal/domain/types"
)

const defaultAgeBins = 10

var validate = validator.New() //nolint:gochecknoglobals // validator caches struct metadata

// filterQuery holds the runner filter parameters shared by the field endpoints.
type filterQuery struct {
	Gender    types.Gender
	MinAge    *int     `validate:"omitempty,min=0,max=120"`
	MaxAge    *int     `validate:"omitempty,min=0,max=120"`
	MinFinish *float64 `validate:"omitempty,gte=0"`
	MaxFinish *float64 `validate:"omitempty,gt=0"`
	Finishers bool
	Bibs      []string `validate:"omitempty,max=1000,dive,required,numeric"`
}

type searchQuery struct {
	Q string `validate:"required,max=128"`
}

type compareQuery struct {
	A string `validate:"required,max=128"`
	B string `validate:"required,max=128"`
}

type finishQuery struct {
	Edges  []float64 `validate:"required,min=2,max=64,dive,gte=0"`
	Gender types.Gender
}

type ageQuery struct {
	Bins   int `validate:"min=1,max=100"`
	Gender types.Gender
}

// check runs struct validation and folds failures into ErrBadRequest.
func check(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("%w: %s fails %s", ErrBadRequest, strings.ToLower(f.Field()), f.Tag())
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

func parseFilter(q url.Values) (model.RunnerFilter, error) {
	var (
		fq  filterQuery
		err error
	)
	if fq.Gender, err = parseGender(q); err != nil {
		return model.RunnerFilter{}, err
	}
	if fq.MinAge, err = optInt(q, "min_age"); err != nil {
		return model.RunnerFilter{}, err
	}
	if fq.MaxAge, err = optInt(q, "max_age"); err != nil {
		return model.RunnerFilter{}, err
	}
	if fq.MinFinish, err = optFloat(q, "min_finish"); err != nil {
		return model.RunnerFilter{}, err
	}
	if fq.MaxFinish, err = optFloat(q, "max_finish"); err != nil {
		return model.RunnerFilter{}, err
	}
	if v := q.Get("finishers"); v != "" {
		if fq.Finishers, err = strconv.ParseBool(v); err != nil {
			return model.RunnerFilter{}, fmt.Errorf("%w: finishers: %q", ErrBadRequest, v)
		}
	}
	fq.Bibs = list(q.Get("bibs"))
	if err := check(&fq); err != nil {
		return model.RunnerFilter{}, err
	}
	if fq.MinAge != nil && fq.MaxAge != nil && *fq.MaxAge < *fq.MinAge {
		return model.RunnerFilter{}, fmt.Errorf("%w: max_age below min_age", ErrBadRequest)
	}
	if fq.MinFinish != nil && fq.MaxFinish != nil && *fq.MaxFinish <= *fq.MinFinish {
		return model.RunnerFilter{}, fmt.Errorf("%w: max_finish must exceed min_finish", ErrBadRequest)
	}
	return fq.toFilter(), nil
}

func (fq filterQuery) toFilter() model.RunnerFilter {
	f := model.RunnerFilter{Gender: fq.Gender, FinishersOnly: fq.Finishers}
	if fq.MinAge != nil {
		f.MinAge = omit.From(*fq.MinAge)
	}
	if fq.MaxAge != nil {
		f.MaxAge = omit.From(*fq.MaxAge)
	}
	if fq.MinFinish != nil {
		f.MinFinishHours = omit.From(*fq.MinFinish)
	}
	if fq.MaxFinish != nil {
		f.MaxFinishHours = omit.From(*fq.MaxFinish)
	}
	for _, b := range fq.Bibs {
		f.Bibs = append(f.Bibs, types.RunnerID(b))
	}
	return f
}

func parseFinish(q url.Values) (finishQuery, error) {
	var (
		fq  finishQuery
		err error
	)
	if fq.Gender, err = parseGender(q); err != nil {
		return fq, err
	}
	for _, s := range list(q.Get("edges")) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fq, fmt.Errorf("%w: edges: %q", ErrBadRequest, s)
		}
		fq.Edges = append(fq.Edges, v)
	}
	return fq, check(&fq)
}

func parseAge(q url.Values) (ageQuery, error) {
	aq := ageQuery{Bins: defaultAgeBins}
	var err error
	if aq.Gender, err = parseGender(q); err != nil {
		return aq, err
	}
	if v := q.Get("bins"); v != "" {
		if aq.Bins, err = strconv.Atoi(v); err != nil {
			return aq, fmt.Errorf("%w: bins: %q", ErrBadRequest, v)
		}
	}
	return aq, check(&aq)
}

func parseGender(q url.Values) (types.Gender, error) {
	g, err := types.ParseGender(q.Get("gender"))
	if err != nil {
		return g, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return g, nil
}

func optInt(q url.Values, key string) (*int, error) {
	s := q.Get(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %q", ErrBadRequest, key, s)
	}
	return &v, nil
}

func optFloat(q url.Values, key string) (*float64, error) {
	s := q.Get(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %q", ErrBadRequest, key, s)
	}
	return &v, nil
}

// list splits a comma separated parameter, dropping blanks.
func list(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
