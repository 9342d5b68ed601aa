package main

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"

	service "github.com/okian/wser/internal/app"
	"github.com/okian/wser/internal/domain/binning"
	"github.com/okian/wser/internal/domain/model"
	"github.com/okian/wser/internal/ingest"
)

// report is the ingest outcome for one file.
type report struct {
	File string `json:"file"`
	ingest.Report
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, v any) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	switch v := v.(type) {
	case report:
		fmt.Fprintf(tw, "file\t%s\nrows\t%d\nrunners\t%d\nformat errors\t%d\nrejected\t%d\n",
			v.File, v.Rows, v.Runners, v.FormatErrors, v.Rejected)
	case []model.RunnerInfo:
		fmt.Fprintln(tw, "PLACE\tBIB\tNAME\tGENDER\tAGE\tHOME")
		for _, r := range v {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", place(r.Place), r.ID, r.FullName(), r.Gender, r.Age, home(r))
		}
	case service.RunnerPace:
		fmt.Fprintf(tw, "%s (#%s)\n", v.Runner.FullName(), v.Runner.ID)
		fmt.Fprintln(tw, "CHECKPOINT\tMILE\tELAPSED\tSEGMENT\tSEG PACE\tAVG PACE")
		for _, p := range v.Series {
			fmt.Fprintf(tw, "%s\t%.1f\t%s\t%s\t%s\t%s\n", p.Checkpoint, p.Distance,
				clock(p.Elapsed), clock(p.SegmentElapsed), pace(p.SegmentPace), pace(p.CumulativePace))
		}
		if v.Series.Empty() {
			fmt.Fprintln(tw, "(no splits recorded)")
		}
	case service.Comparison:
		a, b := byIndex(v.A.Series), byIndex(v.B.Series)
		fmt.Fprintf(tw, "CHECKPOINT\t%s\t\t%s\t\n", v.A.Runner.FullName(), v.B.Runner.FullName())
		fmt.Fprintln(tw, "\tELAPSED\tAVG PACE\tELAPSED\tAVG PACE")
		for _, name := range checkpoints(v.A.Series, v.B.Series) {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", name.name, cells(a, name.index), cells(b, name.index))
		}
	case model.AggregateSeries:
		fmt.Fprintf(tw, "field of %d runners\n", v.Runners)
		fmt.Fprintln(tw, "CHECKPOINT\tMILE\tN\tAVG PACE\tSEG PACE")
		for _, p := range v.Points {
			fmt.Fprintf(tw, "%s\t%.1f\t%d\t%s\t%s\n", p.Checkpoint, p.Distance, p.CumulativePace.Count,
				meanPace(p.CumulativePace), meanPace(p.SegmentPace))
		}
	case service.FieldComparison:
		own := byIndex(v.Runner.Series)
		fmt.Fprintf(tw, "%s vs %s (%d runners)\n", v.Runner.Runner.FullName(), v.Filter, v.Field.Runners)
		fmt.Fprintln(tw, "CHECKPOINT\tRUNNER PACE\tFIELD PACE\tN")
		for _, p := range v.Field.Points {
			mine := "-"
			if q, ok := own[p.Index]; ok {
				mine = pace(q.CumulativePace)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.Checkpoint, mine, meanPace(p.CumulativePace), p.CumulativePace.Count)
		}
	case service.FieldSummary:
		fmt.Fprintf(tw, "%s: %d runners, %d finishers, %d imputed\n", v.Filter, v.Runners, v.Finishers, v.Imputed)
		fmt.Fprintln(tw, "\tN\tMEAN\tSTD\tMIN\tP25\tMEDIAN\tP75\tMAX")
		fmt.Fprintf(tw, "age\t%d\t%.1f\t%.1f\t%.0f\t%.1f\t%.1f\t%.1f\t%.0f\n", v.Age.Count,
			v.Age.Mean, v.Age.Std, v.Age.Min, v.Age.P25, v.Age.P50, v.Age.P75, v.Age.Max)
		fmt.Fprintf(tw, "finish\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", v.Finish.Count,
			clock(v.Finish.Mean), clock(v.Finish.Std), clock(v.Finish.Min), clock(v.Finish.P25),
			clock(v.Finish.P50), clock(v.Finish.P75), clock(v.Finish.Max))
	case binning.Distribution:
		head := []string{"BIN"}
		for _, s := range v.Series {
			head = append(head, s.Gender.String())
		}
		fmt.Fprintln(tw, strings.Join(head, "\t"))
		for i, label := range v.Labels {
			row := []string{label}
			for _, s := range v.Series {
				switch {
				case i < len(s.Counts):
					row = append(row, fmt.Sprint(s.Counts[i]))
				case i < len(s.Means) && s.Means[i].Valid():
					row = append(row, fmt.Sprintf("%s (%d)", clock(s.Means[i].Value), s.Means[i].Count))
				default:
					row = append(row, "-")
				}
			}
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
	default:
		return printJSON(w, v)
	}
	return tw.Flush()
}

type checkpointRef struct {
	index int
	name  string
}

// checkpoints lists the checkpoints present in either series, in course order.
func checkpoints(a, b model.PaceSeries) []checkpointRef {
	var out []checkpointRef
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j >= len(b) || (i < len(a) && a[i].Index < b[j].Index):
			out = append(out, checkpointRef{a[i].Index, a[i].Checkpoint})
			i++
		case i >= len(a) || b[j].Index < a[i].Index:
			out = append(out, checkpointRef{b[j].Index, b[j].Checkpoint})
			j++
		default:
			out = append(out, checkpointRef{a[i].Index, a[i].Checkpoint})
			i++
			j++
		}
	}
	return out
}

func byIndex(s model.PaceSeries) map[int]model.PacePoint {
	m := make(map[int]model.PacePoint, len(s))
	for _, p := range s {
		m[p.Index] = p
	}
	return m
}

func cells(m map[int]model.PacePoint, idx int) string {
	p, ok := m[idx]
	if !ok {
		return "-\t-"
	}
	return clock(p.Elapsed) + "\t" + pace(p.CumulativePace)
}

func meanPace(m model.Mean) string {
	if !m.Valid() {
		return "-"
	}
	return pace(m.Value)
}

// pace formats hours per mile as m:ss/mi.
func pace(hoursPerMile float64) string {
	secs := int(math.Round(hoursPerMile * 3600))
	return fmt.Sprintf("%d:%02d/mi", secs/60, secs%60)
}

// clock formats fractional hours as h:mm:ss.
func clock(hours float64) string {
	secs := int(math.Round(hours * 3600))
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}

func place(p int) string {
	if p == 0 {
		return "-"
	}
	return fmt.Sprint(p)
}

func home(r model.RunnerInfo) string {
	var parts []string
	for _, s := range []string{r.City, r.State, r.Country} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
