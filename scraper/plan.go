package scraper

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/treeprimer/pkg/errors"
	"github.com/YuminosukeSato/treeprimer/pkg/log"
)

// Job downloads one file: the stations of Type listed for the location
// window, with their observations between From and To.
type Job struct {
	Type     StationType
	From, To time.Time
	// 観測所一覧を問い合わせる期間 (From/To と異なる場合がある)
	LocFrom, LocTo time.Time
}

// FileName is "<type>_datefrom_<from>_dateto_<to>.csv".
func (j Job) FileName() string {
	return fmt.Sprintf("%s_datefrom_%s_dateto_%s.csv", j.Type, j.From.Format(DateLayout), j.To.Format(DateLayout))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthlyJobs splits every month of years into two automatic-station jobs:
// days 1-15 and 16-end. The first half lists stations active on the 15th
// and 16th, the second half those active from the 16th to month end.
func MonthlyJobs(years []int) []Job {
	jobs := make([]Job, 0, len(years)*24)
	for _, y := range years {
		for m := time.January; m <= time.December; m++ {
			first := date(y, m, 1)
			last := first.AddDate(0, 1, -1)
			mid1, mid2 := date(y, m, 15), date(y, m, 16)
			jobs = append(jobs,
				Job{Type: TypeAutomatic, From: first, To: mid1, LocFrom: mid1, LocTo: mid2},
				Job{Type: TypeAutomatic, From: mid2, To: last, LocFrom: mid2, LocTo: last},
			)
		}
	}
	return jobs
}

// PeriodJobs creates one whole-period job per station type.
func PeriodJobs(types []StationType, from, to time.Time) []Job {
	jobs := make([]Job, 0, len(types))
	for _, t := range types {
		jobs = append(jobs, Job{Type: t, From: from, To: to, LocFrom: from, LocTo: to})
	}
	return jobs
}

// Scraper runs jobs and writes one CSV per job into a directory.
type Scraper struct {
	client      *Client
	outDir      string
	concurrency int
	logger      log.Logger
}

// ScraperOption configures a Scraper.
type ScraperOption func(*Scraper)

// WithConcurrency sets how many stations are downloaded at once (default 1).
// The client's rate limit still applies across all of them.
func WithConcurrency(n int) ScraperOption {
	return func(s *Scraper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithScraperLogger sets the logger.
func WithScraperLogger(l log.Logger) ScraperOption {
	return func(s *Scraper) { s.logger = l }
}

// New creates a scraper writing into outDir.
func New(client *Client, outDir string, opts ...ScraperOption) *Scraper {
	s := &Scraper{client: client, outDir: outDir, concurrency: 1}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("scraper")
	}
	return s
}

// Download fetches the observations of every station. Results keep the
// order of stations regardless of concurrency.
func (s *Scraper) Download(ctx context.Context, stations []Station, from, to time.Time) ([]StationFrame, error) {
	frames := make([]StationFrame, len(stations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, st := range stations {
		i, st := i, st
		g.Go(func() error {
			data, err := s.client.StationData(gctx, st, from, to)
			if err != nil {
				return err
			}
			frames[i] = StationFrame{Station: st, Data: data}
			s.logger.Info("Station downloaded",
				"index", i,
				"station_id", st.ID,
				"station_name", st.Name,
				log.SamplesKey, len(data.Records))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}

// RunJob lists stations, downloads them and writes the job's CSV file.
func (s *Scraper) RunJob(ctx context.Context, job Job) (string, error) {
	stations, err := s.client.Stations(ctx, job.Type, job.LocFrom, job.LocTo)
	if err != nil {
		return "", err
	}
	frames, err := s.Download(ctx, stations, job.From, job.To)
	if err != nil {
		return "", err
	}
	df, err := Assemble(job.From, job.To, frames)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.outDir, job.FileName())
	if err := WriteCSV(path, df); err != nil {
		return "", err
	}
	s.logger.Info("Finished",
		"station_type", int(job.Type),
		"date_from", job.From.Format(DateLayout),
		"date_to", job.To.Format(DateLayout),
		log.SamplesKey, df.Nrow(),
		"path", path)
	return path, nil
}

// Run executes jobs in order and stops at the first failure. It returns
// the paths written so far.
func (s *Scraper) Run(ctx context.Context, jobs []Job) ([]string, error) {
	paths := make([]string, 0, len(jobs))
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return paths, errors.Wrapf(err, "cancelled before %s", job.FileName())
		}
		path, err := s.RunJob(ctx, job)
		if err != nil {
			return paths, errors.Wrapf(err, "job %s", job.FileName())
		}
		paths = append(paths, path)
	}
	return paths, nil
}
