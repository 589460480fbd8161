package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/anmoldairy/dairy/internal/config"
	"github.com/anmoldairy/dairy/internal/domain/models"
)

// ReportBuilder builds the summary of one session of one day.
type ReportBuilder interface {
	DailyReport(ctx context.Context, day time.Time, session models.Session) (models.DailyReport, error)
}

// ReportSink receives a finished report. Sinks are independent: one failing
// does not stop the others.
type ReportSink interface {
	Name() string
	Deliver(ctx context.Context, report models.DailyReport) error
}

// SinkFunc adapts a function to ReportSink.
type SinkFunc struct {
	Label string
	Fn    func(ctx context.Context, report models.DailyReport) error
}

func (f SinkFunc) Name() string { return f.Label }

func (f SinkFunc) Deliver(ctx context.Context, report models.DailyReport) error {
	return f.Fn(ctx, report)
}

// Scheduler runs the end-of-session report jobs.
type Scheduler struct {
	cron    *cron.Cron
	reports ReportBuilder
	sinks   []ReportSink
	cfg     config.ReportingConfig
	loc     *time.Location
	logger  *zap.Logger
	now     func() time.Time
}

// NewScheduler creates a new scheduler instance. Cron expressions are evaluated in loc.
func NewScheduler(cfg config.ReportingConfig, loc *time.Location, reports ReportBuilder, sinks []ReportSink, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		reports: reports,
		sinks:   sinks,
		cfg:     cfg,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
}

// Start registers the morning and evening jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("morning", s.cfg.MorningCron),
		zap.String("evening", s.cfg.EveningCron))

	if _, err := s.cron.AddFunc(s.cfg.MorningCron, func() { s.runJob(models.SessionMorning) }); err != nil {
		return fmt.Errorf("schedule morning report: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.EveningCron, func() { s.runJob(models.SessionEvening) }); err != nil {
		return fmt.Errorf("schedule evening report: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runJob(session models.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.RunSession(ctx, session, s.now()); err != nil {
		s.logger.Error("session report failed", zap.String("session", string(session)), zap.Error(err))
	}
}

// ReportDay is the day whose session is reported by a job firing at at.
// The evening session closes after midnight, so an evening job firing before
// 15:00 reports the previous day.
func ReportDay(session models.Session, at time.Time) time.Time {
	if session == models.SessionEvening && at.Hour() < 15 {
		return at.AddDate(0, 0, -1)
	}
	return at
}

// RunSession builds the report of session for the day covered at time at and
// hands it to every sink. Sink failures are logged and joined into the error.
func (s *Scheduler) RunSession(ctx context.Context, session models.Session, at time.Time) (models.DailyReport, error) {
	at = at.In(s.loc)
	day := ReportDay(session, at)

	report, err := s.reports.DailyReport(ctx, day, session)
	if err != nil {
		return models.DailyReport{}, fmt.Errorf("build %s report: %w", session, err)
	}
	s.logger.Info("session report built",
		zap.String("session", string(session)),
		zap.Time("day", report.Date),
		zap.Int("entries", report.Entries),
		zap.Float64("amount", report.TotalAmount))

	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Deliver(ctx, report); err != nil {
			s.logger.Warn("report delivery failed", zap.String("sink", sink.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return report, errors.Join(errs...)
}
