package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/camp-autoscheduler/internal/dto"
	"github.com/noah-isme/camp-autoscheduler/internal/models"
	"github.com/noah-isme/camp-autoscheduler/internal/scheduler"
	appErrors "github.com/noah-isme/camp-autoscheduler/pkg/errors"
	"github.com/noah-isme/camp-autoscheduler/pkg/export"
)

type eventSlotStore interface {
	ListByCamp(ctx context.Context, campID string) ([]models.EventSlot, error)
	DeleteAutoscheduled(ctx context.Context, exec sqlx.ExtContext, campID string) (int64, error)
	Create(ctx context.Context, exec sqlx.ExtContext, slot *models.EventSlot) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type scheduleNotifier interface {
	EventScheduled(notice EventScheduledNotice) error
}

// AutoScheduleConfig governs solver limits and proposal lifetime.
type AutoScheduleConfig struct {
	Enabled      bool
	ProposalTTL  time.Duration
	SolveTimeout time.Duration
	MaxNodes     int
	AllowPartial bool
}

// ApplyError reports how far a failed apply got before its transaction was rolled back.
type ApplyError struct {
	Deleted int64
	Created int
	Err     error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply stopped after deleting %d and creating %d placements: %v", e.Deleted, e.Created, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// AutoScheduleService computes, validates, compares and applies camp programs.
type AutoScheduleService struct {
	eventTypes eventTypeReader
	sessions   eventSessionReader
	locations  locationConflictReader
	events     programEventReader
	speakers   speakerReader
	slots      eventSlotStore
	tx         txProvider
	store      ProposalStore
	notifier   scheduleNotifier
	metrics    *MetricsService
	backend    scheduler.Backend
	exporter   *export.Renderer
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        AutoScheduleConfig
	locks      *campLocks
	now        func() time.Time
}

// NewAutoScheduleService wires autoscheduler dependencies. A nil store keeps proposals in
// memory, a nil backend selects the branch and bound search sized by cfg.MaxNodes.
func NewAutoScheduleService(
	eventTypes eventTypeReader,
	sessions eventSessionReader,
	locations locationConflictReader,
	events programEventReader,
	speakers speakerReader,
	slots eventSlotStore,
	tx txProvider,
	store ProposalStore,
	notifier scheduleNotifier,
	metrics *MetricsService,
	backend scheduler.Backend,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg AutoScheduleConfig,
) *AutoScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.SolveTimeout <= 0 {
		cfg.SolveTimeout = 30 * time.Second
	}
	if store == nil {
		store = NewMemoryProposalStore()
	}
	if backend == nil {
		backend = scheduler.NewBranchAndBound(cfg.MaxNodes)
	}
	return &AutoScheduleService{
		eventTypes: eventTypes,
		sessions:   sessions,
		locations:  locations,
		events:     events,
		speakers:   speakers,
		slots:      slots,
		tx:         tx,
		store:      store,
		notifier:   notifier,
		metrics:    metrics,
		backend:    backend,
		exporter:   export.NewRenderer(),
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		locks:      newCampLocks(),
		now:        time.Now,
	}
}

// autoscheduleRun is one built problem together with the current program mapped onto it.
type autoscheduleRun struct {
	problem   *scheduler.Problem
	reference scheduler.Schedule
	gaps      []scheduler.ReferenceGap
}

func (s *AutoScheduleService) prepare(ctx context.Context, campID string, options scheduler.ConstraintOptions) (*autoscheduleRun, error) {
	snapshot, err := s.loadSnapshot(ctx, campID)
	if err != nil {
		return nil, err
	}
	problem := scheduler.NewBuilder(options, s.logger).Build(snapshot.catalog)
	reference, gaps := problem.BuildReference(snapshot.placements, s.logger)
	s.metrics.AddReferenceGaps(len(gaps))
	return &autoscheduleRun{problem: problem, reference: reference, gaps: gaps}, nil
}

// solve runs the solver for a mode. "similar" minimises changes against the current program
// when one exists, anything else optimises capacity use.
func (s *AutoScheduleService) solve(ctx context.Context, run *autoscheduleRun, mode models.ScheduleMode) (scheduler.Schedule, scheduler.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SolveTimeout)
	defer cancel()

	solver := scheduler.NewSolver(s.backend, scheduler.SolverOptions{AllowPartial: s.cfg.AllowPartial}, s.logger)
	var (
		schedule scheduler.Schedule
		stats    scheduler.Stats
		err      error
	)
	if mode == models.ScheduleModeSimilar {
		schedule, stats, err = solver.Solve(ctx, run.problem, run.reference)
	} else {
		schedule, stats, err = solver.SolveWith(ctx, run.problem, scheduler.ObjectiveCapacityDemand, nil)
	}

	outcome := "solved"
	switch {
	case err == nil && !stats.Optimal:
		outcome = "incumbent"
	case errors.Is(err, scheduler.ErrNoFeasibleSchedule):
		outcome = "infeasible"
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	s.metrics.ObserveSolve(string(stats.Objective), outcome, stats.Duration)

	switch {
	case err == nil:
		return schedule, stats, nil
	case errors.Is(err, scheduler.ErrNoFeasibleSchedule):
		return nil, stats, appErrors.Wrap(err, appErrors.ErrNoFeasibleSchedule.Code, appErrors.ErrNoFeasibleSchedule.Status, appErrors.ErrNoFeasibleSchedule.Message)
	case errors.Is(err, context.DeadlineExceeded):
		return nil, stats, appErrors.Wrap(err, appErrors.ErrNoFeasibleSchedule.Code, appErrors.ErrNoFeasibleSchedule.Status, "solver timed out before finding a schedule")
	default:
		return nil, stats, internalError(err, "failed to solve schedule")
	}
}

func (s *AutoScheduleService) validateOptions() scheduler.ValidateOptions {
	return scheduler.ValidateOptions{Strict: !s.cfg.AllowPartial}
}

func (s *AutoScheduleService) ensureEnabled() error {
	if !s.cfg.Enabled {
		return appErrors.ErrSchedulerDisabled
	}
	return nil
}

func parseMode(raw string) models.ScheduleMode {
	if raw == "" {
		return models.ScheduleModeNew
	}
	return models.ScheduleMode(raw)
}

// Calculate computes a proposal and stores it for a later apply.
func (s *AutoScheduleService) Calculate(ctx context.Context, req dto.CalculateRequest) (*dto.ProposalResponse, error) {
	if err := s.ensureEnabled(); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid autoschedule payload")
	}
	mode := parseMode(req.Mode)
	options := req.Constraints.Options()

	run, err := s.prepare(ctx, req.CampID, options)
	if err != nil {
		s.metrics.RecordRun("calculate", "error")
		return nil, err
	}
	schedule, stats, err := s.solve(ctx, run, mode)
	if err != nil {
		s.metrics.RecordRun("calculate", "error")
		return nil, err
	}

	result := run.problem.Validate(schedule, s.validateOptions())
	diff := run.problem.Diff(run.reference, schedule)

	now := s.now().UTC()
	proposal := models.Proposal{
		ID:          uuid.NewString(),
		CampID:      req.CampID,
		Mode:        mode,
		Objective:   stats.Objective,
		Status:      models.ProposalStatusValid,
		Assignments: proposalAssignments(run.problem, schedule),
		Unscheduled: unscheduledEvents(run.problem, schedule),
		Violations:  result.Messages(),
		Stats:       stats,
		Changes:     len(diff.EventDiffs),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.ProposalTTL),
		CreatedBy:   req.RequestedBy,
		Constraints: options,
	}
	if !result.Valid {
		proposal.Status = models.ProposalStatusInvalid
	}
	if err := s.store.Save(ctx, proposal); err != nil {
		s.metrics.RecordRun("calculate", "error")
		return nil, err
	}
	s.metrics.RecordRun("calculate", "ok")

	s.logger.Info("autoschedule proposal calculated",
		zap.String("camp_id", req.CampID),
		zap.String("proposal_id", proposal.ID),
		zap.String("mode", string(mode)),
		zap.Int("placements", len(proposal.Assignments)),
		zap.Int("changes", proposal.Changes),
		zap.Bool("valid", result.Valid),
	)

	resp := proposalResponse(proposal)
	resp.ReferenceGaps = referenceGapViews(run.gaps)
	if mode == models.ScheduleModeSimilar {
		resp.Diff = diffResponse(diff)
	}
	return resp, nil
}

// DiffCurrent computes a schedule close to the current program and reports the changes.
func (s *AutoScheduleService) DiffCurrent(ctx context.Context, campID string, constraints *dto.ConstraintsRequest) (*dto.ProposalResponse, error) {
	return s.Calculate(ctx, dto.CalculateRequest{CampID: campID, Mode: string(models.ScheduleModeSimilar), Constraints: constraints})
}

// Validate checks the current program, or a freshly computed one, against every hard constraint.
func (s *AutoScheduleService) Validate(ctx context.Context, req dto.ValidateRequest) (*dto.ValidationResponse, error) {
	if err := s.ensureEnabled(); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid validation payload")
	}
	which := models.ScheduleModeCurrent
	if req.Schedule != "" {
		which = models.ScheduleMode(req.Schedule)
	}

	run, err := s.prepare(ctx, req.CampID, req.Constraints.Options())
	if err != nil {
		return nil, err
	}

	schedule := run.reference
	opts := scheduler.ValidateOptions{}
	if which != models.ScheduleModeCurrent {
		if schedule, _, err = s.solve(ctx, run, which); err != nil {
			return nil, err
		}
		opts = s.validateOptions()
	}

	result := run.problem.Validate(schedule, opts)
	diff := run.problem.Diff(run.reference, schedule)
	outcome := "valid"
	if !result.Valid {
		outcome = "invalid"
	}
	s.metrics.RecordRun("validate", outcome)

	return &dto.ValidationResponse{
		CampID:         req.CampID,
		Schedule:       string(which),
		Valid:          result.Valid,
		SlotCount:      len(run.problem.Slots),
		SessionCount:   run.problem.SessionCount,
		EventTypeCount: run.problem.EventTypeCount,
		EventCount:     len(run.problem.Items),
		ScheduledCount: len(schedule),
		Violations:     violationViews(run.problem, result.Violations),
		ReferenceGaps:  referenceGapViews(run.gaps),
		EventChanges:   len(diff.EventDiffs),
		SlotChanges:    len(diff.SlotDiffs),
	}, nil
}

// GetProposal returns a stored proposal.
func (s *AutoScheduleService) GetProposal(ctx context.Context, proposalID string) (*dto.ProposalResponse, error) {
	proposal, err := s.store.Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	return proposalResponse(*proposal), nil
}

// RejectProposal marks a proposal as rejected so it can no longer be applied.
func (s *AutoScheduleService) RejectProposal(ctx context.Context, proposalID string) (*dto.ProposalResponse, error) {
	proposal, err := s.store.Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status == models.ProposalStatusApplied {
		return nil, appErrors.Clone(appErrors.ErrConflict, "proposal has already been applied")
	}
	proposal.Status = models.ProposalStatusRejected
	if err := s.store.Save(ctx, *proposal); err != nil {
		return nil, err
	}
	s.metrics.RecordRun("reject", "ok")
	return proposalResponse(*proposal), nil
}

// Apply recomputes the program and persists it when valid.
func (s *AutoScheduleService) Apply(ctx context.Context, req dto.ApplyRequest) (*dto.ApplyResponse, error) {
	if err := s.ensureEnabled(); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid apply payload")
	}
	release, ok := s.locks.TryLock(req.CampID)
	if !ok {
		return nil, appErrors.ErrSchedulerBusy
	}
	defer release()

	run, err := s.prepare(ctx, req.CampID, req.Constraints.Options())
	if err != nil {
		s.metrics.RecordRun("apply", "error")
		return nil, err
	}
	schedule, _, err := s.solve(ctx, run, parseMode(req.Mode))
	if err != nil {
		s.metrics.RecordRun("apply", "error")
		return nil, err
	}
	deleted, created, err := s.applyValidated(ctx, req.CampID, run.problem, schedule)
	if err != nil {
		return nil, err
	}
	return &dto.ApplyResponse{CampID: req.CampID, Deleted: deleted, Created: created}, nil
}

// ApplyProposal persists a stored proposal. Its placements are resolved against the current
// program again, so a proposal that no longer fits is refused.
func (s *AutoScheduleService) ApplyProposal(ctx context.Context, req dto.ApplyProposalRequest) (*dto.ApplyResponse, error) {
	if err := s.ensureEnabled(); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid apply payload")
	}
	release, ok := s.locks.TryLock(req.CampID)
	if !ok {
		return nil, appErrors.ErrSchedulerBusy
	}
	defer release()

	proposal, err := s.store.Get(ctx, req.ProposalID)
	if err != nil {
		return nil, err
	}
	if proposal.CampID != req.CampID {
		return nil, errProposalNotFound
	}
	if proposal.Status == models.ProposalStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrConflict, "proposal has been rejected")
	}

	run, err := s.prepare(ctx, req.CampID, proposal.Constraints)
	if err != nil {
		s.metrics.RecordRun("apply", "error")
		return nil, err
	}
	schedule, stale := resolveAssignments(run.problem, proposal.Assignments)
	if len(stale) > 0 {
		s.metrics.RecordRun("apply", "stale")
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrConflict, "proposal no longer matches the program, calculate a new one"),
			map[string]interface{}{"staleEvents": stale},
		)
	}

	deleted, created, err := s.applyValidated(ctx, req.CampID, run.problem, schedule)
	if err != nil {
		return nil, err
	}

	appliedAt := s.now().UTC()
	proposal.Status = models.ProposalStatusApplied
	proposal.AppliedAt = &appliedAt
	if err := s.store.Save(ctx, *proposal); err != nil {
		s.logger.Warn("failed to mark proposal applied", zap.String("proposal_id", proposal.ID), zap.Error(err))
	}
	return &dto.ApplyResponse{CampID: req.CampID, ProposalID: proposal.ID, Deleted: deleted, Created: created}, nil
}

func (s *AutoScheduleService) applyValidated(ctx context.Context, campID string, problem *scheduler.Problem, schedule scheduler.Schedule) (int64, int, error) {
	result := problem.Validate(schedule, s.validateOptions())
	if !result.Valid {
		s.metrics.RecordRun("apply", "invalid")
		return 0, 0, appErrors.WithDetails(appErrors.ErrInvalidSchedule, map[string]interface{}{
			"violations": violationViews(problem, result.Violations),
		})
	}

	deleted, created, notices, err := s.persist(ctx, campID, problem, schedule)
	if err != nil {
		s.metrics.RecordRun("apply", "error")
		var applyErr *ApplyError
		if errors.As(err, &applyErr) {
			s.logger.Error("autoschedule apply rolled back",
				zap.String("camp_id", campID),
				zap.Int64("deleted", applyErr.Deleted),
				zap.Int("created", applyErr.Created),
				zap.Error(applyErr.Err),
			)
			return 0, 0, appErrors.WithDetails(
				appErrors.Wrap(err, appErrors.ErrApplyFailed.Code, appErrors.ErrApplyFailed.Status, appErrors.ErrApplyFailed.Message),
				map[string]interface{}{"deleted": applyErr.Deleted, "created": applyErr.Created},
			)
		}
		return 0, 0, err
	}
	s.metrics.RecordRun("apply", "ok")
	s.metrics.AddPlacementsApplied(created)
	s.logger.Info("autoschedule applied",
		zap.String("camp_id", campID),
		zap.Int64("deleted", deleted),
		zap.Int("created", created),
	)

	if s.notifier != nil {
		for _, notice := range notices {
			if err := s.notifier.EventScheduled(notice); err != nil {
				s.logger.Warn("failed to enqueue event scheduled notice", zap.String("event_id", notice.EventID), zap.Error(err))
			}
		}
	}
	return deleted, created, nil
}

// persist swaps the autoscheduled placements of a camp in one transaction.
func (s *AutoScheduleService) persist(ctx context.Context, campID string, problem *scheduler.Problem, schedule scheduler.Schedule) (deleted int64, created int, notices []EventScheduledNotice, err error) {
	if s.tx == nil {
		return 0, 0, nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, nil, internalError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			err = &ApplyError{Deleted: deleted, Created: created, Err: err}
			deleted, created, notices = 0, 0, nil
		}
	}()

	if deleted, err = s.slots.DeleteAutoscheduled(ctx, tx, campID); err != nil {
		return
	}
	for _, assignment := range schedule {
		slot := problem.Slots[assignment.Slot]
		item := problem.Items[assignment.Item]
		sessionID := slot.SessionID
		record := models.EventSlot{
			CampID:          campID,
			EventSessionID:  &sessionID,
			EventLocationID: slot.LocationID,
			EventID:         item.EventID,
			StartsAt:        slot.StartsAt,
			EndsAt:          slot.EndsAt(),
			Autoscheduled:   true,
		}
		if err = s.slots.Create(ctx, tx, &record); err != nil {
			return
		}
		created++
		notices = append(notices, EventScheduledNotice{
			CampID:       campID,
			PlacementID:  record.ID,
			EventID:      item.EventID,
			EventTitle:   item.Title,
			LocationName: slot.LocationName,
			StartsAt:     record.StartsAt,
			EndsAt:       record.EndsAt,
		})
	}
	if err = tx.Commit(); err != nil {
		return
	}
	return deleted, created, notices, nil
}

// Debug describes the model the solver sees for a camp.
func (s *AutoScheduleService) Debug(ctx context.Context, campID string, constraints *dto.ConstraintsRequest) (*dto.DebugResponse, error) {
	if err := s.ensureEnabled(); err != nil {
		return nil, err
	}
	if campID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "camp id is required")
	}
	run, err := s.prepare(ctx, campID, constraints.Options())
	if err != nil {
		return nil, err
	}
	return debugResponse(campID, run.problem), nil
}

// Export renders a stored proposal as a printable program.
func (s *AutoScheduleService) Export(ctx context.Context, proposalID, format string) ([]byte, string, string, error) {
	parsed, err := export.ParseFormat(format)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	proposal, err := s.store.Get(ctx, proposalID)
	if err != nil {
		return nil, "", "", err
	}
	payload, err := s.exporter.Render(programDataset(*proposal), parsed)
	if err != nil {
		return nil, "", "", internalError(err, "failed to render program")
	}
	filename := fmt.Sprintf("program-%s.%s", proposal.ID, parsed)
	return payload, filename, parsed.ContentType(), nil
}
