package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/worksreg/internal/domain/code"
	"github.com/rpggio/worksreg/internal/domain/kind"
	"github.com/rpggio/worksreg/internal/domain/notification"
	"github.com/rpggio/worksreg/internal/domain/user"
	"github.com/rpggio/worksreg/internal/repository"
)

// EventProjectCreated is broadcast when a record is created without review.
const EventProjectCreated = "project.created"

// Deps wires the collaborators of the approval workflow.
type Deps struct {
	Records  Repository
	Rejected RejectedRepository
	Serials  SerialAllocator
	Codes    CodeGenerator
	Notifier Notifier
	Users    IdentityResolver
	Units    UnitDirectory
	Logger   *slog.Logger
}

// Service is the approval workflow governing project records.
type Service struct {
	records  Repository
	rejected RejectedRepository
	serials  SerialAllocator
	codes    CodeGenerator
	notifier Notifier
	users    IdentityResolver
	units    UnitDirectory
	guard    *DuplicateGuard
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new project service.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		records:  deps.Records,
		rejected: deps.Rejected,
		serials:  deps.Serials,
		codes:    deps.Codes,
		notifier: deps.Notifier,
		users:    deps.Users,
		units:    deps.Units,
		guard:    NewDuplicateGuard(deps.Records),
		logger:   logger,
		now:      time.Now,
	}
}

// CreateRequest defines project creation inputs.
type CreateRequest struct {
	Kind           kind.Kind
	Name           string
	AllocationUnit string
	AllocationWave string
	FinancialYear  int
	Location       string
	Scale          string
	Remarks        string
	EstimatedCost  float64
	StartDate      *time.Time
	CompletionDate *time.Time
	IncidentDate   *time.Time
	Supervisor     string
	Estimator      string
	// Approver designates the reviewer of a non-administrator submission.
	// Empty leaves the request open to every approver.
	Approver string
	// EnteredBy overrides the display name recorded as the data-entry user.
	EnteredBy string
}

func (req CreateRequest) record() *Record {
	return &Record{
		Kind:           req.Kind,
		Name:           strings.TrimSpace(req.Name),
		AllocationUnit: strings.TrimSpace(req.AllocationUnit),
		AllocationWave: strings.TrimSpace(req.AllocationWave),
		FinancialYear:  req.FinancialYear,
		Location:       strings.TrimSpace(req.Location),
		Scale:          strings.TrimSpace(req.Scale),
		Remarks:        strings.TrimSpace(req.Remarks),
		EstimatedCost:  req.EstimatedCost,
		StartDate:      utcDate(req.StartDate),
		CompletionDate: utcDate(req.CompletionDate),
		IncidentDate:   utcDate(req.IncidentDate),
		Supervisor:     strings.TrimSpace(req.Supervisor),
		Estimator:      strings.TrimSpace(req.Estimator),
	}
}

// Create submits a new record. Administrators create approved records
// directly; everyone else creates a pending record awaiting review.
func (s *Service) Create(ctx context.Context, actor *user.User, req CreateRequest) (*Result, error) {
	if actor == nil || !actor.Can(user.CapAdd) {
		return nil, ErrForbidden
	}
	if err := ValidateCreateInput(req); err != nil {
		return nil, err
	}

	rec := req.record()
	if err := s.canonicalize(ctx, rec); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec.ID = uuid.NewString()
	rec.Review = NoReview{}
	rec.CreatedBy = actor.ID
	rec.EnteredBy = firstNonEmpty(strings.TrimSpace(req.EnteredBy), actor.Name())
	rec.CreatedAt = now
	rec.ModifiedAt = now
	rec.Version = 1

	if actor.IsAdmin() {
		rec.Status = StatusApproved
		rec.ApprovedBy = actor.ID
	} else {
		rec.Status = StatusPending
		if strings.TrimSpace(req.Approver) != "" {
			approver, err := s.resolveApprover(ctx, req.Approver)
			if err != nil {
				return nil, err
			}
			rec.ApprovedBy = approver.ID
		}
	}

	if err := s.guard.CheckRecord(ctx, rec); err != nil {
		return nil, err
	}

	rec.appendHistory(actionCreated, actorOf(actor), now, "")
	if err := s.records.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateError(rec.Name, rec.FinancialYear)
		}
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.assignSequence(ctx, rec)

	if actor.IsAdmin() {
		if s.notifier != nil {
			s.notifier.Announce(ctx, EventProjectCreated, rec)
		}
	} else {
		s.notify(ctx, notification.TypeNew, rec, actor, rec.ApprovedBy, "")
	}

	s.logger.Info("project created", "project_id", rec.ID, "kind", rec.Kind, "status", rec.Status)
	return &Result{Record: rec, Outcome: OutcomeCreated}, nil
}

// Get fetches a project by ID.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.load(ctx, id)
}

// List returns projects ordered by serial number.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	records, err := s.records.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return records, nil
}

// GetRejected fetches a rejected snapshot by ID.
func (s *Service) GetRejected(ctx context.Context, id string) (*RejectedRecord, error) {
	rej, err := s.rejected.GetRejected(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRejectedNotFound
		}
		return nil, fmt.Errorf("getting rejected project: %w", err)
	}
	return rej, nil
}

// ListRejected returns rejected snapshots, most recent first.
func (s *Service) ListRejected(ctx context.Context, opts ListRejectedOptions) ([]RejectedRecord, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	list, err := s.rejected.ListRejected(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing rejected projects: %w", err)
	}
	return list, nil
}

// PreviewCode returns the code the next record of this shape would receive.
func (s *Service) PreviewCode(ctx context.Context, req code.Request) (string, error) {
	return s.codes.Preview(ctx, req)
}

// Backfill allocates serials and codes for records whose allocation failed
// and returns how many records it repaired.
func (s *Service) Backfill(ctx context.Context, limit int) (int, error) {
	records, err := s.records.ListUnassigned(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("listing unassigned projects: %w", err)
	}
	repaired := 0
	for i := range records {
		rec := &records[i]
		if s.assignSequence(ctx, rec) {
			repaired++
		}
	}
	return repaired, nil
}

func (s *Service) load(ctx context.Context, id string) (*Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalidFields("id")
	}
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return rec, nil
}

// save persists rec against its current version and advances the version.
func (s *Service) save(ctx context.Context, rec *Record) error {
	expected := rec.Version
	rec.Version = expected + 1
	if err := s.records.Update(ctx, rec, expected); err != nil {
		rec.Version = expected
		switch {
		case errors.Is(err, repository.ErrConflict):
			return ErrConflict
		case errors.Is(err, repository.ErrNotFound):
			return ErrProjectNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return duplicateError(rec.Name, rec.FinancialYear)
		}
		return fmt.Errorf("updating project: %w", err)
	}
	return nil
}

func (s *Service) remove(ctx context.Context, rec *Record) error {
	if err := s.records.Delete(ctx, rec.ID, rec.Version); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return ErrConflict
		case errors.Is(err, repository.ErrNotFound):
			return ErrProjectNotFound
		}
		return fmt.Errorf("deleting project: %w", err)
	}
	return nil
}

func checkVersion(rec *Record, expected *int64) error {
	if expected != nil && *expected != rec.Version {
		return ErrConflict
	}
	return nil
}

// assignSequence allocates whatever serial and code the record lacks. Failures
// are logged and left for the background sweep; it reports whether anything
// was written.
func (s *Service) assignSequence(ctx context.Context, rec *Record) bool {
	var serial *int64
	if rec.SerialNumber == nil && s.serials != nil {
		n, err := s.serials.Next(ctx, rec.Kind)
		if err != nil {
			s.logger.Error("serial allocation failed", "project_id", rec.ID, "kind", rec.Kind, "error", err)
		} else {
			serial = &n
		}
	}

	var projectCode string
	if rec.ProjectCode == "" && s.codes != nil {
		c, err := s.codes.Generate(ctx, code.Request{
			Kind:          rec.Kind,
			FinancialYear: rec.FinancialYear,
			Unit:          rec.AllocationUnit,
			Wave:          rec.AllocationWave,
		})
		if err != nil {
			s.logger.Error("code allocation failed", "project_id", rec.ID, "kind", rec.Kind, "error", err)
		} else {
			projectCode = c
		}
	}

	if serial == nil && projectCode == "" {
		return false
	}
	storedSerial, storedCode, err := s.records.AssignSequence(ctx, rec.ID, serial, projectCode)
	if err != nil {
		s.logger.Error("storing allocation failed", "project_id", rec.ID, "kind", rec.Kind, "error", err)
		return false
	}
	rec.SerialNumber = storedSerial
	rec.ProjectCode = storedCode
	return true
}

// renumber restores serial density after a removal. A failure does not undo
// the removal; the sweep retries it.
func (s *Service) renumber(ctx context.Context, rec *Record) {
	if s.serials == nil {
		return
	}
	if _, err := s.serials.Renumber(ctx, rec.Kind); err != nil {
		s.logger.Error("renumber after removal failed", "project_id", rec.ID, "kind", rec.Kind, "error", err)
	}
}

func (s *Service) notify(ctx context.Context, t notification.Type, rec *Record, actor *user.User, recipient, note string) {
	s.dispatch(ctx, s.event(t, rec, actor, recipient, note))
}

// notifyInfo records a notification that needs no review action.
func (s *Service) notifyInfo(ctx context.Context, t notification.Type, rec *Record, actor *user.User, recipient, note string) {
	ev := s.event(t, rec, actor, recipient, note)
	ev.Informational = true
	s.dispatch(ctx, ev)
}

func (s *Service) event(t notification.Type, rec *Record, actor *user.User, recipient, note string) notification.Event {
	return notification.Event{
		Type:        t,
		ProjectID:   rec.ID,
		ProjectKind: rec.Kind,
		ProjectName: rec.Name,
		ActorName:   actor.Name(),
		Recipient:   recipient,
		Note:        note,
	}
}

func (s *Service) dispatch(ctx context.Context, ev notification.Event) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Dispatch(ctx, ev); err != nil {
		s.logger.Error("dispatching notification failed", "project_id", ev.ProjectID, "type", ev.Type, "error", err)
	}
}

func (s *Service) resolveNotifications(ctx context.Context, projectID string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.ResolvePending(ctx, projectID); err != nil {
		s.logger.Error("resolving notifications failed", "project_id", projectID, "error", err)
	}
}

// resolveApprover resolves a designated approver, who must hold approval rights.
func (s *Service) resolveApprover(ctx context.Context, ident string) (*user.User, error) {
	u, err := s.users.Resolve(ctx, strings.TrimSpace(ident))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, invalidFields("approved_by")
		}
		return nil, fmt.Errorf("resolving approver: %w", err)
	}
	if !u.Can(user.CapApprove) {
		return nil, invalidFields("approved_by")
	}
	return u, nil
}

// resolveUserRef maps a supervisor or estimator to a user id, keeping the
// raw value for people unknown to the directory.
func (s *Service) resolveUserRef(ctx context.Context, ident string) (string, error) {
	ident = strings.TrimSpace(ident)
	if ident == "" || s.users == nil {
		return ident, nil
	}
	u, err := s.users.Resolve(ctx, ident)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return ident, nil
		}
		return "", fmt.Errorf("resolving %q: %w", ident, err)
	}
	return u.ID, nil
}

func (s *Service) resolveUnit(ctx context.Context, ident string) (string, error) {
	ident = strings.TrimSpace(ident)
	if ident == "" || s.units == nil {
		return ident, nil
	}
	unit, err := s.units.FindUnit(ctx, ident)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ident, nil
		}
		return "", fmt.Errorf("resolving allocation unit: %w", err)
	}
	return unit.ID, nil
}

func (s *Service) resolveWave(ctx context.Context, ident string) (string, error) {
	ident = strings.TrimSpace(ident)
	if ident == "" || s.units == nil {
		return ident, nil
	}
	wave, err := s.units.FindWave(ctx, ident)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ident, nil
		}
		return "", fmt.Errorf("resolving allocation wave: %w", err)
	}
	return wave.ID, nil
}

// canonicalize replaces reference fields with canonical ids.
func (s *Service) canonicalize(ctx context.Context, rec *Record) error {
	var err error
	if rec.AllocationUnit, err = s.resolveUnit(ctx, rec.AllocationUnit); err != nil {
		return err
	}
	if rec.AllocationWave, err = s.resolveWave(ctx, rec.AllocationWave); err != nil {
		return err
	}
	if rec.Supervisor, err = s.resolveUserRef(ctx, rec.Supervisor); err != nil {
		return err
	}
	if rec.Estimator, err = s.resolveUserRef(ctx, rec.Estimator); err != nil {
		return err
	}
	return nil
}

// canonicalizePatch resolves the reference fields a patch sets so that the
// diff compares identities.
func (s *Service) canonicalizePatch(ctx context.Context, p *Patch) error {
	resolve := func(field **string, fn func(context.Context, string) (string, error)) error {
		if *field == nil {
			return nil
		}
		v, err := fn(ctx, **field)
		if err != nil {
			return err
		}
		*field = &v
		return nil
	}
	if err := resolve(&p.AllocationUnit, s.resolveUnit); err != nil {
		return err
	}
	if err := resolve(&p.AllocationWave, s.resolveWave); err != nil {
		return err
	}
	if err := resolve(&p.Supervisor, s.resolveUserRef); err != nil {
		return err
	}
	return resolve(&p.Estimator, s.resolveUserRef)
}

func actorOf(u *user.User) Actor {
	return Actor{ID: u.ID, Name: u.Name()}
}

func utcDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := t.UTC()
	return &d
}
