package code

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/rpggio/worksreg/internal/domain/kind"
	"github.com/rpggio/worksreg/internal/repository"
	"golang.org/x/sync/errgroup"
)

const standardizeConcurrency = 4

// Service generates and standardizes formatted project codes.
type Service struct {
	repo      Repository
	directory Directory
	logger    *slog.Logger
}

// NewService creates a new code service.
func NewService(repo Repository, directory Directory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, directory: directory, logger: logger}
}

// Format renders a project code. The sequence is zero-padded to three digits
// and widens past 999.
func Format(k kind.Kind, financialYear int, unitCode, waveCode string, seq int64) string {
	year := fmt.Sprintf("%02d", financialYear%100)
	if k.UsesWave() {
		return fmt.Sprintf("%s%s%s%s%03d", k.Prefix(), waveCode, year, unitCode, seq)
	}
	return fmt.Sprintf("%s%s%s%03d", k.Prefix(), year, unitCode, seq)
}

// Generate allocates the next code for the request's key.
func (s *Service) Generate(ctx context.Context, req Request) (string, error) {
	key, err := s.resolveKey(ctx, req)
	if err != nil {
		return "", err
	}
	seq, err := s.repo.IncrementCode(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%w: incrementing %s/%d/%s counter: %v", ErrAllocation, key.Kind, key.FinancialYear, key.UnitCode, err)
	}
	return Format(key.Kind, key.FinancialYear, key.UnitCode, key.WaveCode, seq), nil
}

// Preview returns the code Generate would produce next without touching the counter.
func (s *Service) Preview(ctx context.Context, req Request) (string, error) {
	key, err := s.resolveKey(ctx, req)
	if err != nil {
		return "", err
	}
	current, err := s.repo.CurrentCode(ctx, key)
	if err != nil {
		return "", fmt.Errorf("reading code counter: %w", err)
	}
	return Format(key.Kind, key.FinancialYear, key.UnitCode, key.WaveCode, current+1), nil
}

func (s *Service) resolveKey(ctx context.Context, req Request) (Key, error) {
	if !req.Kind.Valid() {
		return Key{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, req.Kind)
	}
	if req.FinancialYear <= 0 {
		return Key{}, fmt.Errorf("%w: financial year must be positive", ErrInvalidInput)
	}
	key := Key{
		FinancialYear: req.FinancialYear,
		Kind:          req.Kind,
		UnitCode:      s.unitCode(ctx, req.Unit),
	}
	if req.Kind.UsesWave() {
		key.WaveCode = s.waveCode(ctx, req.Wave)
	}
	return key, nil
}

func (s *Service) unitCode(ctx context.Context, ident string) string {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		s.logger.Warn("allocation unit missing, using fallback code", "fallback", FallbackUnitCode)
		return FallbackUnitCode
	}
	unit, err := s.directory.FindUnit(ctx, ident)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("resolving allocation unit", "unit", ident, "error", err)
		} else {
			s.logger.Warn("allocation unit not found, using fallback code", "unit", ident, "fallback", FallbackUnitCode)
		}
		return FallbackUnitCode
	}
	if c, ok := normalizeShortCode(unit.ShortCode, 3); ok {
		return c
	}
	s.logger.Warn("allocation unit short code malformed, using fallback code", "unit", ident, "short_code", unit.ShortCode)
	return FallbackUnitCode
}

func (s *Service) waveCode(ctx context.Context, ident string) string {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return FallbackWaveCode
	}
	wave, err := s.directory.FindWave(ctx, ident)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("resolving allocation wave", "wave", ident, "error", err)
		}
		return FallbackWaveCode
	}
	if c, ok := normalizeShortCode(wave.ShortCode, 2); ok {
		return c
	}
	s.logger.Warn("allocation wave short code malformed, using fallback code", "wave", ident, "short_code", wave.ShortCode)
	return FallbackWaveCode
}

func normalizeShortCode(raw string, width int) (string, bool) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if len(raw) != width {
		return "", false
	}
	for _, r := range raw {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return "", false
		}
	}
	return raw, true
}

// Standardize rewrites every code in the scope from sequence 1 in creation
// order and resynchronizes the affected counters. The rewrite is all-or-nothing.
func (s *Service) Standardize(ctx context.Context, scope Scope) (*StandardizeResult, error) {
	scope.Unit = strings.TrimSpace(scope.Unit)
	scope.Wave = strings.TrimSpace(scope.Wave)
	if scope.Unit == "" {
		return nil, fmt.Errorf("%w: unit is required", ErrInvalidInput)
	}

	unitCode := s.unitCode(ctx, scope.Unit)
	scope.Unit = s.canonicalUnit(ctx, scope.Unit)
	if scope.Wave != "" {
		if w, err := s.directory.FindWave(ctx, scope.Wave); err == nil {
			scope.Wave = w.ID
		}
	}
	waves, err := s.waveCodes(ctx)
	if err != nil {
		return nil, err
	}

	planner := func(entries []ScopeEntry) (Plan, error) {
		return buildPlan(entries, unitCode, waves), nil
	}
	plan, err := s.repo.StandardizeScope(ctx, scope, planner)
	if err != nil {
		s.logger.Error("standardization failed", "unit", scope.Unit, "wave", scope.Wave, "error", err)
		return nil, fmt.Errorf("standardizing unit %s: %w", scope.Unit, err)
	}

	result := &StandardizeResult{Scope: scope, Total: len(plan.Assignments), Counters: plan.Counters}
	for _, a := range plan.Assignments {
		if a.OldCode != a.Code {
			result.Changed++
		}
	}
	s.logger.Info("standardized codes", "unit", scope.Unit, "wave", scope.Wave, "total", result.Total, "changed", result.Changed)
	return result, nil
}

// canonicalUnit maps a unit name to the id records are stored under. Unknown
// units are kept verbatim.
func (s *Service) canonicalUnit(ctx context.Context, ident string) string {
	unit, err := s.directory.FindUnit(ctx, ident)
	if err != nil {
		return ident
	}
	return unit.ID
}

// StandardizeAll standardizes every unit referenced by a live record. Each unit
// runs in its own transaction; a failed unit is reported in its result and does
// not affect the others.
func (s *Service) StandardizeAll(ctx context.Context) ([]StandardizeResult, error) {
	units, err := s.repo.DistinctUnits(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}

	results := make([]StandardizeResult, len(units))
	var g errgroup.Group
	g.SetLimit(standardizeConcurrency)
	for i, unit := range units {
		g.Go(func() error {
			res, err := s.Standardize(ctx, Scope{Unit: unit})
			if err != nil {
				results[i] = StandardizeResult{Scope: Scope{Unit: unit}, Error: err.Error()}
				return nil
			}
			results[i] = *res
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// waveCodes maps wave ids and lower-cased names to their normalized short codes.
func (s *Service) waveCodes(ctx context.Context) (map[string]string, error) {
	waves, err := s.directory.ListWaves(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing waves: %w", err)
	}
	codes := make(map[string]string, len(waves)*2)
	for _, w := range waves {
		c, ok := normalizeShortCode(w.ShortCode, 2)
		if !ok {
			c = FallbackWaveCode
		}
		codes[w.ID] = c
		codes[strings.ToLower(w.Name)] = c
	}
	return codes, nil
}

func buildPlan(entries []ScopeEntry, unitCode string, waves map[string]string) Plan {
	var plan Plan
	counts := make(map[Key]int64)
	var order []Key
	for _, e := range entries {
		key := Key{FinancialYear: e.FinancialYear, Kind: e.Kind, UnitCode: unitCode}
		if e.Kind.UsesWave() {
			key.WaveCode = lookupWave(waves, e.Wave)
		}
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
		plan.Assignments = append(plan.Assignments, Assignment{
			ProjectID: e.ProjectID,
			OldCode:   e.Code,
			Code:      Format(key.Kind, key.FinancialYear, key.UnitCode, key.WaveCode, counts[key]),
		})
	}
	for _, key := range order {
		plan.Counters = append(plan.Counters, CounterValue{Key: key, Value: counts[key]})
	}
	return plan
}

func lookupWave(waves map[string]string, ident string) string {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return FallbackWaveCode
	}
	if c, ok := waves[ident]; ok {
		return c
	}
	if c, ok := waves[strings.ToLower(ident)]; ok {
		return c
	}
	return FallbackWaveCode
}
