package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

// DiscoverOperator reads the operator records in subject's repository and
// resolves the current one. Like Discover it is total: fetch failures and
// unresolved chains are reported as warnings.
func (d *Discoverer) DiscoverOperator(ctx context.Context, subject domain.Identifier) ports.OperatorResult {
	log := d.logger.With(
		slog.String("discovery_id", uuid.NewString()),
		slog.String("subject", subject.String()))

	result := ports.OperatorResult{
		Subject:  subject,
		Records:  []domain.OperatorRecord{},
		Warnings: []string{},
	}

	if _, err := d.validator.parser.ParseIdentifier(subject.String()); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("invalid subject %q: %v", subject, err))
		return result
	}

	var records []domain.OperatorRecord
	t := task{
		target: subject.String(),
		action: "fetch operator records from",
		run: func(ctx context.Context, res *ChannelResult) error {
			var err error
			records, err = d.fetchOperators(ctx, subject, res, log)
			return err
		},
	}
	res := d.runTask(ctx, t)
	switch {
	case res.Abandoned:
		result.Warnings = append(result.Warnings, fmt.Sprintf("operator discovery cancelled: %v", ctx.Err()))
		return result
	case res.Err != nil:
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s %s failed: %v", res.Action, res.Target, res.Err))
	case res.Truncated:
		result.Warnings = append(result.Warnings, fmt.Sprintf("operator records of %s may be truncated after %d pages", subject, d.maxPages))
	}
	if records != nil {
		result.Records = records
	}

	if resolution, ok := domain.ResolveCurrentOperator(subject, records); ok {
		result.Resolution = &resolution
		result.Warnings = append(result.Warnings, resolution.Warnings...)
		log.Info("operator resolved",
			slog.String("operator", resolution.Current.OperatorID.String()),
			slog.String("ref", resolution.Current.Ref.String()),
			slog.Int("records", len(records)),
			slog.Int("conflicting", len(resolution.Conflicting)))
	}

	return result
}

func (d *Discoverer) fetchOperators(ctx context.Context, subject domain.Identifier, res *ChannelResult, log *slog.Logger) ([]domain.OperatorRecord, error) {
	var out []domain.OperatorRecord
	cursor := ""
	for page := 0; page < d.maxPages; page++ {
		p, err := d.repos.ListRecords(ctx, subject, domain.KindOperator.String(), cursor, d.pageSize)
		if err != nil {
			return out, err
		}
		for _, env := range p.Records {
			rec, _, err := d.validator.DecodeOperator(env)
			if err != nil {
				res.Rejected++
				log.Debug("dropped malformed operator record",
					slog.String("ref", env.Ref.String()),
					slog.String("error", err.Error()))
				continue
			}
			out = append(out, rec)
		}
		if p.Cursor == "" {
			return out, nil
		}
		cursor = p.Cursor
	}
	res.Truncated = true
	return out, nil
}

var _ ports.DiscoveryService = (*Discoverer)(nil)
