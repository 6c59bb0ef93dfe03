package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

// ChannelResult is the immutable outcome of one remote fetch.
//
// A result is either a success (Err nil, possibly with zero records), a
// soft failure (Err set, partial pages kept in Attestations), or abandoned
// because the discovery was cancelled before the fetch could finish.
type ChannelResult struct {
	Channel domain.Channel
	// Target names what was fetched: a witness, registry or indexer URL
	Target string
	// Action describes the fetch for warnings ("fetch attestations from")
	Action string

	Attestations []domain.AttestationRecord
	// Witnesses holds registry members or social candidates for source fetches
	Witnesses []domain.Identifier
	// Rejected counts records dropped by validation
	Rejected int

	Err       error
	Abandoned bool
	Truncated bool
}

func (r ChannelResult) describeFailure() string {
	return fmt.Sprintf("%s: %s %s failed: %v", r.Channel, r.Action, r.Target, r.Err)
}

// task is one remote fetch. run fills in res and returns the fetch error.
type task struct {
	channel domain.Channel
	target  string
	action  string
	run     func(ctx context.Context, res *ChannelResult) error
}

// runTasks runs tasks with bounded concurrency and returns their results in
// task order.
func (d *Discoverer) runTasks(ctx context.Context, tasks []task) []ChannelResult {
	results := make([]ChannelResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	runner := d.runner(d.maxConcurrency)
	for i, t := range tasks {
		runner.Go(func() {
			results[i] = d.runTask(ctx, t)
		})
	}
	runner.Wait()
	return results
}

// runTask runs one task under its own timeout. Timeouts are reported like
// any other failure; cancellation of the parent marks the task abandoned.
func (d *Discoverer) runTask(parent context.Context, t task) ChannelResult {
	res := ChannelResult{Channel: t.channel, Target: t.target, Action: t.action}
	if parent.Err() != nil {
		res.Abandoned = true
		return res
	}

	ctx, cancel := context.WithTimeout(parent, d.fetchTimeout)
	defer cancel()

	err := t.run(ctx, &res)
	switch {
	case err == nil:
	case parent.Err() != nil:
		res.Abandoned = true
		res.Attestations = nil
	case errors.Is(err, ports.ErrTruncated):
		res.Truncated = true
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.Err = fmt.Errorf("timed out after %s: %w", d.fetchTimeout, err)
	default:
		res.Err = err
	}
	return res
}

// sourceTasks returns the fetches that do not depend on other fetches: the
// social graph, registry memberships and indexer queries.
func (d *Discoverer) sourceTasks(subject domain.Identifier, opts ports.DiscoverOptions) []task {
	var tasks []task

	if opts.DiscoverWitnessesSocially {
		tasks = append(tasks, task{
			channel: domain.ChannelSocial,
			target:  subject.String(),
			action:  "derive candidate witnesses of",
			run: func(ctx context.Context, res *ChannelResult) error {
				if d.social == nil {
					return fmt.Errorf("%w: social graph", ports.ErrNotConfigured)
				}
				ids, err := d.social.CandidateWitnesses(ctx, subject)
				res.Witnesses = ids
				return err
			},
		})
	}

	for _, registry := range appendUnique(nil, opts.Registries...) {
		tasks = append(tasks, task{
			channel: domain.ChannelRegistry,
			target:  registry.String(),
			action:  "fetch members of registry",
			run: func(ctx context.Context, res *ChannelResult) error {
				if d.registries == nil {
					return fmt.Errorf("%w: registry reader", ports.ErrNotConfigured)
				}
				ids, err := d.registries.ListWitnesses(ctx, registry)
				res.Witnesses = ids
				return err
			},
		})
	}

	seen := make(map[string]struct{}, len(opts.Indexers))
	for _, idx := range opts.Indexers {
		base := strings.TrimRight(idx.BaseURL, "/")
		if _, dup := seen[base]; dup {
			continue
		}
		seen[base] = struct{}{}
		tasks = append(tasks, task{
			channel: domain.ChannelIndexer,
			target:  base,
			action:  "query indexer",
			run: func(ctx context.Context, res *ChannelResult) error {
				if d.indexer == nil {
					return fmt.Errorf("%w: indexer client", ports.ErrNotConfigured)
				}
				return d.queryIndexer(ctx, subject, base, res)
			},
		})
	}

	return tasks
}

// witnessTask fetches the attestations about subject held by witness.
func (d *Discoverer) witnessTask(ch domain.Channel, subject, witness domain.Identifier, log *slog.Logger) task {
	return task{
		channel: ch,
		target:  witness.String(),
		action:  "fetch attestations from",
		run: func(ctx context.Context, res *ChannelResult) error {
			return d.fetchAttestations(ctx, subject, witness, res, log)
		},
	}
}

func (d *Discoverer) fetchAttestations(ctx context.Context, subject, witness domain.Identifier, res *ChannelResult, log *slog.Logger) error {
	cursor := ""
	for page := 0; page < d.maxPages; page++ {
		p, err := d.repos.ListRecords(ctx, witness, domain.KindAttestation.String(), cursor, d.pageSize)
		if err != nil {
			return err
		}
		for _, env := range p.Records {
			rec, _, err := d.validator.DecodeAttestation(env)
			if err != nil {
				res.Rejected++
				log.Debug("dropped malformed record",
					slog.String("ref", env.Ref.String()),
					slog.String("error", err.Error()))
				continue
			}
			if rec.SubjectID == subject {
				res.Attestations = append(res.Attestations, rec)
			}
		}
		if p.Cursor == "" {
			return nil
		}
		cursor = p.Cursor
	}
	res.Truncated = true
	return nil
}

func (d *Discoverer) queryIndexer(ctx context.Context, subject domain.Identifier, base string, res *ChannelResult) error {
	query := ports.IndexerQuery{Subject: subject, Limit: d.pageSize}
	for page := 0; page < d.maxPages; page++ {
		p, err := d.indexer.QueryAttestations(ctx, base, query)
		if err != nil {
			return err
		}
		for _, ia := range p.Attestations {
			rec, _, err := d.validator.DecodeIndexed(ia)
			if err != nil {
				res.Rejected++
				d.logger.Debug("dropped malformed indexer record",
					slog.String("indexer", base),
					slog.String("uri", ia.URI),
					slog.String("error", err.Error()))
				continue
			}
			if rec.SubjectID == subject {
				res.Attestations = append(res.Attestations, rec)
			}
		}
		if p.Cursor == "" {
			return nil
		}
		query.Cursor = p.Cursor
	}
	res.Truncated = true
	return nil
}
