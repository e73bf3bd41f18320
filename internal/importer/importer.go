// Package importer registers a parameter table as activity parameters.
//
// Each group of the table is submitted to the store in one call, after every
// record has been given the code of the activity owning the parametrized
// exchange that uses it. A final pass then links exchanges to parameter
// groups, according to the configured LinkMode.
package importer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lcaparam/internal/store"
	"lcaparam/internal/table"
)

type LinkMode string

const (
	// LinkFirst scans the database of the last row imported and links the
	// group of the first parametrized exchange found, then stops.
	LinkFirst LinkMode = "first"
	// LinkEveryActivity links, for every activity of the last row's
	// database, the group of that activity's first parametrized exchange.
	LinkEveryActivity LinkMode = "every-activity"
	// LinkPerGroup links, for each group and each database its rows name,
	// every activity holding a parametrized exchange of that group.
	LinkPerGroup LinkMode = "per-group"
)

func ParseLinkMode(s string) (LinkMode, error) {
	switch mode := LinkMode(s); mode {
	case LinkFirst, LinkEveryActivity, LinkPerGroup:
		return mode, nil
	case "":
		return LinkFirst, nil
	default:
		return "", fmt.Errorf("unknown link mode: %s", s)
	}
}

type Options struct {
	LinkMode  LinkMode
	Overwrite bool
	Logger    *zap.Logger
	Metrics   *Metrics
}

type Link struct {
	Group     string
	Activity  store.ActivityKey
	Exchanges int
}

type Result struct {
	Groups            int
	ParametersCreated int
	CodesResolved     int
	CodesMissing      int
	Links             []Link
}

type runner struct {
	db         Store
	opts       Options
	logger     *zap.Logger
	result     *Result
	activities map[string][]store.Activity
}

// Run imports tbl into db. Groups already submitted when an error occurs stay
// committed; the partial Result is returned with the error.
func Run(ctx context.Context, tbl *table.Table, db Store, opts Options) (*Result, error) {
	mode, err := ParseLinkMode(string(opts.LinkMode))
	if err != nil {
		return nil, err
	}
	opts.LinkMode = mode

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &runner{
		db:         db,
		opts:       opts,
		logger:     logger,
		result:     &Result{},
		activities: make(map[string][]store.Activity),
	}

	start := time.Now()
	defer opts.Metrics.finished(start)

	groups := tbl.Groups()
	groupDatabases := make(map[string][]string, len(groups))
	var lastDatabase string

	for _, group := range groups {
		records, databases, err := r.buildGroup(ctx, tbl, group)
		if err != nil {
			opts.Metrics.groupFailed()
			return r.result, err
		}
		groupDatabases[group] = databases
		lastDatabase = records[len(records)-1].Database

		if err := db.NewActivityParameters(ctx, records, group, opts.Overwrite); err != nil {
			opts.Metrics.groupFailed()
			return r.result, fmt.Errorf("creating parameters for group %s: %w", group, err)
		}
		r.result.Groups++
		r.result.ParametersCreated += len(records)
		opts.Metrics.created(group, len(records))
		logger.Info("created activity parameters",
			zap.String("group", group),
			zap.Int("parameters", len(records)),
		)
	}

	if len(groups) == 0 {
		logger.Info("no parameter groups in table")
		return r.result, nil
	}

	switch opts.LinkMode {
	case LinkFirst:
		err = r.linkFirst(ctx, lastDatabase)
	case LinkEveryActivity:
		err = r.linkEveryActivity(ctx, lastDatabase)
	case LinkPerGroup:
		err = r.linkPerGroup(ctx, groups, groupDatabases)
	}
	if err != nil {
		return r.result, err
	}

	return r.result, nil
}

// buildGroup builds the group's records in source order and returns them
// with the distinct databases they name.
func (r *runner) buildGroup(ctx context.Context, tbl *table.Table, group string) ([]store.ParameterRecord, []string, error) {
	rows := tbl.RowsForGroup(group)
	records := make([]store.ParameterRecord, 0, len(rows))
	var databases []string
	seen := make(map[string]struct{})

	for _, row := range rows {
		record, err := BuildRecord(row, group)
		if err != nil {
			return nil, nil, fmt.Errorf("group %s: %w", group, err)
		}

		activities, err := r.listActivities(ctx, record.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("group %s: row %d: %w", group, row.Line, err)
		}
		if code, ok := ResolveCode(activities, record.Name, group); ok {
			record.Code = &code
			r.result.CodesResolved++
		} else {
			r.result.CodesMissing++
			r.logger.Warn("no parametrized exchange uses parameter; submitting without code",
				zap.String("group", group),
				zap.String("database", record.Database),
				zap.String("name", record.Name),
				zap.Int("row", row.Line),
			)
		}
		r.opts.Metrics.code(record.Code != nil)

		if _, ok := seen[record.Database]; !ok {
			seen[record.Database] = struct{}{}
			databases = append(databases, record.Database)
		}
		records = append(records, record)
		r.logger.Debug("built parameter record",
			zap.String("group", group),
			zap.String("name", record.Name),
			zap.Float64("amount", record.Amount),
			zap.Stringp("code", record.Code),
		)
	}

	return records, databases, nil
}

// listActivities caches each database's activities for the run; the import
// never changes exchange formulas or groups.
func (r *runner) listActivities(ctx context.Context, database string) ([]store.Activity, error) {
	if activities, ok := r.activities[database]; ok {
		return activities, nil
	}
	activities, err := r.db.ListActivities(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("listing activities of %s: %w", database, err)
	}
	r.activities[database] = activities
	return activities, nil
}

func (r *runner) linkFirst(ctx context.Context, database string) error {
	activities, err := r.listActivities(ctx, database)
	if err != nil {
		return err
	}
	for _, activity := range activities {
		if exchange, ok := firstParametrized(activity); ok {
			return r.link(ctx, exchange.Group, activity)
		}
	}
	r.logger.Info("no parametrized exchange to link", zap.String("database", database))
	return nil
}

func (r *runner) linkEveryActivity(ctx context.Context, database string) error {
	activities, err := r.listActivities(ctx, database)
	if err != nil {
		return err
	}
	for _, activity := range activities {
		exchange, ok := firstParametrized(activity)
		if !ok {
			continue
		}
		if err := r.link(ctx, exchange.Group, activity); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) linkPerGroup(ctx context.Context, groups []string, groupDatabases map[string][]string) error {
	for _, group := range groups {
		for _, database := range groupDatabases[group] {
			activities, err := r.listActivities(ctx, database)
			if err != nil {
				return err
			}
			for _, activity := range activities {
				if !hasParametrizedInGroup(activity, group) {
					continue
				}
				if err := r.link(ctx, group, activity); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (r *runner) link(ctx context.Context, group string, activity store.Activity) error {
	n, err := r.db.AddExchangesToGroup(ctx, group, activity.Key())
	if err != nil {
		return fmt.Errorf("linking exchanges of %s to group %s: %w", activity.Key(), group, err)
	}
	r.result.Links = append(r.result.Links, Link{Group: group, Activity: activity.Key(), Exchanges: n})
	r.opts.Metrics.linked(group, n)
	r.logger.Info("linked exchanges to group",
		zap.String("group", group),
		zap.String("activity", activity.Key().String()),
		zap.Int("exchanges", n),
	)
	return nil
}
