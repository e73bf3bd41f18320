package validate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"lcaparam/internal/importer"
	"lcaparam/internal/store"
	"lcaparam/internal/table"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeMissingRequired   = "missing_required_field"
	codeMissingGroup      = "missing_group"
	codeInvalidNumber     = "invalid_number"
	codeDuplicateName     = "duplicate_name"
	codeMultipleDatabases = "multiple_databases"
	codeUnknownDatabase   = "unknown_database"
	codeExistingParameter = "existing_parameter"
	codeUnresolvedCode    = "unresolved_code"
	codeSubstringMatch    = "substring_match"
)

type Issue struct {
	Severity Severity
	Code     string
	Message  string
	Group    string
	Name     string
	Row      int
}

type Report struct {
	Issues []Issue
}

func (r *Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

type checker struct {
	ctx        context.Context
	db         Checker
	issues     []Issue
	known      map[string]bool
	activities map[string][]store.Activity
}

// Run checks tbl against db without writing anything. Rows are examined the
// way the importer would build them; failures the import would hit are
// errors, surprises it would not fail on are warnings.
func Run(ctx context.Context, tbl *table.Table, db Checker) (*Report, error) {
	if tbl == nil {
		return nil, fmt.Errorf("table is required")
	}
	if db == nil {
		return nil, fmt.Errorf("store is required")
	}

	c := &checker{
		ctx:        ctx,
		db:         db,
		known:      make(map[string]bool),
		activities: make(map[string][]store.Activity),
	}

	for _, row := range tbl.Rows {
		if _, ok := row.Get(table.ColGroup); !ok {
			name, _ := row.Get(table.ColName)
			c.add(Issue{
				Severity: SeverityWarn,
				Code:     codeMissingGroup,
				Message:  "row has no group and will be skipped",
				Name:     name,
				Row:      row.Line,
			})
		}
	}

	for _, group := range tbl.Groups() {
		if err := c.checkGroup(tbl, group); err != nil {
			return nil, err
		}
	}

	return &Report{Issues: c.issues}, nil
}

func (c *checker) add(issue Issue) {
	c.issues = append(c.issues, issue)
}

func (c *checker) checkGroup(tbl *table.Table, group string) error {
	existing, err := c.db.ListActivityParameters(c.ctx, group)
	if err != nil {
		return fmt.Errorf("list parameters of %s: %w", group, err)
	}
	stored := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		stored[p.Name] = struct{}{}
	}

	names := make(map[string]int)
	var firstDatabase string

	for _, row := range tbl.RowsForGroup(group) {
		record, err := importer.BuildRecord(row, group)
		if err != nil {
			code := codeInvalidNumber
			if errors.Is(err, importer.ErrMissingField) {
				code = codeMissingRequired
			}
			c.add(Issue{Severity: SeverityError, Code: code, Message: err.Error(), Group: group, Name: record.Name, Row: row.Line})
			continue
		}

		if first, dup := names[record.Name]; dup {
			c.add(Issue{
				Severity: SeverityError,
				Code:     codeDuplicateName,
				Message:  fmt.Sprintf("name repeated in group (first on row %d)", first),
				Group:    group,
				Name:     record.Name,
				Row:      row.Line,
			})
		} else {
			names[record.Name] = row.Line
		}

		if _, ok := stored[record.Name]; ok {
			c.add(Issue{
				Severity: SeverityError,
				Code:     codeExistingParameter,
				Message:  "parameter already exists in group",
				Group:    group,
				Name:     record.Name,
				Row:      row.Line,
			})
		}

		if firstDatabase == "" {
			firstDatabase = record.Database
		} else if record.Database != firstDatabase {
			c.add(Issue{
				Severity: SeverityError,
				Code:     codeMultipleDatabases,
				Message:  fmt.Sprintf("group mixes databases %s and %s", firstDatabase, record.Database),
				Group:    group,
				Name:     record.Name,
				Row:      row.Line,
			})
		}

		known, err := c.databaseExists(record.Database)
		if err != nil {
			return err
		}
		if !known {
			c.add(Issue{
				Severity: SeverityError,
				Code:     codeUnknownDatabase,
				Message:  fmt.Sprintf("unknown database: %s", record.Database),
				Group:    group,
				Name:     record.Name,
				Row:      row.Line,
			})
			continue
		}

		if err := c.checkCode(record, row.Line); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) checkCode(record store.ParameterRecord, line int) error {
	activities, ok := c.activities[record.Database]
	if !ok {
		var err error
		activities, err = c.db.ListActivities(c.ctx, record.Database)
		if err != nil {
			return fmt.Errorf("list activities of %s: %w", record.Database, err)
		}
		c.activities[record.Database] = activities
	}

	code, found := importer.ResolveCode(activities, record.Name, record.Group)
	if !found {
		c.add(Issue{
			Severity: SeverityWarn,
			Code:     codeUnresolvedCode,
			Message:  "no parametrized exchange of the group uses this parameter",
			Group:    record.Group,
			Name:     record.Name,
			Row:      line,
		})
		return nil
	}

	if formula, ok := matchedFormula(activities, code, record); ok && !containsIdentifier(formula, record.Name) {
		c.add(Issue{
			Severity: SeverityWarn,
			Code:     codeSubstringMatch,
			Message:  fmt.Sprintf("matched %s/%s only as part of a longer name in %q", record.Database, code, formula),
			Group:    record.Group,
			Name:     record.Name,
			Row:      line,
		})
	}
	return nil
}

func (c *checker) databaseExists(name string) (bool, error) {
	if known, ok := c.known[name]; ok {
		return known, nil
	}
	known, err := c.db.DatabaseExists(c.ctx, name)
	if err != nil {
		return false, fmt.Errorf("check database %s: %w", name, err)
	}
	c.known[name] = known
	return known, nil
}

// matchedFormula returns the formula of the exchange that made ResolveCode
// pick the activity with code.
func matchedFormula(activities []store.Activity, code string, record store.ParameterRecord) (string, bool) {
	for _, activity := range activities {
		if activity.Code != code {
			continue
		}
		for _, exchange := range activity.Exchanges {
			if exchange.Formula != nil && strings.Contains(*exchange.Formula, record.Name) && exchange.Group == record.Group {
				return *exchange.Formula, true
			}
		}
	}
	return "", false
}

func containsIdentifier(formula, name string) bool {
	pattern := `(^|[^A-Za-z0-9_])` + regexp.QuoteMeta(name) + `($|[^A-Za-z0-9_])`
	return regexp.MustCompile(pattern).MatchString(formula)
}
