package progress

import (
	"context"
	"database/sql"
	"fmt"
)

// Capabilities describes which optional schema features this deployment has.
// It is resolved once at startup; operations that need an absent feature
// return Unsupported instead of probing the database per call.
type Capabilities struct {
	Deadlines     bool // courses.deadline / enrollments.deadline
	PassingScores bool // lessons.passing_score
	Prerequisites bool // courses.prerequisite_course_id
	MinistryStats bool // users.ministry
}

// AllCapabilities is what a freshly migrated schema supports.
func AllCapabilities() Capabilities {
	return Capabilities{Deadlines: true, PassingScores: true, Prerequisites: true, MinistryStats: true}
}

// DetectCapabilities inspects the live schema. driver is "sqlite" or
// "postgres".
func DetectCapabilities(ctx context.Context, dbh *sql.DB, driver string) (Capabilities, error) {
	var caps Capabilities
	checks := []struct {
		table, column string
		flag          *bool
	}{
		{"courses", "deadline", &caps.Deadlines},
		{"lessons", "passing_score", &caps.PassingScores},
		{"courses", "prerequisite_course_id", &caps.Prerequisites},
		{"users", "ministry", &caps.MinistryStats},
	}
	for _, c := range checks {
		ok, err := hasColumn(ctx, dbh, driver, c.table, c.column)
		if err != nil {
			return Capabilities{}, fmt.Errorf("capability probe %s.%s: %w", c.table, c.column, err)
		}
		*c.flag = ok
	}
	return caps, nil
}

func hasColumn(ctx context.Context, dbh *sql.DB, driver, table, column string) (bool, error) {
	var n int
	var err error
	switch driver {
	case "postgres":
		err = dbh.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM information_schema.columns WHERE table_name=$1 AND column_name=$2`,
			table, column).Scan(&n)
	case "sqlite":
		err = dbh.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM pragma_table_info($1) WHERE name=$2`,
			table, column).Scan(&n)
	default:
		return false, fmt.Errorf("unsupported driver %q", driver)
	}
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
