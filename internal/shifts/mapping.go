package shifts

import (
	"net/url"
	"time"

	"cloud.google.com/go/civil"

	"github.com/JaimeStill/shiftmatch/pkg/query"
	"github.com/JaimeStill/shiftmatch/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "shifts", "s").
	Project("id", "ID").
	Project("external_ref", "ExternalRef").
	Project("store_id", "StoreID").
	Project("shift_date", "Date").
	Project("employee_name", "EmployeeName").
	Project("scheduled_start", "ScheduledStart").
	Project("scheduled_end", "ScheduledEnd").
	Project("shift_type", "ShiftType").
	Project("employee_group", "EmployeeGroup").
	Project("imported_at", "ImportedAt")

var defaultSort = []query.SortField{
	{Field: "Date", Descending: true},
	{Field: "StoreID"},
	{Field: "ScheduledStart"},
}

// Filters contains optional filtering criteria for shift queries.
// EmployeeName uses case-insensitive contains matching; From and To bound
// the shift date inclusively.
type Filters struct {
	StoreID       *string     `json:"store_id,omitempty"`
	EmployeeName  *string     `json:"employee_name,omitempty"`
	ShiftType     *string     `json:"shift_type,omitempty"`
	EmployeeGroup *string     `json:"employee_group,omitempty"`
	From          *civil.Date `json:"from,omitempty"`
	To            *civil.Date `json:"to,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("StoreID", f.StoreID).
		WhereContains("EmployeeName", f.EmployeeName).
		WhereEquals("ShiftType", f.ShiftType).
		WhereEquals("EmployeeGroup", f.EmployeeGroup).
		WhereRange("Date", dateArg(f.From), dateArg(f.To))
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("store_id"); s != "" {
		f.StoreID = &s
	}

	if n := values.Get("employee_name"); n != "" {
		f.EmployeeName = &n
	}

	if st := values.Get("shift_type"); st != "" {
		f.ShiftType = &st
	}

	if g := values.Get("employee_group"); g != "" {
		f.EmployeeGroup = &g
	}

	if from := values.Get("from"); from != "" {
		if d, err := civil.ParseDate(from); err == nil {
			f.From = &d
		}
	}

	if to := values.Get("to"); to != "" {
		if d, err := civil.ParseDate(to); err == nil {
			f.To = &d
		}
	}

	return f
}

func dateArg(d *civil.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func scanShift(s repository.Scanner) (Shift, error) {
	var (
		sh   Shift
		date time.Time
	)
	err := s.Scan(
		&sh.ID,
		&sh.ExternalRef,
		&sh.StoreID,
		&date,
		&sh.EmployeeName,
		&sh.ScheduledStart,
		&sh.ScheduledEnd,
		&sh.ShiftType,
		&sh.EmployeeGroup,
		&sh.ImportedAt,
	)
	sh.Date = civil.DateOf(date)
	return sh, err
}
