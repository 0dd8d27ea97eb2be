package listings

import (
	"strings"
	"time"

	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/pkg/pagination"

	"gorm.io/gorm"
)

// Filters are the optional narrowing criteria of a listing search. Zero values are
// ignored. Text filters match case-insensitively on a substring.
type Filters struct {
	City        string
	Country     string
	Category    string
	Provider    string
	Origin      string
	Destination string
	MinPrice    *float64
	MaxPrice    *float64
	MinRating   *float64
	MaxRating   *float64
	// From and To bound the type's date column (departure or event date), inclusive.
	From *time.Time
	To   *time.Time
}

// Sort is a requested ordering. Unknown fields fall back to the type's default.
type Sort struct {
	By    string
	Order string
}

type condition struct {
	sql  string
	args []interface{}
}

// QueryPlan is a validated, store-ready listing search. Two plans built from the same
// inputs select and order rows identically.
type QueryPlan struct {
	Type           domain.ListingType
	IncludeDeleted bool
	OrderBy        string
	Desc           bool
	Page           pagination.Params

	conditions []condition
}

var textColumns = []struct {
	col string
	get func(Filters) string
}{
	{"city", func(f Filters) string { return f.City }},
	{"country", func(f Filters) string { return f.Country }},
	{"category", func(f Filters) string { return f.Category }},
	{"provider", func(f Filters) string { return f.Provider }},
	{"origin", func(f Filters) string { return f.Origin }},
	{"destination", func(f Filters) string { return f.Destination }},
}

var commonSorts = []string{"price", "average_rating", "total_reviews", "created_at", "title"}

// SortFields lists the columns a listing type can be ordered by.
func SortFields(lt domain.ListingType) []string {
	fields := append([]string{}, commonSorts...)
	switch lt {
	case domain.ListingFlight, domain.ListingTransport:
		fields = append(fields, "departure_time", "arrival_time")
	case domain.ListingEvent:
		fields = append(fields, "event_date")
	case domain.ListingAccommodation:
		fields = append(fields, "max_guests")
	}
	return fields
}

// DefaultSort is the column used when no valid sort is requested.
func DefaultSort(lt domain.ListingType) string {
	if col := lt.DateColumn(); col != "" {
		return col
	}
	return "created_at"
}

// BuildQuery turns raw search criteria into a QueryPlan. It never fails: invalid sort
// fields and orders fall back to defaults, and pagination is clamped by p's constructor.
func BuildQuery(lt domain.ListingType, f Filters, p pagination.Params, s Sort, includeDeleted bool) QueryPlan {
	plan := QueryPlan{Type: lt, IncludeDeleted: includeDeleted, Page: p}
	plan.where("type = ?", lt)

	for _, tc := range textColumns {
		v := strings.TrimSpace(tc.get(f))
		if v == "" {
			continue
		}
		plan.where("LOWER("+tc.col+`) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(v))+"%")
	}
	if f.MinPrice != nil {
		plan.where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		plan.where("price <= ?", *f.MaxPrice)
	}
	if f.MinRating != nil {
		plan.where("average_rating >= ?", *f.MinRating)
	}
	if f.MaxRating != nil {
		plan.where("average_rating <= ?", *f.MaxRating)
	}
	if col := lt.DateColumn(); col != "" {
		if f.From != nil {
			plan.where(col+" >= ?", f.From.UTC())
		}
		if f.To != nil {
			plan.where(col+" <= ?", f.To.UTC())
		}
	}

	plan.OrderBy = DefaultSort(lt)
	by := strings.ToLower(strings.TrimSpace(s.By))
	for _, allowed := range SortFields(lt) {
		if by == allowed {
			plan.OrderBy = allowed
			break
		}
	}
	switch strings.ToLower(s.Order) {
	case "asc":
		plan.Desc = false
	case "desc":
		plan.Desc = true
	default:
		// newest first, soonest first
		plan.Desc = plan.OrderBy == "created_at"
	}
	return plan
}

func (q *QueryPlan) where(sql string, args ...interface{}) {
	q.conditions = append(q.conditions, condition{sql: sql, args: args})
}

// Scope applies the plan's filters and soft-delete visibility, without ordering or
// pagination. Use it for counts.
func (q QueryPlan) Scope(db *gorm.DB) *gorm.DB {
	db = db.Model(&domain.Listing{})
	if q.IncludeDeleted {
		db = db.Unscoped()
	}
	for _, c := range q.conditions {
		db = db.Where(c.sql, c.args...)
	}
	return db
}

// Paged applies ordering and the page window on top of Scope. id breaks ties so pages
// never overlap.
func (q QueryPlan) Paged(db *gorm.DB) *gorm.DB {
	dir := " ASC"
	if q.Desc {
		dir = " DESC"
	}
	return q.Scope(db).
		Order(q.OrderBy + dir).
		Order("id ASC").
		Offset(q.Page.Offset()).
		Limit(q.Page.Limit)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
