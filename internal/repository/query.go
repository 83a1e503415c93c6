package repository

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultLimit is the page size used when the caller does not ask for one.
	DefaultLimit = 20
	// MaxLimit caps every page; callers can never request more documents.
	MaxLimit = 200
	// MaxPage keeps the skip offset of any page within an int.
	MaxPage = math.MaxInt / MaxLimit
)

// Filter maps field paths to match conditions.
type Filter bson.M

// Eq matches documents whose field equals v.
func Eq(field string, v any) Filter {
	return Filter{field: v}
}

// ByID matches the document with the given identifier.
func ByID(id primitive.ObjectID) Filter {
	return Filter{"_id": id}
}

// In matches documents whose field equals any of values.
func In[V any](field string, values []V) Filter {
	return Filter{field: bson.M{"$in": values}}
}

// Contains is a case-insensitive substring match. term is matched literally.
func Contains(field, term string) Filter {
	return Filter{field: primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}}
}

// Or matches documents satisfying at least one of filters.
func Or(filters ...Filter) Filter {
	arr := make(bson.A, 0, len(filters))
	for _, f := range filters {
		arr = append(arr, bson.M(f))
	}
	return Filter{"$or": arr}
}

// And matches documents satisfying every filter. Filters without
// overlapping keys are merged into one document, otherwise they are
// combined with $and.
func And(filters ...Filter) Filter {
	merged := Filter{}
	nonEmpty := make(bson.A, 0, len(filters))
	collision := false
	for _, f := range filters {
		if len(f) == 0 {
			continue
		}
		nonEmpty = append(nonEmpty, bson.M(f))
		for k, v := range f {
			if _, ok := merged[k]; ok {
				collision = true
			}
			merged[k] = v
		}
	}
	if collision {
		return Filter{"$and": nonEmpty}
	}
	return merged
}

// Projection selects the fields returned by a query. A projection is either
// inclusive (fields set to 1) or exclusive (fields set to 0); _id may be
// excluded from an inclusive projection. Mixing the two families is rejected
// by the store.
type Projection struct {
	fields bson.D
}

// Include selects only the given fields (plus _id).
func Include(fields ...string) Projection {
	return fromList(fields, 1)
}

// Exclude returns every field except the given ones.
func Exclude(fields ...string) Projection {
	return fromList(fields, 0)
}

// Fields builds a projection from per-field flags, 1 to include and 0 to
// exclude.
func Fields(flags map[string]int) Projection {
	keys := make([]string, 0, len(flags))
	for k := range flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	p := Projection{}
	for _, k := range keys {
		v := 0
		if flags[k] != 0 {
			v = 1
		}
		p.fields = append(p.fields, bson.E{Key: k, Value: v})
	}
	return p
}

// ParseProjection reads the space separated form "title content -tags".
// A leading "-" excludes the field; a leading "+" is accepted and ignored.
func ParseProjection(s string) Projection {
	p := Projection{}
	for _, tok := range strings.Fields(s) {
		switch {
		case strings.HasPrefix(tok, "-"):
			p = p.with(strings.TrimPrefix(tok, "-"), 0)
		default:
			p = p.with(strings.TrimPrefix(tok, "+"), 1)
		}
	}
	return p
}

func fromList(fields []string, v int) Projection {
	p := Projection{}
	for _, f := range fields {
		p = p.with(f, v)
	}
	return p
}

func (p Projection) with(field string, v int) Projection {
	field = strings.TrimSpace(field)
	if field == "" {
		return p
	}
	out := Projection{fields: make(bson.D, 0, len(p.fields)+1)}
	replaced := false
	for _, e := range p.fields {
		if e.Key == field {
			e.Value = v
			replaced = true
		}
		out.fields = append(out.fields, e)
	}
	if !replaced {
		out.fields = append(out.fields, bson.E{Key: field, Value: v})
	}
	return out
}

// IsZero reports whether the projection leaves documents untouched.
func (p Projection) IsZero() bool { return len(p.fields) == 0 }

// Inclusive reports whether the projection selects fields rather than
// removing them.
func (p Projection) Inclusive() bool {
	for _, e := range p.fields {
		if e.Key != "_id" && e.Value == 1 {
			return true
		}
	}
	return false
}

func (p Projection) has(field string) bool {
	for _, e := range p.fields {
		if e.Key == field {
			return true
		}
	}
	return false
}

// Doc returns the store representation, nil for an empty projection.
func (p Projection) Doc() bson.D {
	if p.IsZero() {
		return nil
	}
	out := make(bson.D, len(p.fields))
	copy(out, p.fields)
	return out
}

// Populate resolves a reference field into the referenced documents.
// Path must be a top-level field holding an ObjectID or an array of them.
type Populate struct {
	Path       string
	Collection string
	// Select lists the fields of the referenced document to embed. When
	// empty the whole document is embedded minus Hidden.
	Select []string
	Hidden []string
}

// Projection returns the projection used to load referenced documents.
func (p Populate) Projection() bson.D {
	if len(p.Select) > 0 {
		return Include(p.Select...).Doc()
	}
	return Exclude(p.Hidden...).Doc()
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// QueryFlags are passed through to the store.
type QueryFlags struct {
	Comment   string
	Hint      any
	MaxTime   time.Duration
	Collation *options.Collation
}

// FindOptions configures reads. Page, Limit, Sort, SortOrder, Search and
// Conditions only apply to paginated listing.
type FindOptions struct {
	Projection Projection
	Flags      QueryFlags
	Populate   []Populate

	Page      int
	Limit     int
	Sort      string
	SortOrder SortOrder
	Search    string
	// OmitFields are excluded after Projection is applied. Combining them
	// with an inclusive Projection is rejected by the store.
	OmitFields []string
	// Conditions lists the fields Search is matched against. Search is
	// ignored when Conditions is empty.
	Conditions []string

	// IncludeSensitive returns fields the schema marks as sensitive.
	IncludeSensitive bool
}

// NormalizePage returns the effective 1-based page and page size.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// SearchFilter merges the search term of opts into filter as a
// case-insensitive OR over opts.Conditions.
func SearchFilter(filter Filter, opts FindOptions) Filter {
	if opts.Search == "" || len(opts.Conditions) == 0 {
		return filter
	}
	conds := make([]Filter, 0, len(opts.Conditions))
	for _, field := range opts.Conditions {
		conds = append(conds, Contains(field, opts.Search))
	}
	return And(filter, Or(conds...))
}

// SortDoc returns the sort document. Results are ordered by _id
// descending unless asked otherwise; _id breaks ties so pages are stable.
func SortDoc(opts FindOptions) bson.D {
	field := opts.Sort
	if field == "" {
		field = "_id"
	}
	dir := -1
	if opts.SortOrder == SortAsc {
		dir = 1
	}
	d := bson.D{{Key: field, Value: dir}}
	if field != "_id" {
		d = append(d, bson.E{Key: "_id", Value: dir})
	}
	return d
}

// Update describes a modification. Bare fields are treated as $set.
type Update bson.M

// Set replaces the given fields.
func Set(fields any) Update {
	return Update{"$set": fields}
}
