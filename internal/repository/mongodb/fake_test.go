package mongodb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blogapi/internal/repository"
)

// fakeStore is an in-memory Store. It understands the subset of the query
// language the repositories generate.
type fakeStore struct {
	mu    sync.Mutex
	colls map[string]*fakeCollection
}

func newFakeStore() *fakeStore {
	return &fakeStore{colls: map[string]*fakeCollection{}}
}

func (s *fakeStore) Collection(name string) Collection {
	return s.coll(name)
}

func (s *fakeStore) coll(name string) *fakeCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.colls[name]
	if !ok {
		c = &fakeCollection{name: name, failures: map[string]error{}, calls: map[string]int{}}
		s.colls[name] = c
	}
	return c
}

type fakeCollection struct {
	name string

	mu       sync.Mutex
	docs     []bson.M
	unique   []string
	validate func(bson.M) bool
	failures map[string]error
	calls    map[string]int

	lastFilter   bson.M
	lastFind     *options.FindOptions
	lastUpdate   bson.M
	lastDeadline bool

	// meet, when set, makes find and count wait for each other.
	meet *sync.WaitGroup
}

func (c *fakeCollection) failWith(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[op] = err
}

func (c *fakeCollection) callCount(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

func (c *fakeCollection) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

// raw returns the stored document with the given id.
func (c *fakeCollection) raw(id primitive.ObjectID) bson.M {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.docs {
		if d["_id"] == id {
			return d
		}
	}
	return nil
}

// seed stores documents without going through the repository.
func (c *fakeCollection) seed(docs ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range docs {
		m := mustNormalize(d)
		if _, ok := m["_id"]; !ok {
			m["_id"] = primitive.NewObjectID()
		}
		c.docs = append(c.docs, m)
	}
}

func (c *fakeCollection) begin(ctx context.Context, op string) error {
	c.mu.Lock()
	c.calls[op]++
	_, c.lastDeadline = ctx.Deadline()
	err := c.failures[op]
	meet := c.meet
	c.mu.Unlock()

	if meet != nil && (op == "find" || op == "count") {
		meet.Done()
		done := make(chan struct{})
		go func() {
			meet.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			return errors.New("find and count were not issued concurrently")
		}
	}
	return err
}

func (c *fakeCollection) InsertOne(ctx context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if err := c.begin(ctx, "insert"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := normalize(document)
	if err != nil {
		return nil, err
	}
	if err := c.checkWrite(m); err != nil {
		return nil, err
	}
	c.docs = append(c.docs, m)
	return &mongo.InsertOneResult{InsertedID: m["_id"]}, nil
}

func (c *fakeCollection) InsertMany(ctx context.Context, documents []interface{}, _ ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	if err := c.begin(ctx, "insertMany"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	res := &mongo.InsertManyResult{}
	for _, d := range documents {
		m, err := normalize(d)
		if err != nil {
			return nil, err
		}
		if err := c.checkWrite(m); err != nil {
			return res, err
		}
		c.docs = append(c.docs, m)
		res.InsertedIDs = append(res.InsertedIDs, m["_id"])
	}
	return res, nil
}

func (c *fakeCollection) checkWrite(m bson.M) error {
	for _, field := range c.unique {
		for _, d := range c.docs {
			if v, ok := m[field]; ok && reflect.DeepEqual(d[field], v) {
				return mongo.WriteException{WriteErrors: mongo.WriteErrors{{
					Code:    11000,
					Message: fmt.Sprintf("E11000 duplicate key error collection: %s index: %s_1", c.name, field),
				}}}
			}
		}
	}
	if c.validate != nil && !c.validate(m) {
		return mongo.WriteException{WriteErrors: mongo.WriteErrors{{
			Code:    121,
			Message: "Document failed validation",
		}}}
	}
	return nil
}

func (c *fakeCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	if err := c.begin(ctx, "findOne"); err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := normalize(filter)
	if err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
	}
	c.lastFilter = f

	var proj, sortSpec interface{}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if o.Projection != nil {
			proj = o.Projection
		}
		if o.Sort != nil {
			sortSpec = o.Sort
		}
	}
	matched := c.match(f)
	sortDocs(matched, sortSpec)
	if len(matched) == 0 {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	out, err := project(matched[0], proj)
	if err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
	}
	return mongo.NewSingleResultFromDocument(out, nil, nil)
}

func (c *fakeCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	if err := c.begin(ctx, "find"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := normalize(filter)
	if err != nil {
		return nil, err
	}
	fo := options.MergeFindOptions(opts...)
	c.lastFilter = f
	c.lastFind = fo

	matched := c.match(f)
	sortDocs(matched, fo.Sort)
	if fo.Skip != nil {
		skip := int(*fo.Skip)
		if skip > len(matched) {
			skip = len(matched)
		}
		matched = matched[skip:]
	}
	if fo.Limit != nil && *fo.Limit > 0 && int(*fo.Limit) < len(matched) {
		matched = matched[:*fo.Limit]
	}
	out := make([]interface{}, 0, len(matched))
	for _, d := range matched {
		p, err := project(d, fo.Projection)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return mongo.NewCursorFromDocuments(out, nil, nil)
}

func (c *fakeCollection) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	if err := c.begin(ctx, "findOneAndUpdate"); err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := normalize(filter)
	if err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
	}
	u, err := normalize(update)
	if err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
	}
	c.lastFilter = f
	c.lastUpdate = u

	var proj interface{}
	for _, o := range opts {
		if o != nil && o.Projection != nil {
			proj = o.Projection
		}
	}

	for i, d := range c.docs {
		if !matches(d, f) {
			continue
		}
		next := bson.M{}
		for k, v := range d {
			next[k] = v
		}
		if set, ok := asM(u["$set"]); ok {
			for k, v := range set {
				next[k] = v
			}
		}
		if unset, ok := asM(u["$unset"]); ok {
			for k := range unset {
				delete(next, k)
			}
		}
		if c.validate != nil && !c.validate(next) {
			return mongo.NewSingleResultFromDocument(bson.D{}, mongo.CommandError{
				Code:    121,
				Name:    "DocumentValidationFailure",
				Message: "Document failed validation",
			}, nil)
		}
		c.docs[i] = next
		out, err := project(next, proj)
		if err != nil {
			return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
		}
		return mongo.NewSingleResultFromDocument(out, nil, nil)
	}
	return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
}

func (c *fakeCollection) DeleteOne(ctx context.Context, filter interface{}, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	if err := c.begin(ctx, "deleteOne"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := normalize(filter)
	if err != nil {
		return nil, err
	}
	c.lastFilter = f
	for i, d := range c.docs {
		if matches(d, f) {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return &mongo.DeleteResult{DeletedCount: 1}, nil
		}
	}
	return &mongo.DeleteResult{}, nil
}

func (c *fakeCollection) CountDocuments(ctx context.Context, filter interface{}, _ ...*options.CountOptions) (int64, error) {
	if err := c.begin(ctx, "count"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := normalize(filter)
	if err != nil {
		return 0, err
	}
	return int64(len(c.match(f))), nil
}

// Aggregate supports $match, $sort and $limit stages.
func (c *fakeCollection) Aggregate(ctx context.Context, pipeline interface{}, _ ...*options.AggregateOptions) (*mongo.Cursor, error) {
	if err := c.begin(ctx, "aggregate"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	stages, ok := pipeline.(mongo.Pipeline)
	if !ok {
		return nil, fmt.Errorf("unsupported pipeline %T", pipeline)
	}
	docs := c.match(bson.M{})
	for _, stage := range stages {
		for _, e := range stage {
			switch e.Key {
			case "$match":
				f, err := normalize(e.Value)
				if err != nil {
					return nil, err
				}
				kept := docs[:0:0]
				for _, d := range docs {
					if matches(d, f) {
						kept = append(kept, d)
					}
				}
				docs = kept
			case "$sort":
				sortDocs(docs, e.Value)
			case "$limit":
				n := int(toFloat(e.Value))
				if n < len(docs) {
					docs = docs[:n]
				}
			default:
				return nil, fmt.Errorf("unsupported stage %s", e.Key)
			}
		}
	}
	out := make([]interface{}, 0, len(docs))
	for _, d := range docs {
		out = append(out, d)
	}
	return mongo.NewCursorFromDocuments(out, nil, nil)
}

func (c *fakeCollection) Distinct(ctx context.Context, fieldName string, filter interface{}, _ ...*options.DistinctOptions) ([]interface{}, error) {
	if err := c.begin(ctx, "distinct"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := normalize(filter)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, 0)
	add := func(v interface{}) {
		for _, seen := range out {
			if reflect.DeepEqual(seen, v) {
				return
			}
		}
		out = append(out, v)
	}
	for _, d := range c.match(f) {
		v, ok := d[fieldName]
		if !ok || v == nil {
			continue
		}
		if arr, ok := v.(primitive.A); ok {
			for _, e := range arr {
				add(e)
			}
			continue
		}
		add(v)
	}
	return out, nil
}

func (c *fakeCollection) match(f bson.M) []bson.M {
	out := make([]bson.M, 0)
	for _, d := range c.docs {
		if matches(d, f) {
			out = append(out, d)
		}
	}
	return out
}

// normalize round-trips v through BSON so documents and filters carry the
// same value types the driver would produce.
func normalize(v interface{}) (bson.M, error) {
	if v == nil {
		return bson.M{}, nil
	}
	if f, ok := v.(repository.Filter); ok {
		v = bson.M(f)
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func mustNormalize(v interface{}) bson.M {
	m, err := normalize(v)
	if err != nil {
		panic(err)
	}
	return m
}

func asM(v interface{}) (bson.M, bool) {
	switch t := v.(type) {
	case bson.M:
		return t, true
	case map[string]interface{}:
		return bson.M(t), true
	case repository.Filter:
		return bson.M(t), true
	case bson.D:
		return t.Map(), true
	}
	return nil, false
}

func asSlice(v interface{}) []interface{} {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func matches(doc bson.M, filter bson.M) bool {
	for k, cond := range filter {
		switch k {
		case "$or":
			hit := false
			for _, sub := range asSlice(cond) {
				if m, ok := asM(sub); ok && matches(doc, m) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		case "$and":
			for _, sub := range asSlice(cond) {
				if m, ok := asM(sub); !ok || !matches(doc, m) {
					return false
				}
			}
		default:
			if !matchField(doc[k], cond) {
				return false
			}
		}
	}
	return true
}

func matchField(val, cond interface{}) bool {
	if m, ok := asM(cond); ok && isOperatorDoc(m) {
		for op, arg := range m {
			switch op {
			case "$in":
				found := false
				for _, want := range asSlice(arg) {
					if equalOrContains(val, want) {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			case "$ne":
				if equalOrContains(val, arg) {
					return false
				}
			case "$exists":
				if (val != nil) != arg.(bool) {
					return false
				}
			default:
				panic("fake collection: unsupported operator " + op)
			}
		}
		return true
	}
	if re, ok := cond.(primitive.Regex); ok {
		return regexMatch(val, re)
	}
	return equalOrContains(val, cond)
}

func isOperatorDoc(m bson.M) bool {
	for k := range m {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

func regexMatch(val interface{}, re primitive.Regex) bool {
	pattern := re.Pattern
	if strings.Contains(re.Options, "i") {
		pattern = "(?i)" + pattern
	}
	rx := regexp.MustCompile(pattern)
	switch v := val.(type) {
	case string:
		return rx.MatchString(v)
	case primitive.A:
		for _, e := range v {
			if s, ok := e.(string); ok && rx.MatchString(s) {
				return true
			}
		}
	}
	return false
}

func equalOrContains(val, want interface{}) bool {
	if arr, ok := val.(primitive.A); ok {
		for _, e := range arr {
			if equal(e, want) {
				return true
			}
		}
	}
	return equal(val, want)
}

func equal(a, b interface{}) bool {
	if isNumber(a) && isNumber(b) {
		return toFloat(a) == toFloat(b)
	}
	return reflect.DeepEqual(a, b)
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case int, int32, int64, float64:
		return true
	}
	return false
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func compare(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if isNumber(a) && isNumber(b) {
		x, y := toFloat(a), toFloat(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case primitive.ObjectID:
		if y, ok := b.(primitive.ObjectID); ok {
			return bytes.Compare(x[:], y[:])
		}
	case primitive.DateTime:
		if y, ok := b.(primitive.DateTime); ok {
			return compare(int64(x), int64(y))
		}
	case bool:
		if y, ok := b.(bool); ok && x != y {
			if x {
				return 1
			}
			return -1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func sortDocs(docs []bson.M, spec interface{}) {
	d, ok := spec.(bson.D)
	if !ok || len(d) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, e := range d {
			c := compare(docs[i][e.Key], docs[j][e.Key])
			if c == 0 {
				continue
			}
			if toFloat(e.Value) < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func isOne(v interface{}) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return toFloat(v) != 0
}

// project applies an inclusion or exclusion projection. Mixing the two is
// rejected like the server does.
func project(doc bson.M, proj interface{}) (bson.M, error) {
	d, ok := proj.(bson.D)
	if !ok || len(d) == 0 {
		return doc, nil
	}
	var include, exclude []string
	keepID := true
	for _, e := range d {
		if e.Key == "_id" {
			keepID = isOne(e.Value)
			continue
		}
		if isOne(e.Value) {
			include = append(include, e.Key)
		} else {
			exclude = append(exclude, e.Key)
		}
	}
	if len(include) > 0 && len(exclude) > 0 {
		return nil, mongo.CommandError{
			Code:    31254,
			Name:    "Location31254",
			Message: fmt.Sprintf("Cannot do exclusion on field %s in inclusion projection", exclude[0]),
		}
	}
	out := bson.M{}
	if len(include) > 0 {
		for _, k := range include {
			if v, ok := doc[k]; ok {
				out[k] = v
			}
		}
	} else {
		for k, v := range doc {
			out[k] = v
		}
		for _, k := range exclude {
			delete(out, k)
		}
	}
	if keepID {
		if id, ok := doc["_id"]; ok {
			out["_id"] = id
		}
	} else {
		delete(out, "_id")
	}
	return out, nil
}
