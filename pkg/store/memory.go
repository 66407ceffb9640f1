package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"inventory/models"
	"inventory/pkg/query"
)

type keyed[T any] interface {
	*T
	RowID() uint
	SetRowID(uint)
}

type owned interface {
	OwnerID() uint
}

// NewMemory returns a Store that keeps every table in process memory.
func NewMemory() *Store {
	mu := &sync.Mutex{}
	return &Store{
		UserTypes:         newMemRecords[models.UserType](mu),
		Users:             newMemRecords[models.User](mu),
		RefreshTokens:     newMemRecords[models.RefreshToken](mu),
		Statuses:          newMemRecords[models.Status](mu),
		Hardware:          newMemRecords[models.Hardware](mu),
		HardwareInstances: newMemRecords[models.HardwareInstance](mu),
		Software:          newMemRecords[models.Software](mu),
		SoftwareInstances: newMemRecords[models.SoftwareInstance](mu),
		Subscriptions:     newMemRecords[models.Subscription](mu),
		AssignmentLogs:    newMemRecords[models.AssignmentLog](mu),
	}
}

type memRecords[T any, P keyed[T]] struct {
	mu     *sync.Mutex
	rows   map[uint]T
	next   uint
	fields map[string]bool
}

func newMemRecords[T any, P keyed[T]](mu *sync.Mutex) *memRecords[T, P] {
	fields := map[string]bool{}
	if b, err := json.Marshal(new(T)); err == nil {
		var m map[string]any
		if json.Unmarshal(b, &m) == nil {
			for k := range m {
				fields[k] = true
			}
		}
	}
	return &memRecords[T, P]{mu: mu, rows: map[uint]T{}, next: 1, fields: fields}
}

func (r *memRecords[T, P]) Create(_ context.Context, row *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := P(row)
	if id := p.RowID(); id != 0 {
		if _, dup := r.rows[id]; dup {
			return errors.Errorf("duplicate key %d for %T", id, *row)
		}
		if id >= r.next {
			r.next = id + 1
		}
	} else {
		p.SetRowID(r.next)
		r.next++
	}
	at := time.Now()
	stamp(row, "CreatedAt", at, false)
	stamp(row, "UpdatedAt", at, false)
	r.rows[p.RowID()] = *row
	return nil
}

func (r *memRecords[T, P]) Get(_ context.Context, id uint) (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%T %d", row, id)
	}
	return &row, nil
}

func (r *memRecords[T, P]) Update(_ context.Context, row *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := P(row).RowID()
	if _, ok := r.rows[id]; !ok {
		return errors.Wrapf(ErrNotFound, "%T %d", *row, id)
	}
	stamp(row, "UpdatedAt", time.Now(), true)
	r.rows[id] = *row
	return nil
}

func (r *memRecords[T, P]) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return errors.Wrapf(ErrNotFound, "%T %d", *new(T), id)
	}
	delete(r.rows, id)
	return nil
}

func (r *memRecords[T, P]) ListByParent(_ context.Context, parentID uint) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []T
	for _, id := range r.sortedIDs() {
		row := r.rows[id]
		o, ok := any(P(&row)).(owned)
		if !ok {
			return nil, errors.Errorf("%T has no parent column", row)
		}
		if o.OwnerID() == parentID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memRecords[T, P]) Search(_ context.Context, s query.Search) ([]T, int64, error) {
	conds := s.Conditions()
	for _, c := range conds {
		if !r.fields[c.Field] {
			return nil, 0, errors.Wrapf(ErrUnsupportedFilter, "unknown field %q", c.Field)
		}
	}
	if s.SortField != "" && !r.fields[s.SortField] {
		return nil, 0, errors.Wrapf(ErrUnsupportedFilter, "unknown sort field %q", s.SortField)
	}

	r.mu.Lock()
	type doc struct {
		row    T
		fields map[string]any
	}
	var matched []doc
	for _, id := range r.sortedIDs() {
		row := r.rows[id]
		fields, err := toFields(row)
		if err != nil {
			r.mu.Unlock()
			return nil, 0, err
		}
		ok := true
		for _, c := range conds {
			hit, err := matches(fields[c.Field], c)
			if err != nil {
				r.mu.Unlock()
				return nil, 0, err
			}
			if !hit {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, doc{row: row, fields: fields})
		}
	}
	r.mu.Unlock()

	if s.SortField != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			c := compare(matched[i].fields[s.SortField], matched[j].fields[s.SortField])
			if s.Descending() {
				return c > 0
			}
			return c < 0
		})
	}
	start, end := s.Window(len(matched))
	out := make([]T, 0, end-start)
	for _, d := range matched[start:end] {
		out = append(out, d.row)
	}
	return out, int64(len(matched)), nil
}

// stamp fills a time.Time field the way gorm's autoCreateTime and
// autoUpdateTime do. A set value is kept unless force is true.
func stamp(row any, field string, at time.Time, force bool) {
	v := reflect.ValueOf(row).Elem()
	if v.Kind() != reflect.Struct {
		return
	}
	f := v.FieldByName(field)
	if !f.IsValid() || !f.CanSet() || f.Type() != reflect.TypeOf(at) {
		return
	}
	if force || f.Interface().(time.Time).IsZero() {
		f.Set(reflect.ValueOf(at))
	}
}

func (r *memRecords[T, P]) sortedIDs() []uint {
	ids := make([]uint, 0, len(r.rows))
	for id := range r.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func toFields(row any) (map[string]any, error) {
	b, err := json.Marshal(row)
	if err != nil {
		return nil, errors.Wrap(err, "encode row")
	}
	var m map[string]any
	return m, errors.Wrap(json.Unmarshal(b, &m), "decode row")
}

func matches(v any, c query.Condition) (bool, error) {
	switch c.Operator {
	case query.OpEqual:
		return text(v) == text(c.Value), nil
	case query.OpNotEqual:
		return text(v) != text(c.Value), nil
	case query.OpContains:
		return strings.Contains(strings.ToLower(text(v)), strings.ToLower(text(c.Value))), nil
	case query.OpEmpty:
		return v == nil || text(v) == "", nil
	}
	if v == nil {
		return false, nil
	}
	d, want := text(v), dateArg(c.Value)
	switch c.Operator {
	case query.OpDateEqual:
		return d == want, nil
	case query.OpDateNotEqual:
		return d != want, nil
	case query.OpDateBefore:
		return d < want, nil
	case query.OpDateAfter:
		return d > want, nil
	case query.OpDateBeforeOrEqual:
		return d <= want, nil
	}
	return false, errors.Wrapf(ErrUnsupportedFilter, "operator %q", c.Operator)
}

func text(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(normalize(v))
}

func compare(a, b any) int {
	fa, aok := a.(float64)
	fb, bok := b.(float64)
	if aok && bok {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(text(a), text(b))
}
