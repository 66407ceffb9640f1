package store

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"inventory/models"
	"inventory/pkg/query"
)

// NewGorm builds a Store on top of an open gorm connection.
func NewGorm(db *gorm.DB) (*Store, error) {
	cache := &sync.Map{}
	var err error
	s := &Store{}
	if s.UserTypes, err = newGormRecords[models.UserType](db, cache, ""); err != nil {
		return nil, err
	}
	if s.Users, err = newGormRecords[models.User](db, cache, ""); err != nil {
		return nil, err
	}
	if s.RefreshTokens, err = newGormRecords[models.RefreshToken](db, cache, "user_id"); err != nil {
		return nil, err
	}
	if s.Statuses, err = newGormRecords[models.Status](db, cache, ""); err != nil {
		return nil, err
	}
	if s.Hardware, err = newGormRecords[models.Hardware](db, cache, ""); err != nil {
		return nil, err
	}
	if s.HardwareInstances, err = newGormRecords[models.HardwareInstance](db, cache, "hardware_id"); err != nil {
		return nil, err
	}
	if s.Software, err = newGormRecords[models.Software](db, cache, ""); err != nil {
		return nil, err
	}
	if s.SoftwareInstances, err = newGormRecords[models.SoftwareInstance](db, cache, "software_id"); err != nil {
		return nil, err
	}
	if s.Subscriptions, err = newGormRecords[models.Subscription](db, cache, "software_id"); err != nil {
		return nil, err
	}
	if s.AssignmentLogs, err = newGormRecords[models.AssignmentLog](db, cache, ""); err != nil {
		return nil, err
	}
	return s, nil
}

type gormRecords[T any] struct {
	db     *gorm.DB
	parent string
	// columns maps both JSON names and column names to column names. Only
	// these may appear in filters and sort fields.
	columns map[string]string
}

func newGormRecords[T any](db *gorm.DB, cache *sync.Map, parent string) (*gormRecords[T], error) {
	sch, err := schema.Parse(new(T), cache, db.NamingStrategy)
	if err != nil {
		return nil, errors.Wrapf(err, "parse schema of %T", *new(T))
	}
	cols := make(map[string]string, len(sch.Fields)*2)
	for _, f := range sch.Fields {
		if f.DBName == "" {
			continue
		}
		cols[f.DBName] = f.DBName
		if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
			cols[name] = f.DBName
		}
	}
	return &gormRecords[T]{db: db, parent: parent, columns: cols}, nil
}

func (r *gormRecords[T]) Create(ctx context.Context, row *T) error {
	return errors.Wrapf(r.db.WithContext(ctx).Create(row).Error, "create %T", row)
}

func (r *gormRecords[T]) Get(ctx context.Context, id uint) (*T, error) {
	var row T
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "%T %d", row, id)
		}
		return nil, errors.Wrapf(err, "get %T %d", row, id)
	}
	return &row, nil
}

func (r *gormRecords[T]) Update(ctx context.Context, row *T) error {
	return errors.Wrapf(r.db.WithContext(ctx).Save(row).Error, "update %T", row)
}

func (r *gormRecords[T]) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete %T %d", *new(T), id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "%T %d", *new(T), id)
	}
	return nil
}

func (r *gormRecords[T]) ListByParent(ctx context.Context, parentID uint) ([]T, error) {
	if r.parent == "" {
		return nil, errors.Errorf("%T has no parent column", *new(T))
	}
	var rows []T
	err := r.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: r.parent}, Value: parentID}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Find(&rows).Error
	return rows, errors.Wrapf(err, "list %T by parent %d", rows, parentID)
}

func (r *gormRecords[T]) Search(ctx context.Context, s query.Search) ([]T, int64, error) {
	exprs := make([]clause.Expression, 0, len(s.Filters))
	for _, c := range s.Conditions() {
		col, ok := r.columns[c.Field]
		if !ok {
			return nil, 0, errors.Wrapf(ErrUnsupportedFilter, "unknown field %q", c.Field)
		}
		e, err := conditionExpr(col, c)
		if err != nil {
			return nil, 0, err
		}
		exprs = append(exprs, e)
	}
	order := clause.OrderByColumn{Column: clause.Column{Name: "id"}}
	if s.SortField != "" {
		col, ok := r.columns[s.SortField]
		if !ok {
			return nil, 0, errors.Wrapf(ErrUnsupportedFilter, "unknown sort field %q", s.SortField)
		}
		order = clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: s.Descending()}
	}

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(new(T))
		if len(exprs) > 0 {
			q = q.Clauses(clause.Where{Exprs: exprs})
		}
		return q
	}
	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, errors.Wrapf(err, "count %T", *new(T))
	}
	q := base().Order(order)
	if s.Paged() {
		q = q.Offset(s.Offset()).Limit(s.Rows)
	}
	var rows []T
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, errors.Wrapf(err, "search %T", rows)
	}
	return rows, total, nil
}

func conditionExpr(col string, c query.Condition) (clause.Expression, error) {
	column := clause.Column{Name: col}
	switch c.Operator {
	case query.OpEqual:
		return clause.Eq{Column: column, Value: normalize(c.Value)}, nil
	case query.OpNotEqual:
		return clause.Neq{Column: column, Value: normalize(c.Value)}, nil
	case query.OpContains:
		return clause.Expr{SQL: "CAST(? AS TEXT) ILIKE ?", Vars: []any{column, "%" + fmt.Sprint(c.Value) + "%"}}, nil
	case query.OpDateEqual:
		return clause.Eq{Column: column, Value: dateArg(c.Value)}, nil
	case query.OpDateNotEqual:
		return clause.Neq{Column: column, Value: dateArg(c.Value)}, nil
	case query.OpDateBefore:
		return clause.Lt{Column: column, Value: dateArg(c.Value)}, nil
	case query.OpDateAfter:
		return clause.Gt{Column: column, Value: dateArg(c.Value)}, nil
	case query.OpDateBeforeOrEqual:
		return clause.Lte{Column: column, Value: dateArg(c.Value)}, nil
	case query.OpEmpty:
		return clause.Eq{Column: column, Value: nil}, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedFilter, "operator %q", c.Operator)
}

// normalize turns whole JSON numbers into integers so they compare against
// integer columns.
func normalize(v any) any {
	if f, ok := v.(float64); ok && f == math.Trunc(f) {
		return int64(f)
	}
	return v
}

// dateArg accepts "YYYY-MM-DD" or a full ISO timestamp and keeps the date.
func dateArg(v any) string {
	s := fmt.Sprint(v)
	if len(s) > len(models.DateLayout) {
		s = s[:len(models.DateLayout)]
	}
	return s
}
