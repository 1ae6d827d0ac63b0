package common

import (
	"context"
	"fmt"
	"reflect"

	g "github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

// 只读查询统一走 goqu 生成 SQL；写路径（下注、开奖、结算等）保持各模型内的原生语句。

var dialect = g.Dialect("mysql")

// ReadQuery 只读列表查询的参数集合
type ReadQuery struct {
	Db     *sqlx.DB
	Table  string
	Cols   []interface{}           // 查询列，通常由 DBFields 从投影结构体推导
	Where  []exp.Expression        // 过滤条件
	Order  []exp.OrderedExpression // 排序
	Offset uint
	Limit  uint
}

// DBFields 从结构体的 db tag 推导查询列，投影结构体与 SELECT 列保持单一来源
func DBFields(obj interface{}) []interface{} {
	rt := reflect.TypeOf(obj)
	if rt.Kind() != reflect.Struct {
		return nil
	}

	var cols []interface{}
	for i := 0; i < rt.NumField(); i++ {
		if col := rt.Field(i).Tag.Get("db"); col != "" && col != "-" {
			cols = append(cols, col)
		}
	}

	return cols
}

// SelectAllCtx 查询多条记录
func SelectAllCtx(ctx context.Context, data interface{}, q ReadQuery) error {
	if q.Db == nil {
		return fmt.Errorf("invalid db")
	}
	if q.Table == "" {
		return fmt.Errorf("invalid table")
	}
	if len(q.Cols) == 0 {
		return fmt.Errorf("invalid cols")
	}

	ds := dialect.Select(q.Cols...).From(q.Table)
	if len(q.Where) > 0 {
		ds = ds.Where(q.Where...)
	}
	if len(q.Order) > 0 {
		ds = ds.Order(q.Order...)
	}
	if q.Offset > 0 {
		ds = ds.Offset(q.Offset)
	}
	if q.Limit > 0 {
		ds = ds.Limit(q.Limit)
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return err
	}
	return q.Db.SelectContext(ctx, data, query, args...)
}

// CountCtx 统计满足条件的行数
func CountCtx(ctx context.Context, db *sqlx.DB, table string, ex ...exp.Expression) (int64, error) {
	if db == nil {
		return 0, fmt.Errorf("invalid db")
	}

	var count int64
	query, args, err := dialect.Select(g.COUNT("*")).From(table).Where(ex...).ToSQL()
	if err != nil {
		return 0, err
	}
	if err := db.GetContext(ctx, &count, query, args...); err != nil {
		Printf("count %s err: %s\n", table, err.Error())
		return 0, err
	}

	return count, nil
}
