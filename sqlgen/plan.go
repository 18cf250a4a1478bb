package sqlgen

import (
	"fmt"
	"strings"

	"github.com/vegafusion-go/vf/dialect"
	"github.com/vegafusion-go/vf/expr"
	"github.com/vegafusion-go/vf/vferr"
)

// Plan renders plan as a single SELECT statement (or nested subquery
// text, for use as a FROM-clause source). Every LogicalPlan kind
// becomes one SQL clause layer; nested Inputs are rendered as aliased
// subqueries, matching the teacher's "each node computes its own String()
// by recursing into children" idiom (sql/plan.Node.String).
func (g *Generator) Plan(plan expr.LogicalPlan) (string, error) {
	switch p := plan.(type) {
	case *expr.TableScan:
		return fmt.Sprintf("SELECT * FROM %s", g.quote(p.Table)), nil
	case *expr.Values:
		return g.values(p)
	case *expr.Project:
		return g.project(p)
	case *expr.Filter:
		return g.filter(p)
	case *expr.Aggregate:
		return g.aggregate(p)
	case *expr.Join:
		return g.join(p)
	case *expr.Window:
		return g.window(p)
	case *expr.Sort:
		return g.sort(p)
	default:
		return "", vferr.ErrSqlNotSupported.New(fmt.Sprintf("plan node %T", plan))
	}
}

// subquery renders input.Plan as "(<select>) AS alias", the shape every
// multi-source node (Project, Filter, Aggregate, Join, Window, Sort)
// needs for its FROM clause.
func (g *Generator) subquery(in expr.Input) (string, error) {
	inner, err := g.Plan(in.Plan)
	if err != nil {
		return "", err
	}
	alias := in.Alias
	if alias == "" {
		alias = "t"
	}
	return fmt.Sprintf("(%s) AS %s", inner, g.quote(alias)), nil
}

// values implements the three VALUES lowering modes spec §4.I lists.
func (g *Generator) values(v *expr.Values) (string, error) {
	cols := make([]string, len(v.Sch.Fields))
	for i, f := range v.Sch.Fields {
		cols[i] = f.Name
	}

	rows := make([][]string, len(v.Rows))
	for i, row := range v.Rows {
		cells := make([]string, len(row))
		for j, e := range row {
			s, err := g.Expr(e)
			if err != nil {
				return "", err
			}
			cells[j] = s
		}
		rows[i] = cells
	}

	mode := g.Cap.ValuesMode
	switch mode.Kind {
	case dialect.ValuesWithSubqueryColumnAliases:
		rowsText := make([]string, len(rows))
		for i, cells := range rows {
			row := "(" + strings.Join(cells, ", ") + ")"
			if mode.ExplicitRow {
				row = "ROW" + row
			}
			rowsText[i] = row
		}
		aliasedCols := make([]string, len(cols))
		for i, c := range cols {
			aliasedCols[i] = g.quote(c)
		}
		return fmt.Sprintf(
			"SELECT * FROM (VALUES %s) AS %s(%s)",
			strings.Join(rowsText, ", "), g.quote("_values"), strings.Join(aliasedCols, ", "),
		), nil

	case dialect.ValuesWithSelectColumnAliases:
		rowsText := make([]string, len(rows))
		for i, cells := range rows {
			row := "(" + strings.Join(cells, ", ") + ")"
			if mode.ExplicitRow {
				row = "ROW" + row
			}
			rowsText[i] = row
		}
		selectCols := make([]string, len(cols))
		for i, c := range cols {
			generated := fmt.Sprintf("%s%d", mode.ColumnPrefix, i+mode.BaseIndex)
			selectCols[i] = fmt.Sprintf("%s AS %s", generated, g.quote(c))
		}
		return fmt.Sprintf(
			"SELECT %s FROM (VALUES %s)",
			strings.Join(selectCols, ", "), strings.Join(rowsText, ", "),
		), nil

	case dialect.SelectUnion:
		selects := make([]string, len(rows))
		for i, cells := range rows {
			parts := make([]string, len(cells))
			for j, cell := range cells {
				parts[j] = fmt.Sprintf("%s AS %s", cell, g.quote(cols[j]))
			}
			selects[i] = "SELECT " + strings.Join(parts, ", ")
		}
		return strings.Join(selects, " UNION ALL "), nil

	default:
		return "", vferr.ErrSqlNotSupported.New("unknown VALUES mode")
	}
}

func (g *Generator) selectList(exprs []expr.Expr) (string, error) {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		s, err := g.Expr(e)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

func (g *Generator) project(p *expr.Project) (string, error) {
	from, err := g.subquery(p.Input)
	if err != nil {
		return "", err
	}
	list, err := g.selectList(p.Exprs)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT %s FROM %s", list, from), nil
}

func (g *Generator) filter(f *expr.Filter) (string, error) {
	from, err := g.subquery(f.Input)
	if err != nil {
		return "", err
	}
	cond, err := g.Expr(f.Predicate)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT * FROM %s WHERE %s", from, cond), nil
}

func (g *Generator) aggregate(a *expr.Aggregate) (string, error) {
	from, err := g.subquery(a.Input)
	if err != nil {
		return "", err
	}
	list, err := g.selectList(append(append([]expr.Expr{}, a.GroupBy...), a.Aggregates...))
	if err != nil {
		return "", err
	}
	if len(a.GroupBy) == 0 {
		return fmt.Sprintf("SELECT %s FROM %s", list, from), nil
	}
	groupCols := make([]string, len(a.GroupBy))
	for i := range a.GroupBy {
		groupCols[i] = fmt.Sprintf("%d", i+1)
	}
	return fmt.Sprintf("SELECT %s FROM %s GROUP BY %s", list, from, strings.Join(groupCols, ", ")), nil
}

func (g *Generator) join(j *expr.Join) (string, error) {
	left, err := g.subquery(j.Left)
	if err != nil {
		return "", err
	}
	right, err := g.subquery(j.Right)
	if err != nil {
		return "", err
	}
	if j.Type == expr.CrossJoin {
		return fmt.Sprintf("SELECT * FROM %s CROSS JOIN %s", left, right), nil
	}
	on, err := g.Expr(j.On)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT * FROM %s %s %s ON %s", left, j.Type, right, on), nil
}

func (g *Generator) window(w *expr.Window) (string, error) {
	from, err := g.subquery(w.Input)
	if err != nil {
		return "", err
	}
	windowList, err := g.selectList(w.WindowExprs)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT *, %s FROM %s", windowList, from), nil
}

func (g *Generator) sort(s *expr.Sort) (string, error) {
	from, err := g.subquery(s.Input)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(s.OrderBy))
	for i, o := range s.OrderBy {
		col, err := g.Expr(o.Expr)
		if err != nil {
			return "", err
		}
		dir := "ASC"
		if !o.Ascending {
			dir = "DESC"
		}
		clause := fmt.Sprintf("%s %s", col, dir)
		if g.Cap.SupportsNullOrdering {
			if o.NullsFirst {
				clause += " NULLS FIRST"
			} else {
				clause += " NULLS LAST"
			}
		}
		parts[i] = clause
	}
	stmt := fmt.Sprintf("SELECT * FROM %s ORDER BY %s", from, strings.Join(parts, ", "))
	if s.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", s.Limit)
	}
	return stmt, nil
}
