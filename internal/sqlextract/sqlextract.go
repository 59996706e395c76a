// Package sqlextract recovers, from a parsed statement, the WHERE and
// JOIN conditions a naive left-to-right optimizer would consider, tagged
// with their position in traversal order. It cares only about predicate
// shape, never about DDL/DML classification.
package sqlextract

import (
	"strings"
	"sync"

	"vitess.io/vitess/go/vt/sqlparser"
)

var (
	parserOnce   sync.Once
	globalParser *sqlparser.Parser
	globalErr    error
)

func getParser() (*sqlparser.Parser, error) {
	parserOnce.Do(func() {
		globalParser, globalErr = sqlparser.New(sqlparser.Options{})
	})
	return globalParser, globalErr
}

// Parse parses sql into a sqlparser.Statement using the package-wide
// parser instance.
func Parse(sql string) (sqlparser.Statement, error) {
	p, err := getParser()
	if err != nil {
		return nil, err
	}
	return p.Parse(strings.TrimRight(strings.TrimSpace(sql), ";"))
}

// Operator is the comparison form a WHERE leaf uses.
type Operator string

const (
	OpEQ         Operator = "="
	OpLT         Operator = "<"
	OpGT         Operator = ">"
	OpLE         Operator = "<="
	OpGE         Operator = ">="
	OpNE         Operator = "<>"
	OpBetween    Operator = "BETWEEN"
	OpIn         Operator = "IN"
	OpIsNull     Operator = "IS NULL"
	OpIsNotNull  Operator = "IS NOT NULL"
)

// WhereCondition is one WHERE-tree leaf, minus cardinality (queryanalysis
// attaches that after consulting the Cardinality Oracle).
type WhereCondition struct {
	TableName    string
	ColumnName   string
	Operator     Operator
	Position     int
	ParameterRef string // empty if the leaf wasn't a bind parameter
}

// JoinCondition is one explicit JOIN ON equality.
type JoinCondition struct {
	LeftTable   string
	LeftColumn  string
	RightTable  string
	RightColumn string
	Operator    Operator
	Position    int
}

// aliasMap maps a table alias (or bare table name) to its real table name.
type aliasMap map[string]string

func (m aliasMap) resolve(name string) string {
	if real, ok := m[strings.ToLower(name)]; ok {
		return real
	}
	return name
}

// Extract walks stmt and returns its WHERE and JOIN conditions in
// traversal order. primaryTable is the fallback table name used when a
// leaf's column has no qualifier and the alias map can't disambiguate
// (fallback: the primary table of the statement; inside a single-table
// subquery, that subquery's table).
func Extract(stmt sqlparser.Statement, primaryTable string) ([]WhereCondition, []JoinCondition) {
	var wheres []WhereCondition
	var joins []JoinCondition
	pos := 0
	jpos := 0
	extractStatement(stmt, primaryTable, &wheres, &joins, &pos, &jpos)
	return wheres, joins
}

func extractStatement(stmt sqlparser.Statement, primaryTable string, wheres *[]WhereCondition, joins *[]JoinCondition, pos, jpos *int) {
	switch s := stmt.(type) {
	case sqlparser.SelectStatement:
		extractSelectStatement(s, primaryTable, wheres, joins, pos, jpos)
	case *sqlparser.Update:
		am := buildAliasMap(s.TableExprs, primaryTable)
		extractWhereTree(s.Where, primaryTable, am, wheres, pos)
	case *sqlparser.Delete:
		am := buildAliasMap(s.TableExprs, primaryTable)
		extractWhereTree(s.Where, primaryTable, am, wheres, pos)
	}
}

// extractSelectStatement descends into every branch of a select tree:
// plain selects and both arms of a set operation.
func extractSelectStatement(ss sqlparser.SelectStatement, primaryTable string, wheres *[]WhereCondition, joins *[]JoinCondition, pos, jpos *int) {
	switch s := ss.(type) {
	case *sqlparser.Select:
		extractSelect(s, primaryTable, wheres, joins, pos, jpos)
	case *sqlparser.Union:
		extractSelectStatement(s.Left, primaryTable, wheres, joins, pos, jpos)
		extractSelectStatement(s.Right, primaryTable, wheres, joins, pos, jpos)
	}
}

func extractSelect(sel *sqlparser.Select, primaryTable string, wheres *[]WhereCondition, joins *[]JoinCondition, pos, jpos *int) {
	am := buildAliasMap(sel.From, primaryTable)
	for _, te := range sel.From {
		extractJoins(te, am, joins, jpos)
	}
	extractWhereTree(sel.Where, primaryTable, am, wheres, pos)

	// subqueries inside WHERE are appended after the outer conditions
	// (conditions of inner selects are appended after the
	// outer ones").
	if sel.Where != nil {
		walkSubqueries(sel.Where.Expr, primaryTable, wheres, joins, pos, jpos)
	}
}

// buildAliasMap resolves each introduced alias (or bare table name) to its
// real table name, including nested joins and parenthesised table exprs.
func buildAliasMap(exprs sqlparser.TableExprs, primaryTable string) aliasMap {
	am := aliasMap{}
	var walk func(te sqlparser.TableExpr)
	walk = func(te sqlparser.TableExpr) {
		switch t := te.(type) {
		case *sqlparser.AliasedTableExpr:
			if tn, ok := t.Expr.(sqlparser.TableName); ok {
				real := tn.Name.String()
				key := real
				if !t.As.IsEmpty() {
					key = t.As.String()
				}
				am[strings.ToLower(key)] = real
				am[strings.ToLower(real)] = real
			}
		case *sqlparser.JoinTableExpr:
			walk(t.LeftExpr)
			walk(t.RightExpr)
		case *sqlparser.ParenTableExpr:
			for _, inner := range t.Exprs {
				walk(inner)
			}
		}
	}
	for _, te := range exprs {
		walk(te)
	}
	if primaryTable != "" {
		am[strings.ToLower(primaryTable)] = primaryTable
	}
	return am
}

// extractJoins walks a FROM-clause tree for explicit JOIN ON conditions.
// Cross joins (no ON/USING) produce nothing.
func extractJoins(te sqlparser.TableExpr, am aliasMap, joins *[]JoinCondition, jpos *int) {
	jt, ok := te.(*sqlparser.JoinTableExpr)
	if !ok {
		return
	}
	extractJoins(jt.LeftExpr, am, joins, jpos)
	extractJoins(jt.RightExpr, am, joins, jpos)

	introduced := introducedTables(jt.RightExpr, am)
	if jt.Condition.On != nil {
		collectJoinLeaves(jt.Condition.On, am, introduced, joins, jpos)
	}
}

func introducedTables(te sqlparser.TableExpr, am aliasMap) map[string]bool {
	out := map[string]bool{}
	switch t := te.(type) {
	case *sqlparser.AliasedTableExpr:
		if tn, ok := t.Expr.(sqlparser.TableName); ok {
			out[strings.ToLower(tn.Name.String())] = true
		}
		if !t.As.IsEmpty() {
			out[strings.ToLower(t.As.String())] = true
		}
	case *sqlparser.JoinTableExpr:
		for k := range introducedTables(t.LeftExpr, am) {
			out[k] = true
		}
		for k := range introducedTables(t.RightExpr, am) {
			out[k] = true
		}
	}
	return out
}

func collectJoinLeaves(expr sqlparser.Expr, am aliasMap, introduced map[string]bool, joins *[]JoinCondition, jpos *int) {
	switch e := expr.(type) {
	case *sqlparser.AndExpr:
		collectJoinLeaves(e.Left, am, introduced, joins, jpos)
		collectJoinLeaves(e.Right, am, introduced, joins, jpos)
	case *sqlparser.ComparisonExpr:
		lCol, lTable, lok := columnRef(e.Left, am)
		rCol, rTable, rok := columnRef(e.Right, am)
		if !lok || !rok {
			return
		}
		op := comparisonOperator(e.Operator)
		// the side referring to an already-introduced table is "left"; the
		// new probe side is "right".
		if introduced[strings.ToLower(lTable)] && !introduced[strings.ToLower(rTable)] {
			lCol, lTable, rCol, rTable = rCol, rTable, lCol, lTable
		}
		*joins = append(*joins, JoinCondition{
			LeftTable: lTable, LeftColumn: lCol,
			RightTable: rTable, RightColumn: rCol,
			Operator: op, Position: *jpos,
		})
		*jpos++
	}
}

// extractWhereTree performs an AND-left-first, in-order traversal,
// assigning positions as it descends.
func extractWhereTree(where *sqlparser.Where, primaryTable string, am aliasMap, wheres *[]WhereCondition, pos *int) {
	if where == nil {
		return
	}
	walkWhereExpr(where.Expr, primaryTable, am, wheres, pos)
}

func walkWhereExpr(expr sqlparser.Expr, primaryTable string, am aliasMap, wheres *[]WhereCondition, pos *int) {
	switch e := expr.(type) {
	case *sqlparser.AndExpr:
		walkWhereExpr(e.Left, primaryTable, am, wheres, pos)
		walkWhereExpr(e.Right, primaryTable, am, wheres, pos)
	case *sqlparser.OrExpr:
		walkWhereExpr(e.Left, primaryTable, am, wheres, pos)
		walkWhereExpr(e.Right, primaryTable, am, wheres, pos)
	case *sqlparser.ComparisonExpr:
		col, table, ok := columnRef(e.Left, am)
		if !ok {
			col, table, ok = columnRef(e.Right, am)
		}
		if !ok {
			return
		}
		if table == "" {
			table = primaryTable
		}
		op := comparisonOperator(e.Operator)
		*wheres = append(*wheres, WhereCondition{
			TableName:    table,
			ColumnName:   col,
			Operator:     op,
			Position:     *pos,
			ParameterRef: parameterRef(e.Right),
		})
		*pos++
	case *sqlparser.BetweenExpr:
		col, table, ok := columnRef(e.Left, am)
		if !ok {
			return
		}
		if table == "" {
			table = primaryTable
		}
		*wheres = append(*wheres, WhereCondition{
			TableName: table, ColumnName: col, Operator: OpBetween, Position: *pos,
		})
		*pos++
	case *sqlparser.IsExpr:
		col, table, ok := columnRef(e.Left, am)
		if !ok {
			return
		}
		if table == "" {
			table = primaryTable
		}
		op := OpIsNull
		switch e.Right {
		case sqlparser.IsNotNullOp, sqlparser.IsNotTrueOp, sqlparser.IsNotFalseOp:
			op = OpIsNotNull
		}
		*wheres = append(*wheres, WhereCondition{
			TableName: table, ColumnName: col, Operator: op, Position: *pos,
		})
		*pos++
	}
}

// walkSubqueries recurses into any Subquery nodes reachable from expr,
// appending their conditions after the outer ones.
func walkSubqueries(expr sqlparser.Expr, primaryTable string, wheres *[]WhereCondition, joins *[]JoinCondition, pos, jpos *int) {
	switch e := expr.(type) {
	case *sqlparser.AndExpr:
		walkSubqueries(e.Left, primaryTable, wheres, joins, pos, jpos)
		walkSubqueries(e.Right, primaryTable, wheres, joins, pos, jpos)
	case *sqlparser.OrExpr:
		walkSubqueries(e.Left, primaryTable, wheres, joins, pos, jpos)
		walkSubqueries(e.Right, primaryTable, wheres, joins, pos, jpos)
	case *sqlparser.ComparisonExpr:
		if sub, ok := e.Right.(*sqlparser.Subquery); ok {
			extractSubquerySelect(sub, primaryTable, wheres, joins, pos, jpos)
		}
	case *sqlparser.Subquery:
		extractSubquerySelect(e, primaryTable, wheres, joins, pos, jpos)
	}
}

func extractSubquerySelect(sub *sqlparser.Subquery, primaryTable string, wheres *[]WhereCondition, joins *[]JoinCondition, pos, jpos *int) {
	// Unqualified columns of a single-table subquery belong to that table.
	if sel, ok := sub.Select.(*sqlparser.Select); ok && len(sel.From) == 1 {
		if ate, ok := sel.From[0].(*sqlparser.AliasedTableExpr); ok {
			if tn, ok := ate.Expr.(sqlparser.TableName); ok {
				primaryTable = tn.Name.String()
			}
		}
	}
	extractSelectStatement(sub.Select, primaryTable, wheres, joins, pos, jpos)
}

// columnRef resolves a column expression to (column, table), stripping a
// trailing alias prefix and consulting the alias map. Returns ok=false for
// anything that isn't a simple column reference.
func columnRef(expr sqlparser.Expr, am aliasMap) (column, table string, ok bool) {
	col, isCol := expr.(*sqlparser.ColName)
	if !isCol {
		return "", "", false
	}
	column = col.Name.String()
	if !col.Qualifier.IsEmpty() {
		table = am.resolve(col.Qualifier.Name.String())
	}
	return column, table, true
}

func parameterRef(expr sqlparser.Expr) string {
	if a, ok := expr.(*sqlparser.Argument); ok {
		return a.Name
	}
	return ""
}

func comparisonOperator(op sqlparser.ComparisonExprOperator) Operator {
	switch op {
	case sqlparser.LessThanOp:
		return OpLT
	case sqlparser.GreaterThanOp:
		return OpGT
	case sqlparser.LessEqualOp:
		return OpLE
	case sqlparser.GreaterEqualOp:
		return OpGE
	case sqlparser.NotEqualOp:
		return OpNE
	case sqlparser.InOp:
		return OpIn
	default:
		return OpEQ
	}
}

// ExtractWhereText returns the literal WHERE text from the first select
// containing one, or the update/delete WHERE; used only for human reports
// Used only for human reports.
func ExtractWhereText(stmt sqlparser.Statement) string {
	switch s := stmt.(type) {
	case *sqlparser.Select:
		if s.Where != nil {
			return sqlparser.String(s.Where.Expr)
		}
	case *sqlparser.Update:
		if s.Where != nil {
			return sqlparser.String(s.Where.Expr)
		}
	case *sqlparser.Delete:
		if s.Where != nil {
			return sqlparser.String(s.Where.Expr)
		}
	case *sqlparser.Union:
		if t := ExtractWhereText(s.Left); t != "" {
			return t
		}
		return ExtractWhereText(s.Right)
	}
	return ""
}
