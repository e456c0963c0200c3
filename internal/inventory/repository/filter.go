package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
)

// predicate collects WHERE conditions with positional ($n) arguments so that
// every filter is built from typed fields rather than ad-hoc maps.
type predicate struct {
	conds []string
	args  []interface{}
}

func (p *predicate) add(cond string, arg interface{}) {
	p.args = append(p.args, arg)
	p.conds = append(p.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(p.args))))
}

func (p *predicate) eq(column string, v string) {
	p.add(column+" = ?", v)
}

// optionalEq filters on column only when v is set.
func (p *predicate) optionalEq(column string, v *string) {
	if v != nil {
		p.eq(column, *v)
	}
}

// nullableEq matches v exactly, treating nil as SQL NULL.
func (p *predicate) nullableEq(column string, v *string) {
	if v == nil {
		p.conds = append(p.conds, column+" IS NULL")
		return
	}
	p.add(column+" IS NOT DISTINCT FROM ?", *v)
}

func (p *predicate) raw(cond string) {
	p.conds = append(p.conds, cond)
}

func (p *predicate) since(column string, t *time.Time) {
	if t != nil {
		p.add(column+" >= ?", *t)
	}
}

func (p *predicate) until(column string, t *time.Time) {
	if t != nil {
		p.add(column+" < ?", *t)
	}
}

func (p *predicate) where() string {
	if len(p.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.conds, " AND ")
}

// page appends LIMIT/OFFSET placeholders. Page is 1-based.
func (p *predicate) page(page, pageSize int) string {
	if pageSize <= 0 {
		return ""
	}
	if page < 1 {
		page = 1
	}
	p.args = append(p.args, pageSize, (page-1)*pageSize)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(p.args)-1, len(p.args))
}

func stockPredicate(f *dto.StockFilter) *predicate {
	p := &predicate{}
	if f.ProductID != "" {
		p.eq("product_id", f.ProductID)
	}
	p.optionalEq("variant_id", f.VariantID)
	p.optionalEq("batch_number", f.BatchNumber)
	p.optionalEq("location", f.Location)
	if f.OnlyInStock {
		p.raw("quantity > 0")
	}
	return p
}

func movementPredicate(f *dto.MovementFilter) *predicate {
	p := &predicate{}
	if f.ProductID != "" {
		p.eq("product_id", f.ProductID)
	}
	if f.InventoryID != "" {
		p.eq("inventory_id", f.InventoryID)
	}
	if f.OperationType != "" {
		p.eq("operation_type", string(f.OperationType))
	}
	if f.OperatorID != "" {
		p.eq("operator_id", f.OperatorID)
	}
	p.since("created_at", f.StartDate)
	p.until("created_at", f.EndDate)
	return p
}

func candidatePredicate(f *dto.CandidateFilter) *predicate {
	p := &predicate{}
	p.eq("product_id", f.ProductID)
	p.nullableEq("variant_id", f.VariantID)
	p.optionalEq("batch_number", f.BatchNumber)
	p.optionalEq("location", f.Location)
	return p
}

func candidateOrder(o dto.PickOrder) string {
	if o == dto.PickOldestReceived {
		return " ORDER BY created_at ASC, updated_at ASC, id ASC"
	}
	return " ORDER BY updated_at ASC, created_at ASC, id ASC"
}
