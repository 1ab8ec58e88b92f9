package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"campaignledger/internal/domain"
	"campaignledger/pkg/logger"
	"campaignledger/pkg/metrics"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// implements domain.RevenueRepository on sqlx. Amounts are stored as decimal
// strings so sqlite and postgres keep exact values.
type RevenueRepository struct {
	db      *sqlx.DB
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewRevenueRepository(db *sqlx.DB, logger *logger.Logger, metrics *metrics.Metrics) *RevenueRepository {
	return &RevenueRepository{db: db, logger: logger, metrics: metrics}
}

type monthRow struct {
	ID          string `db:"id"`
	Name        string `db:"month_name"`
	Year        int    `db:"year"`
	MonthNumber int    `db:"month_number"`
	LastUpdate  string `db:"last_update"`
}

func (row monthRow) toDomain() domain.Month {
	m := domain.Month{
		ID:          row.ID,
		Name:        row.Name,
		Year:        row.Year,
		MonthNumber: row.MonthNumber,
		Expenses:    []domain.Expense{},
		Revenues:    []domain.Revenue{},
	}
	if d, err := domain.ParseDate(row.LastUpdate); err == nil {
		m.LastUpdate = d
	}
	return m
}

const (
	selectExpenses = `SELECT id, month_id, expense_type, value FROM expenses`
	selectRevenues = `SELECT id, month_id, revenue_type, value, roi, orders FROM revenues`
)

func (r *RevenueRepository) CreateMonth(ctx context.Context, month *domain.Month) error {
	if month.ID == "" {
		month.ID = uuid.New().String()
	}

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count, tx.Rebind(`SELECT COUNT(1) FROM months WHERE month_name = ?`), month.Name); err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateMonth, month.Name)
		}

		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO months (id, month_name, year, month_number, last_update) VALUES (?, ?, ?, ?, ?)`),
			month.ID, month.Name, month.Year, month.MonthNumber, month.LastUpdate.String())
		return err
	})
	return r.wrap(ctx, "create month", err)
}

func (r *RevenueRepository) GetMonth(ctx context.Context, id string) (*domain.Month, error) {
	var row monthRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT id, month_name, year, month_number, last_update FROM months WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("month %s", id)
	}
	if err != nil {
		return nil, r.wrap(ctx, "get month", err)
	}

	month := row.toDomain()
	if err := r.db.SelectContext(ctx, &month.Expenses, r.db.Rebind(selectExpenses+` WHERE month_id = ? ORDER BY seq`), id); err != nil {
		return nil, r.wrap(ctx, "get month expenses", err)
	}
	if err := r.db.SelectContext(ctx, &month.Revenues, r.db.Rebind(selectRevenues+` WHERE month_id = ? ORDER BY seq`), id); err != nil {
		return nil, r.wrap(ctx, "get month revenues", err)
	}
	return &month, nil
}

// ListMonths returns every month with its items, newest first.
func (r *RevenueRepository) ListMonths(ctx context.Context) ([]domain.Month, error) {
	var rows []monthRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, month_name, year, month_number, last_update FROM months ORDER BY year DESC, month_number DESC`); err != nil {
		return nil, r.wrap(ctx, "list months", err)
	}

	var expenses []domain.Expense
	if err := r.db.SelectContext(ctx, &expenses, selectExpenses+` ORDER BY seq`); err != nil {
		return nil, r.wrap(ctx, "list expenses", err)
	}
	var revenues []domain.Revenue
	if err := r.db.SelectContext(ctx, &revenues, selectRevenues+` ORDER BY seq`); err != nil {
		return nil, r.wrap(ctx, "list revenues", err)
	}

	months := make([]domain.Month, len(rows))
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		months[i] = row.toDomain()
		index[row.ID] = i
	}
	for _, e := range expenses {
		if i, ok := index[e.MonthID]; ok {
			months[i].Expenses = append(months[i].Expenses, e)
		}
	}
	for _, rv := range revenues {
		if i, ok := index[rv.MonthID]; ok {
			months[i].Revenues = append(months[i].Revenues, rv)
		}
	}
	return months, nil
}

func (r *RevenueRepository) AddExpense(ctx context.Context, expense *domain.Expense, today domain.Date) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := touchMonth(ctx, tx, expense.MonthID, today); err != nil {
			return err
		}
		seq, err := nextSeq(ctx, tx, "expenses")
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO expenses (id, seq, month_id, expense_type, value) VALUES (?, ?, ?, ?, ?)`),
			expense.ID, seq, expense.MonthID, expense.Type, expense.Value.String())
		return err
	})
	return r.wrap(ctx, "add expense", err)
}

func (r *RevenueRepository) UpdateExpense(ctx context.Context, id string, value decimal.Decimal, today domain.Date) (*domain.Expense, error) {
	var expense domain.Expense
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := getExpense(ctx, tx, id, &expense); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE expenses SET value = ? WHERE id = ?`), value.String(), id); err != nil {
			return err
		}
		expense.Value = value
		return touchMonth(ctx, tx, expense.MonthID, today)
	})
	if err != nil {
		return nil, r.wrap(ctx, "update expense", err)
	}
	return &expense, nil
}

func (r *RevenueRepository) DeleteExpense(ctx context.Context, id string, today domain.Date) (*domain.Expense, error) {
	var expense domain.Expense
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := getExpense(ctx, tx, id, &expense); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM expenses WHERE id = ?`), id); err != nil {
			return err
		}
		return touchMonth(ctx, tx, expense.MonthID, today)
	})
	if err != nil {
		return nil, r.wrap(ctx, "delete expense", err)
	}
	return &expense, nil
}

func (r *RevenueRepository) AddRevenue(ctx context.Context, revenue *domain.Revenue, today domain.Date) error {
	if revenue.ID == "" {
		revenue.ID = uuid.New().String()
	}

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := touchMonth(ctx, tx, revenue.MonthID, today); err != nil {
			return err
		}
		seq, err := nextSeq(ctx, tx, "revenues")
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO revenues (id, seq, month_id, revenue_type, value, roi, orders) VALUES (?, ?, ?, ?, ?, ?, ?)`),
			revenue.ID, seq, revenue.MonthID, revenue.Type, revenue.Value.String(), revenue.ROI.String(), revenue.Orders)
		return err
	})
	return r.wrap(ctx, "add revenue", err)
}

func (r *RevenueRepository) UpdateRevenue(ctx context.Context, id string, value, roi decimal.Decimal, orders int, today domain.Date) (*domain.Revenue, error) {
	var revenue domain.Revenue
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := getRevenue(ctx, tx, id, &revenue); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE revenues SET value = ?, roi = ?, orders = ? WHERE id = ?`),
			value.String(), roi.String(), orders, id); err != nil {
			return err
		}
		revenue.Value, revenue.ROI, revenue.Orders = value, roi, orders
		return touchMonth(ctx, tx, revenue.MonthID, today)
	})
	if err != nil {
		return nil, r.wrap(ctx, "update revenue", err)
	}
	return &revenue, nil
}

func (r *RevenueRepository) DeleteRevenue(ctx context.Context, id string, today domain.Date) (*domain.Revenue, error) {
	var revenue domain.Revenue
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := getRevenue(ctx, tx, id, &revenue); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM revenues WHERE id = ?`), id); err != nil {
			return err
		}
		return touchMonth(ctx, tx, revenue.MonthID, today)
	})
	if err != nil {
		return nil, r.wrap(ctx, "delete revenue", err)
	}
	return &revenue, nil
}

// ExpensesByType sums expenses per type, largest first. Summing happens here
// rather than in SQL because the amounts are text columns.
func (r *RevenueRepository) ExpensesByType(ctx context.Context) ([]domain.TypeTotal, error) {
	var expenses []domain.Expense
	if err := r.db.SelectContext(ctx, &expenses, selectExpenses); err != nil {
		return nil, r.wrap(ctx, "expenses by type", err)
	}
	totals := make(map[string]*domain.TypeTotal)
	for _, e := range expenses {
		addTotal(totals, e.Type, e.Value, 0)
	}
	return sortedTotals(totals), nil
}

// RevenuesByType sums revenues and their orders per type, largest first.
func (r *RevenueRepository) RevenuesByType(ctx context.Context) ([]domain.TypeTotal, error) {
	var revenues []domain.Revenue
	if err := r.db.SelectContext(ctx, &revenues, selectRevenues); err != nil {
		return nil, r.wrap(ctx, "revenues by type", err)
	}
	totals := make(map[string]*domain.TypeTotal)
	for _, rv := range revenues {
		addTotal(totals, rv.Type, rv.Value, rv.Orders)
	}
	return sortedTotals(totals), nil
}

func addTotal(totals map[string]*domain.TypeTotal, typ string, value decimal.Decimal, orders int) {
	t, ok := totals[typ]
	if !ok {
		t = &domain.TypeTotal{Type: typ}
		totals[typ] = t
	}
	t.Total = t.Total.Add(value)
	t.Orders += orders
}

func sortedTotals(totals map[string]*domain.TypeTotal) []domain.TypeTotal {
	out := make([]domain.TypeTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// touchMonth refreshes last_update and reports NotFound for an unknown month.
func touchMonth(ctx context.Context, tx *sqlx.Tx, monthID string, today domain.Date) error {
	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE months SET last_update = ? WHERE id = ?`), today.String(), monthID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundf("month %s", monthID)
	}
	return nil
}

func nextSeq(ctx context.Context, tx *sqlx.Tx, table string) (int64, error) {
	var seq int64
	err := tx.GetContext(ctx, &seq, `SELECT COALESCE(MAX(seq), 0) + 1 FROM `+table)
	return seq, err
}

func getExpense(ctx context.Context, tx *sqlx.Tx, id string, dest *domain.Expense) error {
	err := tx.GetContext(ctx, dest, tx.Rebind(selectExpenses+` WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundf("expense %s", id)
	}
	return err
}

func getRevenue(ctx context.Context, tx *sqlx.Tx, id string, dest *domain.Revenue) error {
	err := tx.GetContext(ctx, dest, tx.Rebind(selectRevenues+` WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundf("revenue %s", id)
	}
	return err
}

// wrap passes ledger errors through and turns driver errors into
// ErrPersistence.
func (r *RevenueRepository) wrap(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrDuplicateName) {
		return err
	}
	r.metrics.RecordPersistenceFailure("revenue_db")
	r.logger.WithContext(ctx).WithError(err).WithField("operation", op).Error("Revenue database operation failed")
	return fmt.Errorf("%w: failed to %s: %v", domain.ErrPersistence, op, err)
}
