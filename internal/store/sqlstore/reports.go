package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"salesservice/internal/domain"
)

const reportQuery = `
	SELECT c.name, c.email, c.phone,
	       o.order_id, o.order_date, o.total_amount, o.status,
	       s.product_name, s.quantity, s.unit_price, s.total_price
	FROM sales s
	JOIN orders o ON o.order_id = s.order_id
	JOIN customers c ON c.customer_id = o.customer_id
	WHERE s.created_at >= ? AND s.created_at <= ?
	ORDER BY c.name, o.order_date, s.created_at, s.sale_id`

// SalesReportRows returns sales created within [start, end] joined with
// their order and customer, ordered by customer name then order date.
func (s *Store) SalesReportRows(ctx context.Context, start, end time.Time) ([]domain.ReportDataRow, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(reportQuery), timeArg(s.dialect, start), timeArg(s.dialect, end))
	if err != nil {
		return nil, wrapErr("query report rows", err)
	}
	defer rows.Close()

	var out []domain.ReportDataRow
	for rows.Next() {
		var (
			r     domain.ReportDataRow
			phone sql.NullString
		)
		if err := rows.Scan(
			&r.CustomerName, &r.CustomerEmail, &phone,
			&r.OrderID, &r.OrderDate, &r.OrderTotal, &r.OrderStatus,
			&r.ProductName, &r.Quantity, &r.UnitPrice, &r.LineTotal,
		); err != nil {
			return nil, wrapErr("scan report row", err)
		}
		r.CustomerPhone = stringPtr(phone)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("query report rows", err)
	}
	return out, nil
}
