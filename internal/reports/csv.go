package reports

import (
	"encoding/csv"
	"io"
	"strconv"

	"salesservice/internal/domain"
)

// DateLayout formats order dates in report rows.
const DateLayout = "2006-01-02 15:04:05"

// Header is the fixed first line of every report.
var Header = []string{
	"Customer Name",
	"Customer Email",
	"Customer Phone",
	"Order ID",
	"Order Date",
	"Order Total",
	"Order Status",
	"Product Name",
	"Quantity",
	"Unit Price",
	"Line Total",
}

// WriteCSV writes the header followed by one record per row. Fields holding
// a comma, quote or line break are quoted with inner quotes doubled.
func WriteCSV(w io.Writer, rows []domain.ReportDataRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		phone := ""
		if r.CustomerPhone != nil {
			phone = *r.CustomerPhone
		}
		record := []string{
			r.CustomerName,
			r.CustomerEmail,
			phone,
			r.OrderID.String(),
			r.OrderDate.Format(DateLayout),
			r.OrderTotal.StringFixed(2),
			r.OrderStatus.String(),
			r.ProductName,
			strconv.Itoa(r.Quantity),
			r.UnitPrice.StringFixed(2),
			r.LineTotal.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
