package reports

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"salesservice/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOrderID = uuid.MustParse("3f2504e0-4f89-11d3-9a0c-0305e82c3301")

func row(name, product string) domain.ReportDataRow {
	return domain.ReportDataRow{
		CustomerName:  name,
		CustomerEmail: "customer@example.com",
		OrderID:       testOrderID,
		OrderDate:     time.Date(2025, 1, 5, 9, 30, 0, 0, time.UTC),
		OrderTotal:    decimal.RequireFromString("110"),
		OrderStatus:   domain.StatusPending,
		ProductName:   product,
		Quantity:      5,
		UnitPrice:     decimal.RequireFromString("10"),
		LineTotal:     decimal.RequireFromString("50.5"),
	}
}

func TestWriteCSVHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	assert.Equal(t,
		"Customer Name,Customer Email,Customer Phone,Order ID,Order Date,Order Total,Order Status,Product Name,Quantity,Unit Price,Line Total\n",
		buf.String())
}

func TestWriteCSVRow(t *testing.T) {
	phone := "555-0100"
	r := row("Ada Lovelace", "Widget")
	r.CustomerPhone = &phone

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []domain.ReportDataRow{r}))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		"Ada Lovelace,customer@example.com,555-0100,3f2504e0-4f89-11d3-9a0c-0305e82c3301,2025-01-05 09:30:00,110.00,Pending,Widget,5,10.00,50.50",
		lines[1])
}

func TestWriteCSVEscaping(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "plain", value: "Widget", want: "Widget"},
		{name: "comma", value: "Smith, John", want: `"Smith, John"`},
		{name: "quote", value: `The "Best" Widget`, want: `"The ""Best"" Widget"`},
		{name: "newline", value: "two\nlines", want: "\"two\nlines\""},
		{name: "carriage return", value: "two\rlines", want: "\"two\rlines\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteCSV(&buf, []domain.ReportDataRow{row("Ada", tt.value)}))

			body := strings.TrimPrefix(buf.String(), strings.Join(Header, ",")+"\n")
			assert.Contains(t, body, ",Pending,"+tt.want+",5,10.00,50.50")
		})
	}
}

func TestWriteCSVMissingPhoneIsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []domain.ReportDataRow{row("Ada", "Widget")}))
	assert.Contains(t, buf.String(), "Ada,customer@example.com,,3f2504e0")
}
