package export

import (
	"fmt"
	"io"
	"time"

	"flowershop/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Заказы"

var headers = []string{
	"№", "Дата доставки", "Время", "Статус", "Клиент", "Телефон",
	"Адрес", "Букет", "Цена", "Доставщик", "Комментарий",
}

var statusColors = map[models.OrderStatus]string{
	models.OrderCreated:    "#FFFFFF",
	models.OrderInWork:     "#FFEB9C",
	models.OrderInDelivery: "#DDEBF7",
	models.OrderDelivered:  "#C6EFCE",
	models.OrderCancelled:  "#FFC7CE",
}

// WriteOrders renders orders as an xlsx workbook to w. from and to only label the period.
func WriteOrders(w io.Writer, orders []*models.Order, from, to time.Time) error {
	f, err := buildWorkbook(orders, from, to)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// FileName returns the download name for a period.
func FileName(from, to time.Time) string {
	if from.IsZero() || to.IsZero() {
		return "orders.xlsx"
	}
	return fmt.Sprintf("orders_%s_to_%s.xlsx", from.Format(models.DateLayout), to.Format(models.DateLayout))
}

func buildWorkbook(orders []*models.Order, from, to time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	// Заголовок периода
	_ = f.SetCellValue(sheetName, "A1", periodTitle(from, to))
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	styles := make(map[models.OrderStatus]int)
	for status, color := range statusColors {
		style, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		})
		if err == nil {
			styles[status] = style
		}
	}

	for i, o := range orders {
		row := i + 3
		values := orderRow(o)
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
		if style, ok := styles[o.Status]; ok {
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(headers), row)
			_ = f.SetCellStyle(sheetName, first, last, style)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 8)
	_ = f.SetColWidth(sheetName, "B", "D", 16)
	_ = f.SetColWidth(sheetName, "E", lastCol, 25)

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

func periodTitle(from, to time.Time) string {
	if from.IsZero() || to.IsZero() {
		return "Все заказы"
	}
	return fmt.Sprintf("Период: %s - %s", from.Format("02.01.2006"), to.Format("02.01.2006"))
}

func orderRow(o *models.Order) []interface{} {
	var customer, phone, courier string
	if o.Customer != nil {
		customer = o.Customer.FullName
		phone = o.Customer.Phone
	}
	if o.Courier != nil {
		courier = o.Courier.FullName
	}

	return []interface{}{
		o.ID,
		o.DeliveryDate.Format("02.01.2006"),
		deliveryWindow(o),
		o.Status.Title(),
		customer,
		phone,
		o.DeliveryAddress,
		o.ProductName,
		o.ProductPrice.StringFixed(2),
		courier,
		o.Comment,
	}
}

func deliveryWindow(o *models.Order) string {
	if o.IsExpress {
		return "Срочная"
	}
	if o.DeliveryTimeFrom != nil && o.DeliveryTimeTo != nil {
		return fmt.Sprintf("%s - %s", o.DeliveryTimeFrom, o.DeliveryTimeTo)
	}
	return ""
}
