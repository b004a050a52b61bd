package service

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"flowershop/internal/events"
	"flowershop/internal/models"
)

const (
	dateFormat     = "02.01.2006"
	dateTimeFormat = "02.01.2006 15:04"
)

var esc = html.EscapeString

func newOrderMessage(p events.OrderEventPayload) string {
	return fmt.Sprintf(
		"🛒 Новый заказ #%d\nКлиент: %s\nТелефон: %s\nБукет: %s\nАдрес: %s",
		p.OrderID, esc(p.CustomerName), esc(p.CustomerPhone), esc(p.ProductName), esc(p.Address),
	)
}

func newConsultationMessage(p events.ConsultationEventPayload) string {
	return fmt.Sprintf(
		"📞 Новая заявка на консультацию\nКлиент: %s\nТелефон: %s\nВремя: %s",
		esc(p.UserName), esc(p.Phone), p.CreatedAt.Format(dateTimeFormat),
	)
}

func managerGreeting(name, body string) string {
	return fmt.Sprintf("👋 %s, у вас новое уведомление!\n\n%s", esc(name), body)
}

func courierMessage(order *models.Order, courier *models.ShopUser) string {
	var customerName, customerPhone string
	if order.Customer != nil {
		customerName = order.Customer.FullName
		customerPhone = order.Customer.Phone
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👋 %s, у вас новый заказ на доставку!\n\n", esc(courier.FullName))
	fmt.Fprintf(&b, "🚚 Заказ #%d готов к доставке!\n", order.ID)
	fmt.Fprintf(&b, "Клиент: %s\n", esc(customerName))
	fmt.Fprintf(&b, "Телефон: %s\n", esc(customerPhone))
	fmt.Fprintf(&b, "Букет: %s\n", esc(order.ProductName))
	fmt.Fprintf(&b, "Адрес: %s\n", esc(order.DeliveryAddress))
	if !order.DeliveryDate.IsZero() {
		fmt.Fprintf(&b, "Дата: %s\n", order.DeliveryDate.Format(dateFormat))
	}
	switch {
	case order.IsExpress:
		b.WriteString("⚡ СРОЧНАЯ доставка!")
	case order.DeliveryTimeFrom != nil && order.DeliveryTimeTo != nil:
		fmt.Fprintf(&b, "Время: с %s до %s", order.DeliveryTimeFrom, order.DeliveryTimeTo)
	}
	return b.String()
}

func handoffMessage(order *models.Order, courier *models.ShopUser) string {
	var customerName string
	if order.Customer != nil {
		customerName = order.Customer.FullName
	}
	return fmt.Sprintf(
		"📋 Заказ #%d передан в доставку\nДоставщик: %s\nКлиент: %s\nБукет: %s",
		order.ID, esc(courier.FullName), esc(customerName), esc(order.ProductName),
	)
}

func staleConsultationsMessage(list []*models.Consultation, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ Необработанные заявки на консультацию: %d\n", len(list))
	for _, c := range list {
		var name, phone string
		if c.User != nil {
			name = c.User.FullName
			phone = c.User.Phone
		}
		waiting := now.Sub(c.CreatedAt).Truncate(time.Minute)
		fmt.Fprintf(&b, "\n#%d %s, %s (ждёт %d мин.)", c.ID, esc(name), esc(phone), int(waiting.Minutes()))
	}
	return b.String()
}

// Сообщения для администратора после назначения доставщика.

func assignedMessage(orderID int64, courierName string) string {
	return fmt.Sprintf("Заказ №%d назначен на доставщика %s и переведен в статус '%s'",
		orderID, courierName, models.OrderInDelivery.Title())
}

const (
	msgCourierNotified   = "Уведомление отправлено доставщику."
	msgCourierSendFailed = "Не удалось отправить уведомление доставщику."
	msgNoOrderSelected   = "Не указан заказ или доставщик"
	msgSelectOneOrder    = "Выберите ровно один заказ для назначения доставщика"
	msgInvalidPhone      = "укажите телефон полностью"
)

func courierNoTelegramMessage(courierName string) string {
	return fmt.Sprintf("У доставщика %s не указан Telegram ID. Уведомление не отправлено!", courierName)
}

func alreadyAssignedMessage(orderID int64, courierName string) string {
	return fmt.Sprintf("Заказ №%d уже в доставке у доставщика %s", orderID, courierName)
}

func terminalOrderMessage(orderID int64, status models.OrderStatus) string {
	return fmt.Sprintf("Заказ №%d уже в статусе '%s' и не может быть передан в доставку", orderID, status.Title())
}

func managersNotifiedMessage(sent, total int) string {
	return fmt.Sprintf("Менеджеры уведомлены: %d из %d", sent, total)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func statusChangedMessage(p events.OrderEventPayload) string {
	return fmt.Sprintf("📦 Заказ #%d: %s → %s",
		p.OrderID, models.OrderStatus(p.PrevStatus).Title(), models.OrderStatus(p.Status).Title())
}
