package service

import (
	"fmt"
	"strings"

	"moonbounce/internal/domain"
	"moonbounce/internal/mailer"
)

func (s *ReminderService) buildMessage(order *domain.Order, tier domain.ReminderTier, signingURL string) mailer.Message {
	switch tier {
	case domain.TierNormal:
		return s.reminderMessage(order, signingURL,
			fmt.Sprintf("Reminder: please sign your rental agreement for order #%d", order.ID),
			"Your rental agreement is still waiting for a signature. We can't deliver until it's signed, so please take a minute to complete it.")
	case domain.TierUrgent:
		return s.reminderMessage(order, signingURL,
			fmt.Sprintf("Urgent: unsigned rental agreement for order #%d", order.ID),
			"Your delivery is coming up soon and your rental agreement is still unsigned. Please sign it today to keep your delivery on schedule.")
	case domain.TierCritical:
		return s.reminderMessage(order, signingURL,
			fmt.Sprintf("FINAL NOTICE: order #%d delivery at risk", order.ID),
			"This is our final notice: your delivery is only hours away and the rental agreement is still unsigned. Without a signature we will have to cancel the delivery. Please sign immediately, or call us right now so we can help.")
	default:
		return s.reminderMessage(order, signingURL,
			fmt.Sprintf("Please sign your rental agreement for order #%d", order.ID),
			"Thanks for booking with us! Before we can deliver, we need your signature on the rental agreement below. It only takes a minute.")
	}
}

func (s *ReminderService) reminderMessage(order *domain.Order, signingURL, subject, lead string) mailer.Message {
	var text strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\n%s\n\n", order.CustomerName, lead)
	fmt.Fprintf(&text, "Sign here: %s\n\n", signingURL)
	writeOrderSummary(&text, order)
	text.WriteString("\nThank you,\nThe Moonbounce Rentals Team\n")

	html := fmt.Sprintf(
		`<p>Hi %s,</p><p>%s</p><p><a href="%s">Review and sign your rental agreement</a></p><p>%s</p><p>Thank you,<br>The Moonbounce Rentals Team</p>`,
		order.CustomerName, lead, signingURL, htmlOrderSummary(order))

	return mailer.Message{
		From:    s.mailCfg.From,
		To:      order.CustomerEmail,
		ReplyTo: s.mailCfg.ReplyTo,
		Subject: subject,
		Text:    text.String(),
		HTML:    html,
	}
}

func (s *ReminderService) confirmationMessage(order *domain.Order) mailer.Message {
	var text strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\n", order.CustomerName)
	text.WriteString("We've received your signed rental agreement — you're all set! Your delivery is confirmed.\n\n")
	writeOrderSummary(&text, order)
	text.WriteString("\nSee you soon,\nThe Moonbounce Rentals Team\n")

	html := fmt.Sprintf(
		`<p>Hi %s,</p><p>We've received your signed rental agreement — you're all set! Your delivery is confirmed.</p><p>%s</p><p>See you soon,<br>The Moonbounce Rentals Team</p>`,
		order.CustomerName, htmlOrderSummary(order))

	return mailer.Message{
		From:    s.mailCfg.From,
		To:      order.CustomerEmail,
		ReplyTo: s.mailCfg.ReplyTo,
		Subject: fmt.Sprintf("Agreement signed — order #%d is confirmed", order.ID),
		Text:    text.String(),
		HTML:    html,
	}
}

func writeOrderSummary(b *strings.Builder, order *domain.Order) {
	fmt.Fprintf(b, "Order #%d\n", order.ID)
	if order.DeliveryDate != nil {
		fmt.Fprintf(b, "Delivery: %s\n", order.DeliveryDate.Format("Monday, January 2 at 3:04 PM"))
	}
	for _, item := range order.Items {
		fmt.Fprintf(b, "  %dx %s\n", item.Quantity, item.Name)
	}
	fmt.Fprintf(b, "Total: $%.2f\n", order.TotalAmount)
}

func htmlOrderSummary(order *domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order #%d", order.ID)
	if order.DeliveryDate != nil {
		fmt.Fprintf(&b, " &mdash; delivery %s", order.DeliveryDate.Format("Monday, January 2 at 3:04 PM"))
	}
	b.WriteString("<ul>")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "<li>%dx %s</li>", item.Quantity, item.Name)
	}
	b.WriteString("</ul>")
	fmt.Fprintf(&b, "Total: $%.2f", order.TotalAmount)
	return b.String()
}
