package domain

import (
	"fmt"
	"strings"
	"time"
)

// NormalizePhoneWhatsApp converts an Argentine phone number into the digit
// form WhatsApp expects (549 + area + number). Returns "" when there are no
// digits to work with.
func NormalizePhoneWhatsApp(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}

	if strings.HasPrefix(digits, "54") {
		return digits
	}
	// Common local format (area + number, 10 digits).
	if len(digits) == 10 {
		return "549" + digits
	}
	// Leading trunk zero.
	if strings.HasPrefix(digits, "0") {
		d := digits[1:]
		if strings.HasPrefix(d, "54") {
			return d
		}
		if len(d) == 10 {
			return "549" + d
		}
		return "54" + d
	}
	return "54" + digits
}

// VehicleLabel renders the "model version (year)" fragment used in reminders.
func (c *Credit) VehicleLabel() string {
	if c == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	if c.VehicleModel != "" {
		parts = append(parts, c.VehicleModel)
	}
	if c.VehicleVersion != "" {
		parts = append(parts, c.VehicleVersion)
	}
	label := strings.Join(parts, " ")
	if c.VehicleYear > 0 {
		label = strings.TrimSpace(fmt.Sprintf("%s %d", label, c.VehicleYear))
	}
	return label
}

// BuildReminderMessage renders the installment reminder sent to a credit
// client. The schedule must come from ComputeSchedule against the same now.
func BuildReminderMessage(c *Credit, s *CreditSchedule) string {
	if c == nil || s == nil {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hola %s!\n", c.ClientName)
	if label := c.VehicleLabel(); label != "" {
		fmt.Fprintf(&sb, "Te escribo para recordarte tu crédito (%s).\n\n", label)
	} else {
		sb.WriteString("Te escribo para recordarte tu crédito.\n\n")
	}
	fmt.Fprintf(&sb, "• Cuota: $%.0f\n", c.InstallmentAmt)
	fmt.Fprintf(&sb, "• Próximo vencimiento: %s (día %d)\n", s.NextDue.Format("02/01/2006"), s.NextDue.Day())
	fmt.Fprintf(&sb, "• %s\n", remainingLabel(s.Remaining))
	fmt.Fprintf(&sb, "• Finaliza aprox: %s\n\n", s.LastDue.Format("01/2006"))
	sb.WriteString("¿Querés que coordinemos el pago?")
	return sb.String()
}

func remainingLabel(remaining int) string {
	if remaining == 1 {
		return "1 cuota restante"
	}
	return fmt.Sprintf("%d cuotas restantes", remaining)
}

// FormatDueDate renders a due date for list rows and reminders.
func FormatDueDate(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("02/01/2006")
}
