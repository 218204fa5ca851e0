package service

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
)

var reminderHeaders = map[string]string{
	"X-Priority":        "1",
	"X-MSMail-Priority": "High",
	"Importance":        "High",
}

var reminderTemplate = template.Must(template.New("reminder").Parse(`
<div style="font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 8px; overflow: hidden; border: 1px solid #e2e8f0;">
  <div style="background-color: {{.HeaderColor}}; padding: 20px; text-align: center;">
    <h1 style="color: #ffffff; margin: 0; font-size: 24px;">{{.Title}}</h1>
  </div>
  <div style="padding: 30px; color: #334155;">
    <p style="font-size: 16px; margin-bottom: 20px;">Hola,</p>
    <p style="font-size: 16px; line-height: 1.5; margin-bottom: 24px;">{{.Intro}}</p>
    <div style="background-color: #f8fafc; border-radius: 8px; padding: 20px; margin-bottom: 24px; border: 1px solid #e2e8f0;">
      <table style="width: 100%; border-collapse: collapse;">
        <tr>
          <td style="padding: 8px 0; color: #64748b; font-size: 14px;">{{.Label}}</td>
          <td style="padding: 8px 0; color: #0f172a; font-weight: bold; text-align: right; font-size: 16px;">{{.Name}}</td>
        </tr>
        <tr>
          <td style="padding: 8px 0; color: #64748b; font-size: 14px;">Monto</td>
          <td style="padding: 8px 0; color: #0f172a; font-weight: bold; text-align: right; font-size: 16px;">{{.Amount}}</td>
        </tr>
        <tr>
          <td style="padding: 8px 0; color: #64748b; font-size: 14px;">Vencimiento</td>
          <td style="padding: 8px 0; color: #ef4444; font-weight: bold; text-align: right; font-size: 16px;">{{.Due}}</td>
        </tr>
      </table>
    </div>
    <p style="font-size: 14px; color: #64748b; text-align: center; margin-top: 30px;">
      Mantén tus finanzas bajo control con tu Administrador de Finanzas.
    </p>
  </div>
  <div style="background-color: #f1f5f9; padding: 15px; text-align: center; font-size: 12px; color: #94a3b8;">
    <p style="margin: 0;">Este es un mensaje automático, por favor no responder.</p>
  </div>
</div>
`))

type reminderView struct {
	Title       string
	HeaderColor string
	Intro       string
	Label       string
	Name        string
	Amount      string
	Due         string
}

// renderReminder builds the email of one reminder.
func renderReminder(from string, r domain.Reminder, source string) (domain.Email, error) {
	v := reminderView{
		Label:  "Servicio",
		Name:   r.Name,
		Amount: "$" + r.Amount.StringFixed(2),
		Due:    dueText(r.DaysRemaining),
	}
	if source == "debt" {
		v.Label = "Deuda"
	}

	var subject string
	switch r.Kind {
	case domain.ReminderOverdue:
		subject = fmt.Sprintf("⚠️ Pago vencido: %s", r.Name)
		v.Title = "Pago Vencido"
		v.HeaderColor = "#b91c1c"
		v.Intro = "Tienes un pago que ya venció y aún no está registrado como pagado."
	default:
		subject = fmt.Sprintf("🔔 Recordatorio: %s vence pronto", r.Name)
		v.Title = "Recordatorio de Pago"
		v.HeaderColor = "#0f172a"
		v.Intro = "Este es un recordatorio amigable de que tienes un pago programado que vence pronto."
	}

	var buf bytes.Buffer
	if err := reminderTemplate.Execute(&buf, v); err != nil {
		return domain.Email{}, fmt.Errorf("rendering reminder: %w", err)
	}

	headers := make(map[string]string, len(reminderHeaders))
	for k, val := range reminderHeaders {
		headers[k] = val
	}
	return domain.Email{
		From:    from,
		To:      []string{r.Email},
		Subject: subject,
		HTML:    buf.String(),
		Headers: headers,
	}, nil
}

func dueText(days int) string {
	switch {
	case days < 0:
		return fmt.Sprintf("Vencido hace %d día(s)", -days)
	case days == 0:
		return "¡Vence HOY!"
	default:
		return fmt.Sprintf("En %d día(s)", days)
	}
}
