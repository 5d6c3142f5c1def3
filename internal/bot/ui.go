package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spec-kit/fieldops-bot/internal/domain"
	"github.com/spec-kit/fieldops-bot/internal/sla"
	"github.com/spec-kit/fieldops-bot/internal/telegram"
)

// Response is what the router hands back for delivery to the chat.
type Response struct {
	Text     string
	Keyboard telegram.Keyboard
}

func button(text, data string) telegram.InlineKeyboardButton {
	return telegram.InlineKeyboardButton{Text: text, CallbackData: data}
}

func cancelRow() []telegram.InlineKeyboardButton {
	return []telegram.InlineKeyboardButton{button("❌ Batal", "cancel")}
}

func roleKeyboard() telegram.Keyboard {
	return telegram.Keyboard{
		{button("👷 Teknisi", "role:TEKNISI")},
		{button("🎧 Helpdesk", "role:HD")},
		cancelRow(),
	}
}

func nameKeyboard() telegram.Keyboard {
	return telegram.Keyboard{
		{button("Gunakan nama profil", "name:profile")},
		cancelRow(),
	}
}

func confirmKeyboard() telegram.Keyboard {
	return telegram.Keyboard{
		{button("✅ Ya, benar", "confirm:yes"), button("🔄 Ulangi", "confirm:no")},
		cancelRow(),
	}
}

// siteKeyboard lays the 20 STO codes out three per row.
func siteKeyboard() telegram.Keyboard {
	var keyboard telegram.Keyboard
	var row []telegram.InlineKeyboardButton
	for _, code := range domain.SiteCodes {
		row = append(row, button(code, "sto:"+code))
		if len(row) == 3 {
			keyboard = append(keyboard, row)
			row = nil
		}
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}
	return append(keyboard, cancelRow())
}

func transactionKeyboard() telegram.Keyboard {
	var keyboard telegram.Keyboard
	for _, t := range domain.TransactionTypes {
		keyboard = append(keyboard, []telegram.InlineKeyboardButton{button(t, "txn:"+t)})
	}
	return append(keyboard, cancelRow())
}

func serviceKeyboard() telegram.Keyboard {
	var keyboard telegram.Keyboard
	for _, t := range domain.ServiceTypes {
		keyboard = append(keyboard, []telegram.InlineKeyboardButton{button(t, "svc:"+t)})
	}
	return append(keyboard, cancelRow())
}

func technicianKeyboard(technicians []domain.Actor) telegram.Keyboard {
	var keyboard telegram.Keyboard
	for _, tech := range technicians {
		keyboard = append(keyboard, []telegram.InlineKeyboardButton{
			button("👷 "+tech.FullName, "tech:"+strconv.FormatInt(tech.ID, 10)),
		})
	}
	return append(keyboard, cancelRow())
}

func orderKeyboard(orders []domain.Order, prefix string) telegram.Keyboard {
	var keyboard telegram.Keyboard
	for _, order := range orders {
		label := fmt.Sprintf("%s %s — %s", statusIcon(order.Status), order.Number, order.CustomerName)
		keyboard = append(keyboard, []telegram.InlineKeyboardButton{
			button(label, prefix+":"+strconv.FormatInt(order.ID, 10)),
		})
	}
	return append(keyboard, cancelRow())
}

func outcomeKeyboard() telegram.Keyboard {
	return telegram.Keyboard{
		{button("▶️ Mulai dikerjakan", "outcome:STARTED")},
		{button("✅ Selesai", "outcome:COMPLETED")},
		{button("🔧 Jaringan tidak ready", "outcome:ON_HOLD")},
		cancelRow(),
	}
}

func notesKeyboard() telegram.Keyboard {
	return telegram.Keyboard{
		{button("Lewati catatan", "notes:skip")},
		cancelRow(),
	}
}

func evidenceTypeKeyboard(missing []domain.EvidenceType) telegram.Keyboard {
	var keyboard telegram.Keyboard
	for _, t := range missing {
		keyboard = append(keyboard, []telegram.InlineKeyboardButton{
			button(t.DisplayName(), "ev:"+string(t)),
		})
	}
	return append(keyboard, cancelRow())
}

func statusIcon(status domain.OrderStatus) string {
	switch status {
	case domain.OrderStatusClosed:
		return "✅"
	case domain.OrderStatusInProgress:
		return "🔄"
	case domain.OrderStatusOnHold:
		return "⏸"
	case domain.OrderStatusCancelled:
		return "❌"
	default:
		return "⏳"
	}
}

func formatOrderSummary(order *domain.Order) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 Order %s\n\n", order.Number))
	b.WriteString("Pelanggan: " + order.CustomerName + "\n")
	b.WriteString("Alamat: " + order.CustomerAddress + "\n")
	b.WriteString("Kontak: " + order.CustomerContact + "\n")
	b.WriteString("STO: " + order.Site + "\n")
	b.WriteString("Jenis Transaksi: " + order.TransactionType + "\n")
	b.WriteString("Jenis Layanan: " + order.ServiceType + "\n")
	b.WriteString(fmt.Sprintf("Status: %s %s\n", statusIcon(order.Status), order.Status))
	b.WriteString("Tahap: " + order.CurrentStage.DisplayName() + "\n")
	b.WriteString("Batas SLA: " + order.SLADeadline.Format("02/01/2006 15:04") + "\n")
	return b.String()
}

func formatSLALine(result sla.Result) string {
	return "⏱ SLA: " + sla.FormatStatus(result)
}

func formatOrderList(orders []domain.Order) string {
	if len(orders) == 0 {
		return "Tidak ada order."
	}
	var b strings.Builder
	b.WriteString("Daftar Order:\n\n")
	for _, order := range orders {
		b.WriteString(fmt.Sprintf("%s %s — %s (%s)\n",
			statusIcon(order.Status), order.Number, order.CustomerName, order.CurrentStage.DisplayName()))
	}
	return b.String()
}

func formatMissingEvidence(missing []domain.EvidenceType) string {
	if len(missing) == 0 {
		return "Semua evidence sudah lengkap ✅"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Evidence kurang %d item:\n", len(missing)))
	for _, t := range missing {
		b.WriteString("- " + t.DisplayName() + "\n")
	}
	return b.String()
}

func helpText(role domain.ActorRole) string {
	var b strings.Builder
	b.WriteString("Perintah yang tersedia:\n\n")
	b.WriteString("/myorders — daftar order Anda\n")
	b.WriteString("/status <nomor> — detail order\n")
	switch role {
	case domain.RoleHelpdesk:
		b.WriteString("/order — buat order baru\n")
		b.WriteString("/updatestatus — lanjutkan order on hold\n")
		b.WriteString("/report — laporan harian (/report minggu untuk mingguan)\n")
	case domain.RoleTechnician:
		b.WriteString("/updateprogress — update progress pekerjaan\n")
		b.WriteString("/evidence — upload evidence\n")
	}
	b.WriteString("/cancel — batalkan dialog berjalan\n")
	b.WriteString("/help — tampilkan bantuan ini\n")
	return b.String()
}
