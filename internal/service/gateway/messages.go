package gateway

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// All user-visible Turkish strings live here. Services below the controller
// return typed results and error kinds; only this layer turns them into
// text, so wording changes never touch business logic.

const (
	msgPinPrompt        = "🔒 Güvenlik için 4 haneli PIN kodunuzu girin"
	msgSessionCancelled = "✅ İşlem iptal edildi. Oturumunuz kapatıldı."
	msgNotRegistered    = "Telefon numaranız kayıtlı değil. Lütfen önce uygulamadan PIN oluşturun."
	msgNothingToPublish = "Yayınlanacak bir ilan yok. Önce ürün bilgilerini verin."
	msgAgentDown        = "İsteğinizi işlerken bir hata oluştu. Lütfen tekrar deneyin."
	msgStoreDown        = "Veritabanı hatası. Lütfen daha sonra tekrar deneyin."
	msgGenericError     = "Bir hata oluştu. Lütfen daha sonra tekrar deneyin."
	msgDraftCancelled   = "🔄 İşlem iptal edildi.\n\nYeni bir işlem için:\n• Ürün satmak: Ürün bilgilerini yazın\n• Ürün aramak: Ne aradığınızı söyleyin"
	msgNoListings       = "Silinecek bir ilanınız yok."
)

func msgLoginSuccess(ttl time.Duration) string {
	minutes := int(ttl.Minutes())
	return fmt.Sprintf("✅ Giriş başarılı! 🕐 %d dakika boyunca işlem yapabilirsiniz.", minutes)
}

func msgInvalidPin(remaining int) string {
	return fmt.Sprintf("❌ PIN hatalı. %d deneme hakkınız kaldı", remaining)
}

func msgPinLocked(blockedUntil, now time.Time) string {
	minutes := int(blockedUntil.Sub(now).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("🔒 Hesabınız geçici olarak kilitlendi. %d dakika sonra tekrar deneyin.", minutes)
}

func msgSafetyBlocked(v domain.Verdict) string {
	var b strings.Builder
	b.WriteString("❌ Bu görsel güvenlik politikalarımıza uymuyor ve ilan olarak yayınlanamaz.")
	if v.Message != "" {
		b.WriteString("\n")
		b.WriteString(v.Message)
	}
	b.WriteString("\nGörsel inceleme ekibimize iletildi.")
	return b.String()
}

// fieldLabels maps internal field names to what the user typed them as.
var fieldLabels = map[string]string{
	"title":    "Başlık",
	"price":    "Fiyat",
	"category": "Kategori",
}

func msgMissingFields(missing []string) string {
	labels := make([]string, 0, len(missing))
	for _, f := range missing {
		if l, ok := fieldLabels[f]; ok {
			labels = append(labels, l)
		} else {
			labels = append(labels, f)
		}
	}
	return fmt.Sprintf("%s bilgisi gerekli. Lütfen belirtin.", strings.Join(labels, ", "))
}

func msgDraftUpdated(d *domain.Draft, missing []string) string {
	var b strings.Builder
	b.WriteString("📝 Bilgiler kaydedildi.")
	if d.Listing.Title != "" {
		b.WriteString(fmt.Sprintf("\n📱 %s", d.Listing.Title))
	}
	if d.Listing.Price > 0 {
		b.WriteString(fmt.Sprintf("\n💰 %d TL", d.Listing.Price))
	}
	if len(missing) > 0 {
		b.WriteString("\n\n")
		b.WriteString(msgMissingFields(missing))
	}
	return b.String()
}

func msgPreview(d *domain.Draft) string {
	var b strings.Builder
	b.WriteString("📝 İlan önizlemesi:\n")
	b.WriteString(fmt.Sprintf("📱 %s\n", d.Listing.Title))
	b.WriteString(fmt.Sprintf("💰 %d TL\n", d.Listing.Price))
	if d.Listing.Condition != "" {
		b.WriteString(fmt.Sprintf("📦 Durum: %s\n", conditionLabel(d.Listing.Condition)))
	}
	b.WriteString(fmt.Sprintf("📍 %s\n", d.Listing.Location))
	b.WriteString("\n✅ Onaylamak için 'onayla' yazın\n")
	b.WriteString("✏️ Değiştirmek için 'fiyat X olsun' gibi komutlar verin")
	return b.String()
}

func msgPublished(listingID uuid.UUID) string {
	return fmt.Sprintf("✅ İlanınız başarıyla yayınlandı!\n\nİlan ID: %s", listingID)
}

func msgPublishFailed(err error) string {
	return fmt.Sprintf("❌ İlan kaydedilemedi: %s\nLütfen bilgileri kontrol edip tekrar deneyin.", publishFailureLabel(err))
}

// publishFailureLabel maps a typed publish error onto a short Turkish cause.
func publishFailureLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "ilan bilgileri geçersiz"
	case errors.Is(err, domain.ErrAlreadyExists):
		return "bu ilan zaten mevcut"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "veritabanına ulaşılamıyor"
	default:
		return "beklenmeyen bir hata oluştu"
	}
}

func msgDeleteList(listings []*domain.Listing) string {
	if len(listings) == 0 {
		return msgNoListings
	}
	var b strings.Builder
	b.WriteString("🗑️ Hangi ilanı silmek istiyorsunuz?\n")
	for i, l := range listings {
		b.WriteString(fmt.Sprintf("\n%d. %s — %d TL (%s)", i+1, l.Title, l.Price, l.Location))
	}
	b.WriteString("\n\nSilmek için ilan numarasını yazın.")
	return b.String()
}

func conditionLabel(c domain.Condition) string {
	switch c {
	case domain.ConditionNew:
		return "Sıfır"
	case domain.ConditionRefurbished:
		return "Yenilenmiş"
	default:
		return "İkinci el"
	}
}
