package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
)

// TaxRate is applied to the base amount of every booking.
const TaxRate = 0.10

// Quote is the price of a stay.
type Quote struct {
	BaseAmount  float64
	TaxAmount   float64
	TotalAmount float64
}

// Price sums price × nights × rooms across the groups and adds tax.
func Price(groups []model.RoomTypeBooking, nights int) Quote {
	var base float64
	for _, g := range groups {
		base += g.PricePerNight * float64(nights) * float64(g.NumberOfRooms)
	}
	base = model.RoundMoney(base)
	tax := model.RoundMoney(base * TaxRate)
	return Quote{BaseAmount: base, TaxAmount: tax, TotalAmount: model.RoundMoney(base + tax)}
}

// NewBookingNumber returns "BK" + UTC timestamp + "-" + six random hex digits.
func NewBookingNumber(at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("BK%s-%s", at.UTC().Format("20060102150405"), strings.ToUpper(suffix))
}
