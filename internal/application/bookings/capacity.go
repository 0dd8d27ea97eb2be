package bookings

import (
	"diasporan-backend/internal/application/availability"
	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// reserve takes quantity units of l's capacity inside tx.
//
// Counter variants use a conditional decrement, so two requests racing for the last
// unit cannot both succeed. Stays first take the listing row's write lock, then
// re-count overlapping stays under it. exclude skips the booking being moved.
func reserve(tx *gorm.DB, l *domain.Listing, quantity int, dates *availability.DateRange, exclude uuid.UUID) error {
	if col := l.Type.CapacityColumn(); col != "" {
		res := tx.Model(&domain.Listing{}).
			Where("id = ? AND deleted_at IS NULL AND "+col+" >= ?", l.ID, quantity).
			UpdateColumn(col, gorm.Expr(col+" - ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
		var current domain.Listing
		if err := tx.Unscoped().Where("id = ?", l.ID).First(&current).Error; err != nil {
			return err
		}
		if current.Deleted() {
			return apperror.Conflict(apperror.CodeNotAvailable, "This listing is no longer available")
		}
		return availability.Shortfall(l.Type, current.Remaining())
	}

	if l.Type != domain.ListingAccommodation {
		return apperror.NotImplemented("Capacity is not tracked for this listing type")
	}
	if dates == nil {
		return apperror.Validation(apperror.CodeInvalidDateRange, "start_date and end_date are required")
	}
	// no-op write: takes the row lock and fails on a deleted listing
	res := tx.Model(&domain.Listing{}).
		Where("id = ? AND deleted_at IS NULL", l.ID).
		UpdateColumn("units", gorm.Expr("units"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.Conflict(apperror.CodeNotAvailable, "This listing is no longer available")
	}
	taken, err := availability.CountOverlapping(tx, l.ID, *dates, exclude)
	if err != nil {
		return err
	}
	if int(taken) >= l.Units {
		return availability.Shortfall(l.Type, 0)
	}
	return nil
}

// release returns quantity units to the listing's counter. It runs unscoped because
// cancellations also happen on listings that are being deleted.
func release(tx *gorm.DB, lt domain.ListingType, listingID uuid.UUID, quantity int) error {
	col := lt.CapacityColumn()
	if col == "" || quantity <= 0 {
		return nil
	}
	return tx.Unscoped().Model(&domain.Listing{}).
		Where("id = ?", listingID).
		UpdateColumn(col, gorm.Expr(col+" + ?", quantity)).Error
}
