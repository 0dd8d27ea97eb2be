package constants

const (
	ManageListings    = "manage_listings"
	ViewDeleted       = "view_deleted_listings"
	ManageBookings    = "manage_bookings"
	ViewListingEvents = "view_listing_events"
)
