package domain

import (
	"strings"
	"time"
)

// Shop types as stored in the shops table.
const (
	ShopTypePesticides  = "pesticides"
	ShopTypeFertilizers = "fertilizers"
	ShopTypeBoth        = "both"
)

// Entity categories used on the map that are not shop types.
const (
	CategoryResearchCenter = "research_center"
)

// Shop represents a pesticide or fertilizer retailer.
type Shop struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ShopType    string   `json:"shop_type"`
	Address     string   `json:"address,omitempty"`
	City        string   `json:"city,omitempty"`
	Location    GeoPoint `json:"location"`
	Phone       string   `json:"phone_number,omitempty"`
	WhatsApp    string   `json:"whatsapp_number,omitempty"`
	Email       string   `json:"email,omitempty"`
	Rating      float64  `json:"rating"`
	OpeningTime string   `json:"opening_time,omitempty"`
	ClosingTime string   `json:"closing_time,omitempty"`
	Distance    *float64 `json:"distance"` // km, computed field
}

// ResearchCenter represents an agricultural research lab farmers can contact.
type ResearchCenter struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Address     string   `json:"address,omitempty"`
	City        string   `json:"city"`
	State       string   `json:"state,omitempty"`
	Location    GeoPoint `json:"location"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone_number,omitempty"`
	WhatsApp    string   `json:"whatsapp_number,omitempty"`
	Website     string   `json:"website,omitempty"`
	Expertise   []string `json:"expertise,omitempty"`
}

// Place is an amenity near the farmer (hospital, pharmacy, bank...) sourced from OpenStreetMap.
type Place struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Amenity  string   `json:"amenity"`
	Location GeoPoint `json:"location"`
}

// GeocodeResult is the best match for a free-text location query.
type GeocodeResult struct {
	DisplayName string   `json:"display_name"`
	Location    GeoPoint `json:"location"`
}

// Farmer is a registered farmer as seen by researchers.
type Farmer struct {
	ID       string    `json:"id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone_number,omitempty"`
	WhatsApp string    `json:"whatsapp_number,omitempty"`
	Address  string    `json:"address,omitempty"`
	City     string    `json:"city"`
	State    string    `json:"state,omitempty"`
	FarmSize float64   `json:"farm_size"`
	Location *GeoPoint `json:"location,omitempty"`
	JoinedAt time.Time `json:"joined_date"`
}

// WhatsAppLink returns the wa.me chat link for the farmer's WhatsApp number,
// falling back to the phone number. "" when neither has digits.
func (f Farmer) WhatsAppLink() string {
	number := f.WhatsApp
	if number == "" {
		number = f.Phone
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if digits == "" {
		return ""
	}
	return "https://wa.me/" + digits
}

// FarmerFilter narrows the researcher farmer list.
type FarmerFilter struct {
	Search string
	City   string
	Offset int
	Limit  int
}

// Classification is the verdict returned by the external image classifier.
type Classification struct {
	Disease    string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
	Healthy    bool    `json:"is_healthy"`
}

// Detection records one classified leaf image.
type Detection struct {
	ID         string    `json:"id"`
	FarmerID   string    `json:"farmer_id"`
	ImageName  string    `json:"image_filename"`
	Disease    string    `json:"disease"`
	Confidence float64   `json:"confidence"`
	Healthy    bool      `json:"is_healthy"`
	Treatment  string    `json:"treatment,omitempty"`
	Location   *GeoPoint `json:"location,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

// DetectionStats aggregates detections for the researcher dashboard.
type DetectionStats struct {
	Total     int            `json:"total"`
	Healthy   int            `json:"healthy"`
	Diseased  int            `json:"diseased"`
	ByDisease map[string]int `json:"by_disease"`
}

// TreatmentAdvice tells a farmer where to buy treatment for a detected disease.
type TreatmentAdvice struct {
	DetectionID string         `json:"detection_id"`
	FarmerID    string         `json:"farmer_id"`
	Disease     string         `json:"disease"`
	Shops       []RankedEntity `json:"shops"`
	IssuedAt    time.Time      `json:"issued_at"`
}

// Product types in the catalog.
const (
	ProductTypePesticide  = "pesticide"
	ProductTypeFertilizer = "fertilizer"
)

// Product is a pesticide or fertilizer a farmer can buy.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Unit        string  `json:"unit"`
	Stock       int     `json:"stock"`
}

// ProductCatalog groups products by type.
type ProductCatalog struct {
	Pesticides  []Product `json:"pesticides"`
	Fertilizers []Product `json:"fertilizers"`
}

// Ways a researcher can reach a farmer.
const (
	ContactEmail    = "email"
	ContactWhatsApp = "whatsapp"
	ContactPhone    = "phone"
)

// FarmerContact is how to reach the farmer a recommendation was sent to.
type FarmerContact struct {
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	WhatsApp string `json:"whatsapp,omitempty"` // wa.me link
}

// Recommendation is advice a researcher sent to a farmer.
type Recommendation struct {
	ID               string        `json:"id"`
	FarmerID         string        `json:"farmer_id"`
	FarmerName       string        `json:"farmer_name"`
	ResearchCenterID string        `json:"research_center_id,omitempty"`
	Message          string        `json:"message"`
	ContactMethod    string        `json:"contact_method"`
	Contact          FarmerContact `json:"farmer_contact"`
	SentAt           time.Time     `json:"sent_at"`
}
