package gwallet

import "fmt"

// State is the lifecycle state of a pass object.
type State string

const (
	StateActive    State = "ACTIVE"
	StateCompleted State = "COMPLETED"
	StateExpired   State = "EXPIRED"
	StateInactive  State = "INACTIVE"
)

// ReviewStatus is the review state of a pass class.
type ReviewStatus string

const (
	ReviewStatusDraft       ReviewStatus = "DRAFT"
	ReviewStatusUnderReview ReviewStatus = "UNDER_REVIEW"
	ReviewStatusApproved    ReviewStatus = "APPROVED"
	ReviewStatusRejected    ReviewStatus = "REJECTED"
)

// MessageType classifies a message attached to a class or object.
type MessageType string

const (
	MessageTypeText                   MessageType = "TEXT"
	MessageTypeExpirationNotification MessageType = "EXPIRATION_NOTIFICATION"
	MessageTypeTextAndNotify          MessageType = "TEXT_AND_NOTIFY"
)

// DateTime holds an ISO 8601 date or date-time.
type DateTime struct {
	Date string `json:"date,omitempty"`
}

// TimeInterval is a half-open validity window.
type TimeInterval struct {
	Start *DateTime `json:"start,omitempty"`
	End   *DateTime `json:"end,omitempty"`
}

// TranslatedString is a value in a specific language.
type TranslatedString struct {
	Language string `json:"language,omitempty"`
	Value    string `json:"value,omitempty"`
}

// LocalizedString is a string with optional translations.
type LocalizedString struct {
	DefaultValue     *TranslatedString  `json:"defaultValue,omitempty"`
	TranslatedValues []TranslatedString `json:"translatedValues,omitempty"`
}

// Localized returns a LocalizedString with a single default value.
func Localized(language, value string) *LocalizedString {
	return &LocalizedString{DefaultValue: &TranslatedString{Language: language, Value: value}}
}

// ImageURI points to a publicly reachable image.
type ImageURI struct {
	URI string `json:"uri,omitempty"`
}

// Image is an image shown on a pass.
type Image struct {
	SourceURI          *ImageURI        `json:"sourceUri,omitempty"`
	ContentDescription *LocalizedString `json:"contentDescription,omitempty"`
}

// Barcode is rendered on the front of a pass.
type Barcode struct {
	Type          string `json:"type,omitempty"`
	Value         string `json:"value,omitempty"`
	AlternateText string `json:"alternateText,omitempty"`
}

// Message is shown on the back of a pass and may trigger a notification.
type Message struct {
	ID              string        `json:"id,omitempty"`
	Header          string        `json:"header,omitempty"`
	Body            string        `json:"body,omitempty"`
	MessageType     MessageType   `json:"messageType,omitempty"`
	DisplayInterval *TimeInterval `json:"displayInterval,omitempty"`
}

// CallbackOptions configures where save and delete callbacks are delivered.
type CallbackOptions struct {
	URL string `json:"url,omitempty"`
}

// Money is an amount in micros of a currency.
type Money struct {
	Micros       int64  `json:"micros,omitempty,string"`
	CurrencyCode string `json:"currencyCode,omitempty"`
}

// ClassFields are shared by all class-shaped resources.
type ClassFields struct {
	ID                 string           `json:"id,omitempty"`
	IssuerName         string           `json:"issuerName,omitempty"`
	ReviewStatus       ReviewStatus     `json:"reviewStatus,omitempty"`
	HexBackgroundColor string           `json:"hexBackgroundColor,omitempty"`
	Messages           []Message        `json:"messages,omitempty"`
	CallbackOptions    *CallbackOptions `json:"callbackOptions,omitempty"`
	Version            string           `json:"version,omitempty"`
}

// ResourceID implements [Resource].
func (c ClassFields) ResourceID() string { return c.ID }

// Validate implements [Validator].
func (c ClassFields) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("id: %w", ErrMissingField)
	}
	return nil
}

// ObjectFields are shared by all object-shaped resources.
type ObjectFields struct {
	ID                 string        `json:"id,omitempty"`
	ClassID            string        `json:"classId,omitempty"`
	State              State         `json:"state,omitempty"`
	Barcode            *Barcode      `json:"barcode,omitempty"`
	HexBackgroundColor string        `json:"hexBackgroundColor,omitempty"`
	Messages           []Message     `json:"messages,omitempty"`
	ValidTimeInterval  *TimeInterval `json:"validTimeInterval,omitempty"`
	Version            string        `json:"version,omitempty"`
}

// ResourceID implements [Resource].
func (o ObjectFields) ResourceID() string { return o.ID }

// Validate implements [Validator].
func (o ObjectFields) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("id: %w", ErrMissingField)
	}
	if o.ClassID == "" {
		return fmt.Errorf("classId: %w", ErrMissingField)
	}
	return nil
}

// GenericClass is the template of generic passes.
type GenericClass struct {
	ClassFields
}

func (GenericClass) ResourceName() string { return "GenericClass" }

// GenericObject is a generic pass held by a user.
type GenericObject struct {
	ObjectFields
	CardTitle   *LocalizedString `json:"cardTitle,omitempty"`
	Header      *LocalizedString `json:"header,omitempty"`
	Subheader   *LocalizedString `json:"subheader,omitempty"`
	Logo        *Image           `json:"logo,omitempty"`
	GenericType string           `json:"genericType,omitempty"`
}

func (GenericObject) ResourceName() string { return "GenericObject" }

// OfferClass is the template of offers.
type OfferClass struct {
	ClassFields
	Title             string `json:"title,omitempty"`
	Provider          string `json:"provider,omitempty"`
	RedemptionChannel string `json:"redemptionChannel,omitempty"`
}

func (OfferClass) ResourceName() string { return "OfferClass" }

// OfferObject is an offer saved by a user.
type OfferObject struct {
	ObjectFields
}

func (OfferObject) ResourceName() string { return "OfferObject" }

// LoyaltyPoints is a loyalty balance.
type LoyaltyPoints struct {
	Label   string `json:"label,omitempty"`
	Balance struct {
		Int    int64  `json:"int,omitempty"`
		String string `json:"string,omitempty"`
	} `json:"balance,omitzero"`
}

// LoyaltyClass is the template of loyalty cards.
type LoyaltyClass struct {
	ClassFields
	ProgramName string `json:"programName,omitempty"`
	ProgramLogo *Image `json:"programLogo,omitempty"`
}

func (LoyaltyClass) ResourceName() string { return "LoyaltyClass" }

// LoyaltyObject is a loyalty card held by a user.
type LoyaltyObject struct {
	ObjectFields
	AccountID     string         `json:"accountId,omitempty"`
	AccountName   string         `json:"accountName,omitempty"`
	LoyaltyPoints *LoyaltyPoints `json:"loyaltyPoints,omitempty"`
}

func (LoyaltyObject) ResourceName() string { return "LoyaltyObject" }

// GiftCardClass is the template of gift cards.
type GiftCardClass struct {
	ClassFields
	MerchantName string `json:"merchantName,omitempty"`
}

func (GiftCardClass) ResourceName() string { return "GiftCardClass" }

// GiftCardObject is a gift card held by a user.
type GiftCardObject struct {
	ObjectFields
	CardNumber string `json:"cardNumber,omitempty"`
	Balance    *Money `json:"balance,omitempty"`
}

func (GiftCardObject) ResourceName() string { return "GiftCardObject" }

// EventTicketClass is the template of event tickets.
type EventTicketClass struct {
	ClassFields
	EventName *LocalizedString `json:"eventName,omitempty"`
	EventID   string           `json:"eventId,omitempty"`
}

func (EventTicketClass) ResourceName() string { return "EventTicketClass" }

// EventTicketObject is an event ticket held by a user.
type EventTicketObject struct {
	ObjectFields
	TicketHolderName string `json:"ticketHolderName,omitempty"`
	TicketNumber     string `json:"ticketNumber,omitempty"`
}

func (EventTicketObject) ResourceName() string { return "EventTicketObject" }

// FlightClass is the template of boarding passes for one flight.
type FlightClass struct {
	ClassFields
	LocalScheduledDepartureDateTime string `json:"localScheduledDepartureDateTime,omitempty"`
}

func (FlightClass) ResourceName() string { return "FlightClass" }

// FlightObject is a boarding pass held by a passenger.
type FlightObject struct {
	ObjectFields
	PassengerName string `json:"passengerName,omitempty"`
}

func (FlightObject) ResourceName() string { return "FlightObject" }

// TransitClass is the template of transit tickets.
type TransitClass struct {
	ClassFields
	TransitType string `json:"transitType,omitempty"`
}

func (TransitClass) ResourceName() string { return "TransitClass" }

// TransitObject is a transit ticket held by a user.
type TransitObject struct {
	ObjectFields
	TripType string `json:"tripType,omitempty"`
}

func (TransitObject) ResourceName() string { return "TransitObject" }

// IssuerContactInfo is the contact of an issuer account.
type IssuerContactInfo struct {
	Name   string   `json:"name,omitempty"`
	Email  string   `json:"email,omitempty"`
	Phone  string   `json:"phone,omitempty"`
	Alerts []string `json:"alertsEmails,omitempty"`
}

// Issuer is an issuer account.
type Issuer struct {
	IssuerID    string             `json:"issuerId,omitempty"`
	Name        string             `json:"name,omitempty"`
	ContactInfo *IssuerContactInfo `json:"contactInfo,omitempty"`
	HomepageURL string             `json:"homepageUrl,omitempty"`
}

func (Issuer) ResourceName() string { return "Issuer" }
func (i Issuer) ResourceID() string { return i.IssuerID }

// Validate implements [Validator].
func (i Issuer) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("name: %w", ErrMissingField)
	}
	return nil
}

// Permission grants a principal a role on an issuer.
type Permission struct {
	EmailAddress string `json:"emailAddress,omitempty"`
	Role         string `json:"role,omitempty"`
}

// Permissions is the permission list of an issuer.
type Permissions struct {
	IssuerID    string       `json:"issuerId,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
}

func (Permissions) ResourceName() string { return "Permissions" }
func (p Permissions) ResourceID() string { return p.IssuerID }

// SmartTap links a merchant to an issuer for NFC redemption.
type SmartTap struct {
	ID         string `json:"id,omitempty"`
	MerchantID string `json:"merchantId,omitempty"`
}

func (SmartTap) ResourceName() string { return "SmartTap" }
func (s SmartTap) ResourceID() string { return s.ID }
