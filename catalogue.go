package gwallet

// Catalogue returns the built-in resource types.
func Catalogue() []ResourceConfig {
	return []ResourceConfig{
		classConfig("GenericClass", func() Resource { return &GenericClass{} }),
		objectConfig("GenericObject", func() Resource { return &GenericObject{} }),
		classConfig("OfferClass", func() Resource { return &OfferClass{} }),
		objectConfig("OfferObject", func() Resource { return &OfferObject{} }),
		classConfig("LoyaltyClass", func() Resource { return &LoyaltyClass{} }),
		objectConfig("LoyaltyObject", func() Resource { return &LoyaltyObject{} }),
		classConfig("GiftCardClass", func() Resource { return &GiftCardClass{} }),
		objectConfig("GiftCardObject", func() Resource { return &GiftCardObject{} }),
		classConfig("EventTicketClass", func() Resource { return &EventTicketClass{} }),
		objectConfig("EventTicketObject", func() Resource { return &EventTicketObject{} }),
		classConfig("FlightClass", func() Resource { return &FlightClass{} }),
		objectConfig("FlightObject", func() Resource { return &FlightObject{} }),
		classConfig("TransitClass", func() Resource { return &TransitClass{} }),
		objectConfig("TransitObject", func() Resource { return &TransitObject{} }),
		{
			Name:       "Issuer",
			IDField:    "issuerId",
			Deny:       CapMessage | CapDisable,
			ListFilter: ListUnfiltered,
			New:        func() Resource { return &Issuer{} },
		},
		{
			Name:    "Permissions",
			Plural:  "permissionLists",
			IDField: "issuerId",
			Deny:    CapCreate | CapList | CapMessage | CapDisable,
			New:     func() Resource { return &Permissions{} },
		},
		{
			Name: "SmartTap",
			Deny: CapUpdate | CapList | CapMessage | CapDisable,
			New:  func() Resource { return &SmartTap{} },
		},
	}
}

func classConfig(name string, newFn func() Resource) ResourceConfig {
	return ResourceConfig{
		Name:       name,
		Deny:       CapDisable,
		ListFilter: ListByIssuer,
		New:        newFn,
	}
}

func objectConfig(name string, newFn func() Resource) ResourceConfig {
	return ResourceConfig{
		Name:       name,
		ListFilter: ListByClass,
		New:        newFn,
	}
}
