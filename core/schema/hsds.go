package schema

// Enumerations accepted by the HSDS record types.
var (
	TaxStatuses   = []string{"501(c)(3)", "501(c)(4)", "501(c)(6)", "government", "for-profit", "other"}
	LegalStatuses = []string{"corporation", "nonprofit", "government", "partnership", "sole-proprietorship"}
	ServiceStates = []string{"active", "inactive", "defunct", "temporarily-closed"}
	PhoneTypes    = []string{"voice", "fax", "tty", "sms", "other"}
	AddressTypes  = []string{"physical", "postal", "mailing", "other"}
	LocationTypes = []string{"physical", "postal", "virtual"}
	Frequencies   = []string{"WEEKLY", "MONTHLY", "YEARLY", "DAILY", "HOURLY"}
	Weekdays      = []string{"MO", "TU", "WE", "TH", "FR", "SA", "SU"}
	ExtentTypes   = []string{"geojson", "topojson", "kml", "text"}
	ActionTypes   = []string{"create", "update", "delete"}
)

func idField() FieldSpec {
	return str(IDField, MaxIDLength).required()
}

func name() FieldSpec {
	return str("name", MaxNameLength)
}

func description() FieldSpec {
	return str("description", MaxDescriptionLength)
}

func hsdsTypes() []RecordType {
	return []RecordType{
		{Name: "organization", Topic: "Organization", Fields: []FieldSpec{
			idField(),
			name().required(),
			str("alternate_name", MaxNameLength),
			description(),
			formatted("email", MaxEmailLength, FormatEmail),
			formatted("website", MaxURLLength, FormatURL),
			str("logo", MaxURLLength),
			str("uri", MaxURLLength),
			str("tax_id", MaxIDLength),
			integer("year_incorporated", MinYear, MaxYear),
			enum("tax_status", TaxStatuses...),
			enum("legal_status", LegalStatuses...),
			ref("parent_organization_id", "organization"),
		}},
		{Name: "program", Topic: "Program", Fields: []FieldSpec{
			idField(),
			ref("organization_id", "organization").required(),
			name().required(),
			str("alternate_name", MaxNameLength),
			description(),
		}},
		{Name: "service", Topic: "Service", Fields: []FieldSpec{
			idField(),
			ref("organization_id", "organization").required(),
			ref("program_id", "program"),
			name().required(),
			str("alternate_name", MaxNameLength),
			description(),
			formatted("url", MaxURLLength, FormatURL),
			formatted("email", MaxEmailLength, FormatEmail),
			enum("status", ServiceStates...),
			str("interpretation_services", MaxDescriptionLength),
			str("application_process", MaxDescriptionLength),
			str("fees_description", MaxDescriptionLength),
			str("accreditations", MaxDescriptionLength),
			str("licenses", MaxDescriptionLength),
			atLeast("minimum_age", KindInt, 0),
			atLeast("maximum_age", KindInt, 0),
		}},
		{Name: "location", Topic: "Location", Fields: []FieldSpec{
			idField(),
			ref("organization_id", "organization"),
			enum("location_type", LocationTypes...),
			name(),
			str("alternate_name", MaxNameLength),
			description(),
			str("transportation", 500),
			float("latitude", -90, 90),
			float("longitude", -180, 180),
			str("external_identifier", MaxNameLength),
		}},
		{Name: "phone", Topic: "Phone", Fields: []FieldSpec{
			idField(),
			formatted("number", MaxPhoneLength, FormatPhone).required(),
			integer("extension", 0, 99999),
			enum("type", PhoneTypes...),
			str("description", 500),
			ref("location_id", "location"),
			ref("service_id", "service"),
			ref("organization_id", "organization"),
			ref("contact_id", "contact"),
			ref("service_at_location_id", "service_at_location"),
		}},
		{Name: "contact", Topic: "Contact", Fields: []FieldSpec{
			idField(),
			ref("organization_id", "organization"),
			ref("service_id", "service"),
			ref("service_at_location_id", "service_at_location"),
			ref("location_id", "location"),
			name(),
			str("title", 100),
			str("department", 100),
			formatted("email", MaxEmailLength, FormatEmail),
		}},
		{Name: "address", Topic: "Address", Fields: []FieldSpec{
			idField(),
			ref("location_id", "location").required(),
			str("attention", MaxNameLength),
			str("address_1", 200),
			str("address_2", 200),
			str("city", 100),
			str("region", 100),
			str("state_province", 100),
			str("postal_code", 20),
			str("country", 100),
			enum("address_type", AddressTypes...),
		}},
		{Name: "service_at_location", Topic: "ServiceAtLocation", Fields: []FieldSpec{
			idField(),
			ref("service_id", "service").required(),
			ref("location_id", "location").required(),
			description(),
		}},
		{Name: "schedule", Topic: "Schedule", Fields: []FieldSpec{
			idField(),
			ref("service_id", "service"),
			ref("location_id", "location"),
			ref("service_at_location_id", "service_at_location"),
			description(),
			enum("freq", Frequencies...),
			formatted("opens_at", 20, FormatTime),
			formatted("closes_at", 20, FormatTime),
			formatted("valid_from", 10, FormatDate),
			formatted("valid_to", 10, FormatDate),
			formatted("dtstart", 10, FormatDate),
			formatted("until", 10, FormatDate),
			enum("wkst", Weekdays...),
			atLeast("interval", KindInt, 1),
			str("byday", 100),
			str("timezone", 100),
			str("notes", MaxDescriptionLength),
		}},
		{Name: "attribute", Topic: "AttributeInfo", Fields: []FieldSpec{
			idField(),
			str("link_id", MaxIDLength).required(),
			ref("taxonomy_term_id", "taxonomy_term").required(),
			str("link_type", 50),
			str("link_entity", 50),
			str("value", 500),
			str("label", MaxNameLength),
		}},
		{Name: "funding", Topic: "Funding", Fields: []FieldSpec{
			idField(),
			ref("organization_id", "organization"),
			ref("service_id", "service"),
			str("source", 500),
		}},
		{Name: "service_area", Topic: "ServiceArea", Fields: []FieldSpec{
			idField(),
			ref("service_id", "service"),
			ref("service_at_location_id", "service_at_location"),
			name(),
			description(),
			str("extent", MaxDescriptionLength),
			enum("extent_type", ExtentTypes...),
			formatted("uri", MaxURLLength, FormatURL),
		}},
		{Name: "required_document", Topic: "RequiredDocument", Fields: []FieldSpec{
			idField(),
			ref("service_id", "service"),
			str("document", 500),
			formatted("uri", MaxURLLength, FormatURL),
		}},
		{Name: "language", Topic: "Language", Fields: []FieldSpec{
			idField(),
			ref("service_id", "service"),
			ref("location_id", "location"),
			ref("phone_id", "phone"),
			str("name", 100),
			formatted("code", 35, FormatLanguage),
			str("note", 500),
		}},
		{Name: "accessibility", Topic: "Accessibility", Fields: []FieldSpec{
			idField(),
			ref("location_id", "location"),
			description(),
			str("details", MaxDescriptionLength),
			formatted("url", MaxURLLength, FormatURL),
		}},
		{Name: "taxonomy_term", Topic: "TaxonomyTerm", Fields: []FieldSpec{
			idField(),
			str("code", 100),
			name().required(),
			description(),
			ref("parent_id", "taxonomy_term"),
			str("taxonomy", MaxNameLength),
			formatted("language", 35, FormatLanguage),
			ref("taxonomy_id", "taxonomy"),
			formatted("term_uri", MaxURLLength, FormatURL),
		}},
		{Name: "metadata", Topic: "Metadata", Fields: []FieldSpec{
			idField(),
			str("resource_id", MaxIDLength).required(),
			str("resource_type", 50).required(),
			formatted("last_action_date", 10, FormatDate),
			enum("last_action_type", ActionTypes...),
			str("field_name", MaxNameLength),
			str("previous_value", MaxDescriptionLength),
			str("replacement_value", MaxDescriptionLength),
			str("updated_by", MaxNameLength),
		}},
		{Name: "meta_table_description", Topic: "MetaTableDescription", Fields: []FieldSpec{
			idField(),
			name(),
			formatted("language", 35, FormatLanguage),
			str("character_set", 50),
		}},
		{Name: "cost_option", Topic: "CostOption", Fields: []FieldSpec{
			idField(),
			ref("service_id", "service").required(),
			formatted("valid_from", 10, FormatDate),
			formatted("valid_to", 10, FormatDate),
			str("option", 500),
			formatted("currency", 3, FormatCurrency),
			atLeast("amount", KindFloat, 0),
			str("amount_description", 500),
		}},
		{Name: "organization_identifier", Topic: "OrganizationIdentifier", Fields: []FieldSpec{
			idField(),
			ref("organization_id", "organization").required(),
			str("identifier_scheme", 100),
			str("identifier_type", 100).required(),
			str("identifier", MaxNameLength).required(),
		}},
		{Name: "taxonomy", Topic: "Taxonomy", Fields: []FieldSpec{
			idField(),
			name().required(),
			description(),
			formatted("uri", MaxURLLength, FormatURL),
			str("version", 50),
		}},
		{Name: "service_capacity", Topic: "ServiceCapacity", Fields: []FieldSpec{
			idField(),
			ref("service_id", "service").required(),
			ref("unit_id", "unit").required(),
			atLeast("available", KindFloat, 0),
			atLeast("maximum", KindFloat, 0),
			description(),
			formatted("updated", 10, FormatDate),
		}},
		{Name: "unit", Topic: "Unit", Fields: []FieldSpec{
			idField(),
			name().required(),
			str("scheme", 100),
			str("identifier", 100),
			formatted("uri", MaxURLLength, FormatURL),
		}},
		{Name: "url", Topic: "UrlInfo", Fields: []FieldSpec{
			idField(),
			str("label", MaxNameLength),
			formatted("url", MaxURLLength, FormatURL).required(),
			ref("organization_id", "organization"),
			ref("service_id", "service"),
		}},
	}
}
