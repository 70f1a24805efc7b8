package license

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Normalize maps a raw upstream row to the canonical record. fetchFrom, fetchTo
// and page describe the window and page that produced the row; when empty or
// zero the provenance already stamped on the raw row is used instead.
func Normalize(raw RawRecord, fetchFrom, fetchTo string, page int) Record {
	details := first(raw, "license_details", "licenseDetails")
	var start, end *string
	if s, ok := stringify(details); ok {
		start, end = ParseLicenseWindow(s)
	}

	rec := Record{
		CustomerRef:         cleanString(first(raw, "customer_ref", "customerRef")),
		CustomerName:        cleanString(first(raw, "customer_name", "customerName")),
		CustomerSource:      customerSource(raw["customer_source"]),
		UserUsername:        cleanString(first(raw, "user_username", "username", "userUsername")),
		UserFullname:        cleanString(first(raw, "user_fullname", "fullname", "userFullname")),
		ProductRef:          cleanString(first(raw, "product_ref", "productRef")),
		ProductTitle:        cleanString(first(raw, "product_title", "productTitle")),
		ProductDuration:     toNumber(raw["product_duration"], false),
		ProductPrice:        toNumber(raw["product_price"], true),
		LicenseDetails:      cleanString(details),
		LicenseStart:        start,
		LicenseEnd:          end,
		TrackingFirstAccess: cleanString(first(raw, "tracking_first_access", "trackingFirstAccess", "first_access")),
		TrackingLastAccess:  cleanString(first(raw, "tracking_last_access", "trackingLastAccess", "last_access")),
		TrackingVisits:      toNumber(raw["tracking_visits"], false),
		TrackingElapsedTime: toNumber(raw["tracking_elapsed_time"], false),
		IsProvisional:       1,
	}
	if start != nil && end != nil {
		rec.IsProvisional = 0
	}

	if fetchFrom != "" {
		rec.FetchDateFrom = &fetchFrom
	} else {
		rec.FetchDateFrom = cleanString(first(raw, KeyFetchDateFrom, "fetch_date_from"))
	}
	if fetchTo != "" {
		rec.FetchDateTo = &fetchTo
	} else {
		rec.FetchDateTo = cleanString(first(raw, KeyFetchDateTo, "fetch_date_to"))
	}
	if page > 0 {
		rec.SourcePage = &page
	} else {
		rec.SourcePage = toInt(first(raw, KeySourcePage, "source_page"))
	}

	rec.NaturalKeyHash = NaturalKeyHash(rec)
	return rec
}

// customerSource is stored as the JSON encoding of whatever the upstream sent,
// so a string source keeps its quotes. HTML characters are left unescaped.
func customerSource(v any) *string {
	if !truthy(v) {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil
	}
	s := strings.TrimSuffix(buf.String(), "\n")
	return &s
}
