package testsupport

import (
	"fmt"

	"licensesync/internal/license"
)

// RawLicense returns a distinct, fully populated upstream row. Rows built with
// different n hash differently.
func RawLicense(n int) license.RawRecord {
	return license.RawRecord{
		"customer_ref":          "C-100",
		"customer_name":         "Acme",
		"user_username":         fmt.Sprintf("user%03d@example.com", n),
		"user_fullname":         fmt.Sprintf("User %d", n),
		"product_ref":           "P-1",
		"product_title":         "Compliance 101",
		"product_duration":      "20",
		"product_price":         "12,50",
		"license_details":       "01/02/2024 to 01/03/2024",
		"tracking_first_access": "2024-02-02",
		"tracking_visits":       n,
	}
}

// RawLicenses returns count distinct rows.
func RawLicenses(count int) []license.RawRecord {
	rows := make([]license.RawRecord, count)
	for i := range rows {
		rows[i] = RawLicense(i)
	}
	return rows
}
