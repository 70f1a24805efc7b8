package license

// RawRecord is an upstream row exactly as decoded from JSON. Keys and value
// types are not stable across fields or pages.
type RawRecord map[string]any

// Provenance keys stamped onto raw rows by the fetcher.
const (
	KeyFetchDateFrom = "_fetch_date_from"
	KeyFetchDateTo   = "_fetch_date_to"
	KeySourcePage    = "_source_page"
)

// Record is the canonical license row. Nil pointers are SQL NULL.
type Record struct {
	CustomerRef         *string  `json:"customer_ref"`
	CustomerName        *string  `json:"customer_name"`
	CustomerSource      *string  `json:"customer_source"`
	UserUsername        *string  `json:"user_username"`
	UserFullname        *string  `json:"user_fullname"`
	ProductRef          *string  `json:"product_ref"`
	ProductTitle        *string  `json:"product_title"`
	ProductDuration     *float64 `json:"product_duration"`
	ProductPrice        *float64 `json:"product_price"`
	LicenseDetails      *string  `json:"license_details"`
	LicenseStart        *string  `json:"license_start"`
	LicenseEnd          *string  `json:"license_end"`
	TrackingFirstAccess *string  `json:"tracking_first_access"`
	TrackingLastAccess  *string  `json:"tracking_last_access"`
	TrackingVisits      *float64 `json:"tracking_visits"`
	TrackingElapsedTime *float64 `json:"tracking_elapsed_time"`
	NaturalKeyHash      string   `json:"natural_key_hash"`
	IsProvisional       int      `json:"is_provisional"`
	FetchDateFrom       *string  `json:"_fetch_date_from"`
	FetchDateTo         *string  `json:"_fetch_date_to"`
	SourcePage          *int     `json:"_source_page"`
}

// StoredRecord is a canonical row read back from the store.
type StoredRecord struct {
	Record
	FetchedAt string `json:"_fetched_at"`
}

// AuditEntry is the raw payload appended to the audit table alongside each
// canonical write.
type AuditEntry struct {
	NaturalKeyHash string
	Payload        []byte
	SourceFile     string
	SourceRowIndex int
	FetchDateFrom  *string
	FetchDateTo    *string
	SourcePage     *int
}
