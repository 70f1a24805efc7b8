package license

import "strconv"

// Columns lists the canonical table columns in insert order.
var Columns = []string{
	"customer_ref",
	"customer_name",
	"customer_source",
	"user_username",
	"user_fullname",
	"product_ref",
	"product_title",
	"product_duration",
	"product_price",
	"license_details",
	"license_start",
	"license_end",
	"tracking_first_access",
	"tracking_last_access",
	"tracking_visits",
	"tracking_elapsed_time",
	"natural_key_hash",
	"is_provisional",
	"_fetch_date_from",
	"_fetch_date_to",
	"_source_page",
}

// Values returns bind parameters matching Columns. Pointers are dereferenced
// and nil pointers become untyped nil.
func (r Record) Values() []any {
	return []any{
		nullable(r.CustomerRef),
		nullable(r.CustomerName),
		nullable(r.CustomerSource),
		nullable(r.UserUsername),
		nullable(r.UserFullname),
		nullable(r.ProductRef),
		nullable(r.ProductTitle),
		nullable(r.ProductDuration),
		nullable(r.ProductPrice),
		nullable(r.LicenseDetails),
		nullable(r.LicenseStart),
		nullable(r.LicenseEnd),
		nullable(r.TrackingFirstAccess),
		nullable(r.TrackingLastAccess),
		nullable(r.TrackingVisits),
		nullable(r.TrackingElapsedTime),
		r.NaturalKeyHash,
		r.IsProvisional,
		nullable(r.FetchDateFrom),
		nullable(r.FetchDateTo),
		nullable(r.SourcePage),
	}
}

// Pointers returns scan destinations matching Columns.
func (r *Record) Pointers() []any {
	return []any{
		&r.CustomerRef,
		&r.CustomerName,
		&r.CustomerSource,
		&r.UserUsername,
		&r.UserFullname,
		&r.ProductRef,
		&r.ProductTitle,
		&r.ProductDuration,
		&r.ProductPrice,
		&r.LicenseDetails,
		&r.LicenseStart,
		&r.LicenseEnd,
		&r.TrackingFirstAccess,
		&r.TrackingLastAccess,
		&r.TrackingVisits,
		&r.TrackingElapsedTime,
		&r.NaturalKeyHash,
		&r.IsProvisional,
		&r.FetchDateFrom,
		&r.FetchDateTo,
		&r.SourcePage,
	}
}

// Strings renders the record for CSV output, one cell per entry in Columns.
// Null values are empty cells.
func (r Record) Strings() []string {
	out := make([]string, 0, len(Columns))
	for _, v := range r.Values() {
		switch val := v.(type) {
		case nil:
			out = append(out, "")
		case float64:
			out = append(out, strconv.FormatFloat(val, 'f', -1, 64))
		case string:
			out = append(out, val)
		case int:
			out = append(out, strconv.Itoa(val))
		}
	}
	return out
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
