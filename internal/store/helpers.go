package store

import "licensesync/internal/license"

func scanLicense(scanner interface{ Scan(dest ...any) error }) (license.StoredRecord, error) {
	var rec license.StoredRecord
	dest := append(rec.Pointers(), &rec.FetchedAt)
	if err := scanner.Scan(dest...); err != nil {
		return license.StoredRecord{}, err
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullablePtr[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func questionMark(int) string { return "?" }
