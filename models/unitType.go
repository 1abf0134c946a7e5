package models

import "strings"

// Normalised unit type keys used in setting names such as COMPANY_COMMISSION_MEDICAL.
const (
	UnitTypeKeyApartment      = "APARTMENT"
	UnitTypeKeyCommercial     = "COMMERCIAL"
	UnitTypeKeyAdministrative = "ADMINISTRATIVE"
	UnitTypeKeyMedical        = "MEDICAL"
)

var unitTypeKeys = map[string]string{
	"شقة":            UnitTypeKeyApartment,
	"تجاري":          UnitTypeKeyCommercial,
	"إداري":          UnitTypeKeyAdministrative,
	"طبي":            UnitTypeKeyMedical,
	"apartment":      UnitTypeKeyApartment,
	"commercial":     UnitTypeKeyCommercial,
	"administrative": UnitTypeKeyAdministrative,
	"medical":        UnitTypeKeyMedical,
}

// UnitTypeKey maps a unit type label in Arabic or English to its key. Unknown labels are apartments.
func UnitTypeKey(label string) string {
	if key, ok := unitTypeKeys[strings.ToLower(strings.TrimSpace(label))]; ok {
		return key
	}
	return UnitTypeKeyApartment
}
