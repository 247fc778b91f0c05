package domain

// StatusCodeRef is one row of the provider status-code reference table,
// seeded at migration time.
type StatusCodeRef struct {
	Code      string `gorm:"type:varchar(8);primaryKey"`
	Label     string `gorm:"type:varchar(128);not null"`
	GatewayID string `gorm:"type:uuid"`
}

func (StatusCodeRef) TableName() string {
	return "status_code_refs"
}

// statusCodeLabels maps the provider's numeric status codes to their meaning.
// The labels are the provider's own (French) wording.
var statusCodeLabels = map[string]string{
	"200": "OK",
	"400": "absence d'id",
	"401": "id non autorisé",
	"402": "crédit insuffisant",
	"403": "module non autorisé",
	"420": "quota journalier dépassé",
	"430": "contenu manquant",
	"431": "destination manquante",
	"440": "contenu trop long",
	"441": "destination non autorisée",
	"442": "sender non autorisée",
	"500": "erreur interne",
	"501": "date non valide",
	"502": "heure non valide",
}

// StatusCodeText returns the human label for a provider status code, or an
// empty string for unknown codes.
func StatusCodeText(code string) string {
	return statusCodeLabels[code]
}

// StatusCodeRefs returns the full seed list for the reference table.
func StatusCodeRefs() []StatusCodeRef {
	refs := make([]StatusCodeRef, 0, len(statusCodeLabels))
	for code, label := range statusCodeLabels {
		refs = append(refs, StatusCodeRef{Code: code, Label: label})
	}
	return refs
}
