package config

import "time"

const (
	// Complaint form
	TitleMinLen            = 10
	TitleMaxLen            = 200
	DescriptionMinLen      = 20
	StaffDescriptionMaxLen = 2000
	EvidenceMaxBytes       = 10 << 20

	// Listings
	ActivityLogCap     = 200
	PublicRecentLimit  = 5
	DashboardRecent    = 10
	DashboardTopN      = 5
	SummaryDescription = 100

	// Accounts
	UsernameMinLen = 4
	UsernameMaxLen = 150
	PasswordMinLen = 8

	// Login throttling (only when Redis is configured)
	LoginMaxAttempts = 10
	LoginWindow      = 15 * time.Minute

	// Biodiversity lookup
	ObservationsPerPage = 30
)

// EvidenceExtensions is the allow-list of evidence file extensions.
var EvidenceExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"pdf":  true,
	"mp4":  true,
	"mov":  true,
}

// DefaultCategories is the taxonomy seeded at startup, keyed by slug.
var DefaultCategories = []struct {
	Name        string
	Slug        string
	Description string
}{
	{"Flora", "flora", "Daño a especies vegetales nativas"},
	{"Fauna", "fauna", "Caza, tráfico o maltrato de fauna silvestre"},
	{"Contaminación del agua", "contaminacion-agua", "Vertidos en ríos, lagos o el mar"},
	{"Contaminación del aire", "contaminacion-aire", "Emisiones, humo o malos olores"},
	{"Residuos", "residuos", "Microbasurales y disposición ilegal de residuos"},
	{"Tala ilegal", "tala-ilegal", "Corta no autorizada de bosque"},
	{"Incendios", "incendios", "Quemas e incendios forestales"},
	{"Otros", "otros", "Otras infracciones ambientales"},
}
