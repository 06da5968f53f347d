package config

// Dataset names. Revenue is synced first; its merged grid drives priority
// selection for the others.
const (
	DatasetRevenue        = "revenue"
	DatasetTrafficMonthly = "traffic_monthly"
	DatasetTrafficAverage = "traffic_average"
	DatasetDR             = "dr"
	DatasetRD             = "rd"
)

// AgentNicheKey is the site/agent/niche mapping uploaded by hand, served
// by the API but never synced.
const AgentNicheKey = "site-agent-niche.csv"

// Dataset describes one spreadsheet tab and where its merged output lives
type Dataset struct {
	Name    string
	Label   string
	SheetID string
	Tab     string
	Key     string
	// Route is the dataset's name under /api/data.
	Route string
	// PriorityKey is empty for datasets without a reduced variant.
	PriorityKey string
	// FindHeader trims leading metadata rows above the real header row.
	FindHeader bool
	// PreserveHistory merges the fetched grid with the persisted one.
	PreserveHistory bool
}

// DefaultDatasets returns the five datasets the dashboard consumes, revenue first.
func DefaultDatasets(trafficSheetID, revenueSheetID string) []Dataset {
	return []Dataset{
		{
			Name:            DatasetRevenue,
			Label:           "Revenue",
			SheetID:         revenueSheetID,
			Tab:             "Revenue",
			Key:             "revenue-history.csv",
			Route:           "revenue",
			PreserveHistory: true,
		},
		{
			Name:            DatasetTrafficMonthly,
			Label:           "Traffic Monthly",
			SheetID:         trafficSheetID,
			Tab:             "Traffic Monthly",
			Key:             "traffic-data.csv",
			Route:           "traffic",
			PriorityKey:     "traffic-data-priority.csv",
			PreserveHistory: true,
		},
		{
			Name:            DatasetTrafficAverage,
			Label:           "Traffic Average",
			SheetID:         trafficSheetID,
			Tab:             "Traffic Average",
			Key:             "internal-average-traffic.csv",
			Route:           "traffic-average",
			PriorityKey:     "internal-average-traffic-priority.csv",
			FindHeader:      true,
			PreserveHistory: true,
		},
		{
			Name:            DatasetDR,
			Label:           "DR",
			SheetID:         trafficSheetID,
			Tab:             "DR",
			Key:             "DR History.csv",
			Route:           "dr",
			PriorityKey:     "DR History-priority.csv",
			PreserveHistory: true,
		},
		{
			Name:            DatasetRD,
			Label:           "RD",
			SheetID:         trafficSheetID,
			Tab:             "RD",
			Key:             "RD History.csv",
			Route:           "rd",
			PriorityKey:     "RD History-priority.csv",
			PreserveHistory: true,
		},
	}
}
