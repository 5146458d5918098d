package dashboard

// Tab is one section of the dashboard page.
type Tab struct {
	ID    string
	Title string
}

var tabTitles = map[string]string{
	"map":            "Map",
	"visualizations": "Visualizations",
	"data":           "Data View",
	"upload":         "Upload Data",
	"tides":          "Current Tides",
}

// EnabledTabs resolves configured tab ids in order, skipping unknown ids.
func EnabledTabs(ids []string) []Tab {
	tabs := make([]Tab, 0, len(ids))
	for _, id := range ids {
		if title, ok := tabTitles[id]; ok {
			tabs = append(tabs, Tab{ID: id, Title: title})
		}
	}
	return tabs
}

// HasTab reports whether id is among tabs.
func HasTab(tabs []Tab, id string) bool {
	for _, t := range tabs {
		if t.ID == id {
			return true
		}
	}
	return false
}
