package config

// SchoolInfo represents a target school configuration
type SchoolInfo struct {
	Name      string    `json:"name"`
	Campus    []float64 `json:"campus"`
	ZoomLevel int       `json:"zoom_level"`
}

// SupportedSchools is a list of target schools supported by the application
var SupportedSchools = []SchoolInfo{
	{
		Name:      "UNSW",
		Campus:    []float64{-33.9173, 151.2313},
		ZoomLevel: 14,
	},
	{
		Name:      "USYD",
		Campus:    []float64{-33.8886, 151.1873},
		ZoomLevel: 14,
	},
	{
		Name:      "UTS",
		Campus:    []float64{-33.8832, 151.2005},
		ZoomLevel: 14,
	},
	{
		Name:      "UMELB",
		Campus:    []float64{-37.7983, 144.9610},
		ZoomLevel: 14,
	},
	// Add more schools here as needed
}

// GetSchoolNames returns a list of supported school names
func GetSchoolNames() []string {
	names := make([]string, len(SupportedSchools))
	for i, school := range SupportedSchools {
		names[i] = school.Name
	}
	return names
}

// GetSchoolByName returns a school configuration by name
func GetSchoolByName(name string) *SchoolInfo {
	for _, school := range SupportedSchools {
		if school.Name == name {
			return &school
		}
	}
	return nil
}
