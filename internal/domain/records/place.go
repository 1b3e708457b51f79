package records

import "strings"

// Place is a free-text location split into the locations table columns.
type Place struct {
	City    string
	State   string
	Country string
}

// ParsePlace splits "City, State, Country". Missing parts are empty; parts
// past the third are folded into Country.
func ParsePlace(raw string) Place {
	parts := strings.Split(raw, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.Join(strings.Fields(part), " "); p != "" {
			clean = append(clean, p)
		}
	}
	var place Place
	switch {
	case len(clean) == 0:
	case len(clean) == 1:
		place.City = clean[0]
	case len(clean) == 2:
		place.City, place.State = clean[0], clean[1]
	default:
		place.City, place.State = clean[0], clean[1]
		place.Country = strings.Join(clean[2:], ", ")
	}
	return place
}
