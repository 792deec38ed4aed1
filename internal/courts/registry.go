package courts

import (
	"fmt"
	"strings"

	"github.com/JustJay7/ecourts-fetcher/internal/models"
)

// State codes are the HC Services portal identifiers used in every form post.
var highCourts = []models.Court{
	hc("Allahabad High Court", "allahabad", "13", ""),
	hc("Allahabad High Court, Lucknow Bench", "allahabad-lucknow", "13", "Lucknow"),
	hc("Andhra Pradesh High Court", "andhra", "2", ""),
	hc("Bombay High Court", "bombay", "1", ""),
	hc("Bombay High Court, Nagpur Bench", "bombay-nagpur", "1", "Nagpur"),
	hc("Bombay High Court, Aurangabad Bench", "bombay-aurangabad", "1", "Aurangabad"),
	hc("Bombay High Court, Goa Bench", "bombay-goa", "1", "Goa"),
	hc("Calcutta High Court", "calcutta", "16", ""),
	hc("Chhattisgarh High Court", "chhattisgarh", "18", ""),
	hc("Delhi High Court", "delhi", "26", ""),
	hc("Gauhati High Court", "gauhati", "6", ""),
	hc("Gujarat High Court", "gujarat", "17", ""),
	hc("Himachal Pradesh High Court", "himachal", "5", ""),
	hc("Jammu & Kashmir High Court", "jammu", "12", ""),
	hc("Jharkhand High Court", "jharkhand", "7", ""),
	hc("Karnataka High Court", "karnataka", "3", ""),
	hc("Kerala High Court", "kerala", "4", ""),
	hc("Madhya Pradesh High Court", "mp", "23", ""),
	hc("Madras High Court", "madras", "10", ""),
	hc("Manipur High Court", "manipur", "25", ""),
	hc("Meghalaya High Court", "meghalaya", "21", ""),
	hc("Orissa High Court", "orissa", "11", ""),
	hc("Patna High Court", "patna", "8", ""),
	hc("Punjab and Haryana High Court", "punjab", "22", ""),
	hc("Rajasthan High Court", "rajasthan", "9", ""),
	hc("Sikkim High Court", "sikkim", "24", ""),
	hc("Telangana High Court", "telangana", "29", ""),
	hc("Tripura High Court", "tripura", "20", ""),
	hc("Uttarakhand High Court", "uttarakhand", "15", ""),
}

// SupremeCourt is the single Supreme Court entry
var SupremeCourt = models.Court{
	Name:      "Supreme Court of India",
	Code:      "sci",
	StateCode: "0",
	Type:      models.SupremeCourt,
}

var (
	byCode = map[string]models.Court{}
	byName = map[string]models.Court{}
)

func init() {
	for _, c := range All() {
		key := strings.ToLower(c.Code)
		if _, dup := byCode[key]; dup {
			panic(fmt.Sprintf("courts: duplicate code %q", c.Code))
		}
		byCode[key] = c
		byName[strings.ToLower(c.Name)] = c
	}
}

func hc(name, code, stateCode, bench string) models.Court {
	return models.Court{
		Name:      name,
		Code:      code,
		StateCode: stateCode,
		Type:      models.HighCourt,
		Bench:     bench,
	}
}

// Get looks a court up by code, e.g. "delhi", "bombay-nagpur" or "sci"
func Get(code string) (models.Court, bool) {
	c, ok := byCode[strings.ToLower(strings.TrimSpace(code))]
	return c, ok
}

// GetByName looks a court up by its full name, ignoring case
func GetByName(name string) (models.Court, bool) {
	c, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// HighCourts returns a copy of the High Court table
func HighCourts() []models.Court {
	out := make([]models.Court, len(highCourts))
	copy(out, highCourts)
	return out
}

// All returns the Supreme Court followed by every High Court
func All() []models.Court {
	return append([]models.Court{SupremeCourt}, highCourts...)
}
