// Package judgments searches the eCourts judgment portal at
// judgments.ecourts.gov.in. The CAPTCHA is validated on its own first and the
// portal hands back an app_token that authorises the results page.
package judgments

import (
	"net/url"
	"strings"
)

// DefaultBaseURL is the live portal root
const DefaultBaseURL = "https://judgments.ecourts.gov.in/pdfsearch"

// Court type filters accepted by the results page
const (
	CourtTypeHighCourt = "2"
	CourtTypeSCR       = "3"
)

// Search options
const (
	SearchPhrase = "PHRASE"
	SearchAny    = "ANY"
	SearchAll    = "ALL"
)

// Endpoints holds the portal URLs derived from one base
type Endpoints struct {
	Base         string
	MainPage     string
	Captcha      string
	CheckCaptcha string
	Results      string
}

// NewEndpoints derives the portal URLs from base
func NewEndpoints(base string) Endpoints {
	base = strings.TrimSuffix(base, "/")
	return Endpoints{
		Base:         base,
		MainPage:     base + "/",
		Captcha:      base + "/vendor/securimage/securimage_show.php",
		CheckCaptcha: base + "/?p=pdf_search/checkCaptcha",
		Results:      base + "/",
	}
}

// The portal expects exactly this field order
func checkCaptchaForm(answer, text, opt string) []string {
	return []string{
		"captcha", answer,
		"search_text", text,
		"search_opt", opt,
		"escr_flag", "",
		"proximity", "",
		"sel_lang", "",
		"ajax_req", "true",
		"app_token", "",
	}
}

func resultsParams(text, answer, opt, courtType, escr, token string) url.Values {
	return url.Values{
		"p":           {"pdf_search/home"},
		"text":        {text},
		"captcha":     {answer},
		"search_opt":  {opt},
		"fcourt_type": {courtType},
		"escr_flag":   {escr},
		"proximity":   {""},
		"sel_lang":    {""},
		"app_token":   {token},
	}
}
