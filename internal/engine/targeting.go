package engine

import (
	"strings"

	"promobar/internal/model"
)

// Targeting predicates. Device, page and frequency are normally evaluated by
// the storefront client which sees the live navigation context; the server
// applies them only when the caller supplies the context. Geo is applied
// server-side whenever geo targeting is enabled.

// MatchesDevice reports whether a bar targeting the given device class
// matches a visitor.
func MatchesDevice(targetDevices string, isMobile bool) bool {
	switch targetDevices {
	case model.DevicesMobile:
		return isMobile
	case model.DevicesDesktop:
		return !isMobile
	default:
		// "both" and anything unrecognized matches everyone.
		return true
	}
}

// MatchesPage reports whether the current path matches the bar's page
// targeting rule.
func MatchesPage(targetPages, currentPath string, specificURLs []string, pattern *model.URLPattern) bool {
	switch targetPages {
	case model.PagesAll:
		return true
	case model.PagesHomepage:
		return currentPath == "/" || currentPath == ""
	case model.PagesProduct:
		return strings.Contains(currentPath, "/products/")
	case model.PagesCollection:
		return strings.Contains(currentPath, "/collections/")
	case model.PagesCart:
		return strings.Contains(currentPath, "/cart")
	case model.PagesSpecific:
		for _, u := range specificURLs {
			if u == "" {
				continue
			}
			if currentPath == u || strings.HasPrefix(currentPath, u) {
				return true
			}
		}
		return false
	case model.PagesPattern:
		if pattern == nil || pattern.Value == "" {
			return false
		}
		switch pattern.Type {
		case model.PatternContains:
			return strings.Contains(currentPath, pattern.Value)
		case model.PatternStartsWith:
			return strings.HasPrefix(currentPath, pattern.Value)
		case model.PatternEndsWith:
			return strings.HasSuffix(currentPath, pattern.Value)
		}
		return false
	default:
		return true
	}
}

// MatchesFrequency reports whether the display frequency rule still permits
// showing the bar, given whether the client already showed it. The shown flag
// lives client-side (session storage vs a long-lived token), the server only
// sees what the client reports.
func MatchesFrequency(frequency string, alreadyShown bool) bool {
	switch frequency {
	case model.FrequencyOncePerSession, model.FrequencyOncePerVisitor:
		return !alreadyShown
	default:
		return true
	}
}

// MatchesGeo reports whether geo targeting permits the visitor's country.
// An empty country means the country could not be determined: include-mode
// bars then do NOT show (unknown audience is not the chosen audience) while
// exclude-mode bars DO show (the exclusion could not be confirmed). This
// asymmetry is deliberate, keep it.
func MatchesGeo(enabled bool, mode string, countries []string, visitorCountry string) bool {
	if !enabled || mode == model.GeoModeAll {
		return true
	}
	known := visitorCountry != ""
	inList := false
	for _, c := range countries {
		if strings.EqualFold(c, visitorCountry) {
			inList = true
			break
		}
	}
	switch mode {
	case model.GeoModeInclude:
		return known && inList
	case model.GeoModeExclude:
		return !known || !inList
	default:
		return true
	}
}
