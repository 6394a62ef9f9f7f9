package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"promobar/internal/model"
)

func TestMatchesDevice(t *testing.T) {
	tests := []struct {
		name     string
		devices  string
		isMobile bool
		want     bool
	}{
		{"both matches mobile", model.DevicesBoth, true, true},
		{"both matches desktop", model.DevicesBoth, false, true},
		{"mobile matches mobile", model.DevicesMobile, true, true},
		{"mobile rejects desktop", model.DevicesMobile, false, false},
		{"desktop matches desktop", model.DevicesDesktop, false, true},
		{"desktop rejects mobile", model.DevicesDesktop, true, false},
		{"unknown value matches everyone", "tablet", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesDevice(tt.devices, tt.isMobile))
		})
	}
}

func TestMatchesPage(t *testing.T) {
	tests := []struct {
		name    string
		pages   string
		path    string
		urls    []string
		pattern *model.URLPattern
		want    bool
	}{
		{"all matches anything", model.PagesAll, "/whatever", nil, nil, true},
		{"homepage matches root", model.PagesHomepage, "/", nil, nil, true},
		{"homepage matches empty path", model.PagesHomepage, "", nil, nil, true},
		{"homepage rejects other paths", model.PagesHomepage, "/about", nil, nil, false},
		{"product matches product path", model.PagesProduct, "/products/blue-shirt", nil, nil, true},
		{"product rejects collection path", model.PagesProduct, "/collections/summer", nil, nil, false},
		{"collection matches collection path", model.PagesCollection, "/collections/summer", nil, nil, true},
		{"cart matches cart path", model.PagesCart, "/cart", nil, nil, true},
		{"specific exact match", model.PagesSpecific, "/pages/sale", []string{"/pages/sale"}, nil, true},
		{"specific prefix match", model.PagesSpecific, "/pages/sale/extra", []string{"/pages/sale"}, nil, true},
		{"specific no match", model.PagesSpecific, "/pages/faq", []string{"/pages/sale"}, nil, false},
		{"specific skips empty entries", model.PagesSpecific, "/pages/faq", []string{""}, nil, false},
		{"pattern contains", model.PagesPattern, "/summer-sale-2024", nil, &model.URLPattern{Type: model.PatternContains, Value: "sale"}, true},
		{"pattern starts_with", model.PagesPattern, "/sale/items", nil, &model.URLPattern{Type: model.PatternStartsWith, Value: "/sale"}, true},
		{"pattern ends_with", model.PagesPattern, "/items/sale", nil, &model.URLPattern{Type: model.PatternEndsWith, Value: "/sale"}, true},
		{"pattern miss", model.PagesPattern, "/about", nil, &model.URLPattern{Type: model.PatternContains, Value: "sale"}, false},
		{"nil pattern never matches", model.PagesPattern, "/about", nil, nil, false},
		{"empty pattern value never matches", model.PagesPattern, "/about", nil, &model.URLPattern{Type: model.PatternContains}, false},
		{"unknown page rule matches everything", "blog", "/blogs/news", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesPage(tt.pages, tt.path, tt.urls, tt.pattern))
		})
	}
}

func TestMatchesFrequency(t *testing.T) {
	assert.True(t, MatchesFrequency(model.FrequencyAlways, true))
	assert.True(t, MatchesFrequency(model.FrequencyAlways, false))
	assert.False(t, MatchesFrequency(model.FrequencyOncePerSession, true))
	assert.True(t, MatchesFrequency(model.FrequencyOncePerSession, false))
	assert.False(t, MatchesFrequency(model.FrequencyOncePerVisitor, true))
	assert.True(t, MatchesFrequency(model.FrequencyOncePerVisitor, false))
}

func TestMatchesGeo(t *testing.T) {
	countries := []string{"US", "CA"}
	tests := []struct {
		name    string
		enabled bool
		mode    string
		country string
		want    bool
	}{
		{"disabled always matches", false, model.GeoModeInclude, "FR", true},
		{"mode all always matches", true, model.GeoModeAll, "FR", true},
		{"include matches listed country", true, model.GeoModeInclude, "US", true},
		{"include matches case-insensitively", true, model.GeoModeInclude, "us", true},
		{"include rejects unlisted country", true, model.GeoModeInclude, "FR", false},
		{"include rejects unknown country", true, model.GeoModeInclude, "", false},
		{"exclude rejects listed country", true, model.GeoModeExclude, "US", false},
		{"exclude allows unlisted country", true, model.GeoModeExclude, "FR", true},
		{"exclude allows unknown country", true, model.GeoModeExclude, "", true},
		{"unknown mode matches", true, "near", "FR", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesGeo(tt.enabled, tt.mode, countries, tt.country))
		})
	}
}
