package vocab

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
)

func TestDefault_Parses(t *testing.T) {
	v := Default()
	require.NotNil(t, v)

	cats := v.Categories()
	assert.Contains(t, cats, model.Category("Logistics"))
	assert.Contains(t, cats, model.Category("SaaS"))
	assert.Contains(t, cats, model.Category("E-commerce"))
	assert.NotContains(t, cats, model.CategoryUnknown)

	assert.Equal(t, "fleet visibility and delivery delays", v.Angle("Logistics"))
	assert.Equal(t, v.FallbackAngle(), v.Angle(model.CategoryUnknown))
	assert.Same(t, v, Default())
}

func TestScan_CaseInsensitiveWholeWords(t *testing.T) {
	v := Default()

	hits := v.Scan("We run FLEET Management and Freight brokerage across the SUPPLY-CHAIN.")
	assert.Contains(t, hits, model.KeywordHit{Category: "Logistics", Keyword: "fleet management"})
	assert.Contains(t, hits, model.KeywordHit{Category: "Logistics", Keyword: "freight"})
	assert.Contains(t, hits, model.KeywordHit{Category: "Logistics", Keyword: "supply chain"})
}

func TestScan_LongestMatchWins(t *testing.T) {
	v := Default()

	tests := []struct {
		name    string
		text    string
		want    []model.KeywordHit
		missing []model.KeywordHit
	}{
		{
			name:    "phrase hides its word",
			text:    "Fleet management for carriers",
			want:    []model.KeywordHit{{Category: "Logistics", Keyword: "fleet management"}},
			missing: []model.KeywordHit{{Category: "Logistics", Keyword: "fleet"}},
		},
		{
			name:    "repeated phrase",
			text:    "fleet management fleet management",
			want:    []model.KeywordHit{{Category: "Logistics", Keyword: "fleet management"}},
			missing: []model.KeywordHit{{Category: "Logistics", Keyword: "fleet"}},
		},
		{
			name: "word also used alone",
			text: "Fleet management. Our fleet is electric.",
			want: []model.KeywordHit{
				{Category: "Logistics", Keyword: "fleet"},
				{Category: "Logistics", Keyword: "fleet management"},
			},
		},
		{
			name:    "across categories",
			text:    "Free shipping on every order, add to cart now",
			want:    []model.KeywordHit{{Category: "E-commerce", Keyword: "free shipping"}, {Category: "E-commerce", Keyword: "add to cart"}},
			missing: []model.KeywordHit{{Category: "Logistics", Keyword: "shipping"}, {Category: "E-commerce", Keyword: "cart"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := v.Scan(tt.text)
			for _, h := range tt.want {
				assert.Contains(t, hits, h)
			}
			for _, h := range tt.missing {
				assert.NotContains(t, hits, h)
			}
		})
	}
}

func TestScan_NoSubstringMatches(t *testing.T) {
	v := Default()
	// "rapid" must not match "api", "carting" must not match "cart".
	hits := v.Scan("rapidly carting therapies")
	for _, h := range hits {
		assert.NotEqual(t, "api", h.Keyword)
		assert.NotEqual(t, "cart", h.Keyword)
	}
}

func TestScan_Empty(t *testing.T) {
	assert.Nil(t, Default().Scan("   "))
	assert.Nil(t, Default().Scan("nothing relevant in here"))
}

func TestScan_SortedAndDeduplicated(t *testing.T) {
	v := Default()
	hits := v.Scan("api api dashboard freight")
	require.Len(t, hits, 3)
	assert.Equal(t, model.KeywordHit{Category: "Logistics", Keyword: "freight"}, hits[0])
	assert.Equal(t, model.KeywordHit{Category: "SaaS", Keyword: "api"}, hits[1])
	assert.Equal(t, model.KeywordHit{Category: "SaaS", Keyword: "dashboard"}, hits[2])
}

func TestParse_Custom(t *testing.T) {
	v, err := Parse([]byte(`
fallback_angle: generic pain
categories:
  - category: Robotics
    angle: robot downtime
    keywords: [Robot, " robots ", robot, cobot arm]
  - category: Farming
    keywords: [tractor]
`))
	require.NoError(t, err)
	assert.Equal(t, []model.Category{"Robotics", "Farming"}, v.Categories())
	assert.Equal(t, []string{"robot", "robots", "cobot arm"}, v.Keywords("Robotics"))
	assert.Equal(t, "robot downtime", v.Angle("Robotics"))
	assert.Equal(t, "generic pain", v.Angle("Farming"))
	assert.True(t, v.Has("Farming"))
	assert.False(t, v.Has("Logistics"))
	assert.Nil(t, v.Keywords("Logistics"))

	hits := v.Scan("Our COBOT-ARM and tractor fleet")
	assert.Equal(t, []model.KeywordHit{
		{Category: "Farming", Keyword: "tractor"},
		{Category: "Robotics", Keyword: "cobot arm"},
	}, hits)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no categories", "fallback_angle: x\n", "no categories"},
		{"empty name", "categories:\n  - keywords: [a]\n", "empty name"},
		{"reserved", "categories:\n  - category: unknown\n    keywords: [a]\n", "reserved"},
		{"duplicate", "categories:\n  - category: A\n    keywords: [a]\n  - category: A\n    keywords: [b]\n", "duplicate"},
		{"no keywords", "categories:\n  - category: A\n    keywords: [\" \"]\n", "no keywords"},
		{"unknown field", "categories:\n  - category: A\n    words: [a]\n", "decode yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - category: A\n    keywords: [alpha]\n"), 0o644))

	v, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultFallbackAngle, v.FallbackAngle())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMarshal_RoundTrip(t *testing.T) {
	out, err := Default().Marshal()
	require.NoError(t, err)

	v, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, Default().Categories(), v.Categories())
	assert.Equal(t, Default().Keywords("SaaS"), v.Keywords("SaaS"))
}

func TestKeywords_ReturnsCopy(t *testing.T) {
	v := Default()
	kws := v.Keywords("SaaS")
	kws[0] = "mutated"
	assert.NotEqual(t, "mutated", v.Keywords("SaaS")[0])
}
