package classifier

import (
	"testing"

	"civicreport-be/models"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name       string
		text       string
		category   models.IssueCategory
		priority   models.IssuePriority
		department string
		title      string
	}{
		{"hinglish water leak", "paani ka leak ho raha hai", models.CategoryWater, models.PriorityHigh, "Water Department", "Water Supply Issue"},
		{"pothole", "Big gaddha near the school gate", models.CategoryRoad, models.PriorityMedium, "Roads Department", "Road Damage Issue"},
		{"streetlight", "Street light has been off for a week", models.CategoryStreetlight, models.PriorityHigh, "Electrical Department", "Street Light Problem"},
		{"bijli", "bijli nahi aa rahi", models.CategoryStreetlight, models.PriorityHigh, "Electrical Department", "Street Light Problem"},
		{"garbage", "kooda pile not collected", models.CategorySanitation, models.PriorityLow, "Sanitation Department", "Sanitation Problem"},
		{"drainage", "nala is overflowing", models.CategoryOther, models.PriorityLow, "Drainage Department", "Drainage Problem"},
		{"traffic", "signal stuck on red", models.CategoryOther, models.PriorityMedium, "Traffic Department", "Traffic Management Issue"},
		{"fallback", "stray dogs in the park", models.CategoryOther, models.PriorityLow, "General Complaints Department", "Other Civic Issue"},
		{"empty", "", models.CategoryOther, models.PriorityLow, "General Complaints Department", "Other Civic Issue"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.text)
			assert.Equal(t, tc.category, got.Category)
			assert.Equal(t, tc.priority, got.Priority)
			assert.Equal(t, tc.department, got.Department)
			assert.Equal(t, tc.title, got.Title)
		})
	}
}

func TestClassifyLadderOrder(t *testing.T) {
	// road keywords are checked before water keywords
	got := Classify("water collecting on the road")
	assert.Equal(t, ProblemRoad, got.Problem)
	assert.Equal(t, models.CategoryRoad, got.Category)
}

func TestClassifyPipeLeakOnSadak(t *testing.T) {
	got := Classify("Paani ka pipe leak hai sadak par")
	assert.Equal(t, models.CategoryWater, got.Category)
	assert.Equal(t, "Water Department", got.Department)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, "Water Supply Issue", got.Title)
}

func TestClassifyDeterministic(t *testing.T) {
	first := Classify("paani ka leak ho raha hai")
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Classify("paani ka leak ho raha hai"))
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "water ka pipeline", Normalize("PAANI ka Pipe"))
	assert.Equal(t, "drainage and drainage", Normalize("nala and gutter"))
}
