// Package classifier infers the category, department and priority of a
// complaint from its free text. It is a pure keyword heuristic: no I/O, no
// state, and it never fails.
package classifier

import (
	"strings"

	"civicreport-be/models"
)

// Problem is the identified problem label.
type Problem string

const (
	ProblemRoad        Problem = "Pothole / Road Damage"
	ProblemStreetlight Problem = "Streetlight / Electrical Issue"
	ProblemWater       Problem = "Water Leakage / Pipeline Issue"
	ProblemSanitation  Problem = "Garbage / Sanitation Issue"
	ProblemDrainage    Problem = "Drainage Issue"
	ProblemTraffic     Problem = "Traffic / Signal Issue"
	ProblemOther       Problem = "Other Civic Issue"
)

// Result is the outcome of classifying a complaint.
type Result struct {
	Problem    Problem              `json:"problemIdentified"`
	Category   models.IssueCategory `json:"category"`
	Department string               `json:"department"`
	Priority   models.IssuePriority `json:"priority"`
	Title      string               `json:"title"`
}

// lexicon rewrites common Hindi/Hinglish words to the English keywords the
// ladder matches on.
var lexicon = strings.NewReplacer(
	"paani", "water",
	"gaddha", "pothole",
	"bijli", "electricity",
	"kooda", "garbage",
	"light", "streetlight",
	"pipe", "pipeline",
	"leak", "leakage",
	"nala", "drainage",
	"gutter", "drainage",
	"signal", "traffic signal",
)

type rule struct {
	problem  Problem
	keywords []string
}

// ladder is evaluated top to bottom; the first matching rule wins.
var ladder = []rule{
	{ProblemRoad, []string{"pothole", "road", "damage"}},
	{ProblemStreetlight, []string{"streetlight", "light", "electricity"}},
	{ProblemWater, []string{"water", "leak", "pipeline"}},
	{ProblemSanitation, []string{"garbage", "dustbin", "sanitation"}},
	{ProblemDrainage, []string{"drainage", "gutter", "nala"}},
	{ProblemTraffic, []string{"traffic", "signal"}},
}

type profile struct {
	category   models.IssueCategory
	department string
	priority   models.IssuePriority
	title      string
}

var profiles = map[Problem]profile{
	ProblemRoad:        {models.CategoryRoad, "Roads Department", models.PriorityMedium, "Road Damage Issue"},
	ProblemStreetlight: {models.CategoryStreetlight, "Electrical Department", models.PriorityHigh, "Street Light Problem"},
	ProblemWater:       {models.CategoryWater, "Water Department", models.PriorityHigh, "Water Supply Issue"},
	ProblemSanitation:  {models.CategorySanitation, "Sanitation Department", models.PriorityLow, "Sanitation Problem"},
	ProblemDrainage:    {models.CategoryOther, "Drainage Department", models.PriorityLow, "Drainage Problem"},
	ProblemTraffic:     {models.CategoryOther, "Traffic Department", models.PriorityMedium, "Traffic Management Issue"},
	ProblemOther:       {models.CategoryOther, "General Complaints Department", models.PriorityLow, "Other Civic Issue"},
}

// Normalize lower-cases text and applies the Hinglish lexicon.
func Normalize(text string) string {
	return lexicon.Replace(strings.ToLower(text))
}

// Identify returns the first problem of the ladder whose keywords occur in
// the normalized text.
func Identify(normalized string) Problem {
	for _, r := range ladder {
		for _, kw := range r.keywords {
			if strings.Contains(normalized, kw) {
				return r.problem
			}
		}
	}
	return ProblemOther
}

// Classify maps free text to category, department, priority and a title.
func Classify(text string) Result {
	problem := Identify(Normalize(text))
	p := profiles[problem]
	return Result{
		Problem:    problem,
		Category:   p.category,
		Department: p.department,
		Priority:   p.priority,
		Title:      p.title,
	}
}
