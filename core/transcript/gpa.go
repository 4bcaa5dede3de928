package transcript

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NotAvailable is reported when no graded credits exist.
const NotAvailable = "N/A"

var (
	gradePoints = map[string]decimal.Decimal{
		"A+": decimal.RequireFromString("4.3"),
		"A":  decimal.RequireFromString("4.0"),
		"A-": decimal.RequireFromString("3.7"),
		"B+": decimal.RequireFromString("3.3"),
		"B":  decimal.RequireFromString("3.0"),
		"B-": decimal.RequireFromString("2.7"),
		"C+": decimal.RequireFromString("2.3"),
		"C":  decimal.RequireFromString("2.0"),
		"C-": decimal.RequireFromString("1.7"),
		"D+": decimal.RequireFromString("1.3"),
		"D":  decimal.RequireFromString("1.0"),
		"D-": decimal.RequireFromString("0.7"),
		"F":  decimal.Zero,
	}

	levelBonus = map[Level]decimal.Decimal{
		Honors: decimal.RequireFromString("0.5"),
		AP:     decimal.RequireFromString("1.0"),
	}
)

// Summary is the cumulative result of a transcript.
type Summary struct {
	TotalCredits decimal.Decimal `json:"total_credits"`
	GPA          string          `json:"gpa"`
	WeightedGPA  string          `json:"weighted_gpa,omitempty"`
}

// ParseCredits reads a credit value as entered. Non-numeric or negative values count as zero.
func ParseCredits(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// GradePoints returns the points of a letter grade.
// Pass, P, N/A and any unknown grade have no points.
func GradePoints(grade string) (decimal.Decimal, bool) {
	pts, ok := gradePoints[strings.ToUpper(strings.TrimSpace(grade))]
	return pts, ok
}

// Calculate computes total credits and GPA.
// A course's credits are split evenly across its non-blank terms; every term
// adds its share to the total, only letter-graded terms count toward the GPA.
func Calculate(courses []Course) Summary {
	var (
		total, graded, points, weightedPoints decimal.Decimal
		weighted                              bool
	)

	for _, c := range courses {
		if _, ok := levelBonus[c.Level]; ok {
			weighted = true
		}
		terms := c.Terms()
		if len(terms) == 0 {
			continue
		}
		share := ParseCredits(c.Credits).Div(decimal.NewFromInt(int64(len(terms))))

		for _, term := range terms {
			total = total.Add(share)
			pts, ok := GradePoints(term)
			if !ok {
				continue
			}
			graded = graded.Add(share)
			points = points.Add(pts.Mul(share))
			if bonus, ok := levelBonus[c.Level]; ok && pts.IsPositive() {
				pts = pts.Add(bonus)
			}
			weightedPoints = weightedPoints.Add(pts.Mul(share))
		}
	}

	summary := Summary{
		TotalCredits: total.Round(2),
		GPA:          average(points, graded),
	}
	if weighted {
		summary.WeightedGPA = average(weightedPoints, graded)
	}
	return summary
}

func average(points, credits decimal.Decimal) string {
	if credits.IsZero() {
		return NotAvailable
	}
	return points.Div(credits).StringFixed(2)
}
