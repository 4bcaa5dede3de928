package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name         string
		courses      []Course
		wantCredits  string
		wantGPA      string
		wantWeighted string
	}{
		{name: "no courses", wantCredits: "0", wantGPA: NotAvailable},
		{
			name:        "letter grades and pass",
			courses:     []Course{{Credits: "1.0", Term1: "A", Term2: "B"}, {Credits: "0.5", Term1: "Pass"}},
			wantCredits: "1.5", wantGPA: "3.50",
		},
		{
			name:        "all terms blank",
			courses:     []Course{{Credits: "1", Term1: " ", Term2: "", Term3: ""}},
			wantCredits: "0", wantGPA: NotAvailable,
		},
		{
			name:        "only pass terms",
			courses:     []Course{{Credits: "1", Term1: "P"}, {Credits: "2", Term1: "pass", Term2: "N/A"}},
			wantCredits: "3", wantGPA: NotAvailable,
		},
		{
			name:        "mixed pass and letter",
			courses:     []Course{{Credits: "1", Term1: "A", Term2: "Pass"}},
			wantCredits: "1", wantGPA: "4.00",
		},
		{
			name:        "non-numeric credits",
			courses:     []Course{{Credits: "one", Term1: "A"}, {Credits: "1", Term1: "C"}},
			wantCredits: "1", wantGPA: "2.00",
		},
		{
			name:        "negative credits",
			courses:     []Course{{Credits: "-1", Term1: "A"}, {Credits: "1", Term1: "B"}},
			wantCredits: "1", wantGPA: "3.00",
		},
		{
			name:        "case-insensitive letters",
			courses:     []Course{{Credits: "1", Term1: "a-"}, {Credits: "1", Term1: " b+ "}},
			wantCredits: "2", wantGPA: "3.50",
		},
		{
			name:        "unknown grades count as credits only",
			courses:     []Course{{Credits: "1", Term1: "E"}, {Credits: "1", Term1: "A+"}},
			wantCredits: "2", wantGPA: "4.30",
		},
		{
			name:        "three terms split credits",
			courses:     []Course{{Credits: "1", Term1: "A", Term2: "B", Term3: "C"}, {Credits: "1", Term1: "F"}},
			wantCredits: "2", wantGPA: "1.50",
		},
		{
			name:        "rounding",
			courses:     []Course{{Credits: "1", Term1: "A"}, {Credits: "1", Term1: "B"}, {Credits: "1", Term1: "B-"}},
			wantCredits: "3", wantGPA: "3.23",
		},
		{
			name: "weighted",
			courses: []Course{
				{Credits: "1", Term1: "A", Level: AP},
				{Credits: "1", Term1: "B", Level: Honors},
				{Credits: "1", Term1: "F", Level: AP},
				{Credits: "1", Term1: "C", Level: Regular},
			},
			wantCredits: "4", wantGPA: "2.25", wantWeighted: "2.63",
		},
		{
			name:        "weighted with no graded credits",
			courses:     []Course{{Credits: "1", Term1: "Pass", Level: Honors}},
			wantCredits: "1", wantGPA: NotAvailable, wantWeighted: NotAvailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.courses)
			assert.Equal(t, tt.wantCredits, got.TotalCredits.String())
			assert.Equal(t, tt.wantGPA, got.GPA)
			assert.Equal(t, tt.wantWeighted, got.WeightedGPA)
		})
	}
}

func TestGradePoints(t *testing.T) {
	for grade, want := range map[string]string{"A+": "4.3", "a": "4", "D-": "0.7", "f": "0"} {
		pts, ok := GradePoints(grade)
		assert.True(t, ok, grade)
		assert.Equal(t, want, pts.String(), grade)
	}
	for _, grade := range []string{"Pass", "P", "N/A", "", "E"} {
		_, ok := GradePoints(grade)
		assert.False(t, ok, grade)
	}
}
