package grades

import (
	"testing"

	"github.com/benvon/crux-journal/internal/models"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		scale Scale
		grade string
		want  int
	}{
		{"v easiest", ScaleV, "VB", 5},
		{"v mid", ScaleV, "V5", 37},
		{"v hardest", ScaleV, "V17", 100},
		{"v lowercase", ScaleV, "v5", 37},
		{"v padded", ScaleV, "  V5 ", 37},
		{"yds 5.10a", ScaleYDS, "5.10a", 21},
		{"yds uppercase letter", ScaleYDS, "5.10A", 21},
		{"yds hardest", ScaleYDS, "5.15d", 100},
		{"french 7a", ScaleFrench, "7a", 45},
		{"french hardest", ScaleFrench, "9c", 100},
		{"unknown grade", ScaleV, "V18", Unknown},
		{"empty grade", ScaleV, "", Unknown},
		{"unknown scale", Scale("font"), "7A", Unknown},
		{"grade from another scale", ScaleYDS, "V5", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.scale, tt.grade); got != tt.want {
				t.Errorf("Normalize(%q, %q) = %d, want %d", tt.scale, tt.grade, got, tt.want)
			}
		})
	}
}

func TestNormalize_MonotonicAndBounded(t *testing.T) {
	t.Parallel()

	for _, scale := range Scales() {
		t.Run(string(scale), func(t *testing.T) {
			t.Parallel()
			prev := 0
			vocab := Grades(scale)
			for _, g := range vocab {
				n := Normalize(scale, g)
				if n < prev {
					t.Errorf("%s: %d is lower than previous %d", g, n, prev)
				}
				if n < 1 || n > 100 {
					t.Errorf("%s: %d out of range", g, n)
				}
				prev = n
			}
			if last := Normalize(scale, vocab[len(vocab)-1]); last != 100 {
				t.Errorf("hardest grade = %d, want 100", last)
			}
		})
	}
}

func TestGrades_ReturnsCopy(t *testing.T) {
	t.Parallel()

	g := Grades(ScaleV)
	g[0] = "mutated"
	if Grades(ScaleV)[0] != "VB" {
		t.Error("Grades must not expose the internal vocabulary")
	}
	if Grades(Scale("nope")) != nil {
		t.Error("expected nil for unknown scale")
	}
}

func TestBucket(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int
		want models.DifficultyBucket
	}{
		{0, models.BucketUnknown},
		{1, models.BucketBeginner},
		{25, models.BucketBeginner},
		{26, models.BucketIntermediate},
		{50, models.BucketIntermediate},
		{51, models.BucketAdvanced},
		{75, models.BucketAdvanced},
		{76, models.BucketElite},
		{100, models.BucketElite},
	}

	for _, tt := range tests {
		if got := Bucket(tt.in); got != tt.want {
			t.Errorf("Bucket(%d) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDistribution(t *testing.T) {
	t.Parallel()

	climbs := []models.Climb{
		{GradeScale: "v_scale", Grade: "V1", Outcome: models.OutcomeSent},
		{GradeScale: "v_scale", Grade: "V2", Outcome: models.OutcomeFail},
		{GradeScale: "yds", Grade: "5.14a", Outcome: models.OutcomeFail},
		{GradeScale: "v_scale", Grade: "??", Outcome: models.OutcomeSent},
	}

	got := Distribution(climbs)
	if len(got) != 5 {
		t.Fatalf("expected 5 buckets, got %d", len(got))
	}
	if got[0].Bucket != models.BucketUnknown || got[0].Sent != 1 {
		t.Errorf("unknown bucket = %+v", got[0])
	}
	if got[1].Bucket != models.BucketBeginner || got[1].Sent != 1 || got[1].Failed != 1 {
		t.Errorf("beginner bucket = %+v", got[1])
	}
	if got[4].Bucket != models.BucketElite || got[4].Failed != 1 {
		t.Errorf("elite bucket = %+v", got[4])
	}
}
