package api

import "testing"

func TestCompletionPointsFor(t *testing.T) {
	cp := CompletionPoints{Beginner: 50, Intermediate: 75, Advanced: 100}

	tests := []struct {
		difficulty string
		want       int64
		ok         bool
	}{
		{"beginner", 50, true},
		{"Intermediate", 75, true},
		{" advanced ", 100, true},
		{"expert", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := cp.For(tt.difficulty)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("For(%q) = (%d, %v), want (%d, %v)", tt.difficulty, got, ok, tt.want, tt.ok)
		}
	}
}
