package cmd

import "testing"

func TestSubmissionName(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"predictions/team-1.csv", "team-1"},
		{"team-2.csv", "team-2"},
		{"/tmp/runs/final", "final"},
		{"nested/dir/sub.v2.csv", "sub.v2"},
	}
	for _, c := range cases {
		if got := submissionName(c.path); got != c.want {
			t.Errorf("submissionName(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}
