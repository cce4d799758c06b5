package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOnMissingEntry(t *testing.T) {
	tests := []struct {
		input  string
		want   OnMissingEntry
		wantOK bool
	}{
		{"fail", MissingFail, true},
		{"WARN", MissingWarn, true},
		{"generate", MissingGenerate, true},
		{"explode", MissingFail, false},
		{"", MissingFail, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseOnMissingEntry(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestParseOnLegacyEntry(t *testing.T) {
	got, ok := ParseOnLegacyEntry("Convert")
	assert.True(t, ok)
	assert.Equal(t, LegacyConvert, got)

	_, ok = ParseOnLegacyEntry("skip")
	assert.False(t, ok)
}

func TestParseOnConflict(t *testing.T) {
	got, ok := ParseOnConflict("ignore")
	assert.True(t, ok)
	assert.Equal(t, ConflictIgnore, got)

	_, ok = ParseOnConflict("panic")
	assert.False(t, ok)
}

func TestParseCommentMode(t *testing.T) {
	tests := []struct {
		input  string
		want   CommentMode
		wantOK bool
	}{
		{"comment", CommentModeIssue, true},
		{"review-comment", CommentModeReview, true},
		{"none", CommentModeNone, true},
		{"emoji", CommentModeReview, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseCommentMode(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestPRInfoLabelNames(t *testing.T) {
	pr := PRInfo{Labels: []PRLabel{{Name: "bug"}, {Name: "skip-changelog"}}}

	assert.Equal(t, []string{"bug", "skip-changelog"}, pr.LabelNames())
	assert.Empty(t, PRInfo{}.LabelNames())
}

func TestPRInfoCommitAuthors(t *testing.T) {
	pr := PRInfo{
		Commits: []PRCommit{
			{Author: PRUser{Login: "carol"}},
			{Author: PRUser{Login: "alice"}},
			{Author: PRUser{Login: "carol"}},
			{Author: PRUser{}},
		},
	}

	assert.Equal(t, []string{"alice", "carol"}, pr.CommitAuthors())
}
