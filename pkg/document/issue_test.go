package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseIssueText(t *testing.T, text string) (*Issue, error) {
	t.Helper()
	file, err := Parse("issue.md", text)
	require.NoError(t, err)
	return ParseIssue(file)
}

func TestParseIssue_Minimal(t *testing.T) {
	issue, err := parseIssueText(t, "---\ntitle: Fix login\n---\n\nBody.\n")
	require.NoError(t, err)
	assert.Equal(t, "Fix login", issue.Title)
	assert.Equal(t, 0, issue.Number)
	assert.False(t, issue.LabelsSet)
	assert.False(t, issue.Milestone.Set)
	assert.False(t, issue.AssigneesSet)
	assert.Equal(t, "Body.\n", issue.Body)
}

func TestParseIssue_TitleRequired(t *testing.T) {
	_, err := parseIssueText(t, "---\nnumber: 3\n---\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")
}

func TestParseIssue_BlankTitleRejected(t *testing.T) {
	_, err := parseIssueText(t, "---\ntitle: \"   \"\n---\n")
	require.Error(t, err)
}

func TestParseIssue_NumberAcceptsNumericString(t *testing.T) {
	issue, err := parseIssueText(t, "---\ntitle: T\nnumber: \"17\"\n---\n")
	require.NoError(t, err)
	assert.Equal(t, 17, issue.Number)
}

func TestParseIssue_NumberRejectsNegative(t *testing.T) {
	for _, text := range []string{
		"---\ntitle: T\nnumber: -5\n---\n",
		"---\ntitle: T\nnumber: \"-5\"\n---\n",
		"---\ntitle: T\nnumber: \"+5\"\n---\n",
	} {
		_, err := parseIssueText(t, text)
		require.Error(t, err, "text: %s", text)
		assert.Contains(t, err.Error(), "number")
	}
}

func TestParseIssue_MilestoneVariants(t *testing.T) {
	tests := []struct {
		name string
		text string
		want MilestoneRef
	}{
		{"absent", "---\ntitle: T\n---\n", MilestoneRef{}},
		{"explicit null", "---\ntitle: T\nmilestone: null\n---\n", MilestoneRef{Set: true}},
		{"title", "---\ntitle: T\nmilestone: Stage 1\n---\n", MilestoneRef{Set: true, Title: "Stage 1"}},
		{"number", "---\ntitle: T\nmilestone: 7\n---\n", MilestoneRef{Set: true, Number: 7}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			issue, err := parseIssueText(t, tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want, issue.Milestone)
		})
	}
}

func TestParseIssue_MilestoneBadShape(t *testing.T) {
	_, err := parseIssueText(t, "---\ntitle: T\nmilestone:\n    nested: map\n---\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "milestone")
}

func TestParseIssue_EmptyLabelsDistinctFromAbsent(t *testing.T) {
	withEmpty, err := parseIssueText(t, "---\ntitle: T\nlabels: []\n---\n")
	require.NoError(t, err)
	assert.True(t, withEmpty.LabelsSet)
	assert.Empty(t, withEmpty.Labels)

	without, err := parseIssueText(t, "---\ntitle: T\n---\n")
	require.NoError(t, err)
	assert.False(t, without.LabelsSet)
}

func TestParseIssue_LabelsMustBeStrings(t *testing.T) {
	_, err := parseIssueText(t, "---\ntitle: T\nlabels:\n    - bug\n    - 7\n---\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "labels")
}

func TestParseIssue_StateValidation(t *testing.T) {
	issue, err := parseIssueText(t, "---\ntitle: T\nstate: closed\nstate_reason: not_planned\n---\n")
	require.NoError(t, err)
	assert.Equal(t, StateClosed, issue.State)
	assert.Equal(t, ReasonNotPlanned, issue.StateReason)

	_, err = parseIssueText(t, "---\ntitle: T\nstate: archived\n---\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown state")

	_, err = parseIssueText(t, "---\ntitle: T\nstate: closed\nstate_reason: because\n---\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown state_reason")
}

func TestIssueMetadata_RoundTrip(t *testing.T) {
	text := "---\ntitle: Fix login\nnumber: 12\nlabels:\n    - bug\nmilestone: null\nassignees: []\nstate: closed\nstate_reason: completed\n---\n\nBody.\n"
	issue, err := parseIssueText(t, text)
	require.NoError(t, err)

	rendered, err := Render(issue.Metadata(), issue.Body)
	require.NoError(t, err)
	again, err := Parse("issue.md", rendered)
	require.NoError(t, err)
	parsed, err := ParseIssue(again)
	require.NoError(t, err)

	assert.Equal(t, issue.Title, parsed.Title)
	assert.Equal(t, issue.Number, parsed.Number)
	assert.Equal(t, issue.Labels, parsed.Labels)
	assert.Equal(t, issue.Milestone, parsed.Milestone)
	assert.True(t, parsed.AssigneesSet)
	assert.Equal(t, issue.State, parsed.State)
	assert.Equal(t, issue.StateReason, parsed.StateReason)
}

func TestParseMilestone_DescriptionFallsBackToBody(t *testing.T) {
	file, err := Parse("milestone.md", "---\ntitle: Stage 1\n---\n\nGoal of stage one.\n")
	require.NoError(t, err)
	milestone, err := ParseMilestone(file)
	require.NoError(t, err)
	assert.Equal(t, "Goal of stage one.\n", milestone.Description)

	file, err = Parse("milestone.md", "---\ntitle: Stage 1\ndescription: Explicit\n---\n\nBody.\n")
	require.NoError(t, err)
	milestone, err = ParseMilestone(file)
	require.NoError(t, err)
	assert.Equal(t, "Explicit", milestone.Description)
}
