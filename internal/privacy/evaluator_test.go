package privacy

import (
	"testing"

	"chatgraph-backend/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name             string
		policy           models.DirectMessagePolicy
		isFriend         bool
		recipientBlocked bool
		recipientReplied bool
		overrides        bool
		expected         Partition
	}{
		{
			name:     "allow policy always active",
			policy:   models.DMPolicyAllow,
			expected: PartitionActive,
		},
		{
			name:     "request policy from stranger goes to requests",
			policy:   models.DMPolicyRequest,
			expected: PartitionRequests,
		},
		{
			name:     "request policy from friend treated as allow",
			policy:   models.DMPolicyRequest,
			isFriend: true,
			expected: PartitionActive,
		},
		{
			name:             "request policy promoted after reply",
			policy:           models.DMPolicyRequest,
			recipientReplied: true,
			expected:         PartitionActive,
		},
		{
			name:     "block policy hides strangers",
			policy:   models.DMPolicyBlock,
			expected: PartitionHidden,
		},
		{
			name:     "block policy lets friends through",
			policy:   models.DMPolicyBlock,
			isFriend: true,
			expected: PartitionActive,
		},
		{
			name:             "held block hides thread when override enabled",
			policy:           models.DMPolicyRequest,
			recipientBlocked: true,
			overrides:        true,
			expected:         PartitionHidden,
		},
		{
			name:             "held block hides even under allow when override enabled",
			policy:           models.DMPolicyAllow,
			recipientBlocked: true,
			overrides:        true,
			expected:         PartitionHidden,
		},
		{
			name:             "held block ignored when override disabled",
			policy:           models.DMPolicyRequest,
			recipientBlocked: true,
			overrides:        false,
			expected:         PartitionRequests,
		},
		{
			name:     "unknown policy degrades to allow",
			policy:   models.DirectMessagePolicy("bogus"),
			expected: PartitionActive,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			evaluator := Evaluator{BlockOverridesRequest: tc.overrides}

			got := evaluator.Classify(tc.policy, tc.isFriend, tc.recipientBlocked, tc.recipientReplied)
			if got != tc.expected {
				t.Errorf("Classify() = %s, want %s", got, tc.expected)
			}
		})
	}
}
