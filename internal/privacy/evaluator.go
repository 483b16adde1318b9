package privacy

import "chatgraph-backend/internal/models"

// Partition is where a direct thread lands in the recipient's view.
type Partition int

const (
	// PartitionActive puts the thread in the normal conversation list.
	PartitionActive Partition = iota
	// PartitionRequests puts the thread in the "message requests" list
	// until the recipient replies.
	PartitionRequests
	// PartitionHidden suppresses the thread from the recipient entirely.
	// The sender can still post into it.
	PartitionHidden
)

func (p Partition) String() string {
	switch p {
	case PartitionActive:
		return "active"
	case PartitionRequests:
		return "requests"
	case PartitionHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

// Evaluator classifies direct threads against the recipient's privacy
// configuration. Classification happens at read time from the current
// friend and block sets; nothing here is persisted per thread.
//
// BlockOverridesRequest settles the inherited ambiguity between a held
// block and the `request` policy: when true (the default), a block held
// by the recipient hides the thread no matter what their policy says.
type Evaluator struct {
	BlockOverridesRequest bool
}

// Classify decides the partition for a thread between a sender and a
// recipient, seen from the recipient's side.
//
//	policy            the recipient's directMessagePolicy
//	isFriend          accepted friendship exists between the pair
//	recipientBlocked  the recipient holds a block against the sender
//	recipientReplied  the recipient has posted into the thread
func (e Evaluator) Classify(policy models.DirectMessagePolicy, isFriend bool, recipientBlocked bool, recipientReplied bool) Partition {
	if recipientBlocked && e.BlockOverridesRequest {
		return PartitionHidden
	}

	switch policy {
	case models.DMPolicyRequest:
		if isFriend || recipientReplied {
			return PartitionActive
		}
		return PartitionRequests
	case models.DMPolicyBlock:
		if isFriend {
			return PartitionActive
		}
		return PartitionHidden
	default: // allow, and any unknown value degrades to the open policy
		return PartitionActive
	}
}
