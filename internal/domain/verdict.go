package domain

// ReviewVerdict is the external reviewer's structured response to a proposal.
// It comes from an LLM and is validated defensively: substitution targets
// outside the disclosed alternates are discarded by the controller.
type ReviewVerdict struct {
	Approve        bool
	Confidence     int
	Feedback       string
	CriticalIssues []string
	Warnings       []string
	Substitutions  map[AccountID]AgentID
}

// minApprovalConfidence mirrors the review contract: a nominally approving
// verdict below this confidence still triggers a rebuild.
const minApprovalConfidence = 60

// RequiresRerun reports whether the verdict asks for the proposal to be
// rebuilt rather than finalized.
func (v ReviewVerdict) RequiresRerun() bool {
	return !v.Approve || v.Confidence < minApprovalConfidence || len(v.CriticalIssues) > 0
}

// RejectedVerdict is the synthetic verdict used when the reviewer times out:
// not approved, no substitutions, so the normal retry path applies.
func RejectedVerdict(reason string) ReviewVerdict {
	return ReviewVerdict{
		Approve:    false,
		Confidence: 0,
		Feedback:   reason,
	}
}
