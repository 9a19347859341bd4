package middleware

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordApprovalCredited(t *testing.T) {
	approvalsBefore := testutil.ToFloat64(approvalsCredited)
	pointsBefore := testutil.ToFloat64(pointsAwarded)

	// A zero-point approval still counts as an approval.
	RecordApprovalCredited(0)
	if got := testutil.ToFloat64(approvalsCredited) - approvalsBefore; got != 1 {
		t.Errorf("approvals delta after zero-point approval = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pointsAwarded) - pointsBefore; got != 0 {
		t.Errorf("points delta after zero-point approval = %v, want 0", got)
	}

	RecordApprovalCredited(25)
	if got := testutil.ToFloat64(approvalsCredited) - approvalsBefore; got != 2 {
		t.Errorf("approvals delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(pointsAwarded) - pointsBefore; got != 25 {
		t.Errorf("points delta = %v, want 25", got)
	}
}

func TestRecordSubmissionCreated(t *testing.T) {
	before := testutil.ToFloat64(submissionsCreated)
	RecordSubmissionCreated()
	if got := testutil.ToFloat64(submissionsCreated) - before; got != 1 {
		t.Errorf("submissions delta = %v, want 1", got)
	}
}
