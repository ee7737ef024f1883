package editor

import "errors"

var (
	// ErrNoSchema puts the editor in its "no schema" state: no form is shown.
	ErrNoSchema = errors.New("template has no usable variable definition")

	// ErrNotEnhanceable is returned for fields whose value is not a non-empty string.
	ErrNotEnhanceable = errors.New("field cannot be enhanced")

	// ErrEnhanceInProgress is returned while another field is being enhanced or awaits review.
	ErrEnhanceInProgress = errors.New("another enhancement is in progress")

	// ErrImprovedValueMissing means the enhancement job reported success but
	// the record carries no "<path>_improved" value.
	ErrImprovedValueMissing = errors.New("enhancement finished without an improved value")

	// ErrNoPendingEnhancement is returned by Accept and Reject when nothing is staged.
	ErrNoPendingEnhancement = errors.New("no enhancement awaiting review")

	// ErrNothingToCopy is returned by CopySummary without a generated summary.
	ErrNothingToCopy = errors.New("no summary to copy")
)
