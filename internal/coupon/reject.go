package coupon

// RejectionReason is the closed set of business reasons a coupon can fail to
// apply. Rejections are returned as values, never as errors; infrastructure
// failures (repository I/O) travel separately as wrapped errors.
type RejectionReason string

const (
	ReasonNotFound            RejectionReason = "not_found"
	ReasonExpired             RejectionReason = "expired"
	ReasonNotYetActive        RejectionReason = "not_yet_active"
	ReasonInactive            RejectionReason = "inactive"
	ReasonBelowMinimum        RejectionReason = "below_minimum"
	ReasonGlobalLimitReached  RejectionReason = "global_limit_reached"
	ReasonCustomerLimit       RejectionReason = "customer_limit_reached"
	ReasonAlreadyUsed         RejectionReason = "already_used"
	ReasonCustomerNotEligible RejectionReason = "customer_not_eligible"
	ReasonNoEligibleItems     RejectionReason = "no_eligible_items"
	ReasonCannotCombine       RejectionReason = "cannot_combine"
	ReasonInvalidFormat       RejectionReason = "invalid_format"
	ReasonCurrencyMismatch    RejectionReason = "currency_mismatch"
	ReasonReplacementFailed   RejectionReason = "replacement_failed"
	ReasonGeographic          RejectionReason = "geographic_restriction"
	ReasonProductRestriction  RejectionReason = "product_restriction"
	ReasonUnknown             RejectionReason = "unknown"
)

// Rejection pairs a reason code with a human-readable message.
type Rejection struct {
	Reason  RejectionReason
	Message string
}

func reject(reason RejectionReason, message string) *Rejection {
	return &Rejection{Reason: reason, Message: message}
}
