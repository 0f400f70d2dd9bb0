package domain

import "errors"

var (
	ErrInvalidID              = errors.New("invalid id")
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict    = errors.New("idempotency conflict")

	ErrInvalidCredentials = errors.New("email or password is incorrect")
	ErrEmailRequired      = errors.New("email required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("forbidden")
	ErrFirebaseDisabled   = errors.New("firebase sign-in is not configured")

	ErrNameRequired    = errors.New("name required")
	ErrHubNotFound     = errors.New("hub not found")
	ErrFarmerNotFound  = errors.New("farmer not found")
	ErrFarmerInactive  = errors.New("farmer inactive")
	ErrProductNotFound = errors.New("product not found")
	ErrProductInactive = errors.New("product inactive")
	ErrInvalidPrice    = errors.New("invalid price")
	ErrUnitRequired    = errors.New("unit required")

	ErrBatchNotFound         = errors.New("batch not found")
	ErrInvalidBatchStatus    = errors.New("invalid batch status")
	ErrInvalidTransition     = errors.New("invalid batch status transition")
	ErrCutoffPassed          = errors.New("batch cutoff has passed")
	ErrInvalidCutoff         = errors.New("cutoff must be in the future")
	ErrInvalidDeliveryDate   = errors.New("delivery date must not be before cutoff")
	ErrBatchNotEditable      = errors.New("batch is not editable in its current status")
	ErrBatchHasNoProducts    = errors.New("batch has no products")
	ErrBatchNotOpen          = errors.New("batch is not open for orders")
	ErrBatchProductNotFound  = errors.New("product not offered in batch")
	ErrInvalidFacilitation   = errors.New("facilitation percent must be between 0 and 100")
	ErrInvalidOrderQtyLimits = errors.New("invalid order quantity limits")

	ErrOrderNotFound      = errors.New("order not found")
	ErrEmptyOrder         = errors.New("order has no items")
	ErrDuplicateItem      = errors.New("duplicate product in order")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrQuantityBelowMin   = errors.New("quantity below minimum order quantity")
	ErrQuantityAboveMax   = errors.New("quantity above maximum order quantity")
	ErrTooManyItems       = errors.New("too many items in order")
	ErrOrderTooLarge      = errors.New("order total exceeds the maximum amount")
	ErrOrderCancelled     = errors.New("order cancelled")
	ErrOrderNotCancelable = errors.New("order can no longer be cancelled")

	ErrInvalidPaymentStage    = errors.New("invalid payment stage")
	ErrPaymentReferenceNeeded = errors.New("payment reference required")
	ErrPaymentAlreadyRecorded = errors.New("payment already recorded")
	ErrPaymentAmountMismatch  = errors.New("payment amount does not match amount due")
	ErrCommitmentNotPaid      = errors.New("commitment payment not yet received")
	ErrSettlementNotOpen      = errors.New("settlement is only collectible once the batch is locked")
)
