package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeMissingRequiredField = "missing_required_field"
	codeInvalidID            = "invalid_id"
	codeValidationFailed     = "validation_failed"
	codeIdempotencyRequired  = "idempotency_key_required"
	codeIdempotencyConflict  = "idempotency_conflict"
	codeUnauthenticated      = "unauthenticated"
	codeInvalidCredentials   = "invalid_credentials"
	codeForbidden            = "forbidden"
	codeEmailTaken           = "email_taken"
	codeHubNotFound          = "hub_not_found"
	codeFarmerNotFound       = "farmer_not_found"
	codeFarmerInactive       = "farmer_inactive"
	codeProductNotFound      = "product_not_found"
	codeProductInactive      = "product_inactive"
	codeBatchNotFound        = "batch_not_found"
	codeBatchProductNotFound = "batch_product_not_found"
	codeInvalidTransition    = "invalid_transition"
	codeCutoffPassed         = "cutoff_passed"
	codeBatchNotEditable     = "batch_not_editable"
	codeBatchNotOpen         = "batch_not_open"
	codeBatchHasNoProducts   = "batch_has_no_products"
	codeOrderNotFound        = "order_not_found"
	codeOrderCancelled       = "order_cancelled"
	codeOrderNotCancelable   = "order_not_cancelable"
	codePaymentRecorded      = "payment_already_recorded"
	codeCommitmentNotPaid    = "commitment_not_paid"
	codeSettlementNotOpen    = "settlement_not_open"
	codeFirebaseDisabled     = "firebase_disabled"
	codeRateLimited          = "rate_limited"
	codeInternalError        = "internal_error"
)

// loginFailedMessage is returned for every login failure so callers cannot
// tell unknown emails from wrong passwords.
const loginFailedMessage = "Email or password is incorrect"

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

type errorMapping struct {
	err    error
	status int
	code   string
}

var domainErrors = []errorMapping{
	{domain.ErrInvalidID, http.StatusNotFound, codeInvalidID},
	{domain.ErrIdempotencyKeyRequired, http.StatusBadRequest, codeIdempotencyRequired},
	{domain.ErrIdempotencyConflict, http.StatusConflict, codeIdempotencyConflict},

	{domain.ErrInvalidCredentials, http.StatusUnauthorized, codeInvalidCredentials},
	{domain.ErrUnauthenticated, http.StatusUnauthorized, codeUnauthenticated},
	{domain.ErrForbidden, http.StatusForbidden, codeForbidden},
	{domain.ErrEmailTaken, http.StatusConflict, codeEmailTaken},
	{domain.ErrUserNotFound, http.StatusNotFound, codeNotFound},
	{domain.ErrFirebaseDisabled, http.StatusServiceUnavailable, codeFirebaseDisabled},

	{domain.ErrHubNotFound, http.StatusNotFound, codeHubNotFound},
	{domain.ErrFarmerNotFound, http.StatusNotFound, codeFarmerNotFound},
	{domain.ErrFarmerInactive, http.StatusConflict, codeFarmerInactive},
	{domain.ErrProductNotFound, http.StatusNotFound, codeProductNotFound},
	{domain.ErrProductInactive, http.StatusConflict, codeProductInactive},

	{domain.ErrBatchNotFound, http.StatusNotFound, codeBatchNotFound},
	{domain.ErrBatchProductNotFound, http.StatusNotFound, codeBatchProductNotFound},
	{domain.ErrInvalidTransition, http.StatusConflict, codeInvalidTransition},
	{domain.ErrCutoffPassed, http.StatusConflict, codeCutoffPassed},
	{domain.ErrBatchNotEditable, http.StatusConflict, codeBatchNotEditable},
	{domain.ErrBatchNotOpen, http.StatusConflict, codeBatchNotOpen},
	{domain.ErrBatchHasNoProducts, http.StatusConflict, codeBatchHasNoProducts},

	{domain.ErrOrderNotFound, http.StatusNotFound, codeOrderNotFound},
	{domain.ErrOrderCancelled, http.StatusConflict, codeOrderCancelled},
	{domain.ErrOrderNotCancelable, http.StatusConflict, codeOrderNotCancelable},

	{domain.ErrPaymentAlreadyRecorded, http.StatusConflict, codePaymentRecorded},
	{domain.ErrCommitmentNotPaid, http.StatusConflict, codeCommitmentNotPaid},
	{domain.ErrSettlementNotOpen, http.StatusConflict, codeSettlementNotOpen},
}

// validationErrors are reported as 400 validation_failed with the error
// text as the message.
var validationErrors = []error{
	domain.ErrEmailRequired,
	domain.ErrPasswordTooShort,
	domain.ErrNameRequired,
	domain.ErrInvalidPrice,
	domain.ErrUnitRequired,
	domain.ErrInvalidBatchStatus,
	domain.ErrInvalidCutoff,
	domain.ErrInvalidDeliveryDate,
	domain.ErrInvalidFacilitation,
	domain.ErrInvalidOrderQtyLimits,
	domain.ErrEmptyOrder,
	domain.ErrDuplicateItem,
	domain.ErrInvalidQuantity,
	domain.ErrQuantityBelowMin,
	domain.ErrQuantityAboveMax,
	domain.ErrTooManyItems,
	domain.ErrOrderTooLarge,
	domain.ErrInvalidPaymentStage,
	domain.ErrPaymentReferenceNeeded,
	domain.ErrPaymentAmountMismatch,
}

// writeDomainError maps err onto the error envelope. Errors that are not
// domain errors are logged and reported as 500.
func writeDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, m.err.Error())
			return
		}
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			writeError(w, http.StatusBadRequest, codeValidationFailed, v.Error())
			return
		}
	}
	if logger != nil {
		logger.Error("request failed", zap.Error(err))
	}
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON strictly decodes the request body into dst, writing a 400
// and returning false when it cannot.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}
