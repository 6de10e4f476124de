package rpc

import (
	"errors"
	"log/slog"

	coreerrors "escrowmarket/core/errors"
	ledger "escrowmarket/core/state"
	"escrowmarket/core/types"
	"escrowmarket/native/market"
	"escrowmarket/observability"
)

// ledgerErrorName names rejections raised by the ledger rather than the
// marketplace program.
func ledgerErrorName(err error) string {
	switch {
	case errors.Is(err, ledger.ErrNotOptedIn):
		return "NotOptedIn"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "InsufficientBalance"
	case errors.Is(err, ledger.ErrInsufficientAsset):
		return "InsufficientAsset"
	case errors.Is(err, ledger.ErrNonceMismatch):
		return "NonceMismatch"
	case errors.Is(err, ledger.ErrUnknownAsset):
		return "UnknownAsset"
	case errors.Is(err, ledger.ErrInvalidAsset):
		return "InvalidAsset"
	case errors.Is(err, ledger.ErrBalanceOverflow):
		return "BalanceOverflow"
	default:
		return ""
	}
}

func isMalformedGroup(err error) bool {
	return errors.Is(err, types.ErrEmptyGroup) ||
		errors.Is(err, types.ErrGroupTooLarge) ||
		errors.Is(err, types.ErrMissingSignature) ||
		errors.Is(err, types.ErrGroupMismatch) ||
		errors.Is(err, types.ErrInvalidAssetMetadata) ||
		errors.Is(err, coreerrors.ErrUnknownTxType) ||
		errors.Is(err, coreerrors.ErrUnknownMethod) ||
		errors.Is(err, coreerrors.ErrMalformedCall) ||
		errors.Is(err, coreerrors.ErrInvalidReceiver) ||
		errors.Is(err, coreerrors.ErrInvalidSender)
}

// rejection translates a failed group into a JSON-RPC error. Program and
// ledger rejections carry their stable name in the data field.
func rejection(logger *slog.Logger, err error) *RPCError {
	if isMalformedGroup(err) {
		observability.Market().RecordRejection("malformed")
		return &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	name := market.ErrorName(err)
	if name == "" {
		name = ledgerErrorName(err)
	}
	if name == "" {
		logger.Error("group execution failed", "error", err)
		observability.Market().RecordRejection("internal")
		return &RPCError{Code: codeServerError, Message: "group execution failed"}
	}
	logger.Warn("group rejected", "reason", name, "error", err)
	observability.Market().RecordRejection(name)
	return &RPCError{Code: codeRejected, Message: err.Error(), Data: name}
}
