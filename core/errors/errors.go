package errors

import stderrors "errors"

var (
	ErrUnknownTxType   = stderrors.New("group: unknown transaction type")
	ErrUnknownMethod   = stderrors.New("group: unknown app call method")
	ErrMalformedCall   = stderrors.New("group: malformed app call arguments")
	ErrInvalidReceiver = stderrors.New("group: invalid receiver")
	ErrInvalidSender   = stderrors.New("group: sender cannot be recovered")
)
