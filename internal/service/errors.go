package service

import (
	"errors"

	"connectrpc.com/connect"
	"go.uber.org/zap"

	"github.com/kkkkikiki/groupbuy/internal/apperr"
	"github.com/kkkkikiki/groupbuy/internal/logger"
)

// ErrorKindHeader carries the apperr kind on error responses.
const ErrorKindHeader = "Groupbuy-Error-Kind"

var kindCodes = map[apperr.Kind]connect.Code{
	apperr.KindCapacityExceeded:   connect.CodeResourceExhausted,
	apperr.KindReservationExpired: connect.CodeNotFound,
	apperr.KindInvalidCredential:  connect.CodeUnauthenticated,
	apperr.KindItemNotActionable:  connect.CodeFailedPrecondition,
	apperr.KindCampaignClosed:     connect.CodeFailedPrecondition,
	apperr.KindNotFound:           connect.CodeNotFound,
	apperr.KindInvalidArgument:    connect.CodeInvalidArgument,
	apperr.KindStorageFailure:     connect.CodeInternal,
}

// toConnectError maps a domain error onto a connect error. Internal failures are
// logged; neither their cause nor a credential failure's detail is sent to the caller.
func toConnectError(log *zap.Logger, procedure string, err error) error {
	if err == nil {
		return nil
	}
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return cerr
	}

	kind := apperr.KindOf(err)
	code, ok := kindCodes[kind]
	if !ok {
		code = connect.CodeInternal
	}

	var out *connect.Error
	switch {
	case code == connect.CodeInternal:
		logger.OrNop(log).Error("request failed", zap.String("procedure", procedure), zap.Error(err))
		out = connect.NewError(code, errors.New(string(kind)))
	case kind == apperr.KindInvalidCredential:
		// Unknown tokens and tokens aimed at another customer's order must look alike.
		out = connect.NewError(code, errors.New(string(kind)))
	default:
		out = connect.NewError(code, err)
	}
	out.Meta().Set(ErrorKindHeader, string(kind))
	return out
}

// KindFromError recovers the apperr kind from an error returned by a client.
func KindFromError(err error) apperr.Kind {
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		return apperr.KindOf(err)
	}
	if kind := cerr.Meta().Get(ErrorKindHeader); kind != "" {
		return apperr.Kind(kind)
	}
	return apperr.KindUnknown
}
