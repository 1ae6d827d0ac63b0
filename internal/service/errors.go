package service

import "errors"

// 业务错误哨兵：API 层据此映射业务错误码
var (
	ErrBadRequest = errors.New("bad request")

	// 建局
	ErrInvalidGameConfig = errors.New("invalid game config")

	// 购票
	ErrDuplicateInFlight = errors.New("duplicate request in flight")
	ErrGameNotFound      = errors.New("game not found")
	ErrSaleNotOpen       = errors.New("ticket sale not open in current phase")
	ErrSaleClosed        = errors.New("ticket sale closed")
	ErrSoldOut           = errors.New("all tickets sold out")
	ErrInvalidNumbers    = errors.New("invalid numbers")
	ErrWrongPayment      = errors.New("payment does not match ticket price")
	ErrInsufficientFunds = errors.New("insufficient balance")

	// 生命周期
	ErrDeadlineNotReached = errors.New("end time not reached")
	ErrPauseWithTickets   = errors.New("pause not allowed after tickets sold")
	ErrNotSettled         = errors.New("game not settled yet")
	ErrNoRemainder        = errors.New("no pool remainder to withdraw")

	// 开奖/封存
	ErrSealNotFound   = errors.New("sealed draw not found")
	ErrUnsealFailed   = errors.New("unseal failed")
	ErrRevealTooEarly = errors.New("emergency reveal window not reached")

	// 领奖
	ErrTicketNotFound = errors.New("ticket not found")
	ErrNotTicketOwner = errors.New("ticket belongs to another player")
	ErrNotClaimable   = errors.New("claim not allowed in current phase")
	ErrAlreadyClaimed = errors.New("prize already claimed")
)
