package service

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"mybucks/internal/app/port"
	"mybucks/internal/domain/entity"
)

// ErrEstimateSuperseded reports that a newer estimate request arrived while
// this one was waiting or running. The caller should drop the result; the
// newer request will deliver its own.
var ErrEstimateSuperseded = errors.New("estimate request superseded")

// EstimateRequest describes one fee estimate request.
type EstimateRequest struct {
	TokenAddress string           `json:"tokenAddress"`
	To           string           `json:"to"`
	Value        *big.Int         `json:"value"`
	Option       entity.GasOption `json:"option"`
}

// EstimateResult pairs the populated transfer with its predicted fee so the
// caller can execute exactly what was estimated.
type EstimateResult struct {
	Transfer *entity.UnsignedTransfer `json:"transfer"`
	Estimate *entity.FeeEstimate      `json:"estimate"`
}

// Estimator serializes fee estimation behind a debounce window. Rapid input
// changes collapse to the latest request, and a result computed against a
// session that has since switched networks or locked is discarded.
type Estimator struct {
	session  *SessionService
	debounce time.Duration
	logger   port.Logger

	seq uint64

	mu     sync.Mutex
	latest *EstimateResult
}

// NewEstimator creates an estimator bound to a session.
func NewEstimator(session *SessionService, debounce time.Duration, logger port.Logger) *Estimator {
	return &Estimator{
		session:  session,
		debounce: debounce,
		logger:   logger,
	}
}

// Estimate waits out the debounce window and, if no newer request has
// arrived, populates and prices the transfer. Only the last of a burst of
// calls produces a result; the rest return ErrEstimateSuperseded.
func (e *Estimator) Estimate(ctx context.Context, req EstimateRequest) (*EstimateResult, error) {
	seq := atomic.AddUint64(&e.seq, 1)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(e.debounce):
	}
	if atomic.LoadUint64(&e.seq) != seq {
		return nil, ErrEstimateSuperseded
	}

	generation := e.session.Generation()

	transfer, err := e.session.PopulateTransfer(ctx, req.TokenAddress, req.To, req.Value)
	if err != nil {
		return nil, err
	}
	estimate, err := e.session.EstimateFee(ctx, transfer, req.Option)
	if err != nil {
		return nil, err
	}

	if atomic.LoadUint64(&e.seq) != seq || e.session.Generation() != generation {
		e.logger.Debug("Discarding stale fee estimate", "to", req.To)
		return nil, ErrEstimateSuperseded
	}

	result := &EstimateResult{Transfer: transfer, Estimate: estimate}
	e.mu.Lock()
	e.latest = result
	e.mu.Unlock()
	return result, nil
}

// Latest returns the most recent completed estimate, if any.
func (e *Estimator) Latest() *EstimateResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latest
}
