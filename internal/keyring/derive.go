package keyring

import (
	"context"
	"time"

	"golang.org/x/crypto/scrypt"

	"mybucks/internal/domain/entity"
	"mybucks/internal/pkg/metrics"
)

// scryptParams lets tests exercise the derivation pipeline with cheap costs.
// Production code always goes through DeriveHash with the scheme-v1 values.
type scryptParams struct {
	n, r, p, keyLen int
}

var schemeV1 = scryptParams{n: ScryptN, r: ScryptR, p: ScryptP, keyLen: HashLen}

func deriveHashWithParams(password, passcode string, params scryptParams) ([]byte, error) {
	salt := GenerateSalt(password, passcode)
	hash, err := scrypt.Key([]byte(password), []byte(salt), params.n, params.r, params.p, params.keyLen)
	if err != nil {
		// Deliberately generic: the caller must not learn which step failed.
		return nil, entity.ErrSetupFailed
	}
	return hash, nil
}

// DeriveHash computes the scheme-v1 credential hash. Deterministic: identical
// credentials always yield identical bytes, on any machine, forever.
//
// The computation takes seconds of CPU; onProgress, when non-nil, receives
// monotonically increasing fractions in (0,1) while scrypt runs and exactly
// 1.0 once the result is ready. scrypt exposes no incremental API, so the
// fractions are wall-clock estimates calibrated by a cheap probe run; only
// the progress stream is approximate, never the output.
func DeriveHash(password, passcode string, onProgress func(float64)) ([]byte, error) {
	started := time.Now()
	defer func() {
		metrics.DerivationDuration.Observe(time.Since(started).Seconds())
	}()

	if onProgress == nil {
		return deriveHashWithParams(password, passcode, schemeV1)
	}

	estimate := estimateDuration(password, passcode)

	type outcome struct {
		hash []byte
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		hash, err := deriveHashWithParams(password, passcode, schemeV1)
		done <- outcome{hash, err}
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	last := 0.0
	for {
		select {
		case out := <-done:
			if out.err == nil {
				onProgress(1.0)
			}
			return out.hash, out.err
		case <-ticker.C:
			frac := float64(time.Since(started)) / float64(estimate)
			if frac > 0.95 {
				frac = 0.95
			}
			if frac > last {
				last = frac
				onProgress(frac)
			}
		}
	}
}

// estimateDuration runs scrypt at 1/64 of the v1 CPU cost and scales the
// measurement. The probe result is discarded.
func estimateDuration(password, passcode string) time.Duration {
	const probeShift = 6
	probe := scryptParams{n: ScryptN >> probeShift, r: ScryptR, p: ScryptP, keyLen: HashLen}
	started := time.Now()
	if _, err := deriveHashWithParams(password, passcode, probe); err != nil {
		return 2 * time.Second
	}
	scaled := time.Since(started) * (1 << probeShift)
	if scaled < 200*time.Millisecond {
		return 200 * time.Millisecond
	}
	return scaled
}

// Deriver runs the key derivation off the caller's goroutine and publishes
// fractional progress, so an interactive surface can poll while the hash is
// being computed. One Deriver serves one unlock attempt.
type Deriver struct {
	progress chan float64
	result   chan deriveResult
}

type deriveResult struct {
	Hash []byte
	Err  error
}

// NewDeriver starts deriving immediately and returns without blocking.
func NewDeriver(password, passcode string) *Deriver {
	d := &Deriver{
		progress: make(chan float64, 64),
		result:   make(chan deriveResult, 1),
	}
	go func() {
		hash, err := DeriveHash(password, passcode, func(frac float64) {
			select {
			case d.progress <- frac:
			default: // slow consumers drop intermediate fractions
			}
		})
		d.result <- deriveResult{Hash: hash, Err: err}
		close(d.progress)
	}()
	return d
}

// Progress returns the stream of fractions. The channel closes after the
// result is available.
func (d *Deriver) Progress() <-chan float64 {
	return d.progress
}

// Wait blocks until derivation finishes or ctx is cancelled. Cancelling does
// not stop the underlying scrypt run; it only abandons the wait.
func (d *Deriver) Wait(ctx context.Context) ([]byte, error) {
	select {
	case res := <-d.result:
		return res.Hash, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
