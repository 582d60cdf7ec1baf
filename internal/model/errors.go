package model

import "errors"

// Sentinel errors for the kinds named by the error taxonomy. Packages wrap
// these with fmt.Errorf("%w: ...") to attach context (site, tags, post id)
// while keeping errors.Is checks stable across the whole pipeline.
var (
	ErrAuthFailed       = errors.New("auth failed")
	ErrInsufficientAuth = errors.New("insufficient auth")
	ErrNetwork          = errors.New("network error")
	ErrApiShape         = errors.New("unexpected api response shape")
	ErrRateLimited      = errors.New("rate limited")
	ErrCorrupt          = errors.New("corrupt download")
	ErrNotFound         = errors.New("not found")
	ErrIoFailed         = errors.New("io failed")
	ErrConfig           = errors.New("invalid config")
	ErrDuplicate        = errors.New("identical content already present")
)

// Fatal reports whether an error of this kind aborts the whole pipeline
// rather than being counted as a per-post failure.
func Fatal(err error) bool {
	switch {
	case errors.Is(err, ErrAuthFailed),
		errors.Is(err, ErrInsufficientAuth),
		errors.Is(err, ErrNetwork),
		errors.Is(err, ErrApiShape),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrIoFailed),
		errors.Is(err, ErrConfig):
		return true
	default:
		return false
	}
}
