// Package provider resolves media URLs through upstream providers and maps
// their payloads onto media.MediaInfo.
package provider

import (
	"context"

	"github.com/guiyumin/mediahub/internal/core/media"
	"github.com/guiyumin/mediahub/internal/core/platform"
)

// OutcomeKind tags the result of a single resolution attempt.
type OutcomeKind int

const (
	// OutcomeResolved carries a usable MediaInfo.
	OutcomeResolved OutcomeKind = iota
	// OutcomeSoftFailure means try the next resolver.
	OutcomeSoftFailure
	// OutcomeHardFailure is a definitive rejection; no further resolver is tried.
	OutcomeHardFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeResolved:
		return "resolved"
	case OutcomeSoftFailure:
		return "soft_failure"
	case OutcomeHardFailure:
		return "hard_failure"
	}
	return "unknown"
}

// Outcome is the tagged result of Resolver.Resolve.
type Outcome struct {
	Kind OutcomeKind
	Info *media.MediaInfo
	Err  error
}

func Resolved(info media.MediaInfo) Outcome {
	return Outcome{Kind: OutcomeResolved, Info: &info}
}

func SoftFailure(err error) Outcome {
	return Outcome{Kind: OutcomeSoftFailure, Err: err}
}

func HardFailure(err error) Outcome {
	return Outcome{Kind: OutcomeHardFailure, Err: err}
}

// Resolver turns a single-item URL into a MediaInfo.
type Resolver interface {
	// Name identifies the resolver in logs
	Name() string

	// Resolve must honour ctx cancellation and never panic.
	Resolve(ctx context.Context, tag platform.Tag, rawURL string) Outcome
}
