package member

import (
	"context"
	"errors"
	"fmt"

	"github.com/Kalion254/vyg-member-portal/internal/store"
)

// ErrIssuerUnavailable means the counter primitive failed; no member
// record may be created until a number is successfully issued.
var ErrIssuerUnavailable = errors.New("member number issuer unavailable")

const memberCounterPath = "counters/members"

// Issuer allocates unique, monotonically increasing member numbers. The
// single shared counter is advanced with the store's atomic
// read-modify-write, so concurrent signups from independent processes
// never collide.
type Issuer struct {
	store store.Store
}

func NewIssuer(s store.Store) *Issuer {
	return &Issuer{store: s}
}

// IssueMemberNumber returns the next member number in the VYG-#### form.
func (i *Issuer) IssueMemberNumber(ctx context.Context) (string, error) {
	n, err := i.store.AtomicIncrement(ctx, memberCounterPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIssuerUnavailable, err)
	}
	return FormatMemberNumber(n), nil
}

// FormatMemberNumber zero-pads to 4 digits; beyond 9999 the width simply
// grows, there is no wraparound.
func FormatMemberNumber(n int64) string {
	return fmt.Sprintf("VYG-%04d", n)
}
