package ledger

import (
	"strconv"

	"outletstock/internal/core/apperror"
	"outletstock/internal/core/types"
)

// Mode is the length of the evaluated date window in days.
type Mode int

const (
	ModeShort Mode = 7
	ModeLong  Mode = 30
)

// Valid reports whether m is a supported window length.
func (m Mode) Valid() bool {
	return m == ModeShort || m == ModeLong
}

func (m Mode) String() string {
	return strconv.Itoa(int(m))
}

// ParseMode parses "7" or "30". An empty string is ModeShort.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeShort, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || !Mode(n).Valid() {
		return 0, apperror.NewValidation("range must be 7 or 30").WithDetail("range", s)
	}
	return Mode(n), nil
}

// BuildWindow returns the ascending dates of the window of length mode ending
// at anchor, inclusive.
func BuildWindow(anchor types.Date, mode Mode) []types.Date {
	n := int(mode)
	if n <= 0 {
		return nil
	}
	dates := make([]types.Date, n)
	for i := 0; i < n; i++ {
		dates[i] = anchor.AddDays(i - n + 1)
	}
	return dates
}
