package mbr

import "fmt"

// UnknownBootIndicatorError reports a partition entry whose boot indicator
// byte is neither 0x00 (not bootable) nor 0x80 (bootable).
type UnknownBootIndicatorError struct {
	index     int
	indicator byte
}

func (e *UnknownBootIndicatorError) Error() string {
	return fmt.Sprintf("invalid boot indicator 0x%02x in partition entry %d", e.indicator, e.index)
}

// Index returns the 0-indexed position of the offending entry in the
// partition table.
func (e *UnknownBootIndicatorError) Index() int {
	return e.index
}

// Indicator returns the offending boot indicator byte.
func (e *UnknownBootIndicatorError) Indicator() byte {
	return e.indicator
}

func NewUnknownBootIndicatorError(index int, indicator byte) *UnknownBootIndicatorError {
	return &UnknownBootIndicatorError{
		index:     index,
		indicator: indicator,
	}
}
