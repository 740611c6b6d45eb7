package slippage

import "github.com/rxtech-lab/backtestcore/pkg/errors"

// errZeroVolumeHistory is surfaced via OnWarning when the current bar's
// volume is zero, forcing a fallback to spread-only slippage since the
// participation and impact terms are undefined at zero volume.
var errZeroVolumeHistory = errors.New(errors.ErrCodeSlippageNumerical, "zero volume on the current bar, falling back to spread-only slippage")
