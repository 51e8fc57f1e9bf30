package quota

import "errors"

// ErrQuotaExceeded indicates the user has used up their monthly document quota.
var ErrQuotaExceeded = errors.New("monthly document quota exceeded")
