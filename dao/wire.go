package dao

import (
	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(
	NewUsers,
	NewLeadDAO,
	NewRule,
	NewGroup,
	NewPoint,
	NewAllocationLog,
	NewFollowUpDAO,
)
