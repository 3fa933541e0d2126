package announcement

import "github.com/google/wire"

// ProviderSet 把这一层的构造函数都暴露出去
var ProviderSet = wire.NewSet(
	NewRepository,
	NewService,
	NewHandler,
)
