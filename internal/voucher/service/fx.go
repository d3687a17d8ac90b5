package service

import (
	"go.uber.org/fx"

	"github.com/bizbooks/voucherd/internal/voucher/sequence"
)

var Module = fx.Module("voucher.service",
	fx.Provide(sequence.New),
	fx.Provide(NewService),
)
