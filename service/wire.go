package service

import "github.com/google/wire"

var ProviderSet = wire.NewSet(
	NewPointService,
	wire.Bind(new(IPointService), new(*PointService)),

	NewRuleService,
	wire.Bind(new(IRuleService), new(*RuleService)),

	NewAllocationService,
	wire.Bind(new(IAllocationService), new(*AllocationService)),

	NewLeadService,
	wire.Bind(new(ILeadService), new(*LeadService)),

	NewFollowUpService,
	wire.Bind(new(IFollowUpService), new(*FollowUpService)),

	NewNotifier,
	NewAttachmentService,
	NewAuthService,
)
