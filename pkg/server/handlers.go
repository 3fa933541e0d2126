package server

import (
	"Anju/handler"
	"Anju/internal/module/announcement"
)

type Handlers struct {
	Auth         *handler.Auth
	Allocation   *handler.Allocation
	Rule         *handler.Rule
	Lead         *handler.Lead
	Point        *handler.Point
	FollowUp     *handler.FollowUp
	Announcement *announcement.Handler
}
